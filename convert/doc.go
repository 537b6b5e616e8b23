// Package convert moves values across the host/foreign boundary.
//
// Three contracts cover every Go type with a foreign counterpart:
//
//	ToObject    borrow-convert: produce a foreign object, v untouched
//	IntoObject  consume-convert: ownership of v transfers to the result
//	Extract     fallible extract: foreign object back to a Go value
//
// Conversion never coerces: Extract demands the exact foreign kind and
// fails with an error naming the expected and actual kinds otherwise.
// Every fallible path reports either a conversion error or a foreign
// failure fetched through pyerr; the one documented panic is a SetItem
// failure while populating a freshly built mapping, where the caller has no
// recourse mid-conversion.
package convert
