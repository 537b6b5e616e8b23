// Package pyerr defines the bridge's structured errors and the error bridge
// to the foreign runtime.
//
// Two failure families are recoverable and always surfaced as values:
// type mismatches (a downcast or extract against the wrong foreign kind,
// naming both kinds) and foreign failures (the runtime signaled an error
// through a sentinel return, translated via Fetch). Host-side contract
// violations (nil addresses, double drops, misused tokens) are programming
// errors and panic instead.
package pyerr
