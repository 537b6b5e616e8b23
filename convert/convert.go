package convert

import (
	"fmt"
	"math"
	"reflect"

	"github.com/iancoleman/orderedmap"

	"github.com/epilys/pyo3/gil"
	"github.com/epilys/pyo3/object"
	"github.com/epilys/pyo3/pyerr"
)

// ObjectConverter lets a Go type define its own foreign representation.
// ToObject must return a new owned reference.
type ObjectConverter interface {
	ToObject(py *gil.Token) (*object.Object, error)
}

// ToObject converts v to a foreign object without consuming it, returning a
// new owned reference.
//
// Booleans take the singleton fast path: the result is a borrowed reference
// to the True or False singleton, never a fresh allocation. Integer widths
// all map to the integer kind; unsigned values beyond its range are an
// overflow error. Go maps and *orderedmap.OrderedMap become mappings built
// by one SetItem per entry in the source's iteration order (unspecified for
// Go maps, key order for the ordered container).
func ToObject(py *gil.Token, v any) (*object.Object, error) {
	switch x := v.(type) {
	case bool:
		return object.NewBool(py, x).Object(), nil
	case int:
		return newInt(py, int64(x))
	case int8:
		return newInt(py, int64(x))
	case int16:
		return newInt(py, int64(x))
	case int32:
		return newInt(py, int64(x))
	case int64:
		return newInt(py, x)
	case uint:
		return newUint(py, uint64(x))
	case uint8:
		return newInt(py, int64(x))
	case uint16:
		return newInt(py, int64(x))
	case uint32:
		return newInt(py, int64(x))
	case uint64:
		return newUint(py, x)
	case string:
		s, err := object.NewStr(py, x)
		if err != nil {
			return nil, err
		}
		return s.Object(), nil
	case *object.Object:
		return x.Clone(), nil
	case object.Bool:
		return x.Object().Clone(), nil
	case object.Int:
		return x.Object().Clone(), nil
	case object.Str:
		return x.Object().Clone(), nil
	case object.Dict:
		return x.Object().Clone(), nil
	case *orderedmap.OrderedMap:
		return orderedToDict(py, x)
	case ObjectConverter:
		return x.ToObject(py)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map {
		return mapToDict(py, rv)
	}
	return nil, pyerr.Unsupported(pyerr.OpConvert, fmt.Sprintf("no foreign counterpart for Go type %T", v))
}

// IntoObject converts v to a foreign object, consuming it. For values that
// already are foreign references (*object.Object and the typed views) the
// existing reference transfers to the result instead of being cloned; for
// everything else this is ToObject, since plain Go values hold no host-side
// resource to release.
func IntoObject(py *gil.Token, v any) (*object.Object, error) {
	switch x := v.(type) {
	case *object.Object:
		return x, nil
	case object.Bool:
		return x.Object(), nil
	case object.Int:
		return x.Object(), nil
	case object.Str:
		return x.Object(), nil
	case object.Dict:
		return x.Object(), nil
	}
	return ToObject(py, v)
}

// Extract attempts to produce a Go value of type T from obj. The foreign
// kind must match T exactly: extracting a bool from anything but the two
// boolean singletons fails with a type mismatch rather than coercing
// truthiness, and the same strictness applies to the other kinds.
//
// Supported T: bool, int, int64, string.
func Extract[T any](py *gil.Token, obj *object.Object) (T, error) {
	var out T
	err := ExtractInto(py, obj, &out)
	return out, err
}

// ExtractInto is the decode-into form of Extract: dst must be a pointer to
// one of the supported Go types.
func ExtractInto(py *gil.Token, obj *object.Object, dst any) error {
	switch p := dst.(type) {
	case *bool:
		b, err := object.AsBool(py, obj)
		if err != nil {
			return asExtract(err)
		}
		*p = b.IsTrue(py)
		return nil
	case *int64:
		i, err := object.AsInt(py, obj)
		if err != nil {
			return asExtract(err)
		}
		*p = i.Value(py)
		return nil
	case *int:
		i, err := object.AsInt(py, obj)
		if err != nil {
			return asExtract(err)
		}
		v := i.Value(py)
		if v < math.MinInt || v > math.MaxInt {
			return pyerr.Overflow(pyerr.OpExtract, v, "int")
		}
		*p = int(v)
		return nil
	case *string:
		s, err := object.AsStr(py, obj)
		if err != nil {
			return asExtract(err)
		}
		*p = s.Value(py)
		return nil
	}
	return pyerr.Unsupported(pyerr.OpExtract, fmt.Sprintf("cannot extract into %T", dst))
}

func newInt(py *gil.Token, v int64) (*object.Object, error) {
	i, err := object.NewInt(py, v)
	if err != nil {
		return nil, err
	}
	return i.Object(), nil
}

func newUint(py *gil.Token, v uint64) (*object.Object, error) {
	if v > math.MaxInt64 {
		return nil, pyerr.Overflow(pyerr.OpConvert, v, "int")
	}
	return newInt(py, int64(v))
}

// mapToDict builds a mapping from any Go map via reflection, one SetItem per
// entry in Go's (unspecified) map iteration order.
func mapToDict(py *gil.Token, rv reflect.Value) (*object.Object, error) {
	dict, err := object.NewDict(py)
	if err != nil {
		return nil, err
	}
	iter := rv.MapRange()
	for iter.Next() {
		if err := setEntry(py, dict, iter.Key().Interface(), iter.Value().Interface()); err != nil {
			dict.Object().Drop()
			return nil, err
		}
	}
	return dict.Object(), nil
}

// orderedToDict mirrors mapToDict for the ordered container; destination
// insertion order follows the source key order.
func orderedToDict(py *gil.Token, om *orderedmap.OrderedMap) (*object.Object, error) {
	dict, err := object.NewDict(py)
	if err != nil {
		return nil, err
	}
	for _, key := range om.Keys() {
		value, _ := om.Get(key)
		if err := setEntry(py, dict, key, value); err != nil {
			dict.Object().Drop()
			return nil, err
		}
	}
	return dict.Object(), nil
}

// setEntry converts one key/value pair and stores it. Key or value
// conversion can fail and is reported; a SetItem failure on a freshly built
// dict with well-formed keys cannot be recovered mid-conversion and panics.
func setEntry(py *gil.Token, dict object.Dict, key, value any) error {
	ko, err := ToObject(py, key)
	if err != nil {
		return err
	}
	defer ko.Drop()
	vo, err := ToObject(py, value)
	if err != nil {
		return err
	}
	defer vo.Drop()
	if err := dict.SetItem(py, ko, vo); err != nil {
		panic("convert: SetItem failed while building mapping: " + err.Error())
	}
	return nil
}

// asExtract re-tags a downcast mismatch as an extract failure, keeping the
// expected/actual kind names.
func asExtract(err error) error {
	if e, ok := err.(*pyerr.Error); ok && e.Kind == pyerr.KindTypeMismatch {
		return pyerr.TypeMismatch(pyerr.OpExtract, e.Expected, e.Actual)
	}
	return err
}
