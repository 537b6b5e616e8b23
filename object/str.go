package object

import (
	"github.com/epilys/pyo3/gil"
	"github.com/epilys/pyo3/pyerr"
)

// Str is a typed view of a string object.
type Str struct {
	obj *Object
}

// NewStr creates a foreign string from s.
func NewStr(py *gil.Token, s string) (Str, error) {
	addr := py.Runtime().NewStr(s)
	if addr == 0 {
		return Str{}, pyerr.Fetch(py)
	}
	return Str{obj: FromOwned(py, addr)}, nil
}

// AsStr narrows obj to a string view.
func AsStr(py *gil.Token, obj *Object) (Str, error) {
	if err := downcast(py, obj, StrKind); err != nil {
		return Str{}, err
	}
	return Str{obj: obj}, nil
}

// Value reads the string payload.
func (s Str) Value(py *gil.Token) string {
	return py.Runtime().StrValue(s.obj.Addr())
}

// Object returns the wrapped Object.
func (s Str) Object() *Object {
	return s.obj
}
