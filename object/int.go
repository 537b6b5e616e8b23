package object

import (
	"github.com/epilys/pyo3/gil"
	"github.com/epilys/pyo3/pyerr"
)

// Int is a typed view of an integer object.
type Int struct {
	obj *Object
}

// NewInt creates a foreign integer from v.
func NewInt(py *gil.Token, v int64) (Int, error) {
	addr := py.Runtime().NewInt(v)
	if addr == 0 {
		return Int{}, pyerr.Fetch(py)
	}
	return Int{obj: FromOwned(py, addr)}, nil
}

// AsInt narrows obj to an integer view.
func AsInt(py *gil.Token, obj *Object) (Int, error) {
	if err := downcast(py, obj, IntKind); err != nil {
		return Int{}, err
	}
	return Int{obj: obj}, nil
}

// Value reads the integer payload.
func (i Int) Value(py *gil.Token) int64 {
	return py.Runtime().IntValue(i.obj.Addr())
}

// Object returns the wrapped Object.
func (i Int) Object() *Object {
	return i.obj
}
