package object

import (
	"github.com/epilys/pyo3/gil"
)

// Bool is a typed view of an Object known to be one of the two boolean
// singletons. It is a narrowing, not a new allocation: it shares the
// underlying Object and owns nothing of its own.
type Bool struct {
	obj *Object
}

// NewBool returns a view of the True or False singleton, owning a borrowed
// reference to it. The singletons are immortal, so this never allocates.
func NewBool(py *gil.Token, v bool) Bool {
	rt := py.Runtime()
	addr := rt.False()
	if v {
		addr = rt.True()
	}
	return Bool{obj: FromBorrowed(py, addr)}
}

// AsBool narrows obj to a boolean view. Fails with a type mismatch naming
// both kinds when obj is not exactly a boolean; truthiness of other kinds
// does not count.
func AsBool(py *gil.Token, obj *Object) (Bool, error) {
	if err := downcast(py, obj, BoolKind); err != nil {
		return Bool{}, err
	}
	return Bool{obj: obj}, nil
}

// IsTrue reports whether this boolean is the True singleton. Booleans have
// no mutable payload; identity against the singleton is the only valid test.
func (b Bool) IsTrue(py *gil.Token) bool {
	return b.obj.Addr() == py.Runtime().True()
}

// Object returns the wrapped Object. A narrowing is never lossy, so this
// always succeeds.
func (b Bool) Object() *Object {
	return b.obj
}
