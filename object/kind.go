package object

import (
	"github.com/epilys/pyo3"
	"github.com/epilys/pyo3/gil"
	"github.com/epilys/pyo3/pyerr"
)

// Kind describes one foreign object category: a name for diagnostics and
// the runtime's type-check predicate. All downcast machinery is generic over
// descriptors; adding a kind means supplying a descriptor and a view type,
// not rewriting the gate.
type Kind struct {
	Name  string
	Check func(rt pyo3.Runtime, addr pyo3.Addr) bool
}

var (
	BoolKind = Kind{Name: "bool", Check: pyo3.Runtime.IsBool}
	IntKind  = Kind{Name: "int", Check: pyo3.Runtime.IsInt}
	StrKind  = Kind{Name: "str", Check: pyo3.Runtime.IsStr}
	DictKind = Kind{Name: "dict", Check: pyo3.Runtime.IsDict}
)

// downcast is the single gate behind every typed view constructor. It runs
// the kind's predicate against the object's actual foreign type and reports
// a type mismatch naming both kinds on failure. Nothing is constructed until
// the check passes.
func downcast(py *gil.Token, o *Object, k Kind) error {
	o.check()
	rt := py.Runtime()
	if !k.Check(rt, o.addr) {
		return pyerr.TypeMismatch(pyerr.OpDowncast, k.Name, rt.KindOf(o.addr))
	}
	return nil
}
