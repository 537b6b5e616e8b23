package object

import (
	"github.com/epilys/pyo3"
	"github.com/epilys/pyo3/gil"
)

// Object is an owned reference to one foreign object. A live Object always
// accounts for exactly one increment of the foreign reference count; Drop
// surrenders it. The zero Object is invalid.
type Object struct {
	rt   pyo3.Runtime
	addr pyo3.Addr // 0 once dropped
}

// FromOwned adopts a reference count increment the caller already holds,
// typically the result of a constructor on the capability surface. Panics on
// a zero address: passing one is a host-side bug, not a foreign failure.
func FromOwned(py *gil.Token, addr pyo3.Addr) *Object {
	if addr == 0 {
		panic("object: FromOwned with zero address")
	}
	return &Object{rt: py.Runtime(), addr: addr}
}

// FromBorrowed increments the foreign count for addr and adopts the new
// increment, leaving the lender's reference untouched. Panics on a zero
// address.
func FromBorrowed(py *gil.Token, addr pyo3.Addr) *Object {
	if addr == 0 {
		panic("object: FromBorrowed with zero address")
	}
	rt := py.Runtime()
	rt.IncRef(addr)
	return &Object{rt: rt, addr: addr}
}

// Clone returns a new Object owning a fresh increment. Reference counting is
// atomic at the runtime level, so no token is required.
func (o *Object) Clone() *Object {
	o.check()
	o.rt.IncRef(o.addr)
	return &Object{rt: o.rt, addr: o.addr}
}

// Drop surrenders this Object's reference count increment; if the count
// reaches zero the runtime reclaims the object. Must be called exactly once.
// A second Drop, or any use after Drop, panics.
func (o *Object) Drop() {
	o.check()
	o.rt.DecRef(o.addr)
	o.addr = 0
}

// Addr exposes the raw address for passing into the capability surface.
// Ownership does not transfer; the address is only valid while this Object
// (or another reference) keeps the foreign object alive.
func (o *Object) Addr() pyo3.Addr {
	o.check()
	return o.addr
}

// Runtime returns the runtime that owns the underlying object.
func (o *Object) Runtime() pyo3.Runtime {
	return o.rt
}

// Equal reports whether both objects refer to the same foreign address in
// the same runtime. This is identity, not the foreign runtime's own
// equality.
func (o *Object) Equal(other *Object) bool {
	o.check()
	other.check()
	return o.rt == other.rt && o.addr == other.addr
}

// KindName names the foreign kind of the underlying object.
func (o *Object) KindName(py *gil.Token) string {
	o.check()
	return py.Runtime().KindOf(o.addr)
}

// RefCount reports the current foreign reference count. Intended for tests
// and diagnostics.
func (o *Object) RefCount() int64 {
	o.check()
	return o.rt.RefCount(o.addr)
}

func (o *Object) check() {
	if o == nil || o.addr == 0 {
		panic("object: use of dropped or zero Object")
	}
}
