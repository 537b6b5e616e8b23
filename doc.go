// Package pyo3 bridges statically-typed Go code and a reference-counted
// dynamic object runtime guarded by a single global exclusivity lock.
//
// The bridge reconciles two memory models: Go's, where lifetimes are managed
// by the collector and sharing is unrestricted, and the foreign runtime's,
// where every object carries a reference count and the whole heap may only be
// touched while holding one global lock.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	pyo3/          Root package with the Runtime capability surface
//	├── gil/       Exclusivity token: scoped, re-entrant lock acquisition
//	├── object/    Owned reference-counted handles and typed views
//	├── convert/   Bidirectional Go <-> foreign value conversion
//	├── pyerr/     Structured errors and the foreign error bridge
//	├── pyvm/      In-memory reference runtime backend
//	└── luavm/     Runtime backend over an embedded Lua interpreter
//
// # Quick Start
//
// Acquire the lock, build a mapping from a Go map, and read it back:
//
//	vm := pyvm.New()
//	err := gil.With(vm, func(py *gil.Token) error {
//		obj, err := convert.ToObject(py, map[int]int{7: 32})
//		if err != nil {
//			return err
//		}
//		defer obj.Drop()
//
//		dict, err := object.AsDict(py, obj)
//		if err != nil {
//			return err
//		}
//		key, _ := convert.ToObject(py, 7)
//		defer key.Drop()
//
//		value, ok := dict.GetItem(py, key)
//		if !ok {
//			return fmt.Errorf("missing key")
//		}
//		defer value.Drop()
//
//		n, err := convert.Extract[int](py, value)
//		fmt.Println(n, err) // 32 <nil>
//		return nil
//	})
//
// # Ownership Rules
//
// Every *object.Object owns exactly one reference-count contribution and
// must be dropped exactly once. Typed views (object.Bool, object.Dict, ...)
// are narrowings of an Object, not separate owners. Cloning is safe without
// the lock; every other operation takes a *gil.Token, making the "must hold
// the lock" requirement visible in the signature rather than enforced by
// convention.
package pyo3
