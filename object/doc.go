// Package object provides owned, reference-counted handles to foreign
// objects and typed views over them.
//
// # Handles
//
// An Object owns exactly one increment of its foreign object's reference
// count. Construction either adopts an increment the caller already holds
// (FromOwned) or takes a fresh one (FromBorrowed); Clone takes another;
// Drop surrenders it, exactly once. Refcount traffic is atomic at the
// runtime level, so Clone and Drop need no token; every other operation
// does.
//
// # Typed Views
//
// A view (Bool, Int, Str, Dict) is a compile-time narrowing of an Object to
// one foreign kind. The only way to obtain one from an existing Object is
// the matching As* constructor, which gates on the runtime's type-check
// predicate and reports a type mismatch naming both kinds. Views share the
// underlying Object; Object() upcasts back without loss.
//
// New kinds plug into the same machinery by supplying a Kind descriptor
// (name plus predicate) and a view type whose constructor calls the shared
// downcast gate.
package object
