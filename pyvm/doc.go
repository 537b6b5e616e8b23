// Package pyvm is an in-memory reference implementation of the pyo3.Runtime
// capability surface.
//
// Objects live in a slab of reference-counted entries with a free list.
// The boolean singletons and the small-integer cache are immortal: their
// counts never reach zero, so borrowed references to them are always valid.
// Mappings preserve insertion order and take their own references to stored
// keys and values; reclaiming a mapping releases those references in turn.
//
// Failures follow the capability-surface contract: a zero address or a
// negative status, with a description parked in the pending error state
// until fetched.
//
// The package backs the bridge's tests and the demo CLI; it is not a real
// foreign runtime.
package pyvm
