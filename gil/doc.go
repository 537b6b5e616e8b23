// Package gil provides the exclusivity token guarding the foreign heap.
//
// The foreign runtime protects its whole object graph with one global lock.
// Rather than leaving "hold the lock" as a convention, this package models
// possession as an explicit capability value: a *Token, handed to every
// operation that touches foreign state. A function without a token cannot
// reach the heap.
//
// # Scoped Acquisition
//
// The scoped form releases on every exit path, including panics:
//
//	err := gil.With(vm, func(py *gil.Token) error {
//		// foreign-heap work
//		return nil
//	})
//
// The explicit form pairs Acquire with a deferred Release:
//
//	py := gil.Acquire(vm)
//	defer py.Release()
//
// # Re-entrancy
//
// Acquire on a goroutine that already holds the lock nests instead of
// deadlocking; the lock is freed when the outermost token is released.
// Acquisition never fails and has no timeout: a deadlock against a
// conflicting foreign-side lock is a programming error, not a recoverable
// condition.
package gil
