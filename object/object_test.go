package object_test

import (
	"testing"

	"github.com/epilys/pyo3/gil"
	"github.com/epilys/pyo3/object"
	"github.com/epilys/pyo3/pyvm"
)

// newBigInt returns an integer object outside the runtime's small-int
// cache, so its reference count starts at exactly 1.
func newBigInt(t *testing.T, py *gil.Token, v int64) *object.Object {
	t.Helper()
	i, err := object.NewInt(py, v)
	if err != nil {
		t.Fatal(err)
	}
	return i.Object()
}

func TestCloneDropBalance(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		obj := newBigInt(t, py, 100000)
		initial := obj.RefCount()

		c1 := obj.Clone()
		c2 := obj.Clone()
		if got := obj.RefCount(); got != initial+2 {
			t.Fatalf("after 2 clones: refcount = %d, want %d", got, initial+2)
		}

		c1.Drop()
		if got := obj.RefCount(); got != initial+1 {
			t.Fatalf("after 1 drop: refcount = %d, want %d", got, initial+1)
		}
		c2.Drop()
		if got := obj.RefCount(); got != initial {
			t.Fatalf("after 2 drops: refcount = %d, want %d", got, initial)
		}

		// Reaching the initial count must not have deallocated anything.
		if !vm.IsInt(obj.Addr()) {
			t.Fatal("object deallocated prematurely")
		}
		obj.Drop()
		return nil
	})
}

func TestFromBorrowedIncrements(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		owner := newBigInt(t, py, 100001)
		before := owner.RefCount()

		borrowed := object.FromBorrowed(py, owner.Addr())
		if got := owner.RefCount(); got != before+1 {
			t.Fatalf("FromBorrowed: refcount = %d, want %d", got, before+1)
		}
		borrowed.Drop()
		if got := owner.RefCount(); got != before {
			t.Fatalf("after dropping borrow: refcount = %d, want %d", got, before)
		}
		owner.Drop()
		return nil
	})
}

func TestFromOwnedZeroAddrPanics(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic on zero address")
			}
		}()
		object.FromOwned(py, 0)
		return nil
	})
}

func TestDoubleDropPanics(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		obj := newBigInt(t, py, 100002)
		clone := obj.Clone()
		clone.Drop()

		defer func() {
			if recover() == nil {
				t.Fatal("expected panic on second drop")
			}
			obj.Drop()
		}()
		clone.Drop()
		return nil
	})
}

func TestEqualityIsAddressIdentity(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		obj := newBigInt(t, py, 100003)
		defer obj.Drop()
		clone := obj.Clone()
		defer clone.Drop()

		if !obj.Equal(clone) {
			t.Fatal("clone not equal to original")
		}

		other := newBigInt(t, py, 100003)
		defer other.Drop()
		// Same payload, different object: identity, not value equality.
		if obj.Equal(other) {
			t.Fatal("distinct objects compared equal")
		}
		return nil
	})
}

func TestDowncastGate(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		dict, err := object.NewDict(py)
		if err != nil {
			t.Fatal(err)
		}
		obj := dict.Object()
		defer obj.Drop()

		if _, err := object.AsDict(py, obj); err != nil {
			t.Fatalf("downcast to actual kind failed: %v", err)
		}
		if _, err := object.AsBool(py, obj); err == nil {
			t.Fatal("downcast to wrong kind succeeded")
		}
		return nil
	})
}

func TestUpcastIsLossless(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		dict, err := object.NewDict(py)
		if err != nil {
			t.Fatal(err)
		}
		obj := dict.Object()
		defer obj.Drop()

		view, err := object.AsDict(py, obj)
		if err != nil {
			t.Fatal(err)
		}
		if view.Object() != obj {
			t.Fatal("upcast returned a different object")
		}
		if before := obj.RefCount(); before != 1 {
			t.Fatalf("narrowing changed the refcount: %d", before)
		}
		return nil
	})
}
