package pyerr

import (
	"errors"
	"strings"
	"testing"

	"github.com/epilys/pyo3/gil"
	"github.com/epilys/pyo3/pyvm"
)

func TestTypeMismatchMessage(t *testing.T) {
	err := TypeMismatch(OpDowncast, "bool", "dict")
	msg := err.Error()
	if !strings.Contains(msg, "expected bool") || !strings.Contains(msg, "got dict") {
		t.Fatalf("message does not name both kinds: %q", msg)
	}
	if !strings.Contains(msg, "[downcast]") {
		t.Fatalf("message does not name the operation: %q", msg)
	}
}

func TestIsMatchesOpAndKind(t *testing.T) {
	err := TypeMismatch(OpExtract, "int", "str")
	if !errors.Is(err, &Error{Op: OpExtract, Kind: KindTypeMismatch}) {
		t.Fatal("expected Is to match on op and kind")
	}
	if errors.Is(err, &Error{Op: OpDowncast, Kind: KindTypeMismatch}) {
		t.Fatal("Is matched a different op")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("inner")
	err := &Error{Op: OpCall, Kind: KindForeignFailure, Cause: cause}
	if !errors.Is(err, cause) {
		t.Fatal("expected Unwrap chain to reach the cause")
	}
}

func TestFetchClearsState(t *testing.T) {
	vm := pyvm.New()
	err := gil.With(vm, func(py *gil.Token) error {
		// Force pending error state: delete an absent key.
		dict := vm.NewDict()
		key := vm.NewInt(7)
		if vm.DictDel(dict, key) != -1 {
			t.Fatal("expected delete of absent key to fail")
		}
		if !vm.ErrOccurred() {
			t.Fatal("expected pending error state")
		}

		ferr := Fetch(py)
		if ferr.Kind != KindForeignFailure {
			t.Fatalf("expected foreign failure, got %v", ferr.Kind)
		}
		if !strings.Contains(ferr.Detail, "KeyError") {
			t.Fatalf("expected KeyError detail, got %q", ferr.Detail)
		}
		if vm.ErrOccurred() {
			t.Fatal("Fetch did not clear the pending state")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestFetchWithoutPendingState(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		ferr := Fetch(py)
		if ferr == nil {
			t.Fatal("expected non-nil error for contract-breaking sentinel")
		}
		if ferr.Kind != KindForeignFailure {
			t.Fatalf("expected foreign failure, got %v", ferr.Kind)
		}
		return nil
	})
}
