package convert

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/iancoleman/orderedmap"

	"github.com/epilys/pyo3/gil"
	"github.com/epilys/pyo3/object"
	"github.com/epilys/pyo3/pyerr"
	"github.com/epilys/pyo3/pyvm"
)

func TestBoolRoundTrip(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		for _, want := range []bool{true, false} {
			obj, err := ToObject(py, want)
			if err != nil {
				t.Fatal(err)
			}
			got, err := Extract[bool](py, obj)
			if err != nil {
				t.Fatal(err)
			}
			if got != want {
				t.Fatalf("round trip of %v yielded %v", want, got)
			}

			// The produced handle is the singleton itself.
			singleton := vm.False()
			if want {
				singleton = vm.True()
			}
			if obj.Addr() != singleton {
				t.Fatalf("conversion of %v did not reuse the singleton", want)
			}
			obj.Drop()
		}
		return nil
	})
}

func TestBoolSingletonsNeverEqual(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		tr, _ := ToObject(py, true)
		defer tr.Drop()
		fa, _ := ToObject(py, false)
		defer fa.Drop()
		if tr.Equal(fa) {
			t.Fatal("true and false handles identity-equal")
		}
		return nil
	})
}

func TestExtractDoesNotCoerce(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		obj, err := ToObject(py, 1)
		if err != nil {
			t.Fatal(err)
		}
		defer obj.Drop()

		_, err = Extract[bool](py, obj)
		if err == nil {
			t.Fatal("extracted bool from an integer")
		}
		var perr *pyerr.Error
		if !errors.As(err, &perr) {
			t.Fatalf("expected *pyerr.Error, got %T", err)
		}
		if perr.Op != pyerr.OpExtract || perr.Kind != pyerr.KindTypeMismatch {
			t.Fatalf("unexpected error shape: %v", perr)
		}
		if perr.Expected != "bool" || perr.Actual != "int" {
			t.Fatalf("kinds not named: expected=%q actual=%q", perr.Expected, perr.Actual)
		}
		return nil
	})
}

func TestIntStringRoundTrip(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		obj, err := ToObject(py, 123456)
		if err != nil {
			t.Fatal(err)
		}
		defer obj.Drop()
		n, err := Extract[int](py, obj)
		if err != nil || n != 123456 {
			t.Fatalf("int round trip: %d, %v", n, err)
		}

		s, err := ToObject(py, "hello")
		if err != nil {
			t.Fatal(err)
		}
		defer s.Drop()
		str, err := Extract[string](py, s)
		if err != nil || str != "hello" {
			t.Fatalf("string round trip: %q, %v", str, err)
		}
		return nil
	})
}

func TestUintOverflow(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		_, err := ToObject(py, uint64(1)<<63)
		if err == nil {
			t.Fatal("expected overflow error")
		}
		if !errors.Is(err, &pyerr.Error{Op: pyerr.OpConvert, Kind: pyerr.KindOverflow}) {
			t.Fatalf("expected overflow, got %v", err)
		}
		return nil
	})
}

func TestUnsupportedType(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		_, err := ToObject(py, struct{}{})
		if err == nil {
			t.Fatal("expected unsupported-type error")
		}
		if !errors.Is(err, &pyerr.Error{Op: pyerr.OpConvert, Kind: pyerr.KindUnsupported}) {
			t.Fatalf("expected unsupported, got %v", err)
		}
		return nil
	})
}

func TestMapRoundTrip(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		obj, err := ToObject(py, map[int]int{7: 32})
		if err != nil {
			t.Fatal(err)
		}
		defer obj.Drop()

		dict, err := object.AsDict(py, obj)
		if err != nil {
			t.Fatal(err)
		}
		if n := dict.Len(py); n != 1 {
			t.Fatalf("len = %d, want 1", n)
		}

		k7, _ := ToObject(py, 7)
		defer k7.Drop()
		ok, err := dict.Contains(py, k7)
		if err != nil || !ok {
			t.Fatalf("Contains(7) = %v, %v", ok, err)
		}

		v, ok := dict.GetItem(py, k7)
		if !ok {
			t.Fatal("key 7 absent")
		}
		defer v.Drop()
		n, err := Extract[int](py, v)
		if err != nil || n != 32 {
			t.Fatalf("dict[7] = %d, %v; want 32", n, err)
		}

		k8, _ := ToObject(py, 8)
		defer k8.Drop()
		if _, ok := dict.GetItem(py, k8); ok {
			t.Fatal("key 8 reported present")
		}
		return nil
	})
}

func TestMutationDoesNotTouchSourceMap(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		source := map[int]int{7: 32}
		obj, err := ToObject(py, source)
		if err != nil {
			t.Fatal(err)
		}
		defer obj.Drop()
		dict, err := object.AsDict(py, obj)
		if err != nil {
			t.Fatal(err)
		}

		set := func(k, v int) {
			ko, _ := ToObject(py, k)
			defer ko.Drop()
			vo, _ := ToObject(py, v)
			defer vo.Drop()
			if err := dict.SetItem(py, ko, vo); err != nil {
				t.Fatal(err)
			}
		}
		set(7, 42)  // change
		set(8, 123) // insert

		// The source map is untouched.
		if diff := cmp.Diff(map[int]int{7: 32}, source); diff != "" {
			t.Fatalf("source map changed (-want +got):\n%s", diff)
		}

		// The foreign mapping has both mutations.
		got := map[int]int{}
		for _, item := range dict.Items(py) {
			k, err := Extract[int](py, item.Key)
			if err != nil {
				t.Fatal(err)
			}
			v, err := Extract[int](py, item.Value)
			if err != nil {
				t.Fatal(err)
			}
			got[k] = v
			item.Key.Drop()
			item.Value.Drop()
		}
		if diff := cmp.Diff(map[int]int{7: 42, 8: 123}, got); diff != "" {
			t.Fatalf("foreign mapping wrong (-want +got):\n%s", diff)
		}
		return nil
	})
}

func TestOrderedMapPreservesKeyOrder(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		om := orderedmap.New()
		om.Set("c", 3)
		om.Set("a", 1)
		om.Set("b", 2)

		obj, err := ToObject(py, om)
		if err != nil {
			t.Fatal(err)
		}
		defer obj.Drop()
		dict, err := object.AsDict(py, obj)
		if err != nil {
			t.Fatal(err)
		}

		var keys []string
		for _, item := range dict.Items(py) {
			k, err := Extract[string](py, item.Key)
			if err != nil {
				t.Fatal(err)
			}
			keys = append(keys, k)
			item.Key.Drop()
			item.Value.Drop()
		}
		if diff := cmp.Diff([]string{"c", "a", "b"}, keys); diff != "" {
			t.Fatalf("insertion order not preserved (-want +got):\n%s", diff)
		}
		return nil
	})
}

func TestIntoObjectTransfersReference(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		obj, err := ToObject(py, 424242)
		if err != nil {
			t.Fatal(err)
		}
		before := obj.RefCount()

		moved, err := IntoObject(py, obj)
		if err != nil {
			t.Fatal(err)
		}
		if moved != obj {
			t.Fatal("IntoObject cloned instead of transferring")
		}
		if got := moved.RefCount(); got != before {
			t.Fatalf("refcount changed on transfer: %d -> %d", before, got)
		}

		cloned, err := ToObject(py, obj)
		if err != nil {
			t.Fatal(err)
		}
		if cloned == obj {
			t.Fatal("ToObject transferred instead of cloning")
		}
		if got := obj.RefCount(); got != before+1 {
			t.Fatalf("borrow-convert of an object: refcount = %d, want %d", got, before+1)
		}
		cloned.Drop()
		moved.Drop()
		return nil
	})
}

type point struct {
	X, Y int64
}

// ToObject converts a point to a {"x": ..., "y": ...} mapping.
func (p point) ToObject(py *gil.Token) (*object.Object, error) {
	return ToObject(py, map[string]int64{"x": p.X, "y": p.Y})
}

func TestObjectConverter(t *testing.T) {
	vm := pyvm.New()
	_ = gil.With(vm, func(py *gil.Token) error {
		obj, err := ToObject(py, point{X: 1, Y: 2})
		if err != nil {
			t.Fatal(err)
		}
		defer obj.Drop()

		dict, err := object.AsDict(py, obj)
		if err != nil {
			t.Fatal(err)
		}
		if n := dict.Len(py); n != 2 {
			t.Fatalf("len = %d, want 2", n)
		}
		return nil
	})
}
