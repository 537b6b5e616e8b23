package luavm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Shopify/go-lua"
	"go.uber.org/zap"

	"github.com/epilys/pyo3"
)

// pinsField is the registry key of the table pinning every live object
// against Lua's collector.
const pinsField = "pyo3.luavm.pins"

type entry struct {
	kind     string
	refcnt   int64
	immortal bool
}

// VM implements the pyo3.Runtime capability surface over an embedded Lua
// interpreter. Mappings are Lua tables; integers and strings are Lua
// values; the boolean singletons are two pinned immortal handles.
//
// Lua's heap is garbage-collected, not reference-counted, so the adapter
// owns the counts: every live handle address pins its Lua value in a
// registry-side table, and the pin is dropped when the count reaches zero.
//
// Two adapter-level departures from a native refcounted runtime: a value
// read back out of a mapping gets a fresh handle address (identity across
// handles is only preserved for the boolean singletons), and integers are
// Lua numbers, exact up to 2^53.
type VM struct {
	mu        sync.Mutex
	l         *lua.State
	entries   map[pyo3.Addr]*entry
	next      pyo3.Addr
	trueAddr  pyo3.Addr
	falseAddr pyo3.Addr
	errState  string
}

// New creates a VM with a fresh Lua state.
func New() *VM {
	l := lua.NewState()
	vm := &VM{l: l, entries: map[pyo3.Addr]*entry{}}

	l.NewTable()
	l.SetField(lua.RegistryIndex, pinsField)

	l.PushBoolean(true)
	vm.trueAddr = vm.pin("bool")
	l.PushBoolean(false)
	vm.falseAddr = vm.pin("bool")
	vm.entries[vm.trueAddr].immortal = true
	vm.entries[vm.falseAddr].immortal = true

	Logger().Debug("luavm: state created")
	return vm
}

// pin moves the value on top of the Lua stack into the pins table under a
// fresh address with one reference.
func (vm *VM) pin(kind string) pyo3.Addr {
	vm.next++
	addr := vm.next
	vm.l.Field(lua.RegistryIndex, pinsField) // value pins
	vm.l.Insert(-2)                          // pins value
	vm.l.RawSetInt(-2, int(addr))            // pins
	vm.l.Pop(1)
	vm.entries[addr] = &entry{kind: kind, refcnt: 1}
	return addr
}

// pushPinned pushes addr's Lua value, leaving only it on top.
func (vm *VM) pushPinned(addr pyo3.Addr) {
	vm.l.Field(lua.RegistryIndex, pinsField)
	vm.l.RawGetInt(-1, int(addr))
	vm.l.Remove(-2)
}

func (vm *VM) unpin(addr pyo3.Addr) {
	vm.l.Field(lua.RegistryIndex, pinsField)
	vm.l.PushNil()
	vm.l.RawSetInt(-2, int(addr))
	vm.l.Pop(1)
	delete(vm.entries, addr)
}

func (vm *VM) lookup(addr pyo3.Addr) *entry {
	e, ok := vm.entries[addr]
	if !ok {
		panic(fmt.Sprintf("luavm: invalid or reclaimed address %d", addr))
	}
	return e
}

// internTop takes ownership of the value on top of the Lua stack and
// returns a handle address holding one reference. Booleans map back to the
// singletons; everything else is pinned fresh.
func (vm *VM) internTop() pyo3.Addr {
	switch vm.l.TypeOf(-1) {
	case lua.TypeBoolean:
		b := vm.l.ToBoolean(-1)
		vm.l.Pop(1)
		addr := vm.falseAddr
		if b {
			addr = vm.trueAddr
		}
		vm.lookup(addr).refcnt++
		return addr
	case lua.TypeNumber:
		return vm.pin("int")
	case lua.TypeString:
		return vm.pin("str")
	case lua.TypeTable:
		return vm.pin("dict")
	default:
		t := vm.l.TypeOf(-1)
		vm.l.Pop(1)
		panic(fmt.Sprintf("luavm: cannot intern Lua value of type %d", t))
	}
}

// IncRef implements pyo3.RefCounter.
func (vm *VM) IncRef(addr pyo3.Addr) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.lookup(addr).refcnt++
}

// DecRef implements pyo3.RefCounter. At zero the pin is released and Lua's
// collector reclaims the value.
func (vm *VM) DecRef(addr pyo3.Addr) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	e := vm.lookup(addr)
	if e.immortal {
		if e.refcnt > 1 {
			e.refcnt--
		}
		return
	}
	e.refcnt--
	if e.refcnt > 0 {
		return
	}
	if e.refcnt < 0 {
		panic(fmt.Sprintf("luavm: negative reference count at address %d", addr))
	}
	vm.unpin(addr)
}

// RefCount implements pyo3.RefCounter.
func (vm *VM) RefCount(addr pyo3.Addr) int64 {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.lookup(addr).refcnt
}

// KindOf implements pyo3.Runtime.
func (vm *VM) KindOf(addr pyo3.Addr) string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.lookup(addr).kind
}

func (vm *VM) isKind(addr pyo3.Addr, kind string) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.lookup(addr).kind == kind
}

// IsBool implements pyo3.Runtime.
func (vm *VM) IsBool(addr pyo3.Addr) bool { return vm.isKind(addr, "bool") }

// IsInt implements pyo3.Runtime.
func (vm *VM) IsInt(addr pyo3.Addr) bool { return vm.isKind(addr, "int") }

// IsStr implements pyo3.Runtime.
func (vm *VM) IsStr(addr pyo3.Addr) bool { return vm.isKind(addr, "str") }

// IsDict implements pyo3.Runtime.
func (vm *VM) IsDict(addr pyo3.Addr) bool { return vm.isKind(addr, "dict") }

// True implements pyo3.Runtime.
func (vm *VM) True() pyo3.Addr { return vm.trueAddr }

// False implements pyo3.Runtime.
func (vm *VM) False() pyo3.Addr { return vm.falseAddr }

// NewInt implements pyo3.Runtime.
func (vm *VM) NewInt(v int64) pyo3.Addr {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	defer vm.l.SetTop(0)
	vm.l.PushInteger(int(v))
	return vm.pin("int")
}

// NewStr implements pyo3.Runtime.
func (vm *VM) NewStr(s string) pyo3.Addr {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	defer vm.l.SetTop(0)
	vm.l.PushString(s)
	return vm.pin("str")
}

// NewDict implements pyo3.Runtime.
func (vm *VM) NewDict() pyo3.Addr {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	defer vm.l.SetTop(0)
	vm.l.NewTable()
	return vm.pin("dict")
}

// IntValue implements pyo3.Runtime.
func (vm *VM) IntValue(addr pyo3.Addr) int64 {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	defer vm.l.SetTop(0)
	vm.pushPinned(addr)
	v, _ := vm.l.ToInteger(-1)
	return int64(v)
}

// StrValue implements pyo3.Runtime.
func (vm *VM) StrValue(addr pyo3.Addr) string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	defer vm.l.SetTop(0)
	vm.pushPinned(addr)
	s, _ := vm.l.ToString(-1)
	return s
}

// DictLen implements pyo3.Runtime.
func (vm *VM) DictLen(dict pyo3.Addr) int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	defer vm.l.SetTop(0)
	vm.pushPinned(dict)
	tbl := vm.l.Top()
	n := 0
	vm.l.PushNil()
	for vm.l.Next(tbl) {
		n++
		vm.l.Pop(1)
	}
	return n
}

// DictContains implements pyo3.Runtime. Lua tables key by value for
// numbers, strings and booleans, and by identity for tables, so nothing is
// unhashable here and the failure status is never returned.
func (vm *VM) DictContains(dict, key pyo3.Addr) int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	defer vm.l.SetTop(0)
	vm.pushPinned(dict)
	tbl := vm.l.Top()
	vm.pushPinned(key)
	vm.l.RawGet(tbl)
	if vm.l.TypeOf(-1) == lua.TypeNil {
		return 0
	}
	return 1
}

// DictGet implements pyo3.Runtime.
func (vm *VM) DictGet(dict, key pyo3.Addr) pyo3.Addr {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	defer vm.l.SetTop(0)
	vm.pushPinned(dict)
	tbl := vm.l.Top()
	vm.pushPinned(key)
	vm.l.RawGet(tbl)
	if vm.l.TypeOf(-1) == lua.TypeNil {
		return 0
	}
	return vm.internTop()
}

// DictSet implements pyo3.Runtime. The Lua table keeps its stored values
// alive on its own, so no adapter-side references are taken.
func (vm *VM) DictSet(dict, key, value pyo3.Addr) int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	defer vm.l.SetTop(0)
	vm.pushPinned(dict)
	tbl := vm.l.Top()
	vm.pushPinned(key)
	vm.pushPinned(value)
	vm.l.RawSet(tbl)
	return pyo3.StatusOK
}

// DictDel implements pyo3.Runtime.
func (vm *VM) DictDel(dict, key pyo3.Addr) int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	defer vm.l.SetTop(0)
	vm.pushPinned(dict)
	tbl := vm.l.Top()
	vm.pushPinned(key)
	vm.l.RawGet(tbl)
	if vm.l.TypeOf(-1) == lua.TypeNil {
		vm.errState = "KeyError: " + vm.describe(key)
		Logger().Debug("luavm: delete of absent key", zap.Uint64("key", uint64(key)))
		return pyo3.StatusError
	}
	vm.l.Pop(1)
	vm.pushPinned(key)
	vm.l.PushNil()
	vm.l.RawSet(tbl)
	return pyo3.StatusOK
}

// DictItems implements pyo3.Runtime.
func (vm *VM) DictItems(dict pyo3.Addr) []pyo3.Pair {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	defer vm.l.SetTop(0)
	vm.pushPinned(dict)
	tbl := vm.l.Top()
	var pairs []pyo3.Pair
	vm.l.PushNil()
	for vm.l.Next(tbl) {
		vm.l.PushValue(-2)
		k := vm.internTop()
		vm.l.PushValue(-1)
		v := vm.internTop()
		pairs = append(pairs, pyo3.Pair{Key: k, Value: v})
		vm.l.Pop(1)
	}
	return pairs
}

// DictCopy implements pyo3.Runtime.
func (vm *VM) DictCopy(dict pyo3.Addr) pyo3.Addr {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	defer vm.l.SetTop(0)
	vm.pushPinned(dict)
	src := vm.l.Top()
	vm.l.NewTable()
	dst := vm.l.Top()
	vm.l.PushNil()
	for vm.l.Next(src) {
		vm.l.PushValue(-2)
		vm.l.PushValue(-2)
		vm.l.RawSet(dst)
		vm.l.Pop(1)
	}
	vm.l.PushValue(dst)
	return vm.pin("dict")
}

// DictClear implements pyo3.Runtime. Restarting traversal after every
// removal keeps the walk sound while the table shrinks.
func (vm *VM) DictClear(dict pyo3.Addr) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	defer vm.l.SetTop(0)
	vm.pushPinned(dict)
	tbl := vm.l.Top()
	for {
		vm.l.PushNil()
		if !vm.l.Next(tbl) {
			return
		}
		vm.l.Pop(1)
		vm.l.PushNil()
		vm.l.RawSet(tbl)
	}
}

// ErrOccurred implements pyo3.ErrorFetcher.
func (vm *VM) ErrOccurred() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.errState != ""
}

// FetchError implements pyo3.ErrorFetcher.
func (vm *VM) FetchError() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	s := vm.errState
	vm.errState = ""
	return s
}

// describe renders a key for error messages. Assumes vm.mu held.
func (vm *VM) describe(addr pyo3.Addr) string {
	e := vm.lookup(addr)
	switch e.kind {
	case "bool":
		if addr == vm.trueAddr {
			return "True"
		}
		return "False"
	case "int", "str":
		vm.pushPinned(addr)
		s, _ := vm.l.ToString(-1)
		vm.l.Pop(1)
		if e.kind == "str" {
			return fmt.Sprintf("%q", s)
		}
		return s
	default:
		return fmt.Sprintf("<%s at %d>", e.kind, addr)
	}
}

// Len reports the number of live handles, the singletons included.
func (vm *VM) Len() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return len(vm.entries)
}

// Each visits every live handle in address order. Intended for inspection
// tooling; fn must not call back into the VM.
func (vm *VM) Each(fn func(addr pyo3.Addr, kind string, refcnt int64) bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	addrs := make([]pyo3.Addr, 0, len(vm.entries))
	for addr := range vm.entries {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	for _, addr := range addrs {
		e := vm.entries[addr]
		if !fn(addr, e.kind, e.refcnt) {
			return
		}
	}
}
