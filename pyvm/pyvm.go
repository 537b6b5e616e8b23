package pyvm

import (
	"fmt"
	"sync"

	"github.com/epilys/pyo3"
)

const (
	smallIntMin = -5
	smallIntMax = 256
)

type kindID uint8

const (
	kindInvalid kindID = iota
	kindBool
	kindInt
	kindStr
	kindDict
)

func (k kindID) String() string {
	switch k {
	case kindBool:
		return "bool"
	case kindInt:
		return "int"
	case kindStr:
		return "str"
	case kindDict:
		return "dict"
	default:
		return "<invalid>"
	}
}

type entry struct {
	dict     *dictPayload
	sval     string
	ival     int64
	refcnt   int64
	kind     kindID
	immortal bool
	valid    bool
}

// hashKey is the comparable identity of a dict key. Booleans hash as the
// integers 1 and 0, matching the foreign convention that True == 1.
type hashKey struct {
	s    string
	i    int64
	kind kindID
}

type dictSlot struct {
	hk    hashKey
	key   pyo3.Addr
	value pyo3.Addr
}

// dictPayload preserves insertion order: order is authoritative, index maps
// a key's hash identity to its slot.
type dictPayload struct {
	index map[hashKey]int
	order []dictSlot
}

// VM is an in-memory implementation of the pyo3.Runtime capability surface:
// a slab of reference-counted entries with a free list, immortal boolean
// singletons, interned small integers, and insertion-ordered mappings.
//
// All methods are safe without holding the gil lock; the VM serializes its
// own state internally. The gil lock still provides the cross-operation
// exclusivity the bridge is specified against.
type VM struct {
	mu        sync.Mutex
	entries   []entry
	freeList  []pyo3.Addr
	smallInts [smallIntMax - smallIntMin + 1]pyo3.Addr
	trueAddr  pyo3.Addr
	falseAddr pyo3.Addr
	errState  string
}

// New creates a VM with the boolean singletons and small-integer cache
// pre-allocated.
func New() *VM {
	vm := &VM{
		entries:  make([]entry, 0, 64),
		freeList: make([]pyo3.Addr, 0, 16),
	}
	vm.falseAddr = vm.alloc(entry{kind: kindBool, ival: 0, refcnt: 1, immortal: true, valid: true})
	vm.trueAddr = vm.alloc(entry{kind: kindBool, ival: 1, refcnt: 1, immortal: true, valid: true})
	for v := int64(smallIntMin); v <= smallIntMax; v++ {
		vm.smallInts[v-smallIntMin] = vm.alloc(entry{kind: kindInt, ival: v, refcnt: 1, immortal: true, valid: true})
	}
	return vm
}

// alloc reuses a free slot when available; addresses are slot index + 1 so
// that 0 stays invalid.
func (vm *VM) alloc(e entry) pyo3.Addr {
	if len(vm.freeList) > 0 {
		addr := vm.freeList[len(vm.freeList)-1]
		vm.freeList = vm.freeList[:len(vm.freeList)-1]
		vm.entries[addr-1] = e
		return addr
	}
	vm.entries = append(vm.entries, e)
	return pyo3.Addr(len(vm.entries))
}

func (vm *VM) get(addr pyo3.Addr) *entry {
	if addr == 0 || int(addr) > len(vm.entries) {
		panic(fmt.Sprintf("pyvm: invalid address %d", addr))
	}
	e := &vm.entries[addr-1]
	if !e.valid {
		panic(fmt.Sprintf("pyvm: use of reclaimed address %d", addr))
	}
	return e
}

// IncRef implements pyo3.RefCounter.
func (vm *VM) IncRef(addr pyo3.Addr) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.incref(addr)
}

// DecRef implements pyo3.RefCounter. At zero the entry is reclaimed and, for
// mappings, the references it holds are released in turn.
func (vm *VM) DecRef(addr pyo3.Addr) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.decref(addr)
}

// RefCount implements pyo3.RefCounter.
func (vm *VM) RefCount(addr pyo3.Addr) int64 {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.get(addr).refcnt
}

func (vm *VM) incref(addr pyo3.Addr) {
	vm.get(addr).refcnt++
}

func (vm *VM) decref(addr pyo3.Addr) {
	e := vm.get(addr)
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
		panic(fmt.Sprintf("pyvm: negative reference count at address %d", addr))
	}
	dict := e.dict
	*e = entry{}
	vm.freeList = append(vm.freeList, addr)
	if dict != nil {
		for _, slot := range dict.order {
			vm.decref(slot.key)
			vm.decref(slot.value)
		}
	}
}

// KindOf implements pyo3.Runtime.
func (vm *VM) KindOf(addr pyo3.Addr) string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.get(addr).kind.String()
}

func (vm *VM) isKind(addr pyo3.Addr, k kindID) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.get(addr).kind == k
}

// IsBool implements pyo3.Runtime.
func (vm *VM) IsBool(addr pyo3.Addr) bool { return vm.isKind(addr, kindBool) }

// IsInt implements pyo3.Runtime.
func (vm *VM) IsInt(addr pyo3.Addr) bool { return vm.isKind(addr, kindInt) }

// IsStr implements pyo3.Runtime.
func (vm *VM) IsStr(addr pyo3.Addr) bool { return vm.isKind(addr, kindStr) }

// IsDict implements pyo3.Runtime.
func (vm *VM) IsDict(addr pyo3.Addr) bool { return vm.isKind(addr, kindDict) }

// True implements pyo3.Runtime.
func (vm *VM) True() pyo3.Addr { return vm.trueAddr }

// False implements pyo3.Runtime.
func (vm *VM) False() pyo3.Addr { return vm.falseAddr }

// NewInt implements pyo3.Runtime. Small values return a new reference to
// the interned entry instead of allocating.
func (vm *VM) NewInt(v int64) pyo3.Addr {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if v >= smallIntMin && v <= smallIntMax {
		addr := vm.smallInts[v-smallIntMin]
		vm.incref(addr)
		return addr
	}
	return vm.alloc(entry{kind: kindInt, ival: v, refcnt: 1, valid: true})
}

// NewStr implements pyo3.Runtime.
func (vm *VM) NewStr(s string) pyo3.Addr {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.alloc(entry{kind: kindStr, sval: s, refcnt: 1, valid: true})
}

// NewDict implements pyo3.Runtime.
func (vm *VM) NewDict() pyo3.Addr {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.alloc(entry{
		kind:   kindDict,
		dict:   &dictPayload{index: map[hashKey]int{}},
		refcnt: 1,
		valid:  true,
	})
}

// IntValue implements pyo3.Runtime.
func (vm *VM) IntValue(addr pyo3.Addr) int64 {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.get(addr).ival
}

// StrValue implements pyo3.Runtime.
func (vm *VM) StrValue(addr pyo3.Addr) string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.get(addr).sval
}

func (vm *VM) dictOf(addr pyo3.Addr) *dictPayload {
	e := vm.get(addr)
	if e.kind != kindDict {
		panic(fmt.Sprintf("pyvm: dict operation on %s at address %d", e.kind, addr))
	}
	return e.dict
}

// hashOf derives a dict key's hash identity. Mappings are unhashable.
func (vm *VM) hashOf(addr pyo3.Addr) (hashKey, bool) {
	e := vm.get(addr)
	switch e.kind {
	case kindBool, kindInt:
		return hashKey{kind: kindInt, i: e.ival}, true
	case kindStr:
		return hashKey{kind: kindStr, s: e.sval}, true
	default:
		return hashKey{}, false
	}
}

// DictLen implements pyo3.Runtime.
func (vm *VM) DictLen(dict pyo3.Addr) int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return len(vm.dictOf(dict).order)
}

// DictContains implements pyo3.Runtime.
func (vm *VM) DictContains(dict, key pyo3.Addr) int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	d := vm.dictOf(dict)
	hk, ok := vm.hashOf(key)
	if !ok {
		vm.errState = "TypeError: unhashable type: 'dict'"
		return pyo3.StatusError
	}
	if _, ok := d.index[hk]; ok {
		return 1
	}
	return 0
}

// DictGet implements pyo3.Runtime. An absent (or unhashable) key returns 0
// without setting error state.
func (vm *VM) DictGet(dict, key pyo3.Addr) pyo3.Addr {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	d := vm.dictOf(dict)
	hk, ok := vm.hashOf(key)
	if !ok {
		return 0
	}
	i, ok := d.index[hk]
	if !ok {
		return 0
	}
	value := d.order[i].value
	vm.incref(value)
	return value
}

// DictSet implements pyo3.Runtime. Replacing a value keeps the original key
// object; the mapping takes its own references to what it stores.
func (vm *VM) DictSet(dict, key, value pyo3.Addr) int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	d := vm.dictOf(dict)
	hk, ok := vm.hashOf(key)
	if !ok {
		vm.errState = "TypeError: unhashable type: 'dict'"
		return pyo3.StatusError
	}
	if i, ok := d.index[hk]; ok {
		old := d.order[i].value
		vm.incref(value)
		d.order[i].value = value
		vm.decref(old)
		return pyo3.StatusOK
	}
	vm.incref(key)
	vm.incref(value)
	d.index[hk] = len(d.order)
	d.order = append(d.order, dictSlot{hk: hk, key: key, value: value})
	return pyo3.StatusOK
}

// DictDel implements pyo3.Runtime.
func (vm *VM) DictDel(dict, key pyo3.Addr) int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	d := vm.dictOf(dict)
	hk, ok := vm.hashOf(key)
	if !ok {
		vm.errState = "TypeError: unhashable type: 'dict'"
		return pyo3.StatusError
	}
	i, ok := d.index[hk]
	if !ok {
		vm.errState = "KeyError: " + vm.repr(key)
		return pyo3.StatusError
	}
	slot := d.order[i]
	d.order = append(d.order[:i], d.order[i+1:]...)
	delete(d.index, hk)
	for j := i; j < len(d.order); j++ {
		d.index[d.order[j].hk] = j
	}
	vm.decref(slot.key)
	vm.decref(slot.value)
	return pyo3.StatusOK
}

// DictItems implements pyo3.Runtime.
func (vm *VM) DictItems(dict pyo3.Addr) []pyo3.Pair {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	d := vm.dictOf(dict)
	pairs := make([]pyo3.Pair, 0, len(d.order))
	for _, slot := range d.order {
		vm.incref(slot.key)
		vm.incref(slot.value)
		pairs = append(pairs, pyo3.Pair{Key: slot.key, Value: slot.value})
	}
	return pairs
}

// DictCopy implements pyo3.Runtime.
func (vm *VM) DictCopy(dict pyo3.Addr) pyo3.Addr {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	src := vm.dictOf(dict)
	dst := &dictPayload{index: make(map[hashKey]int, len(src.order))}
	for _, slot := range src.order {
		vm.incref(slot.key)
		vm.incref(slot.value)
		dst.index[slot.hk] = len(dst.order)
		dst.order = append(dst.order, slot)
	}
	return vm.alloc(entry{kind: kindDict, dict: dst, refcnt: 1, valid: true})
}

// DictClear implements pyo3.Runtime.
func (vm *VM) DictClear(dict pyo3.Addr) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	d := vm.dictOf(dict)
	slots := d.order
	d.order = nil
	d.index = map[hashKey]int{}
	for _, slot := range slots {
		vm.decref(slot.key)
		vm.decref(slot.value)
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

// repr renders an object for error messages. Assumes vm.mu held.
func (vm *VM) repr(addr pyo3.Addr) string {
	e := vm.get(addr)
	switch e.kind {
	case kindBool:
		if e.ival != 0 {
			return "True"
		}
		return "False"
	case kindInt:
		return fmt.Sprintf("%d", e.ival)
	case kindStr:
		return fmt.Sprintf("%q", e.sval)
	default:
		return fmt.Sprintf("<%s at %d>", e.kind, addr)
	}
}

// Len reports the number of live entries, the immortal ones included.
func (vm *VM) Len() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	n := 0
	for i := range vm.entries {
		if vm.entries[i].valid {
			n++
		}
	}
	return n
}

// Each visits every live entry. Intended for inspection tooling; fn must not
// call back into the VM.
func (vm *VM) Each(fn func(addr pyo3.Addr, kind string, refcnt int64) bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	for i := range vm.entries {
		e := &vm.entries[i]
		if !e.valid {
			continue
		}
		if !fn(pyo3.Addr(i+1), e.kind.String(), e.refcnt) {
			return
		}
	}
}
