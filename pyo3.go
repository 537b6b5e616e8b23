package pyo3

// Addr is the raw address of one foreign object. Addr 0 is reserved and
// always invalid.
type Addr uintptr

// Pair is one (key, value) entry enumerated from a mapping object. Both
// addresses are new references owned by the caller.
type Pair struct {
	Key   Addr
	Value Addr
}

// Status values returned by fallible runtime calls. Any call returning
// StatusError (or a zero Addr where an address is expected) has set the
// runtime's pending error state; ErrorFetcher.FetchError must be consulted
// before the failure is safe to ignore.
const (
	StatusOK    = 0
	StatusError = -1
)

// RefCounter is the reference-counting slice of the runtime surface.
// These calls are safe without holding the runtime's exclusivity lock;
// everything else on Runtime requires it.
type RefCounter interface {
	// IncRef adds one reference to addr.
	IncRef(addr Addr)

	// DecRef removes one reference; at zero the runtime reclaims the object.
	DecRef(addr Addr)

	// RefCount reports the current reference count for addr.
	RefCount(addr Addr) int64
}

// ErrorFetcher exposes the runtime's pending error state.
type ErrorFetcher interface {
	// ErrOccurred reports whether a failure is pending.
	ErrOccurred() bool

	// FetchError returns a description of the pending failure and clears it.
	// Returns "" when no failure is pending.
	FetchError() string
}

// Runtime is the opaque foreign-call surface: the complete set of entry
// points the bridge needs from a foreign runtime. Implementations decide how
// objects are stored; the bridge only ever sees addresses.
//
// Except where a method's doc says otherwise, callers must hold the
// runtime's global exclusivity lock (see package gil) for every call.
type Runtime interface {
	RefCounter
	ErrorFetcher

	// KindOf names the kind of the object at addr ("bool", "int", "str",
	// "dict", ...). Used for diagnostics; type gates use the Is predicates.
	KindOf(addr Addr) string

	// Type-check predicates, one per kind the bridge narrows to.
	IsBool(addr Addr) bool
	IsInt(addr Addr) bool
	IsStr(addr Addr) bool
	IsDict(addr Addr) bool

	// True and False return the two boolean singletons as borrowed
	// references. The singletons are immortal: they outlive every lock
	// hold, so a borrowed reference to them is always valid.
	True() Addr
	False() Addr

	// Constructors return a new reference, or 0 on failure.
	NewInt(v int64) Addr
	NewStr(s string) Addr
	NewDict() Addr

	// Payload readers for the scalar kinds. Valid only when the matching
	// predicate is true.
	IntValue(addr Addr) int64
	StrValue(addr Addr) string

	// DictLen reports the number of entries in the mapping at dict.
	DictLen(dict Addr) int

	// DictContains reports key membership: 1 present, 0 absent,
	// StatusError on failure (e.g. an unhashable key).
	DictContains(dict, key Addr) int

	// DictGet returns a new reference to the value stored under key, or 0
	// if the key is absent. An absent key is not a failure and sets no
	// error state.
	DictGet(dict, key Addr) Addr

	// DictSet stores value under key, replacing any previous value.
	DictSet(dict, key, value Addr) int

	// DictDel removes key. Deleting an absent key is a failure.
	DictDel(dict, key Addr) int

	// DictItems snapshots the mapping's entries in its iteration order.
	// Every returned address is a new reference owned by the caller.
	DictItems(dict Addr) []Pair

	// DictCopy returns a new mapping with the same entries, or 0 on
	// failure.
	DictCopy(dict Addr) Addr

	// DictClear removes every entry.
	DictClear(dict Addr)
}
