package gil

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/epilys/pyo3"
)

// Token is proof that the calling goroutine holds a runtime's global
// exclusivity lock. Every heap-touching operation in this module takes a
// *Token; code without one in scope has no path to the foreign heap.
//
// A Token must stay on the goroutine that acquired it.
type Token struct {
	rt       pyo3.Runtime
	state    *lockState
	released bool
}

// lockState is the per-runtime recursive lock. owner is the goroutine id of
// the current holder (0 when free); depth is only touched by the holder.
type lockState struct {
	mu    sync.Mutex
	owner atomic.Int64
	depth int
}

var (
	statesMu sync.Mutex
	states   = map[pyo3.Runtime]*lockState{}
)

func stateFor(rt pyo3.Runtime) *lockState {
	statesMu.Lock()
	defer statesMu.Unlock()
	s, ok := states[rt]
	if !ok {
		s = &lockState{}
		states[rt] = s
	}
	return s
}

// Acquire blocks until the calling goroutine holds rt's global lock and
// returns a token scoped to the caller. Acquisition never fails; it only
// waits. Re-acquiring on a goroutine that already holds the lock nests
// instead of deadlocking.
//
// Every Acquire must be paired with exactly one Release; prefer With, which
// guarantees the pairing on all exit paths.
func Acquire(rt pyo3.Runtime) *Token {
	if rt == nil {
		panic("gil: Acquire with nil runtime")
	}
	s := stateFor(rt)
	gid := goroutineID()
	if s.owner.Load() == gid {
		s.depth++
	} else {
		s.mu.Lock()
		s.owner.Store(gid)
		s.depth = 1
	}
	return &Token{rt: rt, state: s}
}

// Release gives up one nesting level; the lock itself is freed when the
// outermost token is released. Releasing twice, or from a goroutine other
// than the acquirer, is a contract violation and panics.
func (t *Token) Release() {
	if t.released {
		panic("gil: token released twice")
	}
	t.released = true
	s := t.state
	if s.owner.Load() != goroutineID() {
		panic("gil: release from non-owning goroutine")
	}
	s.depth--
	if s.depth == 0 {
		s.owner.Store(0)
		s.mu.Unlock()
	}
}

// Runtime returns the runtime this token locks.
func (t *Token) Runtime() pyo3.Runtime {
	return t.rt
}

// With acquires rt's lock, runs fn, and releases on every exit path,
// including a panic inside fn.
func With(rt pyo3.Runtime, fn func(py *Token) error) error {
	py := Acquire(rt)
	defer py.Release()
	return fn(py)
}

// goroutineID extracts the numeric id from the current goroutine's stack
// header ("goroutine N [...]"). Ids are never 0 and never reused while the
// goroutine lives, which is all the recursion check needs.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	header := buf[:n]
	header = bytes.TrimPrefix(header, []byte("goroutine "))
	if i := bytes.IndexByte(header, ' '); i >= 0 {
		header = header[:i]
	}
	id, err := strconv.ParseInt(string(header), 10, 64)
	if err != nil {
		panic("gil: cannot parse goroutine id: " + err.Error())
	}
	return id
}
