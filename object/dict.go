package object

import (
	"github.com/epilys/pyo3"
	"github.com/epilys/pyo3/gil"
	"github.com/epilys/pyo3/pyerr"
)

// Dict is a typed view of a mapping object.
type Dict struct {
	obj *Object
}

// Item is one (key, value) pair enumerated from a Dict. Both objects are
// owned by the caller and must be dropped.
type Item struct {
	Key   *Object
	Value *Object
}

// NewDict creates a new empty mapping.
func NewDict(py *gil.Token) (Dict, error) {
	addr := py.Runtime().NewDict()
	if addr == 0 {
		return Dict{}, pyerr.Fetch(py)
	}
	return Dict{obj: FromOwned(py, addr)}, nil
}

// AsDict narrows obj to a mapping view.
func AsDict(py *gil.Token, obj *Object) (Dict, error) {
	if err := downcast(py, obj, DictKind); err != nil {
		return Dict{}, err
	}
	return Dict{obj: obj}, nil
}

// Len reports the number of entries.
func (d Dict) Len(py *gil.Token) int {
	return py.Runtime().DictLen(d.obj.Addr())
}

// Contains reports whether key is present.
func (d Dict) Contains(py *gil.Token, key *Object) (bool, error) {
	switch py.Runtime().DictContains(d.obj.Addr(), key.Addr()) {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, pyerr.Fetch(py)
	}
}

// GetItem returns the value stored under key. An absent key is reported as
// ok == false, not as an error.
func (d Dict) GetItem(py *gil.Token, key *Object) (*Object, bool) {
	addr := py.Runtime().DictGet(d.obj.Addr(), key.Addr())
	if addr == 0 {
		return nil, false
	}
	return FromOwned(py, addr), true
}

// SetItem stores value under key, replacing any previous value. The dict
// takes its own references; key and value remain owned by the caller.
func (d Dict) SetItem(py *gil.Token, key, value *Object) error {
	if py.Runtime().DictSet(d.obj.Addr(), key.Addr(), value.Addr()) != pyo3.StatusOK {
		return pyerr.Fetch(py)
	}
	return nil
}

// DelItem removes key. Deleting an absent key is a foreign failure.
func (d Dict) DelItem(py *gil.Token, key *Object) error {
	if py.Runtime().DictDel(d.obj.Addr(), key.Addr()) != pyo3.StatusOK {
		return pyerr.Fetch(py)
	}
	return nil
}

// Items snapshots the entries in the mapping's iteration order. A snapshot
// rather than an iterator: walking the live mapping would be unsound if
// foreign code mutated it mid-walk.
func (d Dict) Items(py *gil.Token) []Item {
	pairs := py.Runtime().DictItems(d.obj.Addr())
	items := make([]Item, 0, len(pairs))
	for _, p := range pairs {
		items = append(items, Item{
			Key:   FromOwned(py, p.Key),
			Value: FromOwned(py, p.Value),
		})
	}
	return items
}

// Copy returns a new mapping with the same entries.
func (d Dict) Copy(py *gil.Token) (Dict, error) {
	addr := py.Runtime().DictCopy(d.obj.Addr())
	if addr == 0 {
		return Dict{}, pyerr.Fetch(py)
	}
	return Dict{obj: FromOwned(py, addr)}, nil
}

// Clear removes every entry.
func (d Dict) Clear(py *gil.Token) {
	py.Runtime().DictClear(d.obj.Addr())
}

// Object returns the wrapped Object.
func (d Dict) Object() *Object {
	return d.obj
}
