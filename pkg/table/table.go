// Package table implements the open-addressed hash table used for two
// purposes in the VM: string interning (keyed by string identity) and
// the globals environment (keyed by the same interned string handles).
// Both uses share this one implementation.
package table

import (
	"github.com/samber/lo"

	"github.com/kristofer/smogvm/pkg/object"
	"github.com/kristofer/smogvm/pkg/value"
)

// maxLoadFactor is the occupancy ceiling before the table grows.
const maxLoadFactor = 0.75

// minCapacity is the smallest capacity a non-empty table grows to.
const minCapacity = 8

// entry is one hash table slot. A nil Key with a Nil Value marks an
// empty (never-occupied) slot; a nil Key with Value Bool(true) marks a
// tombstone — a deleted entry kept around so linear probes started
// before the deletion still terminate correctly.
type entry struct {
	Key   *object.String
	Value value.Value
}

func (e *entry) isEmpty() bool     { return e.Key == nil && !e.isTombstone() }
func (e *entry) isTombstone() bool { return e.Key == nil && e.Value.IsBool() && e.Value.AsBool() }

// Table is an open-addressed hash set/map keyed by *object.String,
// probing linearly on collision.
type Table struct {
	count   int // occupied slots, including tombstones; drives growth
	entries []entry
}

// New returns an empty table. It allocates no backing storage until the
// first insertion, matching initVM's requirement that a fresh table be
// usable immediately but cheap to create.
func New() *Table {
	return &Table{}
}

// Count reports the number of live (non-tombstone) entries.
func (t *Table) Count() int {
	return lo.CountBy(t.entries, func(e entry) bool {
		return !e.isEmpty() && !e.isTombstone()
	})
}

// Get looks up key, returning its value and whether it was found.
func (t *Table) Get(key *object.String) (value.Value, bool) {
	if len(t.entries) == 0 {
		return value.Nil, false
	}
	e := t.find(key)
	if e.Key == nil {
		return value.Nil, false
	}
	return e.Value, true
}

// Set inserts or overwrites key's binding. It returns true when key was
// not previously present (a fresh insertion).
func (t *Table) Set(key *object.String, v value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoadFactor {
		t.grow()
	}
	e := t.find(key)
	isNewKey := e.Key == nil
	if isNewKey && e.isEmpty() {
		t.count++
	}
	e.Key = key
	e.Value = v
	return isNewKey
}

// Delete removes key's binding, if any, replacing the slot with a
// tombstone so later probes that skipped over it on insertion still
// find entries placed after it. Reports whether key was present.
func (t *Table) Delete(key *object.String) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.find(key)
	if e.Key == nil {
		return false
	}
	e.Key = nil
	e.Value = value.Bool(true)
	return true
}

// FindString is the intern-lookup variant: it compares candidate keys
// by hash and byte content rather than by handle identity, since the
// whole point of interning is to find the canonical String object for
// a byte sequence the caller doesn't yet have a handle for.
func (t *Table) FindString(chars string, hash uint32) *object.String {
	if len(t.entries) == 0 {
		return nil
	}
	cap := len(t.entries)
	idx := int(hash) % cap
	for {
		e := &t.entries[idx]
		if e.Key == nil {
			if e.isEmpty() {
				return nil
			}
			// tombstone: keep probing
		} else if e.Key.Hash == hash && e.Key.Chars == chars {
			return e.Key
		}
		idx = (idx + 1) % cap
	}
}

// find returns the entry where key is stored, or — if absent — the
// first empty-or-tombstone slot a fresh insertion should use. Standard
// linear-probing find with tombstone-aware early stop: the first
// tombstone encountered is remembered and returned only if the key is
// not found further along the probe sequence, so deletions don't break
// lookups for keys inserted after them.
func (t *Table) find(key *object.String) *entry {
	cap := len(t.entries)
	idx := int(key.Hash) % cap
	var tombstone *entry
	for {
		e := &t.entries[idx]
		if e.Key == nil {
			if e.isEmpty() {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if e.Key == key {
			return e
		}
		idx = (idx + 1) % cap
	}
}

// grow doubles (or establishes, from zero, minCapacity) the table's
// backing storage and rehashes every live entry into it. Tombstones are
// dropped during a rehash — they've served their purpose.
func (t *Table) grow() {
	newCap := minCapacity
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	old := t.entries
	t.entries = make([]entry, newCap)
	t.count = 0
	for i := range old {
		e := &old[i]
		if e.Key == nil {
			continue
		}
		dst := t.findInto(e.Key)
		dst.Key = e.Key
		dst.Value = e.Value
		t.count++
	}
}

// findInto is find's helper for rehashing into a table with no
// tombstones yet present; it never needs tombstone bookkeeping.
func (t *Table) findInto(key *object.String) *entry {
	cap := len(t.entries)
	idx := int(key.Hash) % cap
	for {
		e := &t.entries[idx]
		if e.Key == nil {
			return e
		}
		idx = (idx + 1) % cap
	}
}
