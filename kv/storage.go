package kv

import (
	"iter"

	"github.com/indigo-web/utils/strcomp"
)

// Entry holds all the values of a single key in order of their insertion.
type Entry struct {
	Key    string
	Values []string
}

// Storage is an ordered multimap of (string, string) pairs. Values of the same key are grouped
// into a single Entry, entries are kept in order of their first insertion. It uses linear search
// instead of hashing, which proves to be more efficient on relatively low amount of entries,
// which often enough is the case.
//
// In case-insensitive mode keys are folded for lookups, additions and removals, however the
// displayed key of an entry is always the casing of its first insertion.
type Storage struct {
	entries     []Entry
	keysBuff    []string
	count       int
	insensitive bool
}

func New() *Storage {
	return new(Storage)
}

// NewInsensitive returns a storage with case-insensitive keys. This is what HTTP headers need.
func NewInsensitive() *Storage {
	return New().Insensitive()
}

// NewPrealloc returns an instance of Storage with pre-allocated space for n entries.
func NewPrealloc(n int) *Storage {
	return &Storage{
		entries: make([]Entry, 0, n),
	}
}

// NewFromMap returns a new instance with already inserted values from given map.
// Note: as maps are unordered, resulting entries will also be unordered.
func NewFromMap(m map[string][]string) *Storage {
	kv := NewPrealloc(len(m))

	for key, values := range m {
		for _, value := range values {
			kv.Add(key, value)
		}
	}

	return kv
}

// Insensitive switches the storage into case-insensitive mode. Must be called on an
// empty storage.
func (s *Storage) Insensitive() *Storage {
	s.insensitive = true
	return s
}

// Add appends the value to the key's entry, creating the entry if the key is new.
func (s *Storage) Add(key, value string) *Storage {
	s.count++

	if i := s.index(key); i != -1 {
		s.entries[i].Values = append(s.entries[i].Values, value)
		return s
	}

	if len(s.entries) < cap(s.entries) {
		// re-use the values slice left from previous usages
		s.entries = s.entries[:len(s.entries)+1]
		entry := &s.entries[len(s.entries)-1]
		entry.Key = key
		entry.Values = append(entry.Values[:0], value)
		return s
	}

	s.entries = append(s.entries, Entry{
		Key:    key,
		Values: []string{value},
	})

	return s
}

// Set replaces all values of the key by the single one. The entry keeps its position.
func (s *Storage) Set(key, value string) *Storage {
	i := s.index(key)
	if i == -1 {
		return s.Add(key, value)
	}

	entry := &s.entries[i]
	s.count -= len(entry.Values) - 1
	entry.Values = append(entry.Values[:0], value)

	return s
}

// Value returns the first value, corresponding to the key. Otherwise, empty string is returned
func (s *Storage) Value(key string) string {
	return s.ValueOr(key, "")
}

// ValueOr returns either the first value corresponding to the key or custom value, defined
// via the second parameter.
func (s *Storage) ValueOr(key, or string) string {
	value, found := s.Get(key)
	if !found {
		return or
	}

	return value
}

// Get returns the first value recorded for the key and a bool, indicating whether the
// key was found.
func (s *Storage) Get(key string) (value string, found bool) {
	i := s.index(key)
	if i == -1 || len(s.entries[i].Values) == 0 {
		return "", false
	}

	return s.entries[i].Values[0], true
}

// Entry returns the whole entry of the key or nil. The pointer stays valid until the next
// modification of the storage.
func (s *Storage) Entry(key string) *Entry {
	i := s.index(key)
	if i == -1 {
		return nil
	}

	return &s.entries[i]
}

// Values returns all values by the key. Returns nil if key doesn't exist. The returned slice
// must not be modified.
func (s *Storage) Values(key string) []string {
	if entry := s.Entry(key); entry != nil {
		return entry.Values
	}

	return nil
}

// Has indicates, whether there's an entry of the key.
func (s *Storage) Has(key string) bool {
	return s.index(key) != -1
}

// Remove deletes the entire entry of the key, all of its values included.
func (s *Storage) Remove(key string) *Storage {
	i := s.index(key)
	if i == -1 {
		return s
	}

	s.count -= len(s.entries[i].Values)
	removed := s.entries[i]
	copy(s.entries[i:], s.entries[i+1:])
	// park the removed entry behind the length so its values slice may be reused
	s.entries[len(s.entries)-1] = removed
	s.entries = s.entries[:len(s.entries)-1]

	return s
}

// Keys returns the displayed keys of all entries in their order.
//
// WARNING: calling it twice will override values, returned by the first call. Consider
// copying the returned slice for safe use.
func (s *Storage) Keys() []string {
	s.keysBuff = s.keysBuff[:0]
	for _, entry := range s.entries {
		s.keysBuff = append(s.keysBuff, entry.Key)
	}

	return s.keysBuff
}

// Iter iterates over all the pairs, grouped by entries in order of their insertion.
func (s *Storage) Iter() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, entry := range s.entries {
			for _, value := range entry.Values {
				if !yield(entry.Key, value) {
					return
				}
			}
		}
	}
}

// Expose exposes the underlying entries slice.
func (s *Storage) Expose() []Entry {
	return s.entries
}

// Count returns the total number of values across all entries.
func (s *Storage) Count() int {
	return s.count
}

// Len returns the number of distinct entries.
func (s *Storage) Len() int {
	return len(s.entries)
}

func (s *Storage) Empty() bool {
	return s.count == 0
}

// Clone creates a deep copy, which may be used later or stored somewhere safely. However,
// it comes at cost of multiple allocations.
func (s *Storage) Clone() *Storage {
	clone := &Storage{
		entries:     make([]Entry, len(s.entries)),
		count:       s.count,
		insensitive: s.insensitive,
	}

	for i, entry := range s.entries {
		clone.entries[i] = Entry{
			Key:    entry.Key,
			Values: append([]string(nil), entry.Values...),
		}
	}

	return clone
}

// Clear all the entries. However, all the allocated space won't be freed.
func (s *Storage) Clear() *Storage {
	s.entries = s.entries[:0]
	s.count = 0
	return s
}

func (s *Storage) index(key string) int {
	for i, entry := range s.entries {
		if s.equal(entry.Key, key) {
			return i
		}
	}

	return -1
}

func (s *Storage) equal(a, b string) bool {
	if s.insensitive {
		return strcomp.EqualFold(a, b)
	}

	return a == b
}
