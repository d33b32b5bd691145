package identity

import (
	"sort"
	"strconv"
)

// IDSet is a read-only snapshot of canonical ids known to a run
type IDSet map[string]struct{}

// NewIDSet builds a set from plain keys, skipping blanks
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// Add inserts a canonical id. Placeholders and zero ids are ignored.
func (s IDSet) Add(id ID) {
	if id.IsZero() || id.IsPlaceholder() {
		return
	}
	s[id.String()] = struct{}{}
}

// Contains reports membership
func (s IDSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of ids
func (s IDSet) Len() int { return len(s) }

// Union returns a new set holding the ids of both
func (s IDSet) Union(other IDSet) IDSet {
	out := make(IDSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the ids in ascending order
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Sample returns up to n ids in ascending order, for logging
func (s IDSet) Sample(n int) []string {
	ids := s.Sorted()
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// Remap resolves a source's raw numeric item id to the canonical product id.
// Every canonical id also maps to itself.
type Remap map[string]string

// Record registers a product's canonical id and, when known, its raw numeric id.
// An existing raw mapping is overwritten; a canonical self-mapping is kept.
func (m Remap) Record(canonical string, sourceID *int64) {
	if canonical == "" {
		return
	}
	if sourceID != nil {
		m[strconv.FormatInt(*sourceID, 10)] = canonical
	}
	if _, ok := m[canonical]; !ok {
		m[canonical] = canonical
	}
}

// Lookup returns the canonical id for a raw key
func (m Remap) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Merge returns a new remap with other's entries layered over m
func (m Remap) Merge(other Remap) Remap {
	out := make(Remap, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
