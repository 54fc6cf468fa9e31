package domain

import "sort"

// IDSet is an unordered set of user ids.
type IDSet map[string]struct{}

// NewIDSet always returns an owned, non-nil set. Empty ids are dropped.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s IDSet) Add(id string) { s[id] = struct{}{} }

func (s IDSet) Remove(id string) { delete(s, id) }

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int { return len(s) }

// Clone copies the set. A nil receiver yields an empty set.
func (s IDSet) Clone() IDSet {
	c := make(IDSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Equal reports whether both sets hold the same ids.
func (s IDSet) Equal(o IDSet) bool {
	if len(s) != len(o) {
		return false
	}
	for id := range s {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

// Minus returns the ids in s that are not in o.
func (s IDSet) Minus(o IDSet) IDSet {
	out := NewIDSet()
	for id := range s {
		if !o.Has(id) {
			out.Add(id)
		}
	}
	return out
}

// Sorted returns the ids in lexical order, which keeps wire output and write
// order deterministic.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
