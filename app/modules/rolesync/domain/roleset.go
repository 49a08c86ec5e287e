package rolesyncdomain

import "sort"

// RoleSet is a set of role ids. Empty ids are never stored.
type RoleSet map[RoleID]struct{}

// NewRoleSet builds a set from ids, skipping empty ones.
func NewRoleSet(ids ...RoleID) RoleSet {
	s := make(RoleSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s RoleSet) Add(id RoleID) {
	if id != "" {
		s[id] = struct{}{}
	}
}

func (s RoleSet) Remove(id RoleID) {
	delete(s, id)
}

func (s RoleSet) Has(id RoleID) bool {
	_, ok := s[id]
	return ok
}

func (s RoleSet) Len() int {
	return len(s)
}

// Clone returns an independent copy.
func (s RoleSet) Clone() RoleSet {
	out := make(RoleSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Minus returns the ids of s that are not in other.
func (s RoleSet) Minus(other RoleSet) RoleSet {
	out := make(RoleSet)
	for id := range s {
		if !other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Intersect returns the ids present in both sets.
func (s RoleSet) Intersect(other RoleSet) RoleSet {
	out := make(RoleSet)
	for id := range s {
		if other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Equal reports whether both sets hold the same ids.
func (s RoleSet) Equal(other RoleSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Sorted returns the ids in ascending order.
func (s RoleSet) Sorted() []RoleID {
	out := make([]RoleID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RoleDecision is the outcome of resolving a member's managed roles.
// Include and Exclude are disjoint subsets of Targeted.
type RoleDecision struct {
	Include  RoleSet
	Exclude  RoleSet
	Targeted RoleSet
}

// Restrict drops every role not in allowed from all three sets.
func (d RoleDecision) Restrict(allowed RoleSet) RoleDecision {
	return RoleDecision{
		Include:  d.Include.Intersect(allowed),
		Exclude:  d.Exclude.Intersect(allowed),
		Targeted: d.Targeted.Intersect(allowed),
	}
}

// Apply computes current ∪ Include − Exclude.
func (d RoleDecision) Apply(current RoleSet) RoleSet {
	out := current.Clone()
	for id := range d.Include {
		out.Add(id)
	}
	for id := range d.Exclude {
		out.Remove(id)
	}
	return out
}
