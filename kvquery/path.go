package kvquery

import "strings"

// Path is a dotted path ("value.title") compiled once into its segments
// so repeated resolution against many records during a scan or an
// $orderBy sort doesn't re-split the string per record. The idea is
// borrowed from cue.Path's precompiled Selector list (cuelang.org/go is
// not imported — see DESIGN.md).
type Path struct {
	raw      string
	segments []string
}

// ParsePath compiles a dotted path string.
func ParsePath(s string) Path {
	return Path{raw: s, segments: strings.Split(s, ".")}
}

// String returns the original dotted path.
func (p Path) String() string { return p.raw }

// Resolve walks record one segment at a time. If any intermediate value
// is missing or non-traversable, it returns (Absent, false). Comparisons
// against Absent are always false (enforced by CompareValues/Equal in
// the predicate and sort paths that consume Resolve).
func (p Path) Resolve(record Record) (Value, bool) {
	var cur Value = record
	for _, seg := range p.segments {
		m, ok := cur.(Record)
		if !ok {
			return Absent, false
		}
		v, present := m[seg]
		if !present {
			return Absent, false
		}
		cur = v
	}
	return cur, true
}
