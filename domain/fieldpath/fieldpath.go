// Package fieldpath provides parsed dot-delimited field locators used to
// address values inside JSON-like structures.
package fieldpath

import "strings"

// Wildcard is the reserved segment meaning "every element of the array here".
const Wildcard = "$"

// Path is an immutable sequence of field segments. The zero value addresses
// the root.
type Path struct {
	segments []string
}

// Parse splits a dot-delimited locator into a Path. The empty string and a
// lone "." both address the root, never a key literally named "" or ".".
func Parse(s string) Path {
	if s == "" || s == "." {
		return Path{}
	}
	return Path{segments: strings.Split(s, ".")}
}

// FromSegments builds a Path from already-split segments.
func FromSegments(segments []string) Path {
	if len(segments) == 0 {
		return Path{}
	}
	copied := make([]string, len(segments))
	copy(copied, segments)
	return Path{segments: copied}
}

// IsRoot reports whether the path addresses the root value.
func (p Path) IsRoot() bool {
	return len(p.segments) == 0
}

// Len returns the number of segments.
func (p Path) Len() int {
	return len(p.segments)
}

// Segment returns the i-th segment.
func (p Path) Segment(i int) string {
	return p.segments[i]
}

// Segments returns a copy of the segment list.
func (p Path) Segments() []string {
	if len(p.segments) == 0 {
		return nil
	}
	copied := make([]string, len(p.segments))
	copy(copied, p.segments)
	return copied
}

// Suffix returns the path formed by dropping the first n segments.
func (p Path) Suffix(n int) Path {
	if n >= len(p.segments) {
		return Path{}
	}
	return Path{segments: p.segments[n:]}
}

// String renders the path back to its dot-delimited form. The root renders
// as ".".
func (p Path) String() string {
	if len(p.segments) == 0 {
		return "."
	}
	return strings.Join(p.segments, ".")
}

// CommonPrefixLen returns the number of leading segments shared by a and b.
// Used by the move/copy engine to descend shared ancestors only once.
func CommonPrefixLen(a, b Path) int {
	n := len(a.segments)
	if len(b.segments) < n {
		n = len(b.segments)
	}
	for i := 0; i < n; i++ {
		if a.segments[i] != b.segments[i] {
			return i
		}
	}
	return n
}
