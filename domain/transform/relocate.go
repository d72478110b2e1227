package transform

import (
	"github.com/brunoga/deep"
	"github.com/rs/zerolog"

	"github.com/artpar/reshape/domain/fieldpath"
)

// Relocate moves or copies the subtree at from to the destination path and
// returns the authoritative root. keepSource preserves the source subtree
// (copy semantics, deep-cloned); otherwise the source is deleted (move).
//
// Both directions share one algorithm: the longest common leading prefix of
// from and to is descended once, the source is extracted relative to that
// cursor, then the destination is built relative to the same cursor. If the
// source does not resolve the root is returned unchanged; no partial
// mutation is committed. Missing destination intermediates are created as
// objects; an existing non-object intermediate is overwritten with a fresh
// object, which logs a warning.
func Relocate(root any, from, to fieldpath.Path, keepSource bool, logger zerolog.Logger) any {
	// Keep one trailing segment on each side so the source parent stays
	// reachable for deletion and the destination assignment has a key.
	prefix := fieldpath.CommonPrefixLen(from, to)
	if from.Len() > 0 && prefix > from.Len()-1 {
		prefix = from.Len() - 1
	}
	if to.Len() > 0 && prefix > to.Len()-1 {
		prefix = to.Len() - 1
	}

	cursor := root
	for i := 0; i < prefix; i++ {
		obj, ok := cursor.(map[string]any)
		if !ok {
			return root
		}
		next, ok := obj[from.Segment(i)]
		if !ok {
			return root
		}
		cursor = next
	}

	src, ok := extractSource(cursor, from, prefix, keepSource)
	if !ok {
		return root
	}

	if to.IsRoot() {
		return src
	}

	obj, ok := cursor.(map[string]any)
	if !ok {
		return root
	}
	for i := prefix; i < to.Len()-1; i++ {
		seg := to.Segment(i)
		child, exists := obj[seg]
		if m, isObj := child.(map[string]any); isObj {
			obj = m
			continue
		}
		if exists {
			logger.Warn().
				Str("path", to.String()).
				Str("segment", seg).
				Msg("overwriting non-object destination intermediate")
		}
		fresh := make(map[string]any)
		obj[seg] = fresh
		obj = fresh
	}
	obj[to.Segment(to.Len()-1)] = src
	return root
}

// extractSource locates the value at the remaining from segments under
// cursor, cloning it for copy semantics or detaching it for move semantics.
func extractSource(cursor any, from fieldpath.Path, prefix int, keepSource bool) (any, bool) {
	if from.IsRoot() {
		// The whole root is the source. Clone regardless of semantics so a
		// non-root destination cannot nest the root inside itself.
		return deepClone(cursor), true
	}

	for i := prefix; i < from.Len()-1; i++ {
		obj, ok := cursor.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := obj[from.Segment(i)]
		if !ok {
			return nil, false
		}
		cursor = next
	}

	parent, ok := cursor.(map[string]any)
	if !ok {
		return nil, false
	}
	last := from.Segment(from.Len() - 1)
	v, ok := parent[last]
	if !ok {
		return nil, false
	}
	if keepSource {
		return deepClone(v), true
	}
	delete(parent, last)
	return v, true
}

func deepClone(v any) any {
	if v == nil {
		return nil
	}
	return deep.MustCopy(v)
}
