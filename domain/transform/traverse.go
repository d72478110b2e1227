package transform

import (
	"github.com/artpar/reshape/domain/fieldpath"
)

// leaf is applied at every terminal location a path resolves to. present
// reports whether the location currently holds a value; keep reports whether
// it should hold the returned value afterwards (false deletes it).
type leaf func(v any, present bool) (out any, keep bool, err error)

// applyAt resolves path against root and applies fn at each terminal
// location, broadcasting across wildcard array segments. The returned value
// is the authoritative root; callers must not rely on in-place mutation.
//
// Traversal is best-effort: a segment that resolves to a primitive or to a
// missing intermediate silently leaves that branch unchanged. That policy is
// load-bearing for callers bridging heterogeneous payloads and must not be
// tightened.
func applyAt(root any, path fieldpath.Path, fn leaf) (any, error) {
	return applySegments(root, path.Segments(), fn)
}

func applySegments(node any, segs []string, fn leaf) (any, error) {
	if len(segs) == 0 {
		// The root itself is the field.
		out, keep, err := fn(node, true)
		if err != nil {
			return node, err
		}
		if !keep {
			return nil, nil
		}
		return out, nil
	}

	seg := segs[0]

	if seg == fieldpath.Wildcard {
		arr, ok := node.([]any)
		if !ok {
			return node, nil
		}
		for i, elem := range arr {
			transformed, err := applySegments(elem, segs[1:], fn)
			if err != nil {
				return node, err
			}
			arr[i] = transformed
		}
		return arr, nil
	}

	obj, ok := node.(map[string]any)
	if !ok {
		return node, nil
	}

	if len(segs) == 1 {
		v, present := obj[seg]
		out, keep, err := fn(v, present)
		if err != nil {
			return obj, err
		}
		if keep {
			obj[seg] = out
		} else {
			delete(obj, seg)
		}
		return obj, nil
	}

	child, present := obj[seg]
	if !present {
		return obj, nil
	}
	switch child.(type) {
	case map[string]any, []any:
		transformed, err := applySegments(child, segs[1:], fn)
		if err != nil {
			return obj, err
		}
		obj[seg] = transformed
		return obj, nil
	default:
		// Primitive blocks further descent.
		return obj, nil
	}
}
