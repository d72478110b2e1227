package transform

// Func is a user-supplied pure transform applied by the func operation.
type Func func(any) any

func setLeaf(x any) leaf {
	return func(any, bool) (any, bool, error) {
		return x, true, nil
	}
}

func unsetLeaf() leaf {
	return func(any, bool) (any, bool, error) {
		return nil, false, nil
	}
}

func castLeaf(kind Kind) leaf {
	return func(v any, present bool) (any, bool, error) {
		if !present {
			// Casting a missing value is a no-op.
			return v, false, nil
		}
		out, err := Cast(v, kind)
		if err != nil {
			return v, true, err
		}
		return out, true, nil
	}
}

// mapLeaf substitutes a value through a lookup table. The "" entry is the
// default for values absent from the table; without one the value stays
// unchanged.
func mapLeaf(table map[string]any) leaf {
	return func(v any, present bool) (any, bool, error) {
		if present {
			if mapped, ok := table[stringKey(v)]; ok {
				return mapped, true, nil
			}
		}
		if def, ok := table[""]; ok {
			return def, true, nil
		}
		return v, present, nil
	}
}

// wrapSpec describes a wrap target: a single-key object or a 1-element array.
type wrapSpec struct {
	key    string
	asList bool
}

func wrapLeaf(w wrapSpec) leaf {
	return func(v any, _ bool) (any, bool, error) {
		// Wrap applies to any value, a missing one included.
		if w.asList {
			return []any{v}, true, nil
		}
		return map[string]any{w.key: v}, true, nil
	}
}

func funcLeaf(fn Func) leaf {
	return func(v any, _ bool) (any, bool, error) {
		return fn(v), true, nil
	}
}
