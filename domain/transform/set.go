// Package transform implements a declarative, path-addressed transformation
// engine for JSON-like values. An ordered operation set reshapes a decoded
// payload through set/unset/move/copy/cast/map/wrap steps, user functions,
// and named procedure invocations resolved against a shared registry.
//
// Sets are reusable: Process never mutates the set itself. The record list
// is expected to be mutated only during setup; concurrent Add or Remove
// racing a Process call is not supported.
package transform

import (
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/artpar/reshape/domain/fieldpath"
)

// maxProcedureDepth bounds nested procedure invocation. The registry is
// acyclic by convention; the bound turns an accidental cycle into an
// OperationError instead of a stack overflow.
const maxProcedureDepth = 64

// Set is an ordered, taggable sequence of operation records with a Process
// entry point. Records are validated against the operation vocabulary on
// construction and on every mutation; payload shapes are checked lazily
// during Process.
type Set struct {
	records  []Record
	registry *Registry
	logger   zerolog.Logger
}

// New builds a Set from a single record or an ordered list of records. The
// registry is held by reference and may be nil when no record invokes a
// procedure.
func New(registry *Registry, spec any) (*Set, error) {
	records, err := normalizeRecords(spec)
	if err != nil {
		return nil, err
	}
	var verr error
	for _, r := range records {
		verr = multierr.Append(verr, validateRecord(r))
	}
	if verr != nil {
		return nil, verr
	}
	return &Set{
		records:  records,
		registry: registry,
		logger:   zerolog.Nop(),
	}, nil
}

// WithLogger sets the logger used for traversal diagnostics and returns the
// set for chaining.
func (s *Set) WithLogger(logger zerolog.Logger) *Set {
	s.logger = logger
	return s
}

// Len returns the number of records.
func (s *Set) Len() int {
	return len(s.records)
}

// Get returns the i-th record.
func (s *Set) Get(i int) (Record, bool) {
	if i < 0 || i >= len(s.records) {
		return nil, false
	}
	return s.records[i], true
}

// IndexByTag returns the index of the last record carrying the given tag,
// or -1. Last-match lookup is long-standing behavior that callers with
// duplicate tags rely on.
func (s *Set) IndexByTag(tag string) int {
	for i := len(s.records) - 1; i >= 0; i-- {
		if t, ok := s.records[i].Tag(); ok && t == tag {
			return i
		}
	}
	return -1
}

// Position controls where Add inserts new records. When several fields are
// given, precedence is At, then After, then Before; none appends.
type Position struct {
	At     *int
	After  string
	Before string
}

// At returns a Position inserting at a literal index.
func At(i int) Position {
	return Position{At: &i}
}

// After returns a Position inserting after the record with the given tag.
func After(tag string) Position {
	return Position{After: tag}
}

// Before returns a Position inserting before the record with the given tag.
func Before(tag string) Position {
	return Position{Before: tag}
}

// Add validates and inserts new records at the given position. A tag that
// resolves to no record and an out-of-range index are format errors; the
// set is left unchanged on any error.
func (s *Set) Add(spec any, pos Position) error {
	records, err := normalizeRecords(spec)
	if err != nil {
		return err
	}
	var verr error
	for _, r := range records {
		verr = multierr.Append(verr, validateRecord(r))
	}
	if verr != nil {
		return verr
	}

	idx := len(s.records)
	switch {
	case pos.At != nil:
		idx = *pos.At
		if idx < 0 || idx > len(s.records) {
			return formatErrorf(pos, "insertion index %d out of range [0,%d]", idx, len(s.records))
		}
	case pos.After != "":
		i := s.IndexByTag(pos.After)
		if i < 0 {
			return formatErrorf(pos, "no record tagged %q", pos.After)
		}
		idx = i + 1
	case pos.Before != "":
		i := s.IndexByTag(pos.Before)
		if i < 0 {
			return formatErrorf(pos, "no record tagged %q", pos.Before)
		}
		idx = i
	}

	s.records = append(s.records[:idx], append(append([]Record{}, records...), s.records[idx:]...)...)
	return nil
}

// Remove deletes a record addressed by index (int) or tag (string, last
// match wins) and returns it. A miss returns false rather than an error.
func (s *Set) Remove(ref any) (Record, bool) {
	idx := -1
	switch r := ref.(type) {
	case int:
		idx = r
	case string:
		idx = s.IndexByTag(r)
	}
	if idx < 0 || idx >= len(s.records) {
		return nil, false
	}
	removed := s.records[idx]
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	return removed, true
}

// Process applies every record, in declaration order, to v and returns the
// resulting value. A record carrying several operation keys applies them in
// the fixed vocabulary order. The first payload-shape or procedure error
// aborts the call; steps that already ran are not rolled back.
func (s *Set) Process(v any) (any, error) {
	return s.process(v, 0)
}

func (s *Set) process(v any, depth int) (any, error) {
	if depth > maxProcedureDepth {
		return v, opErrorf(OpProcedure, nil, "procedure recursion exceeds depth %d", maxProcedureDepth)
	}
	for _, rec := range s.records {
		for _, op := range applyOrder {
			payload, ok := rec[op]
			if !ok {
				continue
			}
			var err error
			v, err = s.applyStep(op, payload, v, depth)
			if err != nil {
				return v, err
			}
		}
	}
	return v, nil
}

func (s *Set) applyStep(op string, payload, v any, depth int) (any, error) {
	switch op {
	case OpSet:
		return s.applySet(payload, v)
	case OpUnset:
		return s.applyUnset(payload, v)
	case OpMove, OpCopy:
		return s.applyRelocate(op, payload, v)
	case OpCast:
		return s.applyCast(payload, v)
	case OpMap:
		return s.applyMap(payload, v)
	case OpWrap:
		return s.applyWrap(payload, v)
	case OpFunc:
		return s.applyFunc(payload, v)
	case OpProcedure, OpModel:
		return s.applyProcedure(op, payload, v, depth)
	}
	return v, nil
}

func (s *Set) applySet(payload, v any) (any, error) {
	assignments, ok := payload.(map[string]any)
	if !ok {
		return v, opErrorf(OpSet, payload, "payload must map paths to values, got %T", payload)
	}
	for _, path := range sortedKeys(assignments) {
		var err error
		v, err = applyAt(v, fieldpath.Parse(path), setLeaf(assignments[path]))
		if err != nil {
			return v, err
		}
	}
	return v, nil
}

func (s *Set) applyUnset(payload, v any) (any, error) {
	var paths []string
	switch p := payload.(type) {
	case string:
		paths = []string{p}
	case []string:
		paths = p
	case []any:
		for _, elem := range p {
			path, ok := elem.(string)
			if !ok {
				return v, opErrorf(OpUnset, payload, "path must be a string, got %T", elem)
			}
			paths = append(paths, path)
		}
	default:
		return v, opErrorf(OpUnset, payload, "payload must be a path or list of paths, got %T", payload)
	}
	for _, path := range paths {
		var err error
		v, err = applyAt(v, fieldpath.Parse(path), unsetLeaf())
		if err != nil {
			return v, err
		}
	}
	return v, nil
}

func (s *Set) applyRelocate(op string, payload, v any) (any, error) {
	moves, ok := payload.(map[string]any)
	if !ok {
		return v, opErrorf(op, payload, "payload must map source paths to destination paths, got %T", payload)
	}
	for _, from := range sortedKeys(moves) {
		to, ok := moves[from].(string)
		if !ok {
			return v, opErrorf(op, payload, "destination for %q must be a path string, got %T", from, moves[from])
		}
		v = Relocate(v, fieldpath.Parse(from), fieldpath.Parse(to), op == OpCopy, s.logger)
	}
	return v, nil
}

func (s *Set) applyCast(payload, v any) (any, error) {
	casts, ok := payload.(map[string]any)
	if !ok {
		return v, opErrorf(OpCast, payload, "payload must map paths to primitive type names, got %T", payload)
	}
	for _, path := range sortedKeys(casts) {
		name, ok := casts[path].(string)
		if !ok {
			return v, opErrorf(OpCast, payload, "type for %q must be a string, got %T", path, casts[path])
		}
		kind := Kind(name)
		switch kind {
		case KindNumber, KindString, KindBoolean:
		default:
			return v, opErrorf(OpCast, payload, "unknown primitive type %q for %q", name, path)
		}
		var err error
		v, err = applyAt(v, fieldpath.Parse(path), castLeaf(kind))
		if err != nil {
			return v, err
		}
	}
	return v, nil
}

func (s *Set) applyMap(payload, v any) (any, error) {
	tables, ok := payload.(map[string]any)
	if !ok {
		return v, opErrorf(OpMap, payload, "payload must map paths to lookup tables, got %T", payload)
	}
	for _, path := range sortedKeys(tables) {
		table, ok := tables[path].(map[string]any)
		if !ok {
			return v, opErrorf(OpMap, payload, "table for %q must be a mapping, got %T", path, tables[path])
		}
		var err error
		v, err = applyAt(v, fieldpath.Parse(path), mapLeaf(table))
		if err != nil {
			return v, err
		}
	}
	return v, nil
}

func (s *Set) applyWrap(payload, v any) (any, error) {
	switch p := payload.(type) {
	case string:
		return applyAt(v, fieldpath.Path{}, wrapLeaf(wrapSpec{key: p}))
	case []any:
		if len(p) != 0 {
			return v, opErrorf(OpWrap, payload, "array wrapper must be the empty-array marker")
		}
		return applyAt(v, fieldpath.Path{}, wrapLeaf(wrapSpec{asList: true}))
	case map[string]any:
		for _, path := range sortedKeys(p) {
			spec, err := wrapSpecFor(p[path])
			if err != nil {
				return v, err
			}
			v, err = applyAt(v, fieldpath.Parse(path), wrapLeaf(spec))
			if err != nil {
				return v, err
			}
		}
		return v, nil
	default:
		return v, opErrorf(OpWrap, payload, "payload must be a key, the empty-array marker, or a path mapping, got %T", payload)
	}
}

func wrapSpecFor(w any) (wrapSpec, error) {
	switch wrapper := w.(type) {
	case string:
		return wrapSpec{key: wrapper}, nil
	case []any:
		if len(wrapper) != 0 {
			return wrapSpec{}, opErrorf(OpWrap, w, "array wrapper must be the empty-array marker")
		}
		return wrapSpec{asList: true}, nil
	default:
		return wrapSpec{}, opErrorf(OpWrap, w, "wrapper must be a key or the empty-array marker, got %T", w)
	}
}

func (s *Set) applyFunc(payload, v any) (any, error) {
	switch fn := payload.(type) {
	case Func:
		return applyAt(v, fieldpath.Path{}, funcLeaf(fn))
	case func(any) any:
		return applyAt(v, fieldpath.Path{}, funcLeaf(fn))
	case map[string]any:
		for _, path := range sortedKeys(fn) {
			scoped, err := funcFor(fn[path])
			if err != nil {
				return v, err
			}
			v, err = applyAt(v, fieldpath.Parse(path), funcLeaf(scoped))
			if err != nil {
				return v, err
			}
		}
		return v, nil
	default:
		return v, opErrorf(OpFunc, payload, "payload must be a transform function or path mapping, got %T", payload)
	}
}

func funcFor(fn any) (Func, error) {
	switch f := fn.(type) {
	case Func:
		return f, nil
	case func(any) any:
		return f, nil
	default:
		return nil, opErrorf(OpFunc, fn, "transform must be a func(any) any, got %T", fn)
	}
}

func (s *Set) applyProcedure(op string, payload, v any, depth int) (any, error) {
	refs, ok := payload.(map[string]any)
	if !ok {
		return v, opErrorf(op, payload, "payload must map paths to procedure names, got %T", payload)
	}
	for _, path := range sortedKeys(refs) {
		names, err := procedureNames(op, refs[path])
		if err != nil {
			return v, err
		}

		// Resolve every name before touching data. An unregistered
		// procedure fails the call, never a silent skip.
		targets := make([]*Set, 0, len(names))
		for _, name := range names {
			if s.registry == nil {
				return v, opErrorf(op, payload, "no registry to resolve %q", name)
			}
			target, ok := s.registry.Lookup(name)
			if !ok {
				return v, opErrorf(op, payload, "procedure %q is not registered", name)
			}
			targets = append(targets, target)
		}

		invoke := func(val any, present bool) (any, bool, error) {
			if !present {
				return val, false, nil
			}
			for _, target := range targets {
				var perr error
				val, perr = target.process(val, depth+1)
				if perr != nil {
					return val, true, perr
				}
			}
			return val, true, nil
		}
		v, err = applyAt(v, fieldpath.Parse(path), invoke)
		if err != nil {
			return v, err
		}
	}
	return v, nil
}

func procedureNames(op string, ref any) ([]string, error) {
	switch r := ref.(type) {
	case string:
		return []string{r}, nil
	case []string:
		return r, nil
	case []any:
		names := make([]string, 0, len(r))
		for _, elem := range r {
			name, ok := elem.(string)
			if !ok {
				return nil, opErrorf(op, ref, "procedure name must be a string, got %T", elem)
			}
			names = append(names, name)
		}
		return names, nil
	default:
		return nil, opErrorf(op, ref, "procedure reference must be a name or list of names, got %T", ref)
	}
}
