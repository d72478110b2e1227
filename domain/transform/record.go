package transform

import (
	"sort"

	"go.uber.org/multierr"
)

// Operation key vocabulary. Any other key in a record is a format error.
const (
	OpSet       = "set"
	OpUnset     = "unset"
	OpMove      = "move"
	OpCopy      = "copy"
	OpCast      = "cast"
	OpMap       = "map"
	OpWrap      = "wrap"
	OpFunc      = "func"
	OpProcedure = "procedure"
	OpModel     = "model"
	OpTag       = "tag"
)

// applyOrder is the fixed relative order of operation keys within a single
// record. Across records, declaration order rules.
var applyOrder = []string{
	OpSet, OpUnset, OpMove, OpCopy, OpCast, OpMap, OpWrap,
	OpFunc, OpProcedure, OpModel,
}

var vocabulary = map[string]bool{
	OpSet:       true,
	OpUnset:     true,
	OpMove:      true,
	OpCopy:      true,
	OpCast:      true,
	OpMap:       true,
	OpWrap:      true,
	OpFunc:      true,
	OpProcedure: true,
	OpModel:     true,
	OpTag:       true,
}

// Record is one declarative transformation step: a mapping from operation
// keys to operation-specific payloads, plus an optional tag label.
type Record map[string]any

// Tag returns the record's tag label, if any.
func (r Record) Tag() (string, bool) {
	v, ok := r[OpTag]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// validateRecord checks that every key belongs to the operation vocabulary
// and that the tag, when present, is a string. Payload shapes are not
// checked here; those surface during Process.
func validateRecord(r Record) error {
	var unknown []string
	for key := range r {
		if !vocabulary[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	var err error
	for _, key := range unknown {
		err = multierr.Append(err, formatErrorf(r, "unknown operation key %q", key))
	}
	if v, ok := r[OpTag]; ok {
		if _, isString := v.(string); !isString {
			err = multierr.Append(err, formatErrorf(r, "tag must be a string, got %T", v))
		}
	}
	return err
}

// normalizeRecords accepts a single record or an ordered list of records in
// any of the shapes a JSON or YAML decoder produces.
func normalizeRecords(spec any) ([]Record, error) {
	switch s := spec.(type) {
	case nil:
		return nil, nil
	case Record:
		return []Record{s}, nil
	case map[string]any:
		return []Record{Record(s)}, nil
	case []Record:
		out := make([]Record, len(s))
		copy(out, s)
		return out, nil
	case []map[string]any:
		out := make([]Record, 0, len(s))
		for _, m := range s {
			out = append(out, Record(m))
		}
		return out, nil
	case []any:
		out := make([]Record, 0, len(s))
		for _, elem := range s {
			switch m := elem.(type) {
			case Record:
				out = append(out, m)
			case map[string]any:
				out = append(out, Record(m))
			default:
				return nil, formatErrorf(elem, "operation record must be a mapping, got %T", elem)
			}
		}
		return out, nil
	default:
		return nil, formatErrorf(spec, "operations must be a record or list of records, got %T", spec)
	}
}

// sortedKeys returns a payload's path keys in a stable order so multi-path
// payloads apply deterministically.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
