package transform_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/artpar/reshape/domain/transform"
)

func asFormatError(err error, target **transform.FormatError) bool {
	return errors.As(err, target)
}

func asOperationError(err error, target **transform.OperationError) bool {
	return errors.As(err, target)
}

// decode builds a value the way a JSON payload arrives: numbers as float64.
func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return v
}

func mustProcess(t *testing.T, s *transform.Set, v any) any {
	t.Helper()
	out, err := s.Process(v)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	return out
}

func newSet(t *testing.T, spec any) *transform.Set {
	t.Helper()
	s, err := transform.New(nil, spec)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestNew_RejectsUnknownOperationKey(t *testing.T) {
	_, err := transform.New(nil, []any{
		map[string]any{"$bogus": 1},
	})
	if err == nil {
		t.Fatal("expected error for unknown operation key")
	}
	var ferr *transform.FormatError
	if !asFormatError(err, &ferr) {
		t.Errorf("error = %T, want *FormatError", err)
	}
}

func TestNew_RejectsNonStringTag(t *testing.T) {
	_, err := transform.New(nil, map[string]any{"tag": 7})
	if err == nil {
		t.Fatal("expected error for non-string tag")
	}
}

func TestNew_AcceptsSingleRecord(t *testing.T) {
	s := newSet(t, map[string]any{"set": map[string]any{"a": 1}})
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestProcess_Set(t *testing.T) {
	s := newSet(t, []any{
		map[string]any{"set": map[string]any{"info.state": "NJ"}},
	})

	got := mustProcess(t, s, decode(t, `{"info":{"code":6}}`))
	want := decode(t, `{"info":{"code":6,"state":"NJ"}}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Process() = %#v, want %#v", got, want)
	}
}

func TestProcess_SetIsIdempotent(t *testing.T) {
	s := newSet(t, map[string]any{"set": map[string]any{"a.b": "x"}})

	once := mustProcess(t, s, decode(t, `{"a":{"b":"old"}}`))
	twice := mustProcess(t, s, once)
	if !reflect.DeepEqual(twice, decode(t, `{"a":{"b":"x"}}`)) {
		t.Errorf("second Process() = %#v", twice)
	}
}

func TestProcess_SetRootReplacesValue(t *testing.T) {
	s := newSet(t, map[string]any{"set": map[string]any{".": "replaced"}})

	got := mustProcess(t, s, decode(t, `{"anything":true}`))
	if got != "replaced" {
		t.Errorf("Process() = %#v, want %q", got, "replaced")
	}
}

func TestProcess_SetMissingIntermediateIsSkipped(t *testing.T) {
	s := newSet(t, map[string]any{"set": map[string]any{"a.b.c": 1}})

	in := decode(t, `{"other":true}`)
	got := mustProcess(t, s, in)
	if !reflect.DeepEqual(got, decode(t, `{"other":true}`)) {
		t.Errorf("Process() = %#v, want input unchanged", got)
	}
}

func TestProcess_SetPrimitiveBlocksDescent(t *testing.T) {
	s := newSet(t, map[string]any{"set": map[string]any{"a.b": 1}})

	got := mustProcess(t, s, decode(t, `{"a":"primitive"}`))
	if !reflect.DeepEqual(got, decode(t, `{"a":"primitive"}`)) {
		t.Errorf("Process() = %#v, want input unchanged", got)
	}
}

func TestProcess_Unset(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		in      string
		want    string
	}{
		{"single path", "info.code", `{"info":{"code":6,"state":"NJ"}}`, `{"info":{"state":"NJ"}}`},
		{"path list", []any{"a", "b"}, `{"a":1,"b":2,"c":3}`, `{"c":3}`},
		{"missing path is a no-op", "nope.deep", `{"a":1}`, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSet(t, map[string]any{"unset": tt.payload})
			got := mustProcess(t, s, decode(t, tt.in))
			if !reflect.DeepEqual(got, decode(t, tt.want)) {
				t.Errorf("Process() = %#v, want %#v", got, decode(t, tt.want))
			}
		})
	}
}

func TestProcess_UnsetRootClearsValue(t *testing.T) {
	s := newSet(t, map[string]any{"unset": "."})

	got := mustProcess(t, s, decode(t, `{"a":1}`))
	if got != nil {
		t.Errorf("Process() = %#v, want nil", got)
	}
}

func TestProcess_WildcardBroadcast(t *testing.T) {
	s := newSet(t, map[string]any{"set": map[string]any{"data.$.object": "user"}})

	got := mustProcess(t, s, decode(t, `{"data":[{"age":75},{"age":32},{"age":9}]}`))
	want := decode(t, `{"data":[{"age":75,"object":"user"},{"age":32,"object":"user"},{"age":9,"object":"user"}]}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Process() = %#v, want %#v", got, want)
	}
}

func TestProcess_WildcardSkipsNonObjectElements(t *testing.T) {
	s := newSet(t, map[string]any{"set": map[string]any{"data.$.object": "user"}})

	got := mustProcess(t, s, decode(t, `{"data":[{"age":75},"raw",4]}`))
	want := decode(t, `{"data":[{"age":75,"object":"user"},"raw",4]}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Process() = %#v, want %#v", got, want)
	}
}

func TestProcess_WildcardOnNonArrayIsSkipped(t *testing.T) {
	s := newSet(t, map[string]any{"set": map[string]any{"data.$.object": "user"}})

	got := mustProcess(t, s, decode(t, `{"data":{"age":75}}`))
	if !reflect.DeepEqual(got, decode(t, `{"data":{"age":75}}`)) {
		t.Errorf("Process() = %#v, want input unchanged", got)
	}
}

func TestProcess_CastNaNPolicy(t *testing.T) {
	s := newSet(t, map[string]any{"cast": map[string]any{"v": "number"}})

	got := mustProcess(t, s, decode(t, `{"v":"abc"}`))
	want := map[string]any{"v": nil}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Process() = %#v, want %#v", got, want)
	}
}

func TestProcess_CastMissingFieldIsSkipped(t *testing.T) {
	s := newSet(t, map[string]any{"cast": map[string]any{"missing": "number"}})

	got := mustProcess(t, s, decode(t, `{"v":"1"}`))
	if !reflect.DeepEqual(got, decode(t, `{"v":"1"}`)) {
		t.Errorf("Process() = %#v, want input unchanged", got)
	}
}

func TestProcess_CastUnknownKindFailsAtProcess(t *testing.T) {
	// Construction succeeds: payload shapes are not validated until Process.
	s := newSet(t, map[string]any{"cast": map[string]any{"v": "integer"}})

	_, err := s.Process(decode(t, `{"v":"1"}`))
	var oerr *transform.OperationError
	if !asOperationError(err, &oerr) {
		t.Fatalf("error = %v (%T), want *OperationError", err, err)
	}
}

func TestProcess_MapLookup(t *testing.T) {
	table := map[string]any{"1": "one", "2": "two", "": "many"}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"exact match", `{"n":1}`, `{"n":"one"}`},
		{"string-coerced key", `{"n":"2"}`, `{"n":"two"}`},
		{"default fallback", `{"n":9}`, `{"n":"many"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSet(t, map[string]any{"map": map[string]any{"n": table}})
			got := mustProcess(t, s, decode(t, tt.in))
			if !reflect.DeepEqual(got, decode(t, tt.want)) {
				t.Errorf("Process() = %#v, want %#v", got, decode(t, tt.want))
			}
		})
	}
}

func TestProcess_MapWithoutDefaultLeavesValue(t *testing.T) {
	s := newSet(t, map[string]any{
		"map": map[string]any{"n": map[string]any{"1": "one"}},
	})

	got := mustProcess(t, s, decode(t, `{"n":9}`))
	if !reflect.DeepEqual(got, decode(t, `{"n":9}`)) {
		t.Errorf("Process() = %#v, want value unchanged", got)
	}
}

func TestProcess_WrapInObject(t *testing.T) {
	s := newSet(t, map[string]any{"wrap": map[string]any{"user": "profile"}})

	got := mustProcess(t, s, decode(t, `{"user":{"name":"jo"}}`))
	want := decode(t, `{"user":{"profile":{"name":"jo"}}}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Process() = %#v, want %#v", got, want)
	}
}

func TestProcess_WrapInArray(t *testing.T) {
	s := newSet(t, map[string]any{"wrap": map[string]any{"user": []any{}}})

	got := mustProcess(t, s, decode(t, `{"user":{"name":"jo"}}`))
	want := decode(t, `{"user":[{"name":"jo"}]}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Process() = %#v, want %#v", got, want)
	}
}

func TestProcess_WrapWholeValue(t *testing.T) {
	s := newSet(t, map[string]any{"wrap": "payload"})

	got := mustProcess(t, s, decode(t, `{"a":1}`))
	want := decode(t, `{"payload":{"a":1}}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Process() = %#v, want %#v", got, want)
	}
}

func TestProcess_WrapScalar(t *testing.T) {
	// Wrap operates on any value type, the root scalar included.
	s := newSet(t, map[string]any{"wrap": []any{}})

	got := mustProcess(t, s, "bare")
	want := []any{"bare"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Process() = %#v, want %#v", got, want)
	}
}

func TestProcess_Func(t *testing.T) {
	double := transform.Func(func(v any) any {
		n, _ := v.(float64)
		return n * 2
	})
	s := newSet(t, map[string]any{"func": map[string]any{"n": double}})

	got := mustProcess(t, s, decode(t, `{"n":21}`))
	want := map[string]any{"n": float64(42)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Process() = %#v, want %#v", got, want)
	}
}

func TestProcess_FuncWholeValue(t *testing.T) {
	s := newSet(t, map[string]any{
		"func": func(v any) any {
			obj, _ := v.(map[string]any)
			obj["touched"] = true
			return obj
		},
	})

	got := mustProcess(t, s, decode(t, `{"a":1}`))
	want := decode(t, `{"a":1,"touched":true}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Process() = %#v, want %#v", got, want)
	}
}

func TestProcess_MultiKeyRecordAppliesInFixedOrder(t *testing.T) {
	// set runs before cast within one record regardless of map ordering.
	s := newSet(t, map[string]any{
		"cast": map[string]any{"n": "number"},
		"set":  map[string]any{"n": "7"},
	})

	got := mustProcess(t, s, decode(t, `{}`))
	want := map[string]any{"n": float64(7)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Process() = %#v, want %#v", got, want)
	}
}

func TestProcess_EndToEndScenario(t *testing.T) {
	s := newSet(t, []any{
		map[string]any{"cast": map[string]any{"info.code": "number"}},
		map[string]any{"set": map[string]any{"data.$.object": "user"}},
	})

	got := mustProcess(t, s, decode(t, `{"info":{"code":"6"},"data":[{"age":75,"state":"NJ"}]}`))
	want := decode(t, `{"info":{"code":6},"data":[{"age":75,"state":"NJ","object":"user"}]}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Process() = %#v, want %#v", got, want)
	}
}

func TestProcess_ErrorDoesNotRollBackPriorSteps(t *testing.T) {
	s := newSet(t, []any{
		map[string]any{"set": map[string]any{"done": true}},
		map[string]any{"cast": "not-a-mapping"},
	})

	got, err := s.Process(decode(t, `{}`))
	if err == nil {
		t.Fatal("expected error from malformed cast payload")
	}
	obj, _ := got.(map[string]any)
	if obj == nil || obj["done"] != true {
		t.Errorf("prior step result = %#v, want done=true preserved", got)
	}
}

func TestAdd_TagPositioning(t *testing.T) {
	s := newSet(t, []any{
		map[string]any{"tag": "first", "set": map[string]any{"a": 1}},
		map[string]any{"tag": "third", "set": map[string]any{"c": 3}},
	})

	if err := s.Add(map[string]any{"tag": "second", "set": map[string]any{"b": 2}}, transform.After("first")); err != nil {
		t.Fatalf("Add(after first) error = %v", err)
	}

	wantOrder := []string{"first", "second", "third"}
	for i, want := range wantOrder {
		rec, ok := s.Get(i)
		if !ok {
			t.Fatalf("Get(%d) missing", i)
		}
		if tag, _ := rec.Tag(); tag != want {
			t.Errorf("record %d tag = %q, want %q", i, tag, want)
		}
	}

	if err := s.Add(map[string]any{"tag": "x"}, transform.Before("third")); err != nil {
		t.Fatalf("Add(before third) error = %v", err)
	}
	if got := s.IndexByTag("x"); got != 2 {
		t.Errorf("IndexByTag(x) = %d, want 2", got)
	}
}

func TestAdd_AtIndex(t *testing.T) {
	s := newSet(t, []any{
		map[string]any{"tag": "a"},
		map[string]any{"tag": "b"},
	})

	if err := s.Add(map[string]any{"tag": "front"}, transform.At(0)); err != nil {
		t.Fatalf("Add(at 0) error = %v", err)
	}
	if got := s.IndexByTag("front"); got != 0 {
		t.Errorf("IndexByTag(front) = %d, want 0", got)
	}
}

func TestAdd_AtTakesPrecedenceOverTags(t *testing.T) {
	s := newSet(t, []any{
		map[string]any{"tag": "a"},
		map[string]any{"tag": "b"},
	})

	pos := transform.At(2)
	pos.After = "a"
	pos.Before = "a"
	if err := s.Add(map[string]any{"tag": "end"}, pos); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if got := s.IndexByTag("end"); got != 2 {
		t.Errorf("IndexByTag(end) = %d, want 2", got)
	}
}

func TestAdd_UnknownTagIsFormatError(t *testing.T) {
	s := newSet(t, map[string]any{"tag": "only"})

	err := s.Add(map[string]any{"set": map[string]any{"a": 1}}, transform.After("ghost"))
	var ferr *transform.FormatError
	if !asFormatError(err, &ferr) {
		t.Errorf("error = %v (%T), want *FormatError", err, err)
	}
}

func TestAdd_DefaultAppends(t *testing.T) {
	s := newSet(t, map[string]any{"tag": "a"})

	if err := s.Add(map[string]any{"tag": "z"}, transform.Position{}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if got := s.IndexByTag("z"); got != 1 {
		t.Errorf("IndexByTag(z) = %d, want 1", got)
	}
}

func TestAdd_ValidatesBeforeInsert(t *testing.T) {
	s := newSet(t, map[string]any{"tag": "a"})

	if err := s.Add(map[string]any{"$nope": 1}, transform.Position{}); err == nil {
		t.Fatal("expected error for unknown key")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d after failed Add, want 1", s.Len())
	}
}

func TestIndexByTag_LastMatchWins(t *testing.T) {
	s := newSet(t, []any{
		map[string]any{"tag": "dup", "set": map[string]any{"a": 1}},
		map[string]any{"tag": "dup", "set": map[string]any{"b": 2}},
	})

	if got := s.IndexByTag("dup"); got != 1 {
		t.Errorf("IndexByTag(dup) = %d, want 1", got)
	}
}

func TestRemove(t *testing.T) {
	s := newSet(t, []any{
		map[string]any{"tag": "a"},
		map[string]any{"tag": "b"},
	})

	rec, ok := s.Remove("a")
	if !ok {
		t.Fatal("Remove(a) reported miss")
	}
	if tag, _ := rec.Tag(); tag != "a" {
		t.Errorf("removed tag = %q, want %q", tag, "a")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}

	if _, ok := s.Remove("ghost"); ok {
		t.Error("Remove(ghost) should miss")
	}
	if _, ok := s.Remove(5); ok {
		t.Error("Remove(5) should miss")
	}
}

func TestRemove_ByIndex(t *testing.T) {
	s := newSet(t, []any{
		map[string]any{"tag": "a"},
		map[string]any{"tag": "b"},
	})

	rec, ok := s.Remove(0)
	if !ok {
		t.Fatal("Remove(0) reported miss")
	}
	if tag, _ := rec.Tag(); tag != "a" {
		t.Errorf("removed tag = %q, want %q", tag, "a")
	}
}
