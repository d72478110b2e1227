package bridge_test

import (
	"testing"

	"github.com/artpar/reshape/domain/bridge"
)

func newMatcher(t *testing.T, bridges []bridge.Bridge) *bridge.Matcher {
	t.Helper()
	m, err := bridge.NewMatcher(bridges)
	if err != nil {
		t.Fatalf("NewMatcher() error = %v", err)
	}
	return m
}

func enabled(name, pattern string, mt bridge.MatchType, ver string, methods ...string) bridge.Bridge {
	return bridge.Bridge{
		Name:        name,
		PathPattern: pattern,
		MatchType:   mt,
		Methods:     methods,
		Version:     ver,
		Enabled:     true,
	}
}

func TestMatch_PathPatterns(t *testing.T) {
	m := newMatcher(t, []bridge.Bridge{
		enabled("exact", "/api/users", bridge.MatchExact, "2.0.0"),
		enabled("prefix", "/api/orders/*", bridge.MatchPrefix, "2.0.0"),
		enabled("regex", "/api/items/[0-9]+", bridge.MatchRegex, "2.0.0"),
	})

	tests := []struct {
		path string
		want []string
	}{
		{"/api/users", []string{"exact"}},
		{"/api/users/42", nil},
		{"/api/orders/42", []string{"prefix"}},
		{"/api/items/42", []string{"regex"}},
		{"/api/items/abc", nil},
	}

	for _, tt := range tests {
		got := m.Match(tt.path, "GET", "1.0.0")
		if len(got) != len(tt.want) {
			t.Errorf("Match(%q) returned %d bridges, want %d", tt.path, len(got), len(tt.want))
			continue
		}
		for i, b := range got {
			if b.Name != tt.want[i] {
				t.Errorf("Match(%q)[%d] = %q, want %q", tt.path, i, b.Name, tt.want[i])
			}
		}
	}
}

func TestMatch_VersionOrdering(t *testing.T) {
	m := newMatcher(t, []bridge.Bridge{
		enabled("to-v3", "/api/*", bridge.MatchPrefix, "3.0.0"),
		enabled("to-v2", "/api/*", bridge.MatchPrefix, "2.0.0"),
	})

	got := m.Match("/api/users", "GET", "1.0.0")
	if len(got) != 2 {
		t.Fatalf("Match() returned %d bridges, want 2", len(got))
	}
	if got[0].Name != "to-v2" || got[1].Name != "to-v3" {
		t.Errorf("order = %q, %q; want to-v2, to-v3", got[0].Name, got[1].Name)
	}

	rev := bridge.Reverse(got)
	if rev[0].Name != "to-v3" || rev[1].Name != "to-v2" {
		t.Errorf("Reverse order = %q, %q; want to-v3, to-v2", rev[0].Name, rev[1].Name)
	}
}

func TestMatch_SkipsBridgesAtOrBelowClientVersion(t *testing.T) {
	m := newMatcher(t, []bridge.Bridge{
		enabled("to-v2", "/api/*", bridge.MatchPrefix, "2.0.0"),
		enabled("to-v3", "/api/*", bridge.MatchPrefix, "3.0.0"),
	})

	got := m.Match("/api/users", "GET", "2.0.0")
	if len(got) != 1 || got[0].Name != "to-v3" {
		t.Errorf("Match(client 2.0.0) = %v, want only to-v3", names(got))
	}

	if got := m.Match("/api/users", "GET", "3.0.0"); len(got) != 0 {
		t.Errorf("Match(client 3.0.0) = %v, want none", names(got))
	}
}

func TestMatch_EmptyClientVersionMatchesNothing(t *testing.T) {
	m := newMatcher(t, []bridge.Bridge{
		enabled("any", "/api/*", bridge.MatchPrefix, "9.0.0"),
	})

	if got := m.Match("/api/users", "GET", ""); len(got) != 0 {
		t.Errorf("Match(no version) = %v, want none", names(got))
	}
}

func TestMatch_Methods(t *testing.T) {
	m := newMatcher(t, []bridge.Bridge{
		enabled("get-only", "/api/*", bridge.MatchPrefix, "2.0.0", "GET"),
	})

	if got := m.Match("/api/users", "get", "1.0.0"); len(got) != 1 {
		t.Errorf("Match(get) = %v, want the bridge (case-insensitive)", names(got))
	}
	if got := m.Match("/api/users", "POST", "1.0.0"); len(got) != 0 {
		t.Errorf("Match(POST) = %v, want none", names(got))
	}
}

func TestMatch_DisabledBridgesSkipped(t *testing.T) {
	b := enabled("off", "/api/*", bridge.MatchPrefix, "2.0.0")
	b.Enabled = false
	m := newMatcher(t, []bridge.Bridge{b})

	if got := m.Match("/api/users", "GET", "1.0.0"); len(got) != 0 {
		t.Errorf("Match() = %v, want none for disabled bridge", names(got))
	}
}

func TestNewMatcher_BadRegex(t *testing.T) {
	_, err := bridge.NewMatcher([]bridge.Bridge{
		enabled("bad", "[", bridge.MatchRegex, "2.0.0"),
	})
	if err == nil {
		t.Fatal("expected error for invalid regex")
	}
}

func names(bridges []bridge.Bridge) []string {
	out := make([]string, len(bridges))
	for i, b := range bridges {
		out[i] = b.Name
	}
	return out
}
