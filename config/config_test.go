package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/artpar/reshape/config"
	"github.com/artpar/reshape/domain/bridge"
)

const validYAML = `
version_header: "X-Api-Version"

models:
  userV1:
    - move: {"fullName": "name"}

bridges:
  - name: users-v2
    path: /api/users/*
    match_type: prefix
    methods: [GET, POST]
    version: "2.0.0"
    request:
      body:
        - cast: {"info.code": "number"}
    response:
      body:
        - set: {"data.$.object": "user"}
`

func TestParse_Valid(t *testing.T) {
	cfg, err := config.Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.VersionHeader != "X-Api-Version" {
		t.Errorf("VersionHeader = %q", cfg.VersionHeader)
	}
	if len(cfg.Models["userV1"]) != 1 {
		t.Fatalf("Models[userV1] = %v", cfg.Models["userV1"])
	}
	if len(cfg.Bridges) != 1 {
		t.Fatalf("Bridges = %v", cfg.Bridges)
	}

	b := cfg.Bridges[0].Bridge()
	if b.MatchType != bridge.MatchPrefix {
		t.Errorf("MatchType = %q, want prefix", b.MatchType)
	}
	if !b.Enabled {
		t.Error("bridge should be enabled by default")
	}
	if len(b.Request.Body) != 1 || len(b.Response.Body) != 1 {
		t.Errorf("change sets = %+v", b)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.VersionHeader != "X-API-Version" {
		t.Errorf("VersionHeader = %q, want X-API-Version", cfg.VersionHeader)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want /metrics", cfg.Metrics.Path)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			"missing bridge name",
			`bridges: [{path: /a, version: "1.0"}]`,
			"name is required",
		},
		{
			"missing path",
			`bridges: [{name: b, version: "1.0"}]`,
			"path is required",
		},
		{
			"missing version",
			`bridges: [{name: b, path: /a}]`,
			"version is required",
		},
		{
			"bad version",
			`bridges: [{name: b, path: /a, version: "not.a.version"}]`,
			"parse version",
		},
		{
			"bad match type",
			`bridges: [{name: b, path: /a, version: "1.0", match_type: glob}]`,
			"unknown match_type",
		},
		{
			"duplicate name",
			"bridges:\n  - {name: b, path: /a, version: \"1.0\"}\n  - {name: b, path: /c, version: \"2.0\"}",
			"duplicate name",
		},
		{
			"bad log level",
			`logging: {level: loud}`,
			"unknown level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err, tt.want)
			}
		})
	}
}
