package web_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/artpar/reshape/app"
	"github.com/artpar/reshape/config"
	"github.com/artpar/reshape/web"
)

const middlewareYAML = `
bridges:
  - name: users-v2
    path: /api/users
    version: "2.0.0"
    request:
      body:
        - move: {"fullName": "name"}
      headers:
        - move: {"X-Legacy-Token": "Authorization"}
    response:
      body:
        - move: {"name": "fullName"}
`

func buildRouter(t *testing.T, yaml string, upstream http.Handler) http.Handler {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	svc := app.NewBridgeService(zerolog.Nop(), nil)
	if err := svc.Rebuild(cfg); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	return web.NewRouter(web.Deps{
		Bridges:       svc,
		VersionHeader: cfg.VersionHeader,
		Logger:        zerolog.Nop(),
		Upstream:      upstream,
	})
}

func TestBridge_UpgradesRequestAndDowngradesResponse(t *testing.T) {
	var seenBody map[string]any
	var seenAuth string
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &seenBody)
		seenAuth = r.Header.Get("Authorization")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"name": "jo"})
	})

	router := buildRouter(t, middlewareYAML, upstream)

	req := httptest.NewRequest("POST", "/api/users", strings.NewReader(`{"fullName":"jo"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Version", "1.0.0")
	req.Header.Set("X-Legacy-Token", "secret")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Upstream saw the upgraded shape.
	if !reflect.DeepEqual(seenBody, map[string]any{"name": "jo"}) {
		t.Errorf("upstream body = %#v, want renamed field", seenBody)
	}
	if seenAuth != "secret" {
		t.Errorf("upstream Authorization = %q, want moved header", seenAuth)
	}

	// Client got the downgraded shape back.
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]any{"fullName": "jo"}) {
		t.Errorf("client body = %#v, want legacy field", got)
	}

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("response must carry a request ID")
	}
}

func TestBridge_NoVersionHeaderPassesThrough(t *testing.T) {
	var sawBody string
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		sawBody = string(raw)
		w.WriteHeader(http.StatusNoContent)
	})

	router := buildRouter(t, middlewareYAML, upstream)

	req := httptest.NewRequest("POST", "/api/users", strings.NewReader(`{"fullName":"jo"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if sawBody != `{"fullName":"jo"}` {
		t.Errorf("upstream body = %q, want untouched", sawBody)
	}
}

func TestBridge_MalformedJSONBodyRejected(t *testing.T) {
	router := buildRouter(t, middlewareYAML, http.NotFoundHandler())

	req := httptest.NewRequest("POST", "/api/users", strings.NewReader(`{broken`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Version", "1.0.0")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestBridge_TransformErrorIsFatalForRequest(t *testing.T) {
	router := buildRouter(t, `
bridges:
  - name: broken
    path: /api/users
    version: "2.0.0"
    request:
      body:
        - model: {".": "ghost"}
`, http.NotFoundHandler())

	req := httptest.NewRequest("POST", "/api/users", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Version", "1.0.0")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestBridge_NonJSONResponseBodyPassesThrough(t *testing.T) {
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream says no", http.StatusBadGateway)
	})

	router := buildRouter(t, middlewareYAML, upstream)

	req := httptest.NewRequest("POST", "/api/users", strings.NewReader(`{"fullName":"jo"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Version", "1.0.0")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if got := rec.Body.String(); got != "upstream says no\n" {
		t.Errorf("body = %q, want the upstream text verbatim", got)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
}

func TestBridge_MultiValueResponseHeadersSurvive(t *testing.T) {
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "a=1")
		w.Header().Add("Set-Cookie", "b=2")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"name": "jo"})
	})

	router := buildRouter(t, middlewareYAML, upstream)

	req := httptest.NewRequest("POST", "/api/users", strings.NewReader(`{"fullName":"jo"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Version", "1.0.0")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	cookies := rec.Header().Values("Set-Cookie")
	if !reflect.DeepEqual(cookies, []string{"a=1", "b=2"}) {
		t.Errorf("Set-Cookie = %v, want both values", cookies)
	}
}

func TestRouter_Healthz(t *testing.T) {
	router := buildRouter(t, middlewareYAML, http.NotFoundHandler())

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
