// Package app provides application services that orchestrate domain logic.
package app

import (
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/artpar/reshape/config"
	"github.com/artpar/reshape/domain/bridge"
	"github.com/artpar/reshape/domain/transform"
)

// Request is the transformable view of an incoming request. Headers, query
// parameters, and path parameters are plain objects so one engine handles
// every medium.
type Request struct {
	Path    string
	Method  string
	Version string // client-declared API version; empty means current

	Headers map[string]any
	Query   map[string]any
	Params  map[string]any
	Body    any
}

// Response is the transformable view of an outgoing response.
type Response struct {
	Status  int
	Headers map[string]any
	Body    any

	// Raw holds the buffered body bytes when Body could not be decoded
	// (non-JSON content). It travels past the transforms untouched and is
	// written back verbatim.
	Raw []byte
}

// BridgeService compiles configured bridges and models into executable
// operation sets and applies them to requests and responses. The compiled
// state is swapped atomically on config reload, so in-flight transforms
// always see one consistent snapshot.
type BridgeService struct {
	logger  zerolog.Logger
	metrics *Metrics
	exprs   *ExprCompiler

	snap atomic.Pointer[bridgeSnapshot]
}

type bridgeSnapshot struct {
	matcher  *bridge.Matcher
	registry *transform.Registry
	compiled map[string]*compiledBridge
}

// compiledBridge holds the executable per-medium sets. A nil set means the
// bridge declares no operations for that medium.
type compiledBridge struct {
	reqHeaders *transform.Set
	reqBody    *transform.Set
	reqQuery   *transform.Set
	reqParams  *transform.Set

	respHeaders *transform.Set
	respBody    *transform.Set
}

// NewBridgeService creates a bridge service. metrics may be nil.
func NewBridgeService(logger zerolog.Logger, metrics *Metrics) *BridgeService {
	return &BridgeService{
		logger:  logger,
		metrics: metrics,
		exprs:   NewExprCompiler(logger),
	}
}

// Rebuild compiles the given configuration and swaps it in. On error the
// previous snapshot stays active, so a bad reload never drops transforms.
func (s *BridgeService) Rebuild(cfg *config.Config) error {
	return s.RebuildWith(cfg, nil)
}

// RebuildWith compiles the configuration plus bridges loaded from an
// external store (the SQLite adapter). Stored bridges share the models
// declared in the file.
func (s *BridgeService) RebuildWith(cfg *config.Config, stored []bridge.Bridge) error {
	// Programs compiled for the previous configuration are stale now.
	s.exprs.ClearCache()

	registry := transform.NewRegistry()

	// Models first: cross-references resolve lazily through the shared
	// registry, so registration order does not matter.
	for name, ops := range cfg.Models {
		set, err := s.compileOps(registry, ops)
		if err != nil {
			return fmt.Errorf("model %q: %w", name, err)
		}
		registry.Register(name, set)
	}

	all := make([]bridge.Bridge, 0, len(cfg.Bridges)+len(stored))
	for _, bc := range cfg.Bridges {
		all = append(all, bc.Bridge())
	}
	all = append(all, stored...)

	compiled := make(map[string]*compiledBridge, len(all))
	bridges := make([]bridge.Bridge, 0, len(all))
	for _, b := range all {
		if !b.Enabled {
			continue
		}
		cb, err := s.compileBridge(registry, b)
		if err != nil {
			return fmt.Errorf("bridge %q: %w", b.Name, err)
		}
		compiled[b.Name] = cb
		bridges = append(bridges, b)
	}

	matcher, err := bridge.NewMatcher(bridges)
	if err != nil {
		return err
	}

	s.snap.Store(&bridgeSnapshot{
		matcher:  matcher,
		registry: registry,
		compiled: compiled,
	})

	s.logger.Info().
		Int("bridges", len(bridges)).
		Int("models", len(cfg.Models)).
		Msg("bridge table rebuilt")
	return nil
}

// Registry returns the active procedure registry, or nil before the first
// Rebuild. Entries registered here are visible to every compiled set.
func (s *BridgeService) Registry() *transform.Registry {
	snap := s.snap.Load()
	if snap == nil {
		return nil
	}
	return snap.registry
}

func (s *BridgeService) compileBridge(registry *transform.Registry, b bridge.Bridge) (*compiledBridge, error) {
	cb := &compiledBridge{}
	var err error

	if cb.reqHeaders, err = s.compileOps(registry, b.Request.Headers); err != nil {
		return nil, fmt.Errorf("request headers: %w", err)
	}
	if cb.reqBody, err = s.compileOps(registry, b.Request.Body); err != nil {
		return nil, fmt.Errorf("request body: %w", err)
	}
	if cb.reqQuery, err = s.compileOps(registry, b.Request.Query); err != nil {
		return nil, fmt.Errorf("request query: %w", err)
	}
	if cb.reqParams, err = s.compileOps(registry, b.Request.Params); err != nil {
		return nil, fmt.Errorf("request params: %w", err)
	}
	if cb.respHeaders, err = s.compileOps(registry, b.Response.Headers); err != nil {
		return nil, fmt.Errorf("response headers: %w", err)
	}
	if cb.respBody, err = s.compileOps(registry, b.Response.Body); err != nil {
		return nil, fmt.Errorf("response body: %w", err)
	}
	return cb, nil
}

// compileOps turns a raw operation list into an executable set, rewriting
// string func payloads into compiled Expr transforms first.
func (s *BridgeService) compileOps(registry *transform.Registry, ops bridge.Operations) (*transform.Set, error) {
	if len(ops) == 0 {
		return nil, nil
	}

	records := make([]map[string]any, 0, len(ops))
	for _, rec := range ops {
		rewritten, err := s.exprs.RewriteRecord(rec)
		if err != nil {
			return nil, err
		}
		records = append(records, rewritten)
	}

	set, err := transform.New(registry, records)
	if err != nil {
		return nil, err
	}
	return set.WithLogger(s.logger), nil
}

// TransformRequest applies every matching bridge to the request, oldest
// version first, and returns the upgraded request.
func (s *BridgeService) TransformRequest(req Request) (Request, error) {
	snap := s.snap.Load()
	if snap == nil {
		return req, nil
	}

	for _, b := range snap.matcher.Match(req.Path, req.Method, req.Version) {
		cb := snap.compiled[b.Name]
		if cb == nil {
			continue
		}

		var err error
		if req.Headers, err = s.applyObject(b.Name, "request_headers", cb.reqHeaders, req.Headers); err != nil {
			return req, err
		}
		if req.Query, err = s.applyObject(b.Name, "request_query", cb.reqQuery, req.Query); err != nil {
			return req, err
		}
		if req.Params, err = s.applyObject(b.Name, "request_params", cb.reqParams, req.Params); err != nil {
			return req, err
		}
		if cb.reqBody != nil {
			if req.Body, err = s.apply(b.Name, "request_body", cb.reqBody, req.Body); err != nil {
				return req, err
			}
		}
	}
	return req, nil
}

// TransformResponse applies the matching bridges in reverse, newest version
// first, downgrading the response toward the client's dialect.
func (s *BridgeService) TransformResponse(req Request, resp Response) (Response, error) {
	snap := s.snap.Load()
	if snap == nil {
		return resp, nil
	}

	matched := snap.matcher.Match(req.Path, req.Method, req.Version)
	for _, b := range bridge.Reverse(matched) {
		cb := snap.compiled[b.Name]
		if cb == nil {
			continue
		}

		var err error
		if resp.Headers, err = s.applyObject(b.Name, "response_headers", cb.respHeaders, resp.Headers); err != nil {
			return resp, err
		}
		if cb.respBody != nil {
			if resp.Body, err = s.apply(b.Name, "response_body", cb.respBody, resp.Body); err != nil {
				return resp, err
			}
		}
	}
	return resp, nil
}

func (s *BridgeService) apply(bridgeName, medium string, set *transform.Set, v any) (any, error) {
	if set == nil {
		return v, nil
	}
	timer := s.metrics.Timer(medium)
	out, err := set.Process(v)
	timer.Done()
	if err != nil {
		s.metrics.Error(bridgeName, medium)
		return v, fmt.Errorf("bridge %q %s: %w", bridgeName, medium, err)
	}
	s.metrics.Applied(bridgeName, medium)
	return out, nil
}

// applyObject runs a transform that must yield an object, as the header,
// query, and params media do.
func (s *BridgeService) applyObject(bridgeName, medium string, set *transform.Set, m map[string]any) (map[string]any, error) {
	if set == nil {
		return m, nil
	}
	if m == nil {
		m = make(map[string]any)
	}
	out, err := s.apply(bridgeName, medium, set, any(m))
	if err != nil {
		return m, err
	}
	obj, ok := out.(map[string]any)
	if !ok {
		s.metrics.Error(bridgeName, medium)
		return m, fmt.Errorf("bridge %q %s: transform produced %T, want an object", bridgeName, medium, out)
	}
	return obj, nil
}
