// Package web provides the HTTP surface: the version-bridge middleware and
// operational endpoints. The middleware buffers bodies on both sides; JSON
// is decoded for transformation, anything else passes through verbatim.
// Streaming payloads are out of scope.
package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/artpar/reshape/app"
)

// requestIDHeader carries the per-request correlation ID.
const requestIDHeader = "X-Request-ID"

// Bridge returns middleware that upgrades requests from older API versions
// before they reach next, and downgrades the buffered response on the way
// back. Requests without a version header pass through untouched.
func Bridge(svc *app.BridgeService, versionHeader string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientVersion := r.Header.Get(versionHeader)
			if clientVersion == "" {
				next.ServeHTTP(w, r)
				return
			}

			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			log := logger.With().
				Str("request_id", reqID).
				Str("path", r.URL.Path).
				Str("client_version", clientVersion).
				Logger()

			req, err := buildRequest(r, clientVersion)
			if err != nil {
				log.Error().Err(err).Msg("malformed request payload")
				writeError(w, http.StatusBadRequest, "malformed request payload", reqID)
				return
			}

			upgraded, err := svc.TransformRequest(req)
			if err != nil {
				log.Error().Err(err).Msg("request transform failed")
				writeError(w, http.StatusInternalServerError, "request transform failed", reqID)
				return
			}

			inner, err := rebuildRequest(r, upgraded)
			if err != nil {
				log.Error().Err(err).Msg("rebuild request failed")
				writeError(w, http.StatusInternalServerError, "request transform failed", reqID)
				return
			}

			rec := &responseBuffer{header: make(http.Header), status: http.StatusOK}
			next.ServeHTTP(rec, inner)

			resp, err := svc.TransformResponse(upgraded, rec.response())
			if err != nil {
				log.Error().Err(err).Msg("response transform failed")
				writeError(w, http.StatusInternalServerError, "response transform failed", reqID)
				return
			}

			writeResponse(w, resp, reqID)
		})
	}
}

// buildRequest converts an HTTP request into the transformable view. Only
// JSON bodies are decoded; other content types travel opaquely.
func buildRequest(r *http.Request, clientVersion string) (app.Request, error) {
	req := app.Request{
		Path:    r.URL.Path,
		Method:  r.Method,
		Version: clientVersion,
		Headers: headerMap(r.Header),
		Query:   queryMap(r.URL.Query()),
		Params:  routeParams(r),
	}

	if r.Body != nil && isJSON(r.Header.Get("Content-Type")) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return req, err
		}
		r.Body.Close()
		if len(raw) > 0 {
			var body any
			if err := json.Unmarshal(raw, &body); err != nil {
				return req, err
			}
			req.Body = body
		}
	}
	return req, nil
}

// rebuildRequest produces the request handed to the inner handler, carrying
// the upgraded headers, query, and body.
func rebuildRequest(r *http.Request, req app.Request) (*http.Request, error) {
	out := r.Clone(r.Context())

	out.Header = make(http.Header, len(req.Headers))
	for k, v := range req.Headers {
		setHeader(out.Header, k, v)
	}

	q := out.URL.Query()
	for k := range q {
		if _, ok := req.Query[k]; !ok {
			q.Del(k)
		}
	}
	for k, v := range req.Query {
		q.Set(k, stringValue(v))
	}
	out.URL.RawQuery = q.Encode()

	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, err
		}
		out.Body = io.NopCloser(bytes.NewReader(raw))
		out.ContentLength = int64(len(raw))
		out.Header.Set("Content-Type", "application/json")
	}
	return out, nil
}

func writeResponse(w http.ResponseWriter, resp app.Response, reqID string) {
	for k, v := range resp.Headers {
		setHeader(w.Header(), k, v)
	}
	w.Header().Set(requestIDHeader, reqID)

	if resp.Body == nil {
		// The opaque body, if any, goes back exactly as buffered.
		w.Header().Set("Content-Length", strconv.Itoa(len(resp.Raw)))
		w.WriteHeader(resp.Status)
		if len(resp.Raw) > 0 {
			w.Write(resp.Raw)
		}
		return
	}

	raw, err := json.Marshal(resp.Body)
	if err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	w.WriteHeader(resp.Status)
	w.Write(raw)
}

func writeError(w http.ResponseWriter, status int, msg, reqID string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(requestIDHeader, reqID)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error":      msg,
		"request_id": reqID,
	})
}

// responseBuffer captures the inner handler's response so it can be
// transformed before reaching the client.
type responseBuffer struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (b *responseBuffer) Header() http.Header {
	return b.header
}

func (b *responseBuffer) WriteHeader(status int) {
	b.status = status
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	return b.body.Write(p)
}

func (b *responseBuffer) response() app.Response {
	resp := app.Response{
		Status:  b.status,
		Headers: headerMap(b.header),
	}
	raw := b.body.Bytes()
	if len(raw) > 0 && isJSON(b.header.Get("Content-Type")) {
		var body any
		if err := json.Unmarshal(raw, &body); err == nil {
			resp.Body = body
			return resp
		}
	}
	// Non-JSON (or undecodable) bodies travel opaquely.
	resp.Raw = raw
	return resp
}

// headerMap converts headers to the transformable view. Single values stay
// plain strings so operations address them directly; multi-valued headers
// (Set-Cookie, Vary) become arrays and survive the round trip.
func headerMap(h http.Header) map[string]any {
	out := make(map[string]any, len(h))
	for k, vals := range h {
		switch len(vals) {
		case 0:
		case 1:
			out[k] = vals[0]
		default:
			vs := make([]any, len(vals))
			for i, v := range vals {
				vs[i] = v
			}
			out[k] = vs
		}
	}
	return out
}

// setHeader writes a transformed header value back, re-expanding arrays
// into repeated header lines.
func setHeader(h http.Header, k string, v any) {
	switch vals := v.(type) {
	case []any:
		h.Del(k)
		for _, val := range vals {
			h.Add(k, stringValue(val))
		}
	case []string:
		h.Del(k)
		for _, val := range vals {
			h.Add(k, val)
		}
	default:
		h.Set(k, stringValue(v))
	}
}

func queryMap(q map[string][]string) map[string]any {
	out := make(map[string]any, len(q))
	for k, vals := range q {
		if len(vals) > 0 {
			out[k] = vals[0]
		}
	}
	return out
}

// routeParams extracts chi URL parameters when routing already happened.
func routeParams(r *http.Request) map[string]any {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		out[key] = rctx.URLParams.Values[i]
	}
	return out
}

func isJSON(contentType string) bool {
	return strings.Contains(contentType, "application/json") || contentType == ""
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return strings.Trim(string(raw), `"`)
	}
}
