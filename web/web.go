package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/artpar/reshape/app"
)

// Deps contains dependencies for the router.
type Deps struct {
	Bridges       *app.BridgeService
	Metrics       *app.Metrics
	VersionHeader string
	Logger        zerolog.Logger

	// Upstream is the current-version handler the middleware wraps. Tests
	// and embedders supply their own; serve mounts the application here.
	Upstream http.Handler
}

// NewRouter builds the HTTP router: health and metrics endpoints, and the
// version-bridge middleware around the upstream handler.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	upstream := deps.Upstream
	if upstream == nil {
		upstream = http.NotFoundHandler()
	}

	bridged := Bridge(deps.Bridges, deps.VersionHeader, deps.Logger)(upstream)
	r.Handle("/*", bridged)

	return r
}
