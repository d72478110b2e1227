// Package bootstrap assembles the application: configuration, logging,
// the bridge service, optional SQLite-backed bridges, and the HTTP server.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/reshape/adapters/sqlite"
	"github.com/artpar/reshape/app"
	"github.com/artpar/reshape/config"
	"github.com/artpar/reshape/ports"
	"github.com/artpar/reshape/web"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	DB         *sqlite.DB
	HTTPServer *http.Server
	Bridges    *app.BridgeService
	Metrics    *app.Metrics

	holder   *config.Holder
	upstream http.Handler
}

// Options tweak application assembly.
type Options struct {
	// Upstream is the current-version handler the bridge middleware wraps.
	// Defaults to a 404 handler; embedders mount their application here.
	Upstream http.Handler
}

// New creates and initializes the application from a loaded configuration.
func New(cfg *config.Config, opts Options) (*App, error) {
	logger := setupLogger(cfg.Logging)

	a := &App{
		Logger:   logger,
		upstream: opts.Upstream,
	}

	if cfg.Metrics.Enabled {
		a.Metrics = app.NewMetrics()
	}

	a.Bridges = app.NewBridgeService(logger, a.Metrics)

	if err := a.rebuild(cfg); err != nil {
		return nil, err
	}

	a.initHTTPServer(cfg)
	return a, nil
}

// NewWithHotReload creates the application from a config file and watches
// it for changes. A bad edit keeps the previous bridge table active.
func NewWithHotReload(path string, opts Options) (*App, error) {
	bootLogger := setupLogger(config.LoggingConfig{Level: "info", Format: "json"})

	holder, err := config.NewHolder(path, bootLogger)
	if err != nil {
		return nil, err
	}

	a, err := New(holder.Get(), opts)
	if err != nil {
		holder.Stop()
		return nil, err
	}
	a.holder = holder

	holder.OnChange(func(cfg *config.Config) {
		if err := a.rebuild(cfg); err != nil {
			a.Logger.Error().Err(err).Msg("reload rejected, keeping previous bridge table")
		}
	})

	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("file watch unavailable, reload on SIGHUP only")
	}
	holder.WatchSignals()

	return a, nil
}

// rebuild compiles the configuration into the bridge service, merging in
// stored bridges when a database is configured.
func (a *App) rebuild(cfg *config.Config) error {
	if cfg.Database.DSN == "" {
		return a.Bridges.Rebuild(cfg)
	}

	if a.DB == nil {
		db, err := sqlite.Open(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("open bridge store: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return fmt.Errorf("migrate bridge store: %w", err)
		}
		a.DB = db
	}

	var store ports.BridgeStore = sqlite.NewBridgeStore(a.DB)
	stored, err := store.ListEnabled(context.Background())
	if err != nil {
		return fmt.Errorf("load stored bridges: %w", err)
	}

	return a.Bridges.RebuildWith(cfg, stored)
}

func (a *App) initHTTPServer(cfg *config.Config) {
	handler := web.NewRouter(web.Deps{
		Bridges:       a.Bridges,
		Metrics:       a.Metrics,
		VersionHeader: cfg.VersionHeader,
		Logger:        a.Logger,
		Upstream:      a.upstream,
	})

	a.HTTPServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// Run starts the HTTP server and blocks until interrupt or server error.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
