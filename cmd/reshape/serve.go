package main

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/artpar/reshape/bootstrap"
	"github.com/artpar/reshape/config"
)

var (
	hotReload bool
	upstream  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the version-bridge server",
	Long: `Start the reshape bridge server.

The server will:
  - Load configuration from reshape.yaml (or --config)
  - Compile every bridge and model into executable operation sets
  - Reshape requests and responses for clients on older API versions
  - Reload the configuration when the file changes

When --upstream is set, bridged requests are proxied to that URL.
Without it the server only answers /healthz and /metrics, which is
useful for checking a configuration under load tools.

Examples:
  reshape serve
  reshape serve --config /etc/reshape/config.yaml --upstream http://localhost:9000
  reshape serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
	serveCmd.Flags().StringVar(&upstream, "upstream", "", "proxy bridged requests to this URL")
}

func runServe(cmd *cobra.Command, args []string) error {
	opts := bootstrap.Options{}
	if upstream != "" {
		target, err := url.Parse(upstream)
		if err != nil {
			return fmt.Errorf("invalid upstream %q: %w", upstream, err)
		}
		opts.Upstream = httputil.NewSingleHostReverseProxy(target)
	} else {
		opts.Upstream = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no upstream configured", http.StatusBadGateway)
		})
	}

	var a *bootstrap.App
	var err error

	if hotReload {
		a, err = bootstrap.NewWithHotReload(cfgFile, opts)
	} else {
		cfg, loadErr := config.Load(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}
		a, err = bootstrap.New(cfg, opts)
	}

	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return a.Run()
}
