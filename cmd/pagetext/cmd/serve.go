package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pagetext-io/pagetext/internal/cache"
	"github.com/pagetext-io/pagetext/internal/pipeline"
	"github.com/pagetext-io/pagetext/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the extraction API",
	Long: `Start an HTTP server that provides REST API endpoints for document
text extraction.

The server provides the following endpoints:
  POST /extract     - Process an uploaded document
  GET  /extract/ws  - WebSocket extraction with live page progress
  GET  /health      - Health check endpoint
  GET  /metrics     - Prometheus metrics

Examples:
  pagetext serve
  pagetext serve --port 8080
  pagetext serve --host 0.0.0.0 --port 3000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "127.0.0.1", "host address to bind to")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().String("cors-origin", "", "allowed CORS origin (empty disables CORS headers)")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 120, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "graceful shutdown timeout in seconds")
	serveCmd.Flags().Int("workers", 0, "max worker goroutines for page recognition (0=NumCPU)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	host := cfg.Server.Host
	if cmd.Flags().Changed("host") {
		host, _ = cmd.Flags().GetString("host")
	}
	port := cfg.Server.Port
	if cmd.Flags().Changed("port") {
		port, _ = cmd.Flags().GetInt("port")
	}
	corsOrigin := cfg.Server.CORSOrigin
	if cmd.Flags().Changed("cors-origin") {
		corsOrigin, _ = cmd.Flags().GetString("cors-origin")
	}
	maxUploadMB := cfg.Server.MaxUploadMB
	if cmd.Flags().Changed("max-upload-size") {
		maxUploadMB, _ = cmd.Flags().GetInt("max-upload-size")
	}
	timeoutSec := cfg.Server.TimeoutSec
	if cmd.Flags().Changed("timeout") {
		timeoutSec, _ = cmd.Flags().GetInt("timeout")
	}
	shutdownSec := cfg.Server.ShutdownTimeout
	if cmd.Flags().Changed("shutdown-timeout") {
		shutdownSec, _ = cmd.Flags().GetInt("shutdown-timeout")
	}
	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = cfg.Pipeline.MaxWorkers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	eng, err := buildEngine(cfg, workers)
	if err != nil {
		return err
	}

	pl, err := pipeline.NewBuilder().
		WithEngine(eng).
		WithMaxWorkers(workers).
		WithPageTimeout(cfg.Pipeline.PageTimeout()).
		WithFailFast(cfg.Pipeline.FailFast).
		WithCache(cfg.Cache.Enabled, cache.Config{
			Capacity: cfg.Cache.Capacity,
			TTL:      cfg.Cache.TTL(),
		}).
		Build()
	if err != nil {
		return err
	}
	defer func() { _ = pl.Close() }()

	srv := server.NewServer(server.Config{
		Host:            host,
		Port:            port,
		CORSOrigin:      corsOrigin,
		MaxUploadMB:     int64(maxUploadMB),
		TimeoutSec:      timeoutSec,
		ShutdownTimeout: time.Duration(shutdownSec) * time.Second,
		DefaultRender:   cfg.RenderConfig(),
	}, pl)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = srv.ListenAndServe(ctx)
	if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
