package server

import (
	"context"
	"time"

	"github.com/pagetext-io/pagetext/internal/document"
	"github.com/pagetext-io/pagetext/internal/pipeline"
)

// core is the surface the server needs from the extraction pipeline.
type core interface {
	Process(ctx context.Context, data []byte, cfg document.RenderConfig) (*pipeline.DocumentResult, error)
	ProcessWithProgress(ctx context.Context, data []byte, cfg document.RenderConfig, progress pipeline.ProgressCallback) (*pipeline.DocumentResult, error)
	Close() error
}

// Config holds server configuration.
type Config struct {
	Host            string
	Port            int
	CORSOrigin      string
	MaxUploadMB     int64
	TimeoutSec      int
	ShutdownTimeout time.Duration
	// DefaultRender applies when a request does not override render
	// parameters.
	DefaultRender document.RenderConfig
}

// Server exposes the extraction core over HTTP. It is a thin client of the
// core's input/output contract and holds no pipeline state of its own.
type Server struct {
	pipeline        core
	host            string
	port            int
	corsOrigin      string
	maxUploadMB     int64
	timeoutSec      int
	shutdownTimeout time.Duration
	defaultRender   document.RenderConfig
}

// HealthResponse reports server liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ExtractResponse wraps a document result for HTTP clients.
type ExtractResponse struct {
	Success bool                     `json:"success"`
	Result  *pipeline.DocumentResult `json:"result,omitempty"`
	Labs    any                      `json:"labs,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// NewServer creates a server around an already built pipeline.
func NewServer(cfg Config, pl core) *Server {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 50
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = 120
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	render := cfg.DefaultRender
	if render.TargetDPI == 0 {
		render = document.DefaultRenderConfig()
	}
	return &Server{
		pipeline:        pl,
		host:            cfg.Host,
		port:            cfg.Port,
		corsOrigin:      cfg.CORSOrigin,
		maxUploadMB:     cfg.MaxUploadMB,
		timeoutSec:      cfg.TimeoutSec,
		shutdownTimeout: cfg.ShutdownTimeout,
		defaultRender:   render,
	}
}
