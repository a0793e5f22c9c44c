package config

import (
	"fmt"
	"time"

	"github.com/pagetext-io/pagetext/internal/document"
)

// Config represents the complete configuration for the pagetext
// application. It is loaded from configuration files, environment variables
// and command-line flags.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine" json:"engine"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache" json:"cache"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output" json:"output"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
}

// PipelineConfig contains orchestration settings.
type PipelineConfig struct {
	MaxWorkers    int    `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`
	PageTimeoutMs int    `mapstructure:"page_timeout_ms" yaml:"page_timeout_ms" json:"page_timeout_ms"`
	DefaultDPI    int    `mapstructure:"default_dpi" yaml:"default_dpi" json:"default_dpi"`
	ColorMode     string `mapstructure:"color_mode" yaml:"color_mode" json:"color_mode"`
	Language      string `mapstructure:"language" yaml:"language" json:"language"`
	FailFast      bool   `mapstructure:"fail_fast" yaml:"fail_fast" json:"fail_fast"`
}

// PageTimeout returns the per-page deadline as a duration.
func (c PipelineConfig) PageTimeout() time.Duration {
	return time.Duration(c.PageTimeoutMs) * time.Millisecond
}

// EngineConfig selects and configures the recognition backend.
type EngineConfig struct {
	// Backend is "tesseract" or "remote".
	Backend   string              `mapstructure:"backend" yaml:"backend" json:"backend"`
	Tesseract TesseractEngineConf `mapstructure:"tesseract" yaml:"tesseract" json:"tesseract"`
	Remote    RemoteEngineConf    `mapstructure:"remote" yaml:"remote" json:"remote"`
}

// TesseractEngineConf contains local Tesseract settings.
type TesseractEngineConf struct {
	TessdataPrefix string `mapstructure:"tessdata_prefix" yaml:"tessdata_prefix" json:"tessdata_prefix"`
}

// RemoteEngineConf contains remote HTTP engine settings.
type RemoteEngineConf struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	TimeoutMs int    `mapstructure:"timeout_ms" yaml:"timeout_ms" json:"timeout_ms"`
}

// CacheConfig contains result cache settings.
type CacheConfig struct {
	Enabled  bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Capacity int  `mapstructure:"capacity" yaml:"capacity" json:"capacity"`
	TTLSec   int  `mapstructure:"ttl_sec" yaml:"ttl_sec" json:"ttl_sec"`
}

// TTL returns the entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// RenderConfig converts the pipeline settings into a per-submission render
// config.
func (c *Config) RenderConfig() document.RenderConfig {
	rc := document.DefaultRenderConfig()
	if c.Pipeline.DefaultDPI > 0 {
		rc.TargetDPI = c.Pipeline.DefaultDPI
	}
	if c.Pipeline.ColorMode != "" {
		rc.ColorMode = document.ColorMode(c.Pipeline.ColorMode)
	}
	if c.Pipeline.Language != "" {
		rc.Language = c.Pipeline.Language
	}
	return rc
}

// Validate checks the loaded configuration for consistency.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.Pipeline.MaxWorkers < 0 {
		return fmt.Errorf("pipeline.max_workers must be >= 0, got %d", c.Pipeline.MaxWorkers)
	}
	if c.Pipeline.PageTimeoutMs < 0 {
		return fmt.Errorf("pipeline.page_timeout_ms must be >= 0, got %d", c.Pipeline.PageTimeoutMs)
	}
	if err := c.RenderConfig().Validate(); err != nil {
		return err
	}
	switch c.Engine.Backend {
	case "", "tesseract":
	case "remote":
		if c.Engine.Remote.Endpoint == "" {
			return fmt.Errorf("engine.remote.endpoint is required for the remote backend")
		}
	default:
		return fmt.Errorf("unknown engine backend %q", c.Engine.Backend)
	}
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("cache.capacity must be >= 0, got %d", c.Cache.Capacity)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Output.Format {
	case "", "text", "json", "csv":
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	return nil
}
