package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/pagetext-io/pagetext/internal/cache"
	"github.com/pagetext-io/pagetext/internal/document"
	"github.com/pagetext-io/pagetext/internal/engine"
	"github.com/pagetext-io/pagetext/internal/raster"
)

// Config holds configuration for the extraction pipeline.
type Config struct {
	// MaxWorkers caps per-page parallelism (0 = runtime.NumCPU()). The
	// effective worker count is min(MaxWorkers, pageCount).
	MaxWorkers int
	// PageTimeout bounds one page's recognition. Exceeding it marks that
	// page TimedOut without disturbing the others (0 = no per-page limit).
	PageTimeout time.Duration
	// FailFast turns the first page failure into a job failure.
	FailFast bool
	// BestEffort returns the partial result instead of an error when the
	// caller cancels mid-run.
	BestEffort bool

	Raster raster.Config
	Cache  cache.Config
	// CacheEnabled switches the result cache in front of the orchestrator.
	CacheEnabled bool

	// Progress receives page-level completion events (optional).
	Progress ProgressCallback
}

// DefaultConfig returns a pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		MaxWorkers:   runtime.NumCPU(),
		PageTimeout:  30 * time.Second,
		FailFast:     false,
		BestEffort:   false,
		Raster:       raster.DefaultConfig(),
		Cache:        cache.DefaultConfig(),
		CacheEnabled: true,
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg    Config
	engine engine.Engine
}

// NewBuilder creates a pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithEngine sets the recognition engine. Required.
func (b *Builder) WithEngine(eng engine.Engine) *Builder {
	b.engine = eng
	return b
}

// WithMaxWorkers sets the per-page parallelism cap.
func (b *Builder) WithMaxWorkers(workers int) *Builder {
	if workers > 0 {
		b.cfg.MaxWorkers = workers
	}
	return b
}

// WithPageTimeout sets the per-page recognition deadline.
func (b *Builder) WithPageTimeout(d time.Duration) *Builder {
	if d >= 0 {
		b.cfg.PageTimeout = d
	}
	return b
}

// WithFailFast makes any page failure fail the whole job.
func (b *Builder) WithFailFast(enabled bool) *Builder {
	b.cfg.FailFast = enabled
	return b
}

// WithBestEffort returns partial output on caller cancellation instead of
// discarding it.
func (b *Builder) WithBestEffort(enabled bool) *Builder {
	b.cfg.BestEffort = enabled
	return b
}

// WithCache configures the result cache. Disabled caches fall through to
// direct computation.
func (b *Builder) WithCache(enabled bool, cfg cache.Config) *Builder {
	b.cfg.CacheEnabled = enabled
	if enabled {
		b.cfg.Cache = cfg
	}
	return b
}

// WithRasterConfig overrides rasterizer settings.
func (b *Builder) WithRasterConfig(cfg raster.Config) *Builder {
	b.cfg.Raster = cfg
	return b
}

// WithProgressCallback sets the progress callback for page completion.
func (b *Builder) WithProgressCallback(callback ProgressCallback) *Builder {
	b.cfg.Progress = callback
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks that the configuration can produce a working pipeline.
func (b *Builder) Validate() error {
	if b.engine == nil {
		return errors.New("recognition engine is required")
	}
	if b.cfg.MaxWorkers < 0 {
		return fmt.Errorf("max workers must be >= 0, got %d", b.cfg.MaxWorkers)
	}
	return nil
}

// Build initializes the pipeline components.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if b.cfg.MaxWorkers == 0 {
		b.cfg.MaxWorkers = runtime.NumCPU()
	}
	p := &Pipeline{
		cfg:        b.cfg,
		rasterizer: raster.New(b.cfg.Raster),
		engine:     b.engine,
	}
	if b.cfg.CacheEnabled {
		p.results = cache.New[*DocumentResult](b.cfg.Cache)
	}
	return p, nil
}

// Pipeline wires the rasterizer, the recognition engine and the result
// cache into one callable unit.
type Pipeline struct {
	cfg        Config
	rasterizer *raster.Rasterizer
	engine     engine.Engine
	results    *cache.Cache[*DocumentResult]
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Close releases the recognition engine.
func (p *Pipeline) Close() error {
	if p.engine != nil {
		return p.engine.Close()
	}
	return nil
}

// Process validates and fingerprints the raw document bytes, consults the
// cache and computes the result on a miss. Concurrent submissions of the
// same (fingerprint, config) share a single computation.
func (p *Pipeline) Process(ctx context.Context, data []byte, cfg document.RenderConfig) (*DocumentResult, error) {
	return p.ProcessWithProgress(ctx, data, cfg, p.cfg.Progress)
}

// ProcessWithProgress is Process with a per-call progress callback. When a
// concurrent submission for the same key is already in flight, the joining
// caller shares its result and receives no page events.
func (p *Pipeline) ProcessWithProgress(ctx context.Context, data []byte, cfg document.RenderConfig, progress ProgressCallback) (*DocumentResult, error) {
	doc, err := document.New(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, &document.ValidationError{Reason: err.Error()}
	}
	return p.ProcessDocument(ctx, doc, cfg, progress)
}

// errRunCancelled keeps a cancelled run's output out of the shared cache.
// The submitting caller still receives its partial result.
var errRunCancelled = errors.New("run cancelled")

// ProcessDocument runs the pipeline for an already validated document.
func (p *Pipeline) ProcessDocument(ctx context.Context, doc *document.Document, cfg document.RenderConfig, progress ProgressCallback) (*DocumentResult, error) {
	if p.results == nil {
		return p.run(ctx, doc, cfg, progress)
	}

	key := document.CacheKey(doc.Fingerprint, cfg)
	var partial *DocumentResult
	result, hit, err := p.results.GetOrCompute(key, func() (*DocumentResult, error) {
		res, runErr := p.run(ctx, doc, cfg, progress)
		if runErr == nil && ctx.Err() != nil {
			// A cancelled run's partial result belongs to the caller who
			// opted into it. Later submissions must recompute.
			partial = res
			return nil, errRunCancelled
		}
		return res, runErr
	})
	if errors.Is(err, errRunCancelled) {
		if partial != nil {
			return partial, nil
		}
		// A joining caller shared a computation its owner cancelled.
		return nil, context.Canceled
	}
	if err != nil {
		return nil, err
	}
	if hit {
		slog.Debug("cache hit", "fingerprint", doc.Fingerprint)
	}
	return result, nil
}
