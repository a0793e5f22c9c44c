package pipeline

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pagetext-io/pagetext/internal/document"
	"github.com/pagetext-io/pagetext/internal/engine"
	"github.com/pagetext-io/pagetext/internal/raster"
)

// run executes one job: rasterize, fan recognition out over a bounded
// worker pool, and assemble the ordered result. Page failures are recorded
// in their slot and never escalate unless FailFast is set.
func (p *Pipeline) run(ctx context.Context, doc *document.Document, cfg document.RenderConfig, progress ProgressCallback) (*DocumentResult, error) {
	job := newJob(doc.Fingerprint)
	totalStart := time.Now()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	_ = job.transition(JobRendering)
	renderStart := time.Now()
	stream, err := p.rasterizer.Render(runCtx, doc, cfg)
	if err != nil {
		_ = job.transition(JobFailed)
		return nil, err
	}
	renderNs := time.Since(renderStart).Nanoseconds()

	count := stream.PageCount()
	slots := make([]PageResult, count)
	for i := range slots {
		slots[i] = PageResult{Index: i, Status: PageSkipped}
	}

	if progress != nil {
		progress.OnStart(count)
		defer progress.OnComplete()
	}

	_ = job.transition(JobProcessing)

	workers := min(p.cfg.MaxWorkers, count)
	var (
		wg      sync.WaitGroup
		done    atomic.Int64
		failMu  sync.Mutex
		failErr error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pg := range stream.Pages() {
				if runCtx.Err() != nil {
					return
				}
				res := p.processPage(runCtx, pg, cfg)
				// Each worker writes only its own page's slot.
				slots[pg.Index] = res

				if progress != nil {
					progress.OnProgress(int(done.Add(1)), count)
				}
				if res.Status == PageTimedOut || res.Status == PageEngineError {
					if progress != nil {
						progress.OnError(pg.Index, fmt.Errorf("%s: %s", res.Status, res.Error))
					}
					if p.cfg.FailFast {
						failMu.Lock()
						if failErr == nil {
							failErr = fmt.Errorf("page %d: %s", pg.Index, res.Error)
						}
						failMu.Unlock()
						cancel()
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	if ctx.Err() != nil && !p.cfg.BestEffort {
		_ = job.transition(JobCancelled)
		return nil, ctx.Err()
	}
	if failErr != nil {
		_ = job.transition(JobFailed)
		return nil, fmt.Errorf("fail-fast: %w", failErr)
	}

	_ = job.transition(JobAssembling)
	result := Assemble(doc.Fingerprint, cfg, slots)
	result.Processing.RenderNs = renderNs
	result.Processing.TotalNs = time.Since(totalStart).Nanoseconds()

	switch result.OverallStatus {
	case StatusComplete:
		_ = job.transition(JobCompleted)
	case StatusPartialSuccess:
		_ = job.transition(JobPartialSuccess)
	default:
		_ = job.transition(JobFailed)
	}
	return result, nil
}

// processPage drives one page through recognition and classifies the
// outcome. The raster buffer is dropped on every exit path.
func (p *Pipeline) processPage(ctx context.Context, pg raster.Page, cfg document.RenderConfig) PageResult {
	res := PageResult{Index: pg.Index, Status: PageSkipped}

	if pg.Err != nil {
		res.Status = PageEngineError
		res.Error = "render: " + pg.Err.Error()
		return res
	}

	pageCtx := ctx
	if p.cfg.PageTimeout > 0 {
		var cancel context.CancelFunc
		pageCtx, cancel = context.WithTimeout(ctx, p.cfg.PageTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := p.recognize(pageCtx, pg.Image, cfg)
	res.Processing.RecognizeNs = time.Since(start).Nanoseconds()
	pg.Image = nil

	switch {
	case err == nil:
		res.Status = PageOk
		res.Text = text.Text
		res.Confidence = text.Confidence
		res.Boxes = text.Boxes
	case ctx.Err() != nil:
		// Job cancelled; the slot stays Skipped.
	case engine.IsTimeout(err):
		res.Status = PageTimedOut
		res.Error = "recognition timed out"
	default:
		res.Status = PageEngineError
		res.Error = err.Error()
	}
	return res
}

// recognize runs the engine call in its own goroutine so an engine call
// that cannot be interrupted never holds a worker past the page deadline.
// An abandoned call runs to completion and its result is discarded.
func (p *Pipeline) recognize(ctx context.Context, img image.Image, cfg document.RenderConfig) (engine.PageText, error) {
	type outcome struct {
		text engine.PageText
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		text, err := p.engine.Recognize(ctx, img, cfg)
		ch <- outcome{text: text, err: err}
	}()
	select {
	case out := <-ch:
		return out.text, out.err
	case <-ctx.Done():
		return engine.PageText{}, ctx.Err()
	}
}
