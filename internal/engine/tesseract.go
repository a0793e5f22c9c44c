package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"github.com/pagetext-io/pagetext/internal/document"
)

// TesseractConfig holds settings for the local Tesseract engine.
type TesseractConfig struct {
	// PoolSize bounds the number of concurrently live Tesseract clients.
	// It should match the orchestrator's worker count.
	PoolSize int
	// TessdataPrefix overrides the trained-data directory when set.
	TessdataPrefix string
}

// DefaultTesseractConfig returns defaults for the local engine.
func DefaultTesseractConfig() TesseractConfig {
	return TesseractConfig{PoolSize: 4}
}

// Tesseract recognizes text with a local Tesseract installation via
// gosseract. Clients are pooled and scoped to the engine lifetime; there is
// no process-wide engine handle.
type Tesseract struct {
	cfg     TesseractConfig
	pool    chan *gosseract.Client
	mu      sync.Mutex
	created int
	closed  bool
}

// NewTesseract creates a pooled Tesseract engine.
func NewTesseract(cfg TesseractConfig) *Tesseract {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultTesseractConfig().PoolSize
	}
	return &Tesseract{
		cfg:  cfg,
		pool: make(chan *gosseract.Client, cfg.PoolSize),
	}
}

func (t *Tesseract) Name() string { return "tesseract" }

// Recognize runs OCR on one page image. Safe for concurrent use; each call
// borrows a pooled client for its duration.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, cfg document.RenderConfig) (PageText, error) {
	if img == nil {
		return PageText{}, &EngineError{Engine: t.Name(), Err: fmt.Errorf("nil page image")}
	}

	client, err := t.acquire(ctx)
	if err != nil {
		return PageText{}, err
	}
	defer t.release(client)

	if err := t.configure(client, cfg); err != nil {
		return PageText{}, &EngineError{Engine: t.Name(), Err: err}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return PageText{}, &EngineError{Engine: t.Name(), Err: fmt.Errorf("encode page: %w", err)}
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return PageText{}, &EngineError{Engine: t.Name(), Err: fmt.Errorf("set image: %w", err)}
	}

	// The underlying C call cannot be interrupted; the caller's deadline is
	// checked again once it returns.
	text, err := client.Text()
	if err != nil {
		return PageText{}, &EngineError{Engine: t.Name(), Err: fmt.Errorf("recognize: %w", err)}
	}
	if err := ctx.Err(); err != nil {
		return PageText{}, err
	}

	boxes := wordBoxes(client)
	text = strings.TrimSpace(text)
	return PageText{
		Text:       text,
		Confidence: MeanBoxConfidence(text, boxes),
		Boxes:      boxes,
	}, nil
}

// configure applies language, DPI and caller-supplied engine options.
func (t *Tesseract) configure(client *gosseract.Client, cfg document.RenderConfig) error {
	if cfg.Language != "" {
		if err := client.SetLanguage(tesseractLanguage(cfg.Language)); err != nil {
			return fmt.Errorf("set language: %w", err)
		}
	}
	if cfg.TargetDPI > 0 {
		if err := client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(cfg.TargetDPI)); err != nil {
			return fmt.Errorf("set dpi: %w", err)
		}
	}
	for k, v := range cfg.EngineOptions {
		if err := client.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return fmt.Errorf("set option %s: %w", k, err)
		}
	}
	return nil
}

// wordBoxes reads per-word geometry and confidence. Tesseract reports
// confidence on a 0-100 scale.
func wordBoxes(client *gosseract.Client) []Box {
	raw, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(raw) == 0 {
		return nil
	}
	boxes := make([]Box, 0, len(raw))
	for _, bb := range raw {
		word := strings.TrimSpace(bb.Word)
		if word == "" {
			continue
		}
		boxes = append(boxes, Box{
			Text:       word,
			X:          bb.Box.Min.X,
			Y:          bb.Box.Min.Y,
			W:          bb.Box.Dx(),
			H:          bb.Box.Dy(),
			Confidence: bb.Confidence / 100.0,
		})
	}
	return boxes
}

// acquire takes a client from the pool, creating one while under the cap.
func (t *Tesseract) acquire(ctx context.Context) (*gosseract.Client, error) {
	select {
	case client := <-t.pool:
		return client, nil
	default:
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, &EngineError{Engine: t.Name(), Err: fmt.Errorf("engine closed")}
	}
	if t.created < t.cfg.PoolSize {
		t.created++
		t.mu.Unlock()
		client := gosseract.NewClient()
		if t.cfg.TessdataPrefix != "" {
			client.TessdataPrefix = t.cfg.TessdataPrefix
		}
		return client, nil
	}
	t.mu.Unlock()

	select {
	case client := <-t.pool:
		return client, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Tesseract) release(client *gosseract.Client) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		_ = client.Close()
		return
	}
	select {
	case t.pool <- client:
	default:
		_ = client.Close()
	}
}

// Close drains and closes all pooled clients. In-flight calls release their
// client afterwards, which closes it instead of repooling.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	for {
		select {
		case client := <-t.pool:
			_ = client.Close()
		default:
			return nil
		}
	}
}

// tesseractLanguage maps common BCP-47 tags onto Tesseract trained-data
// names. Unknown tags pass through unchanged so callers can name trained
// data directly.
func tesseractLanguage(lang string) string {
	switch strings.ToLower(lang) {
	case "en":
		return "eng"
	case "de":
		return "deu"
	case "fr":
		return "fra"
	case "es":
		return "spa"
	case "it":
		return "ita"
	case "pt":
		return "por"
	case "nl":
		return "nld"
	case "hi":
		return "hin"
	case "zh", "zh-cn":
		return "chi_sim"
	case "zh-tw":
		return "chi_tra"
	default:
		return lang
	}
}
