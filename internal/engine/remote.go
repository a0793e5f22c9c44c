package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"time"

	"github.com/pagetext-io/pagetext/internal/document"
)

// RemoteConfig holds settings for the HTTP recognition engine.
type RemoteConfig struct {
	// Endpoint is the recognition URL; the page image is POSTed as PNG.
	Endpoint string
	// RequestTimeout bounds one recognition round trip (0 = rely on the
	// caller's context only).
	RequestTimeout time.Duration
}

// Remote delegates recognition to an HTTP service that accepts a PNG body
// and returns JSON {text, confidence, boxes}. The service owns the
// recognition algorithm; this adapter only moves bytes.
type Remote struct {
	cfg    RemoteConfig
	client *http.Client
}

// NewRemote creates a remote engine. A nil http.Client uses a default one.
func NewRemote(cfg RemoteConfig, client *http.Client) (*Remote, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("remote engine: endpoint is required")
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Remote{cfg: cfg, client: client}, nil
}

func (r *Remote) Name() string { return "remote" }

// remoteResponse mirrors the service's JSON contract. Confidence is native
// here; the service reports it directly.
type remoteResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Boxes      []Box   `json:"boxes,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Recognize POSTs the page to the service and decodes the response.
func (r *Remote) Recognize(ctx context.Context, img image.Image, cfg document.RenderConfig) (PageText, error) {
	if img == nil {
		return PageText{}, &EngineError{Engine: r.Name(), Err: errors.New("nil page image")}
	}

	if r.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.RequestTimeout)
		defer cancel()
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return PageText{}, &EngineError{Engine: r.Name(), Err: fmt.Errorf("encode page: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Endpoint, &buf)
	if err != nil {
		return PageText{}, &EngineError{Engine: r.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "image/png")
	if cfg.Language != "" {
		req.Header.Set("X-Recognition-Language", cfg.Language)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return PageText{}, ctx.Err()
		}
		return PageText{}, &EngineError{Engine: r.Name(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return PageText{}, &EngineError{Engine: r.Name(), Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return PageText{}, &EngineError{Engine: r.Name(), Err: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))}
	}

	var out remoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return PageText{}, &EngineError{Engine: r.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Error != "" {
		return PageText{}, &EngineError{Engine: r.Name(), Err: errors.New(out.Error)}
	}

	conf := out.Confidence
	if conf < 0 || conf > 1 {
		conf = SynthesizeConfidence(out.Text)
	}
	return PageText{Text: out.Text, Confidence: conf, Boxes: out.Boxes}, nil
}

func (r *Remote) Close() error { return nil }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
