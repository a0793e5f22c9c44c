package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"

	"github.com/disintegration/imaging"
	"github.com/pagetext-io/pagetext/internal/document"
)

// RenderError reports a document-level rasterization failure. Page-level
// decode problems travel on the individual Page instead.
type RenderError struct {
	Reason string
	Err    error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render failed: %s: %v", e.Reason, e.Err)
	}
	return "render failed: " + e.Reason
}

func (e *RenderError) Unwrap() error { return e.Err }

// Page is one rasterized document page. Image is nil when Err is set.
// Ownership of the raster buffer passes to the consumer once the page is
// received from the stream; consumers drop the reference after recognition
// so peak memory stays near the worker count.
type Page struct {
	Index  int
	Image  image.Image
	Width  int
	Height int
	Err    error
}

// Config holds rasterizer settings.
type Config struct {
	// MaxPixels caps the decoded size of a single page (0 = no cap).
	MaxPixels int
}

// DefaultConfig returns rasterizer defaults.
func DefaultConfig() Config {
	return Config{MaxPixels: 0}
}

// Rasterizer turns a document into an ordered, lazily produced sequence of
// page images at the requested resolution.
type Rasterizer struct {
	cfg Config
}

// New creates a rasterizer with the given config.
func New(cfg Config) *Rasterizer {
	return &Rasterizer{cfg: cfg}
}

// Render opens the document and returns a stream of pages in natural order.
// The page count is known once Render returns. A *RenderError means no page
// could be produced at all; per-page failures surface on the stream.
func (r *Rasterizer) Render(ctx context.Context, doc *document.Document, cfg document.RenderConfig) (*PageStream, error) {
	if doc == nil {
		return nil, &RenderError{Reason: "nil document"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &RenderError{Reason: "invalid render config", Err: err}
	}

	switch doc.Format {
	case document.FormatPDF:
		return r.renderPDF(ctx, doc, cfg)
	case document.FormatImage:
		return r.renderImage(ctx, doc, cfg)
	default:
		return nil, &RenderError{Reason: fmt.Sprintf("unsupported format %q", doc.Format)}
	}
}

// renderImage handles single-image and multi-frame (GIF) documents.
func (r *Rasterizer) renderImage(ctx context.Context, doc *document.Document, cfg document.RenderConfig) (*PageStream, error) {
	frames, err := decodeFrames(doc.Data)
	if err != nil {
		return nil, &RenderError{Reason: "image decode", Err: err}
	}
	if len(frames) == 0 {
		return nil, &RenderError{Reason: "document has zero pages"}
	}
	doc.PageCount = len(frames)

	stream := newPageStream(len(frames))
	go func() {
		defer stream.close()
		for i, frame := range frames {
			pg := r.preparePage(i, frame, cfg)
			if !stream.emit(ctx, pg) {
				return
			}
			frames[i] = nil
		}
	}()
	return stream, nil
}

// decodeFrames decodes the raw bytes into one image per page. Animated or
// multi-page GIFs contribute one page per frame; every other format is a
// single page.
func decodeFrames(data []byte) ([]image.Image, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if format == "gif" {
		g, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		frames := make([]image.Image, len(g.Image))
		for i, frame := range g.Image {
			frames[i] = frame
		}
		return frames, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return []image.Image{img}, nil
}

// preparePage scales a decoded page to the target DPI and applies the color
// mode. Source images are treated as rendered at DefaultDPI, so a target of
// 300 doubles the edge length of a 150 DPI scan.
func (r *Rasterizer) preparePage(index int, img image.Image, cfg document.RenderConfig) Page {
	b := img.Bounds()
	if r.cfg.MaxPixels > 0 && b.Dx()*b.Dy() > r.cfg.MaxPixels {
		return Page{Index: index, Err: fmt.Errorf("page %d exceeds pixel budget (%dx%d)", index, b.Dx(), b.Dy())}
	}

	if cfg.TargetDPI != document.DefaultDPI {
		scale := float64(cfg.TargetDPI) / float64(document.DefaultDPI)
		w := int(float64(b.Dx())*scale + 0.5)
		h := int(float64(b.Dy())*scale + 0.5)
		if w < 1 || h < 1 {
			return Page{Index: index, Err: fmt.Errorf("page %d collapses to zero size at %d DPI", index, cfg.TargetDPI)}
		}
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}
	if cfg.ColorMode == document.ColorModeGray {
		img = imaging.Grayscale(img)
	}

	nb := img.Bounds()
	return Page{Index: index, Image: img, Width: nb.Dx(), Height: nb.Dy()}
}
