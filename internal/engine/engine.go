// Package engine defines the recognition boundary: one page image in, one
// recognized text with confidence out. The recognition algorithm itself is
// opaque; implementations wrap an external capability (a local Tesseract
// installation or a remote HTTP service).
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/pagetext-io/pagetext/internal/document"
)

// Box ties a recognized text span to a rectangle in page pixel coordinates.
type Box struct {
	Text       string  `json:"text"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	W          int     `json:"w"`
	H          int     `json:"h"`
	Confidence float64 `json:"confidence"`
}

// PageText is the recognition output for a single page image. Confidence is
// in [0,1]; 0 means no recognizable text, 1 maximum engine confidence.
// Engines without native confidence synthesize one (see SynthesizeConfidence).
type PageText struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Boxes      []Box   `json:"boxes,omitempty"`
}

// EngineError reports a recognition failure that is not a timeout: engine
// crash, unsupported language, malformed image.
type EngineError struct {
	Engine string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Engine, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// ErrTimeout marks a recognition attempt that exceeded its deadline. The
// orchestrator also treats context.DeadlineExceeded as a timeout, so
// engines that simply propagate their context error need no special case.
var ErrTimeout = errors.New("recognition timed out")

// Engine is the opaque recognition capability. Implementations must be safe
// for concurrent calls; per-call state lives in the call, not the receiver.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image, cfg document.RenderConfig) (PageText, error)
	Close() error
}

// IsTimeout reports whether err represents a per-page recognition timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// SynthesizeConfidence produces the documented deterministic placeholder for
// engines that do not report confidence natively: 0 for empty output and
// 0.5 for any non-empty text.
func SynthesizeConfidence(text string) float64 {
	if text == "" {
		return 0
	}
	return 0.5
}

// MeanBoxConfidence averages per-box confidences, clamped to [0,1]. It
// falls back to the synthesized placeholder when no boxes are available.
func MeanBoxConfidence(text string, boxes []Box) float64 {
	if len(boxes) == 0 {
		return SynthesizeConfidence(text)
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	mean := sum / float64(len(boxes))
	if mean < 0 {
		return 0
	}
	if mean > 1 {
		return 1
	}
	return mean
}
