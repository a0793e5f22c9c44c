package pipeline

import (
	"time"

	"github.com/pagetext-io/pagetext/internal/document"
	"github.com/pagetext-io/pagetext/internal/engine"
)

// PageStatus is the terminal outcome of one page's render+recognize unit.
type PageStatus string

const (
	PageOk          PageStatus = "ok"
	PageTimedOut    PageStatus = "timeout"
	PageEngineError PageStatus = "engine_error"
	PageSkipped     PageStatus = "skipped"
)

// OverallStatus summarizes a whole document run.
type OverallStatus string

const (
	StatusComplete       OverallStatus = "complete"
	StatusPartialSuccess OverallStatus = "partial_success"
	StatusFailed         OverallStatus = "failed"
)

// PageResult is the recognition outcome for a single page. Failed pages
// keep their slot with empty text; they are never omitted from the result.
type PageResult struct {
	Index      int          `json:"index"`
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"`
	Boxes      []engine.Box `json:"boxes,omitempty"`
	Status     PageStatus   `json:"status"`
	Error      string       `json:"error,omitempty"`
	Processing struct {
		RecognizeNs int64 `json:"recognize_ns"`
	} `json:"processing"`
}

// DocumentResult is the ordered, assembled output for one document and
// render config. Pages are dense and index-ordered regardless of the order
// in which recognition completed.
type DocumentResult struct {
	Fingerprint   string                `json:"fingerprint"`
	Config        document.RenderConfig `json:"config"`
	Pages         []PageResult          `json:"pages"`
	OverallStatus OverallStatus         `json:"overall_status"`
	CreatedAt     time.Time             `json:"created_at"`
	Processing    struct {
		RenderNs int64 `json:"render_ns"`
		TotalNs  int64 `json:"total_ns"`
	} `json:"processing"`
}

// PlainText joins the recognized page texts in page order, separated by
// form feeds, mirroring how multi-page OCR tools concatenate output.
func (r *DocumentResult) PlainText() string {
	if r == nil || len(r.Pages) == 0 {
		return ""
	}
	out := make([]byte, 0, 256)
	for i, pg := range r.Pages {
		if i > 0 {
			out = append(out, '\f')
		}
		out = append(out, pg.Text...)
	}
	return string(out)
}
