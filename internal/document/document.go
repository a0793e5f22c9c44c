package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	"golang.org/x/text/language"
)

// Format identifies the container type of an uploaded document.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatImage Format = "image"
)

// PageCountUnknown marks documents whose page count is only known after
// rasterization (paged formats).
const PageCountUnknown = -1

// pdfMagic is the header every PDF file starts with.
var pdfMagic = []byte("%PDF-")

// ValidationError reports a malformed or unsupported input document.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid document: " + e.Reason
}

// Document is an immutable input artifact identified by a content
// fingerprint. The raw bytes live only as long as a result is being
// computed; callers should drop the Document once a DocumentResult exists.
type Document struct {
	Data        []byte
	Format      Format
	Fingerprint string
	PageCount   int
}

// New sniffs the document format, computes the content fingerprint and
// returns a Document ready for rasterization. It returns a *ValidationError
// for empty or unrecognized input.
func New(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, &ValidationError{Reason: "empty input"}
	}

	format, err := detectFormat(data)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	doc := &Document{
		Data:        data,
		Format:      format,
		Fingerprint: hex.EncodeToString(sum[:]),
		PageCount:   PageCountUnknown,
	}
	if format == FormatImage {
		doc.PageCount = 1
	}
	return doc, nil
}

// detectFormat recognizes PDFs by magic bytes and images by a registered
// decoder. Anything else is a validation failure.
func detectFormat(data []byte) (Format, error) {
	if bytes.HasPrefix(data, pdfMagic) {
		return FormatPDF, nil
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return FormatImage, nil
	}
	return "", &ValidationError{Reason: "unrecognized format (expected PDF or raster image)"}
}

// ColorMode selects the raster color space.
type ColorMode string

const (
	ColorModeGray  ColorMode = "gray"
	ColorModeColor ColorMode = "color"
)

// RenderConfig controls rasterization and recognition for one submission.
// Two configs with equal fields are interchangeable for caching purposes.
type RenderConfig struct {
	TargetDPI     int               `json:"target_dpi"`
	ColorMode     ColorMode         `json:"color_mode"`
	Language      string            `json:"language,omitempty"`
	EngineOptions map[string]string `json:"engine_options,omitempty"`
}

// DefaultDPI is the assumed resolution of decoded page images and the
// default render target.
const DefaultDPI = 150

// DefaultRenderConfig returns the config used when the caller does not
// specify one.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		TargetDPI: DefaultDPI,
		ColorMode: ColorModeGray,
		Language:  "en",
	}
}

// Validate checks field ranges and the language tag.
func (c RenderConfig) Validate() error {
	if c.TargetDPI <= 0 {
		return fmt.Errorf("target DPI must be > 0, got %d", c.TargetDPI)
	}
	if c.ColorMode != ColorModeGray && c.ColorMode != ColorModeColor {
		return fmt.Errorf("unsupported color mode %q", c.ColorMode)
	}
	if c.Language != "" {
		if _, err := language.Parse(c.Language); err != nil {
			return fmt.Errorf("invalid recognition language %q: %w", c.Language, err)
		}
	}
	return nil
}

// Key returns a deterministic string encoding of the config. Together with
// the document fingerprint it forms the cache key, so it must be stable
// across runs and independent of map iteration order.
func (c RenderConfig) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dpi=%d;mode=%s;lang=%s", c.TargetDPI, c.ColorMode, c.Language)
	if len(c.EngineOptions) > 0 {
		keys := make([]string, 0, len(c.EngineOptions))
		for k := range c.EngineOptions {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, ";opt:%s=%s", k, c.EngineOptions[k])
		}
	}
	return b.String()
}

// CacheKey combines a document fingerprint with a render config key.
func CacheKey(fingerprint string, cfg RenderConfig) string {
	return fingerprint + "|" + cfg.Key()
}
