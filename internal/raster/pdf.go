package raster

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pagetext-io/pagetext/internal/document"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// renderPDF extracts the page images of a PDF via pdfcpu and streams them
// in page order. Extraction happens up front (it is cheap relative to
// decode and recognition); decoding and scaling run lazily in the producer
// goroutine so consumers can start recognizing early pages immediately.
func (r *Rasterizer) renderPDF(ctx context.Context, doc *document.Document, cfg document.RenderConfig) (*PageStream, error) {
	tempDir, err := os.MkdirTemp("", "pagetext-render-*")
	if err != nil {
		return nil, &RenderError{Reason: "temp dir", Err: err}
	}

	pdfPath := filepath.Join(tempDir, "input.pdf")
	if err := os.WriteFile(pdfPath, doc.Data, 0o600); err != nil {
		_ = os.RemoveAll(tempDir)
		return nil, &RenderError{Reason: "write temp file", Err: err}
	}

	pageCount, err := api.PageCountFile(pdfPath)
	if err != nil {
		_ = os.RemoveAll(tempDir)
		return nil, &RenderError{Reason: "corrupt or unsupported PDF", Err: err}
	}
	if pageCount == 0 {
		_ = os.RemoveAll(tempDir)
		return nil, &RenderError{Reason: "document has zero pages"}
	}

	if err := api.ExtractImagesFile(pdfPath, tempDir, nil, nil); err != nil {
		_ = os.RemoveAll(tempDir)
		return nil, &RenderError{Reason: "image extraction", Err: err}
	}

	pageFiles, err := collectPageFiles(tempDir)
	if err != nil {
		_ = os.RemoveAll(tempDir)
		return nil, &RenderError{Reason: "collect extracted images", Err: err}
	}

	doc.PageCount = pageCount

	stream := newPageStream(pageCount)
	go func() {
		defer func() { _ = os.RemoveAll(tempDir) }()
		defer stream.close()
		for i := range pageCount {
			pg := r.loadPDFPage(i, pageFiles[i+1], cfg)
			if !stream.emit(ctx, pg) {
				return
			}
		}
	}()
	return stream, nil
}

// loadPDFPage decodes the extracted image for one page. pdfcpu numbers
// pages from 1; stream indices are zero-based.
func (r *Rasterizer) loadPDFPage(index int, paths []string, cfg document.RenderConfig) Page {
	if len(paths) == 0 {
		return Page{Index: index, Err: fmt.Errorf("page %d has no raster content", index)}
	}
	// A page can carry several image objects; the largest one is the page
	// scan in every scanned-document PDF we care about.
	var best image.Image
	for _, path := range paths {
		img, err := loadImageFile(path)
		if err != nil {
			continue
		}
		if best == nil || area(img) > area(best) {
			best = img
		}
	}
	if best == nil {
		return Page{Index: index, Err: fmt.Errorf("page %d: no decodable image", index)}
	}
	return r.preparePage(index, best, cfg)
}

func area(img image.Image) int {
	b := img.Bounds()
	return b.Dx() * b.Dy()
}

// loadImageFile opens and decodes a single extracted image file.
func loadImageFile(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // G304: paths come from our own temp dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	return img, err
}

// collectPageFiles groups extracted image paths by 1-based page number.
// pdfcpu names extracted files like input_page_1_Im0.png.
func collectPageFiles(dir string) (map[int][]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	result := make(map[int][]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		pageNum, err := parsePageFromFilename(entry.Name())
		if err != nil {
			continue
		}
		result[pageNum] = append(result[pageNum], filepath.Join(dir, entry.Name()))
	}
	for _, paths := range result {
		sort.Strings(paths)
	}
	return result, nil
}

// parsePageFromFilename pulls the page number out of a pdfcpu extract
// filename. The token after "page" is the 1-based page number.
func parsePageFromFilename(name string) (int, error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(base, "_")
	for i, part := range parts {
		if part == "page" && i+1 < len(parts) {
			return strconv.Atoi(parts[i+1])
		}
	}
	return 0, fmt.Errorf("no page number in %q", name)
}

// ParsePageRange parses a selection like "1-5" or "1,3,5" into 1-based page
// numbers. An empty string selects all pages.
func ParsePageRange(pageRange string) ([]int, error) {
	if pageRange == "" {
		return nil, nil
	}
	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

func parseRangeToken(part string) ([]int, error) {
	if strings.Contains(part, "-") {
		bounds := strings.SplitN(part, "-", 2)
		start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", bounds[0])
		}
		end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", bounds[1])
		}
		if start < 1 || start > end {
			return nil, fmt.Errorf("invalid range %s", part)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := strconv.Atoi(part)
	if err != nil || page < 1 {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}
