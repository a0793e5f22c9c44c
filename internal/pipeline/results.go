package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ToJSON serializes a DocumentResult to pretty JSON.
func ToJSON(res *DocumentResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToPlainText renders the recognized text page by page with a header line
// per page, keeping failed pages visible instead of silently dropping them.
func ToPlainText(res *DocumentResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	var buf bytes.Buffer
	for _, pg := range res.Pages {
		fmt.Fprintf(&buf, "--- page %d (%s) ---\n", pg.Index+1, pg.Status)
		if pg.Text != "" {
			buf.WriteString(pg.Text)
			buf.WriteByte('\n')
		}
	}
	return buf.String(), nil
}

// ToCSV exports per-page structured data as CSV with header.
func ToCSV(res *DocumentResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"index", "status", "confidence", "text"})
	for _, pg := range res.Pages {
		row := []string{
			strconv.Itoa(pg.Index),
			string(pg.Status),
			fmt.Sprintf("%.3f", pg.Confidence),
			pg.Text,
		}
		_ = w.Write(row)
	}
	w.Flush()
	return buf.String(), nil
}

// Validate performs consistency checks on an assembled result: dense
// zero-based indices and confidences in range.
func Validate(res *DocumentResult) error {
	if res == nil {
		return errors.New("nil result")
	}
	for i, pg := range res.Pages {
		if pg.Index != i {
			return fmt.Errorf("page slot %d carries index %d", i, pg.Index)
		}
		if pg.Confidence < 0 || pg.Confidence > 1 {
			return fmt.Errorf("page %d confidence out of range: %f", i, pg.Confidence)
		}
	}
	return nil
}
