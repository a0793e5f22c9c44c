package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pagetext-io/pagetext/internal/document"
)

func slotsWithStatuses(statuses ...PageStatus) []PageResult {
	slots := make([]PageResult, len(statuses))
	for i, st := range statuses {
		slots[i] = PageResult{Index: i, Status: st}
		if st == PageOk {
			slots[i].Text = "text"
			slots[i].Confidence = 0.9
		}
	}
	return slots
}

func TestAssemble_OverallStatus(t *testing.T) {
	cfg := document.DefaultRenderConfig()

	tests := []struct {
		name     string
		statuses []PageStatus
		want     OverallStatus
	}{
		{"all ok", []PageStatus{PageOk, PageOk, PageOk}, StatusComplete},
		{"one timeout", []PageStatus{PageOk, PageTimedOut, PageOk}, StatusPartialSuccess},
		{"one engine error", []PageStatus{PageEngineError, PageOk}, StatusPartialSuccess},
		{"all failed", []PageStatus{PageTimedOut, PageEngineError}, StatusFailed},
		{"all skipped", []PageStatus{PageSkipped, PageSkipped}, StatusFailed},
		{"no pages", nil, StatusFailed},
		{"single ok", []PageStatus{PageOk}, StatusComplete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Assemble("fp", cfg, slotsWithStatuses(tt.statuses...))
			assert.Equal(t, tt.want, res.OverallStatus)
			assert.Len(t, res.Pages, len(tt.statuses))
			assert.Equal(t, "fp", res.Fingerprint)
			assert.False(t, res.CreatedAt.IsZero())
		})
	}
}

func TestAssemble_PreservesSlotOrder(t *testing.T) {
	slots := slotsWithStatuses(PageOk, PageTimedOut, PageOk, PageSkipped)
	res := Assemble("fp", document.DefaultRenderConfig(), slots)

	assert.NoError(t, Validate(res))
	for i, pg := range res.Pages {
		assert.Equal(t, i, pg.Index)
	}
	assert.Equal(t, PageTimedOut, res.Pages[1].Status)
	assert.Equal(t, PageSkipped, res.Pages[3].Status)
}

func TestPlainText_FormFeedJoin(t *testing.T) {
	res := &DocumentResult{Pages: []PageResult{
		{Index: 0, Status: PageOk, Text: "first"},
		{Index: 1, Status: PageTimedOut},
		{Index: 2, Status: PageOk, Text: "third"},
	}}
	assert.Equal(t, "first\f\fthird", res.PlainText())

	var nilRes *DocumentResult
	assert.Empty(t, nilRes.PlainText())
	assert.Empty(t, (&DocumentResult{}).PlainText())
}
