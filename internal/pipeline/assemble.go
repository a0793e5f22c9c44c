package pipeline

import (
	"time"

	"github.com/pagetext-io/pagetext/internal/document"
)

// Assemble merges per-page slots into a DocumentResult. It is a pure,
// index-addressed merge: slots arrive in index order and are never
// reordered, regardless of the order recognition completed in. Slots a
// terminated job never filled keep their Skipped status.
//
// Overall status follows the page outcomes: Complete when every page is Ok,
// Failed when no page is, PartialSuccess otherwise.
func Assemble(fingerprint string, cfg document.RenderConfig, slots []PageResult) *DocumentResult {
	ok := 0
	for i := range slots {
		if slots[i].Status == PageOk {
			ok++
		}
	}

	status := StatusPartialSuccess
	switch {
	case len(slots) > 0 && ok == len(slots):
		status = StatusComplete
	case ok == 0:
		status = StatusFailed
	}

	return &DocumentResult{
		Fingerprint:   fingerprint,
		Config:        cfg,
		Pages:         slots,
		OverallStatus: status,
		CreatedAt:     time.Now().UTC(),
	}
}
