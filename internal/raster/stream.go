package raster

import "context"

// streamBuffer bounds how many decoded pages may sit between the producer
// and the consumers. Kept small so peak memory tracks the worker count
// rather than the document length.
const streamBuffer = 1

// PageStream delivers rasterized pages in natural order. The page count is
// fixed when the stream is created; the channel closes once every page has
// been emitted or the consumer's context is cancelled.
type PageStream struct {
	pages chan Page
	count int
}

func newPageStream(count int) *PageStream {
	return &PageStream{
		pages: make(chan Page, streamBuffer),
		count: count,
	}
}

// Pages returns the ordered page channel.
func (s *PageStream) Pages() <-chan Page { return s.pages }

// PageCount returns the total number of pages the stream will produce.
func (s *PageStream) PageCount() int { return s.count }

// emit sends one page, honoring cancellation. It reports whether the
// consumer is still listening.
func (s *PageStream) emit(ctx context.Context, pg Page) bool {
	select {
	case s.pages <- pg:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *PageStream) close() { close(s.pages) }
