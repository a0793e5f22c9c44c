package raster

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagetext-io/pagetext/internal/document"
	"github.com/pagetext-io/pagetext/internal/testutil"
)

func renderAll(t *testing.T, data []byte, cfg document.RenderConfig) []Page {
	t.Helper()

	doc, err := document.New(data)
	require.NoError(t, err)

	stream, err := New(DefaultConfig()).Render(context.Background(), doc, cfg)
	require.NoError(t, err)

	var pages []Page
	for pg := range stream.Pages() {
		pages = append(pages, pg)
	}
	require.Len(t, pages, stream.PageCount())
	return pages
}

func TestRender_SingleImage(t *testing.T) {
	data := testutil.PNGBytes(t, testutil.TextImage("Hello World", 320, 240))
	pages := renderAll(t, data, document.DefaultRenderConfig())

	require.Len(t, pages, 1)
	pg := pages[0]
	require.NoError(t, pg.Err)
	assert.Equal(t, 0, pg.Index)
	assert.Equal(t, 320, pg.Width)
	assert.Equal(t, 240, pg.Height)
	require.NotNil(t, pg.Image)

	// Gray mode routes the page through the grayscale filter.
	assert.IsType(t, &image.NRGBA{}, pg.Image)
}

func TestRender_DPIScaling(t *testing.T) {
	data := testutil.PNGBytes(t, testutil.TextImage("scaled", 200, 100))

	cfg := document.DefaultRenderConfig()
	cfg.TargetDPI = 300 // double the assumed 150 DPI source
	pages := renderAll(t, data, cfg)

	require.Len(t, pages, 1)
	require.NoError(t, pages[0].Err)
	assert.Equal(t, 400, pages[0].Width)
	assert.Equal(t, 200, pages[0].Height)
}

func TestRender_MultiPageGIF(t *testing.T) {
	data := testutil.MultiPageGIF(t, []string{"page one", "page two", "page three"}, 160, 120)

	doc, err := document.New(data)
	require.NoError(t, err)
	assert.Equal(t, document.FormatImage, doc.Format)

	pages := renderAll(t, data, document.DefaultRenderConfig())
	require.Len(t, pages, 3)
	for i, pg := range pages {
		require.NoError(t, pg.Err)
		assert.Equal(t, i, pg.Index, "pages must arrive in natural order")
	}
	assert.Equal(t, 3, doc.PageCount)
}

func TestRender_InvalidConfig(t *testing.T) {
	data := testutil.PNGBytes(t, testutil.TextImage("x", 50, 50))
	doc, err := document.New(data)
	require.NoError(t, err)

	cfg := document.RenderConfig{TargetDPI: 0, ColorMode: document.ColorModeGray}
	_, err = New(DefaultConfig()).Render(context.Background(), doc, cfg)

	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
}

func TestRender_PixelBudget(t *testing.T) {
	data := testutil.PNGBytes(t, testutil.TextImage("big", 200, 200))
	doc, err := document.New(data)
	require.NoError(t, err)

	stream, err := New(Config{MaxPixels: 100}).Render(context.Background(), doc, document.DefaultRenderConfig())
	require.NoError(t, err)

	pg := <-stream.Pages()
	require.Error(t, pg.Err)
	assert.Nil(t, pg.Image)
}

func TestRender_Cancellation(t *testing.T) {
	data := testutil.MultiPageGIF(t, []string{"a", "b", "c", "d", "e"}, 80, 60)
	doc, err := document.New(data)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := New(DefaultConfig()).Render(ctx, doc, document.DefaultRenderConfig())
	require.NoError(t, err)

	// Consume one page, then cancel and abandon the stream without
	// draining. The producer must close the channel instead of blocking
	// forever on a full buffer.
	first := <-stream.Pages()
	assert.Equal(t, 0, first.Index)
	cancel()

	done := make(chan struct{})
	go func() {
		for range stream.Pages() {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("producer did not terminate after cancellation")
	}
}
