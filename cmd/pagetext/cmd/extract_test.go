package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagetext-io/pagetext/internal/config"
	"github.com/pagetext-io/pagetext/internal/document"
	"github.com/pagetext-io/pagetext/internal/pipeline"
	"github.com/pagetext-io/pagetext/internal/testutil"
)

func TestFormatResult(t *testing.T) {
	res := pipeline.Assemble("fp", document.DefaultRenderConfig(), []pipeline.PageResult{
		{Index: 0, Status: pipeline.PageOk, Text: "hello", Confidence: 0.9},
	})

	text, err := formatResult(res, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "hello")

	jsonOut, err := formatResult(res, "json")
	require.NoError(t, err)
	assert.Contains(t, jsonOut, `"fingerprint": "fp"`)

	csvOut, err := formatResult(res, "csv")
	require.NoError(t, err)
	assert.Contains(t, csvOut, "index,status,confidence,text")
}

func TestLoadDocument(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := loadDocument(filepath.Join(t.TempDir(), "nope.pdf"), "")
		assert.Error(t, err)
	})

	t.Run("plain read without page range", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "scan.png")
		data := testutil.PNGBytes(t, testutil.TextImage("x", 40, 40))
		require.NoError(t, os.WriteFile(path, data, 0o600))

		got, err := loadDocument(path, "")
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("page range rejected for images", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "scan.png")
		require.NoError(t, os.WriteFile(path, testutil.PNGBytes(t, testutil.TextImage("x", 40, 40)), 0o600))

		_, err := loadDocument(path, "1-2")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PDF")
	})

	t.Run("invalid page range", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "doc.pdf")
		require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\nstub"), 0o600))

		_, err := loadDocument(path, "5-2")
		assert.Error(t, err)
	})
}

func TestBuildEngine(t *testing.T) {
	t.Run("default tesseract", func(t *testing.T) {
		cfg := &config.Config{}
		eng, err := buildEngine(cfg, 2)
		require.NoError(t, err)
		defer func() { _ = eng.Close() }()
		assert.Equal(t, "tesseract", eng.Name())
	})

	t.Run("remote", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Engine.Backend = "remote"
		cfg.Engine.Remote.Endpoint = "http://localhost:9000/recognize"
		eng, err := buildEngine(cfg, 2)
		require.NoError(t, err)
		assert.Equal(t, "remote", eng.Name())
	})

	t.Run("remote without endpoint", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Engine.Backend = "remote"
		_, err := buildEngine(cfg, 2)
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Engine.Backend = "abbyy"
		_, err := buildEngine(cfg, 2)
		assert.Error(t, err)
	})
}
