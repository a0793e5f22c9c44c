package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTesseractLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en", "eng"},
		{"EN", "eng"},
		{"de", "deu"},
		{"fr", "fra"},
		{"zh", "chi_sim"},
		{"zh-TW", "chi_tra"},
		{"eng", "eng"}, // trained-data name passes through
		{"tir", "tir"}, // unknown tags pass through
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tesseractLanguage(tt.in), tt.in)
	}
}

func TestNewTesseract_Defaults(t *testing.T) {
	eng := NewTesseract(TesseractConfig{})
	defer func() { _ = eng.Close() }()

	assert.Equal(t, "tesseract", eng.Name())
	assert.Equal(t, DefaultTesseractConfig().PoolSize, eng.cfg.PoolSize)
}

func TestTesseract_CloseIsIdempotent(t *testing.T) {
	eng := NewTesseract(TesseractConfig{PoolSize: 2})
	assert.NoError(t, eng.Close())
	assert.NoError(t, eng.Close())
}
