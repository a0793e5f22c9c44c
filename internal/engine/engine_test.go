package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(ErrTimeout))
	assert.True(t, IsTimeout(fmt.Errorf("page 3: %w", ErrTimeout)))
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.False(t, IsTimeout(context.Canceled))
	assert.False(t, IsTimeout(errors.New("engine crashed")))
	assert.False(t, IsTimeout(nil))
}

func TestEngineError_Unwrap(t *testing.T) {
	inner := errors.New("segfault in native code")
	err := &EngineError{Engine: "tesseract", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "tesseract")
	assert.Contains(t, err.Error(), "segfault")
}

func TestSynthesizeConfidence(t *testing.T) {
	assert.Equal(t, 0.0, SynthesizeConfidence(""))
	assert.Equal(t, 0.5, SynthesizeConfidence("hello"))
	assert.Equal(t, 0.5, SynthesizeConfidence(" "))
}

func TestMeanBoxConfidence(t *testing.T) {
	t.Run("no boxes falls back to synthesized", func(t *testing.T) {
		assert.Equal(t, 0.5, MeanBoxConfidence("text", nil))
		assert.Equal(t, 0.0, MeanBoxConfidence("", nil))
	})

	t.Run("averages box confidences", func(t *testing.T) {
		boxes := []Box{{Confidence: 0.8}, {Confidence: 0.6}}
		assert.InDelta(t, 0.7, MeanBoxConfidence("text", boxes), 1e-9)
	})

	t.Run("clamps out-of-range values", func(t *testing.T) {
		assert.Equal(t, 1.0, MeanBoxConfidence("x", []Box{{Confidence: 3.0}}))
		assert.Equal(t, 0.0, MeanBoxConfidence("x", []Box{{Confidence: -2.0}}))
	})
}
