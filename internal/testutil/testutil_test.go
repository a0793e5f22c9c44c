package testutil

import (
	"bytes"
	"image"
	"image/gif"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextImage(t *testing.T) {
	img := TextImage("Sample Text", 320, 240)
	require.NotNil(t, img)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())
}

func TestPNGBytes_RoundTrip(t *testing.T) {
	data := PNGBytes(t, TextImage("hello", 100, 50))

	decoded, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 100, decoded.Bounds().Dx())
}

func TestMultiPageGIF(t *testing.T) {
	data := MultiPageGIF(t, []string{"one", "two", "three"}, 80, 60)

	g, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, g.Image, 3)
	for _, frame := range g.Image {
		assert.Equal(t, 80, frame.Bounds().Dx())
		assert.Equal(t, 60, frame.Bounds().Dy())
	}
}
