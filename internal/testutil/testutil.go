// Package testutil provides helpers for generating synthetic documents
// in tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TextImage renders text centered on a white background. The output is
// deliberately plain so recognition engines have an easy target.
func TextImage(text string, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: face,
	}
	textWidth := font.MeasureString(face, text).Ceil()
	textHeight := face.Metrics().Height.Ceil()
	x := (width - textWidth) / 2
	y := (height + textHeight) / 2
	drawer.Dot = fixed.P(x, y)
	drawer.DrawString(text)
	return img
}

// PNGBytes encodes an image as PNG.
func PNGBytes(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// MultiPageGIF builds an animated GIF with one frame per text entry.
// Animated GIFs are the lightest way to exercise multi-page handling
// without shipping PDF fixtures.
func MultiPageGIF(t *testing.T, texts []string, width, height int) []byte {
	t.Helper()

	anim := &gif.GIF{}
	pal := color.Palette{color.White, color.Black}
	for _, text := range texts {
		src := TextImage(text, width, height)
		frame := image.NewPaletted(src.Bounds(), pal)
		draw.Draw(frame, frame.Bounds(), src, image.Point{}, draw.Src)
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 0)
	}

	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, anim))
	return buf.Bytes()
}
