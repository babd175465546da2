package images

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestImage() image.Image {
	// A simple 100x100 solid image.
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 90, A: 255})
		}
	}
	return img
}

func TestResizeFilters(t *testing.T) {
	for _, filter := range []ResampleFilter{FilterBilinear, FilterCatmullRom, FilterLanczos} {
		t.Run(string(filter), func(t *testing.T) {
			out, err := Resize(getTestImage(), 300, 300, filter)
			require.NoError(t, err)
			assert.Equal(t, 300, out.Bounds().Dx())
			assert.Equal(t, 300, out.Bounds().Dy())

			// Solid colours survive any smooth filter.
			r, g, b := RGBAt(out, 150, 150)
			assert.InDelta(t, 200, int(r), 1)
			assert.InDelta(t, 40, int(g), 1)
			assert.InDelta(t, 90, int(b), 1)
		})
	}
}

func TestResizeErrors(t *testing.T) {
	_, err := Resize(getTestImage(), 0, 300, FilterBilinear)
	assert.Error(t, err)

	_, err = Resize(getTestImage(), 300, 300, "nearest")
	assert.Error(t, err)
}

func TestParseResampleFilter(t *testing.T) {
	f, err := ParseResampleFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterBilinear, f)

	f, err = ParseResampleFilter("lanczos")
	require.NoError(t, err)
	assert.Equal(t, FilterLanczos, f)

	_, err = ParseResampleFilter("box")
	assert.Error(t, err)
}

func TestRGBAtSubImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.Set(2, 2, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	sub := img.SubImage(image.Rect(2, 2, 4, 4))

	r, g, b := RGBAt(sub, 0, 0)
	assert.Equal(t, []uint8{1, 2, 3}, []uint8{r, g, b})

	gray := image.NewGray(image.Rect(0, 0, 1, 1))
	gray.SetGray(0, 0, color.Gray{Y: 77})
	r, g, b = RGBAt(gray, 0, 0)
	assert.Equal(t, []uint8{77, 77, 77}, []uint8{r, g, b})
}

func TestFormatFromPath(t *testing.T) {
	f, ok := FormatFromPath("frames/frame-1.JPG")
	assert.True(t, ok)
	assert.Equal(t, FormatJPEG, f)

	_, ok = FormatFromPath("notes.txt")
	assert.False(t, ok)
}
