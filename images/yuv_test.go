package images

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-sightline/frame"
)

func TestToNRGBASolidColour(t *testing.T) {
	f := frame.NewI420(16, 8)
	f.Fill(120, 90, 200)

	img, err := ToNRGBA(f)
	require.NoError(t, err)

	wantR, wantG, wantB := color.YCbCrToRGB(120, 90, 200)
	r, g, b := RGBAt(img, 3, 5)
	assert.Equal(t, []uint8{wantR, wantG, wantB}, []uint8{r, g, b})
}

func TestToYCbCrSemiPlanar(t *testing.T) {
	uv := make([]byte, 2*2*2)
	f := &frame.Frame{
		Width: 4, Height: 4,
		Y: make([]byte, 16), YStride: 4,
		U: uv, V: uv[1:], UVStride: 4, UVPixelStride: 2,
	}
	f.Fill(50, 60, 70)

	ycc, err := ToYCbCr(f)
	require.NoError(t, err)
	assert.Equal(t, 2, ycc.CStride)
	assert.Equal(t, []byte{60, 60, 60, 60}, ycc.Cb)
	assert.Equal(t, []byte{70, 70, 70, 70}, ycc.Cr)
}

func TestToYCbCrRejectsInvalidFrame(t *testing.T) {
	f := frame.NewI420(4, 4)
	f.Y = f.Y[:3]

	_, err := ToYCbCr(f)
	assert.Error(t, err)
}

func TestToNRGBAAppliesRotation(t *testing.T) {
	f := frame.NewI420(8, 4)
	f.Rotation = frame.Rotate90

	img, err := ToNRGBA(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 8), img.Bounds())
}

func TestRotateClockwise(t *testing.T) {
	// 2x1 raster: red on the left, blue on the right.
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{B: 255, A: 255})

	out := Rotate(img, frame.Rotate90)
	require.Equal(t, image.Rect(0, 0, 1, 2), out.Bounds())
	r, _, _ := RGBAt(out, 0, 0)
	_, _, b := RGBAt(out, 0, 1)
	assert.Equal(t, uint8(255), r, "left pixel moves to the top")
	assert.Equal(t, uint8(255), b)

	assert.Same(t, img, Rotate(img, frame.Rotate0))
}

func TestFromImageRoundTrip(t *testing.T) {
	src := getTestImage()
	f := FromImage(src)
	require.NoError(t, f.Validate())
	assert.Equal(t, 100, f.Width)

	img, err := ToNRGBA(f)
	require.NoError(t, err)
	r, g, b := RGBAt(img, 10, 10)
	assert.InDelta(t, 200, int(r), 3)
	assert.InDelta(t, 40, int(g), 3)
	assert.InDelta(t, 90, int(b), 3)
}
