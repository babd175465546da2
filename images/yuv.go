// Package images - Colour-space conversion between planar YUV frames and Go rasters.
package images

import (
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/disintegration/imaging"

	"github.com/nvr-ai/go-sightline/frame"
)

// ToYCbCr exposes a planar frame as a 4:2:0 image.YCbCr.
//
// Fully planar frames are wrapped without copying. Semi-planar frames (chroma pixel stride
// greater than one) are de-interleaved into fresh chroma planes.
//
// Arguments:
//   - f: The frame to convert. It must pass Validate.
//
// Returns:
//   - *image.YCbCr: A view of the frame.
//   - error: An error if the frame geometry is inconsistent.
func ToYCbCr(f *frame.Frame) (*image.YCbCr, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}

	img := &image.YCbCr{
		Y:              f.Y,
		YStride:        f.YStride,
		Cb:             f.U,
		Cr:             f.V,
		CStride:        f.UVStride,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, f.Width, f.Height),
	}
	if f.UVPixelStride == 1 {
		return img, nil
	}

	cw, ch := frame.ChromaSize(f.Width, f.Height)
	cb := make([]byte, cw*ch)
	cr := make([]byte, cw*ch)
	for row := 0; row < ch; row++ {
		for col := 0; col < cw; col++ {
			src := row*f.UVStride + col*f.UVPixelStride
			cb[row*cw+col] = f.U[src]
			cr[row*cw+col] = f.V[src]
		}
	}
	img.Cb, img.Cr, img.CStride = cb, cr, cw
	return img, nil
}

// ToNRGBA converts a planar frame into an interleaved, upright RGB raster, applying the
// frame's sensor rotation.
//
// Arguments:
//   - f: The frame to convert.
//
// Returns:
//   - *image.NRGBA: The converted raster.
//   - error: An error if the frame geometry is inconsistent.
func ToNRGBA(f *frame.Frame) (*image.NRGBA, error) {
	ycc, err := ToYCbCr(f)
	if err != nil {
		return nil, err
	}
	return Rotate(imaging.Clone(ycc), f.Rotation), nil
}

// FromImage converts any image into a freshly allocated planar 4:2:0 frame. Chroma is the
// mean of each 2x2 block.
//
// Arguments:
//   - img: The source image.
//
// Returns:
//   - *frame.Frame: The converted frame.
func FromImage(img image.Image) *frame.Frame {
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	f := frame.NewI420(w, h)

	cw, ch := frame.ChromaSize(w, h)
	sumCb := make([]float32, cw*ch)
	sumCr := make([]float32, cw*ch)
	count := make([]float32, cw*ch)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := y*src.Stride + x*4
			yy, cb, cr := color.RGBToYCbCr(src.Pix[off], src.Pix[off+1], src.Pix[off+2])
			f.Y[y*f.YStride+x] = yy

			c := (y/2)*cw + x/2
			sumCb[c] += float32(cb)
			sumCr[c] += float32(cr)
			count[c]++
		}
	}

	for i := range count {
		f.U[i] = uint8(math32.Round(sumCb[i] / count[i]))
		f.V[i] = uint8(math32.Round(sumCr[i] / count[i]))
	}
	return f
}
