package images

import "image"

// RGBAt returns the 8-bit red, green and blue channels of the pixel at (x, y), where x and y
// are offsets from the image's minimum point.
//
// Fast paths cover the raster types produced by Resize; any other image goes through At.
func RGBAt(img image.Image, x, y int) (uint8, uint8, uint8) {
	b := img.Bounds()
	switch src := img.(type) {
	case *image.RGBA:
		off := src.PixOffset(b.Min.X+x, b.Min.Y+y)
		return src.Pix[off], src.Pix[off+1], src.Pix[off+2]
	case *image.NRGBA:
		off := src.PixOffset(b.Min.X+x, b.Min.Y+y)
		return src.Pix[off], src.Pix[off+1], src.Pix[off+2]
	default:
		r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
		return uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8)
	}
}
