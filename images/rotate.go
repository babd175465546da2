package images

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/nvr-ai/go-sightline/frame"
)

// Rotate turns img clockwise by the given sensor rotation.
//
// Arguments:
//   - img: The raster to rotate.
//   - rotation: The clockwise rotation to apply.
//
// Returns:
//   - *image.NRGBA: The rotated raster, or img itself when no rotation is required.
func Rotate(img *image.NRGBA, rotation frame.Rotation) *image.NRGBA {
	// imaging rotates counter-clockwise.
	switch rotation {
	case frame.Rotate90:
		return imaging.Rotate270(img)
	case frame.Rotate180:
		return imaging.Rotate180(img)
	case frame.Rotate270:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
