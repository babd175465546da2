package images

import (
	"path/filepath"
	"strings"
)

// ImageFormat represents supported still-image formats.
type ImageFormat string

const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatBMP is the BMP image format.
	FormatBMP ImageFormat = "bmp"
)

// FormatFromPath infers the image format from a file extension.
//
// Returns:
//   - ImageFormat: The detected format.
//   - bool: false if the extension is not a supported image type.
func FormatFromPath(path string) (ImageFormat, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG, true
	case ".png":
		return FormatPNG, true
	case ".bmp":
		return FormatBMP, true
	default:
		return "", false
	}
}
