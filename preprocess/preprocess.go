// Package preprocess converts raw planar camera frames into the packed float tensor the
// detector consumes.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-sightline/frame"
	"github.com/nvr-ai/go-sightline/images"
)

// Conversion selects how planar YUV is turned into an RGB raster.
type Conversion string

const (
	// ConversionDirect applies the colour-space transform to the planes directly.
	ConversionDirect Conversion = "direct"
	// ConversionJPEG compresses the planes to an in-memory JPEG and decodes it back.
	ConversionJPEG Conversion = "jpeg"
)

// Config controls the preprocessor.
type Config struct {
	// Conversion is the YUV to RGB path. Defaults to ConversionDirect.
	Conversion Conversion `json:"conversion"   yaml:"conversion"`
	// Filter is the resampling filter used to reach the input size. Defaults to bilinear.
	Filter images.ResampleFilter `json:"resampler"    yaml:"resampler"`
	// JPEGQuality is the encoder quality for ConversionJPEG. Defaults to 100.
	JPEGQuality int `json:"jpeg_quality" yaml:"jpeg_quality"`
}

// Error reports that a frame could not be turned into a tensor.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("preprocess: %s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Preprocessor turns frames into tensors. It is safe for concurrent use.
type Preprocessor struct {
	config     Config
	bufferPool *sync.Pool
	logger     logrus.FieldLogger
}

// NewPreprocessor creates a preprocessor, filling unset configuration with defaults.
//
// Arguments:
//   - config: The preprocessing configuration.
//   - logger: The logger for debug traces. nil selects the standard logger.
//
// Returns:
//   - *Preprocessor: The preprocessor.
//   - error: An error if the configuration names an unknown conversion or filter.
func NewPreprocessor(config Config, logger logrus.FieldLogger) (*Preprocessor, error) {
	if config.Conversion == "" {
		config.Conversion = ConversionDirect
	}
	if config.Conversion != ConversionDirect && config.Conversion != ConversionJPEG {
		return nil, fmt.Errorf("unknown conversion %q", config.Conversion)
	}
	filter, err := images.ParseResampleFilter(string(config.Filter))
	if err != nil {
		return nil, err
	}
	config.Filter = filter
	if config.JPEGQuality <= 0 || config.JPEGQuality > 100 {
		config.JPEGQuality = 100
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Preprocessor{
		config: config,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
		logger: logger.WithField("component", "preprocess"),
	}, nil
}

// Preprocess converts one frame into a newly allocated tensor.
//
// Steps: planar YUV to upright RGB, resize to 300x300, pack as interleaved float32 without
// normalization.
//
// Arguments:
//   - f: The frame to convert. The caller keeps ownership.
//
// Returns:
//   - *Tensor: The packed tensor, owned by the caller.
//   - error: An *Error if the frame cannot be converted.
func (p *Preprocessor) Preprocess(f *frame.Frame) (*Tensor, error) {
	if err := f.Validate(); err != nil {
		return nil, &Error{Message: "input validation failed", Cause: err}
	}

	rgb, err := p.toRGB(f)
	if err != nil {
		return nil, &Error{Message: "colour conversion failed", Cause: err}
	}

	resized, err := images.Resize(rgb, InputSize, InputSize, p.config.Filter)
	if err != nil {
		return nil, &Error{Message: "resize failed", Cause: err}
	}

	p.logger.WithFields(logrus.Fields{
		"seq":        f.Seq,
		"source":     fmt.Sprintf("%dx%d", f.Width, f.Height),
		"conversion": p.config.Conversion,
		"filter":     p.config.Filter,
	}).Debug("frame preprocessed")

	return pack(resized), nil
}

func (p *Preprocessor) toRGB(f *frame.Frame) (image.Image, error) {
	if p.config.Conversion == ConversionDirect {
		return images.ToNRGBA(f)
	}

	ycc, err := images.ToYCbCr(f)
	if err != nil {
		return nil, err
	}

	buf := p.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer p.bufferPool.Put(buf)

	if err := jpeg.Encode(buf, ycc, &jpeg.Options{Quality: p.config.JPEGQuality}); err != nil {
		return nil, errors.Wrap(err, "jpeg encoding failed")
	}
	decoded, err := imaging.Decode(buf)
	if err != nil {
		return nil, errors.Wrap(err, "jpeg decoding failed")
	}
	return images.Rotate(imaging.Clone(decoded), f.Rotation), nil
}

// pack widens the 8-bit channels of a 300x300 raster into a fresh tensor.
func pack(img image.Image) *Tensor {
	t := NewTensor()
	i := 0
	for y := 0; y < InputSize; y++ {
		for x := 0; x < InputSize; x++ {
			r, g, b := images.RGBAt(img, x, y)
			t.data[i] = float32(r)
			t.data[i+1] = float32(g)
			t.data[i+2] = float32(b)
			i += Channels
		}
	}
	return t
}
