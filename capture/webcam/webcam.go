// Package webcam reads frames from a camera or video file through OpenCV.
package webcam

import (
	"context"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-sightline/capture"
	"github.com/nvr-ai/go-sightline/frame"
)

// Config selects and sizes the capture device.
type Config struct {
	// Device is a camera index ("0") or a video file path or URL.
	Device string `yaml:"device"`
	// Width and Height request a capture resolution. Zero keeps the device default.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Camera converts OpenCV BGR captures into I420 frames. It implements capture.Reader and must
// be read from a single goroutine.
type Camera struct {
	device *gocv.VideoCapture
	bgr    gocv.Mat
	yuv    gocv.Mat
	logger logrus.FieldLogger
}

// Open binds the capture device.
//
// Returns:
//   - *Camera: The open camera.
//   - error: A *frame.CaptureError if the device cannot be opened.
func Open(config Config, logger logrus.FieldLogger) (*Camera, error) {
	if config.Device == "" {
		config.Device = "0"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	device, err := gocv.OpenVideoCapture(config.Device)
	if err != nil {
		return nil, frame.NewCaptureError(fmt.Sprintf("error opening video capture device %s", config.Device), err)
	}
	if !device.IsOpened() {
		device.Close()
		return nil, frame.NewCaptureError(fmt.Sprintf("video capture device %s is not available", config.Device), nil)
	}
	if config.Width > 0 && config.Height > 0 {
		device.Set(gocv.VideoCaptureFrameWidth, float64(config.Width))
		device.Set(gocv.VideoCaptureFrameHeight, float64(config.Height))
	}

	c := &Camera{
		device: device,
		bgr:    gocv.NewMat(),
		yuv:    gocv.NewMat(),
		logger: logger.WithFields(logrus.Fields{"component": "capture", "device": config.Device}),
	}
	c.logger.WithFields(logrus.Fields{
		"width":  device.Get(gocv.VideoCaptureFrameWidth),
		"height": device.Get(gocv.VideoCaptureFrameHeight),
	}).Info("video capture device opened")
	return c, nil
}

// Read grabs one frame from the device.
//
// Returns:
//   - *frame.Frame: A freshly allocated I420 frame.
//   - error: capture.ErrEmptyFrame for an empty grab, or an error if the device stopped.
func (c *Camera) Read(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := c.device.Read(&c.bgr); !ok {
		return nil, fmt.Errorf("cannot read from video capture device")
	}
	if c.bgr.Empty() {
		return nil, capture.ErrEmptyFrame
	}

	// I420 needs even dimensions; drop the odd trailing row or column.
	w, h := c.bgr.Cols()&^1, c.bgr.Rows()&^1
	if w == 0 || h == 0 {
		return nil, capture.ErrEmptyFrame
	}
	src := c.bgr
	if w != c.bgr.Cols() || h != c.bgr.Rows() {
		src = c.bgr.Region(image.Rect(0, 0, w, h))
		defer src.Close()
	}

	gocv.CvtColor(src, &c.yuv, gocv.ColorBGRToYUVI420)
	return planes(c.yuv.ToBytes(), w, h)
}

// planes copies a packed I420 buffer (Y, then U, then V) into a frame.
func planes(buf []byte, w, h int) (*frame.Frame, error) {
	f := frame.NewI420(w, h)
	ySize, cSize := len(f.Y), len(f.U)
	if len(buf) < ySize+2*cSize {
		return nil, fmt.Errorf("converted buffer has %d bytes, need %d", len(buf), ySize+2*cSize)
	}
	copy(f.Y, buf[:ySize])
	copy(f.U, buf[ySize:ySize+cSize])
	copy(f.V, buf[ySize+cSize:ySize+2*cSize])
	return f, nil
}

// Close releases the device and the conversion buffers.
func (c *Camera) Close() error {
	c.bgr.Close()
	c.yuv.Close()
	if err := c.device.Close(); err != nil {
		return fmt.Errorf("error closing video capture device: %w", err)
	}
	return nil
}

// OpenStream opens the device and starts a capture stream over it.
func OpenStream(config Config, stream capture.StreamConfig, logger logrus.FieldLogger) (*capture.Stream, error) {
	camera, err := Open(config, logger)
	if err != nil {
		return nil, err
	}
	return capture.NewStream(camera, stream, logger), nil
}
