// Package files reads still images from a directory as a stream of camera frames.
package files

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-sightline/frame"
	"github.com/nvr-ai/go-sightline/images"
)

// ImageFile is one image found in a directory.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Format is the format inferred from the extension.
	Format images.ImageFormat
	// Index orders the file within its directory. Files named "frame-N" sort by N.
	Index int
}

// ListImages returns the supported image files in dir, ordered by frame number and then by name.
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []ImageFile: The images found.
//   - error: Error if the directory cannot be read.
func ListImages(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		format, ok := images.FormatFromPath(entry.Name())
		if !ok {
			continue
		}
		files = append(files, ImageFile{
			Path:   filepath.Join(dir, entry.Name()),
			Format: format,
			Index:  frameIndex(entry.Name()),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Index != files[j].Index {
			return files[i].Index < files[j].Index
		}
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// frameIndex parses "frame-N.ext" names. Other names get -1 and sort first, by name.
func frameIndex(name string) int {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	n, err := strconv.Atoi(strings.TrimPrefix(base, "frame-"))
	if err != nil {
		return -1
	}
	return n
}

// Config selects the directory to replay.
type Config struct {
	Dir string `yaml:"dir"`
	// Loop restarts from the first image instead of ending the stream.
	Loop bool `yaml:"loop"`
}

// Reader decodes the images in a directory one per Read, converting them to planar frames.
// It implements capture.Reader.
type Reader struct {
	files  []ImageFile
	loop   bool
	next   int
	logger logrus.FieldLogger
}

// Open lists the images in config.Dir.
//
// Returns:
//   - *Reader: The reader.
//   - error: An error if the directory cannot be read or holds no images.
func Open(config Config, logger logrus.FieldLogger) (*Reader, error) {
	files, err := ListImages(config.Dir)
	if err != nil {
		return nil, fmt.Errorf("error listing images: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images found in %s", config.Dir)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Reader{
		files:  files,
		loop:   config.Loop,
		logger: logger.WithFields(logrus.Fields{"component": "capture", "dir": config.Dir}),
	}, nil
}

// Len returns the number of images the reader replays.
func (r *Reader) Len() int {
	return len(r.files)
}

// Read decodes the next image, honouring EXIF orientation.
//
// Returns:
//   - *frame.Frame: The image as an I420 frame.
//   - error: io.EOF after the last image unless looping, or a decode error.
func (r *Reader) Read(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.next >= len(r.files) {
		if !r.loop {
			return nil, io.EOF
		}
		r.next = 0
	}

	file := r.files[r.next]
	r.next++

	img, err := imaging.Open(file.Path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", file.Path, err)
	}
	r.logger.WithField("path", file.Path).Debug("decoded image")
	return images.FromImage(img), nil
}

// Close is a no-op; images are read on demand.
func (r *Reader) Close() error {
	return nil
}
