package config

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-sightline/images"
	"github.com/nvr-ai/go-sightline/inference"
	"github.com/nvr-ai/go-sightline/inference/providers"
	"github.com/nvr-ai/go-sightline/preprocess"
)

// Validate checks the configuration and fills defaults for unset optional values.
func Validate(cfg *Config) error {
	// Model
	if cfg.Model.ModelPath == "" {
		return fmt.Errorf("model.path is required")
	}
	backend, err := inference.ParseEngineType(string(cfg.Model.Backend))
	if err != nil {
		return fmt.Errorf("model.backend: %w", err)
	}
	cfg.Model.Backend = backend
	if cfg.Model.Threads <= 0 {
		cfg.Model.Threads = inference.DefaultThreads
	}
	delegate, err := providers.ParseBackend(string(cfg.Model.Delegate.Backend))
	if err != nil {
		return fmt.Errorf("model.delegate: %w", err)
	}
	cfg.Model.Delegate.Backend = delegate
	if n := len(cfg.Model.ONNX.OutputNames); n != 0 && n != 4 {
		return fmt.Errorf("model.output_names must list 4 outputs, got %d", n)
	}

	// Preprocess
	switch cfg.Preprocess.Conversion {
	case "":
		cfg.Preprocess.Conversion = preprocess.ConversionDirect
	case preprocess.ConversionDirect, preprocess.ConversionJPEG:
	default:
		return fmt.Errorf("preprocess.conversion %q is not supported", cfg.Preprocess.Conversion)
	}
	filter, err := images.ParseResampleFilter(string(cfg.Preprocess.Filter))
	if err != nil {
		return fmt.Errorf("preprocess.resampler: %w", err)
	}
	cfg.Preprocess.Filter = filter
	if q := cfg.Preprocess.JPEGQuality; q < 0 || q > 100 {
		return fmt.Errorf("preprocess.jpeg_quality must be within [0, 100], got %d", q)
	}
	if !cfg.Preprocess.Rotation.Valid() {
		return fmt.Errorf("preprocess.rotation must be 0, 90, 180 or 270, got %d", cfg.Preprocess.Rotation)
	}

	// Latency
	if cfg.Latency.TargetMs <= 0 || cfg.Latency.HardCapMs <= 0 {
		return fmt.Errorf("latency.target_ms and latency.hard_cap_ms must be > 0")
	}
	if cfg.Latency.TargetMs > cfg.Latency.HardCapMs {
		return fmt.Errorf("latency.target_ms (%d) exceeds latency.hard_cap_ms (%d)",
			cfg.Latency.TargetMs, cfg.Latency.HardCapMs)
	}

	// Capture
	switch cfg.Capture.Source {
	case SourceWebcam:
		if cfg.Capture.Device == "" {
			cfg.Capture.Device = "0"
		}
	case SourceFiles:
		if cfg.Capture.Dir == "" {
			return fmt.Errorf("capture.dir is required for the files source")
		}
	default:
		return fmt.Errorf("capture.source %q is not supported", cfg.Capture.Source)
	}
	if cfg.Capture.Width < 0 || cfg.Capture.Height < 0 || cfg.Capture.IntervalMs < 0 {
		return fmt.Errorf("capture.width, capture.height and capture.interval_ms must be >= 0")
	}

	// Announce
	if cfg.Announce.IntervalMs <= 0 {
		return fmt.Errorf("announce.interval_ms must be > 0")
	}

	// Log
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if f := cfg.Log.Format; f != "" && f != "text" && f != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", f)
	}
	return nil
}
