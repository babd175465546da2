// Package config loads the sightline YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-sightline/capture"
	"github.com/nvr-ai/go-sightline/frame"
	"github.com/nvr-ai/go-sightline/inference"
	"github.com/nvr-ai/go-sightline/inference/onnx"
	"github.com/nvr-ai/go-sightline/pipeline"
	"github.com/nvr-ai/go-sightline/preprocess"
)

// Config is the complete sightline configuration.
type Config struct {
	Model      ModelConfig      `yaml:"model"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Latency    LatencyConfig    `yaml:"latency"`
	Capture    CaptureConfig    `yaml:"capture"`
	Announce   AnnounceConfig   `yaml:"announce"`
	Log        LogConfig        `yaml:"log"`
}

// ModelConfig selects the detector, its vocabulary and the runtime that executes it.
type ModelConfig struct {
	// Backend is the runtime: onnx or tflite.
	Backend inference.EngineType `yaml:"backend"`

	inference.Config `yaml:",inline"`
	ONNX             onnx.Config `yaml:",inline"`
}

// PreprocessConfig tunes frame conversion.
type PreprocessConfig struct {
	preprocess.Config `yaml:",inline"`
	// Rotation is the sensor orientation applied to frames that carry none.
	Rotation frame.Rotation `yaml:"rotation"`
}

// LatencyConfig is the cycle latency budget, in milliseconds.
type LatencyConfig struct {
	TargetMs  int `yaml:"target_ms"`
	HardCapMs int `yaml:"hard_cap_ms"`
}

// Pipeline converts the budget for the orchestrator.
func (l LatencyConfig) Pipeline() pipeline.Config {
	return pipeline.Config{
		LatencyTarget:  time.Duration(l.TargetMs) * time.Millisecond,
		LatencyHardCap: time.Duration(l.HardCapMs) * time.Millisecond,
	}
}

// CaptureSource names a frame source implementation.
type CaptureSource string

const (
	// SourceWebcam reads a camera or video file through OpenCV.
	SourceWebcam CaptureSource = "webcam"
	// SourceFiles replays a directory of still images.
	SourceFiles CaptureSource = "files"
)

// CaptureConfig selects the frame source.
type CaptureConfig struct {
	Source CaptureSource `yaml:"source"`
	// Device is the camera index or video path for the webcam source.
	Device string `yaml:"device"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	// Dir and Loop configure the files source.
	Dir  string `yaml:"dir"`
	Loop bool   `yaml:"loop"`
	// IntervalMs paces reads from the device. Zero reads as fast as it delivers.
	IntervalMs  int `yaml:"interval_ms"`
	MaxFailures int `yaml:"max_failures"`
}

// AnnounceConfig tunes phrasing.
type AnnounceConfig struct {
	// Seed makes template choice reproducible. Zero seeds from the runtime.
	Seed uint64 `yaml:"seed"`
	// IntervalMs is the pause between recognition cycles in continuous mode.
	IntervalMs int `yaml:"interval_ms"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Backend: inference.EngineTFLite,
			Config: inference.Config{
				Threads:     inference.DefaultThreads,
				LabelOffset: inference.DefaultLabelOffset,
			},
		},
		Preprocess: PreprocessConfig{
			Config: preprocess.Config{
				Conversion:  preprocess.ConversionDirect,
				JPEGQuality: 100,
			},
		},
		Latency: LatencyConfig{
			TargetMs:  int(pipeline.DefaultLatencyTarget / time.Millisecond),
			HardCapMs: int(pipeline.DefaultLatencyHardCap / time.Millisecond),
		},
		Capture: CaptureConfig{
			Source:      SourceWebcam,
			Device:      "0",
			MaxFailures: capture.DefaultMaxFailures,
		},
		Announce: AnnounceConfig{IntervalMs: 1000},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Read reads a YAML configuration file over the defaults without validating it, so that
// command-line overrides can be applied first.
//
// Arguments:
//   - path: The file to read. Empty returns the defaults.
//
// Returns:
//   - *Config: The configuration.
//   - error: An error if the file cannot be read or parsed.
func Read(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Load reads a YAML configuration file over the defaults and validates it.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewLogger builds a logrus logger from the log section.
func (l LogConfig) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetLevel(level)
	switch l.Format {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", l.Format)
	}
	return logger, nil
}
