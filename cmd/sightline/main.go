// Command sightline captures camera frames, detects objects on them and announces what it sees.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-sightline/announce"
	"github.com/nvr-ai/go-sightline/capture"
	"github.com/nvr-ai/go-sightline/capture/files"
	"github.com/nvr-ai/go-sightline/capture/webcam"
	"github.com/nvr-ai/go-sightline/config"
	"github.com/nvr-ai/go-sightline/frame"
	"github.com/nvr-ai/go-sightline/inference"
	"github.com/nvr-ai/go-sightline/inference/onnx"
	"github.com/nvr-ai/go-sightline/inference/providers"
	"github.com/nvr-ai/go-sightline/inference/tflite"
	"github.com/nvr-ai/go-sightline/pipeline"
	"github.com/nvr-ai/go-sightline/preprocess"
)

func main() {
	var (
		configPath string
		modelPath  string
		labelsPath string
		backend    string
		delegate   string
		source     string
		device     string
		dir        string
		logLevel   string
		once       bool
	)
	flag.StringVar(&configPath, "config", "", "Path to the YAML configuration file")
	flag.StringVar(&modelPath, "model", "", "Path to the detector model (.tflite or .onnx)")
	flag.StringVar(&labelsPath, "labels", "", "Path to the label map; empty uses the bundled COCO map")
	flag.StringVar(&backend, "backend", "", "Inference runtime: onnx or tflite")
	flag.StringVar(&delegate, "delegate", "", "Acceleration delegate: none, xnnpack, cuda, coreml or openvino")
	flag.StringVar(&source, "source", "", "Frame source: webcam or files")
	flag.StringVar(&device, "device", "", "Camera index or video path for the webcam source")
	flag.StringVar(&dir, "dir", "", "Image directory for the files source")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flag.BoolVar(&once, "once", false, "Run a single recognition cycle and exit")
	flag.Parse()

	cfg, err := config.Read(configPath)
	if err != nil {
		fatal(err)
	}

	// Flags override the file only when given.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "model":
			cfg.Model.ModelPath = modelPath
		case "labels":
			cfg.Model.LabelsPath = labelsPath
		case "backend":
			cfg.Model.Backend = inference.EngineType(backend)
		case "delegate":
			cfg.Model.Delegate.Backend = providers.ProviderBackend(delegate)
		case "source":
			cfg.Capture.Source = config.CaptureSource(source)
		case "device":
			cfg.Capture.Device = device
		case "dir":
			cfg.Capture.Dir = dir
		case "log-level":
			cfg.Log.Level = logLevel
		}
	})
	if err := config.Validate(cfg); err != nil {
		fatal(fmt.Errorf("invalid configuration: %w", err))
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		fatal(err)
	}

	if err := run(cfg, logger, once); err != nil {
		logger.WithError(err).Fatal("sightline stopped")
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "sightline: %v\n", err)
	os.Exit(1)
}

func run(cfg *config.Config, logger *logrus.Logger, once bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := openSource(cfg, logger)
	if err != nil {
		return err
	}

	pre, err := preprocess.NewPreprocessor(cfg.Preprocess.Config, logger)
	if err != nil {
		src.Close()
		return err
	}

	var selector announce.Selector
	if cfg.Announce.Seed != 0 {
		selector = announce.NewSeededSelector(cfg.Announce.Seed)
	}
	composer, err := announce.NewComposer(announce.DefaultTemplates, selector)
	if err != nil {
		src.Close()
		return err
	}

	engine := inference.NewEngine(cfg.Model.Config, newRuntime(cfg, logger), logger)
	orchestrator := pipeline.New(cfg.Latency.Pipeline(), src, pre, engine, composer, logger)
	defer func() {
		if err := orchestrator.Close(); err != nil {
			logger.WithError(err).Warn("error shutting down pipeline")
		}
		logTimings(logger, orchestrator)
	}()

	if err := orchestrator.Initialize(); err != nil {
		return err
	}
	stats := engine.Stats()
	logger.WithFields(logrus.Fields{
		"backend":  stats.Engine,
		"delegate": stats.Delegate,
		"fallback": stats.DelegateFallback,
		"model":    cfg.Model.ModelPath,
	}).Info("detector loaded")

	speaker := announce.NewWriterSpeaker(os.Stdout)
	if once {
		out, err := orchestrator.RunOnce(ctx)
		return speak(ctx, speaker, logger, out, err)
	}

	interval := time.Duration(cfg.Announce.IntervalMs) * time.Millisecond
	var streamErr error
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	err = orchestrator.Run(runCtx, interval, func(out *pipeline.Outcome, err error) {
		if err := speak(runCtx, speaker, logger, out, err); err != nil {
			streamErr = err
			cancel()
		}
	})
	if errors.Is(streamErr, io.EOF) {
		logger.Info("capture source exhausted")
		return nil
	}
	if streamErr != nil {
		return streamErr
	}
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

// speak announces an outcome. A failed capture is announced as such; a capture source that has
// run out of frames ends the run.
func speak(ctx context.Context, speaker announce.Speaker, logger logrus.FieldLogger, out *pipeline.Outcome, err error) error {
	var captureErr *frame.CaptureError
	switch {
	case errors.As(err, &captureErr):
		if errors.Is(err, io.EOF) {
			return err
		}
		return speaker.Speak(ctx, announce.CaptureFailedSentence)
	case err != nil:
		logger.WithError(err).Warn("recognition cycle failed")
		return nil
	}

	logger.WithFields(logrus.Fields{
		"cycle_id":   out.Result.ID,
		"latency":    out.Result.Latency(),
		"detections": len(out.Result.Detections),
	}).Debug("recognition result")
	return speaker.Speak(ctx, out.Announcement)
}

func openSource(cfg *config.Config, logger logrus.FieldLogger) (frame.Source, error) {
	stream := capture.StreamConfig{
		Interval:    time.Duration(cfg.Capture.IntervalMs) * time.Millisecond,
		MaxFailures: cfg.Capture.MaxFailures,
		Rotation:    cfg.Preprocess.Rotation,
	}

	switch cfg.Capture.Source {
	case config.SourceFiles:
		reader, err := files.Open(files.Config{Dir: cfg.Capture.Dir, Loop: cfg.Capture.Loop}, logger)
		if err != nil {
			return nil, err
		}
		return capture.NewStream(reader, stream, logger), nil
	default:
		return webcam.OpenStream(webcam.Config{
			Device: cfg.Capture.Device,
			Width:  cfg.Capture.Width,
			Height: cfg.Capture.Height,
		}, stream, logger)
	}
}

func newRuntime(cfg *config.Config, logger logrus.FieldLogger) inference.Runtime {
	if cfg.Model.Backend == inference.EngineONNX {
		return onnx.NewRuntime(cfg.Model.ONNX, logger)
	}
	return tflite.NewRuntime(logger)
}

func logTimings(logger logrus.FieldLogger, o *pipeline.Orchestrator) {
	for _, s := range o.Timings() {
		logger.WithFields(logrus.Fields{
			"stage":   s.Name,
			"count":   s.Count,
			"mean_ms": s.Mean.Milliseconds(),
			"max_ms":  s.Max.Milliseconds(),
		}).Info("stage timing")
	}
}
