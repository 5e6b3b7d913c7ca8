package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Brownie44l1/steer-bridge/internal/capture"
	"github.com/spf13/cobra"
)

type options struct {
	CapturesDir  string
	CaptureName  string
	ModelPath    string
	MetadataPath string
	PollInterval time.Duration
	Consume      bool
	HTTPAddr     string
	ORTLib       string
}

// defaultOptions seeds flag defaults from the environment so a .env file
// can configure the bridge without flags.
func defaultOptions() (options, error) {
	opts := options{
		CapturesDir:  envOr("STEER_CAPTURES", "captures"),
		CaptureName:  envOr("STEER_CAPTURE_NAME", "capture.jpg"),
		ModelPath:    envOr("STEER_MODEL", "models/steer_model.onnx"),
		MetadataPath: envOr("STEER_METADATA", "models/steer_metadata.json"),
		PollInterval: capture.DefaultPollInterval,
		ORTLib:       os.Getenv("ONNXRUNTIME_LIB"),
	}

	if port := os.Getenv("PORT"); port != "" {
		opts.HTTPAddr = ":" + port
	}

	if v := os.Getenv("STEER_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return opts, fmt.Errorf("invalid STEER_POLL_INTERVAL %q: %w", v, err)
		}
		opts.PollInterval = d
	}

	if v := os.Getenv("STEER_CONSUME"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid STEER_CONSUME %q: %w", v, err)
		}
		opts.Consume = b
	}

	return opts, nil
}

func (o *options) bindFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.CapturesDir, "captures", o.CapturesDir, "directory the simulator writes captures into")
	f.StringVar(&o.CaptureName, "capture-name", o.CaptureName, "filename of the capture")
	f.StringVar(&o.ModelPath, "model", o.ModelPath, "path to the steering model (.onnx)")
	f.StringVar(&o.MetadataPath, "metadata", o.MetadataPath, "path to the model metadata (.json)")
	f.DurationVar(&o.PollInterval, "poll-interval", o.PollInterval, "how often to re-check for a capture when no file event arrives")
	f.BoolVar(&o.Consume, "consume", o.Consume, "delete each capture once decoded; without it an unchanged capture is reprocessed every poll interval")
	f.StringVar(&o.HTTPAddr, "http", o.HTTPAddr, "address for the status server, e.g. :8080 (disabled when empty)")
	f.StringVar(&o.ORTLib, "ort-lib", o.ORTLib, "path to the onnxruntime shared library")
}

func (o options) validate() error {
	if o.CaptureName == "" {
		return fmt.Errorf("--capture-name must not be empty")
	}
	if o.PollInterval <= 0 {
		return fmt.Errorf("--poll-interval must be positive, got %v", o.PollInterval)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
