// Package detector runs card detection on frames: the Detector interface,
// the subprocess inference service adapter and a scripted mock.
package detector

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/cardsight/internal/detection"
)

// Detector defines the interface for card detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the raw card detections.
	// Returns an empty slice if no cards are detected.
	Detect(frame *gocv.Mat) ([]detection.Detection, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for the subprocess detector.
type Config struct {
	// Script is the path of the inference service script. When empty the
	// usual locations are searched.
	Script string

	// Python is the interpreter used to run Script. Defaults to a venv
	// interpreter when one is found, otherwise python3.
	Python string

	// Weights is passed to the service as its model weights path.
	Weights string

	// IdleTimeout shuts the service down after this long without a frame.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Weights:     "resources/detection_weights.pt",
		IdleTimeout: 30 * time.Second,
	}
}
