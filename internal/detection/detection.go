// Package detection holds the per-tick card detection type and the boundary
// that turns an external detector's parallel arrays into a tick batch.
package detection

import (
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/cardsight/internal/card"
	"github.com/ayusman/cardsight/internal/geometry"
)

// ErrLengthMismatch is returned when the parallel arrays of a detector
// response do not have the same length.
var ErrLengthMismatch = errors.New("detection arrays have mismatched lengths")

// ErrInvalidConfidence is returned for confidences outside [0, 1].
var ErrInvalidConfidence = errors.New("detection confidence out of range")

// Detection is a single detected card within one tick.
type Detection struct {
	Box        geometry.Rect `json:"box"`
	Label      card.Rank     `json:"label"`
	Confidence float64       `json:"confidence"`
}

// FromParallel builds a tick batch from the parallel box, label and
// confidence arrays external detectors emit.
//
// A length mismatch returns ErrLengthMismatch and no detections; the batch is
// never truncated or padded. Labels outside the rank alphabet become
// card.Unknown.
func FromParallel(boxes [][4]float64, labels []string, confidences []float64) ([]Detection, error) {
	if len(boxes) != len(labels) || len(boxes) != len(confidences) {
		return nil, fmt.Errorf("%w: %d boxes, %d labels, %d confidences",
			ErrLengthMismatch, len(boxes), len(labels), len(confidences))
	}

	dets := make([]Detection, len(boxes))
	for i := range boxes {
		dets[i] = Detection{
			Box:        geometry.FromXYXY(boxes[i]),
			Label:      card.ParseRank(labels[i]),
			Confidence: confidences[i],
		}
	}

	return dets, nil
}

// FromClasses is like FromParallel but takes detector class indices instead
// of rank labels.
func FromClasses(boxes [][4]float64, classes []int, confidences []float64) ([]Detection, error) {
	labels := make([]string, len(classes))
	for i, c := range classes {
		labels[i] = card.FromClassIndex(c).String()
	}
	return FromParallel(boxes, labels, confidences)
}

// Boxes returns the boxes of dets in order.
func Boxes(dets []Detection) []geometry.Rect {
	boxes := make([]geometry.Rect, len(dets))
	for i, d := range dets {
		boxes[i] = d.Box
	}
	return boxes
}

// Validate checks that every confidence lies in [0, 1].
func Validate(dets []Detection) error {
	for i, d := range dets {
		if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 1 {
			return fmt.Errorf("%w: detection %d has %v", ErrInvalidConfidence, i, d.Confidence)
		}
	}
	return nil
}
