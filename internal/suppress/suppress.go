// Package suppress removes duplicate detections of the same card within a
// single tick.
package suppress

import (
	"sort"

	"github.com/ayusman/cardsight/internal/detection"
	"github.com/ayusman/cardsight/internal/geometry"
)

// Suppress performs greedy non-maximum suppression using geometry.Overlap.
//
// Detections are visited in descending confidence order (ties keep their
// input order). Each kept detection drops every remaining candidate that
// overlaps it at or above threshold. The result is in descending confidence
// order and dets is left untouched.
func Suppress(dets []detection.Detection, threshold float64) []detection.Detection {
	if len(dets) == 0 {
		return []detection.Detection{}
	}

	order := make([]int, len(dets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dets[order[a]].Confidence > dets[order[b]].Confidence
	})

	kept := make([]detection.Detection, 0, len(dets))
	for len(order) > 0 {
		head := dets[order[0]]
		kept = append(kept, head)

		rest := order[:0]
		for _, idx := range order[1:] {
			if geometry.Overlap(head.Box, dets[idx].Box) < threshold {
				rest = append(rest, idx)
			}
		}
		order = rest
	}

	return kept
}
