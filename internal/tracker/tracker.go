// Package tracker stabilizes per-tick card detections into persistent
// identities and reports each identity's lock exactly once.
//
// Identities live in an arena addressed by opaque handles. An identity is
// either active (matched this tick) or absent for some number of ticks; it
// is forgotten once its absence reaches the disappearance threshold and is
// never resurrected.
package tracker

import (
	"errors"
	"fmt"

	"github.com/ayusman/cardsight/internal/card"
	"github.com/ayusman/cardsight/internal/detection"
	"github.com/ayusman/cardsight/internal/geometry"
)

// ErrInvalidConfig is returned by Config.Validate and New.
var ErrInvalidConfig = errors.New("invalid tracker config")

// Handle identifies a tracked identity. Handles are assigned in creation
// order and never reused.
type Handle uint64

// Config holds the tracker thresholds.
type Config struct {
	// MatchThreshold is the minimum overlap between a detection and an
	// identity's stored box for the detection to bind to it.
	MatchThreshold float64

	// ConfidenceThreshold gates whether a new identity starts with a streak
	// of 1 or 0.
	ConfidenceThreshold float64

	// ConfirmationTicks is the streak at which an identity locks.
	ConfirmationTicks int

	// DisappearanceTicks is the number of consecutive missed ticks after
	// which an identity is forgotten.
	DisappearanceTicks int
}

// DefaultConfig returns the default tracker thresholds.
func DefaultConfig() Config {
	return Config{
		MatchThreshold:      0.9,
		ConfidenceThreshold: 0.9,
		ConfirmationTicks:   5,
		DisappearanceTicks:  5,
	}
}

// Validate checks that thresholds lie in (0, 1] and tick counts are positive.
func (c Config) Validate() error {
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("%w: match threshold %v not in (0, 1]", ErrInvalidConfig, c.MatchThreshold)
	}
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence threshold %v not in (0, 1]", ErrInvalidConfig, c.ConfidenceThreshold)
	}
	if c.ConfirmationTicks < 1 {
		return fmt.Errorf("%w: confirmation ticks must be positive, got %d", ErrInvalidConfig, c.ConfirmationTicks)
	}
	if c.DisappearanceTicks < 1 {
		return fmt.Errorf("%w: disappearance ticks must be positive, got %d", ErrInvalidConfig, c.DisappearanceTicks)
	}
	return nil
}

type phase int

const (
	phaseActive phase = iota
	phaseAbsent
)

func (p phase) String() string {
	if p == phaseAbsent {
		return "absent"
	}
	return "active"
}

type identity struct {
	handle     Handle
	box        geometry.Rect
	label      card.Rank
	confidence float64
	streak     int
	locked     bool
	phase      phase
	missed     int // only meaningful while phase == phaseAbsent
}

// Observation is the tracker's view of one detection in the current tick.
type Observation struct {
	Handle Handle    `json:"handle"`
	Label  card.Rank `json:"label"`
	Streak int       `json:"streak"`
	Locked bool      `json:"locked"`
}

// IdentitySnapshot is a read-only copy of an identity's state.
type IdentitySnapshot struct {
	Handle     Handle        `json:"handle"`
	Box        geometry.Rect `json:"box"`
	Label      card.Rank     `json:"label"`
	Confidence float64       `json:"confidence"`
	Streak     int           `json:"streak"`
	Locked     bool          `json:"locked"`
	Phase      string        `json:"phase"`
	Missed     int           `json:"missed"`
}

// Tracker owns the identity arena. It is not safe for concurrent use;
// callers must deliver ticks one at a time and in order.
type Tracker struct {
	config     Config
	onLock     func(card.Rank)
	identities []*identity
	next       Handle
}

// New creates a tracker. onLock, when non-nil, is called synchronously
// inside Update at most once per identity, with the identity's label.
func New(config Config, onLock func(card.Rank)) (*Tracker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Tracker{
		config: config,
		onLock: onLock,
		next:   1,
	}, nil
}

// Update processes one tick of detections and returns one observation per
// detection, in the same order.
//
// Detections are matched in input order against the identities that existed
// at the start of the tick, in creation order. Each detection binds to the
// first unclaimed identity whose stored box overlaps it at or above the match
// threshold; a claimed identity cannot be matched again in the same tick.
func (t *Tracker) Update(dets []detection.Detection) []Observation {
	candidates := len(t.identities)
	claimed := make([]bool, candidates)
	out := make([]Observation, len(dets))

	for i, d := range dets {
		match := -1
		for j := 0; j < candidates; j++ {
			if claimed[j] {
				continue
			}
			if geometry.Overlap(t.identities[j].box, d.Box) >= t.config.MatchThreshold {
				match = j
				break
			}
		}

		if match >= 0 {
			claimed[match] = true
			id := t.identities[match]
			t.observe(id, d)
			out[i] = t.observation(id, d)
			continue
		}

		id := t.create(d)
		out[i] = t.observation(id, d)
	}

	t.sweep(claimed)

	return out
}

// observe applies a matching detection to an existing identity.
func (t *Tracker) observe(id *identity, d detection.Detection) {
	id.phase = phaseActive
	id.missed = 0
	id.box = d.Box
	id.confidence = d.Confidence
	if id.streak < t.config.ConfirmationTicks {
		id.streak++
	}
	// Locks with the label stored before this tick.
	t.maybeLock(id)
	if !id.locked {
		id.label = d.Label
	}
}

func (t *Tracker) create(d detection.Detection) *identity {
	id := &identity{
		handle:     t.next,
		box:        d.Box,
		label:      d.Label,
		confidence: d.Confidence,
		phase:      phaseActive,
	}
	t.next++
	if d.Confidence >= t.config.ConfidenceThreshold {
		id.streak = 1
	}
	t.identities = append(t.identities, id)
	t.maybeLock(id)
	return id
}

func (t *Tracker) maybeLock(id *identity) {
	if id.locked || id.streak < t.config.ConfirmationTicks {
		return
	}
	id.locked = true
	if t.onLock != nil {
		t.onLock(id.label)
	}
}

// observation returns the displayed state for a detection bound to id.
func (t *Tracker) observation(id *identity, d detection.Detection) Observation {
	label := d.Label
	if id.locked {
		label = id.label
	}
	return Observation{
		Handle: id.handle,
		Label:  label,
		Streak: id.streak,
		Locked: id.locked,
	}
}

// sweep ages the unclaimed candidates and forgets expired identities.
func (t *Tracker) sweep(claimed []bool) {
	kept := t.identities[:0]
	for j, id := range t.identities {
		if j < len(claimed) && !claimed[j] {
			id.phase = phaseAbsent
			id.missed++
			if id.missed >= t.config.DisappearanceTicks {
				continue
			}
		}
		kept = append(kept, id)
	}
	clear(t.identities[len(kept):])
	t.identities = kept
}

// Len returns the number of live identities.
func (t *Tracker) Len() int {
	return len(t.identities)
}

// Identities returns snapshots of the live identities in creation order.
func (t *Tracker) Identities() []IdentitySnapshot {
	out := make([]IdentitySnapshot, len(t.identities))
	for i, id := range t.identities {
		out[i] = IdentitySnapshot{
			Handle:     id.handle,
			Box:        id.box,
			Label:      id.label,
			Confidence: id.confidence,
			Streak:     id.streak,
			Locked:     id.locked,
			Phase:      id.phase.String(),
			Missed:     id.missed,
		}
	}
	return out
}
