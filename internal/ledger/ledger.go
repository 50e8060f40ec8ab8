// Package ledger tracks the cards remaining in a shoe and the Hi-Lo running
// and true counts derived from confirmed removals.
package ledger

import (
	"errors"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/ayusman/cardsight/internal/card"
)

// CardsPerSet is the size of one standard set, used to normalize the true
// count.
const CardsPerSet = 52

// ErrInvalidConfig is returned by New for non-positive sizes.
var ErrInvalidConfig = errors.New("invalid ledger config")

// Config sizes the shoe.
type Config struct {
	// Sets is the number of card sets in play.
	Sets int `json:"sets"`

	// CopiesPerRank is the number of cards of each rank in one set.
	CopiesPerRank int `json:"copies_per_rank"`
}

// DefaultConfig returns a single standard set.
func DefaultConfig() Config {
	return Config{Sets: 1, CopiesPerRank: 4}
}

// Ledger is a per-rank depletion ledger. It only ever decreases; a new shoe
// needs a new Ledger. Not safe for concurrent use.
type Ledger struct {
	counts  map[card.Rank]int
	total   int
	running int
	logger  *zap.Logger
}

// New creates a full ledger for cfg.
func New(cfg Config, logger *zap.Logger) (*Ledger, error) {
	if cfg.Sets < 1 {
		return nil, fmt.Errorf("%w: sets must be positive, got %d", ErrInvalidConfig, cfg.Sets)
	}
	if cfg.CopiesPerRank < 1 {
		return nil, fmt.Errorf("%w: copies per rank must be positive, got %d", ErrInvalidConfig, cfg.CopiesPerRank)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	per := cfg.Sets * cfg.CopiesPerRank
	counts := make(map[card.Rank]int, card.NumRanks)
	for _, r := range card.Ranks() {
		counts[r] = per
	}

	return &Ledger{
		counts: counts,
		total:  per * card.NumRanks,
		logger: logger,
	}, nil
}

// Remove takes one card of rank r out of the ledger and applies its Hi-Lo
// weight to the running count. It reports false, leaving the ledger
// unchanged, when r is unknown or already depleted.
func (l *Ledger) Remove(r card.Rank) bool {
	if l.counts[r] <= 0 {
		l.logger.Warn("card not available in ledger",
			zap.Stringer("rank", r),
			zap.Int("remaining", l.counts[r]))
		return false
	}

	l.counts[r]--
	l.total--
	l.running += r.HiLo()

	l.logger.Info("card removed",
		zap.Stringer("rank", r),
		zap.Int("remaining", l.counts[r]),
		zap.Int("running_count", l.running))
	return true
}

// Remaining returns a copy of the per-rank counts.
func (l *Ledger) Remaining() map[card.Rank]int {
	return maps.Clone(l.counts)
}

// Count returns the number of cards of rank r left.
func (l *Ledger) Count(r card.Rank) int {
	return l.counts[r]
}

// Total returns the number of cards left.
func (l *Ledger) Total() int {
	return l.total
}

// RunningCount returns the Hi-Lo running count.
func (l *Ledger) RunningCount() int {
	return l.running
}

// TrueCount returns the running count divided by the number of sets left.
// With no cards left it falls back to the running count.
func (l *Ledger) TrueCount() float64 {
	if l.total <= 0 {
		return float64(l.running)
	}
	return float64(l.running) / (float64(l.total) / CardsPerSet)
}
