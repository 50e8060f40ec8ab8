// Package app drives the card pipeline: one tick runs suppression, identity
// tracking, hand grouping and ledger accounting, in that order.
package app

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayusman/cardsight/internal/capture"
	"github.com/ayusman/cardsight/internal/card"
	"github.com/ayusman/cardsight/internal/config"
	"github.com/ayusman/cardsight/internal/detection"
	"github.com/ayusman/cardsight/internal/detector"
	"github.com/ayusman/cardsight/internal/evaluator"
	"github.com/ayusman/cardsight/internal/geometry"
	"github.com/ayusman/cardsight/internal/grouping"
	"github.com/ayusman/cardsight/internal/ledger"
	"github.com/ayusman/cardsight/internal/suppress"
	"github.com/ayusman/cardsight/internal/tracker"
)

// ErrNoSource is returned by Start when no camera or detector is configured.
var ErrNoSource = errors.New("capture loop needs a camera and a detector")

// StableCard is one suppressed detection with its tracked state.
type StableCard struct {
	Box        geometry.Rect  `json:"box"`
	Label      card.Rank      `json:"label"`
	Confidence float64        `json:"confidence"`
	Handle     tracker.Handle `json:"handle"`
	Streak     int            `json:"streak"`
	Locked     bool           `json:"locked"`
}

// LedgerSnapshot is a copy of the ledger state for the current shoe.
type LedgerSnapshot struct {
	Session      string            `json:"session"`
	Remaining    map[card.Rank]int `json:"remaining"`
	Total        int               `json:"total"`
	RunningCount int               `json:"running_count"`
	TrueCount    float64           `json:"true_count"`
}

// TickResult is the output of one tick. Hands and Unassigned hold indices
// into Cards; Totals is aligned with Hands.
type TickResult struct {
	Tick            uint64         `json:"tick"`
	Session         string         `json:"session"`
	Cards           []StableCard   `json:"cards"`
	Hands           [][]int        `json:"hands"`
	Unassigned      []int          `json:"unassigned,omitempty"`
	Totals          []int          `json:"totals"`
	UnassignedTotal int            `json:"unassigned_total"`
	Locks           []card.Rank    `json:"locks,omitempty"`
	Ledger          LedgerSnapshot `json:"ledger"`
}

// HandRanks returns the displayed ranks of hand i.
func (r *TickResult) HandRanks(i int) []card.Rank {
	return r.ranks(r.Hands[i])
}

// UnassignedRanks returns the displayed ranks of the unassigned group.
func (r *TickResult) UnassignedRanks() []card.Rank {
	return r.ranks(r.Unassigned)
}

func (r *TickResult) ranks(idx []int) []card.Rank {
	out := make([]card.Rank, len(idx))
	for i, j := range idx {
		out[i] = r.Cards[j].Label
	}
	return out
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithCamera sets the frame source for the capture loop.
func WithCamera(cam capture.Camera) Option {
	return func(a *App) { a.camera = cam }
}

// WithDetector sets the detector for the capture loop.
func WithDetector(d detector.Detector) Option {
	return func(a *App) { a.detector = d }
}

// WithEvaluator sets the evaluator consulted when hands and a dealer group
// are on the table.
func WithEvaluator(e evaluator.Evaluator) Option {
	return func(a *App) { a.evaluator = e }
}

// App owns the tracker and ledger of the current shoe. All tick processing
// is serialized on one mutex, so the capture loop and HTTP callers never
// interleave ticks.
type App struct {
	config config.Config
	policy grouping.SingletonPolicy
	logger *zap.Logger

	camera    capture.Camera
	detector  detector.Detector
	evaluator evaluator.Evaluator

	// deliverMu orders ticks from processing through subscriber delivery.
	deliverMu sync.Mutex

	mu          sync.Mutex
	tracker     *tracker.Tracker
	ledger      *ledger.Ledger
	session     string
	tick        uint64
	locks       []card.Rank
	subscribers []func(*TickResult)
	advice      *evaluator.Response

	enabled atomic.Bool
	loopMu  sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates an App for cfg with a fresh shoe.
func New(cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		config: cfg,
		policy: cfg.Policy(),
		logger: zap.NewNop(),
	}
	a.enabled.Store(true)
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}

	if err := a.resetShoe(); err != nil {
		return nil, err
	}

	return a, nil
}

// resetShoe replaces tracker and ledger. Callers hold a.mu or own a.
func (a *App) resetShoe() error {
	l, err := ledger.New(a.config.Ledger(), a.logger.Named("ledger"))
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	t, err := tracker.New(a.config.Tracker(), a.onLock)
	if err != nil {
		return fmt.Errorf("create tracker: %w", err)
	}

	a.ledger = l
	a.tracker = t
	a.session = uuid.NewString()
	a.tick = 0
	a.advice = nil
	return nil
}

// onLock is the tracker's lock callback. It runs inside Process with a.mu
// held.
func (a *App) onLock(r card.Rank) {
	a.locks = append(a.locks, r)
	if !a.ledger.Remove(r) {
		a.logger.Warn("locked card not removed from ledger",
			zap.Stringer("rank", r),
			zap.String("session", a.session))
		return
	}
	a.logger.Info("card locked",
		zap.Stringer("rank", r),
		zap.Int("running_count", a.ledger.RunningCount()),
		zap.Float64("true_count", a.ledger.TrueCount()))
}

// Process runs one tick over dets and notifies subscribers. Concurrent calls
// deliver their results to subscribers in tick order.
func (a *App) Process(dets []detection.Detection) (*TickResult, error) {
	if err := detection.Validate(dets); err != nil {
		return nil, err
	}

	a.deliverMu.Lock()
	defer a.deliverMu.Unlock()

	a.mu.Lock()
	result := a.process(dets)
	subs := append([]func(*TickResult)(nil), a.subscribers...)
	a.mu.Unlock()

	for _, fn := range subs {
		fn(result)
	}
	return result, nil
}

// ProcessParallel validates parallel arrays and runs one tick.
func (a *App) ProcessParallel(boxes [][4]float64, labels []string, confidences []float64) (*TickResult, error) {
	dets, err := detection.FromParallel(boxes, labels, confidences)
	if err != nil {
		return nil, err
	}
	return a.Process(dets)
}

func (a *App) process(dets []detection.Detection) *TickResult {
	kept := suppress.Suppress(dets, a.config.Detection.SuppressionThreshold)

	a.locks = nil
	obs := a.tracker.Update(kept)

	cards := make([]StableCard, len(kept))
	for i, d := range kept {
		cards[i] = StableCard{
			Box:        d.Box,
			Label:      obs[i].Label,
			Confidence: d.Confidence,
			Handle:     obs[i].Handle,
			Streak:     obs[i].Streak,
			Locked:     obs[i].Locked,
		}
	}

	layout := grouping.Resolve(detection.Boxes(kept), a.config.Detection.GroupingThreshold).Classify(a.policy)

	a.tick++
	result := &TickResult{
		Tick:       a.tick,
		Session:    a.session,
		Cards:      cards,
		Hands:      layout.Hands,
		Unassigned: layout.Unassigned,
		Totals:     make([]int, len(layout.Hands)),
		Locks:      a.locks,
		Ledger:     a.snapshot(),
	}
	for i := range layout.Hands {
		result.Totals[i] = card.HandTotal(result.HandRanks(i))
	}
	result.UnassignedTotal = card.HandTotal(result.UnassignedRanks())
	a.locks = nil

	return result
}

func (a *App) snapshot() LedgerSnapshot {
	return LedgerSnapshot{
		Session:      a.session,
		Remaining:    a.ledger.Remaining(),
		Total:        a.ledger.Total(),
		RunningCount: a.ledger.RunningCount(),
		TrueCount:    a.ledger.TrueCount(),
	}
}

// NewShoe starts a new shoe with a full ledger and no tracked identities,
// and returns its session id.
func (a *App) NewShoe() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.resetShoe(); err != nil {
		return "", err
	}
	a.logger.Info("new shoe", zap.String("session", a.session))
	return a.session, nil
}

// Ledger returns a snapshot of the current ledger.
func (a *App) Ledger() LedgerSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot()
}

// Identities returns the live tracked identities.
func (a *App) Identities() []tracker.IdentitySnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tracker.Identities()
}

// Session returns the current shoe's session id.
func (a *App) Session() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// Advice returns the last evaluator response for this shoe, or nil.
func (a *App) Advice() *evaluator.Response {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.advice
}

// Subscribe registers fn to receive every tick result. fn runs on the
// ticking goroutine after the tick has committed, in tick order. fn must not
// call Process.
func (a *App) Subscribe(fn func(*TickResult)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subscribers = append(a.subscribers, fn)
}

// Config returns the configuration the App was built with.
func (a *App) Config() config.Config {
	return a.config
}
