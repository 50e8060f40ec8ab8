package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/cardsight/internal/card"
	"github.com/ayusman/cardsight/internal/evaluator"
)

// SetEnabled pauses or resumes the capture loop without closing the camera.
func (a *App) SetEnabled(enabled bool) {
	a.enabled.Store(enabled)
}

// IsEnabled reports whether the capture loop processes frames.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// Running reports whether the capture loop is running.
func (a *App) Running() bool {
	a.loopMu.Lock()
	defer a.loopMu.Unlock()
	if a.doneCh == nil {
		return false
	}
	select {
	case <-a.doneCh:
		return false
	default:
		return true
	}
}

// Start opens the camera and begins the capture loop. It is a no-op while
// the loop runs; a loop that ended at the end of its source is released and
// started again.
func (a *App) Start() error {
	a.loopMu.Lock()
	defer a.loopMu.Unlock()

	if a.stopCh != nil {
		select {
		case <-a.doneCh:
			// The previous loop ended at the end of its source.
			a.release()
		default:
			return nil
		}
	}
	if a.camera == nil || a.detector == nil {
		return ErrNoSource
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	interval := a.config.InferenceInterval()
	a.camera.SetFPS(int(time.Second / interval))

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh, interval)

	a.logger.Info("capture loop started", zap.Duration("interval", interval))
	return nil
}

// Done returns a channel closed when the current capture loop exits, either
// after Stop or at the end of a video source. It is nil before Start.
func (a *App) Done() <-chan struct{} {
	a.loopMu.Lock()
	defer a.loopMu.Unlock()
	return a.doneCh
}

// Stop halts the capture loop and releases the camera and detector.
func (a *App) Stop() {
	a.loopMu.Lock()
	defer a.loopMu.Unlock()

	if a.stopCh == nil {
		return
	}
	a.release()
}

// release ends the loop if it still runs and closes camera and detector.
// Callers hold a.loopMu and have checked a.stopCh != nil.
func (a *App) release() {
	close(a.stopCh)
	<-a.doneCh
	a.stopCh = nil

	if err := a.camera.Close(); err != nil {
		a.logger.Error("close camera", zap.Error(err))
	}
	if err := a.detector.Close(); err != nil {
		a.logger.Error("close detector", zap.Error(err))
	}

	a.logger.Info("capture loop stopped")
}

// runPipeline ticks at the inference interval: read a frame, detect, run one
// tick, and consult the evaluator when players and a dealer are visible.
func (a *App) runPipeline(stopCh, doneCh chan struct{}, interval time.Duration) {
	defer close(doneCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastTable string

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.camera.ReadFrame()
			if errors.Is(err, io.EOF) {
				a.logger.Info("end of video source")
				return
			}
			if err != nil {
				a.logger.Error("read frame", zap.Error(err))
				continue
			}

			dets, err := a.detector.Detect(frame)
			frame.Close()
			if err != nil {
				a.logger.Error("detect cards", zap.Error(err))
				continue
			}

			result, err := a.Process(dets)
			if err != nil {
				a.logger.Error("process tick", zap.Error(err))
				continue
			}

			if a.evaluator == nil || len(result.Hands) == 0 || len(result.Unassigned) == 0 {
				continue
			}

			table := tableKey(result)
			if table == lastTable {
				continue
			}
			lastTable = table
			a.evaluate(ctx, result)
		}
	}
}

// evaluate sends the table in result to the evaluator and stores the advice
// if the shoe has not changed meanwhile.
func (a *App) evaluate(ctx context.Context, result *TickResult) {
	hands := make([][]card.Rank, len(result.Hands))
	for i := range result.Hands {
		hands[i] = result.HandRanks(i)
	}
	req := evaluator.NewRequest(hands, result.UnassignedRanks(), result.Ledger.Remaining, result.Ledger.TrueCount)

	resp, err := a.evaluator.Evaluate(ctx, req)
	if err != nil {
		a.logger.Error("evaluate table", zap.Error(err))
		return
	}
	if !resp.Success {
		a.logger.Warn("evaluator rejected table", zap.String("error", resp.Error))
		return
	}

	for _, adv := range resp.Advice {
		a.logger.Info("advice",
			zap.Int("hand", adv.Hand),
			zap.String("best", adv.Best),
			zap.Float64("ev", adv.EVs[adv.Best]))
	}

	a.mu.Lock()
	if a.session == result.Session {
		a.advice = resp
	}
	a.mu.Unlock()
}

// tableKey identifies the visible hands and dealer cards of a tick.
func tableKey(result *TickResult) string {
	var b strings.Builder
	for i := range result.Hands {
		for _, r := range result.HandRanks(i) {
			b.WriteString(r.String())
			b.WriteByte(',')
		}
		b.WriteByte('|')
	}
	for _, r := range result.UnassignedRanks() {
		b.WriteString(r.String())
		b.WriteByte(',')
	}
	return b.String()
}
