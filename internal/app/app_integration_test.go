package app

import (
	"testing"
	"time"

	"github.com/ayusman/cardsight/internal/capture"
	"github.com/ayusman/cardsight/internal/card"
	"github.com/ayusman/cardsight/internal/detection"
	"github.com/ayusman/cardsight/internal/detector"
	"github.com/ayusman/cardsight/internal/evaluator"
	"github.com/ayusman/cardsight/testdata"
)

func loadBatches(t *testing.T, name string) (*testdata.Script, [][]detection.Detection) {
	t.Helper()

	script, err := testdata.LoadScript(name)
	if err != nil {
		t.Fatalf("LoadScript() error = %v", err)
	}

	var batches [][]detection.Detection
	for i, tick := range script.Expanded() {
		dets, err := detection.FromParallel(tick.Boxes, tick.Labels, tick.Confidences)
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		batches = append(batches, dets)
	}
	return script, batches
}

func TestApp_CapturePipeline_VideoToEOF(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	script, batches := loadBatches(t, "deal")

	frames := testdata.BlankFrames(len(batches))
	defer func() {
		for _, f := range frames {
			f.Close()
		}
	}()

	det := detector.NewMockDetector()
	det.SetScript(batches)

	ev := evaluator.NewMockEvaluator(&evaluator.Response{
		Success: true,
		Advice:  []evaluator.Advice{{Hand: 0, EVs: map[string]float64{"stand": -0.2, "hit": 0.1}, Best: "hit"}},
	})

	cfg := testConfig(script.ConfirmationTicks, script.DisappearanceTicks)
	cfg.Capture.InferenceIntervalMs = 5

	a := newApp(t, cfg,
		WithCamera(capture.NewMockCamera(frames, false)),
		WithDetector(det),
		WithEvaluator(ev),
	)

	var ticks int
	a.Subscribe(func(*TickResult) { ticks++ })

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-a.Done():
	case <-time.After(5 * time.Second):
		a.Stop()
		t.Fatal("capture loop did not stop at end of video")
	}
	a.Stop()

	if ticks != len(batches) {
		t.Errorf("expected %d ticks, got %d", len(batches), ticks)
	}
	if !det.Closed() {
		t.Error("expected detector to be closed by Stop")
	}

	snap := a.Ledger()
	if snap.RunningCount != script.Expect.RunningCount {
		t.Errorf("expected running count %d, got %d", script.Expect.RunningCount, snap.RunningCount)
	}
	for rank, want := range script.Expect.Remaining {
		if got := snap.Remaining[card.ParseRank(rank)]; got != want {
			t.Errorf("expected %d of %s left, got %d", want, rank, got)
		}
	}

	reqs := ev.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected one evaluation for one table, got %d", len(reqs))
	}
	if len(reqs[0].PlayerHands) != 1 || len(reqs[0].DealerHand) != 1 || reqs[0].DealerHand[0] != "K" {
		t.Errorf("unexpected evaluator request: %+v", reqs[0])
	}
	if adv := a.Advice(); adv == nil || adv.Advice[0].Best != "hit" {
		t.Errorf("expected stored advice, got %+v", adv)
	}
}

func TestApp_CapturePipeline_Paused(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	frames := testdata.BlankFrames(1)
	defer frames[0].Close()

	cfg := testConfig(5, 5)
	cfg.Capture.InferenceIntervalMs = 5

	a := newApp(t, cfg,
		WithCamera(capture.NewMockCamera(frames, true)),
		WithDetector(detector.NewMockDetector()),
	)
	a.SetEnabled(false)

	var ticks int
	a.Subscribe(func(*TickResult) { ticks++ })

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !a.Running() {
		t.Error("expected loop to be running")
	}
	time.Sleep(50 * time.Millisecond)
	a.Stop()

	if ticks != 0 {
		t.Errorf("paused loop processed %d ticks", ticks)
	}
	if a.Running() {
		t.Error("expected loop to be stopped")
	}
}

func TestApp_CapturePipeline_RestartAfterEOF(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	frames := testdata.BlankFrames(3)
	defer func() {
		for _, f := range frames {
			f.Close()
		}
	}()

	cfg := testConfig(5, 5)
	cfg.Capture.InferenceIntervalMs = 5

	a := newApp(t, cfg,
		WithCamera(capture.NewMockCamera(frames, false)),
		WithDetector(detector.NewMockDetector()),
	)

	var ticks int
	a.Subscribe(func(*TickResult) { ticks++ })

	for run := 1; run <= 2; run++ {
		if err := a.Start(); err != nil {
			t.Fatalf("run %d: Start() error = %v", run, err)
		}
		if !a.Running() {
			t.Fatalf("run %d: expected loop to be running", run)
		}

		select {
		case <-a.Done():
		case <-time.After(5 * time.Second):
			a.Stop()
			t.Fatalf("run %d: capture loop did not stop at end of video", run)
		}

		if a.Running() {
			t.Errorf("run %d: expected loop to report stopped", run)
		}
		if ticks != run*len(frames) {
			t.Errorf("run %d: expected %d ticks, got %d", run, run*len(frames), ticks)
		}
	}
	a.Stop()
}
