package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/cardsight/internal/detection"
)

// MockDetector is a test implementation of the Detector interface.
// It replays scripted batches, one per Detect call, and keeps returning the
// last batch once the script is exhausted.
type MockDetector struct {
	mu      sync.Mutex
	batches [][]detection.Detection
	next    int
	err     error
	closed  bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetDetections makes every Detect call return dets.
func (m *MockDetector) SetDetections(dets []detection.Detection) {
	m.SetScript([][]detection.Detection{dets})
}

// SetScript sets the batches returned by successive Detect calls.
func (m *MockDetector) SetScript(batches [][]detection.Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = batches
	m.next = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the next scripted batch or the configured error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]detection.Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if len(m.batches) == 0 {
		return nil, nil
	}

	i := m.next
	if i >= len(m.batches) {
		i = len(m.batches) - 1
	} else {
		m.next++
	}
	return m.batches[i], nil
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
