package evaluator

import (
	"context"
	"sync"
)

// MockEvaluator records requests and returns a fixed response.
type MockEvaluator struct {
	mu       sync.Mutex
	response *Response
	err      error
	requests []*Request
}

// NewMockEvaluator creates a MockEvaluator that answers with resp.
func NewMockEvaluator(resp *Response) *MockEvaluator {
	return &MockEvaluator{response: resp}
}

// SetError makes Evaluate fail with err.
func (m *MockEvaluator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Evaluate records req.
func (m *MockEvaluator) Evaluate(ctx context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

// Requests returns the requests seen so far.
func (m *MockEvaluator) Requests() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Request(nil), m.requests...)
}
