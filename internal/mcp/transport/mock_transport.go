package transport

import (
	"codelens/internal/mcp/contracts"
	"context"
	"fmt"
	"sync"
)

// MockAdapter implements Adapter in process, without JSON framing.
type MockAdapter struct {
	mu       sync.Mutex
	started  bool
	requests chan mockRequest
	stop     chan struct{}
	stopOnce sync.Once
}

type mockRequest struct {
	req      contracts.Request
	res      chan contracts.Response
	accepted chan struct{}
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		requests: make(chan mockRequest),
		stop:     make(chan struct{}),
	}
}

func (m *MockAdapter) Start(ctx context.Context, handler Handler) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("mock adapter already started")
	}
	m.started = true
	m.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.stop:
			return nil
		case r := <-m.requests:
			res := r.res
			handler(ctx, r.req, func(resp contracts.Response) { res <- resp })
			close(r.accepted)
		}
	}
}

// Stop ends Start as if the input had been closed.
func (m *MockAdapter) Stop() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

// Send submits a request and returns a channel receiving its response. It
// returns once the handler has accepted the request, so requests sent one
// after another reach the handler in that order.
func (m *MockAdapter) Send(ctx context.Context, req contracts.Request) (<-chan contracts.Response, error) {
	r := mockRequest{req: req, res: make(chan contracts.Response, 1), accepted: make(chan struct{})}
	select {
	case m.requests <- r:
		<-r.accepted
		return r.res, nil
	case <-m.stop:
		return nil, fmt.Errorf("mock adapter stopped")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Call simulates a request from a client and waits for its response.
func (m *MockAdapter) Call(ctx context.Context, req contracts.Request) (contracts.Response, error) {
	res, err := m.Send(ctx, req)
	if err != nil {
		return contracts.Response{}, err
	}
	select {
	case resp := <-res:
		return resp, nil
	case <-ctx.Done():
		return contracts.Response{}, ctx.Err()
	}
}
