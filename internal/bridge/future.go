package bridge

import (
	"codelens/internal/mcp/contracts"
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Future is the pending result of one request.
type Future struct {
	ID        uint64
	Operation string

	params json.RawMessage
	start  time.Time
	timer  *time.Timer

	once   sync.Once
	done   chan struct{}
	result *contracts.Envelope
	err    error
}

func newFuture(id uint64, operation string, params json.RawMessage) *Future {
	return &Future{
		ID:        id,
		Operation: operation,
		params:    params,
		start:     time.Now(),
		done:      make(chan struct{}),
	}
}

// Done is closed once the future is resolved or rejected.
func (f *Future) Done() <-chan struct{} { return f.done }

// Await blocks until the response arrives or ctx ends. Giving up on ctx does
// not cancel the request; it still resolves or times out in the bridge.
func (f *Future) Await(ctx context.Context) (*contracts.Envelope, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// complete settles the future once and reports whether this call did it.
func (f *Future) complete(result *contracts.Envelope, err error) bool {
	settled := false
	f.once.Do(func() {
		if f.timer != nil {
			f.timer.Stop()
		}
		f.result = result
		f.err = err
		close(f.done)
		settled = true
	})
	return settled
}
