package agentrunner

import (
	"context"
	"sync"
	"time"

	"github.com/farmer1st/farmer-code/internal/fault"
)

// Fake is a scripted Runner for tests. Responses are consumed in order; when
// the script runs dry the last response repeats.
type Fake struct {
	mu        sync.Mutex
	responses []FakeResponse
	requests  []Request
}

// FakeResponse is one scripted dispatch outcome.
type FakeResponse struct {
	Output string
	Err    error
}

// NewFake creates a fake runner with the given script.
func NewFake(responses ...FakeResponse) *Fake {
	return &Fake{responses: responses}
}

// Name returns the runner identifier.
func (f *Fake) Name() string {
	return "fake"
}

// Dispatch records the request and returns the next scripted response.
func (f *Fake) Dispatch(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fault.Wrap(fault.AgentUnavailable, err, "dispatch cancelled")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	if len(f.responses) == 0 {
		return nil, fault.New(fault.AgentUnavailable, "fake runner has no scripted responses")
	}

	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return &Result{
		Output:   resp.Output,
		Duration: 50 * time.Millisecond,
		Metadata: map[string]string{"runner": f.Name()},
	}, nil
}

// Requests returns the dispatched requests in order.
func (f *Fake) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}
