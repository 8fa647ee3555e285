// Package clockutil provides the single injectable source of time.
// All timestamps and sleeps in the orchestrator and hub go through a Clock
// so tests can run polling loops and timeout paths without real waiting.
package clockutil

import (
	"context"
	"time"
)

// Clock is the time capability consumed by the engine, hub, and poller.
type Clock interface {
	// Now returns the current time in UTC.
	Now() time.Time

	// Sleep blocks for d or until ctx is cancelled, whichever comes first.
	// It returns ctx.Err() when cancelled, nil when the full duration elapsed.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real is the production clock backed by the time package.
type Real struct{}

// NewReal returns the production clock.
func NewReal() *Real {
	return &Real{}
}

// Now returns the current UTC time.
func (*Real) Now() time.Time {
	return time.Now().UTC()
}

// Sleep waits for d, honoring context cancellation.
func (*Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
