package auth

import (
	"context"
	"math/rand/v2"
	"time"
)

// FailureDelay holds failed logins for a base delay plus random jitter, so
// "no such account", "wrong password" and "locked" answer in similar time.
type FailureDelay struct {
	base   time.Duration
	jitter time.Duration
}

func NewFailureDelay(baseMs, jitterMs int) *FailureDelay {
	return &FailureDelay{
		base:   time.Duration(max(baseMs, 0)) * time.Millisecond,
		jitter: time.Duration(max(jitterMs, 0)) * time.Millisecond,
	}
}

// Duration picks the delay for one failure.
func (d *FailureDelay) Duration() time.Duration {
	if d.jitter <= 0 {
		return d.base
	}
	return d.base + rand.N(d.jitter)
}

// WaitFrom sleeps until at least one delay has passed since start, or ctx ends.
func (d *FailureDelay) WaitFrom(ctx context.Context, start time.Time) {
	if d == nil {
		return
	}
	remaining := d.Duration() - time.Since(start)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
