package sequencer

import (
	"context"
	"time"
)

// pacer spaces successive tasks by a fixed delay. The first Wait is
// free; every later one sleeps. One pacer serves one pipeline run, so
// pacing never leaks across runs.
type pacer struct {
	delay time.Duration
	sleep func(ctx context.Context, d time.Duration) error
	ran   bool
}

func newPacer(delay time.Duration, sleep func(ctx context.Context, d time.Duration) error) *pacer {
	return &pacer{delay: delay, sleep: sleep}
}

// Wait blocks until the next task may start, or until ctx is done.
func (p *pacer) Wait(ctx context.Context) error {
	if !p.ran {
		p.ran = true
		return ctx.Err()
	}
	return p.sleep(ctx, p.delay)
}
