package realtime

import (
	"context"
	"time"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

func nextBackoff(current time.Duration) time.Duration {
	if current < minBackoff {
		return minBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

// sleep waits for d or until ctx is done, reporting whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
