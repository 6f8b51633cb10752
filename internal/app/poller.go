package app

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 30 * time.Second
)

// Refresher reloads server state into the caches.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// StartPoller launches a background goroutine that refreshes at a fixed
// cadence, backing off exponentially while refreshes fail. It returns
// immediately.
func StartPoller(ctx context.Context, r Refresher, interval time.Duration, logger *log.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go poll(ctx, r, interval, logger)
}

func poll(ctx context.Context, r Refresher, interval time.Duration, logger *log.Logger) {
	failures := 0
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		failures = refresh(ctx, r, failures, logger)
		timer.Reset(calculateBackoff(failures, interval))
	}
}

// refresh runs one poll and returns the updated consecutive failure count.
func refresh(ctx context.Context, r Refresher, failures int, logger *log.Logger) int {
	if err := r.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return failures
		}
		failures++
		if logger != nil {
			logger.Warn("refresh failed", "err", err, "failures", failures)
		}
		return failures
	}
	if failures > 0 && logger != nil {
		logger.Info("refresh recovered", "after_failures", failures)
	}
	return 0
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
