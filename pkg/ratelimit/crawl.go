package ratelimit

import (
	"context"
	"time"
)

// DefaultCrawlInterval is the minimum spacing between crawl-limited requests
// to crates.io, per its crawler policy of at most one request per second.
const DefaultCrawlInterval = 1250 * time.Millisecond

// CrawlLimiter spaces requests at least one interval apart. It never fails a
// request; callers arriving inside a window wait for it to close.
type CrawlLimiter struct {
	coord    *Coordinator
	interval time.Duration
}

// NewCrawlLimiter creates a limiter. A non-positive interval uses
// DefaultCrawlInterval.
func NewCrawlLimiter(name string, interval time.Duration) *CrawlLimiter {
	if interval <= 0 {
		interval = DefaultCrawlInterval
	}
	return &CrawlLimiter{coord: NewCoordinator(name), interval: interval}
}

// Acquire waits for the current window to close, then opens a new one and
// returns. At most one caller returns per window.
func (l *CrawlLimiter) Acquire(ctx context.Context) error {
	for {
		if err := l.coord.WaitUntilOpen(ctx); err != nil {
			return err
		}
		if l.coord.EnterLimited() {
			time.AfterFunc(l.interval, func() { l.coord.Open() })
			return nil
		}
	}
}

// IsLimited reports whether a window is currently open.
func (l *CrawlLimiter) IsLimited() bool { return l.coord.IsLimited() }

// Interval returns the window length.
func (l *CrawlLimiter) Interval() time.Duration { return l.interval }
