package auditlog

import (
	"sync"
	"time"
)

// CleanupInterval is how often expired journal entries are deleted.
const CleanupInterval = 1 * time.Hour

// RunCleanupLoop runs cleanupFn immediately and then every CleanupInterval
// until stop is closed.
func RunCleanupLoop(stop <-chan struct{}, cleanupFn func()) {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	cleanupFn()

	for {
		select {
		case <-ticker.C:
			cleanupFn()
		case <-stop:
			return
		}
	}
}

// retention owns the cleanup goroutine shared by the SQL stores.
type retention struct {
	days     int
	stop     chan struct{}
	stopOnce sync.Once
}

func newRetention(days int, cleanupFn func()) *retention {
	r := &retention{days: days, stop: make(chan struct{})}
	if days > 0 {
		go RunCleanupLoop(r.stop, cleanupFn)
	}
	return r
}

// cutoff is the oldest timestamp kept.
func (r *retention) cutoff() time.Time {
	return time.Now().AddDate(0, 0, -r.days).UTC()
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (r *retention) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}
