package auditlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	journalEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todomanager_journal_entries_total",
			Help: "Request journal entries by outcome: written, dropped or failed",
		},
		[]string{"outcome"},
	)
	journalBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "todomanager_journal_batch_duration_seconds",
			Help:    "Time spent writing one batch to the journal store",
			Buckets: prometheus.DefBuckets,
		},
	)
)

const (
	outcomeWritten = "written"
	outcomeDropped = "dropped"
	outcomeFailed  = "failed"
)

// Logger queues entries on a channel and writes them to a LogStore in
// batches, either when BatchFlushThreshold entries are pending or when
// FlushInterval elapses.
type Logger struct {
	store  LogStore
	config Config

	queue chan *LogEntry
	stop  chan struct{}
	wg    sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// NewLogger creates a Logger and starts its writer goroutine.
func NewLogger(store LogStore, cfg Config) *Logger {
	defaults := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaults.BufferSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}

	l := &Logger{
		store:  store,
		config: cfg,
		queue:  make(chan *LogEntry, cfg.BufferSize),
		stop:   make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

// Write queues entry without blocking. Entries arriving while the queue is
// full, or after Close, are dropped.
func (l *Logger) Write(entry *LogEntry) {
	if entry == nil {
		return
	}
	select {
	case <-l.stop:
		journalEntries.WithLabelValues(outcomeDropped).Inc()
		return
	default:
	}

	select {
	case l.queue <- entry:
	default:
		journalEntries.WithLabelValues(outcomeDropped).Inc()
		slog.Warn("request journal queue full, dropping entry",
			"request_id", entry.RequestID,
			"path", entry.Path,
		)
	}
}

// Config returns the logger configuration
func (l *Logger) Config() Config {
	return l.config
}

// Close writes everything still queued, then closes the store. Later calls
// return the first result.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		close(l.stop)
		l.wg.Wait()
		l.closeErr = l.store.Close()
	})
	return l.closeErr
}

func (l *Logger) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	pending := make([]*LogEntry, 0, BatchFlushThreshold)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		l.writeBatch(pending)
		pending = make([]*LogEntry, 0, BatchFlushThreshold)
	}

	for {
		select {
		case entry := <-l.queue:
			pending = append(pending, entry)
			if len(pending) >= BatchFlushThreshold {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-l.stop:
			// The queue stays open; entries that raced in before stop are drained here.
			for drained := false; !drained; {
				select {
				case entry := <-l.queue:
					pending = append(pending, entry)
				default:
					drained = true
				}
			}
			flush()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := l.store.Flush(ctx); err != nil {
				slog.Error("failed to flush request journal store", "error", err)
			}
			cancel()
			return
		}
	}
}

func (l *Logger) writeBatch(batch []*LogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	err := l.store.WriteBatch(ctx, batch)
	journalBatchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		journalEntries.WithLabelValues(outcomeFailed).Add(float64(len(batch)))
		slog.Error("failed to write request journal batch",
			"error", err,
			"count", len(batch),
		)
		return
	}
	journalEntries.WithLabelValues(outcomeWritten).Add(float64(len(batch)))
}

// NoopLogger is used when the journal is disabled.
type NoopLogger struct{}

// Write does nothing
func (l *NoopLogger) Write(_ *LogEntry) {}

// Config returns a disabled config
func (l *NoopLogger) Config() Config {
	return Config{Enabled: false}
}

// Close does nothing
func (l *NoopLogger) Close() error {
	return nil
}

// LoggerInterface is satisfied by Logger and NoopLogger.
type LoggerInterface interface {
	Write(entry *LogEntry)
	Config() Config
	Close() error
}
