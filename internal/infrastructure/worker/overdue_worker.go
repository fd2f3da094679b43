package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// OverdueMarker moves past-due invoices to overdue
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, today time.Time, limit int) (int, error)
}

// OverdueConfig holds configuration for the overdue sweeper
type OverdueConfig struct {
	Interval  time.Duration
	BatchSize int
}

// DefaultOverdueConfig returns default configuration
func DefaultOverdueConfig() OverdueConfig {
	return OverdueConfig{
		Interval:  time.Hour,
		BatchSize: 200,
	}
}

// OverdueStats is a snapshot of the sweeper's counters
type OverdueStats struct {
	Running   bool      `json:"running"`
	Runs      int       `json:"runs"`
	Marked    int       `json:"marked"`
	LastRunAt time.Time `json:"lastRunAt"`
	LastError string    `json:"lastError,omitempty"`
}

// OverdueWorker periodically sweeps issued and sent invoices past their due date
type OverdueWorker struct {
	config OverdueConfig
	marker OverdueMarker
	now    func() time.Time
	logger *zap.Logger

	mu     sync.RWMutex
	cancel context.CancelFunc
	done   chan struct{}
	stats  OverdueStats
}

// NewOverdueWorker creates a new overdue sweeper
func NewOverdueWorker(config OverdueConfig, marker OverdueMarker, logger *zap.Logger) *OverdueWorker {
	if config.Interval <= 0 {
		config.Interval = DefaultOverdueConfig().Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultOverdueConfig().BatchSize
	}
	return &OverdueWorker{
		config: config,
		marker: marker,
		now:    time.Now,
		logger: logger,
	}
}

// Name returns the worker name for identification
func (w *OverdueWorker) Name() string {
	return "OverdueInvoiceWorker"
}

// Start runs one sweep immediately, then one per interval
func (w *OverdueWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stats.Running {
		return fmt.Errorf("overdue worker already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.stats.Running = true

	w.logger.Info("OverdueInvoiceWorker started",
		zap.Duration("interval", w.config.Interval),
		zap.Int("batch_size", w.config.BatchSize))

	go w.loop(runCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish
func (w *OverdueWorker) Stop() error {
	w.mu.Lock()
	if !w.stats.Running {
		w.mu.Unlock()
		return nil
	}
	w.stats.Running = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	stats := w.Stats()
	w.logger.Info("OverdueInvoiceWorker stopped",
		zap.Int("runs", stats.Runs),
		zap.Int("marked", stats.Marked))
	return nil
}

// Stats returns a snapshot of the worker counters
func (w *OverdueWorker) Stats() OverdueStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *OverdueWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep drains past-due invoices in batches until a batch comes back short
func (w *OverdueWorker) sweep(ctx context.Context) {
	today := w.now()
	total := 0
	var sweepErr error

	for ctx.Err() == nil {
		marked, err := w.marker.MarkOverdue(ctx, today, w.config.BatchSize)
		total += marked
		if err != nil {
			sweepErr = err
			break
		}
		if marked < w.config.BatchSize {
			break
		}
	}

	w.mu.Lock()
	w.stats.Runs++
	w.stats.Marked += total
	w.stats.LastRunAt = today
	w.stats.LastError = ""
	if sweepErr != nil {
		w.stats.LastError = sweepErr.Error()
	}
	w.mu.Unlock()

	if sweepErr != nil && ctx.Err() == nil {
		w.logger.Error("Overdue sweep failed", zap.Int("marked", total), zap.Error(sweepErr))
		return
	}
	if total > 0 {
		w.logger.Info("Overdue sweep completed", zap.Int("marked", total))
	}
}
