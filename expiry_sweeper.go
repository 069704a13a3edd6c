package cargoqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/dayemsiddiqui/cargo-queue/retry"
)

// ExpirySweeper deletes messages whose expiry has passed.
//
// SQL stores have no TTL index, so expiry is enforced by this background loop.
// Until a sweep runs, an expired but unacknowledged message can still be polled.
//
// Thread safety: Run and SweepOnce may be called concurrently; overlapping sweeps
// delete disjoint rows or find nothing.
type ExpirySweeper struct {
	messages            MessageRepository
	logger              Logger
	metrics             Metrics
	notificationService NotificationService
	backoff             retry.Strategy
	batchSize           int
	now                 func() time.Time
}

// SweeperOption configures an ExpirySweeper.
type SweeperOption func(*ExpirySweeper) error

// NewExpirySweeper creates a new ExpirySweeper with the provided options.
//
// Required options:
//   - WithSweeperRepository: message repository
//   - WithSweeperLogger: logger instance
//
// Optional options:
//   - WithSweeperBatchSize: rows deleted per statement (default: 500)
//   - WithSweeperBackoff: backoff after a failed sweep (default: retry.DefaultStrategy())
//   - WithSweeperClock, WithSweeperMetrics, WithSweeperNotifications
//
// Example:
//
//	sweeper, err := cargoqueue.NewExpirySweeper(
//	    cargoqueue.WithSweeperRepository(repos.Message),
//	    cargoqueue.WithSweeperLogger(logger),
//	)
//	go sweeper.Run(ctx, 30*time.Second)
func NewExpirySweeper(opts ...SweeperOption) (*ExpirySweeper, error) {
	w := &ExpirySweeper{
		metrics:             NoopMetrics{},
		notificationService: &NoOpNotificationService{},
		backoff:             retry.DefaultStrategy(),
		batchSize:           500,
		now:                 func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply sweeper option", err)
		}
	}

	if w.messages == nil {
		return nil, NewError(ErrCodeConfiguration, "MessageRepository is required (use WithSweeperRepository)")
	}
	if w.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithSweeperLogger)")
	}

	return w, nil
}

// WithSweeperRepository sets the message repository to sweep.
func WithSweeperRepository(messageRepo MessageRepository) SweeperOption {
	return func(w *ExpirySweeper) error {
		if messageRepo == nil {
			return fmt.Errorf("messageRepo cannot be nil")
		}
		w.messages = messageRepo
		return nil
	}
}

// WithSweeperLogger sets the logger instance.
func WithSweeperLogger(logger Logger) SweeperOption {
	return func(w *ExpirySweeper) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		w.logger = logger
		return nil
	}
}

// WithSweeperBatchSize sets the number of messages deleted per storage call.
// Must be > 0.
func WithSweeperBatchSize(size int) SweeperOption {
	return func(w *ExpirySweeper) error {
		if size <= 0 {
			return fmt.Errorf("batch size must be > 0, got %d", size)
		}
		w.batchSize = size
		return nil
	}
}

// WithSweeperBackoff sets the backoff applied after consecutive failed sweeps.
func WithSweeperBackoff(strategy retry.Strategy) SweeperOption {
	return func(w *ExpirySweeper) error {
		w.backoff = strategy
		return nil
	}
}

// WithSweeperClock replaces time.Now as the expiry cutoff.
func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(w *ExpirySweeper) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		w.now = func() time.Time { return now().UTC() }
		return nil
	}
}

// WithSweeperMetrics sets the metrics sink.
func WithSweeperMetrics(metrics Metrics) SweeperOption {
	return func(w *ExpirySweeper) error {
		if metrics == nil {
			return fmt.Errorf("metrics cannot be nil")
		}
		w.metrics = metrics
		return nil
	}
}

// WithSweeperNotifications sets the service told about removed messages.
func WithSweeperNotifications(service NotificationService) SweeperOption {
	return func(w *ExpirySweeper) error {
		if service == nil {
			return fmt.Errorf("notification service cannot be nil")
		}
		w.notificationService = service
		return nil
	}
}

// SweepOnce deletes every message with expires_at <= now, one batch at a time,
// until a batch comes back short. Returns the total number deleted.
func (w *ExpirySweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := w.now()
	total := 0

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		deleted, err := w.messages.DeleteExpired(ctx, cutoff, w.batchSize)
		total += deleted
		if err != nil {
			return total, databaseError("failed to delete expired messages", err)
		}
		if deleted < w.batchSize {
			break
		}
	}

	if total > 0 {
		w.metrics.MessagesExpired(total)
		if err := w.notificationService.NotifyMessagesExpired(ctx, total); err != nil {
			w.logger.Warnf("Failed to send expiry notification: %v", err)
		}
		w.logger.Infof("Cleaned up %d expired messages", total)
	}

	return total, nil
}

// Run starts the sweep loop. It runs until the context is canceled, sweeping at the
// given interval. After a failed sweep the next one is delayed per the backoff strategy
// on top of the interval; the failure count resets on the first success.
//
// This method blocks and should typically be run in a goroutine.
func (w *ExpirySweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Infof("Expiry sweeper started (interval: %v, batch size: %d)", interval, w.batchSize)
	w.logger.Infof("Expiry sweeper failure backoff %s", w.backoff.GetRetrySchedule())

	failures := 0
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			failures = w.sweep(ctx, failures)
		}
	}
}

// sweep runs one SweepOnce and returns the updated consecutive failure count.
func (w *ExpirySweeper) sweep(ctx context.Context, failures int) int {
	if _, err := w.SweepOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return failures
		}
		failures++
		w.logger.Errorf("Expiry sweep failed (attempt %d): %v", failures, err)

		if !w.backoff.IsRetryable(failures) {
			w.logger.Warnf("Expiry sweep failing persistently, holding backoff at %v", w.backoff.MaxDelay)
		}
		_ = w.backoff.Wait(ctx, failures)
		return failures
	}
	return 0
}
