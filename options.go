package cargoqueue

import (
	"fmt"
	"time"

	"github.com/dayemsiddiqui/cargo-queue/retry"
)

// Option is a function that configures a QueueService.
//
// Example:
//
//	svc, err := cargoqueue.NewQueueService(
//	    cargoqueue.WithRepositories(repos.Queue, repos.Message),
//	    cargoqueue.WithLogger(logger),
//	    cargoqueue.WithMetrics(metrics), // optional
//	)
type Option func(*QueueService) error

// WithRepositories sets the required repository dependencies for the queue service.
// Both repositories are required and must not be nil.
//
// This is a required option for NewQueueService.
func WithRepositories(queueRepo QueueRepository, messageRepo MessageRepository) Option {
	return func(s *QueueService) error {
		if queueRepo == nil {
			return fmt.Errorf("queueRepo cannot be nil")
		}
		if messageRepo == nil {
			return fmt.Errorf("messageRepo cannot be nil")
		}

		s.queues = queueRepo
		s.messages = messageRepo
		return nil
	}
}

// WithLogger sets the logger instance for the queue service.
// Logger is required and must not be nil.
//
// Use NoopLogger for silent operation.
func WithLogger(logger Logger) Option {
	return func(s *QueueService) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithClock replaces time.Now as the source of message expiry and claim timestamps.
// The returned times are converted to UTC.
func WithClock(now func() time.Time) Option {
	return func(s *QueueService) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		s.now = func() time.Time { return now().UTC() }
		return nil
	}
}

// WithMetrics sets the metrics sink. Default is NoopMetrics.
func WithMetrics(metrics Metrics) Option {
	return func(s *QueueService) error {
		if metrics == nil {
			return fmt.Errorf("metrics cannot be nil")
		}
		s.metrics = metrics
		return nil
	}
}

// WithNotifications sets an optional notification service.
// Default is NoOpNotificationService.
func WithNotifications(service NotificationService) Option {
	return func(s *QueueService) error {
		if service == nil {
			return fmt.Errorf("notification service cannot be nil")
		}
		s.notificationService = service
		return nil
	}
}

// WithClaimStrategy sets how often ClaimMessage retries a lost compare-and-set.
// Default is retry.ClaimStrategy().
func WithClaimStrategy(strategy retry.Strategy) Option {
	return func(s *QueueService) error {
		if strategy.MaxAttempts <= 0 {
			return fmt.Errorf("claim strategy max attempts must be > 0, got %d", strategy.MaxAttempts)
		}
		s.claimStrategy = strategy
		return nil
	}
}
