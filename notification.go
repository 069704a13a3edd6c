package cargoqueue

import (
	"context"

	"github.com/dayemsiddiqui/cargo-queue/model"
)

// NotificationService defines an optional interface for sending notifications
// about queue events that an operator may want to hear about.
//
// Implementations might send emails, Slack messages, or log to monitoring systems.
type NotificationService interface {
	// NotifyQueueDeleted is called after a queue record is removed.
	// Messages of the queue are not removed with it.
	NotifyQueueDeleted(ctx context.Context, queue model.Queue) error

	// NotifyMessagesExpired is called after the expiry sweeper removed messages.
	NotifyMessagesExpired(ctx context.Context, count int) error

	// NotifyPublishFailure is called once per target queue that failed during a topic publish.
	NotifyPublishFailure(ctx context.Context, topic string, queueID int64, err error) error
}

// NoOpNotificationService is a no-op implementation of NotificationService.
// Use this when notifications are not needed.
type NoOpNotificationService struct{}

// NotifyQueueDeleted does nothing.
func (n *NoOpNotificationService) NotifyQueueDeleted(_ context.Context, _ model.Queue) error {
	return nil
}

// NotifyMessagesExpired does nothing.
func (n *NoOpNotificationService) NotifyMessagesExpired(_ context.Context, _ int) error {
	return nil
}

// NotifyPublishFailure does nothing.
func (n *NoOpNotificationService) NotifyPublishFailure(_ context.Context, _ string, _ int64, _ error) error {
	return nil
}

// LoggingNotificationService is a simple implementation that logs notifications.
type LoggingNotificationService struct {
	logger Logger
}

// NewLoggingNotificationService creates a new LoggingNotificationService.
func NewLoggingNotificationService(logger Logger) *LoggingNotificationService {
	return &LoggingNotificationService{logger: logger}
}

// NotifyQueueDeleted logs queue deletion.
func (n *LoggingNotificationService) NotifyQueueDeleted(_ context.Context, queue model.Queue) error {
	n.logger.Infof("🔴 Queue deleted: id=%d, slug=%s", queue.ID, queue.Slug)
	return nil
}

// NotifyMessagesExpired logs expired message removal.
func (n *LoggingNotificationService) NotifyMessagesExpired(_ context.Context, count int) error {
	n.logger.Infof("⏳ Expired messages removed: count=%d", count)
	return nil
}

// NotifyPublishFailure logs a failed fan-out target.
func (n *LoggingNotificationService) NotifyPublishFailure(_ context.Context, topic string, queueID int64, err error) error {
	n.logger.Warnf("⚠️ Publish failed: topic=%s, queue_id=%d, error=%v", topic, queueID, err)
	return nil
}
