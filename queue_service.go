package cargoqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dayemsiddiqui/cargo-queue/model"
	"github.com/dayemsiddiqui/cargo-queue/retry"
)

// QueueService orchestrates the queue directory and the message store:
// queue lifecycle, send, poll, claim, acknowledge, retention changes and purges.
//
// The service holds no locks and caches nothing; every call reads the repositories.
// Poll followed by Acknowledge is two independent operations, so two pollers of the
// same queue may both receive the same message. ClaimMessage is the atomic variant.
//
// Thread safety: Safe for concurrent use.
type QueueService struct {
	queues              QueueRepository
	messages            MessageRepository
	logger              Logger
	metrics             Metrics
	notificationService NotificationService
	claimStrategy       retry.Strategy
	now                 func() time.Time
}

// PurgeResult is returned by PurgeQueue.
type PurgeResult struct {
	Purged bool `json:"purged"`
	Count  int  `json:"count"`
}

// DeleteResult is returned by DeleteQueue and PurgeAndDeleteAllQueues.
type DeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// QueueStats reports message counts of one queue.
type QueueStats struct {
	Queue       model.Queue `json:"queue"`
	Total       int         `json:"total"`
	Unprocessed int         `json:"unprocessed"`
}

// NewQueueService creates a new QueueService with the provided options.
//
// Required options:
//   - WithRepositories: queue and message repositories
//   - WithLogger: logger instance
//
// Optional options:
//   - WithClock: time source (default: time.Now in UTC)
//   - WithMetrics: metrics sink (default: NoopMetrics)
//   - WithNotifications: notification service (default: no notifications)
//   - WithClaimStrategy: claim contention retries (default: retry.ClaimStrategy())
func NewQueueService(opts ...Option) (*QueueService, error) {
	s := &QueueService{
		metrics:             NoopMetrics{},
		notificationService: &NoOpNotificationService{},
		claimStrategy:       retry.ClaimStrategy(),
		now:                 func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply queue service option", err)
		}
	}

	if s.queues == nil {
		return nil, NewError(ErrCodeConfiguration, "QueueRepository is required (use WithRepositories)")
	}
	if s.messages == nil {
		return nil, NewError(ErrCodeConfiguration, "MessageRepository is required (use WithRepositories)")
	}
	if s.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithLogger)")
	}

	return s, nil
}

// CreateQueue creates a queue whose slug is derived from name.
// Fails with Conflict if the name or the derived slug is already taken.
// A retention period of 0 is stored as "never expire".
func (s *QueueService) CreateQueue(ctx context.Context, name string, retentionPeriod *int64) (*model.Queue, error) {
	q := model.NewQueue(name, retentionPeriod, s.now())
	if err := q.Validate(); err != nil {
		return nil, NewValidationError(err)
	}

	byName, err := s.queues.FindByName(ctx, q.Name)
	if err != nil {
		return nil, databaseError("failed to look up queue name", err)
	}
	bySlug, err := s.queues.FindBySlug(ctx, q.Slug)
	if err != nil {
		return nil, databaseError("failed to look up queue slug", err)
	}
	if byName != nil || bySlug != nil {
		return nil, ErrQueueNameTaken
	}

	created, err := s.queues.Create(ctx, q)
	if err != nil {
		if IsConflict(err) {
			return nil, ErrQueueNameTaken
		}
		return nil, databaseError("failed to create queue", err)
	}

	s.logger.Infof("Queue created: id=%d, slug=%s, retention=%v", created.ID, created.Slug, created.Retention())
	return created, nil
}

// FindAllQueues returns every queue.
func (s *QueueService) FindAllQueues(ctx context.Context) ([]model.Queue, error) {
	queues, err := s.queues.FindAll(ctx)
	if err != nil {
		return nil, databaseError("failed to list queues", err)
	}
	return queues, nil
}

// FindQueueBySlug returns the queue with the given slug or a NotFound error.
func (s *QueueService) FindQueueBySlug(ctx context.Context, slug string) (*model.Queue, error) {
	q, err := s.queues.FindBySlug(ctx, slug)
	if err != nil {
		return nil, databaseError("failed to find queue", err)
	}
	if q == nil {
		return nil, NewError(ErrCodeNotFound, fmt.Sprintf("Queue with slug '%s' not found", slug))
	}
	return q, nil
}

// QueueExists reports whether a queue with the given ID exists.
func (s *QueueService) QueueExists(ctx context.Context, id int64) (bool, error) {
	q, err := s.queues.FindByID(ctx, id)
	if err != nil {
		return false, databaseError("failed to find queue", err)
	}
	return q != nil, nil
}

// SendMessage appends body to the queue with the given slug.
// The message expires at now + retention when the queue has a retention period.
func (s *QueueService) SendMessage(ctx context.Context, slug, body string) (*model.Message, error) {
	q, err := s.FindQueueBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.enqueue(ctx, q, body)
}

// EnqueueMessage appends body to the queue with the given ID.
// Used by topic fan-out so a publish needs no slug lookups.
func (s *QueueService) EnqueueMessage(ctx context.Context, queueID int64, body string) (*model.Message, error) {
	q, err := s.queues.FindByID(ctx, queueID)
	if err != nil {
		return nil, databaseError("failed to find queue", err)
	}
	if q == nil {
		return nil, NewError(ErrCodeNotFound, fmt.Sprintf("Queue %d does not exist", queueID))
	}
	return s.enqueue(ctx, q, body)
}

func (s *QueueService) enqueue(ctx context.Context, q *model.Queue, body string) (*model.Message, error) {
	msg, err := s.messages.Create(ctx, q.ID, body, q.ExpiryFrom(s.now()))
	if err != nil {
		if IsValidation(err) {
			return nil, err
		}
		return nil, databaseError("failed to create message", err)
	}

	s.metrics.MessageSent(q.Slug)
	s.logger.Debugf("Message %d enqueued to queue %s", msg.ID, q.Slug)
	return msg, nil
}

// PollMessage returns the oldest unprocessed, visible message of the queue,
// or nil when there is none. Polling does not hide or mark the message.
func (s *QueueService) PollMessage(ctx context.Context, slug string) (*model.Message, error) {
	q, err := s.FindQueueBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	msg, err := s.messages.FindOldestUnprocessed(ctx, q.ID, s.now())
	if err != nil {
		return nil, databaseError("failed to poll message", err)
	}
	return msg, nil
}

// ClaimMessage atomically takes the oldest unprocessed, visible message and hides it
// from Poll and ClaimMessage for the given visibility window. The claimer is expected
// to acknowledge before the window elapses; otherwise the message becomes visible again.
//
// Returns nil when nothing is claimable, including when every attempt lost its
// compare-and-set to a concurrent consumer.
func (s *QueueService) ClaimMessage(ctx context.Context, slug string, visibility time.Duration) (*model.Message, error) {
	if visibility <= 0 {
		return nil, NewError(ErrCodeValidation, "Visibility timeout must be a positive number of seconds")
	}

	q, err := s.FindQueueBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		now := s.now()
		msg, err := s.messages.ClaimOldestUnprocessed(ctx, q.ID, now, now.Add(visibility))
		if err == nil {
			if msg != nil {
				s.metrics.MessageClaimed(q.Slug)
				s.logger.Debugf("Message %d claimed from queue %s until %v", msg.ID, q.Slug, now.Add(visibility))
			}
			return msg, nil
		}
		if !errors.Is(err, ErrClaimContended) {
			return nil, databaseError("failed to claim message", err)
		}
		if !s.claimStrategy.IsRetryable(attempt) {
			s.logger.Warnf("Claim on queue %s gave up after %d contended attempts", q.Slug, attempt)
			return nil, nil
		}
		if err := s.claimStrategy.Wait(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

// AcknowledgeMessage marks the message processed. Acknowledging an already
// processed message succeeds and returns it unchanged.
func (s *QueueService) AcknowledgeMessage(ctx context.Context, messageID int64) (*model.Message, error) {
	msg, err := s.messages.MarkProcessed(ctx, messageID)
	if err != nil {
		return nil, databaseError("failed to acknowledge message", err)
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}

	s.metrics.MessageAcknowledged()
	return msg, nil
}

// UpdateQueueRetentionPolicy stores a new retention period (nil or 0 means never expire),
// then rewrites the expiry of every message in the queue: now + period, or cleared.
//
// The rewrite touches every message of the queue, so its cost grows with queue size;
// the rewritten count is reported through Metrics.RetentionCascade.
func (s *QueueService) UpdateQueueRetentionPolicy(ctx context.Context, slug string, period *int64) (*model.Queue, error) {
	q, err := s.FindQueueBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	candidate := *q
	candidate.RetentionPeriod = model.NormalizeRetention(period)
	if err := candidate.Validate(); err != nil {
		return nil, NewValidationError(err)
	}

	updated, err := s.queues.UpdateRetention(ctx, q.ID, candidate.RetentionPeriod)
	if err != nil {
		return nil, databaseError("failed to update retention period", err)
	}
	if updated == nil {
		return nil, NewError(ErrCodeNotFound, fmt.Sprintf("Queue with slug '%s' not found", slug))
	}

	rewritten, err := s.messages.UpdateExpiryForQueue(ctx, updated.ID, updated.ExpiryFrom(s.now()))
	if err != nil {
		return nil, databaseError("failed to update message expiry", err)
	}

	s.metrics.RetentionCascade(updated.Slug, rewritten)
	s.logger.Infof("Retention of queue %s set to %v, %d messages rewritten", updated.Slug, updated.Retention(), rewritten)
	return updated, nil
}

// PurgeQueue deletes every message of the queue. The queue itself survives.
func (s *QueueService) PurgeQueue(ctx context.Context, slug string) (*PurgeResult, error) {
	q, err := s.FindQueueBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	count, err := s.messages.DeleteByQueueID(ctx, q.ID)
	if err != nil {
		return nil, databaseError("failed to purge queue", err)
	}

	s.metrics.MessagesPurged(q.Slug, count)
	s.logger.Infof("Queue %s purged: %d messages deleted", q.Slug, count)
	return &PurgeResult{Purged: true, Count: count}, nil
}

// DeleteQueue removes the queue record. Its messages are left in storage and
// topics that target it keep a dangling reference; purge first to drop messages.
func (s *QueueService) DeleteQueue(ctx context.Context, slug string) (*DeleteResult, error) {
	q, err := s.FindQueueBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	deleted, err := s.queues.Delete(ctx, q.ID)
	if err != nil {
		return nil, databaseError("failed to delete queue", err)
	}
	if deleted == nil {
		return nil, NewError(ErrCodeNotFound, fmt.Sprintf("Queue with slug '%s' not found", slug))
	}

	if err := s.notificationService.NotifyQueueDeleted(ctx, *deleted); err != nil {
		s.logger.Warnf("Failed to send queue deletion notification: %v", err)
	}

	return &DeleteResult{
		Success: true,
		Message: fmt.Sprintf("Queue '%s' deleted successfully", slug),
	}, nil
}

// PurgeAndDeleteAllQueues deletes every message, then every queue.
// There is no guard beyond what the caller enforces.
func (s *QueueService) PurgeAndDeleteAllQueues(ctx context.Context) (*DeleteResult, error) {
	messages, err := s.messages.DeleteAll(ctx)
	if err != nil {
		return nil, databaseError("failed to delete messages", err)
	}
	queues, err := s.queues.DeleteAll(ctx)
	if err != nil {
		return nil, databaseError("failed to delete queues", err)
	}

	s.logger.Warnf("All queues purged and deleted: queues=%d, messages=%d", queues, messages)
	return &DeleteResult{
		Success: true,
		Message: "All queues and messages have been purged and deleted",
	}, nil
}

// QueueStats returns the total and unprocessed message counts of the queue.
func (s *QueueService) QueueStats(ctx context.Context, slug string) (*QueueStats, error) {
	q, err := s.FindQueueBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	total, unprocessed, err := s.messages.CountByQueueID(ctx, q.ID)
	if err != nil {
		return nil, databaseError("failed to count messages", err)
	}

	return &QueueStats{Queue: *q, Total: total, Unprocessed: unprocessed}, nil
}
