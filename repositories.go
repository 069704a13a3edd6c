package cargoqueue

import (
	"context"
	"time"

	"github.com/dayemsiddiqui/cargo-queue/model"
)

// QueueRepository defines the persistence interface for queues (the queue directory).
//
// Lookups express absence as (nil, nil), never as an error. The service layer
// translates absence into NotFound.
//
// Implementations must be safe for concurrent use.
type QueueRepository interface {
	// Create persists a new queue and returns it with a populated ID.
	// Returns a Conflict error if the name or slug is already taken.
	Create(ctx context.Context, q model.Queue) (*model.Queue, error)

	// FindBySlug retrieves a queue by exact slug match.
	FindBySlug(ctx context.Context, slug string) (*model.Queue, error)

	// FindByName retrieves a queue by exact name match.
	FindByName(ctx context.Context, name string) (*model.Queue, error)

	// FindByID retrieves a queue by ID.
	FindByID(ctx context.Context, id int64) (*model.Queue, error)

	// FindAll retrieves every queue ordered by ID.
	// Returns empty slice if none exist.
	FindAll(ctx context.Context) ([]model.Queue, error)

	// UpdateRetention overwrites the stored retention period (0 is stored as nil).
	// Returns nil if the queue does not exist.
	UpdateRetention(ctx context.Context, id int64, period *int64) (*model.Queue, error)

	// Delete removes the queue record only. Messages are not touched.
	// Returns the deleted queue, or nil if it did not exist.
	Delete(ctx context.Context, id int64) (*model.Queue, error)

	// DeleteAll removes every queue and returns the number removed.
	DeleteAll(ctx context.Context) (int, error)
}

// MessageRepository defines the persistence interface for messages (the message store).
type MessageRepository interface {
	// Create inserts an unprocessed message with CreatedAt set to the store's clock.
	// Returns a Validation error if body is empty or queueID is zero.
	Create(ctx context.Context, queueID int64, body string, expiresAt *time.Time) (*model.Message, error)

	// FindOldestUnprocessed returns the oldest unprocessed message of the queue whose
	// visibility timeout is absent or <= now, ordered by created_at ASC then id ASC.
	// This is a single read; it claims nothing.
	FindOldestUnprocessed(ctx context.Context, queueID int64, now time.Time) (*model.Message, error)

	// ClaimOldestUnprocessed hides the message FindOldestUnprocessed would return
	// until visibleUntil, as one compare-and-set on its visibility timeout.
	// Returns (nil, nil) when the queue has nothing visible, and ErrClaimContended
	// when another claimer won the row.
	ClaimOldestUnprocessed(ctx context.Context, queueID int64, now, visibleUntil time.Time) (*model.Message, error)

	// MarkProcessed atomically sets processed=true and returns the updated message.
	// Returns nil if the message does not exist.
	MarkProcessed(ctx context.Context, id int64) (*model.Message, error)

	// FindByID retrieves a message by ID.
	FindByID(ctx context.Context, id int64) (*model.Message, error)

	// DeleteByQueueID removes every message of the queue and returns the count.
	DeleteByQueueID(ctx context.Context, queueID int64) (int, error)

	// UpdateExpiryForQueue sets expires_at on every message of the queue
	// (nil clears it) and returns the number of messages rewritten.
	UpdateExpiryForQueue(ctx context.Context, queueID int64, expiresAt *time.Time) (int, error)

	// DeleteExpired removes up to limit messages with expires_at <= now,
	// oldest expiry first, and returns the number removed.
	DeleteExpired(ctx context.Context, now time.Time, limit int) (int, error)

	// CountByQueueID returns the total and unprocessed message counts of the queue.
	CountByQueueID(ctx context.Context, queueID int64) (total, unprocessed int, err error)

	// DeleteAll removes every message and returns the count.
	DeleteAll(ctx context.Context) (int, error)
}

// TopicRepository defines the persistence interface for topics and their target sets.
type TopicRepository interface {
	// Create persists a topic with the given targets (duplicates dropped).
	// Returns a Conflict error if the name is taken.
	Create(ctx context.Context, name string, queueIDs []int64) (*model.Topic, error)

	// FindByName retrieves a topic with its targets.
	FindByName(ctx context.Context, name string) (*model.Topic, error)

	// FindAll retrieves every topic with its targets, ordered by creation.
	FindAll(ctx context.Context) ([]model.Topic, error)

	// Delete removes the topic and its target links.
	// Returns false if the topic did not exist.
	Delete(ctx context.Context, name string) (bool, error)

	// AddTargetQueue adds queueID to the topic's targets. Adding a present id is a no-op.
	// Returns nil if the topic does not exist.
	AddTargetQueue(ctx context.Context, name string, queueID int64) (*model.Topic, error)

	// RemoveTargetQueue removes queueID from the topic's targets. Removing an absent id is a no-op.
	// Returns nil if the topic does not exist.
	RemoveTargetQueue(ctx context.Context, name string, queueID int64) (*model.Topic, error)
}

// Repositories groups the three stores a service stack needs.
// Both storage adapters return one from their constructors.
type Repositories struct {
	Queue   QueueRepository
	Message MessageRepository
	Topic   TopicRepository
}
