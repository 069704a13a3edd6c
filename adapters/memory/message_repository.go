package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	cargoqueue "github.com/dayemsiddiqui/cargo-queue"
	"github.com/dayemsiddiqui/cargo-queue/model"
)

// MessageRepository is an in-memory cargoqueue.MessageRepository.
//
// ClaimOldestUnprocessed selects and hides the message under one lock, so it never
// reports contention.
type MessageRepository struct {
	mu       sync.Mutex
	opts     options
	nextID   int64
	messages map[int64]*model.Message
}

// NewMessageRepository creates an empty in-memory message repository.
func NewMessageRepository(opts ...Option) *MessageRepository {
	return &MessageRepository{
		opts:     buildOptions(opts),
		messages: make(map[int64]*model.Message),
	}
}

// Create implements cargoqueue.MessageRepository.
func (r *MessageRepository) Create(_ context.Context, queueID int64, body string, expiresAt *time.Time) (*model.Message, error) {
	msg := model.NewMessage(queueID, body, utcPtr(expiresAt), r.opts.now())
	if err := msg.Validate(); err != nil {
		return nil, cargoqueue.NewValidationError(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	msg.ID = r.nextID
	r.messages[msg.ID] = cloneMessage(&msg)
	return cloneMessage(&msg), nil
}

// FindOldestUnprocessed implements cargoqueue.MessageRepository.
func (r *MessageRepository) FindOldestUnprocessed(_ context.Context, queueID int64, now time.Time) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg := r.oldestPollable(queueID, now); msg != nil {
		return cloneMessage(msg), nil
	}
	return nil, nil
}

// ClaimOldestUnprocessed implements cargoqueue.MessageRepository.
func (r *MessageRepository) ClaimOldestUnprocessed(_ context.Context, queueID int64, now, visibleUntil time.Time) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := r.oldestPollable(queueID, now)
	if msg == nil {
		return nil, nil
	}
	msg.Claim(visibleUntil.UTC())
	return cloneMessage(msg), nil
}

// MarkProcessed implements cargoqueue.MessageRepository.
func (r *MessageRepository) MarkProcessed(_ context.Context, id int64) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.messages[id]
	if !ok {
		return nil, nil
	}
	msg.MarkProcessed()
	return cloneMessage(msg), nil
}

// FindByID implements cargoqueue.MessageRepository.
func (r *MessageRepository) FindByID(_ context.Context, id int64) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg, ok := r.messages[id]; ok {
		return cloneMessage(msg), nil
	}
	return nil, nil
}

// DeleteByQueueID implements cargoqueue.MessageRepository.
func (r *MessageRepository) DeleteByQueueID(_ context.Context, queueID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, msg := range r.messages {
		if msg.QueueID == queueID {
			delete(r.messages, id)
			deleted++
		}
	}
	return deleted, nil
}

// UpdateExpiryForQueue implements cargoqueue.MessageRepository.
func (r *MessageRepository) UpdateExpiryForQueue(_ context.Context, queueID int64, expiresAt *time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated := 0
	for _, msg := range r.messages {
		if msg.QueueID == queueID {
			msg.ExpiresAt = utcPtr(expiresAt)
			updated++
		}
	}
	return updated, nil
}

// DeleteExpired implements cargoqueue.MessageRepository.
func (r *MessageRepository) DeleteExpired(_ context.Context, now time.Time, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expired := make([]*model.Message, 0)
	for _, msg := range r.messages {
		if msg.IsExpired(now) {
			expired = append(expired, msg)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		if !expired[i].ExpiresAt.Equal(*expired[j].ExpiresAt) {
			return expired[i].ExpiresAt.Before(*expired[j].ExpiresAt)
		}
		return expired[i].ID < expired[j].ID
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}

	for _, msg := range expired {
		delete(r.messages, msg.ID)
	}
	return len(expired), nil
}

// CountByQueueID implements cargoqueue.MessageRepository.
func (r *MessageRepository) CountByQueueID(_ context.Context, queueID int64) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total, unprocessed := 0, 0
	for _, msg := range r.messages {
		if msg.QueueID != queueID {
			continue
		}
		total++
		if !msg.Processed {
			unprocessed++
		}
	}
	return total, unprocessed, nil
}

// DeleteAll implements cargoqueue.MessageRepository.
func (r *MessageRepository) DeleteAll(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.messages)
	r.messages = make(map[int64]*model.Message)
	return n, nil
}

// oldestPollable must be called with r.mu held.
func (r *MessageRepository) oldestPollable(queueID int64, now time.Time) *model.Message {
	var oldest *model.Message
	for _, msg := range r.messages {
		if msg.QueueID != queueID || !msg.IsPollable(now) {
			continue
		}
		if oldest == nil ||
			msg.CreatedAt.Before(oldest.CreatedAt) ||
			(msg.CreatedAt.Equal(oldest.CreatedAt) && msg.ID < oldest.ID) {
			oldest = msg
		}
	}
	return oldest
}

func cloneMessage(m *model.Message) *model.Message {
	c := *m
	c.VisibilityTimeout = utcPtr(m.VisibilityTimeout)
	c.ExpiresAt = utcPtr(m.ExpiresAt)
	return &c
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
