package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Topic is a named fan-out target mapping to a set of destination queues.
//
// Publishing to a topic writes one copy of the message into every target queue.
// Target queue IDs are validated when added, but the topic does not follow later
// queue deletions, so a target may dangle.
type Topic struct {
	ID             int64     `json:"-"`
	Name           string    `json:"name"`
	TargetQueueIDs []int64   `json:"targetQueueIds"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewTopic creates a topic with the given targets. Duplicate IDs are dropped,
// keeping the first occurrence.
func NewTopic(name string, targetQueueIDs []int64, now time.Time) Topic {
	t := Topic{
		ID:             0,
		Name:           name,
		TargetQueueIDs: make([]int64, 0, len(targetQueueIDs)),
		CreatedAt:      now,
	}
	for _, id := range targetQueueIDs {
		t.AddTargetQueue(id)
	}
	return t
}

// Validate checks that the topic is named.
func (t Topic) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Name, validation.Required.Error("Topic name is required"), validation.Length(1, 255)),
	)
}

// HasTargetQueue reports whether queueID is one of the topic's targets.
func (t Topic) HasTargetQueue(queueID int64) bool {
	for _, id := range t.TargetQueueIDs {
		if id == queueID {
			return true
		}
	}
	return false
}

// AddTargetQueue adds queueID to the target set. Returns false if it was already present.
func (t *Topic) AddTargetQueue(queueID int64) bool {
	if t.HasTargetQueue(queueID) {
		return false
	}
	t.TargetQueueIDs = append(t.TargetQueueIDs, queueID)
	return true
}

// RemoveTargetQueue removes queueID from the target set. Returns false if it was absent.
func (t *Topic) RemoveTargetQueue(queueID int64) bool {
	for i, id := range t.TargetQueueIDs {
		if id == queueID {
			t.TargetQueueIDs = append(t.TargetQueueIDs[:i], t.TargetQueueIDs[i+1:]...)
			return true
		}
	}
	return false
}

// TopicQueue is the persisted link between a topic and one of its target queues.
type TopicQueue struct {
	ID      int64 `json:"id" db:"id"`
	TopicID int64 `json:"topicId" db:"topic_id"`
	QueueID int64 `json:"queueId" db:"queue_id"`
}

// TableName returns the database table name for TopicQueue.
func (tq TopicQueue) TableName() string {
	return tablePrefix + "topic_queue"
}
