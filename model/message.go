package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Message is a single opaque payload owned by exactly one queue.
//
// Lifecycle:
//  1. Created unprocessed, with ExpiresAt derived from the queue's retention period
//  2. Returned by polls while unprocessed and visible (oldest CreatedAt first)
//  3. Acknowledged: Processed flips to true and never reverts
//  4. Deleted in bulk by a purge, or by the expiry sweeper once ExpiresAt has passed
type Message struct {
	ID                int64      `json:"id" db:"id"`
	QueueID           int64      `json:"queueId" db:"queue_id"`
	Body              string     `json:"body" db:"body"`
	Processed         bool       `json:"processed" db:"processed"`
	VisibilityTimeout *time.Time `json:"visibilityTimeout" db:"visibility_timeout"`
	ExpiresAt         *time.Time `json:"expiresAt" db:"expires_at"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at"`
}

// TableName returns the database table name for Message.
func (m Message) TableName() string {
	return tablePrefix + "message"
}

// NewMessage creates an unprocessed, immediately visible message.
func NewMessage(queueID int64, body string, expiresAt *time.Time, now time.Time) Message {
	return Message{
		ID:                0,
		QueueID:           queueID,
		Body:              body,
		Processed:         false,
		VisibilityTimeout: nil,
		ExpiresAt:         expiresAt,
		CreatedAt:         now,
	}
}

// Validate checks that the message references a queue and carries a body.
func (m Message) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.QueueID, validation.Required.Error("Queue ID is required")),
		validation.Field(&m.Body, validation.Required.Error("Message is required")),
	)
}

// MarkProcessed acknowledges the message. Calling it again has no further effect.
func (m *Message) MarkProcessed() {
	m.Processed = true
}

// Claim hides the message from polls until the given time.
func (m *Message) Claim(until time.Time) {
	m.VisibilityTimeout = &until
}

// IsVisible reports whether the visibility timeout, if any, has elapsed at now.
func (m Message) IsVisible(now time.Time) bool {
	return m.VisibilityTimeout == nil || !m.VisibilityTimeout.After(now)
}

// IsPollable reports whether a poll at now may return the message.
func (m Message) IsPollable(now time.Time) bool {
	return !m.Processed && m.IsVisible(now)
}

// IsExpired reports whether the message is eligible for automatic deletion at now.
func (m Message) IsExpired(now time.Time) bool {
	return m.ExpiresAt != nil && !m.ExpiresAt.After(now)
}
