package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessage_TableName(t *testing.T) {
	assert.Equal(t, "cargo_message", Message{}.TableName())
}

func TestNewMessage(t *testing.T) {
	now := time.Now()
	expiresAt := now.Add(time.Minute)

	msg := NewMessage(7, "payload", &expiresAt, now)

	assert.Equal(t, int64(0), msg.ID)
	assert.Equal(t, int64(7), msg.QueueID)
	assert.Equal(t, "payload", msg.Body)
	assert.False(t, msg.Processed)
	assert.Nil(t, msg.VisibilityTimeout)
	assert.Equal(t, &expiresAt, msg.ExpiresAt)
	assert.Equal(t, now, msg.CreatedAt)
}

func TestMessage_Validate(t *testing.T) {
	now := time.Now()

	assert.NoError(t, NewMessage(1, "body", nil, now).Validate())

	err := NewMessage(1, "", nil, now).Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Message is required")

	err = NewMessage(0, "body", nil, now).Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Queue ID is required")
}

func TestMessage_MarkProcessed(t *testing.T) {
	msg := NewMessage(1, "body", nil, time.Now())

	msg.MarkProcessed()
	assert.True(t, msg.Processed)

	msg.MarkProcessed()
	assert.True(t, msg.Processed)
}

func TestMessage_Visibility(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		setup    func(m *Message)
		at       time.Time
		pollable bool
	}{
		{name: "Fresh message", setup: func(m *Message) {}, at: now, pollable: true},
		{name: "Claimed until later", setup: func(m *Message) { m.Claim(now.Add(time.Minute)) }, at: now, pollable: false},
		{name: "Claim elapsed", setup: func(m *Message) { m.Claim(now.Add(time.Minute)) }, at: now.Add(time.Minute), pollable: true},
		{name: "Processed", setup: func(m *Message) { m.MarkProcessed() }, at: now, pollable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := NewMessage(1, "body", nil, now)
			tt.setup(&msg)
			assert.Equal(t, tt.pollable, msg.IsPollable(tt.at))
		})
	}
}

func TestMessage_IsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	assert.False(t, NewMessage(1, "b", nil, now).IsExpired(now))
	assert.True(t, NewMessage(1, "b", &past, now).IsExpired(now))
	assert.True(t, NewMessage(1, "b", &now, now).IsExpired(now))
	assert.False(t, NewMessage(1, "b", &future, now).IsExpired(now))
}
