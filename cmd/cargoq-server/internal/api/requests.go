package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// CreateQueueRequest is the body of POST /queues.
type CreateQueueRequest struct {
	Name            string `json:"name"`
	RetentionPeriod *int64 `json:"retentionPeriod"`
}

// Validate implements validation.Validatable.
func (r CreateQueueRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required.Error("Name is required")),
	)
}

// UpdateRetentionRequest is the body of PATCH /queues/{slug}/retention.
// A null or zero retention period clears the policy.
type UpdateRetentionRequest struct {
	RetentionPeriod *int64 `json:"retentionPeriod"`
}

// SendMessageRequest is the body of POST /queues/{slug}/messages and POST /topics/{name}.
type SendMessageRequest struct {
	Message string `json:"message"`
}

// Validate implements validation.Validatable.
func (r SendMessageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Message, validation.Required.Error("Message is required")),
	)
}

// CreateTopicRequest is the body of POST /topics.
type CreateTopicRequest struct {
	Name           string  `json:"name"`
	TargetQueueIDs []int64 `json:"targetQueueIds"`
}

// Validate implements validation.Validatable.
func (r CreateTopicRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required.Error("Topic name is required")),
	)
}

// TargetQueueRequest is the body of POST and DELETE /topics/{name}/queues.
type TargetQueueRequest struct {
	QueueID int64 `json:"queueId"`
}

// Validate implements validation.Validatable.
func (r TargetQueueRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.QueueID, validation.Required.Error("Queue ID is required")),
	)
}
