package cargoqueue

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dayemsiddiqui/cargo-queue/model"
)

// Enqueuer is the part of QueueService the topic fan-out depends on.
type Enqueuer interface {
	// QueueExists reports whether a queue with the given ID exists.
	QueueExists(ctx context.Context, id int64) (bool, error)

	// EnqueueMessage appends body to the queue with the given ID.
	EnqueueMessage(ctx context.Context, queueID int64, body string) (*model.Message, error)
}

// TopicService owns topics and publishes a single logical message to every
// target queue of a topic.
//
// Target queue IDs are checked when added, not afterwards: deleting a queue
// leaves a dangling target, and publishing to it fails that target only.
//
// Thread safety: Safe for concurrent use.
type TopicService struct {
	topics              TopicRepository
	queues              Enqueuer
	logger              Logger
	metrics             Metrics
	notificationService NotificationService
	fanoutConcurrency   int
}

// TopicServiceOption configures a TopicService.
type TopicServiceOption func(*TopicService) error

// PublishResult describes where a published message landed.
//
// On a partial failure PublishMessage returns both the result and an error:
// the messages listed in MessageIDs were written and are not rolled back.
type PublishResult struct {
	Topic        string  `json:"topic"`
	QueueIDs     []int64 `json:"queueIds"`
	MessageIDs   []int64 `json:"messageIds"`
	FailedQueues []int64 `json:"failedQueueIds"`
}

// NewTopicService creates a new TopicService with the provided options.
//
// Required options:
//   - WithTopicRepositories: topic repository and the queue service used for fan-out
//   - WithTopicLogger: logger instance
//
// Example:
//
//	topics, err := cargoqueue.NewTopicService(
//	    cargoqueue.WithTopicRepositories(repos.Topic, queueService),
//	    cargoqueue.WithTopicLogger(logger),
//	    cargoqueue.WithFanoutConcurrency(8), // optional
//	)
func NewTopicService(opts ...TopicServiceOption) (*TopicService, error) {
	s := &TopicService{
		metrics:             NoopMetrics{},
		notificationService: &NoOpNotificationService{},
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply topic service option", err)
		}
	}

	if s.topics == nil {
		return nil, NewError(ErrCodeConfiguration, "TopicRepository is required (use WithTopicRepositories)")
	}
	if s.queues == nil {
		return nil, NewError(ErrCodeConfiguration, "Enqueuer is required (use WithTopicRepositories)")
	}
	if s.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithTopicLogger)")
	}

	return s, nil
}

// WithTopicRepositories sets the topic repository and the enqueuer used for fan-out.
func WithTopicRepositories(topicRepo TopicRepository, queues Enqueuer) TopicServiceOption {
	return func(s *TopicService) error {
		if topicRepo == nil {
			return fmt.Errorf("topicRepo cannot be nil")
		}
		if queues == nil {
			return fmt.Errorf("queues cannot be nil")
		}

		s.topics = topicRepo
		s.queues = queues
		return nil
	}
}

// WithTopicLogger sets the logger instance.
func WithTopicLogger(logger Logger) TopicServiceOption {
	return func(s *TopicService) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithTopicMetrics sets the metrics sink. Default is NoopMetrics.
func WithTopicMetrics(metrics Metrics) TopicServiceOption {
	return func(s *TopicService) error {
		if metrics == nil {
			return fmt.Errorf("metrics cannot be nil")
		}
		s.metrics = metrics
		return nil
	}
}

// WithTopicNotifications sets the service told about failed fan-out targets.
func WithTopicNotifications(service NotificationService) TopicServiceOption {
	return func(s *TopicService) error {
		if service == nil {
			return fmt.Errorf("notification service cannot be nil")
		}
		s.notificationService = service
		return nil
	}
}

// WithFanoutConcurrency caps the number of target queues written at once by a publish.
// Zero (the default) writes to every target at once.
func WithFanoutConcurrency(n int) TopicServiceOption {
	return func(s *TopicService) error {
		if n < 0 {
			return fmt.Errorf("fanout concurrency must be >= 0, got %d", n)
		}
		s.fanoutConcurrency = n
		return nil
	}
}

// CreateTopic creates a topic targeting the given queues.
// Fails with Conflict if the name is taken and with Validation if any target does not exist.
func (s *TopicService) CreateTopic(ctx context.Context, name string, targetQueueIDs []int64) (*model.Topic, error) {
	if err := (model.Topic{Name: name}).Validate(); err != nil {
		return nil, NewValidationError(err)
	}

	existing, err := s.topics.FindByName(ctx, name)
	if err != nil {
		return nil, databaseError("failed to find topic", err)
	}
	if existing != nil {
		return nil, NewError(ErrCodeConflict, fmt.Sprintf("Topic %s already exists", name))
	}

	for _, queueID := range targetQueueIDs {
		if err := s.requireQueue(ctx, queueID); err != nil {
			return nil, err
		}
	}

	topic, err := s.topics.Create(ctx, name, targetQueueIDs)
	if err != nil {
		if IsConflict(err) {
			return nil, err
		}
		return nil, databaseError("failed to create topic", err)
	}

	s.logger.Infof("Topic created: name=%s, targets=%v", topic.Name, topic.TargetQueueIDs)
	return topic, nil
}

// GetTopic returns the named topic or a NotFound error.
func (s *TopicService) GetTopic(ctx context.Context, name string) (*model.Topic, error) {
	topic, err := s.topics.FindByName(ctx, name)
	if err != nil {
		return nil, databaseError("failed to find topic", err)
	}
	if topic == nil {
		return nil, topicNotFound(name)
	}
	return topic, nil
}

// ListTopics returns every topic.
func (s *TopicService) ListTopics(ctx context.Context) ([]model.Topic, error) {
	topics, err := s.topics.FindAll(ctx)
	if err != nil {
		return nil, databaseError("failed to list topics", err)
	}
	return topics, nil
}

// GetTopicTargetQueues returns the target queue IDs of the named topic.
func (s *TopicService) GetTopicTargetQueues(ctx context.Context, name string) ([]int64, error) {
	topic, err := s.GetTopic(ctx, name)
	if err != nil {
		return nil, err
	}
	return topic.TargetQueueIDs, nil
}

// DeleteTopic removes the topic. Target queues are not touched.
func (s *TopicService) DeleteTopic(ctx context.Context, name string) error {
	if _, err := s.GetTopic(ctx, name); err != nil {
		return err
	}

	deleted, err := s.topics.Delete(ctx, name)
	if err != nil {
		return databaseError("failed to delete topic", err)
	}
	if !deleted {
		return topicNotFound(name)
	}

	s.logger.Infof("Topic deleted: name=%s", name)
	return nil
}

// AddTargetQueue adds a queue to the topic's targets. Adding a present target is a no-op.
func (s *TopicService) AddTargetQueue(ctx context.Context, name string, queueID int64) (*model.Topic, error) {
	if err := s.requireQueue(ctx, queueID); err != nil {
		return nil, err
	}

	topic, err := s.topics.AddTargetQueue(ctx, name, queueID)
	if err != nil {
		return nil, databaseError("failed to add target queue", err)
	}
	if topic == nil {
		return nil, topicNotFound(name)
	}
	return topic, nil
}

// RemoveTargetQueue removes a queue from the topic's targets. Removing an absent target is a no-op.
func (s *TopicService) RemoveTargetQueue(ctx context.Context, name string, queueID int64) (*model.Topic, error) {
	topic, err := s.topics.RemoveTargetQueue(ctx, name, queueID)
	if err != nil {
		return nil, databaseError("failed to remove target queue", err)
	}
	if topic == nil {
		return nil, topicNotFound(name)
	}
	return topic, nil
}

// PublishMessage enqueues body into every target queue of the topic concurrently
// and waits for all of them.
//
// If any target fails the publish fails, but messages already written to other
// targets stay where they landed. The returned result lists both sides.
func (s *TopicService) PublishMessage(ctx context.Context, name, body string) (*PublishResult, error) {
	if body == "" {
		return nil, NewError(ErrCodeValidation, "Message is required")
	}

	topic, err := s.GetTopic(ctx, name)
	if err != nil {
		return nil, err
	}

	targets := topic.TargetQueueIDs
	if len(targets) == 0 {
		return nil, NewError(ErrCodeValidation, fmt.Sprintf("Topic %s has no target queues", name))
	}

	messageIDs := make([]int64, len(targets))
	errs := make([]error, len(targets))

	var g errgroup.Group
	if s.fanoutConcurrency > 0 {
		g.SetLimit(s.fanoutConcurrency)
	}
	for i, queueID := range targets {
		g.Go(func() error {
			msg, err := s.queues.EnqueueMessage(ctx, queueID, body)
			if err != nil {
				errs[i] = err
				return err
			}
			messageIDs[i] = msg.ID
			return nil
		})
	}
	firstErr := g.Wait()

	result := &PublishResult{
		Topic:        name,
		QueueIDs:     make([]int64, 0, len(targets)),
		MessageIDs:   make([]int64, 0, len(targets)),
		FailedQueues: []int64{},
	}
	for i, queueID := range targets {
		if errs[i] != nil {
			result.FailedQueues = append(result.FailedQueues, queueID)
			if err := s.notificationService.NotifyPublishFailure(ctx, name, queueID, errs[i]); err != nil {
				s.logger.Warnf("Failed to send publish failure notification: %v", err)
			}
			continue
		}
		result.QueueIDs = append(result.QueueIDs, queueID)
		result.MessageIDs = append(result.MessageIDs, messageIDs[i])
	}

	s.metrics.TopicPublished(name, len(targets), len(result.FailedQueues))

	if firstErr != nil {
		s.logger.Errorf("Publish to topic %s failed for %d of %d targets: %v",
			name, len(result.FailedQueues), len(targets), firstErr)
		return result, NewErrorWithCause(CodeOf(firstErr),
			fmt.Sprintf("Failed to publish to %d of %d target queues of topic %s", len(result.FailedQueues), len(targets), name),
			firstErr)
	}

	s.logger.Infof("Published message to %d queues (topic=%s)", len(targets), name)
	return result, nil
}

func (s *TopicService) requireQueue(ctx context.Context, queueID int64) error {
	exists, err := s.queues.QueueExists(ctx, queueID)
	if err != nil {
		return err
	}
	if !exists {
		return NewError(ErrCodeValidation, fmt.Sprintf("Queue %d does not exist", queueID))
	}
	return nil
}

func topicNotFound(name string) *Error {
	return NewError(ErrCodeNotFound, fmt.Sprintf("Topic %s not found", name))
}
