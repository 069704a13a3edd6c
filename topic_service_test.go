package cargoqueue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cargoqueue "github.com/dayemsiddiqui/cargo-queue"
	"github.com/dayemsiddiqui/cargo-queue/adapters/memory"
	"github.com/dayemsiddiqui/cargo-queue/model"
)

func TestNewTopicService_Configuration(t *testing.T) {
	repos := memory.NewRepositories()

	tests := []struct {
		name string
		opts []cargoqueue.TopicServiceOption
	}{
		{name: "No options", opts: nil},
		{name: "Nil enqueuer", opts: []cargoqueue.TopicServiceOption{cargoqueue.WithTopicRepositories(repos.Topic, nil)}},
		{name: "Missing logger", opts: []cargoqueue.TopicServiceOption{cargoqueue.WithTopicRepositories(repos.Topic, &countingEnqueuer{})}},
		{name: "Negative concurrency", opts: []cargoqueue.TopicServiceOption{
			cargoqueue.WithTopicRepositories(repos.Topic, &countingEnqueuer{}),
			cargoqueue.WithTopicLogger(&cargoqueue.NoopLogger{}),
			cargoqueue.WithFanoutConcurrency(-1),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := cargoqueue.NewTopicService(tt.opts...)
			assert.Nil(t, svc)
			assert.Equal(t, cargoqueue.ErrCodeConfiguration, cargoqueue.CodeOf(err))
		})
	}
}

func TestTopicService_CreateTopic(t *testing.T) {
	f := newFixture(t)
	a := f.createQueue(t, "A", nil)

	topic, err := f.topics.CreateTopic(f.ctx, "events", []int64{a.ID, a.ID})
	require.NoError(t, err)
	assert.Equal(t, "events", topic.Name)
	assert.Equal(t, []int64{a.ID}, topic.TargetQueueIDs)

	_, err = f.topics.CreateTopic(f.ctx, "events", nil)
	assert.True(t, cargoqueue.IsConflict(err))
	assert.Equal(t, "Topic events already exists", cargoqueue.MessageOf(err))

	_, err = f.topics.CreateTopic(f.ctx, "broken", []int64{a.ID, 999})
	assert.True(t, cargoqueue.IsValidation(err))
	assert.Equal(t, "Queue 999 does not exist", cargoqueue.MessageOf(err))

	_, err = f.topics.GetTopic(f.ctx, "broken")
	assert.True(t, cargoqueue.IsNotFound(err), "a rejected topic must not be stored")

	_, err = f.topics.CreateTopic(f.ctx, "", nil)
	assert.True(t, cargoqueue.IsValidation(err))
	assert.Equal(t, "Topic name is required", cargoqueue.MessageOf(err))

	empty, err := f.topics.CreateTopic(f.ctx, "empty", nil)
	require.NoError(t, err)
	assert.Empty(t, empty.TargetQueueIDs)
}

func TestTopicService_TargetManagement(t *testing.T) {
	f := newFixture(t)
	a := f.createQueue(t, "A", nil)
	b := f.createQueue(t, "B", nil)

	_, err := f.topics.CreateTopic(f.ctx, "events", []int64{a.ID})
	require.NoError(t, err)

	topic, err := f.topics.AddTargetQueue(f.ctx, "events", b.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, topic.TargetQueueIDs)

	topic, err = f.topics.AddTargetQueue(f.ctx, "events", b.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, topic.TargetQueueIDs)

	_, err = f.topics.AddTargetQueue(f.ctx, "events", 999)
	assert.True(t, cargoqueue.IsValidation(err))

	_, err = f.topics.AddTargetQueue(f.ctx, "missing", a.ID)
	assert.True(t, cargoqueue.IsNotFound(err))
	assert.Equal(t, "Topic missing not found", cargoqueue.MessageOf(err))

	topic, err = f.topics.RemoveTargetQueue(f.ctx, "events", a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, topic.TargetQueueIDs)

	topic, err = f.topics.RemoveTargetQueue(f.ctx, "events", a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, topic.TargetQueueIDs)

	targets, err := f.topics.GetTopicTargetQueues(f.ctx, "events")
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, targets)

	_, err = f.topics.RemoveTargetQueue(f.ctx, "missing", a.ID)
	assert.True(t, cargoqueue.IsNotFound(err))
}

func TestTopicService_ListAndDelete(t *testing.T) {
	f := newFixture(t)
	a := f.createQueue(t, "A", nil)

	for _, name := range []string{"first", "second"} {
		_, err := f.topics.CreateTopic(f.ctx, name, []int64{a.ID})
		require.NoError(t, err)
	}

	topics, err := f.topics.ListTopics(f.ctx)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "first", topics[0].Name)

	require.NoError(t, f.topics.DeleteTopic(f.ctx, "first"))

	err = f.topics.DeleteTopic(f.ctx, "first")
	assert.True(t, cargoqueue.IsNotFound(err))

	_, err = f.queues.FindQueueBySlug(f.ctx, "a")
	assert.NoError(t, err, "deleting a topic leaves its queues alone")
}

func TestTopicService_PublishFanOut(t *testing.T) {
	f := newFixture(t)
	a := f.createQueue(t, "A", nil)
	b := f.createQueue(t, "B", int64Ptr(60))

	_, err := f.topics.CreateTopic(f.ctx, "events", []int64{a.ID, b.ID})
	require.NoError(t, err)

	result, err := f.topics.PublishMessage(f.ctx, "events", "hello")
	require.NoError(t, err)
	assert.Equal(t, "events", result.Topic)
	assert.Equal(t, []int64{a.ID, b.ID}, result.QueueIDs)
	assert.Len(t, result.MessageIDs, 2)
	assert.Empty(t, result.FailedQueues)

	for _, slug := range []string{"a", "b"} {
		msg, err := f.queues.PollMessage(f.ctx, slug)
		require.NoError(t, err)
		require.NotNil(t, msg, slug)
		assert.Equal(t, "hello", msg.Body)
		assert.Contains(t, result.MessageIDs, msg.ID)
	}

	msg, err := f.queues.PollMessage(f.ctx, "b")
	require.NoError(t, err)
	require.NotNil(t, msg.ExpiresAt, "fan-out honours the target's retention")
	assert.WithinDuration(t, f.clock.Now().Add(time.Minute), *msg.ExpiresAt, time.Second)

	assert.Equal(t, 1, f.metrics.published)
	assert.Zero(t, f.metrics.failed)
}

func TestTopicService_PublishValidation(t *testing.T) {
	f := newFixture(t)
	a := f.createQueue(t, "A", nil)

	_, err := f.topics.CreateTopic(f.ctx, "empty", nil)
	require.NoError(t, err)
	_, err = f.topics.CreateTopic(f.ctx, "events", []int64{a.ID})
	require.NoError(t, err)

	tests := []struct {
		name        string
		topic       string
		body        string
		expectCode  string
		expectError string
	}{
		{name: "No targets", topic: "empty", body: "hi", expectCode: cargoqueue.ErrCodeValidation, expectError: "Topic empty has no target queues"},
		{name: "Unknown topic", topic: "missing", body: "hi", expectCode: cargoqueue.ErrCodeNotFound, expectError: "Topic missing not found"},
		{name: "Empty body", topic: "events", body: "", expectCode: cargoqueue.ErrCodeValidation, expectError: "Message is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.topics.PublishMessage(f.ctx, tt.topic, tt.body)
			assert.Nil(t, result)
			assert.Equal(t, tt.expectCode, cargoqueue.CodeOf(err))
			assert.Equal(t, tt.expectError, cargoqueue.MessageOf(err))
		})
	}

	msg, err := f.queues.PollMessage(f.ctx, "a")
	assert.NoError(t, err)
	assert.Nil(t, msg)
}

func TestTopicService_PublishToDanglingTarget(t *testing.T) {
	f := newFixture(t)
	a := f.createQueue(t, "A", nil)
	b := f.createQueue(t, "B", nil)

	_, err := f.topics.CreateTopic(f.ctx, "events", []int64{a.ID, b.ID})
	require.NoError(t, err)

	_, err = f.queues.DeleteQueue(f.ctx, "b")
	require.NoError(t, err)

	result, err := f.topics.PublishMessage(f.ctx, "events", "hello")
	require.Error(t, err)
	assert.True(t, cargoqueue.IsNotFound(err))
	assert.Equal(t, "Failed to publish to 1 of 2 target queues of topic events", cargoqueue.MessageOf(err))

	require.NotNil(t, result)
	assert.Equal(t, []int64{a.ID}, result.QueueIDs)
	assert.Equal(t, []int64{b.ID}, result.FailedQueues)

	msg, err := f.queues.PollMessage(f.ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, msg, "the healthy target keeps its copy")
	assert.Equal(t, "hello", msg.Body)

	assert.Equal(t, []int64{b.ID}, f.notifications.publishFailure)
	assert.Equal(t, 1, f.metrics.failed)
}

// countingEnqueuer records the peak number of concurrent enqueues.
type countingEnqueuer struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	calls    int
	nextID   int64
}

func (e *countingEnqueuer) QueueExists(_ context.Context, _ int64) (bool, error) {
	return true, nil
}

func (e *countingEnqueuer) EnqueueMessage(_ context.Context, queueID int64, body string) (*model.Message, error) {
	e.mu.Lock()
	e.inFlight++
	e.calls++
	if e.inFlight > e.peak {
		e.peak = e.inFlight
	}
	e.nextID++
	id := e.nextID
	e.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	e.mu.Lock()
	e.inFlight--
	e.mu.Unlock()

	msg := model.NewMessage(queueID, body, nil, time.Now().UTC())
	msg.ID = id
	return &msg, nil
}

func TestTopicService_FanoutConcurrencyLimit(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories()
	enqueuer := &countingEnqueuer{}

	svc, err := cargoqueue.NewTopicService(
		cargoqueue.WithTopicRepositories(repos.Topic, enqueuer),
		cargoqueue.WithTopicLogger(&cargoqueue.NoopLogger{}),
		cargoqueue.WithFanoutConcurrency(2),
	)
	require.NoError(t, err)

	targets := []int64{1, 2, 3, 4, 5, 6, 7, 8}
	_, err = svc.CreateTopic(ctx, "wide", targets)
	require.NoError(t, err)

	result, err := svc.PublishMessage(ctx, "wide", "payload")
	require.NoError(t, err)
	assert.Equal(t, targets, result.QueueIDs)
	assert.Equal(t, len(targets), enqueuer.calls)
	assert.LessOrEqual(t, enqueuer.peak, 2)
}
