package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	cargoqueue "github.com/dayemsiddiqui/cargo-queue"
	"github.com/dayemsiddiqui/cargo-queue/model"
)

// TopicRepository is an in-memory cargoqueue.TopicRepository.
type TopicRepository struct {
	mu     sync.Mutex
	opts   options
	nextID int64
	topics map[string]*model.Topic
}

// NewTopicRepository creates an empty in-memory topic repository.
func NewTopicRepository(opts ...Option) *TopicRepository {
	return &TopicRepository{
		opts:   buildOptions(opts),
		topics: make(map[string]*model.Topic),
	}
}

// Create implements cargoqueue.TopicRepository.
func (r *TopicRepository) Create(_ context.Context, name string, queueIDs []int64) (*model.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.topics[name]; ok {
		return nil, cargoqueue.NewError(cargoqueue.ErrCodeConflict, fmt.Sprintf("Topic %s already exists", name))
	}

	topic := model.NewTopic(name, queueIDs, r.opts.now())
	r.nextID++
	topic.ID = r.nextID
	r.topics[name] = cloneTopic(&topic)
	return cloneTopic(&topic), nil
}

// FindByName implements cargoqueue.TopicRepository.
func (r *TopicRepository) FindByName(_ context.Context, name string) (*model.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if topic, ok := r.topics[name]; ok {
		return cloneTopic(topic), nil
	}
	return nil, nil
}

// FindAll implements cargoqueue.TopicRepository.
func (r *TopicRepository) FindAll(_ context.Context) ([]model.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]model.Topic, 0, len(r.topics))
	for _, topic := range r.topics {
		result = append(result, *cloneTopic(topic))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Delete implements cargoqueue.TopicRepository.
func (r *TopicRepository) Delete(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.topics[name]; !ok {
		return false, nil
	}
	delete(r.topics, name)
	return true, nil
}

// AddTargetQueue implements cargoqueue.TopicRepository.
func (r *TopicRepository) AddTargetQueue(_ context.Context, name string, queueID int64) (*model.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	topic, ok := r.topics[name]
	if !ok {
		return nil, nil
	}
	topic.AddTargetQueue(queueID)
	return cloneTopic(topic), nil
}

// RemoveTargetQueue implements cargoqueue.TopicRepository.
func (r *TopicRepository) RemoveTargetQueue(_ context.Context, name string, queueID int64) (*model.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	topic, ok := r.topics[name]
	if !ok {
		return nil, nil
	}
	topic.RemoveTargetQueue(queueID)
	return cloneTopic(topic), nil
}

func cloneTopic(t *model.Topic) *model.Topic {
	c := *t
	c.TargetQueueIDs = append(make([]int64, 0, len(t.TargetQueueIDs)), t.TargetQueueIDs...)
	return &c
}
