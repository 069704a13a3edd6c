package memory

import (
	"context"
	"sort"
	"sync"

	cargoqueue "github.com/dayemsiddiqui/cargo-queue"
	"github.com/dayemsiddiqui/cargo-queue/model"
)

// QueueRepository is an in-memory cargoqueue.QueueRepository.
type QueueRepository struct {
	mu     sync.Mutex
	opts   options
	nextID int64
	queues map[int64]*model.Queue
}

// NewQueueRepository creates an empty in-memory queue repository.
func NewQueueRepository(opts ...Option) *QueueRepository {
	return &QueueRepository{
		opts:   buildOptions(opts),
		queues: make(map[int64]*model.Queue),
	}
}

// Create implements cargoqueue.QueueRepository.
func (r *QueueRepository) Create(_ context.Context, q model.Queue) (*model.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.queues {
		if existing.Name == q.Name || existing.Slug == q.Slug {
			return nil, cargoqueue.ErrQueueNameTaken
		}
	}

	r.nextID++
	q.ID = r.nextID
	q.RetentionPeriod = model.NormalizeRetention(q.RetentionPeriod)
	if q.CreatedAt.IsZero() {
		q.CreatedAt = r.opts.now()
	}

	r.queues[q.ID] = cloneQueue(&q)
	return cloneQueue(&q), nil
}

// FindBySlug implements cargoqueue.QueueRepository.
func (r *QueueRepository) FindBySlug(_ context.Context, slug string) (*model.Queue, error) {
	return r.find(func(q *model.Queue) bool { return q.Slug == slug }), nil
}

// FindByName implements cargoqueue.QueueRepository.
func (r *QueueRepository) FindByName(_ context.Context, name string) (*model.Queue, error) {
	return r.find(func(q *model.Queue) bool { return q.Name == name }), nil
}

// FindByID implements cargoqueue.QueueRepository.
func (r *QueueRepository) FindByID(_ context.Context, id int64) (*model.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if q, ok := r.queues[id]; ok {
		return cloneQueue(q), nil
	}
	return nil, nil
}

// FindAll implements cargoqueue.QueueRepository.
func (r *QueueRepository) FindAll(_ context.Context) ([]model.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]model.Queue, 0, len(r.queues))
	for _, q := range r.queues {
		result = append(result, *cloneQueue(q))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// UpdateRetention implements cargoqueue.QueueRepository.
func (r *QueueRepository) UpdateRetention(_ context.Context, id int64, period *int64) (*model.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.queues[id]
	if !ok {
		return nil, nil
	}
	q.RetentionPeriod = model.NormalizeRetention(period)
	return cloneQueue(q), nil
}

// Delete implements cargoqueue.QueueRepository.
func (r *QueueRepository) Delete(_ context.Context, id int64) (*model.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.queues[id]
	if !ok {
		return nil, nil
	}
	delete(r.queues, id)
	return q, nil
}

// DeleteAll implements cargoqueue.QueueRepository.
func (r *QueueRepository) DeleteAll(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.queues)
	r.queues = make(map[int64]*model.Queue)
	return n, nil
}

func (r *QueueRepository) find(match func(*model.Queue) bool) *model.Queue {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, q := range r.queues {
		if match(q) {
			return cloneQueue(q)
		}
	}
	return nil
}

func cloneQueue(q *model.Queue) *model.Queue {
	c := *q
	if q.RetentionPeriod != nil {
		v := *q.RetentionPeriod
		c.RetentionPeriod = &v
	}
	return &c
}
