package relica

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/coregx/relica"

	cargoqueue "github.com/dayemsiddiqui/cargo-queue"
	"github.com/dayemsiddiqui/cargo-queue/model"
)

// QueueRepository implements cargoqueue.QueueRepository using Relica.
type QueueRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewQueueRepository creates a new QueueRepository with default table prefix.
func NewQueueRepository(sqlDB *sql.DB, driverName string) *QueueRepository {
	return NewQueueRepositoryWithPrefix(sqlDB, driverName, cargoqueue.DefaultTablePrefix)
}

// NewQueueRepositoryWithPrefix creates a new QueueRepository with custom table prefix.
func NewQueueRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *QueueRepository {
	return &QueueRepository{
		db:          relica.WrapDB(sqlDB, driverName),
		tablePrefix: prefix,
	}
}

func (r *QueueRepository) tableName() string {
	return r.tablePrefix + "queue"
}

// Create inserts a new queue. The unique indexes on name and slug back up the
// service's pre-check: a violation is reported as cargoqueue.ErrQueueNameTaken.
func (r *QueueRepository) Create(ctx context.Context, q model.Queue) (*model.Queue, error) {
	q.ID = 0
	q.RetentionPeriod = model.NormalizeRetention(q.RetentionPeriod)
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	q.CreatedAt = q.CreatedAt.UTC()

	// Insert using Model() API - auto-populates q.ID
	if err := r.db.WithContext(ctx).Model(&q).Table(r.tableName()).Insert(); err != nil {
		if isUniqueViolation(err) {
			return nil, cargoqueue.ErrQueueNameTaken
		}
		return nil, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to insert queue", err)
	}
	return &q, nil
}

// FindBySlug retrieves a queue by slug.
func (r *QueueRepository) FindBySlug(ctx context.Context, slug string) (*model.Queue, error) {
	return r.findOne(ctx, "slug = ?", slug)
}

// FindByName retrieves a queue by name.
func (r *QueueRepository) FindByName(ctx context.Context, name string) (*model.Queue, error) {
	return r.findOne(ctx, "name = ?", name)
}

// FindByID retrieves a queue by ID.
func (r *QueueRepository) FindByID(ctx context.Context, id int64) (*model.Queue, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindAll retrieves every queue ordered by ID.
func (r *QueueRepository) FindAll(ctx context.Context) ([]model.Queue, error) {
	var queues []model.Queue

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		OrderBy("id ASC").
		WithContext(ctx).
		All(&queues)
	if err != nil {
		return nil, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to list queues", err)
	}

	if queues == nil {
		queues = []model.Queue{}
	}
	return queues, nil
}

// UpdateRetention overwrites the retention period and returns the updated queue.
func (r *QueueRepository) UpdateRetention(ctx context.Context, id int64, period *int64) (*model.Queue, error) {
	_, err := r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{
			"retention_period": model.NormalizeRetention(period),
		}).
		Where("id = ?", id).
		WithContext(ctx).
		Execute()
	if err != nil {
		return nil, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to update retention period", err)
	}

	return r.FindByID(ctx, id)
}

// Delete removes the queue record only. Returns nil when no row was deleted,
// including when a concurrent delete won.
func (r *QueueRepository) Delete(ctx context.Context, id int64) (*model.Queue, error) {
	q, err := r.FindByID(ctx, id)
	if err != nil || q == nil {
		return q, err
	}

	result, err := r.db.WithContext(ctx).Delete(r.tableName()).
		Where("id = ?", id).
		WithContext(ctx).
		Execute()
	n, err := affected(result, err, "failed to delete queue")
	if err != nil || n == 0 {
		return nil, err
	}
	return q, nil
}

// DeleteAll removes every queue.
func (r *QueueRepository) DeleteAll(ctx context.Context) (int, error) {
	result, err := r.db.WithContext(ctx).Delete(r.tableName()).WithContext(ctx).Execute()
	return affected(result, err, "failed to delete queues")
}

func (r *QueueRepository) findOne(ctx context.Context, where string, arg interface{}) (*model.Queue, error) {
	var q model.Queue

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where(where, arg).
		WithContext(ctx).
		One(&q)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to find queue", err)
	}
	return &q, nil
}
