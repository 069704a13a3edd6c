package relica

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coregx/relica"

	cargoqueue "github.com/dayemsiddiqui/cargo-queue"
	"github.com/dayemsiddiqui/cargo-queue/model"
)

// topicRow is the persisted form of a topic; targets live in the topic_queue table.
type topicRow struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// TopicRepository implements cargoqueue.TopicRepository using Relica.
//
// Targets are stored one row per (topic, queue) with a unique index, so adding a
// target twice cannot produce a duplicate even under concurrent calls.
type TopicRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewTopicRepository creates a new TopicRepository with default table prefix.
func NewTopicRepository(sqlDB *sql.DB, driverName string) *TopicRepository {
	return NewTopicRepositoryWithPrefix(sqlDB, driverName, cargoqueue.DefaultTablePrefix)
}

// NewTopicRepositoryWithPrefix creates a new TopicRepository with custom table prefix.
func NewTopicRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *TopicRepository {
	return &TopicRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *TopicRepository) tableName() string {
	return r.tablePrefix + "topic"
}

func (r *TopicRepository) linkTableName() string {
	return r.tablePrefix + "topic_queue"
}

// Create inserts the topic and one link row per distinct target in a single
// transaction; a failed link insert leaves no topic behind.
func (r *TopicRepository) Create(ctx context.Context, name string, queueIDs []int64) (*model.Topic, error) {
	existing, err := r.findRow(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, topicExists(name)
	}

	topic := model.NewTopic(name, queueIDs, time.Now().UTC())
	row := topicRow{Name: topic.Name, CreatedAt: topic.CreatedAt}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.Model(&row).Table(r.tableName()).Insert(); err != nil {
		if isUniqueViolation(err) {
			return nil, topicExists(name)
		}
		return nil, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to insert topic", err)
	}
	topic.ID = row.ID

	for _, queueID := range topic.TargetQueueIDs {
		if err := r.insertLink(tx, row.ID, queueID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to commit topic", err)
	}
	return &topic, nil
}

// FindByName retrieves a topic with its targets.
func (r *TopicRepository) FindByName(ctx context.Context, name string) (*model.Topic, error) {
	row, err := r.findRow(ctx, name)
	if err != nil || row == nil {
		return nil, err
	}

	links, err := r.findLinks(ctx, "topic_id = ?", row.ID)
	if err != nil {
		return nil, err
	}
	return toTopic(*row, links), nil
}

// FindAll retrieves every topic with its targets.
func (r *TopicRepository) FindAll(ctx context.Context) ([]model.Topic, error) {
	var rows []topicRow
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).OrderBy("id ASC").WithContext(ctx).All(&rows)
	if err != nil {
		return nil, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to list topics", err)
	}

	var links []model.TopicQueue
	err = r.db.WithContext(ctx).Select("*").From(r.linkTableName()).OrderBy("id ASC").WithContext(ctx).All(&links)
	if err != nil {
		return nil, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to list topic targets", err)
	}

	byTopic := make(map[int64][]model.TopicQueue, len(rows))
	for _, link := range links {
		byTopic[link.TopicID] = append(byTopic[link.TopicID], link)
	}

	topics := make([]model.Topic, 0, len(rows))
	for _, row := range rows {
		topics = append(topics, *toTopic(row, byTopic[row.ID]))
	}
	return topics, nil
}

// Delete removes the topic and its links in one transaction.
func (r *TopicRepository) Delete(ctx context.Context, name string) (bool, error) {
	row, err := r.findRow(ctx, name)
	if err != nil || row == nil {
		return false, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Delete(r.linkTableName()).Where("topic_id = ?", row.ID).Execute(); err != nil {
		return false, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to delete topic targets", err)
	}
	result, err := tx.Delete(r.tableName()).Where("id = ?", row.ID).Execute()
	n, err := affected(result, err, "failed to delete topic")
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to commit topic deletion", err)
	}
	return n > 0, nil
}

// AddTargetQueue links queueID to the topic unless it already is.
func (r *TopicRepository) AddTargetQueue(ctx context.Context, name string, queueID int64) (*model.Topic, error) {
	row, err := r.findRow(ctx, name)
	if err != nil || row == nil {
		return nil, err
	}

	existing, err := r.findLinks(ctx, "topic_id = ? AND queue_id = ?", row.ID, queueID)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		// A concurrent add may have won the unique index; that is still a success.
		if err := r.insertLink(r.db.WithContext(ctx), row.ID, queueID); err != nil && !isUniqueViolation(err) {
			return nil, err
		}
	}

	return r.FindByName(ctx, name)
}

// RemoveTargetQueue unlinks queueID from the topic if it is linked.
func (r *TopicRepository) RemoveTargetQueue(ctx context.Context, name string, queueID int64) (*model.Topic, error) {
	row, err := r.findRow(ctx, name)
	if err != nil || row == nil {
		return nil, err
	}

	_, err = r.db.WithContext(ctx).Delete(r.linkTableName()).
		Where("topic_id = ? AND queue_id = ?", row.ID, queueID).
		WithContext(ctx).
		Execute()
	if err != nil {
		return nil, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to delete topic target", err)
	}

	return r.FindByName(ctx, name)
}

func (r *TopicRepository) findRow(ctx context.Context, name string) (*topicRow, error) {
	var row topicRow
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).Where("name = ?", name).One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to find topic", err)
	}
	return &row, nil
}

func (r *TopicRepository) findLinks(ctx context.Context, where string, args ...interface{}) ([]model.TopicQueue, error) {
	var links []model.TopicQueue
	err := r.db.WithContext(ctx).Select("*").
		From(r.linkTableName()).
		Where(where, args...).
		OrderBy("id ASC").
		WithContext(ctx).
		All(&links)
	if err != nil {
		return nil, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to find topic targets", err)
	}
	return links, nil
}

// modeler is satisfied by both *relica.DB and *relica.Tx.
type modeler interface {
	Model(model interface{}) *relica.ModelQuery
}

func (r *TopicRepository) insertLink(m modeler, topicID, queueID int64) error {
	link := model.TopicQueue{TopicID: topicID, QueueID: queueID}
	if err := m.Model(&link).Table(r.linkTableName()).Insert(); err != nil {
		return cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to insert topic target", err)
	}
	return nil
}

func topicExists(name string) *cargoqueue.Error {
	return cargoqueue.NewError(cargoqueue.ErrCodeConflict, fmt.Sprintf("Topic %s already exists", name))
}

func toTopic(row topicRow, links []model.TopicQueue) *model.Topic {
	ids := make([]int64, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.QueueID)
	}
	topic := model.NewTopic(row.Name, ids, row.CreatedAt)
	topic.ID = row.ID
	return &topic
}
