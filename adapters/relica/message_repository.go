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

// pollableWhere selects unprocessed messages of a queue that are visible at a given time.
const pollableWhere = "queue_id = ? AND processed = ? AND (visibility_timeout IS NULL OR visibility_timeout <= ?)"

// MessageRepository implements cargoqueue.MessageRepository using Relica.
type MessageRepository struct {
	db          *relica.DB
	tablePrefix string
	now         func() time.Time
}

// NewMessageRepository creates a new MessageRepository with default table prefix.
func NewMessageRepository(sqlDB *sql.DB, driverName string) *MessageRepository {
	return NewMessageRepositoryWithPrefix(sqlDB, driverName, cargoqueue.DefaultTablePrefix)
}

// NewMessageRepositoryWithPrefix creates a new MessageRepository with custom table prefix.
func NewMessageRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *MessageRepository {
	return &MessageRepository{
		db:          relica.WrapDB(sqlDB, driverName),
		tablePrefix: prefix,
		now:         time.Now,
	}
}

func (r *MessageRepository) tableName() string {
	return r.tablePrefix + "message"
}

// Create inserts an unprocessed message.
func (r *MessageRepository) Create(ctx context.Context, queueID int64, body string, expiresAt *time.Time) (*model.Message, error) {
	msg := model.NewMessage(queueID, body, utc(expiresAt), r.now().UTC())
	if err := msg.Validate(); err != nil {
		return nil, cargoqueue.NewValidationError(err)
	}

	// Insert using Model() API - auto-populates msg.ID
	if err := r.db.WithContext(ctx).Model(&msg).Table(r.tableName()).Insert(); err != nil {
		return nil, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to insert message", err)
	}
	return &msg, nil
}

// FindOldestUnprocessed returns the oldest visible unprocessed message in one query.
func (r *MessageRepository) FindOldestUnprocessed(ctx context.Context, queueID int64, now time.Time) (*model.Message, error) {
	var msg model.Message

	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where(pollableWhere, queueID, false, now.UTC()).
		OrderBy("created_at ASC", "id ASC").
		Limit(1).
		WithContext(ctx).
		One(&msg)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to find oldest unprocessed message", err)
	}
	return &msg, nil
}

// ClaimOldestUnprocessed reads the oldest visible message, then sets its visibility
// timeout only if it is still unprocessed and visible. Zero affected rows means
// another consumer got there first.
func (r *MessageRepository) ClaimOldestUnprocessed(ctx context.Context, queueID int64, now, visibleUntil time.Time) (*model.Message, error) {
	msg, err := r.FindOldestUnprocessed(ctx, queueID, now)
	if err != nil || msg == nil {
		return msg, err
	}

	until := visibleUntil.UTC()
	result, err := r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{
			"visibility_timeout": until,
		}).
		Where("id = ? AND processed = ? AND (visibility_timeout IS NULL OR visibility_timeout <= ?)", msg.ID, false, now.UTC()).
		WithContext(ctx).
		Execute()
	if err != nil {
		return nil, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to claim message", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to read claim result", err)
	}
	if affected == 0 {
		return nil, cargoqueue.ErrClaimContended
	}

	msg.Claim(until)
	return msg, nil
}

// MarkProcessed sets processed=true with a single UPDATE, then reads the row back.
// The flag only ever moves to true, so the read cannot observe an older state.
func (r *MessageRepository) MarkProcessed(ctx context.Context, id int64) (*model.Message, error) {
	_, err := r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{
			"processed": true,
		}).
		Where("id = ?", id).
		WithContext(ctx).
		Execute()
	if err != nil {
		return nil, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to mark message processed", err)
	}

	return r.FindByID(ctx, id)
}

// FindByID retrieves a message by ID.
func (r *MessageRepository) FindByID(ctx context.Context, id int64) (*model.Message, error) {
	var msg model.Message

	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).Where("id = ?", id).One(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to load message", err)
	}
	return &msg, nil
}

// DeleteByQueueID removes every message of the queue in one statement and
// reports the rows the database actually deleted.
func (r *MessageRepository) DeleteByQueueID(ctx context.Context, queueID int64) (int, error) {
	result, err := r.db.WithContext(ctx).Delete(r.tableName()).
		Where("queue_id = ?", queueID).
		WithContext(ctx).
		Execute()
	return affected(result, err, "failed to purge messages")
}

// UpdateExpiryForQueue rewrites expires_at of every message of the queue.
// The count is taken before the UPDATE because MySQL reports unchanged rows as unaffected.
func (r *MessageRepository) UpdateExpiryForQueue(ctx context.Context, queueID int64, expiresAt *time.Time) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Select("COUNT(*)").From(r.tableName()).Where("queue_id = ?", queueID).One(&count)
	if err != nil {
		return 0, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to count messages", err)
	}

	_, err = r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{
			"expires_at": utc(expiresAt),
		}).
		Where("queue_id = ?", queueID).
		WithContext(ctx).
		Execute()
	if err != nil {
		return 0, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to update message expiry", err)
	}

	return int(count), nil
}

// DeleteExpired removes up to limit messages with expires_at <= now, oldest expiry first.
//
// The batch is chosen by a SELECT and removed by one DELETE that repeats the expiry
// condition, so rows removed concurrently in between are not counted.
func (r *MessageRepository) DeleteExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	var batch []idRow

	err := r.db.WithContext(ctx).Select("id").
		From(r.tableName()).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now.UTC()).
		OrderBy("expires_at ASC", "id ASC").
		Limit(int64(limit)).
		WithContext(ctx).
		All(&batch)
	if err != nil {
		return 0, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to find expired messages", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	ids := make([]interface{}, len(batch))
	for i, row := range batch {
		ids[i] = row.ID
	}

	result, err := r.db.WithContext(ctx).Delete(r.tableName()).
		Where(relica.In("id", ids...)).
		Where("expires_at <= ?", now.UTC()).
		WithContext(ctx).
		Execute()
	return affected(result, err, "failed to delete expired messages")
}

// CountByQueueID returns the total and unprocessed message counts of the queue.
func (r *MessageRepository) CountByQueueID(ctx context.Context, queueID int64) (int, int, error) {
	var total, unprocessed int64

	err := r.db.WithContext(ctx).Select("COUNT(*)").From(r.tableName()).Where("queue_id = ?", queueID).One(&total)
	if err != nil {
		return 0, 0, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to count messages", err)
	}

	err = r.db.WithContext(ctx).Select("COUNT(*)").From(r.tableName()).
		Where("queue_id = ? AND processed = ?", queueID, false).One(&unprocessed)
	if err != nil {
		return 0, 0, cargoqueue.NewErrorWithCause(cargoqueue.ErrCodeDatabase, "failed to count unprocessed messages", err)
	}

	return int(total), int(unprocessed), nil
}

// DeleteAll removes every message.
func (r *MessageRepository) DeleteAll(ctx context.Context) (int, error) {
	result, err := r.db.WithContext(ctx).Delete(r.tableName()).WithContext(ctx).Execute()
	return affected(result, err, "failed to delete messages")
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
