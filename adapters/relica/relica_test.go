package relica_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cargoqueue "github.com/dayemsiddiqui/cargo-queue"
	"github.com/dayemsiddiqui/cargo-queue/adapters/relica"
	"github.com/dayemsiddiqui/cargo-queue/model"
)

// openSQLite returns migrated repositories over a private in-memory database,
// along with the database itself. The test is skipped when the sqlite3 driver was
// built without cgo.
func openSQLite(t *testing.T) (*cargoqueue.Repositories, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := cargoqueue.ApplyMigrations(context.Background(), db, "sqlite3"); err != nil {
		t.Skipf("sqlite3 unavailable: %v", err)
	}
	return relica.NewRepositories(db, "sqlite3"), db
}

func TestQueueRepository_SQLite(t *testing.T) {
	ctx := context.Background()
	repos, _ := openSQLite(t)
	now := time.Now().UTC()

	created, err := repos.Queue.Create(ctx, model.NewQueue("Orders", nil, now))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	found, err := repos.Queue.FindBySlug(ctx, "orders")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.Nil(t, found.RetentionPeriod)

	byName, err := repos.Queue.FindByName(ctx, "Orders")
	require.NoError(t, err)
	require.NotNil(t, byName)

	missing, err := repos.Queue.FindBySlug(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	updated, err := repos.Queue.UpdateRetention(ctx, created.ID, int64Ptr(60))
	require.NoError(t, err)
	require.NotNil(t, updated.RetentionPeriod)
	assert.Equal(t, int64(60), *updated.RetentionPeriod)

	_, err = repos.Queue.Create(ctx, model.NewQueue("Other", nil, now))
	require.NoError(t, err)

	all, err := repos.Queue.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "orders", all[0].Slug)

	deleted, err := repos.Queue.Delete(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted)

	gone, err := repos.Queue.FindByID(ctx, created.ID)
	assert.NoError(t, err)
	assert.Nil(t, gone)

	n, err := repos.Queue.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMessageRepository_SQLite(t *testing.T) {
	ctx := context.Background()
	repos, _ := openSQLite(t)
	now := time.Now().UTC()

	q, err := repos.Queue.Create(ctx, model.NewQueue("Jobs", nil, now))
	require.NoError(t, err)

	first, err := repos.Message.Create(ctx, q.ID, "first", nil)
	require.NoError(t, err)
	second, err := repos.Message.Create(ctx, q.ID, "second", nil)
	require.NoError(t, err)

	_, err = repos.Message.Create(ctx, q.ID, "", nil)
	assert.True(t, cargoqueue.IsValidation(err))

	oldest, err := repos.Message.FindOldestUnprocessed(ctx, q.ID, time.Now())
	require.NoError(t, err)
	require.NotNil(t, oldest)
	assert.Equal(t, first.ID, oldest.ID)

	claimed, err := repos.Message.ClaimOldestUnprocessed(ctx, q.ID, time.Now(), time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, first.ID, claimed.ID)

	next, err := repos.Message.FindOldestUnprocessed(ctx, q.ID, time.Now())
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, second.ID, next.ID)

	acked, err := repos.Message.MarkProcessed(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, acked.Processed)

	again, err := repos.Message.MarkProcessed(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, again.Processed)

	unknown, err := repos.Message.MarkProcessed(ctx, 9999)
	assert.NoError(t, err)
	assert.Nil(t, unknown)

	total, unprocessed, err := repos.Message.CountByQueueID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, unprocessed)

	past := time.Now().Add(-time.Second)
	rewritten, err := repos.Message.UpdateExpiryForQueue(ctx, q.ID, &past)
	require.NoError(t, err)
	assert.Equal(t, 2, rewritten)

	expired, err := repos.Message.DeleteExpired(ctx, time.Now(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	expired, err = repos.Message.DeleteExpired(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	_, err = repos.Message.Create(ctx, q.ID, "third", nil)
	require.NoError(t, err)

	purged, err := repos.Message.DeleteByQueueID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
}

func TestTopicRepository_SQLite(t *testing.T) {
	ctx := context.Background()
	repos, _ := openSQLite(t)
	now := time.Now().UTC()

	a, err := repos.Queue.Create(ctx, model.NewQueue("A", nil, now))
	require.NoError(t, err)
	b, err := repos.Queue.Create(ctx, model.NewQueue("B", nil, now))
	require.NoError(t, err)

	topic, err := repos.Topic.Create(ctx, "events", []int64{a.ID, a.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, topic.TargetQueueIDs)

	_, err = repos.Topic.Create(ctx, "events", nil)
	assert.True(t, cargoqueue.IsConflict(err))

	topic, err = repos.Topic.AddTargetQueue(ctx, "events", b.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{a.ID, b.ID}, topic.TargetQueueIDs)

	topic, err = repos.Topic.AddTargetQueue(ctx, "events", b.ID)
	require.NoError(t, err)
	assert.Len(t, topic.TargetQueueIDs, 2)

	topic, err = repos.Topic.RemoveTargetQueue(ctx, "events", a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, topic.TargetQueueIDs)

	missing, err := repos.Topic.AddTargetQueue(ctx, "missing", a.ID)
	assert.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repos.Topic.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	ok, err := repos.Topic.Delete(ctx, "events")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.Topic.Delete(ctx, "events")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueueRepository_UniqueIndexIsConflict(t *testing.T) {
	ctx := context.Background()
	repos, _ := openSQLite(t)
	now := time.Now().UTC()

	_, err := repos.Queue.Create(ctx, model.NewQueue("Orders", nil, now))
	require.NoError(t, err)

	tests := []struct {
		name  string
		queue model.Queue
	}{
		{name: "Same name", queue: model.NewQueue("Orders", nil, now)},
		{name: "Same slug", queue: model.Queue{Name: "ORDERS!", Slug: "orders", CreatedAt: now}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := repos.Queue.Create(ctx, tt.queue)
			assert.Nil(t, q)
			assert.True(t, cargoqueue.IsConflict(err))
			assert.Equal(t, "A queue with this name already exists", cargoqueue.MessageOf(err))
		})
	}
}

func TestQueueRepository_DeleteReportsActualRows(t *testing.T) {
	ctx := context.Background()
	repos, _ := openSQLite(t)
	now := time.Now().UTC()

	q, err := repos.Queue.Create(ctx, model.NewQueue("Orders", nil, now))
	require.NoError(t, err)

	deleted, err := repos.Queue.Delete(ctx, q.ID)
	require.NoError(t, err)
	assert.NotNil(t, deleted)

	deleted, err = repos.Queue.Delete(ctx, q.ID)
	require.NoError(t, err)
	assert.Nil(t, deleted)

	n, err := repos.Queue.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMessageRepository_BulkDeleteCounts(t *testing.T) {
	ctx := context.Background()
	repos, db := openSQLite(t)
	now := time.Now().UTC()

	a, err := repos.Queue.Create(ctx, model.NewQueue("A", nil, now))
	require.NoError(t, err)
	b, err := repos.Queue.Create(ctx, model.NewQueue("B", nil, now))
	require.NoError(t, err)

	past := now.Add(-time.Minute)
	for i := 0; i < 3; i++ {
		_, err = repos.Message.Create(ctx, a.ID, "a", &past)
		require.NoError(t, err)
	}
	_, err = repos.Message.Create(ctx, b.ID, "b", nil)
	require.NoError(t, err)

	// Rows removed behind the repository's back are not counted.
	_, err = db.Exec("DELETE FROM cargo_message WHERE id = (SELECT MIN(id) FROM cargo_message)")
	require.NoError(t, err)

	purged, err := repos.Message.DeleteByQueueID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, purged)

	purged, err = repos.Message.DeleteByQueueID(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, purged)

	expired, err := repos.Message.DeleteExpired(ctx, now, 10)
	require.NoError(t, err)
	assert.Zero(t, expired)

	total, _, err := repos.Message.CountByQueueID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, total, "other queues are untouched")

	all, err := repos.Message.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, all)
}

func TestMessageRepository_DeleteExpiredSkipsUnexpired(t *testing.T) {
	ctx := context.Background()
	repos, _ := openSQLite(t)
	now := time.Now().UTC()

	q, err := repos.Queue.Create(ctx, model.NewQueue("Jobs", nil, now))
	require.NoError(t, err)

	past, future := now.Add(-time.Minute), now.Add(time.Hour)
	for _, expiresAt := range []*time.Time{&past, &past, &future, nil} {
		_, err = repos.Message.Create(ctx, q.ID, "x", expiresAt)
		require.NoError(t, err)
	}

	expired, err := repos.Message.DeleteExpired(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	total, _, err := repos.Message.CountByQueueID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestTopicRepository_CreateIsAtomic(t *testing.T) {
	ctx := context.Background()
	repos, db := openSQLite(t)

	q, err := repos.Queue.Create(ctx, model.NewQueue("A", nil, time.Now().UTC()))
	require.NoError(t, err)

	_, err = db.Exec("DROP TABLE cargo_topic_queue")
	require.NoError(t, err)

	topic, err := repos.Topic.Create(ctx, "events", []int64{q.ID})
	assert.Nil(t, topic)
	assert.Equal(t, cargoqueue.ErrCodeDatabase, cargoqueue.CodeOf(err))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM cargo_topic").Scan(&count))
	assert.Zero(t, count, "topic row must be rolled back with its targets")
}

func int64Ptr(v int64) *int64 { return &v }
