package cargoqueue_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cargoqueue "github.com/dayemsiddiqui/cargo-queue"
	"github.com/dayemsiddiqui/cargo-queue/adapters/memory"
	"github.com/dayemsiddiqui/cargo-queue/model"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingMetrics struct {
	mu           sync.Mutex
	sent         map[string]int
	claimed      int
	acknowledged int
	purged       int
	cascaded     map[string]int
	expired      int
	published    int
	failed       int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{sent: map[string]int{}, cascaded: map[string]int{}}
}

func (m *recordingMetrics) MessageSent(slug string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[slug]++
}

func (m *recordingMetrics) MessageClaimed(_ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claimed++
}

func (m *recordingMetrics) MessageAcknowledged() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acknowledged++
}

func (m *recordingMetrics) MessagesPurged(_ string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged += count
}

func (m *recordingMetrics) RetentionCascade(slug string, rewritten int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cascaded[slug] += rewritten
}

func (m *recordingMetrics) MessagesExpired(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expired += count
}

func (m *recordingMetrics) TopicPublished(_ string, _, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published++
	m.failed += failed
}

type recordingNotifications struct {
	mu             sync.Mutex
	deletedQueues  []string
	expired        int
	publishFailure []int64
}

func (n *recordingNotifications) NotifyQueueDeleted(_ context.Context, q model.Queue) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deletedQueues = append(n.deletedQueues, q.Slug)
	return nil
}

func (n *recordingNotifications) NotifyMessagesExpired(_ context.Context, count int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expired += count
	return nil
}

func (n *recordingNotifications) NotifyPublishFailure(_ context.Context, _ string, queueID int64, _ error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.publishFailure = append(n.publishFailure, queueID)
	return nil
}

type fixture struct {
	ctx           context.Context
	clock         *testClock
	repos         *cargoqueue.Repositories
	metrics       *recordingMetrics
	notifications *recordingNotifications
	queues        *cargoqueue.QueueService
	topics        *cargoqueue.TopicService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ctx:           context.Background(),
		clock:         newTestClock(),
		metrics:       newRecordingMetrics(),
		notifications: &recordingNotifications{},
	}
	f.repos = memory.NewRepositories(memory.WithNowFunc(f.clock.Now))

	var err error
	f.queues, err = cargoqueue.NewQueueService(
		cargoqueue.WithRepositories(f.repos.Queue, f.repos.Message),
		cargoqueue.WithLogger(&cargoqueue.NoopLogger{}),
		cargoqueue.WithClock(f.clock.Now),
		cargoqueue.WithMetrics(f.metrics),
		cargoqueue.WithNotifications(f.notifications),
	)
	require.NoError(t, err)

	f.topics, err = cargoqueue.NewTopicService(
		cargoqueue.WithTopicRepositories(f.repos.Topic, f.queues),
		cargoqueue.WithTopicLogger(&cargoqueue.NoopLogger{}),
		cargoqueue.WithTopicMetrics(f.metrics),
		cargoqueue.WithTopicNotifications(f.notifications),
	)
	require.NoError(t, err)

	return f
}

func (f *fixture) createQueue(t *testing.T, name string, retention *int64) *model.Queue {
	t.Helper()
	q, err := f.queues.CreateQueue(f.ctx, name, retention)
	require.NoError(t, err)
	return q
}

func int64Ptr(v int64) *int64 { return &v }

// capturingLogger keeps every formatted line, prefixed with its level.
type capturingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *capturingLogger) record(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *capturingLogger) Debugf(format string, args ...interface{}) { l.record("DEBUG", format, args...) }
func (l *capturingLogger) Infof(format string, args ...interface{})  { l.record("INFO", format, args...) }
func (l *capturingLogger) Warnf(format string, args ...interface{})  { l.record("WARN", format, args...) }
func (l *capturingLogger) Errorf(format string, args ...interface{}) { l.record("ERROR", format, args...) }
func (l *capturingLogger) Info(message string)                       { l.record("INFO", "%s", message) }

func (l *capturingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if strings.HasPrefix(line, level+" ") {
			n++
		}
	}
	return n
}

func (l *capturingLogger) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}
