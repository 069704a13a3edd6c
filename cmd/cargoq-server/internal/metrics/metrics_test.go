package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cargoqueue "github.com/dayemsiddiqui/cargo-queue"
)

var _ cargoqueue.Metrics = (*Metrics)(nil)

func TestMetrics_Counters(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.MessageSent("orders")
	m.MessageSent("orders")
	m.MessageSent("billing")
	m.MessageClaimed("orders")
	m.MessageAcknowledged()
	m.MessagesPurged("orders", 5)
	m.RetentionCascade("orders", 12)
	m.MessagesExpired(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sent.WithLabelValues("orders")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sent.WithLabelValues("billing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.claimed.WithLabelValues("orders")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.acknowledged))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.purged.WithLabelValues("orders")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.retentionRewrites.WithLabelValues("orders")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.expired))
}

func TestMetrics_TopicPublished(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.TopicPublished("events", 3, 0)
	m.TopicPublished("events", 3, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishes.WithLabelValues("events", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishes.WithLabelValues("events", "true")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.publishTargets.WithLabelValues("events", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishTargets.WithLabelValues("events", "failed")))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}
