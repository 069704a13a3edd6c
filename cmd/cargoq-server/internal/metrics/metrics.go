// Package metrics exposes cargoqueue.Metrics as Prometheus collectors.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics implements cargoqueue.Metrics.
type Metrics struct {
	sent              *prometheus.CounterVec
	claimed           *prometheus.CounterVec
	acknowledged      prometheus.Counter
	purged            *prometheus.CounterVec
	retentionRewrites *prometheus.CounterVec
	expired           prometheus.Counter
	publishes         *prometheus.CounterVec
	publishTargets    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cargoq_messages_sent_total",
				Help: "Total number of messages written to a queue",
			},
			[]string{"queue"},
		),
		claimed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cargoq_messages_claimed_total",
				Help: "Total number of messages taken with an atomic claim",
			},
			[]string{"queue"},
		),
		acknowledged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cargoq_messages_acknowledged_total",
				Help: "Total number of successful acknowledge calls",
			},
		),
		purged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cargoq_messages_purged_total",
				Help: "Total number of messages removed by queue purges",
			},
			[]string{"queue"},
		),
		retentionRewrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cargoq_retention_rewrites_total",
				Help: "Messages whose expiry was rewritten by a retention policy change",
			},
			[]string{"queue"},
		),
		expired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cargoq_messages_expired_total",
				Help: "Total number of messages removed by the expiry sweeper",
			},
		),
		publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cargoq_topic_publishes_total",
				Help: "Total number of topic publishes",
			},
			[]string{"topic", "partial"},
		),
		publishTargets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cargoq_topic_publish_targets_total",
				Help: "Fan-out writes per topic by outcome",
			},
			[]string{"topic", "outcome"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.sent, m.claimed, m.acknowledged, m.purged,
		m.retentionRewrites, m.expired, m.publishes, m.publishTargets,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MessageSent implements cargoqueue.Metrics.
func (m *Metrics) MessageSent(queueSlug string) {
	m.sent.WithLabelValues(queueSlug).Inc()
}

// MessageClaimed implements cargoqueue.Metrics.
func (m *Metrics) MessageClaimed(queueSlug string) {
	m.claimed.WithLabelValues(queueSlug).Inc()
}

// MessageAcknowledged implements cargoqueue.Metrics.
func (m *Metrics) MessageAcknowledged() {
	m.acknowledged.Inc()
}

// MessagesPurged implements cargoqueue.Metrics.
func (m *Metrics) MessagesPurged(queueSlug string, count int) {
	m.purged.WithLabelValues(queueSlug).Add(float64(count))
}

// RetentionCascade implements cargoqueue.Metrics.
func (m *Metrics) RetentionCascade(queueSlug string, rewritten int) {
	m.retentionRewrites.WithLabelValues(queueSlug).Add(float64(rewritten))
}

// MessagesExpired implements cargoqueue.Metrics.
func (m *Metrics) MessagesExpired(count int) {
	m.expired.Add(float64(count))
}

// TopicPublished implements cargoqueue.Metrics.
func (m *Metrics) TopicPublished(topic string, targets, failed int) {
	m.publishes.WithLabelValues(topic, strconv.FormatBool(failed > 0)).Inc()
	m.publishTargets.WithLabelValues(topic, "ok").Add(float64(targets - failed))
	if failed > 0 {
		m.publishTargets.WithLabelValues(topic, "failed").Add(float64(failed))
	}
}
