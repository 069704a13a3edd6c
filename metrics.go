package cargoqueue

// Metrics receives counters from the services and the expiry sweeper.
// Implementations must be safe for concurrent use.
//
// The server wires a Prometheus implementation (cmd/cargoq-server/internal/metrics).
type Metrics interface {
	// MessageSent counts one message written to the queue with the given slug.
	MessageSent(queueSlug string)

	// MessageClaimed counts one successful atomic claim.
	MessageClaimed(queueSlug string)

	// MessageAcknowledged counts one acknowledge call that resolved a message.
	MessageAcknowledged()

	// MessagesPurged counts messages removed by a purge of the queue.
	MessagesPurged(queueSlug string, count int)

	// RetentionCascade counts the messages rewritten by a retention policy change.
	// The cascade is a full rewrite of the queue, so this grows with queue size.
	RetentionCascade(queueSlug string, rewritten int)

	// MessagesExpired counts messages removed by the expiry sweeper.
	MessagesExpired(count int)

	// TopicPublished records one publish and the number of target queues that failed.
	TopicPublished(topic string, targets, failed int)
}

// NoopMetrics discards every observation.
type NoopMetrics struct{}

// MessageSent implements Metrics.MessageSent as a no-op.
func (NoopMetrics) MessageSent(_ string) {}

// MessageClaimed implements Metrics.MessageClaimed as a no-op.
func (NoopMetrics) MessageClaimed(_ string) {}

// MessageAcknowledged implements Metrics.MessageAcknowledged as a no-op.
func (NoopMetrics) MessageAcknowledged() {}

// MessagesPurged implements Metrics.MessagesPurged as a no-op.
func (NoopMetrics) MessagesPurged(_ string, _ int) {}

// RetentionCascade implements Metrics.RetentionCascade as a no-op.
func (NoopMetrics) RetentionCascade(_ string, _ int) {}

// MessagesExpired implements Metrics.MessagesExpired as a no-op.
func (NoopMetrics) MessagesExpired(_ int) {}

// TopicPublished implements Metrics.TopicPublished as a no-op.
func (NoopMetrics) TopicPublished(_ string, _, _ int) {}
