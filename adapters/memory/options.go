package memory

import (
	"time"

	cargoqueue "github.com/dayemsiddiqui/cargo-queue"
)

// Option configures the in-memory repositories.
type Option func(*options)

type options struct {
	nowFn func() time.Time
}

// WithNowFunc replaces time.Now as the source of CreatedAt timestamps.
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.nowFn = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{nowFn: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) now() time.Time {
	return o.nowFn().UTC()
}

// NewRepositories creates the three in-memory repositories sharing the same options.
func NewRepositories(opts ...Option) *cargoqueue.Repositories {
	return &cargoqueue.Repositories{
		Queue:   NewQueueRepository(opts...),
		Message: NewMessageRepository(opts...),
		Topic:   NewTopicRepository(opts...),
	}
}
