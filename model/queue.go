package model

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Queue is a named, ordered holding area for messages awaiting processing.
//
// Name and Slug are both globally unique. The slug is derived from the name once,
// at creation, and is never recomputed afterwards.
//
// RetentionPeriod is the number of seconds a message may live in the queue before
// it becomes eligible for automatic deletion. Nil means messages never expire.
type Queue struct {
	ID              int64     `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Slug            string    `json:"slug" db:"slug"`
	RetentionPeriod *int64    `json:"retentionPeriod" db:"retention_period"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

// TableName returns the database table name for Queue.
func (q Queue) TableName() string {
	return tablePrefix + "queue"
}

// MaxRetentionPeriod is the largest retention period, in seconds, that still fits
// in a time.Duration.
const MaxRetentionPeriod = int64(math.MaxInt64 / int64(time.Second))

// NewQueue creates a queue with a slug derived from name and a normalized
// retention period. The name is trimmed of surrounding whitespace.
func NewQueue(name string, retentionPeriod *int64, now time.Time) Queue {
	name = strings.TrimSpace(name)
	return Queue{
		ID:              0,
		Name:            name,
		Slug:            Slugify(name),
		RetentionPeriod: NormalizeRetention(retentionPeriod),
		CreatedAt:       now,
	}
}

// Validate checks the queue against its invariants.
func (q Queue) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Name, validation.Required.Error("Name is required"), validation.Length(1, 255)),
		validation.Field(&q.Slug, validation.Required.Error("Name must contain at least one letter or digit")),
		validation.Field(&q.RetentionPeriod,
			validation.Min(int64(1)).Error("Retention period must be a positive number of seconds"),
			validation.Max(MaxRetentionPeriod).Error(fmt.Sprintf("Retention period must not exceed %d seconds", MaxRetentionPeriod)),
		),
	)
}

// HasRetention reports whether messages in the queue expire.
func (q Queue) HasRetention() bool {
	return q.RetentionPeriod != nil
}

// Retention returns the retention period as a duration, or 0 when messages never expire.
func (q Queue) Retention() time.Duration {
	if !q.HasRetention() {
		return 0
	}
	return time.Duration(*q.RetentionPeriod) * time.Second
}

// ExpiryFrom returns the expiry timestamp for a message stored at now,
// or nil when the queue has no retention policy.
func (q Queue) ExpiryFrom(now time.Time) *time.Time {
	if !q.HasRetention() {
		return nil
	}
	expiresAt := now.Add(q.Retention())
	return &expiresAt
}

// NormalizeRetention maps an absent or zero retention period to nil ("never expire").
// Any other value is returned as a fresh pointer.
func NormalizeRetention(period *int64) *int64 {
	if period == nil || *period == 0 {
		return nil
	}
	v := *period
	return &v
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the URL-safe slug of a queue name: lowercase, every run of
// characters outside [a-z0-9] collapsed to a single hyphen, and leading or
// trailing hyphens stripped.
func Slugify(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
