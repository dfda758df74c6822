package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Status for unknown or expired job ids.
	ErrNotFound = errors.New("job not found")
	// ErrUnknownType is returned by Enqueue when no job handles the message type.
	ErrUnknownType = errors.New("no job registered for type")
	// ErrNotRunning is returned by Enqueue before Start or after Stop.
	ErrNotRunning = errors.New("queue not running")
)

// State is the lifecycle position of a queued job.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateRetrying  State = "retrying"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// QueueConfig contains the configuration for the queue.
type QueueConfig struct {
	Workers     int           // concurrent handlers, 1 when zero
	RetryLimit  int           // retries after the first attempt
	RetryDelay  time.Duration // delay before a retry, 10s when zero
	StatusTTL   time.Duration // how long job status is kept, 24h when zero
	PollTimeout time.Duration // blocking pop timeout, 1s when zero
	KeyPrefix   string        // namespace of every key, "fxcast:queue" when empty
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Second
	}
	if c.StatusTTL <= 0 {
		c.StatusTTL = 24 * time.Hour
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = time.Second
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "fxcast:queue"
	}
	return c
}

// Message is the envelope stored on the queue list.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

// Status is the externally visible progress of one job.
type Status struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	State      State           `json:"state"`
	Attempts   int             `json:"attempts"`
	Error      string          `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Done reports whether the job reached a final state.
func (s *Status) Done() bool {
	return s.State == StateSucceeded || s.State == StateFailed
}

// backend is the storage the queue runs on. errEmpty signals an empty pop or a
// missing status key.
type backend interface {
	Ping(ctx context.Context) error
	Push(ctx context.Context, key string, data []byte) error
	Pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error)
	Schedule(ctx context.Context, key string, data []byte, at time.Time) error
	Due(ctx context.Context, key string, now time.Time) ([]string, error)
	Promote(ctx context.Context, from, to, member string) error
	SetStatus(ctx context.Context, key string, data []byte, ttl time.Duration) error
	GetStatus(ctx context.Context, key string) ([]byte, error)
}

var errEmpty = errors.New("empty")
