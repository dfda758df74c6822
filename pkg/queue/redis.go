package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"FxCast/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// maxRetryPoll caps how long a scheduled retry waits past its due time.
const maxRetryPoll = 5 * time.Second

// RedisQueue is a job queue on a Redis list. Failed jobs are retried through a
// sorted set and land on a dead-letter list once retries run out. Every job has
// a status record that expires after StatusTTL.
type RedisQueue struct {
	logger    *logger.Logger
	config    QueueConfig
	backend   backend
	addr      string
	jobs      map[string]Job
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewRedisQueue creates a queue on client. Jobs must be registered before Start.
func NewRedisQueue(lgr *logger.Logger, config QueueConfig, client *redis.Client) *RedisQueue {
	return newQueue(lgr, config, &redisBackend{client: client}, client.Options().Addr)
}

func newQueue(lgr *logger.Logger, config QueueConfig, b backend, addr string) *RedisQueue {
	if lgr == nil {
		lgr = logger.Nop()
	}
	return &RedisQueue{
		logger:  lgr,
		config:  config.withDefaults(),
		backend: b,
		addr:    addr,
		jobs:    make(map[string]Job),
	}
}

// RegisterJob registers job for its message type. A second job for the same
// type is ignored.
func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.Type()]; exists {
		r.logger.Warn("job already registered", logger.String("type", job.Type()))
		return
	}
	r.jobs[job.Type()] = job
	r.logger.Info("job registered", logger.String("type", job.Type()))
}

// Start pings the backend and launches the workers and the retry processor.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isRunning {
		return fmt.Errorf("queue already running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.backend.Ping(ctx); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.isRunning = true
	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.wg.Add(1)
	go r.retryProcessor()

	r.logger.Info("redis queue started",
		logger.Int("workers", r.config.Workers),
		logger.String("addr", r.addr),
		logger.String("prefix", r.config.KeyPrefix))
	return nil
}

// Stop cancels running jobs and waits for the workers until ctx expires.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	r.logger.Info("stopping redis queue...")
	r.cancel()
	r.mu.Unlock()

	doneCh := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-ctx.Done():
		r.logger.Warn("timeout waiting for queue workers", logger.Error(ctx.Err()))
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-doneCh:
		r.logger.Info("redis queue stopped gracefully")
		return nil
	}
}

// Enqueue stores payload as JSON under a new job id and returns its queued status.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) (*Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.isRunning {
		return nil, ErrNotRunning
	}
	if _, exists := r.jobs[msgType]; !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, msgType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	now := time.Now().UTC()
	msg := Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: now,
	}
	st := &Status{ID: msg.ID, Type: msgType, State: StateQueued, EnqueuedAt: now, UpdatedAt: now}
	if err := r.saveStatus(ctx, st); err != nil {
		return nil, err
	}

	msgData, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	if err := r.backend.Push(ctx, r.queueKey(), msgData); err != nil {
		return nil, fmt.Errorf("lpush: %w", err)
	}
	return st, nil
}

// Status returns the current status of job id, or ErrNotFound.
func (r *RedisQueue) Status(ctx context.Context, id string) (*Status, error) {
	data, err := r.backend.GetStatus(ctx, r.statusKey(id))
	if errors.Is(err, errEmpty) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &st, nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()
	r.logger.Debug("queue worker started", logger.Int("worker_id", id))

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("queue worker stopping", logger.Int("worker_id", id))
			return
		default:
			r.processNextMessage()
		}
	}
}

func (r *RedisQueue) processNextMessage() {
	data, err := r.backend.Pop(r.ctx, r.queueKey(), r.config.PollTimeout)
	if err != nil {
		if errors.Is(err, errEmpty) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		r.logger.Error("brpop error", logger.Error(err))
		select {
		case <-r.ctx.Done():
		case <-time.After(time.Second):
		}
		return
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		r.logger.Error("unmarshal message", logger.Error(err))
		return
	}
	r.processMessage(msg)
}

func (r *RedisQueue) processMessage(msg Message) {
	r.mu.RLock()
	job, exists := r.jobs[msg.Type]
	r.mu.RUnlock()

	st := r.loadStatus(msg)
	st.Attempts = msg.Attempts + 1
	if !exists {
		r.logger.Error("no job found", logger.String("type", msg.Type), logger.String("id", msg.ID))
		r.finish(msg, st, fmt.Errorf("%w: %s", ErrUnknownType, msg.Type))
		return
	}

	st.State = StateRunning
	r.updateStatus(st)

	start := time.Now()
	result, err := safeHandle(r.ctx, job, msg.Payload)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.Canceled) && r.ctx.Err() != nil {
			r.logger.Warn("message cancelled",
				logger.String("id", msg.ID),
				logger.String("type", msg.Type),
				logger.Duration("elapsed_ms", elapsed))
			st.State = StateFailed
			st.Error = "cancelled by shutdown"
			r.updateStatus(st)
			return
		}
		r.handleProcessingError(msg, st, err)
		return
	}

	if result != nil {
		raw, merr := json.Marshal(result)
		if merr != nil {
			r.logger.Warn("marshal job result", logger.String("id", msg.ID), logger.Error(merr))
		} else {
			st.Result = raw
		}
	}
	st.State = StateSucceeded
	st.Error = ""
	r.updateStatus(st)
	r.logger.Info("job succeeded",
		logger.String("id", msg.ID),
		logger.String("type", msg.Type),
		logger.Int("attempt", st.Attempts),
		logger.Duration("elapsed_ms", elapsed))
}

func safeHandle(ctx context.Context, job Job, payload json.RawMessage) (result interface{}, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = Permanent(fmt.Errorf("job panic: %v", rec))
		}
	}()
	return job.Handle(ctx, payload)
}

func (r *RedisQueue) handleProcessingError(msg Message, st *Status, err error) {
	r.logger.Error("message processing error",
		logger.String("id", msg.ID),
		logger.String("type", msg.Type),
		logger.Int("attempt", st.Attempts),
		logger.Error(err))

	if isPermanent(err) || msg.Attempts >= r.config.RetryLimit {
		r.finish(msg, st, err)
		return
	}

	msg.Attempts++
	retryTime := time.Now().Add(r.config.RetryDelay)
	st.State = StateRetrying
	st.Error = err.Error()
	r.updateStatus(st)
	r.scheduleRetry(msg, retryTime)
	r.logger.Info("scheduled retry",
		logger.String("id", msg.ID),
		logger.Int("attempt", msg.Attempts),
		logger.String("retry_at", retryTime.Format(time.RFC3339)))
}

// finish fails the job for good and moves it to the dead-letter list.
func (r *RedisQueue) finish(msg Message, st *Status, err error) {
	st.State = StateFailed
	st.Error = err.Error()
	r.updateStatus(st)

	msgData, merr := json.Marshal(msg)
	if merr != nil {
		r.logger.Error("marshal dlq", logger.Error(merr))
		return
	}
	if perr := r.backend.Push(context.Background(), r.deadLetterKey(), msgData); perr != nil {
		r.logger.Error("lpush dlq", logger.Error(perr))
	}
}

func (r *RedisQueue) scheduleRetry(msg Message, retryTime time.Time) {
	msgData, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal retry", logger.Error(err))
		return
	}
	if err := r.backend.Schedule(context.Background(), r.retryKey(), msgData, retryTime); err != nil {
		r.logger.Error("zadd retry", logger.Error(err))
	}
}

func (r *RedisQueue) retryProcessor() {
	defer r.wg.Done()

	interval := r.config.RetryDelay
	if interval > maxRetryPoll {
		interval = maxRetryPoll
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.processRetryMessages()
		}
	}
}

func (r *RedisQueue) processRetryMessages() {
	due, err := r.backend.Due(r.ctx, r.retryKey(), time.Now())
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Error("fetch retry messages", logger.Error(err))
		}
		return
	}
	for _, member := range due {
		if r.ctx.Err() != nil {
			return
		}
		if err := r.backend.Promote(r.ctx, r.retryKey(), r.queueKey(), member); err != nil {
			if !errors.Is(err, context.Canceled) {
				r.logger.Error("move retry to queue", logger.Error(err))
			}
		}
	}
}

// loadStatus returns the stored status of msg, rebuilding it when it expired.
func (r *RedisQueue) loadStatus(msg Message) *Status {
	st, err := r.Status(r.ctx, msg.ID)
	if err == nil {
		return st
	}
	if !errors.Is(err, ErrNotFound) {
		r.logger.Warn("load job status", logger.String("id", msg.ID), logger.Error(err))
	}
	return &Status{ID: msg.ID, Type: msg.Type, EnqueuedAt: msg.Timestamp}
}

func (r *RedisQueue) updateStatus(st *Status) {
	if err := r.saveStatus(context.Background(), st); err != nil {
		r.logger.Warn("save job status", logger.String("id", st.ID), logger.Error(err))
	}
}

func (r *RedisQueue) saveStatus(ctx context.Context, st *Status) error {
	st.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := r.backend.SetStatus(ctx, r.statusKey(st.ID), data, r.config.StatusTTL); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

func (r *RedisQueue) queueKey() string {
	return fmt.Sprintf("%s:messages", r.config.KeyPrefix)
}

func (r *RedisQueue) retryKey() string {
	return fmt.Sprintf("%s:retry", r.config.KeyPrefix)
}

func (r *RedisQueue) deadLetterKey() string {
	return fmt.Sprintf("%s:dlq", r.config.KeyPrefix)
}

func (r *RedisQueue) statusKey(id string) string {
	return fmt.Sprintf("%s:status:%s", r.config.KeyPrefix, id)
}

// redisBackend maps the queue operations onto go-redis commands.
type redisBackend struct {
	client *redis.Client
}

func (b *redisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *redisBackend) Push(ctx context.Context, key string, data []byte) error {
	return b.client.LPush(ctx, key, data).Err()
}

func (b *redisBackend) Pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error) {
	result, err := b.client.BRPop(ctx, timeout, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, errEmpty
	}
	if err != nil {
		return nil, err
	}
	if len(result) < 2 {
		return nil, errEmpty
	}
	return []byte(result[1]), nil
}

func (b *redisBackend) Schedule(ctx context.Context, key string, data []byte, at time.Time) error {
	return b.client.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixMilli()), Member: data}).Err()
}

func (b *redisBackend) Due(ctx context.Context, key string, now time.Time) ([]string, error) {
	return b.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
}

func (b *redisBackend) Promote(ctx context.Context, from, to, member string) error {
	pipe := b.client.TxPipeline()
	pipe.ZRem(ctx, from, member)
	pipe.LPush(ctx, to, member)
	_, err := pipe.Exec(ctx)
	return err
}

func (b *redisBackend) SetStatus(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return b.client.Set(ctx, key, data, ttl).Err()
}

func (b *redisBackend) GetStatus(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errEmpty
	}
	return data, err
}
