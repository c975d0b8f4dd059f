package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrQueueClosed is returned when enqueueing on a queue that is not running.
var ErrQueueClosed = errors.New("queue is not running")

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
	// OnExhausted receives jobs that failed on every attempt.
	OnExhausted func(Job, error)
}

// Queue is an in-memory job dispatcher backed by a fixed pool of goroutines.
// Jobs still buffered when Stop is called are processed before workers exit.
type Queue struct {
	name    string
	handler Handler

	workers     int
	maxRetries  int
	retryDelay  time.Duration
	logger      *zap.Logger
	onExhausted func(Job, error)

	jobs      chan Job
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	retries   sync.WaitGroup
	mu        sync.RWMutex
	started   bool
	stopped   bool
	processed atomic.Int64
	failed    atomic.Int64
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:        name,
		handler:     handler,
		workers:     cfg.Workers,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		logger:      cfg.Logger.With(zap.String("queue", name)),
		onExhausted: cfg.OnExhausted,
		jobs:        make(chan Job, cfg.BufferSize),
	}
}

// Start begins worker consumption. Calling it again is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.stopped {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.workers), zap.Int("buffer", cap(q.jobs)))
}

// Stop refuses new jobs, drains the buffer and waits for workers to exit.
// Pending retries are abandoned.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.cancel()
	q.mu.Unlock()

	q.retries.Wait()
	close(q.jobs)
	q.wg.Wait()
	q.logger.Info("queue stopped",
		zap.Int64("processed", q.processed.Load()),
		zap.Int64("failed", q.failed.Load()),
	)
}

// Enqueue pushes a job onto the queue without blocking on a full buffer.
func (q *Queue) Enqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.started || q.stopped {
		return fmt.Errorf("%s: %w", q.name, ErrQueueClosed)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue %s is full (%d jobs)", q.name, cap(q.jobs))
	}
}

// Depth reports how many jobs wait in the buffer.
func (q *Queue) Depth() int {
	return len(q.jobs)
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	// Handlers keep running against an uncancelled context while the buffer drains.
	runCtx := context.WithoutCancel(q.ctx)
	for job := range q.jobs {
		if err := q.handler(runCtx, job); err != nil {
			q.handleFailure(workerID, job, err)
			continue
		}
		q.processed.Add(1)
	}
}

func (q *Queue) handleFailure(workerID int, job Job, err error) {
	job.Attempt++
	fields := []zap.Field{
		zap.Int("worker", workerID),
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempt),
		zap.Error(err),
	}
	if job.Attempt > q.maxRetries {
		q.failed.Add(1)
		q.logger.Error("job exceeded retries", fields...)
		if q.onExhausted != nil {
			q.onExhausted(job, err)
		}
		return
	}
	q.logger.Warn("job failed, retrying", fields...)

	q.mu.RLock()
	if q.stopped {
		q.mu.RUnlock()
		q.failed.Add(1)
		return
	}
	q.retries.Add(1)
	q.mu.RUnlock()

	go func(j Job) {
		defer q.retries.Done()
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.failed.Add(1)
			return
		case <-timer.C:
			if err := q.Enqueue(j); err != nil {
				q.failed.Add(1)
				q.logger.Error("failed to requeue job", zap.String("job_id", j.ID), zap.Error(err))
			}
		}
	}(job)
}
