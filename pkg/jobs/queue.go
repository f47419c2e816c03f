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

// ErrQueueClosed is returned by Enqueue once the queue is not accepting work.
var ErrQueueClosed = errors.New("queue is not accepting jobs")

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

// FailureHook is called exactly once for a job that will not run again:
// retries exhausted, or abandoned because the queue shut down first.
type FailureHook func(Job, error)

// QueueConfig configures worker pool behaviour. MaxRetries of zero means a
// failed job is reported and dropped without another attempt.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	OnFailure  FailureHook
	Logger     *zap.Logger
}

type queueState int

const (
	stateIdle queueState = iota
	stateRunning
	stateClosed
)

// Queue is an in-memory worker pool. Every accepted job ends either in a
// successful handler call or in one FailureHook call; none is silently lost on
// shutdown.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger
	jobs    chan Job

	mu     sync.Mutex
	state  queueState
	ctx    context.Context
	cancel context.CancelFunc

	workers sync.WaitGroup
	pending sync.WaitGroup // accepted and not yet finished, retries included
	depth   atomic.Int64
}

// NewQueue builds a queue; call Start before Enqueue.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
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
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start launches the workers. ctx bounds the handlers; cancelling it has the
// effect of an immediate Shutdown. Calls after the first are ignored.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != stateIdle {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.workers.Add(1)
		go q.work()
	}
	q.state = stateRunning
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Enqueue accepts job, blocking while the buffer is full.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	if q.state != stateRunning {
		q.mu.Unlock()
		return fmt.Errorf("%s: %w", q.name, ErrQueueClosed)
	}
	ctx := q.ctx
	// Added under the lock so Shutdown never waits while a new Add races it.
	q.pending.Add(1)
	q.mu.Unlock()

	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case q.jobs <- job:
		q.depth.Add(1)
		return nil
	case <-ctx.Done():
		q.pending.Done()
		return fmt.Errorf("%s: %w", q.name, ErrQueueClosed)
	}
}

// Pending reports jobs waiting in the buffer.
func (q *Queue) Pending() int {
	if n := q.depth.Load(); n > 0 {
		return int(n)
	}
	return 0
}

// Shutdown stops accepting jobs and waits for accepted ones, retries
// included, to finish. When ctx expires first the workers are cancelled and
// whatever has not run is handed to the FailureHook; ctx's error is returned.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.state != stateRunning {
		q.mu.Unlock()
		return nil
	}
	q.state = stateClosed
	q.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		q.pending.Wait()
		close(finished)
	}()

	var err error
	select {
	case <-finished:
	case <-ctx.Done():
		err = ctx.Err()
	}

	q.cancel()
	q.workers.Wait()
	// Retry timers may still push jobs after the workers are gone.
	for {
		select {
		case <-finished:
			q.logger.Info("queue stopped")
			return err
		case job := <-q.jobs:
			q.depth.Add(-1)
			q.fail(job, fmt.Errorf("abandoned on shutdown: %w", context.Canceled))
		}
	}
}

func (q *Queue) work() {
	defer q.workers.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.depth.Add(-1)
			q.run(job)
		}
	}
}

func (q *Queue) run(job Job) {
	err := q.handler(q.ctx, job)
	if err == nil {
		q.pending.Done()
		return
	}

	job.Attempt++
	if job.Attempt > q.cfg.MaxRetries {
		q.fail(job, err)
		return
	}
	q.logger.Warn("job failed, retrying",
		zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err))
	go q.retry(job)
}

// retry re-submits job after the delay. The job keeps its pending slot.
func (q *Queue) retry(job Job) {
	timer := time.NewTimer(q.cfg.RetryDelay)
	defer timer.Stop()
	select {
	case <-q.ctx.Done():
		q.fail(job, fmt.Errorf("retry abandoned: %w", q.ctx.Err()))
		return
	case <-timer.C:
	}
	select {
	case q.jobs <- job:
		q.depth.Add(1)
	case <-q.ctx.Done():
		q.fail(job, fmt.Errorf("retry abandoned: %w", q.ctx.Err()))
	}
}

func (q *Queue) fail(job Job, err error) {
	defer q.pending.Done()
	q.logger.Error("job failed",
		zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempts", job.Attempt), zap.Error(err))
	if q.cfg.OnFailure != nil {
		q.cfg.OnFailure(job, err)
	}
}
