package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kerucko/taskboard/internal/config"
)

var ErrQueueClosed = errors.New("notification queue is closed")

type Job struct {
	UserID string
	TaskID string
	Action string
}

type processor interface {
	Send(ctx context.Context, job Job) error
}

// Queue is an in-process job queue with bounded retries. Jobs that
// exhaust their attempts are dropped and logged; nothing ever
// propagates back to the scheduling caller.
type Queue struct {
	jobs      chan Job
	proc      processor
	attempts  int
	baseDelay time.Duration
	workers   int
	log       zerolog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewQueue(cfg config.QueueConfig, proc processor, log zerolog.Logger) *Queue {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 256
	}
	return &Queue{
		jobs:      make(chan Job, buffer),
		proc:      proc,
		attempts:  attempts,
		baseDelay: baseDelay,
		workers:   workers,
		log:       log.With().Str("component", "notification_queue").Logger(),
	}
}

// Start launches the worker goroutines. They drain until ctx is done.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.run(ctx)
		}()
	}
}

// Stop closes the queue for new jobs and waits for the workers.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// EnqueueTaskNotification satisfies the tasks service Notifier
// contract. It never blocks longer than the channel buffer allows.
func (q *Queue) EnqueueTaskNotification(userID, taskID, action string) error {
	return q.enqueue(Job{UserID: userID, TaskID: taskID, Action: action})
}

func (q *Queue) enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return errors.New("notification queue is full")
	}
}

func (q *Queue) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			q.process(ctx, job)
		}
	}
}

// process retries with exponential backoff: baseDelay after the first
// failure, doubling each attempt.
func (q *Queue) process(ctx context.Context, job Job) {
	delay := q.baseDelay
	var err error
	for attempt := 1; attempt <= q.attempts; attempt++ {
		if err = q.proc.Send(ctx, job); err == nil {
			return
		}
		q.log.Warn().Err(err).
			Str("task_id", job.TaskID).
			Str("user_id", job.UserID).
			Int("attempt", attempt).
			Msg("notification job failed")

		if attempt == q.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
	}
	q.log.Error().Err(err).
		Str("task_id", job.TaskID).
		Str("user_id", job.UserID).
		Msg("notification job dropped after retries")
}
