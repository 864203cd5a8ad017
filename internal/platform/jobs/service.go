package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var errPanicked = errors.New("job panicked")

type job struct {
	Type string
	Run  func(context.Context) error
}

// Queue is a bounded in-process worker queue for side effects that must not
// block request handling.
type Queue struct {
	logger    *zap.Logger
	queue     chan job
	wg        sync.WaitGroup
	completed atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

func New(logger *zap.Logger, size int) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 0 {
		size = 128
	}
	return &Queue{logger: logger.Named("jobs"), queue: make(chan job, size)}
}

// Start launches workers that drain the queue until ctx is done.
func (q *Queue) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Wait blocks until all workers exit.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) Enqueue(jobType string, run func(context.Context) error) bool {
	select {
	case q.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		q.dropped.Add(1)
		q.logger.Warn("job queue full", zap.String("jobType", jobType))
		return false
	}
}

func (q *Queue) RunNow(ctx context.Context, jobType string, run func(context.Context) error) error {
	return q.runJob(ctx, job{Type: jobType, Run: run})
}

func (q *Queue) Stats() map[string]any {
	return map[string]any{
		"jobsCompleted": q.completed.Load(),
		"jobsFailed":    q.failed.Load(),
		"jobsDropped":   q.dropped.Load(),
		"jobsPending":   len(q.queue),
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			q.drain()
			return
		case j := <-q.queue:
			if err := q.runJob(ctx, j); err != nil {
				q.logger.Warn("job run failed", zap.String("jobType", j.Type), zap.Error(err))
			}
		}
	}
}

// drain flushes what is already queued with a short deadline on shutdown.
func (q *Queue) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case j := <-q.queue:
			if err := q.runJob(ctx, j); err != nil {
				q.logger.Warn("job run failed during drain", zap.String("jobType", j.Type), zap.Error(err))
			}
		default:
			return
		}
	}
}

func (q *Queue) runJob(ctx context.Context, j job) (err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			q.logger.Error("job panicked", zap.String("jobType", j.Type), zap.Any("panic", rec))
			q.failed.Add(1)
			err = errPanicked
			return
		}
		if err != nil {
			q.failed.Add(1)
			return
		}
		q.completed.Add(1)
		q.logger.Debug("job completed", zap.String("jobType", j.Type), zap.Duration("duration", time.Since(start)))
	}()
	return j.Run(ctx)
}
