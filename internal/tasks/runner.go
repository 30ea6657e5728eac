// Package tasks runs session flows in the background with bounded concurrency.
package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"trialdesk/internal"

	"golang.org/x/sync/semaphore"
)

// ErrStopped is returned by Go once the runner is shutting down
var ErrStopped = errors.New("task runner stopped")

// Job is one background unit of work
type Job struct {
	ID   string
	Name string
	Run  func(ctx context.Context)
}

// Runner executes jobs on their own goroutines, at most maxConcurrent at a time
type Runner struct {
	sem    *semaphore.Weighted
	logger *internal.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	active  map[string]time.Time
}

// NewRunner creates a runner allowing maxConcurrent jobs in flight
func NewRunner(maxConcurrent int, logger *internal.Logger) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		logger: logger.With("Tasks"),
		ctx:    ctx,
		cancel: cancel,
		active: make(map[string]time.Time),
	}
}

// Go schedules job. Jobs waiting for a slot are dropped when the runner stops.
func (r *Runner) Go(job Job) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return ErrStopped
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go r.process(job)
	return nil
}

func (r *Runner) process(job Job) {
	defer r.wg.Done()

	if err := r.sem.Acquire(r.ctx, 1); err != nil {
		r.logger.Warn("Dropping job %s (%s): %v", job.ID, job.Name, err)
		return
	}
	defer r.sem.Release(1)

	started := time.Now()
	r.mu.Lock()
	r.active[job.ID] = started
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.active, job.ID)
		r.mu.Unlock()
		if rec := recover(); rec != nil {
			r.logger.Error("Job %s (%s) panicked: %v", job.ID, job.Name, rec)
			return
		}
		r.logger.Debug("Job %s (%s) finished in %v", job.ID, job.Name, time.Since(started))
	}()

	r.logger.Debug("Job %s (%s) started", job.ID, job.Name)
	job.Run(r.ctx)
}

// Active returns the number of jobs currently holding a slot
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Stop cancels running jobs and waits for them to return or for ctx to end
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("All background jobs stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("Timeout waiting for background jobs to stop")
		return ctx.Err()
	}
}
