package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// ErrPoolStopped is returned when submitting to a stopped pool
var ErrPoolStopped = errors.New("worker pool stopped")

// ExecutorFunc is a function that executes a disloc job
type ExecutorFunc func(ctx context.Context, job Job) error

// WorkerPool manages a pool of worker goroutines for concurrent job execution
type WorkerPool struct {
	workers    int
	jobs       chan Job
	executorFn ExecutorFunc
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc

	mu      sync.RWMutex
	stopped bool
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workers int, jobQueueSize int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workers: workers,
		jobs:    make(chan Job, jobQueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetExecutor sets the executor function that will process jobs
func (wp *WorkerPool) SetExecutor(fn ExecutorFunc) {
	wp.executorFn = fn
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	slog.Info("Starting worker pool", "workers", wp.workers)

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop stops the worker pool gracefully. Queued jobs are drained first.
func (wp *WorkerPool) Stop() {
	slog.Info("Stopping worker pool")

	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobs)
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.cancel()

	slog.Info("Worker pool stopped")
}

// Submit submits a job to the worker pool
func (wp *WorkerPool) Submit(job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrPoolStopped
	}

	if job.Context == nil {
		job.Context = context.Background()
	}

	select {
	case wp.jobs <- job:
		slog.Debug("Job submitted to worker pool",
			"job_id", job.ID,
			"correlation_id", job.CorrelationID,
		)
		return nil
	case <-job.Context.Done():
		return job.Context.Err()
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// worker is the worker goroutine that processes jobs
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	slog.Debug("Worker started", "worker_id", id)

	for job := range wp.jobs {
		slog.Debug("Worker processing job",
			"worker_id", id,
			"job_id", job.ID,
			"correlation_id", job.CorrelationID,
		)

		if err := wp.execute(job); err != nil {
			slog.Error("Job failed",
				"worker_id", id,
				"job_id", job.ID,
				"correlation_id", job.CorrelationID,
				"error", err,
			)
		}
	}

	slog.Debug("Worker stopped", "worker_id", id)
}

// execute runs one job, turning a panic into an error so the worker survives
func (wp *WorkerPool) execute(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic recovered",
				"error", r,
				"stack_trace", string(debug.Stack()),
				"job_id", job.ID,
				"correlation_id", job.CorrelationID,
			)
			err = fmt.Errorf("job %s panicked: %v", job.ID, r)
		}
	}()

	if wp.executorFn == nil {
		return errors.New("worker pool has no executor")
	}
	return wp.executorFn(job.Context, job)
}

// GetJobQueueLength returns the current number of jobs in the queue
func (wp *WorkerPool) GetJobQueueLength() int {
	return len(wp.jobs)
}
