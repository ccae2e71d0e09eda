package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dandantas/disloc/internal/model"
	"github.com/dandantas/disloc/internal/worker"
	"github.com/dandantas/disloc/pkg/logctx"
)

// JobExecutor runs one request to completion
type JobExecutor interface {
	Execute(ctx context.Context, req model.Request) (*model.ManifestRecord, error)
}

// AsyncRunner queues disloc jobs on the worker pool. Outcomes are archived
// by the executor's recorder and logged here.
type AsyncRunner struct {
	executor JobExecutor
	pool     *worker.WorkerPool
}

// NewAsyncRunner creates an async runner and installs it as the pool's executor
func NewAsyncRunner(executor JobExecutor, pool *worker.WorkerPool) *AsyncRunner {
	ar := &AsyncRunner{
		executor: executor,
		pool:     pool,
	}
	pool.SetExecutor(ar.execute)
	return ar
}

// Submit queues req for asynchronous execution and returns its job ID
func (ar *AsyncRunner) Submit(ctx context.Context, req model.Request) (string, error) {
	jobID := uuid.New().String()
	if req.CorrelationID == "" {
		req.CorrelationID = logctx.CorrelationID(ctx)
	}
	if req.CorrelationID == "" {
		req.CorrelationID = uuid.New().String()
	}

	// Jobs outlive the submitting request
	err := ar.pool.Submit(worker.Job{
		ID:            jobID,
		Request:       req,
		CorrelationID: req.CorrelationID,
		Context:       context.WithoutCancel(ctx),
	})
	if err != nil {
		return "", err
	}

	return jobID, nil
}

// execute runs a queued job and logs its outcome
func (ar *AsyncRunner) execute(ctx context.Context, job worker.Job) error {
	logger := slog.With(
		"job_id", job.ID,
		"correlation_id", job.CorrelationID,
		"event_id", job.Request.EventID,
	)
	logger.Info("Starting async disloc job")

	record, err := ar.executor.Execute(ctx, job.Request)
	if err != nil {
		return err
	}

	if !record.Manifest.Succeeded() {
		logger.Warn("Async disloc job failed",
			"workspace", record.Workspace,
			"error", record.Manifest.Error,
		)
		return nil
	}

	logger.Info("Async disloc job completed",
		"workspace", record.Workspace,
		"outputs", len(record.Manifest.Output),
	)
	return nil
}
