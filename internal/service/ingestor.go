package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dandantas/disloc/internal/config"
	"github.com/dandantas/disloc/internal/disloc"
	"github.com/dandantas/disloc/internal/model"
	"github.com/dandantas/disloc/pkg/logctx"
)

// FeedSource reads the remote earthquake feed
type FeedSource interface {
	FetchSummary(ctx context.Context, url string, minMag float64) ([]model.EventSummary, error)
	FetchEvent(ctx context.Context, url string) (*model.Event, error)
}

// EventStore persists ingested events. Upsert returns the stored copy as it
// was before the call, nil for a new event.
type EventStore interface {
	Upsert(ctx context.Context, event *model.Event) (*model.Event, error)
	SetJobID(ctx context.Context, eventID, jobID string) error
}

// JobSubmitter queues disloc requests
type JobSubmitter interface {
	Submit(ctx context.Context, req model.Request) (string, error)
}

// IngestStats summarizes one ingestion pass
type IngestStats struct {
	Fetched   int `json:"fetched"`
	New       int `json:"new"`
	Submitted int `json:"submitted"`
	Failed    int `json:"failed"`
}

// FeedIngestor pulls significant events from the feed, stores them and
// queues a moment-tensor job for every event that has one and no linked job
type FeedIngestor struct {
	cfg    *config.Config
	feed   FeedSource
	events EventStore
	jobs   JobSubmitter
}

// NewFeedIngestor creates a new feed ingestor. jobs may be nil to only
// store events.
func NewFeedIngestor(cfg *config.Config, feed FeedSource, events EventStore, jobs JobSubmitter) *FeedIngestor {
	return &FeedIngestor{
		cfg:    cfg,
		feed:   feed,
		events: events,
		jobs:   jobs,
	}
}

// Ingest runs one pass over the summary feed, fetching event details with at
// most FeedConcurrency requests in flight. Per-event failures are logged and
// counted; only a summary fetch failure or cancellation is returned.
func (fi *FeedIngestor) Ingest(ctx context.Context) (IngestStats, error) {
	ctx = logctx.WithCorrelationID(ctx, uuid.New().String())
	logger := logctx.Logger(ctx)
	var stats IngestStats

	summaries, err := fi.feed.FetchSummary(ctx, fi.cfg.FeedSummaryURL, fi.cfg.FeedMinMagnitude)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch summary feed: %w", err)
	}

	logger.Info("Fetched summary feed",
		"url", fi.cfg.FeedSummaryURL,
		"events", len(summaries),
		"min_magnitude", fi.cfg.FeedMinMagnitude,
	)

	type outcome struct {
		created, submitted bool
		err                error
	}
	outcomes := make([]outcome, len(summaries))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(fi.concurrency())
	for i, summary := range summaries {
		i, summary := i, summary
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				outcomes[i].err = err
				return nil
			}
			created, submitted, err := fi.ingestEvent(gCtx, summary)
			outcomes[i] = outcome{created: created, submitted: submitted, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	for i, o := range outcomes {
		stats.Fetched++
		if o.err != nil {
			stats.Failed++
			logger.Error("Failed to ingest event",
				"event_id", summaries[i].EventID,
				"error", o.err.Error(),
			)
			continue
		}
		if o.created {
			stats.New++
		}
		if o.submitted {
			stats.Submitted++
		}
	}

	logger.Info("Feed ingestion completed",
		"fetched", stats.Fetched,
		"new", stats.New,
		"submitted", stats.Submitted,
		"failed", stats.Failed,
	)

	return stats, nil
}

func (fi *FeedIngestor) concurrency() int {
	if fi.cfg.FeedConcurrency > 0 {
		return fi.cfg.FeedConcurrency
	}
	return 1
}

func (fi *FeedIngestor) ingestEvent(ctx context.Context, summary model.EventSummary) (created, submitted bool, err error) {
	if summary.DetailURL == "" {
		return false, false, fmt.Errorf("%w: detail url", model.ErrFeedFieldMissing)
	}

	ev, err := fi.feed.FetchEvent(ctx, summary.DetailURL)
	if err != nil {
		return false, false, err
	}
	if ev.EventID == "" {
		ev.EventID = summary.EventID
	}
	if ev.DetailURL == "" {
		ev.DetailURL = summary.DetailURL
	}
	ev.IngestedAt = time.Now().UTC()

	previous, err := fi.events.Upsert(ctx, ev)
	if err != nil {
		return false, false, fmt.Errorf("failed to store event: %w", err)
	}
	created = previous == nil

	// Events whose submission failed, or whose moment tensor arrived late,
	// are picked up again on the next pass
	if previous != nil && previous.JobID != "" {
		return created, false, nil
	}
	if ev.MomentTensor == nil || !fi.cfg.MomentTensorJobs || fi.jobs == nil {
		return created, false, nil
	}

	req, err := fi.momentTensorRequest(ctx, ev)
	if err != nil {
		return created, false, err
	}

	jobID, err := fi.jobs.Submit(ctx, req)
	if err != nil {
		return created, false, fmt.Errorf("failed to submit job: %w", err)
	}

	if err := fi.events.SetJobID(ctx, ev.EventID, jobID); err != nil {
		slog.Warn("Failed to link job to event",
			"event_id", ev.EventID,
			"job_id", jobID,
			"error", err.Error(),
		)
	}

	return created, true, nil
}

// momentTensorRequest builds a disloc request modelling the event's
// preferred moment tensor
func (fi *FeedIngestor) momentTensorRequest(ctx context.Context, ev *model.Event) (model.Request, error) {
	fm, err := disloc.FromMomentTensor(*ev, *ev.MomentTensor)
	if err != nil {
		return model.Request{}, err
	}
	input, err := disloc.RenderInput(fm)
	if err != nil {
		return model.Request{}, err
	}

	logctx.Logger(ctx).Info("Derived fault model from moment tensor",
		"event_id", ev.EventID,
		"magnitude", ev.Magnitude,
		"model", disloc.Describe(fm),
	)

	return model.Request{
		Input:         input,
		Output:        ev.EventID,
		API:           true,
		EventID:       ev.EventID,
		CorrelationID: logctx.CorrelationID(ctx),
		Deadline:      fi.cfg.BatchTimeout,
	}, nil
}
