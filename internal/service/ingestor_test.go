package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dandantas/disloc/internal/config"
	"github.com/dandantas/disloc/internal/model"
	"github.com/dandantas/disloc/internal/worker"
)

type stubFeed struct {
	summaries []model.EventSummary
	events    map[string]*model.Event
	err       error
}

func (f *stubFeed) FetchSummary(ctx context.Context, url string, minMag float64) ([]model.EventSummary, error) {
	return f.summaries, f.err
}

func (f *stubFeed) FetchEvent(ctx context.Context, url string) (*model.Event, error) {
	ev, ok := f.events[url]
	if !ok {
		return nil, errors.New("unexpected status 404")
	}
	copied := *ev
	return &copied, nil
}

type memoryEvents struct {
	mu     sync.Mutex
	events map[string]*model.Event
}

func newMemoryEvents() *memoryEvents {
	return &memoryEvents{events: map[string]*model.Event{}}
}

func (m *memoryEvents) Upsert(ctx context.Context, ev *model.Event) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *ev
	prev, exists := m.events[ev.EventID]
	m.events[ev.EventID] = &stored
	if !exists {
		return nil, nil
	}
	stored.JobID = prev.JobID
	copied := *prev
	return &copied, nil
}

func (m *memoryEvents) SetJobID(ctx context.Context, eventID, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[eventID].JobID = jobID
	return nil
}

type memorySubmitter struct {
	mu       sync.Mutex
	requests []model.Request
	err      error
}

func (s *memorySubmitter) Submit(ctx context.Context, req model.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.requests = append(s.requests, req)
	return "job-" + req.EventID, nil
}

func thrustEvent(id string) *model.Event {
	return &model.Event{
		EventID:   id,
		Magnitude: 6.4,
		Latitude:  34.3,
		Longitude: 69.05,
		DepthKm:   12.5,
		MomentTensor: &model.MomentTensor{
			NodalPlane1:   model.NodalPlane{Strike: 30, Dip: 40, Rake: 90},
			NodalPlane2:   model.NodalPlane{Strike: 210, Dip: 50, Rake: 90},
			MagnitudeType: "mww",
			Weight:        10,
		},
	}
}

func ingestConfig() *config.Config {
	return &config.Config{
		FeedSummaryURL:   "https://feed.example/summary.geojson",
		FeedMinMagnitude: 5,
		FeedConcurrency:  2,
		MomentTensorJobs: true,
		BatchTimeout:     30 * time.Second,
	}
}

func TestIngestSubmitsJobsForNewEvents(t *testing.T) {
	plain := thrustEvent("us2")
	plain.MomentTensor = nil

	src := &stubFeed{
		summaries: []model.EventSummary{
			{EventID: "us1", DetailURL: "d/us1"},
			{EventID: "us2", DetailURL: "d/us2"},
			{EventID: "us3", DetailURL: "d/missing"},
			{EventID: "us4"},
		},
		events: map[string]*model.Event{
			"d/us1": thrustEvent("us1"),
			"d/us2": plain,
		},
	}
	events := newMemoryEvents()
	jobs := &memorySubmitter{}
	ingestor := NewFeedIngestor(ingestConfig(), src, events, jobs)

	stats, err := ingestor.Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, IngestStats{Fetched: 4, New: 2, Submitted: 1, Failed: 2}, stats)

	require.Len(t, jobs.requests, 1)
	req := jobs.requests[0]
	assert.Equal(t, "us1", req.EventID)
	assert.Equal(t, "us1", req.Output)
	assert.True(t, req.API)
	assert.Equal(t, 30*time.Second, req.Deadline)
	assert.NotEmpty(t, req.CorrelationID)
	assert.Contains(t, req.Input, "34.3 69.05 1\n")

	assert.Equal(t, "job-us1", events.events["us1"].JobID)
	assert.Equal(t, "d/us1", events.events["us1"].DetailURL)
	assert.False(t, events.events["us1"].IngestedAt.IsZero())

	// A second pass sees only known events
	stats, err = ingestor.Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.New)
	assert.Len(t, jobs.requests, 1)
}

func TestIngestJobsDisabled(t *testing.T) {
	cfg := ingestConfig()
	cfg.MomentTensorJobs = false

	src := &stubFeed{
		summaries: []model.EventSummary{{EventID: "us1", DetailURL: "d/us1"}},
		events:    map[string]*model.Event{"d/us1": thrustEvent("us1")},
	}
	jobs := &memorySubmitter{}

	stats, err := NewFeedIngestor(cfg, src, newMemoryEvents(), jobs).Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.New)
	assert.Empty(t, jobs.requests)
}

func TestIngestSummaryFailure(t *testing.T) {
	src := &stubFeed{err: errors.New("unexpected status 503")}

	_, err := NewFeedIngestor(ingestConfig(), src, newMemoryEvents(), nil).Ingest(context.Background())
	assert.ErrorContains(t, err, "503")
}

func TestIngestRetriesSubmissionAfterFailure(t *testing.T) {
	src := &stubFeed{
		summaries: []model.EventSummary{{EventID: "us1", DetailURL: "d/us1"}},
		events:    map[string]*model.Event{"d/us1": thrustEvent("us1")},
	}
	events := newMemoryEvents()
	jobs := &memorySubmitter{err: worker.ErrPoolStopped}
	ingestor := NewFeedIngestor(ingestConfig(), src, events, jobs)

	stats, err := ingestor.Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, IngestStats{Fetched: 1, Failed: 1}, stats)
	assert.Empty(t, events.events["us1"].JobID)

	jobs.err = nil
	stats, err = ingestor.Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, IngestStats{Fetched: 1, Submitted: 1}, stats)
	require.Len(t, jobs.requests, 1)
	assert.Equal(t, "job-us1", events.events["us1"].JobID)

	// Linked events are left alone
	stats, err = ingestor.Ingest(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Submitted)
	assert.Len(t, jobs.requests, 1)
}

func TestIngestSubmitsLateMomentTensor(t *testing.T) {
	plain := thrustEvent("us1")
	plain.MomentTensor = nil
	src := &stubFeed{
		summaries: []model.EventSummary{{EventID: "us1", DetailURL: "d/us1"}},
		events:    map[string]*model.Event{"d/us1": plain},
	}
	events := newMemoryEvents()
	jobs := &memorySubmitter{}
	ingestor := NewFeedIngestor(ingestConfig(), src, events, jobs)

	stats, err := ingestor.Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.New)
	assert.Empty(t, jobs.requests)

	src.events["d/us1"] = thrustEvent("us1")
	stats, err = ingestor.Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, IngestStats{Fetched: 1, Submitted: 1}, stats)
	require.Len(t, jobs.requests, 1)
	assert.Equal(t, "us1", jobs.requests[0].EventID)
}

type failingExecutor struct {
	err error
}

func (e failingExecutor) Execute(ctx context.Context, req model.Request) (*model.ManifestRecord, error) {
	return nil, e.err
}

func TestAsyncRunnerExecutesQueuedJobs(t *testing.T) {
	o, _ := newTestOrchestrator(t, successScript)
	recorder := &memoryRecorder{}
	o.SetRecorder(recorder)

	pool := worker.NewWorkerPool(1, 4)
	async := NewAsyncRunner(o, pool)
	pool.Start()

	ctx, cancel := context.WithCancel(context.Background())
	jobID, err := async.Submit(ctx, model.Request{Input: twoFaultInput, API: true, EventID: "us1"})
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)
	// Queued jobs are detached from the submitter
	cancel()

	// Stop drains the queue
	pool.Stop()

	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	assert.Equal(t, model.StatusSuccess, record.Manifest.Status)
	assert.NotEmpty(t, record.CorrelationID)
	assert.Equal(t, "us1", record.EventID)

	_, err = async.Submit(context.Background(), model.Request{Input: twoFaultInput})
	assert.ErrorIs(t, err, worker.ErrPoolStopped)
}

func TestAsyncRunnerReportsRejectedJobs(t *testing.T) {
	pool := worker.NewWorkerPool(1, 1)
	async := NewAsyncRunner(failingExecutor{err: model.ErrInputMissing}, pool)

	err := async.execute(context.Background(), worker.Job{ID: "j1", Request: model.Request{Output: "nothing"}})
	assert.ErrorIs(t, err, model.ErrInputMissing)
	pool.Stop()
}
