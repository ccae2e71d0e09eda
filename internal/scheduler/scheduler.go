package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/dandantas/disloc/internal/config"
	"github.com/dandantas/disloc/internal/service"
)

// Locker is the distributed lock used to elect one ingesting pod
type Locker interface {
	AcquireLock(ctx context.Context, key, podID string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, podID string) error
	ExtendLock(ctx context.Context, key, podID string, ttl time.Duration) error
	ReleaseAllLocks(ctx context.Context, podID string) error
	CleanExpiredLocks(ctx context.Context) (int64, error)
}

// Ingester runs one feed ingestion pass
type Ingester interface {
	Ingest(ctx context.Context) (service.IngestStats, error)
}

// Parser accepts standard five-field expressions and descriptors such as @hourly
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler polls the earthquake feed on a cron schedule. Each pass runs
// under a lock keyed by the feed URL so only one pod ingests at a time.
type Scheduler struct {
	cfg      *config.Config
	ingester Ingester
	locks    Locker
	podID    string
	schedule cron.Schedule
	cron     *cron.Cron

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, ingester Ingester, locks Locker) (*Scheduler, error) {
	schedule, err := Parser.Parse(cfg.SchedulerSchedule)
	if err != nil {
		return nil, fmt.Errorf("invalid feed schedule %q: %w", cfg.SchedulerSchedule, err)
	}

	// Get pod identifier (hostname in Kubernetes)
	podID, err := os.Hostname()
	if err != nil {
		podID = uuid.New().String() // Fallback to UUID
		slog.Warn("Failed to get hostname, using UUID as pod ID", "pod_id", podID)
	}

	return &Scheduler{
		cfg:      cfg,
		ingester: ingester,
		locks:    locks,
		podID:    podID,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(Parser), cron.WithLogger(cronLogger{})),
	}, nil
}

// PodID identifies this process in lock documents
func (s *Scheduler) PodID() string {
	return s.podID
}

// NextRun returns the next scheduled ingestion after t
func (s *Scheduler) NextRun(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Start runs one ingestion immediately, then follows the schedule
func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.SchedulerEnabled {
		slog.Info("Scheduler is disabled by configuration")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	logger := cronLogger{}
	job := cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).
		Then(cron.FuncJob(func() { s.tick(ctx) }))
	s.cron.Schedule(s.schedule, job)

	slog.Info("Starting scheduler",
		"pod_id", s.podID,
		"schedule", s.cfg.SchedulerSchedule,
		"lock_ttl", s.cfg.SchedulerLockTTL,
		"next_run", s.NextRun(time.Now()).Format(time.RFC3339),
	)

	s.cron.Start()

	// Run immediately on start; the shared chain skips a tick that would overlap
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		job.Run()
	}()
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	slog.Info("Stopping scheduler", "pod_id", s.podID)

	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("All scheduled ingestions completed")
	case <-ctx.Done():
		slog.Warn("Timeout waiting for scheduled ingestion to complete")
	}
	s.cancel()

	// Release all locks owned by this pod
	if err := s.locks.ReleaseAllLocks(context.Background(), s.podID); err != nil {
		slog.Error("Failed to release locks during shutdown", "error", err)
	}

	slog.Info("Scheduler stopped", "pod_id", s.podID)
}

// tick runs one ingestion pass if this pod wins the lock
func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	key := s.cfg.FeedSummaryURL
	slog.Info("Scheduler tick", "pod_id", s.podID, "time", time.Now().UTC().Format(time.RFC3339))

	// Clean expired locks first
	if cleaned, err := s.locks.CleanExpiredLocks(ctx); err != nil {
		slog.Error("Failed to clean expired locks", "error", err)
	} else if cleaned > 0 {
		slog.Info("Cleaned expired locks", "count", cleaned)
	}

	acquired, err := s.locks.AcquireLock(ctx, key, s.podID, s.cfg.SchedulerLockTTL)
	if err != nil {
		slog.Error("Failed to acquire lock", "key", key, "error", err)
		return
	}
	if !acquired {
		slog.Debug("Lock already held by another pod", "key", key)
		return
	}
	defer s.releaseLock(key)
	defer s.keepLock(ctx, key)()

	start := time.Now()
	stats, err := s.ingester.Ingest(ctx)
	if err != nil {
		slog.Error("Scheduled feed ingestion failed",
			"key", key,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return
	}

	slog.Info("Scheduled feed ingestion completed",
		"key", key,
		"duration_ms", time.Since(start).Milliseconds(),
		"new_events", stats.New,
		"jobs_submitted", stats.Submitted,
	)
}

// keepLock extends the feed lock every half TTL until the returned stop
// function is called, so a pass longer than the TTL keeps its lock
func (s *Scheduler) keepLock(ctx context.Context, key string) (stop func()) {
	ttl := s.cfg.SchedulerLockTTL
	if ttl <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(ttl / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.locks.ExtendLock(ctx, key, s.podID, ttl); err != nil {
					slog.Warn("Failed to extend lock",
						"key", key,
						"pod_id", s.podID,
						"error", err,
					)
					continue
				}
				slog.Debug("Extended lock", "key", key, "ttl", ttl)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// releaseLock releases the feed lock; it must survive a cancelled tick context
func (s *Scheduler) releaseLock(key string) {
	if err := s.locks.ReleaseLock(context.Background(), key, s.podID); err != nil {
		slog.Error("Failed to release lock",
			"key", key,
			"pod_id", s.podID,
			"error", err,
		)
	}
}

// cronLogger routes cron's internal logging to slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
