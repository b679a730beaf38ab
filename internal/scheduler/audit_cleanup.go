// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/mycv/internal/tasks"
)

// Enqueuer hands tasks to the background queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}

// AuditCleanupScheduler periodically removes old audit events. With an
// enqueuer the cleanup runs as a queued task with retries; without one it
// runs inline on the cron goroutine.
type AuditCleanupScheduler struct {
	enqueuer      Enqueuer
	cleaner       tasks.AuditEventCleaner
	schedule      string
	retentionDays int

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewAuditCleanupScheduler creates a scheduler. enqueuer may be nil.
func NewAuditCleanupScheduler(schedule string, retentionDays int, enqueuer Enqueuer, cleaner tasks.AuditEventCleaner) *AuditCleanupScheduler {
	return &AuditCleanupScheduler{
		enqueuer:      enqueuer,
		cleaner:       cleaner,
		schedule:      schedule,
		retentionDays: retentionDays,
		cron:          cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := cron.ParseStandard(schedule)
	return err
}

// Start registers the job and starts the cron loop. An empty schedule
// disables the scheduler.
func (s *AuditCleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.schedule == "" {
		log.Info().Msg("Audit cleanup scheduler: disabled")
		return nil
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.RunNow(context.Background()); err != nil {
			log.Error().Err(err).Msg("Audit cleanup scheduler: run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule audit cleanup: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Info().Str("schedule", s.schedule).Time("next_run", s.cron.Entry(entryID).Next).
		Msg("Audit cleanup scheduler: started")

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running job and stops the cron loop.
func (s *AuditCleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.cron.Remove(s.entryID)
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	s.isRunning = false

	log.Info().Msg("Audit cleanup scheduler: stopped")
}

// RunNow triggers a cleanup immediately.
func (s *AuditCleanupScheduler) RunNow(ctx context.Context) error {
	task := tasks.CleanupAuditEventsTask{RetentionDays: s.retentionDays}

	if s.enqueuer != nil {
		id, err := s.enqueuer.Enqueue(ctx, task)
		if err != nil {
			return err
		}
		log.Info().Str("task_id", id).Msg("Audit cleanup enqueued")
		return nil
	}

	return tasks.CleanupAuditEventsProcessor(s.cleaner)(ctx, task)
}

func (s *AuditCleanupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the next cleanup will occur, or nil when stopped.
func (s *AuditCleanupScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}
