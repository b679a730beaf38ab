package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/mycv/internal/tasks"
)

type fakeEnqueuer struct {
	tasks []backlite.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, task backlite.Task) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.tasks = append(f.tasks, task)
	return "task-1", nil
}

type fakeCleaner struct {
	retention time.Duration
	calls     int
}

func (f *fakeCleaner) DeleteOldEvents(_ context.Context, retention time.Duration) (int64, error) {
	f.calls++
	f.retention = retention
	return 0, nil
}

func (f *fakeCleaner) LogMaintenance(string, string, error) {}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 3 * * *"))
	assert.Error(t, ValidateSchedule("every day"))
	assert.Error(t, ValidateSchedule("0 0 3 * * *"), "seconds field is not accepted")
}

func TestAuditCleanupScheduler_StartStop(t *testing.T) {
	s := NewAuditCleanupScheduler("0 3 * * *", 30, &fakeEnqueuer{}, nil)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	next := s.NextRun()
	require.NotNil(t, next)
	assert.Equal(t, 3, next.Hour())

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRun())

	// Stopping twice is a no-op.
	s.Stop()
}

func TestAuditCleanupScheduler_StopsWithContext(t *testing.T) {
	s := NewAuditCleanupScheduler("0 3 * * *", 30, &fakeEnqueuer{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestAuditCleanupScheduler_Disabled(t *testing.T) {
	s := NewAuditCleanupScheduler("", 30, nil, nil)

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestAuditCleanupScheduler_InvalidSchedule(t *testing.T) {
	s := NewAuditCleanupScheduler("not cron", 30, nil, nil)

	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestAuditCleanupScheduler_RunNowEnqueues(t *testing.T) {
	enq := &fakeEnqueuer{}
	s := NewAuditCleanupScheduler("0 3 * * *", 12, enq, nil)

	require.NoError(t, s.RunNow(context.Background()))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, tasks.CleanupAuditEventsTask{RetentionDays: 12}, enq.tasks[0])
}

func TestAuditCleanupScheduler_RunNowEnqueueError(t *testing.T) {
	s := NewAuditCleanupScheduler("0 3 * * *", 12, &fakeEnqueuer{err: errors.New("queue closed")}, nil)

	assert.ErrorContains(t, s.RunNow(context.Background()), "queue closed")
}

func TestAuditCleanupScheduler_RunNowInline(t *testing.T) {
	cleaner := &fakeCleaner{}
	s := NewAuditCleanupScheduler("0 3 * * *", 2, nil, cleaner)

	require.NoError(t, s.RunNow(context.Background()))
	assert.Equal(t, 1, cleaner.calls)
	assert.Equal(t, 48*time.Hour, cleaner.retention)
}
