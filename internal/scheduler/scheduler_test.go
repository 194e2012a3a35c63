package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-orchestrator/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScheduler(now time.Time) *Scheduler {
	s := New(discardLogger())
	s.now = func() time.Time { return now }
	return s
}

func noop(ctx context.Context) error { return nil }

func TestDailyTask_RegisteredAfterHourRunsTomorrow(t *testing.T) {
	now := time.Date(2026, 8, 29, 20, 0, 0, 0, time.UTC)
	s := newTestScheduler(now)

	require.NoError(t, s.AddDailyTask("digest", 17, noop))

	status := s.Status()
	require.NotNil(t, status.NextTaskRun)
	assert.Equal(t, time.Date(2026, 8, 30, 17, 0, 0, 0, time.UTC), *status.NextTaskRun)
}

func TestDailyTask_RegisteredBeforeHourRunsToday(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	s := newTestScheduler(now)

	require.NoError(t, s.AddDailyTask("digest", 17, noop))

	status := s.Status()
	require.NotNil(t, status.NextTaskRun)
	assert.Equal(t, time.Date(2026, 8, 29, 17, 0, 0, 0, time.UTC), *status.NextTaskRun)
}

func TestIntervalTask_FirstRunShortlyAfterRegistration(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	s := newTestScheduler(now)

	require.NoError(t, s.AddIntervalTask("fetch", 30, noop))

	status := s.Status()
	require.NotNil(t, status.NextTaskRun)
	assert.Equal(t, now.Add(10*time.Second), *status.NextTaskRun)
}

func TestIntervalTask_NextRunCountsFromRunStart(t *testing.T) {
	start := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	task, err := newIntervalTask("fetch", noop, 30, func() time.Time { return start })
	require.NoError(t, err)

	require.True(t, task.tryLock())
	task.finish(start, nil)

	status := task.status()
	require.NotNil(t, status.NextRun)
	assert.Equal(t, start.Add(30*time.Minute), *status.NextRun)
	assert.Equal(t, 1, status.RunCount)
}

func TestTask_InvalidConfigRejected(t *testing.T) {
	s := newTestScheduler(time.Now().UTC())

	assert.Error(t, s.AddIntervalTask("bad", 0, noop))
	assert.Error(t, s.AddDailyTask("bad", 24, noop))
	assert.Error(t, s.AddDailyTask("bad", -1, noop))
}

func TestScheduler_DuplicateNameRejected(t *testing.T) {
	s := newTestScheduler(time.Now().UTC())

	require.NoError(t, s.AddIntervalTask("fetch", 30, noop))
	assert.Error(t, s.AddIntervalTask("fetch", 15, noop))
}

func TestRunNow_UnknownTask(t *testing.T) {
	s := newTestScheduler(time.Now().UTC())

	err := s.RunNow("missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestRunNow_RejectsOverlappingRun(t *testing.T) {
	s := newTestScheduler(time.Now().UTC())

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, s.AddIntervalTask("slow", 30, func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))

	require.NoError(t, s.RunNow("slow"))
	<-started

	err := s.RunNow("slow")
	assert.ErrorIs(t, err, domain.ErrTaskRunning)

	close(release)
}

func TestRunNow_RecordsOutcome(t *testing.T) {
	s := newTestScheduler(time.Now().UTC())

	done := make(chan struct{})
	require.NoError(t, s.AddIntervalTask("flaky", 30, func(ctx context.Context) error {
		defer close(done)
		return errors.New("boom")
	}))

	require.NoError(t, s.RunNow("flaky"))
	<-done

	// finish runs after fn returns; poll briefly for the state update.
	require.Eventually(t, func() bool {
		return s.Status().Tasks[0].RunCount == 1
	}, time.Second, 5*time.Millisecond)

	status := s.Status().Tasks[0]
	assert.Equal(t, 1, status.ErrorCount)
	assert.Equal(t, 0.0, status.SuccessRate)
	assert.False(t, status.IsRunning)
}

func TestTask_SuccessRate(t *testing.T) {
	now := time.Now().UTC()
	task, err := newIntervalTask("fetch", noop, 30, func() time.Time { return now })
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.True(t, task.tryLock())
		task.finish(now, nil)
	}
	require.True(t, task.tryLock())
	task.finish(now, errors.New("boom"))

	status := task.status()
	assert.Equal(t, 5, status.RunCount)
	assert.Equal(t, 1, status.ErrorCount)
	assert.InDelta(t, 80.0, status.SuccessRate, 1e-9)
}

func TestScheduler_StartStopIdempotent(t *testing.T) {
	s := New(discardLogger())

	s.Start()
	s.Start()
	assert.True(t, s.Status().IsRunning)

	s.Stop()
	s.Stop()
	assert.False(t, s.Status().IsRunning)
}

func TestTask_ShouldRunRespectsInFlightRuns(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	var calls atomic.Int32

	task, err := newIntervalTask("fetch", func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, 30, func() time.Time { return now })
	require.NoError(t, err)

	due := now.Add(time.Minute)
	require.True(t, task.shouldRun(due))

	require.True(t, task.tryLock())
	assert.False(t, task.shouldRun(due), "running task must not be scheduled again")
	task.finish(now, nil)

	assert.False(t, task.shouldRun(due), "next run moved past the probe time")
}

func TestRunNow_PanickingTaskCountsAsError(t *testing.T) {
	s := newTestScheduler(time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC))
	require.NoError(t, s.AddIntervalTask("flaky", 30, func(ctx context.Context) error {
		panic("boom")
	}))

	require.NoError(t, s.RunNow("flaky"))

	require.Eventually(t, func() bool {
		status, err := s.Get("flaky")
		return err == nil && status.RunCount == 1
	}, time.Second, 10*time.Millisecond)

	status, err := s.Get("flaky")
	require.NoError(t, err)
	assert.Equal(t, 1, status.ErrorCount)
	assert.False(t, status.IsRunning)
}

func TestScheduler_RemoveTask(t *testing.T) {
	s := newTestScheduler(time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC))
	require.NoError(t, s.AddIntervalTask("fetch", 30, func(ctx context.Context) error { return nil }))

	require.NoError(t, s.Remove("fetch"))
	assert.Equal(t, 0, s.Status().TotalTasks)

	err := s.Remove("fetch")
	require.ErrorIs(t, err, domain.ErrTaskNotFound)

	_, err = s.Get("fetch")
	require.ErrorIs(t, err, domain.ErrTaskNotFound)
}
