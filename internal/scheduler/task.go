package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// firstRunDelay lets the process finish startup before an interval task's
// first execution.
const firstRunDelay = 10 * time.Second

// TaskFunc is the work a scheduled task performs.
type TaskFunc func(ctx context.Context) error

// TaskStatus is the JSON snapshot exposed by the status API.
type TaskStatus struct {
	Name        string     `json:"name"`
	IsRunning   bool       `json:"is_running"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	NextRun     *time.Time `json:"next_run,omitempty"`
	RunCount    int        `json:"run_count"`
	ErrorCount  int        `json:"error_count"`
	SuccessRate float64    `json:"success_rate"`
}

// Task is one scheduled unit of work. Exactly one of intervalMinutes or
// dailyAtHour is set; a task never uses both schedules.
type Task struct {
	name            string
	fn              TaskFunc
	intervalMinutes int
	dailyAtHour     int
	isDaily         bool
	now             func() time.Time

	mu         sync.Mutex
	lastRun    *time.Time
	nextRun    *time.Time
	runCount   int
	errorCount int
	isRunning  bool
}

func newIntervalTask(name string, fn TaskFunc, intervalMinutes int, now func() time.Time) (*Task, error) {
	if intervalMinutes <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %d", intervalMinutes)
	}
	t := &Task{name: name, fn: fn, intervalMinutes: intervalMinutes, now: now}
	t.calculateNextRun()
	return t, nil
}

func newDailyTask(name string, fn TaskFunc, hourUTC int, now func() time.Time) (*Task, error) {
	if hourUTC < 0 || hourUTC > 23 {
		return nil, fmt.Errorf("daily hour must be between 0 and 23, got %d", hourUTC)
	}
	t := &Task{name: name, fn: fn, dailyAtHour: hourUTC, isDaily: true, now: now}
	t.calculateNextRun()
	return t, nil
}

func (t *Task) Name() string { return t.name }

// calculateNextRun must be called with t.mu held (or before the task is
// visible to the scheduler).
func (t *Task) calculateNextRun() {
	now := t.now().UTC()

	if t.isDaily {
		today := time.Date(now.Year(), now.Month(), now.Day(), t.dailyAtHour, 0, 0, 0, time.UTC)
		next := today
		if now.After(today) {
			next = today.AddDate(0, 0, 1)
		}
		t.nextRun = &next
		return
	}

	var next time.Time
	if t.lastRun == nil {
		next = now.Add(firstRunDelay)
	} else {
		// The interval counts from the start of the previous run, so a
		// slow run does not push the cadence later and later.
		next = t.lastRun.Add(time.Duration(t.intervalMinutes) * time.Minute)
	}
	t.nextRun = &next
}

func (t *Task) shouldRun(current time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning || t.nextRun == nil {
		return false
	}
	return !current.Before(*t.nextRun)
}

// tryLock marks the task running; it fails when a run is already in flight.
func (t *Task) tryLock() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning {
		return false
	}
	t.isRunning = true
	return true
}

// finish records the run outcome and schedules the next one.
func (t *Task) finish(startedAt time.Time, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	started := startedAt
	t.lastRun = &started
	t.runCount++
	if err != nil {
		t.errorCount++
	}
	t.calculateNextRun()
	t.isRunning = false
}

func (t *Task) status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	successRate := 0.0
	if t.runCount > 0 {
		successRate = float64(t.runCount-t.errorCount) / float64(t.runCount) * 100
	}
	return TaskStatus{
		Name:        t.name,
		IsRunning:   t.isRunning,
		LastRun:     t.lastRun,
		NextRun:     t.nextRun,
		RunCount:    t.runCount,
		ErrorCount:  t.errorCount,
		SuccessRate: successRate,
	}
}
