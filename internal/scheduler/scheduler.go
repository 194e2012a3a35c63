package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"news-orchestrator/internal/domain"
)

// pollInterval is how often the loop checks for due tasks. Schedules are
// minute-granular, so 30 seconds keeps worst-case lateness acceptable.
const pollInterval = 30 * time.Second

// SchedulerStatus is the JSON snapshot of the whole scheduler.
type SchedulerStatus struct {
	IsRunning   bool         `json:"is_running"`
	TotalTasks  int          `json:"total_tasks"`
	Tasks       []TaskStatus `json:"tasks"`
	NextTaskRun *time.Time   `json:"next_task_run,omitempty"`
}

// Scheduler runs registered tasks on their schedules from one background
// goroutine. Due tasks launch concurrently; a task never overlaps itself.
type Scheduler struct {
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	tasks    []*Task
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		logger: logger,
		now:    time.Now,
	}
}

// AddIntervalTask registers a task that runs every intervalMinutes. The first
// run happens shortly after Start rather than a full interval later.
func (s *Scheduler) AddIntervalTask(name string, intervalMinutes int, fn TaskFunc) error {
	task, err := newIntervalTask(name, fn, intervalMinutes, s.now)
	if err != nil {
		return err
	}
	return s.add(task)
}

// AddDailyTask registers a task that runs once a day at hourUTC.
func (s *Scheduler) AddDailyTask(name string, hourUTC int, fn TaskFunc) error {
	task, err := newDailyTask(name, fn, hourUTC, s.now)
	if err != nil {
		return err
	}
	return s.add(task)
}

func (s *Scheduler) add(task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tasks {
		if existing.name == task.name {
			return fmt.Errorf("task %q already registered", task.name)
		}
	}
	s.tasks = append(s.tasks, task)

	s.logger.Info("scheduler_task_added",
		slog.String("task", task.name),
		slog.Time("next_run", *task.nextRun),
	)
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("scheduler_already_running")
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("scheduler_started", slog.Int("task_count", len(s.tasks)))
	s.wg.Add(1)
	go s.loop()
}

// Stop halts the poll loop and waits for it to exit. In-flight task runs
// finish on their own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler_stopped")
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runDueTasks()
		}
	}
}

func (s *Scheduler) runDueTasks() {
	current := s.now().UTC()

	s.mu.Lock()
	tasks := make([]*Task, len(s.tasks))
	copy(tasks, s.tasks)
	s.mu.Unlock()

	for _, task := range tasks {
		if !task.shouldRun(current) {
			continue
		}
		go s.execute(task)
	}
}

func (s *Scheduler) execute(task *Task) {
	if !task.tryLock() {
		return
	}

	startedAt := s.now().UTC()
	s.logger.Info("scheduled_task_started", slog.String("task", task.name))

	err := runTask(task)
	task.finish(startedAt, err)

	elapsed := s.now().UTC().Sub(startedAt)
	if err != nil {
		s.logger.Error("scheduled_task_failed",
			slog.String("task", task.name),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", elapsed),
		)
		return
	}
	s.logger.Info("scheduled_task_completed",
		slog.String("task", task.name),
		slog.Duration("elapsed", elapsed),
	)
}

// RunNow triggers a task immediately, outside its schedule. It returns
// domain.ErrTaskNotFound for unknown names and domain.ErrTaskRunning when a
// run is already in flight.
func (s *Scheduler) RunNow(name string) error {
	task := s.get(name)
	if task == nil {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, name)
	}
	if !task.tryLock() {
		return fmt.Errorf("%w: %s", domain.ErrTaskRunning, name)
	}

	s.logger.Info("scheduled_task_triggered", slog.String("task", name))
	go func() {
		startedAt := s.now().UTC()
		err := runTask(task)
		task.finish(startedAt, err)
		if err != nil {
			s.logger.Error("scheduled_task_failed",
				slog.String("task", task.name),
				slog.String("error", err.Error()),
			)
		}
	}()
	return nil
}

// runTask invokes the task function, converting a panic into an error so a
// misbehaving task counts as a failed run instead of killing the process.
func runTask(task *Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return task.fn(context.Background())
}

// Remove unregisters a task by name. A currently executing run finishes; the
// task is simply never scheduled again.
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, task := range s.tasks {
		if task.name == name {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			s.logger.Info("scheduler_task_removed", slog.String("task", name))
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, name)
}

// Get returns the status of a single task by name.
func (s *Scheduler) Get(name string) (TaskStatus, error) {
	task := s.get(name)
	if task == nil {
		return TaskStatus{}, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, name)
	}
	return task.status(), nil
}

func (s *Scheduler) get(name string) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, task := range s.tasks {
		if task.name == name {
			return task
		}
	}
	return nil
}

func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	running := s.running
	tasks := make([]*Task, len(s.tasks))
	copy(tasks, s.tasks)
	s.mu.Unlock()

	status := SchedulerStatus{
		IsRunning:  running,
		TotalTasks: len(tasks),
		Tasks:      make([]TaskStatus, 0, len(tasks)),
	}
	for _, task := range tasks {
		ts := task.status()
		status.Tasks = append(status.Tasks, ts)
		if ts.NextRun != nil && (status.NextTaskRun == nil || ts.NextRun.Before(*status.NextTaskRun)) {
			status.NextTaskRun = ts.NextRun
		}
	}
	return status
}
