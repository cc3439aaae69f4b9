package mail

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskPending  TaskStatus = "pending"
	TaskRunning  TaskStatus = "running"
	TaskDone     TaskStatus = "done"
	TaskFailed   TaskStatus = "failed"
	TaskCanceled TaskStatus = "canceled"
)

// finished tasks are forgotten after taskRetention.
const taskRetention = 10 * time.Minute

// ErrTaskNotFound is returned for unknown or expired task ids.
var ErrTaskNotFound = errors.New("task not found")

// Task is a delayed function run owned by a Scheduler.
type Task struct {
	ID   string
	Name string

	mu         sync.Mutex
	status     TaskStatus
	err        error
	runAt      time.Time
	finishedAt time.Time
	done       chan struct{}
	cancel     context.CancelFunc
}

// TaskInfo is a point-in-time view of a task.
type TaskInfo struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Status TaskStatus `json:"status"`
	RunAt  time.Time  `json:"run_at"`
	Error  string     `json:"error,omitempty"`
}

func (t *Task) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Err returns the error of a failed run.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done is closed once the task has finished, failed or been canceled.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Cancel stops a pending task. A running task sees its context canceled.
func (t *Task) Cancel() {
	t.cancel()
}

func (t *Task) Info() TaskInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	info := TaskInfo{ID: t.ID, Name: t.Name, Status: t.status, RunAt: t.runAt}
	if t.err != nil {
		info.Error = t.err.Error()
	}
	return info
}

func (t *Task) setStatus(status TaskStatus, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
	t.err = err
	if status != TaskPending && status != TaskRunning {
		t.finishedAt = time.Now()
	}
}

func (t *Task) expired(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.finishedAt.IsZero() && now.Sub(t.finishedAt) > taskRetention
}

// Scheduler runs tasks after a delay on its own context, so they outlive the
// request that scheduled them.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	tasks map[string]*Task
}

func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{ctx: ctx, cancel: cancel, tasks: make(map[string]*Task)}
}

// Schedule runs fn once after delay. After Shutdown the returned task is
// already canceled.
func (s *Scheduler) Schedule(name string, delay time.Duration, fn func(ctx context.Context) error) *Task {
	ctx, cancel := context.WithCancel(s.ctx)
	t := &Task{
		ID:     uuid.NewString(),
		Name:   name,
		status: TaskPending,
		runAt:  time.Now().Add(delay),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	s.mu.Lock()
	now := time.Now()
	for id, old := range s.tasks {
		if old.expired(now) {
			delete(s.tasks, id)
		}
	}
	s.tasks[t.ID] = t
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(ctx, t, delay, fn)
	return t
}

func (s *Scheduler) run(ctx context.Context, t *Task, delay time.Duration, fn func(ctx context.Context) error) {
	defer s.wg.Done()
	defer close(t.done)
	defer t.cancel()

	if ctx.Err() == nil {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		timer.Stop()
	}
	if ctx.Err() != nil {
		t.setStatus(TaskCanceled, nil)
		log.Printf("task %s (%s) canceled", t.ID, t.Name)
		return
	}

	t.setStatus(TaskRunning, nil)
	if err := fn(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			t.setStatus(TaskCanceled, err)
		} else {
			t.setStatus(TaskFailed, err)
		}
		log.Printf("task %s (%s) failed: %v", t.ID, t.Name, err)
		return
	}
	t.setStatus(TaskDone, nil)
}

func (s *Scheduler) Get(id string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return t, nil
}

func (s *Scheduler) Cancel(id string) error {
	t, err := s.Get(id)
	if err != nil {
		return err
	}
	t.Cancel()
	return nil
}

// Shutdown cancels every pending task and waits for running ones to return.
func (s *Scheduler) Shutdown() {
	s.cancel()
	s.wg.Wait()
}
