package autoreply

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type TaskID uint64

// Payload is what a delayed reply needs once it fires.
type Payload struct {
	ConversationID string
	SenderID       string
	Content        string
}

type Task struct {
	ID      TaskID
	FireAt  time.Time
	Payload Payload
	timer   *time.Timer
}

// Scheduler runs each task once after its delay on its own goroutine.
// Tasks outlive the connection that caused them.
type Scheduler struct {
	log    *slog.Logger
	mu     sync.Mutex
	next   TaskID
	tasks  map[TaskID]*Task
	closed bool
	wg     sync.WaitGroup
}

func NewScheduler(log *slog.Logger) *Scheduler {
	return &Scheduler{log: log, tasks: make(map[TaskID]*Task)}
}

// Schedule registers run to be called with payload after delay.
// It returns 0 once the scheduler is shut down.
func (s *Scheduler) Schedule(delay time.Duration, payload Payload, run func(Payload)) TaskID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.log.Warn("Scheduler is shut down, task dropped", "conversation_id", payload.ConversationID)
		return 0
	}
	s.next++
	task := &Task{ID: s.next, FireAt: time.Now().Add(delay), Payload: payload}
	s.tasks[task.ID] = task
	s.wg.Add(1)
	task.timer = time.AfterFunc(delay, func() { s.fire(task.ID, run) })
	return task.ID
}

func (s *Scheduler) fire(id TaskID, run func(Payload)) {
	defer s.wg.Done()

	s.mu.Lock()
	task, ok := s.tasks[id]
	delete(s.tasks, id)
	s.mu.Unlock()
	if !ok {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Delayed task panicked",
				"task_id", id,
				"conversation_id", task.Payload.ConversationID,
				"error", fmt.Sprintf("%v", r))
		}
	}()
	run(task.Payload)
}

// Cancel stops a task that has not fired yet.
// Nothing in the reply flow cancels tasks; it is kept for operators and tests.
func (s *Scheduler) Cancel(id TaskID) bool {
	s.mu.Lock()
	task, ok := s.tasks[id]
	if !ok || !task.timer.Stop() {
		s.mu.Unlock()
		return false
	}
	delete(s.tasks, id)
	s.mu.Unlock()
	s.wg.Done()
	return true
}

// Pending is the number of tasks waiting for their delay to elapse.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Shutdown refuses new tasks and waits for the scheduled ones to complete.
// Pending tasks are not stopped; they fire at their normal time.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	pending := len(s.tasks)
	s.mu.Unlock()
	if pending > 0 {
		s.log.Info("Waiting for delayed tasks", "pending", pending)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
