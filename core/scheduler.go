package core

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrShuttingDown is returned when a spawn reaches the scheduler after
// shutdown has begun.
var ErrShuttingDown = errors.New("runtime is shutting down")

// Scheduler owns the task registry and the shared ready queue. It hands out
// TaskIDs, tracks queued/active/completed counters and routes rejections.
//
// The registry lock and the queue lock are separate; no operation holds both
// at once.
type Scheduler struct {
	name         string
	queue        *TaskQueue
	signal       chan struct{}
	pollInterval time.Duration

	tasksMu sync.Mutex
	tasks   map[TaskID]*Task

	advisoryCapacity int

	nextID         atomic.Uint64
	metricQueued   atomic.Int32
	metricActive   atomic.Int32
	completedTotal atomic.Uint64
	shuttingDown   atomic.Bool

	panicHandler        PanicHandler
	metrics             Metrics
	rejectedTaskHandler RejectedTaskHandler
	logger              Logger
}

// NewScheduler creates a scheduler sized for workerCount workers.
// pollInterval bounds how long a parked worker waits before re-checking for
// shutdown even without a wake signal.
func NewScheduler(name string, workerCount int, pollInterval time.Duration, opts *SchedulerOptions) *Scheduler {
	if workerCount < 1 {
		workerCount = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Millisecond
	}
	o := opts.withDefaults()

	return &Scheduler{
		name:                name,
		queue:               NewTaskQueue(),
		signal:              make(chan struct{}, workerCount*2),
		pollInterval:        pollInterval,
		tasks:               make(map[TaskID]*Task),
		panicHandler:        o.PanicHandler,
		metrics:             o.Metrics,
		rejectedTaskHandler: o.RejectedTaskHandler,
		logger:              o.Logger,
	}
}

// SetAdvisoryCapacity sets the queue size hint. The queue itself is
// unbounded; exceeding the hint only logs a warning.
func (s *Scheduler) SetAdvisoryCapacity(capacity int) {
	s.advisoryCapacity = capacity
}

// CreateTask registers a new task under a fresh TaskID without enqueueing it.
// The boundary bridge uses this two-phase form; Spawn is CreateTask+Enqueue.
func (s *Scheduler) CreateTask(fn TaskFunc, priority TaskPriority) (*Task, error) {
	if fn == nil {
		return nil, errors.New("nil task computation")
	}
	if s.shuttingDown.Load() {
		s.reject("shutting down")
		return nil, ErrShuttingDown
	}

	id := TaskID(s.nextID.Add(1))
	t := newTask(id, priority, fn)

	s.tasksMu.Lock()
	s.tasks[id] = t
	s.tasksMu.Unlock()

	s.logger.Debug("task registered", F("task", id), F("priority", priority))
	return t, nil
}

// Enqueue marks a registered task runnable.
func (s *Scheduler) Enqueue(t *Task) error {
	if s.shuttingDown.Load() {
		s.reject("shutting down")
		return ErrShuttingDown
	}

	s.queue.Push(t.ID(), t.Priority())
	depth := int(s.metricQueued.Add(1))
	s.metrics.RecordQueueDepth(s.name, depth)
	if s.advisoryCapacity > 0 && depth > s.advisoryCapacity {
		s.logger.Warn("queue depth exceeds advisory capacity",
			F("depth", depth), F("capacity", s.advisoryCapacity))
	}

	select {
	case s.signal <- struct{}{}:
	default:
		// Signal channel full, but the task is already queued; a worker will
		// find it on its next pass.
	}
	return nil
}

// Lookup resolves a task id to its Task, if still registered.
func (s *Scheduler) Lookup(id TaskID) (*Task, bool) {
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

// TryGetWork pops the next runnable task without blocking.
func (s *Scheduler) TryGetWork() (*Task, bool) {
	for {
		id, _, ok := s.queue.Pop()
		if !ok {
			return nil, false
		}
		s.metricQueued.Add(-1)

		t, found := s.Lookup(id)
		if !found {
			// Settled between Push and Pop (e.g. cancelled); skip.
			continue
		}
		return t, true
	}
}

// WaitForWork parks the calling worker until a wake signal arrives or stopCh
// closes. It also wakes every pollInterval as a liveness net and reports
// false when the worker should exit.
func (s *Scheduler) WaitForWork(stopCh <-chan struct{}) bool {
	timer := time.NewTimer(s.pollInterval)
	defer timer.Stop()

	select {
	case <-s.signal:
		return true
	case <-timer.C:
		return true
	case <-stopCh:
		return false
	}
}

// CancelPending removes a not-yet-started task from the ready queue and
// settles it as Cancelled. It reports false when the task was no longer
// pending (already dequeued by a worker, or already terminal).
func (s *Scheduler) CancelPending(id TaskID) bool {
	if !s.queue.Remove(id) {
		return false
	}
	s.metricQueued.Add(-1)

	t, ok := s.Lookup(id)
	if !ok {
		return false
	}
	t.finish(StatusCancelled, NoneValue(), "")
	s.onTaskSettled(t)
	return true
}

// SettleInline resolves a registered task synchronously on the calling
// thread, outside the worker pool. The boundary bridge uses this when
// generated code awaits a task that was created but never spawned: the
// computation has no true suspension point, so a single poll on the caller's
// thread yields the final result. Reports false when the task is unknown or
// already started elsewhere.
func (s *Scheduler) SettleInline(id TaskID, value FutureValue, err error) bool {
	t, ok := s.Lookup(id)
	if !ok {
		return false
	}
	if !t.tryStart() {
		return false
	}
	if err != nil {
		t.finish(StatusFailed, NoneValue(), err.Error())
	} else {
		t.finish(StatusCompleted, value, "")
	}
	s.onTaskSettled(t)
	return true
}

// onTaskSettled unregisters a terminal task and updates counters.
func (s *Scheduler) onTaskSettled(t *Task) {
	s.tasksMu.Lock()
	delete(s.tasks, t.ID())
	s.tasksMu.Unlock()
	s.completedTotal.Add(1)
	s.metrics.RecordQueueDepth(s.name, s.QueuedTaskCount())
}

// Shutdown stops accepting spawns and drops every still-pending task without
// running it. Dropped tasks settle as Cancelled so joiners are released.
func (s *Scheduler) Shutdown() {
	s.shuttingDown.Store(true)

	dropped := s.queue.Clear()
	if n := len(dropped); n > 0 {
		s.metricQueued.Add(int32(-n))
		s.logger.Info("dropping pending tasks on shutdown", F("count", n))
	}
	for _, id := range dropped {
		if t, ok := s.Lookup(id); ok {
			t.finish(StatusCancelled, NoneValue(), "runtime shutdown")
			s.onTaskSettled(t)
		}
	}
}

// ShutdownGraceful stops accepting spawns and waits for queued and active
// tasks to drain, up to timeout. On timeout the remaining pending tasks are
// dropped as in Shutdown.
func (s *Scheduler) ShutdownGraceful(timeout time.Duration) error {
	s.shuttingDown.Store(true)

	deadline := time.After(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			s.Shutdown()
			return fmt.Errorf("graceful shutdown timeout after %v, dropped pending tasks", timeout)
		case <-ticker.C:
			if s.QueuedTaskCount() == 0 && s.ActiveTaskCount() == 0 {
				return nil
			}
		}
	}
}

// IsShuttingDown reports whether Shutdown or ShutdownGraceful has begun.
func (s *Scheduler) IsShuttingDown() bool {
	return s.shuttingDown.Load()
}

// Counters.
func (s *Scheduler) QueuedTaskCount() int { return int(s.metricQueued.Load()) }
func (s *Scheduler) ActiveTaskCount() int { return int(s.metricActive.Load()) }
func (s *Scheduler) CompletedTaskCount() uint64 {
	return s.completedTotal.Load()
}

// RegisteredTaskCount returns the number of tasks not yet settled.
func (s *Scheduler) RegisteredTaskCount() int {
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()
	return len(s.tasks)
}

func (s *Scheduler) OnTaskStart() {
	s.metricActive.Add(1)
}

func (s *Scheduler) OnTaskEnd() {
	s.metricActive.Add(-1)
}

// Name returns the scheduler's runtime name used in metrics labels.
func (s *Scheduler) Name() string { return s.name }

// GetPanicHandler returns the panic handler for this scheduler.
func (s *Scheduler) GetPanicHandler() PanicHandler {
	return s.panicHandler
}

// GetMetrics returns the metrics collector for this scheduler.
func (s *Scheduler) GetMetrics() Metrics {
	return s.metrics
}

// GetLogger returns the diagnostics logger for this scheduler.
func (s *Scheduler) GetLogger() Logger {
	return s.logger
}

func (s *Scheduler) reject(reason string) {
	s.rejectedTaskHandler.HandleRejectedTask(s.name, reason)
	s.metrics.RecordTaskRejected(s.name, reason)
}
