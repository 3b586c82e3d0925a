package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// TaskID uniquely identifies a task for the lifetime of the runtime process.
// IDs are handed out by the scheduler from a monotonically increasing counter
// and are never reused.
type TaskID uint64

func (id TaskID) String() string {
	return fmt.Sprintf("Task(%d)", uint64(id))
}

// =============================================================================
// TaskPriority: scheduling hint, not a correctness guarantee
// =============================================================================

type TaskPriority int32

const (
	// PriorityLow: background work, runs after everything else
	PriorityLow TaskPriority = iota

	// PriorityNormal: default priority
	PriorityNormal

	// PriorityHigh: preferred by the scheduler over Normal and Low
	PriorityHigh
)

func (p TaskPriority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// =============================================================================
// TaskStatus: per-task state machine
// =============================================================================

// TaskStatus tracks a task through its lifecycle:
// Pending -> Running -> {Completed | Failed}; Pending or Running -> Cancelled.
// Cancellation may race with natural completion; the last status writer wins.
type TaskStatus int32

const (
	StatusPending TaskStatus = iota
	StatusRunning
	StatusCompleted
	StatusCancelled
	StatusFailed
)

func (s TaskStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the status is one a task never leaves.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// =============================================================================
// Task
// =============================================================================

// TaskFunc is the unit of work (Closure). The context is cancelled when the
// task is cancelled or the pool shuts down; a computation that wants to
// cooperate with cancellation should return ctx.Err() from its next
// suspension point.
type TaskFunc func(ctx context.Context) (FutureValue, error)

// ErrTaskCancelled is returned from Join when the task was cancelled before
// producing a value.
var ErrTaskCancelled = errors.New("task cancelled")

// Task owns a type-erased computation together with its identity, priority,
// shared status and result cell. Tasks are created by the scheduler and
// executed at most once by a worker.
type Task struct {
	id       TaskID
	priority TaskPriority
	fn       TaskFunc

	status atomic.Int32

	cancelRequested atomic.Bool
	cancelCh        chan struct{}
	cancelOnce      sync.Once

	result   *Future
	done     chan struct{}
	doneOnce sync.Once
}

func newTask(id TaskID, priority TaskPriority, fn TaskFunc) *Task {
	return &Task{
		id:       id,
		priority: priority,
		fn:       fn,
		cancelCh: make(chan struct{}),
		result:   NewPendingFuture(),
		done:     make(chan struct{}),
	}
}

func (t *Task) ID() TaskID             { return t.id }
func (t *Task) Priority() TaskPriority { return t.priority }

// Status returns the task's current status without blocking.
func (t *Task) Status() TaskStatus {
	return TaskStatus(t.status.Load())
}

// Result returns the task's result cell. It stays Pending until the task
// reaches a terminal status.
func (t *Task) Result() *Future { return t.result }

// Done is closed once the task reaches a terminal status.
func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) setStatus(s TaskStatus) {
	t.status.Store(int32(s))
}

// tryStart flips Pending -> Running. It fails if the task was cancelled (or
// somehow already started) in the meantime, in which case the worker must
// skip execution.
func (t *Task) tryStart() bool {
	return t.status.CompareAndSwap(int32(StatusPending), int32(StatusRunning))
}

// requestCancel sets the cooperative cancellation flag and wakes the task's
// context. Cancellation of a Running task is advisory: the computation
// observes it at its next suspension point, and a task that finishes first
// still reports Completed.
func (t *Task) requestCancel() {
	t.cancelRequested.Store(true)
	t.cancelOnce.Do(func() { close(t.cancelCh) })
}

// CancelRequested reports whether cancellation has been requested.
func (t *Task) CancelRequested() bool {
	return t.cancelRequested.Load()
}

// finish records the terminal status, resolves the result cell and releases
// joiners. Only the first terminal writer resolves the result; the status
// store stays a plain last-writer-wins store for raw Status reads.
func (t *Task) finish(status TaskStatus, value FutureValue, errMsg string) {
	t.doneOnce.Do(func() {
		t.setStatus(status)
		switch status {
		case StatusCompleted:
			t.result.Complete(value)
		case StatusCancelled:
			if errMsg == "" {
				errMsg = ErrTaskCancelled.Error()
			}
			t.result.Fail(errMsg)
		case StatusFailed:
			t.result.Fail(errMsg)
		}
		close(t.done)
	})
}
