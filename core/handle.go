package core

import (
	"context"
	"errors"
	"fmt"
)

// TaskHandle is the caller-facing view of a spawned task. Handles may be
// copied freely; all copies observe the same task.
type TaskHandle struct {
	task  *Task
	sched *Scheduler
}

// NewTaskHandle binds a task to the scheduler that owns it.
func NewTaskHandle(task *Task, sched *Scheduler) *TaskHandle {
	return &TaskHandle{task: task, sched: sched}
}

// ID returns the task's id.
func (h *TaskHandle) ID() TaskID { return h.task.ID() }

// Status returns the task's current status without blocking.
func (h *TaskHandle) Status() TaskStatus { return h.task.Status() }

// Join blocks until the task reaches a terminal status, then returns the
// produced value or propagates the failure. The context bounds the wait;
// the task itself keeps running if ctx expires first.
func (h *TaskHandle) Join(ctx context.Context) (FutureValue, error) {
	select {
	case <-h.task.Done():
	case <-ctx.Done():
		return NoneValue(), ctx.Err()
	}

	switch h.task.Status() {
	case StatusCompleted:
		return h.task.Result().AwaitValue()
	case StatusCancelled:
		return NoneValue(), ErrTaskCancelled
	default:
		_, err := h.task.Result().AwaitValue()
		if err == nil {
			err = errors.New("task failed")
		}
		return NoneValue(), fmt.Errorf("task failed: %w", err)
	}
}

// Cancel requests early termination. A task still pending in the queue is
// removed and settles as Cancelled immediately; a running task gets its
// cooperative flag set and its context cancelled. Cancelling a terminal task
// is a no-op.
func (h *TaskHandle) Cancel() {
	if h.task.Status().IsTerminal() {
		return
	}
	if h.sched.CancelPending(h.task.ID()) {
		return
	}
	h.task.requestCancel()
}

// Result exposes the task's result cell for boundary consumers.
func (h *TaskHandle) Result() *Future { return h.task.Result() }

// Done is closed once the task reaches a terminal status.
func (h *TaskHandle) Done() <-chan struct{} { return h.task.Done() }
