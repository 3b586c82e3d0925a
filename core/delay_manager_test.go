package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDelayManagerReleasesTaskAfterDelay(t *testing.T) {
	// Given a task scheduled 30ms out on a live pool
	f := newPoolFixture(t, 1)
	dm := NewDelayManager(f.sched)
	defer dm.Stop()

	task, err := f.sched.CreateTask(func(ctx context.Context) (FutureValue, error) {
		return IntegerValue(1), nil
	}, PriorityNormal)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	h := NewTaskHandle(task, f.sched)

	start := time.Now()
	dm.Schedule(task, 30*time.Millisecond)

	if got := dm.WaitingCount(); got != 1 {
		t.Errorf("WaitingCount = %d, want 1", got)
	}
	if got := h.Status(); got != StatusPending {
		t.Errorf("status while waiting = %v, want pending", got)
	}

	// Then it runs only after the delay
	if _, err := joinWithTimeout(t, h); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("task ran after %v, before its 30ms due time", elapsed)
	}
}

func TestDelayManagerImmediateForNonPositiveDelay(t *testing.T) {
	f := newPoolFixture(t, 1)
	dm := NewDelayManager(f.sched)
	defer dm.Stop()

	task, _ := f.sched.CreateTask(func(ctx context.Context) (FutureValue, error) {
		return NoneValue(), nil
	}, PriorityNormal)
	h := NewTaskHandle(task, f.sched)

	dm.Schedule(task, 0)

	if got := dm.WaitingCount(); got != 0 {
		t.Errorf("WaitingCount = %d, want 0", got)
	}
	if _, err := joinWithTimeout(t, h); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
}

func TestDelayManagerEarlierTaskPreempts(t *testing.T) {
	// A later add with an earlier due time must not wait behind the first.
	f := newPoolFixture(t, 1)
	dm := NewDelayManager(f.sched)
	defer dm.Stop()

	slow, _ := f.sched.CreateTask(func(ctx context.Context) (FutureValue, error) {
		return NoneValue(), nil
	}, PriorityNormal)
	fast, _ := f.sched.CreateTask(func(ctx context.Context) (FutureValue, error) {
		return NoneValue(), nil
	}, PriorityNormal)

	dm.Schedule(slow, 500*time.Millisecond)
	dm.Schedule(fast, 10*time.Millisecond)

	fastHandle := NewTaskHandle(fast, f.sched)
	start := time.Now()
	if _, err := joinWithTimeout(t, fastHandle); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("earlier task took %v, stuck behind the later due time", elapsed)
	}

	// Release the slow task too before the fixture tears down.
	if _, err := joinWithTimeout(t, NewTaskHandle(slow, f.sched)); err != nil {
		t.Fatalf("slow Join failed: %v", err)
	}
}

func TestDelayManagerCancelWhileWaitingNeverRuns(t *testing.T) {
	// Given a task due in 80ms whose handle is cancelled at 10ms
	f := newPoolFixture(t, 1)
	dm := NewDelayManager(f.sched)
	defer dm.Stop()

	var ran atomic.Bool
	task, err := f.sched.CreateTask(func(ctx context.Context) (FutureValue, error) {
		ran.Store(true)
		return NoneValue(), nil
	}, PriorityNormal)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	h := NewTaskHandle(task, f.sched)
	dm.Schedule(task, 80*time.Millisecond)

	time.Sleep(10 * time.Millisecond)
	h.Cancel()

	// Then the body never executes and joiners see the cancellation
	if _, err := joinWithTimeout(t, h); !errors.Is(err, ErrTaskCancelled) {
		t.Fatalf("Join error = %v, want ErrTaskCancelled", err)
	}
	if ran.Load() {
		t.Error("cancelled task body executed after its due time")
	}
	if got := h.Status(); got != StatusCancelled {
		t.Errorf("status = %v, want cancelled", got)
	}
}

func TestDelayManagerScheduleAfterStopSettlesCancelled(t *testing.T) {
	// A task handed to a stopped manager must settle instead of parking
	// where no timer goroutine can ever release it.
	f := newPoolFixture(t, 1)
	dm := NewDelayManager(f.sched)
	dm.Stop()

	task, _ := f.sched.CreateTask(func(ctx context.Context) (FutureValue, error) {
		return NoneValue(), nil
	}, PriorityNormal)
	h := NewTaskHandle(task, f.sched)
	dm.Schedule(task, 10*time.Millisecond)

	if got := dm.WaitingCount(); got != 0 {
		t.Errorf("WaitingCount = %d, want 0", got)
	}
	if got := h.Status(); got != StatusCancelled {
		t.Errorf("status = %v, want cancelled", got)
	}
	if _, err := joinWithTimeout(t, h); !errors.Is(err, ErrTaskCancelled) {
		t.Fatalf("Join error = %v, want ErrTaskCancelled", err)
	}
}

func TestDelayManagerStopDropsWaitingTasks(t *testing.T) {
	f := newPoolFixture(t, 1)
	dm := NewDelayManager(f.sched)

	task, _ := f.sched.CreateTask(func(ctx context.Context) (FutureValue, error) {
		return NoneValue(), nil
	}, PriorityNormal)
	h := NewTaskHandle(task, f.sched)
	dm.Schedule(task, time.Hour)

	dm.Stop()

	if got := h.Status(); got != StatusCancelled {
		t.Errorf("status after Stop = %v, want cancelled", got)
	}
	if got := dm.WaitingCount(); got != 0 {
		t.Errorf("WaitingCount after Stop = %d, want 0", got)
	}
}
