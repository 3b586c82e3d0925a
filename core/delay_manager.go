package core

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// delayedTask is a registered task waiting for its due time before it
// becomes runnable.
type delayedTask struct {
	runAt time.Time
	task  *Task
	index int // heap bookkeeping
}

type delayedTaskHeap []*delayedTask

func (h delayedTaskHeap) Len() int           { return len(h) }
func (h delayedTaskHeap) Less(i, j int) bool { return h[i].runAt.Before(h[j].runAt) }
func (h delayedTaskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *delayedTaskHeap) Push(x any) {
	n := len(*h)
	item := x.(*delayedTask)
	item.index = n
	*h = append(*h, item)
}

func (h *delayedTaskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*h = old[0 : n-1]
	return item
}

func (h *delayedTaskHeap) peek() *delayedTask {
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}

// DelayManager holds tasks whose spawn is deferred to a future point in
// time. Due tasks are handed to the scheduler's ready queue; a task cancelled
// while still waiting never becomes runnable.
//
// One timer goroutine serves all delayed tasks, sleeping until the earliest
// due time rather than polling.
type DelayManager struct {
	sched *Scheduler

	mu      sync.Mutex
	pq      delayedTaskHeap
	stopped bool
	wakeup  chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewDelayManager starts the timer goroutine feeding the given scheduler.
func NewDelayManager(sched *Scheduler) *DelayManager {
	ctx, cancel := context.WithCancel(context.Background())
	dm := &DelayManager{
		sched:  sched,
		pq:     make(delayedTaskHeap, 0),
		wakeup: make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
	heap.Init(&dm.pq)
	go dm.loop()
	return dm
}

// Schedule defers a registered task until delay has elapsed. A non-positive
// delay enqueues immediately. After Stop the timer goroutine is gone, so the
// task is settled as cancelled rather than parked where nothing can release it.
func (dm *DelayManager) Schedule(t *Task, delay time.Duration) {
	dm.mu.Lock()
	if dm.stopped {
		dm.mu.Unlock()
		t.finish(StatusCancelled, NoneValue(), "runtime shutdown")
		dm.sched.onTaskSettled(t)
		return
	}
	if delay <= 0 {
		dm.mu.Unlock()
		_ = dm.sched.Enqueue(t)
		return
	}

	item := &delayedTask{runAt: time.Now().Add(delay), task: t}
	heap.Push(&dm.pq, item)
	front := item.index == 0
	dm.mu.Unlock()

	if front {
		select {
		case dm.wakeup <- struct{}{}:
		default:
		}
	}
}

func (dm *DelayManager) loop() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		next, idle := dm.nextDue()
		if idle {
			next = 1000 * time.Hour
		} else if next <= 0 {
			dm.releaseDue()
			continue
		}

		timer.Reset(next)

		select {
		case <-dm.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			dm.releaseDue()
		case <-dm.wakeup:
			// An earlier due time arrived; recalculate.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
	}
}

// nextDue returns how long until the earliest task is due. idle is true when
// nothing is waiting.
func (dm *DelayManager) nextDue() (wait time.Duration, idle bool) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	item := dm.pq.peek()
	if item == nil {
		return 0, true
	}
	return time.Until(item.runAt), false
}

// releaseDue moves every due task onto the ready queue in one pass.
func (dm *DelayManager) releaseDue() {
	dm.mu.Lock()
	now := time.Now()
	var due []*delayedTask
	for dm.pq.Len() > 0 {
		item := dm.pq.peek()
		if item.runAt.After(now) {
			break
		}
		heap.Pop(&dm.pq)
		due = append(due, item)
	}
	dm.mu.Unlock()

	// Enqueue outside the lock. A cancel issued while the task waited here
	// must keep it from ever running: a terminal task is skipped, and a
	// still-pending task with a cancel request is settled as cancelled
	// instead of entering the ready queue.
	for _, item := range due {
		if item.task.Status().IsTerminal() {
			continue
		}
		if item.task.CancelRequested() {
			item.task.finish(StatusCancelled, NoneValue(), "")
			dm.sched.onTaskSettled(item.task)
			continue
		}
		_ = dm.sched.Enqueue(item.task)
	}
}

// Stop terminates the timer goroutine and drops waiting tasks without
// running them.
func (dm *DelayManager) Stop() {
	dm.mu.Lock()
	if dm.stopped {
		dm.mu.Unlock()
		return
	}
	dm.stopped = true
	waiting := dm.pq
	dm.pq = make(delayedTaskHeap, 0)
	heap.Init(&dm.pq)
	dm.mu.Unlock()

	dm.cancel()

	for _, item := range waiting {
		if item.task.Status().IsTerminal() {
			continue
		}
		item.task.finish(StatusCancelled, NoneValue(), "runtime shutdown")
		dm.sched.onTaskSettled(item.task)
	}
}

// WaitingCount returns how many tasks have not reached their due time yet.
func (dm *DelayManager) WaitingCount() int {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return len(dm.pq)
}
