package core

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// PoolConfig sizes the worker pool.
type PoolConfig struct {
	// Workers is the number of worker goroutines. 0 means one per logical CPU.
	Workers int

	// EnableWorkStealing lets an idle worker pull continuations from a
	// sibling's local queue when the shared queue is empty.
	EnableWorkStealing bool

	// StackPoolSize is the number of preallocated scratch buffers per worker.
	StackPoolSize int

	// MaxStackSize caps each scratch buffer before heap fallback.
	MaxStackSize int

	// HistoryCapacity bounds the execution history ring.
	HistoryCapacity int
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.StackPoolSize <= 0 {
		c.StackPoolSize = 8
	}
	if c.MaxStackSize <= 0 {
		c.MaxStackSize = 2 * 1024 * 1024
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = defaultHistoryCapacity
	}
	return c
}

// localQueue is a worker-owned backlog of continuations. The owner pops from
// the front; thieves steal from the back.
type localQueue struct {
	mu    sync.Mutex
	items []*Task
}

func (q *localQueue) push(t *Task) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.mu.Unlock()
}

func (q *localQueue) pop() (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	t := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return t, true
}

func (q *localQueue) steal() (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	if n == 0 {
		return nil, false
	}
	t := q.items[n-1]
	q.items[n-1] = nil
	q.items = q.items[:n-1]
	return t, true
}

func (q *localQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

type worker struct {
	id     int
	local  *localQueue
	stacks *StackPool
}

// WorkerPool runs a fixed set of worker goroutines that pull tasks from the
// scheduler's shared queue, execute them to completion and settle their
// result cells. Workers park when no work is available and are woken on
// enqueue; a poll-interval tick re-checks for shutdown as a liveness net.
type WorkerPool struct {
	name    string
	cfg     PoolConfig
	sched   *Scheduler
	state   *StateManager
	history *ExecutionHistory
	workers []*worker

	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	running   bool
	runningMu sync.RWMutex
}

// NewWorkerPool wires a pool to its scheduler and state manager.
func NewWorkerPool(name string, cfg PoolConfig, sched *Scheduler, state *StateManager) *WorkerPool {
	cfg = cfg.withDefaults()

	workers := make([]*worker, cfg.Workers)
	for i := range workers {
		workers[i] = &worker{
			id:     i,
			local:  &localQueue{},
			stacks: NewStackPool(cfg.StackPoolSize, cfg.MaxStackSize),
		}
	}

	return &WorkerPool{
		name:    name,
		cfg:     cfg,
		sched:   sched,
		state:   state,
		history: NewExecutionHistory(cfg.HistoryCapacity),
		workers: workers,
	}
}

// Start launches all worker goroutines and transitions the runtime state to
// Running. Starting an already-running pool is a no-op.
func (p *WorkerPool) Start(ctx context.Context) {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if p.running {
		return
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true
	p.state.Transition(StateRunning)

	for _, w := range p.workers {
		p.wg.Add(1)
		go p.workerLoop(w, p.ctx)
	}
}

// Stop shuts the pool down immediately: no new spawns, pending tasks are
// dropped as Cancelled, workers exit after their current task.
func (p *WorkerPool) Stop() {
	p.state.Transition(StateShuttingDown)
	p.sched.Shutdown()

	p.runningMu.Lock()
	if !p.running {
		p.runningMu.Unlock()
		p.state.Transition(StateStopped)
		return
	}
	p.runningMu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.Join()

	p.runningMu.Lock()
	p.running = false
	p.runningMu.Unlock()
	p.state.Transition(StateStopped)
}

// StopGraceful drains queued and active tasks up to the grace period before
// stopping the workers. Tasks still pending when the grace period expires
// are dropped as Cancelled.
func (p *WorkerPool) StopGraceful(grace time.Duration) error {
	p.runningMu.Lock()
	if !p.running {
		p.runningMu.Unlock()
		p.sched.Shutdown()
		p.state.Transition(StateStopped)
		return nil
	}
	p.runningMu.Unlock()

	p.state.Transition(StateShuttingDown)
	drainErr := p.sched.ShutdownGraceful(grace)

	if p.cancel != nil {
		p.cancel()
	}
	p.Join()

	p.runningMu.Lock()
	p.running = false
	p.runningMu.Unlock()
	p.state.Transition(StateStopped)
	return drainErr
}

// Join waits for all worker goroutines to exit.
func (p *WorkerPool) Join() {
	p.wg.Wait()
}

// IsRunning reports whether workers are active.
func (p *WorkerPool) IsRunning() bool {
	p.runningMu.RLock()
	defer p.runningMu.RUnlock()
	return p.running
}

// WorkerCount returns the configured worker count.
func (p *WorkerPool) WorkerCount() int { return len(p.workers) }

// History returns the recent execution records ring.
func (p *WorkerPool) History() *ExecutionHistory { return p.history }

// StackStats sums pooled hits and heap fallbacks across all workers.
func (p *WorkerPool) StackStats() (pooled, heap uint64) {
	for _, w := range p.workers {
		ph, hh := w.stacks.Stats()
		pooled += ph
		heap += hh
	}
	return pooled, heap
}

// Requeue reinserts a suspended task's continuation on the owning worker's
// local queue, preserving the task's original priority class for thieves.
// The shipped computations resolve on their first poll, so this path is
// exercised by stealing tests rather than production suspensions.
func (p *WorkerPool) Requeue(workerID int, t *Task) {
	if workerID < 0 || workerID >= len(p.workers) {
		p.sched.queue.Push(t.ID(), t.Priority())
		return
	}
	p.workers[workerID].local.push(t)
}

func (p *WorkerPool) workerLoop(w *worker, ctx context.Context) {
	defer p.wg.Done()
	stopCh := ctx.Done()

	for {
		t, ok := p.getTask(w, stopCh)
		if !ok {
			return
		}
		p.execute(w, t, ctx)
	}
}

// getTask acquires the next task: own backlog first, then the shared queue,
// then (when enabled) a sibling's backlog, then park.
func (p *WorkerPool) getTask(w *worker, stopCh <-chan struct{}) (*Task, bool) {
	for {
		if t, ok := w.local.pop(); ok {
			return t, true
		}
		if t, ok := p.sched.TryGetWork(); ok {
			return t, true
		}
		if p.cfg.EnableWorkStealing {
			if t, ok := p.stealFrom(w); ok {
				return t, true
			}
		}
		if !p.sched.WaitForWork(stopCh) {
			return nil, false
		}
	}
}

func (p *WorkerPool) stealFrom(w *worker) (*Task, bool) {
	for _, sibling := range p.workers {
		if sibling.id == w.id {
			continue
		}
		if t, ok := sibling.local.steal(); ok {
			return t, true
		}
	}
	return nil, false
}

// execute runs a single task to completion and settles its outcome.
func (p *WorkerPool) execute(w *worker, t *Task, poolCtx context.Context) {
	if !t.tryStart() {
		// Lost the race with cancellation before starting; make sure joiners
		// are released even if the cancel path never settled it.
		t.finish(StatusCancelled, NoneValue(), "")
		p.sched.onTaskSettled(t)
		return
	}

	if t.CancelRequested() {
		// Cancelled while parked in a queue; the body must never run.
		t.finish(StatusCancelled, NoneValue(), "")
		p.sched.onTaskSettled(t)
		return
	}

	p.sched.OnTaskStart()
	started := time.Now()

	taskCtx, cancelTask := context.WithCancel(poolCtx)
	go func() {
		select {
		case <-t.cancelCh:
			cancelTask()
		case <-taskCtx.Done():
		}
	}()

	buf := w.stacks.Get(defaultStackSegment)

	var (
		value    FutureValue
		err      error
		panicked bool
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				n := runtime.Stack(buf, false)
				p.sched.GetPanicHandler().HandlePanic(p.name, w.id, t.ID(), r, buf[:n])
				p.sched.GetMetrics().RecordTaskPanic(p.name, r)
				err = fmt.Errorf("task panic: %v", r)
			}
		}()
		value, err = t.fn(taskCtx)
	}()

	cancelTask()
	w.stacks.Put(buf)

	var status TaskStatus
	switch {
	case panicked:
		status = StatusFailed
	case err == nil:
		// A task that finished before observing a concurrent cancel request
		// legitimately reports Completed.
		status = StatusCompleted
	case errors.Is(err, context.Canceled) && (t.CancelRequested() || p.sched.IsShuttingDown()):
		// Either the handle asked for cancellation or shutdown tore down the
		// pool context mid-run; neither is a task failure.
		status = StatusCancelled
	default:
		status = StatusFailed
	}

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	t.finish(status, value, errMsg)

	finished := time.Now()
	p.sched.OnTaskEnd()
	p.sched.onTaskSettled(t)
	p.sched.GetMetrics().RecordTaskDuration(p.name, t.Priority(), finished.Sub(started))
	p.history.Add(TaskExecutionRecord{
		ID:         t.ID(),
		Priority:   t.Priority(),
		WorkerID:   w.id,
		Status:     t.Status(),
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started),
	})
}
