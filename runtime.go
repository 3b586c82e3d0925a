package asyncruntime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Swind/go-async-runtime/core"
)

const runtimeName = "async-runtime"

// ErrNotRunning is returned when a spawn reaches a runtime that has not been
// started or has already stopped.
var ErrNotRunning = errors.New("runtime is not running")

// Runtime wires the state manager, the scheduler and the worker pool into the
// object compiled code talks to (through the bridge package) and embedders
// use directly.
type Runtime struct {
	cfg    Config
	state  *core.StateManager
	sched  *core.Scheduler
	pool   *core.WorkerPool
	delays *core.DelayManager
	logger core.Logger
}

// New creates a runtime from the given configuration. Handlers in opts are
// optional; pass nil for defaults.
func New(cfg Config, opts *core.SchedulerOptions) (*Runtime, error) {
	if cfg.WorkerThreads < 0 {
		return nil, errors.New("worker_threads must not be negative")
	}
	defaults := DefaultConfig()
	if cfg.WorkerThreads == 0 {
		cfg.WorkerThreads = defaults.WorkerThreads
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}

	if opts == nil {
		opts = &core.SchedulerOptions{}
	}
	if opts.Logger == nil && cfg.Debug {
		opts.Logger = core.NewDefaultLogger()
	}

	sched := core.NewScheduler(runtimeName, cfg.WorkerThreads, cfg.PollInterval, opts)
	sched.SetAdvisoryCapacity(cfg.QueueCapacity)

	state := core.NewStateManager()
	pool := core.NewWorkerPool(runtimeName, core.PoolConfig{
		Workers:            cfg.WorkerThreads,
		EnableWorkStealing: cfg.EnableWorkStealing,
		StackPoolSize:      cfg.StackPoolSize,
		MaxStackSize:       cfg.MaxStackSize,
	}, sched, state)

	return &Runtime{
		cfg:    cfg,
		state:  state,
		sched:  sched,
		pool:   pool,
		delays: core.NewDelayManager(sched),
		logger: sched.GetLogger(),
	}, nil
}

// Start launches the worker pool. Starting a running runtime is a no-op.
func (r *Runtime) Start(ctx context.Context) {
	r.pool.Start(ctx)
	r.logger.Info("runtime started", core.F("workers", r.pool.WorkerCount()))
}

// Spawn registers a task with Normal priority and marks it runnable.
func (r *Runtime) Spawn(fn core.TaskFunc) (*core.TaskHandle, error) {
	return r.SpawnWithPriority(fn, core.PriorityNormal)
}

// SpawnWithPriority registers a task and marks it runnable under the given
// priority. It fails once shutdown has begun or before Start.
func (r *Runtime) SpawnWithPriority(fn core.TaskFunc, priority core.TaskPriority) (*core.TaskHandle, error) {
	if !r.state.IsRunning() {
		return nil, ErrNotRunning
	}

	task, err := r.sched.CreateTask(fn, priority)
	if err != nil {
		return nil, err
	}
	if err := r.sched.Enqueue(task); err != nil {
		return nil, err
	}
	return core.NewTaskHandle(task, r.sched), nil
}

// SpawnAfter registers a task that becomes runnable once delay has elapsed.
// The handle is live immediately: its status reads Pending while waiting and
// Cancel reaches the task before it ever runs.
func (r *Runtime) SpawnAfter(fn core.TaskFunc, priority core.TaskPriority, delay time.Duration) (*core.TaskHandle, error) {
	if !r.state.IsRunning() {
		return nil, ErrNotRunning
	}

	task, err := r.sched.CreateTask(fn, priority)
	if err != nil {
		return nil, err
	}
	r.delays.Schedule(task, delay)
	return core.NewTaskHandle(task, r.sched), nil
}

// CreateTask registers a task without enqueueing it. Used by the boundary
// bridge's two-phase create/spawn protocol.
func (r *Runtime) CreateTask(fn core.TaskFunc, priority core.TaskPriority) (*core.TaskHandle, error) {
	task, err := r.sched.CreateTask(fn, priority)
	if err != nil {
		return nil, err
	}
	return core.NewTaskHandle(task, r.sched), nil
}

// StartTask marks a previously created task runnable.
func (r *Runtime) StartTask(h *core.TaskHandle) error {
	if !r.state.IsRunning() {
		return ErrNotRunning
	}
	t, ok := r.sched.Lookup(h.ID())
	if !ok {
		return errors.New("unknown task")
	}
	return r.sched.Enqueue(t)
}

// Shutdown stops the runtime. grace > 0 lets queued and active tasks drain
// for up to that long before the workers exit; grace <= 0 drops pending
// tasks immediately. Either way the state ends at Stopped.
func (r *Runtime) Shutdown(grace time.Duration) error {
	r.logger.Info("runtime shutting down", core.F("grace", grace))
	r.delays.Stop()
	if grace <= 0 {
		r.pool.Stop()
		return nil
	}
	return r.pool.StopGraceful(grace)
}

// State returns the runtime lifecycle state.
func (r *Runtime) State() core.AsyncState { return r.state.State() }

// RuntimeStats is a point-in-time snapshot of scheduler and pool counters.
type RuntimeStats struct {
	ActiveTasks    int
	QueuedTasks    int
	CompletedTasks uint64
	WorkerThreads  int
	StackPooled    uint64
	StackHeap      uint64
}

// Stats returns current runtime statistics.
func (r *Runtime) Stats() RuntimeStats {
	pooled, heap := r.pool.StackStats()
	return RuntimeStats{
		ActiveTasks:    r.sched.ActiveTaskCount(),
		QueuedTasks:    r.sched.QueuedTaskCount(),
		CompletedTasks: r.sched.CompletedTaskCount(),
		WorkerThreads:  r.pool.WorkerCount(),
		StackPooled:    pooled,
		StackHeap:      heap,
	}
}

// RecentExecutions returns up to limit finished-task records, newest first.
func (r *Runtime) RecentExecutions(limit int) []core.TaskExecutionRecord {
	return r.pool.History().Recent(limit)
}

// Scheduler exposes the scheduler for advanced embedders and the bridge.
func (r *Runtime) Scheduler() *core.Scheduler { return r.sched }

// =============================================================================
// Global Runtime Helper (Singleton)
// =============================================================================

// The boundary bridge needs a process-wide runtime because generated code has
// no way to thread a context handle through its calling convention. The
// instance is guarded by an explicit init-once gate rather than package-level
// ambient construction.

var (
	globalRuntime *Runtime
	globalMu      sync.Mutex
)

// InitGlobalRuntime initializes and starts the global runtime. Calling it
// again before ShutdownGlobalRuntime is a no-op.
func InitGlobalRuntime(cfg Config) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalRuntime != nil {
		return nil
	}

	rt, err := New(cfg, nil)
	if err != nil {
		return err
	}
	rt.Start(context.Background())
	globalRuntime = rt
	return nil
}

// GetGlobalRuntime returns the global runtime instance.
// It panics if InitGlobalRuntime has not been called.
func GetGlobalRuntime() *Runtime {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalRuntime == nil {
		panic("global runtime not initialized. Call InitGlobalRuntime() first.")
	}
	return globalRuntime
}

// ShutdownGlobalRuntime stops and releases the global runtime.
func ShutdownGlobalRuntime() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalRuntime != nil {
		_ = globalRuntime.Shutdown(0)
		globalRuntime = nil
	}
}
