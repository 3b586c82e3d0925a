// Package bridge exposes the boundary entry points that let natively
// compiled program code create tasks, await them, and exchange typed Future
// values with the runtime without depending on its internal types.
//
// Everything crossing the boundary is an opaque integer Handle resolved
// through bridge-owned tables, never a raw Go pointer: unknown or already
// freed handles fail soft with documented sentinel values, and a double free
// degrades to a no-op instead of corrupting memory. Usage errors on this
// surface never panic, because the caller is generated machine code with no
// exception-handling convention.
package bridge

import (
	"context"
	"fmt"
	"sync"

	asyncruntime "github.com/Swind/go-async-runtime"
	"github.com/Swind/go-async-runtime/core"
)

// Handle is an opaque, pointer-sized token handed to generated code.
// 0 is never a valid handle.
type Handle uint64

// TaskMain is the signature class accepted at task registration: zero
// arguments, returning an opaque result pointer the runtime never
// dereferences.
type TaskMain func() uintptr

// Status codes returned by SpawnTask.
const (
	SpawnOK             int32 = 0
	SpawnUnknownHandle  int32 = 1
	SpawnRejected       int32 = 2
	SpawnAlreadyStarted int32 = 3
)

type bridgeTask struct {
	main     TaskMain
	handle   *core.TaskHandle
	spawned  bool
	resolved bool
	result   uintptr
}

// Bridge owns the handle tables mapping boundary tokens to runtime objects.
// One Bridge serves one Runtime; generated code that cannot thread a context
// handle uses the package-level init-once instance instead.
type Bridge struct {
	rt *asyncruntime.Runtime

	mu         sync.Mutex
	nextHandle uint64
	tasks      map[Handle]*bridgeTask
	futures    map[Handle]*core.Future
	strings    map[Handle]string
}

// NewBridge creates a bridge bound to the given runtime.
func NewBridge(rt *asyncruntime.Runtime) *Bridge {
	return &Bridge{
		rt:      rt,
		tasks:   make(map[Handle]*bridgeTask),
		futures: make(map[Handle]*core.Future),
		strings: make(map[Handle]string),
	}
}

func (b *Bridge) allocHandleLocked() Handle {
	b.nextHandle++
	return Handle(b.nextHandle)
}

// CreateTask wraps a boundary function in a deferred computation and
// registers it under a fresh task id. The task does not start executing
// until SpawnTask (worker execution) or Await (inline resolution).
// Returns 0 on a nil function, a negative argCount, or a runtime that is
// shutting down.
func (b *Bridge) CreateTask(fn TaskMain, argCount int64) Handle {
	if fn == nil || argCount < 0 {
		return 0
	}

	wrapped := func(ctx context.Context) (core.FutureValue, error) {
		return core.PointerValue(fn()), nil
	}
	th, err := b.rt.CreateTask(wrapped, core.PriorityNormal)
	if err != nil {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.allocHandleLocked()
	b.tasks[h] = &bridgeTask{main: fn, handle: th}
	return h
}

// SpawnTask marks a created task runnable. Returns 0 on success, a nonzero
// status code otherwise.
func (b *Bridge) SpawnTask(h Handle) int32 {
	// The check and the enqueue stay in one critical section so two racing
	// spawns of the same handle cannot both enqueue the task.
	b.mu.Lock()
	defer b.mu.Unlock()

	bt, ok := b.tasks[h]
	if !ok {
		return SpawnUnknownHandle
	}
	if bt.spawned || bt.resolved {
		return SpawnAlreadyStarted
	}

	if err := b.rt.StartTask(bt.handle); err != nil {
		return SpawnRejected
	}

	bt.spawned = true
	return SpawnOK
}

// Await resolves a task and returns its result pointer, or 0 on any
// failure. A spawned task is joined (the worker pool produces the result); a
// created-but-never-spawned task is resolved synchronously on the calling
// thread, since its computation has no genuine suspension point. Awaiting
// the same handle again returns the memoized result.
func (b *Bridge) Await(h Handle) uintptr {
	b.mu.Lock()
	bt, ok := b.tasks[h]
	b.mu.Unlock()
	if !ok {
		return 0
	}

	b.mu.Lock()
	if bt.resolved {
		result := bt.result
		b.mu.Unlock()
		return result
	}
	spawned := bt.spawned
	b.mu.Unlock()

	var result uintptr
	if spawned {
		value, err := bt.handle.Join(context.Background())
		if err == nil && value.Kind == core.KindPointer {
			result = value.Ptr
		}
	} else {
		result = b.resolveInline(bt)
	}

	b.mu.Lock()
	bt.resolved = true
	bt.result = result
	b.mu.Unlock()
	return result
}

// resolveInline executes the boundary function on the calling thread and
// settles the registered task, so the scheduler's registry and counters see
// the same outcome a worker would have produced.
func (b *Bridge) resolveInline(bt *bridgeTask) uintptr {
	var (
		result uintptr
		runErr error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("task panic: %v", r)
				result = 0
			}
		}()
		result = bt.main()
	}()

	b.rt.Scheduler().SettleInline(bt.handle.ID(), core.PointerValue(result), runErr)
	if runErr != nil {
		return 0
	}
	return result
}

// TaskStatus reports the status of a bridged task; false for unknown handles.
func (b *Bridge) TaskStatus(h Handle) (core.TaskStatus, bool) {
	b.mu.Lock()
	bt, ok := b.tasks[h]
	b.mu.Unlock()
	if !ok {
		return core.StatusPending, false
	}
	return bt.handle.Status(), true
}

// TaskFree releases a task handle from the bridge table. Freeing an unknown
// or already freed handle is a no-op.
func (b *Bridge) TaskFree(h Handle) {
	b.mu.Lock()
	delete(b.tasks, h)
	b.mu.Unlock()
}

// =============================================================================
// Process-wide bridge (init-once gate)
// =============================================================================

// Generated code has no way to thread a *Bridge through its calling
// convention, so a single process-wide instance is kept behind an explicit
// init-once gate.

var (
	defaultBridge *Bridge
	defaultMu     sync.Mutex
)

// Init binds the process-wide bridge to the given runtime. Calling it again
// before Reset is a no-op.
func Init(rt *asyncruntime.Runtime) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultBridge == nil {
		defaultBridge = NewBridge(rt)
	}
}

// Get returns the process-wide bridge.
// It panics if Init has not been called.
func Get() *Bridge {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultBridge == nil {
		panic("bridge not initialized. Call bridge.Init() first.")
	}
	return defaultBridge
}

// Reset tears the process-wide bridge down. Handles held by generated code
// become invalid (their boundary calls return sentinels).
func Reset() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultBridge = nil
}
