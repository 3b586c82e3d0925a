// Package asyncruntime provides the task-execution runtime backing a compiled
// language's concurrency primitives: a priority scheduler running tasks on a
// pool of workers, a typed future/promise protocol, and (via the bridge
// subpackage) a C-convention entry-point surface for generated code.
//
// # Quick Start
//
// Initialize the global runtime at process start:
//
//	asyncruntime.InitGlobalRuntime(asyncruntime.DefaultConfig())
//	defer asyncruntime.ShutdownGlobalRuntime()
//
// Spawn a task and wait for its result:
//
//	rt := asyncruntime.GetGlobalRuntime()
//	handle, _ := rt.Spawn(func(ctx context.Context) (core.FutureValue, error) {
//		return core.IntegerValue(42), nil
//	})
//	value, err := handle.Join(context.Background())
//
// # Key Concepts
//
// Task: a unit of deferred work identified by a TaskID, tracked through
// Pending/Running/Completed/Cancelled/Failed. Priorities (Low/Normal/High)
// are a scheduling hint: within a class tasks run in submission order, and a
// High task is dequeued before Normal and Low tasks that are still pending.
//
// Future: a single-assignment result cell holding a tagged value (integer,
// float, boolean, string, pointer) or an error. Futures are the currency of
// the boundary: generated code constructs and consumes them through the
// bridge package, which owns their handles.
//
// Cancellation is cooperative. A task still pending in the queue is removed
// outright; a running task has a flag set and its context cancelled, and a
// task that finishes first still reports Completed.
//
// SpawnAfter defers a task's enqueue until a delay elapses; a single timer
// goroutine releases due tasks into the ready queue.
//
// # Configuration
//
// Config is YAML-loadable (worker_threads, queue_capacity, max_stack_size,
// stack_pool_size, poll_interval, enable_work_stealing, debug); see
// LoadConfig. Metrics can be exported to Prometheus through
// observability/prometheus.
package asyncruntime
