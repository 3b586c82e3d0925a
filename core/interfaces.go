package core

import (
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task computation panics during execution.
// The worker that caught the panic keeps running; the task is recorded as
// Failed with the captured message.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - runtimeName: The name of the runtime where the panic occurred
	// - workerID: The ID of the worker executing the task
	// - taskID: The id of the panicked task
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(runtimeName string, workerID int, taskID TaskID, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(runtimeName string, workerID int, taskID TaskID, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Worker %d @ %s] %s panic: %v\nStack trace:\n%s",
		workerID, runtimeName, taskID, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting task execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting task execution
// performance.
type Metrics interface {
	// RecordTaskDuration records how long a task took to execute.
	RecordTaskDuration(runtimeName string, priority TaskPriority, duration time.Duration)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(runtimeName string, panicInfo any)

	// RecordQueueDepth records the current ready-queue depth.
	RecordQueueDepth(runtimeName string, depth int)

	// RecordTaskRejected records that a spawn was rejected (e.g. during shutdown).
	RecordTaskRejected(runtimeName string, reason string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskDuration is a no-op.
func (m *NilMetrics) RecordTaskDuration(runtimeName string, priority TaskPriority, duration time.Duration) {
}

// RecordTaskPanic is a no-op.
func (m *NilMetrics) RecordTaskPanic(runtimeName string, panicInfo any) {
}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(runtimeName string, depth int) {
}

// RecordTaskRejected is a no-op.
func (m *NilMetrics) RecordTaskRejected(runtimeName string, reason string) {
}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected spawns
// =============================================================================

// RejectedTaskHandler is called when the scheduler refuses a task. This
// happens when the runtime has begun shutting down.
//
// Implementations should be thread-safe as they may be called concurrently.
type RejectedTaskHandler interface {
	// HandleRejectedTask is called when a task is rejected.
	HandleRejectedTask(runtimeName string, reason string)
}

// DefaultRejectedTaskHandler provides a basic handler that logs rejected tasks.
type DefaultRejectedTaskHandler struct{}

// HandleRejectedTask logs the rejected task.
func (h *DefaultRejectedTaskHandler) HandleRejectedTask(runtimeName string, reason string) {
	fmt.Printf("[Runtime %s] Task rejected: %s\n", runtimeName, reason)
}

// =============================================================================
// SchedulerOptions: extension points for the Scheduler
// =============================================================================

// SchedulerOptions holds the pluggable handlers consumed by the scheduler and
// the worker pool. All fields are optional; defaults are applied when nil.
type SchedulerOptions struct {
	// PanicHandler is called when a task panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics records task execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// RejectedTaskHandler is called when a spawn is rejected. Defaults to
	// DefaultRejectedTaskHandler.
	RejectedTaskHandler RejectedTaskHandler

	// Logger receives internal diagnostics. Defaults to NoOpLogger.
	Logger Logger
}

// DefaultSchedulerOptions returns options with default handlers.
func DefaultSchedulerOptions() *SchedulerOptions {
	return &SchedulerOptions{
		PanicHandler:        &DefaultPanicHandler{},
		Metrics:             &NilMetrics{},
		RejectedTaskHandler: &DefaultRejectedTaskHandler{},
		Logger:              NewNoOpLogger(),
	}
}

func (o *SchedulerOptions) withDefaults() *SchedulerOptions {
	out := DefaultSchedulerOptions()
	if o == nil {
		return out
	}
	if o.PanicHandler != nil {
		out.PanicHandler = o.PanicHandler
	}
	if o.Metrics != nil {
		out.Metrics = o.Metrics
	}
	if o.RejectedTaskHandler != nil {
		out.RejectedTaskHandler = o.RejectedTaskHandler
	}
	if o.Logger != nil {
		out.Logger = o.Logger
	}
	return out
}
