package asyncruntime

import "github.com/Swind/go-async-runtime/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the asyncruntime package for most use cases.

// TaskID uniquely identifies a task for the lifetime of the process
type TaskID = core.TaskID

// TaskPriority is the scheduling hint attached to each task
type TaskPriority = core.TaskPriority

// TaskStatus tracks a task through its lifecycle
type TaskStatus = core.TaskStatus

// TaskFunc is the unit of work (Closure)
type TaskFunc = core.TaskFunc

// TaskHandle is the caller-facing view of a spawned task
type TaskHandle = core.TaskHandle

// Future is the single-assignment result cell exchanged across the boundary
type Future = core.Future

// FutureValue is the tagged union carried by a Future
type FutureValue = core.FutureValue

// FutureKind tags the payload variant of a FutureValue
type FutureKind = core.FutureKind

// AsyncState is the runtime lifecycle state
type AsyncState = core.AsyncState

// Priority constants
const (
	PriorityLow    TaskPriority = core.PriorityLow
	PriorityNormal TaskPriority = core.PriorityNormal
	PriorityHigh   TaskPriority = core.PriorityHigh
)

// Status constants
const (
	StatusPending   TaskStatus = core.StatusPending
	StatusRunning   TaskStatus = core.StatusRunning
	StatusCompleted TaskStatus = core.StatusCompleted
	StatusCancelled TaskStatus = core.StatusCancelled
	StatusFailed    TaskStatus = core.StatusFailed
)

// Lifecycle state constants
const (
	StateIdle         AsyncState = core.StateIdle
	StateRunning      AsyncState = core.StateRunning
	StateShuttingDown AsyncState = core.StateShuttingDown
	StateStopped      AsyncState = core.StateStopped
)

// Convenience constructors for FutureValue
var (
	NoneValue    = core.NoneValue
	IntegerValue = core.IntegerValue
	FloatValue   = core.FloatValue
	BooleanValue = core.BooleanValue
	StringValue  = core.StringValue
	PointerValue = core.PointerValue
)
