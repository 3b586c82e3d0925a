package core

import "sync/atomic"

// AsyncState is the lifecycle state of the runtime as a whole.
type AsyncState uint32

const (
	// StateIdle: runtime constructed, workers not started
	StateIdle AsyncState = iota

	// StateRunning: workers are executing tasks
	StateRunning

	// StateShuttingDown: no new spawns accepted, in-flight tasks draining
	StateShuttingDown

	// StateStopped: all workers exited
	StateStopped
)

func (s AsyncState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StateManager holds the single process-wide runtime state. All operations
// are lock-free atomic loads and stores.
//
// Transition does not validate that the requested transition is legal;
// callers are responsible for correct sequencing.
type StateManager struct {
	state atomic.Uint32
}

// NewStateManager creates a state manager in the Idle state.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// State returns the current state.
func (m *StateManager) State() AsyncState {
	return AsyncState(m.state.Load())
}

// Transition unconditionally stores the new state.
func (m *StateManager) Transition(next AsyncState) {
	m.state.Store(uint32(next))
}

// IsRunning reports whether the runtime is actively executing tasks.
func (m *StateManager) IsRunning() bool {
	return m.State() == StateRunning
}

// IsShuttingDown reports whether shutdown has begun.
func (m *StateManager) IsShuttingDown() bool {
	return m.State() == StateShuttingDown
}

// Reset forces the state back to Idle.
func (m *StateManager) Reset() {
	m.Transition(StateIdle)
}
