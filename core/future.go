package core

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// =============================================================================
// FutureState / FutureValue
// =============================================================================

// FutureState is monotonic: Pending -> {Completed | Failed}, never backwards.
type FutureState int32

const (
	FuturePending FutureState = iota
	FutureCompleted
	FutureFailed
)

func (s FutureState) String() string {
	switch s {
	case FuturePending:
		return "pending"
	case FutureCompleted:
		return "completed"
	case FutureFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FutureKind tags the payload variant carried by a FutureValue.
type FutureKind int32

const (
	KindNone FutureKind = iota
	KindInteger
	KindFloat
	KindBoolean
	KindString
	KindPointer
)

func (k FutureKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "string"
	case KindPointer:
		return "pointer"
	default:
		return "unknown"
	}
}

// FutureValue is the tagged union exchanged across the boundary. Only the
// field selected by Kind is meaningful; Ptr carries an opaque raw address the
// runtime never dereferences.
type FutureValue struct {
	Kind  FutureKind
	Int   int64
	Float float64
	Bool  bool
	Str   string
	Ptr   uintptr
}

func NoneValue() FutureValue               { return FutureValue{Kind: KindNone} }
func IntegerValue(v int64) FutureValue     { return FutureValue{Kind: KindInteger, Int: v} }
func FloatValue(v float64) FutureValue     { return FutureValue{Kind: KindFloat, Float: v} }
func BooleanValue(v bool) FutureValue      { return FutureValue{Kind: KindBoolean, Bool: v} }
func StringValue(v string) FutureValue     { return FutureValue{Kind: KindString, Str: v} }
func PointerValue(ptr uintptr) FutureValue { return FutureValue{Kind: KindPointer, Ptr: ptr} }

// =============================================================================
// Future
// =============================================================================

// Future is a single-assignment result cell. Once the state leaves Pending
// the payload (or error) is immutable; later Complete/Fail calls are ignored.
type Future struct {
	state atomic.Int32

	mu    sync.Mutex
	value FutureValue
	err   string
}

// NewPendingFuture creates a Future that has not been resolved yet.
func NewPendingFuture() *Future {
	return &Future{}
}

func newResolved(state FutureState, value FutureValue, err string) *Future {
	f := &Future{value: value, err: err}
	f.state.Store(int32(state))
	return f
}

// ReadyI64 creates an already-completed Future holding an integer.
func ReadyI64(v int64) *Future { return newResolved(FutureCompleted, IntegerValue(v), "") }

// ReadyF64 creates an already-completed Future holding a float.
func ReadyF64(v float64) *Future { return newResolved(FutureCompleted, FloatValue(v), "") }

// ReadyBool creates an already-completed Future holding a boolean.
func ReadyBool(v bool) *Future { return newResolved(FutureCompleted, BooleanValue(v), "") }

// ReadyString creates an already-completed Future holding a string.
func ReadyString(v string) *Future { return newResolved(FutureCompleted, StringValue(v), "") }

// ReadyPtr creates an already-completed Future holding an opaque pointer.
func ReadyPtr(ptr uintptr) *Future { return newResolved(FutureCompleted, PointerValue(ptr), "") }

// FailedFuture creates an already-failed Future carrying an error message.
func FailedFuture(msg string) *Future {
	if msg == "" {
		msg = "unknown error"
	}
	return newResolved(FutureFailed, NoneValue(), msg)
}

// State returns the current state.
func (f *Future) State() FutureState {
	return FutureState(f.state.Load())
}

// IsCompleted reports whether the Future completed successfully.
func (f *Future) IsCompleted() bool {
	return f.State() == FutureCompleted
}

// Complete resolves the Future with a value. It reports whether this call won
// the resolution; a Future that already left Pending is left untouched.
func (f *Future) Complete(value FutureValue) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.State() != FuturePending {
		return false
	}
	f.value = value
	f.state.Store(int32(FutureCompleted))
	return true
}

// Fail resolves the Future with an error message. Same single-assignment rule
// as Complete.
func (f *Future) Fail(msg string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.State() != FuturePending {
		return false
	}
	if msg == "" {
		msg = "unknown error"
	}
	f.err = msg
	f.state.Store(int32(FutureFailed))
	return true
}

// AwaitValue blocks until the Future leaves Pending, then returns the payload
// or the error. The wait is a busy yield, not a parked wait: every Future in
// this runtime wraps a computation that resolves on its first poll, so a
// Future observed Pending here is only ever transiently so. A Future stuck
// Pending indicates a bridging defect upstream.
func (f *Future) AwaitValue() (FutureValue, error) {
	for {
		switch f.State() {
		case FutureCompleted:
			f.mu.Lock()
			v := f.value
			f.mu.Unlock()
			return v, nil
		case FutureFailed:
			f.mu.Lock()
			msg := f.err
			f.mu.Unlock()
			return NoneValue(), errors.New(msg)
		default:
			runtime.Gosched()
		}
	}
}
