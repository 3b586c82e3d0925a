package bridge

import "github.com/Swind/go-async-runtime/core"

// Future constructors and consumers for the boundary. Every constructor
// returns a fresh handle owned by the caller; the matching FutureFree call is
// the single legal release. Await calls return documented sentinels on a
// null/unknown handle or a mismatched payload tag: -1 for integers, 0.0 for
// floats, 0 for booleans, 0 (invalid handle) for strings and pointers.

func (b *Bridge) registerFuture(f *core.Future) Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.allocHandleLocked()
	b.futures[h] = f
	return h
}

func (b *Bridge) lookupFuture(h Handle) (*core.Future, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.futures[h]
	return f, ok
}

// FutureReadyI64 creates an already-completed Future holding an integer.
func (b *Bridge) FutureReadyI64(value int64) Handle {
	return b.registerFuture(core.ReadyI64(value))
}

// FutureReadyF64 creates an already-completed Future holding a float.
func (b *Bridge) FutureReadyF64(value float64) Handle {
	return b.registerFuture(core.ReadyF64(value))
}

// FutureReadyBool creates an already-completed Future holding a boolean.
// The value follows the C convention: 0 is false, nonzero is true.
func (b *Bridge) FutureReadyBool(value int32) Handle {
	return b.registerFuture(core.ReadyBool(value != 0))
}

// FutureReadyString creates an already-completed Future holding a string.
// Callers passing raw byte payloads convert them with string(), which keeps
// invalid UTF-8 bytes intact for lossy downstream handling.
func (b *Bridge) FutureReadyString(value string) Handle {
	return b.registerFuture(core.ReadyString(value))
}

// FutureReadyPtr creates an already-completed Future holding an opaque
// pointer value.
func (b *Bridge) FutureReadyPtr(ptr uintptr) Handle {
	return b.registerFuture(core.ReadyPtr(ptr))
}

// FutureFailed creates an already-failed Future carrying an error message.
func (b *Bridge) FutureFailed(message string) Handle {
	return b.registerFuture(core.FailedFuture(message))
}

// FutureAwaitI64 consumes an integer Future. Sentinel: -1.
func (b *Bridge) FutureAwaitI64(h Handle) int64 {
	f, ok := b.lookupFuture(h)
	if !ok {
		return -1
	}
	value, err := f.AwaitValue()
	if err != nil || value.Kind != core.KindInteger {
		return -1
	}
	return value.Int
}

// FutureAwaitF64 consumes a float Future. Sentinel: 0.0.
func (b *Bridge) FutureAwaitF64(h Handle) float64 {
	f, ok := b.lookupFuture(h)
	if !ok {
		return 0.0
	}
	value, err := f.AwaitValue()
	if err != nil || value.Kind != core.KindFloat {
		return 0.0
	}
	return value.Float
}

// FutureAwaitBool consumes a boolean Future. Returns 1 for true, 0 for
// false or any failure.
func (b *Bridge) FutureAwaitBool(h Handle) int32 {
	f, ok := b.lookupFuture(h)
	if !ok {
		return 0
	}
	value, err := f.AwaitValue()
	if err != nil || value.Kind != core.KindBoolean {
		return 0
	}
	if value.Bool {
		return 1
	}
	return 0
}

// FutureAwaitString consumes a string Future. The payload is handed out as a
// string-table entry the caller reads with StringData and must release
// exactly once with StringFree. Sentinel: 0.
func (b *Bridge) FutureAwaitString(h Handle) Handle {
	f, ok := b.lookupFuture(h)
	if !ok {
		return 0
	}
	value, err := f.AwaitValue()
	if err != nil || value.Kind != core.KindString {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	ref := b.allocHandleLocked()
	b.strings[ref] = value.Str
	return ref
}

// FutureAwaitPtr consumes a pointer Future. Sentinel: 0.
func (b *Bridge) FutureAwaitPtr(h Handle) uintptr {
	f, ok := b.lookupFuture(h)
	if !ok {
		return 0
	}
	value, err := f.AwaitValue()
	if err != nil || value.Kind != core.KindPointer {
		return 0
	}
	return value.Ptr
}

// FutureIsCompleted returns 1 iff the Future completed successfully, 0
// otherwise (including unknown handles and Failed futures).
func (b *Bridge) FutureIsCompleted(h Handle) int32 {
	f, ok := b.lookupFuture(h)
	if !ok {
		return 0
	}
	if f.IsCompleted() {
		return 1
	}
	return 0
}

// FutureError returns the error message of a Failed future, or "" and false
// when the handle is unknown or the future did not fail.
func (b *Bridge) FutureError(h Handle) (string, bool) {
	f, ok := b.lookupFuture(h)
	if !ok || f.State() != core.FutureFailed {
		return "", false
	}
	_, err := f.AwaitValue()
	if err == nil {
		return "", false
	}
	return err.Error(), true
}

// FutureFree releases a Future handle. Exactly one free per handle is the
// contract; a second free finds the table entry gone and is a no-op.
func (b *Bridge) FutureFree(h Handle) {
	b.mu.Lock()
	delete(b.futures, h)
	b.mu.Unlock()
}

// StringData reads a string-table entry produced by FutureAwaitString.
func (b *Bridge) StringData(ref Handle) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.strings[ref]
	return s, ok
}

// StringFree releases a string buffer previously handed across the boundary
// by FutureAwaitString.
func (b *Bridge) StringFree(ref Handle) {
	b.mu.Lock()
	delete(b.strings, ref)
	b.mu.Unlock()
}
