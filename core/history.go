package core

import (
	"sync"
	"time"
)

const defaultHistoryCapacity = 100

// TaskExecutionRecord captures a finished task execution event.
type TaskExecutionRecord struct {
	ID         TaskID
	Priority   TaskPriority
	WorkerID   int
	Status     TaskStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
}

// ExecutionHistory is a fixed-capacity ring of recent execution records,
// newest first on read.
type ExecutionHistory struct {
	mu    sync.Mutex
	items []TaskExecutionRecord
	head  int
	count int
}

// NewExecutionHistory creates a history ring with the given capacity.
func NewExecutionHistory(capacity int) *ExecutionHistory {
	if capacity < 1 {
		capacity = defaultHistoryCapacity
	}
	return &ExecutionHistory{items: make([]TaskExecutionRecord, capacity)}
}

// Add records an execution, evicting the oldest entry when full.
func (h *ExecutionHistory) Add(record TaskExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items[h.head] = record
	h.head = (h.head + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

// Recent returns up to limit records, most recent first. limit <= 0 means all
// retained records.
func (h *ExecutionHistory) Recent(limit int) []TaskExecutionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return nil
	}
	if limit <= 0 || limit > h.count {
		limit = h.count
	}

	out := make([]TaskExecutionRecord, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (h.head - 1 - i + len(h.items)) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out
}

// Last returns the most recent record, if any.
func (h *ExecutionHistory) Last() (TaskExecutionRecord, bool) {
	recent := h.Recent(1)
	if len(recent) == 0 {
		return TaskExecutionRecord{}, false
	}
	return recent[0], true
}
