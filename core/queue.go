package core

import (
	"sync"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// queueKey orders the ready queue: higher priority first, then insertion
// order (FIFO) within the same priority class.
type queueKey struct {
	priority TaskPriority
	seq      uint64
}

// compareQueueKeys makes the tree minimum the next task to run.
func compareQueueKeys(a, b interface{}) int {
	ka, kb := a.(queueKey), b.(queueKey)
	switch {
	case ka.priority > kb.priority:
		return -1
	case ka.priority < kb.priority:
		return 1
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	default:
		return 0
	}
}

// TaskQueue is the thread-safe holding area for runnable task ids. It is a
// red-black tree keyed by (priority, sequence), which gives O(log n) push,
// pop and removal-by-id while preserving FIFO order within a priority class.
//
// A single internal lock serializes all operations; no method may be called
// while already holding it. Capacity is advisory only: Push never rejects.
type TaskQueue struct {
	mu      sync.Mutex
	tree    *redblacktree.Tree
	index   map[TaskID]queueKey
	nextSeq uint64
}

// NewTaskQueue creates an empty queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{
		tree:  redblacktree.NewWith(compareQueueKeys),
		index: make(map[TaskID]queueKey),
	}
}

// Push inserts a task id with the given priority. A task already present is
// requeued under its new priority (its old entry is dropped first).
func (q *TaskQueue) Push(id TaskID, priority TaskPriority) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if old, ok := q.index[id]; ok {
		q.tree.Remove(old)
	}

	key := queueKey{priority: priority, seq: q.nextSeq}
	q.nextSeq++
	q.tree.Put(key, id)
	q.index[id] = key
}

// Pop removes and returns the highest-priority, earliest-inserted task id.
// The second return is false when the queue is empty.
func (q *TaskQueue) Pop() (TaskID, TaskPriority, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	node := q.tree.Left()
	if node == nil {
		return 0, PriorityLow, false
	}

	key := node.Key.(queueKey)
	id := node.Value.(TaskID)
	q.tree.Remove(key)
	delete(q.index, id)
	return id, key.priority, true
}

// Remove drops a specific pending task and reports whether it was found.
// Used by cancellation of not-yet-started tasks.
func (q *TaskQueue) Remove(id TaskID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	key, ok := q.index[id]
	if !ok {
		return false
	}
	q.tree.Remove(key)
	delete(q.index, id)
	return true
}

// Len returns the number of queued tasks.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tree.Size()
}

// IsEmpty reports whether the queue holds no tasks.
func (q *TaskQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Clear removes all queued tasks and returns the ids that were dropped, so
// the caller can settle their handles.
func (q *TaskQueue) Clear() []TaskID {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := make([]TaskID, 0, len(q.index))
	for id := range q.index {
		dropped = append(dropped, id)
	}
	q.tree.Clear()
	q.index = make(map[TaskID]queueKey)
	return dropped
}
