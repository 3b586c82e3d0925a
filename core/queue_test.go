package core

import "testing"

func TestTaskQueueFIFOWithinPriority(t *testing.T) {
	// Given three tasks pushed at the same priority
	q := NewTaskQueue()
	q.Push(1, PriorityNormal)
	q.Push(2, PriorityNormal)
	q.Push(3, PriorityNormal)

	// Then they pop in insertion order
	for want := TaskID(1); want <= 3; want++ {
		id, _, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop returned empty, want %v", want)
		}
		if id != want {
			t.Errorf("Pop = %v, want %v", id, want)
		}
	}
	if _, _, ok := q.Pop(); ok {
		t.Error("Pop on drained queue reported a task")
	}
}

func TestTaskQueueHigherPriorityFirst(t *testing.T) {
	// Given tasks of mixed priority pushed low-first
	q := NewTaskQueue()
	q.Push(10, PriorityLow)
	q.Push(11, PriorityNormal)
	q.Push(12, PriorityHigh)
	q.Push(13, PriorityHigh)

	// Then pop order is high (FIFO), normal, low
	wantOrder := []TaskID{12, 13, 11, 10}
	for _, want := range wantOrder {
		id, _, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop returned empty, want %v", want)
		}
		if id != want {
			t.Errorf("Pop = %v, want %v", id, want)
		}
	}
}

func TestTaskQueuePopReportsPriority(t *testing.T) {
	q := NewTaskQueue()
	q.Push(5, PriorityHigh)

	_, priority, ok := q.Pop()
	if !ok {
		t.Fatal("Pop returned empty")
	}
	if priority != PriorityHigh {
		t.Errorf("priority = %v, want high", priority)
	}
}

func TestTaskQueueRemove(t *testing.T) {
	q := NewTaskQueue()
	q.Push(1, PriorityNormal)
	q.Push(2, PriorityNormal)
	q.Push(3, PriorityNormal)

	if !q.Remove(2) {
		t.Fatal("Remove(2) = false, want true")
	}
	if q.Remove(2) {
		t.Error("second Remove(2) = true, want false")
	}
	if q.Remove(99) {
		t.Error("Remove of unknown id = true, want false")
	}

	id, _, _ := q.Pop()
	if id != 1 {
		t.Errorf("first Pop = %v, want 1", id)
	}
	id, _, _ = q.Pop()
	if id != 3 {
		t.Errorf("second Pop = %v, want 3", id)
	}
}

func TestTaskQueueRepushChangesPriority(t *testing.T) {
	// Given a low-priority task that is pushed again as high
	q := NewTaskQueue()
	q.Push(1, PriorityLow)
	q.Push(2, PriorityNormal)
	q.Push(1, PriorityHigh)

	if q.Len() != 2 {
		t.Fatalf("Len = %d after re-push, want 2", q.Len())
	}

	// Then the task runs under its new priority
	id, priority, _ := q.Pop()
	if id != 1 || priority != PriorityHigh {
		t.Errorf("Pop = (%v, %v), want (1, high)", id, priority)
	}
}

func TestTaskQueueClearReturnsDroppedIDs(t *testing.T) {
	q := NewTaskQueue()
	q.Push(1, PriorityLow)
	q.Push(2, PriorityHigh)

	dropped := q.Clear()
	if len(dropped) != 2 {
		t.Fatalf("Clear returned %d ids, want 2", len(dropped))
	}
	seen := map[TaskID]bool{}
	for _, id := range dropped {
		seen[id] = true
	}
	if !seen[1] || !seen[2] {
		t.Errorf("Clear returned %v, want ids 1 and 2", dropped)
	}
	if !q.IsEmpty() {
		t.Error("queue not empty after Clear")
	}
}
