package core

import "testing"

func TestStackPoolServesPooledBuffers(t *testing.T) {
	// Given a pool pre-filled with segments
	p := NewStackPool(4, 2*1024*1024)

	// When a buffer small enough for a segment is requested and returned
	buf := p.Get(1024)
	if len(buf) < 1024 {
		t.Fatalf("Get(1024) returned %d bytes", len(buf))
	}
	p.Put(buf)

	pooled, heap := p.Stats()
	if pooled != 1 {
		t.Errorf("pooled hits = %d, want 1", pooled)
	}
	if heap != 0 {
		t.Errorf("heap fallbacks = %d, want 0", heap)
	}
}

func TestStackPoolFallsBackToHeapForLargeRequests(t *testing.T) {
	p := NewStackPool(4, 2*1024*1024)

	// A request larger than the segment size cannot come from the pool.
	buf := p.Get(defaultStackSegment + 1)
	if len(buf) != defaultStackSegment+1 {
		t.Fatalf("Get returned %d bytes, want %d", len(buf), defaultStackSegment+1)
	}

	_, heap := p.Stats()
	if heap != 1 {
		t.Errorf("heap fallbacks = %d, want 1", heap)
	}
}

func TestStackPoolExhaustionFallsBackToHeap(t *testing.T) {
	// Given a pool with a single segment
	p := NewStackPool(1, 2*1024*1024)

	first := p.Get(64)
	second := p.Get(64)

	pooled, heap := p.Stats()
	if pooled != 1 || heap != 1 {
		t.Errorf("stats = (%d pooled, %d heap), want (1, 1)", pooled, heap)
	}

	// Returning buffers past capacity must not block.
	p.Put(first)
	p.Put(second)
}

func TestStackPoolPutIgnoresForeignBuffers(t *testing.T) {
	p := NewStackPool(2, 2*1024*1024)

	// Oddly-sized buffers are dropped rather than pooled.
	p.Put(make([]byte, 17))
	p.Put(nil)

	buf := p.Get(64)
	if len(buf) != defaultStackSegment {
		t.Errorf("Get after foreign Put returned %d bytes, want segment size %d", len(buf), defaultStackSegment)
	}
}
