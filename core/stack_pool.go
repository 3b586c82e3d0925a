package core

import "sync/atomic"

// defaultStackSegment is the size of each preallocated scratch buffer. It is
// deliberately much smaller than the per-task ceiling; a request that does
// not fit falls back to the heap.
const defaultStackSegment = 64 * 1024

// StackPool holds a fixed number of preallocated scratch buffers for a
// worker, so short-lived tasks do not allocate a fresh buffer per execution.
// Exhaustion is not an error: a Get that finds the pool empty (or asks for
// more than maxStackSize bytes) allocates from the heap and is counted.
type StackPool struct {
	bufs         chan []byte
	segmentSize  int
	maxStackSize int

	pooledHits    atomic.Uint64
	heapFallbacks atomic.Uint64
}

// NewStackPool preallocates poolSize buffers. maxStackSize caps both the
// segment size and the largest request served from the pool.
func NewStackPool(poolSize, maxStackSize int) *StackPool {
	if poolSize < 1 {
		poolSize = 1
	}
	if maxStackSize < 1 {
		maxStackSize = defaultStackSegment
	}
	segment := defaultStackSegment
	if segment > maxStackSize {
		segment = maxStackSize
	}

	p := &StackPool{
		bufs:         make(chan []byte, poolSize),
		segmentSize:  segment,
		maxStackSize: maxStackSize,
	}
	for i := 0; i < poolSize; i++ {
		p.bufs <- make([]byte, segment)
	}
	return p
}

// Get returns a buffer of at least size bytes. Buffers larger than the pool's
// segment size are heap-allocated.
func (p *StackPool) Get(size int) []byte {
	if size <= p.segmentSize {
		select {
		case buf := <-p.bufs:
			p.pooledHits.Add(1)
			return buf
		default:
		}
	}
	p.heapFallbacks.Add(1)
	if size < p.segmentSize {
		size = p.segmentSize
	}
	if size > p.maxStackSize {
		size = p.maxStackSize
	}
	return make([]byte, size)
}

// Put returns a buffer to the pool. Oversized or surplus buffers are dropped
// for the garbage collector.
func (p *StackPool) Put(buf []byte) {
	if len(buf) != p.segmentSize {
		return
	}
	select {
	case p.bufs <- buf:
	default:
	}
}

// Stats returns how many Gets were served from the pool and how many fell
// back to the heap.
func (p *StackPool) Stats() (pooled, heap uint64) {
	return p.pooledHits.Load(), p.heapFallbacks.Load()
}
