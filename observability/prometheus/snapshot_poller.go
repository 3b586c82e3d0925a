package prometheus

import (
	"context"
	"sync"
	"time"

	asyncruntime "github.com/Swind/go-async-runtime"
	prom "github.com/prometheus/client_golang/prometheus"
)

// RuntimeSnapshotProvider provides current runtime stats snapshots.
type RuntimeSnapshotProvider interface {
	Stats() asyncruntime.RuntimeStats
	State() asyncruntime.AsyncState
}

// SnapshotPoller periodically exports Runtime.Stats() snapshots into
// Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	runtimesMu sync.RWMutex
	runtimes   map[string]RuntimeSnapshotProvider

	activeTasks    *prom.GaugeVec
	queuedTasks    *prom.GaugeVec
	completedTasks *prom.GaugeVec
	workerThreads  *prom.GaugeVec
	stackHeapAlloc *prom.GaugeVec
	runtimeState   *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	activeTasks := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "asyncruntime",
		Name:      "active_tasks",
		Help:      "Tasks currently executing on a worker.",
	}, []string{"runtime"})
	queuedTasks := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "asyncruntime",
		Name:      "queued_tasks",
		Help:      "Tasks waiting in the ready queue.",
	}, []string{"runtime"})
	completedTasks := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "asyncruntime",
		Name:      "completed_tasks_total",
		Help:      "Settled task count snapshot.",
	}, []string{"runtime"})
	workerThreads := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "asyncruntime",
		Name:      "worker_threads",
		Help:      "Worker count per runtime.",
	}, []string{"runtime"})
	stackHeapAlloc := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "asyncruntime",
		Name:      "stack_heap_fallbacks_total",
		Help:      "Scratch buffer requests served from the heap instead of the stack pool.",
	}, []string{"runtime"})
	runtimeState := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "asyncruntime",
		Name:      "state",
		Help:      "Runtime lifecycle state (0=idle, 1=running, 2=shutting_down, 3=stopped).",
	}, []string{"runtime"})

	var err error
	if activeTasks, err = registerCollector(reg, activeTasks); err != nil {
		return nil, err
	}
	if queuedTasks, err = registerCollector(reg, queuedTasks); err != nil {
		return nil, err
	}
	if completedTasks, err = registerCollector(reg, completedTasks); err != nil {
		return nil, err
	}
	if workerThreads, err = registerCollector(reg, workerThreads); err != nil {
		return nil, err
	}
	if stackHeapAlloc, err = registerCollector(reg, stackHeapAlloc); err != nil {
		return nil, err
	}
	if runtimeState, err = registerCollector(reg, runtimeState); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:       interval,
		runtimes:       make(map[string]RuntimeSnapshotProvider),
		activeTasks:    activeTasks,
		queuedTasks:    queuedTasks,
		completedTasks: completedTasks,
		workerThreads:  workerThreads,
		stackHeapAlloc: stackHeapAlloc,
		runtimeState:   runtimeState,
	}, nil
}

// AddRuntime adds or replaces a runtime snapshot provider by name.
func (p *SnapshotPoller) AddRuntime(name string, provider RuntimeSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "runtime")
	p.runtimesMu.Lock()
	p.runtimes[name] = provider
	p.runtimesMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.runtimesMu.RLock()
	defer p.runtimesMu.RUnlock()

	for name, provider := range p.runtimes {
		stats := provider.Stats()
		p.activeTasks.WithLabelValues(name).Set(float64(stats.ActiveTasks))
		p.queuedTasks.WithLabelValues(name).Set(float64(stats.QueuedTasks))
		p.completedTasks.WithLabelValues(name).Set(float64(stats.CompletedTasks))
		p.workerThreads.WithLabelValues(name).Set(float64(stats.WorkerThreads))
		p.stackHeapAlloc.WithLabelValues(name).Set(float64(stats.StackHeap))
		p.runtimeState.WithLabelValues(name).Set(float64(provider.State()))
	}
}
