package prometheus

import (
	"context"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	asyncruntime "github.com/Swind/go-async-runtime"
	"github.com/Swind/go-async-runtime/core"
)

type fakeSnapshotProvider struct {
	stats asyncruntime.RuntimeStats
	state core.AsyncState
}

func (p *fakeSnapshotProvider) Stats() asyncruntime.RuntimeStats { return p.stats }
func (p *fakeSnapshotProvider) State() core.AsyncState           { return p.state }

func TestSnapshotPollerExportsGauges(t *testing.T) {
	// Given a poller watching a fixed snapshot
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}
	poller.AddRuntime("rt", &fakeSnapshotProvider{
		stats: asyncruntime.RuntimeStats{
			ActiveTasks:    2,
			QueuedTasks:    5,
			CompletedTasks: 17,
			WorkerThreads:  4,
			StackHeap:      1,
		},
		state: core.StateRunning,
	})

	// When polling runs at least once
	poller.Start(context.Background())
	defer poller.Stop()
	time.Sleep(20 * time.Millisecond)

	// Then every gauge mirrors the snapshot
	checks := []struct {
		gauge *prom.GaugeVec
		want  float64
	}{
		{poller.activeTasks, 2},
		{poller.queuedTasks, 5},
		{poller.completedTasks, 17},
		{poller.workerThreads, 4},
		{poller.stackHeapAlloc, 1},
		{poller.runtimeState, float64(core.StateRunning)},
	}
	for i, c := range checks {
		if got := testutil.ToFloat64(c.gauge.WithLabelValues("rt")); got != c.want {
			t.Errorf("gauge %d = %v, want %v", i, got, c.want)
		}
	}
}

func TestSnapshotPollerTracksLiveRuntime(t *testing.T) {
	// Given a real runtime registered with the poller
	rt, err := asyncruntime.New(asyncruntime.Config{WorkerThreads: 2}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	rt.Start(context.Background())
	defer rt.Shutdown(0)

	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}
	poller.AddRuntime("live", rt)
	poller.Start(context.Background())
	defer poller.Stop()

	// When tasks run to completion
	h, err := rt.Spawn(func(ctx context.Context) (core.FutureValue, error) {
		return core.NoneValue(), nil
	})
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := h.Join(ctx); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	// Then the completed gauge eventually reflects the settled task
	deadline := time.Now().Add(2 * time.Second)
	for {
		if testutil.ToFloat64(poller.completedTasks.WithLabelValues("live")) >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("completed gauge never advanced")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := testutil.ToFloat64(poller.workerThreads.WithLabelValues("live")); got != 2 {
		t.Errorf("worker gauge = %v, want 2", got)
	}
}

func TestSnapshotPollerStartStopAreIdempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.Start(context.Background())
	poller.Start(context.Background())
	poller.Stop()
	poller.Stop()

	// A second start after stop works.
	poller.Start(context.Background())
	poller.Stop()
}
