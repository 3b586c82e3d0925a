package prometheus

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	core "github.com/Swind/go-async-runtime/core"
)

func histogramSampleCount(t *testing.T, vec *prom.HistogramVec, labels ...string) uint64 {
	t.Helper()

	h, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues failed: %v", err)
	}

	var m dto.Metric
	if err := h.(prom.Metric).Write(&m); err != nil {
		t.Fatalf("Write metric failed: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetricsExporterRecordsTaskDuration(t *testing.T) {
	// Given an exporter on a fresh registry
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	// When durations are recorded for two priorities
	exporter.RecordTaskDuration("rt", core.PriorityHigh, 10*time.Millisecond)
	exporter.RecordTaskDuration("rt", core.PriorityHigh, 20*time.Millisecond)
	exporter.RecordTaskDuration("rt", core.PriorityNormal, 5*time.Millisecond)

	// Then sample counts are tracked per priority label
	if got := histogramSampleCount(t, exporter.taskDurationSeconds, "rt", "high"); got != 2 {
		t.Errorf("high-priority sample count = %d, want 2", got)
	}
	if got := histogramSampleCount(t, exporter.taskDurationSeconds, "rt", "normal"); got != 1 {
		t.Errorf("normal-priority sample count = %d, want 1", got)
	}
}

func TestMetricsExporterRecordsPanicsAndRejections(t *testing.T) {
	// Given an exporter on a fresh registry
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("asyncruntime", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	// When panics and rejections are recorded
	exporter.RecordTaskPanic("rt", "boom")
	exporter.RecordTaskPanic("rt", "boom again")
	exporter.RecordTaskRejected("rt", "shutdown")

	// Then the counters reflect each event
	if got := testutil.ToFloat64(exporter.taskPanicTotal.WithLabelValues("rt")); got != 2 {
		t.Errorf("panic counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(exporter.taskRejectedTotal.WithLabelValues("rt", "shutdown")); got != 1 {
		t.Errorf("rejected counter = %v, want 1", got)
	}
}

func TestMetricsExporterQueueDepthGauge(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordQueueDepth("rt", 7)
	exporter.RecordQueueDepth("rt", 3)

	if got := testutil.ToFloat64(exporter.queueDepth.WithLabelValues("rt")); got != 3 {
		t.Errorf("queue depth gauge = %v, want 3", got)
	}
}

func TestMetricsExporterNormalizesEmptyLabels(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	// Empty runtime and reason labels fall back to "unknown".
	exporter.RecordTaskRejected("", "")

	if got := testutil.ToFloat64(exporter.taskRejectedTotal.WithLabelValues("unknown", "unknown")); got != 1 {
		t.Errorf("rejected counter with fallback labels = %v, want 1", got)
	}
}

func TestMetricsExporterReusesRegisteredCollectors(t *testing.T) {
	// Given two exporters sharing one registry
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	// When both record into the same counter
	first.RecordTaskPanic("rt", "a")
	second.RecordTaskPanic("rt", "b")

	// Then the already-registered collector is reused, not duplicated
	if got := testutil.ToFloat64(second.taskPanicTotal.WithLabelValues("rt")); got != 2 {
		t.Errorf("shared panic counter = %v, want 2", got)
	}
}
