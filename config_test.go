package asyncruntime

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.WorkerThreads != runtime.NumCPU() {
		t.Errorf("WorkerThreads = %d, want %d", cfg.WorkerThreads, runtime.NumCPU())
	}
	if cfg.QueueCapacity != 1024 {
		t.Errorf("QueueCapacity = %d, want 1024", cfg.QueueCapacity)
	}
	if cfg.MaxStackSize != 2*1024*1024 {
		t.Errorf("MaxStackSize = %d, want 2MB", cfg.MaxStackSize)
	}
	if cfg.StackPoolSize != 128 {
		t.Errorf("StackPoolSize = %d, want 128", cfg.StackPoolSize)
	}
	if cfg.PollInterval != time.Millisecond {
		t.Errorf("PollInterval = %v, want 1ms", cfg.PollInterval)
	}
	if !cfg.EnableWorkStealing {
		t.Error("EnableWorkStealing = false, want true")
	}
}

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))

	if cfg != DefaultConfig() {
		t.Errorf("config from missing file = %+v, want defaults", cfg)
	}
}

func TestLoadConfigEmptyPathYieldsDefaults(t *testing.T) {
	if cfg := LoadConfig(""); cfg != DefaultConfig() {
		t.Errorf("config from empty path = %+v, want defaults", cfg)
	}
}

func TestLoadConfigOverridesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime.yaml")
	doc := []byte(`
worker_threads: 3
queue_capacity: 64
max_stack_size: 1048576
stack_pool_size: 16
poll_interval: 5ms
enable_work_stealing: false
debug: true
`)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg := LoadConfig(path)

	if cfg.WorkerThreads != 3 {
		t.Errorf("WorkerThreads = %d, want 3", cfg.WorkerThreads)
	}
	if cfg.QueueCapacity != 64 {
		t.Errorf("QueueCapacity = %d, want 64", cfg.QueueCapacity)
	}
	if cfg.MaxStackSize != 1024*1024 {
		t.Errorf("MaxStackSize = %d, want 1MB", cfg.MaxStackSize)
	}
	if cfg.StackPoolSize != 16 {
		t.Errorf("StackPoolSize = %d, want 16", cfg.StackPoolSize)
	}
	if cfg.PollInterval != 5*time.Millisecond {
		t.Errorf("PollInterval = %v, want 5ms", cfg.PollInterval)
	}
	if cfg.EnableWorkStealing {
		t.Error("EnableWorkStealing = true, want false")
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
}

func TestLoadConfigClampsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime.yaml")
	doc := []byte(`
worker_threads: -2
queue_capacity: 0
max_stack_size: -1
stack_pool_size: 0
poll_interval: -1s
`)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg := LoadConfig(path)

	if cfg.WorkerThreads != runtime.NumCPU() {
		t.Errorf("WorkerThreads = %d, want %d", cfg.WorkerThreads, runtime.NumCPU())
	}
	if cfg.QueueCapacity != 1024 {
		t.Errorf("QueueCapacity = %d, want 1024", cfg.QueueCapacity)
	}
	if cfg.MaxStackSize != 2*1024*1024 {
		t.Errorf("MaxStackSize = %d, want 2MB", cfg.MaxStackSize)
	}
	if cfg.StackPoolSize != 128 {
		t.Errorf("StackPoolSize = %d, want 128", cfg.StackPoolSize)
	}
	if cfg.PollInterval != time.Millisecond {
		t.Errorf("PollInterval = %v, want 1ms", cfg.PollInterval)
	}
}
