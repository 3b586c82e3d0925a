package asyncruntime

import (
	"os"
	"runtime"
	"time"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors the runtime options recognized at construction time.
type Config struct {
	// WorkerThreads is the number of workers in the pool. 0 = logical CPU count.
	WorkerThreads int `yaml:"worker_threads"`

	// QueueCapacity is an advisory queue size hint; it is not hard-enforced.
	QueueCapacity int `yaml:"queue_capacity"`

	// MaxStackSize caps a per-task scratch buffer before heap fallback.
	MaxStackSize int `yaml:"max_stack_size"`

	// StackPoolSize is the number of preallocated scratch buffers per worker.
	StackPoolSize int `yaml:"stack_pool_size"`

	// PollInterval bounds how often a parked worker re-checks for shutdown.
	PollInterval time.Duration `yaml:"poll_interval"`

	// EnableWorkStealing lets idle workers pull from siblings' local queues.
	EnableWorkStealing bool `yaml:"enable_work_stealing"`

	// Debug enables verbose internal diagnostics.
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns the defaults used when no config file is provided.
func DefaultConfig() Config {
	return Config{
		WorkerThreads:      runtime.NumCPU(),
		QueueCapacity:      1024,
		MaxStackSize:       2 * 1024 * 1024, // 2MB
		StackPoolSize:      128,
		PollInterval:       time.Millisecond,
		EnableWorkStealing: true,
		Debug:              false,
	}
}

// LoadConfig reads YAML and overrides defaults; empty path or a missing file
// yields defaults only.
func LoadConfig(path string) Config {
	cfg := DefaultConfig()

	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	_ = yaml.Unmarshal(data, &cfg)

	// sanity clamps
	if cfg.WorkerThreads <= 0 {
		cfg.WorkerThreads = runtime.NumCPU()
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 1024
	}
	if cfg.MaxStackSize <= 0 {
		cfg.MaxStackSize = 2 * 1024 * 1024
	}
	if cfg.StackPoolSize <= 0 {
		cfg.StackPoolSize = 128
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Millisecond
	}

	return cfg
}
