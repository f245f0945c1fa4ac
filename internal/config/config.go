package config

import (
	"fmt"
	"runtime"
	"slices"
)

// DefaultConfig returns a configuration with sensible defaults, mirroring
// the defaults documented in spec §6.
func DefaultConfig() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              DefaultListenPort,
		RequestTimeoutSec: 30,
		WorkerQueueSize:   defaultQueueSize(),
		Model: ModelConfig{
			Type:                ModelTypeAnchor,
			ConfidenceThreshold: 0.5,
		},
		GPU: GPUConfig{
			ForceCPU:     false,
			GPUIndex:     0,
			IntraThreads: 0,
			InterThreads: 0,
		},
		Log: LogConfig{
			Level: "info",
		},
		Save: SaveConfig{
			SaveRefImage:     false,
			StatsIntervalSec: 60,
		},
		Server: ServerConfig{
			CORSOrigin:         "*",
			MaxUploadMB:        20,
			ShutdownTimeoutSec: 10,
		},
	}
}

// defaultQueueSize derives a small two-digit default from available
// parallelism, per §4.7 ("commonly a small two-digit number").
func defaultQueueSize() int {
	n := runtime.GOMAXPROCS(0) * 4
	if n < 10 {
		n = 10
	}
	if n > 64 {
		n = 64
	}
	return n
}

// Validate checks the configuration for internal consistency. It does not
// touch the filesystem beyond what callers have already resolved.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be between 1 and 65535)", c.Port)
	}
	if c.RequestTimeoutSec <= 0 {
		return fmt.Errorf("invalid request_timeout: %v (must be positive)", c.RequestTimeoutSec)
	}
	if c.WorkerQueueSize <= 0 {
		return fmt.Errorf("invalid worker_queue_size: %d (must be positive)", c.WorkerQueueSize)
	}
	if c.Model.Path == "" {
		return fmt.Errorf("model.path (model) must be set")
	}
	if c.Model.ClassesPath == "" {
		return fmt.Errorf("model.object_classes must be set")
	}
	validTypes := []string{ModelTypeTransformer, ModelTypeAnchor}
	if !slices.Contains(validTypes, c.Model.Type) {
		return fmt.Errorf("invalid object_detection_model_type: %s (must be transformer or anchor)", c.Model.Type)
	}
	if c.Model.ConfidenceThreshold < 0 || c.Model.ConfidenceThreshold > 1 {
		return fmt.Errorf("invalid confidence_threshold: %v (must be within [0,1])", c.Model.ConfidenceThreshold)
	}
	if c.GPU.GPUIndex < 0 {
		return fmt.Errorf("invalid gpu_index: %d (must be >= 0)", c.GPU.GPUIndex)
	}
	if c.GPU.IntraThreads < 0 || c.GPU.InterThreads < 0 {
		return fmt.Errorf("thread counts must be >= 0")
	}
	validLevels := []string{"trace", "debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, c.Log.Level) {
		return fmt.Errorf("invalid log_level: %s", c.Log.Level)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max_upload_mb: %d (must be positive)", c.Server.MaxUploadMB)
	}
	return nil
}
