package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// ConfigFileName is the base name used when persisting the effective
// configuration next to the executable (§6).
const ConfigFileName = "blue-onyx.json"

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "BLUE_ONYX"

// Loader loads configuration from a JSON file, environment variables, and
// (via BindPFlag, wired by the cmd package) command-line flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a configuration loader bound to the global viper
// instance, so flag bindings made by the CLI layer take effect.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

func (l *Loader) setDefaults() {
	d := DefaultConfig()
	l.v.SetConfigType("json")

	l.v.SetDefault("host", d.Host)
	l.v.SetDefault("port", d.Port)
	l.v.SetDefault("request_timeout", d.RequestTimeoutSec)
	l.v.SetDefault("worker_queue_size", d.WorkerQueueSize)

	l.v.SetDefault("model.object_detection_model_type", d.Model.Type)
	l.v.SetDefault("model.confidence_threshold", d.Model.ConfidenceThreshold)

	l.v.SetDefault("gpu.force_cpu", d.GPU.ForceCPU)
	l.v.SetDefault("gpu.gpu_index", d.GPU.GPUIndex)
	l.v.SetDefault("gpu.intra_threads", d.GPU.IntraThreads)
	l.v.SetDefault("gpu.inter_threads", d.GPU.InterThreads)

	l.v.SetDefault("log.log_level", d.Log.Level)
	l.v.SetDefault("log.log_path", d.Log.Path)

	l.v.SetDefault("save.save_ref_image", d.Save.SaveRefImage)
	l.v.SetDefault("save.save_stats_interval_sec", d.Save.StatsIntervalSec)

	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.shutdown_timeout_sec", d.Server.ShutdownTimeoutSec)
	l.v.SetDefault("server.restart_on_config_change", d.Server.RestartOnConfigChange)

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
}

// LoadDefaults returns the default configuration overlaid with any
// environment variables and previously-bound CLI flags, without reading a
// config file from disk. This is the "CLI populates a fresh config" path
// of §6.
func (l *Loader) LoadDefaults() (*Config, error) {
	l.setDefaults()

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// LoadFromFile loads configuration from the given JSON file path, which
// takes precedence over CLI flags per §6 ("file (if --config passed) wins;
// ... CLI and --config MUST NOT be combined").
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path must not be empty")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file does not exist: %w", err)
	}

	l.setDefaults()
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// PersistEffectiveConfig writes cfg as JSON to path, used both by standalone
// mode (next to the executable) and by the `/config` update handler.
func PersistEffectiveConfig(cfg *Config, path string) error {
	v := viper.New()
	v.SetConfigType("json")
	v.SetConfigFile(path)

	settings := map[string]any{
		"host":              cfg.Host,
		"port":              cfg.Port,
		"request_timeout":   cfg.RequestTimeoutSec,
		"worker_queue_size": cfg.WorkerQueueSize,
		"model": map[string]any{
			"path":                        cfg.Model.Path,
			"object_detection_model_type": cfg.Model.Type,
			"object_classes":              cfg.Model.ClassesPath,
			"object_filter":               cfg.Model.ObjectFilter,
			"confidence_threshold":        cfg.Model.ConfidenceThreshold,
		},
		"gpu": map[string]any{
			"force_cpu":     cfg.GPU.ForceCPU,
			"gpu_index":     cfg.GPU.GPUIndex,
			"intra_threads": cfg.GPU.IntraThreads,
			"inter_threads": cfg.GPU.InterThreads,
		},
		"log": map[string]any{
			"log_level": cfg.Log.Level,
			"log_path":  cfg.Log.Path,
		},
		"save": map[string]any{
			"save_image_path":         cfg.Save.ImagePath,
			"save_ref_image":          cfg.Save.SaveRefImage,
			"save_stats_path":         cfg.Save.StatsPath,
			"save_stats_interval_sec": cfg.Save.StatsIntervalSec,
		},
		"server": map[string]any{
			"cors_origin":               cfg.Server.CORSOrigin,
			"max_upload_mb":             cfg.Server.MaxUploadMB,
			"shutdown_timeout_sec":      cfg.Server.ShutdownTimeoutSec,
			"restart_on_config_change":  cfg.Server.RestartOnConfigChange,
		},
	}
	for k, val := range settings {
		v.Set(k, val)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("error writing config file %s: %w", path, err)
	}
	return nil
}

// StandaloneConfigPath returns the path standalone mode persists the
// effective configuration to: next to the running executable.
func StandaloneConfigPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolving executable path: %w", err)
	}
	return exe + "." + ConfigFileName, nil
}

// ServiceConfigPath returns the fixed file name the service-mode runner
// reads/writes next to the executable, ignoring CLI flags (§6).
func ServiceConfigPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolving executable path: %w", err)
	}
	dir := exe
	for i := len(dir) - 1; i >= 0; i-- {
		if dir[i] == '/' || dir[i] == '\\' {
			dir = dir[:i+1]
			break
		}
	}
	return dir + ConfigFileName, nil
}
