// Package config defines and loads the Blue Onyx server configuration.
package config

// Config represents the complete configuration for the blue-onyx detection
// server. A single process serves a single model on a single port; running
// a second model means starting a second process on a different port.
type Config struct {
	Host string `mapstructure:"host"              yaml:"host"              json:"host"`
	Port int    `mapstructure:"port"              yaml:"port"              json:"port"`

	// RequestTimeoutSec is the per-request deadline, in seconds, from
	// enqueue to reply. Fractional values are allowed (e.g. 0.001).
	RequestTimeoutSec float64 `mapstructure:"request_timeout"   yaml:"request_timeout"   json:"request_timeout"`

	// WorkerQueueSize bounds the number of in-flight requests between the
	// HTTP handlers and the single inference worker.
	WorkerQueueSize int `mapstructure:"worker_queue_size" yaml:"worker_queue_size" json:"worker_queue_size"`

	Model  ModelConfig  `mapstructure:"model"  yaml:"model"  json:"model"`
	GPU    GPUConfig    `mapstructure:"gpu"    yaml:"gpu"    json:"gpu"`
	Log    LogConfig    `mapstructure:"log"    yaml:"log"    json:"log"`
	Save   SaveConfig   `mapstructure:"save"   yaml:"save"   json:"save"`
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// ModelConfig describes the ONNX model this process loads and how its
// outputs are turned into detections.
type ModelConfig struct {
	Path string `mapstructure:"path"                yaml:"path"                json:"model"`

	// Type is "transformer" or "anchor"; it is also auto-probed from the
	// model's output tensor shapes at load time (see internal/onnxrt) and
	// this value is treated as a hint/override, not gospel.
	Type string `mapstructure:"object_detection_model_type" yaml:"object_detection_model_type" json:"object_detection_model_type"` //nolint:lll

	ClassesPath         string   `mapstructure:"object_classes"        yaml:"object_classes"        json:"object_classes"`
	ObjectFilter        []string `mapstructure:"object_filter"         yaml:"object_filter"         json:"object_filter"`
	ConfidenceThreshold float64  `mapstructure:"confidence_threshold"  yaml:"confidence_threshold"  json:"confidence_threshold"`
}

// GPUConfig controls execution-provider selection and CPU threading.
type GPUConfig struct {
	ForceCPU     bool `mapstructure:"force_cpu"     yaml:"force_cpu"     json:"force_cpu"`
	GPUIndex     int  `mapstructure:"gpu_index"     yaml:"gpu_index"     json:"gpu_index"`
	IntraThreads int  `mapstructure:"intra_threads" yaml:"intra_threads" json:"intra_threads"`
	InterThreads int  `mapstructure:"inter_threads" yaml:"inter_threads" json:"inter_threads"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Path  string `mapstructure:"log_path"  yaml:"log_path"  json:"log_path"`
}

// SaveConfig controls optional debug snapshots and stats persistence.
type SaveConfig struct {
	ImagePath        string `mapstructure:"save_image_path"      yaml:"save_image_path"      json:"save_image_path"`
	SaveRefImage     bool   `mapstructure:"save_ref_image"       yaml:"save_ref_image"       json:"save_ref_image"`
	StatsPath        string `mapstructure:"save_stats_path"      yaml:"save_stats_path"      json:"save_stats_path"`
	StatsIntervalSec int    `mapstructure:"save_stats_interval_sec" yaml:"save_stats_interval_sec" json:"save_stats_interval_sec"` //nolint:lll
}

// ServerConfig controls ambient HTTP-level concerns not named directly in
// the wire-level config keys of spec §6 but required to run a real server.
type ServerConfig struct {
	CORSOrigin             string `mapstructure:"cors_origin"               yaml:"cors_origin"               json:"cors_origin"`
	MaxUploadMB            int64  `mapstructure:"max_upload_mb"             yaml:"max_upload_mb"             json:"max_upload_mb"`
	ShutdownTimeoutSec     int    `mapstructure:"shutdown_timeout_sec"      yaml:"shutdown_timeout_sec"      json:"shutdown_timeout_sec"`     //nolint:lll
	RestartOnConfigChange  bool   `mapstructure:"restart_on_config_change"  yaml:"restart_on_config_change"  json:"restart_on_config_change"` //nolint:lll
}

// ModelTypeTransformer and ModelTypeAnchor are the two recognized values of
// ModelConfig.Type (§4.4/§4.5).
const (
	ModelTypeTransformer = "transformer"
	ModelTypeAnchor      = "anchor"
)

// DefaultListenPort is the server's default listening port (§6).
const DefaultListenPort = 32168
