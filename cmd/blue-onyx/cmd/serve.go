package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/blue-onyx-go/blueonyx/internal/config"
	"github.com/blue-onyx-go/blueonyx/internal/detector"
	"github.com/blue-onyx-go/blueonyx/internal/onnxrt"
	"github.com/blue-onyx-go/blueonyx/internal/queue"
	"github.com/blue-onyx-go/blueonyx/internal/server"
	"github.com/blue-onyx-go/blueonyx/internal/stats"
	"github.com/blue-onyx-go/blueonyx/internal/version"
	"github.com/blue-onyx-go/blueonyx/internal/worker"
	"github.com/spf13/cobra"
)

// serveCmd runs the detection HTTP server. It is one of the three actions an
// invocation performs, alongside list-models and download; the root command
// on its own only prints help.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the object-detection HTTP server",
	Long: `Starts the HTTP server that accepts JPEG frames at /v1/vision/detection
and returns bounding boxes for the configured model.

Examples:
  blue-onyx serve --model models/yolov5n.onnx --object-classes models/coco-classes.txt
  blue-onyx serve --port 8080 --force-cpu
  blue-onyx serve --config ./blue-onyx.json`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "listen host (default: all interfaces)")
	serveCmd.Flags().Int("port", config.DefaultListenPort, "listen port")
	defaults := config.DefaultConfig()
	serveCmd.Flags().Float64("request-timeout", defaults.RequestTimeoutSec, "per-request deadline in seconds")
	serveCmd.Flags().Int("worker-queue-size", defaults.WorkerQueueSize, "bounded queue depth between HTTP handlers and the worker")

	serveCmd.Flags().String("model", "", "path to the ONNX detection model")
	serveCmd.Flags().String("object-detection-model-type", "", "model family, transformer or anchor; overrides the family probed from the model outputs (config default: anchor)")
	serveCmd.Flags().String("object-classes", "", "path to the newline-delimited class-name file")
	serveCmd.Flags().String("object-filter", "", "comma-separated allow-list of class names")
	serveCmd.Flags().Float64("confidence-threshold", 0.5, "minimum confidence to report a detection")

	serveCmd.Flags().Bool("force-cpu", false, "disable the CUDA execution provider")
	serveCmd.Flags().Int("gpu-index", 0, "CUDA device index")
	serveCmd.Flags().Int("intra-threads", 0, "ONNX Runtime intra-op thread count (0: runtime default)")
	serveCmd.Flags().Int("inter-threads", 0, "ONNX Runtime inter-op thread count (0: runtime default)")

	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origin")
	serveCmd.Flags().Int64("max-upload-mb", 20, "maximum accepted request body size in MB")
	serveCmd.Flags().Int("shutdown-timeout-sec", 10, "graceful shutdown timeout in seconds")

	serveCmd.Flags().String("save-image-path", "", "directory to write annotated debug snapshots (disabled if empty)")
	serveCmd.Flags().Bool("save-ref-image", false, "also save the unannotated original alongside debug snapshots")
	serveCmd.Flags().String("save-stats-path", "", "file to periodically write the stats snapshot to (disabled if empty)")
	serveCmd.Flags().Int("save-stats-interval-sec", 60, "interval between stats snapshot writes")
}

func runServe(cmd *cobra.Command, _ []string) error {
	// A --config file wins outright: serve flags only populate the
	// configuration when no file is given.
	cfg := GetConfig()
	if cfgFile == "" {
		cfg = applyServeFlagOverrides(cmd, cfg)
	}

	if cfg.Model.Path == "" {
		return fmt.Errorf("serve: --model (or config model.path) is required")
	}

	det, err := detector.New(detector.Config{
		ModelPath:           cfg.Model.Path,
		ClassesPath:         cfg.Model.ClassesPath,
		TypeHint:            cfg.Model.Type,
		ConfidenceThreshold: cfg.Model.ConfidenceThreshold,
		ObjectFilter:        cfg.Model.ObjectFilter,
		GPU: onnxrt.GPUOptions{
			ForceCPU: cfg.GPU.ForceCPU,
			Index:    cfg.GPU.GPUIndex,
		},
		IntraThreads:  cfg.GPU.IntraThreads,
		InterThreads:  cfg.GPU.InterThreads,
		IoUThreshold:  0.45,
		SaveImagePath: cfg.Save.ImagePath,
		SaveRefImage:  cfg.Save.SaveRefImage,
	})
	if err != nil {
		return fmt.Errorf("serve: loading detector: %w", err)
	}
	defer func() {
		if closeErr := det.Close(); closeErr != nil {
			slog.Error("closing detector session", "error", closeErr)
		}
	}()

	q := queue.New(cfg.WorkerQueueSize)
	st := stats.New(hostname(), det.ExecutionProvider(), cfg.Model.Path)

	w := worker.New(det, q, st)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		w.Run(context.Background())
	}()

	srv := server.New(*cfg, q, st, det, effectiveConfigPath())

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	var statsDone chan struct{}
	if cfg.Save.StatsPath != "" {
		statsDone = startStatsSnapshotLoop(ctx, st, cfg.Save.StatsPath, cfg.Save.StatsIntervalSec)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSec) * time.Second
	slog.Info("starting blue-onyx", "version", version.String(), "addr", addr, "model", cfg.Model.Path, "family", det.Family())

	runErr := srv.Run(ctx, addr, shutdownTimeout)
	cancel()

	q.Close()
	<-workerDone
	if statsDone != nil {
		<-statsDone
	}

	if runErr != nil {
		return fmt.Errorf("serve: %w", runErr)
	}
	if srv.RestartRequested() {
		slog.Info("restart requested via /config, exiting with restart status")
		os.Exit(exitCodeRestart)
	}
	return nil
}

// exitCodeRestart signals a supervising process to respawn blue-onyx after a
// /config update (SPEC_FULL §12).
const exitCodeRestart = 75

func applyServeFlagOverrides(cmd *cobra.Command, cfg *config.Config) *config.Config {
	out := *cfg
	flags := cmd.Flags()

	if flags.Changed("host") {
		out.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		out.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("request-timeout") {
		out.RequestTimeoutSec, _ = flags.GetFloat64("request-timeout")
	}
	if flags.Changed("worker-queue-size") {
		out.WorkerQueueSize, _ = flags.GetInt("worker-queue-size")
	}
	if flags.Changed("model") {
		out.Model.Path, _ = flags.GetString("model")
	}
	if flags.Changed("object-detection-model-type") {
		out.Model.Type, _ = flags.GetString("object-detection-model-type")
	}
	if flags.Changed("object-classes") {
		out.Model.ClassesPath, _ = flags.GetString("object-classes")
	}
	if flags.Changed("object-filter") {
		csv, _ := flags.GetString("object-filter")
		if strings.TrimSpace(csv) != "" {
			out.Model.ObjectFilter = strings.Split(csv, ",")
		}
	}
	if flags.Changed("confidence-threshold") {
		out.Model.ConfidenceThreshold, _ = flags.GetFloat64("confidence-threshold")
	}
	if flags.Changed("force-cpu") {
		out.GPU.ForceCPU, _ = flags.GetBool("force-cpu")
	}
	if flags.Changed("gpu-index") {
		out.GPU.GPUIndex, _ = flags.GetInt("gpu-index")
	}
	if flags.Changed("intra-threads") {
		out.GPU.IntraThreads, _ = flags.GetInt("intra-threads")
	}
	if flags.Changed("inter-threads") {
		out.GPU.InterThreads, _ = flags.GetInt("inter-threads")
	}
	if flags.Changed("cors-origin") {
		out.Server.CORSOrigin, _ = flags.GetString("cors-origin")
	}
	if flags.Changed("max-upload-mb") {
		out.Server.MaxUploadMB, _ = flags.GetInt64("max-upload-mb")
	}
	if flags.Changed("shutdown-timeout-sec") {
		out.Server.ShutdownTimeoutSec, _ = flags.GetInt("shutdown-timeout-sec")
	}
	if flags.Changed("save-image-path") {
		out.Save.ImagePath, _ = flags.GetString("save-image-path")
	}
	if flags.Changed("save-ref-image") {
		out.Save.SaveRefImage, _ = flags.GetBool("save-ref-image")
	}
	if flags.Changed("save-stats-path") {
		out.Save.StatsPath, _ = flags.GetString("save-stats-path")
	}
	if flags.Changed("save-stats-interval-sec") {
		out.Save.StatsIntervalSec, _ = flags.GetInt("save-stats-interval-sec")
	}
	return &out
}

func startStatsSnapshotLoop(ctx context.Context, st *stats.Stats, path string, intervalSec int) chan struct{} {
	if intervalSec <= 0 {
		intervalSec = 60
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := st.WriteSnapshot(path); err != nil {
					slog.Warn("writing stats snapshot", "path", path, "error", err)
				}
			}
		}
	}()
	return done
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}

// effectiveConfigPath returns the path the /config handler should persist
// updates to: the --config file if one was given, otherwise the standalone
// default location next to the executable.
func effectiveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	path, err := config.StandaloneConfigPath()
	if err != nil {
		return ""
	}
	return path
}
