package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/blue-onyx-go/blueonyx/internal/config"
	"github.com/blue-onyx-go/blueonyx/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configLoader *config.Loader
	globalConfig *config.Config
	cfgFile      string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "blue-onyx",
	Short: "Single-model object-detection HTTP server",
	Long: `blue-onyx runs one ONNX object-detection model behind an HTTP API
compatible with /v1/vision/detection: clients POST a JPEG frame and get
back bounding boxes with labels and confidences.

Examples:
  blue-onyx serve --model yolov5n.onnx --object-classes coco-classes.txt
  blue-onyx serve --port 8080 --force-cpu
  blue-onyx list-models
  blue-onyx download yolov5n --dest ./models`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, _ := cmd.PersistentFlags().GetBool("version")
		if v {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "blue-onyx version %s\n", version.String())
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and runs it. Called
// once by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing, avoiding os.Exit.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

// setupLogging configures the global slog logger from the merged config.
func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch cfg.Log.Level {
	case "trace", "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	out := os.Stdout
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"path to a blue-onyx.json config file (mutually exclusive with other flags)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("version", false, "print version information and exit")

	if err := viper.BindPFlag("log.log_level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

func initConfig() {
	configLoader = config.NewLoader()
}

// GetConfig returns the effective configuration: --config file if given,
// otherwise defaults layered with environment variables and CLI flags
// (§6's "file (if --config passed) wins; CLI and --config MUST NOT be
// combined").
func GetConfig() *config.Config {
	if globalConfig != nil {
		return globalConfig
	}

	loader := GetConfigLoader()
	var err error
	if cfgFile != "" {
		globalConfig, err = loader.LoadFromFile(cfgFile)
	} else {
		globalConfig, err = loader.LoadDefaults()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogging(globalConfig)
	return globalConfig
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}
