package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/LeonardoBeccarini/agrisense/internal/config"
	"github.com/LeonardoBeccarini/agrisense/internal/model"
)

var (
	configPath string
	verbose    bool
	jsonOutput bool

	logger *zap.Logger
	cfg    config.Config
)

var rootCmd = &cobra.Command{
	Use:   "agrisense",
	Short: "Soil and plant disease analysis against the AgriSense inference service",
	Long: `agrisense sends soil readings and plant images to the inference service and
prints the classified result: soil health score and fertilizer advice, or the
detected disease with severity, treatment and prevention.

Settings come from defaults, an optional YAML file (--config) and the
environment (AGRISENSE_*, METRICS_ADDR, INFLUX_*, MQTT_*), in that order.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		if logger, err = zc.Build(); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(cropsCmd, soilCmd, diseaseCmd, batchCmd, watchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// failures of the analysis itself were already reported
		if _, ok := model.AsFailure(err); !ok {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
