package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/LeonardoBeccarini/agrisense/internal/model"
	"github.com/LeonardoBeccarini/agrisense/internal/model/messages"
	"github.com/LeonardoBeccarini/agrisense/internal/orchestrator"
)

// batchEntry is one soil sample of a batch file. Omitted values keep the
// form defaults.
type batchEntry struct {
	Name    string            `yaml:"name"`
	Crop    string            `yaml:"crop"`
	Reading model.SoilReading `yaml:"reading"`
}

func (b *batchEntry) UnmarshalYAML(n *yaml.Node) error {
	type plain batchEntry
	p := plain{Crop: string(model.DefaultCrop), Reading: model.DefaultSoilReading()}
	if err := n.Decode(&p); err != nil {
		return err
	}
	*b = batchEntry(p)
	return nil
}

func loadBatch(path string) ([]batchEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	var entries []batchEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse batch %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("batch %s has no entries", path)
	}
	return entries, nil
}

type soilAnalyzer interface {
	AnalyzeSoil(ctx context.Context, crop string, reading model.SoilReading) (*model.SoilResult, error)
}

type batchSummary struct {
	Succeeded int
	Failed    int
}

// runBatch analyzes the entries one after the other through the same
// orchestrator, so the executor's breaker sees every call. It stops early
// only when ctx ends.
func runBatch(ctx context.Context, orch soilAnalyzer, entries []batchEntry, out io.Writer) batchSummary {
	var sum batchSummary
	for i, e := range entries {
		if ctx.Err() != nil {
			break
		}
		label := e.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		res, err := orch.AnalyzeSoil(ctx, e.Crop, e.Reading)
		if err != nil {
			sum.Failed++
			if f, ok := model.AsFailure(err); ok {
				fmt.Fprintf(out, "%s %s: %s\n", label, e.Crop, failureLine(f))
			} else {
				fmt.Fprintf(out, "%s %s: %v\n", label, e.Crop, err)
			}
			continue
		}
		sum.Succeeded++
		fmt.Fprintf(out, "%s %s: %d/100 (%s), %s, %s\n", label, res.Crop, res.Score, res.Status,
			res.Recommendations[0].Fertilizer, res.Recommendations[0].Quantity)
	}
	return sum
}

var batchCmd = &cobra.Command{
	Use:   "batch <file.yaml>",
	Short: "Analyze a list of soil samples with one client",
	Long: `Reads a YAML list of samples (name, crop, reading) and analyzes them in order
with a single executor, so AGRISENSE_BREAKER_FAILURES applies across samples.
While it runs, METRICS_ADDR serves /metrics and /healthz.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := loadBatch(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		if cfg.MetricsAddr != "" {
			_, stop, err := startMetrics(cfg.MetricsAddr, a.metrics, a.health(), logger)
			if err != nil {
				return err
			}
			defer stop()
		}

		sum := runBatch(cmd.Context(), a.orch, entries, cmd.OutOrStdout())
		logger.Info("agrisense: batch done",
			zap.Int("succeeded", sum.Succeeded), zap.Int("failed", sum.Failed),
			zap.String("soil_breaker", a.exec.BreakerState(string(orchestrator.OpSoil))))
		if a.influx != nil {
			a.influx.Flush()
			logger.Info("agrisense: influx points queued",
				zap.Int64("succeeded", a.influx.Written(string(orchestrator.OpSoil), messages.OutcomeSucceeded)),
				zap.Int64("failed", a.influx.Written(string(orchestrator.OpSoil), messages.OutcomeFailed)))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d succeeded, %d failed\n", sum.Succeeded, sum.Failed)
		if sum.Failed > 0 {
			return errBatchFailures
		}
		return nil
	},
}

var errBatchFailures = errors.New("some samples failed")
