package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/LeonardoBeccarini/agrisense/internal/model"
	"github.com/LeonardoBeccarini/agrisense/internal/model/messages"
	"github.com/LeonardoBeccarini/agrisense/internal/orchestrator"
	"github.com/LeonardoBeccarini/agrisense/internal/telemetry"
	"github.com/LeonardoBeccarini/agrisense/pkg/broker"
	"github.com/LeonardoBeccarini/agrisense/pkg/dedup"
)

var cropsCmd = &cobra.Command{
	Use:   "crops",
	Short: "List the supported crops",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, model.Crops())
		}
		for _, c := range model.Crops() {
			marker := " "
			if c == model.DefaultCrop {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %s\n", marker, c)
		}
		return nil
	},
}

var soilFlags struct {
	crop string
	from string
}

var soilCmd = &cobra.Command{
	Use:   "soil",
	Short: "Analyze a soil reading and get fertilizer advice",
	Long: `Sends crop, N, P, K and pH to the soil endpoint. Moisture and organic matter
are classified locally. Values not given as flags keep their defaults, or
the values from --from (a YAML file with nitrogen, phosphorus, potassium, ph,
moisture and organic_matter keys).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reading, err := soilReading(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		res, err := a.orch.AnalyzeSoil(cmd.Context(), soilFlags.crop, reading)
		if err != nil {
			return reportFailure(cmd.ErrOrStderr(), err)
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		renderSoil(cmd.OutOrStdout(), res)
		return nil
	},
}

// soilReading starts from the defaults, applies --from, then explicit flags.
func soilReading(cmd *cobra.Command) (model.SoilReading, error) {
	r := model.DefaultSoilReading()
	if soilFlags.from != "" {
		data, err := os.ReadFile(soilFlags.from)
		if err != nil {
			return r, fmt.Errorf("read reading: %w", err)
		}
		if err := yaml.Unmarshal(data, &r); err != nil {
			return r, fmt.Errorf("parse reading %s: %w", soilFlags.from, err)
		}
	}
	fl := cmd.Flags()
	set := map[string]*float64{
		"nitrogen":       &r.Nitrogen,
		"phosphorus":     &r.Phosphorus,
		"potassium":      &r.Potassium,
		"ph":             &r.PH,
		"moisture":       &r.Moisture,
		"organic-matter": &r.OrganicMatter,
	}
	for name, dst := range set {
		if !fl.Changed(name) {
			continue
		}
		v, err := fl.GetFloat64(name)
		if err != nil {
			return r, err
		}
		*dst = v
	}
	return r, nil
}

var diseaseFlags struct {
	mimeType string
}

var diseaseCmd = &cobra.Command{
	Use:   "disease <image>",
	Short: "Detect plant disease from a leaf image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		res, err := a.orch.AnalyzeDisease(cmd.Context(), model.DiseaseRequest{
			Image:    img,
			MimeType: diseaseFlags.mimeType,
			Filename: filepath.Base(args[0]),
		})
		if err != nil {
			return reportFailure(cmd.ErrOrStderr(), err)
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		renderDisease(cmd.OutOrStdout(), res)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print analysis outcome events published on MQTT",
	Long: `Subscribes to the outcome topic and prints one line per event. It runs until
interrupted; with METRICS_ADDR set it exports the received outcomes on
/metrics and the broker connection on /healthz.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.MQTTEnabled() {
			return errors.New("watch needs MQTT_HOST (or mqtt.host in the config file)")
		}
		ctx := cmd.Context()
		bc := cfg.Broker()
		bc.ClientID += "-watch"
		client, err := broker.Connect(ctx, bc, logger)
		if err != nil {
			return err
		}
		defer broker.Close(client)

		metrics := telemetry.NewMetrics()
		if cfg.MetricsAddr != "" {
			_, stop, err := startMetrics(cfg.MetricsAddr, metrics, telemetry.Health{MQTT: client}, logger)
			if err != nil {
				return err
			}
			defer stop()
		}

		topic := strings.ReplaceAll(cfg.MQTT.OutcomeTopic, "{operation}", "+")
		handler := outcomeHandler(cmd.OutOrStdout(), dedup.New(0, 0), metrics, logger)
		return broker.NewSubscriber(client, []string{topic}, handler, logger).Run(ctx)
	},
}

// outcomeHandler decodes outcome events, drops QoS 1 redeliveries, counts
// them on rec and prints one line each.
func outcomeHandler(out io.Writer, seen *dedup.Deduper, rec telemetry.Recorder, log *zap.Logger) broker.Handler {
	return func(_ string, payload []byte) error {
		var evt messages.AnalysisOutcomeEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return fmt.Errorf("decode outcome: %w", err)
		}
		if !seen.ShouldProcess(evt.CallID + "/" + evt.Outcome) {
			log.Debug("agrisense: duplicate outcome dropped", zap.String("call_id", evt.CallID))
			return nil
		}
		rec.Record(context.Background(), evt)
		fmt.Fprintln(out, outcomeLine(evt))
		return nil
	}
}

func init() {
	f := soilCmd.Flags()
	d := model.DefaultSoilReading()
	f.StringVar(&soilFlags.crop, "crop", string(model.DefaultCrop), "crop type (see `agrisense crops`)")
	f.StringVar(&soilFlags.from, "from", "", "YAML file with the soil reading")
	f.Float64("nitrogen", d.Nitrogen, "nitrogen, mg/kg")
	f.Float64("phosphorus", d.Phosphorus, "phosphorus, mg/kg")
	f.Float64("potassium", d.Potassium, "potassium, mg/kg")
	f.Float64("ph", d.PH, "pH, 0-14")
	f.Float64("moisture", d.Moisture, "moisture, %")
	f.Float64("organic-matter", d.OrganicMatter, "organic matter, %")

	diseaseCmd.Flags().StringVar(&diseaseFlags.mimeType, "type", "", "image MIME type (sniffed when empty)")
}

// reportFailure prints the display message of a failed call and returns it.
func reportFailure(w io.Writer, err error) error {
	if errors.Is(err, orchestrator.ErrSuperseded) {
		return err
	}
	if f, ok := model.AsFailure(err); ok {
		fmt.Fprintln(w, failureLine(f))
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
