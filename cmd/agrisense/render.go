package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/LeonardoBeccarini/agrisense/internal/model"
	"github.com/LeonardoBeccarini/agrisense/internal/model/messages"
)

func renderSoil(w io.Writer, r *model.SoilResult) {
	fmt.Fprintf(w, "Crop:         %s\n", r.Crop)
	fmt.Fprintf(w, "Soil health:  %d/100 (%s)\n\n", r.Score, r.Status)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PARAMETER\tVALUE\tLEVEL")
	fmt.Fprintf(tw, "Nitrogen\t%g mg/kg\t%s\n", r.Reading.Nitrogen, r.Profile.Nitrogen)
	fmt.Fprintf(tw, "Phosphorus\t%g mg/kg\t%s\n", r.Reading.Phosphorus, r.Profile.Phosphorus)
	fmt.Fprintf(tw, "Potassium\t%g mg/kg\t%s\n", r.Reading.Potassium, r.Profile.Potassium)
	fmt.Fprintf(tw, "pH\t%g\t%s\n", r.Reading.PH, r.Profile.PH)
	fmt.Fprintf(tw, "Moisture\t%g%%\t%s\n", r.Reading.Moisture, r.Profile.Moisture)
	fmt.Fprintf(tw, "Organic matter\t%g%%\t%s\n", r.Reading.OrganicMatter, r.Profile.OrganicMatter)
	_ = tw.Flush()

	fmt.Fprintln(w, "\nIssues:")
	for _, i := range r.Issues {
		fmt.Fprintf(w, "  - %s\n", i)
	}
	fmt.Fprintln(w, "\nRecommendations:")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(w, "  %s\n    Quantity: %s\n    Timing:   %s\n", rec.Fertilizer, rec.Quantity, rec.Timing)
	}
}

func renderDisease(w io.Writer, r *model.DiseaseResult) {
	fmt.Fprintf(w, "Detected:    %s\n", r.DiseaseName)
	fmt.Fprintf(w, "Confidence:  %s\n", r.ConfidenceText)
	fmt.Fprintf(w, "Severity:    %s\n\n", r.Severity)

	fmt.Fprintln(w, "Treatment:")
	for _, t := range r.Treatment {
		fmt.Fprintf(w, "  %s: %s\n    %s\n", t.Name, t.Product, t.Frequency)
	}
	fmt.Fprintln(w, "\nPrevention:")
	for _, p := range r.Prevention {
		fmt.Fprintf(w, "  - %s\n", p)
	}
	fmt.Fprintf(w, "\n%s\n", r.Advisory)
}

func failureLine(f *model.Failure) string {
	return fmt.Sprintf("Analysis failed [%s]: %s", f.Kind, f.Message)
}

// outcomeLine is one line of `agrisense watch` output.
func outcomeLine(evt messages.AnalysisOutcomeEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-7s %-10s gen=%d call=%s %dms",
		evt.Timestamp.Format("15:04:05"), evt.Operation, evt.Outcome, evt.Generation, evt.CallID, evt.DurationMs)
	switch {
	case evt.Outcome == messages.OutcomeFailed:
		fmt.Fprintf(&b, " kind=%s", evt.Kind)
		if evt.HTTPStatus != 0 {
			fmt.Fprintf(&b, " status=%d", evt.HTTPStatus)
		}
	case evt.Outcome == messages.OutcomeSucceeded && evt.Operation == "soil":
		fmt.Fprintf(&b, " crop=%q score=%d (%s)", evt.Crop, evt.Score, evt.Status)
	case evt.Outcome == messages.OutcomeSucceeded && evt.Operation == "disease":
		fmt.Fprintf(&b, " disease=%s confidence=%.1f%% severity=%s", evt.Disease, evt.Confidence, evt.Severity)
	}
	return b.String()
}
