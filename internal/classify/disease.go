package classify

import (
	"fmt"
	"math"
	"strings"

	"github.com/LeonardoBeccarini/agrisense/internal/model"
)

const (
	treatmentName      = "Recommended Action"
	treatmentFrequency = "Immediate application recommended."
)

// Prevention is the fixed advice list attached to every disease result.
var Prevention = []string{
	"Ensure proper air circulation around plants.",
	"Avoid overhead watering late in the day.",
	"Remove and destroy infected plant debris promptly.",
}

// Severity: >85 High, >60 Moderate, Low otherwise.
func Severity(confidence float64) model.Severity {
	switch {
	case confidence > 85:
		return model.SeverityHigh
	case confidence > 60:
		return model.SeverityModerate
	default:
		return model.SeverityLow
	}
}

// ConfidenceText renders one decimal, ties rounded away from zero.
func ConfidenceText(confidence float64) string {
	return fmt.Sprintf("%.1f%%", math.Round(confidence*10)/10)
}

func Advisory(issue string, confidence float64) string {
	return fmt.Sprintf("The model detected %s with a confidence of %s. "+
		"Immediate application of the recommended treatment is advised to prevent spread.",
		issue, ConfidenceText(confidence))
}

// DisplayName turns a class label like "Tomato___Late_blight" into
// "Tomato - Late blight". Labels without the separator are only de-underscored.
func DisplayName(label string) string {
	parts := strings.Split(label, "___")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Join(strings.Fields(strings.ReplaceAll(p, "_", " ")), " ")
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return strings.TrimSpace(label)
	}
	return strings.Join(out, " - ")
}

// Disease composes the disease result from a validated remote response.
func Disease(remote model.RemoteDiseaseResponse) model.DiseaseResult {
	prevention := make([]string, len(Prevention))
	copy(prevention, Prevention)
	return model.DiseaseResult{
		Label:          remote.DetectedIssue,
		DiseaseName:    DisplayName(remote.DetectedIssue),
		Severity:       Severity(remote.ConfidenceScore),
		Confidence:     remote.ConfidenceScore,
		ConfidenceText: ConfidenceText(remote.ConfidenceScore),
		Treatment: []model.Treatment{{
			Name:      treatmentName,
			Product:   remote.Treatment,
			Frequency: treatmentFrequency,
		}},
		Prevention: prevention,
		Advisory:   Advisory(remote.DetectedIssue, remote.ConfidenceScore),
	}
}
