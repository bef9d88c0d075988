package classify

import (
	"regexp"
	"strings"

	"github.com/LeonardoBeccarini/agrisense/internal/model"
)

// Two-tier heuristic: only N, P and K contribute, pH/moisture/OM are display-only.
const (
	ScoreBalanced  = 85
	ScoreDeficient = 65
)

// QuantityPlaceholder replaces the quantity when the fertilizer string has no
// parenthesised part.
const QuantityPlaceholder = "See advice below"

var fertilizerRe = regexp.MustCompile(`(.*)\((.*)\)`)

// Score is 85 when N>30, P>20 and K>30 all hold, 65 otherwise.
func Score(r model.SoilReading) int {
	if r.Nitrogen > 30 && r.Phosphorus > 20 && r.Potassium > 30 {
		return ScoreBalanced
	}
	return ScoreDeficient
}

// Status maps a score to its band; equality falls to the lower band.
func Status(score int) model.SoilStatus {
	switch {
	case score > 80:
		return model.StatusExcellent
	case score > 60:
		return model.StatusGood
	default:
		return model.StatusFair
	}
}

// SplitFertilizer decomposes "Name (Quantity)".
func SplitFertilizer(s string) (fertilizer, quantity string) {
	m := fertilizerRe.FindStringSubmatch(s)
	if m == nil {
		return s, QuantityPlaceholder
	}
	return strings.TrimSpace(m[1]), m[2]
}

// Soil composes the soil result. The score comes from the local reading only;
// the remote response contributes the recommendation.
func Soil(crop model.Crop, r model.SoilReading, remote model.RemoteSoilResponse) model.SoilResult {
	score := Score(r)
	fert, qty := SplitFertilizer(remote.RecommendedFertilizer)
	return model.SoilResult{
		Crop:    crop,
		Reading: r,
		Profile: Profile(r),
		Score:   score,
		Status:  Status(score),
		Issues: []string{
			"Recommendation: " + remote.RecommendedFertilizer,
			"Focus: " + remote.SoilImprovementFocus,
		},
		Recommendations: []model.Recommendation{{
			Fertilizer: fert,
			Quantity:   qty,
			Timing:     remote.SoilImprovementFocus,
		}},
	}
}
