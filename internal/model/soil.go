package model

import (
	"fmt"
	"math"
)

// SoilReading holds the raw values collected by the input sliders.
// Nutrients are in mg/kg, moisture and organic matter are percentages.
type SoilReading struct {
	Nitrogen      float64 `json:"nitrogen" yaml:"nitrogen"`
	Phosphorus    float64 `json:"phosphorus" yaml:"phosphorus"`
	Potassium     float64 `json:"potassium" yaml:"potassium"`
	PH            float64 `json:"ph" yaml:"ph"`
	Moisture      float64 `json:"moisture" yaml:"moisture"`
	OrganicMatter float64 `json:"organic_matter" yaml:"organic_matter"`
}

// DefaultSoilReading returns the values the input form starts from.
func DefaultSoilReading() SoilReading {
	return SoilReading{
		Nitrogen:      50,
		Phosphorus:    40,
		Potassium:     35,
		PH:            6.8,
		Moisture:      28,
		OrganicMatter: 3.2,
	}
}

// Validate checks every value against its documented domain.
func (r SoilReading) Validate() error {
	checks := []struct {
		name     string
		v        float64
		min, max float64
	}{
		{"nitrogen", r.Nitrogen, 0, math.Inf(1)},
		{"phosphorus", r.Phosphorus, 0, math.Inf(1)},
		{"potassium", r.Potassium, 0, math.Inf(1)},
		{"ph", r.PH, 0, 14},
		{"moisture", r.Moisture, 0, 100},
		{"organic matter", r.OrganicMatter, 0, math.Inf(1)},
	}
	for _, c := range checks {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return fmt.Errorf("%s must be a finite number", c.name)
		}
		if c.v < c.min || c.v > c.max {
			if math.IsInf(c.max, 1) {
				return fmt.Errorf("%s must be >= %g, got %g", c.name, c.min, c.v)
			}
			return fmt.Errorf("%s must be in [%g, %g], got %g", c.name, c.min, c.max, c.v)
		}
	}
	return nil
}

// NutrientLevel is the band of a nitrogen/phosphorus/potassium value.
type NutrientLevel string

const (
	NutrientLow      NutrientLevel = "Low"
	NutrientModerate NutrientLevel = "Moderate"
	NutrientHigh     NutrientLevel = "High"
)

type PHClass string

const (
	PHAcidic   PHClass = "Acidic"
	PHNeutral  PHClass = "Neutral"
	PHAlkaline PHClass = "Alkaline"
)

type MoistureClass string

const (
	MoistureDry     MoistureClass = "Dry"
	MoistureOptimal MoistureClass = "Optimal"
	MoistureWet     MoistureClass = "Wet"
)

type OrganicMatterClass string

const (
	OrganicLow  OrganicMatterClass = "Low"
	OrganicGood OrganicMatterClass = "Good"
	OrganicHigh OrganicMatterClass = "High"
)

// SoilProfile is the per-parameter band report shown next to each slider.
type SoilProfile struct {
	Nitrogen      NutrientLevel      `json:"nitrogen"`
	Phosphorus    NutrientLevel      `json:"phosphorus"`
	Potassium     NutrientLevel      `json:"potassium"`
	PH            PHClass            `json:"ph"`
	Moisture      MoistureClass      `json:"moisture"`
	OrganicMatter OrganicMatterClass `json:"organic_matter"`
}
