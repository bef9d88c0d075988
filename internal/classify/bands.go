// Package classify turns raw soil readings and inference responses into the
// qualitative bands and result records shown to the user. Everything here is
// pure and deterministic.
package classify

import "github.com/LeonardoBeccarini/agrisense/internal/model"

// Bounds splits a value range into three half-open bands:
// v < Lower, Lower <= v < Upper, v >= Upper.
type Bounds struct {
	Lower float64
	Upper float64
}

var (
	NitrogenBounds      = Bounds{Lower: 30, Upper: 60}
	PhosphorusBounds    = Bounds{Lower: 20, Upper: 50}
	PotassiumBounds     = Bounds{Lower: 30, Upper: 60}
	PHBounds            = Bounds{Lower: 6.0, Upper: 7.5}
	MoistureBounds      = Bounds{Lower: 20, Upper: 40}
	OrganicMatterBounds = Bounds{Lower: 2.0, Upper: 4.0}
)

// band returns 0, 1 or 2.
func (b Bounds) band(v float64) int {
	switch {
	case v < b.Lower:
		return 0
	case v < b.Upper:
		return 1
	default:
		return 2
	}
}

var nutrientBands = [3]model.NutrientLevel{model.NutrientLow, model.NutrientModerate, model.NutrientHigh}

func Nitrogen(v float64) model.NutrientLevel   { return nutrientBands[NitrogenBounds.band(v)] }
func Phosphorus(v float64) model.NutrientLevel { return nutrientBands[PhosphorusBounds.band(v)] }
func Potassium(v float64) model.NutrientLevel  { return nutrientBands[PotassiumBounds.band(v)] }

func PH(v float64) model.PHClass {
	return [3]model.PHClass{model.PHAcidic, model.PHNeutral, model.PHAlkaline}[PHBounds.band(v)]
}

func Moisture(v float64) model.MoistureClass {
	return [3]model.MoistureClass{model.MoistureDry, model.MoistureOptimal, model.MoistureWet}[MoistureBounds.band(v)]
}

func OrganicMatter(v float64) model.OrganicMatterClass {
	return [3]model.OrganicMatterClass{model.OrganicLow, model.OrganicGood, model.OrganicHigh}[OrganicMatterBounds.band(v)]
}

// Profile classifies every parameter of r.
func Profile(r model.SoilReading) model.SoilProfile {
	return model.SoilProfile{
		Nitrogen:      Nitrogen(r.Nitrogen),
		Phosphorus:    Phosphorus(r.Phosphorus),
		Potassium:     Potassium(r.Potassium),
		PH:            PH(r.PH),
		Moisture:      Moisture(r.Moisture),
		OrganicMatter: OrganicMatter(r.OrganicMatter),
	}
}
