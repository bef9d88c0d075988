package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LeonardoBeccarini/agrisense/internal/model"
)

func TestNutrientBandsAreHalfOpen(t *testing.T) {
	cases := []struct {
		v    float64
		n, p model.NutrientLevel
	}{
		{0, model.NutrientLow, model.NutrientLow},
		{19.99, model.NutrientLow, model.NutrientLow},
		{20, model.NutrientLow, model.NutrientModerate},
		{29.99, model.NutrientLow, model.NutrientModerate},
		{30, model.NutrientModerate, model.NutrientModerate},
		{49.99, model.NutrientModerate, model.NutrientModerate},
		{50, model.NutrientModerate, model.NutrientHigh},
		{59.99, model.NutrientModerate, model.NutrientHigh},
		{60, model.NutrientHigh, model.NutrientHigh},
		{250, model.NutrientHigh, model.NutrientHigh},
	}
	for _, c := range cases {
		assert.Equal(t, c.n, Nitrogen(c.v), "nitrogen %v", c.v)
		assert.Equal(t, c.n, Potassium(c.v), "potassium %v", c.v)
		assert.Equal(t, c.p, Phosphorus(c.v), "phosphorus %v", c.v)
	}
}

func TestNitrogenSweep(t *testing.T) {
	for n := 0.0; n < 120; n += 0.25 {
		want := model.NutrientHigh
		if n < 30 {
			want = model.NutrientLow
		} else if n < 60 {
			want = model.NutrientModerate
		}
		assert.Equal(t, want, Nitrogen(n), "n=%v", n)
	}
}

func TestPHMoistureOrganicMatter(t *testing.T) {
	assert.Equal(t, model.PHAcidic, PH(5.99))
	assert.Equal(t, model.PHNeutral, PH(6))
	assert.Equal(t, model.PHNeutral, PH(7.49))
	assert.Equal(t, model.PHAlkaline, PH(7.5))

	assert.Equal(t, model.MoistureDry, Moisture(19.9))
	assert.Equal(t, model.MoistureOptimal, Moisture(20))
	assert.Equal(t, model.MoistureWet, Moisture(40))

	assert.Equal(t, model.OrganicLow, OrganicMatter(1.9))
	assert.Equal(t, model.OrganicGood, OrganicMatter(2))
	assert.Equal(t, model.OrganicHigh, OrganicMatter(4))
}

func TestProfileOfDefaultReading(t *testing.T) {
	p := Profile(model.DefaultSoilReading())
	assert.Equal(t, model.SoilProfile{
		Nitrogen:      model.NutrientModerate,
		Phosphorus:    model.NutrientModerate,
		Potassium:     model.NutrientModerate,
		PH:            model.PHNeutral,
		Moisture:      model.MoistureOptimal,
		OrganicMatter: model.OrganicGood,
	}, p)
}
