package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSoilResponse(t *testing.T) {
	r, err := decodeSoilResponse([]byte(`{"recommended_fertilizer":"Urea (50kg/acre)","soil_improvement_focus":"Increase N","extra":1}`))
	require.NoError(t, err)
	assert.Equal(t, "Urea (50kg/acre)", r.RecommendedFertilizer)
	assert.Equal(t, "Increase N", r.SoilImprovementFocus)

	bad := map[string]string{
		"missing focus":     `{"recommended_fertilizer":"Urea"}`,
		"empty fertilizer":  `{"recommended_fertilizer":"","soil_improvement_focus":"x"}`,
		"null fertilizer":   `{"recommended_fertilizer":null,"soil_improvement_focus":"x"}`,
		"number fertilizer": `{"recommended_fertilizer":5,"soil_improvement_focus":"x"}`,
		"array body":        `[1,2]`,
		"null body":         `null`,
		"not json":          `<html>`,
		"empty":             ``,
	}
	for name, body := range bad {
		_, err := decodeSoilResponse([]byte(body))
		assert.Error(t, err, name)
	}
}

func TestDecodeDiseaseResponse(t *testing.T) {
	r, err := decodeDiseaseResponse([]byte(`{"detected_issue":"Tomato___Late_blight","confidence_score":97.5,"treatment":"Remove plants"}`))
	require.NoError(t, err)
	assert.Equal(t, "Tomato___Late_blight", r.DetectedIssue)
	assert.Equal(t, 97.5, r.ConfidenceScore)

	// present but empty is still a string
	_, err = decodeDiseaseResponse([]byte(`{"detected_issue":"","confidence_score":0,"treatment":""}`))
	assert.NoError(t, err)

	bad := map[string]string{
		"missing issue":       `{"confidence_score":50,"treatment":"x"}`,
		"issue not string":    `{"detected_issue":false,"confidence_score":50,"treatment":"x"}`,
		"confidence string":   `{"detected_issue":"a","confidence_score":"50","treatment":"x"}`,
		"confidence too high": `{"detected_issue":"a","confidence_score":100.1,"treatment":"x"}`,
		"confidence negative": `{"detected_issue":"a","confidence_score":-1,"treatment":"x"}`,
		"missing treatment":   `{"detected_issue":"a","confidence_score":50}`,
	}
	for name, body := range bad {
		_, err := decodeDiseaseResponse([]byte(body))
		assert.Error(t, err, name)
	}
}
