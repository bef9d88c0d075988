package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/LeonardoBeccarini/agrisense/internal/model"
)

// decodeSoilResponse enforces the soil contract: both fields present,
// strings, non-empty.
func decodeSoilResponse(body []byte) (model.RemoteSoilResponse, error) {
	m, err := decodeObject(body)
	if err != nil {
		return model.RemoteSoilResponse{}, err
	}
	fert, err := stringField(m, "recommended_fertilizer", true)
	if err != nil {
		return model.RemoteSoilResponse{}, err
	}
	focus, err := stringField(m, "soil_improvement_focus", true)
	if err != nil {
		return model.RemoteSoilResponse{}, err
	}
	return model.RemoteSoilResponse{RecommendedFertilizer: fert, SoilImprovementFocus: focus}, nil
}

// decodeDiseaseResponse enforces the disease contract. detected_issue must be
// a string but may be empty; confidence_score must be a number in [0,100].
func decodeDiseaseResponse(body []byte) (model.RemoteDiseaseResponse, error) {
	m, err := decodeObject(body)
	if err != nil {
		return model.RemoteDiseaseResponse{}, err
	}
	issue, err := stringField(m, "detected_issue", false)
	if err != nil {
		return model.RemoteDiseaseResponse{}, err
	}
	conf, err := numberField(m, "confidence_score", 0, 100)
	if err != nil {
		return model.RemoteDiseaseResponse{}, err
	}
	treatment, err := stringField(m, "treatment", false)
	if err != nil {
		return model.RemoteDiseaseResponse{}, err
	}
	return model.RemoteDiseaseResponse{DetectedIssue: issue, ConfidenceScore: conf, Treatment: treatment}, nil
}

func decodeObject(body []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("body is not a JSON object: %w", err)
	}
	if m == nil {
		return nil, errors.New("body is null")
	}
	return m, nil
}

func stringField(m map[string]any, key string, nonEmpty bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", key, v)
	}
	if nonEmpty && s == "" {
		return "", fmt.Errorf("%s is empty", key)
	}
	return s, nil
}

func numberField(m map[string]any, key string, min, max float64) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing %s", key)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%s must be a number, got %T", key, v)
	}
	if f < min || f > max {
		return 0, fmt.Errorf("%s out of range [%g, %g]: %g", key, min, max, f)
	}
	return f, nil
}
