package model

// SoilRequest is the JSON body sent to the soil endpoint. Moisture and
// organic matter stay local.
type SoilRequest struct {
	PlantSpecies string  `json:"plant_species"`
	N            float64 `json:"N"`
	P            float64 `json:"P"`
	K            float64 `json:"K"`
	PH           float64 `json:"pH"`
}

func NewSoilRequest(crop Crop, r SoilReading) SoilRequest {
	return SoilRequest{
		PlantSpecies: string(crop),
		N:            r.Nitrogen,
		P:            r.Phosphorus,
		K:            r.Potassium,
		PH:           r.PH,
	}
}

// DiseaseRequest carries an uploaded plant image.
type DiseaseRequest struct {
	Image    []byte
	MimeType string // declared type, sniffed when empty
	Filename string
}

// RemoteSoilResponse is the soil endpoint contract: both fields non-empty.
type RemoteSoilResponse struct {
	RecommendedFertilizer string `json:"recommended_fertilizer"` // "Name (Quantity)"
	SoilImprovementFocus  string `json:"soil_improvement_focus"`
}

// RemoteDiseaseResponse is the disease endpoint contract.
type RemoteDiseaseResponse struct {
	DetectedIssue   string  `json:"detected_issue"`
	ConfidenceScore float64 `json:"confidence_score"` // 0-100
	Treatment       string  `json:"treatment"`
}
