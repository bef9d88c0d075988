package model

type SoilStatus string

const (
	StatusExcellent SoilStatus = "Excellent"
	StatusGood      SoilStatus = "Good"
	StatusFair      SoilStatus = "Fair"
)

type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityModerate Severity = "Moderate"
	SeverityHigh     Severity = "High"
)

type Recommendation struct {
	Fertilizer string `json:"fertilizer"`
	Quantity   string `json:"quantity"`
	Timing     string `json:"timing"`
}

// SoilResult is the composed record rendered after a soil analysis.
type SoilResult struct {
	Crop            Crop             `json:"crop"`
	Reading         SoilReading      `json:"reading"`
	Profile         SoilProfile      `json:"profile"`
	Score           int              `json:"score"`
	Status          SoilStatus       `json:"status"`
	Issues          []string         `json:"issues"`
	Recommendations []Recommendation `json:"recommendations"`
}

type Treatment struct {
	Name      string `json:"name"`
	Product   string `json:"product"`
	Frequency string `json:"frequency"`
}

// DiseaseResult is the composed record rendered after an image analysis.
type DiseaseResult struct {
	Label          string      `json:"label"` // raw class label from the model
	DiseaseName    string      `json:"disease_name"`
	Severity       Severity    `json:"severity"`
	Confidence     float64     `json:"confidence"`
	ConfidenceText string      `json:"confidence_text"`
	Treatment      []Treatment `json:"treatment"`
	Prevention     []string    `json:"prevention"`
	Advisory       string      `json:"advisory"`
}
