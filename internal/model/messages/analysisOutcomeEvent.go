package messages

import "time"

// AnalysisOutcomeEvent is emitted once per finished analysis call, after the
// outcome has been committed (or discarded as superseded).
type AnalysisOutcomeEvent struct {
	CallID     string    `json:"call_id"`
	Generation uint64    `json:"generation"`
	Operation  string    `json:"operation"` // "soil" | "disease"
	Outcome    string    `json:"outcome"`   // "succeeded" | "failed" | "superseded"
	Kind       string    `json:"kind,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Crop       string    `json:"crop,omitempty"`
	Score      int       `json:"score,omitempty"`
	Status     string    `json:"status,omitempty"`
	Disease    string    `json:"disease,omitempty"`
	Severity   string    `json:"severity,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	OutcomeSucceeded  = "succeeded"
	OutcomeFailed     = "failed"
	OutcomeSuperseded = "superseded"
)
