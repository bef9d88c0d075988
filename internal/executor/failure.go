package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/LeonardoBeccarini/agrisense/internal/model"
)

// transportFailure classifies an error raised before a status was available.
// The call context decides between Timeout and NetworkError.
func transportFailure(ctx context.Context, err error) *model.Failure {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &model.Failure{Kind: model.KindTimeout, Message: TimeoutMessage, Err: err}
	case errors.Is(ctx.Err(), context.Canceled):
		return &model.Failure{Kind: model.KindNetwork, Message: "Request cancelled.", Err: err}
	default:
		return &model.Failure{Kind: model.KindNetwork, Message: fmt.Sprintf("Network error: %v", err), Err: err}
	}
}

// statusFailure builds the ServerError for a non-2xx response:
// "HTTP Error <status>: <detail | body | status text>".
func statusFailure(r *Response) *model.Failure {
	return &model.Failure{
		Kind:       model.KindServer,
		Message:    fmt.Sprintf("HTTP Error %d: %s", r.StatusCode, errorDetail(r)),
		HTTPStatus: r.StatusCode,
	}
}

func errorDetail(r *Response) string {
	body := strings.TrimSpace(string(r.Body))
	if body == "" {
		if txt := http.StatusText(r.StatusCode); txt != "" {
			return txt
		}
		return "no response body"
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err == nil {
		switch d := m["detail"].(type) {
		case nil:
		case string:
			if d != "" {
				return d
			}
		default:
			// FastAPI validation errors carry a list here
			if b, err := json.Marshal(d); err == nil {
				return string(b)
			}
		}
	}
	return body
}
