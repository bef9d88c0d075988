package model

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a call produced no result.
type FailureKind string

const (
	KindTimeout         FailureKind = "timeout"
	KindNetwork         FailureKind = "network_error"
	KindRateLimited     FailureKind = "rate_limited"
	KindServer          FailureKind = "server_error"
	KindInvalidResponse FailureKind = "invalid_response_shape"
	KindValidation      FailureKind = "validation_error"
)

// Failure is the single error value surfaced for a failed call.
// Message is meant for direct display.
type Failure struct {
	Kind       FailureKind `json:"kind"`
	Message    string      `json:"message"`
	HTTPStatus int         `json:"http_status,omitempty"` // 0 = no status
	Err        error       `json:"-"`
}

func NewFailure(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

func (f *Failure) HasStatus() bool { return f.HTTPStatus != 0 }

// Is lets errors.Is match on kind: errors.Is(err, &Failure{Kind: KindTimeout}).
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Kind == f.Kind && t.Message == "" || t == f
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
