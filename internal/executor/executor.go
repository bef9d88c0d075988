// Package executor performs one logical call against the inference service:
// a single deadline, bounded retry on 429 and normalization of every failure
// into a *model.Failure.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/agrisense/internal/model"
)

const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 1
	DefaultRetryDelay = time.Second

	// TimeoutMessage is shown when the deadline fires.
	TimeoutMessage = "Request timed out. The server is taking too long to respond."

	maxBodyBytes = 4 << 20
)

// Options controls one call. Use DefaultOptions as a starting point: a zero
// MaxRetries means no retry.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultOptions() Options {
	return Options{Timeout: DefaultTimeout, MaxRetries: DefaultMaxRetries, RetryDelay: DefaultRetryDelay}
}

func (o Options) normalized() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	return o
}

// Request describes the call. Body is replayed on every attempt.
type Request struct {
	Endpoint    string // logical name, e.g. "soil"
	Method      string
	Path        string
	Body        []byte
	ContentType string
	CallID      string
}

// Response is a 2xx answer. The body is returned unvalidated.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
}

// Observer receives per-attempt measurements. *telemetry.Metrics implements it.
type Observer interface {
	Request(endpoint, outcome string, elapsed time.Duration)
	Retry(endpoint string)
}

type Config struct {
	BaseURL string
	Client  *http.Client
	Logger  *zap.Logger

	// BreakerFailures > 0 enables a circuit breaker per endpoint that opens
	// after that many consecutive failures and stays open for BreakerOpenFor.
	BreakerFailures int
	BreakerOpenFor  time.Duration

	Observer Observer

	// NewTimer overrides the backoff timer; tests use it as a fake clock.
	NewTimer func() backoff.Timer
}

type Executor struct {
	base     string
	client   *http.Client
	log      *zap.Logger
	observer Observer
	newTimer func() backoff.Timer

	breakerFailures int
	breakerOpenFor  time.Duration
	breakers        map[string]*gobreaker.CircuitBreaker
}

func New(cfg Config) (*Executor, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("executor: base URL is empty")
	}
	if cfg.Client == nil {
		// the deadline comes from the per-call context
		cfg.Client = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.BreakerOpenFor <= 0 {
		cfg.BreakerOpenFor = 10 * time.Second
	}
	return &Executor{
		base:            base,
		client:          cfg.Client,
		log:             cfg.Logger.Named("executor"),
		observer:        cfg.Observer,
		newTimer:        cfg.NewTimer,
		breakerFailures: cfg.BreakerFailures,
		breakerOpenFor:  cfg.BreakerOpenFor,
		breakers:        make(map[string]*gobreaker.CircuitBreaker),
	}, nil
}

// Register prepares the breaker for an endpoint. Endpoints are registered
// once at wiring time; calling Execute on an unregistered endpoint simply
// bypasses the breaker.
func (e *Executor) Register(endpoint string) {
	if e.breakerFailures <= 0 {
		return
	}
	if _, ok := e.breakers[endpoint]; ok {
		return
	}
	e.breakers[endpoint] = newBreaker(endpoint, e.breakerFailures, e.breakerOpenFor, e.log)
}

// BreakerState reports the breaker state of an endpoint, "disabled" when none.
func (e *Executor) BreakerState(endpoint string) string {
	if cb, ok := e.breakers[endpoint]; ok {
		return cb.State().String()
	}
	return "disabled"
}

// Execute runs req under one deadline covering every attempt and backoff.
// The error is always a *model.Failure.
func (e *Executor) Execute(ctx context.Context, req Request, opts Options) (*Response, error) {
	opts = opts.normalized()
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	cb, ok := e.breakers[req.Endpoint]
	if !ok {
		return e.retry(ctx, req, opts)
	}
	v, err := cb.Execute(func() (interface{}, error) {
		return e.retry(ctx, req, opts)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		e.log.Warn("executor: breaker rejected call",
			zap.String("endpoint", req.Endpoint), zap.String("call_id", req.CallID), zap.Error(err))
		e.observe(req.Endpoint, "breaker_open", 0)
		return nil, &model.Failure{
			Kind:    model.KindNetwork,
			Message: fmt.Sprintf("%s endpoint circuit open: the analysis service is unavailable, try again later", req.Endpoint),
			Err:     err,
		}
	}
	if err != nil {
		return nil, err
	}
	return v.(*Response), nil
}

func (e *Executor) retry(ctx context.Context, req Request, opts Options) (*Response, error) {
	var (
		resp     *Response
		attempts int
	)
	op := func() error {
		attempts++
		start := time.Now()
		r, err := e.attempt(ctx, req)
		if err != nil {
			f := transportFailure(ctx, err)
			e.observe(req.Endpoint, string(f.Kind), time.Since(start))
			return backoff.Permanent(f)
		}
		r.Attempts = attempts
		switch {
		case r.StatusCode >= 200 && r.StatusCode < 300:
			e.observe(req.Endpoint, "ok", time.Since(start))
			resp = r
			return nil
		case r.StatusCode == http.StatusTooManyRequests && attempts <= opts.MaxRetries:
			e.observe(req.Endpoint, string(model.KindRateLimited), time.Since(start))
			f := statusFailure(r)
			f.Kind = model.KindRateLimited
			return f
		default:
			e.observe(req.Endpoint, string(model.KindServer), time.Since(start))
			return backoff.Permanent(statusFailure(r))
		}
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(opts.RetryDelay), uint64(opts.MaxRetries)),
		ctx,
	)
	notify := func(err error, next time.Duration) {
		e.log.Info("executor: retry after 429",
			zap.String("endpoint", req.Endpoint),
			zap.String("call_id", req.CallID),
			zap.Int("attempt", attempts),
			zap.Duration("backoff", next),
			zap.Error(err))
		if e.observer != nil {
			e.observer.Retry(req.Endpoint)
		}
	}

	var timer backoff.Timer
	if e.newTimer != nil {
		timer = e.newTimer()
	}
	err := backoff.RetryNotifyWithTimer(op, b, notify, timer)
	if err == nil {
		e.log.Debug("executor: call succeeded",
			zap.String("endpoint", req.Endpoint), zap.String("call_id", req.CallID),
			zap.Int("status", resp.StatusCode), zap.Int("attempts", attempts))
		return resp, nil
	}

	var f *model.Failure
	if !errors.As(err, &f) {
		// context ended while waiting for the next attempt
		f = transportFailure(ctx, err)
	}
	fields := []zap.Field{
		zap.String("endpoint", req.Endpoint),
		zap.String("call_id", req.CallID),
		zap.String("kind", string(f.Kind)),
		zap.Int("attempts", attempts),
		zap.String("message", f.Message),
	}
	if f.HasStatus() {
		fields = append(fields, zap.Int("status", f.HTTPStatus))
	}
	e.log.Warn("executor: call failed", fields...)
	return nil, f
}

func (e *Executor) attempt(ctx context.Context, req Request) (*Response, error) {
	hreq, err := http.NewRequestWithContext(ctx, req.Method, e.base+req.Path, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if req.ContentType != "" {
		hreq.Header.Set("Content-Type", req.ContentType)
	}
	hreq.Header.Set("Accept", "application/json")
	if req.CallID != "" {
		hreq.Header.Set("X-Request-ID", req.CallID)
	}

	res, err := e.client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{StatusCode: res.StatusCode, Header: res.Header, Body: body}, nil
}

func (e *Executor) observe(endpoint, outcome string, elapsed time.Duration) {
	if e.observer != nil {
		e.observer.Request(endpoint, outcome, elapsed)
	}
}
