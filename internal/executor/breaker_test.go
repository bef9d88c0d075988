package executor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/LeonardoBeccarini/agrisense/internal/model"
)

func TestBreakerOpensAfterConsecutiveServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := newTestExecutor(t, srv, func(c *Config) {
		c.BreakerFailures = 2
		c.BreakerOpenFor = time.Minute
	})
	e.Register("soil")
	assert.Equal(t, "closed", e.BreakerState("soil"))

	for i := 0; i < 2; i++ {
		_, err := e.Execute(context.Background(), soilReq(), DefaultOptions())
		f := requireFailure(t, err)
		assert.Equal(t, model.KindServer, f.Kind)
	}
	assert.Equal(t, "open", e.BreakerState("soil"))

	_, err := e.Execute(context.Background(), soilReq(), DefaultOptions())
	f := requireFailure(t, err)
	assert.Equal(t, model.KindNetwork, f.Kind)
	assert.Contains(t, f.Message, "circuit open")
	assert.EqualValues(t, 2, hits.Load(), "open breaker must not reach the network")
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	e := newTestExecutor(t, srv, func(c *Config) { c.BreakerFailures = 1 })
	e.Register("soil")

	for i := 0; i < 3; i++ {
		_, err := e.Execute(context.Background(), soilReq(), DefaultOptions())
		f := requireFailure(t, err)
		assert.Equal(t, http.StatusBadRequest, f.HTTPStatus)
	}
	assert.Equal(t, "closed", e.BreakerState("soil"))
}

func TestBreakerDisabledByDefault(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	e := newTestExecutor(t, srv, nil)
	e.Register("soil")
	assert.Equal(t, "disabled", e.BreakerState("soil"))
}

func TestCountsAsSuccess(t *testing.T) {
	assert.True(t, countsAsSuccess(nil))
	assert.True(t, countsAsSuccess(&model.Failure{Kind: model.KindServer, HTTPStatus: 404}))
	assert.True(t, countsAsSuccess(&model.Failure{Kind: model.KindServer, HTTPStatus: 429}))
	assert.False(t, countsAsSuccess(&model.Failure{Kind: model.KindServer, HTTPStatus: 503}))
	assert.False(t, countsAsSuccess(&model.Failure{Kind: model.KindTimeout}))
	assert.False(t, countsAsSuccess(&model.Failure{Kind: model.KindNetwork}))
}
