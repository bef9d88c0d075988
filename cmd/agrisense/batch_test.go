package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/agrisense/internal/executor"
	"github.com/LeonardoBeccarini/agrisense/internal/model"
	"github.com/LeonardoBeccarini/agrisense/internal/model/messages"
	"github.com/LeonardoBeccarini/agrisense/internal/orchestrator"
	"github.com/LeonardoBeccarini/agrisense/internal/telemetry"
	"github.com/LeonardoBeccarini/agrisense/pkg/dedup"
)

func writeBatch(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadBatchKeepsFormDefaults(t *testing.T) {
	path := writeBatch(t, `
- name: north field
  crop: Rice
  reading:
    nitrogen: 12
- reading:
    ph: 5.1
`)
	entries, err := loadBatch(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	d := model.DefaultSoilReading()
	assert.Equal(t, "north field", entries[0].Name)
	assert.Equal(t, "Rice", entries[0].Crop)
	assert.Equal(t, 12.0, entries[0].Reading.Nitrogen)
	assert.Equal(t, d.PH, entries[0].Reading.PH)

	assert.Equal(t, string(model.DefaultCrop), entries[1].Crop)
	assert.Equal(t, 5.1, entries[1].Reading.PH)
	assert.Equal(t, d.Moisture, entries[1].Reading.Moisture)
}

func TestLoadBatchRejectsEmptyFile(t *testing.T) {
	_, err := loadBatch(writeBatch(t, "[]\n"))
	assert.ErrorContains(t, err, "no entries")
}

// One orchestrator serves the whole batch, so the breaker trips after the
// configured failures and the remaining samples fail without a request.
func TestRunBatchTripsBreakerAcrossSamples(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	exec, err := executor.New(executor.Config{
		BaseURL:         srv.URL,
		Client:          srv.Client(),
		Logger:          zap.NewNop(),
		BreakerFailures: 2,
		BreakerOpenFor:  time.Minute,
	})
	require.NoError(t, err)
	orch := orchestrator.New(exec, orchestrator.Config{Options: executor.DefaultOptions()})

	entries := make([]batchEntry, 5)
	for i := range entries {
		entries[i] = batchEntry{Crop: string(model.CropWheat), Reading: model.DefaultSoilReading()}
	}
	var out bytes.Buffer
	sum := runBatch(context.Background(), orch, entries, &out)

	assert.Equal(t, batchSummary{Succeeded: 0, Failed: 5}, sum)
	assert.EqualValues(t, 2, hits.Load())
	assert.Equal(t, "open", exec.BreakerState(string(orchestrator.OpSoil)))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "#1 Wheat: Analysis failed [server_error]")
	assert.Contains(t, lines[4], "#5 Wheat: Analysis failed [network_error]")
	assert.Contains(t, lines[4], "circuit open")
}

func TestRunBatchPrintsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.RemoteSoilResponse{
			RecommendedFertilizer: "Urea (50kg/acre)",
			SoilImprovementFocus:  "Increase nitrogen",
		})
	}))
	t.Cleanup(srv.Close)

	exec, err := executor.New(executor.Config{BaseURL: srv.URL, Client: srv.Client()})
	require.NoError(t, err)
	orch := orchestrator.New(exec, orchestrator.Config{})

	var out bytes.Buffer
	sum := runBatch(context.Background(), orch, []batchEntry{
		{Name: "plot-a", Crop: "Wheat", Reading: model.DefaultSoilReading()},
	}, &out)

	assert.Equal(t, batchSummary{Succeeded: 1}, sum)
	assert.Equal(t, "plot-a Wheat: 85/100 (Excellent), Urea, 50kg/acre\n", out.String())
}

func TestRunBatchStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	sum := runBatch(ctx, nil, []batchEntry{{Crop: "Wheat"}}, &out)
	assert.Equal(t, batchSummary{}, sum)
	assert.Empty(t, out.String())
}

type stubBreakers map[string]string

func (s stubBreakers) BreakerState(endpoint string) string { return s[endpoint] }

func TestStartMetricsServesMetricsAndHealth(t *testing.T) {
	m := telemetry.NewMetrics()
	m.Request("soil", "ok", 20*time.Millisecond)

	health := telemetry.Health{Breakers: stubBreakers{"soil": "open"}, Endpoints: []string{"soil"}}
	addr, stop, err := startMetrics("127.0.0.1:0", m, health, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(stop)

	base := "http://" + addr.String()
	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `agrisense_requests_total{endpoint="soil",outcome="ok"} 1`)

	resp, err = http.Get(base + "/healthz")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), `"soil":"open"`)
}

func TestStartMetricsReportsListenError(t *testing.T) {
	_, _, err := startMetrics("256.0.0.1:0", telemetry.NewMetrics(), http.NotFoundHandler(), zap.NewNop())
	assert.ErrorContains(t, err, "metrics listen")
}

func TestOutcomeHandlerDedupsAndCounts(t *testing.T) {
	m := telemetry.NewMetrics()
	var out bytes.Buffer
	h := outcomeHandler(&out, dedup.New(time.Minute, 10), m, zap.NewNop())

	evt := messages.AnalysisOutcomeEvent{
		CallID:    "c-1",
		Operation: "soil",
		Outcome:   messages.OutcomeFailed,
		Kind:      string(model.KindTimeout),
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(evt)
	require.NoError(t, err)

	require.NoError(t, h("agrisense/outcome/soil", payload))
	require.NoError(t, h("agrisense/outcome/soil", payload))

	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
	assert.Contains(t, out.String(), "kind=timeout")
	expected := `
# HELP agrisense_analysis_total Committed analysis outcomes; kind is "ok" on success.
# TYPE agrisense_analysis_total counter
agrisense_analysis_total{kind="timeout",operation="soil"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "agrisense_analysis_total"))
}

func TestOutcomeHandlerRejectsGarbage(t *testing.T) {
	h := outcomeHandler(io.Discard, dedup.New(0, 0), telemetry.NewMetrics(), zap.NewNop())
	assert.ErrorContains(t, h("t", []byte("{")), "decode outcome")
}
