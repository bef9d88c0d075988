package telemetry

import (
	"context"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/agrisense/internal/model/messages"
)

const measurement = "analysis_outcome"

// OutcomeToPoint normalizes an outcome event into an InfluxDB point.
func OutcomeToPoint(evt messages.AnalysisOutcomeEvent) *write.Point {
	tags := map[string]string{
		"operation": evt.Operation,
		"outcome":   evt.Outcome,
	}
	if evt.Kind != "" {
		tags["kind"] = evt.Kind
	}
	if evt.Crop != "" {
		tags["crop"] = evt.Crop
	}
	if evt.Status != "" {
		tags["status"] = evt.Status
	}
	if evt.Severity != "" {
		tags["severity"] = evt.Severity
	}

	fields := map[string]interface{}{
		"duration_ms": evt.DurationMs,
		"generation":  int64(evt.Generation),
		"call_id":     evt.CallID,
	}
	if evt.HTTPStatus != 0 {
		fields["http_status"] = int64(evt.HTTPStatus)
	}
	if evt.Outcome == messages.OutcomeSucceeded {
		switch evt.Operation {
		case "soil":
			fields["score"] = int64(evt.Score)
		case "disease":
			fields["confidence"] = evt.Confidence
			fields["disease"] = evt.Disease
		}
	}

	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return influxdb2.NewPoint(measurement, tags, fields, ts)
}

// InfluxRecorder writes one point per outcome through the non-blocking write
// API and remembers when the last asynchronous write error happened.
type InfluxRecorder struct {
	api api.WriteAPI
	log *zap.Logger

	mu      sync.RWMutex
	lastErr time.Time
	written map[string]int64
	done    chan struct{}
}

func NewInfluxRecorder(w api.WriteAPI, log *zap.Logger) *InfluxRecorder {
	if log == nil {
		log = zap.NewNop()
	}
	r := &InfluxRecorder{
		api:     w,
		log:     log.Named("telemetry"),
		lastErr: time.Now().Add(-24 * time.Hour),
		written: make(map[string]int64),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		for err := range w.Errors() {
			if err == nil {
				continue
			}
			r.mu.Lock()
			r.lastErr = time.Now()
			r.mu.Unlock()
			r.log.Warn("telemetry: influx write error", zap.Error(err))
		}
	}()
	return r
}

func (r *InfluxRecorder) Record(_ context.Context, evt messages.AnalysisOutcomeEvent) {
	if r == nil {
		return
	}
	r.api.WritePoint(OutcomeToPoint(evt))
	r.mu.Lock()
	r.written[evt.Operation+"/"+evt.Outcome]++
	r.mu.Unlock()
}

// LastErrorAge is the time since the last write error.
func (r *InfluxRecorder) LastErrorAge() time.Duration {
	if r == nil {
		return 99999 * time.Hour
	}
	r.mu.RLock()
	t := r.lastErr
	r.mu.RUnlock()
	return time.Since(t)
}

// Written returns how many points were queued for operation/outcome.
func (r *InfluxRecorder) Written(operation, outcome string) int64 {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.written[operation+"/"+outcome]
}

// Flush forces pending points out.
func (r *InfluxRecorder) Flush() {
	if r != nil {
		r.api.Flush()
	}
}

// Done is closed once the write API has closed its error channel.
func (r *InfluxRecorder) Done() <-chan struct{} { return r.done }

// InfluxConfig selects the target bucket.
type InfluxConfig struct {
	URL, Token, Org, Bucket string
	BatchSize               uint
	FlushInterval           time.Duration
}

// OpenInflux creates the client and the recorder writing to cfg.Bucket.
// The caller closes the client, which also flushes the recorder.
func OpenInflux(cfg InfluxConfig, log *zap.Logger) (influxdb2.Client, *InfluxRecorder) {
	opts := influxdb2.DefaultOptions()
	if cfg.BatchSize > 0 {
		opts.SetBatchSize(cfg.BatchSize)
	}
	if cfg.FlushInterval > 0 {
		opts.SetFlushInterval(uint(cfg.FlushInterval.Milliseconds()))
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)
	return client, NewInfluxRecorder(client.WriteAPI(cfg.Org, cfg.Bucket), log)
}
