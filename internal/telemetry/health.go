package telemetry

import (
	"encoding/json"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// BreakerStater is implemented by *executor.Executor.
type BreakerStater interface {
	BreakerState(endpoint string) string
}

// Health serves /healthz. Optional sources left nil are reported as disabled.
type Health struct {
	MQTT      mqtt.Client
	Influx    *InfluxRecorder
	Breakers  BreakerStater
	Endpoints []string

	// MinErrorAge is how long ago the last Influx write error must be (default 30s).
	MinErrorAge time.Duration
}

type healthStatus struct {
	Status          string            `json:"status"`
	MQTT            string            `json:"mqtt"`
	Influx          string            `json:"influx"`
	LastWriteErrorS float64           `json:"last_write_error_age_sec,omitempty"`
	Breakers        map[string]string `json:"breakers,omitempty"`
}

func (h Health) check() healthStatus {
	minAge := h.MinErrorAge
	if minAge <= 0 {
		minAge = 30 * time.Second
	}
	st := healthStatus{Status: "ok", MQTT: "disabled", Influx: "disabled"}

	if h.MQTT != nil {
		st.MQTT = "connected"
		if !h.MQTT.IsConnectionOpen() {
			st.MQTT = "disconnected"
			st.Status = "degraded"
		}
	}
	if h.Influx != nil {
		age := h.Influx.LastErrorAge()
		st.LastWriteErrorS = age.Seconds()
		st.Influx = "ok"
		if age <= minAge {
			st.Influx = "write_errors"
			st.Status = "degraded"
		}
	}
	if h.Breakers != nil {
		st.Breakers = make(map[string]string, len(h.Endpoints))
		for _, ep := range h.Endpoints {
			s := h.Breakers.BreakerState(ep)
			st.Breakers[ep] = s
			if s == "open" {
				st.Status = "degraded"
			}
		}
	}
	return st
}

// ServeHTTP answers 200 when ok and 503 when degraded.
func (h Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	st := h.check()
	w.Header().Set("Content-Type", "application/json")
	if st.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(st)
}
