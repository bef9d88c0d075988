package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/agrisense/internal/config"
	"github.com/LeonardoBeccarini/agrisense/internal/executor"
	"github.com/LeonardoBeccarini/agrisense/internal/orchestrator"
	"github.com/LeonardoBeccarini/agrisense/internal/telemetry"
	"github.com/LeonardoBeccarini/agrisense/pkg/broker"
)

// app wires executor, orchestrator and the optional telemetry sinks.
type app struct {
	log     *zap.Logger
	exec    *executor.Executor
	orch    *orchestrator.Orchestrator
	metrics *telemetry.Metrics
	influx  *telemetry.InfluxRecorder
	mqtt    mqtt.Client

	closers []func()
}

func newApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	a := &app{log: log, metrics: telemetry.NewMetrics()}

	exec, err := executor.New(executor.Config{
		BaseURL:         cfg.BaseURL,
		Logger:          log,
		BreakerFailures: cfg.BreakerFailures,
		BreakerOpenFor:  cfg.BreakerOpenFor(),
		Observer:        a.metrics,
	})
	if err != nil {
		return nil, err
	}
	a.exec = exec

	recorders := telemetry.Fanout{a.metrics}
	if cfg.InfluxEnabled() {
		client, rec := telemetry.OpenInflux(cfg.InfluxTarget(), log)
		a.influx = rec
		recorders = append(recorders, rec)
		a.closers = append(a.closers, func() {
			client.Close()
			// let the error listener log what the final flush reported
			select {
			case <-rec.Done():
			case <-time.After(2 * time.Second):
			}
		})
		log.Info("agrisense: influx outcome writer enabled", zap.String("url", cfg.Influx.URL), zap.String("bucket", cfg.Influx.Bucket))
	}

	if cfg.MQTTEnabled() {
		client, err := broker.Connect(ctx, cfg.Broker(), log)
		if err != nil {
			// outcome notifications are optional, the analysis still runs
			log.Warn("agrisense: mqtt disabled", zap.Error(err))
		} else {
			a.mqtt = client
			pub := broker.NewPublisher(client, "", log)
			recorders = append(recorders, telemetry.NewNotifier(pub, cfg.MQTT.OutcomeTopic, log))
			a.closers = append(a.closers, pub.Close)
		}
	}

	a.orch = orchestrator.New(exec, orchestrator.Config{
		SoilPath:    cfg.SoilPath,
		DiseasePath: cfg.DiseasePath,
		Options:     cfg.ExecutorOptions(),
		Logger:      log,
		Recorder:    recorders,
	})
	return a, nil
}

// health reports the sinks and breakers of this app.
func (a *app) health() telemetry.Health {
	h := telemetry.Health{
		Influx:    a.influx,
		Breakers:  a.exec,
		Endpoints: []string{string(orchestrator.OpSoil), string(orchestrator.OpDisease)},
	}
	if a.mqtt != nil {
		h.MQTT = a.mqtt
	}
	return h
}

// startMetrics serves /metrics and /healthz on addr until stop is called.
// Only long-running commands (batch, watch) start it.
func startMetrics(addr string, m *telemetry.Metrics, health http.Handler, log *zap.Logger) (net.Addr, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/healthz", health)

	hs := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("agrisense: metrics listening", zap.Stringer("addr", ln.Addr()))
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("agrisense: metrics server failed", zap.Error(err))
		}
	}()
	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = hs.Shutdown(ctx)
	}
	return ln.Addr(), stop, nil
}

// close releases resources in reverse order; the influx client flushes here.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
