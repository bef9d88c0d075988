// Package orchestrator exposes the two analysis operations. Each call validates
// its input, goes through the executor, checks the response schema and
// classifies it; only the latest call may publish its outcome.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/agrisense/internal/classify"
	"github.com/LeonardoBeccarini/agrisense/internal/executor"
	"github.com/LeonardoBeccarini/agrisense/internal/model"
	"github.com/LeonardoBeccarini/agrisense/internal/model/messages"
)

type Operation string

const (
	OpSoil    Operation = "soil"
	OpDisease Operation = "disease"
)

const (
	DefaultSoilPath    = "/api/analyze/soil"
	DefaultDiseasePath = "/api/analyze/disease"
)

// ErrSuperseded is returned to a caller whose call finished after a newer
// call started. Its outcome was discarded.
var ErrSuperseded = errors.New("analysis superseded by a newer call")

// Executor performs the remote call; *executor.Executor implements it.
type Executor interface {
	Execute(ctx context.Context, req executor.Request, opts executor.Options) (*executor.Response, error)
}

// Recorder receives one event per finished call.
type Recorder interface {
	Record(ctx context.Context, evt messages.AnalysisOutcomeEvent)
}

type Config struct {
	SoilPath    string
	DiseasePath string
	Options     executor.Options
	Logger      *zap.Logger
	Recorder    Recorder

	// NewCallID defaults to uuid.NewString.
	NewCallID func() string
}

// Snapshot is the externally visible state: the phase of the latest call
// and, once terminal, its result or failure.
type Snapshot struct {
	Generation uint64
	CallID     string
	Operation  Operation
	Phase      Phase
	Soil       *model.SoilResult
	Disease    *model.DiseaseResult
	Failure    *model.Failure
}

type Orchestrator struct {
	exec Executor
	cfg  Config
	log  *zap.Logger

	mu         sync.RWMutex
	generation uint64
	snap       Snapshot
}

func New(exec Executor, cfg Config) *Orchestrator {
	if cfg.SoilPath == "" {
		cfg.SoilPath = DefaultSoilPath
	}
	if cfg.DiseasePath == "" {
		cfg.DiseasePath = DefaultDiseasePath
	}
	if cfg.Options == (executor.Options{}) {
		cfg.Options = executor.DefaultOptions()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.NewCallID == nil {
		cfg.NewCallID = uuid.NewString
	}
	// breaker per endpoint, se abilitato
	if r, ok := exec.(interface{ Register(string) }); ok {
		r.Register(string(OpSoil))
		r.Register(string(OpDisease))
	}
	return &Orchestrator{exec: exec, cfg: cfg, log: cfg.Logger.Named("orchestrator")}
}

// Current returns the visible state.
func (o *Orchestrator) Current() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snap
}

// Reset clears the visible state. A terminal outcome is consumed (done);
// calls still in flight are superseded.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	prev := o.snap
	o.generation++
	gen := o.generation
	o.snap = Snapshot{Generation: gen, Phase: PhaseIdle}
	o.mu.Unlock()

	if !prev.Phase.Terminal() {
		if prev.Phase != PhaseIdle {
			o.log.Info("orchestrator: reset supersedes call in flight",
				zap.String("call_id", prev.CallID), zap.Stringer("phase", prev.Phase))
		}
		return
	}
	if _, err := Transition(prev.Phase, EventDone); err != nil {
		o.log.Error("orchestrator: reset", zap.Error(err))
		return
	}
	o.log.Debug("orchestrator: outcome cleared",
		zap.String("call_id", prev.CallID), zap.Stringer("phase", prev.Phase), zap.Uint64("generation", gen))
}

// AnalyzeSoil validates crop and reading, asks the soil endpoint for a
// recommendation and combines it with the locally computed score.
func (o *Orchestrator) AnalyzeSoil(ctx context.Context, crop string, reading model.SoilReading) (*model.SoilResult, error) {
	c := o.begin(OpSoil)

	if strings.TrimSpace(crop) == "" {
		return nil, c.reject(model.NewFailure(model.KindValidation, "Please select a crop type"))
	}
	cr, ok := model.ParseCrop(crop)
	if !ok {
		return nil, c.reject(model.NewFailure(model.KindValidation, "Unsupported crop %q", crop))
	}
	if err := reading.Validate(); err != nil {
		return nil, c.reject(&model.Failure{Kind: model.KindValidation, Message: "Invalid soil reading: " + err.Error(), Err: err})
	}
	body, err := json.Marshal(model.NewSoilRequest(cr, reading))
	if err != nil {
		return nil, c.reject(&model.Failure{Kind: model.KindValidation, Message: "Invalid soil reading: " + err.Error(), Err: err})
	}
	c.crop = string(cr)
	c.step(EventInputValid)

	resp, err := o.exec.Execute(ctx, executor.Request{
		Endpoint:    string(OpSoil),
		Method:      http.MethodPost,
		Path:        o.cfg.SoilPath,
		Body:        body,
		ContentType: "application/json",
		CallID:      c.id,
	}, o.cfg.Options)
	if err != nil {
		return nil, c.fail(EventRequestFailed, err)
	}
	c.step(EventResponse)

	remote, err := decodeSoilResponse(resp.Body)
	if err != nil {
		return nil, c.fail(EventRejected, &model.Failure{
			Kind:    model.KindInvalidResponse,
			Message: "Backend returned invalid soil analysis data structure: " + err.Error(),
			Err:     err,
		})
	}

	res := classify.Soil(cr, reading, remote)
	evt := c.event(messages.OutcomeSucceeded)
	evt.Crop, evt.Score, evt.Status = string(cr), res.Score, string(res.Status)
	if err := c.succeed(func(s *Snapshot) { s.Soil = &res }, evt); err != nil {
		return nil, err
	}
	return &res, nil
}

// AnalyzeDisease uploads a plant image to the disease endpoint and classifies
// the detection.
func (o *Orchestrator) AnalyzeDisease(ctx context.Context, req model.DiseaseRequest) (*model.DiseaseResult, error) {
	c := o.begin(OpDisease)

	if len(req.Image) == 0 {
		return nil, c.reject(model.NewFailure(model.KindValidation, "Please upload a plant image for disease detection"))
	}
	mediaType, ok := imageType(req)
	if !ok {
		return nil, c.reject(model.NewFailure(model.KindValidation, "Please select a valid image file (got %s)", mediaType))
	}
	body, contentType, err := buildUpload(req, mediaType)
	if err != nil {
		return nil, c.reject(&model.Failure{Kind: model.KindValidation, Message: "Could not encode image upload: " + err.Error(), Err: err})
	}
	c.step(EventInputValid)

	resp, err := o.exec.Execute(ctx, executor.Request{
		Endpoint:    string(OpDisease),
		Method:      http.MethodPost,
		Path:        o.cfg.DiseasePath,
		Body:        body,
		ContentType: contentType,
		CallID:      c.id,
	}, o.cfg.Options)
	if err != nil {
		return nil, c.fail(EventRequestFailed, err)
	}
	c.step(EventResponse)

	remote, err := decodeDiseaseResponse(resp.Body)
	if err != nil {
		return nil, c.fail(EventRejected, &model.Failure{
			Kind:    model.KindInvalidResponse,
			Message: "Backend returned invalid disease analysis data structure: " + err.Error(),
			Err:     err,
		})
	}

	res := classify.Disease(remote)
	evt := c.event(messages.OutcomeSucceeded)
	evt.Disease, evt.Severity, evt.Confidence = res.Label, string(res.Severity), res.Confidence
	if err := c.succeed(func(s *Snapshot) { s.Disease = &res }, evt); err != nil {
		return nil, err
	}
	return &res, nil
}

// call tracks one invocation through the state machine.
type call struct {
	o     *Orchestrator
	gen   uint64
	id    string
	op    Operation
	phase Phase
	start time.Time
	crop  string
	log   *zap.Logger
}

// begin bumps the generation, which supersedes any call still in flight,
// and clears the visible state.
func (o *Orchestrator) begin(op Operation) *call {
	id := o.cfg.NewCallID()

	o.mu.Lock()
	o.generation++
	gen := o.generation
	o.snap = Snapshot{Generation: gen, CallID: id, Operation: op, Phase: PhaseIdle}
	o.mu.Unlock()

	c := &call{
		o:     o,
		gen:   gen,
		id:    id,
		op:    op,
		phase: PhaseIdle,
		start: time.Now(),
		log:   o.log.With(zap.String("call_id", id), zap.String("operation", string(op)), zap.Uint64("generation", gen)),
	}
	c.log.Info("orchestrator: analysis started")
	c.step(EventStart)
	return c
}

// step advances a non-terminal phase and mirrors it while c is current.
func (c *call) step(e Event) {
	next, err := Transition(c.phase, e)
	if err != nil {
		c.log.DPanic("orchestrator: illegal transition", zap.Error(err))
		return
	}
	c.log.Debug("orchestrator: transition",
		zap.Stringer("from", c.phase), zap.Stringer("event", e), zap.Stringer("to", next))
	c.phase = next

	c.o.mu.Lock()
	if c.o.generation == c.gen {
		c.o.snap.Phase = next
	}
	c.o.mu.Unlock()
}

// finish applies a terminal transition and its outcome atomically. It returns
// false, leaving the visible state untouched, when a newer call has started.
func (c *call) finish(e Event, apply func(*Snapshot)) bool {
	next, err := Transition(c.phase, e)
	if err != nil {
		c.log.DPanic("orchestrator: illegal transition", zap.Error(err))
	}
	c.phase = next

	c.o.mu.Lock()
	defer c.o.mu.Unlock()
	if c.o.generation != c.gen {
		return false
	}
	c.o.snap.Phase = next
	apply(&c.o.snap)
	return true
}

func (c *call) reject(f *model.Failure) error {
	return c.fail(EventInputInvalid, f)
}

func (c *call) fail(e Event, err error) error {
	f, ok := model.AsFailure(err)
	if !ok {
		f = &model.Failure{Kind: model.KindNetwork, Message: err.Error(), Err: err}
	}
	if !c.finish(e, func(s *Snapshot) { s.Failure = f }) {
		return c.superseded()
	}
	fields := []zap.Field{zap.String("kind", string(f.Kind)), zap.String("message", f.Message)}
	if f.HasStatus() {
		fields = append(fields, zap.Int("status", f.HTTPStatus))
	}
	c.log.Warn("orchestrator: analysis failed", fields...)

	evt := c.event(messages.OutcomeFailed)
	evt.Kind, evt.HTTPStatus, evt.Crop = string(f.Kind), f.HTTPStatus, c.crop
	c.record(evt)
	return f
}

func (c *call) succeed(apply func(*Snapshot), evt messages.AnalysisOutcomeEvent) error {
	if !c.finish(EventClassified, apply) {
		return c.superseded()
	}
	c.log.Info("orchestrator: analysis succeeded", zap.Duration("elapsed", time.Since(c.start)))
	c.record(evt)
	return nil
}

func (c *call) superseded() error {
	c.o.mu.RLock()
	latest := c.o.generation
	c.o.mu.RUnlock()
	c.log.Info("orchestrator: outcome discarded, superseded by newer call",
		zap.Stringer("phase", c.phase), zap.Uint64("latest_generation", latest))
	evt := c.event(messages.OutcomeSuperseded)
	evt.Crop = c.crop
	c.record(evt)
	return fmt.Errorf("%w (generation %d, latest %d)", ErrSuperseded, c.gen, latest)
}

func (c *call) event(outcome string) messages.AnalysisOutcomeEvent {
	return messages.AnalysisOutcomeEvent{
		CallID:     c.id,
		Generation: c.gen,
		Operation:  string(c.op),
		Outcome:    outcome,
		DurationMs: time.Since(c.start).Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
}

func (c *call) record(evt messages.AnalysisOutcomeEvent) {
	if c.o.cfg.Recorder == nil {
		return
	}
	c.o.cfg.Recorder.Record(context.Background(), evt)
}
