package orchestrator

import "fmt"

// Phase is the state of one analysis call.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseRequesting
	PhaseClassifying
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseRequesting:
		return "requesting"
	case PhaseClassifying:
		return "classifying"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether the call has an outcome.
func (p Phase) Terminal() bool { return p == PhaseSucceeded || p == PhaseFailed }

type Event int

const (
	EventStart         Event = iota // caller invoked an analysis
	EventInputValid                 // input passed validation
	EventInputInvalid               // input rejected, no network call
	EventResponse                   // 2xx received
	EventRequestFailed              // executor returned a failure
	EventClassified                 // response passed the schema, result built
	EventRejected                   // response failed the schema
	EventDone                       // outcome consumed, back to idle
)

var eventNames = [...]string{
	"start", "input_valid", "input_invalid", "response",
	"request_failed", "classified", "rejected", "done",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return fmt.Sprintf("event(%d)", int(e))
	}
	return eventNames[e]
}

var transitions = map[Phase]map[Event]Phase{
	PhaseIdle: {
		EventStart: PhaseValidating,
	},
	PhaseValidating: {
		EventInputValid:   PhaseRequesting,
		EventInputInvalid: PhaseFailed,
	},
	PhaseRequesting: {
		EventResponse:      PhaseClassifying,
		EventRequestFailed: PhaseFailed,
	},
	PhaseClassifying: {
		EventClassified: PhaseSucceeded,
		EventRejected:   PhaseFailed,
	},
	PhaseSucceeded: {
		EventDone: PhaseIdle,
	},
	PhaseFailed: {
		EventDone: PhaseIdle,
	},
}

// Transition is the pure step function of the call state machine.
func Transition(p Phase, e Event) (Phase, error) {
	if next, ok := transitions[p][e]; ok {
		return next, nil
	}
	return p, fmt.Errorf("invalid transition: %s on %s", e, p)
}
