package telemetry

import (
	"context"

	"github.com/LeonardoBeccarini/agrisense/internal/model/messages"
)

type Recorder interface {
	Record(ctx context.Context, evt messages.AnalysisOutcomeEvent)
}

// Fanout forwards each event to every recorder in order. Nil entries are skipped.
type Fanout []Recorder

func (f Fanout) Record(ctx context.Context, evt messages.AnalysisOutcomeEvent) {
	for _, r := range f {
		if r != nil {
			r.Record(ctx, evt)
		}
	}
}
