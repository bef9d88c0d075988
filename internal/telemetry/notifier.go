package telemetry

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/agrisense/internal/model/messages"
	"github.com/LeonardoBeccarini/agrisense/pkg/broker"
)

// DefaultOutcomeTopic is expanded per event; {operation} becomes soil or disease.
const DefaultOutcomeTopic = "agrisense/outcome/{operation}"

// Notifier publishes every outcome event as JSON on the broker.
type Notifier struct {
	pub   broker.IPublisher
	topic string
	log   *zap.Logger
}

func NewNotifier(pub broker.IPublisher, topic string, log *zap.Logger) *Notifier {
	if topic == "" {
		topic = DefaultOutcomeTopic
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{pub: pub, topic: topic, log: log.Named("telemetry")}
}

// Topic returns the topic an event is published on.
func (n *Notifier) Topic(evt messages.AnalysisOutcomeEvent) string {
	return strings.ReplaceAll(n.topic, "{operation}", evt.Operation)
}

// Record publishes evt. A publish error is logged; it never affects the call.
func (n *Notifier) Record(_ context.Context, evt messages.AnalysisOutcomeEvent) {
	if n == nil {
		return
	}
	topic := n.Topic(evt)
	if err := n.pub.PublishToQos(topic, broker.DefaultQoS, evt); err != nil {
		n.log.Warn("telemetry: outcome notification failed",
			zap.String("topic", topic), zap.String("call_id", evt.CallID), zap.Error(err))
	}
}
