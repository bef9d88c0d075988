package broker

import (
	"context"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Handler processes one message received on topic.
type Handler func(topic string, payload []byte) error

// Subscriber listens on a set of topic filters until its context ends.
type Subscriber struct {
	client  mqtt.Client
	topics  []string
	handler Handler
	log     *zap.Logger
}

func NewSubscriber(client mqtt.Client, topics []string, handler Handler, log *zap.Logger) *Subscriber {
	if log == nil {
		log = zap.NewNop()
	}
	return &Subscriber{client: client, topics: topics, handler: handler, log: log.Named("broker")}
}

// Run subscribes to every topic and blocks until ctx is done, then
// unsubscribes.
func (s *Subscriber) Run(ctx context.Context) error {
	for _, topic := range s.topics {
		topic := topic
		token := s.client.Subscribe(topic, DefaultQoS, func(_ mqtt.Client, msg mqtt.Message) {
			if err := s.handler(msg.Topic(), msg.Payload()); err != nil {
				s.log.Warn("broker: handler failed", zap.String("topic", msg.Topic()), zap.Error(err))
			}
		})
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("broker: subscribe %s: %w", topic, token.Error())
		}
		s.log.Info("broker: subscribed", zap.String("topic", topic))
	}

	<-ctx.Done()

	s.client.Unsubscribe(s.topics...).Wait()
	return nil
}
