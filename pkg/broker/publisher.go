package broker

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// IPublisher publishes messages on the broker.
type IPublisher interface {
	PublishMessage(message interface{}) error
	PublishToQos(topic string, qos byte, message interface{}) error
	Close()
}

// Publisher sends to a default topic, or to any topic through PublishToQos.
type Publisher struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
	log     *zap.Logger
}

func NewPublisher(client mqtt.Client, topic string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{client: client, topic: topic, timeout: 5 * time.Second, log: log.Named("broker")}
}

// PublishMessage publishes to the default topic with DefaultQoS.
func (p *Publisher) PublishMessage(message interface{}) error {
	return p.PublishToQos(p.topic, DefaultQoS, message)
}

// PublishToQos accepts a string or []byte as-is; anything else is sent as JSON.
func (p *Publisher) PublishToQos(topic string, qos byte, message interface{}) error {
	if topic == "" {
		return errors.New("broker: empty topic")
	}
	payload, err := encode(message)
	if err != nil {
		return err
	}

	token := p.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("broker: publish to %s timed out after %s", topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("broker: publish to %s: %w", topic, err)
	}
	p.log.Debug("broker: message published", zap.String("topic", topic), zap.Int("bytes", len(payload)))
	return nil
}

func (p *Publisher) Close() {
	Close(p.client)
}

func encode(message interface{}) ([]byte, error) {
	switch m := message.(type) {
	case string:
		return []byte(m), nil
	case []byte:
		return m, nil
	default:
		b, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("broker: encode message: %w", err)
		}
		return b, nil
	}
}
