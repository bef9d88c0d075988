// Package broker wraps the MQTT client used to fan analysis outcomes out to
// other processes.
package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// DefaultQoS is used for outcome events: at least once.
const DefaultQoS byte = 1

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string

	// ConnectRetries bounds the connect attempts (default 5).
	ConnectRetries int
}

func (c Config) addr() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

// Options builds the paho client options for cfg.
func (c Config) Options() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.addr())
	opts.SetUsername(c.User)
	opts.SetPassword(c.Password)
	opts.SetClientID(c.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(5 * time.Second)
	return opts
}

// Connect dials the broker, retrying with exponential backoff. The client
// is disconnected when ctx is done.
func Connect(ctx context.Context, cfg Config, log *zap.Logger) (mqtt.Client, error) {
	return connect(ctx, cfg, log, mqtt.NewClient)
}

func connect(ctx context.Context, cfg Config, log *zap.Logger, newClient func(*mqtt.ClientOptions) mqtt.Client) (mqtt.Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ConnectRetries <= 0 {
		cfg.ConnectRetries = 5
	}
	opts := cfg.Options()

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = newClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Warn("broker: connect failed", zap.String("addr", cfg.addr()), zap.Error(token.Error()))
			return token.Error()
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(cfg.ConnectRetries-1)), ctx))
	if err != nil {
		return nil, fmt.Errorf("broker: could not connect to %s: %w", cfg.addr(), err)
	}
	log.Info("broker: connected", zap.String("addr", cfg.addr()), zap.String("client_id", cfg.ClientID))

	go func() {
		<-ctx.Done()
		Close(client)
		log.Info("broker: connection closed")
	}()
	return client, nil
}

// Close disconnects client if it is still connected.
func Close(client mqtt.Client) {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
	}
}
