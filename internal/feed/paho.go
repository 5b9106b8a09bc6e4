package feed

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// PahoConfig holds the broker connection settings for the paho adapter.
type PahoConfig struct {
	BrokerURL      string // ws://, tcp:// or ssl://
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
}

// NewPahoDialer builds a Dialer backed by the Eclipse paho MQTT client.
// Auto-reconnect is disabled: the Listener owns the reconnect policy.
func NewPahoDialer(cfg PahoConfig) Dialer {
	return func(onLost func(err error)) Broker {
		opts := mqtt.NewClientOptions().
			AddBroker(cfg.BrokerURL).
			SetClientID(fmt.Sprintf("smartchain-%s", uuid.NewString()[:8])).
			SetKeepAlive(cfg.KeepAlive).
			SetConnectTimeout(cfg.ConnectTimeout).
			SetCleanSession(true).
			SetAutoReconnect(false).
			SetConnectionLostHandler(func(_ mqtt.Client, err error) {
				onLost(err)
			})
		return &pahoBroker{client: mqtt.NewClient(opts)}
	}
}

type pahoBroker struct {
	client mqtt.Client
}

func (b *pahoBroker) Connect(ctx context.Context) error {
	token := b.client.Connect()
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *pahoBroker) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	token := b.client.Subscribe(topic, qos, func(_ mqtt.Client, m mqtt.Message) {
		handler(m.Topic(), m.Payload())
	})
	token.Wait()
	return token.Error()
}

func (b *pahoBroker) Unsubscribe(topics ...string) error {
	token := b.client.Unsubscribe(topics...)
	token.Wait()
	return token.Error()
}

func (b *pahoBroker) Disconnect() {
	// Force close; quiesce for 250ms like the reference clients do.
	b.client.Disconnect(250)
}
