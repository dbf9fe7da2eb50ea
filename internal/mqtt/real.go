package mqtt

import (
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/interlock-panel/internal/logic"
)

// Options configures the broker connection.
type Options struct {
	Broker   string
	ClientID string
	Logger   *slog.Logger
}

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	log    *slog.Logger
}

// NewRealPublisher connects to the broker. An OFFLINE will is registered
// on the system topic; a RECONNECTED event is sent after each reconnect.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ClientID == "" {
		opts.ClientID = "interlock-panel"
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "MQTT_DISCONNECT"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	p := &RealPublisher{log: logger}
	connected := false
	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("mqtt connection lost", "err", err)
		}).
		SetOnConnectHandler(func(c paho.Client) {
			if !connected {
				connected = true
				return
			}
			logger.Info("mqtt reconnected", "broker", opts.Broker)
			payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
			if err == nil {
				c.Publish(TopicSystem, 1, false, payload)
			}
		})

	p.client = paho.NewClient(co)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	logger.Info("mqtt connected", "broker", opts.Broker, "client_id", opts.ClientID)
	return p, nil
}

// Send publishes one serialized message and waits for it to leave.
func (p *RealPublisher) Send(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		return fmt.Errorf("not connected")
	}
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Publish sends a panel event synchronously.
func (p *RealPublisher) Publish(event logic.Event) error {
	msg, err := eventMessage(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.Send(msg.topic, msg.qos, msg.retained, msg.payload)
}

// PublishSystem sends a lifecycle event synchronously.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	msg, err := systemMessage(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.Send(msg.topic, msg.qos, msg.retained, msg.payload)
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
