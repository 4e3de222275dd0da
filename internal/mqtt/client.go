package mqtt

import (
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sector-iot/sector-platform/pkg/config"
)

// Sentinel errors for publish outcomes. Callers treat ErrNotConnected as
// a synchronous "broker unavailable" signal and must not block on it.
var (
	ErrNotConnected   = errors.New("mqtt: client not connected")
	ErrPublishFailed  = errors.New("mqtt: publish failed")
	ErrConnectTimeout = errors.New("mqtt: connect timed out")
)

const connectTimeout = 5 * time.Second

// Client wraps the paho MQTT client with the platform's publish policy:
// a single bounded publish attempt, reconnects owned by paho.
type Client struct {
	client         pahomqtt.Client
	qos            byte
	publishTimeout time.Duration
}

// NewClient connects to the broker described by cfg. The paho client
// keeps reconnecting in the background after the initial handshake.
func NewClient(cfg config.APIConfig) (*Client, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.MQTTBrokerURL).
		SetClientID(cfg.MQTTClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second)
	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
		opts.SetPassword(cfg.MQTTPassword)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, ErrConnectTimeout
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker %s: %w", cfg.MQTTBrokerURL, err)
	}

	qos := byte(cfg.MQTTQoS)
	if qos > 2 {
		qos = 1
	}
	timeout := cfg.MQTTPublishTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{client: client, qos: qos, publishTimeout: timeout}, nil
}

// IsConnected reports current broker connectivity.
func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Publish sends payload to topic with the configured QoS. Disconnection
// is reported synchronously; the wait on the broker ack is bounded.
func (c *Client) Publish(topic string, payload []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, c.qos, false, payload)
	if !token.WaitTimeout(c.publishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, c.publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close disconnects from the broker, allowing in-flight work to finish.
func (c *Client) Close() {
	c.client.Disconnect(250)
}
