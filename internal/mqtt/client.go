package mqtt

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"pijuice2mqtt/internal/config"
)

// Availability payloads on the service topic.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

const publishTimeout = 5 * time.Second

// Publisher is the broker capability consumed by the publish cycle and the
// autodiscovery announcer.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Client wraps the paho client. The last will is registered before
// connecting so the broker publishes a retained "offline" on the
// availability topic whenever the connection drops uncleanly.
type Client struct {
	client mqtt.Client
	config *config.Config
	logger *logrus.Logger

	// Serializes Publish between the periodic cycle and the connect-time
	// announcer. Paho's own publish is thread safe; the mutex additionally
	// keeps the availability/status write ordering coherent.
	mu sync.Mutex

	onConnect func()
}

func New(cfg *config.Config, logger *logrus.Logger) *Client {
	c := &Client{
		config: cfg,
		logger: logger,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Broker, cfg.MQTT.Port))
	opts.SetClientID(cfg.DeviceID())
	opts.SetUsername(cfg.MQTT.Username)
	opts.SetPassword(cfg.MQTT.Password)
	opts.SetBinaryWill(cfg.AvailabilityTopic(), []byte(PayloadOffline), 1, true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)

	opts.SetConnectionLostHandler(c.handleConnectionLost)
	opts.SetOnConnectHandler(c.handleConnect)

	c.client = mqtt.NewClient(opts)

	return c
}

// SetOnConnect registers the callback invoked on every successful
// (re)connection, after the broker has acknowledged the session.
func (c *Client) SetOnConnect(fn func()) {
	c.onConnect = fn
}

func (c *Client) Connect() error {
	c.logger.Infof("Connecting to MQTT broker %s:%d...", c.config.MQTT.Broker, c.config.MQTT.Port)

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return nil
}

func (c *Client) Disconnect() {
	c.logger.Info("Disconnecting from MQTT broker...")
	c.client.Disconnect(250)
}

func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s failed: %w", topic, err)
	}
	return nil
}

func (c *Client) handleConnect(client mqtt.Client) {
	c.logger.Info("Connected to MQTT broker")
	if c.onConnect != nil {
		c.onConnect()
	}
}

func (c *Client) handleConnectionLost(client mqtt.Client, err error) {
	c.logger.Errorf("MQTT connection lost: %v", err)
}
