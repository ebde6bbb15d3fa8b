package mqtt

import (
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/oceanworks/desal_backend/config"
)

// Client wraps the MQTT client with rig telemetry specific functionality
type Client struct {
	client        mqtt.Client
	parser        *SampleParser
	topic         string
	sampleHandler func(*Sample)
	errorHandler  func(error)
	isConnected   bool
}

// NewClient creates a new MQTT client for rig telemetry ingestion
func NewClient(cfg config.MQTTConfig) *Client {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	opts.SetKeepAlive(cfg.KeepAlive)
	opts.SetPingTimeout(cfg.PingTimeout)
	opts.SetConnectRetry(cfg.ConnectRetry)
	opts.SetCleanSession(true)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := &Client{
		parser: NewSampleParser(),
		topic:  cfg.TopicSensorValues,
	}

	opts.SetDefaultPublishHandler(client.defaultMessageHandler)
	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)

	client.client = mqtt.NewClient(opts)

	return client
}

// Connect establishes connection to the MQTT broker
func (c *Client) Connect() error {
	log.Println("Connecting to MQTT broker...")

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Println("Successfully connected to MQTT broker")
	c.isConnected = true
	return nil
}

// Disconnect closes the MQTT connection
func (c *Client) Disconnect() {
	if c.isConnected {
		c.client.Disconnect(250)
		c.isConnected = false
		log.Println("Disconnected from MQTT broker")
	}
}

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	return c.isConnected && c.client.IsConnected()
}

// SetSampleHandler sets the callback for parsed telemetry samples
func (c *Client) SetSampleHandler(handler func(*Sample)) {
	c.sampleHandler = handler
}

// SetErrorHandler sets the callback function for errors
func (c *Client) SetErrorHandler(handler func(error)) {
	c.errorHandler = handler
}

// SubscribeToSensorValues subscribes to the rig telemetry topics
func (c *Client) SubscribeToSensorValues() error {
	topics := map[string]byte{
		c.topic:             1, // per-sensor topic, e.g. rig/sensors/H1/value
		"rig/sensors/value": 1, // shared topic with sensor_id in the payload
	}

	for topic, qos := range topics {
		if token := c.client.Subscribe(topic, qos, c.sensorValueHandler); token.Wait() && token.Error() != nil {
			return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
		}
		log.Printf("Subscribed to topic: %s", topic)
	}

	return nil
}

// sensorIDFromTopic extracts the sensor id segment from a per-sensor topic,
// e.g. "rig/sensors/H1/value" yields "H1"
func sensorIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 4 && parts[3] == "value" {
		return parts[2]
	}
	return ""
}

// sensorValueHandler processes incoming telemetry messages
func (c *Client) sensorValueHandler(client mqtt.Client, msg mqtt.Message) {
	topicSensorID := sensorIDFromTopic(msg.Topic())

	// Try JSON first, then the comma-separated fallback
	sample, err := c.parser.ParseJSON(msg.Payload(), topicSensorID)
	if err != nil {
		sample, err = c.parser.ParseString(string(msg.Payload()))
		if err != nil {
			log.Printf("Failed to parse telemetry on %s: %v", msg.Topic(), err)
			if c.errorHandler != nil {
				c.errorHandler(fmt.Errorf("telemetry parsing failed: %w", err))
			}
			return
		}
	}

	if c.sampleHandler != nil {
		c.sampleHandler(sample)
	}
}

// defaultMessageHandler handles messages on unsubscribed topics
func (c *Client) defaultMessageHandler(client mqtt.Client, msg mqtt.Message) {
	log.Printf("Received message on unhandled topic %s: %s", msg.Topic(), string(msg.Payload()))
}

// onConnect callback when connection is established
func (c *Client) onConnect(client mqtt.Client) {
	log.Println("MQTT client connected")
	c.isConnected = true
}

// onConnectionLost callback when connection is lost
func (c *Client) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("MQTT connection lost: %v", err)
	c.isConnected = false

	if c.errorHandler != nil {
		c.errorHandler(fmt.Errorf("MQTT connection lost: %w", err))
	}
}
