package service

import (
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/dohoonk/roomdetect/floorplan"
)

// DefaultClientID is used when neither MQTT_CLIENT_ID nor mqtt.clientId is set.
const DefaultClientID = "roomdetect"

// MessageHandler is called for every segment payload received on a source
// topic. err is set when the payload could not be decoded or validated.
type MessageHandler func(sourceID string, segments []floorplan.WallSegment, err error)

// MQTTClient manages the MQTT connection and the source topic subscriptions
type MQTTClient struct {
	client         mqtt.Client
	config         *Config
	tolerance      float64
	messageHandler MessageHandler
	isConnected    bool
	mu             sync.RWMutex
}

// InitMQTT creates the MQTT client and starts connecting in the background.
// It returns nil, nil when no broker is configured. Environment overrides are
// already folded into config by LoadConfig.
func InitMQTT(config *Config, handler MessageHandler) (*MQTTClient, error) {
	if config == nil || config.MQTT.Broker == "" {
		log.Println("[MQTT] disabled: no broker configured")
		return nil, nil
	}
	if len(config.topicSources()) == 0 {
		return nil, fmt.Errorf("MQTT enabled but no source topics configured")
	}

	client := &MQTTClient{
		config:         config,
		tolerance:      config.Detection.Options().Tolerance,
		messageHandler: handler,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.MQTT.Broker)

	clientID := config.MQTT.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}
	opts.SetClientID(clientID)

	if config.MQTT.Username != "" {
		opts.SetUsername(config.MQTT.Username)
		opts.SetPassword(config.MQTT.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false) // keep subscriptions across reconnects
	opts.SetOrderMatters(false)

	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)
	opts.SetReconnectingHandler(client.onReconnecting)

	client.client = mqtt.NewClient(opts)

	go client.connectWithRetry()

	return client, nil
}

// topicSources returns the sources fed over MQTT.
func (c *Config) topicSources() []SourceConfig {
	var out []SourceConfig
	for _, sc := range c.Sources {
		if sc.Topic != "" {
			out = append(out, sc)
		}
	}
	return out
}

// connectWithRetry attempts to connect to the MQTT broker with exponential backoff
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		log.Println("[MQTT] connecting to broker...")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("[MQTT] connected")
				c.setConnected(true)
				return
			}
			log.Printf("[MQTT] connection failed: %v", token.Error())
		} else {
			log.Println("[MQTT] connection timeout")
		}

		log.Printf("[MQTT] retrying in %v...", retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

// onConnect subscribes to every source topic
func (c *MQTTClient) onConnect(client mqtt.Client) {
	c.setConnected(true)

	for _, src := range c.config.topicSources() {
		log.Printf("[MQTT] subscribing to %s for source %s", src.Topic, src.ID)
		token := client.Subscribe(src.Topic, 0, c.createMessageHandler(src.ID))

		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			log.Printf("[MQTT] error subscribing to %s: %v", src.Topic, token.Error())
		}
	}
}

// onConnectionLost is called when the connection drops; auto-reconnect retries
func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("[MQTT] connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

func (c *MQTTClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	log.Println("[MQTT] reconnecting...")
}

// createMessageHandler decodes segment payloads for one source
func (c *MQTTClient) createMessageHandler(sourceID string) mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		payload := msg.Payload()
		log.Printf("[MQTT] received walls for %s (topic: %s, size: %d bytes)",
			sourceID, msg.Topic(), len(payload))

		segments, err := floorplan.ParseSegmentsJSON(payload, c.tolerance)
		if err != nil {
			log.Printf("[MQTT] error decoding walls for %s: %v", sourceID, err)
		}
		if c.messageHandler != nil {
			c.messageHandler(sourceID, segments, err)
		}
	}
}

// IsConnected returns true if the MQTT client is connected
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect gracefully closes the MQTT connection
func (c *MQTTClient) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		log.Println("[MQTT] disconnecting...")
		c.client.Disconnect(250)
		c.setConnected(false)
	}
}

// GetClient returns the underlying MQTT client for publishing
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

// newMQTTClientWithMock wraps a provided mqtt.Client; used by tests
func newMQTTClientWithMock(client mqtt.Client, config *Config, handler MessageHandler) *MQTTClient {
	return &MQTTClient{
		client:         client,
		config:         config,
		tolerance:      config.Detection.Options().Tolerance,
		messageHandler: handler,
	}
}
