package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/crowdvisual/crowdvisual-platform/pkg/config"
)

const (
	connectTimeout = 10 * time.Second

	statusOnline  = "online"
	statusOffline = "offline"
)

// subscription remembers enough to re-subscribe after a reconnect.
type subscription struct {
	qos     byte
	handler MessageHandler
}

// mqttClient wraps the Paho client for the campus session feed.
type mqttClient struct {
	client   pahomqtt.Client
	cfg      *config.Config
	clientID string
	logger   *slog.Logger

	mu   sync.Mutex
	subs map[string]subscription
}

// NewClient builds an MQTT client configured for session ingest.
func NewClient(cfg *config.Config, logger *slog.Logger) Client {
	clientID := cfg.MQTTClientID
	if clientID == "" {
		clientID = fmt.Sprintf("%s-%d", cfg.ServiceName, time.Now().Unix())
	}

	m := &mqttClient{
		cfg:      cfg,
		clientID: clientID,
		logger:   logger,
		subs:     make(map[string]subscription),
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTAddress())
	opts.SetClientID(clientID)

	if cfg.MQTTUser != "" {
		opts.SetUsername(cfg.MQTTUser)
	}
	if cfg.MQTTPassword != "" {
		opts.SetPassword(cfg.MQTTPassword)
	}

	// Session records arrive at QoS 1; a persistent broker session queues
	// records published while the collector is down.
	opts.SetCleanSession(false)

	// Each record carries its own date key, so cross-handler ordering is
	// irrelevant and handlers may run concurrently.
	opts.SetOrderMatters(false)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetConnectTimeout(connectTimeout)

	// The broker flips the retained status to offline when the connection
	// drops without a clean disconnect.
	opts.SetWill(StatusTopic(clientID), statusOffline, 1, true)

	opts.OnConnect = func(c pahomqtt.Client) {
		logger.Info("Connected to MQTT broker",
			"broker", cfg.MQTTAddress(),
			"client_id", clientID)
		c.Publish(StatusTopic(clientID), 1, true, statusOnline)
		m.resubscribe(c)
	}

	opts.OnConnectionLost = func(c pahomqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	}

	opts.OnReconnecting = func(c pahomqtt.Client, opts *pahomqtt.ClientOptions) {
		logger.Info("MQTT reconnecting", "broker", cfg.MQTTAddress())
	}

	m.client = pahomqtt.NewClient(opts)
	return m
}

// Connect establishes the broker connection, bounded by ctx.
func (m *mqttClient) Connect(ctx context.Context) error {
	m.logger.Info("Connecting to MQTT broker", "broker", m.cfg.MQTTAddress())

	token := m.client.Connect()

	select {
	case <-token.Done():
		if token.Error() != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connection timeout: %w", ctx.Err())
	}
}

// Disconnect marks the collector offline and closes the connection.
func (m *mqttClient) Disconnect() {
	m.logger.Info("Disconnecting from MQTT broker")

	if m.client.IsConnected() {
		token := m.client.Publish(StatusTopic(m.clientID), 1, true, statusOffline)
		token.WaitTimeout(time.Second)
	}
	m.client.Disconnect(250)
}

// Subscribe registers a handler for a topic filter. The subscription is
// remembered and re-established after a reconnect, since the broker may
// have expired the session while the collector was away.
func (m *mqttClient) Subscribe(topic string, qos byte, handler MessageHandler) error {
	m.mu.Lock()
	m.subs[topic] = subscription{qos: qos, handler: handler}
	m.mu.Unlock()

	token := m.client.Subscribe(topic, qos, m.pahoHandler(handler))
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}

	m.logger.Info("Subscribed to topic", "topic", topic, "qos", qos)
	return nil
}

// Publish sends a message to a topic.
func (m *mqttClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := m.client.Publish(topic, qos, retained, payload)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	m.logger.Debug("Published message", "topic", topic, "size", len(payload))
	return nil
}

// IsConnected reports whether the client currently holds a connection.
func (m *mqttClient) IsConnected() bool {
	return m.client.IsConnected()
}

func (m *mqttClient) pahoHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		handler(&mqttMessage{msg: msg})
	}
}

func (m *mqttClient) resubscribe(c pahomqtt.Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for topic, sub := range m.subs {
		token := c.Subscribe(topic, sub.qos, m.pahoHandler(sub.handler))
		token.Wait()
		if token.Error() != nil {
			m.logger.Error("Resubscribe failed", "topic", topic, "error", token.Error())
			continue
		}
		m.logger.Info("Resubscribed to topic", "topic", topic, "qos", sub.qos)
	}
}

// mqttMessage adapts a Paho message to the Message interface.
type mqttMessage struct {
	msg pahomqtt.Message
}

func (m *mqttMessage) Topic() string {
	return m.msg.Topic()
}

func (m *mqttMessage) Payload() []byte {
	return m.msg.Payload()
}
