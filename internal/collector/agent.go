package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/crowdvisual/crowdvisual-platform/pkg/config"
	"github.com/crowdvisual/crowdvisual-platform/pkg/mqtt"
	"github.com/crowdvisual/crowdvisual-platform/pkg/postgres"
	"github.com/crowdvisual/crowdvisual-platform/pkg/redis"
)

// Agent receives session records over MQTT and persists them
type Agent struct {
	mqtt      mqtt.Client
	redis     redis.Client
	processor *Processor
	storage   *Storage
	cfg       *config.Config
	logger    *slog.Logger
}

// NewAgent creates a new collector agent with the given dependencies.
// The Postgres client may be nil when flat-file ingest is sufficient.
func NewAgent(mqttClient mqtt.Client, redisClient redis.Client, pgClient postgres.Client, cfg *config.Config, logger *slog.Logger) *Agent {
	processor := NewProcessor(logger)
	storage := NewStorage(redisClient, pgClient, cfg, logger)

	return &Agent{
		mqtt:      mqttClient,
		redis:     redisClient,
		processor: processor,
		storage:   storage,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start starts the collector agent and begins processing session records
func (a *Agent) Start(ctx context.Context) error {
	a.logger.Info("Starting session collector",
		"service_name", a.cfg.ServiceName,
		"mqtt_broker", a.cfg.MQTTAddress(),
		"data_dir", a.cfg.DataDir)

	// Connect to MQTT broker
	if err := a.mqtt.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	// Verify Redis connection
	if a.redis != nil {
		if err := a.redis.Ping(ctx); err != nil {
			return fmt.Errorf("failed to ping Redis: %w", err)
		}
	}

	if err := a.storage.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure sessions schema: %w", err)
	}

	// Subscribe to session topics
	for _, topic := range a.cfg.SessionTopics {
		if err := a.mqtt.Subscribe(topic, 1, a.handleMessage); err != nil {
			a.logger.Error("Failed to subscribe to topic", "topic", topic, "error", err)
			// Continue subscribing to other topics even if one fails
			continue
		}
	}

	a.logger.Info("Session collector started and ready to receive records",
		"subscribed_topics", strings.Join(a.cfg.SessionTopics, ", "))

	// Block until context is cancelled
	<-ctx.Done()
	a.logger.Info("Session collector stopping")

	return nil
}

// Stop gracefully stops the collector agent
func (a *Agent) Stop() error {
	a.logger.Info("Stopping session collector")

	a.mqtt.Disconnect()

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("Error closing Redis connection", "error", err)
			return err
		}
	}

	a.logger.Info("Session collector stopped")
	return nil
}

// handleMessage processes incoming MQTT session records
func (a *Agent) handleMessage(msg mqtt.Message) {
	topic := msg.Topic()
	payload := msg.Payload()

	a.logger.Debug("Received MQTT message", "topic", topic, "size", len(payload))

	sessionMsg, err := a.processor.ParseMessage(topic, payload)
	if err != nil {
		a.logger.Error("Rejected session record", "topic", topic, "error", err)
		return
	}

	ctx := context.Background()

	if err := a.storage.StoreSession(ctx, sessionMsg); err != nil {
		a.logger.Error("Failed to store session record",
			"building", sessionMsg.Session.Building,
			"device", sessionMsg.Session.DeviceID,
			"error", err)
		return
	}

	if err := a.publishAck(sessionMsg); err != nil {
		a.logger.Error("Failed to publish ingest ack",
			"building", sessionMsg.Session.Building,
			"error", err)
	}

	a.logger.Info("Session record ingested",
		"building", sessionMsg.Session.Building,
		"device", sessionMsg.Session.DeviceID,
		"date_key", sessionMsg.Session.DateKey)
}

// publishAck publishes an acknowledgement on campus/ingested/{building}
func (a *Agent) publishAck(msg *SessionMessage) error {
	payload, err := a.processor.BuildAckPayload(msg)
	if err != nil {
		return fmt.Errorf("failed to build ack payload: %w", err)
	}

	ackTopic := mqtt.IngestedTopic(msg.Session.Building)
	if err := a.mqtt.Publish(ackTopic, 0, false, payload); err != nil {
		return fmt.Errorf("failed to publish ack: %w", err)
	}

	return nil
}
