package collector

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/crowdvisual/crowdvisual-platform/internal/session"
	"github.com/crowdvisual/crowdvisual-platform/pkg/mqtt"
	"github.com/crowdvisual/crowdvisual-platform/pkg/timecode"
)

// Processor handles parsing and validation of session record messages
type Processor struct {
	logger *slog.Logger
}

// NewProcessor creates a new message processor
func NewProcessor(logger *slog.Logger) *Processor {
	return &Processor{
		logger: logger,
	}
}

// SessionPayload is the JSON body published on campus/sessions/{building}
type SessionPayload struct {
	DeviceID     string    `json:"device_id"`
	Date         string    `json:"date"`
	AccessPoints []string  `json:"access_points"`
	StartMinutes []float64 `json:"start_minutes"`
	EndMinutes   []float64 `json:"end_minutes"`
}

// SessionMessage is a validated session record with ingest metadata
type SessionMessage struct {
	Session     *session.Session
	CollectedAt time.Time
}

// ParseMessage parses an MQTT message into a validated session record.
// The building is taken from the topic, the rest from the JSON payload.
func (p *Processor) ParseMessage(topic string, payload []byte) (*SessionMessage, error) {
	building, err := mqtt.BuildingFromTopic(topic)
	if err != nil {
		p.logger.Warn("Invalid topic format", "topic", topic)
		return nil, err
	}

	var body SessionPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		p.logger.Error("Failed to parse JSON payload", "topic", topic, "error", err)
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if body.DeviceID == "" {
		return nil, fmt.Errorf("session record missing device_id")
	}
	if len(body.AccessPoints) == 0 {
		return nil, fmt.Errorf("session record has no access points")
	}
	if len(body.StartMinutes) != len(body.AccessPoints) || len(body.EndMinutes) != len(body.AccessPoints) {
		return nil, fmt.Errorf("session record list lengths differ: %d access points, %d starts, %d ends",
			len(body.AccessPoints), len(body.StartMinutes), len(body.EndMinutes))
	}

	dateKey, _, err := timecode.Parse(body.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid session date %q: %w", body.Date, err)
	}

	stays := make([]session.Stay, len(body.AccessPoints))
	for i, ap := range body.AccessPoints {
		if err := timecode.ValidateOffset(int(body.StartMinutes[i])); err != nil {
			return nil, fmt.Errorf("invalid start minute %v: %w", body.StartMinutes[i], err)
		}
		stays[i] = session.Stay{
			AccessPoint: ap,
			StartMinute: body.StartMinutes[i],
			EndMinute:   body.EndMinutes[i],
		}
	}

	msg := &SessionMessage{
		Session: &session.Session{
			DeviceID: body.DeviceID,
			Building: building,
			DateKey:  dateKey,
			Stays:    stays,
		},
		CollectedAt: time.Now().UTC(),
	}

	p.logger.Debug("Parsed session record",
		"building", building,
		"device", body.DeviceID,
		"stays", len(stays))

	return msg, nil
}

// BuildAckPayload creates the payload for the ingest acknowledgement message
func (p *Processor) BuildAckPayload(msg *SessionMessage) ([]byte, error) {
	payload := map[string]interface{}{
		"device_id": msg.Session.DeviceID,
		"building":  msg.Session.Building,
		"date_key":  msg.Session.DateKey,
		"stored_at": msg.CollectedAt.Format(time.RFC3339Nano),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ack payload: %w", err)
	}

	return data, nil
}
