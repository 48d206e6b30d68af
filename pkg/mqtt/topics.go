package mqtt

import (
	"fmt"
	"strings"
)

// Topic constants for the campus session feed
const (
	// Session record topics (input)
	// Pattern: campus/sessions/{building}
	TopicSessions = "campus/sessions/+"

	// Ingest acknowledgement topics (output)
	// Pattern: campus/ingested/{building}
	TopicIngestedBase = "campus/ingested"

	// Collector presence topics (retained)
	// Pattern: campus/collector/status/{client_id}
	TopicStatusBase = "campus/collector/status"
)

// SessionTopic constructs a session topic for a specific building
// Pattern: campus/sessions/{building}
func SessionTopic(building string) string {
	return fmt.Sprintf("campus/sessions/%s", building)
}

// IngestedTopic constructs an ingest acknowledgement topic for a building
// Pattern: campus/ingested/{building}
func IngestedTopic(building string) string {
	return fmt.Sprintf("%s/%s", TopicIngestedBase, building)
}

// StatusTopic constructs the retained presence topic for a collector instance
// Pattern: campus/collector/status/{client_id}
func StatusTopic(clientID string) string {
	return fmt.Sprintf("%s/%s", TopicStatusBase, clientID)
}

// BuildingFromTopic extracts the building segment from a session topic
// campus/sessions/{building} -> {building}
func BuildingFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "campus" || parts[1] != "sessions" || parts[2] == "" {
		return "", fmt.Errorf("unexpected session topic: %s", topic)
	}
	return parts[2], nil
}
