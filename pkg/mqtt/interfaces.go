package mqtt

import "context"

// Client is the broker surface the collector needs: connect, a durable
// subscription to the session feed, and ack publishing.
type Client interface {
	// Connect establishes the broker connection, bounded by ctx.
	Connect(ctx context.Context) error

	// Disconnect closes the connection after marking the client offline.
	Disconnect()

	// Subscribe registers a handler for a topic filter at the given QoS.
	// The subscription survives reconnects.
	Subscribe(topic string, qos byte, handler MessageHandler) error

	// Publish sends a payload to a topic.
	Publish(topic string, qos byte, retained bool, payload []byte) error

	// IsConnected reports whether a connection is currently held.
	IsConnected() bool
}

// MessageHandler receives inbound session-feed messages.
type MessageHandler func(Message)

// Message is one inbound broker message.
type Message interface {
	// Topic returns the topic the message arrived on.
	Topic() string

	// Payload returns the raw message bytes.
	Payload() []byte
}
