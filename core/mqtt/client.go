package mqtt

// MessageHandler processes one inbound message. Implementations must treat
// each invocation independently: a failure for one message never aborts the
// others.
type MessageHandler func(topic string, payload []byte)

// Publisher delivers an encoded payload to a named channel.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Client is the device-facing transport: it publishes frames to per-device
// channels and feeds inbound device traffic to a handler.
type Client interface {
	Publisher

	// Subscribe registers the handler for all topics matching the filter.
	Subscribe(topicFilter string, handler MessageHandler) error

	// Close disconnects from the broker.
	Close()
}
