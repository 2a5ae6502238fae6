package mqtt

import (
	"fmt"
	"sync"

	coremqtt "github.com/voltbridge/ocpp-gateway/core/mqtt"
)

// Client mirrors the core mqtt.Client interface.
type Client = coremqtt.Client

// MockClient is a simple in-memory transport used in tests.
type MockClient struct {
	mu         sync.Mutex
	Messages   map[string][][]byte
	FailTopics map[string]bool
	handlers   map[string]coremqtt.MessageHandler
}

// NewMockClient creates a new MockClient.
func NewMockClient() *MockClient {
	return &MockClient{
		Messages:   make(map[string][][]byte),
		FailTopics: make(map[string]bool),
		handlers:   make(map[string]coremqtt.MessageHandler),
	}
}

// Publish records the message or returns an error if configured to fail.
func (m *MockClient) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTopics[topic] {
		return fmt.Errorf("publish to %s failed", topic)
	}
	m.Messages[topic] = append(m.Messages[topic], payload)
	return nil
}

// Subscribe stores the handler under the filter.
func (m *MockClient) Subscribe(topicFilter string, handler coremqtt.MessageHandler) error {
	m.mu.Lock()
	m.handlers[topicFilter] = handler
	m.mu.Unlock()
	return nil
}

// Inject delivers an inbound message to the handler registered for the filter.
func (m *MockClient) Inject(filter, topic string, payload []byte) {
	m.mu.Lock()
	h := m.handlers[filter]
	m.mu.Unlock()
	if h != nil {
		h(topic, payload)
	}
}

// Subscribed reports whether a handler is registered for the filter.
func (m *MockClient) Subscribed(filter string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handlers[filter] != nil
}

// Published returns the payloads recorded for the topic.
func (m *MockClient) Published(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.Messages[topic]...)
}

// Close is a no-op.
func (m *MockClient) Close() {}
