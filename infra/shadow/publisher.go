// Package shadow mirrors device state into a device-shadow service by
// publishing merge documents on the shadow update topic.
package shadow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/voltbridge/ocpp-gateway/core/devicestate"
	coremqtt "github.com/voltbridge/ocpp-gateway/core/mqtt"
)

// TopicPattern is the shadow update topic; %s is the device identity.
const TopicPattern = "things/%s/shadow/update"

// document is the merge envelope the shadow service expects. Fields set to
// null clear the corresponding reported field.
type document struct {
	State struct {
		Reported devicestate.Fields `json:"reported"`
	} `json:"state"`
}

// Publisher implements devicestate.Store over an MQTT shadow topic.
type Publisher struct {
	pub coremqtt.Publisher
}

// NewPublisher creates a Publisher on top of the given transport.
func NewPublisher(pub coremqtt.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

// Merge publishes the fields as a reported-state merge document.
func (p *Publisher) Merge(_ context.Context, deviceID string, fields devicestate.Fields) error {
	var doc document
	doc.State.Reported = fields
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal shadow document: %w", err)
	}
	if err := p.pub.Publish(fmt.Sprintf(TopicPattern, deviceID), raw); err != nil {
		return fmt.Errorf("publish shadow update for %s: %w", deviceID, err)
	}
	return nil
}
