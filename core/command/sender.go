// Package command issues remote commands to charge points over the outbound
// channel and records them in the pending-command ledger so their replies can
// be correlated later.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/voltbridge/ocpp-gateway/core/events"
	"github.com/voltbridge/ocpp-gateway/core/ledger"
	"github.com/voltbridge/ocpp-gateway/core/logger"
	"github.com/voltbridge/ocpp-gateway/core/metrics"
	"github.com/voltbridge/ocpp-gateway/core/mqtt"
	"github.com/voltbridge/ocpp-gateway/core/ocpp"
	"github.com/voltbridge/ocpp-gateway/internal/eventbus"
)

// DefaultTTL bounds how long a command waits for its reply before the ledger
// entry is abandoned.
const DefaultTTL = 2 * time.Minute

// OutTopic returns the outbound channel for a device.
func OutTopic(deviceID string) string { return deviceID + "/out" }

// IDTokenTypeISO14443 is the token type sent for operator-supplied id tags.
const IDTokenTypeISO14443 = "ISO14443"

type idToken struct {
	IDToken string `json:"idToken"`
	Type    string `json:"type"`
}

type requestStartPayload struct {
	IDToken       idToken `json:"idToken"`
	EvseID        int     `json:"evseId"`
	RemoteStartID uint32  `json:"remoteStartId"`
}

type requestStopPayload struct {
	TransactionID string `json:"transactionId"`
}

// Sender builds, records and publishes remote commands.
type Sender struct {
	led  ledger.Ledger
	pub  mqtt.Publisher
	sink metrics.Sink
	bus  eventbus.EventBus
	log  logger.Logger
	ttl  time.Duration
	now  func() time.Time

	newCorrelationID func() string
	newNumericID     func() uint32
}

// NewSender creates a Sender. A non-positive ttl falls back to DefaultTTL.
func NewSender(led ledger.Ledger, pub mqtt.Publisher, sink metrics.Sink, bus eventbus.EventBus, log logger.Logger, ttl time.Duration) (*Sender, error) {
	if led == nil || pub == nil || log == nil {
		return nil, fmt.Errorf("command: nil parameter provided to NewSender")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Sender{
		led:              led,
		pub:              pub,
		sink:             sink,
		bus:              bus,
		log:              log,
		ttl:              ttl,
		now:              time.Now,
		newCorrelationID: uuid.NewString,
		newNumericID:     func() uint32 { return uuid.New().ID() },
	}, nil
}

// RequestStart issues a RequestStartTransaction Call to the device. The id
// tag may be empty, in which case a fresh one is generated; a non-positive
// connector id defaults to 1. It returns the correlation id of the command.
func (s *Sender) RequestStart(ctx context.Context, deviceID, idTag string, connectorID int) (string, error) {
	if idTag == "" {
		idTag = uuid.NewString()
	}
	if connectorID <= 0 {
		connectorID = 1
	}
	payload := requestStartPayload{
		IDToken:       idToken{IDToken: idTag, Type: IDTokenTypeISO14443},
		EvseID:        connectorID,
		RemoteStartID: s.newNumericID(),
	}
	return s.send(ctx, deviceID, ocpp.ActionRequestStartTransaction, payload)
}

// RequestStop issues a RequestStopTransaction Call for the given transaction.
func (s *Sender) RequestStop(ctx context.Context, deviceID, transactionID string) (string, error) {
	return s.send(ctx, deviceID, ocpp.ActionRequestStopTransaction, requestStopPayload{TransactionID: transactionID})
}

// send records the pending entry first: a command that cannot be correlated
// must not reach the device.
func (s *Sender) send(ctx context.Context, deviceID, action string, payload any) (string, error) {
	correlationID := s.newCorrelationID()
	frame, err := ocpp.NewCall(correlationID, action, payload)
	if err != nil {
		return "", fmt.Errorf("build %s: %w", action, err)
	}
	raw, err := ocpp.Encode(frame)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", action, err)
	}

	now := s.now().UTC()
	entry := ledger.Entry{
		CorrelationID: correlationID,
		DeviceID:      deviceID,
		Action:        action,
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.ttl),
	}
	if err := s.led.Record(ctx, entry); err != nil {
		s.recordMetric(deviceID, action, false)
		return "", fmt.Errorf("record %s for %s: %w", action, deviceID, err)
	}

	if err := s.pub.Publish(OutTopic(deviceID), raw); err != nil {
		s.recordMetric(deviceID, action, false)
		// The entry stays pending until it expires; the device never saw
		// the command so no reply will arrive.
		return "", fmt.Errorf("publish %s to %s: %w", action, deviceID, err)
	}

	s.log.Infof("sent %s to %s (id %s)", action, deviceID, correlationID)
	if s.bus != nil {
		s.bus.Publish(events.CommandIssued{DeviceID: deviceID, CorrelationID: correlationID, Action: action, ExpiresAt: entry.ExpiresAt})
	}
	s.recordMetric(deviceID, action, true)
	return correlationID, nil
}

func (s *Sender) recordMetric(deviceID, action string, sent bool) {
	ev := metrics.CommandEvent{DeviceID: deviceID, Action: action, Sent: sent, Time: s.now()}
	if err := s.sink.RecordCommand(ev); err != nil {
		s.log.Warnf("metrics sink: %v", err)
	}
}
