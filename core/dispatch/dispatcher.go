package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/voltbridge/ocpp-gateway/core/events"
	"github.com/voltbridge/ocpp-gateway/core/ledger"
	"github.com/voltbridge/ocpp-gateway/core/logger"
	"github.com/voltbridge/ocpp-gateway/core/metrics"
	"github.com/voltbridge/ocpp-gateway/core/ocpp"
	"github.com/voltbridge/ocpp-gateway/internal/eventbus"
)

// Dispatcher routes decoded frames to handlers and correlates replies with
// pending commands. It holds no device state itself; everything it knows it
// reads from the injected ledger, so any number of dispatcher instances can
// process frames concurrently.
type Dispatcher struct {
	registry       *Registry
	unsupported    Handler
	ledger         ledger.Ledger
	resultHandlers map[string]ResultHandler
	defaultResult  ResultHandler
	log            logger.Logger
	sink           metrics.Sink
	bus            eventbus.EventBus
	now            func() time.Time
}

// NewDispatcher creates a Dispatcher. registry, ledger and log are required;
// a nil sink disables metrics and a nil bus disables events. resultHandlers
// maps command actions to their reply interpreters; defaultResult handles
// replies to actions without a dedicated interpreter.
func NewDispatcher(registry *Registry, led ledger.Ledger, resultHandlers map[string]ResultHandler, defaultResult ResultHandler, sink metrics.Sink, bus eventbus.EventBus, log logger.Logger) (*Dispatcher, error) {
	if registry == nil || led == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewDispatcher")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	rh := make(map[string]ResultHandler, len(resultHandlers))
	for action, h := range resultHandlers {
		rh[action] = h
	}
	return &Dispatcher{
		registry:       registry,
		unsupported:    NewUnsupportedActionHandler(log),
		ledger:         led,
		resultHandlers: rh,
		defaultResult:  defaultResult,
		log:            log,
		sink:           sink,
		bus:            bus,
		now:            time.Now,
	}, nil
}

// Dispatch processes one inbound frame and returns the reply frame to send,
// if any. Calls always yield a reply (CallResult or CallError); CallResult
// and CallError frames never do.
func (d *Dispatcher) Dispatch(ctx context.Context, deviceID string, frame ocpp.Frame) (*ocpp.Frame, error) {
	start := d.now()
	d.publish(events.FrameReceived{
		DeviceID:      deviceID,
		CorrelationID: frame.CorrelationID,
		Type:          frame.Type,
		Action:        frame.Action,
		Time:          start,
	})

	switch frame.Type {
	case ocpp.MessageTypeCall:
		reply, outcome := d.dispatchCall(ctx, deviceID, frame)
		d.record(deviceID, frame, outcome, d.now().Sub(start))
		return reply, nil
	case ocpp.MessageTypeCallResult, ocpp.MessageTypeCallError:
		outcome, err := d.dispatchReply(ctx, deviceID, frame)
		d.record(deviceID, frame, outcome, d.now().Sub(start))
		return nil, err
	default:
		d.record(deviceID, frame, metrics.OutcomeMalformed, d.now().Sub(start))
		return nil, fmt.Errorf("dispatch %s: %w: message type %d", deviceID, ocpp.ErrMalformedFrame, int(frame.Type))
	}
}

// dispatchCall runs the registered handler and wraps its result. Handler
// failures become CallError replies; a device-originated Call is never
// silently dropped.
func (d *Dispatcher) dispatchCall(ctx context.Context, deviceID string, frame ocpp.Frame) (*ocpp.Frame, string) {
	handler, ok := d.registry.Lookup(frame.Action)
	if !ok {
		handler = d.unsupported
	}

	res, err := handler.Handle(ctx, deviceID, frame)
	if err != nil {
		d.log.Errorf("handler %s failed for %s (id %s): %v", frame.Action, deviceID, frame.CorrelationID, err)
		code := ocpp.ErrorCodeInternalError
		desc := "internal error"
		var fault *Fault
		if errors.As(err, &fault) {
			code = fault.Code
			desc = fault.Description
		}
		reply := ocpp.NewCallError(frame.CorrelationID, code, desc)
		d.publish(events.ReplySent{DeviceID: deviceID, CorrelationID: frame.CorrelationID, Type: reply.Type, Action: frame.Action})
		return &reply, metrics.OutcomeErrorReply
	}

	if !res.HasReply() {
		return nil, metrics.OutcomeNoReply
	}
	reply, err := ocpp.NewCallResult(frame.CorrelationID, res.Payload())
	if err != nil {
		d.log.Errorf("encode reply for %s (id %s): %v", deviceID, frame.CorrelationID, err)
		ce := ocpp.NewCallError(frame.CorrelationID, ocpp.ErrorCodeInternalError, "internal error")
		return &ce, metrics.OutcomeErrorReply
	}
	d.publish(events.ReplySent{DeviceID: deviceID, CorrelationID: frame.CorrelationID, Type: reply.Type, Action: frame.Action})
	return &reply, metrics.OutcomeReplied
}

// dispatchReply resolves the correlation id and hands the frame to the
// per-action result interpreter. Unknown or already-resolved ids are dropped:
// under at-least-once delivery a duplicate CallResult is expected traffic,
// not a protocol violation.
func (d *Dispatcher) dispatchReply(ctx context.Context, deviceID string, frame ocpp.Frame) (string, error) {
	entry, found, err := d.ledger.Resolve(ctx, frame.CorrelationID)
	if err != nil {
		return metrics.OutcomeDropped, fmt.Errorf("resolve %s for %s: %w", frame.CorrelationID, deviceID, err)
	}
	if !found {
		d.log.Infof("dropping %s from %s: correlation id %s not pending", frame.Type, deviceID, frame.CorrelationID)
		d.publish(events.ReplyDropped{DeviceID: deviceID, CorrelationID: frame.CorrelationID, Reason: "not_pending"})
		return metrics.OutcomeDropped, nil
	}

	handler := d.resultHandlers[entry.Action]
	if handler == nil {
		handler = d.defaultResult
	}
	if handler == nil {
		d.log.Warnf("no result handler for action %s (id %s)", entry.Action, frame.CorrelationID)
		return metrics.OutcomeResolved, nil
	}
	if err := handler.HandleResult(ctx, deviceID, entry.Action, frame); err != nil {
		// The exchange is already complete on the wire; interpreter
		// failures are logged, never sent back to the device.
		d.log.Errorf("result handler %s failed for %s (id %s): %v", entry.Action, deviceID, frame.CorrelationID, err)
	}
	return metrics.OutcomeResolved, nil
}

func (d *Dispatcher) record(deviceID string, frame ocpp.Frame, outcome string, latency time.Duration) {
	ev := metrics.FrameEvent{
		DeviceID: deviceID,
		Type:     frame.Type,
		Action:   frame.Action,
		Outcome:  outcome,
		Latency:  latency,
		Time:     d.now(),
	}
	if err := d.sink.RecordFrame(ev); err != nil {
		d.log.Warnf("metrics sink: %v", err)
	}
}

func (d *Dispatcher) publish(e eventbus.Event) {
	if d.bus != nil {
		d.bus.Publish(e)
	}
}
