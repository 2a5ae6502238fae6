package metrics

import (
	"context"
	"time"

	"github.com/voltbridge/ocpp-gateway/core/events"
	coremetrics "github.com/voltbridge/ocpp-gateway/core/metrics"
	"github.com/voltbridge/ocpp-gateway/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// command resolutions. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.Sink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if e, ok := ev.(events.CommandResolved); ok {
					if r, ok := sink.(coremetrics.CommandResolutionRecorder); ok {
						_ = r.RecordResolution(coremetrics.ResolutionEvent{
							DeviceID: e.DeviceID,
							Action:   e.Action,
							Accepted: e.Accepted,
							Time:     time.Now(),
						})
					}
				}
			}
		}
	}()
}
