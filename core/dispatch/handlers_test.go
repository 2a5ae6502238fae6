package dispatch

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/voltbridge/ocpp-gateway/core/devicestate"
	"github.com/voltbridge/ocpp-gateway/core/events"
	"github.com/voltbridge/ocpp-gateway/core/ocpp"
	"github.com/voltbridge/ocpp-gateway/infra/logger"
	"github.com/voltbridge/ocpp-gateway/internal/eventbus"
)

func txFrame(t *testing.T, payload string) ocpp.Frame {
	t.Helper()
	f, err := ocpp.Decode([]byte(`[2,"t1","TransactionEvent",` + payload + `]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return f
}

func TestTransactionEventStarted(t *testing.T) {
	store := devicestate.NewMemoryStore()
	h := NewTransactionEventHandler(store, logger.NopLogger{})

	payload := `{"eventType":"Started","timestamp":"2026-02-01T08:00:00Z","transactionInfo":{"transactionId":"tx-1"},"evse":{"id":2},"idToken":{"idToken":"tag1","type":"ISO14443"}}`
	res, err := h.Handle(context.Background(), "CP1", txFrame(t, payload))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !res.HasReply() {
		t.Fatal("transaction event must always be acknowledged")
	}

	st, _ := store.Get("CP1")
	active, ok := st["activeTransaction"].(map[string]any)
	if !ok {
		t.Fatalf("missing activeTransaction: %#v", st)
	}
	if active["transactionId"] != "tx-1" || active["startTime"] != "2026-02-01T08:00:00Z" || active["evseId"] != 2 {
		t.Errorf("wrong active transaction: %#v", active)
	}
	if _, ok := st["lastTransactionEvent"]; !ok {
		t.Error("missing lastTransactionEvent summary")
	}
}

func TestTransactionEventEndedClearsActive(t *testing.T) {
	store := devicestate.NewMemoryStore()
	h := NewTransactionEventHandler(store, logger.NopLogger{})
	ctx := context.Background()

	started := `{"eventType":"Started","timestamp":"2026-02-01T08:00:00Z","transactionInfo":{"transactionId":"tx-1"},"evse":{"id":1}}`
	if _, err := h.Handle(ctx, "CP1", txFrame(t, started)); err != nil {
		t.Fatalf("handle started: %v", err)
	}
	ended := `{"eventType":"Ended","timestamp":"2026-02-01T09:30:00Z","stoppedReason":"EVDisconnected","transactionInfo":{"transactionId":"tx-1","startTime":"2026-02-01T08:00:00Z"}}`
	if _, err := h.Handle(ctx, "CP1", txFrame(t, ended)); err != nil {
		t.Fatalf("handle ended: %v", err)
	}

	st, _ := store.Get("CP1")
	if _, exists := st["activeTransaction"]; exists {
		t.Error("activeTransaction not cleared on Ended")
	}
	done, ok := st["lastCompletedTransaction"].(map[string]any)
	if !ok {
		t.Fatalf("missing lastCompletedTransaction: %#v", st)
	}
	if done["stopTime"] != "2026-02-01T09:30:00Z" || done["stoppedReason"] != "EVDisconnected" || done["startTime"] != "2026-02-01T08:00:00Z" {
		t.Errorf("wrong completed transaction: %#v", done)
	}
}

func TestTransactionEventUpdatedMergesSummaryOnly(t *testing.T) {
	store := devicestate.NewMemoryStore()
	h := NewTransactionEventHandler(store, logger.NopLogger{})

	payload := `{"eventType":"Updated","timestamp":"2026-02-01T08:15:00Z","transactionInfo":{"transactionId":"tx-1"}}`
	if _, err := h.Handle(context.Background(), "CP1", txFrame(t, payload)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	st, _ := store.Get("CP1")
	if _, exists := st["activeTransaction"]; exists {
		t.Error("Updated must not touch activeTransaction")
	}
	if _, ok := st["lastTransactionEvent"]; !ok {
		t.Error("missing lastTransactionEvent summary")
	}
}

func TestTransactionEventStoreFailureStillReplies(t *testing.T) {
	h := NewTransactionEventHandler(failStore{}, logger.NopLogger{})
	payload := `{"eventType":"Updated","timestamp":"2026-02-01T08:15:00Z","transactionInfo":{"transactionId":"tx-1"}}`
	res, err := h.Handle(context.Background(), "CP1", txFrame(t, payload))
	if err != nil {
		t.Fatalf("store failure must not surface: %v", err)
	}
	if !res.HasReply() {
		t.Error("store failure must not suppress the reply")
	}
}

type failStore struct{}

func (failStore) Merge(context.Context, string, devicestate.Fields) error {
	return context.DeadlineExceeded
}

func TestBootNotificationFixedClock(t *testing.T) {
	store := devicestate.NewMemoryStore()
	h := NewBootNotificationHandler(store, 30*time.Second, logger.NopLogger{})
	fixed := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	f, err := ocpp.Decode([]byte(`[2,"b1","BootNotification",{"reason":"PowerUp"}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	res, err := h.Handle(context.Background(), "CP1", f)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	payload, ok := res.Payload().(bootNotificationResponse)
	if !ok {
		t.Fatalf("unexpected payload type %T", res.Payload())
	}
	if payload.CurrentTime != "2026-02-01T12:00:00Z" || payload.Interval != 30 || payload.Status != "Accepted" {
		t.Errorf("wrong payload: %+v", payload)
	}
}

func TestBootNotificationRejectsNonObjectPayload(t *testing.T) {
	h := NewBootNotificationHandler(devicestate.NewMemoryStore(), 0, logger.NopLogger{})
	f, err := ocpp.Decode([]byte(`[2,"b1","BootNotification",17]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := h.Handle(context.Background(), "CP1", f); err == nil {
		t.Fatal("expected validation fault")
	}
}

func TestCommandResultRejectionLogsAndRecords(t *testing.T) {
	store := devicestate.NewMemoryStore()
	h := NewCommandResultHandler(store, nil, logger.NopLogger{})

	f, err := ocpp.Decode([]byte(`[3,"c1",{"status":"Rejected"}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := h.HandleResult(context.Background(), "CP1", ocpp.ActionRequestStartTransaction, f); err != nil {
		t.Fatalf("handle result: %v", err)
	}
	st, _ := store.Get("CP1")
	if _, exists := st["currentTransaction"]; exists {
		t.Error("rejected command must not record a transaction")
	}
	res, ok := st["lastCommandResult"].(map[string]any)
	if !ok || res["status"] != "Rejected" {
		t.Errorf("rejection not recorded: %#v", st)
	}
}

func TestCommandResultStopAccepted(t *testing.T) {
	store := devicestate.NewMemoryStore()
	h := NewCommandResultHandler(store, nil, logger.NopLogger{})

	f, err := ocpp.Decode([]byte(`[3,"c2",{"status":"Accepted"}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := h.HandleResult(context.Background(), "CP1", ocpp.ActionRequestStopTransaction, f); err != nil {
		t.Fatalf("handle result: %v", err)
	}
	st, _ := store.Get("CP1")
	tx, ok := st["currentTransaction"].(map[string]any)
	if !ok || tx["status"] != "Stopped" {
		t.Errorf("stop not recorded: %#v", st)
	}
}

func TestRegistryImmutable(t *testing.T) {
	source := map[string]Handler{ocpp.ActionHeartbeat: NewHeartbeatHandler()}
	r := NewRegistry(source)
	delete(source, ocpp.ActionHeartbeat)
	if _, ok := r.Lookup(ocpp.ActionHeartbeat); !ok {
		t.Fatal("registry must copy the source map")
	}
	if got := r.Actions(); len(got) != 1 || got[0] != ocpp.ActionHeartbeat {
		t.Errorf("actions: %v", got)
	}
}

func TestCommandResultCallErrorCarriesError(t *testing.T) {
	store := devicestate.NewMemoryStore()
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe()
	h := NewCommandResultHandler(store, bus, logger.NopLogger{})

	f, err := ocpp.Decode([]byte(`[4,"c3","InternalError","station fault",{}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := h.HandleResult(context.Background(), "CP1", ocpp.ActionRequestStartTransaction, f); err != nil {
		t.Fatalf("handle result: %v", err)
	}

	select {
	case ev := <-sub:
		resolved, ok := ev.(events.CommandResolved)
		if !ok {
			t.Fatalf("unexpected event %T", ev)
		}
		if resolved.Accepted {
			t.Error("call error must not resolve as accepted")
		}
		if resolved.Err == nil || !strings.Contains(resolved.Err.Error(), "station fault") {
			t.Errorf("error not carried: %v", resolved.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("no resolution event published")
	}
}

func TestCommandResultBadPayloadCarriesError(t *testing.T) {
	store := devicestate.NewMemoryStore()
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe()
	h := NewCommandResultHandler(store, bus, logger.NopLogger{})

	f, err := ocpp.Decode([]byte(`[3,"c4",["not","an","object"]]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := h.HandleResult(context.Background(), "CP1", ocpp.ActionRequestStartTransaction, f); err == nil {
		t.Fatal("expected validation fault")
	}

	select {
	case ev := <-sub:
		resolved, ok := ev.(events.CommandResolved)
		if !ok {
			t.Fatalf("unexpected event %T", ev)
		}
		if resolved.Err == nil {
			t.Error("payload error not carried")
		}
	case <-time.After(time.Second):
		t.Fatal("no resolution event published")
	}
}
