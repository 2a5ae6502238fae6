package ocpp

// Actions handled by the gateway. Names follow OCPP 2.0.1 exactly; they are
// matched verbatim against element 3 of inbound Call frames.
const (
	ActionBootNotification        = "BootNotification"
	ActionHeartbeat               = "Heartbeat"
	ActionStatusNotification      = "StatusNotification"
	ActionTransactionEvent        = "TransactionEvent"
	ActionRequestStartTransaction = "RequestStartTransaction"
	ActionRequestStopTransaction  = "RequestStopTransaction"
)
