// Package dispatch implements the core routing and correlation logic of the
// OCPP gateway.
//
// Every decoded inbound frame goes through one Dispatcher pass: Call frames
// are routed to the handler registered for their action, reply frames
// (CallResult, CallError) are matched against the pending-command ledger and
// handed to the interpreter for the command that produced them.
//
// Key components:
//   - Dispatcher: classifies frames, invokes handlers, wraps replies.
//   - Registry: immutable action-to-handler mapping built at startup.
//   - Handler: one implementation per supported inbound action.
//   - ResultHandler: interprets replies to previously issued commands.
//
// Routing rules:
//  1. A Call with a registered action runs its handler; Reply results are
//     wrapped as CallResult with the request's correlation id.
//  2. A Call with an unknown action gets a NotImplemented CallError, never
//     silence.
//  3. A handler failure becomes a CallError carrying the fault code.
//  4. A reply frame resolves its ledger entry exactly once; a second
//     delivery of the same reply is dropped without side effects.
//  5. Reply frames never produce an outbound frame.
//
// The Dispatcher is stateless across invocations; all shared state lives in
// the injected ledger and device state store, so concurrent dispatches for
// different devices need no coordination.
package dispatch
