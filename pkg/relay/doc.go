// Copyright 2024-2026 Aiku AI

// Package relay implements the message-relay and reply-correlation engine
// behind the anonymous bot: inbound user messages fan out to every
// configured operator, and operator replies are routed back to the exact
// originating user and message via the durable correlation store.
//
// # Core Types
//
// [Relay] is the engine. It owns no transport or storage details: sends go
// through the [Transport] capability and routing state lives in the
// [CorrelationStore]. Because all routing state is persisted, correlation
// survives process restarts.
//
// [InboundMessage] is a transport-neutral inbound event. The transport
// binding converts its native update type into one of these and calls
// [Relay.RelayInbound] or [Relay.RelayReply] depending on whether the
// sender is an operator.
//
// # Correlation Model
//
// Every successful send writes one correlation record. A thread is the set
// of records sharing one original message ID; there is no separate
// session entity. The only reverse-lookup path is "most recent active
// record by delivered message ID", which is exactly what an operator's
// native reply carries. New messages from a user always start a fresh
// broadcast rather than resuming one operator's sub-thread.
package relay
