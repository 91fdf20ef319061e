// Copyright 2024-2026 Aiku AI

package store

import "time"

// Record lifecycle states. Superseded is reserved for future invalidation;
// every record written today is active.
const (
	StatusActive     = "active"
	StatusSuperseded = "superseded"
)

// Record is a single row in the message map: one delivered copy of a
// message, linking it to the thread it belongs to. Records are written
// exactly once and never mutated; the thread's durable identity is
// OriginalMessageID, which is shared by every copy in the thread.
type Record struct {
	ID int64
	// UserID is the end-user chat that logically owns the thread.
	UserID int64
	// OperatorID is the operator this copy was sent to (fan-out) or
	// received from (reply). Nil when the direction makes it implicit.
	OperatorID *int64
	// OriginalMessageID is the message ID in the user's chat, stable
	// across the whole thread.
	OriginalMessageID int
	// DeliveredMessageID is the transport ID of this outbound copy,
	// unique per send. The reverse lookup for replies resolves on it.
	DeliveredMessageID int
	// ReplyMessageID is set on records created by relaying an operator
	// reply back to the user; it is the user-facing copy's ID.
	ReplyMessageID *int
	// ContentType is the logical payload kind (text, photo, document).
	ContentType string
	// Content holds the literal text payload, or the caption for media.
	Content string
	// AttachmentRef is the transport file handle for binary payloads.
	AttachmentRef *string
	CreatedAt     time.Time
	Status        string
}

// Summary is a read-only snapshot of the message map for introspection.
type Summary struct {
	Total  int64
	Recent []*Record
}
