// Copyright 2024-2026 Aiku AI

package relay

import "context"

// Supported payload kinds. These double as the content_type values persisted
// in correlation records.
const (
	KindText     = "text"
	KindPhoto    = "photo"
	KindDocument = "document"
)

// Payload is the logical content of a message. Binary content is referenced
// by AttachmentRef (an opaque transport file handle), never embedded; Text
// carries the message text, or the caption for media kinds.
type Payload struct {
	Kind          string
	Text          string
	AttachmentRef string
}

// Supported reports whether the payload kind is one the relay handles.
func (p Payload) Supported() bool {
	switch p.Kind {
	case KindText, KindPhoto, KindDocument:
		return true
	default:
		return false
	}
}

// InboundMessage is a transport-neutral inbound event: one message from a
// user or an operator.
type InboundMessage struct {
	// SenderID is the chat the message came from.
	SenderID int64
	// SenderName is the sender's display name, used for the forwarded
	// header.
	SenderName string
	// MessageID is the message's ID within the sender's chat.
	MessageID int
	// ReplyTo is the ID of the message this one replies to within the
	// sender's chat, or 0 if it is not a reply. For operator replies this
	// is the delivered copy being answered.
	ReplyTo int
	Payload Payload
}

// Transport is the outbound send capability. Implementations deliver the
// payload to the destination chat and return the transport's ID for the new
// message. A non-zero replyTo asks the transport to tag the send as a reply
// to that message, falling back to a plain send if the target no longer
// exists transport-side.
type Transport interface {
	Send(ctx context.Context, destination int64, payload Payload, replyTo int) (deliveredID int, err error)
}
