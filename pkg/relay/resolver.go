// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
	"errors"
	"fmt"

	"go.mau.fi/util/ptr"

	"github.com/muhammadtakdir/tg-anonimous-bot/pkg/store"
)

// RelayReply routes an operator's reply back to the originating user. The
// reply must carry ReplyTo, the delivered copy being answered; a message
// without it is outside this engine's routing scope and is a no-op
// (nil, nil). Unsupported payload kinds are rejected before the lookup
// (ErrUnsupportedContent). On success the reply has been sent to the user,
// tagged as a reply to the thread's original message, and the returned
// record is the newly inserted correlation row.
func (r *Relay) RelayReply(ctx context.Context, operatorID int64, msg *InboundMessage) (*store.Record, error) {
	if msg.ReplyTo == 0 {
		return nil, nil
	}
	if !msg.Payload.Supported() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContent, msg.Payload.Kind)
	}

	log := r.log.With().
		Int64("operator_id", operatorID).
		Int("in_reply_to", msg.ReplyTo).
		Logger()

	origin, err := r.store.FindActiveOrigin(ctx, msg.ReplyTo)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			repliesTotal.WithLabelValues("not_found").Inc()
			log.Warn().Msg("Reply could not be correlated")
			return nil, ErrNotFound
		}
		repliesTotal.WithLabelValues("fail").Inc()
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// Tag the send as a reply to the original message; the transport
	// falls back to a plain send if that message no longer exists.
	deliveredID, err := r.transport.Send(ctx, origin.UserID, msg.Payload, origin.OriginalMessageID)
	if err != nil {
		repliesTotal.WithLabelValues("fail").Inc()
		sendErr := &TransportError{Destination: origin.UserID, Err: err}
		log.Error().Err(sendErr).Int64("user_id", origin.UserID).Msg("Reply send failed")
		return nil, sendErr
	}

	rec := &store.Record{
		UserID:             origin.UserID,
		OperatorID:         ptr.Ptr(operatorID),
		OriginalMessageID:  origin.OriginalMessageID,
		DeliveredMessageID: deliveredID,
		ReplyMessageID:     ptr.Ptr(deliveredID),
		ContentType:        msg.Payload.Kind,
		Content:            msg.Payload.Text,
	}
	if msg.Payload.AttachmentRef != "" {
		rec.AttachmentRef = ptr.Ptr(msg.Payload.AttachmentRef)
	}
	if _, err := r.store.Insert(ctx, rec); err != nil {
		repliesTotal.WithLabelValues("fail").Inc()
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	repliesTotal.WithLabelValues("ok").Inc()
	log.Info().
		Int64("user_id", origin.UserID).
		Int("original_message_id", origin.OriginalMessageID).
		Int("reply_message_id", deliveredID).
		Msg("Reply relayed to user")
	return rec, nil
}
