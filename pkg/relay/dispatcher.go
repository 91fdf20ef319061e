// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
	"fmt"

	"go.mau.fi/util/ptr"

	"github.com/muhammadtakdir/tg-anonimous-bot/pkg/store"
)

// DispatchOutcome aggregates the per-operator results of one fan-out.
type DispatchOutcome struct {
	Attempted int
	Succeeded int
}

// RelayInbound fans one inbound user message out to every configured
// operator and records a correlation row per successful send. Per-operator
// failures are logged and do not abort sends to the remaining operators;
// the call fails only when no send succeeded (ErrNoOperatorAvailable), the
// payload kind is unsupported (ErrUnsupportedContent), or a correlation row
// could not be written (ErrPersistence).
func (r *Relay) RelayInbound(ctx context.Context, msg *InboundMessage) (DispatchOutcome, error) {
	var outcome DispatchOutcome

	if !msg.Payload.Supported() {
		return outcome, fmt.Errorf("%w: %q", ErrUnsupportedContent, msg.Payload.Kind)
	}
	inboundTotal.WithLabelValues(msg.Payload.Kind).Inc()

	header := r.cfg.FormatHeader(HeaderParams{Name: msg.SenderName, ID: msg.SenderID})
	out := msg.Payload
	if out.Text != "" {
		out.Text = header + "\n\n" + out.Text
	} else {
		out.Text = header
	}

	log := r.log.With().
		Int64("user_id", msg.SenderID).
		Int("message_id", msg.MessageID).
		Str("kind", msg.Payload.Kind).
		Logger()

	for _, operatorID := range r.cfg.Operators {
		outcome.Attempted++

		deliveredID, err := r.transport.Send(ctx, operatorID, out, 0)
		if err != nil {
			fanoutSendsTotal.WithLabelValues("fail").Inc()
			sendErr := &TransportError{Destination: operatorID, Err: err}
			log.Error().Err(sendErr).Int64("operator_id", operatorID).Msg("Fan-out send failed")
			continue
		}

		rec := &store.Record{
			UserID:             msg.SenderID,
			OperatorID:         ptr.Ptr(operatorID),
			OriginalMessageID:  msg.MessageID,
			DeliveredMessageID: deliveredID,
			ContentType:        msg.Payload.Kind,
			Content:            msg.Payload.Text,
		}
		if msg.Payload.AttachmentRef != "" {
			rec.AttachmentRef = ptr.Ptr(msg.Payload.AttachmentRef)
		}
		if _, err := r.store.Insert(ctx, rec); err != nil {
			return outcome, fmt.Errorf("%w: %v", ErrPersistence, err)
		}

		outcome.Succeeded++
		fanoutSendsTotal.WithLabelValues("ok").Inc()
		log.Debug().
			Int64("operator_id", operatorID).
			Int("delivered_message_id", deliveredID).
			Msg("Forwarded to operator")
	}

	if outcome.Succeeded == 0 {
		return outcome, ErrNoOperatorAvailable
	}

	log.Info().
		Int("attempted", outcome.Attempted).
		Int("succeeded", outcome.Succeeded).
		Msg("Fan-out complete")
	return outcome, nil
}
