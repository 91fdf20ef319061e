// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/muhammadtakdir/tg-anonimous-bot/pkg/store"
)

// CorrelationStore is the durable mapping between delivered copies and
// their logical origin. This allows tests to inject a fake instead of
// requiring a real database.
type CorrelationStore interface {
	Insert(ctx context.Context, rec *store.Record) (int64, error)
	FindActiveOrigin(ctx context.Context, deliveredMessageID int) (*store.Record, error)
	Summary(ctx context.Context) (store.Summary, error)
}

// Relay is the message-relay and reply-correlation engine. It holds no
// in-memory session state; all routing state lives in the store, so a
// restart loses nothing. Multiple events may be relayed concurrently, but
// one event's fan-out runs its sends and inserts sequentially.
type Relay struct {
	cfg       *Config
	store     CorrelationStore
	transport Transport
	log       zerolog.Logger
}

// New creates a relay engine.
func New(cfg *Config, st CorrelationStore, tr Transport, log zerolog.Logger) *Relay {
	return &Relay{
		cfg:       cfg,
		store:     st,
		transport: tr,
		log:       log.With().Str("component", "relay").Logger(),
	}
}

// IsOperator reports whether the chat ID belongs to the configured
// operator set.
func (r *Relay) IsOperator(id int64) bool {
	return r.cfg.IsOperator(id)
}
