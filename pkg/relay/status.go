// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
	"fmt"
	"strings"

	"github.com/muhammadtakdir/tg-anonimous-bot/pkg/store"
)

// Summary returns a read-only snapshot of the correlation store: total row
// count plus the newest entries. The caller is responsible for having
// checked that the requester is an operator.
func (r *Relay) Summary(ctx context.Context) (store.Summary, error) {
	sum, err := r.store.Summary(ctx)
	if err != nil {
		return store.Summary{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return sum, nil
}

// FormatSummary renders a summary as the text returned by the
// introspection command.
func FormatSummary(sum store.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Correlation records: %d\n", sum.Total)
	if len(sum.Recent) == 0 {
		b.WriteString("No recent entries.")
		return b.String()
	}
	b.WriteString("Most recent:\n")
	for _, rec := range sum.Recent {
		direction := "user→operator"
		if rec.ReplyMessageID != nil {
			direction = "operator→user"
		}
		fmt.Fprintf(&b, "#%d %s %s user=%s msg=%s delivered=%s at %s\n",
			rec.ID,
			direction,
			rec.ContentType,
			FormatChatID(rec.UserID),
			FormatMessageID(rec.OriginalMessageID),
			FormatMessageID(rec.DeliveredMessageID),
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return strings.TrimRight(b.String(), "\n")
}
