// Copyright 2024-2026 Aiku AI

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/util/ptr"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "relay.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAssignsIncreasingIDs(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Insert(ctx, &Record{
		UserID:             100,
		OriginalMessageID:  1,
		DeliveredMessageID: 1001,
		ContentType:        "text",
		Content:            "hello",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Duplicate content is legitimate: the same message broadcast to
	// another operator.
	second, err := s.Insert(ctx, &Record{
		UserID:             100,
		OriginalMessageID:  1,
		DeliveredMessageID: 1002,
		ContentType:        "text",
		Content:            "hello",
	})
	if err != nil {
		t.Fatalf("Insert duplicate content: %v", err)
	}
	if second <= first {
		t.Errorf("ids: got %d then %d, want increasing", first, second)
	}
}

func TestInsertDefaults(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	rec := &Record{UserID: 100, OriginalMessageID: 1, DeliveredMessageID: 1001, ContentType: "text"}
	if _, err := s.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.FindActiveOrigin(context.Background(), 1001)
	if err != nil {
		t.Fatalf("FindActiveOrigin: %v", err)
	}
	if got.Status != StatusActive {
		t.Errorf("status: got %q, want %q", got.Status, StatusActive)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created at should be defaulted")
	}
}

func TestFindActiveOriginRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	rec := &Record{
		UserID:             100,
		OperatorID:         ptr.Ptr(int64(10)),
		OriginalMessageID:  555,
		DeliveredMessageID: 1001,
		ContentType:        "photo",
		Content:            "caption",
		AttachmentRef:      ptr.Ptr("file-abc"),
	}
	if _, err := s.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.FindActiveOrigin(context.Background(), 1001)
	if err != nil {
		t.Fatalf("FindActiveOrigin: %v", err)
	}
	if got.UserID != 100 || got.OriginalMessageID != 555 {
		t.Errorf("origin: got user=%d original=%d", got.UserID, got.OriginalMessageID)
	}
	if got.OperatorID == nil || *got.OperatorID != 10 {
		t.Errorf("operator: got %v, want 10", got.OperatorID)
	}
	if got.AttachmentRef == nil || *got.AttachmentRef != "file-abc" {
		t.Errorf("attachment: got %v, want file-abc", got.AttachmentRef)
	}
	if got.ContentType != "photo" || got.Content != "caption" {
		t.Errorf("content: got %q/%q", got.ContentType, got.Content)
	}
}

func TestFindActiveOriginNotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.FindActiveOrigin(context.Background(), 9999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FindActiveOrigin: got %v, want ErrNotFound", err)
	}
}

func TestFindActiveOriginNewestWins(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	older := &Record{
		UserID:             100,
		OriginalMessageID:  1,
		DeliveredMessageID: 1001,
		ContentType:        "text",
		CreatedAt:          time.Now().UTC().Add(-time.Hour),
	}
	newer := &Record{
		UserID:             200,
		OriginalMessageID:  2,
		DeliveredMessageID: 1001,
		ContentType:        "text",
		CreatedAt:          time.Now().UTC(),
	}
	if _, err := s.Insert(ctx, older); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert(ctx, newer); err != nil {
		t.Fatal(err)
	}

	got, err := s.FindActiveOrigin(ctx, 1001)
	if err != nil {
		t.Fatalf("FindActiveOrigin: %v", err)
	}
	if got.UserID != 200 {
		t.Errorf("newest wins: got user %d, want 200", got.UserID)
	}
}

func TestFindActiveOriginSkipsSuperseded(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	superseded := &Record{
		UserID:             300,
		OriginalMessageID:  3,
		DeliveredMessageID: 1001,
		ContentType:        "text",
		CreatedAt:          time.Now().UTC(),
		Status:             StatusSuperseded,
	}
	active := &Record{
		UserID:             100,
		OriginalMessageID:  1,
		DeliveredMessageID: 1001,
		ContentType:        "text",
		CreatedAt:          time.Now().UTC().Add(-time.Hour),
	}
	if _, err := s.Insert(ctx, superseded); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert(ctx, active); err != nil {
		t.Fatal(err)
	}

	got, err := s.FindActiveOrigin(ctx, 1001)
	if err != nil {
		t.Fatalf("FindActiveOrigin: %v", err)
	}
	if got.UserID != 100 {
		t.Errorf("superseded should be skipped: got user %d, want 100", got.UserID)
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 7; i++ {
		rec := &Record{
			UserID:             100,
			OriginalMessageID:  i,
			DeliveredMessageID: 1000 + i,
			ContentType:        "text",
			CreatedAt:          base.Add(time.Duration(i) * time.Minute),
		}
		if _, err := s.Insert(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	sum, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Total != 7 {
		t.Errorf("total: got %d, want 7", sum.Total)
	}
	if len(sum.Recent) != 5 {
		t.Fatalf("recent: got %d, want 5", len(sum.Recent))
	}
	// Newest first.
	if sum.Recent[0].DeliveredMessageID != 1006 {
		t.Errorf("recent[0]: got %d, want 1006", sum.Recent[0].DeliveredMessageID)
	}
	for i := 1; i < len(sum.Recent); i++ {
		if sum.Recent[i].CreatedAt.After(sum.Recent[i-1].CreatedAt) {
			t.Errorf("recent not sorted newest first at %d", i)
		}
	}
}

func TestOpenAppliesPragmas(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	var journalMode string
	if err := s.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode: got %q, want %q", journalMode, "wal")
	}

	var busyTimeout int
	if err := s.db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatalf("query busy_timeout: %v", err)
	}
	if busyTimeout != 5000 {
		t.Errorf("busy_timeout: got %d, want 5000", busyTimeout)
	}
}

func TestConcurrentInserts(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	const n = 20
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			_, err := s.Insert(ctx, &Record{
				UserID:             int64(i),
				OriginalMessageID:  i,
				DeliveredMessageID: 2000 + i,
				ContentType:        "text",
			})
			errs <- err
		}(i)
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Errorf("concurrent insert: %v", err)
		}
	}

	sum, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Total != n {
		t.Errorf("total: got %d, want %d", sum.Total, n)
	}
}
