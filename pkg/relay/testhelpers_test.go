// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/muhammadtakdir/tg-anonimous-bot/pkg/store"
)

// sentMessage records one Send call for test assertions.
type sentMessage struct {
	Destination int64
	Payload     Payload
	ReplyTo     int
}

// fakeTransport captures outbound sends and can be scripted to fail for
// specific destinations.
type fakeTransport struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[int64]error
	nextID  int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		failFor: make(map[int64]error),
		nextID:  1000,
	}
}

func (f *fakeTransport) Send(_ context.Context, destination int64, p Payload, replyTo int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[destination]; ok {
		return 0, err
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{Destination: destination, Payload: p, ReplyTo: replyTo})
	return f.nextID, nil
}

func (f *fakeTransport) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]sentMessage, len(f.sent))
	copy(cp, f.sent)
	return cp
}

// fakeStore is an in-memory CorrelationStore with the same lookup semantics
// as the SQLite store: active records only, newest first.
type fakeStore struct {
	mu        sync.Mutex
	records   []*store.Record
	insertErr error
	nextID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (f *fakeStore) Insert(_ context.Context, rec *store.Record) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.nextID++
	rec.ID = f.nextID
	if rec.Status == "" {
		rec.Status = store.StatusActive
	}
	cp := *rec
	f.records = append(f.records, &cp)
	return rec.ID, nil
}

func (f *fakeStore) FindActiveOrigin(_ context.Context, deliveredMessageID int) (*store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.records) - 1; i >= 0; i-- {
		rec := f.records[i]
		if rec.DeliveredMessageID == deliveredMessageID && rec.Status == store.StatusActive {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) Summary(_ context.Context) (store.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := store.Summary{Total: int64(len(f.records))}
	sorted := make([]*store.Record, len(f.records))
	copy(sorted, f.records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID > sorted[j].ID })
	for i, rec := range sorted {
		if i == 5 {
			break
		}
		cp := *rec
		sum.Recent = append(sum.Recent, &cp)
	}
	return sum, nil
}

func (f *fakeStore) Records() []*store.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]*store.Record, len(f.records))
	copy(cp, f.records)
	return cp
}

// newTestRelay wires a relay engine with fakes and a minimal config.
func newTestRelay(operators []int64) (*Relay, *fakeStore, *fakeTransport) {
	cfg := &Config{Operators: operators}
	if err := cfg.PostProcess(); err != nil {
		panic(err)
	}
	fs := newFakeStore()
	ft := newFakeTransport()
	return New(cfg, fs, ft, zerolog.Nop()), fs, ft
}
