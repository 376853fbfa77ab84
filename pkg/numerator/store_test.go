package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Mock objects simulating the sys_sequences UPSERT behavior.

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

type mockQuerier struct {
	mu     sync.Mutex
	val    int64
	seeded bool
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.val++
	return &mockRow{val: m.val}
}

func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.seeded && len(args) == 2 {
		if v, ok := args[1].(int64); ok {
			m.val = v
			m.seeded = true
		}
	}
	return pgconn.CommandTag{}, nil
}

func TestPgStore_NextOrdinal(t *testing.T) {
	q := &mockQuerier{}
	alloc := New(NewPgStore(q))
	ctx := context.Background()
	at := time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)

	num, err := alloc.NextNumber(ctx, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "2026/001" {
		t.Errorf("expected 2026/001, got %s", num)
	}

	num, err = alloc.NextNumber(ctx, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "2026/002" {
		t.Errorf("expected 2026/002, got %s", num)
	}
}

type querierKey struct{}

func TestPgStore_ResolverPicksContextQuerier(t *testing.T) {
	// A resolver-bound store must route each call through the querier the
	// context carries, so an increment inside a transaction hits the
	// transaction's connection and rolls back with it.
	txQuerier := &mockQuerier{}
	poolQuerier := &mockQuerier{}

	store := NewPgStoreWithResolver(func(ctx context.Context) Querier {
		if q, ok := ctx.Value(querierKey{}).(Querier); ok {
			return q
		}
		return poolQuerier
	})

	txCtx := context.WithValue(context.Background(), querierKey{}, Querier(txQuerier))
	if _, err := store.NextOrdinal(txCtx, DefaultKey); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txQuerier.val != 1 {
		t.Errorf("expected tx querier increment, got %d", txQuerier.val)
	}
	if poolQuerier.val != 0 {
		t.Errorf("pool querier must stay untouched, got %d", poolQuerier.val)
	}

	if _, err := store.NextOrdinal(context.Background(), DefaultKey); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if poolQuerier.val != 1 {
		t.Errorf("expected pool querier increment, got %d", poolQuerier.val)
	}
}

func TestPgStore_Seed(t *testing.T) {
	q := &mockQuerier{}
	alloc := New(NewPgStore(q))
	ctx := context.Background()
	at := time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)

	if err := alloc.Seed(ctx, "2025/120"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	num, err := alloc.NextNumber(ctx, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "2026/121" {
		t.Errorf("expected 2026/121, got %s", num)
	}
}
