package numerator

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the minimal database contract the postgres store needs.
// Satisfied by pgxpool.Pool and pgx.Tx alike.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// QuerierResolver resolves the querier per call. Binding the resolver to a
// transaction manager lets the increment join the caller's transaction, so a
// rolled-back issuance also rolls back the consumed ordinal.
type QuerierResolver func(ctx context.Context) Querier

// PgStore implements Store on PostgreSQL. The UPSERT ... RETURNING statement
// is the atomic read-and-increment: the row lock taken by the UPDATE
// serializes concurrent issuances at the database.
type PgStore struct {
	resolve QuerierResolver
}

// NewPgStore creates a postgres-backed sequence store bound to a fixed
// querier, typically the pool.
func NewPgStore(q Querier) *PgStore {
	return &PgStore{resolve: func(context.Context) Querier { return q }}
}

// NewPgStoreWithResolver creates a postgres-backed sequence store that picks
// its querier per call, joining any transaction carried by the context.
func NewPgStoreWithResolver(resolve QuerierResolver) *PgStore {
	return &PgStore{resolve: resolve}
}

func (s *PgStore) NextOrdinal(ctx context.Context, key string) (int64, error) {
	var ordinal int64
	err := s.resolve(ctx).QueryRow(ctx, `
        INSERT INTO sys_sequences (key, current_val)
        VALUES ($1, 1)
        ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
        RETURNING current_val
	`, key).Scan(&ordinal)
	if err != nil {
		return 0, fmt.Errorf("increment sequence %s: %w", key, err)
	}
	return ordinal, nil
}

func (s *PgStore) SeedOrdinal(ctx context.Context, key string, value int64) error {
	_, err := s.resolve(ctx).Exec(ctx, `
        INSERT INTO sys_sequences (key, current_val)
        VALUES ($1, $2)
        ON CONFLICT (key) DO NOTHING
	`, key, value)
	if err != nil {
		return fmt.Errorf("seed sequence %s: %w", key, err)
	}
	return nil
}

// MemoryStore implements Store in memory, guarded by a mutex. Used in tests
// and anywhere a process-local sequence is acceptable.
type MemoryStore struct {
	mu   sync.Mutex
	vals map[string]int64
}

// NewMemoryStore creates an empty in-memory sequence store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{vals: make(map[string]int64)}
}

func (s *MemoryStore) NextOrdinal(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[key]++
	return s.vals[key], nil
}

func (s *MemoryStore) SeedOrdinal(ctx context.Context, key string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.vals[key]; !exists {
		s.vals[key] = value
	}
	return nil
}
