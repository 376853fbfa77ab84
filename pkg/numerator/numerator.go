// Package numerator provides the progressive document numbering allocator.
//
// Numbers follow the "YYYY/NNN" format: a 4-digit year and an ordinal
// zero-padded to at least 3 digits. The ordinal is a single global
// progressive sequence that does NOT reset at year boundaries (per the 2013
// change to Italian numbering rules): only the printed year component tracks
// the issuance date.
//
// The sequence counter is the one piece of shared mutable state in the
// engine. Every implementation of Store must make NextOrdinal an atomic
// read-and-increment so that two racing issuances can never obtain the same
// ordinal.
package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultKey is the sequence key used for the single global invoice sequence.
const DefaultKey = "invoice"

// defaultPadWidth is the minimum ordinal width in the printed number.
const defaultPadWidth = 3

// Store is the atomic sequence counter contract.
type Store interface {
	// NextOrdinal atomically increments the sequence and returns the new
	// value. The first call on an absent sequence returns 1.
	NextOrdinal(ctx context.Context, key string) (int64, error)

	// SeedOrdinal initializes the sequence to value if it does not exist yet.
	// Existing sequences are left untouched.
	SeedOrdinal(ctx context.Context, key string, value int64) error
}

// Allocator issues progressive document numbers.
type Allocator struct {
	store Store
	key   string
}

// New creates an allocator over the given sequence store.
func New(store Store) *Allocator {
	return &Allocator{store: store, key: DefaultKey}
}

// NewWithKey creates an allocator bound to a specific sequence key.
func NewWithKey(store Store, key string) *Allocator {
	return &Allocator{store: store, key: key}
}

// NextNumber allocates and formats the next document number for the given
// issuance time. The store guarantees atomicity; no two calls ever return
// the same number, under any concurrency.
func (a *Allocator) NextNumber(ctx context.Context, at time.Time) (string, error) {
	if a == nil || a.store == nil {
		return "", fmt.Errorf("numerator: allocator is not initialized")
	}

	ordinal, err := a.store.NextOrdinal(ctx, a.key)
	if err != nil {
		return "", fmt.Errorf("numerator: next ordinal: %w", err)
	}
	return Format(at.Year(), ordinal), nil
}

// Seed initializes the sequence from the last assigned document number,
// typically read once from the document store. A no-op when the sequence
// already exists or last is empty.
func (a *Allocator) Seed(ctx context.Context, last string) error {
	if last == "" {
		return nil
	}
	_, ordinal, err := Parse(last)
	if err != nil {
		return fmt.Errorf("numerator: seed from %q: %w", last, err)
	}
	return a.store.SeedOrdinal(ctx, a.key, ordinal)
}

// Format renders a document number: 4-digit year, ordinal zero-padded to at
// least 3 digits. This is the engine's one bit-exact external contract.
func Format(year int, ordinal int64) string {
	return fmt.Sprintf("%04d/%0*d", year, defaultPadWidth, ordinal)
}

// Parse extracts the year and ordinal from a formatted number.
func Parse(number string) (year int, ordinal int64, err error) {
	parts := strings.SplitN(number, "/", 2)
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) < defaultPadWidth {
		return 0, 0, fmt.Errorf("malformed document number %q", number)
	}

	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed year in %q", number)
	}
	ordinal, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil || ordinal < 1 {
		return 0, 0, fmt.Errorf("malformed ordinal in %q", number)
	}
	return year, ordinal, nil
}

// Next computes the successor of a formatted number for the given time.
// Pure function: the ordinal always increments, the year component follows
// the issuance date. Useful for verifying allocator output.
func Next(last string, at time.Time) (string, error) {
	if last == "" {
		return Format(at.Year(), 1), nil
	}
	_, ordinal, err := Parse(last)
	if err != nil {
		return "", err
	}
	return Format(at.Year(), ordinal+1), nil
}
