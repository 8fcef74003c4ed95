// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
)

// Hint is a non-authoritative, mint-keyed UI hint persisted across sessions:
// the last metadata JSON we rendered, whether the record was seen finalized,
// and the last display symbol. It is read opportunistically and never
// validated against chain state.
type Hint struct {
	MetadataJSON string `json:"metadata_json,omitempty"`
	Finalized    bool   `json:"finalized"`
	LastSymbol   string `json:"last_symbol,omitempty"`
}

// ErrUnavailable is returned when the backing store cannot be reached.
// Callers treat it the same as a miss.
var ErrUnavailable = errors.New("hint store unavailable")

// HintStore is the injectable key-value abstraction over the hint cache.
//
// Invalidation policy: entries expire by TTL in backends that support it and
// are otherwise overwritten on the next successful enrichment of the same
// mint. There is no active invalidation against chain state; a stale hint is
// acceptable because it only pre-fills a display row until the fetch cycle
// settles.
type HintStore interface {
	// Get returns the hint for a mint. ok=false means no entry.
	Get(ctx context.Context, mint string) (Hint, bool, error)
	// Put stores (or overwrites) the hint for a mint.
	Put(ctx context.Context, mint string, hint Hint) error
}
