// Package store persists ingested records in an append-only table keyed by
// (timestamp, message_id) and answers ordered range scans for pagination.
//
// Two implementations are provided: an embedded Pebble table (default) and a
// Postgres table selected by configuration. Both enforce key uniqueness and
// both implement the same range filter:
//
//	timestamp >= t AND message_id >= m
//
// which approximates lexicographic (timestamp, message_id) ordering. The
// approximation is intentional and kept identical across backends; under
// timestamp ties with non-monotonic IDs it can skip or repeat rows across
// page boundaries.
package store

import (
	"context"
	"errors"
)

// ErrDuplicate is returned by Insert when a record with the same
// (timestamp, message_id) already exists.
var ErrDuplicate = errors.New("store: duplicate record key")

// Record is a persisted document. Records are never mutated or deleted.
type Record struct {
	Timestamp int64  `json:"timestamp"`
	MessageID string `json:"message_id"`
	Data      string `json:"data"`
}

// Cursor identifies the inclusive lower bound of a range scan.
type Cursor struct {
	Timestamp int64
	MessageID string
}

// Store is the record-store contract shared by all backends.
type Store interface {
	// Insert persists r, returning ErrDuplicate if the key already exists.
	Insert(ctx context.Context, r Record) error
	// List returns up to limit records with key >= cursor (per the filter
	// documented on the package), ordered by (timestamp, message_id).
	// A nil cursor scans from the beginning.
	List(ctx context.Context, cursor *Cursor, limit int) ([]Record, error)
	// Ping verifies the backend is reachable, for health reporting.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}
