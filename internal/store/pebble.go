package store

import (
	"context"
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/rmca/fip/internal/storage/pebble"
)

// PebbleStore keeps records in an ordered Pebble table. The key encodes the
// compound (timestamp, message_id) sort order directly, so range scans are
// a single forward iteration.
type PebbleStore struct {
	db *pebblestore.DB

	// mu serializes Insert's existence check against the write, which is
	// what enforces key uniqueness within the process.
	mu sync.Mutex
}

// NewPebbleStore wraps an open Pebble database.
func NewPebbleStore(db *pebblestore.DB) *PebbleStore {
	return &PebbleStore{db: db}
}

// Insert persists r, returning ErrDuplicate when the key already exists.
func (s *PebbleStore) Insert(ctx context.Context, r Record) error {
	key := recordKey(r.Timestamp, r.MessageID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Get(key); err == nil {
		return ErrDuplicate
	} else if !errors.Is(err, pebblestore.ErrNotFound) {
		return err
	}
	return s.db.Set(key, []byte(r.Data))
}

// List scans forward from the cursor's timestamp and applies the
// message_id >= m filter row-wise, reproducing the compound-key
// approximation documented on the package.
func (s *PebbleStore) List(ctx context.Context, cursor *Cursor, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	low := []byte(nil)
	if cursor != nil {
		low = recordLowerBound(cursor.Timestamp)
	} else {
		low = append([]byte(nil), recPrefix...)
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: recordUpperBound()})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := make([]Record, 0, limit)
	for ok := iter.First(); ok && len(out) < limit; ok = iter.Next() {
		ts, id, okKey := parseRecordKey(iter.Key())
		if !okKey {
			continue
		}
		if cursor != nil && id < cursor.MessageID {
			continue
		}
		out = append(out, Record{
			Timestamp: ts,
			MessageID: id,
			Data:      string(append([]byte(nil), iter.Value()...)),
		})
	}
	return out, nil
}

// Ping verifies the table can be read.
func (s *PebbleStore) Ping(ctx context.Context) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: recPrefix,
		UpperBound: recordUpperBound(),
	})
	if err != nil {
		return err
	}
	return iter.Close()
}

// Close is a no-op; the underlying DB is owned by the runtime.
func (s *PebbleStore) Close() error { return nil }
