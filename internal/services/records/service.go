// Package recordsvc serves read access to persisted records with keyset
// pagination. Cursors are opaque to clients but encode the first row of the
// next page as "<timestamp>_<message_id>".
package recordsvc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rmca/fip/internal/apierr"
	"github.com/rmca/fip/internal/store"
)

// Page is one page of records. Next is nil on the final page.
type Page struct {
	Results []store.Record `json:"results"`
	Count   int            `json:"count"`
	Next    *string        `json:"next"`
}

// Service pages through the record store.
type Service struct {
	store    store.Store
	pageSize int
}

// New builds the service; pageSize must be positive.
func New(st store.Store, pageSize int) (*Service, error) {
	if st == nil {
		return nil, errors.New("records: store is required")
	}
	if pageSize <= 0 {
		return nil, errors.New("records: page size must be positive")
	}
	return &Service{store: st, pageSize: pageSize}, nil
}

// ParseCursor decodes a client token. An empty token means the first page.
func ParseCursor(token string) (*store.Cursor, error) {
	if token == "" {
		return nil, nil
	}
	parts := strings.Split(token, "_")
	if len(parts) != 2 || parts[1] == "" {
		return nil, apierr.InvalidCursor()
	}
	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, apierr.InvalidCursor()
	}
	return &store.Cursor{Timestamp: ts, MessageID: parts[1]}, nil
}

func encodeCursor(r store.Record) string {
	return fmt.Sprintf("%d_%s", r.Timestamp, r.MessageID)
}

// Page returns the page starting at token. It fetches one row beyond the
// page size; the extra row, if present, becomes the next cursor and is not
// returned to the client, so the final page is exactly the one without it.
func (s *Service) Page(ctx context.Context, token string) (Page, error) {
	cursor, err := ParseCursor(token)
	if err != nil {
		return Page{}, err
	}

	rows, err := s.store.List(ctx, cursor, s.pageSize+1)
	if err != nil {
		return Page{}, fmt.Errorf("list records: %w", err)
	}

	var next *string
	if len(rows) > s.pageSize {
		token := encodeCursor(rows[s.pageSize])
		next = &token
		rows = rows[:s.pageSize]
	}
	if rows == nil {
		rows = []store.Record{}
	}
	return Page{Results: rows, Count: len(rows), Next: next}, nil
}
