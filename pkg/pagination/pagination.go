// Package pagination implements keyset paging over (created_at, id).
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is what a list endpoint accepts.
type Params struct {
	Limit  int
	Cursor string
}

// Keyset is the position of the last row on a page.
type Keyset struct {
	CreatedAt time.Time `json:"t"`
	ID        uuid.UUID `json:"id"`
}

var ErrInvalidCursor = errors.New("invalid cursor")

// Clamp maps non-positive limits to DefaultLimit and caps at MaxLimit.
func Clamp(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// Encode returns the opaque, URL-safe form of k.
func (k Keyset) Encode() string {
	raw, _ := json.Marshal(Keyset{CreatedAt: k.CreatedAt.UTC(), ID: k.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode parses a cursor produced by Encode. An empty token means the first page.
func Decode(token string) (*Keyset, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var k Keyset
	if err := json.Unmarshal(raw, &k); err != nil || k.ID == uuid.Nil || k.CreatedAt.IsZero() {
		return nil, ErrInvalidCursor
	}
	return &k, nil
}

// Page trims rows fetched with Clamp(limit)+1 and returns the cursor of the
// next page, or "" when rows was the last page.
func Page[T any](rows []T, limit int, key func(T) Keyset) ([]T, string) {
	limit = Clamp(limit)
	if len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, key(rows[limit-1]).Encode()
}
