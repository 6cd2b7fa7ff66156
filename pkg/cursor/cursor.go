// Package cursor provides opaque continuation tokens for keyset pagination.
//
// A token encodes the sort key of the last row a page returned. Clients must
// treat it as an opaque string; the server rejects tokens that were minted
// for a different listing scope or that fail to decode.
package cursor

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Direction indicates which way the listing is ordered.
type Direction string

const (
	// Ascending walks (created_at, id) upwards.
	Ascending Direction = "asc"
	// Descending walks (created_at, id) downwards, newest first.
	Descending Direction = "desc"
)

const version = 1

// Page bounds one keyset read over (created_at, id).
type Page struct {
	Limit int
	Dir   Direction
	// After is the sort key of the last row already returned; nil starts at the edge.
	After *Cursor
}

var ErrScopeMismatch = errors.New("cursor minted for a different listing")

// Cursor is the decoded state behind a continuation token.
type Cursor struct {
	V         int       `json:"v"`
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"id"`
	Dir       Direction `json:"d"`
	Scope     string    `json:"s"`
}

// After returns a cursor positioned after the row (createdAt, id).
func After(createdAt time.Time, id string, dir Direction, scope string) Cursor {
	return Cursor{V: version, CreatedAt: createdAt.UTC(), ID: id, Dir: dir, Scope: HashScope(scope)}
}

func Encode(c Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses token and checks it belongs to scope.
func Decode(token, scope string) (Cursor, error) {
	if token == "" {
		return Cursor{}, errors.New("empty token")
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode base64: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("unmarshal cursor: %w", err)
	}
	if c.V != version {
		return Cursor{}, fmt.Errorf("unsupported cursor version %d", c.V)
	}
	if c.Dir != Ascending && c.Dir != Descending {
		return Cursor{}, fmt.Errorf("invalid cursor direction: %q", c.Dir)
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return Cursor{}, errors.New("cursor missing sort key")
	}
	if c.Scope != HashScope(scope) {
		return Cursor{}, ErrScopeMismatch
	}
	return c, nil
}

// HashScope shortens the listing scope (owner + ordering) to a stable fingerprint.
func HashScope(scope string) string {
	h := sha256.Sum256([]byte(scope))
	return hex.EncodeToString(h[:8])
}
