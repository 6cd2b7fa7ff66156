// Package id mints the identifiers used for loans, participations and payments.
package id

import (
	"encoding/hex"
	"regexp"

	"github.com/google/uuid"
)

var reID = regexp.MustCompile(`^[a-f0-9]{32}$`)

// NewID32 returns a random (v4) uuid rendered as exactly 32 lowercase hex
// characters, with no separators.
func NewID32() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// Valid reports whether s has the NewID32 shape.
func Valid(s string) bool { return reID.MatchString(s) }
