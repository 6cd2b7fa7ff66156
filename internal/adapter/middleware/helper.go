package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"lendledger/pkg/id"

	"github.com/google/uuid"
)

func bodyHash(b []byte) string { s := sha256.Sum256(b); return hex.EncodeToString(s[:]) }

// validKey accepts a canonical uuid or 32 hex characters, in either case.
func validKey(k string) bool {
	k = strings.TrimSpace(k)
	if len(k) == 36 {
		_, err := uuid.Parse(k)
		return err == nil
	}
	return id.Valid(strings.ToLower(k))
}

// fingerprint binds a key to the exact request it first arrived with: the
// concrete path, so /loans/A/lenders and /loans/B/lenders never collide.
func fingerprint(method, path string, body []byte) string {
	return strings.ToLower(method) + ":" + path + ":" + bodyHash(body)
}
