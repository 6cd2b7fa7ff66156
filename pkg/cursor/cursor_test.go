package cursor

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 30, 0, 123, time.UTC)
	c := After(at, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Descending, "borrower:b1|desc")

	tok, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(tok, "borrower:b1|desc")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.CreatedAt.Equal(at) || got.ID != c.ID || got.Dir != Descending {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, c)
	}
}

func TestDecode_Rejects(t *testing.T) {
	valid, _ := Encode(After(time.Now(), "x", Ascending, "scope"))
	raw := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name  string
		token string
		scope string
	}{
		{"empty", "", "scope"},
		{"not base64", "invalid_token_xyz!!", "scope"},
		{"not json", raw("hello"), "scope"},
		{"bad direction", raw(`{"v":1,"t":"2026-01-01T00:00:00Z","id":"x","d":"sideways","s":"` + HashScope("scope") + `"}`), "scope"},
		{"missing key", raw(`{"v":1,"d":"asc","s":"` + HashScope("scope") + `"}`), "scope"},
		{"wrong version", raw(`{"v":9,"t":"2026-01-01T00:00:00Z","id":"x","d":"asc","s":"` + HashScope("scope") + `"}`), "scope"},
		{"other scope", valid, "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.token, tt.scope); err == nil {
				t.Fatalf("expected error for %q", tt.token)
			}
		})
	}
}

func TestDecode_ScopeMismatchSentinel(t *testing.T) {
	tok, _ := Encode(After(time.Now(), "x", Ascending, "a"))
	if _, err := Decode(tok, "b"); !errors.Is(err, ErrScopeMismatch) {
		t.Fatalf("want ErrScopeMismatch, got %v", err)
	}
}
