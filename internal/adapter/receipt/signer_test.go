package receipt

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestSigner_RoundTrip(t *testing.T) {
	s, err := NewSigner("https://files.example.com/receipts/", []byte("secret"), 15*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	link, err := s.Resolve(context.Background(), "L1/U1/up-1/receipt scan.pdf")
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(link)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(link, "https://files.example.com/receipts/L1/U1/up-1/receipt%20scan.pdf?token=") {
		t.Fatalf("link %s", link)
	}

	loc, err := s.Verify(u.Query().Get("token"))
	if err != nil || loc != "L1/U1/up-1/receipt scan.pdf" {
		t.Fatalf("Verify = %q, %v", loc, err)
	}

	now = now.Add(16 * time.Minute)
	if _, err := s.Verify(u.Query().Get("token")); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestSigner_RejectsForeignKey(t *testing.T) {
	a, _ := NewSigner("https://files.example.com", []byte("a"), time.Minute)
	b, _ := NewSigner("https://files.example.com", []byte("b"), time.Minute)
	link, err := a.Resolve(context.Background(), "L1/U1/up-1/r.pdf")
	if err != nil {
		t.Fatal(err)
	}
	u, _ := url.Parse(link)
	if _, err := b.Verify(u.Query().Get("token")); err == nil {
		t.Fatal("token signed with another key accepted")
	}
}

func TestNewSigner_Validation(t *testing.T) {
	tests := []struct {
		name string
		base string
		key  []byte
	}{
		{"relative base", "/receipts", []byte("k")},
		{"empty key", "https://files.example.com", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSigner(tt.base, tt.key, time.Minute); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
