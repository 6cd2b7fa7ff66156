package id

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestNewID32_Format(t *testing.T) {
	got := NewID32()
	if !Valid(got) {
		t.Fatalf("not 32-char lowercase hex: %q", got)
	}
	b, err := hex.DecodeString(got)
	if err != nil {
		t.Fatalf("hex.DecodeString error: %v", err)
	}
	// random uuid: version 4, RFC 4122 variant
	if b[6]>>4 != 4 {
		t.Fatalf("version nibble = %x, want 4", b[6]>>4)
	}
	if b[8]&0xc0 != 0x80 {
		t.Fatalf("variant bits = %x, want 10xxxxxx", b[8])
	}
}

func TestNewID32_Unique(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		v := NewID32()
		if _, dup := seen[v]; dup {
			t.Fatalf("duplicate id after %d draws: %s", i, v)
		}
		seen[v] = struct{}{}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{strings.Repeat("a", 32), true},
		{"0123456789abcdef0123456789abcdef", true},
		{strings.Repeat("A", 32), false},
		{"3f2b8c1e-9a4d-4c7e-8b21-6d0f5a3e9c12", false},
		{strings.Repeat("a", 31), false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.in); got != tt.ok {
			t.Errorf("Valid(%q) = %v, want %v", tt.in, got, tt.ok)
		}
	}
}
