package identity

import (
	"context"
	"testing"
)

func TestCurrent(t *testing.T) {
	if _, ok := Current(context.Background()); ok {
		t.Fatal("empty context should carry no identity")
	}
	ctx := WithIdentity(context.Background(), Identity{ID: "u1", Roles: []Role{RoleLender}})
	got, ok := Current(ctx)
	if !ok || got.ID != "u1" {
		t.Fatalf("Current = %+v, %v", got, ok)
	}
	if !got.Has(RoleLender) || got.Has(RoleBorrower) || got.IsAdmin() {
		t.Fatalf("role checks wrong for %+v", got)
	}
	if _, ok := Current(WithIdentity(context.Background(), Identity{})); ok {
		t.Fatal("identity without id must not count")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Fatalf("got %q", got)
	}
}
