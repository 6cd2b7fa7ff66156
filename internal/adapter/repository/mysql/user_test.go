package mysql

import (
	"context"
	"errors"
	"testing"

	"lendledger/internal/domain/apperr"
	"lendledger/internal/domain/identity"
	"lendledger/internal/testutil/ledgerdb"
)

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(ledgerdb.Open(t))
	ctx := context.Background()

	for _, u := range []identity.User{
		{UserID: "U1", Email: "Alice@X.io", Name: "Alice"},
		{UserID: "U2", Email: "bob@x.io", Name: "Bob"},
	} {
		u := u
		if err := repo.Upsert(ctx, &u); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	// upsert updates in place
	if err := repo.Upsert(ctx, &identity.User{UserID: "U2", Email: "bob@x.io", Name: "Robert"}); err != nil {
		t.Fatalf("Upsert existing: %v", err)
	}

	found, err := repo.FindByEmails(ctx, []string{"ALICE@x.io", "nobody@x.io"})
	if err != nil || len(found) != 1 || found[0].UserID != "U1" {
		t.Fatalf("FindByEmails = %+v, %v", found, err)
	}

	batch, err := repo.BatchGet(ctx, []string{"U1", "U2", "U9"})
	if err != nil || len(batch) != 2 {
		t.Fatalf("BatchGet = %d, %v", len(batch), err)
	}

	for i := 0; i < 2; i++ {
		if err := repo.MarkLender(ctx, "U1"); err != nil {
			t.Fatalf("MarkLender #%d: %v", i, err)
		}
	}
	u1, err := repo.GetByID(ctx, "U1")
	if err != nil || !u1.IsLender {
		t.Fatalf("GetByID = %+v, %v", u1, err)
	}
	u2, _ := repo.GetByID(ctx, "U2")
	if u2.Name != "Robert" || u2.IsLender {
		t.Fatalf("unexpected U2: %+v", u2)
	}
	if _, err := repo.GetByID(ctx, "U9"); !errors.Is(err, apperr.KindNotFound) {
		t.Fatalf("want not_found, got %v", err)
	}
}
