package loanmock

import (
	"context"
	"errors"
	"testing"

	domain "lendledger/internal/domain/loan"
)

func TestRepo_Defaults(t *testing.T) {
	m := &Repo{}
	ctx := context.Background()
	if err := m.Create(ctx, &domain.Loan{}); err != nil {
		t.Fatalf("Create default: %v", err)
	}
	l := &domain.Loan{Version: 3}
	if err := m.SaveVersioned(ctx, l); err != nil || l.Version != 4 {
		t.Fatalf("SaveVersioned default: v=%d err=%v", l.Version, err)
	}
	if _, err := m.GetByLoanID(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("GetByLoanID default: %v", err)
	}
}

func TestRepo_Overrides(t *testing.T) {
	want := &domain.Loan{LoanID: "L1"}
	m := &Repo{GetByLoanIDFn: func(ctx context.Context, id string) (*domain.Loan, error) {
		if id != "L1" {
			t.Fatalf("id = %s", id)
		}
		return want, nil
	}}
	got, err := m.GetByLoanID(context.Background(), "L1")
	if err != nil || got != want {
		t.Fatalf("GetByLoanID = %v, %v", got, err)
	}
}
