package enrichment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"lendledger/internal/domain/apperr"
	"lendledger/internal/domain/identity"
	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/participation"
)

func resolved(who identity.Identity) participation.LenderRef {
	return participation.Resolved(who.ID, who.Email)
}

func TestSearchLenders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLoan(t, "L1", borrower.ID, loan.StatusActive, t0)
	f.seedLoan(t, "L2", borrower.ID, loan.StatusActive, t0.Add(time.Hour))
	f.seedLoan(t, "OTHER", "B2", loan.StatusActive, t0)
	f.seedParticipation(t, "P1", "L1", resolved(lenderA), 4000, participation.StatusAccepted, t0)
	f.seedParticipation(t, "P2", "L2", resolved(lenderA), 2000, participation.StatusAccepted, t0.Add(time.Hour))
	f.seedParticipation(t, "P3", "L1", resolved(lenderB), 3000, participation.StatusAccepted, t0)
	f.seedParticipation(t, "P4", "L2", resolved(lenderB), 1000, participation.StatusPending, t0)
	f.seedParticipation(t, "P5", "L2", participation.Placeholder("new@x.io"), 500, participation.StatusPending, t0)
	f.seedParticipation(t, "P6", "OTHER", resolved(lenderB), 5000, participation.StatusAccepted, t0)

	got, err := f.uc.SearchLenders(ctx, borrower, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Count != 2 || len(got.Lenders) != 2 {
		t.Fatalf("lenders = %+v", got.Lenders)
	}
	ann, bob := got.Lenders[0], got.Lenders[1]
	if ann.ID != lenderA.ID || ann.Name != "Ann" || ann.Stats.InvestmentCount != 2 {
		t.Fatalf("first lender %+v", ann)
	}
	if !ann.Stats.TotalInvested.Equal(amt(6000)) || !ann.Stats.AverageInvestment.Equal(amt(3000)) || !ann.Stats.AverageAPR.Equal(amt(10)) {
		t.Fatalf("ann stats %+v", ann.Stats)
	}
	if ann.LastInvestment.LoanID != "L2" || !ann.LastInvestment.Amount.Equal(amt(2000)) {
		t.Fatalf("ann last investment %+v", ann.LastInvestment)
	}
	// only accepted rows on the actor's own loans count
	if bob.ID != lenderB.ID || bob.Stats.InvestmentCount != 1 || !bob.Stats.TotalInvested.Equal(amt(3000)) {
		t.Fatalf("second lender %+v", bob)
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"BOB", []string{lenderB.ID}},
		{"a@x", []string{lenderA.ID}},
		{"nobody", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res, err := f.uc.SearchLenders(ctx, borrower, tt.query)
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Lenders) != len(tt.want) {
				t.Fatalf("got %+v, want %v", res.Lenders, tt.want)
			}
			for i, id := range tt.want {
				if res.Lenders[i].ID != id {
					t.Fatalf("got %s at %d, want %s", res.Lenders[i].ID, i, id)
				}
			}
		})
	}

	if _, err := f.uc.SearchLenders(ctx, lenderA, ""); !errors.Is(err, apperr.KindPermission) {
		t.Fatalf("lender searching: want permission, got %v", err)
	}
}

func TestSearchLenders_NoLoans(t *testing.T) {
	f := newFixture(t)
	got, err := f.uc.SearchLenders(context.Background(), borrower, "")
	if err != nil || got.Count != 0 || got.Lenders == nil {
		t.Fatalf("got %+v, %v", got, err)
	}
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLoan(t, "L1", borrower.ID, loan.StatusActive, t0)
	f.seedLoan(t, "L2", borrower.ID, loan.StatusPartiallyCompleted, t0.Add(time.Minute))
	f.seedLoan(t, "L3", borrower.ID, loan.StatusPending, t0.Add(2*time.Minute))
	f.seedLoan(t, "L4", borrower.ID, loan.StatusDraft, t0.Add(3*time.Minute))
	f.seedLoan(t, "L5", borrower.ID, loan.StatusCompleted, t0.Add(4*time.Minute))
	f.seedParticipation(t, "P1", "L1", resolved(lenderA), 4000, participation.StatusAccepted, t0)
	f.seedParticipation(t, "P2", "L2", resolved(lenderA), 2000, participation.StatusAccepted, t0)
	f.seedParticipation(t, "P3", "L3", resolved(lenderA), 1000, participation.StatusPending, t0)
	f.seedParticipation(t, "P4", "L4", resolved(lenderA), 1000, participation.StatusPending, t0)
	f.seedParticipation(t, "P5", "L5", resolved(lenderA), 1000, participation.StatusAccepted, t0)

	d, err := f.uc.Dashboard(ctx, borrower)
	if err != nil {
		t.Fatal(err)
	}
	if d.Lender != nil || d.Borrower == nil {
		t.Fatalf("sections follow roles: %+v", d)
	}
	b := d.Borrower
	if b.ActiveLoans != 2 || b.PendingRequests != 1 || !b.TotalBorrowed.Equal(amt(20_000)) || !b.AverageInterestRate.Equal(amt(10)) {
		t.Fatalf("borrower stats %+v", b)
	}

	d, err = f.uc.Dashboard(ctx, lenderA)
	if err != nil {
		t.Fatal(err)
	}
	if d.Borrower != nil || d.Lender == nil {
		t.Fatalf("sections follow roles: %+v", d)
	}
	l := d.Lender
	// the draft invitation is not visible yet; completed loans earn nothing further
	if l.PendingInvitations != 1 || l.ActiveInvestments != 3 || !l.TotalLent.Equal(amt(7000)) || !l.ExpectedReturns.Equal(amt(600)) {
		t.Fatalf("lender stats %+v", l)
	}
}

func TestDashboard_WalksEveryPage(t *testing.T) {
	f := newFixture(t)
	n := MaxLimit + 5
	for i := 0; i < n; i++ {
		f.seedLoan(t, fmt.Sprintf("L%03d", i), borrower.ID, loan.StatusPending, t0.Add(time.Duration(i)*time.Second))
	}
	d, err := f.uc.Dashboard(context.Background(), borrower)
	if err != nil {
		t.Fatal(err)
	}
	if d.Borrower.PendingRequests != n {
		t.Fatalf("pending requests = %d, want %d", d.Borrower.PendingRequests, n)
	}
}
