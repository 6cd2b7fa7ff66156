package enrichment

import (
	"context"
	"sort"
	"strings"
	"time"

	"lendledger/internal/domain/apperr"
	"lendledger/internal/domain/identity"
	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/participation"
	"lendledger/pkg/cursor"
	"lendledger/pkg/money"

	"github.com/shopspring/decimal"
)

// SearchLenders lists lenders who accepted at least one of the actor's loans,
// most frequent first. query filters by a case-insensitive substring of name
// or email. Cost: the borrower's loan pages, one participation read and one
// batched identity read.
func (u *Usecase) SearchLenders(ctx context.Context, actor identity.Identity, query string) (*LenderSearch, error) {
	if !actor.Has(identity.RoleBorrower) && !actor.IsAdmin() {
		return nil, apperr.Permission("only borrowers can search their past lenders")
	}
	query = strings.ToLower(strings.TrimSpace(query))

	loans, err := u.borrowerLoans(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	out := &LenderSearch{Lenders: []PastLender{}}
	if len(loans) == 0 {
		return out, nil
	}
	byID := make(map[string]*loan.Loan, len(loans))
	loanIDs := make([]string, 0, len(loans))
	for i := range loans {
		byID[loans[i].LoanID] = &loans[i]
		loanIDs = append(loanIDs, loans[i].LoanID)
	}
	ps, err := u.parts.ListByLoanIDs(ctx, loanIDs)
	if err != nil {
		return nil, err
	}

	type tally struct {
		count    int
		total    decimal.Decimal
		weighted decimal.Decimal
		last     *participation.Participation
	}
	tallies := map[string]*tally{}
	for i := range ps {
		p := &ps[i]
		lenderID, ok := p.Ref().LenderID()
		if !ok || p.Status != participation.StatusAccepted {
			continue
		}
		t := tallies[lenderID]
		if t == nil {
			t = &tally{total: decimal.Zero, weighted: decimal.Zero}
			tallies[lenderID] = t
		}
		t.count++
		t.total = t.total.Add(p.Allocated)
		t.weighted = t.weighted.Add(p.Allocated.Mul(byID[p.LoanID].InterestRate))
		if t.last == nil || answeredAt(p).After(answeredAt(t.last)) {
			t.last = p
		}
	}
	if len(tallies) == 0 {
		return out, nil
	}

	ids := newSet()
	for id := range tallies {
		ids.add(id)
	}
	parties, _, err := u.resolve(ctx, ids.list(), nil)
	if err != nil {
		return nil, err
	}
	for id, t := range tallies {
		who, ok := parties[id]
		if !ok {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(who.Name), query) && !strings.Contains(strings.ToLower(who.Email), query) {
			continue
		}
		l := byID[t.last.LoanID]
		out.Lenders = append(out.Lenders, PastLender{
			Party: *who,
			Stats: LenderStats{
				InvestmentCount:   t.count,
				TotalInvested:     money.Cents(t.total),
				AverageInvestment: money.Cents(t.total.Div(decimal.NewFromInt(int64(t.count)))),
				AverageAPR:        money.Cents(t.weighted.Div(t.total)),
			},
			LastInvestment: LastInvestment{
				LoanID:       l.LoanID,
				Purpose:      l.Purpose,
				Amount:       t.last.Allocated,
				InterestRate: l.InterestRate,
				Status:       l.Status,
			},
		})
	}
	sort.Slice(out.Lenders, func(i, j int) bool {
		a, b := out.Lenders[i], out.Lenders[j]
		if a.Stats.InvestmentCount != b.Stats.InvestmentCount {
			return a.Stats.InvestmentCount > b.Stats.InvestmentCount
		}
		if !a.Stats.TotalInvested.Equal(b.Stats.TotalInvested) {
			return a.Stats.TotalInvested.GreaterThan(b.Stats.TotalInvested)
		}
		return a.ID < b.ID
	})
	out.Count = len(out.Lenders)
	return out, nil
}

// Dashboard aggregates the actor's borrowing and lending per role held.
func (u *Usecase) Dashboard(ctx context.Context, actor identity.Identity) (*Dashboard, error) {
	out := &Dashboard{}
	if actor.Has(identity.RoleBorrower) {
		loans, err := u.borrowerLoans(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		out.Borrower = borrowerStats(loans)
	}
	if actor.Has(identity.RoleLender) {
		stats, err := u.lenderStats(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		out.Lender = stats
	}
	return out, nil
}

func borrowerStats(loans []loan.Loan) *BorrowerStats {
	s := &BorrowerStats{TotalBorrowed: decimal.Zero, AverageInterestRate: decimal.Zero}
	rates := decimal.Zero
	for i := range loans {
		l := &loans[i]
		switch {
		case l.Status.OpenForRepayment():
			s.ActiveLoans++
			s.TotalBorrowed = s.TotalBorrowed.Add(l.Principal)
			rates = rates.Add(l.InterestRate)
		case l.Status == loan.StatusPending:
			s.PendingRequests++
		}
	}
	if s.ActiveLoans > 0 {
		s.AverageInterestRate = money.Cents(rates.Div(decimal.NewFromInt(int64(s.ActiveLoans))))
	}
	return s
}

func (u *Usecase) lenderStats(ctx context.Context, lenderID string) (*LenderDashboard, error) {
	ps, err := u.lenderParticipations(ctx, lenderID)
	if err != nil {
		return nil, err
	}
	s := &LenderDashboard{TotalLent: decimal.Zero, ExpectedReturns: decimal.Zero}
	if len(ps) == 0 {
		return s, nil
	}
	loanIDs := newSet()
	for i := range ps {
		loanIDs.add(ps[i].LoanID)
	}
	loans, err := u.loans.BatchGet(ctx, loanIDs.list())
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*loan.Loan, len(loans))
	for i := range loans {
		byID[loans[i].LoanID] = &loans[i]
	}
	hundred := decimal.NewFromInt(100)
	for i := range ps {
		p := &ps[i]
		l, ok := byID[p.LoanID]
		if !ok || !l.Status.VisibleToLenders() {
			continue
		}
		switch p.Status {
		case participation.StatusPending:
			if l.Status == loan.StatusPending || l.Status == loan.StatusActive {
				s.PendingInvitations++
			}
		case participation.StatusAccepted:
			s.ActiveInvestments++
			s.TotalLent = s.TotalLent.Add(p.Allocated)
			if l.Status.OpenForRepayment() {
				s.ExpectedReturns = s.ExpectedReturns.Add(p.Allocated.Mul(l.InterestRate).Div(hundred))
			}
		}
	}
	s.ExpectedReturns = money.Cents(s.ExpectedReturns)
	return s, nil
}

// borrowerLoans walks every page of the borrower's loans.
func (u *Usecase) borrowerLoans(ctx context.Context, borrowerID string) ([]loan.Loan, error) {
	var out []loan.Loan
	page := cursor.Page{Limit: MaxLimit, Dir: cursor.Descending}
	for {
		rows, err := u.loans.ListByBorrower(ctx, borrowerID, page)
		if err != nil {
			return nil, err
		}
		rows, hasMore := trim(rows, page.Limit)
		out = append(out, rows...)
		if !hasMore {
			return out, nil
		}
		last := rows[len(rows)-1]
		after := cursor.After(last.CreatedAt, last.LoanID, page.Dir, "")
		page.After = &after
	}
}

// lenderParticipations walks every page of the lender's participations.
func (u *Usecase) lenderParticipations(ctx context.Context, lenderID string) ([]participation.Participation, error) {
	var out []participation.Participation
	page := cursor.Page{Limit: MaxLimit, Dir: cursor.Descending}
	for {
		rows, err := u.parts.ListByLender(ctx, lenderID, nil, page)
		if err != nil {
			return nil, err
		}
		rows, hasMore := trim(rows, page.Limit)
		out = append(out, rows...)
		if !hasMore {
			return out, nil
		}
		last := rows[len(rows)-1]
		after := cursor.After(last.InvitedAt, last.ParticipationID, page.Dir, "")
		page.After = &after
	}
}

func answeredAt(p *participation.Participation) time.Time {
	if p.RespondedAt != nil {
		return *p.RespondedAt
	}
	return p.InvitedAt
}
