// Package enrichment assembles paged, role-filtered loan views. Every page
// costs one loan read, one participation read, and at most one batched
// identity read and one batched bank-detail read, whatever the page size.
package enrichment

import (
	"context"
	"fmt"
	"time"

	"lendledger/internal/domain/apperr"
	"lendledger/internal/domain/identity"
	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/participation"
	"lendledger/pkg/cursor"

	"golang.org/x/sync/errgroup"
)

// Claimer promotes placeholder invitations addressed to the actor's email.
type Claimer interface {
	ClaimPlaceholders(ctx context.Context, actor identity.Identity) (int, error)
}

type Usecase struct {
	loans   loan.Repository
	parts   participation.Repository
	banks   participation.BankRepository
	users   identity.Directory
	claimer Claimer
}

func NewUsecase(loans loan.Repository, parts participation.Repository, banks participation.BankRepository, users identity.Directory, claimer Claimer) *Usecase {
	return &Usecase{loans: loans, parts: parts, banks: banks, users: users, claimer: claimer}
}

// BorrowerLoans pages over the actor's own loans, newest first by default.
func (u *Usecase) BorrowerLoans(ctx context.Context, actor identity.Identity, req PageRequest) (*Page[LoanView], error) {
	page, scope, err := parsePage(req, cursor.Descending, "loans:"+actor.ID)
	if err != nil {
		return nil, err
	}
	rows, err := u.loans.ListByBorrower(ctx, actor.ID, page)
	if err != nil {
		return nil, err
	}
	rows, hasMore := trim(rows, page.Limit)
	views, err := u.enrich(ctx, actor, rows)
	if err != nil {
		return nil, err
	}
	out := &Page[LoanView]{Items: views, Count: len(views), HasMore: hasMore}
	if hasMore {
		last := rows[len(rows)-1]
		if out.NextToken, err = nextToken(last.CreatedAt, last.LoanID, page.Dir, scope); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// LoanDetail is the single-loan view. Loans the actor may not see are
// reported as not found.
func (u *Usecase) LoanDetail(ctx context.Context, actor identity.Identity, loanID string) (*LoanView, error) {
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	views, err := u.enrich(ctx, actor, []loan.Loan{*l})
	if err != nil {
		return nil, err
	}
	v := views[0]
	if !owns(actor, l) && (!l.Status.VisibleToLenders() || len(v.Participants) == 0) {
		return nil, apperr.NotFound("loan %s not found", loanID)
	}
	return &v, nil
}

func (u *Usecase) enrich(ctx context.Context, actor identity.Identity, loans []loan.Loan) ([]LoanView, error) {
	if len(loans) == 0 {
		return []LoanView{}, nil
	}
	loanIDs := make([]string, 0, len(loans))
	for i := range loans {
		loanIDs = append(loanIDs, loans[i].LoanID)
	}
	all, err := u.parts.ListByLoanIDs(ctx, loanIDs)
	if err != nil {
		return nil, err
	}
	byLoan := make(map[string][]participation.Participation, len(loans))
	for _, p := range all {
		byLoan[p.LoanID] = append(byLoan[p.LoanID], p)
	}

	ids := newSet()
	var bankKeys []participation.BankKey
	for i := range loans {
		l := &loans[i]
		ids.add(l.BorrowerID)
		for _, p := range visible(actor, l, byLoan[l.LoanID]) {
			lenderID, ok := p.Ref().LenderID()
			if !ok {
				continue
			}
			ids.add(lenderID)
			if l.BorrowerID == actor.ID && p.Status == participation.StatusAccepted {
				bankKeys = append(bankKeys, participation.BankKey{LenderID: lenderID, LoanID: l.LoanID})
			}
		}
	}

	parties, banks, err := u.resolve(ctx, ids.list(), bankKeys)
	if err != nil {
		return nil, err
	}

	out := make([]LoanView, 0, len(loans))
	for i := range loans {
		l := &loans[i]
		ps := byLoan[l.LoanID]
		v := LoanView{
			Loan:         l,
			Borrower:     parties[l.BorrowerID],
			Progress:     progressOf(participation.Summarize(l.Principal, ps)),
			Participants: []Participant{},
		}
		for _, p := range visible(actor, l, ps) {
			row := Participant{Participation: p}
			if lenderID, ok := p.Ref().LenderID(); ok {
				row.Lender = parties[lenderID]
				row.Bank = banks[participation.BankKey{LenderID: lenderID, LoanID: l.LoanID}]
			}
			v.Participants = append(v.Participants, row)
		}
		out = append(out, v)
	}
	return out, nil
}

// resolve issues the identity and bank-detail batch reads concurrently.
func (u *Usecase) resolve(ctx context.Context, userIDs []string, bankKeys []participation.BankKey) (map[string]*Party, map[participation.BankKey]*participation.BankDetail, error) {
	parties := make(map[string]*Party, len(userIDs))
	banks := make(map[participation.BankKey]*participation.BankDetail, len(bankKeys))

	g, gctx := errgroup.WithContext(ctx)
	if len(userIDs) > 0 {
		g.Go(func() error {
			users, err := u.users.BatchGet(gctx, userIDs)
			if err != nil {
				return err
			}
			for _, usr := range users {
				parties[usr.UserID] = &Party{ID: usr.UserID, Email: usr.Email, Name: usr.Name}
			}
			return nil
		})
	}
	if len(bankKeys) > 0 && u.banks != nil {
		g.Go(func() error {
			rows, err := u.banks.BatchGet(gctx, bankKeys)
			if err != nil {
				return err
			}
			for i := range rows {
				banks[rows[i].Key()] = &rows[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return parties, banks, nil
}

// Invitations lists the actor's pending invitations on loans that are open
// to lenders, after binding any placeholders addressed to their email.
func (u *Usecase) Invitations(ctx context.Context, actor identity.Identity, req PageRequest) (*Page[Invitation], error) {
	if u.claimer != nil {
		if _, err := u.claimer.ClaimPlaceholders(ctx, actor); err != nil {
			return nil, err
		}
	}
	return u.lenderPage(ctx, actor, req, "invitations:", participation.StatusPending, func(l *loan.Loan) bool {
		return l.Status == loan.StatusPending || l.Status == loan.StatusActive
	})
}

// Portfolio lists the loans the actor has accepted, with balances.
func (u *Usecase) Portfolio(ctx context.Context, actor identity.Identity, req PageRequest) (*Page[Invitation], error) {
	return u.lenderPage(ctx, actor, req, "portfolio:", participation.StatusAccepted, func(l *loan.Loan) bool {
		return l.Status.VisibleToLenders()
	})
}

func (u *Usecase) lenderPage(ctx context.Context, actor identity.Identity, req PageRequest, prefix string,
	status participation.Status, keep func(*loan.Loan) bool) (*Page[Invitation], error) {
	page, scope, err := parsePage(req, cursor.Descending, prefix+actor.ID)
	if err != nil {
		return nil, err
	}
	rows, err := u.parts.ListByLender(ctx, actor.ID, []participation.Status{status}, page)
	if err != nil {
		return nil, err
	}
	rows, hasMore := trim(rows, page.Limit)
	out := &Page[Invitation]{Items: []Invitation{}, HasMore: hasMore}
	if hasMore {
		// the token follows the raw row so filtered rows are never revisited
		last := rows[len(rows)-1]
		if out.NextToken, err = nextToken(last.InvitedAt, last.ParticipationID, page.Dir, scope); err != nil {
			return nil, err
		}
	}
	if len(rows) == 0 {
		return out, nil
	}

	loanIDs := newSet()
	for i := range rows {
		loanIDs.add(rows[i].LoanID)
	}
	loans, err := u.loans.BatchGet(ctx, loanIDs.list())
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*loan.Loan, len(loans))
	borrowers := newSet()
	for i := range loans {
		byID[loans[i].LoanID] = &loans[i]
		borrowers.add(loans[i].BorrowerID)
	}
	siblings, err := u.parts.ListByLoanIDs(ctx, loanIDs.list())
	if err != nil {
		return nil, err
	}
	byLoan := make(map[string][]participation.Participation, len(loans))
	for _, p := range siblings {
		byLoan[p.LoanID] = append(byLoan[p.LoanID], p)
	}
	parties, _, err := u.resolve(ctx, borrowers.list(), nil)
	if err != nil {
		return nil, err
	}

	for i := range rows {
		p := &rows[i]
		l, ok := byID[p.LoanID]
		if !ok || !keep(l) {
			continue
		}
		out.Items = append(out.Items, Invitation{
			ParticipationID: p.ParticipationID,
			Status:          p.Status,
			Allocated:       p.Allocated,
			Remaining:       p.Remaining,
			InvitedAt:       p.InvitedAt,
			RespondedAt:     p.RespondedAt,
			Loan: LoanSummary{
				LoanID:       l.LoanID,
				Status:       l.Status,
				Principal:    l.Principal,
				InterestRate: l.InterestRate,
				Purpose:      l.Purpose,
				Maturity:     l.Maturity,
			},
			Borrower: parties[l.BorrowerID],
			Progress: progressOf(participation.Summarize(l.Principal, byLoan[l.LoanID])),
		})
	}
	out.Count = len(out.Items)
	return out, nil
}

// visible filters a loan's participants down to what actor may see: owners
// see everyone, lenders only themselves and only once the loan is published.
func visible(actor identity.Identity, l *loan.Loan, ps []participation.Participation) []participation.Participation {
	if owns(actor, l) {
		return ps
	}
	if !l.Status.VisibleToLenders() {
		return nil
	}
	var out []participation.Participation
	for _, p := range ps {
		if p.HeldBy(actor.ID) {
			out = append(out, p)
		}
	}
	return out
}

func owns(actor identity.Identity, l *loan.Loan) bool {
	return actor.IsAdmin() || l.BorrowerID == actor.ID
}

func parsePage(req PageRequest, def cursor.Direction, owner string) (cursor.Page, string, error) {
	limit := req.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return cursor.Page{}, "", apperr.Validation("limit must be between 1 and %d", MaxLimit)
	}
	dir := req.Order
	if dir == "" {
		dir = def
	}
	if dir != cursor.Ascending && dir != cursor.Descending {
		return cursor.Page{}, "", apperr.Validation("order must be asc or desc")
	}
	scope := fmt.Sprintf("%s:%s", owner, dir)
	page := cursor.Page{Limit: limit, Dir: dir}
	if req.NextToken != "" {
		c, err := cursor.Decode(req.NextToken, scope)
		if err != nil {
			return cursor.Page{}, "", apperr.InvalidToken(err)
		}
		page.After = &c
	}
	return page, scope, nil
}

func trim[T any](rows []T, limit int) ([]T, bool) {
	if len(rows) > limit {
		return rows[:limit], true
	}
	return rows, false
}

func nextToken(at time.Time, id string, dir cursor.Direction, scope string) (string, error) {
	tok, err := cursor.Encode(cursor.After(at, id, dir, scope))
	if err != nil {
		return "", apperr.Internal(err)
	}
	return tok, nil
}

type set struct {
	seen  map[string]struct{}
	order []string
}

func newSet() *set { return &set{seen: map[string]struct{}{}} }

func (s *set) add(v string) {
	if _, ok := s.seen[v]; ok || v == "" {
		return
	}
	s.seen[v] = struct{}{}
	s.order = append(s.order, v)
}

func (s *set) list() []string { return s.order }
