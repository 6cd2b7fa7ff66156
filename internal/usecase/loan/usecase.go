package loan

import (
	"context"
	"strings"
	"time"

	"lendledger/internal/domain/apperr"
	"lendledger/internal/domain/identity"
	domain "lendledger/internal/domain/loan"
	"lendledger/internal/domain/notification"
	"lendledger/internal/domain/participation"
	"lendledger/internal/usecase/allocation"
	"lendledger/pkg/id"
	"lendledger/pkg/money"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Usecase struct {
	repo  domain.Repository
	parts participation.Repository
	alloc *allocation.Usecase
	sink  notification.Sink
	now   func() time.Time
	newID func() string
}

func NewUsecase(r domain.Repository, parts participation.Repository, alloc *allocation.Usecase, sink notification.Sink) *Usecase {
	return &Usecase{
		repo:  r,
		parts: parts,
		alloc: alloc,
		sink:  sink,
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID: id.NewID32,
	}
}

// Create opens a draft loan and invites its initial lenders, if any.
func (u *Usecase) Create(ctx context.Context, actor identity.Identity, in CreateInput) (*LoanDTO, error) {
	if !actor.Has(identity.RoleBorrower) && !actor.IsAdmin() {
		return nil, apperr.Permission("only borrowers can create loans")
	}
	if err := validatePrincipal(in.Principal); err != nil {
		return nil, err
	}
	if in.InterestRate.IsNegative() || in.InterestRate.GreaterThan(MaxRate) {
		return nil, apperr.Validation("interest rate must be between 0 and 100")
	}
	if !money.MaxPlaces(in.InterestRate, 4) {
		return nil, apperr.Validation("interest rate must have at most 4 decimal places")
	}
	purpose, err := validatePurpose(in.Purpose)
	if err != nil {
		return nil, err
	}
	desc, err := validateDescription(in.Description)
	if err != nil {
		return nil, err
	}
	now := u.now()
	var terms domain.MaturityTerms
	if in.Maturity != nil {
		terms, err = domain.NewMaturityTerms(in.Maturity.StartDate, in.Maturity.Frequency, in.Maturity.TermMonths, now)
		if err != nil {
			return nil, err
		}
	}
	if len(in.Lenders) > 0 {
		if err := allocation.PrecheckBatch(actor, in.Principal, in.Lenders); err != nil {
			return nil, err
		}
	}

	l := &domain.Loan{
		LoanID:          u.newID(),
		BorrowerID:      actor.ID,
		Principal:       in.Principal,
		InterestRate:    in.InterestRate,
		Purpose:         purpose,
		Description:     desc,
		Status:          domain.StatusDraft,
		Maturity:        terms,
		Version:         1,
		StatusUpdatedAt: now,
		CreatedAt:       now,
	}
	if err := u.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"loan_id": l.LoanID, "borrower_id": l.BorrowerID}).Info("loan: draft created")

	out := &LoanDTO{Loan: l, Totals: participation.Summarize(l.Principal, nil)}
	if len(in.Lenders) == 0 {
		return out, nil
	}
	res, err := u.alloc.InviteMany(ctx, actor, l.LoanID, in.Lenders)
	if err != nil {
		u.abandon(ctx, l, err)
		return nil, err
	}
	out.Loan, err = u.repo.GetByLoanID(ctx, l.LoanID)
	if err != nil {
		return nil, err
	}
	out.Totals = res.Totals
	out.Participations = res.Participations
	return out, nil
}

// abandon cancels a draft whose initial invitations failed so a retry does
// not leave an orphaned loan behind.
func (u *Usecase) abandon(ctx context.Context, l *domain.Loan, cause error) {
	log := logrus.WithFields(logrus.Fields{"loan_id": l.LoanID, "cause": cause})
	fresh, err := u.repo.GetByLoanID(ctx, l.LoanID)
	if err == nil {
		if err = fresh.Transition(domain.StatusCancelled, u.now()); err == nil {
			err = u.repo.SaveVersioned(ctx, fresh)
		}
	}
	if err != nil {
		log.WithError(err).Error("loan: cancelling draft after failed initial invitations")
		return
	}
	log.Warn("loan: draft cancelled after failed initial invitations")
}

// Get returns the loan with its funding totals. Lenders must hold a
// participation on a loan that is no longer a draft.
func (u *Usecase) Get(ctx context.Context, actor identity.Identity, loanID string) (*LoanDTO, error) {
	l, err := u.repo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	ps, err := u.parts.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, l, ps) {
		return nil, apperr.NotFound("loan %s not found", loanID)
	}
	return &LoanDTO{Loan: l, Totals: participation.Summarize(l.Principal, ps)}, nil
}

func (u *Usecase) Edit(ctx context.Context, actor identity.Identity, loanID string, in EditInput) (*domain.Loan, error) {
	l, err := u.owned(ctx, actor, loanID)
	if err != nil {
		return nil, err
	}
	if !l.Status.Editable() {
		return nil, apperr.Conflict("loan %s is %s; only draft or pending loans can be edited", l.LoanID, l.Status)
	}
	if in.Purpose != nil {
		if l.Purpose, err = validatePurpose(*in.Purpose); err != nil {
			return nil, err
		}
	}
	if in.Description != nil {
		if l.Description, err = validateDescription(*in.Description); err != nil {
			return nil, err
		}
	}
	if in.Principal != nil && !in.Principal.Equal(l.Principal) {
		if err := validatePrincipal(*in.Principal); err != nil {
			return nil, err
		}
		ps, err := u.parts.ListByLoan(ctx, loanID)
		if err != nil {
			return nil, err
		}
		for i := range ps {
			if ps[i].Status != participation.StatusPending {
				return nil, apperr.Conflict("principal of loan %s is frozen: participation %s is %s", l.LoanID, ps[i].ParticipationID, ps[i].Status)
			}
		}
		invited := participation.Summarize(l.Principal, ps).Invited
		if in.Principal.LessThan(invited) {
			return nil, apperr.Conflict("principal %s is below the %s already invited", in.Principal.String(), invited.String())
		}
		l.Principal = *in.Principal
	}
	// the version check rejects an invite that raced this edit
	if err := u.repo.SaveVersioned(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Publish makes a draft visible to its invited lenders.
func (u *Usecase) Publish(ctx context.Context, actor identity.Identity, loanID string) (*domain.Loan, error) {
	l, _, err := u.transition(ctx, actor, loanID, domain.StatusPending, nil)
	return l, err
}

// Activate requires at least one live participation.
func (u *Usecase) Activate(ctx context.Context, actor identity.Identity, loanID string) (*domain.Loan, error) {
	l, ps, err := u.transition(ctx, actor, loanID, domain.StatusActive, func(l *domain.Loan, ps []participation.Participation) error {
		t := participation.Summarize(l.Principal, ps)
		if t.Pending+t.Accepted == 0 {
			return apperr.Conflict("loan %s has no pending or accepted participations and cannot be activated", l.LoanID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.notifyLenders(ctx, l, ps, notification.EventLoanActivated)
	return l, nil
}

func (u *Usecase) Cancel(ctx context.Context, actor identity.Identity, loanID string) (*domain.Loan, error) {
	l, ps, err := u.transition(ctx, actor, loanID, domain.StatusCancelled, nil)
	if err != nil {
		return nil, err
	}
	u.notifyLenders(ctx, l, ps, notification.EventLoanCancelled)
	return l, nil
}

// Close settles a partially completed loan.
func (u *Usecase) Close(ctx context.Context, actor identity.Identity, loanID string) (*domain.Loan, error) {
	l, ps, err := u.transition(ctx, actor, loanID, domain.StatusCompleted, func(l *domain.Loan, _ []participation.Participation) error {
		if l.Status != domain.StatusPartiallyCompleted {
			return apperr.Conflict("loan %s is %s; only partially completed loans can be closed", l.LoanID, l.Status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.notifyLenders(ctx, l, ps, notification.EventLoanCompleted)
	return l, nil
}

func (u *Usecase) transition(ctx context.Context, actor identity.Identity, loanID string, to domain.Status,
	check func(*domain.Loan, []participation.Participation) error) (*domain.Loan, []participation.Participation, error) {
	l, err := u.owned(ctx, actor, loanID)
	if err != nil {
		return nil, nil, err
	}
	ps, err := u.parts.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, nil, err
	}
	if check != nil {
		if err := check(l, ps); err != nil {
			return nil, nil, err
		}
	}
	from := l.Status
	if err := l.Transition(to, u.now()); err != nil {
		return nil, nil, err
	}
	if err := u.repo.SaveVersioned(ctx, l); err != nil {
		return nil, nil, err
	}
	logrus.WithFields(logrus.Fields{"loan_id": l.LoanID, "from": from, "to": to, "actor": actor.ID}).Info("loan: status changed")
	return l, ps, nil
}

func (u *Usecase) owned(ctx context.Context, actor identity.Identity, loanID string) (*domain.Loan, error) {
	l, err := u.repo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && l.BorrowerID != actor.ID {
		return nil, apperr.Permission("only the borrower can manage loan %s", loanID)
	}
	return l, nil
}

func (u *Usecase) notifyLenders(ctx context.Context, l *domain.Loan, ps []participation.Participation, event notification.EventType) {
	for i := range ps {
		p := &ps[i]
		if !p.Status.Live() {
			continue
		}
		lenderID, _ := p.Ref().LenderID()
		notification.Send(ctx, u.sink, notification.Recipient{ID: lenderID, Email: p.LenderEmail}, event, map[string]any{
			"loan_id": l.LoanID,
			"status":  string(l.Status),
		})
	}
}

func canView(actor identity.Identity, l *domain.Loan, ps []participation.Participation) bool {
	if actor.IsAdmin() || l.BorrowerID == actor.ID {
		return true
	}
	if !l.Status.VisibleToLenders() {
		return false
	}
	for i := range ps {
		if ps[i].HeldBy(actor.ID) {
			return true
		}
	}
	return false
}

func validatePrincipal(p decimal.Decimal) error {
	if p.LessThan(MinPrincipal) || p.GreaterThan(MaxPrincipal) {
		return apperr.Validation("principal must be between %s and %s", MinPrincipal.String(), MaxPrincipal.String())
	}
	if !money.MaxPlaces(p, 2) {
		return apperr.Validation("principal must have at most 2 decimal places")
	}
	return nil
}

func validatePurpose(s string) (string, error) {
	s = strings.TrimSpace(s)
	if n := len([]rune(s)); n < 1 || n > 100 {
		return "", apperr.Validation("purpose must be 1 to 100 characters")
	}
	return s, nil
}

func validateDescription(s string) (string, error) {
	s = strings.TrimSpace(s)
	if n := len([]rune(s)); n < 10 || n > 1000 {
		return "", apperr.Validation("description must be 10 to 1000 characters")
	}
	return s, nil
}
