package repayment

import (
	"context"
	"errors"
	"strings"
	"time"

	"lendledger/internal/domain/apperr"
	"lendledger/internal/domain/identity"
	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/notification"
	"lendledger/internal/domain/participation"
	"lendledger/internal/domain/payment"
	"lendledger/internal/domain/receipt"
	"lendledger/internal/domain/uow"
	"lendledger/pkg/id"

	"github.com/sirupsen/logrus"
)

const maxAttempts = 3

type Usecase struct {
	loans    loan.Repository
	parts    participation.Repository
	payments payment.Repository
	uow      uow.UnitOfWork
	receipts receipt.Store
	sink     notification.Sink
	now      func() time.Time
	newID    func() string
}

func NewUsecase(loans loan.Repository, parts participation.Repository, payments payment.Repository,
	tx uow.UnitOfWork, receipts receipt.Store, sink notification.Sink) *Usecase {
	return &Usecase{
		loans:    loans,
		parts:    parts,
		payments: payments,
		uow:      tx,
		receipts: receipts,
		sink:     sink,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID:    id.NewID32,
	}
}

// Submit records a borrower payment against one accepted participation.
func (u *Usecase) Submit(ctx context.Context, actor identity.Identity, in SubmitInput) (*payment.Payment, error) {
	if err := payment.ValidateSplit(in.Amount, in.Principal, in.Interest); err != nil {
		return nil, err
	}
	now := u.now()
	if in.PaymentDate.IsZero() {
		return nil, apperr.Validation("payment date is required")
	}
	if dateOnly(in.PaymentDate).After(dateOnly(now)) {
		return nil, apperr.Validation("payment date cannot be in the future")
	}
	method := strings.ToLower(strings.TrimSpace(in.Method))
	if method != "" && !Methods[method] {
		return nil, apperr.Validation("unknown payment method %q", in.Method)
	}

	l, err := u.loans.GetByLoanID(ctx, in.LoanID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && l.BorrowerID != actor.ID {
		return nil, apperr.Permission("only the borrower can record payments on loan %s", l.LoanID)
	}
	if !l.Status.OpenForRepayment() {
		return nil, apperr.Conflict("loan %s is %s; payments are recorded only on active loans", l.LoanID, l.Status)
	}
	p, err := u.parts.GetByParticipationID(ctx, in.ParticipationID)
	if err != nil {
		return nil, err
	}
	if p.LoanID != l.LoanID {
		return nil, apperr.Validation("participation %s does not belong to loan %s", p.ParticipationID, l.LoanID)
	}
	lenderID, resolved := p.Ref().LenderID()
	if p.Status != participation.StatusAccepted || !resolved {
		return nil, apperr.Conflict("participation %s is %s; payments need an accepted participation", p.ParticipationID, p.Status)
	}
	if in.Principal.GreaterThan(p.Remaining) {
		return nil, apperr.Validation("principal portion %s exceeds the remaining balance %s",
			in.Principal.StringFixed(2), p.Remaining.StringFixed(2))
	}
	if in.ReceiptLocator != "" {
		if err := receipt.ValidateLocator(in.ReceiptLocator, l.LoanID, lenderID); err != nil {
			return nil, err
		}
	}
	ref := payment.NormalizeReference(in.Reference)
	if ref != nil {
		taken, err := u.payments.ReferenceExists(ctx, l.LoanID, *ref)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("payment reference %q is already recorded on loan %s", *ref, l.LoanID)
		}
	}

	pay := &payment.Payment{
		PaymentID:       u.newID(),
		LoanID:          l.LoanID,
		ParticipationID: p.ParticipationID,
		LenderID:        lenderID,
		BorrowerID:      l.BorrowerID,
		Amount:          in.Amount,
		Principal:       in.Principal,
		Interest:        in.Interest,
		PaymentDate:     dateOnly(in.PaymentDate),
		Status:          payment.StatusPending,
		Method:          method,
		Reference:       ref,
		ReceiptLocator:  in.ReceiptLocator,
		Notes:           strings.TrimSpace(in.Notes),
		SubmittedBy:     actor.ID,
		CreatedAt:       now,
	}
	if err := u.payments.Create(ctx, pay); err != nil {
		return nil, err
	}
	notification.Send(ctx, u.sink, notification.Recipient{ID: lenderID, Email: p.LenderEmail}, notification.EventPaymentSubmitted, map[string]any{
		"loan_id":    l.LoanID,
		"payment_id": pay.PaymentID,
		"amount":     pay.Amount.StringFixed(2),
	})
	return pay, nil
}

// Approve flips the payment and decrements the lender's balance in one
// transaction, then settles the loan once every accepted balance is zero.
func (u *Usecase) Approve(ctx context.Context, actor identity.Identity, paymentID, notes string) (*payment.Payment, error) {
	var (
		pay       *payment.Payment
		completed *loan.Loan
		err       error
	)
	for attempt := 1; ; attempt++ {
		pay, completed, err = u.approveOnce(ctx, actor, paymentID, notes)
		if errors.Is(err, apperr.ErrStale) && attempt < maxAttempts {
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	to := notification.Recipient{ID: pay.BorrowerID}
	notification.Send(ctx, u.sink, to, notification.EventPaymentApproved, map[string]any{
		"loan_id":    pay.LoanID,
		"payment_id": pay.PaymentID,
		"principal":  pay.Principal.StringFixed(2),
	})
	if completed != nil {
		logrus.WithFields(logrus.Fields{"loan_id": completed.LoanID, "status": completed.Status}).Info("repayment: loan settled")
		notification.Send(ctx, u.sink, to, notification.EventLoanCompleted, map[string]any{
			"loan_id": completed.LoanID,
			"status":  string(completed.Status),
		})
	}
	return pay, nil
}

func (u *Usecase) approveOnce(ctx context.Context, actor identity.Identity, paymentID, notes string) (*payment.Payment, *loan.Loan, error) {
	pay, err := u.reviewable(ctx, actor, paymentID)
	if err != nil {
		return nil, nil, err
	}
	now := u.now()
	if err := pay.Approve(actor.ID, notes, now); err != nil {
		return nil, nil, err
	}

	var completed *loan.Loan
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Payments.Transition(ctx, pay, payment.StatusPending); err != nil {
			return err
		}
		p, err := r.Participations.GetByParticipationID(ctx, pay.ParticipationID)
		if err != nil {
			return err
		}
		if err := p.ApplyRepayment(pay.Principal); err != nil {
			return err
		}
		if err := r.Participations.UpdateVersioned(ctx, p); err != nil {
			return err
		}

		l, err := r.Loans.GetByLoanID(ctx, pay.LoanID)
		if err != nil {
			return err
		}
		ps, err := r.Participations.ListByLoan(ctx, pay.LoanID)
		if err != nil {
			return err
		}
		totals := participation.Summarize(l.Principal, ps)
		if l.Status != loan.StatusActive || !totals.Settled() {
			return nil
		}
		to := loan.StatusPartiallyCompleted
		if totals.FullyFunded() {
			to = loan.StatusCompleted
		}
		if err := l.Transition(to, now); err != nil {
			return err
		}
		// a settled loan takes no further answers; close what is still open
		for i := range ps {
			if ps[i].Status != participation.StatusPending {
				continue
			}
			if err := ps[i].Revoke(now); err != nil {
				return err
			}
			if err := r.Participations.UpdateVersioned(ctx, &ps[i]); err != nil {
				return err
			}
		}
		if err := r.Loans.SaveVersioned(ctx, l); err != nil {
			return err
		}
		completed = l
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return pay, completed, nil
}

// Reject closes a pending payment without touching any balance.
func (u *Usecase) Reject(ctx context.Context, actor identity.Identity, paymentID, reason string) (*payment.Payment, error) {
	pay, err := u.reviewable(ctx, actor, paymentID)
	if err != nil {
		return nil, err
	}
	if err := pay.Reject(actor.ID, reason, u.now()); err != nil {
		return nil, err
	}
	if err := u.payments.Transition(ctx, pay, payment.StatusPending); err != nil {
		return nil, err
	}
	notification.Send(ctx, u.sink, notification.Recipient{ID: pay.BorrowerID}, notification.EventPaymentRejected, map[string]any{
		"loan_id":    pay.LoanID,
		"payment_id": pay.PaymentID,
		"reason":     pay.ReviewNotes,
	})
	return pay, nil
}

func (u *Usecase) reviewable(ctx context.Context, actor identity.Identity, paymentID string) (*payment.Payment, error) {
	pay, err := u.payments.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if pay.LenderID != actor.ID {
		return nil, apperr.Permission("only the receiving lender can review payment %s", paymentID)
	}
	return pay, nil
}

// List returns the loan's payments; lenders only see their own.
func (u *Usecase) List(ctx context.Context, actor identity.Identity, loanID string) ([]payment.Payment, error) {
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	all, err := u.payments.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || l.BorrowerID == actor.ID {
		return all, nil
	}
	if _, err := u.ownParticipation(ctx, actor, l); err != nil {
		return nil, err
	}
	out := make([]payment.Payment, 0, len(all))
	for _, p := range all {
		if p.LenderID == actor.ID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (u *Usecase) Get(ctx context.Context, actor identity.Identity, paymentID string) (*payment.Payment, error) {
	pay, err := u.payments.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && pay.BorrowerID != actor.ID && pay.LenderID != actor.ID {
		return nil, apperr.NotFound("payment %s not found", paymentID)
	}
	return pay, nil
}

// ReceiptURL resolves the payment's proof locator into a short-lived view URL.
func (u *Usecase) ReceiptURL(ctx context.Context, actor identity.Identity, paymentID string) (string, error) {
	pay, err := u.Get(ctx, actor, paymentID)
	if err != nil {
		return "", err
	}
	if pay.ReceiptLocator == "" {
		return "", apperr.NotFound("payment %s has no receipt", paymentID)
	}
	if u.receipts == nil {
		return "", apperr.Unavailable(0, errors.New("receipt store is not configured"))
	}
	return u.receipts.Resolve(ctx, pay.ReceiptLocator)
}

// Summary aggregates payments and per-lender balances, with an advisory
// amortization schedule when the loan has maturity terms.
func (u *Usecase) Summary(ctx context.Context, actor identity.Identity, loanID string) (*Summary, error) {
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	pays, err := u.List(ctx, actor, loanID)
	if err != nil {
		return nil, err
	}
	ps, err := u.parts.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	owner := actor.IsAdmin() || l.BorrowerID == actor.ID

	out := &Summary{LoanID: l.LoanID, Status: l.Status, Summary: payment.Summarize(pays)}
	for i := range ps {
		p := &ps[i]
		if p.Status != participation.StatusAccepted || (!owner && !p.HeldBy(actor.ID)) {
			continue
		}
		lenderID, _ := p.Ref().LenderID()
		out.Lenders = append(out.Lenders, LenderBalance{
			ParticipationID: p.ParticipationID,
			LenderID:        lenderID,
			LenderEmail:     p.LenderEmail,
			Allocated:       p.Allocated,
			Remaining:       p.Remaining,
			Repaid:          p.Allocated.Sub(p.Remaining),
			Schedule:        l.Maturity.Amortize(p.Allocated, l.InterestRate),
		})
	}
	return out, nil
}

func (u *Usecase) ownParticipation(ctx context.Context, actor identity.Identity, l *loan.Loan) (*participation.Participation, error) {
	ps, err := u.parts.ListByLoan(ctx, l.LoanID)
	if err != nil {
		return nil, err
	}
	for i := range ps {
		if ps[i].HeldBy(actor.ID) && l.Status.VisibleToLenders() {
			return &ps[i], nil
		}
	}
	return nil, apperr.Permission("you do not participate in loan %s", l.LoanID)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
