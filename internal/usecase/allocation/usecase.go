package allocation

import (
	"context"
	"errors"
	"time"

	"lendledger/internal/domain/apperr"
	"lendledger/internal/domain/identity"
	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/notification"
	"lendledger/internal/domain/participation"
	"lendledger/internal/domain/uow"
	"lendledger/pkg/id"
	"lendledger/pkg/money"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// maxAttempts bounds re-reads after losing the aggregate version race.
const maxAttempts = 3

type Usecase struct {
	loans loan.Repository
	parts participation.Repository
	users identity.Directory
	uow   uow.UnitOfWork
	sink  notification.Sink
	now   func() time.Time
	newID func() string
}

func NewUsecase(loans loan.Repository, parts participation.Repository, users identity.Directory, tx uow.UnitOfWork, sink notification.Sink) *Usecase {
	return &Usecase{
		loans: loans,
		parts: parts,
		users: users,
		uow:   tx,
		sink:  sink,
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID: id.NewID32,
	}
}

// Invite adds one lender to the loan.
func (u *Usecase) Invite(ctx context.Context, actor identity.Identity, loanID string, in InviteInput) (*participation.Participation, error) {
	res, err := u.InviteMany(ctx, actor, loanID, []InviteInput{in})
	if err != nil {
		return nil, err
	}
	return &res.Participations[0], nil
}

// InviteMany validates the whole batch against one snapshot of the loan's
// participations and writes it together with a bump of the loan version.
func (u *Usecase) InviteMany(ctx context.Context, actor identity.Identity, loanID string, in []InviteInput) (*InviteResult, error) {
	batch, err := normalizeBatch(actor, in)
	if err != nil {
		return nil, err
	}

	emails := make([]string, 0, len(batch))
	for _, inv := range batch {
		emails = append(emails, inv.Email)
	}
	known, err := u.users.FindByEmails(ctx, emails)
	if err != nil {
		return nil, err
	}
	byEmail := make(map[string]identity.User, len(known))
	for _, usr := range known {
		byEmail[identity.NormalizeEmail(usr.Email)] = usr
	}
	for _, inv := range batch {
		if usr, ok := byEmail[inv.Email]; ok && usr.UserID == actor.ID {
			return nil, apperr.Validation("you cannot invite yourself as a lender")
		}
	}

	for attempt := 1; ; attempt++ {
		res, l, err := u.inviteOnce(ctx, actor, loanID, batch, byEmail)
		if errors.Is(err, apperr.ErrStale) && attempt < maxAttempts {
			continue
		}
		if err != nil {
			return nil, err
		}
		for i := range res.Participations {
			p := &res.Participations[i]
			lenderID, _ := p.Ref().LenderID()
			notification.Send(ctx, u.sink, notification.Recipient{ID: lenderID, Email: p.LenderEmail}, notification.EventLenderInvited, map[string]any{
				"loan_id":          l.LoanID,
				"participation_id": p.ParticipationID,
				"amount":           p.Allocated.StringFixed(2),
				"purpose":          l.Purpose,
			})
		}
		return res, nil
	}
}

func (u *Usecase) inviteOnce(ctx context.Context, actor identity.Identity, loanID string, batch []InviteInput, byEmail map[string]identity.User) (*InviteResult, *loan.Loan, error) {
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, nil, err
	}
	if err := authorizeOwner(actor, l); err != nil {
		return nil, nil, err
	}
	if !l.Status.OpenForInvites() {
		return nil, nil, apperr.Conflict("loan %s is %s; lenders can only be added while draft or pending", l.LoanID, l.Status)
	}

	existing, err := u.parts.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, nil, err
	}
	takenEmails, takenIDs, err := u.liveLenders(ctx, existing)
	if err != nil {
		return nil, nil, err
	}
	for _, inv := range batch {
		usr, known := byEmail[inv.Email]
		if takenEmails[inv.Email] || (known && takenIDs[usr.UserID]) {
			return nil, nil, apperr.Conflict("%s already has an active invitation on this loan", inv.Email)
		}
	}

	running := participation.Summarize(l.Principal, existing).Invited
	now := u.now()
	created := make([]*participation.Participation, 0, len(batch))
	for _, inv := range batch {
		remaining := l.Principal.Sub(running)
		if inv.Amount.GreaterThan(remaining) {
			return nil, nil, apperr.Conflict("cannot allocate %s to %s: insufficient headroom, remaining %s of principal %s",
				inv.Amount.String(), inv.Email, remaining.String(), l.Principal.String())
		}
		running = running.Add(inv.Amount)

		ref := participation.Placeholder(inv.Email)
		if usr, ok := byEmail[inv.Email]; ok {
			ref = participation.Resolved(usr.UserID, inv.Email)
		}
		created = append(created, participation.New(u.newID(), loanID, ref, actor.ID, inv.Amount, now))
	}

	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Participations.CreateMany(ctx, created); err != nil {
			return err
		}
		// the version bump rejects a concurrent invite that read the same snapshot
		return r.Loans.SaveVersioned(ctx, l)
	})
	if err != nil {
		return nil, nil, err
	}

	res := &InviteResult{LoanID: loanID, Participations: make([]participation.Participation, 0, len(created))}
	all := existing
	for _, p := range created {
		res.Participations = append(res.Participations, *p)
		all = append(all, *p)
	}
	res.Totals = participation.Summarize(l.Principal, all)
	return res, l, nil
}

// liveLenders collects who already holds a live participation. Resolved
// lenders are looked up in one batched read so a changed account email still
// counts as a duplicate.
func (u *Usecase) liveLenders(ctx context.Context, existing []participation.Participation) (map[string]bool, map[string]bool, error) {
	emails := map[string]bool{}
	ids := map[string]bool{}
	var lookup []string
	for i := range existing {
		p := &existing[i]
		if !p.Status.Live() {
			continue
		}
		emails[p.LenderEmail] = true
		if lenderID, ok := p.Ref().LenderID(); ok && !ids[lenderID] {
			ids[lenderID] = true
			lookup = append(lookup, lenderID)
		}
	}
	if len(lookup) == 0 {
		return emails, ids, nil
	}
	users, err := u.users.BatchGet(ctx, lookup)
	if err != nil {
		return nil, nil, err
	}
	for _, usr := range users {
		emails[identity.NormalizeEmail(usr.Email)] = true
	}
	return emails, ids, nil
}

// PrecheckBatch runs the batch checks that need no stored state, so a caller
// creating a loan and its first invitations together can reject bad input
// before writing anything.
func PrecheckBatch(actor identity.Identity, principal decimal.Decimal, in []InviteInput) error {
	batch, err := normalizeBatch(actor, in)
	if err != nil {
		return err
	}
	total := decimal.Zero
	for _, inv := range batch {
		total = total.Add(inv.Amount)
	}
	if total.GreaterThan(principal) {
		return apperr.Validation("initial allocations total %s which exceeds the principal %s", total.String(), principal.String())
	}
	return nil
}

func normalizeBatch(actor identity.Identity, in []InviteInput) ([]InviteInput, error) {
	if len(in) == 0 {
		return nil, apperr.Validation("at least one lender is required")
	}
	if len(in) > MaxBatch {
		return nil, apperr.Validation("at most %d lenders can be invited at once, got %d", MaxBatch, len(in))
	}
	self := identity.NormalizeEmail(actor.Email)
	seen := make(map[string]bool, len(in))
	out := make([]InviteInput, 0, len(in))
	for _, inv := range in {
		email := participation.NormalizeEmail(inv.Email)
		switch {
		case email == "":
			return nil, apperr.Validation("lender email is required")
		case !money.Positive(inv.Amount):
			return nil, apperr.Validation("amount for %s must be greater than 0", email)
		case !money.MaxPlaces(inv.Amount, 2):
			return nil, apperr.Validation("amount for %s must have at most 2 decimal places", email)
		case self != "" && email == self:
			return nil, apperr.Validation("you cannot invite yourself as a lender")
		case seen[email]:
			return nil, apperr.Validation("%s appears more than once in the request", email)
		}
		seen[email] = true
		out = append(out, InviteInput{Email: email, Amount: inv.Amount})
	}
	return out, nil
}

// Respond records the invitee's accept or decline.
func (u *Usecase) Respond(ctx context.Context, actor identity.Identity, participationID string, in RespondInput) (*participation.Participation, error) {
	if in.Accept {
		if in.Bank == nil {
			return nil, apperr.Validation("bank details are required to accept an invitation")
		}
		if err := in.Bank.Validate(); err != nil {
			return nil, err
		}
	}

	p, err := u.parts.GetByParticipationID(ctx, participationID)
	if err != nil {
		return nil, err
	}
	if err := claimIfInvitee(actor, p); err != nil {
		return nil, err
	}
	l, err := u.loans.GetByLoanID(ctx, p.LoanID)
	if err != nil {
		return nil, err
	}
	if l.Status != loan.StatusPending && l.Status != loan.StatusActive {
		return nil, apperr.Conflict("loan %s is %s; invitations can no longer be answered", l.LoanID, l.Status)
	}

	now := u.now()
	event := notification.EventInvitationDeclined
	if in.Accept {
		err = p.Accept(now)
		event = notification.EventInvitationAccepted
	} else {
		err = p.Decline(now)
	}
	if err != nil {
		return nil, err
	}

	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Participations.UpdateVersioned(ctx, p); err != nil {
			return err
		}
		if !in.Accept {
			return nil
		}
		bank := *in.Bank
		bank.LenderID = actor.ID
		bank.LoanID = p.LoanID
		return r.BankDetails.Upsert(ctx, &bank)
	})
	if err != nil {
		return nil, err
	}

	if in.Accept {
		if err := u.users.MarkLender(ctx, actor.ID); err != nil {
			// retry-safe; the acceptance itself is committed
			logrus.WithError(err).WithField("user_id", actor.ID).Error("allocation: marking lender capability failed")
		}
	}
	notification.Send(ctx, u.sink, notification.Recipient{ID: l.BorrowerID}, event, map[string]any{
		"loan_id":          l.LoanID,
		"participation_id": p.ParticipationID,
		"lender_email":     p.LenderEmail,
		"amount":           p.Allocated.StringFixed(2),
	})
	return p, nil
}

// Revoke withdraws a pending invitation.
func (u *Usecase) Revoke(ctx context.Context, actor identity.Identity, participationID string) (*participation.Participation, error) {
	p, err := u.parts.GetByParticipationID(ctx, participationID)
	if err != nil {
		return nil, err
	}
	l, err := u.loans.GetByLoanID(ctx, p.LoanID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(actor, l); err != nil {
		return nil, err
	}
	if err := p.Revoke(u.now()); err != nil {
		return nil, err
	}
	if err := u.parts.UpdateVersioned(ctx, p); err != nil {
		return nil, err
	}
	lenderID, _ := p.Ref().LenderID()
	notification.Send(ctx, u.sink, notification.Recipient{ID: lenderID, Email: p.LenderEmail}, notification.EventInvitationRevoked, map[string]any{
		"loan_id":          l.LoanID,
		"participation_id": p.ParticipationID,
	})
	return p, nil
}

// ClaimPlaceholders binds every invitation sent to the actor's email before
// the account existed. Each placeholder is promoted exactly once.
func (u *Usecase) ClaimPlaceholders(ctx context.Context, actor identity.Identity) (int, error) {
	if actor.Email == "" {
		return 0, nil
	}
	pending, err := u.parts.ListPlaceholders(ctx, actor.Email)
	if err != nil || len(pending) == 0 {
		return 0, err
	}
	claimed := 0
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		for i := range pending {
			p := &pending[i]
			if err := p.Bind(actor.ID); err != nil {
				continue
			}
			if err := r.Participations.UpdateVersioned(ctx, p); err != nil {
				if errors.Is(err, apperr.ErrStale) {
					continue
				}
				return err
			}
			claimed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if claimed > 0 {
		logrus.WithFields(logrus.Fields{"user_id": actor.ID, "claimed": claimed}).Info("allocation: placeholder invitations bound")
	}
	return claimed, nil
}

func authorizeOwner(actor identity.Identity, l *loan.Loan) error {
	if actor.IsAdmin() || l.BorrowerID == actor.ID {
		return nil
	}
	return apperr.Permission("only the borrower can manage loan %s", l.LoanID)
}

// claimIfInvitee lets the invited email answer a placeholder invitation,
// binding it to the actor on the way.
func claimIfInvitee(actor identity.Identity, p *participation.Participation) error {
	if p.HeldBy(actor.ID) {
		return nil
	}
	if p.Ref().IsPlaceholder() && actor.Email != "" && identity.NormalizeEmail(actor.Email) == p.LenderEmail {
		return p.Bind(actor.ID)
	}
	return apperr.Permission("invitation %s belongs to another lender", p.ParticipationID)
}
