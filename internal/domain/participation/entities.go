package participation

import (
	"strings"
	"time"

	"lendledger/internal/domain/apperr"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
	StatusRevoked  Status = "revoked"
)

// Live participations hold a claim on the loan's principal.
func (s Status) Live() bool { return s == StatusPending || s == StatusAccepted }

func (s Status) Terminal() bool { return s == StatusDeclined || s == StatusRevoked }

type refKind uint8

const (
	refPlaceholder refKind = iota + 1
	refResolved
)

// LenderRef names the lender side of a participation: either an invited email
// with no account yet, or a resolved identity.
type LenderRef struct {
	kind  refKind
	id    string
	email string
}

func Placeholder(email string) LenderRef {
	return LenderRef{kind: refPlaceholder, email: NormalizeEmail(email)}
}

func Resolved(id, email string) LenderRef {
	return LenderRef{kind: refResolved, id: id, email: NormalizeEmail(email)}
}

func (r LenderRef) IsPlaceholder() bool { return r.kind == refPlaceholder }

// LenderID returns the resolved identity, false for placeholders.
func (r LenderRef) LenderID() (string, bool) { return r.id, r.kind == refResolved }

func (r LenderRef) Email() string { return r.email }

func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

type Participation struct {
	ID              uint64 `gorm:"primaryKey;column:id" json:"-"`
	ParticipationID string `gorm:"size:32;not null;uniqueIndex:ux_participations_participation_id" json:"participation_id"`
	LoanID          string `gorm:"size:32;not null;index:idx_participations_loan" json:"loan_id"`
	// LenderID stays NULL while the invitee has no account.
	LenderID    *string         `gorm:"size:32;index:idx_participations_lender,priority:1" json:"lender_id"`
	LenderEmail string          `gorm:"size:254;not null;index:idx_participations_email" json:"lender_email"`
	InvitedBy   string          `gorm:"size:32;not null" json:"invited_by"`
	Allocated   decimal.Decimal `gorm:"column:allocated_amount;type:decimal(18,2);not null" json:"allocated_amount"`
	Remaining   decimal.Decimal `gorm:"column:remaining_balance;type:decimal(18,2);not null" json:"remaining_balance"`
	Status      Status          `gorm:"size:16;not null" json:"status"`
	Version     int64           `gorm:"not null;default:1" json:"-"`
	InvitedAt   time.Time       `gorm:"precision:6;not null;index:idx_participations_lender,priority:2" json:"invited_at"`
	RespondedAt *time.Time      `json:"responded_at,omitempty"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Participation) TableName() string { return "participations" }

func New(id, loanID string, ref LenderRef, invitedBy string, amount decimal.Decimal, at time.Time) *Participation {
	p := &Participation{
		ParticipationID: id,
		LoanID:          loanID,
		LenderEmail:     ref.Email(),
		InvitedBy:       invitedBy,
		Allocated:       amount,
		Remaining:       amount,
		Status:          StatusPending,
		Version:         1,
		InvitedAt:       at.UTC(),
	}
	if lenderID, ok := ref.LenderID(); ok {
		p.LenderID = &lenderID
	}
	return p
}

func (p *Participation) Ref() LenderRef {
	if p.LenderID == nil || *p.LenderID == "" {
		return Placeholder(p.LenderEmail)
	}
	return Resolved(*p.LenderID, p.LenderEmail)
}

// HeldBy reports whether identity id is this participation's lender.
func (p *Participation) HeldBy(id string) bool {
	lenderID, ok := p.Ref().LenderID()
	return ok && lenderID == id
}

// Bind promotes a placeholder to a resolved identity. It succeeds once.
func (p *Participation) Bind(lenderID string) error {
	if !p.Ref().IsPlaceholder() {
		return apperr.Conflict("participation %s is already bound to a lender", p.ParticipationID)
	}
	p.LenderID = &lenderID
	return nil
}

func (p *Participation) Accept(at time.Time) error { return p.respond(StatusAccepted, at) }

func (p *Participation) Decline(at time.Time) error { return p.respond(StatusDeclined, at) }

func (p *Participation) respond(to Status, at time.Time) error {
	if p.Status != StatusPending {
		return apperr.Conflict("invitation %s was already %s", p.ParticipationID, p.Status)
	}
	t := at.UTC()
	p.Status = to
	p.RespondedAt = &t
	return nil
}

func (p *Participation) Revoke(at time.Time) error {
	if p.Status != StatusPending {
		return apperr.Conflict("only pending invitations can be revoked; %s is %s", p.ParticipationID, p.Status)
	}
	t := at.UTC()
	p.Status = StatusRevoked
	p.RespondedAt = &t
	return nil
}

// ApplyRepayment decrements the remaining balance by an approved principal portion.
func (p *Participation) ApplyRepayment(principal decimal.Decimal) error {
	if p.Status != StatusAccepted {
		return apperr.Conflict("participation %s is %s, not accepted", p.ParticipationID, p.Status)
	}
	if principal.IsNegative() {
		return apperr.Validation("principal portion cannot be negative")
	}
	if principal.GreaterThan(p.Remaining) {
		return apperr.Conflict("principal portion %s exceeds remaining balance %s", principal.StringFixed(2), p.Remaining.StringFixed(2))
	}
	p.Remaining = p.Remaining.Sub(principal)
	return nil
}

// Totals are always recomputed from the participation set, never stored.
type Totals struct {
	Principal decimal.Decimal `json:"principal"`
	Invited   decimal.Decimal `json:"total_invited"`
	Funded    decimal.Decimal `json:"total_funded"`
	Remaining decimal.Decimal `json:"total_remaining"`
	Headroom  decimal.Decimal `json:"headroom"`
	Pending   int             `json:"pending_participants"`
	Accepted  int             `json:"accepted_participants"`
	Declined  int             `json:"declined_participants"`
	Revoked   int             `json:"revoked_participants"`
}

func Summarize(principal decimal.Decimal, ps []Participation) Totals {
	t := Totals{Principal: principal, Invited: decimal.Zero, Funded: decimal.Zero, Remaining: decimal.Zero}
	for i := range ps {
		p := &ps[i]
		switch p.Status {
		case StatusPending:
			t.Pending++
			t.Invited = t.Invited.Add(p.Allocated)
		case StatusAccepted:
			t.Accepted++
			t.Invited = t.Invited.Add(p.Allocated)
			t.Funded = t.Funded.Add(p.Allocated)
			t.Remaining = t.Remaining.Add(p.Remaining)
		case StatusDeclined:
			t.Declined++
		case StatusRevoked:
			t.Revoked++
		}
	}
	t.Headroom = principal.Sub(t.Invited)
	return t
}

func (t Totals) FullyInvited() bool { return t.Invited.GreaterThanOrEqual(t.Principal) }

func (t Totals) FullyFunded() bool { return t.Funded.GreaterThanOrEqual(t.Principal) }

// FundingPercentage is funded/principal in percent, two places.
func (t Totals) FundingPercentage() decimal.Decimal {
	if !t.Principal.IsPositive() {
		return decimal.Zero
	}
	return t.Funded.Div(t.Principal).Mul(decimal.NewFromInt(100)).Round(2)
}

// Settled reports that every accepted allocation has been repaid.
func (t Totals) Settled() bool { return t.Accepted > 0 && t.Remaining.IsZero() }
