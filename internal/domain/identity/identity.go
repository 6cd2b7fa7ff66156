// Package identity holds the acting-identity model and the user directory port.
// The ledger never authenticates; it authorizes against what the transport hands it.
package identity

import (
	"context"
	"strings"
	"time"
)

type Role string

const (
	RoleBorrower Role = "borrower"
	RoleLender   Role = "lender"
	RoleAdmin    Role = "admin"
)

type Identity struct {
	ID    string
	Email string
	Roles []Role
}

func (i Identity) Has(r Role) bool {
	for _, have := range i.Roles {
		if have == r {
			return true
		}
	}
	return false
}

func (i Identity) IsAdmin() bool { return i.Has(RoleAdmin) }

type ctxKey struct{}

// WithIdentity attaches the acting identity to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Current returns the acting identity carried by ctx.
func Current(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.ID != ""
}

// User is the directory projection the ledger reads for enrichment.
type User struct {
	ID        uint64    `gorm:"primaryKey;column:id" json:"-"`
	UserID    string    `gorm:"size:32;not null;uniqueIndex:ux_users_user_id" json:"user_id"`
	Email     string    `gorm:"size:254;not null;uniqueIndex:ux_users_email" json:"email"`
	Name      string    `gorm:"size:100" json:"name"`
	IsLender  bool      `gorm:"not null;default:false" json:"is_lender"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

type Directory interface {
	GetByID(ctx context.Context, userID string) (*User, error)
	// FindByEmails resolves many emails in one read; unknown emails are skipped.
	FindByEmails(ctx context.Context, emails []string) ([]User, error)
	BatchGet(ctx context.Context, userIDs []string) ([]User, error)
	// MarkLender sets the lender capability flag. Repeated calls are no-ops.
	MarkLender(ctx context.Context, userID string) error
	Upsert(ctx context.Context, u *User) error
}
