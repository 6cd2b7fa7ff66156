package mysql

import (
	"context"

	"lendledger/internal/domain/identity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository is the identity.Directory backed by the users table.
type UserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) *UserRepository { return &UserRepository{db: db} }

func (r *UserRepository) GetByID(ctx context.Context, userID string) (*identity.User, error) {
	var out identity.User
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&out)
	if res.Error != nil {
		return nil, classify(res.Error, "user %s", userID)
	}
	return &out, nil
}

func (r *UserRepository) FindByEmails(ctx context.Context, emails []string) ([]identity.User, error) {
	norm := make([]string, 0, len(emails))
	for _, e := range emails {
		norm = append(norm, identity.NormalizeEmail(e))
	}
	return r.findIn(ctx, "email", norm)
}

func (r *UserRepository) BatchGet(ctx context.Context, userIDs []string) ([]identity.User, error) {
	return r.findIn(ctx, "user_id", userIDs)
}

func (r *UserRepository) findIn(ctx context.Context, col string, vals []string) ([]identity.User, error) {
	out := make([]identity.User, 0, len(vals))
	for _, part := range chunks(vals) {
		var rows []identity.User
		if err := r.db.WithContext(ctx).Where(col+" IN ?", part).Find(&rows).Error; err != nil {
			return nil, classify(err, "users")
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (r *UserRepository) MarkLender(ctx context.Context, userID string) error {
	res := r.db.WithContext(ctx).
		Model(&identity.User{}).
		Where("user_id = ?", userID).
		Update("is_lender", true)
	return classify(res.Error, "user %s", userID)
}

func (r *UserRepository) Upsert(ctx context.Context, u *identity.User) error {
	u.Email = identity.NormalizeEmail(u.Email)
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "updated_at"}),
	}).Create(u)
	return classify(res.Error, "user %s", u.UserID)
}
