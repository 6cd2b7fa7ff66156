package mysql

import (
	"context"

	pDomain "lendledger/internal/domain/participation"
	"lendledger/pkg/cursor"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ParticipationRepository struct{ db *gorm.DB }

func NewParticipationRepository(db *gorm.DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

// CreateMany inserts the whole batch in one statement, so it lands or fails as a unit.
func (r *ParticipationRepository) CreateMany(ctx context.Context, ps []*pDomain.Participation) error {
	if len(ps) == 0 {
		return nil
	}
	return classify(r.db.WithContext(ctx).Create(ps).Error, "participation for loan %s", ps[0].LoanID)
}

func (r *ParticipationRepository) GetByParticipationID(ctx context.Context, participationID string) (*pDomain.Participation, error) {
	var out pDomain.Participation
	res := r.db.WithContext(ctx).Where("participation_id = ?", participationID).First(&out)
	if res.Error != nil {
		return nil, classify(res.Error, "participation %s", participationID)
	}
	return &out, nil
}

func (r *ParticipationRepository) ListByLoan(ctx context.Context, loanID string) ([]pDomain.Participation, error) {
	var out []pDomain.Participation
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("invited_at ASC, participation_id ASC").
		Find(&out)
	if res.Error != nil {
		return nil, classify(res.Error, "participations of loan %s", loanID)
	}
	return out, nil
}

func (r *ParticipationRepository) ListByLoanIDs(ctx context.Context, loanIDs []string) ([]pDomain.Participation, error) {
	out := make([]pDomain.Participation, 0, len(loanIDs))
	for _, ids := range chunks(loanIDs) {
		var part []pDomain.Participation
		res := r.db.WithContext(ctx).
			Where("loan_id IN ?", ids).
			Order("invited_at ASC, participation_id ASC").
			Find(&part)
		if res.Error != nil {
			return nil, classify(res.Error, "participations")
		}
		out = append(out, part...)
	}
	return out, nil
}

func (r *ParticipationRepository) ListByLender(ctx context.Context, lenderID string, statuses []pDomain.Status, page cursor.Page) ([]pDomain.Participation, error) {
	var out []pDomain.Participation
	q := r.db.WithContext(ctx).Where("lender_id = ?", lenderID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if err := keyset(q, "invited_at", "participation_id", page).Find(&out).Error; err != nil {
		return nil, classify(err, "participations of lender %s", lenderID)
	}
	return out, nil
}

func (r *ParticipationRepository) ListPlaceholders(ctx context.Context, email string) ([]pDomain.Participation, error) {
	var out []pDomain.Participation
	res := r.db.WithContext(ctx).
		Where("lender_email = ? AND lender_id IS NULL", pDomain.NormalizeEmail(email)).
		Order("invited_at ASC").
		Find(&out)
	if res.Error != nil {
		return nil, classify(res.Error, "invitations for %s", email)
	}
	return out, nil
}

func (r *ParticipationRepository) UpdateVersioned(ctx context.Context, p *pDomain.Participation) error {
	now := r.db.NowFunc()
	res := r.db.WithContext(ctx).
		Model(&pDomain.Participation{}).
		Where("participation_id = ? AND version = ?", p.ParticipationID, p.Version).
		Updates(map[string]any{
			"lender_id":         p.LenderID,
			"allocated_amount":  p.Allocated,
			"remaining_balance": p.Remaining,
			"status":            p.Status,
			"responded_at":      p.RespondedAt,
			"version":           p.Version + 1,
			"updated_at":        now,
		})
	if res.Error != nil {
		return classify(res.Error, "participation %s", p.ParticipationID)
	}
	if res.RowsAffected == 0 {
		return staleWrite("participation %s", p.ParticipationID)
	}
	p.Version++
	p.UpdatedAt = now
	return nil
}

type BankDetailRepository struct{ db *gorm.DB }

func NewBankDetailRepository(db *gorm.DB) *BankDetailRepository { return &BankDetailRepository{db: db} }

func (r *BankDetailRepository) Upsert(ctx context.Context, b *pDomain.BankDetail) error {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "lender_id"}, {Name: "loan_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"bank_name", "account_type", "routing_number", "account_number", "instructions",
		}),
	}).Create(b)
	return classify(res.Error, "bank details for lender %s on loan %s", b.LenderID, b.LoanID)
}

// BatchGet reads by both key columns and keeps only the exact pairs asked for.
func (r *BankDetailRepository) BatchGet(ctx context.Context, keys []pDomain.BankKey) ([]pDomain.BankDetail, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	want := make(map[pDomain.BankKey]struct{}, len(keys))
	lenderSet := map[string]struct{}{}
	loanSet := map[string]struct{}{}
	for _, k := range keys {
		want[k] = struct{}{}
		lenderSet[k.LenderID] = struct{}{}
		loanSet[k.LoanID] = struct{}{}
	}
	var rows []pDomain.BankDetail
	res := r.db.WithContext(ctx).
		Where("lender_id IN ? AND loan_id IN ?", setKeys(lenderSet), setKeys(loanSet)).
		Find(&rows)
	if res.Error != nil {
		return nil, classify(res.Error, "bank details")
	}
	out := rows[:0]
	for _, b := range rows {
		if _, ok := want[b.Key()]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func setKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
