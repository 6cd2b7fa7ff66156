package mysql

import (
	"context"

	payDomain "lendledger/internal/domain/payment"

	"gorm.io/gorm"
)

type PaymentRepository struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) *PaymentRepository { return &PaymentRepository{db: db} }

func (r *PaymentRepository) Create(ctx context.Context, p *payDomain.Payment) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if err != nil && p.Reference != nil {
		return classify(err, "payment reference %q on loan %s", *p.Reference, p.LoanID)
	}
	return classify(err, "payment %s", p.PaymentID)
}

func (r *PaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*payDomain.Payment, error) {
	var out payDomain.Payment
	res := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&out)
	if res.Error != nil {
		return nil, classify(res.Error, "payment %s", paymentID)
	}
	return &out, nil
}

func (r *PaymentRepository) ListByLoan(ctx context.Context, loanID string) ([]payDomain.Payment, error) {
	var out []payDomain.Payment
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("created_at ASC, payment_id ASC").
		Find(&out)
	if res.Error != nil {
		return nil, classify(res.Error, "payments of loan %s", loanID)
	}
	return out, nil
}

func (r *PaymentRepository) ReferenceExists(ctx context.Context, loanID, reference string) (bool, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&payDomain.Payment{}).
		Where("loan_id = ? AND reference = ?", loanID, reference).
		Count(&n)
	if res.Error != nil {
		return false, classify(res.Error, "payment reference")
	}
	return n > 0, nil
}

// Transition is conditional on the stored status, so two reviewers cannot both win.
func (r *PaymentRepository) Transition(ctx context.Context, p *payDomain.Payment, from payDomain.Status) error {
	res := r.db.WithContext(ctx).
		Model(&payDomain.Payment{}).
		Where("payment_id = ? AND status = ?", p.PaymentID, from).
		Updates(map[string]any{
			"status":       p.Status,
			"reviewed_by":  p.ReviewedBy,
			"review_notes": p.ReviewNotes,
			"reviewed_at":  p.ReviewedAt,
			"updated_at":   r.db.NowFunc(),
		})
	if res.Error != nil {
		return classify(res.Error, "payment %s", p.PaymentID)
	}
	if res.RowsAffected == 0 {
		return staleWrite("payment %s", p.PaymentID)
	}
	return nil
}
