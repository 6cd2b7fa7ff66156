package mysql

import (
	"context"

	loanDomain "lendledger/internal/domain/loan"
	"lendledger/pkg/cursor"

	"gorm.io/gorm"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	if l.Version == 0 {
		l.Version = 1
	}
	return classify(r.db.WithContext(ctx).Create(l).Error, "loan %s", l.LoanID)
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	if res.Error != nil {
		return nil, classify(res.Error, "loan %s", loanID)
	}
	return &out, nil
}

func (r *LoanRepository) BatchGet(ctx context.Context, loanIDs []string) ([]loanDomain.Loan, error) {
	out := make([]loanDomain.Loan, 0, len(loanIDs))
	for _, ids := range chunks(loanIDs) {
		var part []loanDomain.Loan
		if err := r.db.WithContext(ctx).Where("loan_id IN ?", ids).Find(&part).Error; err != nil {
			return nil, classify(err, "loans")
		}
		out = append(out, part...)
	}
	return out, nil
}

// SaveVersioned is a compare-and-swap on the version column.
func (r *LoanRepository) SaveVersioned(ctx context.Context, l *loanDomain.Loan) error {
	now := r.db.NowFunc()
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Where("loan_id = ? AND version = ?", l.LoanID, l.Version).
		Updates(map[string]any{
			"principal":               l.Principal,
			"interest_rate":           l.InterestRate,
			"purpose":                 l.Purpose,
			"description":             l.Description,
			"status":                  l.Status,
			"status_updated_at":       l.StatusUpdatedAt,
			"maturity_start_date":     l.Maturity.StartDate,
			"maturity_frequency":      l.Maturity.Frequency,
			"maturity_term_months":    l.Maturity.TermMonths,
			"maturity_total_payments": l.Maturity.TotalPayments,
			"maturity_maturity_date":  l.Maturity.MaturityDate,
			"version":                 l.Version + 1,
			"updated_at":              now,
		})
	if res.Error != nil {
		return classify(res.Error, "loan %s", l.LoanID)
	}
	if res.RowsAffected == 0 {
		return staleWrite("loan %s", l.LoanID)
	}
	l.Version++
	l.UpdatedAt = now
	return nil
}

func (r *LoanRepository) ListByBorrower(ctx context.Context, borrowerID string, page cursor.Page) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	q := r.db.WithContext(ctx).Where("borrower_id = ?", borrowerID)
	if err := keyset(q, "created_at", "loan_id", page).Find(&out).Error; err != nil {
		return nil, classify(err, "loans of borrower %s", borrowerID)
	}
	return out, nil
}

func (r *LoanRepository) ListWithTerms(ctx context.Context, statuses []loanDomain.Status) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	res := r.db.WithContext(ctx).
		Where("status IN ? AND maturity_start_date IS NOT NULL", statuses).
		Order("created_at ASC, loan_id ASC").
		Find(&out)
	if res.Error != nil {
		return nil, classify(res.Error, "loans")
	}
	return out, nil
}
