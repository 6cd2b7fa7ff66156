package loan

import (
	"math"
	"time"

	"lendledger/internal/domain/apperr"
	"lendledger/pkg/money"

	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyWeekly    Frequency = "Weekly"
	FrequencyBiWeekly  Frequency = "Bi-Weekly"
	FrequencyMonthly   Frequency = "Monthly"
	FrequencyQuarterly Frequency = "Quarterly"
	FrequencyAnnually  Frequency = "Annually"
)

var periodsPerYear = map[Frequency]int{
	FrequencyWeekly:    52,
	FrequencyBiWeekly:  26,
	FrequencyMonthly:   12,
	FrequencyQuarterly: 4,
	FrequencyAnnually:  1,
}

func (f Frequency) Valid() bool { _, ok := periodsPerYear[f]; return ok }

func (f Frequency) PeriodsPerYear() int { return periodsPerYear[f] }

const (
	MinTermMonths = 1
	MaxTermMonths = 60
)

// MaturityTerms is the optional repayment plan attached to a loan. It only
// feeds the advisory schedule; the ledger never validates against it.
type MaturityTerms struct {
	StartDate     *time.Time `gorm:"column:start_date" json:"start_date,omitempty"`
	Frequency     Frequency  `gorm:"column:frequency;size:16" json:"payment_frequency,omitempty"`
	TermMonths    int        `gorm:"column:term_months" json:"term_length,omitempty"`
	TotalPayments int        `gorm:"column:total_payments" json:"total_payments,omitempty"`
	MaturityDate  *time.Time `gorm:"column:maturity_date" json:"maturity_date,omitempty"`
}

func (m MaturityTerms) Present() bool { return m.StartDate != nil }

// NewMaturityTerms validates the plan and derives the payment count and maturity date.
func NewMaturityTerms(start time.Time, freq Frequency, termMonths int, today time.Time) (MaturityTerms, error) {
	start = dateOnly(start)
	if start.Before(dateOnly(today)) {
		return MaturityTerms{}, apperr.Validation("start date cannot be in the past")
	}
	if !freq.Valid() {
		return MaturityTerms{}, apperr.Validation("invalid payment frequency %q", freq)
	}
	if termMonths < MinTermMonths || termMonths > MaxTermMonths {
		return MaturityTerms{}, apperr.Validation("term length must be between %d and %d months", MinTermMonths, MaxTermMonths)
	}
	total := int(math.Round(float64(termMonths) / 12 * float64(freq.PeriodsPerYear())))
	if total < 1 {
		return MaturityTerms{}, apperr.Validation("a %d month term yields no %s payments", termMonths, freq)
	}
	maturity := addMonths(start, termMonths)
	return MaturityTerms{
		StartDate:     &start,
		Frequency:     freq,
		TermMonths:    termMonths,
		TotalPayments: total,
		MaturityDate:  &maturity,
	}, nil
}

// Dates lists every installment date of the plan.
func (m MaturityTerms) Dates() []time.Time {
	if !m.Present() {
		return nil
	}
	start := dateOnly(*m.StartDate)
	out := make([]time.Time, 0, m.TotalPayments)
	for n := 0; n < m.TotalPayments; n++ {
		switch m.Frequency {
		case FrequencyWeekly:
			out = append(out, start.AddDate(0, 0, 7*n))
		case FrequencyBiWeekly:
			out = append(out, start.AddDate(0, 0, 14*n))
		case FrequencyMonthly:
			out = append(out, addMonths(start, n))
		case FrequencyQuarterly:
			out = append(out, addMonths(start, 3*n))
		case FrequencyAnnually:
			out = append(out, addMonths(start, 12*n))
		}
	}
	return out
}

// NextDue returns the first installment date on or after today.
func (m MaturityTerms) NextDue(today time.Time) (time.Time, bool) {
	today = dateOnly(today)
	for _, d := range m.Dates() {
		if !d.Before(today) {
			return d, true
		}
	}
	return time.Time{}, false
}

type Installment struct {
	Number    int             `json:"payment_number"`
	Date      time.Time       `json:"payment_date"`
	Payment   decimal.Decimal `json:"payment_amount"`
	Interest  decimal.Decimal `json:"interest"`
	Principal decimal.Decimal `json:"principal"`
	Balance   decimal.Decimal `json:"balance"`
}

// Amortize builds the level-payment schedule for one lender's allocation.
// ratePct is the annual rate in percent. The last installment absorbs rounding.
func (m MaturityTerms) Amortize(allocation, ratePct decimal.Decimal) []Installment {
	if !m.Present() || m.TotalPayments <= 0 || !money.Positive(allocation) {
		return nil
	}
	n := m.TotalPayments
	periodic := ratePct.Div(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(m.Frequency.PeriodsPerYear())))

	var pmt decimal.Decimal
	if periodic.IsZero() {
		pmt = allocation.Div(decimal.NewFromInt(int64(n)))
	} else {
		growth := decimal.NewFromInt(1).Add(periodic).Pow(decimal.NewFromInt(int64(n)))
		pmt = allocation.Mul(periodic.Mul(growth)).Div(growth.Sub(decimal.NewFromInt(1)))
	}
	pmt = money.Cents(pmt)

	dates := m.Dates()
	balance := allocation
	out := make([]Installment, 0, n)
	for i := 1; i <= n; i++ {
		interest := money.Cents(balance.Mul(periodic))
		principal := pmt.Sub(interest)
		payment := pmt
		if i == n || principal.GreaterThan(balance) {
			principal = balance
			payment = balance.Add(interest)
		}
		balance = balance.Sub(principal)
		out = append(out, Installment{
			Number:    i,
			Date:      dates[i-1],
			Payment:   payment,
			Interest:  interest,
			Principal: principal,
			Balance:   balance,
		})
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// addMonths adds n calendar months, clamping to the last day of the target month
// (Jan 31 + 1 month = Feb 28/29, not Mar 3).
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}
