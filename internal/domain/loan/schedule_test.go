package loan

import (
	"errors"
	"testing"
	"time"

	"lendledger/internal/domain/apperr"

	"github.com/shopspring/decimal"
)

var today = time.Date(2026, 1, 10, 15, 0, 0, 0, time.UTC)

func TestNewMaturityTerms(t *testing.T) {
	start := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	m, err := NewMaturityTerms(start, FrequencyMonthly, 12, today)
	if err != nil {
		t.Fatalf("NewMaturityTerms: %v", err)
	}
	if m.TotalPayments != 12 {
		t.Fatalf("TotalPayments = %d, want 12", m.TotalPayments)
	}
	if want := time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC); !m.MaturityDate.Equal(want) {
		t.Fatalf("MaturityDate = %s, want %s", m.MaturityDate, want)
	}
	dates := m.Dates()
	if len(dates) != 12 {
		t.Fatalf("len(dates) = %d", len(dates))
	}
	// month-end clamping
	if want := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC); !dates[1].Equal(want) {
		t.Fatalf("dates[1] = %s, want %s", dates[1], want)
	}
	if want := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC); !dates[2].Equal(want) {
		t.Fatalf("dates[2] = %s, want %s", dates[2], want)
	}
}

func TestNewMaturityTerms_Counts(t *testing.T) {
	tests := []struct {
		freq   Frequency
		months int
		want   int
	}{
		{FrequencyWeekly, 12, 52},
		{FrequencyBiWeekly, 6, 13},
		{FrequencyQuarterly, 24, 8},
		{FrequencyAnnually, 36, 3},
	}
	for _, tt := range tests {
		m, err := NewMaturityTerms(today, tt.freq, tt.months, today)
		if err != nil {
			t.Fatalf("%s/%d: %v", tt.freq, tt.months, err)
		}
		if m.TotalPayments != tt.want {
			t.Fatalf("%s/%d: TotalPayments = %d, want %d", tt.freq, tt.months, m.TotalPayments, tt.want)
		}
	}
}

func TestNewMaturityTerms_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		freq   Frequency
		months int
	}{
		{"past start", today.AddDate(0, 0, -1), FrequencyMonthly, 12},
		{"bad frequency", today, Frequency("Daily"), 12},
		{"zero term", today, FrequencyMonthly, 0},
		{"term too long", today, FrequencyMonthly, 61},
		{"no payments", today, FrequencyAnnually, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMaturityTerms(tt.start, tt.freq, tt.months, today); !errors.Is(err, apperr.KindValidation) {
				t.Fatalf("want validation error, got %v", err)
			}
		})
	}
}

func TestAmortize_SumsToAllocation(t *testing.T) {
	m, err := NewMaturityTerms(today, FrequencyMonthly, 12, today)
	if err != nil {
		t.Fatal(err)
	}
	alloc := decimal.NewFromInt(6000)
	sched := m.Amortize(alloc, decimal.NewFromInt(12))
	if len(sched) != 12 {
		t.Fatalf("len = %d", len(sched))
	}
	principal := decimal.Zero
	for _, in := range sched {
		principal = principal.Add(in.Principal)
		if !in.Payment.Equal(in.Principal.Add(in.Interest)) {
			t.Fatalf("installment %d: payment %s != principal %s + interest %s", in.Number, in.Payment, in.Principal, in.Interest)
		}
	}
	if !principal.Equal(alloc) {
		t.Fatalf("sum principal = %s, want %s", principal, alloc)
	}
	if !sched[len(sched)-1].Balance.IsZero() {
		t.Fatalf("final balance = %s", sched[len(sched)-1].Balance)
	}
	// 6000 @ 12%/yr monthly over 12 => 533.09 level payment
	if want := decimal.RequireFromString("533.09"); !sched[0].Payment.Equal(want) {
		t.Fatalf("first payment = %s, want %s", sched[0].Payment, want)
	}
}

func TestAmortize_ZeroRate(t *testing.T) {
	m, _ := NewMaturityTerms(today, FrequencyQuarterly, 12, today)
	sched := m.Amortize(decimal.NewFromInt(1000), decimal.Zero)
	if len(sched) != 4 {
		t.Fatalf("len = %d", len(sched))
	}
	for _, in := range sched {
		if !in.Interest.IsZero() || !in.Principal.Equal(decimal.NewFromInt(250)) {
			t.Fatalf("unexpected installment %+v", in)
		}
	}
}

func TestNextDue(t *testing.T) {
	m, _ := NewMaturityTerms(today, FrequencyWeekly, 1, today)
	next, ok := m.NextDue(today.AddDate(0, 0, 1))
	if !ok || !next.Equal(time.Date(2026, 1, 17, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("NextDue = %s, %v", next, ok)
	}
	if _, ok := m.NextDue(today.AddDate(1, 0, 0)); ok {
		t.Fatal("expected no installment after maturity")
	}
	if _, ok := (MaturityTerms{}).NextDue(today); ok {
		t.Fatal("no terms should have no due date")
	}
}
