package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanSchedule is the amortization snapshot for one loan: computed once from
// principal, rate and term, immutable thereafter.
type LoanSchedule struct {
	ID             uuid.UUID       `json:"id"`
	BusinessID     uuid.UUID       `json:"business_id"`
	Principal      decimal.Decimal `json:"principal"`
	AnnualRate     decimal.Decimal `json:"annual_rate"` // Percent, e.g. 15 for 15%
	TermMonths     int             `json:"term_months"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"` // EMI
	Rows           []ScheduleRow   `json:"rows"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ScheduleRow is one month of an amortization schedule. All amounts are
// rounded to two decimal places at emission.
type ScheduleRow struct {
	Month            int             `json:"month"`
	Payment          decimal.Decimal `json:"total_payment"`
	Principal        decimal.Decimal `json:"principal_component"`
	Interest         decimal.Decimal `json:"interest_component"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}
