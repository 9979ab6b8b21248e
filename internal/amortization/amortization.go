// Package amortization computes equated-monthly-installment repayment
// schedules. Pure math: no storage, no clock, no side effects.
package amortization

import (
	"lending-ledger/internal/core/domain"
	"lending-ledger/pkg/apperror"

	"github.com/shopspring/decimal"
)

var (
	hundred       = decimal.NewFromInt(100)
	twelve        = decimal.NewFromInt(12)
	one           = decimal.NewFromInt(1)
	monetaryScale = int32(2)
)

// EMI returns the fixed monthly payment for a loan of the given principal,
// annual rate (percent) and term in months, rounded to two decimal places.
// A zero rate degenerates to principal/term.
func EMI(principal, annualRatePct decimal.Decimal, termMonths int) (decimal.Decimal, error) {
	if err := validate(principal, annualRatePct, termMonths); err != nil {
		return decimal.Zero, err
	}

	r := monthlyRate(annualRatePct)
	n := decimal.NewFromInt(int64(termMonths))

	if r.IsZero() {
		return principal.DivRound(n, monetaryScale), nil
	}

	// EMI = P * r * (1+r)^N / ((1+r)^N - 1)
	pow := one.Add(r).Pow(n)
	emi := principal.Mul(r).Mul(pow).Div(pow.Sub(one))
	return emi.Round(monetaryScale), nil
}

// Schedule produces the month-by-month principal/interest breakdown.
// Each row is rounded to two decimal places at emission; rounding is per-row,
// not cumulative, so the final row's remaining balance can drift by a few
// cents before being clamped to zero.
func Schedule(principal, annualRatePct decimal.Decimal, termMonths int) ([]domain.ScheduleRow, error) {
	emi, err := EMI(principal, annualRatePct, termMonths)
	if err != nil {
		return nil, err
	}

	r := monthlyRate(annualRatePct)
	rows := make([]domain.ScheduleRow, 0, termMonths)
	remaining := principal

	for month := 1; month <= termMonths; month++ {
		interest := remaining.Mul(r).Round(monetaryScale)
		principalComponent := emi.Sub(interest)

		remaining = remaining.Sub(principalComponent)
		if remaining.IsNegative() || month == termMonths {
			remaining = decimal.Zero
		}

		rows = append(rows, domain.ScheduleRow{
			Month:            month,
			Payment:          emi,
			Principal:        principalComponent.Round(monetaryScale),
			Interest:         interest,
			RemainingBalance: remaining.Round(monetaryScale),
		})
	}

	return rows, nil
}

func monthlyRate(annualRatePct decimal.Decimal) decimal.Decimal {
	return annualRatePct.Div(hundred).Div(twelve)
}

func validate(principal, annualRatePct decimal.Decimal, termMonths int) error {
	if !principal.IsPositive() {
		return apperror.Validation("principal must be greater than zero")
	}
	if termMonths <= 0 {
		return apperror.Validation("term must be at least one month")
	}
	if annualRatePct.IsNegative() {
		return apperror.Validation("annual rate cannot be negative")
	}
	return nil
}
