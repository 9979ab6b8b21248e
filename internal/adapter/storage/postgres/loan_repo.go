package postgres

import (
	"context"
	"errors"
	"fmt"

	"lending-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LoanScheduleRepo implements ports.LoanScheduleRepository.
type LoanScheduleRepo struct {
	pool Pool
}

// NewLoanScheduleRepo creates a new LoanScheduleRepo.
func NewLoanScheduleRepo(pool Pool) *LoanScheduleRepo {
	return &LoanScheduleRepo{pool: pool}
}

// Create persists a schedule and all of its rows atomically.
func (r *LoanScheduleRepo) Create(ctx context.Context, schedule *domain.LoanSchedule) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	scheduleQuery := `INSERT INTO loan_schedules (id, business_id, principal, annual_rate, term_months, monthly_payment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = tx.Exec(ctx, scheduleQuery,
		schedule.ID, schedule.BusinessID, schedule.Principal.String(),
		schedule.AnnualRate.String(), schedule.TermMonths,
		schedule.MonthlyPayment.String(), schedule.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert loan schedule: %w", err)
	}

	rowQuery := `INSERT INTO loan_schedule_rows (schedule_id, month, payment, principal, interest, remaining_balance)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, row := range schedule.Rows {
		_, err = tx.Exec(ctx, rowQuery,
			schedule.ID, row.Month, row.Payment.String(),
			row.Principal.String(), row.Interest.String(), row.RemainingBalance.String(),
		)
		if err != nil {
			return fmt.Errorf("insert schedule row %d: %w", row.Month, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID fetches a schedule with its rows ordered by month.
func (r *LoanScheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanSchedule, error) {
	query := `SELECT id, business_id, principal::text, annual_rate::text, term_months, monthly_payment::text, created_at
		FROM loan_schedules WHERE id = $1`

	s := &domain.LoanSchedule{}
	var principal, rate, payment string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.BusinessID, &principal, &rate, &s.TermMonths, &payment, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get loan schedule: %w", err)
	}
	if s.Principal, err = decimal.NewFromString(principal); err != nil {
		return nil, fmt.Errorf("parse principal: %w", err)
	}
	if s.AnnualRate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("parse annual rate: %w", err)
	}
	if s.MonthlyPayment, err = decimal.NewFromString(payment); err != nil {
		return nil, fmt.Errorf("parse monthly payment: %w", err)
	}

	rowsQuery := `SELECT month, payment::text, principal::text, interest::text, remaining_balance::text
		FROM loan_schedule_rows WHERE schedule_id = $1 ORDER BY month ASC`

	rows, err := r.pool.Query(ctx, rowsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("get schedule rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row domain.ScheduleRow
		var pay, prin, intr, rem string
		if err := rows.Scan(&row.Month, &pay, &prin, &intr, &rem); err != nil {
			return nil, fmt.Errorf("scan schedule row: %w", err)
		}
		if row.Payment, err = decimal.NewFromString(pay); err != nil {
			return nil, fmt.Errorf("parse row payment: %w", err)
		}
		if row.Principal, err = decimal.NewFromString(prin); err != nil {
			return nil, fmt.Errorf("parse row principal: %w", err)
		}
		if row.Interest, err = decimal.NewFromString(intr); err != nil {
			return nil, fmt.Errorf("parse row interest: %w", err)
		}
		if row.RemainingBalance, err = decimal.NewFromString(rem); err != nil {
			return nil, fmt.Errorf("parse row balance: %w", err)
		}
		s.Rows = append(s.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule rows: %w", err)
	}
	return s, nil
}
