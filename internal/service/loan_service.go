package service

import (
	"context"
	"fmt"
	"time"

	"lending-ledger/internal/amortization"
	"lending-ledger/internal/core/domain"
	"lending-ledger/internal/core/ports"
	"lending-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LoanServiceImpl implements ports.LoanService.
type LoanServiceImpl struct {
	loanRepo ports.LoanScheduleRepository
	log      zerolog.Logger
}

// NewLoanService creates a new LoanServiceImpl.
func NewLoanService(loanRepo ports.LoanScheduleRepository, log zerolog.Logger) *LoanServiceImpl {
	return &LoanServiceImpl{loanRepo: loanRepo, log: log}
}

// CreateSchedule computes an amortization schedule and snapshots it.
func (s *LoanServiceImpl) CreateSchedule(ctx context.Context, actor domain.CurrentActor, principal, annualRate decimal.Decimal, termMonths int) (*domain.LoanSchedule, error) {
	payment, err := amortization.EMI(principal, annualRate, termMonths)
	if err != nil {
		return nil, err
	}
	rows, err := amortization.Schedule(principal, annualRate, termMonths)
	if err != nil {
		return nil, err
	}

	schedule := &domain.LoanSchedule{
		ID:             uuid.New(),
		BusinessID:     actor.BusinessID,
		Principal:      principal,
		AnnualRate:     annualRate,
		TermMonths:     termMonths,
		MonthlyPayment: payment,
		Rows:           rows,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.loanRepo.Create(ctx, schedule); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("save loan schedule: %w", err))
	}

	s.log.Info().
		Str("schedule_id", schedule.ID.String()).
		Str("business_id", actor.BusinessID.String()).
		Str("principal", principal.String()).
		Str("rate", annualRate.String()).
		Int("term_months", termMonths).
		Str("monthly_payment", payment.String()).
		Msg("loan schedule created")
	return schedule, nil
}

// GetSchedule fetches a stored schedule scoped to the actor's business.
func (s *LoanServiceImpl) GetSchedule(ctx context.Context, actor domain.CurrentActor, id uuid.UUID) (*domain.LoanSchedule, error) {
	schedule, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get loan schedule: %w", err))
	}
	if schedule == nil || schedule.BusinessID != actor.BusinessID {
		return nil, apperror.ErrNotFound("loan schedule")
	}
	return schedule, nil
}
