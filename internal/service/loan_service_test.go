package service

import (
	"context"
	"testing"

	"lending-ledger/internal/core/domain"
	"lending-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestLoanService_CreateSchedule(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	loanRepo := mocks.NewMockLoanScheduleRepository(ctrl)
	svc := NewLoanService(loanRepo, zerolog.Nop())

	ctx := context.Background()
	businessID := uuid.New()
	actor := domain.CurrentActor{BusinessID: businessID}

	loanRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, s *domain.LoanSchedule) error {
			assert.Equal(t, businessID, s.BusinessID)
			assert.Equal(t, 12, s.TermMonths)
			assert.Len(t, s.Rows, 12)
			assert.True(t, s.Rows[11].RemainingBalance.IsZero())
			return nil
		})

	schedule, err := svc.CreateSchedule(ctx, actor,
		decimal.RequireFromString("100000"), decimal.RequireFromString("12"), 12)
	require.NoError(t, err)
	assert.Equal(t, "8884.88", schedule.MonthlyPayment.String())
}

func TestLoanService_CreateSchedule_InvalidTerm(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewLoanService(mocks.NewMockLoanScheduleRepository(ctrl), zerolog.Nop())

	schedule, err := svc.CreateSchedule(context.Background(), domain.CurrentActor{BusinessID: uuid.New()},
		decimal.RequireFromString("100000"), decimal.RequireFromString("12"), 0)
	assert.Nil(t, schedule)
	assertAppError(t, err, "LED_002")
}

func TestLoanService_GetSchedule_ScopedToBusiness(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	loanRepo := mocks.NewMockLoanScheduleRepository(ctrl)
	svc := NewLoanService(loanRepo, zerolog.Nop())

	ctx := context.Background()
	businessID := uuid.New()
	stored := &domain.LoanSchedule{
		ID:         uuid.New(),
		BusinessID: businessID,
		TermMonths: 6,
	}

	loanRepo.EXPECT().GetByID(ctx, stored.ID).Return(stored, nil).Times(2)

	got, err := svc.GetSchedule(ctx, domain.CurrentActor{BusinessID: businessID}, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)

	got, err = svc.GetSchedule(ctx, domain.CurrentActor{BusinessID: uuid.New()}, stored.ID)
	assert.Nil(t, got)
	assertAppError(t, err, "LED_004")
}
