package handler

import (
	"time"

	"lending-ledger/internal/adapter/http/dto"
	"lending-ledger/internal/adapter/http/middleware"
	"lending-ledger/internal/core/domain"
	"lending-ledger/internal/core/ports"
	"lending-ledger/pkg/apperror"
	"lending-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanHandler handles amortization schedule endpoints.
type LoanHandler struct {
	loanSvc ports.LoanService
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(loanSvc ports.LoanService) *LoanHandler {
	return &LoanHandler{loanSvc: loanSvc}
}

// CreateSchedule handles POST /api/v1/loans/schedules.
func (h *LoanHandler) CreateSchedule(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.Validation("missing actor"))
		return
	}

	var req dto.CreateLoanScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		response.Error(c, apperror.Validation("invalid principal"))
		return
	}
	rate, err := decimal.NewFromString(req.AnnualRate)
	if err != nil {
		response.Error(c, apperror.Validation("invalid annual rate"))
		return
	}

	schedule, err := h.loanSvc.CreateSchedule(c.Request.Context(), actor, principal, rate, req.TermMonths)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toScheduleResponse(schedule))
}

// GetSchedule handles GET /api/v1/loans/schedules/:id.
func (h *LoanHandler) GetSchedule(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.Validation("missing actor"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid schedule id"))
		return
	}

	schedule, err := h.loanSvc.GetSchedule(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toScheduleResponse(schedule))
}

func toScheduleResponse(s *domain.LoanSchedule) dto.LoanScheduleResponse {
	rows := make([]dto.ScheduleRowResponse, 0, len(s.Rows))
	for _, r := range s.Rows {
		rows = append(rows, dto.ScheduleRowResponse{
			Month:            r.Month,
			Payment:          r.Payment.String(),
			Principal:        r.Principal.String(),
			Interest:         r.Interest.String(),
			RemainingBalance: r.RemainingBalance.String(),
		})
	}
	return dto.LoanScheduleResponse{
		ID:             s.ID.String(),
		Principal:      s.Principal.String(),
		AnnualRate:     s.AnnualRate.String(),
		TermMonths:     s.TermMonths,
		MonthlyPayment: s.MonthlyPayment.String(),
		Rows:           rows,
		CreatedAt:      s.CreatedAt.Format(time.RFC3339),
	}
}
