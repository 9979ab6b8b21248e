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

// PayoutHandler handles payout endpoints.
type PayoutHandler struct {
	payoutSvc ports.PayoutService
}

// NewPayoutHandler creates a new PayoutHandler.
func NewPayoutHandler(payoutSvc ports.PayoutService) *PayoutHandler {
	return &PayoutHandler{payoutSvc: payoutSvc}
}

// Initiate handles POST /api/v1/payouts.
func (h *PayoutHandler) Initiate(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.Validation("missing actor"))
		return
	}

	var req dto.InitiatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	withdrawal, err := h.payoutSvc.Initiate(c.Request.Context(), actor, ports.InitiatePayoutRequest{
		WalletID: walletID,
		Amount:   amount,
		Currency: req.Currency,
		Destination: domain.BankDestination{
			BankCode:      req.BankCode,
			AccountNumber: req.AccountNumber,
			AccountName:   req.AccountName,
		},
		Processor: req.Processor,
		Metadata:  req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toPayoutResponse(withdrawal))
}

// Status handles GET /api/v1/payouts/:reference.
func (h *PayoutHandler) Status(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.Validation("missing actor"))
		return
	}

	withdrawal, err := h.payoutSvc.Status(c.Request.Context(), actor, c.Param("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPayoutResponse(withdrawal))
}

func toPayoutResponse(w *domain.WithdrawalRequest) dto.PayoutResponse {
	resp := dto.PayoutResponse{
		Reference:          w.Reference,
		WalletID:           w.WalletID.String(),
		Amount:             w.Amount.String(),
		Currency:           w.Currency,
		BankCode:           w.Destination.BankCode,
		AccountNumber:      w.Destination.AccountNumber,
		AccountName:        w.Destination.AccountName,
		Processor:          w.Processor,
		ProcessorReference: w.ProcessorReference,
		Status:             string(w.Status),
		NeedsReview:        w.NeedsReview,
		CreatedAt:          w.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          w.UpdatedAt.Format(time.RFC3339),
	}
	if w.TransactionID != nil {
		s := w.TransactionID.String()
		resp.TransactionID = &s
	}
	return resp
}
