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

// WalletHandler handles wallet and transaction endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
	ledgerSvc ports.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, ledgerSvc ports.LedgerService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc, ledgerSvc: ledgerSvc}
}

// GetOrCreate handles POST /api/v1/wallets.
func (h *WalletHandler) GetOrCreate(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.Validation("missing actor"))
		return
	}

	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	wallet, err := h.walletSvc.GetOrCreate(c.Request.Context(), actor, req.Currency, domain.WalletType(req.WalletType))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWalletResponse(wallet))
}

// GetBalance handles GET /api/v1/wallets/:id/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.Validation("missing actor"))
		return
	}

	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	balance, currency, err := h.walletSvc.Balance(c.Request.Context(), actor, walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		WalletID: walletID.String(),
		Balance:  balance.String(),
		Currency: currency,
	})
}

// AuditBalance handles GET /api/v1/wallets/:id/audit.
func (h *WalletHandler) AuditBalance(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	stored, computed, err := h.walletSvc.AuditBalance(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.AuditBalanceResponse{
		WalletID: walletID.String(),
		Stored:   stored.String(),
		Computed: computed.String(),
		InSync:   stored.Equal(computed),
	})
}

// ListTransactions handles GET /api/v1/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.Validation("missing actor"))
		return
	}

	params, err := parseListParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	txns, total, err := h.walletSvc.Transactions(c.Request.Context(), actor, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, toTransactionResponse(&txns[i]))
	}

	response.OK(c, dto.TransactionListResponse{
		Transactions: items,
		Total:        total,
		Page:         params.Page,
		PageSize:     params.PageSize,
	})
}

// RecordEntry handles POST /api/v1/transactions. Withdrawal debits are not
// accepted here; they go through the payout flow so settlement stays
// provider-confirmed.
func (h *WalletHandler) RecordEntry(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.Validation("missing actor"))
		return
	}

	var req dto.RecordEntryRequest
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
		response.Error(c, apperror.Validation("invalid amount"))
		return
	}

	result, err := h.ledgerSvc.Record(c.Request.Context(), actor, ports.RecordRequest{
		WalletID:  walletID,
		Category:  domain.Category(req.Category),
		Type:      domain.TransactionType(req.Type),
		Amount:    amount,
		Reference: req.Reference,
		Metadata:  req.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Outcome == domain.RecordOutcomeDuplicate {
		response.OK(c, toTransactionResponse(result.Transaction))
		return
	}
	response.Created(c, toTransactionResponse(result.Transaction))
}

// ReverseTransaction handles POST /api/v1/transactions/:id/reverse.
func (h *WalletHandler) ReverseTransaction(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		response.Error(c, apperror.Validation("missing actor"))
		return
	}

	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid transaction id"))
		return
	}

	var req dto.ReverseTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.ledgerSvc.Reverse(c.Request.Context(), actor, txID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Outcome == domain.RecordOutcomeDuplicate {
		response.OK(c, toTransactionResponse(result.Transaction))
		return
	}
	response.Created(c, toTransactionResponse(result.Transaction))
}

func parseListParams(c *gin.Context) (ports.TransactionListParams, error) {
	var query struct {
		WalletID string `form:"wallet_id"`
		Status   string `form:"status"`
		Type     string `form:"type"`
		From     *int64 `form:"from"`
		To       *int64 `form:"to"`
		Page     int    `form:"page,default=1"`
		PageSize int    `form:"page_size,default=20"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		return ports.TransactionListParams{}, apperror.Validation(err.Error())
	}

	params := ports.TransactionListParams{
		From:     query.From,
		To:       query.To,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if query.WalletID != "" {
		id, err := uuid.Parse(query.WalletID)
		if err != nil {
			return params, apperror.Validation("invalid wallet id filter")
		}
		params.WalletID = &id
	}
	if query.Status != "" {
		s := domain.TransactionStatus(query.Status)
		params.Status = &s
	}
	if query.Type != "" {
		t := domain.TransactionType(query.Type)
		params.Type = &t
	}
	return params, nil
}

func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		ID:         w.ID.String(),
		BusinessID: w.BusinessID.String(),
		Currency:   w.Currency,
		WalletType: string(w.Type),
		Name:       w.Name,
		Balance:    w.Balance.String(),
		Status:     string(w.Status),
		CreatedAt:  w.CreatedAt.Format(time.RFC3339),
	}
}

func toTransactionResponse(t *domain.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:                 t.ID.String(),
		WalletID:           t.WalletID.String(),
		Currency:           t.Currency,
		Category:           string(t.Category),
		Type:               string(t.Type),
		Amount:             t.Amount.String(),
		BalanceBefore:      t.BalanceBefore.String(),
		BalanceAfter:       t.BalanceAfter.String(),
		Reference:          t.Reference,
		Processor:          t.Processor,
		ProcessorReference: t.ProcessorReference,
		Status:             string(t.Status),
		Metadata:           t.Metadata,
		CreatedAt:          t.CreatedAt.Format(time.RFC3339),
	}
	if t.ReversalOfID != nil {
		s := t.ReversalOfID.String()
		resp.ReversalOfID = &s
	}
	return resp
}
