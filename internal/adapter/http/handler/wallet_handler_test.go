package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lending-ledger/internal/adapter/http/middleware"
	"lending-ledger/internal/core/domain"
	"lending-ledger/internal/core/ports"
	"lending-ledger/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func postRecordEntry(h *WalletHandler, actor *domain.CurrentActor, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	if actor != nil {
		c.Set(middleware.CtxActor, *actor)
	}
	h.RecordEntry(c)
	return w
}

func TestRecordEntry_CreatedOnFirstWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledgerSvc := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mocks.NewMockWalletService(ctrl), ledgerSvc)

	actor := domain.CurrentActor{BusinessID: uuid.New()}
	walletID := uuid.New()

	ledgerSvc.EXPECT().
		Record(gomock.Any(), actor, gomock.Any()).
		DoAndReturn(func(_ any, _ domain.CurrentActor, req ports.RecordRequest) (*domain.RecordResult, error) {
			assert.Equal(t, walletID, req.WalletID)
			assert.Equal(t, domain.CategoryCredit, req.Category)
			assert.Equal(t, domain.TxTypeDeposit, req.Type)
			assert.True(t, req.Amount.Equal(decimal.RequireFromString("250.50")))
			assert.Equal(t, "INV-001", req.Reference)
			assert.False(t, req.AllowNegative)
			return &domain.RecordResult{
				Outcome: domain.RecordOutcomeRecorded,
				Transaction: &domain.Transaction{
					ID:        uuid.New(),
					WalletID:  req.WalletID,
					Category:  req.Category,
					Type:      req.Type,
					Amount:    req.Amount,
					Reference: req.Reference,
					Status:    domain.TransactionStatusSuccessful,
				},
			}, nil
		})

	body := `{"wallet_id":"` + walletID.String() + `","category":"CREDIT","type":"DEPOSIT","amount":"250.50","reference":"INV-001"}`
	w := postRecordEntry(h, &actor, body)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	assert.Equal(t, "INV-001", data["reference"])
}

func TestRecordEntry_DuplicateReplayReturnsOriginal(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledgerSvc := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mocks.NewMockWalletService(ctrl), ledgerSvc)

	actor := domain.CurrentActor{BusinessID: uuid.New()}
	walletID := uuid.New()

	ledgerSvc.EXPECT().
		Record(gomock.Any(), actor, gomock.Any()).
		Return(&domain.RecordResult{
			Outcome: domain.RecordOutcomeDuplicate,
			Transaction: &domain.Transaction{
				ID:        uuid.New(),
				WalletID:  walletID,
				Category:  domain.CategoryCredit,
				Type:      domain.TxTypeDeposit,
				Amount:    decimal.RequireFromString("250.50"),
				Reference: "INV-001",
				Status:    domain.TransactionStatusSuccessful,
			},
		}, nil)

	body := `{"wallet_id":"` + walletID.String() + `","category":"CREDIT","type":"DEPOSIT","amount":"250.50","reference":"INV-001"}`
	w := postRecordEntry(h, &actor, body)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecordEntry_WithdrawalTypeRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewWalletHandler(mocks.NewMockWalletService(ctrl), mocks.NewMockLedgerService(ctrl))

	actor := domain.CurrentActor{BusinessID: uuid.New()}
	body := `{"wallet_id":"` + uuid.NewString() + `","category":"DEBIT","type":"WITHDRAWAL","amount":"10.00","reference":"WD-raw"}`
	w := postRecordEntry(h, &actor, body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "LED_002")
}

func TestRecordEntry_BadAmountRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewWalletHandler(mocks.NewMockWalletService(ctrl), mocks.NewMockLedgerService(ctrl))

	actor := domain.CurrentActor{BusinessID: uuid.New()}
	body := `{"wallet_id":"` + uuid.NewString() + `","category":"CREDIT","type":"DEPOSIT","amount":"10.555","reference":"INV-2"}`
	w := postRecordEntry(h, &actor, body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordEntry_MissingActorRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewWalletHandler(mocks.NewMockWalletService(ctrl), mocks.NewMockLedgerService(ctrl))

	body := `{"wallet_id":"` + uuid.NewString() + `","category":"CREDIT","type":"DEPOSIT","amount":"10.00","reference":"INV-3"}`
	w := postRecordEntry(h, nil, body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
