package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lending-ledger/config"
	"lending-ledger/internal/core/domain"
	"lending-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc, build func(config.ProviderConfig, time.Duration, zerolog.Logger) *Client) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return build(config.ProviderConfig{BaseURL: server.URL, SecretKey: "sk_test"}, 2*time.Second, zerolog.Nop())
}

func testWithdrawal() *domain.WithdrawalRequest {
	return &domain.WithdrawalRequest{
		Reference:  "WD-" + uuid.NewString(),
		BusinessID: uuid.New(),
		WalletID:   uuid.New(),
		Amount:     decimal.RequireFromString("250.00"),
		Currency:   "NGN",
		Destination: domain.BankDestination{
			BankCode:      "058",
			AccountNumber: "0123456789",
			AccountName:   "Acme Vendors Ltd",
		},
		Processor: domain.ProviderFincra,
		Status:    domain.WithdrawalStatusPending,
	}
}

func TestClient_Verify_MapsStatuses(t *testing.T) {
	tests := []struct {
		name      string
		rawStatus string
		want      domain.ProviderStatus
	}{
		{"successful", "successful", domain.ProviderStatusSuccessful},
		{"failed", "failed", domain.ProviderStatusFailed},
		{"processing maps to pending", "processing", domain.ProviderStatusPending},
		{"reversed", "reversed", domain.ProviderStatusReversed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "sk_test", r.Header.Get("api-key"))
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"data":{"status":"` + tt.rawStatus + `"}}`))
			}, NewFincra)

			status, err := client.Verify(context.Background(), "WD-ref-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestClient_Verify_UnknownStatus(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"status":"weird_new_state"}}`))
	}, NewFincra)

	_, err := client.Verify(context.Background(), "WD-ref-2")
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PRV_002", appErr.Code)
}

func TestClient_Verify_Non200(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, NewPaystack)

	_, err := client.Verify(context.Background(), "WD-ref-3")
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PRV_002", appErr.Code)
}

func TestClient_Verify_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	client := NewMono(config.ProviderConfig{BaseURL: server.URL, SecretKey: "sk_test"}, 50*time.Millisecond, zerolog.Nop())

	_, err := client.Verify(context.Background(), "WD-ref-4")
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PRV_003", appErr.Code)
}

func TestClient_DispatchPayout(t *testing.T) {
	w := testWithdrawal()

	client := testClient(t, func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		rw.Header().Set("Content-Type", "application/json")
		rw.Write([]byte(`{"data":{"status":"processing","reference":"fincra-ref-99"}}`))
	}, NewFincra)

	processorRef, err := client.DispatchPayout(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, "fincra-ref-99", processorRef)
}

func TestClient_DispatchPayout_ProviderError(t *testing.T) {
	w := testWithdrawal()

	client := testClient(t, func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusUnprocessableEntity)
		rw.Write([]byte(`{"message":"insufficient provider balance"}`))
	}, NewPaystack)

	_, err := client.DispatchPayout(context.Background(), w)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PRV_002", appErr.Code)
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry(config.ProvidersConfig{Timeout: time.Second}, zerolog.Nop())

	client, err := registry.Get(domain.ProviderFincra)
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderFincra, client.Name())

	_, err = registry.Get("flutterwave")
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PRV_004", appErr.Code)
}
