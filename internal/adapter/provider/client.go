// Package provider holds the HTTP clients for the payment providers. Each
// client speaks its provider's wire format and maps the provider's status
// vocabulary onto the normalized one; everything above this package sees only
// domain.ProviderStatus.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"lending-ledger/config"
	"lending-ledger/internal/core/domain"
	"lending-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// profile captures everything that differs between providers: endpoint
// shapes, auth header style and status vocabulary.
type profile struct {
	name        string
	verifyPath  func(reference string) string
	payoutPath  string
	authHeader  func(r *http.Request, secretKey string)
	mapStatus   func(raw string) (domain.ProviderStatus, bool)
	payoutBody  func(w *domain.WithdrawalRequest) any
	extractData func(body []byte) (status string, reference string, err error)
}

// Client talks to one payment provider over HTTPS.
type Client struct {
	profile    profile
	baseURL    string
	secretKey  string
	httpClient *http.Client
	log        zerolog.Logger
}

func newClient(p profile, cfg config.ProviderConfig, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		profile:   p,
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.With().Str("provider", p.name).Logger(),
	}
}

// Name returns the provider's lowercase name.
func (c *Client) Name() string {
	return c.profile.name
}

// Verify asks the provider's status-check endpoint for the authoritative
// status of an operation. Webhook payloads never decide state; this call does.
func (c *Client) Verify(ctx context.Context, reference string) (domain.ProviderStatus, error) {
	endpoint := c.baseURL + c.profile.verifyPath(reference)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", apperror.ErrProviderDispatch(fmt.Errorf("build verify request: %w", err))
	}
	c.profile.authHeader(req, c.secretKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", apperror.ErrProviderTimeout(err)
		}
		return "", apperror.ErrProviderDispatch(fmt.Errorf("verify call: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", apperror.ErrProviderDispatch(fmt.Errorf("read verify response: %w", err))
	}

	c.log.Debug().
		Str("reference", reference).
		Int("status", resp.StatusCode).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("provider verify call")

	if resp.StatusCode != http.StatusOK {
		return "", apperror.ErrProviderDispatch(fmt.Errorf("verify returned status %d: %s", resp.StatusCode, truncate(body, 256)))
	}

	rawStatus, _, err := c.profile.extractData(body)
	if err != nil {
		return "", apperror.ErrProviderDispatch(fmt.Errorf("parse verify response: %w", err))
	}

	status, ok := c.profile.mapStatus(rawStatus)
	if !ok {
		return "", apperror.ErrProviderDispatch(fmt.Errorf("unknown %s status %q", c.profile.name, rawStatus))
	}
	return status, nil
}

// DispatchPayout submits a payout and returns the provider's own reference.
func (c *Client) DispatchPayout(ctx context.Context, w *domain.WithdrawalRequest) (string, error) {
	payload, err := json.Marshal(c.profile.payoutBody(w))
	if err != nil {
		return "", apperror.ErrProviderDispatch(fmt.Errorf("marshal payout request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.profile.payoutPath, bytes.NewReader(payload))
	if err != nil {
		return "", apperror.ErrProviderDispatch(fmt.Errorf("build payout request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	c.profile.authHeader(req, c.secretKey)

	start := time.Now()
	c.log.Info().Str("reference", w.Reference).Msg("dispatching payout")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", apperror.ErrProviderTimeout(err)
		}
		return "", apperror.ErrProviderDispatch(fmt.Errorf("payout call: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", apperror.ErrProviderDispatch(fmt.Errorf("read payout response: %w", err))
	}

	c.log.Info().
		Str("reference", w.Reference).
		Int("status", resp.StatusCode).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("payout dispatched")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return "", apperror.ErrProviderDispatch(fmt.Errorf("payout returned status %d: %s", resp.StatusCode, truncate(body, 256)))
	}

	_, processorRef, err := c.profile.extractData(body)
	if err != nil {
		return "", apperror.ErrProviderDispatch(fmt.Errorf("parse payout response: %w", err))
	}
	return processorRef, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// dataEnvelope is the {"data": {...}} wrapper fincra and paystack share.
type dataEnvelope struct {
	Data struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
	} `json:"data"`
}

func extractEnvelope(body []byte) (string, string, error) {
	var env dataEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", "", err
	}
	return env.Data.Status, env.Data.Reference, nil
}

func bearerAuth(r *http.Request, secretKey string) {
	r.Header.Set("Authorization", "Bearer "+secretKey)
}

// NewFincra creates the Fincra payout client.
func NewFincra(cfg config.ProviderConfig, timeout time.Duration, log zerolog.Logger) *Client {
	return newClient(profile{
		name: domain.ProviderFincra,
		verifyPath: func(reference string) string {
			return "/disbursements/payouts/reference/" + url.PathEscape(reference)
		},
		payoutPath: "/disbursements/payouts",
		authHeader: func(r *http.Request, secretKey string) {
			r.Header.Set("api-key", secretKey)
		},
		mapStatus: func(raw string) (domain.ProviderStatus, bool) {
			switch raw {
			case "successful", "success":
				return domain.ProviderStatusSuccessful, true
			case "failed", "declined":
				return domain.ProviderStatusFailed, true
			case "processing", "pending", "new":
				return domain.ProviderStatusPending, true
			case "reversed":
				return domain.ProviderStatusReversed, true
			default:
				return "", false
			}
		},
		payoutBody: func(w *domain.WithdrawalRequest) any {
			return map[string]any{
				"sourceCurrency":      w.Currency,
				"destinationCurrency": w.Currency,
				"amount":              w.Amount.String(),
				"customerReference":   w.Reference,
				"beneficiary": map[string]string{
					"accountNumber": w.Destination.AccountNumber,
					"accountName":   w.Destination.AccountName,
					"bankCode":      w.Destination.BankCode,
				},
			}
		},
		extractData: extractEnvelope,
	}, cfg, timeout, log)
}

// NewPaystack creates the Paystack transfer client.
func NewPaystack(cfg config.ProviderConfig, timeout time.Duration, log zerolog.Logger) *Client {
	return newClient(profile{
		name: domain.ProviderPaystack,
		verifyPath: func(reference string) string {
			return "/transfer/verify/" + url.PathEscape(reference)
		},
		payoutPath: "/transfer",
		authHeader: bearerAuth,
		mapStatus: func(raw string) (domain.ProviderStatus, bool) {
			switch raw {
			case "success":
				return domain.ProviderStatusSuccessful, true
			case "failed", "abandoned":
				return domain.ProviderStatusFailed, true
			case "pending", "otp", "processing":
				return domain.ProviderStatusPending, true
			case "reversed":
				return domain.ProviderStatusReversed, true
			default:
				return "", false
			}
		},
		payoutBody: func(w *domain.WithdrawalRequest) any {
			return map[string]any{
				"source":    "balance",
				"amount":    w.Amount.String(),
				"currency":  w.Currency,
				"reference": w.Reference,
				"recipient": map[string]string{
					"account_number": w.Destination.AccountNumber,
					"name":           w.Destination.AccountName,
					"bank_code":      w.Destination.BankCode,
				},
			}
		},
		extractData: extractEnvelope,
	}, cfg, timeout, log)
}

// NewMono creates the Mono payments client.
func NewMono(cfg config.ProviderConfig, timeout time.Duration, log zerolog.Logger) *Client {
	return newClient(profile{
		name: domain.ProviderMono,
		verifyPath: func(reference string) string {
			return "/v2/payments/verify?reference=" + url.QueryEscape(reference)
		},
		payoutPath: "/v2/payments/initiate",
		authHeader: func(r *http.Request, secretKey string) {
			r.Header.Set("mono-sec-key", secretKey)
		},
		mapStatus: func(raw string) (domain.ProviderStatus, bool) {
			switch raw {
			case "successful", "paid":
				return domain.ProviderStatusSuccessful, true
			case "failed", "cancelled":
				return domain.ProviderStatusFailed, true
			case "pending", "processing":
				return domain.ProviderStatusPending, true
			case "reversed":
				return domain.ProviderStatusReversed, true
			default:
				return "", false
			}
		},
		payoutBody: func(w *domain.WithdrawalRequest) any {
			return map[string]any{
				"amount":    w.Amount.String(),
				"currency":  w.Currency,
				"reference": w.Reference,
				"account": map[string]string{
					"account_number": w.Destination.AccountNumber,
					"account_name":   w.Destination.AccountName,
					"bank_code":      w.Destination.BankCode,
				},
			}
		},
		extractData: extractEnvelope,
	}, cfg, timeout, log)
}
