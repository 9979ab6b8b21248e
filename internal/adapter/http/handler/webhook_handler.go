package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"lending-ledger/config"
	"lending-ledger/internal/core/domain"
	"lending-ledger/internal/core/ports"
	"lending-ledger/internal/service"
	"lending-ledger/pkg/apperror"
	"lending-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WebhookHandler is the ingress for provider webhooks. It verifies the
// transport signature, normalizes the payload and enqueues it; the provider
// is acknowledged before any business processing happens. The claimed status
// inside the payload never drives state directly.
type WebhookHandler struct {
	queue  ports.WebhookQueue
	sigSvc *service.WebhookSignatureService
	cfg    config.ProvidersConfig
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(queue ports.WebhookQueue, sigSvc *service.WebhookSignatureService, cfg config.ProvidersConfig) *WebhookHandler {
	return &WebhookHandler{queue: queue, sigSvc: sigSvc, cfg: cfg}
}

// Receive handles POST /webhooks/:provider.
func (h *WebhookHandler) Receive(c *gin.Context) {
	provider := c.Param("provider")

	body, err := c.GetRawData()
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}

	var event *domain.ProviderEvent
	switch provider {
	case domain.ProviderFincra:
		if !h.sigSvc.VerifySHA256(h.cfg.Fincra.WebhookSecret, body, c.GetHeader("signature")) {
			response.Error(c, apperror.ErrInvalidWebhookSignature())
			return
		}
		event, err = parseFincra(body)
	case domain.ProviderPaystack:
		if !h.sigSvc.VerifySHA512(h.cfg.Paystack.WebhookSecret, body, c.GetHeader("x-paystack-signature")) {
			response.Error(c, apperror.ErrInvalidWebhookSignature())
			return
		}
		event, err = parsePaystack(body)
	case domain.ProviderMono:
		// Mono sends the shared secret itself, not a signature over the body.
		if !hmac.Equal([]byte(c.GetHeader("mono-webhook-secret")), []byte(h.cfg.Mono.WebhookSecret)) {
			response.Error(c, apperror.ErrInvalidWebhookSignature())
			return
		}
		event, err = parseMono(body)
	default:
		response.Error(c, apperror.ErrUnknownProvider(provider))
		return
	}
	if err != nil {
		response.Error(c, apperror.Validation("malformed webhook payload"))
		return
	}

	if err := h.queue.Enqueue(c.Request.Context(), *event); err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.OK(c, gin.H{"received": true})
}

// payloadDigest derives a stable event id for providers that omit one.
func payloadDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// kindFromEvent infers the money direction from the provider's event name.
func kindFromEvent(event string) domain.OperationKind {
	switch {
	case strings.Contains(event, "payout"), strings.Contains(event, "transfer"):
		return domain.OperationPayout
	default:
		return domain.OperationCollection
	}
}

// claimedStatus normalizes the payload's own status field. Unknown vocabulary
// degrades to PENDING, which carries no state transition.
func claimedStatus(raw string) domain.ProviderStatus {
	switch raw {
	case "successful", "success", "paid":
		return domain.ProviderStatusSuccessful
	case "failed", "declined", "abandoned", "cancelled":
		return domain.ProviderStatusFailed
	case "reversed":
		return domain.ProviderStatusReversed
	default:
		return domain.ProviderStatusPending
	}
}

func businessIDFromMetadata(metadata map[string]any) uuid.UUID {
	raw, ok := metadata["business_id"].(string)
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

type fincraPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID                json.Number     `json:"id"`
		Reference         string          `json:"reference"`
		CustomerReference string          `json:"customerReference"`
		Status            string          `json:"status"`
		Amount            decimal.Decimal `json:"amount"`
		Currency          string          `json:"currency"`
		Metadata          map[string]any  `json:"metadata"`
	} `json:"data"`
}

func parseFincra(body []byte) (*domain.ProviderEvent, error) {
	var p fincraPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	eventID := p.Data.ID.String()
	if eventID == "" {
		eventID = payloadDigest(body)
	}
	return &domain.ProviderEvent{
		Provider:          domain.ProviderFincra,
		EventID:           eventID,
		Event:             p.Event,
		Kind:              kindFromEvent(p.Event),
		Reference:         p.Data.Reference,
		CustomerReference: p.Data.CustomerReference,
		Status:            claimedStatus(p.Data.Status),
		Amount:            p.Data.Amount,
		Currency:          p.Data.Currency,
		BusinessID:        businessIDFromMetadata(p.Data.Metadata),
		Raw:               body,
	}, nil
}

type paystackPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID        json.Number     `json:"id"`
		Reference string          `json:"reference"`
		Status    string          `json:"status"`
		Amount    decimal.Decimal `json:"amount"` // Minor units
		Currency  string          `json:"currency"`
		Metadata  map[string]any  `json:"metadata"`
	} `json:"data"`
}

func parsePaystack(body []byte) (*domain.ProviderEvent, error) {
	var p paystackPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	eventID := p.Data.ID.String()
	if eventID == "" {
		eventID = payloadDigest(body)
	}
	return &domain.ProviderEvent{
		Provider:   domain.ProviderPaystack,
		EventID:    eventID,
		Event:      p.Event,
		Kind:       kindFromEvent(p.Event),
		Reference:  p.Data.Reference,
		Status:     claimedStatus(p.Data.Status),
		Amount:     p.Data.Amount.Shift(-2),
		Currency:   p.Data.Currency,
		BusinessID: businessIDFromMetadata(p.Data.Metadata),
		Raw:        body,
	}, nil
}

type monoPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID        string          `json:"id"`
		Reference string          `json:"reference"`
		Status    string          `json:"status"`
		Amount    decimal.Decimal `json:"amount"` // Minor units
		Currency  string          `json:"currency"`
		Meta      map[string]any  `json:"meta"`
	} `json:"data"`
}

func parseMono(body []byte) (*domain.ProviderEvent, error) {
	var p monoPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	eventID := p.Data.ID
	if eventID == "" {
		eventID = payloadDigest(body)
	}
	return &domain.ProviderEvent{
		Provider:   domain.ProviderMono,
		EventID:    eventID,
		Event:      p.Event,
		Kind:       kindFromEvent(p.Event),
		Reference:  p.Data.Reference,
		Status:     claimedStatus(p.Data.Status),
		Amount:     p.Data.Amount.Shift(-2),
		Currency:   p.Data.Currency,
		BusinessID: businessIDFromMetadata(p.Data.Meta),
		Raw:        body,
	}, nil
}
