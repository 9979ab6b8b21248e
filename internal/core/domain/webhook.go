package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Provider names are lowercase and stable; they key configuration, dedup
// scopes and processor columns.
const (
	ProviderFincra   = "fincra"
	ProviderMono     = "mono"
	ProviderPaystack = "paystack"
)

// ProviderStatus is the normalized status vocabulary across providers.
type ProviderStatus string

const (
	ProviderStatusPending    ProviderStatus = "PENDING"
	ProviderStatusSuccessful ProviderStatus = "SUCCESSFUL"
	ProviderStatusFailed     ProviderStatus = "FAILED"
	ProviderStatusReversed   ProviderStatus = "REVERSED"
)

// IsTerminal reports whether the status ends an operation's lifecycle.
func (s ProviderStatus) IsTerminal() bool {
	return s == ProviderStatusSuccessful || s == ProviderStatusFailed || s == ProviderStatusReversed
}

// OperationKind tells the gate which direction of money movement an event
// refers to.
type OperationKind string

const (
	OperationPayout     OperationKind = "PAYOUT"     // Outbound: debit on confirmed success
	OperationCollection OperationKind = "COLLECTION" // Inbound: credit on confirmed success
)

// ProviderEvent is a normalized inbound webhook. The Status field is the
// payload's claim and is treated as a hint only; the authoritative status
// comes from a synchronous verification call keyed by Reference.
type ProviderEvent struct {
	Provider          string          `json:"provider"`
	EventID           string          `json:"event_id"` // Provider event id, or a payload digest when absent
	Event             string          `json:"event"`    // e.g. "payout.successful", "charge.success"
	Kind              OperationKind   `json:"kind"`
	Reference         string          `json:"reference"`
	CustomerReference string          `json:"customer_reference,omitempty"`
	Status            ProviderStatus  `json:"status"` // Claimed, unverified
	Amount            decimal.Decimal `json:"amount,omitempty"`
	Currency          string          `json:"currency,omitempty"`
	BusinessID        uuid.UUID       `json:"business_id,omitempty"`
	Raw               json.RawMessage `json:"raw,omitempty"`
	Attempts          int             `json:"attempts"` // Queue delivery attempts, managed by the consumer
}

// OperationReference returns the reference that identifies the tracked
// operation: providers that assign their own reference echo ours back in
// customerReference.
func (e ProviderEvent) OperationReference() string {
	if e.CustomerReference != "" {
		return e.CustomerReference
	}
	return e.Reference
}

// WebhookEventStatus is the processing state of a stored webhook event.
type WebhookEventStatus string

const (
	WebhookEventStatusReceived    WebhookEventStatus = "RECEIVED"
	WebhookEventStatusProcessed   WebhookEventStatus = "PROCESSED"
	WebhookEventStatusMismatch    WebhookEventStatus = "MISMATCH"     // Verification contradicted the payload; dropped
	WebhookEventStatusNeedsReview WebhookEventStatus = "NEEDS_REVIEW" // Verification retry cap reached
)

// WebhookEvent is the durable dedup record for one provider event.
type WebhookEvent struct {
	ID             uuid.UUID          `json:"id"`
	Provider       string             `json:"provider"`
	EventID        string             `json:"event_id"`
	Event          string             `json:"event"`
	Reference      string             `json:"reference"`
	ClaimedStatus  ProviderStatus     `json:"claimed_status"`
	Payload        json.RawMessage    `json:"payload"`
	Status         WebhookEventStatus `json:"status"`
	VerifyAttempts int                `json:"verify_attempts"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}
