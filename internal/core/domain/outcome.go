package domain

// RecordOutcome distinguishes a freshly written ledger entry from an
// idempotent replay. Duplicates are not errors: the caller receives the prior
// transaction and branches on the outcome instead of catching exceptions.
type RecordOutcome string

const (
	RecordOutcomeRecorded  RecordOutcome = "RECORDED"
	RecordOutcomeDuplicate RecordOutcome = "DUPLICATE"
)

// RecordResult is what the ledger writer returns on success paths.
type RecordResult struct {
	Outcome     RecordOutcome
	Transaction *Transaction
}

// GateOutcome is the result of processing one provider event.
type GateOutcome string

const (
	GateOutcomeApplied          GateOutcome = "APPLIED"           // Verified and ledger-recorded
	GateOutcomeAlreadyProcessed GateOutcome = "ALREADY_PROCESSED" // Replay of a terminal operation; acknowledged
	GateOutcomeMismatch         GateOutcome = "MISMATCH"          // Verification contradicted the webhook; dropped
	GateOutcomePendingRetry     GateOutcome = "PENDING_RETRY"     // Verification unavailable; event stays eligible
	GateOutcomeDeadLettered     GateOutcome = "DEAD_LETTERED"     // Retry cap reached; flagged for manual review
)
