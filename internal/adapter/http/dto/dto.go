package dto

// CreateWalletRequest is the request body for wallet get-or-create.
type CreateWalletRequest struct {
	Currency   string `json:"currency" binding:"required,len=3"`
	WalletType string `json:"wallet_type" binding:"required,oneof=VENDOR_PAYOUT LENDER ADMIN"`
}

// WalletResponse is the response body for wallet queries.
type WalletResponse struct {
	ID         string `json:"id"`
	BusinessID string `json:"business_id"`
	Currency   string `json:"currency"`
	WalletType string `json:"wallet_type"`
	Name       string `json:"name"`
	Balance    string `json:"balance"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

// BalanceResponse is the response for balance query.
type BalanceResponse struct {
	WalletID string `json:"wallet_id"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
}

// AuditBalanceResponse reports stored vs ledger-computed balance.
type AuditBalanceResponse struct {
	WalletID string `json:"wallet_id"`
	Stored   string `json:"stored_balance"`
	Computed string `json:"computed_balance"`
	InSync   bool   `json:"in_sync"`
}

// TransactionResponse is one ledger entry in API form. Amounts are decimal
// strings; clients must not parse them as floats.
type TransactionResponse struct {
	ID                 string         `json:"id"`
	WalletID           string         `json:"wallet_id"`
	Currency           string         `json:"currency"`
	Category           string         `json:"category"`
	Type               string         `json:"type"`
	Amount             string         `json:"amount"`
	BalanceBefore      string         `json:"balance_before"`
	BalanceAfter       string         `json:"balance_after"`
	Reference          string         `json:"reference"`
	Processor          string         `json:"processor,omitempty"`
	ProcessorReference string         `json:"processor_reference,omitempty"`
	Status             string         `json:"status"`
	ReversalOfID       *string        `json:"reversal_of_id,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	CreatedAt          string         `json:"created_at"`
}

// TransactionListResponse wraps a paginated transaction list.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"page_size"`
}

// InitiatePayoutRequest is the request body for payout initiation.
type InitiatePayoutRequest struct {
	WalletID      string         `json:"wallet_id" binding:"required,uuid"`
	Amount        string         `json:"amount" binding:"required,money"`
	Currency      string         `json:"currency" binding:"required,len=3"`
	BankCode      string         `json:"bank_code" binding:"required"`
	AccountNumber string         `json:"account_number" binding:"required"`
	AccountName   string         `json:"account_name" binding:"required"`
	Processor     string         `json:"processor" binding:"required,oneof=fincra mono paystack"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// PayoutResponse is the response body for payout queries.
type PayoutResponse struct {
	Reference          string  `json:"reference"`
	WalletID           string  `json:"wallet_id"`
	Amount             string  `json:"amount"`
	Currency           string  `json:"currency"`
	BankCode           string  `json:"bank_code"`
	AccountNumber      string  `json:"account_number"`
	AccountName        string  `json:"account_name"`
	Processor          string  `json:"processor"`
	ProcessorReference string  `json:"processor_reference,omitempty"`
	Status             string  `json:"status"`
	TransactionID      *string `json:"transaction_id,omitempty"`
	NeedsReview        bool    `json:"needs_review"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

// CreateLoanScheduleRequest is the request body for schedule computation.
type CreateLoanScheduleRequest struct {
	Principal  string `json:"principal" binding:"required,money"`
	AnnualRate string `json:"annual_rate" binding:"required,rate"`
	TermMonths int    `json:"term_months" binding:"required,gt=0,lte=480"`
}

// ScheduleRowResponse is one month of an amortization schedule.
type ScheduleRowResponse struct {
	Month            int    `json:"month"`
	Payment          string `json:"total_payment"`
	Principal        string `json:"principal_component"`
	Interest         string `json:"interest_component"`
	RemainingBalance string `json:"remaining_balance"`
}

// LoanScheduleResponse is the response body for schedule queries.
type LoanScheduleResponse struct {
	ID             string                `json:"id"`
	Principal      string                `json:"principal"`
	AnnualRate     string                `json:"annual_rate"`
	TermMonths     int                   `json:"term_months"`
	MonthlyPayment string                `json:"monthly_payment"`
	Rows           []ScheduleRowResponse `json:"rows"`
	CreatedAt      string                `json:"created_at"`
}

// RecordEntryRequest is the request body for API-initiated ledger entries.
// Reference is the caller's idempotency key; replaying it returns the
// original entry instead of writing a second one.
type RecordEntryRequest struct {
	WalletID  string         `json:"wallet_id" binding:"required,uuid"`
	Category  string         `json:"category" binding:"required,oneof=CREDIT DEBIT"`
	Type      string         `json:"type" binding:"required,oneof=DEPOSIT LOAN_DISBURSEMENT LOAN_REPAYMENT ORDER_PAYMENT COMMISSION TRANSFER"`
	Amount    string         `json:"amount" binding:"required,money"`
	Reference string         `json:"reference" binding:"required,max=100"`
	Metadata  map[string]any `json:"metadata"`
}

// ReverseTransactionRequest is the request body for manual reversals.
type ReverseTransactionRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}
