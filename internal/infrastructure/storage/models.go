package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hazlijohar95/bankfeed/internal/domain/rules"
)

// TransactionType is the direction of a bank statement line.
type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
)

// Valid reports whether the value is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TypeDeposit || t == TypeWithdrawal
}

// MatchStatus is the lifecycle stage of a transaction's linkage to
// business data.
type MatchStatus string

const (
	StatusUnmatched MatchStatus = "unmatched"
	StatusSuggested MatchStatus = "suggested"
	StatusMatched   MatchStatus = "matched"
	StatusExcluded  MatchStatus = "excluded"
)

// Valid reports whether the value is a known match status.
func (s MatchStatus) Valid() bool {
	switch s {
	case StatusUnmatched, StatusSuggested, StatusMatched, StatusExcluded:
		return true
	}
	return false
}

// BankTransaction is one imported statement line. The facts (date,
// description, reference, amount, type, balance) are immutable after
// import; only the match and reconciliation state mutate.
type BankTransaction struct {
	ID            uuid.UUID  `json:"id"`
	OwnerID       uuid.UUID  `json:"-"`
	BankAccountID uuid.UUID  `json:"bank_account_id"`
	UploadID      *uuid.UUID `json:"upload_id,omitempty"`

	TransactionDate time.Time        `json:"transaction_date"`
	Description     string           `json:"description"`
	Reference       string           `json:"reference,omitempty"`
	Amount          decimal.Decimal  `json:"amount"`
	Type            TransactionType  `json:"type"`
	Balance         *decimal.Decimal `json:"balance,omitempty"`

	MatchStatus       MatchStatus `json:"match_status"`
	MatchedCustomerID *uuid.UUID  `json:"matched_customer_id,omitempty"`
	MatchedVendorID   *uuid.UUID  `json:"matched_vendor_id,omitempty"`
	MatchedInvoiceID  *uuid.UUID  `json:"matched_invoice_id,omitempty"`
	MatchedBillID     *uuid.UUID  `json:"matched_bill_id,omitempty"`
	CategoryID        *uuid.UUID  `json:"category_id,omitempty"`
	MatchConfidence   *float64    `json:"match_confidence,omitempty"`
	Notes             string      `json:"notes,omitempty"`

	IsReconciled bool       `json:"is_reconciled"`
	ReconciledAt *time.Time `json:"reconciled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// MatchState is the mutable linkage portion of a BankTransaction, written
// as a unit by UpdateMatchState.
type MatchState struct {
	Status     MatchStatus
	CustomerID *uuid.UUID
	VendorID   *uuid.UUID
	InvoiceID  *uuid.UUID
	BillID     *uuid.UUID
	CategoryID *uuid.UUID
	Confidence *float64
}

// MatchStateOf extracts the current match state of a transaction.
func MatchStateOf(tx *BankTransaction) MatchState {
	return MatchState{
		Status:     tx.MatchStatus,
		CustomerID: tx.MatchedCustomerID,
		VendorID:   tx.MatchedVendorID,
		InvoiceID:  tx.MatchedInvoiceID,
		BillID:     tx.MatchedBillID,
		CategoryID: tx.CategoryID,
		Confidence: tx.MatchConfidence,
	}
}

// MatchingRule is the persisted form of a user-defined rule. Conditions and
// Action are stored as JSON blobs; the typed fields are the decoded form.
type MatchingRule struct {
	ID         uuid.UUID        `json:"id"`
	OwnerID    uuid.UUID        `json:"-"`
	Name       string           `json:"name"`
	Priority   int              `json:"priority"`
	Conditions rules.Conditions `json:"conditions"`
	Action     rules.Action     `json:"action"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Rule converts the stored row into the engine's rule form.
func (m *MatchingRule) Rule() rules.Rule {
	return rules.Rule{
		ID:         m.ID,
		Name:       m.Name,
		Priority:   m.Priority,
		Conditions: m.Conditions,
		Action:     m.Action,
	}
}

// Upload records one import batch of statement lines.
type Upload struct {
	ID               uuid.UUID `json:"id"`
	OwnerID          uuid.UUID `json:"-"`
	BankAccountID    uuid.UUID `json:"bank_account_id"`
	FileName         string    `json:"file_name"`
	BankPreset       string    `json:"bank_preset,omitempty"`
	TransactionCount int       `json:"transaction_count"`
	ImportedAt       time.Time `json:"imported_at"`
}

// Party is a customer or vendor directory entry mirrored from the
// bookkeeping side.
type Party struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Document is an invoice or bill summary. Total is the document total as
// computed by the documents collaborator; Status decides openness.
type Document struct {
	ID      uuid.UUID       `json:"id"`
	PartyID uuid.UUID       `json:"party_id"`
	Number  string          `json:"number"`
	Total   decimal.Decimal `json:"total"`
	Status  string          `json:"status"`
}

// Category is reference data consumed as a rule action target.
type Category struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Type  string    `json:"type"` // "income" or "expense"
	Color string    `json:"color,omitempty"`
}

// FeedStats aggregates a bank account's transactions by status and
// direction.
type FeedStats struct {
	Total      int `json:"total"`
	Unmatched  int `json:"unmatched"`
	Suggested  int `json:"suggested"`
	Matched    int `json:"matched"`
	Excluded   int `json:"excluded"`
	Reconciled int `json:"reconciled"`

	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	DepositCount     int             `json:"deposit_count"`
	WithdrawalCount  int             `json:"withdrawal_count"`
}
