package dto

import "encoding/json"

// ImportRowRequest is one statement line in an import request. Dates are
// ISO-8601 (YYYY-MM-DD); amounts are decimal strings to avoid float drift.
type ImportRowRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Reference   string `json:"reference,omitempty"`
	Amount      string `json:"amount"`
	Balance     string `json:"balance,omitempty"`
	Type        string `json:"type"`
}

// ImportTransactionsRequest is the body of POST /api/bank-transactions/import.
type ImportTransactionsRequest struct {
	BankAccountID string             `json:"bank_account_id"`
	FileName      string             `json:"file_name"`
	BankPreset    string             `json:"bank_preset,omitempty"`
	Transactions  []ImportRowRequest `json:"transactions"`
}

// MatchRequest is the body of POST /api/bank-transactions/{id}/match.
// Exactly one target id must be set; confidence defaults to 1.0 for a
// manual match.
type MatchRequest struct {
	CustomerID *string  `json:"customer_id,omitempty"`
	VendorID   *string  `json:"vendor_id,omitempty"`
	InvoiceID  *string  `json:"invoice_id,omitempty"`
	BillID     *string  `json:"bill_id,omitempty"`
	CategoryID *string  `json:"category_id,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// RuleActionRequest is the action part of a rule creation request.
type RuleActionRequest struct {
	Type     string `json:"type"`
	TargetID string `json:"target_id"`
}

// CreateRuleRequest is the body of POST /api/matching-rules. Conditions are
// passed through as raw JSON and parsed by the rule engine.
type CreateRuleRequest struct {
	Name       string            `json:"name"`
	Priority   int               `json:"priority"`
	Conditions json.RawMessage   `json:"conditions"`
	Action     RuleActionRequest `json:"action"`
}

// AutoMatchRequest is the body of POST /api/bank-transactions/auto-match.
// An empty body sweeps every account.
type AutoMatchRequest struct {
	BankAccountID *string `json:"bank_account_id,omitempty"`
}
