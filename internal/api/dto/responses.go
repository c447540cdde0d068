package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hazlijohar95/bankfeed/internal/application/reconcile"
	"github.com/hazlijohar95/bankfeed/internal/domain/suggest"
	"github.com/hazlijohar95/bankfeed/internal/infrastructure/storage"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a healthy response with the current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// TransactionResponse represents a bank transaction in API responses.
// Amounts are decimal strings.
type TransactionResponse struct {
	ID                string   `json:"id"`
	BankAccountID     string   `json:"bank_account_id"`
	UploadID          string   `json:"upload_id,omitempty"`
	TransactionDate   string   `json:"transaction_date"`
	Description       string   `json:"description"`
	Reference         string   `json:"reference,omitempty"`
	Amount            string   `json:"amount"`
	Balance           string   `json:"balance,omitempty"`
	Type              string   `json:"type"`
	MatchStatus       string   `json:"match_status"`
	MatchedCustomerID string   `json:"matched_customer_id,omitempty"`
	MatchedVendorID   string   `json:"matched_vendor_id,omitempty"`
	MatchedInvoiceID  string   `json:"matched_invoice_id,omitempty"`
	MatchedBillID     string   `json:"matched_bill_id,omitempty"`
	CategoryID        string   `json:"category_id,omitempty"`
	MatchConfidence   *float64 `json:"match_confidence,omitempty"`
	IsReconciled      bool     `json:"is_reconciled"`
	ReconciledAt      string   `json:"reconciled_at,omitempty"`
	CreatedAt         string   `json:"created_at"`
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// NewTransactionResponse converts a stored transaction to its API form.
func NewTransactionResponse(tx *storage.BankTransaction) TransactionResponse {
	resp := TransactionResponse{
		ID:                tx.ID.String(),
		BankAccountID:     tx.BankAccountID.String(),
		UploadID:          uuidString(tx.UploadID),
		TransactionDate:   tx.TransactionDate.Format("2006-01-02"),
		Description:       tx.Description,
		Reference:         tx.Reference,
		Amount:            tx.Amount.String(),
		Type:              string(tx.Type),
		MatchStatus:       string(tx.MatchStatus),
		MatchedCustomerID: uuidString(tx.MatchedCustomerID),
		MatchedVendorID:   uuidString(tx.MatchedVendorID),
		MatchedInvoiceID:  uuidString(tx.MatchedInvoiceID),
		MatchedBillID:     uuidString(tx.MatchedBillID),
		CategoryID:        uuidString(tx.CategoryID),
		MatchConfidence:   tx.MatchConfidence,
		IsReconciled:      tx.IsReconciled,
		CreatedAt:         tx.CreatedAt.UTC().Format(time.RFC3339),
	}
	if tx.Balance != nil {
		resp.Balance = tx.Balance.String()
	}
	if tx.ReconciledAt != nil {
		resp.ReconciledAt = tx.ReconciledAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// TransactionListResponse is a paginated transaction listing.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	TotalCount   int                   `json:"total_count"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// SuggestionResponse represents one scored match candidate.
type SuggestionResponse struct {
	Type          string  `json:"type"`
	TargetID      string  `json:"target_id"`
	Name          string  `json:"name"`
	Confidence    float64 `json:"confidence"`
	Reason        string  `json:"reason"`
	MatchedAmount string  `json:"matched_amount,omitempty"`
}

// SuggestionListResponse is the suggestion set for one transaction.
type SuggestionListResponse struct {
	TransactionID string               `json:"transaction_id"`
	Suggestions   []SuggestionResponse `json:"suggestions"`
}

// NewSuggestionListResponse converts scored candidates to their API form.
func NewSuggestionListResponse(txID uuid.UUID, suggestions []suggest.Suggestion) SuggestionListResponse {
	resp := SuggestionListResponse{
		TransactionID: txID.String(),
		Suggestions:   make([]SuggestionResponse, 0, len(suggestions)),
	}
	for _, s := range suggestions {
		item := SuggestionResponse{
			Type:       string(s.Type),
			TargetID:   s.TargetID.String(),
			Name:       s.Name,
			Confidence: s.Confidence,
			Reason:     s.Reason,
		}
		if s.MatchedAmount != nil {
			item.MatchedAmount = s.MatchedAmount.String()
		}
		resp.Suggestions = append(resp.Suggestions, item)
	}
	return resp
}

// AutoMatchResponse summarizes an auto-match pass.
type AutoMatchResponse struct {
	TotalProcessed int `json:"total_processed"`
	MatchedCount   int `json:"matched_count"`
	SuggestedCount int `json:"suggested_count"`
	FailedCount    int `json:"failed_count"`
}

// NewAutoMatchResponse converts an orchestrator result to its API form.
func NewAutoMatchResponse(result *reconcile.AutoMatchResult) AutoMatchResponse {
	return AutoMatchResponse{
		TotalProcessed: result.TotalProcessed,
		MatchedCount:   result.MatchedCount,
		SuggestedCount: result.SuggestedCount,
		FailedCount:    result.FailedCount,
	}
}

// RuleResponse represents a matching rule in API responses.
type RuleResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Priority   int               `json:"priority"`
	Conditions json.RawMessage   `json:"conditions"`
	Action     RuleActionRequest `json:"action"`
	CreatedAt  string            `json:"created_at"`
}

// NewRuleResponse converts a stored rule to its API form.
func NewRuleResponse(rule *storage.MatchingRule) RuleResponse {
	conditions, _ := json.Marshal(rule.Conditions)
	return RuleResponse{
		ID:         rule.ID.String(),
		Name:       rule.Name,
		Priority:   rule.Priority,
		Conditions: conditions,
		Action: RuleActionRequest{
			Type:     string(rule.Action.Type),
			TargetID: rule.Action.TargetID.String(),
		},
		CreatedAt: rule.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// RuleListResponse is the rule listing in evaluation order.
type RuleListResponse struct {
	Rules []RuleResponse `json:"rules"`
}

// CategoryResponse represents a category in API responses.
type CategoryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color,omitempty"`
}

// CategoryListResponse is the category reference listing.
type CategoryListResponse struct {
	Categories []CategoryResponse `json:"categories"`
}

// StatsResponse holds aggregate feed statistics.
type StatsResponse struct {
	Total            int    `json:"total"`
	Unmatched        int    `json:"unmatched"`
	Suggested        int    `json:"suggested"`
	Matched          int    `json:"matched"`
	Excluded         int    `json:"excluded"`
	Reconciled       int    `json:"reconciled"`
	DepositCount     int    `json:"deposit_count"`
	WithdrawalCount  int    `json:"withdrawal_count"`
	TotalDeposits    string `json:"total_deposits"`
	TotalWithdrawals string `json:"total_withdrawals"`
}

// NewStatsResponse converts feed stats to their API form.
func NewStatsResponse(stats *storage.FeedStats) StatsResponse {
	return StatsResponse{
		Total:            stats.Total,
		Unmatched:        stats.Unmatched,
		Suggested:        stats.Suggested,
		Matched:          stats.Matched,
		Excluded:         stats.Excluded,
		Reconciled:       stats.Reconciled,
		DepositCount:     stats.DepositCount,
		WithdrawalCount:  stats.WithdrawalCount,
		TotalDeposits:    stats.TotalDeposits.String(),
		TotalWithdrawals: stats.TotalWithdrawals.String(),
	}
}

// ImportResponse is returned after a successful statement import.
type ImportResponse struct {
	UploadID         string `json:"upload_id"`
	FileName         string `json:"file_name"`
	TransactionCount int    `json:"transaction_count"`
	ImportedAt       string `json:"imported_at"`
}

// NewImportResponse converts an upload record to its API form.
func NewImportResponse(upload *storage.Upload) ImportResponse {
	return ImportResponse{
		UploadID:         upload.ID.String(),
		FileName:         upload.FileName,
		TransactionCount: upload.TransactionCount,
		ImportedAt:       upload.ImportedAt.UTC().Format(time.RFC3339),
	}
}
