package storage

import (
	"time"

	"github.com/google/uuid"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations and makes testing with
// the in-memory mock straightforward. Every method is owner-scoped: rows
// belonging to another owner behave exactly like rows that do not exist.
type Repository interface {
	TransactionRepository
	RuleRepository
	UploadRepository
	DirectoryRepository
	Close() error
}

// TransactionRepository handles bank transaction rows and their match state.
type TransactionRepository interface {
	// GetTransaction retrieves one transaction by id.
	GetTransaction(ownerID, id uuid.UUID) (*BankTransaction, error)

	// ListTransactions returns transactions matching the filters with
	// pagination, newest transaction date first.
	ListTransactions(ownerID uuid.UUID, filters TransactionFilters) (*TransactionListResult, error)

	// ListUnmatched returns every unmatched transaction, optionally
	// restricted to one bank account, in deterministic order
	// (transaction date, then id).
	ListUnmatched(ownerID uuid.UUID, accountID *uuid.UUID) ([]*BankTransaction, error)

	// UpdateMatchState writes the match state as a unit, but only when the
	// row's current status still equals expected. A lost race returns a
	// conflict error, a missing row a not-found error.
	UpdateMatchState(ownerID, id uuid.UUID, expected MatchStatus, state MatchState) (*BankTransaction, error)

	// SetReconciled flags a matched transaction as reconciled at the given
	// time. Transactions that are not currently matched return a conflict.
	SetReconciled(ownerID, id uuid.UUID, at time.Time) (*BankTransaction, error)

	// GetStats returns aggregate statistics, optionally for one account.
	GetStats(ownerID uuid.UUID, accountID *uuid.UUID) (*FeedStats, error)
}

// TransactionFilters defines filters for listing transactions.
type TransactionFilters struct {
	AccountID  *uuid.UUID  // Filter by bank account (nil = all)
	Status     MatchStatus // Filter by match status (empty = all)
	Type       TransactionType
	Reconciled *bool
	Search     string // Substring match on description/reference
	Limit      int    // Max results (0 = default 50)
	Offset     int    // Pagination offset
}

// TransactionListResult contains paginated transaction results.
type TransactionListResult struct {
	Transactions []*BankTransaction `json:"transactions"`
	TotalCount   int                `json:"total_count"`
	Limit        int                `json:"limit"`
	Offset       int                `json:"offset"`
}

// RuleRepository handles user-defined matching rules.
type RuleRepository interface {
	// SaveRule inserts a rule. The caller validates before saving.
	SaveRule(rule *MatchingRule) error

	// GetRule retrieves one rule by id.
	GetRule(ownerID, id uuid.UUID) (*MatchingRule, error)

	// ListRules returns the owner's rules ordered by ascending priority,
	// creation order breaking ties.
	ListRules(ownerID uuid.UUID) ([]MatchingRule, error)

	// DeleteRule removes a rule, returning not-found when absent.
	DeleteRule(ownerID, id uuid.UUID) error
}

// UploadRepository tracks import batches.
type UploadRepository interface {
	// ImportBatch inserts the upload record and its transactions
	// atomically.
	ImportBatch(upload *Upload, transactions []*BankTransaction) error

	// ListUploads returns the owner's uploads, newest first.
	ListUploads(ownerID uuid.UUID) ([]Upload, error)
}

// DirectoryRepository reads the typed summaries mirrored from the
// bookkeeping collaborators (customer/vendor directories, open documents,
// categories). The Save methods are the sync-side write path.
type DirectoryRepository interface {
	ListCustomers(ownerID uuid.UUID) ([]Party, error)
	ListVendors(ownerID uuid.UUID) ([]Party, error)
	GetCustomer(ownerID, id uuid.UUID) (*Party, error)
	GetVendor(ownerID, id uuid.UUID) (*Party, error)

	// ListOpenInvoices returns invoices in sent/unpaid status.
	ListOpenInvoices(ownerID uuid.UUID) ([]Document, error)
	// ListOpenBills returns bills in pending/overdue status.
	ListOpenBills(ownerID uuid.UUID) ([]Document, error)
	GetInvoice(ownerID, id uuid.UUID) (*Document, error)
	GetBill(ownerID, id uuid.UUID) (*Document, error)

	ListCategories(ownerID uuid.UUID) ([]Category, error)
	GetCategory(ownerID, id uuid.UUID) (*Category, error)

	SaveCustomer(ownerID uuid.UUID, p Party) error
	SaveVendor(ownerID uuid.UUID, p Party) error
	SaveInvoice(ownerID uuid.UUID, doc Document) error
	SaveBill(ownerID uuid.UUID, doc Document) error
	SaveCategory(ownerID uuid.UUID, c Category) error
}
