package storage

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hazlijohar95/bankfeed/pkg/feederr"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	transactions map[uuid.UUID]*BankTransaction
	rls          map[uuid.UUID]*MatchingRule
	uploads      []Upload
	customers    map[uuid.UUID]ownedParty
	vendors      map[uuid.UUID]ownedParty
	invoices     map[uuid.UUID]ownedDocument
	bills        map[uuid.UUID]ownedDocument
	categories   map[uuid.UUID]ownedCategory

	// Hooks for test assertions
	UpdateMatchStateCalled int
	LastMatchState         *MatchState
	ImportBatchCalled      bool

	// Error injection for testing error paths
	UpdateMatchStateErr error
	ListUnmatchedErr    error
	ImportBatchErr      error
	SaveRuleErr         error
	DirectoryErr        error // returned by every directory read

	// PerTransactionErr fails UpdateMatchState for specific transaction ids,
	// letting batch tests exercise partial failure.
	PerTransactionErr map[uuid.UUID]error
}

type ownedParty struct {
	ownerID uuid.UUID
	party   Party
}

type ownedDocument struct {
	ownerID uuid.UUID
	doc     Document
}

type ownedCategory struct {
	ownerID  uuid.UUID
	category Category
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		transactions: make(map[uuid.UUID]*BankTransaction),
		rls:          make(map[uuid.UUID]*MatchingRule),
		customers:    make(map[uuid.UUID]ownedParty),
		vendors:      make(map[uuid.UUID]ownedParty),
		invoices:     make(map[uuid.UUID]ownedDocument),
		bills:        make(map[uuid.UUID]ownedDocument),
		categories:   make(map[uuid.UUID]ownedCategory),
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// AddTransaction seeds a transaction, defaulting status to unmatched.
func (m *MockRepository) AddTransaction(tx *BankTransaction) {
	copied := *tx
	if copied.MatchStatus == "" {
		copied.MatchStatus = StatusUnmatched
	}
	m.transactions[copied.ID] = &copied
}

// GetTransaction retrieves a transaction by id.
func (m *MockRepository) GetTransaction(ownerID, id uuid.UUID) (*BankTransaction, error) {
	tx, ok := m.transactions[id]
	if !ok || tx.OwnerID != ownerID {
		return nil, feederr.NotFound("transaction")
	}
	copied := *tx
	return &copied, nil
}

// ListTransactions filters and paginates the in-memory set.
func (m *MockRepository) ListTransactions(ownerID uuid.UUID, filters TransactionFilters) (*TransactionListResult, error) {
	var all []*BankTransaction
	for _, tx := range m.transactions {
		if tx.OwnerID != ownerID {
			continue
		}
		if filters.AccountID != nil && tx.BankAccountID != *filters.AccountID {
			continue
		}
		if filters.Status != "" && tx.MatchStatus != filters.Status {
			continue
		}
		if filters.Type != "" && tx.Type != filters.Type {
			continue
		}
		if filters.Reconciled != nil && tx.IsReconciled != *filters.Reconciled {
			continue
		}
		if filters.Search != "" {
			needle := strings.ToLower(filters.Search)
			if !strings.Contains(strings.ToLower(tx.Description), needle) &&
				!strings.Contains(strings.ToLower(tx.Reference), needle) {
				continue
			}
		}
		copied := *tx
		all = append(all, &copied)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].TransactionDate.After(all[j].TransactionDate)
	})

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return &TransactionListResult{
		Transactions: all[offset:end],
		TotalCount:   total,
		Limit:        limit,
		Offset:       offset,
	}, nil
}

// ListUnmatched returns unmatched transactions in date-then-id order.
func (m *MockRepository) ListUnmatched(ownerID uuid.UUID, accountID *uuid.UUID) ([]*BankTransaction, error) {
	if m.ListUnmatchedErr != nil {
		return nil, m.ListUnmatchedErr
	}

	var out []*BankTransaction
	for _, tx := range m.transactions {
		if tx.OwnerID != ownerID || tx.MatchStatus != StatusUnmatched {
			continue
		}
		if accountID != nil && tx.BankAccountID != *accountID {
			continue
		}
		copied := *tx
		out = append(out, &copied)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.Before(out[j].TransactionDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	return out, nil
}

// UpdateMatchState mirrors the sqlite optimistic precondition semantics.
func (m *MockRepository) UpdateMatchState(ownerID, id uuid.UUID, expected MatchStatus, state MatchState) (*BankTransaction, error) {
	m.UpdateMatchStateCalled++
	m.LastMatchState = &state

	if m.UpdateMatchStateErr != nil {
		return nil, m.UpdateMatchStateErr
	}
	if err, ok := m.PerTransactionErr[id]; ok {
		return nil, err
	}

	tx, ok := m.transactions[id]
	if !ok || tx.OwnerID != ownerID {
		return nil, feederr.NotFound("transaction")
	}
	if tx.MatchStatus != expected {
		return nil, feederr.Conflict("transaction status is %s, expected %s", tx.MatchStatus, expected)
	}

	tx.MatchStatus = state.Status
	tx.MatchedCustomerID = state.CustomerID
	tx.MatchedVendorID = state.VendorID
	tx.MatchedInvoiceID = state.InvoiceID
	tx.MatchedBillID = state.BillID
	tx.CategoryID = state.CategoryID
	tx.MatchConfidence = state.Confidence

	copied := *tx
	return &copied, nil
}

// SetReconciled mirrors the sqlite matched-only guard.
func (m *MockRepository) SetReconciled(ownerID, id uuid.UUID, at time.Time) (*BankTransaction, error) {
	tx, ok := m.transactions[id]
	if !ok || tx.OwnerID != ownerID {
		return nil, feederr.NotFound("transaction")
	}
	if tx.MatchStatus != StatusMatched {
		return nil, feederr.Conflict("only matched transactions can be reconciled (status is %s)", tx.MatchStatus)
	}

	tx.IsReconciled = true
	reconciledAt := at
	tx.ReconciledAt = &reconciledAt

	copied := *tx
	return &copied, nil
}

// GetStats aggregates the in-memory set.
func (m *MockRepository) GetStats(ownerID uuid.UUID, accountID *uuid.UUID) (*FeedStats, error) {
	stats := &FeedStats{}
	for _, tx := range m.transactions {
		if tx.OwnerID != ownerID {
			continue
		}
		if accountID != nil && tx.BankAccountID != *accountID {
			continue
		}
		stats.Total++
		switch tx.MatchStatus {
		case StatusUnmatched:
			stats.Unmatched++
		case StatusSuggested:
			stats.Suggested++
		case StatusMatched:
			stats.Matched++
		case StatusExcluded:
			stats.Excluded++
		}
		if tx.IsReconciled {
			stats.Reconciled++
		}
		if tx.Type == TypeDeposit {
			stats.DepositCount++
			stats.TotalDeposits = stats.TotalDeposits.Add(tx.Amount)
		} else {
			stats.WithdrawalCount++
			stats.TotalWithdrawals = stats.TotalWithdrawals.Add(tx.Amount)
		}
	}
	return stats, nil
}

// ImportBatch stores the upload and its transactions.
func (m *MockRepository) ImportBatch(upload *Upload, transactions []*BankTransaction) error {
	m.ImportBatchCalled = true
	if m.ImportBatchErr != nil {
		return m.ImportBatchErr
	}

	m.uploads = append(m.uploads, *upload)
	for _, tx := range transactions {
		m.AddTransaction(tx)
	}
	return nil
}

// ListUploads returns uploads newest first.
func (m *MockRepository) ListUploads(ownerID uuid.UUID) ([]Upload, error) {
	var out []Upload
	for _, u := range m.uploads {
		if u.OwnerID == ownerID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ImportedAt.After(out[j].ImportedAt)
	})
	return out, nil
}

// SaveRule stores a rule.
func (m *MockRepository) SaveRule(rule *MatchingRule) error {
	if m.SaveRuleErr != nil {
		return m.SaveRuleErr
	}
	copied := *rule
	m.rls[rule.ID] = &copied
	return nil
}

// GetRule retrieves a rule by id.
func (m *MockRepository) GetRule(ownerID, id uuid.UUID) (*MatchingRule, error) {
	rule, ok := m.rls[id]
	if !ok || rule.OwnerID != ownerID {
		return nil, feederr.NotFound("rule")
	}
	copied := *rule
	return &copied, nil
}

// ListRules returns rules in evaluation order.
func (m *MockRepository) ListRules(ownerID uuid.UUID) ([]MatchingRule, error) {
	var out []MatchingRule
	for _, rule := range m.rls {
		if rule.OwnerID == ownerID {
			out = append(out, *rule)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteRule removes a rule.
func (m *MockRepository) DeleteRule(ownerID, id uuid.UUID) error {
	rule, ok := m.rls[id]
	if !ok || rule.OwnerID != ownerID {
		return feederr.NotFound("rule")
	}
	delete(m.rls, id)
	return nil
}

// ListCustomers returns the owner's customers sorted by name.
func (m *MockRepository) ListCustomers(ownerID uuid.UUID) ([]Party, error) {
	return m.listParties(m.customers, ownerID)
}

// ListVendors returns the owner's vendors sorted by name.
func (m *MockRepository) ListVendors(ownerID uuid.UUID) ([]Party, error) {
	return m.listParties(m.vendors, ownerID)
}

func (m *MockRepository) listParties(set map[uuid.UUID]ownedParty, ownerID uuid.UUID) ([]Party, error) {
	if m.DirectoryErr != nil {
		return nil, m.DirectoryErr
	}
	var out []Party
	for _, e := range set {
		if e.ownerID == ownerID {
			out = append(out, e.party)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetCustomer retrieves one customer.
func (m *MockRepository) GetCustomer(ownerID, id uuid.UUID) (*Party, error) {
	return m.getParty(m.customers, "customer", ownerID, id)
}

// GetVendor retrieves one vendor.
func (m *MockRepository) GetVendor(ownerID, id uuid.UUID) (*Party, error) {
	return m.getParty(m.vendors, "vendor", ownerID, id)
}

func (m *MockRepository) getParty(set map[uuid.UUID]ownedParty, resource string, ownerID, id uuid.UUID) (*Party, error) {
	if m.DirectoryErr != nil {
		return nil, m.DirectoryErr
	}
	e, ok := set[id]
	if !ok || e.ownerID != ownerID {
		return nil, feederr.NotFound(resource)
	}
	p := e.party
	return &p, nil
}

// ListOpenInvoices returns invoices in sent/unpaid status.
func (m *MockRepository) ListOpenInvoices(ownerID uuid.UUID) ([]Document, error) {
	return m.listOpenDocuments(m.invoices, ownerID, "sent", "unpaid")
}

// ListOpenBills returns bills in pending/overdue status.
func (m *MockRepository) ListOpenBills(ownerID uuid.UUID) ([]Document, error) {
	return m.listOpenDocuments(m.bills, ownerID, "pending", "overdue")
}

func (m *MockRepository) listOpenDocuments(set map[uuid.UUID]ownedDocument, ownerID uuid.UUID, statuses ...string) ([]Document, error) {
	if m.DirectoryErr != nil {
		return nil, m.DirectoryErr
	}
	open := make(map[string]bool, len(statuses))
	for _, status := range statuses {
		open[status] = true
	}

	var out []Document
	for _, e := range set {
		if e.ownerID == ownerID && open[e.doc.Status] {
			out = append(out, e.doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// GetInvoice retrieves one invoice regardless of status.
func (m *MockRepository) GetInvoice(ownerID, id uuid.UUID) (*Document, error) {
	return m.getDocument(m.invoices, "invoice", ownerID, id)
}

// GetBill retrieves one bill regardless of status.
func (m *MockRepository) GetBill(ownerID, id uuid.UUID) (*Document, error) {
	return m.getDocument(m.bills, "bill", ownerID, id)
}

func (m *MockRepository) getDocument(set map[uuid.UUID]ownedDocument, resource string, ownerID, id uuid.UUID) (*Document, error) {
	if m.DirectoryErr != nil {
		return nil, m.DirectoryErr
	}
	e, ok := set[id]
	if !ok || e.ownerID != ownerID {
		return nil, feederr.NotFound(resource)
	}
	doc := e.doc
	return &doc, nil
}

// ListCategories returns the owner's categories.
func (m *MockRepository) ListCategories(ownerID uuid.UUID) ([]Category, error) {
	if m.DirectoryErr != nil {
		return nil, m.DirectoryErr
	}
	var out []Category
	for _, e := range m.categories {
		if e.ownerID == ownerID {
			out = append(out, e.category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetCategory retrieves one category.
func (m *MockRepository) GetCategory(ownerID, id uuid.UUID) (*Category, error) {
	if m.DirectoryErr != nil {
		return nil, m.DirectoryErr
	}
	e, ok := m.categories[id]
	if !ok || e.ownerID != ownerID {
		return nil, feederr.NotFound("category")
	}
	c := e.category
	return &c, nil
}

// SaveCustomer upserts a customer.
func (m *MockRepository) SaveCustomer(ownerID uuid.UUID, p Party) error {
	m.customers[p.ID] = ownedParty{ownerID: ownerID, party: p}
	return nil
}

// SaveVendor upserts a vendor.
func (m *MockRepository) SaveVendor(ownerID uuid.UUID, p Party) error {
	m.vendors[p.ID] = ownedParty{ownerID: ownerID, party: p}
	return nil
}

// SaveInvoice upserts an invoice summary.
func (m *MockRepository) SaveInvoice(ownerID uuid.UUID, doc Document) error {
	m.invoices[doc.ID] = ownedDocument{ownerID: ownerID, doc: doc}
	return nil
}

// SaveBill upserts a bill summary.
func (m *MockRepository) SaveBill(ownerID uuid.UUID, doc Document) error {
	m.bills[doc.ID] = ownedDocument{ownerID: ownerID, doc: doc}
	return nil
}

// SaveCategory upserts a category.
func (m *MockRepository) SaveCategory(ownerID uuid.UUID, c Category) error {
	m.categories[c.ID] = ownedCategory{ownerID: ownerID, category: c}
	return nil
}
