package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazlijohar95/bankfeed/internal/domain/rules"
	"github.com/hazlijohar95/bankfeed/pkg/feederr"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	store, err := NewStorage(filepath.Join(t.TempDir(), "bankfeed_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func testTransaction(ownerID uuid.UUID) *BankTransaction {
	return &BankTransaction{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		BankAccountID:   uuid.New(),
		TransactionDate: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		Description:     "PAYMENT FROM ACME CORP",
		Reference:       "REF-001",
		Amount:          decimal.RequireFromString("1500.00"),
		Type:            TypeDeposit,
		MatchStatus:     StatusUnmatched,
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}
}

func importOne(t *testing.T, store *Storage, tx *BankTransaction) {
	t.Helper()

	upload := &Upload{
		ID:               uuid.New(),
		OwnerID:          tx.OwnerID,
		BankAccountID:    tx.BankAccountID,
		FileName:         "statement.csv",
		TransactionCount: 1,
		ImportedAt:       time.Now().UTC().Truncate(time.Second),
	}
	tx.UploadID = &upload.ID
	require.NoError(t, store.ImportBatch(upload, []*BankTransaction{tx}))
}

func TestStorage_ImportBatchAndGet(t *testing.T) {
	store := newTestStorage(t)
	ownerID := uuid.New()

	tx := testTransaction(ownerID)
	balance := decimal.RequireFromString("10250.55")
	tx.Balance = &balance
	importOne(t, store, tx)

	got, err := store.GetTransaction(ownerID, tx.ID)
	require.NoError(t, err)

	assert.Equal(t, tx.ID, got.ID)
	assert.Equal(t, tx.Description, got.Description)
	assert.Equal(t, "REF-001", got.Reference)
	assert.True(t, got.Amount.Equal(tx.Amount))
	require.NotNil(t, got.Balance)
	assert.True(t, got.Balance.Equal(balance))
	assert.Equal(t, TypeDeposit, got.Type)
	assert.Equal(t, StatusUnmatched, got.MatchStatus)
	assert.Nil(t, got.MatchedCustomerID)
	assert.Nil(t, got.MatchConfidence)
	assert.False(t, got.IsReconciled)
	require.NotNil(t, got.UploadID)

	uploads, err := store.ListUploads(ownerID)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, 1, uploads[0].TransactionCount)
}

func TestStorage_GetTransaction_OwnerScoping(t *testing.T) {
	store := newTestStorage(t)

	tx := testTransaction(uuid.New())
	importOne(t, store, tx)

	// A different owner must not be able to see the row at all.
	_, err := store.GetTransaction(uuid.New(), tx.ID)
	assert.True(t, feederr.IsNotFound(err))
}

func TestStorage_ListTransactions_Filters(t *testing.T) {
	store := newTestStorage(t)
	ownerID := uuid.New()
	accountID := uuid.New()

	deposit := testTransaction(ownerID)
	deposit.BankAccountID = accountID
	deposit.Description = "SALARY PAYMENT"
	importOne(t, store, deposit)

	withdrawal := testTransaction(ownerID)
	withdrawal.BankAccountID = accountID
	withdrawal.Type = TypeWithdrawal
	withdrawal.Description = "OFFICE RENT"
	withdrawal.TransactionDate = deposit.TransactionDate.AddDate(0, 0, 1)
	importOne(t, store, withdrawal)

	otherAccount := testTransaction(ownerID)
	importOne(t, store, otherAccount)

	t.Run("by account", func(t *testing.T) {
		result, err := store.ListTransactions(ownerID, TransactionFilters{AccountID: &accountID})
		require.NoError(t, err)
		assert.Equal(t, 2, result.TotalCount)
		// Newest transaction date first.
		assert.Equal(t, withdrawal.ID, result.Transactions[0].ID)
	})

	t.Run("by type", func(t *testing.T) {
		result, err := store.ListTransactions(ownerID, TransactionFilters{Type: TypeWithdrawal})
		require.NoError(t, err)
		require.Len(t, result.Transactions, 1)
		assert.Equal(t, withdrawal.ID, result.Transactions[0].ID)
	})

	t.Run("by search", func(t *testing.T) {
		result, err := store.ListTransactions(ownerID, TransactionFilters{Search: "rent"})
		require.NoError(t, err)
		require.Len(t, result.Transactions, 1)
		assert.Equal(t, withdrawal.ID, result.Transactions[0].ID)
	})

	t.Run("pagination", func(t *testing.T) {
		result, err := store.ListTransactions(ownerID, TransactionFilters{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, result.TotalCount)
		assert.Len(t, result.Transactions, 1)
	})
}

func TestStorage_UpdateMatchState_Precondition(t *testing.T) {
	store := newTestStorage(t)
	ownerID := uuid.New()

	tx := testTransaction(ownerID)
	importOne(t, store, tx)

	customerID := uuid.New()
	confidence := 0.9
	state := MatchState{
		Status:     StatusMatched,
		CustomerID: &customerID,
		Confidence: &confidence,
	}

	updated, err := store.UpdateMatchState(ownerID, tx.ID, StatusUnmatched, state)
	require.NoError(t, err)
	assert.Equal(t, StatusMatched, updated.MatchStatus)
	require.NotNil(t, updated.MatchedCustomerID)
	assert.Equal(t, customerID, *updated.MatchedCustomerID)
	require.NotNil(t, updated.MatchConfidence)
	assert.Equal(t, 0.9, *updated.MatchConfidence)

	// The same precondition no longer holds: a concurrent second writer
	// must get a conflict, not a silent overwrite.
	_, err = store.UpdateMatchState(ownerID, tx.ID, StatusUnmatched, state)
	assert.True(t, feederr.IsConflict(err))

	// Unknown transaction is not-found, not conflict.
	_, err = store.UpdateMatchState(ownerID, uuid.New(), StatusUnmatched, state)
	assert.True(t, feederr.IsNotFound(err))
}

func TestStorage_UpdateMatchState_ClearsFields(t *testing.T) {
	store := newTestStorage(t)
	ownerID := uuid.New()

	tx := testTransaction(ownerID)
	importOne(t, store, tx)

	customerID := uuid.New()
	confidence := 0.7
	_, err := store.UpdateMatchState(ownerID, tx.ID, StatusUnmatched, MatchState{
		Status:     StatusSuggested,
		CustomerID: &customerID,
		Confidence: &confidence,
	})
	require.NoError(t, err)

	// Rejecting clears everything back to bare unmatched.
	updated, err := store.UpdateMatchState(ownerID, tx.ID, StatusSuggested, MatchState{Status: StatusUnmatched})
	require.NoError(t, err)
	assert.Equal(t, StatusUnmatched, updated.MatchStatus)
	assert.Nil(t, updated.MatchedCustomerID)
	assert.Nil(t, updated.MatchConfidence)
}

func TestStorage_SetReconciled_RequiresMatched(t *testing.T) {
	store := newTestStorage(t)
	ownerID := uuid.New()

	tx := testTransaction(ownerID)
	importOne(t, store, tx)

	_, err := store.SetReconciled(ownerID, tx.ID, time.Now().UTC())
	assert.True(t, feederr.IsConflict(err))

	customerID := uuid.New()
	confidence := 1.0
	_, err = store.UpdateMatchState(ownerID, tx.ID, StatusUnmatched, MatchState{
		Status:     StatusMatched,
		CustomerID: &customerID,
		Confidence: &confidence,
	})
	require.NoError(t, err)

	at := time.Date(2026, 3, 6, 10, 30, 0, 0, time.UTC)
	updated, err := store.SetReconciled(ownerID, tx.ID, at)
	require.NoError(t, err)
	assert.True(t, updated.IsReconciled)
	require.NotNil(t, updated.ReconciledAt)
	assert.True(t, updated.ReconciledAt.Equal(at))
}

func TestStorage_ListUnmatched_DeterministicOrder(t *testing.T) {
	store := newTestStorage(t)
	ownerID := uuid.New()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		tx := testTransaction(ownerID)
		tx.TransactionDate = base.AddDate(0, 0, i)
		importOne(t, store, tx)
		ids = append(ids, tx.ID)
	}

	unmatched, err := store.ListUnmatched(ownerID, nil)
	require.NoError(t, err)
	require.Len(t, unmatched, 3)
	for i, tx := range unmatched {
		assert.Equal(t, ids[i], tx.ID)
	}
}

func TestStorage_GetStats(t *testing.T) {
	store := newTestStorage(t)
	ownerID := uuid.New()

	deposit := testTransaction(ownerID)
	deposit.Amount = decimal.RequireFromString("100.50")
	importOne(t, store, deposit)

	withdrawal := testTransaction(ownerID)
	withdrawal.Type = TypeWithdrawal
	withdrawal.Amount = decimal.RequireFromString("40.25")
	importOne(t, store, withdrawal)

	customerID := uuid.New()
	confidence := 1.0
	_, err := store.UpdateMatchState(ownerID, deposit.ID, StatusUnmatched, MatchState{
		Status:     StatusMatched,
		CustomerID: &customerID,
		Confidence: &confidence,
	})
	require.NoError(t, err)

	stats, err := store.GetStats(ownerID, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Unmatched)
	assert.Equal(t, 1, stats.Matched)
	assert.Equal(t, 1, stats.DepositCount)
	assert.Equal(t, 1, stats.WithdrawalCount)
	assert.True(t, stats.TotalDeposits.Equal(decimal.RequireFromString("100.50")))
	assert.True(t, stats.TotalWithdrawals.Equal(decimal.RequireFromString("40.25")))
}

func TestStorage_RuleRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ownerID := uuid.New()

	amountMin := decimal.RequireFromString("100")
	rule := &MatchingRule{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		Name:     "acme payments",
		Priority: 2,
		Conditions: rules.Conditions{
			DescriptionContains: []string{"acme"},
			DescriptionPattern:  `(?i)acme`,
			AmountMin:           &amountMin,
			TransactionType:     "deposit",
		},
		Action:    rules.Action{Type: rules.ActionMatchCustomer, TargetID: uuid.New()},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, (&rules.Rule{
		Name: rule.Name, Priority: rule.Priority,
		Conditions: rule.Conditions, Action: rule.Action,
	}).Validate())
	require.NoError(t, store.SaveRule(rule))

	second := &MatchingRule{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      "first by priority",
		Priority:  1,
		Action:    rules.Action{Type: rules.ActionCategorize, TargetID: uuid.New()},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.SaveRule(second))

	listed, err := store.ListRules(ownerID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID) // priority 1 first
	assert.Equal(t, rule.ID, listed[1].ID)

	got := listed[1]
	assert.Equal(t, []string{"acme"}, got.Conditions.DescriptionContains)
	require.NotNil(t, got.Conditions.AmountMin)
	assert.True(t, got.Conditions.AmountMin.Equal(amountMin))
	assert.Equal(t, rules.ActionMatchCustomer, got.Action.Type)

	// The re-loaded rule must evaluate, which requires the stored pattern
	// to have been recompiled on scan.
	engineRule := got.Rule()
	_, ok := rules.FirstMatch(rules.Subject{
		Description: "ACME CORP",
		Amount:      decimal.RequireFromString("200"),
		Type:        "deposit",
	}, []rules.Rule{engineRule})
	assert.True(t, ok)

	require.NoError(t, store.DeleteRule(ownerID, rule.ID))
	err = store.DeleteRule(ownerID, rule.ID)
	assert.True(t, feederr.IsNotFound(err))
}

func TestStorage_Directories(t *testing.T) {
	store := newTestStorage(t)
	ownerID := uuid.New()

	customer := Party{ID: uuid.New(), Name: "Acme Corp"}
	require.NoError(t, store.SaveCustomer(ownerID, customer))
	vendor := Party{ID: uuid.New(), Name: "Supplies Inc"}
	require.NoError(t, store.SaveVendor(ownerID, vendor))

	openInvoice := Document{ID: uuid.New(), PartyID: customer.ID, Number: "INV-1",
		Total: decimal.RequireFromString("1500.00"), Status: "sent"}
	paidInvoice := Document{ID: uuid.New(), PartyID: customer.ID, Number: "INV-2",
		Total: decimal.RequireFromString("900.00"), Status: "paid"}
	require.NoError(t, store.SaveInvoice(ownerID, openInvoice))
	require.NoError(t, store.SaveInvoice(ownerID, paidInvoice))

	bill := Document{ID: uuid.New(), PartyID: vendor.ID, Number: "BILL-1",
		Total: decimal.RequireFromString("89.90"), Status: "overdue"}
	require.NoError(t, store.SaveBill(ownerID, bill))

	category := Category{ID: uuid.New(), Name: "Rent", Type: "expense", Color: "#ff0000"}
	require.NoError(t, store.SaveCategory(ownerID, category))

	customers, err := store.ListCustomers(ownerID)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "Acme Corp", customers[0].Name)

	// Paid invoices are not part of the open corpus.
	invoices, err := store.ListOpenInvoices(ownerID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, openInvoice.ID, invoices[0].ID)

	// But a direct fetch still sees them (needed for back-filling).
	gotPaid, err := store.GetInvoice(ownerID, paidInvoice.ID)
	require.NoError(t, err)
	assert.True(t, gotPaid.Total.Equal(paidInvoice.Total))

	bills, err := store.ListOpenBills(ownerID)
	require.NoError(t, err)
	require.Len(t, bills, 1)

	gotCategory, err := store.GetCategory(ownerID, category.ID)
	require.NoError(t, err)
	assert.Equal(t, "expense", gotCategory.Type)

	// Tenant scoping applies to directories too.
	_, err = store.GetCustomer(uuid.New(), customer.ID)
	assert.True(t, feederr.IsNotFound(err))
}

func TestMigrations_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bankfeed_migrate.db")

	store, err := NewStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must not re-run or fail applied migrations.
	store, err = NewStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(allMigrations), count)
}
