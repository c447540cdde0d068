package reconcile

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazlijohar95/bankfeed/internal/domain/matcher"
	"github.com/hazlijohar95/bankfeed/internal/domain/rules"
	"github.com/hazlijohar95/bankfeed/internal/infrastructure/storage"
	"github.com/hazlijohar95/bankfeed/pkg/feederr"
)

func newTestService(repo storage.Repository) *Service {
	return NewService(repo, matcher.DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func seedDeposit(repo *storage.MockRepository, ownerID uuid.UUID, description, amount string) *storage.BankTransaction {
	tx := &storage.BankTransaction{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		BankAccountID:   uuid.New(),
		TransactionDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Description:     description,
		Amount:          decimal.RequireFromString(amount),
		Type:            storage.TypeDeposit,
	}
	repo.AddTransaction(tx)
	return tx
}

func seedWithdrawal(repo *storage.MockRepository, ownerID uuid.UUID, description, amount string) *storage.BankTransaction {
	tx := &storage.BankTransaction{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		BankAccountID:   uuid.New(),
		TransactionDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Description:     description,
		Amount:          decimal.RequireFromString(amount),
		Type:            storage.TypeWithdrawal,
	}
	repo.AddTransaction(tx)
	return tx
}

func TestApplyMatch_CustomerToDeposit(t *testing.T) {
	repo := storage.NewMockRepository()
	ownerID := uuid.New()
	svc := newTestService(repo)

	customer := storage.Party{ID: uuid.New(), Name: "Acme Corp"}
	require.NoError(t, repo.SaveCustomer(ownerID, customer))
	tx := seedDeposit(repo, ownerID, "PAYMENT ACME CORP", "1500.00")

	updated, err := svc.ApplyMatch(context.Background(), ownerID, tx.ID, MatchTarget{
		CustomerID: &customer.ID,
		Confidence: 1.0,
	})
	require.NoError(t, err)

	assert.Equal(t, storage.StatusMatched, updated.MatchStatus)
	require.NotNil(t, updated.MatchedCustomerID)
	assert.Equal(t, customer.ID, *updated.MatchedCustomerID)
	require.NotNil(t, updated.MatchConfidence)
	assert.Equal(t, 1.0, *updated.MatchConfidence)
	assert.Equal(t, 1, repo.UpdateMatchStateCalled)
}

func TestApplyMatch_InvoiceBackfillsCustomer(t *testing.T) {
	repo := storage.NewMockRepository()
	ownerID := uuid.New()
	svc := newTestService(repo)

	customer := storage.Party{ID: uuid.New(), Name: "Acme Corp"}
	require.NoError(t, repo.SaveCustomer(ownerID, customer))
	invoice := storage.Document{
		ID: uuid.New(), PartyID: customer.ID, Number: "INV-7",
		Total: decimal.RequireFromString("1500.00"), Status: "sent",
	}
	require.NoError(t, repo.SaveInvoice(ownerID, invoice))
	tx := seedDeposit(repo, ownerID, "PAYMENT ACME CORP", "1500.00")

	updated, err := svc.ApplyMatch(context.Background(), ownerID, tx.ID, MatchTarget{
		InvoiceID:  &invoice.ID,
		Confidence: 1.0,
	})
	require.NoError(t, err)

	require.NotNil(t, updated.MatchedInvoiceID)
	assert.Equal(t, invoice.ID, *updated.MatchedInvoiceID)
	require.NotNil(t, updated.MatchedCustomerID)
	assert.Equal(t, customer.ID, *updated.MatchedCustomerID)
}

func TestApplyMatch_DirectionGuard(t *testing.T) {
	repo := storage.NewMockRepository()
	ownerID := uuid.New()
	svc := newTestService(repo)

	vendor := storage.Party{ID: uuid.New(), Name: "Supplies Inc"}
	require.NoError(t, repo.SaveVendor(ownerID, vendor))
	deposit := seedDeposit(repo, ownerID, "REFUND", "50.00")

	// A deposit cannot be matched to a vendor.
	_, err := svc.ApplyMatch(context.Background(), ownerID, deposit.ID, MatchTarget{
		VendorID:   &vendor.ID,
		Confidence: 1.0,
	})
	assert.True(t, feederr.IsValidation(err))

	customer := storage.Party{ID: uuid.New(), Name: "Acme"}
	require.NoError(t, repo.SaveCustomer(ownerID, customer))
	withdrawal := seedWithdrawal(repo, ownerID, "RENT", "900.00")

	_, err = svc.ApplyMatch(context.Background(), ownerID, withdrawal.ID, MatchTarget{
		CustomerID: &customer.ID,
		Confidence: 1.0,
	})
	assert.True(t, feederr.IsValidation(err))
}

func TestApplyMatch_TargetValidation(t *testing.T) {
	repo := storage.NewMockRepository()
	ownerID := uuid.New()
	svc := newTestService(repo)
	tx := seedDeposit(repo, ownerID, "PAYMENT", "10.00")

	t.Run("no target", func(t *testing.T) {
		_, err := svc.ApplyMatch(context.Background(), ownerID, tx.ID, MatchTarget{Confidence: 1.0})
		assert.True(t, feederr.IsValidation(err))
	})

	t.Run("two targets", func(t *testing.T) {
		customerID, invoiceID := uuid.New(), uuid.New()
		_, err := svc.ApplyMatch(context.Background(), ownerID, tx.ID, MatchTarget{
			CustomerID: &customerID, InvoiceID: &invoiceID, Confidence: 1.0,
		})
		assert.True(t, feederr.IsValidation(err))
	})

	t.Run("unknown customer", func(t *testing.T) {
		missing := uuid.New()
		_, err := svc.ApplyMatch(context.Background(), ownerID, tx.ID, MatchTarget{
			CustomerID: &missing, Confidence: 1.0,
		})
		assert.True(t, feederr.IsNotFound(err))
	})

	t.Run("confidence out of range", func(t *testing.T) {
		customerID := uuid.New()
		_, err := svc.ApplyMatch(context.Background(), ownerID, tx.ID, MatchTarget{
			CustomerID: &customerID, Confidence: 1.5,
		})
		assert.True(t, feederr.IsValidation(err))
	})
}

func TestApplyMatch_IdempotentAndConflict(t *testing.T) {
	repo := storage.NewMockRepository()
	ownerID := uuid.New()
	svc := newTestService(repo)

	customer := storage.Party{ID: uuid.New(), Name: "Acme Corp"}
	other := storage.Party{ID: uuid.New(), Name: "Beta LLC"}
	require.NoError(t, repo.SaveCustomer(ownerID, customer))
	require.NoError(t, repo.SaveCustomer(ownerID, other))
	tx := seedDeposit(repo, ownerID, "PAYMENT ACME", "100.00")

	_, err := svc.ApplyMatch(context.Background(), ownerID, tx.ID, MatchTarget{
		CustomerID: &customer.ID, Confidence: 1.0,
	})
	require.NoError(t, err)
	calls := repo.UpdateMatchStateCalled

	// Same target again: succeeds without another write.
	updated, err := svc.ApplyMatch(context.Background(), ownerID, tx.ID, MatchTarget{
		CustomerID: &customer.ID, Confidence: 1.0,
	})
	require.NoError(t, err)
	assert.Equal(t, storage.StatusMatched, updated.MatchStatus)
	assert.Equal(t, calls, repo.UpdateMatchStateCalled)

	// Different target: conflict, never a silent overwrite.
	_, err = svc.ApplyMatch(context.Background(), ownerID, tx.ID, MatchTarget{
		CustomerID: &other.ID, Confidence: 1.0,
	})
	assert.True(t, feederr.IsConflict(err))
}

func TestAcceptSuggestion(t *testing.T) {
	repo := storage.NewMockRepository()
	ownerID := uuid.New()
	svc := newTestService(repo)

	customerID := uuid.New()
	confidence := 0.72
	tx := seedDeposit(repo, ownerID, "PAYMENT", "10.00")
	_, err := repo.UpdateMatchState(ownerID, tx.ID, storage.StatusUnmatched, storage.MatchState{
		Status:     storage.StatusSuggested,
		CustomerID: &customerID,
		Confidence: &confidence,
	})
	require.NoError(t, err)

	updated, err := svc.AcceptSuggestion(context.Background(), ownerID, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusMatched, updated.MatchStatus)
	require.NotNil(t, updated.MatchedCustomerID)
	assert.Equal(t, customerID, *updated.MatchedCustomerID)
	require.NotNil(t, updated.MatchConfidence)
	assert.Equal(t, 0.72, *updated.MatchConfidence)

	// Accepting twice is a conflict: the suggestion is gone.
	_, err = svc.AcceptSuggestion(context.Background(), ownerID, tx.ID)
	assert.True(t, feederr.IsConflict(err))
}

func TestRejectSuggestion_ClearsEverything(t *testing.T) {
	repo := storage.NewMockRepository()
	ownerID := uuid.New()
	svc := newTestService(repo)

	customerID, invoiceID := uuid.New(), uuid.New()
	confidence := 0.8
	tx := seedDeposit(repo, ownerID, "PAYMENT", "10.00")
	_, err := repo.UpdateMatchState(ownerID, tx.ID, storage.StatusUnmatched, storage.MatchState{
		Status:     storage.StatusSuggested,
		CustomerID: &customerID,
		InvoiceID:  &invoiceID,
		Confidence: &confidence,
	})
	require.NoError(t, err)

	updated, err := svc.RejectSuggestion(context.Background(), ownerID, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusUnmatched, updated.MatchStatus)
	assert.Nil(t, updated.MatchedCustomerID)
	assert.Nil(t, updated.MatchedInvoiceID)
	assert.Nil(t, updated.MatchConfidence)

	// Nothing left to reject.
	_, err = svc.RejectSuggestion(context.Background(), ownerID, tx.ID)
	assert.True(t, feederr.IsConflict(err))
}

func TestExclude(t *testing.T) {
	repo := storage.NewMockRepository()
	ownerID := uuid.New()
	svc := newTestService(repo)

	tx := seedDeposit(repo, ownerID, "BANK FEE", "5.00")
	updated, err := svc.Exclude(context.Background(), ownerID, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusExcluded, updated.MatchStatus)

	// Excluded transactions are frozen out of the workflow.
	_, err = svc.Exclude(context.Background(), ownerID, tx.ID)
	assert.True(t, feederr.IsConflict(err))
	_, err = svc.GetSuggestions(context.Background(), ownerID, tx.ID)
	assert.True(t, feederr.IsConflict(err))
	customerID := uuid.New()
	_, err = svc.ApplyMatch(context.Background(), ownerID, tx.ID, MatchTarget{
		CustomerID: &customerID, Confidence: 1.0,
	})
	assert.True(t, feederr.IsConflict(err))
}

func TestReconcile_RequiresMatch(t *testing.T) {
	repo := storage.NewMockRepository()
	ownerID := uuid.New()
	svc := newTestService(repo)

	customer := storage.Party{ID: uuid.New(), Name: "Acme"}
	require.NoError(t, repo.SaveCustomer(ownerID, customer))
	tx := seedDeposit(repo, ownerID, "PAYMENT", "10.00")

	_, err := svc.Reconcile(context.Background(), ownerID, tx.ID)
	assert.True(t, feederr.IsConflict(err))

	_, err = svc.ApplyMatch(context.Background(), ownerID, tx.ID, MatchTarget{
		CustomerID: &customer.ID, Confidence: 1.0,
	})
	require.NoError(t, err)

	updated, err := svc.Reconcile(context.Background(), ownerID, tx.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsReconciled)
	require.NotNil(t, updated.ReconciledAt)

	// Reconciled transactions cannot be unwound or rematched.
	_, err = svc.RejectSuggestion(context.Background(), ownerID, tx.ID)
	assert.True(t, feederr.IsConflict(err))
	other := uuid.New()
	_, err = svc.ApplyMatch(context.Background(), ownerID, tx.ID, MatchTarget{
		CustomerID: &other, Confidence: 1.0,
	})
	assert.True(t, feederr.IsConflict(err))
}

func TestGetSuggestions_RanksDirectory(t *testing.T) {
	repo := storage.NewMockRepository()
	ownerID := uuid.New()
	svc := newTestService(repo)

	acme := storage.Party{ID: uuid.New(), Name: "Acme Corporation"}
	beta := storage.Party{ID: uuid.New(), Name: "Beta Industries"}
	require.NoError(t, repo.SaveCustomer(ownerID, acme))
	require.NoError(t, repo.SaveCustomer(ownerID, beta))
	require.NoError(t, repo.SaveInvoice(ownerID, storage.Document{
		ID: uuid.New(), PartyID: acme.ID, Number: "INV-1",
		Total: decimal.RequireFromString("1500.00"), Status: "sent",
	}))

	tx := seedDeposit(repo, ownerID, "PAYMENT FROM ACME CORPORATION", "1500.00")

	suggestions, err := svc.GetSuggestions(context.Background(), ownerID, tx.ID)
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)

	// Exact invoice amount and whole-name customer match both qualify;
	// ordering is by confidence descending.
	for i := 1; i < len(suggestions); i++ {
		assert.GreaterOrEqual(t, suggestions[i-1].Confidence, suggestions[i].Confidence)
	}
	for _, sg := range suggestions {
		assert.NotEqual(t, beta.ID, sg.TargetID, "unrelated customer should not qualify")
	}
}

func TestRuleCRUD(t *testing.T) {
	repo := storage.NewMockRepository()
	ownerID := uuid.New()
	svc := newTestService(repo)
	ctx := context.Background()

	targetID := uuid.New()
	rule, err := svc.CreateRule(ctx, ownerID, "acme payments", 1,
		rules.Conditions{DescriptionContains: []string{"acme"}},
		rules.Action{Type: rules.ActionMatchCustomer, TargetID: targetID},
	)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, rule.ID)

	// Invalid rules never reach the store.
	_, err = svc.CreateRule(ctx, ownerID, "", 1,
		rules.Conditions{},
		rules.Action{Type: rules.ActionMatchCustomer, TargetID: targetID},
	)
	assert.True(t, feederr.IsValidation(err))
	_, err = svc.CreateRule(ctx, ownerID, "bad pattern", 1,
		rules.Conditions{DescriptionPattern: "("},
		rules.Action{Type: rules.ActionMatchCustomer, TargetID: targetID},
	)
	assert.True(t, feederr.IsValidation(err))

	listed, err := svc.ListRules(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, rule.ID, listed[0].ID)

	require.NoError(t, svc.DeleteRule(ctx, ownerID, rule.ID))
	err = svc.DeleteRule(ctx, ownerID, rule.ID)
	assert.True(t, feederr.IsNotFound(err))
}
