// Package reconcile implements the bank-feed matching workflow: generating
// suggestions for imported transactions, applying and unwinding matches, and
// running the rule-driven auto-match pass over a feed.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hazlijohar95/bankfeed/internal/domain/matcher"
	"github.com/hazlijohar95/bankfeed/internal/domain/rules"
	"github.com/hazlijohar95/bankfeed/internal/domain/suggest"
	"github.com/hazlijohar95/bankfeed/internal/infrastructure/storage"
	"github.com/hazlijohar95/bankfeed/pkg/feederr"
)

// Service coordinates the matching workflow on top of the repository.
type Service struct {
	repo   storage.Repository
	cfg    matcher.Config
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a reconciliation service. A zero matcher.Config is
// replaced with the defaults.
func NewService(repo storage.Repository, cfg matcher.Config, logger *slog.Logger) *Service {
	if cfg == (matcher.Config{}) {
		cfg = matcher.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// loadDirectories fetches the candidate corpus for one direction. Deposits
// are matched against customers and open invoices, withdrawals against
// vendors and open bills.
func (s *Service) loadDirectories(ownerID uuid.UUID, txType storage.TransactionType) (suggest.Directories, error) {
	var dirs suggest.Directories

	if txType == storage.TypeDeposit {
		customers, err := s.repo.ListCustomers(ownerID)
		if err != nil {
			return dirs, feederr.Wrap(err, feederr.CategoryLookup, "loading customers")
		}
		invoices, err := s.repo.ListOpenInvoices(ownerID)
		if err != nil {
			return dirs, feederr.Wrap(err, feederr.CategoryLookup, "loading open invoices")
		}
		for _, c := range customers {
			dirs.Customers = append(dirs.Customers, suggest.Party{ID: c.ID, Name: c.Name})
		}
		for _, inv := range invoices {
			dirs.Invoices = append(dirs.Invoices, suggest.OpenDocument{
				ID: inv.ID, PartyID: inv.PartyID, Number: inv.Number, Total: inv.Total,
			})
		}
		return dirs, nil
	}

	vendors, err := s.repo.ListVendors(ownerID)
	if err != nil {
		return dirs, feederr.Wrap(err, feederr.CategoryLookup, "loading vendors")
	}
	bills, err := s.repo.ListOpenBills(ownerID)
	if err != nil {
		return dirs, feederr.Wrap(err, feederr.CategoryLookup, "loading open bills")
	}
	for _, v := range vendors {
		dirs.Vendors = append(dirs.Vendors, suggest.Party{ID: v.ID, Name: v.Name})
	}
	for _, b := range bills {
		dirs.Bills = append(dirs.Bills, suggest.OpenDocument{
			ID: b.ID, PartyID: b.PartyID, Number: b.Number, Total: b.Total,
		})
	}
	return dirs, nil
}

// GetSuggestions scores the owner's directory against one transaction and
// returns ranked candidates. The transaction itself is not modified.
func (s *Service) GetSuggestions(ctx context.Context, ownerID, txID uuid.UUID) ([]suggest.Suggestion, error) {
	tx, err := s.repo.GetTransaction(ownerID, txID)
	if err != nil {
		return nil, err
	}
	if tx.MatchStatus == storage.StatusExcluded {
		return nil, feederr.Conflict("excluded transactions have no suggestions")
	}

	dirs, err := s.loadDirectories(ownerID, tx.Type)
	if err != nil {
		return nil, err
	}

	return suggest.Generate(suggest.Subject{
		Description: tx.Description,
		Amount:      tx.Amount,
		Type:        string(tx.Type),
	}, dirs, s.cfg), nil
}

// ApplyMatch matches a transaction to the given target. Re-applying the same
// target is a no-op; matching an already-matched transaction to a different
// target is a conflict and requires an explicit unmatch first.
func (s *Service) ApplyMatch(ctx context.Context, ownerID, txID uuid.UUID, target MatchTarget) (*storage.BankTransaction, error) {
	tx, err := s.repo.GetTransaction(ownerID, txID)
	if err != nil {
		return nil, err
	}
	if tx.IsReconciled {
		return nil, feederr.Conflict("reconciled transactions cannot be rematched")
	}
	if tx.MatchStatus == storage.StatusExcluded {
		return nil, feederr.Conflict("excluded transactions cannot be matched")
	}

	state, err := s.resolveTarget(ownerID, tx, target)
	if err != nil {
		return nil, err
	}

	if tx.MatchStatus == storage.StatusMatched {
		if sameTarget(storage.MatchStateOf(tx), state) {
			return tx, nil
		}
		return nil, feederr.Conflict("transaction is already matched to a different record")
	}

	updated, err := s.repo.UpdateMatchState(ownerID, txID, tx.MatchStatus, state)
	if err != nil {
		return nil, err
	}
	s.logger.Info("transaction matched",
		"transaction_id", txID,
		"owner_id", ownerID,
		"confidence", target.Confidence,
	)
	return updated, nil
}

// AcceptSuggestion promotes a suggested transaction to matched, keeping the
// suggested target and confidence.
func (s *Service) AcceptSuggestion(ctx context.Context, ownerID, txID uuid.UUID) (*storage.BankTransaction, error) {
	tx, err := s.repo.GetTransaction(ownerID, txID)
	if err != nil {
		return nil, err
	}
	if tx.MatchStatus != storage.StatusSuggested {
		return nil, feederr.Conflict("transaction status is %s, expected %s", tx.MatchStatus, storage.StatusSuggested)
	}

	state := storage.MatchStateOf(tx)
	state.Status = storage.StatusMatched
	return s.repo.UpdateMatchState(ownerID, txID, storage.StatusSuggested, state)
}

// RejectSuggestion returns a suggested or matched transaction to unmatched,
// clearing every match field. Reconciled transactions cannot be unwound.
func (s *Service) RejectSuggestion(ctx context.Context, ownerID, txID uuid.UUID) (*storage.BankTransaction, error) {
	tx, err := s.repo.GetTransaction(ownerID, txID)
	if err != nil {
		return nil, err
	}
	if tx.IsReconciled {
		return nil, feederr.Conflict("reconciled transactions cannot be unmatched")
	}
	if tx.MatchStatus != storage.StatusSuggested && tx.MatchStatus != storage.StatusMatched {
		return nil, feederr.Conflict("transaction status is %s, nothing to reject", tx.MatchStatus)
	}

	return s.repo.UpdateMatchState(ownerID, txID, tx.MatchStatus, storage.MatchState{
		Status: storage.StatusUnmatched,
	})
}

// Exclude removes a transaction from the matching workflow. Only unmatched
// and suggested transactions can be excluded; matched ones must be rejected
// first so the unwind is explicit.
func (s *Service) Exclude(ctx context.Context, ownerID, txID uuid.UUID) (*storage.BankTransaction, error) {
	tx, err := s.repo.GetTransaction(ownerID, txID)
	if err != nil {
		return nil, err
	}
	if tx.MatchStatus != storage.StatusUnmatched && tx.MatchStatus != storage.StatusSuggested {
		return nil, feederr.Conflict("transaction status is %s, cannot exclude", tx.MatchStatus)
	}

	return s.repo.UpdateMatchState(ownerID, txID, tx.MatchStatus, storage.MatchState{
		Status: storage.StatusExcluded,
	})
}

// Reconcile marks a matched transaction as reconciled against the books.
func (s *Service) Reconcile(ctx context.Context, ownerID, txID uuid.UUID) (*storage.BankTransaction, error) {
	return s.repo.SetReconciled(ownerID, txID, s.now())
}

// CreateRule validates and persists a matching rule for the owner.
func (s *Service) CreateRule(ctx context.Context, ownerID uuid.UUID, name string, priority int, conditions rules.Conditions, action rules.Action) (*storage.MatchingRule, error) {
	rule := &storage.MatchingRule{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Name:       name,
		Priority:   priority,
		Conditions: conditions,
		Action:     action,
		CreatedAt:  s.now(),
	}
	domainRule := rule.Rule()
	if err := domainRule.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.SaveRule(rule); err != nil {
		return nil, feederr.Wrap(err, feederr.CategoryPersistence, "saving rule")
	}
	return rule, nil
}

// ListRules returns the owner's rules in evaluation order.
func (s *Service) ListRules(ctx context.Context, ownerID uuid.UUID) ([]storage.MatchingRule, error) {
	return s.repo.ListRules(ownerID)
}

// DeleteRule removes a rule.
func (s *Service) DeleteRule(ctx context.Context, ownerID, ruleID uuid.UUID) error {
	return s.repo.DeleteRule(ownerID, ruleID)
}
