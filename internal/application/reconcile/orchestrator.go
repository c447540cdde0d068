package reconcile

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/hazlijohar95/bankfeed/internal/domain/rules"
	"github.com/hazlijohar95/bankfeed/internal/domain/suggest"
	"github.com/hazlijohar95/bankfeed/internal/infrastructure/storage"
	"github.com/hazlijohar95/bankfeed/pkg/feederr"
)

// AutoMatchResult summarizes one auto-match pass.
type AutoMatchResult struct {
	TotalProcessed int `json:"total_processed"`
	MatchedCount   int `json:"matched_count"`
	SuggestedCount int `json:"suggested_count"`
	FailedCount    int `json:"failed_count"`
}

// RunAutoMatch sweeps the owner's unmatched transactions. Each transaction is
// first evaluated against the owner's rules; a satisfied rule matches it
// outright at full confidence. Transactions no rule claims are scored against
// the directory, and the best name-based candidate above the auto-suggest
// threshold becomes a suggestion for review. Per-transaction failures are
// counted and skipped so one bad row never aborts the sweep; cancelling the
// context stops between transactions and returns the partial result.
func (s *Service) RunAutoMatch(ctx context.Context, ownerID uuid.UUID, accountID *uuid.UUID) (*AutoMatchResult, error) {
	unmatched, err := s.repo.ListUnmatched(ownerID, accountID)
	if err != nil {
		return nil, feederr.Wrap(err, feederr.CategoryLookup, "loading unmatched transactions")
	}

	ruleRows, err := s.repo.ListRules(ownerID)
	if err != nil {
		return nil, feederr.Wrap(err, feederr.CategoryLookup, "loading rules")
	}
	ruleSet := lo.Map(ruleRows, func(r storage.MatchingRule, _ int) rules.Rule { return r.Rule() })

	// Load both corpus sides once up front instead of per transaction.
	depositDirs, err := s.loadDirectories(ownerID, storage.TypeDeposit)
	if err != nil {
		return nil, err
	}
	withdrawalDirs, err := s.loadDirectories(ownerID, storage.TypeWithdrawal)
	if err != nil {
		return nil, err
	}

	result := &AutoMatchResult{}
	for _, tx := range unmatched {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.TotalProcessed++

		state, ok := s.decideMatch(tx, ruleSet, depositDirs, withdrawalDirs)
		if !ok {
			continue
		}

		if _, err := s.repo.UpdateMatchState(ownerID, tx.ID, storage.StatusUnmatched, state); err != nil {
			s.logger.Error("auto-match update failed",
				"transaction_id", tx.ID,
				"owner_id", ownerID,
				"error", err,
			)
			result.FailedCount++
			continue
		}

		if state.Status == storage.StatusMatched {
			result.MatchedCount++
		} else {
			result.SuggestedCount++
		}
	}

	s.logger.Info("auto-match pass completed",
		"owner_id", ownerID,
		"processed", result.TotalProcessed,
		"matched", result.MatchedCount,
		"suggested", result.SuggestedCount,
		"failed", result.FailedCount,
	)
	return result, nil
}

// decideMatch picks the outcome for one unmatched transaction. Rules win over
// scoring; among scored candidates only the highest-confidence name match
// qualifies, and only above the auto-suggest threshold.
func (s *Service) decideMatch(tx *storage.BankTransaction, ruleSet []rules.Rule, depositDirs, withdrawalDirs suggest.Directories) (storage.MatchState, bool) {
	subject := rules.Subject{
		Description: tx.Description,
		Amount:      tx.Amount,
		Type:        string(tx.Type),
	}

	// Rules whose action contradicts the transaction's direction are skipped
	// rather than failed: a customer-matching rule simply has nothing to say
	// about a withdrawal.
	applicable := lo.Filter(ruleSet, func(r rules.Rule, _ int) bool {
		return ruleApplies(r, tx.Type)
	})
	if rule, ok := rules.FirstMatch(subject, applicable); ok {
		return ruleState(rule, tx.Type), true
	}

	dirs := depositDirs
	if tx.Type == storage.TypeWithdrawal {
		dirs = withdrawalDirs
	}
	// Only party names qualify for auto-promotion. Score the party side
	// alone: in the full corpus, document amount candidates can fill the
	// suggestion cap and evict every name candidate.
	suggestions := suggest.Generate(suggest.Subject{
		Description: tx.Description,
		Amount:      tx.Amount,
		Type:        string(tx.Type),
	}, suggest.Directories{
		Customers: dirs.Customers,
		Vendors:   dirs.Vendors,
	}, s.cfg)

	if len(suggestions) > 0 && suggestions[0].Confidence > s.cfg.AutoSuggestThreshold {
		best := suggestions[0]
		confidence := best.Confidence
		state := storage.MatchState{
			Status:     storage.StatusSuggested,
			Confidence: &confidence,
		}
		targetID := best.TargetID
		if best.Type == suggest.CandidateCustomer {
			state.CustomerID = &targetID
		} else {
			state.VendorID = &targetID
		}
		return state, true
	}

	return storage.MatchState{}, false
}

func ruleApplies(r rules.Rule, txType storage.TransactionType) bool {
	switch r.Action.Type {
	case rules.ActionMatchCustomer:
		return txType == storage.TypeDeposit
	case rules.ActionMatchVendor:
		return txType == storage.TypeWithdrawal
	default:
		return true
	}
}

// ruleState builds the matched state a satisfied rule produces. Rule matches
// carry full confidence.
func ruleState(rule *rules.Rule, txType storage.TransactionType) storage.MatchState {
	confidence := 1.0
	state := storage.MatchState{
		Status:     storage.StatusMatched,
		Confidence: &confidence,
	}
	targetID := rule.Action.TargetID
	switch rule.Action.Type {
	case rules.ActionMatchCustomer:
		state.CustomerID = &targetID
	case rules.ActionMatchVendor:
		state.VendorID = &targetID
	case rules.ActionCategorize:
		state.CategoryID = &targetID
	}
	return state
}
