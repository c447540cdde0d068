package reconcile

import (
	"github.com/google/uuid"

	"github.com/hazlijohar95/bankfeed/internal/infrastructure/storage"
	"github.com/hazlijohar95/bankfeed/pkg/feederr"
)

// MatchTarget names what a transaction should be matched against. Exactly one
// of the customer/vendor/invoice/bill ids must be set; the category is an
// optional extra on top of any match.
type MatchTarget struct {
	CustomerID *uuid.UUID
	VendorID   *uuid.UUID
	InvoiceID  *uuid.UUID
	BillID     *uuid.UUID
	CategoryID *uuid.UUID
	Confidence float64
}

func (t MatchTarget) primaryCount() int {
	count := 0
	for _, id := range []*uuid.UUID{t.CustomerID, t.VendorID, t.InvoiceID, t.BillID} {
		if id != nil {
			count++
		}
	}
	return count
}

// validateDirection enforces that money flowing in is matched against the
// receivables side and money flowing out against the payables side.
func validateDirection(txType storage.TransactionType, target MatchTarget) error {
	switch txType {
	case storage.TypeDeposit:
		if target.VendorID != nil || target.BillID != nil {
			return feederr.Validation("a deposit can only be matched to a customer or invoice")
		}
	case storage.TypeWithdrawal:
		if target.CustomerID != nil || target.InvoiceID != nil {
			return feederr.Validation("a withdrawal can only be matched to a vendor or bill")
		}
	default:
		return feederr.Validation("unknown transaction type").WithField("type", string(txType))
	}
	return nil
}

// resolveTarget validates the target against the transaction's direction,
// verifies the referenced records exist for this owner, and back-fills the
// party id when the target is a document.
func (s *Service) resolveTarget(ownerID uuid.UUID, tx *storage.BankTransaction, target MatchTarget) (storage.MatchState, error) {
	if target.primaryCount() != 1 {
		return storage.MatchState{}, feederr.Validation("exactly one match target must be provided")
	}
	if err := validateDirection(tx.Type, target); err != nil {
		return storage.MatchState{}, err
	}
	if target.Confidence < 0 || target.Confidence > 1 {
		return storage.MatchState{}, feederr.Validation("confidence must be between 0 and 1")
	}

	state := storage.MatchState{
		Status:     storage.StatusMatched,
		CategoryID: target.CategoryID,
	}
	confidence := target.Confidence
	state.Confidence = &confidence

	switch {
	case target.InvoiceID != nil:
		doc, err := s.repo.GetInvoice(ownerID, *target.InvoiceID)
		if err != nil {
			return storage.MatchState{}, err
		}
		state.InvoiceID = target.InvoiceID
		state.CustomerID = &doc.PartyID
	case target.BillID != nil:
		doc, err := s.repo.GetBill(ownerID, *target.BillID)
		if err != nil {
			return storage.MatchState{}, err
		}
		state.BillID = target.BillID
		state.VendorID = &doc.PartyID
	case target.CustomerID != nil:
		if _, err := s.repo.GetCustomer(ownerID, *target.CustomerID); err != nil {
			return storage.MatchState{}, err
		}
		state.CustomerID = target.CustomerID
	case target.VendorID != nil:
		if _, err := s.repo.GetVendor(ownerID, *target.VendorID); err != nil {
			return storage.MatchState{}, err
		}
		state.VendorID = target.VendorID
	}

	if target.CategoryID != nil {
		if _, err := s.repo.GetCategory(ownerID, *target.CategoryID); err != nil {
			return storage.MatchState{}, err
		}
	}

	return state, nil
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// sameTarget reports whether two states point at the same records. Confidence
// is deliberately ignored so re-applying an identical match is a no-op.
func sameTarget(a, b storage.MatchState) bool {
	return uuidPtrEqual(a.CustomerID, b.CustomerID) &&
		uuidPtrEqual(a.VendorID, b.VendorID) &&
		uuidPtrEqual(a.InvoiceID, b.InvoiceID) &&
		uuidPtrEqual(a.BillID, b.BillID) &&
		uuidPtrEqual(a.CategoryID, b.CategoryID)
}
