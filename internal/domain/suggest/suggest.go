// Package suggest produces ranked match candidates for a bank transaction
// by combining name and amount scoring across the customer/vendor/invoice/
// bill corpus.
//
// Suggestions are ephemeral: nothing here reads or writes match state.
// The caller decides whether a suggestion gets persisted.
package suggest

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hazlijohar95/bankfeed/internal/domain/matcher"
)

// CandidateType identifies what a suggestion points at.
type CandidateType string

const (
	CandidateCustomer CandidateType = "customer"
	CandidateVendor   CandidateType = "vendor"
	CandidateInvoice  CandidateType = "invoice"
	CandidateBill     CandidateType = "bill"
)

// Suggestion reasons surfaced to the user.
const (
	ReasonNameInDescription = "name appears in description"
	ReasonAmountExact       = "amount matches exactly"
	ReasonAmountClose       = "amount is close"
)

// Party is a customer or vendor directory entry.
type Party struct {
	ID   uuid.UUID
	Name string
}

// OpenDocument is an unpaid invoice or unsettled bill summary. Total is the
// document total derived by the documents collaborator from its line items.
type OpenDocument struct {
	ID      uuid.UUID
	PartyID uuid.UUID // customer for invoices, vendor for bills
	Number  string
	Total   decimal.Decimal
}

// Directories holds the candidate corpus fetched from the directory
// collaborators for one owner.
type Directories struct {
	Customers []Party
	Vendors   []Party
	Invoices  []OpenDocument
	Bills     []OpenDocument
}

// Subject is the transaction view being matched.
type Subject struct {
	Description string
	Amount      decimal.Decimal
	Type        string // "deposit" or "withdrawal"
}

// Suggestion is one scored candidate match.
type Suggestion struct {
	Type          CandidateType    `json:"type"`
	TargetID      uuid.UUID        `json:"target_id"`
	Name          string           `json:"name"`
	Confidence    float64          `json:"confidence"`
	Reason        string           `json:"reason"`
	MatchedAmount *decimal.Decimal `json:"matched_amount,omitempty"`
}

// IsNameBased reports whether the suggestion came from the name scorer.
// Only name-based candidates are eligible for auto-promotion.
func (s Suggestion) IsNameBased() bool {
	return s.Type == CandidateCustomer || s.Type == CandidateVendor
}

// Generate scores the directionally-valid side of the corpus against the
// transaction and returns suggestions sorted by descending confidence,
// capped at cfg.MaxSuggestions. Deposits are scored against customers and
// open invoices, withdrawals against vendors and open bills.
func Generate(subject Subject, dirs Directories, cfg matcher.Config) []Suggestion {
	parties := dirs.Customers
	documents := dirs.Invoices
	partyType, docType := CandidateCustomer, CandidateInvoice
	if subject.Type == "withdrawal" {
		parties = dirs.Vendors
		documents = dirs.Bills
		partyType, docType = CandidateVendor, CandidateBill
	}

	var out []Suggestion

	for _, p := range parties {
		score := matcher.ScoreName(subject.Description, p.Name)
		if score <= cfg.NameThreshold {
			continue
		}
		out = append(out, Suggestion{
			Type:       partyType,
			TargetID:   p.ID,
			Name:       p.Name,
			Confidence: score,
			Reason:     ReasonNameInDescription,
		})
	}

	for _, doc := range documents {
		score := matcher.ScoreAmount(subject.Amount, doc.Total)
		if score <= cfg.AmountThreshold {
			continue
		}
		reason := ReasonAmountClose
		if score > 0.9 {
			reason = ReasonAmountExact
		}
		total := doc.Total
		out = append(out, Suggestion{
			Type:          docType,
			TargetID:      doc.ID,
			Name:          doc.Number,
			Confidence:    score,
			Reason:        reason,
			MatchedAmount: &total,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})

	if cfg.MaxSuggestions > 0 && len(out) > cfg.MaxSuggestions {
		out = out[:cfg.MaxSuggestions]
	}

	return out
}
