// Package rules implements user-defined matching rules and the engine that
// evaluates them against bank transactions.
//
// Rules are deterministic overrides that sit in front of heuristic scoring:
// the first rule (by ascending priority) whose conditions all hold decides
// the transaction, and later rules are never consulted. Conditions are
// conjunctive; a condition absent from a rule is vacuously satisfied.
//
// Rules are validated once at creation time, including regex compilation,
// so a batch pass never re-validates or re-compiles per transaction.
package rules

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hazlijohar95/bankfeed/internal/domain/matcher"
	"github.com/hazlijohar95/bankfeed/pkg/feederr"
)

// ActionType identifies what a matched rule does to the transaction.
type ActionType string

const (
	ActionMatchCustomer ActionType = "match_customer"
	ActionMatchVendor   ActionType = "match_vendor"
	ActionCategorize    ActionType = "categorize"
)

// amountExactEpsilon absorbs float noise in user-entered exact amounts.
var amountExactEpsilon = decimal.NewFromFloat(0.01)

// Conditions is the conjunctive condition set of a rule. Nil/empty fields
// are not evaluated. DescriptionContains is OR'd internally.
type Conditions struct {
	DescriptionContains []string         `json:"description_contains,omitempty"`
	DescriptionPattern  string           `json:"description_pattern,omitempty"`
	AmountMin           *decimal.Decimal `json:"amount_min,omitempty"`
	AmountMax           *decimal.Decimal `json:"amount_max,omitempty"`
	AmountExact         *decimal.Decimal `json:"amount_exact,omitempty"`
	TransactionType     string           `json:"transaction_type,omitempty"`

	// compiled form of DescriptionPattern, populated by Validate
	pattern *regexp.Regexp
}

// Action is what a rule applies when it fires.
type Action struct {
	Type     ActionType `json:"type"`
	TargetID uuid.UUID  `json:"target_id"`
}

// Rule is a user-authored, priority-ordered matching override. Lower
// priority values are evaluated first. The engine never mutates rules.
type Rule struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Priority   int        `json:"priority"`
	Conditions Conditions `json:"conditions"`
	Action     Action     `json:"action"`
}

// Subject is the view of a bank transaction a rule is evaluated against.
type Subject struct {
	Description string
	Amount      decimal.Decimal
	Type        string // "deposit" or "withdrawal"
}

// Validate checks the rule once, at creation/load time. It compiles the
// description pattern so evaluation is allocation-free, and rejects
// malformed actions and inverted amount ranges with field-level detail.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return feederr.Validation("rule name is required").WithField("name", "required")
	}

	switch r.Action.Type {
	case ActionMatchCustomer, ActionMatchVendor, ActionCategorize:
	default:
		return feederr.Validation("unknown rule action type %q", r.Action.Type).
			WithField("action.type", r.Action.Type)
	}
	if r.Action.TargetID == uuid.Nil {
		return feederr.Validation("rule action target is required").
			WithField("action.target_id", "required")
	}

	c := &r.Conditions
	if c.DescriptionPattern != "" {
		pattern, err := regexp.Compile(c.DescriptionPattern)
		if err != nil {
			return feederr.Validation("invalid description pattern: %v", err).
				WithField("conditions.description_pattern", c.DescriptionPattern)
		}
		c.pattern = pattern
	}
	if c.AmountMin != nil && c.AmountMin.IsNegative() {
		return feederr.Validation("amount_min must not be negative").
			WithField("conditions.amount_min", c.AmountMin.String())
	}
	if c.AmountMin != nil && c.AmountMax != nil && c.AmountMin.GreaterThan(*c.AmountMax) {
		return feederr.Validation("amount_min exceeds amount_max").
			WithField("conditions.amount_min", c.AmountMin.String()).
			WithField("conditions.amount_max", c.AmountMax.String())
	}
	if c.TransactionType != "" && c.TransactionType != "deposit" && c.TransactionType != "withdrawal" {
		return feederr.Validation("unknown transaction type %q", c.TransactionType).
			WithField("conditions.transaction_type", c.TransactionType)
	}

	return nil
}

// UnmarshalConditions decodes a stored JSON condition blob and re-compiles
// the pattern. Stored rules were validated at creation, so a compile error
// here means the stored data was tampered with or corrupted.
func UnmarshalConditions(data []byte) (Conditions, error) {
	var c Conditions
	if err := json.Unmarshal(data, &c); err != nil {
		return Conditions{}, feederr.Wrap(err, feederr.CategoryValidation, "malformed rule conditions")
	}
	if c.DescriptionPattern != "" {
		pattern, err := regexp.Compile(c.DescriptionPattern)
		if err != nil {
			return Conditions{}, feederr.Wrap(err, feederr.CategoryValidation, "stored rule pattern no longer compiles")
		}
		c.pattern = pattern
	}
	return c, nil
}

// matches reports whether every present condition holds for the subject.
func (c *Conditions) matches(subject Subject) bool {
	if len(c.DescriptionContains) > 0 {
		desc := matcher.Normalize(subject.Description)
		any := false
		for _, term := range c.DescriptionContains {
			if t := matcher.Normalize(term); t != "" && strings.Contains(desc, t) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}

	if c.pattern != nil && !c.pattern.MatchString(subject.Description) {
		return false
	}

	amount := subject.Amount.Abs()
	if c.AmountMin != nil && amount.LessThan(*c.AmountMin) {
		return false
	}
	if c.AmountMax != nil && amount.GreaterThan(*c.AmountMax) {
		return false
	}
	if c.AmountExact != nil && amount.Sub(*c.AmountExact).Abs().GreaterThan(amountExactEpsilon) {
		return false
	}

	if c.TransactionType != "" && c.TransactionType != subject.Type {
		return false
	}

	return true
}
