package matcher

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Score constants. A verbatim whole-name hit outranks any partial token
// overlap, and partial overlap can never reach the whole-name score.
const (
	wholeNameScore   = 0.9
	tokenScoreScale  = 0.7
	minTokenLength   = 3
	exactAmountScore = 1.0
	closeAmountScore = 0.95
	nearAmountScore  = 0.7
)

// ScoreName scores how strongly a statement description points at a
// candidate entity name. Returns a confidence in [0,1].
//
// The comparison is deliberately asymmetric: it checks whether the
// description contains the candidate, not the reverse, because banks
// truncate and abbreviate payee names while the books hold the full name.
func ScoreName(description, candidate string) float64 {
	desc := Normalize(description)
	name := Normalize(candidate)

	if desc == "" || name == "" {
		return 0
	}

	if strings.Contains(desc, name) {
		return wholeNameScore
	}

	descTokens := strings.Fields(desc)

	// Partial containment per candidate word: "enterpris" in a truncated
	// statement still counts for "enterprises".
	var qualifying, matched int
	for _, word := range strings.Fields(name) {
		if len(word) < minTokenLength {
			continue
		}
		qualifying++
		for _, tok := range descTokens {
			if strings.Contains(tok, word) || strings.Contains(word, tok) {
				matched++
				break
			}
		}
	}

	if qualifying == 0 {
		return 0
	}

	return float64(matched) / float64(qualifying) * tokenScoreScale
}

// ScoreAmount scores how closely a transaction amount matches a document
// total, using a tolerance tiered on 1% of the larger amount. Returns a
// confidence in [0,1]. Signs are ignored; direction is handled elsewhere.
//
// When both amounts are zero the tolerance collapses to zero, so only the
// exact-equality tier can fire.
func ScoreAmount(txAmount, docAmount decimal.Decimal) float64 {
	tx := txAmount.Abs()
	doc := docAmount.Abs()

	diff := tx.Sub(doc).Abs()
	if diff.IsZero() {
		return exactAmountScore
	}

	tolerance := decimal.Max(tx, doc).Mul(decimal.NewFromFloat(0.01))
	switch {
	case diff.LessThanOrEqual(tolerance):
		return closeAmountScore
	case diff.LessThanOrEqual(tolerance.Mul(decimal.NewFromInt(5))):
		return nearAmountScore
	default:
		return 0
	}
}
