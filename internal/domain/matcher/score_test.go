package matcher

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestScoreName_WholeNameInDescription(t *testing.T) {
	// The full candidate name appears verbatim once normalized.
	score := ScoreName("PAYMENT FROM JOHN DOE ENTERPRISES", "John Doe Enterprises")
	assert.Equal(t, 0.9, score)
}

func TestScoreName_PartialTokenOverlap(t *testing.T) {
	// 2 of 3 qualifying words (john, doe, enterprises) appear.
	score := ScoreName("PYMT JOHN DOE", "John Doe Enterprises")
	assert.InDelta(t, 2.0/3.0*0.7, score, 0.001)
}

func TestScoreName_TruncatedToken(t *testing.T) {
	// Banks truncate payee names; containment in either direction counts.
	score := ScoreName("TRF ENTERPRIS", "Enterprises Ltd")
	assert.InDelta(t, 0.5*0.7, score, 0.001)
}

func TestScoreName_NoQualifyingWords(t *testing.T) {
	// Candidate words of length <= 2 never qualify.
	assert.Equal(t, 0.0, ScoreName("PAYMENT AB CD", "AB CD"))
}

func TestScoreName_NoOverlap(t *testing.T) {
	assert.Equal(t, 0.0, ScoreName("ATM WITHDRAWAL", "Acme Corporation"))
}

func TestScoreName_EmptyInputs(t *testing.T) {
	assert.Equal(t, 0.0, ScoreName("", "Acme"))
	assert.Equal(t, 0.0, ScoreName("PAYMENT", ""))
}

func TestScoreName_Asymmetry(t *testing.T) {
	// Description containing the name scores high; the reverse direction
	// relies on token overlap only.
	assert.Equal(t, 0.9, ScoreName("PAYMENT ACME CORP REF 1", "Acme Corp"))
	assert.Less(t, ScoreName("ACME", "Acme Corp Holdings International"), 0.9)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestScoreAmount_Exact(t *testing.T) {
	for _, amount := range []string{"0", "0.01", "1500.00", "999999.99"} {
		assert.Equal(t, 1.0, ScoreAmount(d(amount), d(amount)), "amount %s", amount)
	}
}

func TestScoreAmount_Tiers(t *testing.T) {
	tests := []struct {
		name string
		tx   string
		doc  string
		want float64
	}{
		// tolerance = 1% of max(tx, doc)
		{"within tolerance", "1000", "1009", 0.95},
		{"at tolerance boundary", "1000", "1010.10", 0.95},
		{"within 5x tolerance", "1000", "1040", 0.7},
		{"beyond 5x tolerance", "1000", "1200", 0},
		{"far off", "1000", "2000", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreAmount(d(tt.tx), d(tt.doc)))
		})
	}
}

func TestScoreAmount_ZeroTolerance(t *testing.T) {
	// Both zero: only exact equality qualifies.
	assert.Equal(t, 1.0, ScoreAmount(d("0"), d("0")))
	assert.Equal(t, 0.0, ScoreAmount(d("0"), d("0.01")))
}

func TestScoreAmount_IgnoresSign(t *testing.T) {
	assert.Equal(t, 1.0, ScoreAmount(d("-100"), d("100")))
}
