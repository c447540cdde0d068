// Package matcher provides the scoring primitives used to link bank
// statement lines to business entities.
//
// Two signals are scored independently and combined by the caller:
//   - Name similarity between a statement description and an entity name
//   - Amount closeness between a statement line and an open document total
//
// Both scorers return a confidence in [0,1] and are pure functions;
// the thresholds for acting on a score live in Config.
//
// Example usage:
//
//	cfg := matcher.DefaultConfig()
//	score := matcher.ScoreName("PAYMENT FROM ACME CORP", "Acme Corp")
//	if score > cfg.NameThreshold {
//		// candidate worth suggesting
//	}
package matcher

// Config holds the thresholds that govern when a score is acted upon.
type Config struct {
	// NameThreshold is the minimum name score for a customer/vendor
	// suggestion to be emitted.
	NameThreshold float64

	// AmountThreshold is the minimum amount score for an invoice/bill
	// suggestion to be emitted.
	AmountThreshold float64

	// AutoSuggestThreshold is the minimum name score for the auto-match
	// pass to promote a transaction to suggested without user input.
	AutoSuggestThreshold float64

	// MaxSuggestions caps the ranked suggestion list.
	MaxSuggestions int
}

// DefaultConfig returns the thresholds used in production.
func DefaultConfig() Config {
	return Config{
		NameThreshold:        0.3,
		AmountThreshold:      0.7,
		AutoSuggestThreshold: 0.6,
		MaxSuggestions:       5,
	}
}
