package fees

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

// MatchKind describes how an invoice was selected for a transaction
type MatchKind string

const (
	MatchKindExact     MatchKind = "EXACT"     // Amount equals the invoice balance
	MatchKindTolerance MatchKind = "TOLERANCE" // Closest balance within the tolerance window
)

// MatchResult is the outcome of running the matcher over a student's open
// invoices. A nil Invoice means no candidate was acceptable and the
// transaction should be left unmatched.
type MatchResult struct {
	Invoice *Invoice
	Kind    MatchKind
	Delta   decimal.Decimal // absolute difference between amount and balance
}

// Matched returns true if an invoice was selected
func (r MatchResult) Matched() bool {
	return r.Invoice != nil
}

// Note returns a short audit description of the match for the transaction record
func (r MatchResult) Note() string {
	if !r.Matched() {
		return "no open invoice within tolerance"
	}
	if r.Kind == MatchKindExact {
		return fmt.Sprintf("exact balance match on %s", r.Invoice.InvoiceNumber)
	}
	return fmt.Sprintf("tolerance match on %s (delta %s)", r.Invoice.InvoiceNumber, r.Delta.StringFixed(2))
}

// InvoiceMatcher selects the best open invoice for an inbound payment
// amount. An exact balance match always wins; failing that, the closest
// balance within the tolerance window is accepted. Beyond the window the
// matcher refuses to guess.
//
// The tolerance fallback can pick the wrong invoice when two students share
// a guardian and carry similar balances, so every fallback match is flagged
// in the result for audit.
type InvoiceMatcher struct {
	tolerance decimal.Decimal
}

// DefaultMatchTolerance is the widest acceptable distance between a payment
// amount and an invoice balance for a fallback match, in currency units.
var DefaultMatchTolerance = decimal.NewFromInt(100)

// NewInvoiceMatcher creates a matcher with the given tolerance window.
// A negative tolerance is rejected; zero disables the fallback entirely.
func NewInvoiceMatcher(tolerance decimal.Decimal) (*InvoiceMatcher, error) {
	if tolerance.IsNegative() {
		return nil, shared.NewDomainError("INVALID_TOLERANCE", "Match tolerance cannot be negative")
	}
	return &InvoiceMatcher{tolerance: tolerance}, nil
}

// Tolerance returns the configured tolerance window
func (m *InvoiceMatcher) Tolerance() decimal.Decimal {
	return m.tolerance
}

// Match selects the best invoice for the amount among the candidates.
// Candidates that are not open for payment are skipped. Ties on delta are
// broken by the earlier due date, then the earlier creation time, so the
// result is deterministic for a given candidate set.
func (m *InvoiceMatcher) Match(amount valueobject.Money, candidates []*Invoice) MatchResult {
	open := make([]*Invoice, 0, len(candidates))
	for _, inv := range candidates {
		if inv.Status.IsOpen() && inv.Balance.GreaterThan(decimal.Zero) {
			open = append(open, inv)
		}
	}
	if len(open) == 0 {
		return MatchResult{}
	}

	sort.Slice(open, func(i, j int) bool {
		if !open[i].DueDate.Equal(open[j].DueDate) {
			return open[i].DueDate.Before(open[j].DueDate)
		}
		return open[i].CreatedAt.Before(open[j].CreatedAt)
	})

	// Exact match first
	for _, inv := range open {
		if inv.Balance.Equal(amount.Amount()) {
			return MatchResult{Invoice: inv, Kind: MatchKindExact, Delta: decimal.Zero}
		}
	}

	if m.tolerance.IsZero() {
		return MatchResult{}
	}

	// Closest balance within the tolerance window. The payment must also
	// fit the balance, otherwise applying it would overpay the invoice.
	var best *Invoice
	var bestDelta decimal.Decimal
	for _, inv := range open {
		delta := inv.Balance.Sub(amount.Amount()).Abs()
		if delta.GreaterThan(m.tolerance) {
			continue
		}
		if amount.Amount().GreaterThan(inv.Balance) {
			continue
		}
		if best == nil || delta.LessThan(bestDelta) {
			best = inv
			bestDelta = delta
		}
	}
	if best == nil {
		return MatchResult{}
	}
	return MatchResult{Invoice: best, Kind: MatchKindTolerance, Delta: bestDelta}
}
