package fees

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

func matcherInvoice(t *testing.T, number string, total int64, due time.Time) *Invoice {
	t.Helper()
	inv, err := NewInvoice(
		uuid.New(), number, uuid.New(), uuid.New(),
		valueobject.NewMoneyKES(decimal.NewFromInt(total)),
		due, nil,
	)
	require.NoError(t, err)
	return inv
}

func TestNewInvoiceMatcher(t *testing.T) {
	t.Run("rejects negative tolerance", func(t *testing.T) {
		_, err := NewInvoiceMatcher(decimal.NewFromInt(-1))
		assert.Error(t, err)
	})
}

func TestInvoiceMatcher_Match(t *testing.T) {
	due := time.Now().Add(14 * 24 * time.Hour)

	newMatcher := func(t *testing.T) *InvoiceMatcher {
		m, err := NewInvoiceMatcher(DefaultMatchTolerance)
		require.NoError(t, err)
		return m
	}

	t.Run("exact balance match wins", func(t *testing.T) {
		a := matcherInvoice(t, "INV-A", 5000, due)
		b := matcherInvoice(t, "INV-B", 4950, due)

		res := newMatcher(t).Match(valueobject.NewMoneyKES(decimal.NewFromInt(4950)), []*Invoice{a, b})

		require.True(t, res.Matched())
		assert.Equal(t, MatchKindExact, res.Kind)
		assert.Equal(t, "INV-B", res.Invoice.InvoiceNumber)
	})

	t.Run("tolerance fallback picks closest balance", func(t *testing.T) {
		a := matcherInvoice(t, "INV-A", 5000, due)

		res := newMatcher(t).Match(valueobject.NewMoneyKES(decimal.NewFromInt(4950)), []*Invoice{a})

		require.True(t, res.Matched())
		assert.Equal(t, MatchKindTolerance, res.Kind)
		assert.True(t, res.Delta.Equal(decimal.NewFromInt(50)))
	})

	t.Run("tolerance match leaves the remainder outstanding", func(t *testing.T) {
		a := matcherInvoice(t, "INV-A", 5000, due)

		res := newMatcher(t).Match(valueobject.NewMoneyKES(decimal.NewFromInt(4950)), []*Invoice{a})
		require.True(t, res.Matched())

		require.NoError(t, res.Invoice.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(4950))))
		assert.True(t, res.Invoice.Balance.Equal(decimal.NewFromInt(50)))
	})

	t.Run("no match beyond the tolerance window", func(t *testing.T) {
		a := matcherInvoice(t, "INV-A", 5000, due)

		res := newMatcher(t).Match(valueobject.NewMoneyKES(decimal.NewFromInt(4800)), []*Invoice{a})
		assert.False(t, res.Matched())
	})

	t.Run("never selects an invoice the amount would overpay", func(t *testing.T) {
		a := matcherInvoice(t, "INV-A", 5000, due)

		res := newMatcher(t).Match(valueobject.NewMoneyKES(decimal.NewFromInt(5050)), []*Invoice{a})
		assert.False(t, res.Matched())
	})

	t.Run("skips paid and cancelled invoices", func(t *testing.T) {
		paid := matcherInvoice(t, "INV-A", 3000, due)
		require.NoError(t, paid.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(3000))))
		cancelled := matcherInvoice(t, "INV-B", 3000, due)
		require.NoError(t, cancelled.Cancel("withdrawn"))

		res := newMatcher(t).Match(valueobject.NewMoneyKES(decimal.NewFromInt(3000)), []*Invoice{paid, cancelled})
		assert.False(t, res.Matched())
	})

	t.Run("matches against remaining balance of a partial invoice", func(t *testing.T) {
		a := matcherInvoice(t, "INV-A", 5000, due)
		require.NoError(t, a.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(2000))))

		res := newMatcher(t).Match(valueobject.NewMoneyKES(decimal.NewFromInt(3000)), []*Invoice{a})
		require.True(t, res.Matched())
		assert.Equal(t, MatchKindExact, res.Kind)
	})

	t.Run("tie on exact match broken by earlier due date", func(t *testing.T) {
		later := matcherInvoice(t, "INV-LATER", 5000, due.Add(30*24*time.Hour))
		earlier := matcherInvoice(t, "INV-EARLIER", 5000, due)

		res := newMatcher(t).Match(valueobject.NewMoneyKES(decimal.NewFromInt(5000)), []*Invoice{later, earlier})
		require.True(t, res.Matched())
		assert.Equal(t, "INV-EARLIER", res.Invoice.InvoiceNumber)
	})

	t.Run("zero tolerance disables the fallback", func(t *testing.T) {
		m, err := NewInvoiceMatcher(decimal.Zero)
		require.NoError(t, err)
		a := matcherInvoice(t, "INV-A", 5000, due)

		res := m.Match(valueobject.NewMoneyKES(decimal.NewFromInt(4999)), []*Invoice{a})
		assert.False(t, res.Matched())
	})

	t.Run("empty candidate list", func(t *testing.T) {
		res := newMatcher(t).Match(valueobject.NewMoneyKES(decimal.NewFromInt(100)), nil)
		assert.False(t, res.Matched())
	})
}
