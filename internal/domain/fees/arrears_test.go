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

func arrearsInvoice(t *testing.T, total int64, due time.Time) *Invoice {
	t.Helper()
	inv, err := NewInvoice(
		uuid.New(), "INV-"+uuid.NewString()[:8], uuid.New(), uuid.New(),
		valueobject.NewMoneyKES(decimal.NewFromInt(total)),
		due, nil,
	)
	require.NoError(t, err)
	return inv
}

func TestComputeArrearsSnapshot(t *testing.T) {
	now := time.Now()

	t.Run("sums balances of past-due invoices only", func(t *testing.T) {
		overdue1 := arrearsInvoice(t, 5000, now.Add(-20*24*time.Hour))
		overdue2 := arrearsInvoice(t, 3000, now.Add(-5*24*time.Hour))
		current := arrearsInvoice(t, 9000, now.Add(10*24*time.Hour))

		snap := ComputeArrearsSnapshot([]*Invoice{overdue1, overdue2, current}, now)

		assert.True(t, snap.HasArrears())
		assert.True(t, snap.Total.Equal(decimal.NewFromInt(8000)))
		assert.Equal(t, 20, snap.DaysOutstanding)
		assert.Len(t, snap.InvoiceIDs, 2)
	})

	t.Run("partial payments reduce the arrears total", func(t *testing.T) {
		inv := arrearsInvoice(t, 5000, now.Add(-3*24*time.Hour))
		require.NoError(t, inv.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(2000))))

		snap := ComputeArrearsSnapshot([]*Invoice{inv}, now)
		assert.True(t, snap.Total.Equal(decimal.NewFromInt(3000)))
	})

	t.Run("paid invoices contribute nothing", func(t *testing.T) {
		inv := arrearsInvoice(t, 5000, now.Add(-3*24*time.Hour))
		require.NoError(t, inv.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(5000))))

		snap := ComputeArrearsSnapshot([]*Invoice{inv}, now)
		assert.False(t, snap.HasArrears())
	})

	t.Run("no invoices yields empty snapshot", func(t *testing.T) {
		snap := ComputeArrearsSnapshot(nil, now)
		assert.False(t, snap.HasArrears())
		assert.Equal(t, 0, snap.DaysOutstanding)
	})
}

func TestArrears(t *testing.T) {
	now := time.Now()
	schoolID := uuid.New()
	studentID := uuid.New()

	overdueSnap := func(total int64, days int) ArrearsSnapshot {
		inv := arrearsInvoice(t, total, now.Add(-time.Duration(days)*24*time.Hour))
		return ComputeArrearsSnapshot([]*Invoice{inv}, now)
	}

	t.Run("new arrears row is unresolved with the snapshot totals", func(t *testing.T) {
		a, err := NewArrears(schoolID, studentID, overdueSnap(5000, 10), now)
		require.NoError(t, err)

		assert.False(t, a.IsResolved)
		assert.True(t, a.TotalArrears.Equal(decimal.NewFromInt(5000)))
		assert.Equal(t, 10, a.DaysOutstanding)
	})

	t.Run("refuses to create a row without overdue balance", func(t *testing.T) {
		_, err := NewArrears(schoolID, studentID, ArrearsSnapshot{Total: decimal.Zero}, now)
		assert.Error(t, err)
	})

	t.Run("empty snapshot resolves the row", func(t *testing.T) {
		a, err := NewArrears(schoolID, studentID, overdueSnap(5000, 10), now)
		require.NoError(t, err)

		a.ApplySnapshot(ArrearsSnapshot{Total: decimal.Zero}, now)

		assert.True(t, a.IsResolved)
		assert.NotNil(t, a.ResolvedDate)
		assert.True(t, a.TotalArrears.IsZero())
	})

	t.Run("recurring arrears reopen a resolved row", func(t *testing.T) {
		a, err := NewArrears(schoolID, studentID, overdueSnap(5000, 10), now)
		require.NoError(t, err)
		a.ApplySnapshot(ArrearsSnapshot{Total: decimal.Zero}, now)
		require.True(t, a.IsResolved)

		a.ApplySnapshot(overdueSnap(2000, 3), now)

		assert.False(t, a.IsResolved)
		assert.Nil(t, a.ResolvedDate)
		assert.True(t, a.TotalArrears.Equal(decimal.NewFromInt(2000)))
	})

	t.Run("mark resolved is idempotent", func(t *testing.T) {
		a, err := NewArrears(schoolID, studentID, overdueSnap(5000, 10), now)
		require.NoError(t, err)

		a.MarkResolved(now)
		version := a.Version
		a.MarkResolved(now)

		assert.Equal(t, version, a.Version)
	})
}
