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

func newTestInvoice(t *testing.T, total int64, dueDate time.Time) *Invoice {
	t.Helper()
	inv, err := NewInvoice(
		uuid.New(),
		"INV-2026-0001",
		uuid.New(),
		uuid.New(),
		valueobject.NewMoneyKES(decimal.NewFromInt(total)),
		dueDate,
		nil,
	)
	require.NoError(t, err)
	return inv
}

func futureDue() time.Time {
	return time.Now().Add(30 * 24 * time.Hour)
}

func pastDue() time.Time {
	return time.Now().Add(-10 * 24 * time.Hour)
}

func TestNewInvoice(t *testing.T) {
	t.Run("creates issued invoice with full balance", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, futureDue())

		assert.Equal(t, InvoiceStatusIssued, inv.Status)
		assert.True(t, inv.Balance.Equal(decimal.NewFromInt(5000)))
		assert.True(t, inv.AmountPaid.IsZero())
		assert.Len(t, inv.GetDomainEvents(), 1)
	})

	t.Run("zero total invoice is born paid", func(t *testing.T) {
		inv := newTestInvoice(t, 0, futureDue())

		assert.Equal(t, InvoiceStatusPaid, inv.Status)
		assert.True(t, inv.Balance.IsZero())
		assert.NotNil(t, inv.PaidAt)
	})

	t.Run("rejects negative total", func(t *testing.T) {
		_, err := NewInvoice(
			uuid.New(), "INV-X", uuid.New(), uuid.New(),
			valueobject.NewMoneyKES(decimal.NewFromInt(-1)),
			futureDue(), nil,
		)
		assert.Error(t, err)
	})

	t.Run("rejects empty invoice number", func(t *testing.T) {
		_, err := NewInvoice(
			uuid.New(), "", uuid.New(), uuid.New(),
			valueobject.NewMoneyKES(decimal.NewFromInt(100)),
			futureDue(), nil,
		)
		assert.Error(t, err)
	})
}

func TestInvoice_ApplyPayment(t *testing.T) {
	t.Run("partial payment moves to partial status", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, futureDue())

		err := inv.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(2000)))
		require.NoError(t, err)

		assert.Equal(t, InvoiceStatusPartial, inv.Status)
		assert.True(t, inv.AmountPaid.Equal(decimal.NewFromInt(2000)))
		assert.True(t, inv.Balance.Equal(decimal.NewFromInt(3000)))
	})

	t.Run("full payment moves to paid status", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, futureDue())

		err := inv.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(5000)))
		require.NoError(t, err)

		assert.Equal(t, InvoiceStatusPaid, inv.Status)
		assert.True(t, inv.Balance.IsZero())
		assert.NotNil(t, inv.PaidAt)
	})

	t.Run("rejects payment exceeding balance", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, futureDue())

		err := inv.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(5001)))
		assert.Error(t, err)
		assert.True(t, inv.Balance.Equal(decimal.NewFromInt(5000)))
	})

	t.Run("rejects any payment on a paid invoice", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, futureDue())
		require.NoError(t, inv.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(5000))))

		err := inv.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(1)))
		assert.Error(t, err)
	})

	t.Run("rejects zero and negative amounts", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, futureDue())

		assert.Error(t, inv.ApplyPayment(valueobject.ZeroKES()))
		assert.Error(t, inv.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(-100))))
	})

	t.Run("cumulative payments never exceed total", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, futureDue())

		require.NoError(t, inv.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(3000))))
		require.NoError(t, inv.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(2000))))

		err := inv.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(1)))
		assert.Error(t, err)
		assert.True(t, inv.AmountPaid.Equal(inv.TotalAmount))
	})

	t.Run("paid plus balance always equals total", func(t *testing.T) {
		inv := newTestInvoice(t, 7500, futureDue())

		for _, amt := range []int64{1000, 2500, 4000} {
			require.NoError(t, inv.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(amt))))
			assert.True(t, inv.AmountPaid.Add(inv.Balance).Equal(inv.TotalAmount))
		}
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
	})

	t.Run("payment on overdue invoice with remainder stays partial", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, pastDue())
		require.NoError(t, inv.MarkOverdue(time.Now()))

		require.NoError(t, inv.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(1000))))
		assert.Equal(t, InvoiceStatusPartial, inv.Status)
	})
}

func TestInvoice_MarkOverdue(t *testing.T) {
	t.Run("transitions issued invoice past due date", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, pastDue())

		err := inv.MarkOverdue(time.Now())
		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusOverdue, inv.Status)
	})

	t.Run("idempotent on already overdue invoice", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, pastDue())
		require.NoError(t, inv.MarkOverdue(time.Now()))
		version := inv.Version

		require.NoError(t, inv.MarkOverdue(time.Now()))
		assert.Equal(t, version, inv.Version)
	})

	t.Run("rejects invoice not yet past due", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, futureDue())
		assert.Error(t, inv.MarkOverdue(time.Now()))
	})

	t.Run("rejects paid invoice", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, pastDue())
		require.NoError(t, inv.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(5000))))
		assert.Error(t, inv.MarkOverdue(time.Now()))
	})
}

func TestInvoice_Cancel(t *testing.T) {
	t.Run("cancels an issued invoice", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, futureDue())

		err := inv.Cancel("duplicate billing")
		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusCancelled, inv.Status)
		assert.NotNil(t, inv.CancelledAt)
	})

	t.Run("rejects cancelling a paid invoice", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, futureDue())
		require.NoError(t, inv.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(5000))))
		assert.Error(t, inv.Cancel("too late"))
	})

	t.Run("requires a reason", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, futureDue())
		assert.Error(t, inv.Cancel(""))
	})

	t.Run("no payment can be applied after cancellation", func(t *testing.T) {
		inv := newTestInvoice(t, 5000, futureDue())
		require.NoError(t, inv.Cancel("withdrawn"))
		assert.Error(t, inv.ApplyPayment(valueobject.NewMoneyKES(decimal.NewFromInt(100))))
	})
}

func TestDeriveStatus(t *testing.T) {
	now := time.Now()
	due := now.Add(24 * time.Hour)
	overdueDate := now.Add(-24 * time.Hour)

	tests := []struct {
		name      string
		total     int64
		paid      int64
		dueDate   time.Time
		cancelled bool
		want      InvoiceStatus
	}{
		{"unpaid before due date", 5000, 0, due, false, InvoiceStatusIssued},
		{"partially paid", 5000, 2000, due, false, InvoiceStatusPartial},
		{"fully paid", 5000, 5000, due, false, InvoiceStatusPaid},
		{"zero total", 0, 0, due, false, InvoiceStatusPaid},
		{"unpaid past due date", 5000, 0, overdueDate, false, InvoiceStatusOverdue},
		{"partially paid past due date", 5000, 2000, overdueDate, false, InvoiceStatusPartial},
		{"cancelled wins over amounts", 5000, 5000, due, true, InvoiceStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(decimal.NewFromInt(tt.total), decimal.NewFromInt(tt.paid), tt.dueDate, tt.cancelled, now)
			assert.Equal(t, tt.want, got)
		})
	}
}
