package fees

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

// Arrears is the per-student aggregate of overdue balances and aging. It is
// a derived cache, fully recomputable from invoices at any time; history is
// kept by resolving rows rather than deleting them.
type Arrears struct {
	shared.SchoolAggregateRoot
	StudentID        uuid.UUID
	TotalArrears     decimal.Decimal
	DaysOutstanding  int
	FirstArrearsDate time.Time
	IsResolved       bool
	ResolvedDate     *time.Time
}

// ArrearsSnapshot is the result of aggregating a student's overdue invoices
type ArrearsSnapshot struct {
	Total           decimal.Decimal
	EarliestDue     time.Time
	DaysOutstanding int
	InvoiceIDs      []uuid.UUID
}

// HasArrears returns true if any overdue balance exists
func (s ArrearsSnapshot) HasArrears() bool {
	return s.Total.GreaterThan(decimal.Zero)
}

// ComputeArrearsSnapshot aggregates the overdue position from a student's
// invoices: the sum of balances of invoices past due with money outstanding,
// and the age of the oldest one. Invoices not past due contribute nothing.
func ComputeArrearsSnapshot(invoices []*Invoice, now time.Time) ArrearsSnapshot {
	snap := ArrearsSnapshot{Total: decimal.Zero}
	for _, inv := range invoices {
		if !inv.IsPastDue(now) {
			continue
		}
		snap.Total = snap.Total.Add(inv.Balance)
		snap.InvoiceIDs = append(snap.InvoiceIDs, inv.ID)
		if snap.EarliestDue.IsZero() || inv.DueDate.Before(snap.EarliestDue) {
			snap.EarliestDue = inv.DueDate
		}
	}
	if !snap.EarliestDue.IsZero() {
		snap.DaysOutstanding = int(now.Sub(snap.EarliestDue).Hours() / 24)
	}
	return snap
}

// NewArrears creates an arrears row from a snapshot with overdue balance
func NewArrears(schoolID, studentID uuid.UUID, snap ArrearsSnapshot, now time.Time) (*Arrears, error) {
	if studentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STUDENT", "Student ID cannot be empty")
	}
	if !snap.HasArrears() {
		return nil, shared.NewDomainError("NO_ARREARS", "Cannot create an arrears row with no overdue balance")
	}

	a := &Arrears{
		SchoolAggregateRoot: shared.NewSchoolAggregateRoot(schoolID),
		StudentID:           studentID,
		TotalArrears:        snap.Total,
		DaysOutstanding:     snap.DaysOutstanding,
		FirstArrearsDate:    now,
		IsResolved:          false,
	}
	a.AddDomainEvent(NewArrearsRecordedEvent(a))
	return a, nil
}

// ApplySnapshot refreshes the row from a recomputed snapshot. A snapshot
// with no overdue balance resolves the row; one with a balance updates the
// totals and reopens the row if it had been resolved.
func (a *Arrears) ApplySnapshot(snap ArrearsSnapshot, now time.Time) {
	if !snap.HasArrears() {
		a.resolve(now)
		return
	}

	if a.IsResolved {
		// Arrears recurred after an earlier resolution
		a.IsResolved = false
		a.ResolvedDate = nil
		a.FirstArrearsDate = now
	}
	a.TotalArrears = snap.Total
	a.DaysOutstanding = snap.DaysOutstanding
	a.UpdatedAt = now
	a.IncrementVersion()
	a.AddDomainEvent(NewArrearsRecordedEvent(a))
}

// MarkResolved closes the row when the student no longer has any overdue
// balance. Idempotent.
func (a *Arrears) MarkResolved(now time.Time) {
	if a.IsResolved {
		return
	}
	a.resolve(now)
}

func (a *Arrears) resolve(now time.Time) {
	if a.IsResolved {
		return
	}
	a.IsResolved = true
	a.ResolvedDate = &now
	a.TotalArrears = decimal.Zero
	a.DaysOutstanding = 0
	a.UpdatedAt = now
	a.IncrementVersion()
	a.AddDomainEvent(NewArrearsResolvedEvent(a))
}

// GetTotalArrearsMoney returns the overdue total as Money
func (a *Arrears) GetTotalArrearsMoney() valueobject.Money {
	return valueobject.NewMoneyKES(a.TotalArrears)
}
