package fees

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

// InvoiceStatus represents the status of a fee invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"     // Created but not yet issued to the guardian
	InvoiceStatusIssued    InvoiceStatus = "ISSUED"    // Outstanding, no payment yet
	InvoiceStatusPartial   InvoiceStatus = "PARTIAL"   // Partially paid, 0 < balance < total
	InvoiceStatusPaid      InvoiceStatus = "PAID"      // Fully paid, balance = 0
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"   // Past due date with balance outstanding
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED" // Voided before settlement
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusIssued, InvoiceStatusPartial,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the invoice is in a terminal state
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// IsOpen returns true if payments can still be applied in this status
func (s InvoiceStatus) IsOpen() bool {
	return s == InvoiceStatusIssued || s == InvoiceStatusPartial || s == InvoiceStatusOverdue
}

// DeriveStatus computes the invoice status from its amounts and due date.
// Every mutation site calls this rather than setting status ad hoc, so the
// rule lives in one place and is testable without a database.
//
// Known ambiguity carried over from the legacy behavior: a cancelled invoice
// stays cancelled regardless of its amounts, so a balance adjustment on a
// cancelled invoice never flips it back to paid here.
func DeriveStatus(total, paid decimal.Decimal, dueDate time.Time, cancelled bool, now time.Time) InvoiceStatus {
	if cancelled {
		return InvoiceStatusCancelled
	}
	balance := total.Sub(paid)
	if balance.LessThanOrEqual(decimal.Zero) {
		return InvoiceStatusPaid
	}
	if paid.GreaterThan(decimal.Zero) {
		return InvoiceStatusPartial
	}
	if !dueDate.IsZero() && dueDate.Before(now) {
		return InvoiceStatusOverdue
	}
	return InvoiceStatusIssued
}

// Invoice represents a billing record for one student in one term. It is the
// aggregate the payment recorder, arrears tracker and transaction matcher
// all converge on. Created once by the generator, then only mutated through
// payments until it reaches a terminal status.
type Invoice struct {
	shared.SchoolAggregateRoot
	InvoiceNumber string
	StudentID     uuid.UUID
	TermID        uuid.UUID
	TotalAmount   decimal.Decimal
	AmountPaid    decimal.Decimal
	Balance       decimal.Decimal // always total - paid, recomputed on every mutation
	Status        InvoiceStatus
	DueDate       time.Time
	IssuedAt      time.Time
	PaidAt        *time.Time
	CancelledAt   *time.Time
	CancelReason  string
}

// NewInvoice creates and issues a new invoice. A zero total is legal (a
// fully waived fee) and such an invoice is born paid.
func NewInvoice(
	schoolID uuid.UUID,
	invoiceNumber string,
	studentID, termID uuid.UUID,
	totalAmount valueobject.Money,
	dueDate time.Time,
	createdBy *uuid.UUID,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if studentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STUDENT", "Student ID cannot be empty")
	}
	if termID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TERM", "Term ID cannot be empty")
	}
	if totalAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice total cannot be negative")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Invoice due date is required")
	}

	now := time.Now()
	inv := &Invoice{
		SchoolAggregateRoot: shared.NewSchoolAggregateRoot(schoolID),
		InvoiceNumber:       invoiceNumber,
		StudentID:           studentID,
		TermID:              termID,
		TotalAmount:         totalAmount.Amount(),
		AmountPaid:          decimal.Zero,
		Balance:             totalAmount.Amount(),
		Status:              InvoiceStatusIssued,
		DueDate:             dueDate,
		IssuedAt:            now,
	}
	if createdBy != nil {
		inv.CreatedBy = createdBy
	}

	// A waived fee produces a zero invoice that is settled on arrival
	if inv.Balance.IsZero() {
		inv.Status = InvoiceStatusPaid
		inv.PaidAt = &now
	}

	inv.AddDomainEvent(NewInvoiceIssuedEvent(inv))
	if inv.Status == InvoiceStatusPaid {
		inv.AddDomainEvent(NewInvoicePaidEvent(inv))
	}

	return inv, nil
}

// ApplyPayment applies a completed payment amount to the invoice.
// The amount must be positive and must not exceed the outstanding balance;
// overpayment is a hard validation failure, never a silent cap.
func (inv *Invoice) ApplyPayment(amount valueobject.Money) error {
	if !inv.Status.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply payment to invoice in %s status", inv.Status))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if amount.Amount().GreaterThan(inv.Balance) {
		return shared.NewDomainError("EXCEEDS_BALANCE",
			fmt.Sprintf("Payment amount %s exceeds outstanding balance %s", amount.StringFixed(2), inv.Balance.StringFixed(2)))
	}

	now := time.Now()
	inv.AmountPaid = inv.AmountPaid.Add(amount.Amount())
	inv.Balance = inv.TotalAmount.Sub(inv.AmountPaid)
	inv.Status = DeriveStatus(inv.TotalAmount, inv.AmountPaid, inv.DueDate, false, now)

	if inv.Status == InvoiceStatusPaid {
		inv.PaidAt = &now
		inv.AddDomainEvent(NewInvoicePaidEvent(inv))
	} else {
		inv.AddDomainEvent(NewInvoicePaymentAppliedEvent(inv, amount))
	}

	inv.UpdatedAt = now
	inv.IncrementVersion()

	return nil
}

// MarkOverdue transitions the invoice to overdue. Only the arrears tracker
// calls this; the transition depends on the passage of time, not on any
// mutation of the invoice itself.
func (inv *Invoice) MarkOverdue(now time.Time) error {
	if inv.Status == InvoiceStatusOverdue {
		return nil
	}
	if inv.Status != InvoiceStatusIssued && inv.Status != InvoiceStatusPartial {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark invoice in %s status as overdue", inv.Status))
	}
	if !inv.DueDate.Before(now) {
		return shared.NewDomainError("NOT_PAST_DUE", "Invoice due date has not passed")
	}

	inv.Status = InvoiceStatusOverdue
	inv.UpdatedAt = now
	inv.IncrementVersion()
	inv.AddDomainEvent(NewInvoiceOverdueEvent(inv, now))

	return nil
}

// Cancel voids the invoice. Allowed from any non-terminal state.
func (inv *Invoice) Cancel(reason string) error {
	if inv.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel invoice in %s status", inv.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.CancelReason = reason
	inv.UpdatedAt = now
	inv.IncrementVersion()
	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv))

	return nil
}

// GetTotalAmountMoney returns the invoice total as Money
func (inv *Invoice) GetTotalAmountMoney() valueobject.Money {
	return valueobject.NewMoneyKES(inv.TotalAmount)
}

// GetAmountPaidMoney returns the cumulative paid amount as Money
func (inv *Invoice) GetAmountPaidMoney() valueobject.Money {
	return valueobject.NewMoneyKES(inv.AmountPaid)
}

// GetBalanceMoney returns the outstanding balance as Money
func (inv *Invoice) GetBalanceMoney() valueobject.Money {
	return valueobject.NewMoneyKES(inv.Balance)
}

// IsPaid returns true if the invoice is fully settled
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// IsPastDue reports whether the due date has passed with balance outstanding
func (inv *Invoice) IsPastDue(now time.Time) bool {
	return inv.Status.IsOpen() && inv.Balance.GreaterThan(decimal.Zero) && inv.DueDate.Before(now)
}

// DaysOverdue returns whole days elapsed since the due date (0 if not past due)
func (inv *Invoice) DaysOverdue(now time.Time) int {
	if !inv.IsPastDue(now) {
		return 0
	}
	return int(now.Sub(inv.DueDate).Hours() / 24)
}
