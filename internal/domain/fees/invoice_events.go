package fees

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

// InvoiceIssuedEvent is raised when a new invoice is created
type InvoiceIssuedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	StudentID     uuid.UUID       `json:"student_id"`
	TermID        uuid.UUID       `json:"term_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DueDate       time.Time       `json:"due_date"`
}

// EventType returns the event type name
func (e *InvoiceIssuedEvent) EventType() string {
	return "InvoiceIssued"
}

// NewInvoiceIssuedEvent creates a new InvoiceIssuedEvent
func NewInvoiceIssuedEvent(inv *Invoice) *InvoiceIssuedEvent {
	return &InvoiceIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceIssued", "Invoice", inv.ID, inv.SchoolID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		StudentID:       inv.StudentID,
		TermID:          inv.TermID,
		TotalAmount:     inv.TotalAmount,
		DueDate:         inv.DueDate,
	}
}

// InvoicePaymentAppliedEvent is raised when a partial payment is applied
type InvoicePaymentAppliedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	StudentID     uuid.UUID       `json:"student_id"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Balance       decimal.Decimal `json:"balance"`
}

// EventType returns the event type name
func (e *InvoicePaymentAppliedEvent) EventType() string {
	return "InvoicePaymentApplied"
}

// NewInvoicePaymentAppliedEvent creates a new InvoicePaymentAppliedEvent
func NewInvoicePaymentAppliedEvent(inv *Invoice, paymentAmount valueobject.Money) *InvoicePaymentAppliedEvent {
	return &InvoicePaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoicePaymentApplied", "Invoice", inv.ID, inv.SchoolID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		StudentID:       inv.StudentID,
		PaymentAmount:   paymentAmount.Amount(),
		TotalAmount:     inv.TotalAmount,
		AmountPaid:      inv.AmountPaid,
		Balance:         inv.Balance,
	}
}

// InvoicePaidEvent is raised when an invoice reaches zero balance
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	StudentID     uuid.UUID       `json:"student_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaidAt        time.Time       `json:"paid_at"`
}

// EventType returns the event type name
func (e *InvoicePaidEvent) EventType() string {
	return "InvoicePaid"
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	paidAt := time.Now()
	if inv.PaidAt != nil {
		paidAt = *inv.PaidAt
	}
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoicePaid", "Invoice", inv.ID, inv.SchoolID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		StudentID:       inv.StudentID,
		TotalAmount:     inv.TotalAmount,
		PaidAt:          paidAt,
	}
}

// InvoiceOverdueEvent is raised when the arrears tracker transitions an
// invoice past its due date
type InvoiceOverdueEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	StudentID     uuid.UUID       `json:"student_id"`
	Balance       decimal.Decimal `json:"balance"`
	DueDate       time.Time       `json:"due_date"`
	DaysOverdue   int             `json:"days_overdue"`
}

// EventType returns the event type name
func (e *InvoiceOverdueEvent) EventType() string {
	return "InvoiceOverdue"
}

// NewInvoiceOverdueEvent creates a new InvoiceOverdueEvent
func NewInvoiceOverdueEvent(inv *Invoice, now time.Time) *InvoiceOverdueEvent {
	return &InvoiceOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceOverdue", "Invoice", inv.ID, inv.SchoolID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		StudentID:       inv.StudentID,
		Balance:         inv.Balance,
		DueDate:         inv.DueDate,
		DaysOverdue:     inv.DaysOverdue(now),
	}
}

// InvoiceCancelledEvent is raised when an invoice is voided
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	StudentID     uuid.UUID `json:"student_id"`
	CancelReason  string    `json:"cancel_reason"`
}

// EventType returns the event type name
func (e *InvoiceCancelledEvent) EventType() string {
	return "InvoiceCancelled"
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceCancelled", "Invoice", inv.ID, inv.SchoolID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		StudentID:       inv.StudentID,
		CancelReason:    inv.CancelReason,
	}
}
