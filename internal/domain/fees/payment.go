package fees

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodMobileMoney  PaymentMethod = "MOBILE_MONEY"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCheck        PaymentMethod = "CHECK"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodMobileMoney, PaymentMethodBankTransfer, PaymentMethodCash,
		PaymentMethodCheck, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Payment is a record of money applied to an invoice. Payments are
// append-only: a completed payment is immutable except for the refund
// transition. The no-overpayment invariant is enforced by the invoice
// aggregate, not here.
type Payment struct {
	shared.SchoolAggregateRoot
	ReceiptNumber string
	InvoiceID     uuid.UUID
	StudentID     uuid.UUID
	Amount        decimal.Decimal
	Method        PaymentMethod
	Reference     string // external reference, e.g. the mobile-money transaction id
	Status        PaymentStatus
	PaidAt        time.Time
	RefundedAt    *time.Time
	RefundReason  string
}

// NewCompletedPayment creates a payment already in completed status. This is
// the normal path: the recorder only persists a payment after the invoice
// accepted the amount.
func NewCompletedPayment(
	schoolID uuid.UUID,
	receiptNumber string,
	invoiceID, studentID uuid.UUID,
	amount valueobject.Money,
	method PaymentMethod,
	reference string,
	recordedBy *uuid.UUID,
) (*Payment, error) {
	if receiptNumber == "" {
		return nil, shared.NewDomainError("INVALID_RECEIPT_NUMBER", "Receipt number cannot be empty")
	}
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if studentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STUDENT", "Student ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_METHOD", fmt.Sprintf("Payment method %q is not valid", method))
	}

	p := &Payment{
		SchoolAggregateRoot: shared.NewSchoolAggregateRoot(schoolID),
		ReceiptNumber:       receiptNumber,
		InvoiceID:           invoiceID,
		StudentID:           studentID,
		Amount:              amount.Amount(),
		Method:              method,
		Reference:           reference,
		Status:              PaymentStatusCompleted,
		PaidAt:              time.Now(),
	}
	if recordedBy != nil {
		p.CreatedBy = recordedBy
	}
	return p, nil
}

// Refund transitions a completed payment to refunded. The caller is
// responsible for the compensating invoice adjustment.
func (p *Payment) Refund(reason string) error {
	if p.Status != PaymentStatusCompleted {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot refund payment in %s status", p.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Refund reason is required")
	}

	now := time.Now()
	p.Status = PaymentStatusRefunded
	p.RefundedAt = &now
	p.RefundReason = reason
	p.UpdatedAt = now
	p.IncrementVersion()

	return nil
}

// GetAmountMoney returns the payment amount as Money
func (p *Payment) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyKES(p.Amount)
}

// IsCompleted returns true if the payment counts toward the invoice balance
func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}
