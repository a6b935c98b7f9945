package fees

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

// TransactionStatus represents the status of an inbound mobile-money transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"   // Received, not yet matched
	TransactionStatusMatched   TransactionStatus = "MATCHED"   // Linked to an invoice, payment not yet recorded
	TransactionStatusUnmatched TransactionStatus = "UNMATCHED" // No invoice found; awaiting manual action or retry
	TransactionStatusProcessed TransactionStatus = "PROCESSED" // Payment recorded against the matched invoice
)

// IsValid checks if the transaction status is valid
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusMatched,
		TransactionStatusUnmatched, TransactionStatusProcessed:
		return true
	}
	return false
}

// String returns the string representation of TransactionStatus
func (s TransactionStatus) String() string {
	return string(s)
}

// MobileMoneyTransaction is the matcher's working record for one inbound
// gateway notification. The external transaction id is unique: receiving the
// same notification twice must never produce a second row or a second
// payment. Unmatched is a normal terminal-until-retried state, not an error.
type MobileMoneyTransaction struct {
	shared.SchoolAggregateRoot
	ExternalID  string
	Amount      decimal.Decimal
	Phone       valueobject.Phone
	Reference   string // free-text reference carried in the notification
	RawPayload  string // original callback body, kept for audit
	Status      TransactionStatus
	InvoiceID   *uuid.UUID
	PaymentID   *uuid.UUID
	MatchNote   string // how the match was made, e.g. tolerance fallback
	MatchedAt   *time.Time
	ProcessedAt *time.Time
	ReceivedAt  time.Time
}

// NewMobileMoneyTransaction records an inbound notification as a pending
// transaction awaiting matching.
func NewMobileMoneyTransaction(
	schoolID uuid.UUID,
	externalID string,
	amount valueobject.Money,
	phone valueobject.Phone,
	reference string,
	rawPayload string,
) (*MobileMoneyTransaction, error) {
	if externalID == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "External transaction ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Transaction amount must be positive")
	}
	if phone.IsZero() {
		return nil, shared.NewDomainError("INVALID_PHONE", "Transaction phone number is required")
	}

	return &MobileMoneyTransaction{
		SchoolAggregateRoot: shared.NewSchoolAggregateRoot(schoolID),
		ExternalID:          externalID,
		Amount:              amount.Amount(),
		Phone:               phone,
		Reference:           reference,
		RawPayload:          rawPayload,
		Status:              TransactionStatusPending,
		ReceivedAt:          time.Now(),
	}, nil
}

// MarkMatched links the transaction to the invoice chosen by the matcher
func (t *MobileMoneyTransaction) MarkMatched(invoiceID uuid.UUID, note string) error {
	if t.Status != TransactionStatusPending && t.Status != TransactionStatusUnmatched {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot match transaction in %s status", t.Status))
	}
	if invoiceID == uuid.Nil {
		return shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}

	now := time.Now()
	t.Status = TransactionStatusMatched
	t.InvoiceID = &invoiceID
	t.MatchNote = note
	t.MatchedAt = &now
	t.UpdatedAt = now
	t.IncrementVersion()

	return nil
}

// MarkUnmatched records that no suitable invoice was found. The transaction
// stays queryable and retryable for manual follow-up.
func (t *MobileMoneyTransaction) MarkUnmatched(note string) error {
	if t.Status != TransactionStatusPending && t.Status != TransactionStatusUnmatched {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark transaction in %s status as unmatched", t.Status))
	}

	t.Status = TransactionStatusUnmatched
	t.MatchNote = note
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// MarkProcessed records that a payment was created from this transaction
func (t *MobileMoneyTransaction) MarkProcessed(paymentID uuid.UUID) error {
	if t.Status != TransactionStatusMatched {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot process transaction in %s status", t.Status))
	}
	if paymentID == uuid.Nil {
		return shared.NewDomainError("INVALID_PAYMENT", "Payment ID cannot be empty")
	}

	now := time.Now()
	t.Status = TransactionStatusProcessed
	t.PaymentID = &paymentID
	t.ProcessedAt = &now
	t.UpdatedAt = now
	t.IncrementVersion()
	t.AddDomainEvent(NewTransactionProcessedEvent(t))

	return nil
}

// CanRetryMatch returns true if the matcher may run again for this transaction
func (t *MobileMoneyTransaction) CanRetryMatch() bool {
	return t.Status == TransactionStatusUnmatched
}

// GetAmountMoney returns the transaction amount as Money
func (t *MobileMoneyTransaction) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyKES(t.Amount)
}
