package fees

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shulepay/backend/internal/domain/shared"
)

// TransactionProcessedEvent is raised when a mobile-money transaction has
// been converted into a recorded payment
type TransactionProcessedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID       `json:"transaction_id"`
	ExternalID    string          `json:"external_id"`
	Amount        decimal.Decimal `json:"amount"`
	InvoiceID     *uuid.UUID      `json:"invoice_id"`
	PaymentID     *uuid.UUID      `json:"payment_id"`
}

// EventType returns the event type name
func (e *TransactionProcessedEvent) EventType() string {
	return "TransactionProcessed"
}

// NewTransactionProcessedEvent creates a new TransactionProcessedEvent
func NewTransactionProcessedEvent(t *MobileMoneyTransaction) *TransactionProcessedEvent {
	return &TransactionProcessedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("TransactionProcessed", "MobileMoneyTransaction", t.ID, t.SchoolID),
		TransactionID:   t.ID,
		ExternalID:      t.ExternalID,
		Amount:          t.Amount,
		InvoiceID:       t.InvoiceID,
		PaymentID:       t.PaymentID,
	}
}
