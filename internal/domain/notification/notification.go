package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

// EventType classifies what a notification is about
type EventType string

const (
	EventTypeInvoiceIssued   EventType = "INVOICE_ISSUED"
	EventTypePaymentReceived EventType = "PAYMENT_RECEIVED"
	EventTypeInvoicePaid     EventType = "INVOICE_PAID"
	EventTypeArrearsWarning  EventType = "ARREARS_WARNING"  // overdue past the warning threshold
	EventTypeArrearsCritical EventType = "ARREARS_CRITICAL" // overdue past the critical threshold
)

// IsValid checks if the event type is valid
func (t EventType) IsValid() bool {
	switch t {
	case EventTypeInvoiceIssued, EventTypePaymentReceived, EventTypeInvoicePaid,
		EventTypeArrearsWarning, EventTypeArrearsCritical:
		return true
	}
	return false
}

// Channel identifies the delivery channel
type Channel string

const (
	ChannelSMS   Channel = "SMS"
	ChannelEmail Channel = "EMAIL"
)

// Status represents the delivery status of a notification
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// Notification is one message queued for a guardian. Delivery is fire and
// forget: the fee subsystem records the row and hands it to a sender, it
// never blocks on the delivery result.
type Notification struct {
	shared.SchoolAggregateRoot
	StudentID      uuid.UUID
	RecipientPhone valueobject.Phone
	RecipientEmail string
	EventType      EventType
	Channel        Channel
	Title          string
	Message        string
	InvoiceID      *uuid.UUID
	PaymentID      *uuid.UUID
	Status         Status
	SentAt         *time.Time
	FailureReason  string
}

// New creates a pending notification
func New(
	schoolID, studentID uuid.UUID,
	recipientPhone valueobject.Phone,
	eventType EventType,
	channel Channel,
	title, message string,
) (*Notification, error) {
	if !eventType.IsValid() {
		return nil, shared.NewDomainError("INVALID_EVENT_TYPE", fmt.Sprintf("Notification event type %q is not valid", eventType))
	}
	if title == "" || message == "" {
		return nil, shared.NewDomainError("INVALID_CONTENT", "Notification title and message are required")
	}
	if channel == ChannelSMS && recipientPhone.IsZero() {
		return nil, shared.NewDomainError("INVALID_RECIPIENT", "SMS notification requires a recipient phone")
	}

	return &Notification{
		SchoolAggregateRoot: shared.NewSchoolAggregateRoot(schoolID),
		StudentID:           studentID,
		RecipientPhone:      recipientPhone,
		EventType:           eventType,
		Channel:             channel,
		Title:               title,
		Message:             message,
		Status:              StatusPending,
	}, nil
}

// LinkInvoice attaches the invoice the notification is about
func (n *Notification) LinkInvoice(invoiceID uuid.UUID) {
	n.InvoiceID = &invoiceID
}

// LinkPayment attaches the payment the notification is about
func (n *Notification) LinkPayment(paymentID uuid.UUID) {
	n.PaymentID = &paymentID
}

// MarkSent records a successful delivery handoff
func (n *Notification) MarkSent() {
	now := time.Now()
	n.Status = StatusSent
	n.SentAt = &now
	n.UpdatedAt = now
	n.IncrementVersion()
}

// MarkFailed records a delivery failure. Failed rows stay queryable for
// manual follow-up; there is no automatic retry.
func (n *Notification) MarkFailed(reason string) {
	n.Status = StatusFailed
	n.FailureReason = reason
	n.UpdatedAt = time.Now()
	n.IncrementVersion()
}
