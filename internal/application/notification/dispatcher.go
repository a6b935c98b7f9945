package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainfees "github.com/shulepay/backend/internal/domain/fees"
	"github.com/shulepay/backend/internal/domain/notification"
	"github.com/shulepay/backend/internal/domain/people"
	"github.com/shulepay/backend/internal/domain/shared"
)

// Aging thresholds for arrears notifications, in days outstanding.
const (
	arrearsWarningDays  = 30
	arrearsCriticalDays = 60
)

// Dispatcher consumes fee domain events and turns them into guardian
// notifications. It subscribes to the event bus after the emitting services
// commit, so a notification is only ever built from persisted state.
// Delivery failures are recorded on the notification row and never
// propagate back to the fee subsystem.
type Dispatcher struct {
	notificationRepo notification.Repository
	studentRepo      people.StudentRepository
	senders          map[notification.Channel]notification.Sender
	logger           *zap.Logger
}

// NewDispatcher creates a new Dispatcher with the given senders. Senders
// are injected per channel; there is no global provider lookup.
func NewDispatcher(
	notificationRepo notification.Repository,
	studentRepo people.StudentRepository,
	senders []notification.Sender,
	logger *zap.Logger,
) *Dispatcher {
	byChannel := make(map[notification.Channel]notification.Sender, len(senders))
	for _, s := range senders {
		byChannel[s.Channel()] = s
	}
	return &Dispatcher{
		notificationRepo: notificationRepo,
		studentRepo:      studentRepo,
		senders:          byChannel,
		logger:           logger,
	}
}

// EventTypes returns the event types the dispatcher subscribes to
func (d *Dispatcher) EventTypes() []string {
	return []string{
		"InvoiceIssued",
		"InvoicePaymentApplied",
		"InvoicePaid",
		"ArrearsRecorded",
	}
}

// Handle builds and sends the notification for one domain event
func (d *Dispatcher) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *domainfees.InvoiceIssuedEvent:
		return d.notifyInvoiceIssued(ctx, e)
	case *domainfees.InvoicePaymentAppliedEvent:
		return d.notifyPaymentReceived(ctx, e)
	case *domainfees.InvoicePaidEvent:
		return d.notifyInvoicePaid(ctx, e)
	case *domainfees.ArrearsRecordedEvent:
		return d.notifyArrears(ctx, e)
	default:
		return nil
	}
}

func (d *Dispatcher) notifyInvoiceIssued(ctx context.Context, e *domainfees.InvoiceIssuedEvent) error {
	if e.TotalAmount.IsZero() {
		// Waived fees produce zero invoices; nothing to ask the guardian for
		return nil
	}
	title := "Fee invoice issued"
	message := fmt.Sprintf("Invoice %s of KES %s is due by %s.",
		e.InvoiceNumber, e.TotalAmount.StringFixed(2), e.DueDate.Format("02 Jan 2006"))
	return d.dispatch(ctx, e.SchoolID(), e.StudentID, notification.EventTypeInvoiceIssued, title, message, &e.InvoiceID, nil)
}

func (d *Dispatcher) notifyPaymentReceived(ctx context.Context, e *domainfees.InvoicePaymentAppliedEvent) error {
	title := "Payment received"
	message := fmt.Sprintf("Payment of KES %s received for invoice %s. Outstanding balance: KES %s.",
		e.PaymentAmount.StringFixed(2), e.InvoiceNumber, e.Balance.StringFixed(2))
	return d.dispatch(ctx, e.SchoolID(), e.StudentID, notification.EventTypePaymentReceived, title, message, &e.InvoiceID, nil)
}

func (d *Dispatcher) notifyInvoicePaid(ctx context.Context, e *domainfees.InvoicePaidEvent) error {
	if e.TotalAmount.IsZero() {
		return nil
	}
	title := "Invoice settled"
	message := fmt.Sprintf("Invoice %s is now fully paid. Thank you.", e.InvoiceNumber)
	return d.dispatch(ctx, e.SchoolID(), e.StudentID, notification.EventTypeInvoicePaid, title, message, &e.InvoiceID, nil)
}

func (d *Dispatcher) notifyArrears(ctx context.Context, e *domainfees.ArrearsRecordedEvent) error {
	var eventType notification.EventType
	var title string
	switch {
	case e.DaysOutstanding >= arrearsCriticalDays:
		eventType = notification.EventTypeArrearsCritical
		title = "Urgent: school fees seriously overdue"
	case e.DaysOutstanding >= arrearsWarningDays:
		eventType = notification.EventTypeArrearsWarning
		title = "Reminder: school fees overdue"
	default:
		// Below the warning threshold nothing goes out; the row itself is
		// visible to school staff through the arrears screens.
		return nil
	}

	message := fmt.Sprintf("Outstanding school fees of KES %s, overdue for %d days. Please settle at your earliest convenience.",
		e.TotalArrears.StringFixed(2), e.DaysOutstanding)
	return d.dispatch(ctx, e.SchoolID(), e.StudentID, eventType, title, message, nil, nil)
}

func (d *Dispatcher) dispatch(
	ctx context.Context,
	schoolID, studentID uuid.UUID,
	eventType notification.EventType,
	title, message string,
	invoiceID, paymentID *uuid.UUID,
) error {
	student, err := d.studentRepo.FindByID(ctx, studentID)
	if err != nil {
		return fmt.Errorf("failed to load student for notification: %w", err)
	}
	if student == nil || student.GuardianPhone.IsZero() {
		d.logger.Warn("skipping notification, no guardian contact",
			zap.String("student_id", studentID.String()),
			zap.String("event_type", string(eventType)))
		return nil
	}

	n, err := notification.New(schoolID, studentID, student.GuardianPhone, eventType, notification.ChannelSMS, title, message)
	if err != nil {
		return err
	}
	if invoiceID != nil {
		n.LinkInvoice(*invoiceID)
	}
	if paymentID != nil {
		n.LinkPayment(*paymentID)
	}

	sender, ok := d.senders[n.Channel]
	if !ok {
		n.MarkFailed(fmt.Sprintf("no sender configured for channel %s", n.Channel))
		d.logger.Error("no sender configured for notification channel",
			zap.String("channel", string(n.Channel)))
		return d.notificationRepo.Save(ctx, n)
	}

	if err := sender.Send(ctx, n); err != nil {
		n.MarkFailed(err.Error())
		d.logger.Error("notification delivery failed",
			zap.String("student_id", studentID.String()),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	} else {
		n.MarkSent()
	}

	return d.notificationRepo.Save(ctx, n)
}
