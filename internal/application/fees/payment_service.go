package fees

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shulepay/backend/internal/domain/fees"
	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

// maxPaymentRetries bounds the optimistic-lock retry loop. Two payments
// racing on the same invoice is the one real concurrency hazard here; after
// this many conflicts the caller gets a transient failure.
const maxPaymentRetries = 3

// PaymentService records payments against invoices. The invoice update,
// payment row and arrears resolution are committed as one transaction, with
// an optimistic lock on the invoice version guarding against lost updates.
type PaymentService struct {
	invoiceRepo fees.InvoiceRepository
	paymentRepo fees.PaymentRepository
	arrearsRepo fees.ArrearsRepository
	tx          shared.TxManager
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	invoiceRepo fees.InvoiceRepository,
	paymentRepo fees.PaymentRepository,
	arrearsRepo fees.ArrearsRepository,
	tx shared.TxManager,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		arrearsRepo: arrearsRepo,
		tx:          tx,
		publisher:   publisher,
		logger:      logger,
	}
}

// RecordPaymentRequest describes one payment to record
type RecordPaymentRequest struct {
	InvoiceID uuid.UUID
	Amount    valueobject.Money
	Method    fees.PaymentMethod
	Reference string
	ActorID   *uuid.UUID
}

// RecordPayment applies a payment to an invoice and persists the payment
// row. Overpayment is rejected before anything is written. On a concurrent
// modification of the invoice the whole unit is retried with fresh state, a
// bounded number of times.
func (s *PaymentService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*fees.Payment, error) {
	if !req.Amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !req.Method.IsValid() {
		return nil, shared.NewDomainError("INVALID_METHOD", fmt.Sprintf("Payment method %q is not valid", req.Method))
	}

	var lastErr error
	for attempt := 0; attempt < maxPaymentRetries; attempt++ {
		payment, events, err := s.recordOnce(ctx, req)
		if err == nil {
			if pubErr := s.publisher.Publish(ctx, events...); pubErr != nil {
				s.logger.Warn("failed to publish payment events",
					zap.String("payment_id", payment.ID.String()),
					zap.Error(pubErr))
			}
			return payment, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, err
		}
		lastErr = err
		s.logger.Warn("payment recording hit a version conflict, retrying",
			zap.String("invoice_id", req.InvoiceID.String()),
			zap.Int("attempt", attempt+1))
	}

	return nil, fmt.Errorf("payment recording kept conflicting after %d attempts: %w", maxPaymentRetries, lastErr)
}

// recordOnce performs one attempt: load fresh invoice state, validate and
// apply the payment, and commit invoice + payment + arrears in one
// transaction. Domain events are collected and returned for publication
// after the commit, never before.
func (s *PaymentService) recordOnce(ctx context.Context, req RecordPaymentRequest) (*fees.Payment, []shared.DomainEvent, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, req.InvoiceID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	if invoice == nil {
		return nil, nil, shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice not found")
	}

	if err := invoice.ApplyPayment(req.Amount); err != nil {
		return nil, nil, err
	}

	payment, err := fees.NewCompletedPayment(
		invoice.SchoolID,
		nextReceiptNumber(),
		invoice.ID,
		invoice.StudentID,
		req.Amount,
		req.Method,
		req.Reference,
		req.ActorID,
	)
	if err != nil {
		return nil, nil, err
	}

	events := make([]shared.DomainEvent, 0, 4)

	txErr := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if err := s.invoiceRepo.SaveWithLock(txCtx, invoice); err != nil {
			return err
		}
		if err := s.paymentRepo.Save(txCtx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}

		// A settled invoice may clear the student's arrears
		if invoice.IsPaid() {
			arrears, err := s.arrearsRepo.FindByStudent(txCtx, invoice.SchoolID, invoice.StudentID)
			if err != nil {
				return fmt.Errorf("failed to load arrears: %w", err)
			}
			if arrears != nil && !arrears.IsResolved {
				arrears.MarkResolved(time.Now())
				if err := s.arrearsRepo.SaveWithLock(txCtx, arrears); err != nil {
					return err
				}
				events = append(events, arrears.GetDomainEvents()...)
				arrears.ClearDomainEvents()
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, nil, txErr
	}

	events = append(events, invoice.GetDomainEvents()...)
	invoice.ClearDomainEvents()

	return payment, events, nil
}

// GetInvoice returns an invoice by id
func (s *PaymentService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*fees.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	if invoice == nil {
		return nil, shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice not found")
	}
	return invoice, nil
}

// ListInvoicePayments returns the payments recorded against an invoice
func (s *PaymentService) ListInvoicePayments(ctx context.Context, invoiceID uuid.UUID) ([]*fees.Payment, error) {
	return s.paymentRepo.FindByInvoice(ctx, invoiceID)
}

// ListStudentInvoices returns a page of a student's invoices
func (s *PaymentService) ListStudentInvoices(ctx context.Context, studentID uuid.UUID, filter shared.Filter) (shared.Paginated[*fees.Invoice], error) {
	return s.invoiceRepo.FindByStudent(ctx, studentID, filter)
}

// CancelInvoice voids an invoice before settlement. Payments already
// recorded against it are untouched; refunds are a separate manual step.
func (s *PaymentService) CancelInvoice(ctx context.Context, invoiceID uuid.UUID, reason string) (*fees.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	if invoice == nil {
		return nil, shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice not found")
	}
	if err := invoice.Cancel(reason); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, invoice.GetDomainEvents()...); err != nil {
		s.logger.Warn("failed to publish invoice events",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
	}
	invoice.ClearDomainEvents()
	return invoice, nil
}

// nextReceiptNumber builds a unique receipt number for a payment
func nextReceiptNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return fmt.Sprintf("RCT-%s", suffix)
}
