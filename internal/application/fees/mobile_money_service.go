package fees

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shulepay/backend/internal/domain/fees"
	"github.com/shulepay/backend/internal/domain/people"
	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

// IngestStatus is the outcome of processing one inbound notification
type IngestStatus string

const (
	IngestStatusProcessed IngestStatus = "processed"
	IngestStatusUnmatched IngestStatus = "unmatched"
	IngestStatusDuplicate IngestStatus = "duplicate"
)

// IngestResult is returned to the webhook layer after ingesting a notification
type IngestResult struct {
	Status        IngestStatus `json:"status"`
	TransactionID uuid.UUID    `json:"transaction_id"`
	InvoiceID     *uuid.UUID   `json:"invoice_id,omitempty"`
	PaymentID     *uuid.UUID   `json:"payment_id,omitempty"`
	Note          string       `json:"note,omitempty"`
}

// PaymentNotification is one parsed gateway callback, transport details
// already stripped by the gateway adapter
type PaymentNotification struct {
	ExternalID string
	Amount     valueobject.Money
	Phone      valueobject.Phone
	Reference  string
	RawPayload string
}

// MobileMoneyService ingests gateway payment notifications, matches them to
// invoices and hands matched amounts to the payment recorder. Ingestion is
// idempotent on the external transaction id: the idempotency store absorbs
// duplicate callbacks cheaply and the unique constraint on external_id is
// the backstop.
type MobileMoneyService struct {
	txnRepo        fees.MobileMoneyTransactionRepository
	studentRepo    people.StudentRepository
	invoiceRepo    fees.InvoiceRepository
	paymentService *PaymentService
	matcher        *fees.InvoiceMatcher
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	publisher      shared.EventPublisher
	logger         *zap.Logger
}

// NewMobileMoneyService creates a new MobileMoneyService
func NewMobileMoneyService(
	txnRepo fees.MobileMoneyTransactionRepository,
	studentRepo people.StudentRepository,
	invoiceRepo fees.InvoiceRepository,
	paymentService *PaymentService,
	matcher *fees.InvoiceMatcher,
	idempotency shared.IdempotencyStore,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *MobileMoneyService {
	return &MobileMoneyService{
		txnRepo:        txnRepo,
		studentRepo:    studentRepo,
		invoiceRepo:    invoiceRepo,
		paymentService: paymentService,
		matcher:        matcher,
		idempotency:    idempotency,
		idempotencyTTL: shared.DefaultIdempotencyConfig().TTL,
		publisher:      publisher,
		logger:         logger,
	}
}

// Ingest records an inbound notification and attempts to match it. A
// duplicate external id returns the existing transaction without touching
// any invoice. An unmatched notification is a normal outcome, persisted for
// manual follow-up or retry, not an error.
func (s *MobileMoneyService) Ingest(ctx context.Context, schoolID uuid.UUID, n PaymentNotification) (*IngestResult, error) {
	if n.ExternalID == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "External transaction ID cannot be empty")
	}

	fresh, err := s.idempotency.MarkProcessed(ctx, n.ExternalID, s.idempotencyTTL)
	if err != nil {
		// The store being down must not block payment ingestion; the
		// database unique constraint still protects us.
		s.logger.Warn("idempotency store unavailable, relying on unique constraint",
			zap.String("external_id", n.ExternalID),
			zap.Error(err))
		fresh = true
	}
	if !fresh {
		return s.duplicateResult(ctx, n.ExternalID)
	}

	if existing, err := s.txnRepo.FindByExternalID(ctx, n.ExternalID); err != nil {
		return nil, fmt.Errorf("failed to check for existing transaction: %w", err)
	} else if existing != nil {
		return duplicateOf(existing), nil
	}

	txn, err := fees.NewMobileMoneyTransaction(schoolID, n.ExternalID, n.Amount, n.Phone, n.Reference, n.RawPayload)
	if err != nil {
		return nil, err
	}
	if err := s.txnRepo.Save(ctx, txn); err != nil {
		// Lost the race to the unique constraint
		if existing, findErr := s.txnRepo.FindByExternalID(ctx, n.ExternalID); findErr == nil && existing != nil {
			return duplicateOf(existing), nil
		}
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	return s.match(ctx, txn)
}

// RetryMatch re-runs the matching logic for a transaction that is currently
// unmatched, typically after an admin fixed the guardian's phone number or
// generated the missing invoice.
func (s *MobileMoneyService) RetryMatch(ctx context.Context, schoolID, transactionID uuid.UUID) (*IngestResult, error) {
	txn, err := s.txnRepo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if txn == nil || txn.SchoolID != schoolID {
		return nil, shared.NewDomainError("TRANSACTION_NOT_FOUND", "Mobile money transaction not found")
	}
	if !txn.CanRetryMatch() {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot retry matching for transaction in %s status", txn.Status))
	}

	return s.match(ctx, txn)
}

// match finds the best open invoice for the transaction and, on success,
// records the payment and marks the transaction processed.
func (s *MobileMoneyService) match(ctx context.Context, txn *fees.MobileMoneyTransaction) (*IngestResult, error) {
	students, err := s.studentRepo.FindByGuardianPhone(ctx, txn.SchoolID, txn.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to look up students by phone: %w", err)
	}

	var candidates []*fees.Invoice
	if len(students) > 0 {
		ids := make([]uuid.UUID, 0, len(students))
		for _, st := range students {
			ids = append(ids, st.ID)
		}
		candidates, err = s.invoiceRepo.FindOpenByStudents(ctx, txn.SchoolID, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load open invoices: %w", err)
		}
	}

	res := s.matcher.Match(txn.GetAmountMoney(), candidates)
	if !res.Matched() {
		if err := txn.MarkUnmatched(res.Note()); err != nil {
			return nil, err
		}
		if err := s.txnRepo.Save(ctx, txn); err != nil {
			return nil, fmt.Errorf("failed to save unmatched transaction: %w", err)
		}
		s.logger.Info("mobile money transaction left unmatched",
			zap.String("external_id", txn.ExternalID),
			zap.String("phone", txn.Phone.Local()),
			zap.String("amount", txn.Amount.StringFixed(2)))
		return &IngestResult{
			Status:        IngestStatusUnmatched,
			TransactionID: txn.ID,
			Note:          res.Note(),
		}, nil
	}

	if res.Kind == fees.MatchKindTolerance {
		// Fallback matches can be wrong when siblings carry similar
		// balances; keep a loud audit trail for every one of them.
		s.logger.Warn("mobile money transaction matched by tolerance fallback",
			zap.String("external_id", txn.ExternalID),
			zap.String("invoice_number", res.Invoice.InvoiceNumber),
			zap.String("delta", res.Delta.StringFixed(2)))
	}

	if err := txn.MarkMatched(res.Invoice.ID, res.Note()); err != nil {
		return nil, err
	}
	if err := s.txnRepo.Save(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to save matched transaction: %w", err)
	}

	payment, err := s.paymentService.RecordPayment(ctx, RecordPaymentRequest{
		InvoiceID: res.Invoice.ID,
		Amount:    txn.GetAmountMoney(),
		Method:    fees.PaymentMethodMobileMoney,
		Reference: txn.ExternalID,
	})
	if err != nil {
		// The transaction stays matched but unprocessed; an admin can
		// retry once the underlying problem is fixed.
		s.logger.Error("failed to record payment for matched transaction",
			zap.String("external_id", txn.ExternalID),
			zap.String("invoice_id", res.Invoice.ID.String()),
			zap.Error(err))
		return nil, err
	}

	if err := txn.MarkProcessed(payment.ID); err != nil {
		return nil, err
	}
	if err := s.txnRepo.Save(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to save processed transaction: %w", err)
	}
	if err := s.publisher.Publish(ctx, txn.GetDomainEvents()...); err != nil {
		s.logger.Warn("failed to publish transaction events",
			zap.String("external_id", txn.ExternalID),
			zap.Error(err))
	}
	txn.ClearDomainEvents()

	return &IngestResult{
		Status:        IngestStatusProcessed,
		TransactionID: txn.ID,
		InvoiceID:     txn.InvoiceID,
		PaymentID:     txn.PaymentID,
		Note:          res.Note(),
	}, nil
}

// ListUnmatched returns unmatched transactions awaiting manual action
func (s *MobileMoneyService) ListUnmatched(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*fees.MobileMoneyTransaction], error) {
	return s.txnRepo.FindUnmatched(ctx, schoolID, filter)
}

func (s *MobileMoneyService) duplicateResult(ctx context.Context, externalID string) (*IngestResult, error) {
	existing, err := s.txnRepo.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load duplicate transaction: %w", err)
	}
	if existing == nil {
		// Marked in the store but missing from the database: an earlier
		// ingest failed between the two writes. Treat as duplicate and let
		// the operator replay via retry if needed.
		return &IngestResult{Status: IngestStatusDuplicate}, nil
	}
	return duplicateOf(existing), nil
}

func duplicateOf(txn *fees.MobileMoneyTransaction) *IngestResult {
	return &IngestResult{
		Status:        IngestStatusDuplicate,
		TransactionID: txn.ID,
		InvoiceID:     txn.InvoiceID,
		PaymentID:     txn.PaymentID,
	}
}
