package fees

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shulepay/backend/internal/domain/fees"
	"github.com/shulepay/backend/internal/domain/shared"
)

// ArrearsService maintains the per-student arrears cache. It is the only
// component that transitions invoices to overdue, since that transition
// depends on the passage of time rather than on any invoice mutation.
type ArrearsService struct {
	invoiceRepo fees.InvoiceRepository
	arrearsRepo fees.ArrearsRepository
	tx          shared.TxManager
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewArrearsService creates a new ArrearsService
func NewArrearsService(
	invoiceRepo fees.InvoiceRepository,
	arrearsRepo fees.ArrearsRepository,
	tx shared.TxManager,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *ArrearsService {
	return &ArrearsService{
		invoiceRepo: invoiceRepo,
		arrearsRepo: arrearsRepo,
		tx:          tx,
		publisher:   publisher,
		logger:      logger,
	}
}

// RecomputeResult summarizes a batch recompute run
type RecomputeResult struct {
	Students int      `json:"students"`
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Resolved int      `json:"resolved"`
	Errors   []string `json:"errors"`
}

// RecomputeForStudent rebuilds one student's arrears position from their
// invoices. Past-due invoices are summed and transitioned to overdue; with
// nothing past due, an unresolved arrears row is marked resolved rather
// than deleted. The arrears row is a derived cache, so the whole operation
// is idempotent.
func (s *ArrearsService) RecomputeForStudent(ctx context.Context, schoolID, studentID uuid.UUID) (*fees.Arrears, error) {
	now := time.Now()

	pastDue, err := s.invoiceRepo.FindPastDueByStudent(ctx, studentID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load past-due invoices: %w", err)
	}
	snap := fees.ComputeArrearsSnapshot(pastDue, now)

	arrears, err := s.arrearsRepo.FindByStudent(ctx, schoolID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load arrears: %w", err)
	}

	events := make([]shared.DomainEvent, 0, 4)

	txErr := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		for _, inv := range pastDue {
			if inv.Status == fees.InvoiceStatusOverdue {
				continue
			}
			if err := inv.MarkOverdue(now); err != nil {
				return fmt.Errorf("failed to mark invoice %s overdue: %w", inv.InvoiceNumber, err)
			}
			if err := s.invoiceRepo.SaveWithLock(txCtx, inv); err != nil {
				return err
			}
			events = append(events, inv.GetDomainEvents()...)
			inv.ClearDomainEvents()
		}

		switch {
		case arrears == nil && snap.HasArrears():
			created, err := fees.NewArrears(schoolID, studentID, snap, now)
			if err != nil {
				return err
			}
			if err := s.arrearsRepo.Save(txCtx, created); err != nil {
				return fmt.Errorf("failed to save arrears: %w", err)
			}
			events = append(events, created.GetDomainEvents()...)
			created.ClearDomainEvents()
			arrears = created

		case arrears != nil:
			arrears.ApplySnapshot(snap, now)
			if err := s.arrearsRepo.SaveWithLock(txCtx, arrears); err != nil {
				return err
			}
			events = append(events, arrears.GetDomainEvents()...)
			arrears.ClearDomainEvents()
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish arrears events",
			zap.String("student_id", studentID.String()),
			zap.Error(err))
	}

	return arrears, nil
}

// RecomputeAll rebuilds arrears for every student in the school holding at
// least one invoice. Per-student failures are logged and collected; the
// batch always runs to completion.
func (s *ArrearsService) RecomputeAll(ctx context.Context, schoolID uuid.UUID) (*RecomputeResult, error) {
	studentIDs, err := s.invoiceRepo.StudentIDsWithInvoices(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students with invoices: %w", err)
	}

	result := &RecomputeResult{Students: len(studentIDs), Errors: make([]string, 0)}

	for _, studentID := range studentIDs {
		before, err := s.arrearsRepo.FindByStudent(ctx, schoolID, studentID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("student %s: %v", studentID, err))
			continue
		}
		hadRow := before != nil
		wasUnresolved := before != nil && !before.IsResolved

		after, err := s.RecomputeForStudent(ctx, schoolID, studentID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("student %s: %v", studentID, err))
			s.logger.Error("arrears recompute failed for student",
				zap.String("student_id", studentID.String()),
				zap.Error(err))
			continue
		}

		switch {
		case !hadRow && after != nil:
			result.Created++
		case after != nil && after.IsResolved && wasUnresolved:
			result.Resolved++
		case after != nil:
			result.Updated++
		}
	}

	s.logger.Info("arrears recompute run completed",
		zap.String("school_id", schoolID.String()),
		zap.Int("students", result.Students),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("resolved", result.Resolved),
		zap.Int("errors", len(result.Errors)))

	return result, nil
}

// GetArrears returns a student's arrears snapshot, or nil when the student
// has never been in arrears
func (s *ArrearsService) GetArrears(ctx context.Context, schoolID, studentID uuid.UUID) (*fees.Arrears, error) {
	return s.arrearsRepo.FindByStudent(ctx, schoolID, studentID)
}

// ListUnresolved returns a page of students currently in arrears
func (s *ArrearsService) ListUnresolved(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*fees.Arrears], error) {
	return s.arrearsRepo.FindUnresolved(ctx, schoolID, filter)
}
