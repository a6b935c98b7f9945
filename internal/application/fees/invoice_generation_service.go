package fees

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shulepay/backend/internal/domain/fees"
	"github.com/shulepay/backend/internal/domain/people"
	"github.com/shulepay/backend/internal/domain/shared"
)

// InvoiceGenerationService expands fee structures into invoices for a term.
// A run is idempotent: students already invoiced for the term are skipped,
// and a failure on one fee structure never aborts the others.
type InvoiceGenerationService struct {
	termRepo      fees.TermRepository
	structureRepo fees.FeeStructureRepository
	overrideRepo  fees.FeeOverrideRepository
	invoiceRepo   fees.InvoiceRepository
	studentRepo   people.StudentRepository
	publisher     shared.EventPublisher
	logger        *zap.Logger
}

// NewInvoiceGenerationService creates a new InvoiceGenerationService
func NewInvoiceGenerationService(
	termRepo fees.TermRepository,
	structureRepo fees.FeeStructureRepository,
	overrideRepo fees.FeeOverrideRepository,
	invoiceRepo fees.InvoiceRepository,
	studentRepo people.StudentRepository,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *InvoiceGenerationService {
	return &InvoiceGenerationService{
		termRepo:      termRepo,
		structureRepo: structureRepo,
		overrideRepo:  overrideRepo,
		invoiceRepo:   invoiceRepo,
		studentRepo:   studentRepo,
		publisher:     publisher,
		logger:        logger,
	}
}

// GenerationRequest describes one invoice generation run
type GenerationRequest struct {
	SchoolID uuid.UUID
	TermID   uuid.UUID
	ClassID  *uuid.UUID // nil = all classes
	ActorID  *uuid.UUID // acting user, for audit
}

// GenerationError records a failure for one fee structure or student
// without aborting the run
type GenerationError struct {
	FeeStructureID uuid.UUID `json:"fee_structure_id"`
	StudentID      uuid.UUID `json:"student_id,omitempty"`
	Message        string    `json:"message"`
}

// GenerationResult summarizes a generation run
type GenerationResult struct {
	Created int               `json:"created"`
	Skipped int               `json:"skipped"`
	Errors  []GenerationError `json:"errors"`
}

// Generate runs invoice generation for the term. For every active fee
// structure in scope and every active student it applies to, a new invoice
// is created unless the student already holds one for the term. Override
// resolution happens exactly once, here; later override edits never touch
// invoices that already exist.
func (s *InvoiceGenerationService) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	term, err := s.termRepo.FindByID(ctx, req.TermID)
	if err != nil {
		return nil, fmt.Errorf("failed to load term: %w", err)
	}
	if term == nil || term.SchoolID != req.SchoolID {
		return nil, shared.NewDomainError("TERM_NOT_FOUND", "Term not found")
	}
	if !term.Active {
		return nil, shared.NewDomainError("TERM_CLOSED", "Cannot generate invoices for a closed term")
	}

	structures, err := s.structureRepo.FindActiveByTerm(ctx, req.SchoolID, req.TermID, req.ClassID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fee structures: %w", err)
	}

	students, err := s.studentRepo.FindActive(ctx, req.SchoolID, req.ClassID)
	if err != nil {
		return nil, fmt.Errorf("failed to load students: %w", err)
	}

	overrides, err := s.overrideRepo.FindByTerm(ctx, req.SchoolID, req.TermID)
	if err != nil {
		return nil, fmt.Errorf("failed to load overrides: %w", err)
	}
	overrideIndex := indexOverrides(overrides)

	result := &GenerationResult{Errors: make([]GenerationError, 0)}

	for _, structure := range structures {
		if err := s.generateForStructure(ctx, term, structure, students, overrideIndex, req.ActorID, result); err != nil {
			// One broken structure must not sink the whole run
			result.Errors = append(result.Errors, GenerationError{
				FeeStructureID: structure.ID,
				Message:        err.Error(),
			})
			s.logger.Error("invoice generation failed for fee structure",
				zap.String("fee_structure_id", structure.ID.String()),
				zap.Error(err))
		}
	}

	s.logger.Info("invoice generation run completed",
		zap.String("term_id", term.ID.String()),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)))

	return result, nil
}

func (s *InvoiceGenerationService) generateForStructure(
	ctx context.Context,
	term *fees.Term,
	structure *fees.FeeStructure,
	students []*people.Student,
	overrideIndex map[overrideKey]*fees.StudentFeeOverride,
	actorID *uuid.UUID,
	result *GenerationResult,
) error {
	for _, student := range students {
		if !structure.AppliesToClass(student.ClassID) {
			continue
		}

		exists, err := s.invoiceRepo.ExistsForStudentTerm(ctx, student.ID, term.ID)
		if err != nil {
			return fmt.Errorf("failed to check existing invoice for student %s: %w", student.ID, err)
		}
		if exists {
			result.Skipped++
			continue
		}

		override := overrideIndex[overrideKey{studentID: student.ID, structureID: structure.ID}]
		amount := structure.ChargeFor(override)

		inv, err := fees.NewInvoice(
			term.SchoolID,
			s.nextInvoiceNumber(term),
			student.ID,
			term.ID,
			amount,
			structure.DueDate,
			actorID,
		)
		if err != nil {
			result.Errors = append(result.Errors, GenerationError{
				FeeStructureID: structure.ID,
				StudentID:      student.ID,
				Message:        err.Error(),
			})
			continue
		}

		if err := s.invoiceRepo.Save(ctx, inv); err != nil {
			result.Errors = append(result.Errors, GenerationError{
				FeeStructureID: structure.ID,
				StudentID:      student.ID,
				Message:        fmt.Sprintf("failed to save invoice: %v", err),
			})
			continue
		}

		if err := s.publisher.Publish(ctx, inv.GetDomainEvents()...); err != nil {
			s.logger.Warn("failed to publish invoice events",
				zap.String("invoice_id", inv.ID.String()),
				zap.Error(err))
		}
		inv.ClearDomainEvents()

		result.Created++
	}
	return nil
}

// nextInvoiceNumber builds a unique invoice number. Uniqueness is ultimately
// enforced by the database constraint.
func (s *InvoiceGenerationService) nextInvoiceNumber(term *fees.Term) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("INV-%d-%s", term.Year, suffix)
}

type overrideKey struct {
	studentID   uuid.UUID
	structureID uuid.UUID
}

func indexOverrides(overrides []*fees.StudentFeeOverride) map[overrideKey]*fees.StudentFeeOverride {
	index := make(map[overrideKey]*fees.StudentFeeOverride, len(overrides))
	for _, o := range overrides {
		index[overrideKey{studentID: o.StudentID, structureID: o.FeeStructureID}] = o
	}
	return index
}
