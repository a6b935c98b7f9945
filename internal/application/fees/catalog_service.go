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

// CatalogService manages the fee catalog: terms, fee structures and
// per-student overrides. Catalog edits only influence future invoice
// generation runs; invoices already issued are never touched from here.
type CatalogService struct {
	termRepo      fees.TermRepository
	structureRepo fees.FeeStructureRepository
	overrideRepo  fees.FeeOverrideRepository
	studentRepo   people.StudentRepository
	logger        *zap.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(
	termRepo fees.TermRepository,
	structureRepo fees.FeeStructureRepository,
	overrideRepo fees.FeeOverrideRepository,
	studentRepo people.StudentRepository,
	logger *zap.Logger,
) *CatalogService {
	return &CatalogService{
		termRepo:      termRepo,
		structureRepo: structureRepo,
		overrideRepo:  overrideRepo,
		studentRepo:   studentRepo,
		logger:        logger,
	}
}

// CreateTermRequest describes a new academic term
type CreateTermRequest struct {
	SchoolID  uuid.UUID
	Name      string
	Year      int
	StartDate time.Time
	EndDate   time.Time
}

// CreateTerm creates a new term. Uniqueness per (school, name, year) is
// enforced by the database constraint.
func (s *CatalogService) CreateTerm(ctx context.Context, req CreateTermRequest) (*fees.Term, error) {
	term, err := fees.NewTerm(req.SchoolID, req.Name, req.Year, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if err := s.termRepo.Save(ctx, term); err != nil {
		return nil, fmt.Errorf("failed to save term: %w", err)
	}

	s.logger.Info("term created",
		zap.String("term_id", term.ID.String()),
		zap.String("name", term.Name),
		zap.Int("year", term.Year))
	return term, nil
}

// CloseTerm marks a term inactive; invoice generation refuses closed terms
func (s *CatalogService) CloseTerm(ctx context.Context, schoolID, termID uuid.UUID) (*fees.Term, error) {
	term, err := s.termRepo.FindByID(ctx, termID)
	if err != nil {
		return nil, fmt.Errorf("failed to load term: %w", err)
	}
	if term == nil || term.SchoolID != schoolID {
		return nil, shared.NewDomainError("TERM_NOT_FOUND", "Term not found")
	}
	if !term.Active {
		return term, nil
	}

	term.Close()
	if err := s.termRepo.Save(ctx, term); err != nil {
		return nil, fmt.Errorf("failed to save term: %w", err)
	}
	return term, nil
}

// ListTerms returns a page of the school's terms
func (s *CatalogService) ListTerms(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*fees.Term], error) {
	return s.termRepo.List(ctx, schoolID, filter)
}

// CreateFeeStructureRequest describes a new charge for a term
type CreateFeeStructureRequest struct {
	SchoolID    uuid.UUID
	TermID      uuid.UUID
	ClassID     *uuid.UUID // nil = school-wide
	Description string
	Amount      valueobject.Money
	DueDate     time.Time
	ActorID     *uuid.UUID
}

// CreateFeeStructure adds a charge to a term's catalog
func (s *CatalogService) CreateFeeStructure(ctx context.Context, req CreateFeeStructureRequest) (*fees.FeeStructure, error) {
	term, err := s.termRepo.FindByID(ctx, req.TermID)
	if err != nil {
		return nil, fmt.Errorf("failed to load term: %w", err)
	}
	if term == nil || term.SchoolID != req.SchoolID {
		return nil, shared.NewDomainError("TERM_NOT_FOUND", "Term not found")
	}
	if !term.Active {
		return nil, shared.NewDomainError("TERM_CLOSED", "Cannot add fee structures to a closed term")
	}

	structure, err := fees.NewFeeStructure(req.SchoolID, req.TermID, req.ClassID, req.Description, req.Amount, req.DueDate)
	if err != nil {
		return nil, err
	}
	if req.ActorID != nil {
		structure.CreatedBy = req.ActorID
	}

	if err := s.structureRepo.Save(ctx, structure); err != nil {
		return nil, fmt.Errorf("failed to save fee structure: %w", err)
	}

	s.logger.Info("fee structure created",
		zap.String("fee_structure_id", structure.ID.String()),
		zap.String("term_id", req.TermID.String()),
		zap.String("description", structure.Description),
		zap.String("amount", structure.Amount.StringFixed(2)))
	return structure, nil
}

// GetFeeStructure returns one fee structure scoped to the school
func (s *CatalogService) GetFeeStructure(ctx context.Context, schoolID, structureID uuid.UUID) (*fees.FeeStructure, error) {
	structure, err := s.structureRepo.FindByID(ctx, structureID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fee structure: %w", err)
	}
	if structure == nil || structure.SchoolID != schoolID {
		return nil, shared.NewDomainError("FEE_STRUCTURE_NOT_FOUND", "Fee structure not found")
	}
	return structure, nil
}

// UpdateFeeStructureAmount changes the configured amount for future runs
func (s *CatalogService) UpdateFeeStructureAmount(ctx context.Context, schoolID, structureID uuid.UUID, amount valueobject.Money) (*fees.FeeStructure, error) {
	structure, err := s.GetFeeStructure(ctx, schoolID, structureID)
	if err != nil {
		return nil, err
	}
	if err := structure.UpdateAmount(amount); err != nil {
		return nil, err
	}
	if err := s.structureRepo.Save(ctx, structure); err != nil {
		return nil, fmt.Errorf("failed to save fee structure: %w", err)
	}
	return structure, nil
}

// DeactivateFeeStructure retires a structure from future generation runs
func (s *CatalogService) DeactivateFeeStructure(ctx context.Context, schoolID, structureID uuid.UUID) (*fees.FeeStructure, error) {
	structure, err := s.GetFeeStructure(ctx, schoolID, structureID)
	if err != nil {
		return nil, err
	}
	if !structure.Active {
		return structure, nil
	}
	structure.Deactivate()
	if err := s.structureRepo.Save(ctx, structure); err != nil {
		return nil, fmt.Errorf("failed to save fee structure: %w", err)
	}
	return structure, nil
}

// ListFeeStructures returns a page of the school's fee structures
func (s *CatalogService) ListFeeStructures(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*fees.FeeStructure], error) {
	return s.structureRepo.List(ctx, schoolID, filter)
}

// SetOverrideRequest describes a per-student exception to a fee structure.
// A nil Amount waives the fee entirely.
type SetOverrideRequest struct {
	SchoolID       uuid.UUID
	StudentID      uuid.UUID
	TermID         uuid.UUID
	FeeStructureID uuid.UUID
	Amount         *valueobject.Money
	Reason         string
	ActorID        *uuid.UUID
}

// SetOverride creates or updates the override for one (student, term,
// structure) triple. An edit after invoices were generated only affects
// future runs; it never rewrites existing invoices.
func (s *CatalogService) SetOverride(ctx context.Context, req SetOverrideRequest) (*fees.StudentFeeOverride, error) {
	student, err := s.studentRepo.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	if student == nil || student.SchoolID != req.SchoolID {
		return nil, shared.NewDomainError("STUDENT_NOT_FOUND", "Student not found")
	}

	structure, err := s.structureRepo.FindByID(ctx, req.FeeStructureID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fee structure: %w", err)
	}
	if structure == nil || structure.SchoolID != req.SchoolID {
		return nil, shared.NewDomainError("FEE_STRUCTURE_NOT_FOUND", "Fee structure not found")
	}
	if structure.TermID != req.TermID {
		return nil, shared.NewDomainError("TERM_MISMATCH", "Fee structure does not belong to the given term")
	}

	existing, err := s.overrideRepo.FindForGeneration(ctx, req.StudentID, req.TermID, req.FeeStructureID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing override: %w", err)
	}

	if existing != nil {
		if err := existing.UpdateAmount(req.Amount, req.Reason); err != nil {
			return nil, err
		}
		if err := s.overrideRepo.Save(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to save override: %w", err)
		}
		return existing, nil
	}

	override, err := fees.NewStudentFeeOverride(req.SchoolID, req.StudentID, req.TermID, req.FeeStructureID, req.Amount, req.Reason)
	if err != nil {
		return nil, err
	}
	if req.ActorID != nil {
		override.CreatedBy = req.ActorID
	}

	if err := s.overrideRepo.Save(ctx, override); err != nil {
		return nil, fmt.Errorf("failed to save override: %w", err)
	}

	s.logger.Info("fee override set",
		zap.String("student_id", req.StudentID.String()),
		zap.String("fee_structure_id", req.FeeStructureID.String()),
		zap.Bool("waiver", override.IsWaiver()))
	return override, nil
}

// RemoveOverride deletes an override, restoring the structure's amount for
// future generation runs
func (s *CatalogService) RemoveOverride(ctx context.Context, schoolID, overrideID uuid.UUID) error {
	override, err := s.overrideRepo.FindByID(ctx, overrideID)
	if err != nil {
		return fmt.Errorf("failed to load override: %w", err)
	}
	if override == nil || override.SchoolID != schoolID {
		return shared.NewDomainError("OVERRIDE_NOT_FOUND", "Fee override not found")
	}
	return s.overrideRepo.Delete(ctx, overrideID)
}
