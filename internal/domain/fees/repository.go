package fees

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shulepay/backend/internal/domain/shared"
)

// TermRepository defines the persistence interface for terms
type TermRepository interface {
	Save(ctx context.Context, term *Term) error
	FindByID(ctx context.Context, id uuid.UUID) (*Term, error)
	FindActive(ctx context.Context, schoolID uuid.UUID) ([]*Term, error)
	List(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*Term], error)
}

// FeeStructureRepository defines the persistence interface for fee structures
type FeeStructureRepository interface {
	Save(ctx context.Context, fs *FeeStructure) error
	FindByID(ctx context.Context, id uuid.UUID) (*FeeStructure, error)
	// FindActiveByTerm returns active structures for a term, optionally
	// narrowed to one class. School-wide structures are always included.
	FindActiveByTerm(ctx context.Context, schoolID, termID uuid.UUID, classID *uuid.UUID) ([]*FeeStructure, error)
	List(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*FeeStructure], error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// FeeOverrideRepository defines the persistence interface for student fee overrides
type FeeOverrideRepository interface {
	Save(ctx context.Context, o *StudentFeeOverride) error
	FindByID(ctx context.Context, id uuid.UUID) (*StudentFeeOverride, error)
	// FindForGeneration returns the override for one (student, term,
	// structure) triple, or nil when none exists.
	FindForGeneration(ctx context.Context, studentID, termID, feeStructureID uuid.UUID) (*StudentFeeOverride, error)
	// FindByTerm returns all overrides for a term so a generation run can
	// resolve them without a query per student.
	FindByTerm(ctx context.Context, schoolID, termID uuid.UUID) ([]*StudentFeeOverride, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// InvoiceRepository defines the persistence interface for invoices
type InvoiceRepository interface {
	Save(ctx context.Context, inv *Invoice) error
	// SaveWithLock persists the invoice with an optimistic lock on Version.
	// Returns shared.ErrConcurrencyConflict if the row was modified concurrently.
	SaveWithLock(ctx context.Context, inv *Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByNumber(ctx context.Context, schoolID uuid.UUID, invoiceNumber string) (*Invoice, error)
	// ExistsForStudentTerm reports whether the student already holds an
	// invoice for the term. The generator's idempotence check.
	ExistsForStudentTerm(ctx context.Context, studentID, termID uuid.UUID) (bool, error)
	// FindOpenByStudents returns invoices open for payment across a set of
	// students, used by the transaction matcher.
	FindOpenByStudents(ctx context.Context, schoolID uuid.UUID, studentIDs []uuid.UUID) ([]*Invoice, error)
	// FindPastDueByStudent returns invoices with balance outstanding and
	// due date before the given time, in any open status.
	FindPastDueByStudent(ctx context.Context, studentID uuid.UUID, before time.Time) ([]*Invoice, error)
	FindByStudent(ctx context.Context, studentID uuid.UUID, filter shared.Filter) (shared.Paginated[*Invoice], error)
	// StudentIDsWithInvoices returns every student holding at least one
	// invoice in the school, for the batch arrears recompute.
	StudentIDsWithInvoices(ctx context.Context, schoolID uuid.UUID) ([]uuid.UUID, error)
	CountByTerm(ctx context.Context, schoolID, termID uuid.UUID) (int64, error)
}

// PaymentRepository defines the persistence interface for payments
type PaymentRepository interface {
	Save(ctx context.Context, p *Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error)
	FindByReference(ctx context.Context, schoolID uuid.UUID, reference string) (*Payment, error)
	List(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*Payment], error)
}

// ArrearsRepository defines the persistence interface for arrears rows
type ArrearsRepository interface {
	Save(ctx context.Context, a *Arrears) error
	// SaveWithLock persists the row with an optimistic lock on Version.
	SaveWithLock(ctx context.Context, a *Arrears) error
	// FindByStudent returns the arrears row for a student, or nil when the
	// student has never been in arrears.
	FindByStudent(ctx context.Context, schoolID, studentID uuid.UUID) (*Arrears, error)
	FindUnresolved(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*Arrears], error)
}

// MobileMoneyTransactionRepository defines the persistence interface for
// inbound mobile-money transactions
type MobileMoneyTransactionRepository interface {
	Save(ctx context.Context, t *MobileMoneyTransaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*MobileMoneyTransaction, error)
	// FindByExternalID returns the transaction for a gateway transaction
	// id, or nil when the id has never been seen. Backed by a unique
	// constraint so duplicate ingestion cannot race past this check.
	FindByExternalID(ctx context.Context, externalID string) (*MobileMoneyTransaction, error)
	FindUnmatched(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*MobileMoneyTransaction], error)
}
