package people

import (
	"context"

	"github.com/google/uuid"

	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

// StudentRepository defines the persistence interface for students
type StudentRepository interface {
	Save(ctx context.Context, student *Student) error
	// SaveWithLock persists the student with an optimistic lock on Version.
	// Returns shared.ErrConcurrencyConflict if the row was modified concurrently.
	SaveWithLock(ctx context.Context, student *Student) error
	FindByID(ctx context.Context, id uuid.UUID) (*Student, error)
	FindByAdmissionNumber(ctx context.Context, schoolID uuid.UUID, admissionNumber string) (*Student, error)
	// FindActive returns active students in a school, optionally restricted
	// to a single class when classID is non-nil.
	FindActive(ctx context.Context, schoolID uuid.UUID, classID *uuid.UUID) ([]*Student, error)
	// FindByGuardianPhone returns students whose guardian phone normalizes
	// to the given number. Used by the mobile-money transaction matcher.
	FindByGuardianPhone(ctx context.Context, schoolID uuid.UUID, phone valueobject.Phone) ([]*Student, error)
	List(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*Student], error)
	Delete(ctx context.Context, id uuid.UUID) error
}
