package fees

import (
	"time"

	"github.com/google/uuid"

	"github.com/shulepay/backend/internal/domain/shared"
)

// Term represents an academic term within a school year. Fee structures and
// invoices are scoped to a term.
type Term struct {
	shared.SchoolAggregateRoot
	Name      string
	Year      int
	StartDate time.Time
	EndDate   time.Time
	Active    bool
}

// NewTerm creates a new term
func NewTerm(schoolID uuid.UUID, name string, year int, startDate, endDate time.Time) (*Term, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_TERM_NAME", "Term name cannot be empty")
	}
	if year < 2000 {
		return nil, shared.NewDomainError("INVALID_TERM_YEAR", "Term year is not valid")
	}
	if !endDate.After(startDate) {
		return nil, shared.NewDomainError("INVALID_TERM_DATES", "Term end date must be after start date")
	}

	return &Term{
		SchoolAggregateRoot: shared.NewSchoolAggregateRoot(schoolID),
		Name:                name,
		Year:                year,
		StartDate:           startDate,
		EndDate:             endDate,
		Active:              true,
	}, nil
}

// Close marks the term as no longer active.
// Invoice generation refuses to run against a closed term.
func (t *Term) Close() {
	t.Active = false
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}

// Contains reports whether the given date falls inside the term
func (t *Term) Contains(date time.Time) bool {
	return !date.Before(t.StartDate) && !date.After(t.EndDate)
}
