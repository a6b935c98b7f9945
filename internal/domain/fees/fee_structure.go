package fees

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

// FeeStructure defines a charge owed for a term: amount, due date and scope.
// A nil ClassID means the charge applies school-wide; otherwise it applies
// only to students in that class. Unique per (school, term, class, description).
type FeeStructure struct {
	shared.SchoolAggregateRoot
	TermID      uuid.UUID
	ClassID     *uuid.UUID // nil = school-wide
	Description string
	Amount      decimal.Decimal
	DueDate     time.Time
	Active      bool
}

// NewFeeStructure creates a new active fee structure
func NewFeeStructure(
	schoolID, termID uuid.UUID,
	classID *uuid.UUID,
	description string,
	amount valueobject.Money,
	dueDate time.Time,
) (*FeeStructure, error) {
	if termID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TERM", "Term ID cannot be empty")
	}
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Fee description cannot be empty")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Fee amount cannot be negative")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Fee due date is required")
	}

	return &FeeStructure{
		SchoolAggregateRoot: shared.NewSchoolAggregateRoot(schoolID),
		TermID:              termID,
		ClassID:             classID,
		Description:         description,
		Amount:              amount.Amount(),
		DueDate:             dueDate,
		Active:              true,
	}, nil
}

// GetAmountMoney returns the configured amount as Money
func (f *FeeStructure) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyKES(f.Amount)
}

// IsSchoolWide returns true if the structure applies to all classes
func (f *FeeStructure) IsSchoolWide() bool {
	return f.ClassID == nil
}

// AppliesToClass reports whether the structure applies to a student in the
// given class. A school-wide structure applies to every class including
// students with no class assignment.
func (f *FeeStructure) AppliesToClass(classID *uuid.UUID) bool {
	if f.ClassID == nil {
		return true
	}
	return classID != nil && *classID == *f.ClassID
}

// Deactivate retires the structure from future invoice generation runs.
// Existing invoices are unaffected.
func (f *FeeStructure) Deactivate() {
	f.Active = false
	f.UpdatedAt = time.Now()
	f.IncrementVersion()
}

// UpdateAmount changes the configured amount for future generation runs
func (f *FeeStructure) UpdateAmount(amount valueobject.Money) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Fee amount cannot be negative")
	}
	f.Amount = amount.Amount()
	f.UpdatedAt = time.Now()
	f.IncrementVersion()
	return nil
}

// ChargeFor resolves the amount a student owes for this structure, applying
// the override when one exists. The resolution is consulted once at
// generation time; later override edits never alter existing invoices.
func (f *FeeStructure) ChargeFor(override *StudentFeeOverride) valueobject.Money {
	if override == nil {
		return f.GetAmountMoney()
	}
	return override.EffectiveAmount()
}
