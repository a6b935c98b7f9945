package fees

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

// StudentFeeOverride is a per-student exception to a fee structure. A nil
// OverrideAmount means the fee is fully waived; a non-nil amount replaces the
// structure's amount (a discount, or occasionally a surcharge). At most one
// override exists per (student, term, fee structure).
type StudentFeeOverride struct {
	shared.SchoolAggregateRoot
	StudentID      uuid.UUID
	TermID         uuid.UUID
	FeeStructureID uuid.UUID
	OverrideAmount *decimal.Decimal // nil = waived
	Reason         string
}

// NewStudentFeeOverride creates a new override. Pass a nil amount to waive
// the fee entirely.
func NewStudentFeeOverride(
	schoolID, studentID, termID, feeStructureID uuid.UUID,
	amount *valueobject.Money,
	reason string,
) (*StudentFeeOverride, error) {
	if studentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STUDENT", "Student ID cannot be empty")
	}
	if termID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TERM", "Term ID cannot be empty")
	}
	if feeStructureID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_FEE_STRUCTURE", "Fee structure ID cannot be empty")
	}
	if reason == "" {
		return nil, shared.NewDomainError("INVALID_REASON", "Override reason is required")
	}

	o := &StudentFeeOverride{
		SchoolAggregateRoot: shared.NewSchoolAggregateRoot(schoolID),
		StudentID:           studentID,
		TermID:              termID,
		FeeStructureID:      feeStructureID,
		Reason:              reason,
	}
	if amount != nil {
		if amount.IsNegative() {
			return nil, shared.NewDomainError("INVALID_AMOUNT", "Override amount cannot be negative")
		}
		d := amount.Amount()
		o.OverrideAmount = &d
	}
	return o, nil
}

// IsWaiver returns true if the override waives the fee entirely
func (o *StudentFeeOverride) IsWaiver() bool {
	return o.OverrideAmount == nil
}

// EffectiveAmount returns the amount the student owes under this override.
// A waiver resolves to zero.
func (o *StudentFeeOverride) EffectiveAmount() valueobject.Money {
	if o.OverrideAmount == nil {
		return valueobject.ZeroKES()
	}
	return valueobject.NewMoneyKES(*o.OverrideAmount)
}

// UpdateAmount replaces the override amount. Only affects future invoice
// generation runs, never invoices already created.
func (o *StudentFeeOverride) UpdateAmount(amount *valueobject.Money, reason string) error {
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Override reason is required")
	}
	if amount == nil {
		o.OverrideAmount = nil
	} else {
		if amount.IsNegative() {
			return shared.NewDomainError("INVALID_AMOUNT", "Override amount cannot be negative")
		}
		d := amount.Amount()
		o.OverrideAmount = &d
	}
	o.Reason = reason
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	return nil
}
