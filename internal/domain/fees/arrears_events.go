package fees

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shulepay/backend/internal/domain/shared"
)

// ArrearsRecordedEvent is raised when a student's overdue position is
// created or refreshed with an outstanding balance. DaysOutstanding lets
// downstream consumers apply aging thresholds.
type ArrearsRecordedEvent struct {
	shared.BaseDomainEvent
	ArrearsID       uuid.UUID       `json:"arrears_id"`
	StudentID       uuid.UUID       `json:"student_id"`
	TotalArrears    decimal.Decimal `json:"total_arrears"`
	DaysOutstanding int             `json:"days_outstanding"`
}

// EventType returns the event type name
func (e *ArrearsRecordedEvent) EventType() string {
	return "ArrearsRecorded"
}

// NewArrearsRecordedEvent creates a new ArrearsRecordedEvent
func NewArrearsRecordedEvent(a *Arrears) *ArrearsRecordedEvent {
	return &ArrearsRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ArrearsRecorded", "Arrears", a.ID, a.SchoolID),
		ArrearsID:       a.ID,
		StudentID:       a.StudentID,
		TotalArrears:    a.TotalArrears,
		DaysOutstanding: a.DaysOutstanding,
	}
}

// ArrearsResolvedEvent is raised when a student clears all overdue balances
type ArrearsResolvedEvent struct {
	shared.BaseDomainEvent
	ArrearsID    uuid.UUID  `json:"arrears_id"`
	StudentID    uuid.UUID  `json:"student_id"`
	ResolvedDate *time.Time `json:"resolved_date"`
}

// EventType returns the event type name
func (e *ArrearsResolvedEvent) EventType() string {
	return "ArrearsResolved"
}

// NewArrearsResolvedEvent creates a new ArrearsResolvedEvent
func NewArrearsResolvedEvent(a *Arrears) *ArrearsResolvedEvent {
	return &ArrearsResolvedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ArrearsResolved", "Arrears", a.ID, a.SchoolID),
		ArrearsID:       a.ID,
		StudentID:       a.StudentID,
		ResolvedDate:    a.ResolvedDate,
	}
}
