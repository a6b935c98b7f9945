package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shulepay/backend/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// AggregateModel provides common persistence fields for aggregate roots.
// It extends BaseModel with version for optimistic locking.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot populates AggregateModel from domain BaseAggregateRoot
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Version = a.Version
}

// SchoolAggregateModel provides common persistence fields for school-scoped
// aggregate roots. It extends AggregateModel with school ID and creator info.
type SchoolAggregateModel struct {
	AggregateModel
	SchoolID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy *uuid.UUID `gorm:"type:uuid;index"`
}

// FromDomainSchoolAggregateRoot populates SchoolAggregateModel from domain SchoolAggregateRoot
func (m *SchoolAggregateModel) FromDomainSchoolAggregateRoot(s shared.SchoolAggregateRoot) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.SchoolID = s.SchoolID
	m.CreatedBy = s.CreatedBy
}

// schoolAggregateRoot rebuilds the embedded domain root from persisted fields
func (m *SchoolAggregateModel) schoolAggregateRoot() shared.SchoolAggregateRoot {
	return shared.SchoolAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		SchoolID:  m.SchoolID,
		CreatedBy: m.CreatedBy,
	}
}
