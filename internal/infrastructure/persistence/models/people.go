package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shulepay/backend/internal/domain/people"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

// StudentModel is the persistence model for the Student domain entity.
// The guardian phone is stored in canonical local format so the matcher's
// phone lookup is a plain equality query.
type StudentModel struct {
	SchoolAggregateModel
	AdmissionNumber string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_student_school_admission,priority:2"`
	FirstName       string     `gorm:"type:varchar(100);not null"`
	LastName        string     `gorm:"type:varchar(100);not null"`
	ClassID         *uuid.UUID `gorm:"type:uuid;index"`
	GuardianName    string     `gorm:"type:varchar(200)"`
	GuardianPhone   string     `gorm:"type:varchar(20);index"`
	GuardianEmail   string     `gorm:"type:varchar(200)"`
	Active          bool       `gorm:"not null;default:true"`
	EnrolledAt      time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StudentModel) TableName() string {
	return "students"
}

// ToDomain converts the persistence model to a domain Student entity.
func (m *StudentModel) ToDomain() *people.Student {
	return &people.Student{
		SchoolAggregateRoot: m.schoolAggregateRoot(),
		AdmissionNumber:     m.AdmissionNumber,
		FirstName:           m.FirstName,
		LastName:            m.LastName,
		ClassID:             m.ClassID,
		GuardianName:        m.GuardianName,
		GuardianPhone:       valueobject.PhoneFromCanonical(m.GuardianPhone),
		GuardianEmail:       m.GuardianEmail,
		Active:              m.Active,
		EnrolledAt:          m.EnrolledAt,
	}
}

// FromDomain populates the persistence model from a domain Student entity.
func (m *StudentModel) FromDomain(s *people.Student) {
	m.FromDomainSchoolAggregateRoot(s.SchoolAggregateRoot)
	m.AdmissionNumber = s.AdmissionNumber
	m.FirstName = s.FirstName
	m.LastName = s.LastName
	m.ClassID = s.ClassID
	m.GuardianName = s.GuardianName
	m.GuardianPhone = s.GuardianPhone.Local()
	m.GuardianEmail = s.GuardianEmail
	m.Active = s.Active
	m.EnrolledAt = s.EnrolledAt
}

// StudentModelFromDomain creates a new persistence model from a domain Student entity.
func StudentModelFromDomain(s *people.Student) *StudentModel {
	m := &StudentModel{}
	m.FromDomain(s)
	return m
}
