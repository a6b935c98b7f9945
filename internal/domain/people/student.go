package people

import (
	"time"

	"github.com/google/uuid"

	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
)

// Student represents a learner enrolled at a school. Billing is keyed on the
// student; the guardian's phone number is what inbound mobile-money payments
// are matched against.
type Student struct {
	shared.SchoolAggregateRoot
	AdmissionNumber string
	FirstName       string
	LastName        string
	ClassID         *uuid.UUID // nil until the student is assigned to a class
	GuardianName    string
	GuardianPhone   valueobject.Phone
	GuardianEmail   string
	Active          bool
	EnrolledAt      time.Time
}

// NewStudent creates a new active student
func NewStudent(
	schoolID uuid.UUID,
	admissionNumber string,
	firstName, lastName string,
	classID *uuid.UUID,
	guardianName string,
	guardianPhone valueobject.Phone,
) (*Student, error) {
	if admissionNumber == "" {
		return nil, shared.NewDomainError("INVALID_ADMISSION_NUMBER", "Admission number cannot be empty")
	}
	if firstName == "" || lastName == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Student name cannot be empty")
	}

	return &Student{
		SchoolAggregateRoot: shared.NewSchoolAggregateRoot(schoolID),
		AdmissionNumber:     admissionNumber,
		FirstName:           firstName,
		LastName:            lastName,
		ClassID:             classID,
		GuardianName:        guardianName,
		GuardianPhone:       guardianPhone,
		Active:              true,
		EnrolledAt:          time.Now(),
	}, nil
}

// FullName returns the student's display name
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Deactivate marks the student as no longer enrolled.
// Inactive students are skipped by invoice generation.
func (s *Student) Deactivate() {
	s.Active = false
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

// AssignClass moves the student to a class
func (s *Student) AssignClass(classID uuid.UUID) {
	s.ClassID = &classID
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

// UpdateGuardianContact replaces the guardian contact details
func (s *Student) UpdateGuardianContact(name string, phone valueobject.Phone, email string) {
	s.GuardianName = name
	s.GuardianPhone = phone
	s.GuardianEmail = email
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

// InClass reports whether the student belongs to the given class
func (s *Student) InClass(classID uuid.UUID) bool {
	return s.ClassID != nil && *s.ClassID == classID
}
