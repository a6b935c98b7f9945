package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shulepay/backend/internal/domain/people"
	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/domain/shared/valueobject"
	"github.com/shulepay/backend/internal/infrastructure/persistence/models"
)

// GormStudentRepository implements StudentRepository using GORM
type GormStudentRepository struct {
	db *gorm.DB
}

// NewGormStudentRepository creates a new GormStudentRepository
func NewGormStudentRepository(db *gorm.DB) *GormStudentRepository {
	return &GormStudentRepository{db: db}
}

// Save creates or updates a student
func (r *GormStudentRepository) Save(ctx context.Context, student *people.Student) error {
	model := models.StudentModelFromDomain(student)
	return dbFor(ctx, r.db).WithContext(ctx).Save(model).Error
}

// SaveWithLock saves a student with an optimistic lock on Version
func (r *GormStudentRepository) SaveWithLock(ctx context.Context, student *people.Student) error {
	model := models.StudentModelFromDomain(student)
	result := dbFor(ctx, r.db).WithContext(ctx).
		Model(&models.StudentModel{}).
		Where("id = ? AND version = ?", student.ID, student.Version-1).
		Select("*").Omit("id", "created_at").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds a student by ID, returning nil when no row exists
func (r *GormStudentRepository) FindByID(ctx context.Context, id uuid.UUID) (*people.Student, error) {
	var model models.StudentModel
	if err := dbFor(ctx, r.db).WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAdmissionNumber finds a student by admission number within a school
func (r *GormStudentRepository) FindByAdmissionNumber(ctx context.Context, schoolID uuid.UUID, admissionNumber string) (*people.Student, error) {
	var model models.StudentModel
	if err := dbFor(ctx, r.db).WithContext(ctx).
		Where("school_id = ? AND admission_number = ?", schoolID, admissionNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActive finds active students in a school, optionally narrowed to a class
func (r *GormStudentRepository) FindActive(ctx context.Context, schoolID uuid.UUID, classID *uuid.UUID) ([]*people.Student, error) {
	query := dbFor(ctx, r.db).WithContext(ctx).
		Where("school_id = ? AND active = ?", schoolID, true)
	if classID != nil {
		query = query.Where("class_id = ?", *classID)
	}

	var studentModels []models.StudentModel
	if err := query.Order("admission_number ASC").Find(&studentModels).Error; err != nil {
		return nil, err
	}

	students := make([]*people.Student, len(studentModels))
	for i := range studentModels {
		students[i] = studentModels[i].ToDomain()
	}
	return students, nil
}

// FindByGuardianPhone finds students whose guardian phone matches the
// canonical number
func (r *GormStudentRepository) FindByGuardianPhone(ctx context.Context, schoolID uuid.UUID, phone valueobject.Phone) ([]*people.Student, error) {
	if phone.IsZero() {
		return []*people.Student{}, nil
	}

	var studentModels []models.StudentModel
	if err := dbFor(ctx, r.db).WithContext(ctx).
		Where("school_id = ? AND guardian_phone = ?", schoolID, phone.Local()).
		Find(&studentModels).Error; err != nil {
		return nil, err
	}

	students := make([]*people.Student, len(studentModels))
	for i := range studentModels {
		students[i] = studentModels[i].ToDomain()
	}
	return students, nil
}

// List returns a page of students for a school
func (r *GormStudentRepository) List(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*people.Student], error) {
	db := dbFor(ctx, r.db).WithContext(ctx)
	query := db.Model(&models.StudentModel{}).Where("school_id = ?", schoolID)

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("admission_number ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ? OR guardian_name ILIKE ?",
			pattern, pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return shared.Paginated[*people.Student]{}, err
	}

	var studentModels []models.StudentModel
	query = applyOrder(query, filter, "admission_number ASC")
	if err := applyPagination(query, filter).Find(&studentModels).Error; err != nil {
		return shared.Paginated[*people.Student]{}, err
	}

	students := make([]*people.Student, len(studentModels))
	for i := range studentModels {
		students[i] = studentModels[i].ToDomain()
	}
	return shared.NewPaginated(students, total, filter.Page, filter.PageSize), nil
}

// Delete deletes a student
func (r *GormStudentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := dbFor(ctx, r.db).WithContext(ctx).Delete(&models.StudentModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ people.StudentRepository = (*GormStudentRepository)(nil)
