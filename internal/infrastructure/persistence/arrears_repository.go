package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shulepay/backend/internal/domain/fees"
	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/infrastructure/persistence/models"
)

// GormArrearsRepository implements ArrearsRepository using GORM
type GormArrearsRepository struct {
	db *gorm.DB
}

// NewGormArrearsRepository creates a new GormArrearsRepository
func NewGormArrearsRepository(db *gorm.DB) *GormArrearsRepository {
	return &GormArrearsRepository{db: db}
}

// Save creates or updates an arrears row
func (r *GormArrearsRepository) Save(ctx context.Context, a *fees.Arrears) error {
	model := models.ArrearsModelFromDomain(a)
	return dbFor(ctx, r.db).WithContext(ctx).Save(model).Error
}

// SaveWithLock saves an arrears row with an optimistic lock on Version.
// Zero totals and the resolved flag must be written, so all columns are
// selected explicitly.
func (r *GormArrearsRepository) SaveWithLock(ctx context.Context, a *fees.Arrears) error {
	model := models.ArrearsModelFromDomain(a)
	result := dbFor(ctx, r.db).WithContext(ctx).
		Model(&models.ArrearsModel{}).
		Where("id = ? AND version = ?", a.ID, a.Version-1).
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

// FindByStudent finds the arrears row for a student, or nil when the student
// has never been in arrears
func (r *GormArrearsRepository) FindByStudent(ctx context.Context, schoolID, studentID uuid.UUID) (*fees.Arrears, error) {
	var model models.ArrearsModel
	if err := dbFor(ctx, r.db).WithContext(ctx).
		Where("school_id = ? AND student_id = ?", schoolID, studentID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindUnresolved returns a page of unresolved arrears rows, oldest debt first
func (r *GormArrearsRepository) FindUnresolved(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*fees.Arrears], error) {
	db := dbFor(ctx, r.db).WithContext(ctx)
	query := db.Model(&models.ArrearsModel{}).
		Where("school_id = ? AND is_resolved = ?", schoolID, false)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return shared.Paginated[*fees.Arrears]{}, err
	}

	var arrearsModels []models.ArrearsModel
	query = applyOrder(query, filter, "days_outstanding DESC")
	if err := applyPagination(query, filter).Find(&arrearsModels).Error; err != nil {
		return shared.Paginated[*fees.Arrears]{}, err
	}

	rows := make([]*fees.Arrears, len(arrearsModels))
	for i := range arrearsModels {
		rows[i] = arrearsModels[i].ToDomain()
	}
	return shared.NewPaginated(rows, total, filter.Page, filter.PageSize), nil
}

var _ fees.ArrearsRepository = (*GormArrearsRepository)(nil)
