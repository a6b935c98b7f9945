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

// GormFeeStructureRepository implements FeeStructureRepository using GORM
type GormFeeStructureRepository struct {
	db *gorm.DB
}

// NewGormFeeStructureRepository creates a new GormFeeStructureRepository
func NewGormFeeStructureRepository(db *gorm.DB) *GormFeeStructureRepository {
	return &GormFeeStructureRepository{db: db}
}

// Save creates or updates a fee structure
func (r *GormFeeStructureRepository) Save(ctx context.Context, fs *fees.FeeStructure) error {
	model := models.FeeStructureModelFromDomain(fs)
	return dbFor(ctx, r.db).WithContext(ctx).Save(model).Error
}

// FindByID finds a fee structure by ID, returning nil when no row exists
func (r *GormFeeStructureRepository) FindByID(ctx context.Context, id uuid.UUID) (*fees.FeeStructure, error) {
	var model models.FeeStructureModel
	if err := dbFor(ctx, r.db).WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByTerm finds active structures for a term. School-wide structures
// (class_id IS NULL) are always included; class-scoped structures only when
// classID matches or no class narrowing was requested.
func (r *GormFeeStructureRepository) FindActiveByTerm(ctx context.Context, schoolID, termID uuid.UUID, classID *uuid.UUID) ([]*fees.FeeStructure, error) {
	query := dbFor(ctx, r.db).WithContext(ctx).
		Where("school_id = ? AND term_id = ? AND active = ?", schoolID, termID, true)
	if classID != nil {
		query = query.Where("class_id IS NULL OR class_id = ?", *classID)
	}

	var structureModels []models.FeeStructureModel
	if err := query.Order("due_date ASC, description ASC").Find(&structureModels).Error; err != nil {
		return nil, err
	}

	structures := make([]*fees.FeeStructure, len(structureModels))
	for i := range structureModels {
		structures[i] = structureModels[i].ToDomain()
	}
	return structures, nil
}

// List returns a page of fee structures for a school
func (r *GormFeeStructureRepository) List(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*fees.FeeStructure], error) {
	db := dbFor(ctx, r.db).WithContext(ctx)
	query := db.Model(&models.FeeStructureModel{}).Where("school_id = ?", schoolID)

	if filter.Search != "" {
		query = query.Where("description ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return shared.Paginated[*fees.FeeStructure]{}, err
	}

	var structureModels []models.FeeStructureModel
	query = applyOrder(query, filter, "due_date ASC")
	if err := applyPagination(query, filter).Find(&structureModels).Error; err != nil {
		return shared.Paginated[*fees.FeeStructure]{}, err
	}

	structures := make([]*fees.FeeStructure, len(structureModels))
	for i := range structureModels {
		structures[i] = structureModels[i].ToDomain()
	}
	return shared.NewPaginated(structures, total, filter.Page, filter.PageSize), nil
}

// Delete deletes a fee structure
func (r *GormFeeStructureRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := dbFor(ctx, r.db).WithContext(ctx).Delete(&models.FeeStructureModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ fees.FeeStructureRepository = (*GormFeeStructureRepository)(nil)

// GormFeeOverrideRepository implements FeeOverrideRepository using GORM
type GormFeeOverrideRepository struct {
	db *gorm.DB
}

// NewGormFeeOverrideRepository creates a new GormFeeOverrideRepository
func NewGormFeeOverrideRepository(db *gorm.DB) *GormFeeOverrideRepository {
	return &GormFeeOverrideRepository{db: db}
}

// Save creates or updates an override
func (r *GormFeeOverrideRepository) Save(ctx context.Context, o *fees.StudentFeeOverride) error {
	model := models.StudentFeeOverrideModelFromDomain(o)
	return dbFor(ctx, r.db).WithContext(ctx).Save(model).Error
}

// FindByID finds an override by ID, returning nil when no row exists
func (r *GormFeeOverrideRepository) FindByID(ctx context.Context, id uuid.UUID) (*fees.StudentFeeOverride, error) {
	var model models.StudentFeeOverrideModel
	if err := dbFor(ctx, r.db).WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindForGeneration finds the override for one (student, term, structure)
// triple, or nil when none exists
func (r *GormFeeOverrideRepository) FindForGeneration(ctx context.Context, studentID, termID, feeStructureID uuid.UUID) (*fees.StudentFeeOverride, error) {
	var model models.StudentFeeOverrideModel
	if err := dbFor(ctx, r.db).WithContext(ctx).
		Where("student_id = ? AND term_id = ? AND fee_structure_id = ?", studentID, termID, feeStructureID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTerm returns all overrides for a term
func (r *GormFeeOverrideRepository) FindByTerm(ctx context.Context, schoolID, termID uuid.UUID) ([]*fees.StudentFeeOverride, error) {
	var overrideModels []models.StudentFeeOverrideModel
	if err := dbFor(ctx, r.db).WithContext(ctx).
		Where("school_id = ? AND term_id = ?", schoolID, termID).
		Find(&overrideModels).Error; err != nil {
		return nil, err
	}

	overrides := make([]*fees.StudentFeeOverride, len(overrideModels))
	for i := range overrideModels {
		overrides[i] = overrideModels[i].ToDomain()
	}
	return overrides, nil
}

// Delete deletes an override
func (r *GormFeeOverrideRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := dbFor(ctx, r.db).WithContext(ctx).Delete(&models.StudentFeeOverrideModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ fees.FeeOverrideRepository = (*GormFeeOverrideRepository)(nil)
