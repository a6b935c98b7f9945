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

// GormTermRepository implements TermRepository using GORM
type GormTermRepository struct {
	db *gorm.DB
}

// NewGormTermRepository creates a new GormTermRepository
func NewGormTermRepository(db *gorm.DB) *GormTermRepository {
	return &GormTermRepository{db: db}
}

// Save creates or updates a term
func (r *GormTermRepository) Save(ctx context.Context, term *fees.Term) error {
	model := models.TermModelFromDomain(term)
	return dbFor(ctx, r.db).WithContext(ctx).Save(model).Error
}

// FindByID finds a term by ID, returning nil when no row exists
func (r *GormTermRepository) FindByID(ctx context.Context, id uuid.UUID) (*fees.Term, error) {
	var model models.TermModel
	if err := dbFor(ctx, r.db).WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActive finds the active terms for a school
func (r *GormTermRepository) FindActive(ctx context.Context, schoolID uuid.UUID) ([]*fees.Term, error) {
	var termModels []models.TermModel
	if err := dbFor(ctx, r.db).WithContext(ctx).
		Where("school_id = ? AND active = ?", schoolID, true).
		Order("year DESC, start_date DESC").
		Find(&termModels).Error; err != nil {
		return nil, err
	}

	terms := make([]*fees.Term, len(termModels))
	for i := range termModels {
		terms[i] = termModels[i].ToDomain()
	}
	return terms, nil
}

// List returns a page of terms for a school
func (r *GormTermRepository) List(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*fees.Term], error) {
	db := dbFor(ctx, r.db).WithContext(ctx)
	query := db.Model(&models.TermModel{}).Where("school_id = ?", schoolID)

	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return shared.Paginated[*fees.Term]{}, err
	}

	var termModels []models.TermModel
	query = applyOrder(query, filter, "year DESC, start_date DESC")
	if err := applyPagination(query, filter).Find(&termModels).Error; err != nil {
		return shared.Paginated[*fees.Term]{}, err
	}

	terms := make([]*fees.Term, len(termModels))
	for i := range termModels {
		terms[i] = termModels[i].ToDomain()
	}
	return shared.NewPaginated(terms, total, filter.Page, filter.PageSize), nil
}

var _ fees.TermRepository = (*GormTermRepository)(nil)
