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

// GormMobileMoneyTransactionRepository implements
// MobileMoneyTransactionRepository using GORM
type GormMobileMoneyTransactionRepository struct {
	db *gorm.DB
}

// NewGormMobileMoneyTransactionRepository creates a new GormMobileMoneyTransactionRepository
func NewGormMobileMoneyTransactionRepository(db *gorm.DB) *GormMobileMoneyTransactionRepository {
	return &GormMobileMoneyTransactionRepository{db: db}
}

// Save creates or updates a transaction
func (r *GormMobileMoneyTransactionRepository) Save(ctx context.Context, t *fees.MobileMoneyTransaction) error {
	model := models.MobileMoneyTransactionModelFromDomain(t)
	return dbFor(ctx, r.db).WithContext(ctx).Save(model).Error
}

// FindByID finds a transaction by ID, returning nil when no row exists
func (r *GormMobileMoneyTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*fees.MobileMoneyTransaction, error) {
	var model models.MobileMoneyTransactionModel
	if err := dbFor(ctx, r.db).WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalID finds a transaction by the gateway transaction id, or nil
// when the id has never been seen
func (r *GormMobileMoneyTransactionRepository) FindByExternalID(ctx context.Context, externalID string) (*fees.MobileMoneyTransaction, error) {
	var model models.MobileMoneyTransactionModel
	if err := dbFor(ctx, r.db).WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindUnmatched returns a page of unmatched transactions awaiting manual action
func (r *GormMobileMoneyTransactionRepository) FindUnmatched(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*fees.MobileMoneyTransaction], error) {
	db := dbFor(ctx, r.db).WithContext(ctx)
	query := db.Model(&models.MobileMoneyTransactionModel{}).
		Where("school_id = ? AND status = ?", schoolID, fees.TransactionStatusUnmatched)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return shared.Paginated[*fees.MobileMoneyTransaction]{}, err
	}

	var txnModels []models.MobileMoneyTransactionModel
	query = applyOrder(query, filter, "received_at ASC")
	if err := applyPagination(query, filter).Find(&txnModels).Error; err != nil {
		return shared.Paginated[*fees.MobileMoneyTransaction]{}, err
	}

	txns := make([]*fees.MobileMoneyTransaction, len(txnModels))
	for i := range txnModels {
		txns[i] = txnModels[i].ToDomain()
	}
	return shared.NewPaginated(txns, total, filter.Page, filter.PageSize), nil
}

var _ fees.MobileMoneyTransactionRepository = (*GormMobileMoneyTransactionRepository)(nil)
