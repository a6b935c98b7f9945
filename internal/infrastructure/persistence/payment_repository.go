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

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, p *fees.Payment) error {
	model := models.PaymentModelFromDomain(p)
	return dbFor(ctx, r.db).WithContext(ctx).Save(model).Error
}

// FindByID finds a payment by ID, returning nil when no row exists
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*fees.Payment, error) {
	var model models.PaymentModel
	if err := dbFor(ctx, r.db).WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoice returns all payments applied to an invoice, oldest first
func (r *GormPaymentRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*fees.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := dbFor(ctx, r.db).WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("paid_at ASC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}

	payments := make([]*fees.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = paymentModels[i].ToDomain()
	}
	return payments, nil
}

// FindByReference finds a payment by its external reference within a school
func (r *GormPaymentRepository) FindByReference(ctx context.Context, schoolID uuid.UUID, reference string) (*fees.Payment, error) {
	if reference == "" {
		return nil, nil
	}
	var model models.PaymentModel
	if err := dbFor(ctx, r.db).WithContext(ctx).
		Where("school_id = ? AND reference = ?", schoolID, reference).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns a page of payments for a school
func (r *GormPaymentRepository) List(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*fees.Payment], error) {
	db := dbFor(ctx, r.db).WithContext(ctx)
	query := db.Model(&models.PaymentModel{}).Where("school_id = ?", schoolID)

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("receipt_number ILIKE ? OR reference ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return shared.Paginated[*fees.Payment]{}, err
	}

	var paymentModels []models.PaymentModel
	query = applyOrder(query, filter, "paid_at DESC")
	if err := applyPagination(query, filter).Find(&paymentModels).Error; err != nil {
		return shared.Paginated[*fees.Payment]{}, err
	}

	payments := make([]*fees.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = paymentModels[i].ToDomain()
	}
	return shared.NewPaginated(payments, total, filter.Page, filter.PageSize), nil
}

var _ fees.PaymentRepository = (*GormPaymentRepository)(nil)
