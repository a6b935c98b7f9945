package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shulepay/backend/internal/domain/fees"
	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/infrastructure/persistence/models"
)

// openStatuses are the invoice statuses that still accept payments
var openStatuses = []fees.InvoiceStatus{
	fees.InvoiceStatusIssued,
	fees.InvoiceStatusPartial,
	fees.InvoiceStatusOverdue,
}

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Save creates or updates an invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, inv *fees.Invoice) error {
	model := models.InvoiceModelFromDomain(inv)
	return dbFor(ctx, r.db).WithContext(ctx).Save(model).Error
}

// SaveWithLock saves an invoice with an optimistic lock on Version. All
// columns are written explicitly so a balance dropping to zero is not
// skipped as a zero-value field.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, inv *fees.Invoice) error {
	model := models.InvoiceModelFromDomain(inv)
	result := dbFor(ctx, r.db).WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ? AND version = ?", inv.ID, inv.Version-1).
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

// FindByID finds an invoice by ID, returning nil when no row exists
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*fees.Invoice, error) {
	var model models.InvoiceModel
	if err := dbFor(ctx, r.db).WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an invoice by its invoice number within a school
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, schoolID uuid.UUID, invoiceNumber string) (*fees.Invoice, error) {
	var model models.InvoiceModel
	if err := dbFor(ctx, r.db).WithContext(ctx).
		Where("school_id = ? AND invoice_number = ?", schoolID, invoiceNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsForStudentTerm reports whether the student already holds a
// non-cancelled invoice for the term
func (r *GormInvoiceRepository) ExistsForStudentTerm(ctx context.Context, studentID, termID uuid.UUID) (bool, error) {
	var count int64
	if err := dbFor(ctx, r.db).WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("student_id = ? AND term_id = ? AND status <> ?", studentID, termID, fees.InvoiceStatusCancelled).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindOpenByStudents finds invoices open for payment across a set of students
func (r *GormInvoiceRepository) FindOpenByStudents(ctx context.Context, schoolID uuid.UUID, studentIDs []uuid.UUID) ([]*fees.Invoice, error) {
	if len(studentIDs) == 0 {
		return []*fees.Invoice{}, nil
	}

	var invoiceModels []models.InvoiceModel
	if err := dbFor(ctx, r.db).WithContext(ctx).
		Where("school_id = ? AND student_id IN ? AND status IN ?", schoolID, studentIDs, openStatuses).
		Order("due_date ASC, created_at ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}

	invoices := make([]*fees.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = invoiceModels[i].ToDomain()
	}
	return invoices, nil
}

// FindPastDueByStudent finds invoices with balance outstanding and due date
// before the given time, in any open status
func (r *GormInvoiceRepository) FindPastDueByStudent(ctx context.Context, studentID uuid.UUID, before time.Time) ([]*fees.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := dbFor(ctx, r.db).WithContext(ctx).
		Where("student_id = ? AND status IN ? AND balance > 0 AND due_date < ?", studentID, openStatuses, before).
		Order("due_date ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}

	invoices := make([]*fees.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = invoiceModels[i].ToDomain()
	}
	return invoices, nil
}

// FindByStudent returns a page of a student's invoices
func (r *GormInvoiceRepository) FindByStudent(ctx context.Context, studentID uuid.UUID, filter shared.Filter) (shared.Paginated[*fees.Invoice], error) {
	db := dbFor(ctx, r.db).WithContext(ctx)
	query := db.Model(&models.InvoiceModel{}).Where("student_id = ?", studentID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return shared.Paginated[*fees.Invoice]{}, err
	}

	var invoiceModels []models.InvoiceModel
	query = applyOrder(query, filter, "issued_at DESC")
	if err := applyPagination(query, filter).Find(&invoiceModels).Error; err != nil {
		return shared.Paginated[*fees.Invoice]{}, err
	}

	invoices := make([]*fees.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = invoiceModels[i].ToDomain()
	}
	return shared.NewPaginated(invoices, total, filter.Page, filter.PageSize), nil
}

// StudentIDsWithInvoices returns every student holding at least one invoice
// in the school
func (r *GormInvoiceRepository) StudentIDsWithInvoices(ctx context.Context, schoolID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := dbFor(ctx, r.db).WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("school_id = ?", schoolID).
		Distinct("student_id").
		Pluck("student_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CountByTerm counts invoices for a term
func (r *GormInvoiceRepository) CountByTerm(ctx context.Context, schoolID, termID uuid.UUID) (int64, error) {
	var count int64
	if err := dbFor(ctx, r.db).WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("school_id = ? AND term_id = ?", schoolID, termID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

var _ fees.InvoiceRepository = (*GormInvoiceRepository)(nil)
