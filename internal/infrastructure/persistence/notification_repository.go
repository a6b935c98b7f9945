package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shulepay/backend/internal/domain/notification"
	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/infrastructure/persistence/models"
)

// GormNotificationRepository implements notification.Repository using GORM
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Save creates or updates a notification
func (r *GormNotificationRepository) Save(ctx context.Context, n *notification.Notification) error {
	model := models.NotificationModelFromDomain(n)
	return dbFor(ctx, r.db).WithContext(ctx).Save(model).Error
}

// FindByID finds a notification by ID, returning nil when no row exists
func (r *GormNotificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	var model models.NotificationModel
	if err := dbFor(ctx, r.db).WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByStudent returns a page of a student's notifications, newest first
func (r *GormNotificationRepository) FindByStudent(ctx context.Context, studentID uuid.UUID, filter shared.Filter) (shared.Paginated[*notification.Notification], error) {
	db := dbFor(ctx, r.db).WithContext(ctx)
	query := db.Model(&models.NotificationModel{}).Where("student_id = ?", studentID)
	return r.page(query, filter)
}

// List returns a page of notifications for a school, newest first
func (r *GormNotificationRepository) List(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*notification.Notification], error) {
	db := dbFor(ctx, r.db).WithContext(ctx)
	query := db.Model(&models.NotificationModel{}).Where("school_id = ?", schoolID)
	return r.page(query, filter)
}

func (r *GormNotificationRepository) page(query *gorm.DB, filter shared.Filter) (shared.Paginated[*notification.Notification], error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return shared.Paginated[*notification.Notification]{}, err
	}

	var notificationModels []models.NotificationModel
	query = applyOrder(query, filter, "created_at DESC")
	if err := applyPagination(query, filter).Find(&notificationModels).Error; err != nil {
		return shared.Paginated[*notification.Notification]{}, err
	}

	rows := make([]*notification.Notification, len(notificationModels))
	for i := range notificationModels {
		rows[i] = notificationModels[i].ToDomain()
	}
	return shared.NewPaginated(rows, total, filter.Page, filter.PageSize), nil
}

var _ notification.Repository = (*GormNotificationRepository)(nil)
