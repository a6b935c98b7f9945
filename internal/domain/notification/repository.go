package notification

import (
	"context"

	"github.com/google/uuid"

	"github.com/shulepay/backend/internal/domain/shared"
)

// Repository defines the persistence interface for notifications
type Repository interface {
	Save(ctx context.Context, n *Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	FindByStudent(ctx context.Context, studentID uuid.UUID, filter shared.Filter) (shared.Paginated[*Notification], error)
	List(ctx context.Context, schoolID uuid.UUID, filter shared.Filter) (shared.Paginated[*Notification], error)
}
