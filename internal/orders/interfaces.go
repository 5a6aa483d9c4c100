package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/quickmed/quickmed-backend/pkg/db"
	"github.com/quickmed/quickmed-backend/pkg/db/models"
	"github.com/quickmed/quickmed-backend/pkg/pagination"
)

// Repository defines persistence operations for orders, their lines and
// tracking history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	AppendTracking(ctx context.Context, entry *models.OrderTracking) error
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	FindForUpdate(ctx context.Context, id int64) (*models.Order, error)
	FindDetail(ctx context.Context, id int64) (*models.Order, error)
	UpdateFields(ctx context.Context, id int64, updates map[string]any) error
	ListForUser(ctx context.Context, userID int64, limit int, cursor *pagination.Cursor) ([]models.Order, error)
	ListTracking(ctx context.Context, orderID int64) ([]models.OrderTracking, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTxRetry(ctx context.Context, maxAttempts int, onRetry db.RetryObserver, fn func(tx *gorm.DB) error) error
}

type partnerPicker interface {
	FirstActiveDeliveryPartner(ctx context.Context) (*models.User, error)
}

type clock func() time.Time
