package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/quickmed/quickmed-backend/internal/repo"
	"github.com/quickmed/quickmed-backend/pkg/db/models"
	"github.com/quickmed/quickmed-backend/pkg/pagination"
)

type repository struct {
	repo.Base
}

// NewRepository returns the GORM-backed order repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Tx(tx)}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB(ctx).Omit("Items", "Tracking").Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&items).Error
}

func (r *repository) AppendTracking(ctx context.Context, entry *models.OrderTracking) error {
	return r.DB(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindForUpdate locks the order row for a status change.
func (r *repository) FindForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := r.ForUpdate(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindDetail loads the order with lines and tracking history (oldest first).
func (r *repository) FindDetail(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("order_items.id ASC") }).
		Preload("Tracking", func(q *gorm.DB) *gorm.DB { return q.Order(`order_tracking."timestamp" ASC, order_tracking.id ASC`) }).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateFields(ctx context.Context, id int64, updates map[string]any) error {
	return r.DB(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// ListForUser pages the user's orders newest first; limit already carries the
// look-ahead row.
func (r *repository) ListForUser(ctx context.Context, userID int64, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	q := r.DB(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("order_items.id ASC") }).
		Where("user_id = ?", userID)
	var rows []models.Order
	err := q.Scopes(repo.NewestFirst(cursor, limit)).Find(&rows).Error
	return rows, err
}

// ListTracking returns the history newest first.
func (r *repository) ListTracking(ctx context.Context, orderID int64) ([]models.OrderTracking, error) {
	var rows []models.OrderTracking
	err := r.DB(ctx).
		Where("order_id = ?", orderID).
		Order(`"timestamp" DESC, id DESC`).
		Find(&rows).Error
	return rows, err
}
