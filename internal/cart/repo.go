package cart

import (
	"context"

	"gorm.io/gorm"

	"github.com/quickmed/quickmed-backend/internal/repo"
	"github.com/quickmed/quickmed-backend/pkg/db"
	"github.com/quickmed/quickmed-backend/pkg/db/models"
)

// Repository persists carts and their lines.
type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	return &Repository{Base: r.Tx(tx)}
}

// FindByUser loads the user's cart with lines (and their medicines) in
// insertion order.
func (r *Repository) FindByUser(ctx context.Context, userID int64) (*models.Cart, error) {
	var c models.Cart
	err := r.DB(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("cart_items.id ASC") }).
		Preload("Items.Medicine").
		Where("user_id = ?", userID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetOrCreate returns the user's cart, creating an empty one on first use. A
// concurrent creator losing the unique race re-reads the winner's row.
func (r *Repository) GetOrCreate(ctx context.Context, userID int64) (*models.Cart, error) {
	c, err := r.FindByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !repo.IsNotFound(err) {
		return nil, err
	}

	created := &models.Cart{UserID: userID}
	if err := r.DB(ctx).Omit("Items").Create(created).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return r.FindByUser(ctx, userID)
		}
		return nil, err
	}
	created.Items = []models.CartItem{}
	return created, nil
}

func (r *Repository) FindItemByMedicine(ctx context.Context, cartID, medicineID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB(ctx).
		Where("cart_id = ? AND medicine_id = ?", cartID, medicineID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindItemForUser only matches lines in userID's cart.
func (r *Repository) FindItemForUser(ctx context.Context, userID, itemID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB(ctx).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.user_id = ?", itemID, userID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.DB(ctx).Omit("Medicine").Create(item).Error
}

func (r *Repository) SaveItem(ctx context.Context, item *models.CartItem) error {
	return r.DB(ctx).Omit("Medicine").Save(item).Error
}

func (r *Repository) DeleteItem(ctx context.Context, itemID int64) error {
	return r.DB(ctx).Delete(&models.CartItem{}, "id = ?", itemID).Error
}

// ClearItems removes every line of the cart and reports how many went.
func (r *Repository) ClearItems(ctx context.Context, cartID int64) (int64, error) {
	res := r.DB(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}
