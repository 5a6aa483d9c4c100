package cart

import (
	"context"

	"gorm.io/gorm"

	"github.com/quickmed/quickmed-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart and
// order services.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByUser(ctx context.Context, userID int64) (*models.Cart, error)
	GetOrCreate(ctx context.Context, userID int64) (*models.Cart, error)
	FindItemByMedicine(ctx context.Context, cartID, medicineID int64) (*models.CartItem, error)
	FindItemForUser(ctx context.Context, userID, itemID int64) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	SaveItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, itemID int64) error
	ClearItems(ctx context.Context, cartID int64) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type medicineLoader interface {
	FindByID(ctx context.Context, id int64) (*models.Medicine, error)
}

type prescriptionLoader interface {
	FindByID(ctx context.Context, id int64) (*models.Prescription, error)
}
