package address

import (
	"context"

	"gorm.io/gorm"

	"github.com/quickmed/quickmed-backend/internal/repo"
	"github.com/quickmed/quickmed-backend/pkg/db/models"
)

// Repository reads delivery addresses scoped to their owner. Address CRUD is
// owned by the account service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByIDForUser(ctx context.Context, id, userID int64) (*models.Address, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Address, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Tx(tx)}
}

// FindByIDForUser returns gorm.ErrRecordNotFound when the address is missing
// or belongs to someone else.
func (r *repository) FindByIDForUser(ctx context.Context, id, userID int64) (*models.Address, error) {
	var addr models.Address
	err := r.DB(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&addr).Error
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func (r *repository) ListForUser(ctx context.Context, userID int64) ([]models.Address, error) {
	var out []models.Address
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, id ASC").
		Find(&out).Error
	return out, err
}
