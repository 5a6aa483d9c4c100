package users

import (
	"context"

	"gorm.io/gorm"

	"github.com/quickmed/quickmed-backend/internal/repo"
	"github.com/quickmed/quickmed-backend/pkg/db/models"
)

// Repository reads user accounts. Sign-up and profile edits live with the
// account service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListActiveDeliveryPartners(ctx context.Context) ([]models.User, error)
	FirstActiveDeliveryPartner(ctx context.Context) (*models.User, error)
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

func activePartners(q *gorm.DB) *gorm.DB {
	return q.Where("is_delivery_partner = ? AND is_active = ?", true, true).Order("id ASC")
}

func (r *repository) ListActiveDeliveryPartners(ctx context.Context) ([]models.User, error) {
	var rows []models.User
	err := r.DB(ctx).Scopes(activePartners).Find(&rows).Error
	return rows, err
}

// FirstActiveDeliveryPartner returns gorm.ErrRecordNotFound when nobody is on duty.
func (r *repository) FirstActiveDeliveryPartner(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := r.DB(ctx).Scopes(activePartners).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
