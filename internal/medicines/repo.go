package medicine

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/quickmed/quickmed-backend/internal/repo"
	"github.com/quickmed/quickmed-backend/pkg/db/models"
	"github.com/quickmed/quickmed-backend/pkg/pagination"
)

// SearchFilter narrows catalog listings. Nil fields are not applied.
type SearchFilter struct {
	Query                string
	CategoryID           *int64
	PrescriptionRequired *bool
	MinPrice             *decimal.Decimal
	MaxPrice             *decimal.Decimal
	Page                 pagination.Offset
}

// Repository persists catalog rows and performs the stock mutations used by
// order placement.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Search(ctx context.Context, f SearchFilter) ([]models.Medicine, error)
	FindByID(ctx context.Context, id int64) (*models.Medicine, error)
	ListAlternatives(ctx context.Context, m *models.Medicine) ([]models.Medicine, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, m *models.Medicine) error
	Save(ctx context.Context, m *models.Medicine) error
	Delete(ctx context.Context, id int64) error
	SetStock(ctx context.Context, id int64, stock int) (bool, error)
	FindForUpdate(ctx context.Context, ids []int64) ([]models.Medicine, error)
	DecrementStock(ctx context.Context, id int64, qty int) (bool, error)
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

func (r *repository) Search(ctx context.Context, f SearchFilter) ([]models.Medicine, error) {
	page := f.Page.Normalize()
	q := r.DB(ctx).Model(&models.Medicine{}).Preload("Category")

	if term := strings.ToLower(strings.TrimSpace(f.Query)); term != "" {
		like := "%" + term + "%"
		q = q.Where(
			"LOWER(name) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ? OR LOWER(COALESCE(manufacturer, '')) LIKE ?",
			like, like, like,
		)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.PrescriptionRequired != nil {
		q = q.Where("prescription_required = ?", *f.PrescriptionRequired)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}

	var out []models.Medicine
	err := q.Order("id ASC").Offset(page.Skip).Limit(page.Limit).Find(&out).Error
	return out, err
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Medicine, error) {
	var m models.Medicine
	if err := r.DB(ctx).Preload("Category").First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListAlternatives returns the other medicines of m's category.
func (r *repository) ListAlternatives(ctx context.Context, m *models.Medicine) ([]models.Medicine, error) {
	var out []models.Medicine
	err := r.DB(ctx).
		Preload("Category").
		Where("category_id = ? AND id <> ?", m.CategoryID, m.ID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *repository) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.DB(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Create(ctx context.Context, m *models.Medicine) error {
	return r.DB(ctx).Omit("Category").Create(m).Error
}

func (r *repository) Save(ctx context.Context, m *models.Medicine) error {
	return r.DB(ctx).Omit("Category").Save(m).Error
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	res := r.DB(ctx).Delete(&models.Medicine{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetStock overwrites the stock level; false means no such medicine.
func (r *repository) SetStock(ctx context.Context, id int64, stock int) (bool, error) {
	res := r.DB(ctx).Model(&models.Medicine{}).Where("id = ?", id).Update("stock", stock)
	return res.RowsAffected > 0, res.Error
}

// FindForUpdate locks the given medicines in ascending id order so concurrent
// placements always acquire row locks in the same sequence.
func (r *repository) FindForUpdate(ctx context.Context, ids []int64) ([]models.Medicine, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var out []models.Medicine
	err := r.ForUpdate(ctx).
		Where("id IN ?", sorted).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// DecrementStock subtracts qty only while enough stock remains. A false
// result means the guard rejected the update.
func (r *repository) DecrementStock(ctx context.Context, id int64, qty int) (bool, error) {
	res := r.DB(ctx).Exec(
		"UPDATE medicines SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND stock >= ?",
		qty, id, qty,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
