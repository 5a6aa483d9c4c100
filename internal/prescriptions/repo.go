package prescription

import (
	"context"

	"gorm.io/gorm"

	"github.com/quickmed/quickmed-backend/internal/repo"
	"github.com/quickmed/quickmed-backend/pkg/db/models"
	"github.com/quickmed/quickmed-backend/pkg/pagination"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, p *models.Prescription) error
	FindByID(ctx context.Context, id int64) (*models.Prescription, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]*models.Prescription, error)
	ListForUser(ctx context.Context, userID int64, limit int, cursor *pagination.Cursor) ([]models.Prescription, error)
	SaveVerification(ctx context.Context, p *models.Prescription) error
	AddMedicine(ctx context.Context, line *models.PrescriptionMedicine) error
	ListMedicines(ctx context.Context, prescriptionID int64) ([]models.PrescriptionMedicine, error)
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

func (r *repository) Create(ctx context.Context, p *models.Prescription) error {
	return r.DB(ctx).Create(p).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Prescription, error) {
	var p models.Prescription
	if err := r.DB(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByIDs loads prescriptions keyed by id; missing ids are absent from the map.
func (r *repository) FindByIDs(ctx context.Context, ids []int64) (map[int64]*models.Prescription, error) {
	out := make(map[int64]*models.Prescription, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Prescription
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// ListForUser pages newest first; limit already carries the look-ahead row.
func (r *repository) ListForUser(ctx context.Context, userID int64, limit int, cursor *pagination.Cursor) ([]models.Prescription, error) {
	q := r.DB(ctx).Where("user_id = ?", userID)
	var rows []models.Prescription
	err := q.Scopes(repo.NewestFirst(cursor, limit)).Find(&rows).Error
	return rows, err
}

func (r *repository) SaveVerification(ctx context.Context, p *models.Prescription) error {
	return r.DB(ctx).Model(&models.Prescription{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"is_verified": p.IsVerified,
			"verified_by": p.VerifiedBy,
			"expires_at":  p.ExpiresAt,
		}).Error
}

func (r *repository) AddMedicine(ctx context.Context, line *models.PrescriptionMedicine) error {
	return r.DB(ctx).Create(line).Error
}

// ListMedicines returns the prescription's lines in entry order.
func (r *repository) ListMedicines(ctx context.Context, prescriptionID int64) ([]models.PrescriptionMedicine, error) {
	var rows []models.PrescriptionMedicine
	err := r.DB(ctx).Where("prescription_id = ?", prescriptionID).Order("id ASC").Find(&rows).Error
	return rows, err
}
