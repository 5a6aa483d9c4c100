package medicine

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/quickmed/quickmed-backend/internal/repo"
	"github.com/quickmed/quickmed-backend/internal/rules"
	"github.com/quickmed/quickmed-backend/pkg/db"
	"github.com/quickmed/quickmed-backend/pkg/db/models"
	pkgerrors "github.com/quickmed/quickmed-backend/pkg/errors"
	"github.com/quickmed/quickmed-backend/pkg/storage"
)

// Service exposes catalog reads and pharmacy admin maintenance.
type Service interface {
	Search(ctx context.Context, f SearchFilter) ([]MedicineDTO, error)
	Get(ctx context.Context, id int64) (*MedicineDTO, error)
	Alternatives(ctx context.Context, id int64) ([]MedicineDTO, error)
	Create(ctx context.Context, input CreateMedicineInput) (*MedicineDTO, error)
	Update(ctx context.Context, id int64, patch MedicinePatch) (*MedicineDTO, error)
	SetStock(ctx context.Context, id int64, stock int) (*MedicineDTO, error)
	Delete(ctx context.Context, id int64) error
}

// CreateMedicineInput holds the validated payload to add a medicine.
type CreateMedicineInput struct {
	Name                 string
	Description          *string
	Price                decimal.Decimal
	Stock                int
	CategoryID           int64
	PrescriptionRequired bool
	Manufacturer         *string
	ImageKey             *string
}

// MedicinePatch applies only the non-nil fields.
type MedicinePatch struct {
	Name                 *string
	Description          *string
	Price                *decimal.Decimal
	Stock                *int
	CategoryID           *int64
	PrescriptionRequired *bool
	Manufacturer         *string
	ImageKey             *string
}

type service struct {
	repo     Repository
	resolver storage.Resolver
}

// NewService constructs the medicine service. resolver may be nil, in which
// case image keys are returned as stored.
func NewService(repo Repository, resolver storage.Resolver) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("medicine repository required")
	}
	return &service{repo: repo, resolver: resolver}, nil
}

func (s *service) Search(ctx context.Context, f SearchFilter) ([]MedicineDTO, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_price cannot exceed max_price")
	}
	rows, err := s.repo.Search(ctx, f)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search medicines")
	}
	return newMedicineDTOs(ctx, rows, s.resolver), nil
}

func (s *service) Get(ctx context.Context, id int64) (*MedicineDTO, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := NewMedicineDTO(ctx, m, s.resolver)
	return &dto, nil
}

func (s *service) Alternatives(ctx context.Context, id int64) ([]MedicineDTO, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListAlternatives(ctx, m)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list alternatives")
	}
	return newMedicineDTOs(ctx, rows, s.resolver), nil
}

func (s *service) Create(ctx context.Context, input CreateMedicineInput) (*MedicineDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	m := &models.Medicine{
		Name:                 name,
		Description:          input.Description,
		Price:                input.Price.Round(2),
		Stock:                input.Stock,
		CategoryID:           input.CategoryID,
		PrescriptionRequired: input.PrescriptionRequired,
		Manufacturer:         input.Manufacturer,
		ImageKey:             input.ImageKey,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert medicine")
	}
	return s.Get(ctx, m.ID)
}

func (s *service) Update(ctx context.Context, id int64, patch MedicinePatch) (*MedicineDTO, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Price != nil {
		if err := validatePrice(*patch.Price); err != nil {
			return nil, err
		}
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}
	if patch.CategoryID != nil && *patch.CategoryID != m.CategoryID {
		if err := s.ensureCategory(ctx, *patch.CategoryID); err != nil {
			return nil, err
		}
	}

	applyPatch(m, patch)
	if err := s.repo.Save(ctx, m); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update medicine")
	}
	return s.Get(ctx, m.ID)
}

func (s *service) SetStock(ctx context.Context, id int64, stock int) (*MedicineDTO, error) {
	if stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	found, err := s.repo.SetStock(ctx, id, stock)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set stock")
	}
	if !found {
		return nil, rules.MedicineNotFound()
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case repo.IsNotFound(err):
			return rules.MedicineNotFound()
		case db.IsForeignKeyViolation(err):
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "medicine is referenced by carts or orders")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete medicine")
	}
	return nil
}

func (s *service) load(ctx context.Context, id int64) (*models.Medicine, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, rules.MedicineNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicine")
	}
	return m, nil
}

func (s *service) ensureCategory(ctx context.Context, id int64) error {
	ok, err := s.repo.CategoryExists(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	if !ok {
		return rules.CategoryNotFound()
	}
	return nil
}

func validatePrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	return nil
}

func applyPatch(m *models.Medicine, patch MedicinePatch) {
	if patch.Name != nil {
		m.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		m.Description = patch.Description
	}
	if patch.Price != nil {
		m.Price = patch.Price.Round(2)
	}
	if patch.Stock != nil {
		m.Stock = *patch.Stock
	}
	if patch.CategoryID != nil {
		m.CategoryID = *patch.CategoryID
		m.Category = nil
	}
	if patch.PrescriptionRequired != nil {
		m.PrescriptionRequired = *patch.PrescriptionRequired
	}
	if patch.Manufacturer != nil {
		m.Manufacturer = patch.Manufacturer
	}
	if patch.ImageKey != nil {
		m.ImageKey = patch.ImageKey
	}
}
