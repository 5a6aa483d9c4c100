package cart

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/quickmed/quickmed-backend/internal/repo"
	"github.com/quickmed/quickmed-backend/internal/rules"
	"github.com/quickmed/quickmed-backend/pkg/db"
	"github.com/quickmed/quickmed-backend/pkg/db/models"
	pkgerrors "github.com/quickmed/quickmed-backend/pkg/errors"
)

// Service manages the per-user cart that order placement consumes.
type Service interface {
	GetCart(ctx context.Context, userID int64) (*CartDTO, error)
	AddItem(ctx context.Context, userID int64, input AddItemInput) (*CartItemDTO, error)
	UpdateItem(ctx context.Context, userID, itemID int64, quantity int) (*CartItemDTO, error)
	RemoveItem(ctx context.Context, userID, itemID int64) error
	Clear(ctx context.Context, userID int64) error
	ValidateCartLinePrescription(ctx context.Context, userID, itemID, prescriptionID int64) (*CartItemDTO, error)
}

const cartMedicineConstraint = "idx_cart_items_cart_medicine"

type AddItemInput struct {
	MedicineID     int64
	Quantity       int
	PrescriptionID *int64
}

type service struct {
	repo          CartRepository
	tx            txRunner
	medicines     medicineLoader
	prescriptions prescriptionLoader
	now           func() time.Time
}

func NewService(repo CartRepository, tx txRunner, medicines medicineLoader, prescriptions prescriptionLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if medicines == nil {
		return nil, fmt.Errorf("medicine loader required")
	}
	if prescriptions == nil {
		return nil, fmt.Errorf("prescription loader required")
	}
	return &service{
		repo:          repo,
		tx:            tx,
		medicines:     medicines,
		prescriptions: prescriptions,
		now:           time.Now,
	}, nil
}

func (s *service) GetCart(ctx context.Context, userID int64) (*CartDTO, error) {
	c, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return NewCartDTO(c), nil
}

// AddItem merges into an existing line for the same medicine. A newly
// supplied prescription replaces the line's reference.
func (s *service) AddItem(ctx context.Context, userID int64, input AddItemInput) (*CartItemDTO, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	med, err := s.medicines.FindByID(ctx, input.MedicineID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, rules.MedicineNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicine")
	}
	if med.PrescriptionRequired && input.PrescriptionID == nil {
		return nil, rules.PrescriptionRequired(med.ID, med.Name)
	}
	if input.PrescriptionID != nil {
		if err := s.checkPrescription(ctx, userID, *input.PrescriptionID); err != nil {
			return nil, err
		}
	}

	c, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	var line *models.CartItem
	upsert := func() error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			existing, err := txRepo.FindItemByMedicine(ctx, c.ID, med.ID)
			switch {
			case err == nil:
				existing.Quantity += input.Quantity
				if input.PrescriptionID != nil {
					existing.PrescriptionID = input.PrescriptionID
				}
				line = existing
				return txRepo.SaveItem(ctx, existing)
			case repo.IsNotFound(err):
				line = &models.CartItem{
					CartID:         c.ID,
					MedicineID:     med.ID,
					Quantity:       input.Quantity,
					PrescriptionID: input.PrescriptionID,
				}
				return txRepo.CreateItem(ctx, line)
			default:
				return err
			}
		})
	}
	err = upsert()
	if duplicateLine(err) {
		// a concurrent add created the line after our lookup; merge into it
		err = upsert()
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart item")
	}

	line.Medicine = med
	dto := NewCartItemDTO(line)
	return &dto, nil
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID int64, quantity int) (*CartItemDTO, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	item, err := s.loadItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	item.Quantity = quantity
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	return s.itemDTO(ctx, item), nil
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID int64) error {
	if _, err := s.loadItem(ctx, userID, itemID); err != nil {
		return err
	}
	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	return nil
}

// Clear empties the cart; a user without a cart has nothing to clear.
func (s *service) Clear(ctx context.Context, userID int64) error {
	c, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if _, err := s.repo.ClearItems(ctx, c.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// ValidateCartLinePrescription attaches a usable prescription to one of the
// caller's cart lines.
func (s *service) ValidateCartLinePrescription(ctx context.Context, userID, itemID, prescriptionID int64) (*CartItemDTO, error) {
	item, err := s.loadItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.checkPrescription(ctx, userID, prescriptionID); err != nil {
		return nil, err
	}
	item.PrescriptionID = &prescriptionID
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach prescription")
	}
	return s.itemDTO(ctx, item), nil
}

func (s *service) checkPrescription(ctx context.Context, userID, prescriptionID int64) error {
	p, err := s.prescriptions.FindByID(ctx, prescriptionID)
	if err != nil && !repo.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load prescription")
	}
	return rules.CheckPrescription(p, userID, s.now())
}

func (s *service) loadItem(ctx context.Context, userID, itemID int64) (*models.CartItem, error) {
	item, err := s.repo.FindItemForUser(ctx, userID, itemID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, rules.CartItemNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	return item, nil
}

// itemDTO prices the line when its medicine can still be read.
func (s *service) itemDTO(ctx context.Context, item *models.CartItem) *CartItemDTO {
	if item.Medicine == nil {
		if med, err := s.medicines.FindByID(ctx, item.MedicineID); err == nil {
			item.Medicine = med
		}
	}
	dto := NewCartItemDTO(item)
	return &dto
}

// duplicateLine matches the one-line-per-medicine constraint as reported by
// postgres (by name) and sqlite (by column list).
func duplicateLine(err error) bool {
	return db.IsUniqueViolation(err, cartMedicineConstraint) ||
		db.IsUniqueViolation(err, "cart_items.cart_id, cart_items.medicine_id")
}
