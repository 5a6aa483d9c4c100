package prescription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quickmed/quickmed-backend/internal/repo"
	"github.com/quickmed/quickmed-backend/internal/rules"
	"github.com/quickmed/quickmed-backend/pkg/auth"
	"github.com/quickmed/quickmed-backend/pkg/db/models"
	pkgerrors "github.com/quickmed/quickmed-backend/pkg/errors"
	"github.com/quickmed/quickmed-backend/pkg/pagination"
	"github.com/quickmed/quickmed-backend/pkg/storage"
)

// Service manages prescription records. Image bytes live in the blob store;
// only their keys pass through here.
type Service interface {
	Create(ctx context.Context, userID int64, imageKey string) (*PrescriptionDTO, error)
	List(ctx context.Context, userID int64, params pagination.Params) (*pagination.Page[PrescriptionDTO], error)
	Get(ctx context.Context, caller auth.Principal, id int64) (*PrescriptionDTO, error)
	Verify(ctx context.Context, admin auth.Principal, id int64, input VerifyInput) (*PrescriptionDTO, error)
	AddMedicine(ctx context.Context, admin auth.Principal, id int64, input MedicineLineInput) (*PrescriptionMedicineDTO, error)
	ListMedicines(ctx context.Context, caller auth.Principal, id int64) ([]PrescriptionMedicineDTO, error)
}

// VerifyInput is the pharmacist's decision. A nil ExpiresAt applies the
// default validity window.
type VerifyInput struct {
	IsVerified bool
	ExpiresAt  *time.Time
}

// MedicineLineInput names a medicine the pharmacist read off the prescription.
type MedicineLineInput struct {
	MedicineID int64
	Dosage     *string
	Quantity   int
}

type medicineLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Medicine, error)
}

type service struct {
	repo            Repository
	medicines       medicineLookup
	resolver        storage.Resolver
	defaultValidity time.Duration
	now             func() time.Time
}

func NewService(repo Repository, medicines medicineLookup, resolver storage.Resolver, defaultValidity time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("prescription repository required")
	}
	if medicines == nil {
		return nil, fmt.Errorf("medicine lookup required")
	}
	if defaultValidity <= 0 {
		return nil, fmt.Errorf("default prescription validity must be positive")
	}
	return &service{
		repo:            repo,
		medicines:       medicines,
		resolver:        resolver,
		defaultValidity: defaultValidity,
		now:             time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, userID int64, imageKey string) (*PrescriptionDTO, error) {
	key, err := storage.CleanKey(imageKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid image_key")
	}
	p := &models.Prescription{UserID: userID, ImageKey: key}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert prescription")
	}
	dto := NewPrescriptionDTO(ctx, p, s.resolver)
	return &dto, nil
}

func (s *service) List(ctx context.Context, userID int64, params pagination.Params) (*pagination.Page[PrescriptionDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListForUser(ctx, userID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list prescriptions")
	}
	page := pagination.Trim(rows, params.Limit, func(p models.Prescription) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})

	out := pagination.Page[PrescriptionDTO]{
		Items:      make([]PrescriptionDTO, 0, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for i := range page.Items {
		out.Items = append(out.Items, NewPrescriptionDTO(ctx, &page.Items[i], s.resolver))
	}
	return &out, nil
}

// Get hides prescriptions the caller may not see behind not-found.
func (s *service) Get(ctx context.Context, caller auth.Principal, id int64) (*PrescriptionDTO, error) {
	p, err := s.loadVisible(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	dto := NewPrescriptionDTO(ctx, p, s.resolver)
	return &dto, nil
}

func (s *service) Verify(ctx context.Context, admin auth.Principal, id int64, input VerifyInput) (*PrescriptionDTO, error) {
	if !admin.IsAdmin {
		return nil, rules.Forbidden("Pharmacy admin access required")
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	expires := now.Add(s.defaultValidity)
	if input.ExpiresAt != nil {
		expires = input.ExpiresAt.UTC()
	}
	verifier := admin.UserID
	p.IsVerified = input.IsVerified
	p.VerifiedBy = &verifier
	p.ExpiresAt = &expires

	if err := s.repo.SaveVerification(ctx, p); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save verification")
	}
	dto := NewPrescriptionDTO(ctx, p, s.resolver)
	return &dto, nil
}

// AddMedicine records one medicine line on a prescription.
func (s *service) AddMedicine(ctx context.Context, admin auth.Principal, id int64, input MedicineLineInput) (*PrescriptionMedicineDTO, error) {
	if !admin.IsAdmin {
		return nil, rules.Forbidden("Pharmacy admin access required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.medicines.FindByID(ctx, input.MedicineID); err != nil {
		if repo.IsNotFound(err) {
			return nil, rules.MedicineNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicine")
	}

	line := &models.PrescriptionMedicine{
		PrescriptionID: p.ID,
		MedicineID:     input.MedicineID,
		Dosage:         trimmedOrNil(input.Dosage),
		Quantity:       input.Quantity,
	}
	if err := s.repo.AddMedicine(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert prescription medicine")
	}
	dto := NewPrescriptionMedicineDTO(line)
	return &dto, nil
}

// ListMedicines follows Get's visibility rule.
func (s *service) ListMedicines(ctx context.Context, caller auth.Principal, id int64) ([]PrescriptionMedicineDTO, error) {
	p, err := s.loadVisible(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListMedicines(ctx, p.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list prescription medicines")
	}
	out := make([]PrescriptionMedicineDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewPrescriptionMedicineDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) loadVisible(ctx context.Context, caller auth.Principal, id int64) (*models.Prescription, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != caller.UserID && !caller.IsAdmin {
		return nil, rules.PrescriptionNotFound()
	}
	return p, nil
}

func (s *service) load(ctx context.Context, id int64) (*models.Prescription, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, rules.PrescriptionNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load prescription")
	}
	return p, nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
