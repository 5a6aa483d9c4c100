package medicine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickmed/quickmed-backend/internal/rules"
	"github.com/quickmed/quickmed-backend/pkg/db/dbtest"
	"github.com/quickmed/quickmed-backend/pkg/db/models"
	pkgerrors "github.com/quickmed/quickmed-backend/pkg/errors"
	"github.com/quickmed/quickmed-backend/pkg/pagination"
	"github.com/quickmed/quickmed-backend/pkg/storage"
)

func newTestService(t *testing.T) (Service, *testCatalog) {
	t.Helper()
	conn := dbtest.Open(t)
	cat := &testCatalog{
		pain:    dbtest.Category(t, conn, "Pain Relief"),
		allergy: dbtest.Category(t, conn, "Allergy"),
	}
	cat.paracetamol = dbtest.Medicine(t, conn, cat.pain.ID, "Paracetamol 500mg", "25.00", 40, false)
	cat.ibuprofen = dbtest.Medicine(t, conn, cat.pain.ID, "Ibuprofen 400mg", "48.50", 10, false)
	cat.tramadol = dbtest.Medicine(t, conn, cat.pain.ID, "Tramadol 50mg", "120.00", 5, true)
	cat.cetirizine = dbtest.Medicine(t, conn, cat.allergy.ID, "Cetirizine 10mg", "18.00", 60, false)

	svc, err := NewService(NewRepository(conn), storage.NewStaticResolver("https://cdn.quickmed.test"))
	require.NoError(t, err)
	return svc, cat
}

type testCatalog struct {
	pain, allergy                               *models.Category
	paracetamol, ibuprofen, tramadol, cetirizine *models.Medicine
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil, nil)
	require.Error(t, err)
}

func TestSearchFilters(t *testing.T) {
	svc, cat := newTestService(t)
	ctx := context.Background()

	t.Run("query", func(t *testing.T) {
		got, err := svc.Search(ctx, SearchFilter{Query: "PARA"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, cat.paracetamol.ID, got[0].ID)
		require.NotNil(t, got[0].Category)
		assert.Equal(t, "Pain Relief", got[0].Category.Name)
	})

	t.Run("category", func(t *testing.T) {
		got, err := svc.Search(ctx, SearchFilter{CategoryID: &cat.allergy.ID})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, cat.cetirizine.ID, got[0].ID)
	})

	t.Run("prescriptionRequired", func(t *testing.T) {
		rx := true
		got, err := svc.Search(ctx, SearchFilter{PrescriptionRequired: &rx})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, cat.tramadol.ID, got[0].ID)
	})

	t.Run("priceRange", func(t *testing.T) {
		lo := decimal.NewFromInt(20)
		hi := decimal.NewFromInt(50)
		got, err := svc.Search(ctx, SearchFilter{MinPrice: &lo, MaxPrice: &hi})
		require.NoError(t, err)
		ids := []int64{}
		for _, m := range got {
			ids = append(ids, m.ID)
		}
		assert.ElementsMatch(t, []int64{cat.paracetamol.ID, cat.ibuprofen.ID}, ids)
	})

	t.Run("invertedRange", func(t *testing.T) {
		lo := decimal.NewFromInt(50)
		hi := decimal.NewFromInt(20)
		_, err := svc.Search(ctx, SearchFilter{MinPrice: &lo, MaxPrice: &hi})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	})

	t.Run("paging", func(t *testing.T) {
		got, err := svc.Search(ctx, SearchFilter{Page: pagination.Offset{Skip: 1, Limit: 2}})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, cat.ibuprofen.ID, got[0].ID)
	})
}

func TestGetAndAlternatives(t *testing.T) {
	svc, cat := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, 9999)
	assert.True(t, rules.IsKind(err, rules.KindMedicineNotFound))

	alts, err := svc.Alternatives(ctx, cat.paracetamol.ID)
	require.NoError(t, err)
	require.Len(t, alts, 2)
	for _, alt := range alts {
		assert.NotEqual(t, cat.paracetamol.ID, alt.ID)
		assert.Equal(t, cat.pain.ID, alt.CategoryID)
	}
}

func TestCreateRequiresCategory(t *testing.T) {
	svc, cat := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateMedicineInput{Name: "Loratadine", Price: decimal.RequireFromString("30"), CategoryID: 9999})
	assert.True(t, rules.IsKind(err, rules.KindCategoryNotFound))

	key := "medicines/loratadine.png"
	got, err := svc.Create(ctx, CreateMedicineInput{
		Name:       "  Loratadine 10mg ",
		Price:      decimal.RequireFromString("30.499"),
		Stock:      12,
		CategoryID: cat.allergy.ID,
		ImageKey:   &key,
	})
	require.NoError(t, err)
	assert.Equal(t, "Loratadine 10mg", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("30.5")), "price %s", got.Price)
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, "https://cdn.quickmed.test/medicines/loratadine.png", *got.ImageURL)
}

func TestUpdateAppliesOnlySetFields(t *testing.T) {
	svc, cat := newTestService(t)
	ctx := context.Background()

	price := decimal.RequireFromString("27.75")
	got, err := svc.Update(ctx, cat.paracetamol.ID, MedicinePatch{Price: &price, CategoryID: &cat.allergy.ID})
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol 500mg", got.Name)
	assert.Equal(t, 40, got.Stock)
	assert.True(t, got.Price.Equal(price))
	assert.Equal(t, cat.allergy.ID, got.CategoryID)

	negative := -1
	_, err = svc.Update(ctx, cat.paracetamol.ID, MedicinePatch{Stock: &negative})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	missing := int64(9999)
	_, err = svc.Update(ctx, cat.paracetamol.ID, MedicinePatch{CategoryID: &missing})
	assert.True(t, rules.IsKind(err, rules.KindCategoryNotFound))
}

func TestSetStock(t *testing.T) {
	svc, cat := newTestService(t)
	ctx := context.Background()

	got, err := svc.SetStock(ctx, cat.ibuprofen.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)

	_, err = svc.SetStock(ctx, cat.ibuprofen.ID, -5)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.SetStock(ctx, 9999, 3)
	assert.True(t, rules.IsKind(err, rules.KindMedicineNotFound))
}

func TestDelete(t *testing.T) {
	svc, cat := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, cat.cetirizine.ID))
	err := svc.Delete(ctx, cat.cetirizine.ID)
	assert.True(t, rules.IsKind(err, rules.KindMedicineNotFound))
}
