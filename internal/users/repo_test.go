package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickmed/quickmed-backend/internal/repo"
	"github.com/quickmed/quickmed-backend/pkg/db/dbtest"
	"github.com/quickmed/quickmed-backend/pkg/db/models"
)

func TestActiveDeliveryPartners(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	r := NewRepository(db)

	_, err := r.FirstActiveDeliveryPartner(ctx)
	assert.True(t, repo.IsNotFound(err), "nobody on duty: %v", err)

	dbtest.User(t, db, nil)
	dbtest.User(t, db, func(u *models.User) { u.IsPharmacyAdmin = true })
	offDuty := dbtest.User(t, db, func(u *models.User) { u.IsDeliveryPartner = true })
	// is_active defaults to true on insert, so switch it off afterwards
	require.NoError(t, db.Model(offDuty).Update("is_active", false).Error)
	first := dbtest.User(t, db, func(u *models.User) { u.IsDeliveryPartner = true })
	second := dbtest.User(t, db, func(u *models.User) { u.IsDeliveryPartner = true })

	list, err := r.ListActiveDeliveryPartners(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	got, err := r.FirstActiveDeliveryPartner(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestListDeliveryPartnersService(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)

	db := dbtest.Open(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	empty, err := svc.ListDeliveryPartners(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	partner := dbtest.User(t, db, func(u *models.User) {
		u.IsDeliveryPartner = true
		u.FullName = "Ravi Kumar"
	})
	got, err := svc.ListDeliveryPartners(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, partner.ID, got[0].ID)
	assert.Equal(t, "Ravi Kumar", got[0].FullName)
	assert.True(t, got[0].IsActive)
}
