package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/quickmed/quickmed-backend/pkg/db/models"
)

// User inserts a user; mutate adjusts fields before the insert.
func User(t *testing.T, conn *gorm.DB, mutate func(*models.User)) *models.User {
	t.Helper()
	u := &models.User{
		Email:    fmt.Sprintf("user-%s@quickmed.test", uuid.NewString()),
		FullName: "Test User",
		IsActive: true,
	}
	if mutate != nil {
		mutate(u)
	}
	mustCreate(t, conn, u)
	return u
}

// Address inserts a delivery address for userID.
func Address(t *testing.T, conn *gorm.DB, userID int64) *models.Address {
	t.Helper()
	a := &models.Address{
		UserID:       userID,
		AddressLine1: "12 MG Road",
		City:         "Bengaluru",
		State:        "KA",
		PostalCode:   "560001",
		IsDefault:    true,
	}
	mustCreate(t, conn, a)
	return a
}

// Category inserts a category with the given name.
func Category(t *testing.T, conn *gorm.DB, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name}
	mustCreate(t, conn, c)
	return c
}

// Medicine inserts a medicine in categoryID.
func Medicine(t *testing.T, conn *gorm.DB, categoryID int64, name, price string, stock int, rx bool) *models.Medicine {
	t.Helper()
	m := &models.Medicine{
		Name:                 name,
		Price:                decimal.RequireFromString(price),
		Stock:                stock,
		CategoryID:           categoryID,
		PrescriptionRequired: rx,
	}
	mustCreate(t, conn, m)
	return m
}

// Prescription inserts a prescription for userID. A zero expiresIn leaves the
// expiry unset.
func Prescription(t *testing.T, conn *gorm.DB, userID int64, verified bool, expiresIn time.Duration) *models.Prescription {
	t.Helper()
	p := &models.Prescription{
		UserID:     userID,
		ImageKey:   "prescriptions/scan.jpg",
		IsVerified: verified,
	}
	if expiresIn != 0 {
		exp := time.Now().Add(expiresIn)
		p.ExpiresAt = &exp
	}
	mustCreate(t, conn, p)
	return p
}

func mustCreate(t *testing.T, conn *gorm.DB, v any) {
	t.Helper()
	if err := conn.Create(v).Error; err != nil {
		t.Fatalf("seed %T: %v", v, err)
	}
}
