package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickmed/quickmed-backend/pkg/db/models"
	pkgerrors "github.com/quickmed/quickmed-backend/pkg/errors"
)

func TestInsufficientStockCarriesDetails(t *testing.T) {
	err := InsufficientStock(7, "Paracetamol", 1, 3)

	require.True(t, IsKind(err, KindInsufficientStock))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Equal(t, "Not enough stock for Paracetamol. Available: 1", typed.Message())

	details := typed.Details().(map[string]any)
	assert.Equal(t, int64(7), details["medicine_id"])
	assert.Equal(t, 3, details["requested"])
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(assert.AnError))
	assert.False(t, IsKind(nil, KindEmptyCart))
}

func TestCheckPrescription(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-time.Minute)

	tests := []struct {
		name string
		p    *models.Prescription
		want Kind
	}{
		{"missing", nil, KindInvalidPrescription},
		{"otherOwner", &models.Prescription{UserID: 2, IsVerified: true}, KindInvalidPrescription},
		{"unverified", &models.Prescription{UserID: 1}, KindInvalidPrescription},
		{"expired", &models.Prescription{UserID: 1, IsVerified: true, ExpiresAt: &past}, KindExpiredPrescription},
		{"expiresNow", &models.Prescription{UserID: 1, IsVerified: true, ExpiresAt: &now}, KindExpiredPrescription},
		{"valid", &models.Prescription{UserID: 1, IsVerified: true, ExpiresAt: &future}, ""},
		{"noExpiry", &models.Prescription{UserID: 1, IsVerified: true}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPrescription(tt.p, 1, now)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsKind(err, tt.want), "got %v", err)
		})
	}
}
