package users

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/quickmed/quickmed-backend/pkg/errors"
)

// Service exposes the user listings pharmacy staff need for dispatch.
type Service interface {
	ListDeliveryPartners(ctx context.Context) ([]PartnerDTO, error)
}

type PartnerDTO struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListDeliveryPartners(ctx context.Context) ([]PartnerDTO, error) {
	rows, err := s.repo.ListActiveDeliveryPartners(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list delivery partners")
	}
	out := make([]PartnerDTO, 0, len(rows))
	for _, u := range rows {
		out = append(out, PartnerDTO{
			ID:        u.ID,
			Email:     u.Email,
			FullName:  u.FullName,
			IsActive:  u.IsActive,
			CreatedAt: u.CreatedAt,
		})
	}
	return out, nil
}
