package order

import (
	"context"

	"storefront/internal/domain"
	orderrepo "storefront/internal/repository/order"
)

type Service struct {
	repo orderrepo.Repository
}

func New(repo orderrepo.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]domain.Order, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateShipping sets carrier and/or tracking number. A nil field is left as is and an
// empty string clears it, but at least one of them must carry a value.
func (s *Service) UpdateShipping(ctx context.Context, id string, carrier, tracking *string) (*domain.Order, error) {
	if isBlank(carrier) && isBlank(tracking) {
		return nil, domain.NewValidationError("Shipping carrier or tracking number is required.")
	}
	return s.repo.UpdateShipping(ctx, id, orderrepo.ShippingUpdate{Carrier: carrier, TrackingNumber: tracking})
}

func isBlank(v *string) bool {
	return v == nil || *v == ""
}
