package order

import (
	"context"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

// PlaceInput is everything written by a single checkout transaction.
type PlaceInput struct {
	UserID            *string
	ShippingAddressID *string
	Subtotal          decimal.Decimal
	TotalAmount       decimal.Decimal
	Status            domain.OrderStatus
	Items             []domain.OrderItem
	DiscountID        *string
	// Decrements are applied inside the transaction; leave empty to decrement elsewhere.
	Decrements []domain.StockDemand
}

// ShippingUpdate changes the fields that are non-nil; an empty string clears the field.
type ShippingUpdate struct {
	Carrier        *string
	TrackingNumber *string
}

type Repository interface {
	Place(ctx context.Context, in PlaceInput) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	UpdateShipping(ctx context.Context, id string, upd ShippingUpdate) (*domain.Order, error)
}
