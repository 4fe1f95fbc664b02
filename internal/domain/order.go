package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// IsInitial reports whether s may be assigned at checkout.
func (s OrderStatus) IsInitial() bool {
	return s == OrderPending || s == OrderPaid
}

type Order struct {
	ID                string
	UserID            *string
	ShippingAddressID *string
	Subtotal          decimal.Decimal
	TotalAmount       decimal.Decimal
	Status            OrderStatus
	ShippingCarrier   *string
	TrackingNumber    *string
	CreatedAt         time.Time
	Items             []OrderItem
	Discounts         []AppliedDiscount
}

// OrderItem records the price a variant was sold at. It is never updated.
type OrderItem struct {
	OrderID         string
	VariantID       string
	SKU             string
	ProductName     string
	Color           string
	Size            string
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// LineTotal is quantity times the purchase price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// AppliedDiscount is an order-discount link joined with the discount it points at.
type AppliedDiscount struct {
	DiscountID string
	Code       string
	Kind       DiscountKind
	Value      decimal.Decimal
}
