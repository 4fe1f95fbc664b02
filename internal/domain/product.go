package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// Variant is a purchasable SKU of a product. Price is the authoritative unit price.
type Variant struct {
	ID          string
	ProductID   string
	ProductName string
	SKU         string
	Price       decimal.Decimal
	Color       string
	Size        string
}
