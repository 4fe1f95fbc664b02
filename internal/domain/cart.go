package domain

import "github.com/shopspring/decimal"

// CartLine is a client-supplied line of a checkout request. UnitPrice is informational only.
type CartLine struct {
	VariantID   string
	Quantity    int
	UnitPrice   decimal.Decimal
	ProductName string
	SKU         string
}
