package domain

// InventoryLevel is the stock bookkeeping row of a single variant.
type InventoryLevel struct {
	VariantID string
	OnHand    int
	Committed int
}

// Available is the unreserved stock, never below zero.
func (l InventoryLevel) Available() int {
	if avail := l.OnHand - l.Committed; avail > 0 {
		return avail
	}
	return 0
}

// StockDemand is the total quantity a checkout takes from one variant.
type StockDemand struct {
	VariantID   string
	ProductName string
	SKU         string
	Quantity    int
}
