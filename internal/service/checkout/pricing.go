package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

type discountReader interface {
	GetByID(ctx context.Context, id string) (*domain.Discount, error)
	GetByCode(ctx context.Context, code string) (*domain.Discount, error)
}

// DiscountValidator re-reads a discount from the store and checks it is applicable now,
// whatever the client displayed earlier.
type DiscountValidator struct {
	discounts discountReader
	now       func() time.Time
}

func NewDiscountValidator(discounts discountReader, now func() time.Time) *DiscountValidator {
	if now == nil {
		now = time.Now
	}
	return &DiscountValidator{discounts: discounts, now: now}
}

// Resolve returns nil when neither id nor code is given. An id takes precedence over a code.
func (v *DiscountValidator) Resolve(ctx context.Context, id, code string) (*domain.Discount, error) {
	id = strings.TrimSpace(id)
	code = strings.TrimSpace(code)
	if id == "" && code == "" {
		return nil, nil
	}

	var (
		d   *domain.Discount
		err error
	)
	if id != "" {
		d, err = v.discounts.GetByID(ctx, id)
	} else {
		d, err = v.discounts.GetByCode(ctx, code)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidDiscount
		}
		return nil, err
	}
	if err := d.CheckActive(v.now()); err != nil {
		return nil, err
	}
	return d, nil
}

// DiscountAmount is the part of subtotal a validated discount removes, within [0, subtotal].
func DiscountAmount(d *domain.Discount, subtotal decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return d.AmountFor(subtotal)
}

// Total is the charge for an order: subtotal less discount, never negative.
func Total(subtotal, discountAmount decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discountAmount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// Subtotal sums quantity times the server-side unit price of every line.
func Subtotal(items []domain.OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return domain.RoundMoney(sum)
}
