package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountKind is the storage tag of a discount value.
type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
)

var hundred = decimal.NewFromInt(100)

// DiscountValue is either a Percentage or a Fixed amount off the subtotal.
type DiscountValue interface {
	Kind() DiscountKind
	// Raw is the stored value: a percent for Percentage, an amount for Fixed.
	Raw() decimal.Decimal
	Validate() error
	// Apply returns the amount taken off subtotal, always within [0, subtotal].
	Apply(subtotal decimal.Decimal) decimal.Decimal
}

// Percentage takes Percent/100 of the subtotal.
type Percentage struct {
	Percent decimal.Decimal
}

func (Percentage) Kind() DiscountKind     { return DiscountPercentage }
func (p Percentage) Raw() decimal.Decimal { return p.Percent }

func (p Percentage) Validate() error {
	if p.Percent.IsNegative() || p.Percent.GreaterThan(hundred) {
		return errors.New("Percentage value must be between 0 and 100.")
	}
	return nil
}

func (p Percentage) Apply(subtotal decimal.Decimal) decimal.Decimal {
	pct := ClampMoney(p.Percent, decimal.Zero, hundred)
	return boundToSubtotal(RoundMoney(subtotal.Mul(pct).Div(hundred)), subtotal)
}

// Fixed takes a flat amount off the subtotal, never more than the subtotal itself.
type Fixed struct {
	Amount decimal.Decimal
}

func (Fixed) Kind() DiscountKind     { return DiscountFixed }
func (f Fixed) Raw() decimal.Decimal { return f.Amount }

func (f Fixed) Validate() error {
	if f.Amount.IsNegative() {
		return errors.New("Fixed value cannot be negative.")
	}
	return nil
}

func (f Fixed) Apply(subtotal decimal.Decimal) decimal.Decimal {
	return boundToSubtotal(f.Amount, subtotal)
}

func boundToSubtotal(amount, subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.IsNegative() {
		return decimal.Zero
	}
	return ClampMoney(amount, decimal.Zero, subtotal)
}

// NewDiscountValue builds the typed value for a stored (type, value) pair.
func NewDiscountValue(kind string, v decimal.Decimal) (DiscountValue, error) {
	switch DiscountKind(strings.ToLower(strings.TrimSpace(kind))) {
	case DiscountPercentage:
		return Percentage{Percent: v}, nil
	case DiscountFixed:
		return Fixed{Amount: v}, nil
	default:
		return nil, errors.New("Invalid discount type")
	}
}

// Discount is a code-addressable price reduction with an optional activity window.
type Discount struct {
	ID        string
	Code      string
	Value     DiscountValue
	StartDate *time.Time
	EndDate   *time.Time
	IsActive  bool
	CreatedAt time.Time
}

// NormalizeCode returns the canonical (uppercase) form of a discount code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CheckActive returns a *DiscountNotActiveError when d cannot be applied at now.
func (d Discount) CheckActive(now time.Time) error {
	switch {
	case !d.IsActive:
		return &DiscountNotActiveError{Code: d.Code, Reason: DiscountInactive}
	case d.StartDate != nil && d.StartDate.After(now):
		return &DiscountNotActiveError{Code: d.Code, Reason: DiscountNotYetActive}
	case d.EndDate != nil && d.EndDate.Before(now):
		return &DiscountNotActiveError{Code: d.Code, Reason: DiscountExpired}
	}
	return nil
}

// AmountFor returns the amount d takes off subtotal.
func (d Discount) AmountFor(subtotal decimal.Decimal) decimal.Decimal {
	if d.Value == nil {
		return decimal.Zero
	}
	return d.Value.Apply(subtotal)
}
