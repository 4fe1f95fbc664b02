package httpserver

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

// money renders a decimal as a JSON number with two decimal places.
type money decimal.Decimal

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(domain.MoneyPlaces)), nil
}

// optionalTime accepts RFC 3339 timestamps, bare dates, or an empty string.
type optionalTime struct {
	t *time.Time
}

var optionalTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

func (o *optionalTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		o.t = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		o.t = nil
		return nil
	}
	var lastErr error
	for _, layout := range optionalTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			t = t.UTC()
			o.t = &t
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (o *optionalTime) value() *time.Time {
	if o == nil {
		return nil
	}
	return o.t
}

type discountResponse struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	Type      string     `json:"type"`
	Value     money      `json:"value"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

func discountFromDomain(d domain.Discount) discountResponse {
	resp := discountResponse{
		ID:        d.ID,
		Code:      d.Code,
		StartDate: d.StartDate,
		EndDate:   d.EndDate,
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt,
	}
	if d.Value != nil {
		resp.Type = string(d.Value.Kind())
		resp.Value = money(d.Value.Raw())
	}
	return resp
}

func discountsFromDomain(list []domain.Discount) []discountResponse {
	out := make([]discountResponse, 0, len(list))
	for _, d := range list {
		out = append(out, discountFromDomain(d))
	}
	return out
}

type orderResponse struct {
	ID                string                  `json:"id"`
	CreatedAt         time.Time               `json:"created_at"`
	Subtotal          money                   `json:"subtotal"`
	TotalAmount       money                   `json:"total_amount"`
	Status            string                  `json:"status"`
	ShippingCarrier   *string                 `json:"shipping_carrier"`
	TrackingNumber    *string                 `json:"tracking_number"`
	UserID            *string                 `json:"user_id"`
	ShippingAddressID *string                 `json:"shipping_address_id"`
	Items             []orderItemResponse     `json:"order_items"`
	Discounts         []orderDiscountResponse `json:"order_discounts"`
}

type orderItemResponse struct {
	Quantity        int             `json:"quantity"`
	PriceAtPurchase money           `json:"price_at_purchase"`
	Variant         variantResponse `json:"product_variants"`
}

type variantResponse struct {
	ID      string          `json:"id"`
	SKU     string          `json:"sku"`
	Color   string          `json:"color"`
	Size    string          `json:"size"`
	Product productResponse `json:"products"`
}

type productResponse struct {
	Name string `json:"name"`
}

type orderDiscountResponse struct {
	Discount appliedDiscountResponse `json:"discounts"`
}

type appliedDiscountResponse struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Type  string `json:"type"`
	Value money  `json:"value"`
}

func orderFromDomain(o domain.Order) orderResponse {
	resp := orderResponse{
		ID:                o.ID,
		CreatedAt:         o.CreatedAt,
		Subtotal:          money(o.Subtotal),
		TotalAmount:       money(o.TotalAmount),
		Status:            string(o.Status),
		ShippingCarrier:   o.ShippingCarrier,
		TrackingNumber:    o.TrackingNumber,
		UserID:            o.UserID,
		ShippingAddressID: o.ShippingAddressID,
		Items:             make([]orderItemResponse, 0, len(o.Items)),
		Discounts:         make([]orderDiscountResponse, 0, len(o.Discounts)),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			Quantity:        it.Quantity,
			PriceAtPurchase: money(it.PriceAtPurchase),
			Variant: variantResponse{
				ID:      it.VariantID,
				SKU:     it.SKU,
				Color:   it.Color,
				Size:    it.Size,
				Product: productResponse{Name: it.ProductName},
			},
		})
	}
	for _, d := range o.Discounts {
		resp.Discounts = append(resp.Discounts, orderDiscountResponse{
			Discount: appliedDiscountResponse{
				ID:    d.DiscountID,
				Code:  d.Code,
				Type:  string(d.Kind),
				Value: money(d.Value),
			},
		})
	}
	return resp
}

func ordersFromDomain(list []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, orderFromDomain(o))
	}
	return out
}
