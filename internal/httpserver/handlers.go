package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	"storefront/internal/service/checkout"
	discountsvc "storefront/internal/service/discount"
)

type handlers struct {
	deps   Deps
	logger *log.Logger
}

type cartItemRequest struct {
	ID          string          `json:"id"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	ProductName string          `json:"productName"`
	SKU         string          `json:"sku"`
}

type checkoutRequest struct {
	CartItems    []cartItemRequest `json:"cartItems"`
	UserID       *string           `json:"userId"`
	AddressID    *string           `json:"addressId"`
	DiscountID   string            `json:"discountId"`
	DiscountCode string            `json:"discountCode"`
}

func (h *handlers) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}

	lines := make([]domain.CartLine, 0, len(req.CartItems))
	for _, item := range req.CartItems {
		lines = append(lines, domain.CartLine{
			VariantID:   strings.TrimSpace(item.ID),
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
			ProductName: item.ProductName,
			SKU:         item.SKU,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.deps.CheckoutTimeout)
	defer cancel()

	res, err := h.deps.CheckoutSvc.Checkout(ctx, checkout.Request{
		Lines:          lines,
		UserID:         req.UserID,
		AddressID:      req.AddressID,
		DiscountID:     strings.TrimSpace(req.DiscountID),
		DiscountCode:   req.DiscountCode,
		IdempotencyKey: strings.TrimSpace(c.GetHeader(idempotencyHeader)),
	})
	if err != nil {
		h.writeError(c, err, "Checkout failed.")
		return
	}

	body := gin.H{
		"success":  true,
		"orderId":  res.OrderID,
		"replayed": res.Replayed,
	}
	// A replay whose order could not be read back carries no amounts.
	if !res.Replayed || res.Order != nil {
		body["subtotal"] = money(res.Subtotal)
		body["discountAmount"] = money(res.DiscountAmount)
		body["totalAmount"] = money(res.Total)
	}
	c.JSON(http.StatusOK, body)
}

type validateDiscountRequest struct {
	Code string `json:"code"`
}

func (h *handlers) validateDiscount(c *gin.Context) {
	var req validateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	d, err := h.deps.DiscountSvc.Validate(c.Request.Context(), req.Code)
	if errors.Is(err, domain.ErrInvalidDiscount) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid discount code."})
		return
	}
	if err != nil {
		h.writeError(c, err, "Failed to validate discount.")
		return
	}
	c.JSON(http.StatusOK, discountFromDomain(*d))
}

type discountRequest struct {
	Code      string           `json:"code"`
	Type      string           `json:"type"`
	Value     *decimal.Decimal `json:"value"`
	StartDate *optionalTime    `json:"start_date"`
	EndDate   *optionalTime    `json:"end_date"`
	IsActive  *bool            `json:"is_active"`
}

func (r discountRequest) input() discountsvc.Input {
	return discountsvc.Input{
		Code:      r.Code,
		Type:      r.Type,
		Value:     r.Value,
		StartDate: r.StartDate.value(),
		EndDate:   r.EndDate.value(),
		IsActive:  r.IsActive,
	}
}

func (h *handlers) listDiscounts(c *gin.Context) {
	list, err := h.deps.DiscountSvc.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to fetch discounts.")
		return
	}
	c.JSON(http.StatusOK, discountsFromDomain(list))
}

func (h *handlers) getDiscount(c *gin.Context) {
	d, err := h.deps.DiscountSvc.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Discount not found."})
		return
	}
	if err != nil {
		h.writeError(c, err, "Failed to fetch discount.")
		return
	}
	c.JSON(http.StatusOK, discountFromDomain(*d))
}

func (h *handlers) createDiscount(c *gin.Context) {
	var req discountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	d, err := h.deps.DiscountSvc.Create(c.Request.Context(), req.input())
	if errors.Is(err, domain.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "A discount with this code already exists."})
		return
	}
	if err != nil {
		h.writeError(c, err, "Failed to create discount.")
		return
	}
	c.JSON(http.StatusCreated, discountFromDomain(*d))
}

func (h *handlers) updateDiscount(c *gin.Context) {
	var req discountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	d, err := h.deps.DiscountSvc.Update(c.Request.Context(), c.Param("id"), req.input())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Discount not found."})
		return
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "A discount with this code already exists."})
		return
	case err != nil:
		h.writeError(c, err, "Failed to update discount.")
		return
	}
	c.JSON(http.StatusOK, discountFromDomain(*d))
}

func (h *handlers) deleteDiscount(c *gin.Context) {
	err := h.deps.DiscountSvc.Delete(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Discount not found."})
		return
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Discount is referenced by existing orders."})
		return
	case err != nil:
		h.writeError(c, err, "Failed to delete discount.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Discount deleted successfully."})
}

func (h *handlers) listOrders(c *gin.Context) {
	list, err := h.deps.OrderSvc.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to fetch orders.")
		return
	}
	c.JSON(http.StatusOK, ordersFromDomain(list))
}

func (h *handlers) getOrder(c *gin.Context) {
	o, err := h.deps.OrderSvc.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found."})
		return
	}
	if err != nil {
		h.writeError(c, err, "Failed to fetch order.")
		return
	}
	c.JSON(http.StatusOK, orderFromDomain(*o))
}

type shippingRequest struct {
	ShippingCarrier *string `json:"shipping_carrier"`
	TrackingNumber  *string `json:"tracking_number"`
}

func (h *handlers) updateOrderShipping(c *gin.Context) {
	var req shippingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	o, err := h.deps.OrderSvc.UpdateShipping(c.Request.Context(), c.Param("id"), req.ShippingCarrier, req.TrackingNumber)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found."})
		return
	}
	if err != nil {
		h.writeError(c, err, "Failed to update order.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order updated successfully.", "order": orderFromDomain(*o)})
}
