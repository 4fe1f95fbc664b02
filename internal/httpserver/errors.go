package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
	"storefront/internal/service/checkout"
)

// writeError maps service errors onto status codes. Anything unrecognised is
// logged and reported as fallback without leaking the cause.
func (h *handlers) writeError(c *gin.Context, err error, fallback string) {
	var (
		validation *domain.ValidationError
		stock      *domain.InsufficientStockError
		inactive   *domain.DiscountNotActiveError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message})
	case errors.As(err, &stock):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": stock.Error(),
			"details": gin.H{
				"variantId": stock.VariantID,
				"sku":       stock.SKU,
				"requested": stock.Requested,
				"available": stock.Available,
			},
		})
	case errors.As(err, &inactive):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   inactive.Error(),
			"details": gin.H{"code": inactive.Code, "reason": string(inactive.Reason)},
		})
	case errors.Is(err, domain.ErrInvalidDiscount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid discount applied."})
	case errors.Is(err, checkout.ErrInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "A checkout with this idempotency key is already in progress."})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "The request conflicts with existing data."})
	case domain.IsTransient(err):
		h.logger.Printf("request_id=%s transient error: %v", requestID(c), err)
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable. Please retry."})
	default:
		h.logger.Printf("request_id=%s error: %v", requestID(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
