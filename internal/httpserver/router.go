package httpserver

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"storefront/internal/domain"
	"storefront/internal/service/checkout"
	discountsvc "storefront/internal/service/discount"
)

type checkoutService interface {
	Checkout(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

type discountService interface {
	Validate(ctx context.Context, code string) (*domain.Discount, error)
	List(ctx context.Context) ([]domain.Discount, error)
	Get(ctx context.Context, id string) (*domain.Discount, error)
	Create(ctx context.Context, in discountsvc.Input) (*domain.Discount, error)
	Update(ctx context.Context, id string, in discountsvc.Input) (*domain.Discount, error)
	Delete(ctx context.Context, id string) error
}

type orderService interface {
	List(ctx context.Context) ([]domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	UpdateShipping(ctx context.Context, id string, carrier, tracking *string) (*domain.Order, error)
}

const defaultCheckoutTimeout = 15 * time.Second

var errDBNotConfigured = errors.New("db not configured")

// Deps are the services the routes delegate to.
type Deps struct {
	CheckoutSvc     checkoutService
	DiscountSvc     discountService
	OrderSvc        orderService
	CheckoutTimeout time.Duration
	CORSOrigins     []string
	// ReadyChecks are probed by /readyz next to Postgres.
	ReadyChecks map[string]ReadyCheck
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.CheckoutSvc == nil || deps.DiscountSvc == nil || deps.OrderSvc == nil {
		return nil, errors.New("httpserver: checkout, discount and order services are required")
	}
	deps.CheckoutTimeout = checkoutTimeout(deps)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(requestIDMiddleware(), metricsMiddleware())
	router.Use(cors.New(corsConfig(deps.CORSOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db, deps.ReadyChecks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := &handlers{deps: deps, logger: logger}

	router.POST("/checkout", h.checkout)
	router.POST("/validate-discount", h.validateDiscount)

	discounts := router.Group("/discounts")
	discounts.GET("", h.listDiscounts)
	discounts.POST("", h.createDiscount)
	discounts.GET("/:id", h.getDiscount)
	discounts.PUT("/:id", h.updateDiscount)
	discounts.DELETE("/:id", h.deleteDiscount)

	orders := router.Group("/orders")
	orders.GET("", h.listOrders)
	orders.GET("/:id", h.getOrder)
	orders.PUT("/:id", h.updateOrderShipping)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", idempotencyHeader, requestIDHeader)
	cfg.ExposeHeaders = []string{requestIDHeader}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
