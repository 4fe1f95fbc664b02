package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/httpserver"
	discountrepo "storefront/internal/repository/discount"
	inventoryrepo "storefront/internal/repository/inventory"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	checkoutsvc "storefront/internal/service/checkout"
	discountsvc "storefront/internal/service/discount"
	ordersvc "storefront/internal/service/order"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, db.PoolOptions{
		Timeout:  cfg.DBTimeout,
		MaxConns: int32(cfg.DBMaxConns),
		AppName:  "storefront-api",
	})
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	productRepo := productrepo.NewPostgres(dbpool, logger)
	inventoryRepo := inventoryrepo.NewPostgres(dbpool, logger)
	discountRepo := discountrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger, cfg.CheckoutAttempts)

	readyChecks := map[string]httpserver.ReadyCheck{}
	opts := checkoutsvc.Options{
		InitialStatus:  domain.OrderStatus(cfg.OrderInitialStatus),
		DeferInventory: cfg.InventoryMode == config.InventoryDeferred,
		TxTimeout:      cfg.DBTimeout,
		Logger:         logger,
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatalf("connect to redis: %v", err)
		}
		opts.Idempotency = cache.NewRedisIdempotencyStore(rdb, cfg.IdempotencyTTL, cfg.CheckoutTimeout+cfg.DBTimeout)
		readyChecks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		logger.Printf("idempotency keys stored in redis at %s", cfg.RedisAddr)
	}
	logger.Printf("inventory mode %s, initial order status %s", cfg.InventoryMode, cfg.OrderInitialStatus)

	checkoutService := checkoutsvc.New(productRepo, inventoryRepo, discountRepo, orderRepo, opts)
	discountService := discountsvc.New(discountRepo, nil)
	orderService := ordersvc.New(orderRepo)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		CheckoutSvc:     checkoutService,
		DiscountSvc:     discountService,
		OrderSvc:        orderService,
		CheckoutTimeout: cfg.CheckoutTimeout,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		ReadyChecks:     readyChecks,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
