package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/importer"
	"storefront/internal/repository/inventory"
	"storefront/internal/repository/product"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to stock CSV with sku,on_hand[,committed] columns")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[importer] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString, db.PoolOptions{
		Timeout:  cfg.DBTimeout,
		MaxConns: int32(cfg.DBMaxConns),
		AppName:  "storefront-importer",
	})
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatalf("open file: %v", err)
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, product.NewPostgres(pool, logger), inventory.NewPostgres(pool, logger))

	start := time.Now()
	report, err := imp.Run(ctx)
	if err != nil {
		logger.Fatalf("import failed after %d rows: %v", report.Updated, err)
	}
	if len(report.UnknownSKUs) > 0 {
		logger.Printf("skipped unknown skus: %s", strings.Join(report.UnknownSKUs, ", "))
	}

	fmt.Printf("Updated stock for %d variants in %s\n", report.Updated, time.Since(start).Truncate(time.Millisecond))
}
