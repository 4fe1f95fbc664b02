// Package dbtest provides Postgres fixtures for repository integration tests.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/migrate"
)

// Pool connects to TEST_DB_DSN, applies migrations and empties every table.
// Tests are skipped when TEST_DB_DSN is unset.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	Reset(t, pool)
	return pool
}

// Reset truncates all storefront tables.
func Reset(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	const q = `TRUNCATE order_discounts, order_items, orders, discounts, inventory_levels, product_variants, products CASCADE`
	if _, err := pool.Exec(context.Background(), q); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

// InsertVariant creates a product with one variant and, when onHand >= 0, an inventory row.
// It returns the variant id.
func InsertVariant(t *testing.T, pool *pgxpool.Pool, name, sku, price string, onHand, committed int) string {
	t.Helper()
	ctx := context.Background()

	var productID string
	if err := pool.QueryRow(ctx, `INSERT INTO products (name) VALUES ($1) RETURNING id::text`, name).Scan(&productID); err != nil {
		t.Fatalf("insert product: %v", err)
	}

	var variantID string
	err := pool.QueryRow(ctx, `
		INSERT INTO product_variants (product_id, sku, price, color, size)
		VALUES ($1::uuid, $2, $3::numeric, 'Black', 'M')
		RETURNING id::text
	`, productID, sku, price).Scan(&variantID)
	if err != nil {
		t.Fatalf("insert variant: %v", err)
	}

	if onHand >= 0 {
		_, err := pool.Exec(ctx, `INSERT INTO inventory_levels (variant_id, on_hand, committed) VALUES ($1::uuid, $2, $3)`,
			variantID, onHand, committed)
		if err != nil {
			t.Fatalf("insert inventory: %v", err)
		}
	}
	return variantID
}

// OnHand reads the current on_hand count of a variant.
func OnHand(t *testing.T, pool *pgxpool.Pool, variantID string) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), `SELECT on_hand FROM inventory_levels WHERE variant_id = $1::uuid`, variantID).Scan(&n); err != nil {
		t.Fatalf("read on_hand: %v", err)
	}
	return n
}

// Count returns the number of rows in table.
func Count(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), `SELECT count(*) FROM `+table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
