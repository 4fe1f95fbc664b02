package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type productSeed struct {
	ID          string
	Name        string
	Description string
	Variants    []variantSeed
}

type variantSeed struct {
	SKU     string
	Price   string
	Color   string
	Size    string
	OnHand  int
	Pending int
}

type discountSeed struct {
	Code      string
	Type      string
	Value     string
	StartDate *time.Time
	EndDate   *time.Time
	IsActive  bool
}

var products = []productSeed{
	{
		ID:          "0b6f1c1e-5d0a-4c39-9a57-6a1de0000001",
		Name:        "Demo T-Shirt",
		Description: "Soft cotton tee for demo purposes",
		Variants: []variantSeed{
			{SKU: "TSHIRT-BLK-M", Price: "19.99", Color: "Black", Size: "M", OnHand: 25},
			{SKU: "TSHIRT-BLK-L", Price: "19.99", Color: "Black", Size: "L", OnHand: 10, Pending: 2},
			{SKU: "TSHIRT-WHT-S", Price: "17.99", Color: "White", Size: "S", OnHand: 1},
		},
	},
	{
		ID:          "0b6f1c1e-5d0a-4c39-9a57-6a1de0000002",
		Name:        "Demo Mug",
		Description: "Ceramic mug with demo logo",
		Variants: []variantSeed{
			{SKU: "MUG-STD", Price: "12.99", Color: "White", Size: "350ml", OnHand: 40},
		},
	},
	{
		ID:          "0b6f1c1e-5d0a-4c39-9a57-6a1de0000003",
		Name:        "Demo Cap",
		Description: "Sold out on purpose",
		Variants: []variantSeed{
			{SKU: "CAP-RED", Price: "15.00", Color: "Red", Size: "One size", OnHand: 0},
		},
	},
}

// Apply inserts demo catalog, stock and discounts for manual testing. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, p := range products {
			if err := upsertProduct(ctx, tx, p); err != nil {
				return fmt.Errorf("upsert product %s: %w", p.Name, err)
			}
		}
		for _, d := range discounts(time.Now().UTC()) {
			if err := upsertDiscount(ctx, tx, d); err != nil {
				return fmt.Errorf("upsert discount %s: %w", d.Code, err)
			}
		}
		return nil
	})
}

func discounts(now time.Time) []discountSeed {
	lastYear := now.AddDate(-1, 0, 0)
	lastMonth := now.AddDate(0, -1, 0)
	return []discountSeed{
		{Code: "SAVE10", Type: "percentage", Value: "10", IsActive: true},
		{Code: "FLAT20", Type: "fixed", Value: "20", IsActive: true},
		{Code: "BIG50", Type: "fixed", Value: "50", IsActive: true},
		{Code: "OLD5", Type: "percentage", Value: "5", StartDate: &lastYear, EndDate: &lastMonth, IsActive: true},
	}
}

func upsertProduct(ctx context.Context, tx pgx.Tx, p productSeed) error {
	const productQ = `
INSERT INTO products (id, name, description)
VALUES ($1::uuid, $2, $3)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    description = EXCLUDED.description
`
	if _, err := tx.Exec(ctx, productQ, p.ID, p.Name, p.Description); err != nil {
		return err
	}

	const variantQ = `
INSERT INTO product_variants (product_id, sku, price, color, size)
VALUES ($1::uuid, $2, $3::numeric, $4, $5)
ON CONFLICT (sku) DO UPDATE
SET price = EXCLUDED.price,
    color = EXCLUDED.color,
    size = EXCLUDED.size
RETURNING id::text
`
	const stockQ = `
INSERT INTO inventory_levels (variant_id, on_hand, committed)
VALUES ($1::uuid, $2, $3)
ON CONFLICT (variant_id) DO UPDATE
SET on_hand = EXCLUDED.on_hand,
    committed = EXCLUDED.committed
`
	for _, v := range p.Variants {
		var variantID string
		if err := tx.QueryRow(ctx, variantQ, p.ID, v.SKU, v.Price, v.Color, v.Size).Scan(&variantID); err != nil {
			return fmt.Errorf("variant %s: %w", v.SKU, err)
		}
		if _, err := tx.Exec(ctx, stockQ, variantID, v.OnHand, v.Pending); err != nil {
			return fmt.Errorf("stock %s: %w", v.SKU, err)
		}
	}
	return nil
}

func upsertDiscount(ctx context.Context, tx pgx.Tx, d discountSeed) error {
	const q = `
INSERT INTO discounts (code, type, value, start_date, end_date, is_active)
VALUES ($1, $2, $3::numeric, $4, $5, $6)
ON CONFLICT (code) DO UPDATE
SET type = EXCLUDED.type,
    value = EXCLUDED.value,
    start_date = EXCLUDED.start_date,
    end_date = EXCLUDED.end_date,
    is_active = EXCLUDED.is_active
`
	_, err := tx.Exec(ctx, q, d.Code, d.Type, d.Value, d.StartDate, d.EndDate, d.IsActive)
	return err
}
