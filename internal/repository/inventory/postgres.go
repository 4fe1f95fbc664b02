package inventory

import (
	"context"
	"errors"
	"io"
	"log"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/db"
	"storefront/internal/domain"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) GetLevels(ctx context.Context, variantIDs []string) (map[string]domain.InventoryLevel, error) {
	levels := make(map[string]domain.InventoryLevel, len(variantIDs))
	variantIDs = db.UUIDs(variantIDs)
	if len(variantIDs) == 0 {
		return levels, nil
	}
	const q = `
SELECT variant_id::text, on_hand, committed
FROM inventory_levels
WHERE variant_id = ANY($1::uuid[])
`
	rows, err := r.pool.Query(ctx, q, variantIDs)
	if err != nil {
		r.logger.Printf("inventory repo: get levels count=%d error=%v", len(variantIDs), err)
		return nil, db.Classify("get inventory levels", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.InventoryLevel
		if err := rows.Scan(&l.VariantID, &l.OnHand, &l.Committed); err != nil {
			return nil, db.Classify("scan inventory level", err)
		}
		levels[l.VariantID] = l
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify("get inventory levels", err)
	}
	return levels, nil
}

func (r *postgresRepo) Decrement(ctx context.Context, demand domain.StockDemand) (*domain.InventoryLevel, error) {
	level, err := DecrementWithin(ctx, r.pool, demand)
	if err != nil {
		r.logger.Printf("inventory repo: decrement variant_id=%s qty=%d error=%v", demand.VariantID, demand.Quantity, err)
		return nil, err
	}
	return level, nil
}

func (r *postgresRepo) SetLevel(ctx context.Context, level domain.InventoryLevel) error {
	const q = `
INSERT INTO inventory_levels (variant_id, on_hand, committed)
VALUES ($1::uuid, $2, $3)
ON CONFLICT (variant_id) DO UPDATE
SET on_hand = EXCLUDED.on_hand,
    committed = EXCLUDED.committed
`
	if _, err := r.pool.Exec(ctx, q, level.VariantID, level.OnHand, level.Committed); err != nil {
		r.logger.Printf("inventory repo: set variant_id=%s error=%v", level.VariantID, err)
		return db.Classify("set inventory level", err)
	}
	return nil
}

// DecrementWithin takes demand.Quantity off on_hand only while enough unreserved stock
// remains. The check and the write are a single statement, so concurrent callers
// serialize on the row lock and cannot oversell.
func DecrementWithin(ctx context.Context, q Querier, demand domain.StockDemand) (*domain.InventoryLevel, error) {
	const update = `
UPDATE inventory_levels
SET on_hand = on_hand - $2
WHERE variant_id = $1::uuid AND on_hand - committed >= $2
RETURNING variant_id::text, on_hand, committed
`
	var l domain.InventoryLevel
	err := q.QueryRow(ctx, update, demand.VariantID, demand.Quantity).Scan(&l.VariantID, &l.OnHand, &l.Committed)
	if err == nil {
		return &l, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, db.Classify("decrement inventory", err)
	}

	current := domain.InventoryLevel{VariantID: demand.VariantID}
	err = q.QueryRow(ctx, `
SELECT on_hand, committed
FROM inventory_levels
WHERE variant_id = $1::uuid
`, demand.VariantID).Scan(&current.OnHand, &current.Committed)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, db.Classify("read inventory level", err)
	}
	return nil, &domain.InsufficientStockError{
		VariantID:   demand.VariantID,
		ProductName: demand.ProductName,
		SKU:         demand.SKU,
		Requested:   demand.Quantity,
		Available:   current.Available(),
	}
}

// DecrementAll applies DecrementWithin to every demand in variant id order, the lock
// order shared by all checkouts.
func DecrementAll(ctx context.Context, q Querier, demands []domain.StockDemand) error {
	ordered := make([]domain.StockDemand, len(demands))
	copy(ordered, demands)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].VariantID < ordered[j].VariantID })
	for _, d := range ordered {
		if _, err := DecrementWithin(ctx, q, d); err != nil {
			return err
		}
	}
	return nil
}
