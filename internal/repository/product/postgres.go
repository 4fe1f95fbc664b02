package product

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/db"
	"storefront/internal/domain"
)

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

const variantColumns = `
v.id::text, v.product_id::text, p.name, v.sku, v.price::text, COALESCE(v.color, ''), COALESCE(v.size, '')
FROM product_variants v
JOIN products p ON p.id = v.product_id
`

func (r *postgresRepo) GetVariants(ctx context.Context, ids []string) (map[string]domain.Variant, error) {
	result := make(map[string]domain.Variant, len(ids))
	ids = db.UUIDs(ids)
	if len(ids) == 0 {
		return result, nil
	}
	q := `SELECT ` + variantColumns + `WHERE v.id = ANY($1::uuid[])`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		r.logger.Printf("product repo: get variants count=%d error=%v", len(ids), err)
		return nil, db.Classify("get variants", err)
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, db.Classify("scan variant", err)
		}
		result[v.ID] = v
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: get variants rows error=%v", err)
		return nil, db.Classify("get variants", err)
	}
	return result, nil
}

func (r *postgresRepo) GetVariantBySKU(ctx context.Context, sku string) (*domain.Variant, error) {
	q := `SELECT ` + variantColumns + `WHERE v.sku = $1`
	v, err := scanVariant(r.pool.QueryRow(ctx, q, sku))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("product repo: get sku=%s not found", sku)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get sku=%s error=%v", sku, err)
		return nil, db.Classify("get variant by sku", err)
	}
	return &v, nil
}

func scanVariant(row pgx.Row) (domain.Variant, error) {
	var (
		v     domain.Variant
		price string
	)
	if err := row.Scan(&v.ID, &v.ProductID, &v.ProductName, &v.SKU, &price, &v.Color, &v.Size); err != nil {
		return domain.Variant{}, err
	}
	parsed, err := domain.ParseMoney(price)
	if err != nil {
		return domain.Variant{}, err
	}
	v.Price = parsed
	return v, nil
}
