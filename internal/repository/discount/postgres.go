package discount

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

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

const discountColumns = `id::text, code, type, value::text, start_date, end_date, is_active, created_at`

func (r *postgresRepo) List(ctx context.Context) ([]domain.Discount, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+discountColumns+` FROM discounts ORDER BY created_at DESC`)
	if err != nil {
		r.logger.Printf("discount repo: list error=%v", err)
		return nil, db.Classify("list discounts", err)
	}
	defer rows.Close()

	var result []domain.Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, db.Classify("scan discount", err)
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify("list discounts", err)
	}
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Discount, error) {
	id, ok := db.UUID(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.getOne(ctx, "get discount", `SELECT `+discountColumns+` FROM discounts WHERE id = $1::uuid`, id)
}

func (r *postgresRepo) GetByCode(ctx context.Context, code string) (*domain.Discount, error) {
	return r.getOne(ctx, "get discount by code", `SELECT `+discountColumns+` FROM discounts WHERE code = $1`, domain.NormalizeCode(code))
}

func (r *postgresRepo) Create(ctx context.Context, d domain.Discount) (*domain.Discount, error) {
	const q = `
INSERT INTO discounts (code, type, value, start_date, end_date, is_active)
VALUES ($1, $2, $3::numeric, $4, $5, $6)
RETURNING ` + discountColumns
	out, err := scanDiscount(r.pool.QueryRow(ctx, q,
		domain.NormalizeCode(d.Code),
		string(d.Value.Kind()),
		d.Value.Raw().String(),
		d.StartDate,
		d.EndDate,
		d.IsActive,
	))
	if err != nil {
		r.logger.Printf("discount repo: create code=%s error=%v", d.Code, err)
		if db.IsCheckViolation(err) {
			return nil, domain.NewValidationError("Discount %s violates a value constraint.", d.Code)
		}
		return nil, db.Classify("create discount", err)
	}
	r.logger.Printf("discount repo: created code=%s id=%s", out.Code, out.ID)
	return out, nil
}

func (r *postgresRepo) Update(ctx context.Context, d domain.Discount) (*domain.Discount, error) {
	const q = `
UPDATE discounts
SET code = $2,
    type = $3,
    value = $4::numeric,
    start_date = $5,
    end_date = $6,
    is_active = $7
WHERE id = $1::uuid
RETURNING ` + discountColumns
	id, ok := db.UUID(d.ID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	out, err := scanDiscount(r.pool.QueryRow(ctx, q,
		id,
		domain.NormalizeCode(d.Code),
		string(d.Value.Kind()),
		d.Value.Raw().String(),
		d.StartDate,
		d.EndDate,
		d.IsActive,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("discount repo: update id=%s error=%v", d.ID, err)
		if db.IsCheckViolation(err) {
			return nil, domain.NewValidationError("Discount %s violates a value constraint.", d.Code)
		}
		return nil, db.Classify("update discount", err)
	}
	return out, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	id, ok := db.UUID(id)
	if !ok {
		return domain.ErrNotFound
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM discounts WHERE id = $1::uuid`, id)
	if err != nil {
		r.logger.Printf("discount repo: delete id=%s error=%v", id, err)
		return db.Classify("delete discount", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) getOne(ctx context.Context, op, q string, arg string) (*domain.Discount, error) {
	d, err := scanDiscount(r.pool.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("discount repo: %s key=%s error=%v", op, arg, err)
		return nil, db.Classify(op, err)
	}
	return d, nil
}

func scanDiscount(row pgx.Row) (*domain.Discount, error) {
	var (
		d     domain.Discount
		kind  string
		value string
		start *time.Time
		end   *time.Time
	)
	if err := row.Scan(&d.ID, &d.Code, &kind, &value, &start, &end, &d.IsActive, &d.CreatedAt); err != nil {
		return nil, err
	}
	amount, err := domain.ParseMoney(value)
	if err != nil {
		return nil, err
	}
	d.Value, err = domain.NewDiscountValue(kind, amount)
	if err != nil {
		return nil, err
	}
	d.StartDate = start
	d.EndDate = end
	return &d, nil
}
