package order

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
	"storefront/internal/repository/inventory"
)

type postgresRepo struct {
	pool        *pgxpool.Pool
	logger      *log.Logger
	maxAttempts int
}

// NewPostgres builds the order repository. maxAttempts bounds how often a checkout
// transaction is re-run after a failure that is known to have left no effects.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger, maxAttempts int) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &postgresRepo{pool: pool, logger: logger, maxAttempts: maxAttempts}
}

func (r *postgresRepo) Place(ctx context.Context, in PlaceInput) (*domain.Order, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		order, err := r.placeOnce(ctx, in)
		if err == nil {
			return order, nil
		}
		lastErr = err
		if domain.IsBusinessError(err) || !db.SafeToRetry(err) || ctx.Err() != nil {
			break
		}
		r.logger.Printf("order repo: place attempt=%d retrying error=%v", attempt, err)
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(attempt*25) * time.Millisecond):
		}
	}

	if domain.IsBusinessError(lastErr) {
		return nil, lastErr
	}
	r.logger.Printf("order repo: place failed subtotal=%s total=%s items=%d error=%v", in.Subtotal, in.TotalAmount, len(in.Items), lastErr)
	if domain.IsTransient(lastErr) || db.IsTransient(lastErr) {
		return nil, &domain.TransientError{Op: "place order", Err: lastErr}
	}
	return nil, &domain.PersistenceError{Op: "place order", Err: lastErr}
}

func (r *postgresRepo) placeOnce(ctx context.Context, in PlaceInput) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := inventory.DecrementAll(ctx, tx, in.Decrements); err != nil {
		return nil, err
	}

	order := domain.Order{
		UserID:            in.UserID,
		ShippingAddressID: in.ShippingAddressID,
		Subtotal:          in.Subtotal,
		TotalAmount:       in.TotalAmount,
		Status:            in.Status,
	}
	err = tx.QueryRow(ctx, `
INSERT INTO orders (user_id, shipping_address_id, subtotal, total_amount, status)
VALUES ($1, $2, $3::numeric, $4::numeric, $5)
RETURNING id::text, created_at
`, in.UserID, in.ShippingAddressID, in.Subtotal.String(), in.TotalAmount.String(), string(in.Status)).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, err
	}

	batch := &pgx.Batch{}
	for i, item := range in.Items {
		batch.Queue(`
INSERT INTO order_items (order_id, variant_id, quantity, price_at_purchase, position)
VALUES ($1::uuid, $2::uuid, $3, $4::numeric, $5)
`, order.ID, item.VariantID, item.Quantity, item.PriceAtPurchase.String(), i)
		item.OrderID = order.ID
		order.Items = append(order.Items, item)
	}
	if in.DiscountID != nil {
		batch.Queue(`
INSERT INTO order_discounts (order_id, discount_id)
VALUES ($1::uuid, $2::uuid)
`, order.ID, *in.DiscountID)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Printf("order repo: placed id=%s items=%d total=%s", order.ID, len(order.Items), order.TotalAmount)
	return &order, nil
}

const orderColumns = `
id::text, user_id, shipping_address_id, subtotal::text, total_amount::text, status,
shipping_carrier, tracking_number, created_at
FROM orders
`

func (r *postgresRepo) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` ORDER BY created_at DESC`)
	if err != nil {
		r.logger.Printf("order repo: list error=%v", err)
		return nil, db.Classify("list orders", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, db.Classify("list orders", err)
	}
	if err := r.attachDetails(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	id, ok := db.UUID(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` WHERE id = $1::uuid`, id)
	if err != nil {
		return nil, db.Classify("get order", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, db.Classify("get order", err)
	}
	if len(orders) == 0 {
		return nil, domain.ErrNotFound
	}
	if err := r.attachDetails(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *postgresRepo) UpdateShipping(ctx context.Context, id string, upd ShippingUpdate) (*domain.Order, error) {
	const q = `
UPDATE orders
SET shipping_carrier = CASE WHEN $2 THEN NULLIF($3, '') ELSE shipping_carrier END,
    tracking_number = CASE WHEN $4 THEN NULLIF($5, '') ELSE tracking_number END
WHERE id = $1::uuid
RETURNING id::text
`
	id, ok := db.UUID(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	var carrier, tracking string
	if upd.Carrier != nil {
		carrier = *upd.Carrier
	}
	if upd.TrackingNumber != nil {
		tracking = *upd.TrackingNumber
	}
	var updatedID string
	err := r.pool.QueryRow(ctx, q, id, upd.Carrier != nil, carrier, upd.TrackingNumber != nil, tracking).Scan(&updatedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: update shipping id=%s error=%v", id, err)
		return nil, db.Classify("update order shipping", err)
	}
	return r.GetByID(ctx, updatedID)
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()
	var orders []domain.Order
	for rows.Next() {
		var (
			o               domain.Order
			subtotal, total string
			status          string
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.ShippingAddressID, &subtotal, &total, &status,
			&o.ShippingCarrier, &o.TrackingNumber, &o.CreatedAt); err != nil {
			return nil, err
		}
		var err error
		if o.Subtotal, err = domain.ParseMoney(subtotal); err != nil {
			return nil, err
		}
		if o.TotalAmount, err = domain.ParseMoney(total); err != nil {
			return nil, err
		}
		o.Status = domain.OrderStatus(status)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *postgresRepo) attachDetails(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	itemRows, err := r.pool.Query(ctx, `
SELECT oi.order_id::text, oi.variant_id::text, v.sku, p.name, COALESCE(v.color, ''), COALESCE(v.size, ''),
       oi.quantity, oi.price_at_purchase::text
FROM order_items oi
JOIN product_variants v ON v.id = oi.variant_id
JOIN products p ON p.id = v.product_id
WHERE oi.order_id = ANY($1::uuid[])
ORDER BY oi.order_id, oi.position
`, ids)
	if err != nil {
		return db.Classify("list order items", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var (
			item  domain.OrderItem
			price string
		)
		if err := itemRows.Scan(&item.OrderID, &item.VariantID, &item.SKU, &item.ProductName, &item.Color, &item.Size,
			&item.Quantity, &price); err != nil {
			return db.Classify("scan order item", err)
		}
		if item.PriceAtPurchase, err = domain.ParseMoney(price); err != nil {
			return err
		}
		o := &orders[index[item.OrderID]]
		o.Items = append(o.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return db.Classify("list order items", err)
	}

	discountRows, err := r.pool.Query(ctx, `
SELECT od.order_id::text, d.id::text, d.code, d.type, d.value::text
FROM order_discounts od
JOIN discounts d ON d.id = od.discount_id
WHERE od.order_id = ANY($1::uuid[])
`, ids)
	if err != nil {
		return db.Classify("list order discounts", err)
	}
	defer discountRows.Close()
	for discountRows.Next() {
		var (
			orderID, kind, value string
			applied              domain.AppliedDiscount
		)
		if err := discountRows.Scan(&orderID, &applied.DiscountID, &applied.Code, &kind, &value); err != nil {
			return db.Classify("scan order discount", err)
		}
		applied.Kind = domain.DiscountKind(kind)
		if applied.Value, err = domain.ParseMoney(value); err != nil {
			return err
		}
		o := &orders[index[orderID]]
		o.Discounts = append(o.Discounts, applied)
	}
	return db.Classify("list order discounts", discountRows.Err())
}
