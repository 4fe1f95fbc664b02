package checkout

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"storefront/internal/domain"
	orderrepo "storefront/internal/repository/order"
)

// ErrInProgress is returned when another request holds the same idempotency key.
var ErrInProgress = errors.New("checkout with this idempotency key is already in progress")

const idempotencyScope = "checkout"

// maxQuantity is the largest per-variant quantity the inventory columns can hold.
const maxQuantity = math.MaxInt32

type variantRepo interface {
	GetVariants(ctx context.Context, ids []string) (map[string]domain.Variant, error)
}

type inventoryRepo interface {
	inventoryReader
	inventoryWriter
}

type orderRepo interface {
	Place(ctx context.Context, in orderrepo.PlaceInput) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
}

type idempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

// Options tune a Service. Zero values select the defaults.
type Options struct {
	InitialStatus  domain.OrderStatus
	DeferInventory bool
	TxTimeout      time.Duration
	Now            func() time.Time
	Logger         *log.Logger
	Idempotency    idempotencyStore
}

type Service struct {
	variants  variantRepo
	orders    orderRepo
	checker   *AvailabilityChecker
	validator *DiscountValidator
	applier   *DecrementApplier
	idem      idempotencyStore
	status    domain.OrderStatus
	deferInv  bool
	txTimeout time.Duration
	logger    *log.Logger
}

func New(variants variantRepo, inventory inventoryRepo, discounts discountReader, orders orderRepo, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	status := opts.InitialStatus
	if !status.IsInitial() {
		status = domain.OrderPaid
	}
	txTimeout := opts.TxTimeout
	if txTimeout <= 0 {
		txTimeout = 5 * time.Second
	}
	return &Service{
		variants:  variants,
		orders:    orders,
		checker:   NewAvailabilityChecker(inventory),
		validator: NewDiscountValidator(discounts, opts.Now),
		applier:   NewDecrementApplier(inventory, logger),
		idem:      opts.Idempotency,
		status:    status,
		deferInv:  opts.DeferInventory,
		txTimeout: txTimeout,
		logger:    logger,
	}
}

// Request is one checkout submission. The cart travels with the request.
type Request struct {
	Lines          []domain.CartLine
	UserID         *string
	AddressID      *string
	DiscountID     string
	DiscountCode   string
	IdempotencyKey string
}

type Result struct {
	OrderID        string
	Order          *domain.Order
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	// Replayed is set when the idempotency key matched an earlier successful checkout.
	Replayed bool
}

// Quote is a fully validated, priced checkout that has not been written yet.
type Quote struct {
	Demands        []domain.StockDemand
	Items          []domain.OrderItem
	Discount       *domain.Discount
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	lines, err := normalizeLines(req.Lines)
	if err != nil {
		checkoutsTotal.WithLabelValues("validation").Inc()
		return nil, err
	}
	req.Lines = lines

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" && s.idem != nil {
		if orderID, found, err := s.idem.Recall(ctx, idempotencyScope, key); err != nil {
			s.logger.Printf("checkout: idempotency recall key=%s error=%v", key, err)
		} else if found {
			checkoutsTotal.WithLabelValues("replayed").Inc()
			return s.replay(ctx, orderID), nil
		}
		locked, err := s.idem.TryLock(ctx, idempotencyScope, key)
		if err != nil {
			s.logger.Printf("checkout: idempotency lock key=%s error=%v", key, err)
		} else if !locked {
			checkoutsTotal.WithLabelValues("in_progress").Inc()
			return nil, ErrInProgress
		}
	}

	res, err := s.checkout(ctx, req)
	if key != "" && s.idem != nil {
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err != nil {
			if relErr := s.idem.Release(storeCtx, idempotencyScope, key); relErr != nil {
				s.logger.Printf("checkout: idempotency release key=%s error=%v", key, relErr)
			}
		} else if remErr := s.idem.Remember(storeCtx, idempotencyScope, key, res.OrderID); remErr != nil {
			s.logger.Printf("checkout: idempotency remember key=%s order_id=%s error=%v", key, res.OrderID, remErr)
		}
	}
	checkoutsTotal.WithLabelValues(outcome(err)).Inc()
	return res, err
}

// replay rebuilds the result of an earlier checkout. When the order cannot be read back
// only the id is returned and Order stays nil.
func (s *Service) replay(ctx context.Context, orderID string) *Result {
	res := &Result{OrderID: orderID, Replayed: true}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Printf("checkout: idempotency replay order_id=%s load error=%v", orderID, err)
		return res
	}
	res.Order = order
	res.Subtotal = order.Subtotal
	res.Total = order.TotalAmount
	res.DiscountAmount = order.Subtotal.Sub(order.TotalAmount)
	return res
}

func (s *Service) checkout(ctx context.Context, req Request) (*Result, error) {
	quote, err := s.Quote(ctx, req)
	if err != nil {
		return nil, err
	}

	order, err := s.persist(ctx, req, quote)
	if err != nil {
		return nil, err
	}

	if s.deferInv {
		applyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.txTimeout)
		s.applier.Apply(applyCtx, order.ID, quote.Demands)
		cancel()
	}

	s.logger.Printf("checkout: order_id=%s subtotal=%s discount=%s total=%s", order.ID, quote.Subtotal, quote.DiscountAmount, quote.Total)
	return &Result{
		OrderID:        order.ID,
		Order:          order,
		Subtotal:       quote.Subtotal,
		DiscountAmount: quote.DiscountAmount,
		Total:          quote.Total,
	}, nil
}

// Quote resolves the cart against server-side variants, then checks stock and the
// discount concurrently and prices the cart.
func (s *Service) Quote(ctx context.Context, req Request) (*Quote, error) {
	demands := AggregateDemands(req.Lines)
	ids := make([]string, len(demands))
	for i, d := range demands {
		ids[i] = d.VariantID
	}

	variants, err := s.variants.GetVariants(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range demands {
		v, ok := variants[demands[i].VariantID]
		if !ok {
			return nil, domain.NewValidationError("Unknown product variant %s.", demands[i].VariantID)
		}
		demands[i].ProductName = v.ProductName
		demands[i].SKU = v.SKU
	}

	var discount *domain.Discount
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.checker.Check(gctx, demands)
	})
	g.Go(func() error {
		var err error
		discount, err = s.validator.Resolve(gctx, req.DiscountID, req.DiscountCode)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(req.Lines))
	for _, line := range req.Lines {
		v := variants[line.VariantID]
		if !line.UnitPrice.IsZero() && !line.UnitPrice.Equal(v.Price) {
			s.logger.Printf("checkout: client price mismatch variant_id=%s client=%s server=%s", v.ID, line.UnitPrice, v.Price)
		}
		items = append(items, domain.OrderItem{
			VariantID:       v.ID,
			SKU:             v.SKU,
			ProductName:     v.ProductName,
			Color:           v.Color,
			Size:            v.Size,
			Quantity:        line.Quantity,
			PriceAtPurchase: v.Price,
		})
	}

	subtotal := Subtotal(items)
	amount := DiscountAmount(discount, subtotal)
	return &Quote{
		Demands:        demands,
		Items:          items,
		Discount:       discount,
		Subtotal:       subtotal,
		DiscountAmount: amount,
		Total:          Total(subtotal, amount),
	}, nil
}

// persist writes the order on a context detached from the caller. The transaction
// commits or rolls back as a whole regardless of the client.
func (s *Service) persist(ctx context.Context, req Request, q *Quote) (*domain.Order, error) {
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.txTimeout)
	defer cancel()

	in := orderrepo.PlaceInput{
		UserID:            req.UserID,
		ShippingAddressID: req.AddressID,
		Subtotal:          q.Subtotal,
		TotalAmount:       q.Total,
		Status:            s.status,
		Items:             q.Items,
	}
	if q.Discount != nil {
		in.DiscountID = &q.Discount.ID
	}
	if !s.deferInv {
		in.Decrements = q.Demands
	}
	return s.orders.Place(txCtx, in)
}

func normalizeLines(lines []domain.CartLine) ([]domain.CartLine, error) {
	if len(lines) == 0 {
		return nil, domain.NewValidationError("Cart is empty.")
	}
	out := make([]domain.CartLine, len(lines))
	totals := make(map[string]int64, len(lines))
	for i, line := range lines {
		raw := strings.TrimSpace(line.VariantID)
		if raw == "" {
			return nil, domain.NewValidationError("Cart item %d is missing a variant id.", i+1)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, domain.NewValidationError("Cart item %d has an invalid variant id.", i+1)
		}
		if line.Quantity <= 0 {
			return nil, domain.NewValidationError("Cart item %d must have a positive quantity.", i+1)
		}
		if line.Quantity > maxQuantity {
			return nil, domain.NewValidationError("Cart item %d quantity is too large.", i+1)
		}
		line.VariantID = id.String()
		totals[line.VariantID] += int64(line.Quantity)
		if totals[line.VariantID] > maxQuantity {
			return nil, domain.NewValidationError("Total quantity for variant %s is too large.", line.VariantID)
		}
		out[i] = line
	}
	return out, nil
}

func outcome(err error) string {
	var (
		stock      *domain.InsufficientStockError
		inactive   *domain.DiscountNotActiveError
		validation *domain.ValidationError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &stock):
		return "insufficient_stock"
	case errors.As(err, &inactive):
		return "discount_not_active"
	case errors.Is(err, domain.ErrInvalidDiscount):
		return "invalid_discount"
	case errors.As(err, &validation):
		return "validation"
	case domain.IsTransient(err):
		return "transient"
	default:
		return "persistence"
	}
}
