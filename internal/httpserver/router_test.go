package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	"storefront/internal/service/checkout"
	discountsvc "storefront/internal/service/discount"
)

type stubCheckout struct {
	res *checkout.Result
	err error
	got checkout.Request
}

func (s *stubCheckout) Checkout(_ context.Context, req checkout.Request) (*checkout.Result, error) {
	s.got = req
	return s.res, s.err
}

type stubDiscounts struct {
	discount *domain.Discount
	list     []domain.Discount
	err      error
	input    discountsvc.Input
	code     string
}

func (s *stubDiscounts) Validate(_ context.Context, code string) (*domain.Discount, error) {
	s.code = code
	return s.discount, s.err
}

func (s *stubDiscounts) List(context.Context) ([]domain.Discount, error) {
	return s.list, s.err
}

func (s *stubDiscounts) Get(context.Context, string) (*domain.Discount, error) {
	return s.discount, s.err
}

func (s *stubDiscounts) Create(_ context.Context, in discountsvc.Input) (*domain.Discount, error) {
	s.input = in
	return s.discount, s.err
}

func (s *stubDiscounts) Update(_ context.Context, _ string, in discountsvc.Input) (*domain.Discount, error) {
	s.input = in
	return s.discount, s.err
}

func (s *stubDiscounts) Delete(context.Context, string) error {
	return s.err
}

type stubOrders struct {
	order *domain.Order
	list  []domain.Order
	err   error
}

func (s *stubOrders) List(context.Context) ([]domain.Order, error) {
	return s.list, s.err
}

func (s *stubOrders) Get(context.Context, string) (*domain.Order, error) {
	return s.order, s.err
}

func (s *stubOrders) UpdateShipping(context.Context, string, *string, *string) (*domain.Order, error) {
	return s.order, s.err
}

type testEnv struct {
	router    *gin.Engine
	checkout  *stubCheckout
	discounts *stubDiscounts
	orders    *stubOrders
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		checkout:  &stubCheckout{},
		discounts: &stubDiscounts{},
		orders:    &stubOrders{},
	}
	router, err := buildRouter(log.New(io.Discard, "", 0), nil, Deps{
		CheckoutSvc: env.checkout,
		DiscountSvc: env.discounts,
		OrderSvc:    env.orders,
	})
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}
	gin.SetMode(gin.TestMode)
	env.router = router
	return env
}

func (e *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

const checkoutBody = `{
	"cartItems": [{"id": "4f8c1a52-9a57-4d36-9d0f-1d1f6b1a0001", "quantity": 2, "price": 20, "productName": "Shirt", "sku": "SH-M"}],
	"userId": "user-1",
	"discountCode": "save10"
}`

func TestBuildRouter_RequiresServices(t *testing.T) {
	if _, err := buildRouter(log.New(io.Discard, "", 0), nil, Deps{}); err == nil {
		t.Fatalf("expected error without services")
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}

	rec = env.do(http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz without db: expected 503, got %d", rec.Code)
	}
}

func TestReady_ReportsEveryCheck(t *testing.T) {
	env := newTestEnv(t)
	router, err := buildRouter(log.New(io.Discard, "", 0), nil, Deps{
		CheckoutSvc: env.checkout,
		DiscountSvc: env.discounts,
		OrderSvc:    env.orders,
		ReadyChecks: map[string]ReadyCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		},
	})
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	checks := decodeBody(t, rec)["checks"].(map[string]any)
	if checks["redis"] != "connection refused" || checks["postgres"] != "db not configured" {
		t.Fatalf("unexpected checks %v", checks)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/healthz", "", map[string]string{requestIDHeader: "abc"})
	if got := rec.Header().Get(requestIDHeader); got != "abc" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}

func TestCheckout_Success(t *testing.T) {
	env := newTestEnv(t)
	env.checkout.res = &checkout.Result{
		OrderID:        "order-1",
		Subtotal:       decimal.NewFromInt(40),
		DiscountAmount: decimal.NewFromInt(4),
		Total:          decimal.NewFromInt(36),
	}

	rec := env.do(http.MethodPost, "/checkout", checkoutBody, map[string]string{idempotencyHeader: " key-1 "})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true || body["orderId"] != "order-1" {
		t.Fatalf("unexpected body %v", body)
	}
	if body["totalAmount"] != 36.0 {
		t.Fatalf("expected numeric total 36, got %v", body["totalAmount"])
	}

	got := env.checkout.got
	if got.IdempotencyKey != "key-1" {
		t.Fatalf("expected trimmed idempotency key, got %q", got.IdempotencyKey)
	}
	if got.DiscountCode != "save10" || got.UserID == nil || *got.UserID != "user-1" {
		t.Fatalf("unexpected request %+v", got)
	}
	if len(got.Lines) != 1 || got.Lines[0].Quantity != 2 || !got.Lines[0].UnitPrice.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected lines %+v", got.Lines)
	}
}

func TestCheckout_Replay(t *testing.T) {
	env := newTestEnv(t)
	env.checkout.res = &checkout.Result{
		OrderID:        "order-1",
		Order:          &domain.Order{ID: "order-1"},
		Subtotal:       decimal.NewFromInt(40),
		DiscountAmount: decimal.NewFromInt(4),
		Total:          decimal.NewFromInt(36),
		Replayed:       true,
	}
	body := decodeBody(t, env.do(http.MethodPost, "/checkout", checkoutBody, map[string]string{idempotencyHeader: "key-1"}))
	if body["replayed"] != true || body["totalAmount"] != 36.0 || body["discountAmount"] != 4.0 {
		t.Fatalf("expected replay with stored amounts, got %v", body)
	}

	env.checkout.res = &checkout.Result{OrderID: "order-1", Replayed: true}
	body = decodeBody(t, env.do(http.MethodPost, "/checkout", checkoutBody, map[string]string{idempotencyHeader: "key-1"}))
	if body["orderId"] != "order-1" || body["replayed"] != true {
		t.Fatalf("unexpected body %v", body)
	}
	for _, field := range []string{"subtotal", "discountAmount", "totalAmount"} {
		if _, ok := body[field]; ok {
			t.Fatalf("expected %s to be omitted, got %v", field, body)
		}
	}
}

func TestCheckout_InvalidBody(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/checkout", `{"cartItems": "nope"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCheckout_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{
			name:   "validation",
			err:    domain.NewValidationError("Cart is empty."),
			status: http.StatusBadRequest,
			msg:    "Cart is empty.",
		},
		{
			name:   "insufficient stock",
			err:    &domain.InsufficientStockError{VariantID: "v1", ProductName: "Mug", SKU: "MUG", Requested: 3, Available: 1},
			status: http.StatusBadRequest,
			msg:    "Not enough stock for Mug - MUG. Only 1 available.",
		},
		{
			name:   "expired discount",
			err:    &domain.DiscountNotActiveError{Code: "OLD5", Reason: domain.DiscountExpired},
			status: http.StatusBadRequest,
			msg:    "This discount code has expired.",
		},
		{
			name:   "unknown discount",
			err:    domain.ErrInvalidDiscount,
			status: http.StatusBadRequest,
			msg:    "Invalid discount applied.",
		},
		{
			name:   "in progress",
			err:    checkout.ErrInProgress,
			status: http.StatusConflict,
		},
		{
			name:   "transient",
			err:    &domain.TransientError{Op: "order.place", Err: context.DeadlineExceeded},
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "persistence",
			err:    &domain.PersistenceError{Op: "order.place", Err: errors.New("relation orders does not exist")},
			status: http.StatusInternalServerError,
			msg:    "Checkout failed.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.checkout.err = tc.err

			rec := env.do(http.MethodPost, "/checkout", checkoutBody, nil)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			body := decodeBody(t, rec)
			if tc.msg != "" && body["error"] != tc.msg {
				t.Fatalf("expected error %q, got %v", tc.msg, body["error"])
			}
			if strings.Contains(rec.Body.String(), "relation orders") {
				t.Fatalf("internal error leaked: %s", rec.Body.String())
			}
		})
	}
}

func TestCheckout_TransientSetsRetryAfter(t *testing.T) {
	env := newTestEnv(t)
	env.checkout.err = &domain.TransientError{Op: "order.place", Err: context.DeadlineExceeded}

	rec := env.do(http.MethodPost, "/checkout", checkoutBody, nil)
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestCheckout_StockDetails(t *testing.T) {
	env := newTestEnv(t)
	env.checkout.err = &domain.InsufficientStockError{VariantID: "v1", SKU: "MUG", Requested: 3, Available: 1}

	rec := env.do(http.MethodPost, "/checkout", checkoutBody, nil)
	details, ok := decodeBody(t, rec)["details"].(map[string]any)
	if !ok {
		t.Fatalf("expected details object, got %s", rec.Body.String())
	}
	if details["available"] != 1.0 || details["requested"] != 3.0 || details["variantId"] != "v1" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestValidateDiscount(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		env := newTestEnv(t)
		env.discounts.discount = &domain.Discount{
			ID:       "d1",
			Code:     "SAVE10",
			Value:    domain.Percentage{Percent: decimal.NewFromInt(10)},
			IsActive: true,
		}
		rec := env.do(http.MethodPost, "/validate-discount", `{"code": "save10"}`, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["code"] != "SAVE10" || body["type"] != "percentage" || body["value"] != 10.0 {
			t.Fatalf("unexpected body %v", body)
		}
		if env.discounts.code != "save10" {
			t.Fatalf("expected raw code forwarded, got %q", env.discounts.code)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		env := newTestEnv(t)
		env.discounts.err = domain.ErrInvalidDiscount
		rec := env.do(http.MethodPost, "/validate-discount", `{"code": "NOPE"}`, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("not yet active", func(t *testing.T) {
		env := newTestEnv(t)
		env.discounts.err = &domain.DiscountNotActiveError{Code: "SOON", Reason: domain.DiscountNotYetActive}
		rec := env.do(http.MethodPost, "/validate-discount", `{"code": "SOON"}`, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if got := decodeBody(t, rec)["error"]; got != "This discount code is not yet active." {
			t.Fatalf("unexpected error %v", got)
		}
	})
}

func TestCreateDiscount(t *testing.T) {
	env := newTestEnv(t)
	env.discounts.discount = &domain.Discount{
		ID:       "d2",
		Code:     "FLAT5",
		Value:    domain.Fixed{Amount: decimal.NewFromInt(5)},
		IsActive: true,
	}

	body := `{"code": "flat5", "type": "fixed", "value": 5, "start_date": "2026-01-01", "end_date": "", "is_active": true}`
	rec := env.do(http.MethodPost, "/discounts", body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	in := env.discounts.input
	if in.Code != "flat5" || in.Type != "fixed" || in.Value == nil || !in.Value.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected input %+v", in)
	}
	want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if in.StartDate == nil || !in.StartDate.Equal(want) {
		t.Fatalf("expected start date %v, got %v", want, in.StartDate)
	}
	if in.EndDate != nil {
		t.Fatalf("expected empty end date to be nil, got %v", in.EndDate)
	}
}

func TestCreateDiscount_Conflict(t *testing.T) {
	env := newTestEnv(t)
	env.discounts.err = domain.ErrConflict
	rec := env.do(http.MethodPost, "/discounts", `{"code": "SAVE10", "type": "percentage", "value": 10}`, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestCreateDiscount_BadDate(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/discounts", `{"code": "X", "type": "fixed", "value": 1, "start_date": "tomorrow"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDiscountNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.discounts.err = domain.ErrNotFound

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		body := ""
		if method == http.MethodPut {
			body = `{"code": "X", "type": "fixed", "value": 1}`
		}
		rec := env.do(method, "/discounts/missing", body, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", method, rec.Code)
		}
	}
}

func TestDeleteDiscount_Referenced(t *testing.T) {
	env := newTestEnv(t)
	env.discounts.err = domain.ErrConflict
	rec := env.do(http.MethodDelete, "/discounts/d1", "", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestListOrders_Shape(t *testing.T) {
	env := newTestEnv(t)
	env.orders.list = []domain.Order{{
		ID:          "o1",
		Subtotal:    decimal.NewFromInt(40),
		TotalAmount: decimal.RequireFromString("36.00"),
		Status:      domain.OrderPending,
		Items: []domain.OrderItem{{
			VariantID:       "v1",
			SKU:             "SH-M",
			ProductName:     "Shirt",
			Quantity:        2,
			PriceAtPurchase: decimal.NewFromInt(20),
		}},
		Discounts: []domain.AppliedDiscount{{
			DiscountID: "d1",
			Code:       "SAVE10",
			Kind:       domain.DiscountPercentage,
			Value:      decimal.NewFromInt(10),
		}},
	}}

	rec := env.do(http.MethodGet, "/orders", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var raw []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("expected 1 order, got %d", len(raw))
	}
	if raw[0]["total_amount"] != 36.0 || raw[0]["status"] != "pending" {
		t.Fatalf("unexpected order %v", raw[0])
	}
	items := raw[0]["order_items"].([]any)
	variant := items[0].(map[string]any)["product_variants"].(map[string]any)
	if variant["sku"] != "SH-M" || variant["products"].(map[string]any)["name"] != "Shirt" {
		t.Fatalf("unexpected variant %v", variant)
	}
	discounts := raw[0]["order_discounts"].([]any)
	if discounts[0].(map[string]any)["discounts"].(map[string]any)["code"] != "SAVE10" {
		t.Fatalf("unexpected discounts %v", discounts)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.orders.err = domain.ErrNotFound
	rec := env.do(http.MethodGet, "/orders/missing", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUpdateOrderShipping(t *testing.T) {
	carrier := "UPS"
	env := newTestEnv(t)
	env.orders.order = &domain.Order{ID: "o1", Status: domain.OrderShipped, ShippingCarrier: &carrier}

	rec := env.do(http.MethodPut, "/orders/o1", `{"shipping_carrier": "UPS"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	order := decodeBody(t, rec)["order"].(map[string]any)
	if order["shipping_carrier"] != "UPS" {
		t.Fatalf("unexpected order %v", order)
	}

	env.orders.err = domain.NewValidationError("Shipping carrier or tracking number is required.")
	rec = env.do(http.MethodPut, "/orders/o1", `{}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodGet, "/healthz", "", nil)
	rec := env.do(http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "storefront_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}
