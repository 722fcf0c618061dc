package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toadvault/internal/broker"
	"toadvault/internal/checkout"
	"toadvault/internal/inventory"
	"toadvault/internal/logger"
	"toadvault/internal/orders"
	"toadvault/internal/payments"
	"toadvault/internal/products"
	"toadvault/internal/saga"
	"toadvault/internal/saga/sagalog"
	"toadvault/internal/users"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.Nop()
	tr := broker.NewLocal(2 * time.Second)
	r := broker.NewRouter(tr, nil, log)

	users.RegisterHandlers(r, users.NewService(users.NewMemoryStore(), log, users.Options{JWTSecret: testSecret, BcryptCost: 4}))
	inventory.RegisterHandlers(r, inventory.NewService(inventory.NewMemoryStore(), log))
	products.RegisterHandlers(r, products.NewService(products.NewMemoryStore(), log))
	orders.RegisterHandlers(r, orders.NewEngine(orders.NewMemoryRepository(), log))
	payments.RegisterHandlers(r, payments.NewService(payments.NewMemoryRepository(), log))

	coord := checkout.NewCoordinator(tr, saga.NewOrchestrator(log, sagalog.NewMemoryRepository()), log)
	return NewRouter(Deps{Transport: tr, Checkout: coord, Log: log, JWTSecret: testSecret, ServiceName: "gateway"})
}

type apiResponse struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Code       string          `json:"code"`
	Token      string          `json:"token"`
	CheckoutID string          `json:"checkoutId"`
	Change     decimal.Decimal `json:"change"`
	User       struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	Item struct {
		Barcode string `json:"barcode"`
		Stock   int    `json:"stock"`
	} `json:"item"`
	Items []struct {
		Barcode string `json:"barcode"`
		Stock   int    `json:"stock"`
	} `json:"items"`
	Order struct {
		Total decimal.Decimal `json:"total"`
		Items []struct {
			Barcode  string `json:"barcode"`
			Quantity int    `json:"quantity"`
		} `json:"items"`
	} `json:"order"`
	Payments []struct {
		CheckoutID string          `json:"checkoutId"`
		Amount     decimal.Decimal `json:"amount"`
	} `json:"payments"`
	Pagination struct {
		Page  int64 `json:"page"`
		Limit int64 `json:"limit"`
		Total int64 `json:"total"`
	} `json:"pagination"`
}

func do(t *testing.T, srv http.Handler, method, path, token string, body any) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var out apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

// signIn registers and logs in a fresh user, returning its token and id.
func signIn(t *testing.T, srv http.Handler, email string) (string, string) {
	t.Helper()
	status, res := do(t, srv, http.MethodPost, "/users/register", "", gin.H{"name": "Toad", "email": email, "password": "hunter22!"})
	require.Equal(t, http.StatusCreated, status, res.Message)

	status, res = do(t, srv, http.MethodPost, "/users/login", "", gin.H{"email": email, "password": "hunter22!"})
	require.Equal(t, http.StatusOK, status, res.Message)
	require.NotEmpty(t, res.Token)
	return res.Token, res.User.ID
}

func TestCheckoutFlow(t *testing.T) {
	srv := newTestServer(t)
	token, userID := signIn(t, srv, "toad@example.com")

	status, res := do(t, srv, http.MethodPost, "/inventory/new", token, gin.H{"barcode": "100", "name": "Fly", "price": 2.5, "stock": 3})
	require.Equal(t, http.StatusCreated, status, res.Message)

	status, res = do(t, srv, http.MethodGet, "/order/100", token, nil)
	require.Equal(t, http.StatusCreated, status, res.Message)
	assert.Equal(t, "Order created successfully", res.Message)

	status, res = do(t, srv, http.MethodGet, "/order/100", token, nil)
	require.Equal(t, http.StatusOK, status, res.Message)
	assert.Equal(t, "Order updated successfully", res.Message)
	require.Len(t, res.Order.Items, 1)
	assert.Equal(t, 2, res.Order.Items[0].Quantity)
	assert.True(t, res.Order.Total.Equal(decimal.NewFromInt(5)))

	status, res = do(t, srv, http.MethodPost, "/payment", token, gin.H{"cash": 10})
	require.Equal(t, http.StatusOK, status, res.Message)
	assert.Equal(t, "Payment success", res.Message)
	assert.NotEmpty(t, res.CheckoutID)
	assert.True(t, res.Change.Equal(decimal.NewFromInt(5)), res.Change.String())

	status, res = do(t, srv, http.MethodGet, "/order", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "order_not_found", res.Code)

	status, res = do(t, srv, http.MethodGet, "/inventory", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 1, res.Items[0].Stock)

	status, res = do(t, srv, http.MethodGet, "/payment/history", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, res.Payments, 1)
	assert.True(t, res.Payments[0].Amount.Equal(decimal.NewFromInt(5)))

	status, res = do(t, srv, http.MethodGet, "/inventory/item/"+userID+"/100", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, res.Item.Stock)
}

func TestCheckoutRejectsShortCash(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signIn(t, srv, "short@example.com")

	status, _ := do(t, srv, http.MethodPost, "/inventory/new", token, gin.H{"barcode": "100", "name": "Fly", "price": 2.5, "stock": 3})
	require.Equal(t, http.StatusCreated, status)
	status, _ = do(t, srv, http.MethodGet, "/order/100", token, nil)
	require.Equal(t, http.StatusCreated, status)

	status, res := do(t, srv, http.MethodPost, "/payment", token, gin.H{"cash": 1})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "insufficient_cash", res.Code)

	status, res = do(t, srv, http.MethodPost, "/payment", token, gin.H{"cash": "ten"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_cash", res.Code)

	// The order is untouched and stock was never taken.
	status, res = do(t, srv, http.MethodGet, "/order", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, res.Order.Items, 1)

	status, res = do(t, srv, http.MethodGet, "/inventory", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 3, res.Items[0].Stock)
}

func TestOrderRemoveAndCancel(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signIn(t, srv, "cart@example.com")

	for _, bc := range []string{"100", "200"} {
		status, _ := do(t, srv, http.MethodPost, "/inventory/new", token, gin.H{"barcode": bc, "name": "Item " + bc, "price": 1, "stock": 5})
		require.Equal(t, http.StatusCreated, status)
		status, _ = do(t, srv, http.MethodGet, "/order/"+bc, token, nil)
		require.Contains(t, []int{http.StatusCreated, http.StatusOK}, status)
	}

	status, res := do(t, srv, http.MethodPut, "/order/remove/100", token, nil)
	require.Equal(t, http.StatusOK, status, res.Message)
	require.Len(t, res.Order.Items, 1)
	assert.Equal(t, "200", res.Order.Items[0].Barcode)

	status, res = do(t, srv, http.MethodPut, "/order/remove/999", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "item_not_in_order", res.Code)

	status, _ = do(t, srv, http.MethodDelete, "/order", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, res = do(t, srv, http.MethodGet, "/order", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "order_not_found", res.Code)
}

func TestInventoryValidationAndUpdate(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signIn(t, srv, "stock@example.com")

	status, res := do(t, srv, http.MethodPost, "/inventory/new", token, gin.H{"barcode": "ab12", "name": "Fly", "price": 1, "stock": 1})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_body", res.Code)

	status, _ = do(t, srv, http.MethodPost, "/inventory/new", token, gin.H{"barcode": "100", "name": "Fly", "price": 1, "stock": 1})
	require.Equal(t, http.StatusCreated, status)

	status, res = do(t, srv, http.MethodPut, "/inventory/item/100", token, gin.H{"stock": 9})
	require.Equal(t, http.StatusOK, status, res.Message)
	assert.Equal(t, 9, res.Item.Stock)

	status, res = do(t, srv, http.MethodGet, "/inventory/item/nobody/100", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "item_not_found", res.Code)
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/order", "/inventory", "/payment/history"} {
		status, res := do(t, srv, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.Equal(t, "unauthorized", res.Code, path)
	}

	status, _ := do(t, srv, http.MethodGet, "/order", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := newTestServer(t)
	signIn(t, srv, "login@example.com")

	status, res := do(t, srv, http.MethodPost, "/users/login", "", gin.H{"email": "login@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, res.Success)
}

func TestProducts(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signIn(t, srv, "catalog@example.com")

	status, res := do(t, srv, http.MethodPost, "/products", token, gin.H{"barcode": "4006381333931", "name": "Pond Net"})
	require.Equal(t, http.StatusCreated, status, res.Message)

	status, res = do(t, srv, http.MethodPost, "/products", token, gin.H{"barcode": "4006381333931", "name": "Pond Net"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "product_exists", res.Code)

	status, res = do(t, srv, http.MethodGet, "/products?page=1&limit=10", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), res.Pagination.Total)
	assert.Equal(t, int64(10), res.Pagination.Limit)

	status, res = do(t, srv, http.MethodGet, "/products/4006381333931", "", nil)
	assert.Equal(t, http.StatusOK, status, res.Message)

	status, res = do(t, srv, http.MethodGet, "/products?limit=500", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_pagination", res.Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"gateway"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ConfigureBinding()

	query := func(raw string) (int64, int64, error) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/products?"+raw, nil)
		return pagination(c)
	}

	page, limit, err := query("")
	require.NoError(t, err)
	assert.Equal(t, int64(1), page)
	assert.Equal(t, int64(20), limit)

	page, limit, err = query("page=3&limit=50")
	require.NoError(t, err)
	assert.Equal(t, int64(3), page)
	assert.Equal(t, int64(50), limit)

	for _, raw := range []string{"page=x", "limit=-1", "limit=101", "page=-2"} {
		_, _, err := query(raw)
		assert.ErrorIs(t, err, errInvalidPagination, raw)
	}
}
