package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/apperr"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/locks"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/payments"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/repository/repotest"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/service"
	"github.com/tm-acme-shop/acme-shop-marketplace-service/internal/settlement"
)

const (
	buyerID  = 1
	sellerID = 100
)

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, *models.PaymentEvent) error { return nil }

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func init() {
	gin.SetMode(gin.TestMode)
	logging.SetOutput(io.Discard)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	store, _ := repotest.NewStore(t)
	buyers := locks.NewKeyedMutex()
	sched := settlement.NewScheduler(settlement.Config{
		Delay:          time.Hour,
		Workers:        2,
		AcquireTimeout: 20 * time.Millisecond,
	}, logging.NewLogger("settlement-test"))
	t.Cleanup(func() { sched.Shutdown(context.Background()) })

	cfg := &config.Config{}
	h := NewHandlers(
		service.NewProductService(store, repository.NoopOrderCache{}),
		service.NewCartService(store, buyers),
		service.NewAddressService(store),
		service.NewCheckoutService(store, payments.NewStore(), sched, buyers,
			repository.NoopOrderCache{}, noopPublisher{}, metrics.New(), cfg.Payments),
		service.NewOrderService(store, repository.NoopOrderCache{}, false),
		store,
		cfg,
	)

	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.Identity())
	h.RegisterRoutes(api)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, userID int64, role models.Role, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		req.Header.Set(middleware.HeaderUserID, strconv.FormatInt(userID, 10))
	}
	if role != "" {
		req.Header.Set(middleware.HeaderUserRole, string(role))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestHealth(t *testing.T) {
	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Health(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "marketplace-service", resp["service"])
}

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		ping   error
		status int
	}{
		{"db up", nil, http.StatusOK},
		{"db down", errors.New("connection refused"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Handlers{
				db:     pingFunc(func(context.Context) error { return tt.ping }),
				logger: logging.NewLogger("handlers-test"),
			}

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

			h.Ready(c)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestLive(t *testing.T) {
	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Live(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleError(t *testing.T) {
	h := &Handlers{logger: logging.NewLogger("handlers-test")}

	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", apperr.ErrEmptyCart, http.StatusBadRequest, "cart is empty"},
		{"not found", apperr.ErrNotFound, http.StatusNotFound, "not found"},
		{"forbidden", apperr.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"busy", apperr.ErrSettlementBusy, http.StatusServiceUnavailable, "checkout is busy, retry later"},
		{"internal", errors.New("pq: password authentication failed"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			h.handleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.msg, decode(t, w)["error"])
		})
	}
}

func TestRequiresIdentity(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/cart", 0, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProductsSellerOnly(t *testing.T) {
	r := newTestRouter(t)
	body := gin.H{"name": "Lamp", "price": "12.50"}

	w := do(t, r, http.MethodPost, "/api/v1/products", buyerID, models.RoleBuyer, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/products", sellerID, models.RoleSeller, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "12.5", decode(t, w)["price"])

	w = do(t, r, http.MethodPatch, "/api/v1/products/abc/price", sellerID, models.RoleSeller, gin.H{"price": "1.00"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/products", buyerID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["products"], 1)
}

func TestCheckoutFlow(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/products", sellerID, models.RoleSeller, gin.H{"name": "Pen", "price": "0.10"})
	require.Equal(t, http.StatusCreated, w.Code)
	productID := int64(decode(t, w)["id"].(float64))

	w = do(t, r, http.MethodPost, "/api/v1/addresses", buyerID, "", gin.H{
		"full_name": "Ada", "phone": "5550100", "address": "1 Main St",
		"city": "Springfield", "state": "IL", "pincode": "62701",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	addressID := int64(decode(t, w)["id"].(float64))

	w = do(t, r, http.MethodPost, "/api/v1/checkout", buyerID, "", gin.H{"address_id": addressID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "cart", decode(t, w)["field"])

	for i := 0; i < 3; i++ {
		w = do(t, r, http.MethodPost, "/api/v1/cart/items", buyerID, "", gin.H{"product_id": productID})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/v1/cart/count", buyerID, "", nil)
	assert.Equal(t, float64(3), decode(t, w)["count"])

	w = do(t, r, http.MethodPost, "/api/v1/checkout", buyerID, "", gin.H{"address_id": addressID})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, "pending", resp["status"])
	assert.Equal(t, "0.3", resp["total_amount"])
	paymentID := resp["payment_id"].(string)

	w = do(t, r, http.MethodGet, "/api/v1/payments/"+paymentID, buyerID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", decode(t, w)["status"])

	w = do(t, r, http.MethodGet, "/api/v1/payments/"+paymentID, buyerID+1, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "invalid payment session", decode(t, w)["error"])

	w = do(t, r, http.MethodGet, "/api/v1/orders", buyerID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["orders"])
}

func TestSellerOrdersForbiddenForBuyers(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/seller/orders", buyerID, models.RoleBuyer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/seller/orders", sellerID, models.RoleSeller, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", decode(t, w)["earnings"])
}

func TestCheckoutForbiddenForSellers(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/products", sellerID, models.RoleSeller, gin.H{"name": "Pen", "price": "0.10"})
	require.Equal(t, http.StatusCreated, w.Code)
	productID := int64(decode(t, w)["id"].(float64))

	w = do(t, r, http.MethodPost, "/api/v1/addresses", sellerID, models.RoleSeller, gin.H{
		"full_name": "Sam", "phone": "5550101", "address": "2 Side St",
		"city": "Springfield", "state": "IL", "pincode": "62701",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	addressID := int64(decode(t, w)["id"].(float64))

	w = do(t, r, http.MethodPost, "/api/v1/cart/items", sellerID, models.RoleSeller, gin.H{"product_id": productID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/api/v1/checkout", sellerID, models.RoleSeller, gin.H{"address_id": addressID})
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
}

func TestUpdateProduct(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/products", sellerID, models.RoleSeller, gin.H{"name": "Lamp", "price": "12.50"})
	require.Equal(t, http.StatusCreated, w.Code)
	path := "/api/v1/products/" + strconv.FormatInt(int64(decode(t, w)["id"].(float64)), 10)

	body := gin.H{"name": "Desk Lamp", "description": "Brass", "price": "15.00", "image": "lamp.png", "category": "lighting"}

	w = do(t, r, http.MethodPut, path, buyerID, models.RoleBuyer, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodPut, path, sellerID+1, models.RoleSeller, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodPut, path, sellerID, models.RoleSeller, gin.H{"name": "", "price": "1.00"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name", decode(t, w)["field"])

	w = do(t, r, http.MethodPut, "/api/v1/products/999", sellerID, models.RoleSeller, body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPut, path, sellerID, models.RoleSeller, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, "Desk Lamp", resp["name"])
	assert.Equal(t, "Brass", resp["description"])
	assert.Equal(t, "15", resp["price"])
	assert.Equal(t, "lamp.png", resp["image"])
	assert.Equal(t, "lighting", resp["category"])
}
