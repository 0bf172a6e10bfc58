package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminToken = "s3cret-admin"

type testEnv struct {
	router   *gin.Engine
	repo     *store.MemoryStore
	user     int64
	productA *models.Product
	productB *models.Product
}

func setupTestRouter(t *testing.T, checks ...ReadinessCheck) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	repo := store.NewMemoryStore()

	customer := &models.Customer{Username: "yaw", Email: "yaw@example.com"}
	require.NoError(t, repo.CreateCustomer(ctx, customer))
	category := &models.Category{Name: "Home"}
	require.NoError(t, repo.CreateCategory(ctx, category))
	productA := &models.Product{CategoryID: category.ID, Name: "Lamp", Price: decimal.RequireFromString("10.00"), Stock: 5}
	require.NoError(t, repo.CreateProduct(ctx, productA))
	productB := &models.Product{CategoryID: category.ID, Name: "Rug", Price: decimal.RequireFromString("3.50"), Stock: 1}
	require.NoError(t, repo.CreateProduct(ctx, productB))

	orders := service.NewOrderService(repo, nil)
	svc := Services{
		Cart: service.NewCartService(repo, nil, 0),
		Checkout: service.NewCheckoutService(repo, nil, nil, nil, service.CheckoutOptions{
			LockTTL:        time.Second,
			IdempotencyTTL: time.Minute,
		}),
		Orders:  orders,
		Catalog: service.NewCatalogService(repo),
		Admin:   service.NewAdminService(repo, orders, 5),
	}

	router := gin.New()
	NewHandler(svc, testAdminToken, checks...).SetupRoutes(router)

	return &testEnv{router: router, repo: repo, user: customer.ID, productA: productA, productB: productB}
}

type requestOption func(*http.Request)

func asUser(id int64) requestOption {
	return func(r *http.Request) { r.Header.Set(userIDHeader, fmt.Sprint(id)) }
}

func asAdmin(token string) requestOption {
	return func(r *http.Request) { r.Header.Set(adminTokenHeader, token) }
}

func withHeader(key, value string) requestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func (e *testEnv) do(method, path string, body interface{}, opts ...requestOption) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}

	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (e *testEnv) fillCart(t *testing.T) {
	t.Helper()
	for _, id := range []int64{e.productA.ID, e.productA.ID, e.productB.ID} {
		w := e.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": id}, asUser(e.user))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
}

var codBody = gin.H{"shipping_address": "5 Ring Road, Accra", "payment_method": "cash_on_delivery"}

func TestHealthAndReady(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyReportsFailedDependency(t *testing.T) {
	env := setupTestRouter(t, ReadinessCheck{
		Name:  "redis",
		Check: func(ctx context.Context) error { return errors.New("dial tcp: refused") },
	})

	w := env.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis")
}

func TestCartRequiresUser(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, "/api/v1/cart", nil, asUser(-1))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartUnknownCustomer(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodGet, "/api/v1/cart", nil, asUser(env.user+1000))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, w).Error)

	w = env.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": env.productA.ID}, asUser(env.user+1000))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateCartItemQuantityLimit(t *testing.T) {
	env := setupTestRouter(t)
	env.fillCart(t)

	w := env.do(http.MethodGet, "/api/v1/cart", nil, asUser(env.user))
	require.Equal(t, http.StatusOK, w.Code)
	var cart struct {
		Items []models.CartItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	require.NotEmpty(t, cart.Items)

	path := fmt.Sprintf("/api/v1/cart/items/%d", cart.Items[0].ID)
	w = env.do(http.MethodPut, path, gin.H{"quantity": 3000000000}, asUser(env.user))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error)
	assert.Contains(t, resp.Fields, "quantity")
}

func TestCartFlow(t *testing.T) {
	env := setupTestRouter(t)
	env.fillCart(t)

	w := env.do(http.MethodGet, "/api/v1/cart", nil, asUser(env.user))
	require.Equal(t, http.StatusOK, w.Code)

	var cart struct {
		Items      []models.CartItem `json:"items"`
		TotalItems int               `json:"total_items"`
		TotalPrice string            `json:"total_price"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	assert.Equal(t, 3, cart.TotalItems)
	assert.Equal(t, "23.50", cart.TotalPrice)
	require.Len(t, cart.Items, 2)

	w = env.do(http.MethodGet, "/api/v1/cart/count", nil, asUser(env.user))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":3}`, w.Body.String())

	itemPath := fmt.Sprintf("/api/v1/cart/items/%d", cart.Items[0].ID)
	w = env.do(http.MethodPut, itemPath, gin.H{"quantity": 4}, asUser(env.user))
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodDelete, itemPath, nil, asUser(env.user))
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodDelete, itemPath, nil, asUser(env.user))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Error)
}

func TestAddUnknownProduct(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 999}, asUser(env.user))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/api/v1/cart/items", gin.H{}, asUser(env.user))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutEndpoint(t *testing.T) {
	env := setupTestRouter(t)
	env.fillCart(t)

	w := env.do(http.MethodPost, "/api/v1/checkout", codBody,
		asUser(env.user), withHeader("Idempotency-Key", "abc-123"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		OrderID int64        `json:"order_id"`
		Order   models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotZero(t, resp.OrderID)
	assert.Equal(t, "23.5", resp.Order.TotalAmount.String())
	assert.Equal(t, models.OrderStatusPending, resp.Order.Status)
	assert.Len(t, resp.Order.Items, 2)

	// retry with the same key returns the same order
	w = env.do(http.MethodPost, "/api/v1/checkout", codBody,
		asUser(env.user), withHeader("Idempotency-Key", "abc-123"))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), fmt.Sprintf(`"order_id":%d`, resp.OrderID))

	w = env.do(http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", resp.OrderID), nil, asUser(env.user))
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", resp.OrderID), nil, asUser(env.user+100))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutEmptyCartEndpoint(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodPost, "/api/v1/checkout", codBody, asUser(env.user))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "EMPTY_CART", decodeError(t, w).Error)
}

func TestCheckoutValidationEndpoint(t *testing.T) {
	env := setupTestRouter(t)
	env.fillCart(t)

	body := gin.H{
		"shipping_address": "5 Ring Road, Accra",
		"payment_method":   "credit_card",
		"card_expiry":      "10/28",
		"card_cvv":         "321",
	}
	w := env.do(http.MethodPost, "/api/v1/checkout", body, asUser(env.user))
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error)
	assert.Equal(t, "Card number is required for card payments.", resp.Fields["card_number"])

	orders, err := env.repo.ListOrders(context.Background(), store.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCheckoutInsufficientStockEndpoint(t *testing.T) {
	env := setupTestRouter(t)
	env.fillCart(t)
	w := env.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": env.productB.ID}, asUser(env.user))
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodPost, "/api/v1/checkout", codBody, asUser(env.user))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INSUFFICIENT_STOCK", decodeError(t, w).Error)
}

func TestAdminRequiresToken(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodGet, "/api/v1/admin/dashboard", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodGet, "/api/v1/admin/dashboard", nil, asAdmin("guess"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodGet, "/api/v1/admin/dashboard", nil, asAdmin(testAdminToken))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminEmptyTokenLocksGroup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin", RequireAdmin(""), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminOrderStatus(t *testing.T) {
	env := setupTestRouter(t)
	env.fillCart(t)
	w := env.do(http.MethodPost, "/api/v1/checkout", codBody, asUser(env.user))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		OrderID int64 `json:"order_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	path := fmt.Sprintf("/api/v1/admin/orders/%d/status", resp.OrderID)

	w = env.do(http.MethodPut, path, gin.H{"status": "shipped"}, asAdmin(testAdminToken))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPut, path, gin.H{"status": "not_a_real_status"}, asAdmin(testAdminToken))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_STATUS", decodeError(t, w).Error)

	w = env.do(http.MethodGet, "/api/v1/admin/orders?status=shipped", nil, asAdmin(testAdminToken))
	require.Equal(t, http.StatusOK, w.Code)
	var orders []models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderStatusShipped, orders[0].Status)

	w = env.do(http.MethodPut, path, gin.H{"status": "cancelled"}, asAdmin(testAdminToken))
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodPut, path, gin.H{"status": "pending"}, asAdmin(testAdminToken))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminGetOrder(t *testing.T) {
	env := setupTestRouter(t)
	env.fillCart(t)
	w := env.do(http.MethodPost, "/api/v1/checkout", codBody, asUser(env.user))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		OrderID int64 `json:"order_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	w = env.do(http.MethodGet, fmt.Sprintf("/api/v1/admin/orders/%d", resp.OrderID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/v1/admin/orders/%d", resp.OrderID), nil, asAdmin(testAdminToken))
	require.Equal(t, http.StatusOK, w.Code)
	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, env.user, order.UserID)
	assert.Len(t, order.Items, 2)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/v1/admin/orders/%d", resp.OrderID+1000), nil, asAdmin(testAdminToken))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminProductsInStockFilter(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodGet, "/api/v1/admin/products?in_stock=maybe", nil, asAdmin(testAdminToken))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", decodeError(t, w).Error)

	w = env.do(http.MethodGet, "/api/v1/admin/products?in_stock=true", nil, asAdmin(testAdminToken))
	require.Equal(t, http.StatusOK, w.Code)
	var products []models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	assert.Len(t, products, 2)
}

func TestAdminCatalog(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodPost, "/api/v1/admin/categories", gin.H{"name": "Garden"}, asAdmin(testAdminToken))
	require.Equal(t, http.StatusCreated, w.Code)
	var category models.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &category))

	w = env.do(http.MethodPost, "/api/v1/admin/products", gin.H{
		"category_id": category.ID,
		"name":        "Hose",
		"price":       "12.99",
		"stock":       10,
	}, asAdmin(testAdminToken))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var product models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))

	w = env.do(http.MethodPost, "/api/v1/admin/products", gin.H{
		"category_id": category.ID,
		"name":        "",
		"price":       "-1",
	}, asAdmin(testAdminToken))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", decodeError(t, w).Error)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/v1/admin/products?category_id=%d", category.ID), nil, asAdmin(testAdminToken))
	require.Equal(t, http.StatusOK, w.Code)
	var products []models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	assert.Len(t, products, 1)

	w = env.do(http.MethodDelete, fmt.Sprintf("/api/v1/admin/categories/%d", category.ID), nil, asAdmin(testAdminToken))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodDelete, fmt.Sprintf("/api/v1/admin/products/%d", product.ID), nil, asAdmin(testAdminToken))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodDelete, fmt.Sprintf("/api/v1/admin/categories/%d", category.ID), nil, asAdmin(testAdminToken))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAdminCustomers(t *testing.T) {
	env := setupTestRouter(t)
	env.fillCart(t)
	w := env.do(http.MethodPost, "/api/v1/checkout", codBody, asUser(env.user))
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodGet, "/api/v1/admin/customers", nil, asAdmin(testAdminToken))
	require.Equal(t, http.StatusOK, w.Code)
	var customers []models.CustomerSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &customers))
	require.Len(t, customers, 1)
	assert.Equal(t, 1, customers[0].OrderCount)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/v1/admin/customers/%d/orders", env.user), nil, asAdmin(testAdminToken))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/v1/admin/customers/abc/orders", nil, asAdmin(testAdminToken))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
