package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/example/cartshop/pkg/config"
	"github.com/example/cartshop/pkg/models"
	"github.com/example/cartshop/pkg/repository"
	"github.com/example/cartshop/pkg/shop"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testSecret = "test-secret"

type testEnv struct {
	t       *testing.T
	store   *repository.MemoryStore
	gateway *Gateway
	pay     *stubGateway
	audit   *memoryAudit
}

// memoryAudit records entries and serves them back like the Mongo trail.
type memoryAudit struct {
	mu      sync.Mutex
	entries []shop.AuditEntry
}

func (a *memoryAudit) Record(_ context.Context, e shop.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func (a *memoryAudit) GetAuditLogs(_ context.Context, entity, entityID string, limit int64) ([]*repository.AuditLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	logs := make([]*repository.AuditLog, 0)
	for i := len(a.entries) - 1; i >= 0 && int64(len(logs)) < limit; i-- {
		e := a.entries[i]
		if e.Entity == entity && e.EntityID == entityID {
			logs = append(logs, &repository.AuditLog{Action: e.Action, Entity: e.Entity, EntityID: e.EntityID, CreatedAt: e.At})
		}
	}
	return logs, nil
}

type stubGateway struct {
	amounts map[string]decimal.Decimal
}

func (s *stubGateway) Initiate(_ context.Context, _ string, amount decimal.Decimal, reference string) (*shop.PaymentInitiation, error) {
	s.amounts[reference] = amount
	return &shop.PaymentInitiation{Reference: reference, AccessCode: "ac", AuthorizationURL: "https://pay.example.test/" + reference}, nil
}

func (s *stubGateway) Verify(_ context.Context, reference string) (*shop.PaymentVerification, error) {
	return &shop.PaymentVerification{Reference: reference, Status: shop.PaymentStatusSuccess, Amount: s.amounts[reference]}, nil
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		Gateway: config.GatewayConfig{AllowedOrigins: []string{"*"}, Mode: gin.TestMode},
		Auth:    config.AuthConfig{JWTSecret: testSecret},
		Session: config.SessionConfig{TTL: time.Hour, CookieName: "cart_session", Header: "X-Session-ID"},
	}

	mr := miniredis.RunT(t)
	redisRepo := repository.NewRedisRepository(&config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { redisRepo.Close() })

	store := repository.NewMemoryStore()
	store.PutProduct(models.Product{ID: 1, Name: "Lamp", Price: decimal.RequireFromString("10.00"), Stock: 5})
	store.PutProduct(models.Product{ID: 2, Name: "Bulb", Price: decimal.RequireFromString("1.50"), Stock: 20})

	logger := zaptest.NewLogger(t)
	pay := &stubGateway{amounts: map[string]decimal.Decimal{}}
	audit := &memoryAudit{}
	svc := shop.NewService(store, repository.NewRedisSessions(redisRepo, time.Hour), shop.Options{
		Payments: pay,
		Audit:    audit,
		Logger:   logger,
	})

	g := NewGateway(cfg, logger, svc,
		WithOrderCache(repository.NewOrderCache(redisRepo, time.Minute)),
		WithAuditReader(audit),
	)
	g.SetupRoutes()
	return &testEnv{t: t, store: store, gateway: g, pay: pay, audit: audit}
}

type call struct {
	method  string
	path    string
	body    interface{}
	session string
	token   string
}

func (e *testEnv) do(c call) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.session != "" {
		req.Header.Set("X-Session-ID", c.session)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	e.gateway.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func userToken(t *testing.T, userID, email string) string {
	t.Helper()
	claims := jwt.MapClaims{"user_id": userID, "exp": time.Now().Add(time.Hour).Unix()}
	if email != "" {
		claims["email"] = email
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestGuestCheckoutFlow(t *testing.T) {
	e := newEnv(t)

	w := e.do(call{method: http.MethodGet, path: "/api/v1/cart"})
	require.Equal(t, http.StatusOK, w.Code)
	session := w.Header().Get("X-Session-ID")
	require.NotEmpty(t, session)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "cart_session="+session)

	w = e.do(call{method: http.MethodPost, path: "/api/v1/cart", session: session, body: gin.H{"product_id": 1, "quantity": 3}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Empty(t, w.Header().Get("X-Session-ID"), "existing session is reused")
	view := decode[shop.CartView](t, w)
	assert.Equal(t, "30.00", view.Total.StringFixed(2))
	require.Len(t, view.Items, 1)

	w = e.do(call{method: http.MethodPut, path: "/api/v1/cart/items/" + strconv.Itoa(int(view.Items[0].ItemID)), session: session, body: gin.H{"quantity": 1}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10.00", decode[shop.CartView](t, w).Total.StringFixed(2))

	checkout := gin.H{"shipping_details": gin.H{"address": "1 Allen Avenue"}, "payment_method": "cod"}
	w = e.do(call{method: http.MethodPost, path: "/api/v1/checkout", session: session, body: checkout})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, shop.CodeMissingContact, decode[errorResponse](t, w).Code)

	checkout["email"] = "guest@example.com"
	w = e.do(call{method: http.MethodPost, path: "/api/v1/checkout", session: session, body: checkout})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[models.Order](t, w)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "10.00", order.TotalPrice.StringFixed(2))

	w = e.do(call{method: http.MethodGet, path: "/api/v1/products/1/stock"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, decode[stockResponse](t, w).Available)

	w = e.do(call{method: http.MethodGet, path: "/api/v1/cart", session: session})
	assert.Empty(t, decode[shop.CartView](t, w).Items)

	w = e.do(call{method: http.MethodPost, path: "/api/v1/checkout", session: session, body: checkout})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, shop.CodeEmptyCart, decode[errorResponse](t, w).Code)
}

func TestMergeOnLogin(t *testing.T) {
	e := newEnv(t)

	w := e.do(call{method: http.MethodPost, path: "/api/v1/cart", body: gin.H{"product_id": 2, "quantity": 2}})
	require.Equal(t, http.StatusCreated, w.Code)
	session := w.Header().Get("X-Session-ID")

	token := userToken(t, "u-1", "")
	w = e.do(call{method: http.MethodPost, path: "/api/v1/cart", token: token, body: gin.H{"product_id": 2, "quantity": 3}})
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(call{method: http.MethodPost, path: "/api/v1/cart/merge", session: session})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(call{method: http.MethodPost, path: "/api/v1/cart/merge", session: session, token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[mergeResponse](t, w)
	assert.True(t, res.Merged)
	require.Len(t, res.Cart.Items, 1)
	assert.Equal(t, 5, res.Cart.Items[0].Quantity)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")

	w = e.do(call{method: http.MethodPost, path: "/api/v1/cart/merge", session: session, token: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[mergeResponse](t, w).Merged)
}

func TestCartErrors(t *testing.T) {
	e := newEnv(t)
	token := userToken(t, "u-1", "")

	w := e.do(call{method: http.MethodPost, path: "/api/v1/cart", token: token, body: gin.H{"product_id": 1, "quantity": 9}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[errorResponse](t, w)
	assert.Equal(t, shop.CodeInsufficientStock, resp.Code)
	assert.Equal(t, uint(1), resp.ProductID)

	w = e.do(call{method: http.MethodPost, path: "/api/v1/cart", token: token, body: gin.H{"product_id": 77}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(call{method: http.MethodPost, path: "/api/v1/cart", token: token, body: gin.H{"product_id": 1, "quantity": 0}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(call{method: http.MethodDelete, path: "/api/v1/cart/items/999", token: token})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(call{method: http.MethodDelete, path: "/api/v1/cart/items/abc", token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(call{method: http.MethodGet, path: "/api/v1/cart", token: "not-a-jwt"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(call{method: http.MethodPost, path: "/api/v1/cart", token: token, body: gin.H{"product_id": 1, "quantity": 2}})
	require.Equal(t, http.StatusCreated, w.Code)
	w = e.do(call{method: http.MethodDelete, path: "/api/v1/cart", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[shop.CartView](t, w).Items)
}

func TestPaymentFlowAndOrderVisibility(t *testing.T) {
	e := newEnv(t)
	token := userToken(t, "u-7", "u7@example.com")

	w := e.do(call{method: http.MethodPost, path: "/api/v1/cart", token: token, body: gin.H{"product_id": 2, "quantity": 4}})
	require.Equal(t, http.StatusCreated, w.Code)
	w = e.do(call{method: http.MethodPost, path: "/api/v1/checkout", token: token, body: gin.H{
		"email":            "typed@example.com",
		"shipping_details": gin.H{"city": "Ibadan"},
		"payment_method":   "paystack",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[models.Order](t, w)
	assert.Equal(t, models.OrderStatusAwaitingPayment, order.Status)
	assert.Equal(t, "u7@example.com", order.Email)
	orderPath := "/api/v1/orders/" + strconv.Itoa(int(order.ID))

	w = e.do(call{method: http.MethodGet, path: orderPath, token: token})
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(call{method: http.MethodGet, path: orderPath, token: userToken(t, "someone-else", "")})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(call{method: http.MethodPost, path: "/api/v1/payments/initiate", token: token, body: gin.H{"order_id": order.ID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	started := decode[initiatePaymentResponse](t, w)
	assert.True(t, decimal.RequireFromString("6.00").Equal(e.pay.amounts[started.Reference]))

	w = e.do(call{method: http.MethodGet, path: "/api/v1/payments/verify/" + started.Reference})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.OrderStatusPaid, decode[models.Order](t, w).Status)

	w = e.do(call{method: http.MethodGet, path: orderPath, token: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.OrderStatusPaid, decode[models.Order](t, w).Status, "cache is invalidated on payment")

	w = e.do(call{method: http.MethodGet, path: "/api/v1/payments/verify/unknown"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGuestOrderNeedsEmail(t *testing.T) {
	e := newEnv(t)

	w := e.do(call{method: http.MethodPost, path: "/api/v1/cart", body: gin.H{"product_id": 1}})
	require.Equal(t, http.StatusCreated, w.Code)
	session := w.Header().Get("X-Session-ID")
	w = e.do(call{method: http.MethodPost, path: "/api/v1/checkout", session: session, body: gin.H{
		"email": "guest@example.com", "shipping_details": gin.H{"city": "Kano"}, "payment_method": "cod",
	}})
	require.Equal(t, http.StatusCreated, w.Code)
	order := decode[models.Order](t, w)
	path := "/api/v1/orders/" + strconv.Itoa(int(order.ID))

	assert.Equal(t, http.StatusNotFound, e.do(call{method: http.MethodGet, path: path}).Code)
	assert.Equal(t, http.StatusOK, e.do(call{method: http.MethodGet, path: path + "?email=Guest@Example.com"}).Code)
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	w := e.do(call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func (e *testEnv) placeOrder(token, email, method string, productID uint, qty int) models.Order {
	e.t.Helper()
	w := e.do(call{method: http.MethodPost, path: "/api/v1/cart", token: token, body: gin.H{"product_id": productID, "quantity": qty}})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	session := w.Header().Get("X-Session-ID")
	w = e.do(call{method: http.MethodPost, path: "/api/v1/checkout", token: token, session: session, body: gin.H{
		"email": email, "shipping_details": gin.H{"city": "Enugu"}, "payment_method": method,
	}})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Order](e.t, w)
}

func TestListOrders(t *testing.T) {
	e := newEnv(t)
	alice := userToken(t, "alice", "")
	first := e.placeOrder(alice, "alice@example.com", "cod", 2, 1)
	second := e.placeOrder(alice, "alice@example.com", "cod", 2, 2)
	guest := e.placeOrder("", "guest@example.com", "cod", 2, 1)
	e.placeOrder(userToken(t, "bob", ""), "guest@example.com", "cod", 2, 1)

	w := e.do(call{method: http.MethodGet, path: "/api/v1/orders", token: alice})
	require.Equal(t, http.StatusOK, w.Code)
	orders := decode[[]models.Order](t, w)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)

	w = e.do(call{method: http.MethodGet, path: "/api/v1/orders?email=GUEST@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	orders = decode[[]models.Order](t, w)
	require.Len(t, orders, 1, "user orders never show up by email")
	assert.Equal(t, guest.ID, orders[0].ID)

	w = e.do(call{method: http.MethodGet, path: "/api/v1/orders"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, shop.CodeMissingContact, decode[errorResponse](t, w).Code)
}

func TestOrderAuditTrail(t *testing.T) {
	e := newEnv(t)
	alice := userToken(t, "alice", "")
	order := e.placeOrder(alice, "alice@example.com", "cod", 1, 1)
	path := "/api/v1/orders/" + strconv.Itoa(int(order.ID)) + "/audit"

	w := e.do(call{method: http.MethodGet, path: path, token: alice})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	logs := decode[[]repository.AuditLog](t, w)
	require.Len(t, logs, 1)
	assert.Equal(t, "checkout", logs[0].Action)
	assert.Equal(t, shop.EntityOrder, logs[0].Entity)

	w = e.do(call{method: http.MethodGet, path: path, token: userToken(t, "mallory", "")})
	assert.Equal(t, http.StatusNotFound, w.Code)

	guest := e.placeOrder("", "guest@example.com", "cod", 1, 1)
	guestPath := "/api/v1/orders/" + strconv.Itoa(int(guest.ID)) + "/audit"
	assert.Equal(t, http.StatusNotFound, e.do(call{method: http.MethodGet, path: guestPath}).Code)
	assert.Equal(t, http.StatusOK, e.do(call{method: http.MethodGet, path: guestPath + "?email=guest@example.com"}).Code)
}

func TestGuestPaymentNeedsOrderEmail(t *testing.T) {
	e := newEnv(t)
	order := e.placeOrder("", "guest@example.com", "paystack", 2, 2)
	require.Equal(t, models.OrderStatusAwaitingPayment, order.Status)

	w := e.do(call{method: http.MethodPost, path: "/api/v1/payments/initiate", body: gin.H{"order_id": order.ID}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(call{method: http.MethodPost, path: "/api/v1/payments/initiate", body: gin.H{"order_id": order.ID, "email": "someone@example.com"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, e.pay.amounts)

	w = e.do(call{method: http.MethodPost, path: "/api/v1/payments/initiate", body: gin.H{"order_id": order.ID, "email": "Guest@Example.com"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode[initiatePaymentResponse](t, w).AuthorizationURL)
}

func TestCartChangedMapsToConflict(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	newEnv(t).gateway.fail(c, shop.ErrCartChanged)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, shop.CodeCartChanged, decode[errorResponse](t, w).Code)
}
