package shop_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/example/cartshop/pkg/models"
	"github.com/example/cartshop/pkg/repository"
	"github.com/example/cartshop/pkg/shop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSessions struct {
	mu      sync.Mutex
	next    int
	live    map[string]bool
	forgot  []string
	mintErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{live: make(map[string]bool)}
}

func (f *fakeSessions) Mint(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mintErr != nil {
		return "", f.mintErr
	}
	f.next++
	token := fmt.Sprintf("sess-%d", f.next)
	f.live[token] = true
	return token, nil
}

func (f *fakeSessions) Valid(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live[token], nil
}

func (f *fakeSessions) Forget(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.live, token)
	f.forgot = append(f.forgot, token)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	orders []uint
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, order *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order.ID)
	return n.err
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []shop.AuditEntry
}

func (a *recordingAudit) Record(_ context.Context, e shop.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

type fixture struct {
	store    *repository.MemoryStore
	sessions *fakeSessions
	notifier *recordingNotifier
	audit    *recordingAudit
	gateway  *fakeGateway
	svc      *shop.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    repository.NewMemoryStore(),
		sessions: newFakeSessions(),
		notifier: &recordingNotifier{},
		audit:    &recordingAudit{},
		gateway:  newFakeGateway(),
	}
	f.svc = shop.NewService(f.store, f.sessions, shop.Options{
		Notifier:    f.notifier,
		Audit:       f.audit,
		Payments:    f.gateway,
		CashMethods: []string{"cod"},
		Logger:      zaptest.NewLogger(t),
	})
	return f
}

func (f *fixture) product(id uint, price string, stock int) {
	f.store.PutProduct(models.Product{
		ID:    id,
		Name:  fmt.Sprintf("product-%d", id),
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
}

func (f *fixture) stock(t *testing.T, id uint) int {
	t.Helper()
	n, err := f.svc.Ledger.Available(context.Background(), id)
	require.NoError(t, err)
	return n
}

func (f *fixture) userCart(t *testing.T, userID string) *models.Cart {
	t.Helper()
	h, err := f.svc.Carts.Resolve(context.Background(), shop.UserIdentity(userID))
	require.NoError(t, err)
	return h.Cart
}

func (f *fixture) sessionCart(t *testing.T) (*models.Cart, string) {
	t.Helper()
	h, err := f.svc.Carts.Resolve(context.Background(), shop.SessionIdentity(""))
	require.NoError(t, err)
	require.True(t, h.Minted)
	return h.Cart, h.Identity.Value
}

func (f *fixture) lines(t *testing.T, cart *models.Cart) map[uint]int {
	t.Helper()
	view, err := f.svc.Carts.View(context.Background(), cart)
	require.NoError(t, err)
	out := make(map[uint]int, len(view.Items))
	for _, l := range view.Items {
		out[l.ProductID] = l.Quantity
	}
	return out
}

func shipping() models.ShippingDetails {
	return models.ShippingDetails{"address": "12 Marina Road", "city": "Lagos"}
}

type fakeGateway struct {
	mu       sync.Mutex
	status   string
	amounts  map[string]decimal.Decimal
	override *decimal.Decimal
	initErr  error
	verified int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{status: shop.PaymentStatusSuccess, amounts: make(map[string]decimal.Decimal)}
}

func (g *fakeGateway) Initiate(_ context.Context, email string, amount decimal.Decimal, reference string) (*shop.PaymentInitiation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.initErr != nil {
		return nil, g.initErr
	}
	if email == "" {
		return nil, errors.New("email required")
	}
	g.amounts[reference] = amount
	return &shop.PaymentInitiation{
		Reference:        reference,
		AccessCode:       "access-" + reference,
		AuthorizationURL: "https://checkout.example.test/" + reference,
	}, nil
}

func (g *fakeGateway) Verify(_ context.Context, reference string) (*shop.PaymentVerification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verified++
	amount, ok := g.amounts[reference]
	if !ok {
		return nil, errors.New("unknown reference")
	}
	if g.override != nil {
		amount = *g.override
	}
	return &shop.PaymentVerification{Reference: reference, Status: g.status, Amount: amount}, nil
}
