package shop_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/cartshop/pkg/models"
	"github.com/example/cartshop/pkg/shop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeGatewayOrder(t *testing.T, f *fixture) *models.Order {
	t.Helper()
	ctx := context.Background()
	f.product(1, "10.00", 5)
	cart, _ := f.sessionCart(t)
	require.NoError(t, f.svc.Carts.AddItem(ctx, cart, 1, 2))
	order, err := f.svc.Checkout.Run(ctx, cart, shop.CheckoutRequest{
		Email:           "guest@example.com",
		ShippingDetails: shipping(),
		PaymentMethod:   "paystack",
	})
	require.NoError(t, err)
	return order
}

func TestPaymentRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := placeGatewayOrder(t, f)

	started, err := f.svc.Payments.Initiate(ctx, order.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, started.Reference)
	assert.NotEmpty(t, started.AuthorizationURL)
	assert.True(t, decimal.NewFromInt(20).Equal(f.gateway.amounts[started.Reference]))

	paid, err := f.svc.Payments.Confirm(ctx, started.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, paid.Status)

	again, err := f.svc.Payments.Confirm(ctx, started.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, again.Status)
	assert.Equal(t, 1, f.gateway.verified, "a paid order is not re-verified")
	assert.Contains(t, f.audit.actions(), "payment_confirmed")
}

func TestPaymentRejectsCashOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(1, "10.00", 5)
	cart := f.userCart(t, "u-1")
	require.NoError(t, f.svc.Carts.AddItem(ctx, cart, 1, 1))
	order, err := f.svc.Checkout.Run(ctx, cart, shop.CheckoutRequest{
		UserID: "u-1", Email: "u1@example.com", ShippingDetails: shipping(), PaymentMethod: "cod",
	})
	require.NoError(t, err)

	_, err = f.svc.Payments.Initiate(ctx, order.ID)
	assert.ErrorIs(t, err, shop.NewValidation(shop.CodeInvalidOrderState, ""))

	_, err = f.svc.Payments.Initiate(ctx, 404)
	assert.ErrorIs(t, err, shop.ErrOrderNotFound)
}

func TestPaymentFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("gateway error", func(t *testing.T) {
		f := newFixture(t)
		order := placeGatewayOrder(t, f)
		f.gateway.initErr = errors.New("connection refused")

		_, err := f.svc.Payments.Initiate(ctx, order.ID)
		kind, ok := shop.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, shop.KindExternal, kind)
		assert.Equal(t, 3, f.stock(t, 1), "payment failures do not touch stock")
	})

	t.Run("declined", func(t *testing.T) {
		f := newFixture(t)
		order := placeGatewayOrder(t, f)
		started, err := f.svc.Payments.Initiate(ctx, order.ID)
		require.NoError(t, err)
		f.gateway.status = "failed"

		_, err = f.svc.Payments.Confirm(ctx, started.Reference)
		kind, _ := shop.KindOf(err)
		assert.Equal(t, shop.KindExternal, kind)
		current, err := f.svc.Payments.Order(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusAwaitingPayment, current.Status)
	})

	t.Run("short payment", func(t *testing.T) {
		f := newFixture(t)
		order := placeGatewayOrder(t, f)
		started, err := f.svc.Payments.Initiate(ctx, order.ID)
		require.NoError(t, err)
		short := decimal.RequireFromString("19.99")
		f.gateway.override = &short

		_, err = f.svc.Payments.Confirm(ctx, started.Reference)
		assert.ErrorIs(t, err, shop.NewValidation(shop.CodeAmountMismatch, ""))
	})

	t.Run("unknown reference", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Payments.Confirm(ctx, "nope")
		assert.ErrorIs(t, err, shop.ErrOrderNotFound)
	})
}
