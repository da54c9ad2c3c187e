package shop_test

import (
	"context"
	"testing"

	"github.com/example/cartshop/pkg/shop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSumsSharedProducts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(1, "10.00", 1)
	f.product(2, "4.00", 10)

	guest, token := f.sessionCart(t)
	require.NoError(t, f.svc.Carts.AddItem(ctx, guest, 1, 1))
	require.NoError(t, f.svc.Carts.AddItem(ctx, guest, 2, 2))
	user := f.userCart(t, "u-1")
	require.NoError(t, f.svc.Carts.AddItem(ctx, user, 2, 3))

	res, err := f.svc.Merger.MergeOnLogin(ctx, "u-1", token)
	require.NoError(t, err)
	assert.True(t, res.Merged)
	assert.Equal(t, 1, res.Moved)
	assert.Equal(t, user.ID, res.Cart.ID)
	assert.Equal(t, map[uint]int{1: 1, 2: 5}, f.lines(t, user))

	_, err = f.svc.Carts.Lookup(ctx, shop.SessionIdentity(token))
	assert.ErrorIs(t, err, shop.ErrCartNotFound)
	assert.Equal(t, []string{token}, f.sessions.forgot)
	assert.Equal(t, 1, f.store.CartCount())
	assert.Contains(t, f.audit.actions(), "merge_cart")
}

func TestMergeIntoEmptyUserCartMovesLines(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(1, "10.00", 5)

	guest, token := f.sessionCart(t)
	require.NoError(t, f.svc.Carts.AddItem(ctx, guest, 1, 2))
	before, err := f.svc.Carts.View(ctx, guest)
	require.NoError(t, err)

	res, err := f.svc.Merger.MergeOnLogin(ctx, "u-1", token)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Moved)

	after, err := f.svc.Carts.View(ctx, res.Cart)
	require.NoError(t, err)
	require.Len(t, after.Items, 1)
	assert.Equal(t, before.Items[0].ItemID, after.Items[0].ItemID, "line is moved, not copied")
	assert.Equal(t, 2, after.Items[0].Quantity)
}

func TestMergeWithoutSessionCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.Merger.MergeOnLogin(ctx, "u-1", "")
	require.NoError(t, err)
	assert.False(t, res.Merged)
	assert.NotNil(t, res.Cart)

	res, err = f.svc.Merger.MergeOnLogin(ctx, "u-1", "never-issued")
	require.NoError(t, err)
	assert.False(t, res.Merged)
	assert.Empty(t, f.sessions.forgot)

	_, err = f.svc.Merger.MergeOnLogin(ctx, "", "whatever")
	assert.ErrorIs(t, err, shop.ErrInvalidIdentity)
}

func TestMergeSameCartIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(1, "10.00", 5)
	user := f.userCart(t, "u-1")
	require.NoError(t, f.svc.Carts.AddItem(ctx, user, 1, 2))

	moved, err := f.svc.Merger.Merge(ctx, user, user)
	require.NoError(t, err)
	assert.Zero(t, moved)
	assert.Equal(t, map[uint]int{1: 2}, f.lines(t, user))
}
