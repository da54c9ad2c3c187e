package shop

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/example/cartshop/pkg/models"
	"go.uber.org/zap"
)

// MergeResult reports the user cart after a login merge. Merged is false when
// there was no anonymous cart to absorb.
type MergeResult struct {
	Cart   *models.Cart
	Merged bool
	Moved  int
}

type MergeEngine struct {
	store    Store
	carts    *CartStore
	sessions SessionProvider
	audit    AuditSink
	logger   *zap.Logger
}

func NewMergeEngine(store Store, carts *CartStore, sessions SessionProvider, audit AuditSink, logger *zap.Logger) *MergeEngine {
	if audit == nil {
		audit = nopAudit{}
	}
	return &MergeEngine{store: store, carts: carts, sessions: sessions, audit: audit, logger: logger}
}

// Merge folds every line of sessionCart into userCart, summing quantities for
// products present in both, then deletes sessionCart. Stock is not checked.
func (m *MergeEngine) Merge(ctx context.Context, sessionCart, userCart *models.Cart) (int, error) {
	if sessionCart.ID == userCart.ID {
		return 0, nil
	}

	moved := 0
	err := m.store.InTx(ctx, func(tx Store) error {
		items, err := tx.ListCartItems(ctx, sessionCart.ID)
		if err != nil {
			return fmt.Errorf("list session cart items: %w", err)
		}

		for _, item := range items {
			ok, err := tx.IncrementCartItem(ctx, userCart.ID, item.ProductID, item.Quantity)
			if err != nil {
				return fmt.Errorf("merge product %d: %w", item.ProductID, err)
			}
			if ok {
				continue
			}
			if err := tx.MoveCartItem(ctx, item.ID, userCart.ID); err != nil {
				return fmt.Errorf("move item %d: %w", item.ID, err)
			}
			moved++
		}

		return tx.DeleteCart(ctx, sessionCart.ID)
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

// MergeOnLogin absorbs the cart bound to sessionToken into the user's cart and
// clears the session binding.
func (m *MergeEngine) MergeOnLogin(ctx context.Context, userID, sessionToken string) (*MergeResult, error) {
	if userID == "" {
		return nil, ErrInvalidIdentity
	}

	userHandle, err := m.carts.Resolve(ctx, UserIdentity(userID))
	if err != nil {
		return nil, err
	}
	result := &MergeResult{Cart: userHandle.Cart}

	if sessionToken == "" {
		return result, nil
	}

	sessionCart, err := m.carts.Lookup(ctx, SessionIdentity(sessionToken))
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return result, nil
		}
		return nil, err
	}

	moved, err := m.Merge(ctx, sessionCart, userHandle.Cart)
	if err != nil {
		return nil, err
	}
	result.Merged = true
	result.Moved = moved

	if err := m.sessions.Forget(ctx, sessionToken); err != nil {
		// The session cart row is already gone; a stale token just resolves to
		// a fresh empty cart next time.
		m.logger.Warn("Failed to clear session binding", zap.Error(err))
	}

	m.logger.Info("Carts merged",
		zap.Uint("session_cart_id", sessionCart.ID),
		zap.Uint("user_cart_id", userHandle.Cart.ID),
		zap.Int("moved", moved))

	if err := m.audit.Record(ctx, AuditEntry{
		Action:   "merge_cart",
		Entity:   EntityCart,
		EntityID: strconv.FormatUint(uint64(userHandle.Cart.ID), 10),
		Data:     map[string]interface{}{"session_cart_id": sessionCart.ID, "user_id": userID, "moved": moved},
		At:       time.Now(),
	}); err != nil {
		m.logger.Warn("Failed to write audit entry", zap.Error(err))
	}

	return result, nil
}
