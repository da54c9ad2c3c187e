package shop

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Ledger is the authoritative view of per-product stock.
type Ledger struct {
	store  Store
	logger *zap.Logger
}

func NewLedger(store Store, logger *zap.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// Reserve decrements stock by qty if at least qty units are available. The
// check and the decrement are one conditional update in the store.
func (l *Ledger) Reserve(ctx context.Context, productID uint, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	ok, err := l.store.DecrementStock(ctx, productID, qty)
	if err != nil {
		return fmt.Errorf("reserve product %d: %w", productID, err)
	}
	if ok {
		l.logger.Debug("Stock reserved", zap.Uint("product_id", productID), zap.Int("quantity", qty))
		return nil
	}

	// The update matched nothing: either the product is gone or stock is short.
	product, err := l.store.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ProductNotFound(productID)
		}
		return fmt.Errorf("reserve product %d: %w", productID, err)
	}
	return InsufficientStock(productID, product.Stock, qty)
}

// Release returns qty units to stock. Callers only release what they reserved.
func (l *Ledger) Release(ctx context.Context, productID uint, qty int) error {
	if qty <= 0 {
		return nil
	}
	if err := l.store.IncrementStock(ctx, productID, qty); err != nil {
		return fmt.Errorf("release product %d: %w", productID, err)
	}
	l.logger.Debug("Stock released", zap.Uint("product_id", productID), zap.Int("quantity", qty))
	return nil
}

// Available is for display only and must not gate a reservation.
func (l *Ledger) Available(ctx context.Context, productID uint) (int, error) {
	product, err := l.store.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return 0, ProductNotFound(productID)
		}
		return 0, err
	}
	return product.Stock, nil
}
