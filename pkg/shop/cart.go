package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/cartshop/pkg/models"
	"go.uber.org/zap"
)

// CartHandle is a resolved cart together with the identity that owns it.
// Minted is set when a new session token had to be created for the caller.
type CartHandle struct {
	Cart     *models.Cart
	Identity Identity
	Minted   bool
}

type CartStore struct {
	store    Store
	sessions SessionProvider
	pricer   Pricer
	logger   *zap.Logger
}

func NewCartStore(store Store, sessions SessionProvider, logger *zap.Logger) *CartStore {
	return &CartStore{store: store, sessions: sessions, logger: logger}
}

// Resolve returns the cart for id, creating it on first use.
func (s *CartStore) Resolve(ctx context.Context, id Identity) (*CartHandle, error) {
	handle := &CartHandle{Identity: id}

	switch id.Kind {
	case IdentityUser:
		if id.Value == "" {
			return nil, ErrInvalidIdentity
		}
	case IdentitySession:
		valid := false
		if id.Value != "" {
			ok, err := s.sessions.Valid(ctx, id.Value)
			if err != nil {
				return nil, fmt.Errorf("check session: %w", err)
			}
			valid = ok
		}
		if !valid {
			token, err := s.sessions.Mint(ctx)
			if err != nil {
				return nil, fmt.Errorf("mint session: %w", err)
			}
			handle.Identity = SessionIdentity(token)
			handle.Minted = true
		}
	default:
		return nil, ErrInvalidIdentity
	}

	cart, err := s.getOrCreate(ctx, handle.Identity)
	if err != nil {
		return nil, err
	}
	handle.Cart = cart
	return handle, nil
}

// Lookup finds the cart for id without creating one.
func (s *CartStore) Lookup(ctx context.Context, id Identity) (*models.Cart, error) {
	cart, err := s.store.FindCart(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	return cart, nil
}

func (s *CartStore) getOrCreate(ctx context.Context, id Identity) (*models.Cart, error) {
	cart, err := s.store.FindCart(ctx, id)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return nil, fmt.Errorf("find cart: %w", err)
	}

	cart = &models.Cart{}
	owner := id.Value
	if id.IsUser() {
		cart.UserID = &owner
	} else {
		cart.SessionID = &owner
	}

	createErr := s.store.CreateCart(ctx, cart)
	if createErr == nil {
		s.logger.Info("Cart created", zap.Uint("cart_id", cart.ID), zap.String("owner", id.Kind.String()))
		return cart, nil
	}

	// A concurrent request may have created the cart first; the unique owner
	// index rejects our insert, so look it up once more.
	existing, err := s.store.FindCart(ctx, id)
	if err == nil {
		s.logger.Debug("Cart creation raced, using existing cart", zap.Uint("cart_id", existing.ID))
		return existing, nil
	}
	return nil, NewConflict("could not create or find cart", createErr)
}

func (s *CartStore) AddItem(ctx context.Context, cart *models.Cart, productID uint, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ProductNotFound(productID)
		}
		return fmt.Errorf("get product: %w", err)
	}
	// Adding to the cart is not a reservation; this only gives early feedback.
	if qty > product.Stock {
		return InsufficientStock(productID, product.Stock, qty)
	}

	ok, err := s.store.IncrementCartItem(ctx, cart.ID, productID, qty)
	if err != nil {
		return fmt.Errorf("increment cart item: %w", err)
	}
	if ok {
		return nil
	}

	item := &models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: qty}
	createErr := s.store.CreateCartItem(ctx, item)
	if createErr == nil {
		return nil
	}

	// Lost an insert race on (cart, product); fold into the winner's row.
	ok, err = s.store.IncrementCartItem(ctx, cart.ID, productID, qty)
	if err != nil {
		return fmt.Errorf("increment cart item: %w", err)
	}
	if !ok {
		return fmt.Errorf("add cart item: %w", createErr)
	}
	return nil
}

// SetQuantity replaces the stored quantity. qty <= 0 removes the line and is
// a no-op when the line is already gone.
func (s *CartStore) SetQuantity(ctx context.Context, cart *models.Cart, itemID uint, qty int) error {
	if qty <= 0 {
		if _, err := s.store.DeleteCartItem(ctx, cart.ID, itemID); err != nil {
			return fmt.Errorf("delete cart item: %w", err)
		}
		return nil
	}

	item, err := s.store.GetCartItem(ctx, cart.ID, itemID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ItemNotFound(itemID)
		}
		return fmt.Errorf("get cart item: %w", err)
	}

	product, err := s.store.GetProduct(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ProductNotFound(item.ProductID)
		}
		return fmt.Errorf("get product: %w", err)
	}
	if qty > product.Stock {
		return InsufficientStock(product.ID, product.Stock, qty)
	}

	ok, err := s.store.SetCartItemQuantity(ctx, cart.ID, itemID, qty)
	if err != nil {
		return fmt.Errorf("set cart item quantity: %w", err)
	}
	if !ok {
		return ItemNotFound(itemID)
	}
	return nil
}

// RemoveItem deletes a line of this cart. Item ids from other carts are
// reported as not found.
func (s *CartStore) RemoveItem(ctx context.Context, cart *models.Cart, itemID uint) error {
	ok, err := s.store.DeleteCartItem(ctx, cart.ID, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if !ok {
		return ItemNotFound(itemID)
	}
	return nil
}

func (s *CartStore) Clear(ctx context.Context, cart *models.Cart) error {
	if err := s.store.ClearCartItems(ctx, cart.ID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// View prices the cart with current product prices.
func (s *CartStore) View(ctx context.Context, cart *models.Cart) (*CartView, error) {
	items, err := s.store.ListCartItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	return s.pricer.CartView(cart.ID, items), nil
}
