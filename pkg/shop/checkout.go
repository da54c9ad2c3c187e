package shop

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/cartshop/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CheckoutState int

const (
	StateValidating CheckoutState = iota
	StateReserving
	StateCreating
	StateCommitted
	StateRolledBack
)

func (s CheckoutState) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateReserving:
		return "reserving"
	case StateCreating:
		return "creating"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

type CheckoutRequest struct {
	UserID          string
	Email           string
	ShippingDetails models.ShippingDetails
	PaymentMethod   string
}

type reservation struct {
	productID uint
	qty       int
}

type Checkout struct {
	store       Store
	ledger      *Ledger
	pricer      Pricer
	notifier    Notifier
	audit       AuditSink
	cashMethods map[string]struct{}
	logger      *zap.Logger
}

// NewCheckout builds the orchestrator. cashMethods lists payment methods that
// settle outside the payment gateway; orders paid with them start Pending.
func NewCheckout(store Store, ledger *Ledger, notifier Notifier, audit AuditSink, cashMethods []string, logger *zap.Logger) *Checkout {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if audit == nil {
		audit = nopAudit{}
	}
	methods := make(map[string]struct{}, len(cashMethods))
	for _, m := range cashMethods {
		methods[strings.ToLower(m)] = struct{}{}
	}
	return &Checkout{
		store:       store,
		ledger:      ledger,
		notifier:    notifier,
		audit:       audit,
		cashMethods: methods,
		logger:      logger,
	}
}

// InitialStatus is Pending for cash-style methods and AwaitingPayment for
// everything settled through the payment gateway.
func (c *Checkout) InitialStatus(paymentMethod string) models.OrderStatus {
	if _, ok := c.cashMethods[strings.ToLower(paymentMethod)]; ok {
		return models.OrderStatusPending
	}
	return models.OrderStatusAwaitingPayment
}

// Run converts cart into an order. Stock reserved during the attempt is
// released again on every failure path.
func (c *Checkout) Run(ctx context.Context, cart *models.Cart, req CheckoutRequest) (*models.Order, error) {
	log := c.logger.With(zap.Uint("cart_id", cart.ID))
	state := StateValidating
	log.Debug("Checkout started", zap.Stringer("state", state))

	items, err := c.validate(ctx, cart, req)
	if err != nil {
		log.Info("Checkout rejected", zap.Stringer("state", StateRolledBack), zap.Error(err))
		return nil, err
	}

	state = StateReserving
	log.Debug("Checkout state", zap.Stringer("state", state))
	reserved := make([]reservation, 0, len(items))
	for _, item := range items {
		if err := c.ledger.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
			c.rollback(ctx, log, reserved)
			log.Info("Checkout rolled back", zap.Stringer("failed_in", state), zap.Error(err))
			return nil, err
		}
		reserved = append(reserved, reservation{productID: item.ProductID, qty: item.Quantity})
	}

	state = StateCreating
	log.Debug("Checkout state", zap.Stringer("state", state))
	order, err := c.create(ctx, cart, items, req)
	if err != nil {
		c.rollback(ctx, log, reserved)
		log.Error("Checkout rolled back", zap.Stringer("failed_in", state), zap.Error(err))
		return nil, err
	}

	state = StateCommitted
	log.Info("Order created",
		zap.Stringer("state", state),
		zap.Uint("order_id", order.ID),
		zap.String("status", string(order.Status)),
		zap.String("total", order.TotalPrice.StringFixed(2)))

	if err := c.notifier.Notify(ctx, order); err != nil {
		log.Warn("Order notification failed", zap.Uint("order_id", order.ID), zap.Error(err))
	}
	if err := c.audit.Record(ctx, AuditEntry{
		Action:   "checkout",
		Entity:   EntityOrder,
		EntityID: strconv.FormatUint(uint64(order.ID), 10),
		Data: map[string]interface{}{
			"cart_id":        cart.ID,
			"total_price":    order.TotalPrice.StringFixed(2),
			"payment_method": order.PaymentMethod,
			"status":         string(order.Status),
		},
		At: time.Now(),
	}); err != nil {
		log.Warn("Failed to write audit entry", zap.Error(err))
	}

	return order, nil
}

func (c *Checkout) validate(ctx context.Context, cart *models.Cart, req CheckoutRequest) ([]models.CartItem, error) {
	items, err := c.store.ListCartItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	if req.UserID == "" && strings.TrimSpace(req.Email) == "" {
		return nil, ErrMissingContact
	}
	if len(req.ShippingDetails) == 0 {
		return nil, ErrMissingShippingDetails
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return nil, ErrMissingPaymentMethod
	}
	return items, nil
}

func (c *Checkout) create(ctx context.Context, cart *models.Cart, items []models.CartItem, req CheckoutRequest) (*models.Order, error) {
	order := &models.Order{
		Email:           strings.TrimSpace(req.Email),
		Status:          c.InitialStatus(req.PaymentMethod),
		ShippingDetails: req.ShippingDetails,
		PaymentMethod:   strings.ToLower(strings.TrimSpace(req.PaymentMethod)),
		TotalPrice:      decimal.Zero,
	}
	if req.UserID != "" {
		userID := req.UserID
		order.UserID = &userID
	}

	err := c.store.InTx(ctx, func(tx Store) error {
		order.Items = make([]models.OrderItem, 0, len(items))
		order.TotalPrice = decimal.Zero
		for _, item := range items {
			// Price is read now, not taken from whatever the cart last displayed.
			product, err := tx.GetProduct(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, ErrRecordNotFound) {
					return ProductNotFound(item.ProductID)
				}
				return fmt.Errorf("get product: %w", err)
			}
			line := models.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    item.Quantity,
				Price:       product.Price,
			}
			order.Items = append(order.Items, line)
			order.TotalPrice = order.TotalPrice.Add(line.Subtotal())
		}

		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		// Only the lines that were priced and reserved leave the cart. A line
		// that changed or vanished since the snapshot aborts the order.
		for _, item := range items {
			ok, err := tx.DeleteCartItemIf(ctx, cart.ID, item.ID, item.Quantity)
			if err != nil {
				return fmt.Errorf("delete cart item: %w", err)
			}
			if !ok {
				return ErrCartChanged
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// rollback releases reservations newest first.
func (c *Checkout) rollback(ctx context.Context, log *zap.Logger, reserved []reservation) {
	// Compensation must run even if the request deadline has passed.
	ctx = context.WithoutCancel(ctx)
	for i := len(reserved) - 1; i >= 0; i-- {
		r := reserved[i]
		if err := c.ledger.Release(ctx, r.productID, r.qty); err != nil {
			log.Error("Failed to release reservation",
				zap.Uint("product_id", r.productID),
				zap.Int("quantity", r.qty),
				zap.Error(err))
		}
	}
}
