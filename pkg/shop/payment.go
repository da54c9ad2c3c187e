package shop

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/cartshop/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Payments drives the AwaitingPayment -> Paid transition through the
// external payment gateway. Gateway failures never touch carts or stock.
type Payments struct {
	store   Store
	gateway PaymentGateway
	audit   AuditSink
	logger  *zap.Logger
}

func NewPayments(store Store, gateway PaymentGateway, audit AuditSink, logger *zap.Logger) *Payments {
	if audit == nil {
		audit = nopAudit{}
	}
	return &Payments{store: store, gateway: gateway, audit: audit, logger: logger}
}

func (p *Payments) Order(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := p.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// Orders lists the orders of one owner, newest first. A guest must name the
// order email.
func (p *Payments) Orders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	filter.Email = strings.TrimSpace(filter.Email)
	if filter.UserID == "" && filter.Email == "" {
		return nil, ErrMissingContact
	}
	orders, err := p.store.ListOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Initiate starts a gateway payment for the order's frozen total.
func (p *Payments) Initiate(ctx context.Context, orderID uint) (*PaymentInitiation, error) {
	order, err := p.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusAwaitingPayment {
		return nil, NewValidation(CodeInvalidOrderState,
			fmt.Sprintf("order %d is %s, not %s", order.ID, order.Status, models.OrderStatusAwaitingPayment))
	}
	if order.Email == "" {
		return nil, ErrMissingContact
	}

	reference := uuid.NewString()
	started, err := p.gateway.Initiate(ctx, order.Email, order.TotalPrice, reference)
	if err != nil {
		return nil, NewExternal(CodePaymentFailed, "failed to initiate payment", err)
	}
	if started.Reference == "" {
		started.Reference = reference
	}
	if err := p.store.SetPaymentReference(ctx, order.ID, started.Reference); err != nil {
		return nil, fmt.Errorf("store payment reference: %w", err)
	}

	p.logger.Info("Payment initiated", zap.Uint("order_id", order.ID), zap.String("reference", started.Reference))
	return started, nil
}

// Confirm verifies reference with the gateway and marks the order Paid when
// the gateway reports success for the full amount.
func (p *Payments) Confirm(ctx context.Context, reference string) (*models.Order, error) {
	order, err := p.store.FindOrderByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	if order.Status == models.OrderStatusPaid {
		return order, nil
	}

	result, err := p.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, NewExternal(CodePaymentFailed, "failed to verify payment", err)
	}
	if result.Status != PaymentStatusSuccess {
		return nil, NewExternal(CodePaymentFailed, fmt.Sprintf("payment %s reported status %q", reference, result.Status), nil)
	}
	if !result.Amount.Equal(order.TotalPrice) {
		return nil, NewValidation(CodeAmountMismatch,
			fmt.Sprintf("paid amount %s does not match order total %s", result.Amount.StringFixed(2), order.TotalPrice.StringFixed(2)))
	}

	ok, err := p.store.TransitionOrder(ctx, order.ID, models.OrderStatusAwaitingPayment, models.OrderStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}
	if !ok {
		current, err := p.Order(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.OrderStatusPaid {
			return current, nil
		}
		return nil, NewValidation(CodeInvalidOrderState, fmt.Sprintf("order %d is %s", order.ID, current.Status))
	}
	order.Status = models.OrderStatusPaid

	p.logger.Info("Payment confirmed", zap.Uint("order_id", order.ID), zap.String("reference", reference))
	if err := p.audit.Record(ctx, AuditEntry{
		Action:   "payment_confirmed",
		Entity:   EntityOrder,
		EntityID: strconv.FormatUint(uint64(order.ID), 10),
		Data:     map[string]interface{}{"reference": reference, "amount": result.Amount.StringFixed(2)},
		At:       time.Now(),
	}); err != nil {
		p.logger.Warn("Failed to write audit entry", zap.Error(err))
	}
	return order, nil
}
