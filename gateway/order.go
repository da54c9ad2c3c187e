package gateway

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/cartshop/pkg/models"
	"github.com/example/cartshop/pkg/repository"
	"github.com/example/cartshop/pkg/shop"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type checkoutRequest struct {
	Email           string                 `json:"email"`
	ShippingDetails models.ShippingDetails `json:"shipping_details"`
	PaymentMethod   string                 `json:"payment_method"`
}

type initiatePaymentRequest struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Email   string `json:"email"`
}

type initiatePaymentResponse struct {
	Reference        string `json:"reference"`
	AccessCode       string `json:"access_code"`
	AuthorizationURL string `json:"authorization_url"`
}

type stockResponse struct {
	ProductID uint `json:"product_id"`
	Available int  `json:"available"`
}

// checkout godoc
// @Summary  Turn the caller's cart into an order
// @Tags     orders
// @Accept   json
// @Produce  json
// @Param    body body checkoutRequest true "contact, shipping and payment method"
// @Success  201 {object} models.Order
// @Failure  400 {object} errorResponse
// @Router   /checkout [post]
func (g *Gateway) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	handle, ok := g.resolveCart(c)
	if !ok {
		return
	}

	creq := shop.CheckoutRequest{
		UserID:          c.GetString(ctxUserID),
		Email:           req.Email,
		ShippingDetails: req.ShippingDetails,
		PaymentMethod:   req.PaymentMethod,
	}
	// A signed-in buyer's account email wins over whatever was typed.
	if email := c.GetString(ctxUserEmail); email != "" {
		creq.Email = email
	}

	order, err := g.svc.Checkout.Run(c.Request.Context(), handle.Cart, creq)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// canSee reports whether the caller may read order. User orders belong to that
// user; guest orders are visible to whoever presents the order email.
func (g *Gateway) canSee(c *gin.Context, order *models.Order) bool {
	return ownsOrder(order, c.GetString(ctxUserID), c.Query("email"))
}

func ownsOrder(order *models.Order, userID, email string) bool {
	if order.UserID != nil {
		return *order.UserID == userID
	}
	email = strings.TrimSpace(email)
	return email != "" && strings.EqualFold(email, order.Email)
}

// listOrders godoc
// @Summary  Orders of the caller, newest first
// @Tags     orders
// @Produce  json
// @Param    email query string false "order email, required for guests"
// @Success  200 {array}  models.Order
// @Failure  400 {object} errorResponse
// @Router   /orders [get]
func (g *Gateway) listOrders(c *gin.Context) {
	filter := shop.OrderFilter{UserID: c.GetString(ctxUserID)}
	if filter.UserID == "" {
		filter.Email = c.Query("email")
	}
	orders, err := g.svc.Payments.Orders(c.Request.Context(), filter)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (g *Gateway) loadOrder(c *gin.Context, id uint) (*models.Order, bool) {
	ctx := c.Request.Context()
	if g.orders != nil {
		order, err := g.orders.Get(ctx, id)
		if err == nil {
			return order, true
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			g.logger.Warn("Order cache read failed", zap.Uint("order_id", id), zap.Error(err))
		}
	}

	order, err := g.svc.Payments.Order(ctx, id)
	if err != nil {
		g.fail(c, err)
		return nil, false
	}
	if g.orders != nil {
		if err := g.orders.Set(ctx, order); err != nil {
			g.logger.Warn("Order cache write failed", zap.Uint("order_id", id), zap.Error(err))
		}
	}
	return order, true
}

// getOrder godoc
// @Summary  Order with its frozen lines
// @Tags     orders
// @Produce  json
// @Param    id    path  int    true  "order id"
// @Param    email query string false "order email, required for guest orders"
// @Success  200 {object} models.Order
// @Failure  404 {object} errorResponse
// @Router   /orders/{id} [get]
func (g *Gateway) getOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		abortJSON(c, http.StatusBadRequest, "invalid_id", "order id must be a positive integer")
		return
	}
	order, ok := g.loadOrder(c, uint(id))
	if !ok {
		return
	}
	if !g.canSee(c, order) {
		g.fail(c, shop.ErrOrderNotFound)
		return
	}
	c.JSON(http.StatusOK, order)
}

// getOrderAudit godoc
// @Summary  Audit trail of an order, newest first
// @Tags     orders
// @Produce  json
// @Param    id    path  int    true  "order id"
// @Param    email query string false "order email, required for guest orders"
// @Success  200 {array}  repository.AuditLog
// @Failure  404 {object} errorResponse
// @Router   /orders/{id}/audit [get]
func (g *Gateway) getOrderAudit(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		abortJSON(c, http.StatusBadRequest, "invalid_id", "order id must be a positive integer")
		return
	}
	order, err := g.svc.Payments.Order(c.Request.Context(), uint(id))
	if err != nil {
		g.fail(c, err)
		return
	}
	if !g.canSee(c, order) {
		g.fail(c, shop.ErrOrderNotFound)
		return
	}

	logs, err := g.audit.GetAuditLogs(c.Request.Context(), shop.EntityOrder, strconv.FormatUint(id, 10), auditLimit)
	if err != nil {
		g.logger.Error("Audit read failed", zap.Uint64("order_id", id), zap.Error(err))
		abortJSON(c, http.StatusBadGateway, "audit_unavailable", "audit trail is unavailable")
		return
	}
	c.JSON(http.StatusOK, logs)
}

// initiatePayment godoc
// @Summary  Start a gateway payment for an order awaiting payment
// @Tags     payments
// @Accept   json
// @Produce  json
// @Param    body body initiatePaymentRequest true "order id; guests also send the order email"
// @Success  200 {object} initiatePaymentResponse
// @Failure  400 {object} errorResponse
// @Failure  502 {object} errorResponse
// @Router   /payments/initiate [post]
func (g *Gateway) initiatePayment(c *gin.Context) {
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	order, err := g.svc.Payments.Order(c.Request.Context(), req.OrderID)
	if err != nil {
		g.fail(c, err)
		return
	}
	if !ownsOrder(order, c.GetString(ctxUserID), req.Email) {
		g.fail(c, shop.ErrOrderNotFound)
		return
	}

	started, err := g.svc.Payments.Initiate(c.Request.Context(), order.ID)
	if err != nil {
		g.fail(c, err)
		return
	}
	g.invalidate(c, order.ID)
	c.JSON(http.StatusOK, initiatePaymentResponse{
		Reference:        started.Reference,
		AccessCode:       started.AccessCode,
		AuthorizationURL: started.AuthorizationURL,
	})
}

// verifyPayment godoc
// @Summary  Verify a payment reference and mark its order paid
// @Tags     payments
// @Produce  json
// @Param    reference path string true "payment reference"
// @Success  200 {object} models.Order
// @Failure  400 {object} errorResponse
// @Failure  404 {object} errorResponse
// @Failure  502 {object} errorResponse
// @Router   /payments/verify/{reference} [get]
func (g *Gateway) verifyPayment(c *gin.Context) {
	order, err := g.svc.Payments.Confirm(c.Request.Context(), c.Param("reference"))
	if err != nil {
		g.fail(c, err)
		return
	}
	g.invalidate(c, order.ID)
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) invalidate(c *gin.Context, id uint) {
	if g.orders == nil {
		return
	}
	if err := g.orders.Invalidate(c.Request.Context(), id); err != nil {
		g.logger.Warn("Order cache invalidation failed", zap.Uint("order_id", id), zap.Error(err))
	}
}

// getStock godoc
// @Summary  Current availability of a product; display only, never a reservation
// @Tags     products
// @Produce  json
// @Param    id path int true "product id"
// @Success  200 {object} stockResponse
// @Failure  404 {object} errorResponse
// @Router   /products/{id}/stock [get]
func (g *Gateway) getStock(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		abortJSON(c, http.StatusBadRequest, "invalid_id", "product id must be a positive integer")
		return
	}
	n, err := g.stock.Available(c.Request.Context(), uint(id))
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stockResponse{ProductID: uint(id), Available: n})
}
