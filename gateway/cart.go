package gateway

import (
	"net/http"
	"strconv"

	"github.com/example/cartshop/pkg/shop"
	"github.com/gin-gonic/gin"
)

type addItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  *int `json:"quantity"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type mergeResponse struct {
	Merged bool           `json:"merged"`
	Moved  int            `json:"moved"`
	Cart   *shop.CartView `json:"cart"`
}

func (g *Gateway) respondCart(c *gin.Context, status int, handle *shop.CartHandle) {
	view, err := g.svc.Carts.View(c.Request.Context(), handle.Cart)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(status, view)
}

func itemID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		abortJSON(c, http.StatusBadRequest, "invalid_id", "item id must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

// getCart godoc
// @Summary  Current cart
// @Tags     cart
// @Produce  json
// @Success  200 {object} shop.CartView
// @Router   /cart [get]
func (g *Gateway) getCart(c *gin.Context) {
	handle, ok := g.resolveCart(c)
	if !ok {
		return
	}
	g.respondCart(c, http.StatusOK, handle)
}

// addToCart godoc
// @Summary  Add a product to the cart
// @Tags     cart
// @Accept   json
// @Produce  json
// @Param    body body addItemRequest true "product and quantity (default 1)"
// @Success  201 {object} shop.CartView
// @Failure  400 {object} errorResponse
// @Failure  404 {object} errorResponse
// @Router   /cart [post]
func (g *Gateway) addToCart(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	handle, ok := g.resolveCart(c)
	if !ok {
		return
	}
	if err := g.svc.Carts.AddItem(c.Request.Context(), handle.Cart, req.ProductID, qty); err != nil {
		g.fail(c, err)
		return
	}
	g.respondCart(c, http.StatusCreated, handle)
}

// updateCartItem godoc
// @Summary  Set a line's quantity; zero or less removes it
// @Tags     cart
// @Accept   json
// @Produce  json
// @Param    id   path int               true "cart item id"
// @Param    body body updateItemRequest true "new quantity"
// @Success  200 {object} shop.CartView
// @Router   /cart/items/{id} [put]
func (g *Gateway) updateCartItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	handle, ok := g.resolveCart(c)
	if !ok {
		return
	}
	if err := g.svc.Carts.SetQuantity(c.Request.Context(), handle.Cart, id, *req.Quantity); err != nil {
		g.fail(c, err)
		return
	}
	g.respondCart(c, http.StatusOK, handle)
}

// removeCartItem godoc
// @Summary  Remove a line from the cart
// @Tags     cart
// @Produce  json
// @Param    id path int true "cart item id"
// @Success  200 {object} shop.CartView
// @Failure  404 {object} errorResponse
// @Router   /cart/items/{id} [delete]
func (g *Gateway) removeCartItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	handle, ok := g.resolveCart(c)
	if !ok {
		return
	}
	if err := g.svc.Carts.RemoveItem(c.Request.Context(), handle.Cart, id); err != nil {
		g.fail(c, err)
		return
	}
	g.respondCart(c, http.StatusOK, handle)
}

// clearCart godoc
// @Summary  Remove every line from the cart
// @Tags     cart
// @Produce  json
// @Success  200 {object} shop.CartView
// @Router   /cart [delete]
func (g *Gateway) clearCart(c *gin.Context) {
	handle, ok := g.resolveCart(c)
	if !ok {
		return
	}
	if err := g.svc.Carts.Clear(c.Request.Context(), handle.Cart); err != nil {
		g.fail(c, err)
		return
	}
	g.respondCart(c, http.StatusOK, handle)
}

// mergeCart godoc
// @Summary  Merge the anonymous session cart into the signed-in user's cart
// @Tags     cart
// @Produce  json
// @Security BearerAuth
// @Success  200 {object} mergeResponse
// @Failure  401 {object} errorResponse
// @Router   /cart/merge [post]
func (g *Gateway) mergeCart(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	if userID == "" {
		abortJSON(c, http.StatusUnauthorized, "unauthorized", "sign in to merge carts")
		return
	}

	result, err := g.svc.Merger.MergeOnLogin(c.Request.Context(), userID, c.GetString(ctxSessionToken))
	if err != nil {
		g.fail(c, err)
		return
	}
	if result.Merged {
		g.clearSession(c)
	}

	view, err := g.svc.Carts.View(c.Request.Context(), result.Cart)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mergeResponse{Merged: result.Merged, Moved: result.Moved, Cart: view})
}
