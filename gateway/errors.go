package gateway

import (
	"errors"
	"net/http"

	"github.com/example/cartshop/pkg/shop"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	ProductID uint   `json:"product_id,omitempty"`
}

func statusFor(kind shop.Kind) int {
	switch kind {
	case shop.KindValidation, shop.KindInsufficientStock:
		return http.StatusBadRequest
	case shop.KindNotFound:
		return http.StatusNotFound
	case shop.KindConflict:
		return http.StatusConflict
	case shop.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (g *Gateway) fail(c *gin.Context, err error) {
	var se *shop.Error
	if errors.As(err, &se) {
		if se.Kind == shop.KindExternal || se.Kind == shop.KindConflict {
			g.logger.Warn("Request failed", zap.String("code", se.Code), zap.Error(err))
		}
		c.AbortWithStatusJSON(statusFor(se.Kind), errorResponse{
			Error:     se.Message,
			Code:      se.Code,
			ProductID: se.ProductID,
		})
		return
	}

	g.logger.Error("Unexpected error", zap.String("path", c.Request.URL.Path), zap.Error(err))
	abortJSON(c, http.StatusInternalServerError, "internal", "internal server error")
}

func abortJSON(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: message, Code: code})
}
