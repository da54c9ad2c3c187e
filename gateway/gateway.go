package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/example/cartshop/pkg/config"
	"github.com/example/cartshop/pkg/models"
	"github.com/example/cartshop/pkg/repository"
	"github.com/example/cartshop/pkg/shop"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/example/cartshop/docs"
)

// OrderCache is the read-through cache for GET /orders/:id.
type OrderCache interface {
	Get(ctx context.Context, id uint) (*models.Order, error)
	Set(ctx context.Context, order *models.Order) error
	Invalidate(ctx context.Context, id uint) error
}

// StockReader answers display-only availability queries.
type StockReader interface {
	Available(ctx context.Context, productID uint) (int, error)
}

// AuditReader reads the audit trail recorded for an entity.
type AuditReader interface {
	GetAuditLogs(ctx context.Context, entity, entityID string, limit int64) ([]*repository.AuditLog, error)
}

const auditLimit = 50

type Option func(*Gateway)

func WithOrderCache(cache OrderCache) Option {
	return func(g *Gateway) { g.orders = cache }
}

// WithAuditReader enables GET /orders/:id/audit.
func WithAuditReader(reader AuditReader) Option {
	return func(g *Gateway) { g.audit = reader }
}

// WithStockReader serves availability from reader instead of the local ledger.
func WithStockReader(reader StockReader) Option {
	return func(g *Gateway) { g.stock = reader }
}

type Gateway struct {
	config *config.Config
	svc    *shop.Service
	orders OrderCache
	stock  StockReader
	audit  AuditReader
	logger *zap.Logger
	router *gin.Engine
	server *http.Server
}

func NewGateway(cfg *config.Config, logger *zap.Logger, svc *shop.Service, opts ...Option) *Gateway {
	if cfg.Gateway.Mode != "" {
		gin.SetMode(cfg.Gateway.Mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Gateway.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", cfg.Session.Header},
		ExposeHeaders:    []string{"Content-Length", cfg.Session.Header},
		AllowCredentials: !containsWildcard(cfg.Gateway.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))

	g := &Gateway{
		config: cfg,
		svc:    svc,
		stock:  svc.Ledger,
		logger: logger,
		router: router,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func (g *Gateway) SetupRoutes() {
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := g.router.Group("/api/v1")
	v1.Use(g.identityMiddleware())
	{
		cart := v1.Group("/cart")
		{
			cart.GET("", g.getCart)
			cart.POST("", g.addToCart)
			cart.DELETE("", g.clearCart)
			cart.PUT("/items/:id", g.updateCartItem)
			cart.DELETE("/items/:id", g.removeCartItem)
			cart.POST("/merge", g.mergeCart)
		}

		v1.POST("/checkout", g.checkout)
		v1.GET("/orders", g.listOrders)
		v1.GET("/orders/:id", g.getOrder)
		if g.audit != nil {
			v1.GET("/orders/:id/audit", g.getOrderAudit)
		}
		v1.GET("/products/:id/stock", g.getStock)

		payments := v1.Group("/payments")
		{
			payments.POST("/initiate", g.initiatePayment)
			payments.GET("/verify/:reference", g.verifyPayment)
		}
	}

	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Handler exposes the router, mainly for tests.
func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) Start() error {
	addr := g.config.Gateway.Addr()
	g.server = &http.Server{
		Addr:              addr,
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.logger.Info("Gateway starting", zap.String("address", addr))
	return g.server.ListenAndServe()
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if kind, ok := c.Get(ctxIdentityKind); ok {
			fields = append(fields, zap.String("identity", kind.(string)))
		}
		logger.Info("HTTP request", fields...)
	}
}
