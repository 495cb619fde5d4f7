package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"restaurant-ledger/internal/apperr"
	"restaurant-ledger/internal/service"
	"restaurant-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// IdempotencyHeader carries a client-chosen key for retry-safe writes
const IdempotencyHeader = "Idempotency-Key"

// ReadyCheck reports whether a backing dependency can serve requests
type ReadyCheck func(ctx context.Context) error

// Handler contains HTTP handlers
type Handler struct {
	stock   *service.StockService
	kitchen *service.KitchenService
	orders  *service.OrderService
	checks  map[string]ReadyCheck
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler. checks are run by /ready, keyed by
// dependency name.
func NewHandler(
	stock *service.StockService,
	kitchen *service.KitchenService,
	orders *service.OrderService,
	checks map[string]ReadyCheck,
) *Handler {
	return &Handler{
		stock:   stock,
		kitchen: kitchen,
		orders:  orders,
		checks:  checks,
		logger:  util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/products/:id/available", h.availableQuantity)
		v1.POST("/products/:id/reserve", h.reserve)
		v1.POST("/products/:id/release", h.release)
		v1.POST("/products/:id/commit", h.commit)

		v1.GET("/dishes", h.listDishes)
		v1.GET("/dishes/:id/portions", h.portions)
		v1.POST("/dishes/:id/portions", h.addPortions)
		v1.GET("/dishes/:id/requirements", h.requirements)
		v1.POST("/dishes/:id/ingredients", h.addIngredient)

		v1.POST("/orders", h.openOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.GET("/orders/:id/total", h.totalPrice)
		v1.POST("/orders/:id/items", h.addItem)
		v1.PUT("/orders/:id/items/:dish_id", h.updateItem)
		v1.DELETE("/orders/:id/items/:dish_id", h.removeItem)
		v1.POST("/orders/:id/complete", h.completeOrder)

		v1.GET("/tables/:id", h.getTable)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when every dependency answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// writeError renders err with the status its code maps to. Messages of
// internal errors stay in the log.
func (h *Handler) writeError(c *gin.Context, err error) {
	typed := apperr.As(err)
	if typed == nil {
		typed = apperr.Wrap(apperr.CodeInternal, err, "unexpected error")
	}
	meta := apperr.MetadataFor(typed.Code())

	body := gin.H{"code": typed.Code()}
	if meta.HTTPStatus >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		body["message"] = meta.PublicMessage
	} else {
		body["message"] = typed.Message()
	}
	if meta.DetailsAllowed && typed.Details() != nil {
		body["details"] = typed.Details()
	}

	c.AbortWithStatusJSON(meta.HTTPStatus, gin.H{"error": body})
}

func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.writeError(c, apperr.New(apperr.CodeValidation, "invalid request body").WithDetails(err.Error()))
		return false
	}
	return true
}

func (h *Handler) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(c, apperr.Newf(apperr.CodeValidation, "invalid %s %q", name, c.Param(name)))
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

// requestLogger writes one structured line per request
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
