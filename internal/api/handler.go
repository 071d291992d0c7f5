package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/sse"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services groups the business services the HTTP layer exposes
type Services struct {
	Catalog       *service.CatalogService
	Carts         *service.CartService
	Checkout      *service.CheckoutService
	Orders        *service.OrderService
	Verifications *service.VerificationService
	Tickets       *service.TicketService
	Accounts      *service.AccountService
	Notifications *service.NotificationService
	Auth          *service.AdminAuthService
	Customers     *service.CustomerAuthService
}

// Pinger is a dependency checked by the readiness endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	svc    Services
	hub    *sse.Hub
	checks map[string]Pinger
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, hub *sse.Hub, checks map[string]Pinger) *Handler {
	return &Handler{
		svc:    svc,
		hub:    hub,
		checks: checks,
		logger: util.Named("api"),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)

		v1.POST("/carts", h.createCart)
		v1.GET("/carts/:id", h.getCart)
		v1.POST("/carts/:id/items", h.addCartItem)
		v1.PUT("/carts/:id/items", h.setCartQuantity)
		v1.DELETE("/carts/:id", h.clearCart)

		v1.POST("/checkout", h.startCheckout)
		v1.GET("/checkout/:id", h.getCheckout)
		v1.POST("/checkout/:id/details", h.submitDetails)
		v1.POST("/checkout/:id/method", h.chooseMethod)
		v1.POST("/checkout/:id/payment", h.submitPayment)

		v1.GET("/orders/:id", h.trackOrder)
		v1.POST("/orders/:id/payment", h.resubmitPayment)

		v1.GET("/plans", h.listPlans)
		v1.POST("/subscriptions", h.submitSubscription)

		v1.POST("/tickets", h.createTicket)

		v1.POST("/auth/code", h.requestLoginCode)
		v1.POST("/auth/verify", h.verifyLoginCode)

		profiles := v1.Group("/profiles/:phone", h.customerMiddleware())
		profiles.GET("", h.getProfile)
		profiles.PUT("", h.updateProfile)
		profiles.DELETE("", h.deleteAccount)
		profiles.GET("/premium/:productId", h.premiumDelivery)
	}

	admin := v1.Group("/admin")
	admin.POST("/login", h.login)
	// EventSource cannot send headers, so the feed authenticates by query token.
	admin.GET("/feed", h.feed)

	authed := admin.Group("", h.authMiddleware())
	{
		authed.GET("/products", h.adminListProducts)
		authed.GET("/products/:id", h.adminGetProduct)
		authed.POST("/products", h.createProduct)
		authed.PUT("/products/:id", h.updateProduct)
		authed.DELETE("/products/:id", h.deleteProduct)

		authed.GET("/orders", h.listOrders)
		authed.GET("/orders/:id", h.getOrder)
		authed.GET("/orders/:id/events", h.listOrderEvents)
		authed.POST("/orders/:id/ship", h.shipOrder)
		authed.POST("/orders/:id/advance", h.advanceOrder)

		authed.GET("/verifications", h.listVerifications)
		authed.GET("/verifications/:id", h.getVerification)
		authed.POST("/verifications/:id/approve", h.approveVerification)
		authed.POST("/verifications/:id/reject", h.rejectVerification)

		authed.GET("/tickets", h.listTickets)
		authed.POST("/tickets/:id/toggle", h.toggleTicket)
		authed.PUT("/tickets/:id/status", h.setTicketStatus)

		authed.GET("/notifications", h.listNotifications)
		authed.POST("/notifications/:id/retry", h.retryNotification)
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
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": failed,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps domain errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *models.ValidationError
	var uerr *models.UploadError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"field":   verr.Field,
			"details": verr.Message,
		})
		return
	case errors.As(err, &uerr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Screenshot upload failed, please try again",
			"details": uerr.Error(),
		})
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	switch {
	case errors.Is(err, models.ErrNotFound):
		status, message = http.StatusNotFound, "Not found"
	case errors.Is(err, models.ErrAlreadyResolved),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrInvalidPhase),
		errors.Is(err, models.ErrDuplicatePending),
		errors.Is(err, models.ErrConcurrentRequest):
		status, message = http.StatusConflict, "Conflict"
	case errors.Is(err, models.ErrEmptyCart),
		errors.Is(err, models.ErrConfirmationRequired):
		status, message = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, models.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, models.ErrPremiumRequired),
		errors.Is(err, models.ErrForbidden):
		status, message = http.StatusForbidden, "Forbidden"
	case errors.Is(err, models.ErrTooManyRequests):
		status, message = http.StatusTooManyRequests, "Too Many Requests"
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": message})
		return
	}
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

// badRequest reports a body that could not be bound
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
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
