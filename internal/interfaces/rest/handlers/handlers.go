package handlers

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mhmdzlt/auto-shop2/internal/application/services"
)

// Handlers wires the HTTP surface to the application services.
type Handlers struct {
	sessionService   *services.SessionService
	reconcileService *services.ReconcileService

	webhookSecret      string
	signatureTolerance time.Duration

	logger *slog.Logger
}

func NewHandlers(
	sessionService *services.SessionService,
	reconcileService *services.ReconcileService,
	webhookSecret string,
	signatureTolerance time.Duration,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		sessionService:     sessionService,
		reconcileService:   reconcileService,
		webhookSecret:      webhookSecret,
		signatureTolerance: signatureTolerance,
		logger:             logger,
	}
}

func (h *Handlers) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.POST("/payments/intent", h.CreatePaymentIntent)
	v1.POST("/webhooks/stripe", h.HandleStripeWebhook)
}
