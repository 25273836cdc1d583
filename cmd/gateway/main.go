package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mhmdzlt/auto-shop2/internal/application/services"
	"github.com/mhmdzlt/auto-shop2/internal/config"
	"github.com/mhmdzlt/auto-shop2/internal/infrastructure/persistence/postgres"
	"github.com/mhmdzlt/auto-shop2/internal/infrastructure/stripe"
	"github.com/mhmdzlt/auto-shop2/internal/interfaces/rest/handlers"
	"github.com/mhmdzlt/auto-shop2/internal/interfaces/rest/middleware"
	"github.com/mhmdzlt/auto-shop2/internal/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting gateway service",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	txRepo := postgres.NewTransactionRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	journal := postgres.NewEventJournal(db)

	gatewayClient := stripe.NewClient(cfg.Stripe, logger)

	sessionService := services.NewSessionService(gatewayClient, txRepo, cfg.Stripe.PublishableKey, logger)
	reconcileService := services.NewReconcileService(txRepo, orderRepo, journal, logger)

	h := handlers.NewHandlers(
		sessionService,
		reconcileService,
		cfg.Stripe.WebhookSecret,
		cfg.Stripe.SignatureTolerance,
		logger,
	)

	if cfg.Primary.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Use(metrics.PrometheusMiddleware())

	h.RegisterRoutes(router)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
