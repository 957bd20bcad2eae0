package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/momiji-market/bff/internal/handlers"
	"github.com/momiji-market/bff/internal/payments"
	"github.com/momiji-market/bff/internal/platform/config"
	"github.com/momiji-market/bff/internal/platform/observability"
	"github.com/momiji-market/bff/internal/services"
	"github.com/momiji-market/bff/internal/storeapi"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("bff")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	clientOpts := []storeapi.Option{
		storeapi.WithTimeout(cfg.Upstream.Timeout),
	}
	if token := strings.TrimSpace(cfg.Upstream.ServiceToken); token != "" {
		clientOpts = append(clientOpts, storeapi.WithTokenSource(storeapi.StaticTokenSource(token)))
	}
	storeClient, err := storeapi.New(cfg.Upstream.BaseURL, clientOpts...)
	if err != nil {
		logger.Fatal("failed to initialise commerce api client", zap.Error(err))
	}

	eventLogger := observability.EventLogger()

	var refundProvider payments.Provider
	if key := strings.TrimSpace(cfg.PSP.StripeAPIKey); key != "" {
		stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey: key,
			Logger: eventLogger,
			Clock:  time.Now,
		})
		if err != nil {
			logger.Fatal("failed to initialise stripe refund provider", zap.Error(err))
		}
		refundProvider = stripeProvider
	} else {
		logger.Warn("stripe api key not configured; refund requests will be rejected")
	}

	lifecycleService, err := services.NewOrderLifecycleService(services.OrderLifecycleDeps{
		Gateway: storeClient,
		Refunds: refundProvider,
		Clock:   time.Now,
		Logger:  eventLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise order lifecycle service", zap.Error(err))
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
		handlers.ForwardBearerToken(),
	}

	opts := []handlers.Option{
		handlers.WithMiddlewares(middlewares...),
		handlers.WithOrderRoutes(handlers.NewOrderHandlers(lifecycleService).Routes),
	}

	if cfg.Features.EnableReviews {
		reviewService, err := services.NewReviewService(services.ReviewDeps{
			Reviews: storeClient,
			Orders:  storeClient,
			Logger:  eventLogger,
		})
		if err != nil {
			logger.Fatal("failed to initialise review service", zap.Error(err))
		}
		opts = append(opts, handlers.WithReviewRoutes(handlers.NewReviewHandlers(reviewService).Routes))
	}

	if cfg.Features.EnableFavorites {
		favoriteService, err := services.NewFavoriteService(services.FavoriteDeps{
			Gateway: storeClient,
			Logger:  eventLogger,
		})
		if err != nil {
			logger.Fatal("failed to initialise favorite service", zap.Error(err))
		}
		opts = append(opts, handlers.WithFavoriteRoutes(handlers.NewFavoriteHandlers(favoriteService).Routes))
	}

	router := handlers.NewRouter(opts...)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("momiji-market bff listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
