package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/affilync/bigcommerce-bridge/internal/affilync"
	"github.com/affilync/bigcommerce-bridge/internal/api"
	"github.com/affilync/bigcommerce-bridge/internal/bigcommerce"
	"github.com/affilync/bigcommerce-bridge/internal/config"
	"github.com/affilync/bigcommerce-bridge/internal/conversion"
	"github.com/affilync/bigcommerce-bridge/internal/database"
	"github.com/affilync/bigcommerce-bridge/internal/domain"
	"github.com/affilync/bigcommerce-bridge/internal/oauth"
	"github.com/affilync/bigcommerce-bridge/internal/productsync"
	"github.com/affilync/bigcommerce-bridge/internal/repository"
	"github.com/affilync/bigcommerce-bridge/internal/store"
	"github.com/affilync/bigcommerce-bridge/internal/vault"
	"github.com/affilync/bigcommerce-bridge/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// catalogFactory adapts the per-store gateway to the product sync service.
type catalogFactory struct {
	gateway *bigcommerce.Gateway
}

func (f catalogFactory) ForStore(s *domain.Store) (productsync.Catalog, error) {
	return f.gateway.ForStore(s)
}

func run() error {
	// .env is optional layering on top of real environment variables
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting BigCommerce bridge",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
	)

	// Database pool
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	// Core infrastructure
	tokenVault := vault.New(cfg.EncryptionKey)

	bcConfig := bigcommerce.DefaultConfig()
	bcConfig.APIURL = cfg.BCAPIURL
	bcConfig.AuthURL = cfg.BCAuthURL
	bcConfig.ClientID = cfg.BCClientID
	bcConfig.Secret = cfg.BCClientSecret
	bcClient := bigcommerce.NewClient(bcConfig)

	afConfig := affilync.DefaultConfig()
	afConfig.BaseURL = cfg.AffilyncAPIURL
	afConfig.APIKey = cfg.AffilyncAPIKey
	afClient := affilync.NewClient(afConfig)

	// Repositories
	storeRepo := repository.NewStoreRepository(pool)
	eventRepo := repository.NewWebhookEventRepository(pool)
	productRepo := repository.NewProductRepository(pool)

	// Services
	gateway := bigcommerce.NewGateway(bcClient, tokenVault)
	storeService := store.NewService(storeRepo, tokenVault, bcClient, cfg.WebhookCallbackURL, logger)
	conversionService := conversion.NewService(afClient, logger)
	productService := productsync.NewService(productRepo, catalogFactory{gateway: gateway}, afClient, logger)

	policy := webhook.NewStatusPolicy(cfg.ConversionStatusIDs, cfg.RefundStatusIDs)
	webhookRouter := webhook.NewRouter(
		storeService,
		eventRepo,
		gateway,
		conversionService,
		productService,
		storeService,
		policy,
		logger,
	)

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		Config:            cfg,
		DB:                pool,
		StoreService:      storeService,
		ProductService:    productService,
		ConversionService: conversionService,
		EventRepo:         eventRepo,
		WebhookRouter:     webhookRouter,
		Affilync:          afClient,
		BCClient:          bcClient,
		States:            oauth.NewPGStateStore(pool),
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	<-shutdownCtx.Done()
	logger.Info("server stopped")

	return nil
}
