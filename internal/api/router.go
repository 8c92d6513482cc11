package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"

	swagger "github.com/go-swagno/swagno-fiber/swagger"

	"github.com/affilync/bigcommerce-bridge/internal/affilync"
	"github.com/affilync/bigcommerce-bridge/internal/api/docs"
	"github.com/affilync/bigcommerce-bridge/internal/api/handler"
	"github.com/affilync/bigcommerce-bridge/internal/api/middleware"
	"github.com/affilync/bigcommerce-bridge/internal/bigcommerce"
	"github.com/affilync/bigcommerce-bridge/internal/config"
	"github.com/affilync/bigcommerce-bridge/internal/conversion"
	"github.com/affilync/bigcommerce-bridge/internal/oauth"
	"github.com/affilync/bigcommerce-bridge/internal/productsync"
	"github.com/affilync/bigcommerce-bridge/internal/ratelimit"
	"github.com/affilync/bigcommerce-bridge/internal/repository"
	"github.com/affilync/bigcommerce-bridge/internal/store"
	"github.com/affilync/bigcommerce-bridge/internal/webhook"
)

type Dependencies struct {
	Config            *config.Config
	DB                *pgxpool.Pool
	StoreService      *store.Service
	ProductService    *productsync.Service
	ConversionService *conversion.Service
	EventRepo         *repository.WebhookEventRepository
	WebhookRouter     *webhook.Router
	Affilync          *affilync.Client
	BCClient          *bigcommerce.Client
	States            oauth.StateStore
}

type Router struct {
	app    *fiber.App
	logger *slog.Logger
	deps   *Dependencies
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Affilync BigCommerce Bridge",
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Swagger documentation (no auth required)
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints (no auth required)
	var pinger handler.Pinger
	if r.deps != nil && r.deps.DB != nil {
		pinger = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(pinger)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	cfg := r.deps.Config
	verifier := bigcommerce.NewSignedPayloadVerifier(cfg.BCClientID, cfg.BCClientSecret)

	// Webhook ingestion (HMAC admission, no store auth)
	webhookHandler := handler.NewWebhookHandler(cfg.BCClientSecret, r.deps.WebhookRouter, r.logger)
	r.app.Post("/webhooks/bigcommerce", webhookHandler.Receive)

	// OAuth install flow and platform callbacks
	oauthHandler := handler.NewOAuthHandler(
		handler.OAuthConfig{
			ClientID: cfg.BCClientID,
			AuthURL:  cfg.BCAuthURL,
			AppURL:   cfg.AppURL,
		},
		r.deps.BCClient,
		r.deps.StoreService,
		r.deps.States,
		verifier,
		r.logger,
	)
	oauthGroup := r.app.Group("/oauth")
	oauthGroup.Get("/auth", oauthHandler.Auth)
	oauthGroup.Get("/callback", oauthHandler.Callback)
	oauthGroup.Get("/load", oauthHandler.Load)
	oauthGroup.Get("/uninstall", oauthHandler.Uninstall)
	oauthGroup.Get("/remove-user", oauthHandler.RemoveUser)

	// API v1 group with store authentication
	v1 := r.app.Group("/v1")
	v1.Use(middleware.StoreAuth(middleware.AuthConfig{
		Stores:            r.deps.StoreService,
		Verifier:          verifier,
		AllowHashFallback: cfg.IsDevelopment(),
	}))

	// Rate limiting (per store) - must come after auth to have store context
	limiter := ratelimit.NewRateLimiter(r.deps.DB, time.Minute)
	v1.Use(middleware.RateLimit(limiter, middleware.DefaultRateLimitMax, r.logger))

	// Store routes
	storeHandler := handler.NewStoreHandler(r.deps.StoreService, r.deps.Affilync, r.logger)
	v1.Get("/store", storeHandler.Info)
	v1.Post("/store/connect", storeHandler.ConnectBrand)
	v1.Post("/store/disconnect", storeHandler.DisconnectBrand)
	v1.Put("/store/settings", storeHandler.UpdateSettings)
	v1.Get("/analytics", storeHandler.Analytics)

	// Product routes
	productHandler := handler.NewProductHandler(r.deps.ProductService, r.logger)
	v1.Get("/products", productHandler.List)
	v1.Post("/products/sync", productHandler.SyncAll)

	// Webhook delivery history
	eventsHandler := handler.NewEventsHandler(r.deps.EventRepo)
	v1.Get("/events", eventsHandler.List)

	// Order attribution lookup
	orderHandler := handler.NewOrderHandler(r.deps.ConversionService)
	v1.Get("/orders/:order_id/attribution", orderHandler.Attribution)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	return r.app.Shutdown()
}
