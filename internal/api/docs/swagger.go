package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// WebhookAckResponse represents the acknowledgment returned to the platform
type WebhookAckResponse struct {
	Status string `json:"status" example:"processed"`
	Reason string `json:"reason,omitempty" example:""`
}

// StoreInfoResponse represents the authenticated store profile
type StoreInfoResponse struct {
	StoreHash   string                 `json:"store_hash" example:"abc123"`
	Name        string                 `json:"name" example:"Acme Outdoor Gear"`
	Domain      string                 `json:"domain" example:"store.acme.com"`
	IsActive    bool                   `json:"is_active" example:"true"`
	IsConnected bool                   `json:"is_connected" example:"true"`
	BrandID     string                 `json:"brand_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Settings    map[string]interface{} `json:"settings"`
	InstalledAt string                 `json:"installed_at" example:"2024-01-01T00:00:00Z"`
}

// ConnectBrandRequest links the store to an Affilync brand
type ConnectBrandRequest struct {
	BrandID string `json:"brand_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// ConnectBrandResponse confirms the brand connection
type ConnectBrandResponse struct {
	Status  string `json:"status" example:"connected"`
	BrandID string `json:"brand_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// SettingsRequest updates per-store settings
type SettingsRequest struct {
	AutoSyncProducts   bool   `json:"auto_sync_products" example:"true"`
	CookieDurationDays int    `json:"cookie_duration_days" example:"30"`
	AttributionModel   string `json:"attribution_model" example:"last_click"`
}

// SettingsResponse returns the merged settings
type SettingsResponse struct {
	Status   string                 `json:"status" example:"updated"`
	Settings map[string]interface{} `json:"settings"`
}

// AnalyticsResponse summarizes conversion activity for the store's brand
type AnalyticsResponse struct {
	Connected        bool    `json:"connected" example:"true"`
	Period           string  `json:"period" example:"30d"`
	TotalConversions int64   `json:"total_conversions" example:"128"`
	TotalRevenue     float64 `json:"total_revenue" example:"12890.55"`
	TotalCommission  float64 `json:"total_commission" example:"644.52"`
}

// ProductSummary represents one mirrored catalog product
type ProductSummary struct {
	ID                string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	PlatformProductID int64   `json:"bc_product_id" example:"112"`
	Title             string  `json:"title" example:"Trail Running Shoes"`
	Price             float64 `json:"price" example:"89.90"`
	Currency          string  `json:"currency" example:"USD"`
	IsSynced          bool    `json:"is_synced" example:"true"`
}

// ProductListResponse is a page of mirrored products
type ProductListResponse struct {
	Products []ProductSummary `json:"products"`
	Total    int64            `json:"total" example:"240"`
	Limit    int              `json:"limit" example:"50"`
	Offset   int              `json:"offset" example:"0"`
}

// SyncStatsData summarizes a full catalog sync run
type SyncStatsData struct {
	Total            int `json:"total" example:"240"`
	Created          int `json:"created" example:"12"`
	Updated          int `json:"updated" example:"228"`
	SyncedToAffilync int `json:"synced_to_affilync" example:"240"`
}

// SyncAllResponse is the full-sync result
type SyncAllResponse struct {
	Status string        `json:"status" example:"completed"`
	Stats  SyncStatsData `json:"stats"`
}

// EventSummary represents one recorded webhook delivery
type EventSummary struct {
	ID          string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Scope       string `json:"scope" example:"store/order/statusUpdated"`
	Status      string `json:"status" example:"processed"`
	PayloadHash string `json:"payload_hash" example:"1f1bd21b6d2afd2ad7545a1c47988c9f"`
	ReceivedAt  string `json:"received_at" example:"2024-01-01T00:00:00Z"`
}

// EventListResponse is a page of webhook deliveries
type EventListResponse struct {
	Events []EventSummary `json:"events"`
	Total  int64          `json:"total" example:"1042"`
	Limit  int            `json:"limit" example:"50"`
	Offset int            `json:"offset" example:"0"`
}

// OrderAttributionResponse reports affiliate attribution for one order
type OrderAttributionResponse struct {
	OrderID    int64                  `json:"order_id" example:"10042"`
	Attributed bool                   `json:"attributed" example:"true"`
	Conversion map[string]interface{} `json:"conversion,omitempty"`
}

// HealthResponse reports service health
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version" example:"0.1.0"`
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Affilync BigCommerce Bridge API",
		Version:     "v1.0.0",
		Description: "Integration bridge between BigCommerce stores and the Affilync affiliate tracking platform: webhook ingestion, conversion tracking and catalog sync",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /webhooks/bigcommerce - Webhook ingestion
		endpoint.New(
			endpoint.POST,
			"/webhooks/bigcommerce",
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Receive a BigCommerce webhook"),
			endpoint.WithDescription("Verifies the HMAC signature, records the delivery on the idempotency ledger and dispatches it by scope. Everything past admission is acknowledged with 200."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(WebhookAckResponse{}, "200", "Delivery acknowledged"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_PAYLOAD", Message: "Invalid JSON payload"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "INVALID_SIGNATURE", Message: "Webhook signature verification failed"}, "401", "Unauthorized"),
			}),
		),

		// GET /v1/store - Store info
		endpoint.New(
			endpoint.GET,
			"/store",
			endpoint.WithTags("Store"),
			endpoint.WithSummary("Get the authenticated store"),
			endpoint.WithDescription("Returns the store profile, brand connection state and settings"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StoreInfoResponse{}, "200", "Store retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing credentials"}, "401", "Unauthorized"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"SignedPayloadAuth": {}}}),
		),

		// POST /v1/store/connect - Connect brand
		endpoint.New(
			endpoint.POST,
			"/store/connect",
			endpoint.WithTags("Store"),
			endpoint.WithSummary("Connect the store to an Affilync brand"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(ConnectBrandRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ConnectBrandResponse{}, "200", "Brand connected"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing credentials"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"SignedPayloadAuth": {}}}),
		),

		// POST /v1/store/disconnect - Disconnect brand
		endpoint.New(
			endpoint.POST,
			"/store/disconnect",
			endpoint.WithTags("Store"),
			endpoint.WithSummary("Disconnect the store from its brand"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ConnectBrandResponse{Status: "disconnected"}, "200", "Brand disconnected"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing credentials"}, "401", "Unauthorized"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"SignedPayloadAuth": {}}}),
		),

		// PUT /v1/store/settings - Update settings
		endpoint.New(
			endpoint.PUT,
			"/store/settings",
			endpoint.WithTags("Store"),
			endpoint.WithSummary("Update store settings"),
			endpoint.WithDescription("Merges the provided keys into the store settings; absent keys are kept"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(SettingsRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SettingsResponse{}, "200", "Settings updated"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing credentials"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"SignedPayloadAuth": {}}}),
		),

		// GET /v1/analytics - Conversion analytics
		endpoint.New(
			endpoint.GET,
			"/analytics",
			endpoint.WithTags("Analytics"),
			endpoint.WithSummary("Get conversion analytics"),
			endpoint.WithDescription("Returns conversion counters from the affiliate backend. Unconnected stores and backend failures report zeros."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("period", parameter.Query, parameter.WithDescription("Reporting period (default: 30d)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AnalyticsResponse{}, "200", "Analytics retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing credentials"}, "401", "Unauthorized"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"SignedPayloadAuth": {}}}),
		),

		// GET /v1/products - List mirrored products
		endpoint.New(
			endpoint.GET,
			"/products",
			endpoint.WithTags("Products"),
			endpoint.WithSummary("List mirrored catalog products"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Page size (1-200, default: 50)")),
				parameter.IntParam("offset", parameter.Query, parameter.WithDescription("Page offset")),
				parameter.StrParam("synced_only", parameter.Query, parameter.WithDescription("Only products pushed to Affilync")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ProductListResponse{}, "200", "Products retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing credentials"}, "401", "Unauthorized"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"SignedPayloadAuth": {}}}),
		),

		// POST /v1/products/sync - Full catalog sync
		endpoint.New(
			endpoint.POST,
			"/products/sync",
			endpoint.WithTags("Products"),
			endpoint.WithSummary("Sync the full catalog"),
			endpoint.WithDescription("Pulls every visible product from BigCommerce and pushes it to the affiliate backend. Requires a connected brand."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SyncAllResponse{}, "200", "Sync completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing credentials"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "FORBIDDEN", Message: "Access denied"}, "403", "Forbidden"),
				response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"SignedPayloadAuth": {}}}),
		),

		// GET /v1/events - Webhook delivery history
		endpoint.New(
			endpoint.GET,
			"/events",
			endpoint.WithTags("Events"),
			endpoint.WithSummary("List webhook deliveries"),
			endpoint.WithDescription("Returns the store's recorded webhook deliveries, newest first"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Page size (1-200, default: 50)")),
				parameter.IntParam("offset", parameter.Query, parameter.WithDescription("Page offset")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EventListResponse{}, "200", "Events retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing credentials"}, "401", "Unauthorized"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"SignedPayloadAuth": {}}}),
		),

		// GET /v1/orders/:order_id/attribution - Order attribution
		endpoint.New(
			endpoint.GET,
			"/orders/{order_id}/attribution",
			endpoint.WithTags("Orders"),
			endpoint.WithSummary("Get affiliate attribution for an order"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("order_id", parameter.Path, parameter.WithDescription("BigCommerce order id")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(OrderAttributionResponse{}, "200", "Attribution retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing credentials"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"SignedPayloadAuth": {}}}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
