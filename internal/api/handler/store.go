package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/affilync/bigcommerce-bridge/internal/api/middleware"
	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

// StoreService is the settings and brand-connection surface.
type StoreService interface {
	UpdateSettings(ctx context.Context, storeID uuid.UUID, updates map[string]interface{}) (*domain.Store, error)
	ConnectBrand(ctx context.Context, storeID, brandID uuid.UUID) (*domain.Store, error)
	DisconnectBrand(ctx context.Context, storeID uuid.UUID) (*domain.Store, error)
}

// UsageSource reports aggregate conversion counters from the affiliate
// backend.
type UsageSource interface {
	GetBrandUsage(ctx context.Context, brandID, period string) (map[string]interface{}, error)
}

type StoreHandler struct {
	service StoreService
	usage   UsageSource
	logger  *slog.Logger
}

func NewStoreHandler(service StoreService, usage UsageSource, logger *slog.Logger) *StoreHandler {
	return &StoreHandler{
		service: service,
		usage:   usage,
		logger:  logger,
	}
}

type StoreInfoResponse struct {
	StoreHash   string                 `json:"store_hash"`
	Name        string                 `json:"name,omitempty"`
	Domain      string                 `json:"domain,omitempty"`
	IsActive    bool                   `json:"is_active"`
	IsConnected bool                   `json:"is_connected"`
	BrandID     *uuid.UUID             `json:"brand_id,omitempty"`
	Settings    map[string]interface{} `json:"settings"`
	InstalledAt string                 `json:"installed_at"`
}

// Info returns the authenticated store's profile and connection state.
func (h *StoreHandler) Info(c *fiber.Ctx) error {
	s, err := middleware.GetStore(c)
	if err != nil {
		return err
	}

	return c.JSON(StoreInfoResponse{
		StoreHash:   s.StoreHash,
		Name:        s.Name,
		Domain:      s.Domain,
		IsActive:    s.IsActive,
		IsConnected: s.IsConnected(),
		BrandID:     s.BrandID,
		Settings:    s.Settings,
		InstalledAt: s.InstalledAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

type ConnectBrandRequest struct {
	BrandID string `json:"brand_id"`
}

// ConnectBrand links the store to an Affilync brand account.
func (h *StoreHandler) ConnectBrand(c *fiber.Ctx) error {
	storeID, err := middleware.GetStoreID(c)
	if err != nil {
		return err
	}

	var req ConnectBrandRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	brandID, err := uuid.Parse(req.BrandID)
	if err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	s, err := h.service.ConnectBrand(c.Context(), storeID, brandID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":   "connected",
		"brand_id": s.BrandID,
	})
}

// DisconnectBrand unlinks the store from its brand account.
func (h *StoreHandler) DisconnectBrand(c *fiber.Ctx) error {
	storeID, err := middleware.GetStoreID(c)
	if err != nil {
		return err
	}

	if _, err := h.service.DisconnectBrand(c.Context(), storeID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "disconnected"})
}

type SettingsRequest struct {
	AutoSyncProducts   *bool   `json:"auto_sync_products"`
	CookieDurationDays *int    `json:"cookie_duration_days"`
	AttributionModel   *string `json:"attribution_model"`
}

// UpdateSettings merges the provided settings keys; absent keys are kept.
func (h *StoreHandler) UpdateSettings(c *fiber.Ctx) error {
	storeID, err := middleware.GetStoreID(c)
	if err != nil {
		return err
	}

	var req SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	updates := map[string]interface{}{}
	if req.AutoSyncProducts != nil {
		updates["auto_sync_products"] = *req.AutoSyncProducts
	}
	if req.CookieDurationDays != nil {
		if *req.CookieDurationDays < 1 || *req.CookieDurationDays > 365 {
			return domain.ErrValidationFailed
		}
		updates["cookie_duration_days"] = *req.CookieDurationDays
	}
	if req.AttributionModel != nil {
		if *req.AttributionModel != "last_click" && *req.AttributionModel != "first_click" {
			return domain.ErrValidationFailed
		}
		updates["attribution_model"] = *req.AttributionModel
	}
	if len(updates) == 0 {
		return domain.ErrBadRequest
	}

	s, err := h.service.UpdateSettings(c.Context(), storeID, updates)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":   "updated",
		"settings": s.Settings,
	})
}

// Analytics returns conversion counters from the affiliate backend. Stores
// without a connected brand, and backend failures, report zeros rather than
// an error so the embedded dashboard always renders.
func (h *StoreHandler) Analytics(c *fiber.Ctx) error {
	s, err := middleware.GetStore(c)
	if err != nil {
		return err
	}

	period := c.Query("period", "30d")

	if !s.IsConnected() {
		return c.JSON(zeroAnalytics(period))
	}

	usage, err := h.usage.GetBrandUsage(c.Context(), s.BrandID.String(), period)
	if err != nil {
		h.logger.Warn("brand usage fetch failed",
			slog.String("store_hash", s.StoreHash),
			slog.Any("error", err),
		)
		return c.JSON(zeroAnalytics(period))
	}

	usage["connected"] = true
	usage["period"] = period
	return c.JSON(usage)
}

func zeroAnalytics(period string) fiber.Map {
	return fiber.Map{
		"connected":         false,
		"period":            period,
		"total_conversions": 0,
		"total_revenue":     0.0,
		"total_commission":  0.0,
	}
}
