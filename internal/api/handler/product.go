package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/affilync/bigcommerce-bridge/internal/api/middleware"
	"github.com/affilync/bigcommerce-bridge/internal/domain"
	"github.com/affilync/bigcommerce-bridge/internal/productsync"
)

// ProductService is the catalog listing and full-sync surface.
type ProductService interface {
	ListProducts(ctx context.Context, storeID uuid.UUID, limit, offset int, syncedOnly bool) ([]domain.Product, int64, error)
	SyncAll(ctx context.Context, store *domain.Store) (*productsync.SyncStats, error)
}

type ProductHandler struct {
	service ProductService
	logger  *slog.Logger
}

func NewProductHandler(service ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: service, logger: logger}
}

type ProductListResponse struct {
	Products []domain.Product `json:"products"`
	Total    int64            `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// List returns the locally mirrored catalog for the store.
func (h *ProductHandler) List(c *fiber.Ctx) error {
	storeID, err := middleware.GetStoreID(c)
	if err != nil {
		return err
	}

	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	syncedOnly := c.QueryBool("synced_only", false)

	products, total, err := h.service.ListProducts(c.Context(), storeID, limit, offset, syncedOnly)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}

	return c.JSON(ProductListResponse{
		Products: products,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

// SyncAll pulls the full catalog from the platform and pushes it to the
// affiliate backend. Requires a connected brand.
func (h *ProductHandler) SyncAll(c *fiber.Ctx) error {
	s, err := middleware.GetStore(c)
	if err != nil {
		return err
	}
	if !s.IsConnected() {
		return domain.ErrForbidden
	}

	stats, err := h.service.SyncAll(c.Context(), s)
	if err != nil {
		h.logger.Error("full product sync failed",
			slog.String("store_hash", s.StoreHash),
			slog.Any("error", err),
		)
		return domain.ErrInternal.WithError(err)
	}

	return c.JSON(fiber.Map{
		"status": "completed",
		"stats":  stats,
	})
}
