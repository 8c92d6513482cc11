package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/affilync/bigcommerce-bridge/internal/api/middleware"
	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

// AttributionSource looks up whether an order was tracked as a conversion.
type AttributionSource interface {
	GetOrderAttribution(ctx context.Context, store *domain.Store, orderID int64) (map[string]interface{}, error)
}

type OrderHandler struct {
	attribution AttributionSource
}

func NewOrderHandler(attribution AttributionSource) *OrderHandler {
	return &OrderHandler{attribution: attribution}
}

// Attribution returns the affiliate attribution recorded for an order, or
// attributed=false when none exists.
func (h *OrderHandler) Attribution(c *fiber.Ctx) error {
	s, err := middleware.GetStore(c)
	if err != nil {
		return err
	}

	orderID, err := c.ParamsInt("order_id")
	if err != nil || orderID <= 0 {
		return domain.ErrValidationFailed
	}

	conversion, err := h.attribution.GetOrderAttribution(c.Context(), s, int64(orderID))
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	if conversion == nil {
		return c.JSON(fiber.Map{
			"order_id":   orderID,
			"attributed": false,
		})
	}

	return c.JSON(fiber.Map{
		"order_id":   orderID,
		"attributed": true,
		"conversion": conversion,
	})
}
