package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/affilync/bigcommerce-bridge/internal/api/middleware"
	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

// EventLedger lists recorded webhook deliveries for a store.
type EventLedger interface {
	ListByStore(ctx context.Context, storeID uuid.UUID, limit, offset int) ([]domain.WebhookEvent, int64, error)
}

type EventsHandler struct {
	ledger EventLedger
}

func NewEventsHandler(ledger EventLedger) *EventsHandler {
	return &EventsHandler{ledger: ledger}
}

type EventListResponse struct {
	Events []domain.WebhookEvent `json:"events"`
	Total  int64                 `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// List returns the store's webhook delivery history, newest first.
func (h *EventsHandler) List(c *fiber.Ctx) error {
	storeID, err := middleware.GetStoreID(c)
	if err != nil {
		return err
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	events, total, err := h.ledger.ListByStore(c.Context(), storeID, limit, offset)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}

	return c.JSON(EventListResponse{
		Events: events,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}
