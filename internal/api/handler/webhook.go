package handler

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/affilync/bigcommerce-bridge/internal/domain"
	"github.com/affilync/bigcommerce-bridge/internal/webhook"
)

// WebhookRouter processes one admitted webhook delivery.
type WebhookRouter interface {
	Handle(ctx context.Context, env *webhook.Envelope, payload map[string]interface{}) *webhook.Response
}

type WebhookHandler struct {
	secret string
	router WebhookRouter
	logger *slog.Logger
}

func NewWebhookHandler(secret string, router WebhookRouter, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret: secret,
		router: router,
		logger: logger,
	}
}

// Receive is the webhook ingestion endpoint. Admission is the only place a
// delivery gets a non-200: a bad signature or unparseable body is rejected,
// everything after that is acknowledged so the platform does not redeliver.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	body := c.Body()

	signature := c.Get("X-BC-Api-Content-Hash")
	if !webhook.Verify(h.secret, body, signature) {
		h.logger.Warn("webhook signature rejected", slog.String("ip", c.IP()))
		return domain.ErrInvalidSignature
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.ErrInvalidPayload.WithError(err)
	}

	var env webhook.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.ErrInvalidPayload.WithError(err)
	}

	resp := h.router.Handle(c.Context(), &env, payload)
	return c.JSON(resp)
}
