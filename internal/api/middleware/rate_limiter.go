package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

// StoreLimiter checks a per-store request counter.
type StoreLimiter interface {
	CheckStoreLimit(ctx context.Context, storeID uuid.UUID, limit int) error
}

// DefaultRateLimitMax is the per-store request budget per window.
const DefaultRateLimitMax = 300

// RateLimit enforces a per-store rate limit. Must run after StoreAuth so the
// store id is in context; unauthenticated requests pass through and fail at
// auth instead.
func RateLimit(limiter StoreLimiter, max int, logger *slog.Logger) fiber.Handler {
	if max <= 0 {
		max = DefaultRateLimitMax
	}
	return func(c *fiber.Ctx) error {
		storeID, ok := c.Locals(LocalStoreID).(uuid.UUID)
		if !ok {
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(max))

		if err := limiter.CheckStoreLimit(c.Context(), storeID, max); err != nil {
			if errors.Is(err, domain.ErrRateLimitExceeded) {
				return err
			}
			// A broken counter must not take the API down with it.
			logger.Error("rate limit check failed",
				slog.String("store_id", storeID.String()),
				slog.Any("error", err),
			)
		}

		return c.Next()
	}
}
