package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/affilync/bigcommerce-bridge/internal/bigcommerce"
	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

const (
	// LocalStoreID is the key to retrieve store_id from context
	LocalStoreID = "store_id"
	// LocalStore is the key to retrieve the full store from context
	LocalStore = "store"
)

// StoreDirectory interface for store lookup
type StoreDirectory interface {
	GetByHash(ctx context.Context, storeHash string) (*domain.Store, error)
}

// PayloadVerifier validates signed_payload_jwt values from the embedded app.
type PayloadVerifier interface {
	Verify(payload string) (*bigcommerce.SignedPayloadClaims, error)
}

// AuthConfig holds dependencies for store authentication.
type AuthConfig struct {
	Stores   StoreDirectory
	Verifier PayloadVerifier
	// AllowHashFallback trusts a bare ?store_hash= query parameter instead
	// of a signed payload. Development only.
	AllowHashFallback bool
}

// StoreAuth authenticates embedded-app requests. The control panel sends a
// signed_payload_jwt either as a Bearer token or as a query parameter; the
// subject claim names the store.
func StoreAuth(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		storeHash := resolveStoreHash(c, cfg)
		if storeHash == "" {
			return domain.ErrUnauthorized
		}

		store, err := cfg.Stores.GetByHash(c.Context(), storeHash)
		if err != nil {
			// Don't reveal whether the store exists
			return domain.ErrUnauthorized
		}

		if !store.IsActive {
			return domain.ErrStoreInactive
		}

		c.Locals(LocalStoreID, store.ID)
		c.Locals(LocalStore, store)

		return c.Next()
	}
}

func resolveStoreHash(c *fiber.Ctx, cfg AuthConfig) string {
	payload := extractBearerToken(c)
	if payload == "" {
		payload = strings.TrimSpace(c.Query("signed_payload_jwt"))
	}
	if payload != "" {
		claims, err := cfg.Verifier.Verify(payload)
		if err != nil {
			return ""
		}
		return claims.StoreHash()
	}

	if cfg.AllowHashFallback {
		return strings.TrimSpace(c.Query("store_hash"))
	}
	return ""
}

// extractBearerToken extracts token from Authorization header
func extractBearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if auth == "" {
		return ""
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// GetStoreID retrieves store_id from Fiber context
func GetStoreID(c *fiber.Ctx) (uuid.UUID, error) {
	storeID, ok := c.Locals(LocalStoreID).(uuid.UUID)
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return storeID, nil
}

// GetStore retrieves the full store from Fiber context
func GetStore(c *fiber.Ctx) (*domain.Store, error) {
	store, ok := c.Locals(LocalStore).(*domain.Store)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return store, nil
}
