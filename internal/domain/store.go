package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store represents a BigCommerce store that has installed the app.
// AccessToken is stored encrypted; decryption goes through the vault.
type Store struct {
	ID            uuid.UUID              `json:"id"`
	StoreHash     string                 `json:"store_hash"`
	Name          string                 `json:"name,omitempty"`
	Email         string                 `json:"email,omitempty"`
	Domain        string                 `json:"domain,omitempty"`
	AccessToken   string                 `json:"-"`
	Scope         string                 `json:"scope,omitempty"`
	UserID        string                 `json:"user_id,omitempty"`
	UserEmail     string                 `json:"user_email,omitempty"`
	BrandID       *uuid.UUID             `json:"brand_id,omitempty"`
	IsActive      bool                   `json:"is_active"`
	Settings      map[string]interface{} `json:"settings"`
	InstalledAt   time.Time              `json:"installed_at"`
	UninstalledAt *time.Time             `json:"uninstalled_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// IsConnected reports whether the store is linked to an Affilync brand
// account. Stores without a brand never produce outbound attribution calls.
func (s *Store) IsConnected() bool {
	return s.BrandID != nil
}

// AutoSyncProducts reads the auto-sync setting, defaulting to false.
func (s *Store) AutoSyncProducts() bool {
	if s.Settings == nil {
		return false
	}
	v, ok := s.Settings["auto_sync_products"].(bool)
	return ok && v
}

// CookieDurationDays reads the attribution cookie duration setting.
func (s *Store) CookieDurationDays() int {
	if s.Settings == nil {
		return 30
	}
	switch v := s.Settings["cookie_duration_days"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 30
}

// AttributionModel reads the attribution model setting.
func (s *Store) AttributionModel() string {
	if s.Settings == nil {
		return "last_click"
	}
	if v, ok := s.Settings["attribution_model"].(string); ok && v != "" {
		return v
	}
	return "last_click"
}

// ExternalOrderID builds the order identifier sent to the affiliate backend.
func ExternalOrderID(orderID int64) string {
	return fmt.Sprintf("bigcommerce_%d", orderID)
}
