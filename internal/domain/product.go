package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product mirrors a BigCommerce catalog product for local bookkeeping and
// Affilync sync state.
type Product struct {
	ID                uuid.UUID                `json:"id"`
	StoreID           uuid.UUID                `json:"store_id"`
	PlatformProductID int64                    `json:"bc_product_id"`
	SKU               string                   `json:"sku,omitempty"`
	Title             string                   `json:"title"`
	Description       string                   `json:"description,omitempty"`
	Handle            string                   `json:"handle,omitempty"`
	Price             float64                  `json:"price"`
	CompareAtPrice    *float64                 `json:"compare_at_price,omitempty"`
	CostPrice         *float64                 `json:"cost_price,omitempty"`
	Currency          string                   `json:"currency"`
	ImageURL          string                   `json:"image_url,omitempty"`
	Images            []map[string]interface{} `json:"images,omitempty"`
	Categories        []int64                  `json:"categories,omitempty"`
	BrandName         string                   `json:"brand_name,omitempty"`
	InventoryLevel    int                      `json:"inventory_level"`
	IsVisible         bool                     `json:"is_visible"`
	IsSynced          bool                     `json:"is_synced"`
	AffilyncProductID string                   `json:"affilync_product_id,omitempty"`
	SyncError         string                   `json:"sync_error,omitempty"`
	LastSyncedAt      *time.Time               `json:"last_synced_at,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}
