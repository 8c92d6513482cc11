package productsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/affilync/bigcommerce-bridge/internal/affilync"
	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

// Catalog is the per-store slice of the BigCommerce API the service uses.
type Catalog interface {
	GetProduct(ctx context.Context, productID int64, include []string) (map[string]interface{}, error)
	GetAllProducts(ctx context.Context, include []string, visibleOnly bool) ([]map[string]interface{}, error)
}

// CatalogFactory builds an authenticated catalog client for a store.
type CatalogFactory interface {
	ForStore(store *domain.Store) (Catalog, error)
}

// Syncer is the affiliate backend surface for catalog mirroring.
type Syncer interface {
	SyncProduct(ctx context.Context, rec affilync.ProductSyncRecord) (*affilync.ProductSyncResponse, error)
	DeleteProduct(ctx context.Context, brandID, externalProductID string) error
}

// ProductRepository persists mirrored products and their sync state.
type ProductRepository interface {
	GetByPlatformID(ctx context.Context, storeID uuid.UUID, platformProductID int64) (*domain.Product, error)
	Upsert(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, storeID uuid.UUID, limit, offset int, syncedOnly bool) ([]domain.Product, int64, error)
	MarkSynced(ctx context.Context, id uuid.UUID, affilyncProductID string) error
	MarkSyncError(ctx context.Context, id uuid.UUID, syncError string) error
}

// SyncStats summarizes a full catalog sync. Errors holds per-product failures
// so one bad product never aborts the run.
type SyncStats struct {
	Total            int         `json:"total"`
	Created          int         `json:"created"`
	Updated          int         `json:"updated"`
	SyncedToAffilync int         `json:"synced_to_affilync"`
	Errors           []SyncError `json:"errors"`
}

type SyncError struct {
	ProductID int64  `json:"product_id"`
	Error     string `json:"error"`
}

// Service mirrors the BigCommerce catalog locally and into the affiliate
// backend.
type Service struct {
	products ProductRepository
	catalogs CatalogFactory
	syncer   Syncer
	logger   *slog.Logger
}

func NewService(products ProductRepository, catalogs CatalogFactory, syncer Syncer, logger *slog.Logger) *Service {
	return &Service{
		products: products,
		catalogs: catalogs,
		syncer:   syncer,
		logger:   logger,
	}
}

// SyncFromWebhook refreshes one product after a catalog webhook. The delivery
// only carries the product id; the full record comes from the catalog API.
func (s *Service) SyncFromWebhook(ctx context.Context, store *domain.Store, productID int64) (map[string]interface{}, error) {
	catalog, err := s.catalogs.ForStore(store)
	if err != nil {
		return nil, err
	}

	data, err := catalog.GetProduct(ctx, productID, []string{"images", "custom_fields"})
	if err != nil {
		return nil, fmt.Errorf("fetch product %d: %w", productID, err)
	}

	product := productFromData(store.ID, data)
	if err := s.products.Upsert(ctx, product); err != nil {
		return nil, fmt.Errorf("upsert product %d: %w", productID, err)
	}

	if store.IsConnected() && store.AutoSyncProducts() {
		if err := s.syncToAffilync(ctx, store, product); err != nil {
			return nil, err
		}
	}

	return map[string]interface{}{
		"status":     "synced",
		"product_id": productID,
	}, nil
}

// DeleteFromWebhook removes a product locally and, when it was mirrored, from
// the affiliate catalog. A failed remote delete is logged but never blocks
// the local removal.
func (s *Service) DeleteFromWebhook(ctx context.Context, store *domain.Store, productID int64) (map[string]interface{}, error) {
	product, err := s.products.GetByPlatformID(ctx, store.ID, productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			s.logger.Warn("product not found for deletion", "product_id", productID)
			return map[string]interface{}{
				"status":     "not_found",
				"product_id": productID,
			}, nil
		}
		return nil, err
	}

	if product.AffilyncProductID != "" && store.IsConnected() {
		extID := externalProductID(productID)
		if err := s.syncer.DeleteProduct(ctx, store.BrandID.String(), extID); err != nil {
			s.logger.Warn("affilync product delete failed", "product_id", productID, "error", err)
		}
	}

	if err := s.products.Delete(ctx, product.ID); err != nil {
		return nil, fmt.Errorf("delete product %d: %w", productID, err)
	}

	s.logger.Info("product deleted", "store_hash", store.StoreHash, "product_id", productID)
	return map[string]interface{}{
		"status":     "deleted",
		"product_id": productID,
	}, nil
}

// SyncAll pulls the full visible catalog and mirrors every product. Failures
// are collected per product.
func (s *Service) SyncAll(ctx context.Context, store *domain.Store) (*SyncStats, error) {
	s.logger.Info("starting full product sync", "store_hash", store.StoreHash)

	catalog, err := s.catalogs.ForStore(store)
	if err != nil {
		return nil, err
	}

	items, err := catalog.GetAllProducts(ctx, []string{"images", "custom_fields"}, true)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	stats := &SyncStats{Total: len(items), Errors: []SyncError{}}

	for _, data := range items {
		product := productFromData(store.ID, data)
		platformID := product.PlatformProductID

		existing, err := s.products.GetByPlatformID(ctx, store.ID, platformID)
		if err != nil && !errors.Is(err, domain.ErrProductNotFound) {
			stats.Errors = append(stats.Errors, SyncError{ProductID: platformID, Error: err.Error()})
			continue
		}

		if err := s.products.Upsert(ctx, product); err != nil {
			s.logger.Error("product upsert failed", "product_id", platformID, "error", err)
			stats.Errors = append(stats.Errors, SyncError{ProductID: platformID, Error: err.Error()})
			continue
		}
		if existing != nil {
			stats.Updated++
		} else {
			stats.Created++
		}

		if store.IsConnected() {
			if err := s.syncToAffilync(ctx, store, product); err != nil {
				stats.Errors = append(stats.Errors, SyncError{ProductID: platformID, Error: err.Error()})
				continue
			}
			stats.SyncedToAffilync++
		}
	}

	s.logger.Info("product sync complete",
		"store_hash", store.StoreHash,
		"total", stats.Total,
		"created", stats.Created,
		"updated", stats.Updated,
		"synced", stats.SyncedToAffilync,
		"errors", len(stats.Errors),
	)
	return stats, nil
}

// ListProducts returns a page of mirrored products with the total count.
func (s *Service) ListProducts(ctx context.Context, storeID uuid.UUID, limit, offset int, syncedOnly bool) ([]domain.Product, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.products.List(ctx, storeID, limit, offset, syncedOnly)
}

func (s *Service) syncToAffilync(ctx context.Context, store *domain.Store, product *domain.Product) error {
	rec := affilync.ProductSyncRecord{
		BrandID:           store.BrandID.String(),
		ExternalProductID: externalProductID(product.PlatformProductID),
		Source:            "bigcommerce",
		Title:             product.Title,
		Description:       product.Description,
		Price:             product.Price,
		Currency:          product.Currency,
		ImageURL:          product.ImageURL,
		ProductURL:        productURL(store, product),
		Metadata: map[string]interface{}{
			"store_hash": store.StoreHash,
			"sku":        product.SKU,
			"categories": product.Categories,
			"brand_name": product.BrandName,
		},
	}

	resp, err := s.syncer.SyncProduct(ctx, rec)
	if err != nil {
		if markErr := s.products.MarkSyncError(ctx, product.ID, err.Error()); markErr != nil {
			s.logger.Error("sync state update failed", "product_id", product.ID, "error", markErr)
		}
		return fmt.Errorf("sync product %d: %w", product.PlatformProductID, err)
	}

	if err := s.products.MarkSynced(ctx, product.ID, resp.AffilyncProductID); err != nil {
		return fmt.Errorf("mark product synced: %w", err)
	}
	s.logger.Debug("product synced", "product_id", product.PlatformProductID, "affilync_id", resp.AffilyncProductID)
	return nil
}

func externalProductID(platformProductID int64) string {
	return fmt.Sprintf("bigcommerce_%d", platformProductID)
}

func productURL(store *domain.Store, product *domain.Product) string {
	if store.Domain == "" || product.Handle == "" {
		return ""
	}
	return "https://" + store.Domain + "/" + product.Handle + "/"
}

// productFromData maps a catalog API payload onto the local product record.
func productFromData(storeID uuid.UUID, data map[string]interface{}) *domain.Product {
	doc := document(data)

	images := doc.list("images")
	primaryImage := ""
	imageMeta := make([]map[string]interface{}, 0, len(images))
	for _, img := range images {
		if primaryImage == "" && img.bool("is_thumbnail") {
			primaryImage = img.str("url_standard")
		}
		imageMeta = append(imageMeta, map[string]interface{}{
			"url":          img.str("url_standard"),
			"is_thumbnail": img.bool("is_thumbnail"),
		})
	}
	if primaryImage == "" && len(images) > 0 {
		primaryImage = images[0].str("url_standard")
	}

	var categories []int64
	if raw, ok := data["categories"].([]interface{}); ok {
		for _, c := range raw {
			if f, ok := c.(float64); ok {
				categories = append(categories, int64(f))
			}
		}
	}

	handle := strings.Trim(doc.sub("custom_url").str("url"), "/")

	product := &domain.Product{
		StoreID:           storeID,
		PlatformProductID: doc.int("id"),
		SKU:               doc.str("sku"),
		Title:             doc.str("name"),
		Description:       doc.str("description"),
		Handle:            handle,
		Price:             doc.float("price"),
		Currency:          "USD",
		ImageURL:          primaryImage,
		Images:            imageMeta,
		Categories:        categories,
		BrandName:         doc.str("brand_name"),
		InventoryLevel:    int(doc.int("inventory_level")),
		IsVisible:         doc.boolOr("is_visible", true),
	}
	if v := doc.floatPtr("sale_price"); v != nil && *v > 0 {
		product.CompareAtPrice = v
	}
	if v := doc.floatPtr("cost_price"); v != nil && *v > 0 {
		product.CostPrice = v
	}
	return product
}

// document gives terse typed access to a decoded JSON object.
type document map[string]interface{}

func (d document) str(key string) string {
	v, _ := d[key].(string)
	return v
}

func (d document) bool(key string) bool {
	v, _ := d[key].(bool)
	return v
}

func (d document) boolOr(key string, def bool) bool {
	if v, ok := d[key].(bool); ok {
		return v
	}
	return def
}

func (d document) int(key string) int64 {
	switch v := d[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

func (d document) float(key string) float64 {
	switch v := d[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func (d document) floatPtr(key string) *float64 {
	switch v := d[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	}
	return nil
}

func (d document) sub(key string) document {
	if v, ok := d[key].(map[string]interface{}); ok {
		return document(v)
	}
	return document{}
}

func (d document) list(key string) []document {
	raw, ok := d[key].([]interface{})
	if !ok {
		return nil
	}
	docs := make([]document, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			docs = append(docs, document(m))
		}
	}
	return docs
}
