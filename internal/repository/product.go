package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

const productColumns = `id, store_id, bc_product_id, sku, title, description, handle,
		price, compare_at_price, cost_price, currency, image_url, images, categories,
		brand_name, inventory_level, is_visible, is_synced, affilync_product_id,
		sync_error, last_synced_at, created_at, updated_at`

type ProductRepository struct {
	pool PgxPool
}

func NewProductRepository(pool PgxPool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) GetByPlatformID(ctx context.Context, storeID uuid.UUID, platformProductID int64) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE store_id = $1 AND bc_product_id = $2
	`

	product, err := scanProduct(r.pool.QueryRow(ctx, query, storeID, platformProductID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// Upsert inserts the product or refreshes the catalog fields of an existing
// row. Sync state columns are left untouched on update so a catalog refresh
// never clears a prior Affilync link.
func (r *ProductRepository) Upsert(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, store_id, bc_product_id, sku, title, description, handle,
			price, compare_at_price, cost_price, currency, image_url, images, categories,
			brand_name, inventory_level, is_visible, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())
		ON CONFLICT (store_id, bc_product_id) DO UPDATE
		SET sku = EXCLUDED.sku,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			handle = EXCLUDED.handle,
			price = EXCLUDED.price,
			compare_at_price = EXCLUDED.compare_at_price,
			cost_price = EXCLUDED.cost_price,
			currency = EXCLUDED.currency,
			image_url = EXCLUDED.image_url,
			images = EXCLUDED.images,
			categories = EXCLUDED.categories,
			brand_name = EXCLUDED.brand_name,
			inventory_level = EXCLUDED.inventory_level,
			is_visible = EXCLUDED.is_visible,
			updated_at = NOW()
		RETURNING id, is_synced, affilync_product_id, sync_error, last_synced_at, created_at, updated_at
	`

	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.Images == nil {
		product.Images = []map[string]interface{}{}
	}
	if product.Categories == nil {
		product.Categories = []int64{}
	}

	err := r.pool.QueryRow(ctx, query,
		product.ID,
		product.StoreID,
		product.PlatformProductID,
		product.SKU,
		product.Title,
		product.Description,
		product.Handle,
		product.Price,
		product.CompareAtPrice,
		product.CostPrice,
		product.Currency,
		product.ImageURL,
		product.Images,
		product.Categories,
		product.BrandName,
		product.InventoryLevel,
		product.IsVisible,
	).Scan(
		&product.ID,
		&product.IsSynced,
		&product.AffilyncProductID,
		&product.SyncError,
		&product.LastSyncedAt,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}

	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM products
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

func (r *ProductRepository) List(ctx context.Context, storeID uuid.UUID, limit, offset int, syncedOnly bool) ([]domain.Product, int64, error) {
	countQuery := `SELECT COUNT(*) FROM products WHERE store_id = $1 AND ($2 = false OR is_synced = true)`

	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, storeID, syncedOnly).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE store_id = $1 AND ($2 = false OR is_synced = true)
		ORDER BY title
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, storeID, syncedOnly, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	return products, total, nil
}

func (r *ProductRepository) MarkSynced(ctx context.Context, id uuid.UUID, affilyncProductID string) error {
	query := `
		UPDATE products
		SET is_synced = true, affilync_product_id = $2, sync_error = '',
			last_synced_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, affilyncProductID)
	if err != nil {
		return fmt.Errorf("mark product synced: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

func (r *ProductRepository) MarkSyncError(ctx context.Context, id uuid.UUID, syncError string) error {
	query := `
		UPDATE products
		SET is_synced = false, sync_error = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, syncError)
	if err != nil {
		return fmt.Errorf("mark product sync error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var product domain.Product
	err := row.Scan(
		&product.ID,
		&product.StoreID,
		&product.PlatformProductID,
		&product.SKU,
		&product.Title,
		&product.Description,
		&product.Handle,
		&product.Price,
		&product.CompareAtPrice,
		&product.CostPrice,
		&product.Currency,
		&product.ImageURL,
		&product.Images,
		&product.Categories,
		&product.BrandName,
		&product.InventoryLevel,
		&product.IsVisible,
		&product.IsSynced,
		&product.AffilyncProductID,
		&product.SyncError,
		&product.LastSyncedAt,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &product, nil
}
