package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

const storeColumns = `id, store_hash, name, email, domain, access_token, scope,
		bc_user_id, bc_user_email, brand_id, is_active, settings,
		installed_at, uninstalled_at, created_at, updated_at`

type StoreRepository struct {
	pool PgxPool
}

func NewStoreRepository(pool PgxPool) *StoreRepository {
	return &StoreRepository{pool: pool}
}

func (r *StoreRepository) GetByHash(ctx context.Context, storeHash string) (*domain.Store, error) {
	query := `
		SELECT ` + storeColumns + `
		FROM stores
		WHERE store_hash = $1
	`

	store, err := scanStore(r.pool.QueryRow(ctx, query, storeHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get store by hash: %w", err)
	}

	return store, nil
}

func (r *StoreRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Store, error) {
	query := `
		SELECT ` + storeColumns + `
		FROM stores
		WHERE id = $1
	`

	store, err := scanStore(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get store by id: %w", err)
	}

	return store, nil
}

func (r *StoreRepository) ListActive(ctx context.Context) ([]domain.Store, error) {
	query := `
		SELECT ` + storeColumns + `
		FROM stores
		WHERE is_active = true
		ORDER BY installed_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active stores: %w", err)
	}
	defer rows.Close()

	var stores []domain.Store
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		stores = append(stores, *store)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active stores: %w", err)
	}

	return stores, nil
}

func (r *StoreRepository) Create(ctx context.Context, store *domain.Store) error {
	query := `
		INSERT INTO stores (id, store_hash, name, email, domain, access_token, scope,
			bc_user_id, bc_user_email, brand_id, is_active, settings, installed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW(), NOW())
		RETURNING installed_at, created_at, updated_at
	`

	if store.ID == uuid.Nil {
		store.ID = uuid.New()
	}

	if store.Settings == nil {
		store.Settings = make(map[string]interface{})
	}

	err := r.pool.QueryRow(ctx, query,
		store.ID,
		store.StoreHash,
		store.Name,
		store.Email,
		store.Domain,
		store.AccessToken,
		store.Scope,
		store.UserID,
		store.UserEmail,
		store.BrandID,
		store.IsActive,
		store.Settings,
	).Scan(&store.InstalledAt, &store.CreatedAt, &store.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrStoreExists
		}
		return fmt.Errorf("create store: %w", err)
	}

	return nil
}

func (r *StoreRepository) Update(ctx context.Context, store *domain.Store) error {
	query := `
		UPDATE stores
		SET name = $2, email = $3, domain = $4, access_token = $5, scope = $6,
			bc_user_id = $7, bc_user_email = $8, brand_id = $9, is_active = $10,
			settings = $11, uninstalled_at = $12, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	if store.Settings == nil {
		store.Settings = make(map[string]interface{})
	}

	err := r.pool.QueryRow(ctx, query,
		store.ID,
		store.Name,
		store.Email,
		store.Domain,
		store.AccessToken,
		store.Scope,
		store.UserID,
		store.UserEmail,
		store.BrandID,
		store.IsActive,
		store.Settings,
		store.UninstalledAt,
	).Scan(&store.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrStoreNotFound
	}
	if err != nil {
		return fmt.Errorf("update store: %w", err)
	}

	return nil
}

func scanStore(row pgx.Row) (*domain.Store, error) {
	var store domain.Store
	err := row.Scan(
		&store.ID,
		&store.StoreHash,
		&store.Name,
		&store.Email,
		&store.Domain,
		&store.AccessToken,
		&store.Scope,
		&store.UserID,
		&store.UserEmail,
		&store.BrandID,
		&store.IsActive,
		&store.Settings,
		&store.InstalledAt,
		&store.UninstalledAt,
		&store.CreatedAt,
		&store.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &store, nil
}
