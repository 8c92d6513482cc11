package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

// StoreRepository Tests

func storeRow(storeID uuid.UUID, now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "store_hash", "name", "email", "domain", "access_token", "scope",
		"bc_user_id", "bc_user_email", "brand_id", "is_active", "settings",
		"installed_at", "uninstalled_at", "created_at", "updated_at",
	}).AddRow(
		storeID,
		"abc123",
		"Test Store",
		"owner@example.com",
		"shop.example.com",
		"encrypted-token",
		"store_v2_orders",
		"42",
		"owner@example.com",
		(*uuid.UUID)(nil),
		true,
		map[string]interface{}{"auto_sync_products": true},
		now,
		(*time.Time)(nil),
		now,
		now,
	)
}

func TestStoreRepository_GetByHash(t *testing.T) {
	storeID := uuid.New()
	now := time.Now()

	tests := []struct {
		name      string
		storeHash string
		mockSetup func(mock pgxmock.PgxPoolIface)
		want      *domain.Store
		wantErr   error
	}{
		{
			name:      "successful retrieval",
			storeHash: "abc123",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM stores\s+WHERE store_hash = \$1`).
					WithArgs("abc123").
					WillReturnRows(storeRow(storeID, now))
			},
			want: &domain.Store{
				ID:        storeID,
				StoreHash: "abc123",
				Name:      "Test Store",
				Email:     "owner@example.com",
				IsActive:  true,
			},
		},
		{
			name:      "store not found",
			storeHash: "missing",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM stores\s+WHERE store_hash = \$1`).
					WithArgs("missing").
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrStoreNotFound,
		},
		{
			name:      "database error",
			storeHash: "abc123",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM stores\s+WHERE store_hash = \$1`).
					WithArgs("abc123").
					WillReturnError(errors.New("database connection error"))
			},
			wantErr: errors.New("get store by hash: database connection error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewStoreRepository(mock)
			got, err := repo.GetByHash(context.Background(), tt.storeHash)

			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, domain.ErrStoreNotFound) {
					assert.ErrorIs(t, err, domain.ErrStoreNotFound)
				} else {
					assert.Contains(t, err.Error(), "get store by hash")
				}
			} else {
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, tt.want.ID, got.ID)
				assert.Equal(t, tt.want.StoreHash, got.StoreHash)
				assert.Equal(t, tt.want.Name, got.Name)
				assert.Equal(t, tt.want.IsActive, got.IsActive)
				assert.Nil(t, got.BrandID)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStoreRepository_Create(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "successful insert",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"installed_at", "created_at", "updated_at"}).
					AddRow(now, now, now)
				mock.ExpectQuery(`INSERT INTO stores`).
					WithArgs(
						pgxmock.AnyArg(), "abc123", "Test Store", "owner@example.com",
						"shop.example.com", "encrypted-token", "store_v2_orders",
						"42", "owner@example.com", (*uuid.UUID)(nil), true,
						map[string]interface{}{},
					).
					WillReturnRows(rows)
			},
		},
		{
			name: "duplicate store hash",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO stores`).
					WithArgs(
						pgxmock.AnyArg(), "abc123", "Test Store", "owner@example.com",
						"shop.example.com", "encrypted-token", "store_v2_orders",
						"42", "owner@example.com", (*uuid.UUID)(nil), true,
						map[string]interface{}{},
					).
					WillReturnError(errors.New(`duplicate key value violates unique constraint "stores_store_hash_key" (SQLSTATE 23505)`))
			},
			wantErr: domain.ErrStoreExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			store := &domain.Store{
				StoreHash:   "abc123",
				Name:        "Test Store",
				Email:       "owner@example.com",
				Domain:      "shop.example.com",
				AccessToken: "encrypted-token",
				Scope:       "store_v2_orders",
				UserID:      "42",
				UserEmail:   "owner@example.com",
				IsActive:    true,
			}

			repo := NewStoreRepository(mock)
			err = repo.Create(context.Background(), store)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.NotEqual(t, uuid.Nil, store.ID)
				assert.Equal(t, now, store.InstalledAt)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStoreRepository_UpdateNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := &domain.Store{ID: uuid.New(), StoreHash: "abc123", IsActive: true}

	mock.ExpectQuery(`UPDATE stores`).
		WithArgs(
			store.ID, "", "", "", "", "", "", "", (*uuid.UUID)(nil), true,
			map[string]interface{}{}, (*time.Time)(nil),
		).
		WillReturnError(pgx.ErrNoRows)

	repo := NewStoreRepository(mock)
	err = repo.Update(context.Background(), store)

	assert.ErrorIs(t, err, domain.ErrStoreNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// WebhookEventRepository Tests

func eventRow(eventID, storeID uuid.UUID, status domain.EventStatus, now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "store_id", "scope", "webhook_id", "payload_hash", "payload",
		"status", "result", "error", "processing_time_ms", "received_at", "processed_at",
	}).AddRow(
		eventID,
		storeID,
		"store/order/statusUpdated",
		"wh_1",
		"deadbeefdeadbeefdeadbeefdeadbeef",
		map[string]interface{}{"scope": "store/order/statusUpdated"},
		status,
		map[string]interface{}{"status": "tracked"},
		"",
		(*int64)(nil),
		now,
		(*time.Time)(nil),
	)
}

func TestWebhookEventRepository_RecordOrGet(t *testing.T) {
	storeID := uuid.New()
	now := time.Now()
	payload := map[string]interface{}{"scope": "store/order/statusUpdated"}
	hash := "deadbeefdeadbeefdeadbeefdeadbeef"

	insertArgs := []interface{}{
		pgxmock.AnyArg(), storeID, "store/order/statusUpdated", "wh_1", hash,
		payload, domain.EventStatusReceived,
	}

	t.Run("first delivery inserts", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`INSERT INTO webhook_events`).
			WithArgs(insertArgs...).
			WillReturnRows(pgxmock.NewRows([]string{"received_at"}).AddRow(now))

		repo := NewWebhookEventRepository(mock)
		event, isNew, err := repo.RecordOrGet(context.Background(), storeID, "store/order/statusUpdated", "wh_1", hash, payload)

		require.NoError(t, err)
		assert.True(t, isNew)
		assert.Equal(t, domain.EventStatusReceived, event.Status)
		assert.Equal(t, now, event.ReceivedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("processed duplicate is not new", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		existingID := uuid.New()
		mock.ExpectQuery(`INSERT INTO webhook_events`).
			WithArgs(insertArgs...).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(`WHERE store_id = \$1 AND payload_hash = \$2`).
			WithArgs(storeID, hash).
			WillReturnRows(eventRow(existingID, storeID, domain.EventStatusProcessed, now))

		repo := NewWebhookEventRepository(mock)
		event, isNew, err := repo.RecordOrGet(context.Background(), storeID, "store/order/statusUpdated", "wh_1", hash, payload)

		require.NoError(t, err)
		assert.False(t, isNew)
		assert.Equal(t, existingID, event.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed duplicate is retried", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		existingID := uuid.New()
		mock.ExpectQuery(`INSERT INTO webhook_events`).
			WithArgs(insertArgs...).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(`WHERE store_id = \$1 AND payload_hash = \$2`).
			WithArgs(storeID, hash).
			WillReturnRows(eventRow(existingID, storeID, domain.EventStatusFailed, now))

		repo := NewWebhookEventRepository(mock)
		event, isNew, err := repo.RecordOrGet(context.Background(), storeID, "store/order/statusUpdated", "wh_1", hash, payload)

		require.NoError(t, err)
		assert.True(t, isNew)
		assert.Equal(t, domain.EventStatusFailed, event.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert error propagates", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`INSERT INTO webhook_events`).
			WithArgs(insertArgs...).
			WillReturnError(errors.New("database connection error"))

		repo := NewWebhookEventRepository(mock)
		_, _, err = repo.RecordOrGet(context.Background(), storeID, "store/order/statusUpdated", "wh_1", hash, payload)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "record webhook event")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWebhookEventRepository_MarkProcessed(t *testing.T) {
	eventID := uuid.New()
	result := map[string]interface{}{"status": "tracked"}

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "successful update",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE webhook_events`).
					WithArgs(eventID, domain.EventStatusProcessed, result, int64(125)).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
		},
		{
			name: "event not found",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE webhook_events`).
					WithArgs(eventID, domain.EventStatusProcessed, result, int64(125)).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			wantErr: domain.ErrEventNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewWebhookEventRepository(mock)
			err = repo.MarkProcessed(context.Background(), eventID, result, 125*time.Millisecond)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWebhookEventRepository_MarkFailed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	eventID := uuid.New()
	mock.ExpectExec(`UPDATE webhook_events`).
		WithArgs(eventID, domain.EventStatusFailed, "order fetch failed", int64(30)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewWebhookEventRepository(mock)
	err = repo.MarkFailed(context.Background(), eventID, "order fetch failed", 30*time.Millisecond)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookEventRepository_ListByStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	storeID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM webhook_events WHERE store_id = \$1`).
		WithArgs(storeID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`ORDER BY received_at DESC`).
		WithArgs(storeID, 50, 0).
		WillReturnRows(eventRow(uuid.New(), storeID, domain.EventStatusProcessed, now))

	repo := NewWebhookEventRepository(mock)
	events, total, err := repo.ListByStore(context.Background(), storeID, 50, 0)

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, events, 1)
	assert.Equal(t, "store/order/statusUpdated", events[0].Scope)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ProductRepository Tests

func TestProductRepository_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	product := &domain.Product{
		StoreID:           uuid.New(),
		PlatformProductID: 42,
		SKU:               "SKU-1",
		Title:             "Bamboo Desk",
		Price:             249.99,
		Currency:          "USD",
		IsVisible:         true,
	}

	rows := pgxmock.NewRows([]string{
		"id", "is_synced", "affilync_product_id", "sync_error", "last_synced_at", "created_at", "updated_at",
	}).AddRow(uuid.New(), true, "ap_1", "", &now, now, now)

	mock.ExpectQuery(`INSERT INTO products`).
		WithArgs(
			pgxmock.AnyArg(), product.StoreID, int64(42), "SKU-1", "Bamboo Desk", "", "",
			249.99, (*float64)(nil), (*float64)(nil), "USD", "",
			[]map[string]interface{}{}, []int64{}, "", 0, true,
		).
		WillReturnRows(rows)

	repo := NewProductRepository(mock)
	err = repo.Upsert(context.Background(), product)

	require.NoError(t, err)
	// Sync state comes back from the conflict target row
	assert.True(t, product.IsSynced)
	assert.Equal(t, "ap_1", product.AffilyncProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Delete(t *testing.T) {
	productID := uuid.New()

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "successful delete",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`DELETE FROM products`).
					WithArgs(productID).
					WillReturnResult(pgxmock.NewResult("DELETE", 1))
			},
		},
		{
			name: "product not found",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`DELETE FROM products`).
					WithArgs(productID).
					WillReturnResult(pgxmock.NewResult("DELETE", 0))
			},
			wantErr: domain.ErrProductNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewProductRepository(mock)
			err = repo.Delete(context.Background(), productID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProductRepository_MarkSynced(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	productID := uuid.New()
	mock.ExpectExec(`UPDATE products`).
		WithArgs(productID, "ap_1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewProductRepository(mock)
	err = repo.MarkSynced(context.Background(), productID, "ap_1")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByPlatformIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	storeID := uuid.New()
	mock.ExpectQuery(`FROM products\s+WHERE store_id = \$1 AND bc_product_id = \$2`).
		WithArgs(storeID, int64(42)).
		WillReturnError(pgx.ErrNoRows)

	repo := NewProductRepository(mock)
	_, err = repo.GetByPlatformID(context.Background(), storeID, 42)

	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
