//go:build integration

package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

func setupIntegrationTest(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "bridge_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/bridge_test?sslmode=disable", host, port.Port())

	db, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	_, err = db.Exec(ctx, `
		CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

		CREATE TABLE IF NOT EXISTS stores (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			store_hash VARCHAR(50) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL DEFAULT '',
			email VARCHAR(255) NOT NULL DEFAULT '',
			domain VARCHAR(255) NOT NULL DEFAULT '',
			access_token TEXT NOT NULL,
			scope TEXT NOT NULL,
			bc_user_id VARCHAR(50) NOT NULL DEFAULT '',
			bc_user_email VARCHAR(255) NOT NULL DEFAULT '',
			brand_id UUID,
			is_active BOOLEAN NOT NULL DEFAULT true,
			settings JSONB NOT NULL DEFAULT '{}',
			installed_at TIMESTAMP NOT NULL DEFAULT NOW(),
			uninstalled_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS webhook_events (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			store_id UUID NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
			scope VARCHAR(100) NOT NULL,
			webhook_id VARCHAR(255) NOT NULL DEFAULT '',
			payload_hash VARCHAR(64) NOT NULL,
			payload JSONB NOT NULL,
			status VARCHAR(50) NOT NULL DEFAULT 'received',
			result JSONB,
			error TEXT NOT NULL DEFAULT '',
			processing_time_ms BIGINT,
			received_at TIMESTAMP NOT NULL DEFAULT NOW(),
			processed_at TIMESTAMP,
			UNIQUE(store_id, payload_hash)
		);
	`)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func createIntegrationStore(t *testing.T, db *pgxpool.Pool) uuid.UUID {
	t.Helper()
	repo := NewStoreRepository(db)
	store := &domain.Store{
		StoreHash:   fmt.Sprintf("hash-%s", uuid.NewString()[:8]),
		AccessToken: "encrypted",
		Scope:       "store_v2_orders",
		IsActive:    true,
	}
	require.NoError(t, repo.Create(context.Background(), store))
	return store.ID
}

func TestWebhookEventLedger_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewWebhookEventRepository(db)
	storeID := createIntegrationStore(t, db)
	payload := map[string]interface{}{"scope": "store/order/statusUpdated", "data": map[string]interface{}{"id": 100}}

	t.Run("first delivery is new", func(t *testing.T) {
		event, isNew, err := repo.RecordOrGet(ctx, storeID, "store/order/statusUpdated", "wh_1", "hash-first", payload)
		require.NoError(t, err)
		assert.True(t, isNew)
		assert.Equal(t, domain.EventStatusReceived, event.Status)
		assert.False(t, event.ReceivedAt.IsZero())
	})

	t.Run("processed duplicate is suppressed", func(t *testing.T) {
		event, isNew, err := repo.RecordOrGet(ctx, storeID, "store/order/statusUpdated", "wh_1", "hash-dup", payload)
		require.NoError(t, err)
		require.True(t, isNew)

		require.NoError(t, repo.MarkProcessed(ctx, event.ID, map[string]interface{}{"status": "tracked"}, 40*time.Millisecond))

		existing, isNew, err := repo.RecordOrGet(ctx, storeID, "store/order/statusUpdated", "wh_1", "hash-dup", payload)
		require.NoError(t, err)
		assert.False(t, isNew)
		assert.Equal(t, event.ID, existing.ID)
		assert.Equal(t, domain.EventStatusProcessed, existing.Status)
	})

	t.Run("failed duplicate is retried", func(t *testing.T) {
		event, isNew, err := repo.RecordOrGet(ctx, storeID, "store/order/statusUpdated", "wh_1", "hash-failed", payload)
		require.NoError(t, err)
		require.True(t, isNew)

		require.NoError(t, repo.MarkFailed(ctx, event.ID, "order fetch failed", 25*time.Millisecond))

		existing, isNew, err := repo.RecordOrGet(ctx, storeID, "store/order/statusUpdated", "wh_1", "hash-failed", payload)
		require.NoError(t, err)
		assert.True(t, isNew)
		assert.Equal(t, event.ID, existing.ID)
		assert.Equal(t, domain.EventStatusFailed, existing.Status)
	})

	t.Run("same hash for another store is independent", func(t *testing.T) {
		otherStoreID := createIntegrationStore(t, db)

		_, isNew, err := repo.RecordOrGet(ctx, otherStoreID, "store/order/statusUpdated", "wh_1", "hash-first", payload)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("concurrent deliveries collapse to one row", func(t *testing.T) {
		const workers = 8

		var wg sync.WaitGroup
		ids := make([]uuid.UUID, workers)
		errs := make([]error, workers)

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				event, _, err := repo.RecordOrGet(ctx, storeID, "store/order/statusUpdated", "wh_1", "hash-race", payload)
				errs[i] = err
				if event != nil {
					ids[i] = event.ID
				}
			}(i)
		}
		wg.Wait()

		for i := 0; i < workers; i++ {
			require.NoError(t, errs[i])
			assert.Equal(t, ids[0], ids[i], "all deliveries must resolve to the same ledger entry")
		}

		var count int
		err := db.QueryRow(ctx, `SELECT COUNT(*) FROM webhook_events WHERE store_id = $1 AND payload_hash = $2`, storeID, "hash-race").Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("list by store orders newest first", func(t *testing.T) {
		events, total, err := repo.ListByStore(ctx, storeID, 50, 0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, int64(3))
		require.NotEmpty(t, events)
		for i := 1; i < len(events); i++ {
			assert.False(t, events[i-1].ReceivedAt.Before(events[i].ReceivedAt))
		}
	})
}
