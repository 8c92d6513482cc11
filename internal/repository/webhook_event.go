package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

const eventColumns = `id, store_id, scope, webhook_id, payload_hash, payload,
		status, result, error, processing_time_ms, received_at, processed_at`

type WebhookEventRepository struct {
	pool PgxPool
}

func NewWebhookEventRepository(pool PgxPool) *WebhookEventRepository {
	return &WebhookEventRepository{pool: pool}
}

// RecordOrGet inserts a ledger entry for the payload, or returns the existing
// one when the same (store, payload hash) pair was already seen. The unique
// constraint makes concurrent deliveries of one payload collapse to a single
// row. Entries that never reached the processed state are handed back with
// isNew=true so a redelivery retries them.
func (r *WebhookEventRepository) RecordOrGet(
	ctx context.Context,
	storeID uuid.UUID,
	scope, webhookID, payloadHash string,
	payload map[string]interface{},
) (*domain.WebhookEvent, bool, error) {
	insert := `
		INSERT INTO webhook_events (id, store_id, scope, webhook_id, payload_hash, payload, status, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (store_id, payload_hash) DO NOTHING
		RETURNING received_at
	`

	event := &domain.WebhookEvent{
		ID:          uuid.New(),
		StoreID:     storeID,
		Scope:       scope,
		WebhookID:   webhookID,
		PayloadHash: payloadHash,
		Payload:     payload,
		Status:      domain.EventStatusReceived,
	}

	err := r.pool.QueryRow(ctx, insert,
		event.ID,
		event.StoreID,
		event.Scope,
		event.WebhookID,
		event.PayloadHash,
		event.Payload,
		event.Status,
	).Scan(&event.ReceivedAt)

	if err == nil {
		return event, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("record webhook event: %w", err)
	}

	existing, err := r.getByPayloadHash(ctx, storeID, payloadHash)
	if err != nil {
		return nil, false, fmt.Errorf("load existing webhook event: %w", err)
	}

	if existing.Status == domain.EventStatusProcessed {
		return existing, false, nil
	}
	return existing, true, nil
}

func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID, result map[string]interface{}, elapsed time.Duration) error {
	query := `
		UPDATE webhook_events
		SET status = $2, result = $3, error = '', processing_time_ms = $4, processed_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, domain.EventStatusProcessed, result, elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}

	return nil
}

func (r *WebhookEventRepository) MarkFailed(ctx context.Context, id uuid.UUID, errText string, elapsed time.Duration) error {
	query := `
		UPDATE webhook_events
		SET status = $2, error = $3, processing_time_ms = $4, processed_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, domain.EventStatusFailed, errText, elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("mark webhook event failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}

	return nil
}

func (r *WebhookEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM webhook_events
		WHERE id = $1
	`

	event, err := scanWebhookEvent(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook event: %w", err)
	}

	return event, nil
}

func (r *WebhookEventRepository) ListByStore(ctx context.Context, storeID uuid.UUID, limit, offset int) ([]domain.WebhookEvent, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM webhook_events WHERE store_id = $1`
	if err := r.pool.QueryRow(ctx, countQuery, storeID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count webhook events: %w", err)
	}

	query := `
		SELECT ` + eventColumns + `
		FROM webhook_events
		WHERE store_id = $1
		ORDER BY received_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, storeID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list webhook events: %w", err)
	}
	defer rows.Close()

	var events []domain.WebhookEvent
	for rows.Next() {
		event, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan webhook event: %w", err)
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list webhook events: %w", err)
	}

	return events, total, nil
}

func (r *WebhookEventRepository) getByPayloadHash(ctx context.Context, storeID uuid.UUID, payloadHash string) (*domain.WebhookEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM webhook_events
		WHERE store_id = $1 AND payload_hash = $2
	`

	return scanWebhookEvent(r.pool.QueryRow(ctx, query, storeID, payloadHash))
}

func scanWebhookEvent(row pgx.Row) (*domain.WebhookEvent, error) {
	var event domain.WebhookEvent
	err := row.Scan(
		&event.ID,
		&event.StoreID,
		&event.Scope,
		&event.WebhookID,
		&event.PayloadHash,
		&event.Payload,
		&event.Status,
		&event.Result,
		&event.Error,
		&event.ProcessingTimeMs,
		&event.ReceivedAt,
		&event.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}
