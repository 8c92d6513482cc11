package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

// MockStoreDirectory is a mock implementation of StoreDirectory
type MockStoreDirectory struct {
	mock.Mock
}

func (m *MockStoreDirectory) GetByHash(ctx context.Context, storeHash string) (*domain.Store, error) {
	args := m.Called(ctx, storeHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Store), args.Error(1)
}

// MockLedger is a mock implementation of Ledger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) RecordOrGet(ctx context.Context, storeID uuid.UUID, scope, webhookID, payloadHash string, payload map[string]interface{}) (*domain.WebhookEvent, bool, error) {
	args := m.Called(ctx, storeID, scope, webhookID, payloadHash, payload)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.WebhookEvent), args.Bool(1), args.Error(2)
}

func (m *MockLedger) MarkProcessed(ctx context.Context, id uuid.UUID, result map[string]interface{}, elapsed time.Duration) error {
	args := m.Called(ctx, id, result, elapsed)
	return args.Error(0)
}

func (m *MockLedger) MarkFailed(ctx context.Context, id uuid.UUID, errText string, elapsed time.Duration) error {
	args := m.Called(ctx, id, errText, elapsed)
	return args.Error(0)
}

// MockOrderGateway is a mock implementation of OrderGateway
type MockOrderGateway struct {
	mock.Mock
}

func (m *MockOrderGateway) GetOrder(ctx context.Context, store *domain.Store, orderID int64) (domain.OrderDocument, error) {
	args := m.Called(ctx, store, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.OrderDocument), args.Error(1)
}

// MockConversionTracker is a mock implementation of ConversionTracker
type MockConversionTracker struct {
	mock.Mock
}

func (m *MockConversionTracker) ProcessOrder(ctx context.Context, store *domain.Store, order domain.OrderDocument, scope string) (map[string]interface{}, error) {
	args := m.Called(ctx, store, order, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockConversionTracker) ProcessRefund(ctx context.Context, store *domain.Store, order domain.OrderDocument) (map[string]interface{}, error) {
	args := m.Called(ctx, store, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

// MockProductSyncer is a mock implementation of ProductSyncer
type MockProductSyncer struct {
	mock.Mock
}

func (m *MockProductSyncer) SyncFromWebhook(ctx context.Context, store *domain.Store, productID int64) (map[string]interface{}, error) {
	args := m.Called(ctx, store, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockProductSyncer) DeleteFromWebhook(ctx context.Context, store *domain.Store, productID int64) (map[string]interface{}, error) {
	args := m.Called(ctx, store, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

// MockStoreLifecycle is a mock implementation of StoreLifecycle
type MockStoreLifecycle struct {
	mock.Mock
}

func (m *MockStoreLifecycle) Uninstall(ctx context.Context, storeHash string) error {
	args := m.Called(ctx, storeHash)
	return args.Error(0)
}

type routerFixture struct {
	stores      *MockStoreDirectory
	ledger      *MockLedger
	orders      *MockOrderGateway
	conversions *MockConversionTracker
	products    *MockProductSyncer
	lifecycle   *MockStoreLifecycle
	router      *Router
}

func newRouterFixture() *routerFixture {
	f := &routerFixture{
		stores:      new(MockStoreDirectory),
		ledger:      new(MockLedger),
		orders:      new(MockOrderGateway),
		conversions: new(MockConversionTracker),
		products:    new(MockProductSyncer),
		lifecycle:   new(MockStoreLifecycle),
	}
	f.router = NewRouter(
		f.stores,
		f.ledger,
		f.orders,
		f.conversions,
		f.products,
		f.lifecycle,
		DefaultStatusPolicy(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return f
}

func testStore() *domain.Store {
	brandID := uuid.New()
	return &domain.Store{
		ID:        uuid.New(),
		StoreHash: "abc123",
		BrandID:   &brandID,
		IsActive:  true,
	}
}

func statusEnvelope(orderID int64, newStatus int) (*Envelope, map[string]interface{}) {
	env := &Envelope{
		Scope:    "store/order/statusUpdated",
		Producer: "stores/abc123",
		Data: EnvelopeData{
			ID:     orderID,
			Status: &EnvelopeStatus{PreviousStatusID: 1, NewStatusID: newStatus},
		},
	}
	payload := map[string]interface{}{
		"scope":    env.Scope,
		"producer": env.Producer,
		"data": map[string]interface{}{
			"id": float64(orderID),
			"status": map[string]interface{}{
				"previous_status_id": float64(1),
				"new_status_id":      float64(newStatus),
			},
		},
	}
	return env, payload
}

func TestRouterMissingStoreHash(t *testing.T) {
	f := newRouterFixture()

	env := &Envelope{Scope: "store/order/created"}
	resp := f.router.Handle(context.Background(), env, map[string]interface{}{})

	assert.Equal(t, "ignored", resp.Status)
	assert.Equal(t, "missing_store_hash", resp.Reason)
	f.stores.AssertNotCalled(t, "GetByHash", mock.Anything, mock.Anything)
}

func TestRouterUnknownStoreIgnored(t *testing.T) {
	f := newRouterFixture()
	f.stores.On("GetByHash", mock.Anything, "abc123").Return(nil, domain.ErrStoreNotFound)

	env, payload := statusEnvelope(100, 10)
	resp := f.router.Handle(context.Background(), env, payload)

	assert.Equal(t, "ignored", resp.Status)
	assert.Equal(t, "store_not_found", resp.Reason)
	f.ledger.AssertNotCalled(t, "RecordOrGet", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRouterDuplicateSkipsProcessing(t *testing.T) {
	f := newRouterFixture()
	store := testStore()
	entry := &domain.WebhookEvent{ID: uuid.New(), Status: domain.EventStatusProcessed}

	f.stores.On("GetByHash", mock.Anything, "abc123").Return(store, nil)
	f.ledger.On("RecordOrGet", mock.Anything, store.ID, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(entry, false, nil)

	env, payload := statusEnvelope(100, 10)
	resp := f.router.Handle(context.Background(), env, payload)

	assert.Equal(t, "duplicate", resp.Status)
	f.orders.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything, mock.Anything)
	f.conversions.AssertNotCalled(t, "ProcessOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.ledger.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRouterConversionStatus(t *testing.T) {
	f := newRouterFixture()
	store := testStore()
	entry := &domain.WebhookEvent{ID: uuid.New(), Status: domain.EventStatusReceived}
	order := domain.OrderDocument{"id": float64(100), "status_id": float64(10)}
	result := map[string]interface{}{"status": "tracked", "order_id": int64(100)}

	f.stores.On("GetByHash", mock.Anything, "abc123").Return(store, nil)
	f.ledger.On("RecordOrGet", mock.Anything, store.ID, "store/order/statusUpdated", mock.Anything, mock.Anything, mock.Anything).
		Return(entry, true, nil)
	f.orders.On("GetOrder", mock.Anything, store, int64(100)).Return(order, nil)
	f.conversions.On("ProcessOrder", mock.Anything, store, order, "store/order/statusUpdated").Return(result, nil)
	f.ledger.On("MarkProcessed", mock.Anything, entry.ID, result, mock.Anything).Return(nil)

	env, payload := statusEnvelope(100, 10)
	resp := f.router.Handle(context.Background(), env, payload)

	assert.Equal(t, "processed", resp.Status)
	f.conversions.AssertExpectations(t)
	f.ledger.AssertExpectations(t)
}

func TestRouterRefundStatus(t *testing.T) {
	f := newRouterFixture()
	store := testStore()
	entry := &domain.WebhookEvent{ID: uuid.New(), Status: domain.EventStatusReceived}
	order := domain.OrderDocument{"id": float64(100), "status_id": float64(4), "refunded_amount": "25.00"}
	result := map[string]interface{}{"status": "adjusted"}

	f.stores.On("GetByHash", mock.Anything, "abc123").Return(store, nil)
	f.ledger.On("RecordOrGet", mock.Anything, store.ID, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(entry, true, nil)
	f.orders.On("GetOrder", mock.Anything, store, int64(100)).Return(order, nil)
	f.conversions.On("ProcessRefund", mock.Anything, store, order).Return(result, nil)
	f.ledger.On("MarkProcessed", mock.Anything, entry.ID, result, mock.Anything).Return(nil)

	env, payload := statusEnvelope(100, 4)
	resp := f.router.Handle(context.Background(), env, payload)

	assert.Equal(t, "processed", resp.Status)
	f.conversions.AssertExpectations(t)
}

func TestRouterNeutralStatusLoggedOnly(t *testing.T) {
	f := newRouterFixture()
	store := testStore()
	entry := &domain.WebhookEvent{ID: uuid.New(), Status: domain.EventStatusReceived}

	f.stores.On("GetByHash", mock.Anything, "abc123").Return(store, nil)
	f.ledger.On("RecordOrGet", mock.Anything, store.ID, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(entry, true, nil)
	f.ledger.On("MarkProcessed", mock.Anything, entry.ID, mock.Anything, mock.Anything).Return(nil)

	// Awaiting fulfillment: payment not confirmed, no attribution call
	env, payload := statusEnvelope(100, 11)
	resp := f.router.Handle(context.Background(), env, payload)

	assert.Equal(t, "processed", resp.Status)
	f.orders.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything, mock.Anything)
	f.conversions.AssertNotCalled(t, "ProcessOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRouterHandlerFailureMarksFailed(t *testing.T) {
	f := newRouterFixture()
	store := testStore()
	entry := &domain.WebhookEvent{ID: uuid.New(), Status: domain.EventStatusReceived}

	f.stores.On("GetByHash", mock.Anything, "abc123").Return(store, nil)
	f.ledger.On("RecordOrGet", mock.Anything, store.ID, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(entry, true, nil)
	f.orders.On("GetOrder", mock.Anything, store, int64(100)).Return(nil, errors.New("bigcommerce timeout"))
	f.ledger.On("MarkFailed", mock.Anything, entry.ID, "bigcommerce timeout", mock.Anything).Return(nil)

	env, payload := statusEnvelope(100, 10)
	resp := f.router.Handle(context.Background(), env, payload)

	// Business failures still acknowledge with a 200-shaped error
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "bigcommerce timeout")
	f.ledger.AssertExpectations(t)
	f.ledger.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRouterProductDeleted(t *testing.T) {
	f := newRouterFixture()
	store := testStore()
	entry := &domain.WebhookEvent{ID: uuid.New(), Status: domain.EventStatusReceived}
	result := map[string]interface{}{"status": "deleted", "product_id": int64(55)}

	f.stores.On("GetByHash", mock.Anything, "abc123").Return(store, nil)
	f.ledger.On("RecordOrGet", mock.Anything, store.ID, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(entry, true, nil)
	f.products.On("DeleteFromWebhook", mock.Anything, store, int64(55)).Return(result, nil)
	f.ledger.On("MarkProcessed", mock.Anything, entry.ID, result, mock.Anything).Return(nil)

	env := &Envelope{
		Scope:    "store/product/deleted",
		Producer: "stores/abc123",
		Data:     EnvelopeData{ID: 55},
	}
	resp := f.router.Handle(context.Background(), env, map[string]interface{}{"scope": env.Scope})

	assert.Equal(t, "processed", resp.Status)
	f.products.AssertExpectations(t)
}

func TestRouterProductUpdateWithoutAutoSync(t *testing.T) {
	f := newRouterFixture()
	store := testStore()
	store.Settings = map[string]interface{}{"auto_sync_products": false}
	entry := &domain.WebhookEvent{ID: uuid.New(), Status: domain.EventStatusReceived}

	f.stores.On("GetByHash", mock.Anything, "abc123").Return(store, nil)
	f.ledger.On("RecordOrGet", mock.Anything, store.ID, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(entry, true, nil)
	f.ledger.On("MarkProcessed", mock.Anything, entry.ID, mock.Anything, mock.Anything).Return(nil)

	env := &Envelope{
		Scope:    "store/product/updated",
		Producer: "stores/abc123",
		Data:     EnvelopeData{ID: 55},
	}
	resp := f.router.Handle(context.Background(), env, map[string]interface{}{"scope": env.Scope})

	assert.Equal(t, "processed", resp.Status)
	f.products.AssertNotCalled(t, "SyncFromWebhook", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouterAppUninstalled(t *testing.T) {
	f := newRouterFixture()
	store := testStore()
	entry := &domain.WebhookEvent{ID: uuid.New(), Status: domain.EventStatusReceived}

	f.stores.On("GetByHash", mock.Anything, "abc123").Return(store, nil)
	f.ledger.On("RecordOrGet", mock.Anything, store.ID, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(entry, true, nil)
	f.lifecycle.On("Uninstall", mock.Anything, "abc123").Return(nil)
	f.ledger.On("MarkProcessed", mock.Anything, entry.ID, mock.Anything, mock.Anything).Return(nil)

	env := &Envelope{
		Scope:    "store/app/uninstalled",
		Producer: "stores/abc123",
	}
	resp := f.router.Handle(context.Background(), env, map[string]interface{}{"scope": env.Scope})

	assert.Equal(t, "processed", resp.Status)
	f.lifecycle.AssertExpectations(t)
}

func TestRouterUnknownScopeAcknowledged(t *testing.T) {
	f := newRouterFixture()
	store := testStore()
	entry := &domain.WebhookEvent{ID: uuid.New(), Status: domain.EventStatusReceived}

	f.stores.On("GetByHash", mock.Anything, "abc123").Return(store, nil)
	f.ledger.On("RecordOrGet", mock.Anything, store.ID, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(entry, true, nil)
	f.ledger.On("MarkProcessed", mock.Anything, entry.ID, mock.Anything, mock.Anything).Return(nil)

	env := &Envelope{
		Scope:    "store/customer/created",
		Producer: "stores/abc123",
	}
	resp := f.router.Handle(context.Background(), env, map[string]interface{}{"scope": env.Scope})

	require.Equal(t, "processed", resp.Status)
	result, ok := resp.Result.(Result)
	require.True(t, ok)
	assert.Equal(t, "unhandled", result["status"])
}
