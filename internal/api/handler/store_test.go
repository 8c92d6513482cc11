package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/affilync/bigcommerce-bridge/internal/api/middleware"
	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

// MockStoreService is a mock implementation of StoreService
type MockStoreService struct {
	mock.Mock
}

func (m *MockStoreService) UpdateSettings(ctx context.Context, storeID uuid.UUID, updates map[string]interface{}) (*domain.Store, error) {
	args := m.Called(ctx, storeID, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Store), args.Error(1)
}

func (m *MockStoreService) ConnectBrand(ctx context.Context, storeID, brandID uuid.UUID) (*domain.Store, error) {
	args := m.Called(ctx, storeID, brandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Store), args.Error(1)
}

func (m *MockStoreService) DisconnectBrand(ctx context.Context, storeID uuid.UUID) (*domain.Store, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Store), args.Error(1)
}

// MockUsageSource is a mock implementation of UsageSource
type MockUsageSource struct {
	mock.Mock
}

func (m *MockUsageSource) GetBrandUsage(ctx context.Context, brandID, period string) (map[string]interface{}, error) {
	args := m.Called(ctx, brandID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

// storeApp builds a test app with the auth locals pre-populated, standing in
// for the signed payload middleware.
func storeApp(h *StoreHandler, store *domain.Store) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(testLogger()),
	})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalStoreID, store.ID)
		c.Locals(middleware.LocalStore, store)
		return c.Next()
	})
	app.Get("/v1/store", h.Info)
	app.Post("/v1/store/connect", h.ConnectBrand)
	app.Post("/v1/store/disconnect", h.DisconnectBrand)
	app.Put("/v1/store/settings", h.UpdateSettings)
	app.Get("/v1/store/analytics", h.Analytics)
	return app
}

func authedStore() *domain.Store {
	brandID := uuid.New()
	return &domain.Store{
		ID:        uuid.New(),
		StoreHash: "abc123",
		Name:      "Test Store",
		BrandID:   &brandID,
		IsActive:  true,
		Settings:  map[string]interface{}{"auto_sync_products": false},
	}
}

func TestStoreInfo(t *testing.T) {
	store := authedStore()
	h := NewStoreHandler(new(MockStoreService), new(MockUsageSource), testLogger())
	app := storeApp(h, store)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/store", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var info StoreInfoResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "abc123", info.StoreHash)
	assert.True(t, info.IsConnected)
	assert.Equal(t, store.BrandID, info.BrandID)
}

func TestConnectBrand(t *testing.T) {
	store := authedStore()
	brandID := uuid.New()

	tests := []struct {
		name           string
		body           string
		setupMock      func(m *MockStoreService)
		expectedStatus int
	}{
		{
			name: "successful connection",
			body: `{"brand_id": "` + brandID.String() + `"}`,
			setupMock: func(m *MockStoreService) {
				connected := *store
				connected.BrandID = &brandID
				m.On("ConnectBrand", mock.Anything, store.ID, brandID).Return(&connected, nil)
			},
			expectedStatus: 200,
		},
		{
			name:           "malformed brand id",
			body:           `{"brand_id": "not-a-uuid"}`,
			setupMock:      func(m *MockStoreService) {},
			expectedStatus: 422,
		},
		{
			name: "service error",
			body: `{"brand_id": "` + brandID.String() + `"}`,
			setupMock: func(m *MockStoreService) {
				m.On("ConnectBrand", mock.Anything, store.ID, brandID).Return(nil, domain.ErrStoreNotFound)
			},
			expectedStatus: 404,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockStoreService)
			tt.setupMock(service)
			h := NewStoreHandler(service, new(MockUsageSource), testLogger())
			app := storeApp(h, store)

			req := httptest.NewRequest("POST", "/v1/store/connect", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestUpdateSettings(t *testing.T) {
	store := authedStore()

	tests := []struct {
		name           string
		body           string
		setupMock      func(m *MockStoreService)
		expectedStatus int
	}{
		{
			name: "valid update",
			body: `{"auto_sync_products": true, "cookie_duration_days": 60}`,
			setupMock: func(m *MockStoreService) {
				m.On("UpdateSettings", mock.Anything, store.ID, map[string]interface{}{
					"auto_sync_products":   true,
					"cookie_duration_days": 60,
				}).Return(store, nil)
			},
			expectedStatus: 200,
		},
		{
			name:           "cookie duration out of range",
			body:           `{"cookie_duration_days": 999}`,
			setupMock:      func(m *MockStoreService) {},
			expectedStatus: 422,
		},
		{
			name:           "unknown attribution model",
			body:           `{"attribution_model": "linear"}`,
			setupMock:      func(m *MockStoreService) {},
			expectedStatus: 422,
		},
		{
			name:           "no recognized keys",
			body:           `{}`,
			setupMock:      func(m *MockStoreService) {},
			expectedStatus: 400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockStoreService)
			tt.setupMock(service)
			h := NewStoreHandler(service, new(MockUsageSource), testLogger())
			app := storeApp(h, store)

			req := httptest.NewRequest("PUT", "/v1/store/settings", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			service.AssertExpectations(t)
		})
	}
}

func TestAnalytics(t *testing.T) {
	t.Run("connected store", func(t *testing.T) {
		store := authedStore()
		usage := new(MockUsageSource)
		usage.On("GetBrandUsage", mock.Anything, store.BrandID.String(), "7d").
			Return(map[string]interface{}{"total_conversions": 12}, nil)

		h := NewStoreHandler(new(MockStoreService), usage, testLogger())
		app := storeApp(h, store)

		resp, err := app.Test(httptest.NewRequest("GET", "/v1/store/analytics?period=7d", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var decoded map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
		assert.Equal(t, true, decoded["connected"])
		assert.Equal(t, "7d", decoded["period"])
		assert.Equal(t, float64(12), decoded["total_conversions"])
	})

	t.Run("unconnected store reports zeros", func(t *testing.T) {
		store := authedStore()
		store.BrandID = nil
		usage := new(MockUsageSource)

		h := NewStoreHandler(new(MockStoreService), usage, testLogger())
		app := storeApp(h, store)

		resp, err := app.Test(httptest.NewRequest("GET", "/v1/store/analytics", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var decoded map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
		assert.Equal(t, false, decoded["connected"])
		assert.Equal(t, "30d", decoded["period"])
		assert.Equal(t, float64(0), decoded["total_conversions"])
		usage.AssertNotCalled(t, "GetBrandUsage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("backend failure reports zeros", func(t *testing.T) {
		store := authedStore()
		usage := new(MockUsageSource)
		usage.On("GetBrandUsage", mock.Anything, store.BrandID.String(), "30d").
			Return(nil, errors.New("affilync down"))

		h := NewStoreHandler(new(MockStoreService), usage, testLogger())
		app := storeApp(h, store)

		resp, err := app.Test(httptest.NewRequest("GET", "/v1/store/analytics", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var decoded map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
		assert.Equal(t, false, decoded["connected"])
	})
}
