package affilync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var (
	// ErrUnavailable indicates a transport failure talking to the affiliate backend.
	ErrUnavailable = errors.New("affilync service unavailable")
	// ErrTimeout indicates the request exceeded the configured deadline.
	ErrTimeout = errors.New("affilync request timed out")
)

// APIError is a non-2xx response from the affiliate backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("affilync API error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the request may be retried safely.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout)
}

// Config holds affiliate backend connection settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
}

// DefaultConfig returns a Config with sensible defaults. BaseURL and APIKey
// must be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		Timeout:    30 * time.Second,
		RetryCount: 2,
	}
}

// Client talks to the Affilync tracking API.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a client for the affiliate backend.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// TrackConversion records a completed order against its tracking code.
func (c *Client) TrackConversion(ctx context.Context, rec ConversionRecord) (*ConversionResponse, error) {
	var resp ConversionResponse
	if err := c.doWithRetry(ctx, http.MethodPost, "/v1/conversions", rec, &resp); err != nil {
		return nil, fmt.Errorf("track conversion: %w", err)
	}
	return &resp, nil
}

// TrackAdjustment records a refund against a previously tracked order.
func (c *Client) TrackAdjustment(ctx context.Context, rec AdjustmentRecord) (*AdjustmentResponse, error) {
	var resp AdjustmentResponse
	if err := c.doWithRetry(ctx, http.MethodPost, "/v1/adjustments", rec, &resp); err != nil {
		return nil, fmt.Errorf("track adjustment: %w", err)
	}
	return &resp, nil
}

// SyncProduct creates or updates a product in the affiliate catalog.
func (c *Client) SyncProduct(ctx context.Context, rec ProductSyncRecord) (*ProductSyncResponse, error) {
	var resp ProductSyncResponse
	if err := c.doWithRetry(ctx, http.MethodPost, "/v1/products/sync", rec, &resp); err != nil {
		return nil, fmt.Errorf("sync product: %w", err)
	}
	return &resp, nil
}

// LookupConversion returns the tracked conversion for an external order id,
// or nil when the order has no attribution.
func (c *Client) LookupConversion(ctx context.Context, brandID, externalOrderID string) (map[string]interface{}, error) {
	path := fmt.Sprintf("/v1/brands/%s/conversions/%s", brandID, url.PathEscape(externalOrderID))
	var resp map[string]interface{}
	err := c.doWithRetry(ctx, http.MethodGet, path, nil, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup conversion: %w", err)
	}
	return resp, nil
}

// GetBrandUsage returns aggregate conversion counters for a brand over the
// given period, scoped to the bigcommerce source.
func (c *Client) GetBrandUsage(ctx context.Context, brandID, period string) (map[string]interface{}, error) {
	query := url.Values{"source": {"bigcommerce"}}
	if period != "" {
		query.Set("period", period)
	}
	path := fmt.Sprintf("/v1/brands/%s/usage?%s", brandID, query.Encode())
	var resp map[string]interface{}
	if err := c.doWithRetry(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get brand usage: %w", err)
	}
	return resp, nil
}

// DeleteProduct removes a product from the affiliate catalog. A missing
// product is not an error.
func (c *Client) DeleteProduct(ctx context.Context, brandID, externalProductID string) error {
	path := fmt.Sprintf("/v1/brands/%s/products/%s", brandID, externalProductID)
	err := c.doWithRetry(ctx, http.MethodDelete, path, nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func (c *Client) doWithRetry(ctx context.Context, method, path string, body, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		lastErr = c.do(ctx, method, path, body, out)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return readAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		if payload.Message != "" {
			apiErr.Message = payload.Message
		} else if payload.Error != "" {
			apiErr.Message = payload.Error
		}
	}
	return apiErr
}

func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
