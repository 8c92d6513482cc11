package bigcommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the BigCommerce client
type Config struct {
	APIURL     string
	AuthURL    string
	ClientID   string
	Secret     string
	Timeout    time.Duration
	RetryCount int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		APIURL:     "https://api.bigcommerce.com",
		AuthURL:    "https://login.bigcommerce.com",
		Timeout:    30 * time.Second,
		RetryCount: 2,
	}
}

// Client is the HTTP client for the BigCommerce API. Store-scoped calls go
// through ForStore, which binds a store hash and access token.
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a new BigCommerce client
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// StoreClient is a Client bound to one store's credentials.
// API URL format: {api_url}/stores/{store_hash}/{version}/{endpoint}
type StoreClient struct {
	client      *Client
	storeHash   string
	accessToken string
}

// ForStore binds the client to a store hash and decrypted access token.
func (c *Client) ForStore(storeHash, accessToken string) *StoreClient {
	return &StoreClient{
		client:      c,
		storeHash:   storeHash,
		accessToken: accessToken,
	}
}

// TokenResponse is the OAuth authorization-code exchange result.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
	Context     string `json:"context"`
	User        struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// ExchangeCode exchanges an OAuth authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code, scope, storeContext, redirectURI string) (*TokenResponse, error) {
	body := map[string]string{
		"client_id":     c.config.ClientID,
		"client_secret": c.config.Secret,
		"code":          code,
		"scope":         scope,
		"context":       storeContext,
		"grant_type":    "authorization_code",
		"redirect_uri":  redirectURI,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.AuthURL+"/oauth2/token", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return nil, readAPIError(resp)
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	return &token, nil
}

// GetStoreInfo fetches store profile details (v2 endpoint).
func (s *StoreClient) GetStoreInfo(ctx context.Context) (map[string]interface{}, error) {
	var info map[string]interface{}
	if err := s.doWithRetry(ctx, http.MethodGet, "v2", "store", nil, nil, &info); err != nil {
		return nil, err
	}
	return info, nil
}

// GetOrder fetches an order by id (v2 endpoint).
func (s *StoreClient) GetOrder(ctx context.Context, orderID int64) (map[string]interface{}, error) {
	var order map[string]interface{}
	path := fmt.Sprintf("orders/%d", orderID)
	if err := s.doWithRetry(ctx, http.MethodGet, "v2", path, nil, nil, &order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrderProducts fetches the products in an order (v2 endpoint).
func (s *StoreClient) GetOrderProducts(ctx context.Context, orderID int64) ([]map[string]interface{}, error) {
	var products []map[string]interface{}
	path := fmt.Sprintf("orders/%d/products", orderID)
	if err := s.doWithRetry(ctx, http.MethodGet, "v2", path, nil, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct fetches a product by id (v3 endpoint). include lists extra
// sub-resources such as "images" and "custom_fields".
func (s *StoreClient) GetProduct(ctx context.Context, productID int64, include []string) (map[string]interface{}, error) {
	params := url.Values{}
	if len(include) > 0 {
		params.Set("include", strings.Join(include, ","))
	}

	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	path := fmt.Sprintf("catalog/products/%d", productID)
	if err := s.doWithRetry(ctx, http.MethodGet, "v3", path, params, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// ProductPage is one page of the product catalog.
type ProductPage struct {
	Data []map[string]interface{} `json:"data"`
	Meta struct {
		Pagination struct {
			Total      int `json:"total"`
			TotalPages int `json:"total_pages"`
		} `json:"pagination"`
	} `json:"meta"`
}

// GetProducts fetches one catalog page (v3 endpoint, max 250 per page).
func (s *StoreClient) GetProducts(ctx context.Context, page, limit int, include []string, visibleOnly bool) (*ProductPage, error) {
	if limit > 250 {
		limit = 250
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))
	if len(include) > 0 {
		params.Set("include", strings.Join(include, ","))
	}
	if visibleOnly {
		params.Set("is_visible", "true")
	}

	var result ProductPage
	if err := s.doWithRetry(ctx, http.MethodGet, "v3", "catalog/products", params, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetAllProducts walks the catalog pagination and returns every product.
func (s *StoreClient) GetAllProducts(ctx context.Context, include []string, visibleOnly bool) ([]map[string]interface{}, error) {
	var all []map[string]interface{}
	page := 1
	for {
		result, err := s.GetProducts(ctx, page, 250, include, visibleOnly)
		if err != nil {
			return nil, err
		}
		all = append(all, result.Data...)

		totalPages := result.Meta.Pagination.TotalPages
		if totalPages == 0 || page >= totalPages {
			break
		}
		page++
	}
	return all, nil
}

// Webhook is a registered BigCommerce webhook subscription.
type Webhook struct {
	ID          int64  `json:"id"`
	Scope       string `json:"scope"`
	Destination string `json:"destination"`
	IsActive    bool   `json:"is_active"`
}

// GetWebhooks lists the store's webhook subscriptions.
func (s *StoreClient) GetWebhooks(ctx context.Context) ([]Webhook, error) {
	var envelope struct {
		Data []Webhook `json:"data"`
	}
	if err := s.doWithRetry(ctx, http.MethodGet, "v3", "hooks", nil, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// CreateWebhook registers a webhook subscription.
func (s *StoreClient) CreateWebhook(ctx context.Context, scope, destination string) (*Webhook, error) {
	body := map[string]interface{}{
		"scope":       scope,
		"destination": destination,
		"is_active":   true,
	}

	var envelope struct {
		Data Webhook `json:"data"`
	}
	if err := s.doWithRetry(ctx, http.MethodPost, "v3", "hooks", nil, body, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// DeleteWebhook removes a webhook subscription. Returns false when the
// webhook no longer exists.
func (s *StoreClient) DeleteWebhook(ctx context.Context, webhookID int64) (bool, error) {
	path := fmt.Sprintf("hooks/%d", webhookID)
	err := s.doWithRetry(ctx, http.MethodDelete, "v3", path, nil, nil, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RegisterWebhooks subscribes the callback URL to every scope not already
// registered, returning the newly created subscriptions.
func (s *StoreClient) RegisterWebhooks(ctx context.Context, scopes []string, callbackURL string) ([]Webhook, error) {
	existing, err := s.GetWebhooks(ctx)
	if err != nil {
		return nil, err
	}

	registered := make(map[string]bool, len(existing))
	for _, w := range existing {
		registered[w.Scope] = true
	}

	var created []Webhook
	for _, scope := range scopes {
		if registered[scope] {
			continue
		}
		webhook, err := s.CreateWebhook(ctx, scope, callbackURL)
		if err != nil {
			return created, fmt.Errorf("register webhook %s: %w", scope, err)
		}
		created = append(created, *webhook)
	}
	return created, nil
}

func (s *StoreClient) doWithRetry(ctx context.Context, method, version, path string, params url.Values, body, result interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= s.client.config.RetryCount; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = s.do(ctx, method, version, path, params, body, result)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

func (s *StoreClient) do(ctx context.Context, method, version, path string, params url.Values, body, result interface{}) error {
	endpoint := fmt.Sprintf("%s/stores/%s/%s/%s", s.client.config.APIURL, s.storeHash, version, strings.TrimPrefix(path, "/"))
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Auth-Token", s.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter, _ := strconv.Atoi(resp.Header.Get("X-Rate-Limit-Time-Reset-Ms"))
		return &APIError{
			StatusCode:   resp.StatusCode,
			Message:      "rate limited",
			RetryAfterMs: retryAfter,
		}
	}

	if resp.StatusCode >= 400 {
		return readAPIError(resp)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func readAPIError(resp *http.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("API error: %d", resp.StatusCode),
	}

	var errBody struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil && errBody.Title != "" {
		apiErr.Message = errBody.Title
	}

	return apiErr
}

func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
