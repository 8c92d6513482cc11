package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/affilync/bigcommerce-bridge/internal/bigcommerce"
	"github.com/affilync/bigcommerce-bridge/internal/domain"
	"github.com/affilync/bigcommerce-bridge/internal/oauth"
	"github.com/affilync/bigcommerce-bridge/internal/store"
)

// InstallScopes is the OAuth scope set requested at install time.
const InstallScopes = "store_v2_default store_v2_orders store_v2_products store_webhooks_manage"

// CodeExchanger swaps an authorization code for an access token.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code, scope, storeContext, redirectURI string) (*bigcommerce.TokenResponse, error)
}

// StoreLifecycle is the install/uninstall surface of the store service.
type StoreLifecycle interface {
	GetByHash(ctx context.Context, storeHash string) (*domain.Store, error)
	Install(ctx context.Context, storeHash, accessToken, scope string, user *store.InstallingUser) (*domain.Store, error)
	Uninstall(ctx context.Context, storeHash string) error
	RegisterWebhooks(ctx context.Context, s *domain.Store) ([]bigcommerce.Webhook, error)
}

// SignedPayloadVerifier validates load/uninstall callbacks.
type SignedPayloadVerifier interface {
	Verify(payload string) (*bigcommerce.SignedPayloadClaims, error)
}

// OAuthConfig holds the app identity needed to drive the install flow.
type OAuthConfig struct {
	ClientID string
	AuthURL  string
	AppURL   string
}

type OAuthHandler struct {
	config   OAuthConfig
	client   CodeExchanger
	stores   StoreLifecycle
	states   oauth.StateStore
	verifier SignedPayloadVerifier
	logger   *slog.Logger
}

func NewOAuthHandler(
	config OAuthConfig,
	client CodeExchanger,
	stores StoreLifecycle,
	states oauth.StateStore,
	verifier SignedPayloadVerifier,
	logger *slog.Logger,
) *OAuthHandler {
	return &OAuthHandler{
		config:   config,
		client:   client,
		stores:   stores,
		states:   states,
		verifier: verifier,
		logger:   logger,
	}
}

// Auth starts the install flow, redirecting the merchant to the platform's
// consent screen. When the platform sends the authorization code back to the
// same URL, the request carries ?code= and is treated as the callback.
func (h *OAuthHandler) Auth(c *fiber.Ctx) error {
	if c.Query("code") != "" {
		return h.completeInstall(c)
	}

	state, err := h.states.Issue(c.Context(), oauth.DefaultStateTTL)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}

	params := url.Values{
		"client_id":     {h.config.ClientID},
		"redirect_uri":  {h.config.AppURL + "/oauth/auth"},
		"response_type": {"code"},
		"scope":         {InstallScopes},
		"state":         {state},
	}
	return c.Redirect(h.config.AuthURL+"/oauth2/authorize?"+params.Encode(), fiber.StatusFound)
}

// Callback completes the install flow on the registered callback URL.
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	return h.completeInstall(c)
}

func (h *OAuthHandler) completeInstall(c *fiber.Ctx) error {
	code := c.Query("code")
	scope := c.Query("scope")
	storeContext := c.Query("context")
	if code == "" || storeContext == "" {
		return domain.ErrBadRequest
	}

	if state := c.Query("state"); state != "" {
		if err := h.states.Consume(c.Context(), state); err != nil {
			if errors.Is(err, domain.ErrInvalidOAuthState) {
				return domain.ErrInvalidOAuthState
			}
			return domain.ErrInternal.WithError(err)
		}
	}

	storeHash := strings.TrimPrefix(storeContext, "stores/")
	if storeHash == "" {
		return domain.ErrBadRequest
	}

	token, err := h.client.ExchangeCode(c.Context(), code, scope, storeContext, h.config.AppURL+"/oauth/auth")
	if err != nil {
		h.logger.Error("oauth code exchange failed",
			slog.String("store_hash", storeHash),
			slog.Any("error", err),
		)
		return domain.ErrUnauthorized.WithError(err)
	}

	user := &store.InstallingUser{ID: token.User.ID, Email: token.User.Email}
	installed, err := h.stores.Install(c.Context(), storeHash, token.AccessToken, token.Scope, user)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}

	// Webhook registration is retried on the next install; a partial failure
	// must not strand the merchant mid-flow.
	if _, err := h.stores.RegisterWebhooks(c.Context(), installed); err != nil {
		h.logger.Error("webhook registration failed",
			slog.String("store_hash", storeHash),
			slog.Any("error", err),
		)
	}

	return c.Redirect(h.config.AppURL+"/?store_hash="+url.QueryEscape(storeHash), fiber.StatusFound)
}

// Load handles the control panel loading the embedded app.
func (h *OAuthHandler) Load(c *fiber.Ctx) error {
	claims, err := h.verifySignedPayload(c)
	if err != nil {
		return err
	}

	storeHash := claims.StoreHash()
	s, err := h.stores.GetByHash(c.Context(), storeHash)
	if err != nil {
		return domain.ErrStoreNotFound
	}
	if !s.IsActive {
		return domain.ErrStoreInactive
	}

	return c.Redirect(h.config.AppURL+"/?store_hash="+url.QueryEscape(storeHash), fiber.StatusFound)
}

// Uninstall handles the platform's uninstall callback.
func (h *OAuthHandler) Uninstall(c *fiber.Ctx) error {
	claims, err := h.verifySignedPayload(c)
	if err != nil {
		return err
	}

	if err := h.stores.Uninstall(c.Context(), claims.StoreHash()); err != nil {
		return domain.ErrInternal.WithError(err)
	}
	return c.JSON(fiber.Map{"status": "uninstalled"})
}

// RemoveUser handles multi-user app removal callbacks. No per-user state is
// kept, so this only acknowledges.
func (h *OAuthHandler) RemoveUser(c *fiber.Ctx) error {
	claims, err := h.verifySignedPayload(c)
	if err != nil {
		return err
	}

	h.logger.Info("user removed from app",
		slog.String("store_hash", claims.StoreHash()),
		slog.Int64("user_id", claims.User.ID),
	)
	return c.JSON(fiber.Map{"status": "removed"})
}

func (h *OAuthHandler) verifySignedPayload(c *fiber.Ctx) (*bigcommerce.SignedPayloadClaims, error) {
	payload := strings.TrimSpace(c.Query("signed_payload_jwt"))
	if payload == "" {
		return nil, domain.ErrUnauthorized
	}
	claims, err := h.verifier.Verify(payload)
	if err != nil {
		return nil, domain.ErrUnauthorized.WithError(err)
	}
	return claims, nil
}
