package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/affilync/bigcommerce-bridge/internal/bigcommerce"
	"github.com/affilync/bigcommerce-bridge/internal/domain"
	"github.com/affilync/bigcommerce-bridge/internal/webhook"
)

// Repository persists store installations.
type Repository interface {
	GetByHash(ctx context.Context, storeHash string) (*domain.Store, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Store, error)
	ListActive(ctx context.Context) ([]domain.Store, error)
	Create(ctx context.Context, store *domain.Store) error
	Update(ctx context.Context, store *domain.Store) error
}

// TokenCipher encrypts access tokens at rest.
type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// InstallingUser is the platform user who authorized the install.
type InstallingUser struct {
	ID    int64
	Email string
}

// Service manages the store install lifecycle: OAuth installs, uninstall
// webhooks, brand connection and per-store settings.
type Service struct {
	repo        Repository
	vault       TokenCipher
	client      *bigcommerce.Client
	callbackURL string
	logger      *slog.Logger
}

func NewService(repo Repository, vault TokenCipher, client *bigcommerce.Client, callbackURL string, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		vault:       vault,
		client:      client,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

// GetByHash returns the store for a platform store hash.
func (s *Service) GetByHash(ctx context.Context, storeHash string) (*domain.Store, error) {
	return s.repo.GetByHash(ctx, storeHash)
}

// GetByID returns the store by its internal id.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Store, error) {
	return s.repo.GetByID(ctx, id)
}

// ListActive returns all active installations.
func (s *Service) ListActive(ctx context.Context) ([]domain.Store, error) {
	return s.repo.ListActive(ctx)
}

// Install records a new installation or reactivates an existing one after the
// OAuth code exchange. The access token is stored encrypted only.
func (s *Service) Install(ctx context.Context, storeHash, accessToken, scope string, user *InstallingUser) (*domain.Store, error) {
	encrypted, err := s.vault.Encrypt(accessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}

	existing, err := s.repo.GetByHash(ctx, storeHash)
	if err == nil {
		existing.AccessToken = encrypted
		existing.Scope = scope
		existing.IsActive = true
		existing.UninstalledAt = nil
		if user != nil {
			existing.UserID = strconv.FormatInt(user.ID, 10)
			existing.UserEmail = user.Email
		}
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("reinstall store %s: %w", storeHash, err)
		}
		s.logger.Info("store reinstalled", "store_hash", storeHash)
		return existing, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("lookup store %s: %w", storeHash, err)
	}

	store := &domain.Store{
		StoreHash:   storeHash,
		AccessToken: encrypted,
		Scope:       scope,
		IsActive:    true,
		Settings: map[string]interface{}{
			"auto_sync_products":   false,
			"cookie_duration_days": 30,
			"attribution_model":    "last_click",
		},
		InstalledAt: time.Now().UTC(),
	}
	if user != nil {
		store.UserID = strconv.FormatInt(user.ID, 10)
		store.UserEmail = user.Email
	}

	// Profile details are cosmetic; a failed fetch never blocks the install.
	if info, err := s.client.ForStore(storeHash, accessToken).GetStoreInfo(ctx); err != nil {
		s.logger.Warn("store profile fetch failed", "store_hash", storeHash, "error", err)
	} else {
		store.Name, _ = info["name"].(string)
		store.Email, _ = info["admin_email"].(string)
		store.Domain, _ = info["domain"].(string)
	}

	if err := s.repo.Create(ctx, store); err != nil {
		return nil, fmt.Errorf("install store %s: %w", storeHash, err)
	}
	s.logger.Info("new store installed", "store_hash", storeHash)
	return store, nil
}

// Uninstall deactivates a store and wipes its access token. The row is kept
// so attribution history survives a reinstall. Unknown stores are a no-op.
func (s *Service) Uninstall(ctx context.Context, storeHash string) error {
	store, err := s.repo.GetByHash(ctx, storeHash)
	if err != nil {
		if isNotFound(err) {
			s.logger.Warn("uninstall for unknown store", "store_hash", storeHash)
			return nil
		}
		return fmt.Errorf("lookup store %s: %w", storeHash, err)
	}

	now := time.Now().UTC()
	store.IsActive = false
	store.UninstalledAt = &now
	store.AccessToken = ""

	if err := s.repo.Update(ctx, store); err != nil {
		return fmt.Errorf("uninstall store %s: %w", storeHash, err)
	}
	s.logger.Info("store uninstalled", "store_hash", storeHash)
	return nil
}

// RegisterWebhooks creates the webhook subscriptions the bridge needs,
// skipping scopes that already point somewhere.
func (s *Service) RegisterWebhooks(ctx context.Context, store *domain.Store) ([]bigcommerce.Webhook, error) {
	token, err := s.vault.Decrypt(store.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	sc := s.client.ForStore(store.StoreHash, token)
	hooks, err := sc.RegisterWebhooks(ctx, webhook.RegisteredScopes(), s.callbackURL)
	if err != nil {
		return nil, fmt.Errorf("register webhooks for %s: %w", store.StoreHash, err)
	}
	return hooks, nil
}

// UpdateSettings merges the given keys into the store's settings.
func (s *Service) UpdateSettings(ctx context.Context, storeID uuid.UUID, updates map[string]interface{}) (*domain.Store, error) {
	store, err := s.repo.GetByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.Settings == nil {
		store.Settings = map[string]interface{}{}
	}
	for k, v := range updates {
		store.Settings[k] = v
	}
	if err := s.repo.Update(ctx, store); err != nil {
		return nil, err
	}
	return store, nil
}

// ConnectBrand links the store to an Affilync brand account.
func (s *Service) ConnectBrand(ctx context.Context, storeID, brandID uuid.UUID) (*domain.Store, error) {
	store, err := s.repo.GetByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	store.BrandID = &brandID
	if err := s.repo.Update(ctx, store); err != nil {
		return nil, err
	}
	s.logger.Info("store connected to brand", "store_hash", store.StoreHash, "brand_id", brandID)
	return store, nil
}

// DisconnectBrand unlinks the store from its brand account.
func (s *Service) DisconnectBrand(ctx context.Context, storeID uuid.UUID) (*domain.Store, error) {
	store, err := s.repo.GetByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	store.BrandID = nil
	if err := s.repo.Update(ctx, store); err != nil {
		return nil, err
	}
	s.logger.Info("store disconnected from brand", "store_hash", store.StoreHash)
	return store, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrStoreNotFound)
}
