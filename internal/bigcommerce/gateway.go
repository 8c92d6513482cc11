package bigcommerce

import (
	"context"
	"fmt"

	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

// TokenDecrypter recovers a store's plaintext access token.
type TokenDecrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// Gateway resolves per-store API clients from encrypted credentials.
type Gateway struct {
	client *Client
	vault  TokenDecrypter
}

func NewGateway(client *Client, vault TokenDecrypter) *Gateway {
	return &Gateway{client: client, vault: vault}
}

// ForStore builds an authenticated client for the store.
func (g *Gateway) ForStore(store *domain.Store) (*StoreClient, error) {
	if store.AccessToken == "" {
		return nil, fmt.Errorf("store %s has no access token", store.StoreHash)
	}
	token, err := g.vault.Decrypt(store.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token for %s: %w", store.StoreHash, err)
	}
	return g.client.ForStore(store.StoreHash, token), nil
}

// GetOrder fetches the authoritative order record for a store.
func (g *Gateway) GetOrder(ctx context.Context, store *domain.Store, orderID int64) (domain.OrderDocument, error) {
	sc, err := g.ForStore(store)
	if err != nil {
		return nil, err
	}
	order, err := sc.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return domain.OrderDocument(order), nil
}
