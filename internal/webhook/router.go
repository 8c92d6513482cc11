package webhook

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

// Ledger is the deduplication ledger. RecordOrGet returns the existing entry
// with isNew=false when an equivalent payload was already processed; callers
// must not re-invoke handler logic in that case. Entries in received or
// failed state are reused with isNew=true, so a redelivery retries them.
type Ledger interface {
	RecordOrGet(ctx context.Context, storeID uuid.UUID, scope, webhookID, payloadHash string, payload map[string]interface{}) (*domain.WebhookEvent, bool, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, result map[string]interface{}, elapsed time.Duration) error
	MarkFailed(ctx context.Context, id uuid.UUID, errText string, elapsed time.Duration) error
}

// StoreDirectory resolves the tenant a delivery belongs to.
type StoreDirectory interface {
	GetByHash(ctx context.Context, storeHash string) (*domain.Store, error)
}

// OrderGateway fetches the authoritative order record from BigCommerce.
// Webhook payloads carry ids only, never order detail.
type OrderGateway interface {
	GetOrder(ctx context.Context, store *domain.Store, orderID int64) (domain.OrderDocument, error)
}

// ConversionTracker forwards attribution signals to the affiliate backend.
type ConversionTracker interface {
	ProcessOrder(ctx context.Context, store *domain.Store, order domain.OrderDocument, scope string) (map[string]interface{}, error)
	ProcessRefund(ctx context.Context, store *domain.Store, order domain.OrderDocument) (map[string]interface{}, error)
}

// ProductSyncer mirrors catalog changes locally and to the affiliate backend.
type ProductSyncer interface {
	SyncFromWebhook(ctx context.Context, store *domain.Store, productID int64) (map[string]interface{}, error)
	DeleteFromWebhook(ctx context.Context, store *domain.Store, productID int64) (map[string]interface{}, error)
}

// StoreLifecycle handles app uninstall notifications.
type StoreLifecycle interface {
	Uninstall(ctx context.Context, storeHash string) error
}

// Router owns the webhook lifecycle: resolve store, record on the ledger,
// dispatch by scope, record the outcome. Every branch produces a Response
// rather than an error; the admission gate (signature check) is the only
// place a delivery is rejected outright.
type Router struct {
	stores      StoreDirectory
	ledger      Ledger
	orders      OrderGateway
	conversions ConversionTracker
	products    ProductSyncer
	lifecycle   StoreLifecycle
	policy      StatusPolicy
	logger      *slog.Logger
}

func NewRouter(
	stores StoreDirectory,
	ledger Ledger,
	orders OrderGateway,
	conversions ConversionTracker,
	products ProductSyncer,
	lifecycle StoreLifecycle,
	policy StatusPolicy,
	logger *slog.Logger,
) *Router {
	return &Router{
		stores:      stores,
		ledger:      ledger,
		orders:      orders,
		conversions: conversions,
		products:    products,
		lifecycle:   lifecycle,
		policy:      policy,
		logger:      logger,
	}
}

// Handle processes one verified, parsed webhook delivery.
func (r *Router) Handle(ctx context.Context, env *Envelope, payload map[string]interface{}) *Response {
	storeHash := env.StoreHash()
	if storeHash == "" {
		r.logger.Warn("webhook missing store hash", "scope", env.Scope)
		return &Response{Status: "ignored", Reason: "missing_store_hash"}
	}

	store, err := r.stores.GetByHash(ctx, storeHash)
	if err != nil {
		if errors.Is(err, domain.ErrStoreNotFound) {
			// Never an error: uninstalled tenants keep sending until the
			// platform expires their hooks, and a non-200 would trigger a
			// retry storm.
			r.logger.Warn("webhook for unknown store", "store_hash", storeHash)
			return &Response{Status: "ignored", Reason: "store_not_found"}
		}
		r.logger.Error("store lookup failed", "store_hash", storeHash, "error", err)
		return &Response{Status: "error", Error: err.Error()}
	}

	hash, err := ContentHash(payload)
	if err != nil {
		return &Response{Status: "error", Error: err.Error()}
	}

	entry, isNew, err := r.ledger.RecordOrGet(ctx, store.ID, env.Scope, env.Hash, hash, payload)
	if err != nil {
		r.logger.Error("ledger record failed", "store_hash", storeHash, "error", err)
		return &Response{Status: "error", Error: err.Error()}
	}

	if !isNew {
		r.logger.Info("duplicate webhook skipped",
			"store_hash", storeHash,
			"scope", env.Scope,
			"payload_hash", hash,
		)
		return &Response{Status: "duplicate", Result: "already_processed"}
	}

	start := time.Now()
	result, err := r.dispatch(ctx, store, env)
	elapsed := time.Since(start)

	if err != nil {
		r.logger.Error("webhook processing failed",
			"store_hash", storeHash,
			"scope", env.Scope,
			"error", err,
		)
		if markErr := r.ledger.MarkFailed(ctx, entry.ID, err.Error(), elapsed); markErr != nil {
			r.logger.Error("ledger update failed", "event_id", entry.ID, "error", markErr)
		}
		// 200-shaped error: internal alerting surfaces these, not the
		// response code, so the platform does not redeliver.
		return &Response{Status: "error", Error: err.Error()}
	}

	if markErr := r.ledger.MarkProcessed(ctx, entry.ID, result, elapsed); markErr != nil {
		r.logger.Error("ledger update failed", "event_id", entry.ID, "error", markErr)
	}

	return &Response{Status: "processed", Result: Result(result)}
}

func (r *Router) dispatch(ctx context.Context, store *domain.Store, env *Envelope) (map[string]interface{}, error) {
	switch ParseScope(env.Scope) {
	case ScopeOrderCreated, ScopeOrderUpdated:
		return r.handleOrderLogged(store, env)
	case ScopeOrderStatusUpdated:
		return r.handleOrderStatusUpdated(ctx, store, env)
	case ScopeProductCreated, ScopeProductUpdated:
		return r.handleProductUpserted(ctx, store, env)
	case ScopeProductDeleted:
		return r.products.DeleteFromWebhook(ctx, store, env.Data.ID)
	case ScopeAppUninstalled:
		if err := r.lifecycle.Uninstall(ctx, store.StoreHash); err != nil {
			return nil, err
		}
		return map[string]interface{}{"status": "uninstalled", "store_hash": store.StoreHash}, nil
	default:
		r.logger.Info("unhandled webhook scope", "scope", env.Scope)
		return map[string]interface{}{"status": "unhandled", "scope": env.Scope}, nil
	}
}

// handleOrderLogged acknowledges order created/updated events. Order webhooks
// only carry the order id; conversion tracking waits for the status change
// that confirms payment.
func (r *Router) handleOrderLogged(store *domain.Store, env *Envelope) (map[string]interface{}, error) {
	r.logger.Info("order event logged",
		"store_hash", store.StoreHash,
		"scope", env.Scope,
		"order_id", env.Data.ID,
	)
	return map[string]interface{}{"status": "logged", "order_id": env.Data.ID}, nil
}

func (r *Router) handleOrderStatusUpdated(ctx context.Context, store *domain.Store, env *Envelope) (map[string]interface{}, error) {
	orderID := env.Data.ID
	statusID := 0
	if env.Data.Status != nil {
		statusID = env.Data.Status.NewStatusID
	}

	r.logger.Info("order status updated",
		"store_hash", store.StoreHash,
		"order_id", orderID,
		"status_id", statusID,
	)

	switch r.policy.Classify(statusID) {
	case BucketConversion:
		order, err := r.orders.GetOrder(ctx, store, orderID)
		if err != nil {
			return nil, err
		}
		return r.conversions.ProcessOrder(ctx, store, order, env.Scope)

	case BucketRefund:
		order, err := r.orders.GetOrder(ctx, store, orderID)
		if err != nil {
			return nil, err
		}
		return r.conversions.ProcessRefund(ctx, store, order)

	default:
		return map[string]interface{}{
			"status":    "logged",
			"order_id":  orderID,
			"status_id": statusID,
		}, nil
	}
}

func (r *Router) handleProductUpserted(ctx context.Context, store *domain.Store, env *Envelope) (map[string]interface{}, error) {
	if !store.AutoSyncProducts() {
		return map[string]interface{}{"status": "logged", "product_id": env.Data.ID}, nil
	}
	return r.products.SyncFromWebhook(ctx, store, env.Data.ID)
}
