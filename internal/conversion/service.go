package conversion

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/affilync/bigcommerce-bridge/internal/affilync"
	"github.com/affilync/bigcommerce-bridge/internal/attribution"
	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

// Tracker is the affiliate backend surface the service depends on.
type Tracker interface {
	TrackConversion(ctx context.Context, rec affilync.ConversionRecord) (*affilync.ConversionResponse, error)
	TrackAdjustment(ctx context.Context, rec affilync.AdjustmentRecord) (*affilync.AdjustmentResponse, error)
	LookupConversion(ctx context.Context, brandID, externalOrderID string) (map[string]interface{}, error)
}

// Service turns authoritative order documents into conversion and adjustment
// records for the affiliate backend.
type Service struct {
	tracker Tracker
	logger  *slog.Logger
}

func NewService(tracker Tracker, logger *slog.Logger) *Service {
	return &Service{tracker: tracker, logger: logger}
}

// ProcessOrder evaluates an order for affiliate attribution and tracks a
// conversion when a tracking code is present. Orders without attribution and
// stores without a connected brand are terminal outcomes, not errors; only a
// failed call to the affiliate backend returns an error so the delivery can
// be retried.
func (s *Service) ProcessOrder(ctx context.Context, store *domain.Store, order domain.OrderDocument, scope string) (map[string]interface{}, error) {
	orderID := order.ID()
	s.logger.Info("processing order", "store_hash", store.StoreHash, "order_id", orderID)

	trackingCode := attribution.ExtractTrackingCode(order)
	if trackingCode == "" {
		s.logger.Info("no affiliate attribution", "order_id", orderID)
		return map[string]interface{}{
			"status":   "no_attribution",
			"order_id": orderID,
			"message":  "no tracking code found",
		}, nil
	}

	if !store.IsConnected() {
		s.logger.Warn("store not connected to brand", "store_hash", store.StoreHash)
		return map[string]interface{}{
			"status":        "not_connected",
			"order_id":      orderID,
			"tracking_code": trackingCode,
			"message":       "store not connected to a brand",
		}, nil
	}

	rec := buildConversionRecord(store, order, trackingCode)

	resp, err := s.tracker.TrackConversion(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("track conversion for order %d: %w", orderID, err)
	}

	s.logger.Info("conversion tracked",
		"order_id", orderID,
		"tracking_code", trackingCode,
		"conversion_id", resp.ConversionID,
		"scope", scope,
	)
	return map[string]interface{}{
		"status":        "tracked",
		"order_id":      orderID,
		"tracking_code": trackingCode,
		"conversion_id": resp.ConversionID,
	}, nil
}

// ProcessRefund sends a conversion adjustment when an order carries a
// refunded amount. The platform has no refund webhook; refunds surface as
// order status changes.
func (s *Service) ProcessRefund(ctx context.Context, store *domain.Store, order domain.OrderDocument) (map[string]interface{}, error) {
	orderID := order.ID()
	s.logger.Info("processing refund", "store_hash", store.StoreHash, "order_id", orderID)

	if !store.IsConnected() {
		return map[string]interface{}{
			"status":   "not_connected",
			"order_id": orderID,
		}, nil
	}

	refundAmount := order.FloatOr("refunded_amount", 0)
	if refundAmount <= 0 {
		return map[string]interface{}{
			"status":   "no_refund",
			"order_id": orderID,
		}, nil
	}

	rec := affilync.AdjustmentRecord{
		BrandID:          store.BrandID.String(),
		OriginalOrderID:  domain.ExternalOrderID(orderID),
		AdjustmentType:   "refund",
		AdjustmentAmount: refundAmount,
		RefundID:         fmt.Sprintf("bigcommerce_refund_%d", orderID),
		Metadata: map[string]interface{}{
			"source":       "bigcommerce",
			"store_hash":   store.StoreHash,
			"order_status": order.String("status"),
		},
	}

	resp, err := s.tracker.TrackAdjustment(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("track adjustment for order %d: %w", orderID, err)
	}

	return map[string]interface{}{
		"status":        "adjusted",
		"order_id":      orderID,
		"adjustment_id": resp.AdjustmentID,
		"refund_amount": refundAmount,
	}, nil
}

// GetOrderAttribution looks up whether an order was tracked as a conversion.
// Returns nil when the store is not connected or no attribution exists.
func (s *Service) GetOrderAttribution(ctx context.Context, store *domain.Store, orderID int64) (map[string]interface{}, error) {
	if !store.IsConnected() {
		return nil, nil
	}
	return s.tracker.LookupConversion(ctx, store.BrandID.String(), domain.ExternalOrderID(orderID))
}

func buildConversionRecord(store *domain.Store, order domain.OrderDocument, trackingCode string) affilync.ConversionRecord {
	orderID := order.ID()
	statusID := order.Int("status_id")

	billing := order.Map("billing_address")
	customerEmail := billing.String("email")
	if customerEmail == "" {
		customerEmail = order.String("email")
	}
	customerID := ""
	if id := order.Int("customer_id"); id != 0 {
		customerID = strconv.FormatInt(id, 10)
	}

	currency := order.String("currency_code")
	if currency == "" {
		currency = "USD"
	}

	// Refund status observed on the order itself, not via an adjustment.
	conversionType := "purchase"
	if statusID == 4 {
		conversionType = "refund"
	}

	return affilync.ConversionRecord{
		TrackingCode:   trackingCode,
		BrandID:        store.BrandID.String(),
		OrderID:        domain.ExternalOrderID(orderID),
		OrderValue:     attribution.OrderSubtotal(order),
		TotalValue:     attribution.OrderTotal(order),
		Currency:       currency,
		ConversionType: conversionType,
		CustomerEmail:  customerEmail,
		CustomerID:     customerID,
		Metadata: map[string]interface{}{
			"source":           "bigcommerce",
			"store_hash":       store.StoreHash,
			"bc_order_id":      orderID,
			"status_id":        statusID,
			"status":           order.String("status"),
			"payment_method":   order.String("payment_method"),
			"line_items":       attribution.LineItems(order),
			"discount_amount":  order.FloatOr("discount_amount", 0),
			"coupon_discount":  order.FloatOr("coupon_discount", 0),
			"order_created_at": order.String("date_created"),
		},
	}
}
