package attribution

import (
	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

// LineItem is an order product normalized for the affiliate backend.
// Monetary fields default to zero when absent, never to null, so downstream
// summation never sees a missing number.
type LineItem struct {
	ProductID int64   `json:"product_id"`
	VariantID int64   `json:"variant_id"`
	Name      string  `json:"name"`
	SKU       string  `json:"sku"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
	Total     float64 `json:"total"`
}

// totalFields is the fallback chain for the order total, most authoritative
// first.
var totalFields = []string{"total_inc_tax", "total_ex_tax", "subtotal_inc_tax", "subtotal_ex_tax"}

// subtotalFields is the fallback chain for the pre-shipping/tax subtotal.
var subtotalFields = []string{"subtotal_inc_tax", "subtotal_ex_tax"}

// OrderTotal returns the order total, falling back through tax-inclusive and
// tax-exclusive variants; zero when none is present.
func OrderTotal(order domain.OrderDocument) float64 {
	return firstFloat(order, totalFields)
}

// OrderSubtotal returns the order subtotal before shipping and tax.
func OrderSubtotal(order domain.OrderDocument) float64 {
	return firstFloat(order, subtotalFields)
}

func firstFloat(order domain.OrderDocument, keys []string) float64 {
	for _, key := range keys {
		if v, ok := order.Float(key); ok {
			return v
		}
	}
	return 0
}

// LineItems extracts and normalizes the order's products.
func LineItems(order domain.OrderDocument) []LineItem {
	products := order.List("products")
	items := make([]LineItem, 0, len(products))
	for _, p := range products {
		items = append(items, LineItem{
			ProductID: p.Int("product_id"),
			VariantID: p.Int("variant_id"),
			Name:      p.String("name"),
			SKU:       p.String("sku"),
			Quantity:  p.Int("quantity"),
			Price:     p.FloatOr("price_inc_tax", 0),
			Total:     p.FloatOr("total_inc_tax", 0),
		})
	}
	return items
}
