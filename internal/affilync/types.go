package affilync

// ConversionRecord is the attribution signal forwarded when an order reaches
// a payment-confirmed status.
type ConversionRecord struct {
	TrackingCode   string                 `json:"tracking_code"`
	BrandID        string                 `json:"brand_id"`
	OrderID        string                 `json:"order_id"`
	OrderValue     float64                `json:"order_value"`
	TotalValue     float64                `json:"total_value"`
	Currency       string                 `json:"currency"`
	ConversionType string                 `json:"conversion_type"`
	CustomerEmail  string                 `json:"customer_email,omitempty"`
	CustomerID     string                 `json:"customer_id,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// AdjustmentRecord reverses part of a previously tracked conversion.
type AdjustmentRecord struct {
	BrandID          string                 `json:"brand_id"`
	OriginalOrderID  string                 `json:"original_order_id"`
	AdjustmentType   string                 `json:"adjustment_type"`
	AdjustmentAmount float64                `json:"adjustment_amount"`
	RefundID         string                 `json:"refund_id,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// ProductSyncRecord mirrors a catalog product into the affiliate backend.
type ProductSyncRecord struct {
	BrandID           string                 `json:"brand_id"`
	ExternalProductID string                 `json:"external_product_id"`
	Source            string                 `json:"source"`
	Title             string                 `json:"title"`
	Description       string                 `json:"description,omitempty"`
	Price             float64                `json:"price"`
	Currency          string                 `json:"currency"`
	ImageURL          string                 `json:"image_url,omitempty"`
	ProductURL        string                 `json:"product_url,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

// ConversionResponse is returned by TrackConversion.
type ConversionResponse struct {
	ConversionID string `json:"conversion_id"`
}

// AdjustmentResponse is returned by TrackAdjustment.
type AdjustmentResponse struct {
	AdjustmentID string `json:"adjustment_id"`
}

// ProductSyncResponse is returned by SyncProduct.
type ProductSyncResponse struct {
	AffilyncProductID string `json:"affilync_product_id"`
}
