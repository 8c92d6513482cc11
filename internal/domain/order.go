package domain

import (
	"strconv"
	"strings"
)

// OrderDocument is the raw order payload from the BigCommerce API, treated as
// a semi-structured document. Merchant checkout customizations populate wildly
// different subsets of fields, so accessors return zero values instead of
// treating absence as an error.
type OrderDocument map[string]interface{}

// ID returns the platform order id, or 0 when absent.
func (d OrderDocument) ID() int64 {
	return d.Int("id")
}

// String returns the field as a string, or "" when absent or not a string.
func (d OrderDocument) String(key string) string {
	if d == nil {
		return ""
	}
	v, _ := d[key].(string)
	return v
}

// Text returns the field rendered as a string, stringifying scalar values.
// Checkout customizations store codes as strings or bare numbers
// interchangeably.
func (d OrderDocument) Text(key string) string {
	if d == nil {
		return ""
	}
	switch v := d[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// Has reports whether the key is present at all.
func (d OrderDocument) Has(key string) bool {
	if d == nil {
		return false
	}
	_, ok := d[key]
	return ok
}

// Int returns the field as an int64. JSON numbers decode as float64, so both
// representations are accepted.
func (d OrderDocument) Int(key string) int64 {
	if d == nil {
		return 0
	}
	switch v := d[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Float returns the field as a float64, handling numeric strings as well.
// BigCommerce v2 order endpoints return monetary amounts as strings.
func (d OrderDocument) Float(key string) (float64, bool) {
	if d == nil {
		return 0, false
	}
	switch v := d[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		return parseFloat(v)
	}
	return 0, false
}

// FloatOr returns the field as a float64 with a default.
func (d OrderDocument) FloatOr(key string, def float64) float64 {
	if v, ok := d.Float(key); ok {
		return v
	}
	return def
}

// Map returns the field as a nested document.
func (d OrderDocument) Map(key string) OrderDocument {
	if d == nil {
		return nil
	}
	if v, ok := d[key].(map[string]interface{}); ok {
		return OrderDocument(v)
	}
	return nil
}

// List returns the field as a slice of nested documents, skipping entries
// that are not objects.
func (d OrderDocument) List(key string) []OrderDocument {
	if d == nil {
		return nil
	}
	raw, ok := d[key].([]interface{})
	if !ok {
		return nil
	}
	docs := make([]OrderDocument, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			docs = append(docs, OrderDocument(m))
		}
	}
	return docs
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
