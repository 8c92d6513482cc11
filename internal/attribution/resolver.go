package attribution

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

// Affiliate attribution data arrives through whichever field the merchant's
// checkout customization happens to populate. The resolver probes candidate
// locations ordered by confidence: structured fields first, free text last,
// so a coincidental substring in a long note cannot shadow an explicit
// custom field.

// trackingPatterns scan free-text notes. First match wins; the code is the
// single capture group.
var trackingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)aff[_-]?code[=:]?\s*([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`(?i)ref[=:]?\s*([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`(?i)tracking[_-]?code[=:]?\s*([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`(?i)utm_source[=:]?\s*([A-Za-z0-9_-]+)`),
}

// fieldNameKeys match custom/form field names by case-insensitive substring.
var fieldNameKeys = []string{"tracking", "affiliate", "ref", "aff_code"}

// metadataKeys are checked in order against the order metadata map.
var metadataKeys = []string{"tracking_code", "affiliate_code", "ref", "aff_code"}

// urlParams are checked in order against the referrer URL query string.
var urlParams = []string{"ref", "aff", "tracking", "affiliate", "utm_source", "via"}

// ExtractTrackingCode resolves the affiliate tracking code from an order,
// searching in priority order:
//
//  1. order custom fields
//  2. staff notes (internal)
//  3. customer message
//  4. order metadata
//  5. checkout form fields
//  6. referring URL parameters
//
// An empty result is not an error; it signals an unattributed order.
func ExtractTrackingCode(order domain.OrderDocument) string {
	if code := fromNamedFields(order.List("custom_fields")); code != "" {
		return code
	}
	if code := fromNotes(order.String("staff_notes")); code != "" {
		return code
	}
	if code := fromNotes(order.String("customer_message")); code != "" {
		return code
	}
	if code := fromMetadata(order.Map("metadata")); code != "" {
		return code
	}
	if code := fromNamedFields(order.List("form_fields")); code != "" {
		return code
	}
	if code := fromURL(order.String("external_source")); code != "" {
		return code
	}
	return ""
}

func fromNamedFields(fields []domain.OrderDocument) string {
	for _, field := range fields {
		name := strings.ToLower(field.String("name"))
		for _, key := range fieldNameKeys {
			if strings.Contains(name, key) {
				if value := strings.TrimSpace(field.Text("value")); value != "" {
					return value
				}
			}
		}
	}
	return ""
}

func fromNotes(notes string) string {
	if notes == "" {
		return ""
	}
	for _, pattern := range trackingPatterns {
		if m := pattern.FindStringSubmatch(notes); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func fromMetadata(metadata domain.OrderDocument) string {
	if metadata == nil {
		return ""
	}
	for _, key := range metadataKeys {
		if metadata.Has(key) {
			if value := strings.TrimSpace(metadata.Text(key)); value != "" {
				return value
			}
		}
	}
	return ""
}

func fromURL(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	params := parsed.Query()
	for _, param := range urlParams {
		if values, ok := params[param]; ok && len(values) > 0 {
			if value := strings.TrimSpace(values[0]); value != "" {
				return value
			}
		}
	}
	return ""
}
