package webhook

import (
	"strings"
)

// Scope enumerates the webhook event types this service handles. Anything
// else parses to ScopeUnknown and is acknowledged without processing.
type Scope int

const (
	ScopeUnknown Scope = iota
	ScopeOrderCreated
	ScopeOrderUpdated
	ScopeOrderStatusUpdated
	ScopeProductCreated
	ScopeProductUpdated
	ScopeProductDeleted
	ScopeAppUninstalled
)

var scopeNames = map[Scope]string{
	ScopeOrderCreated:       "store/order/created",
	ScopeOrderUpdated:       "store/order/updated",
	ScopeOrderStatusUpdated: "store/order/statusUpdated",
	ScopeProductCreated:     "store/product/created",
	ScopeProductUpdated:     "store/product/updated",
	ScopeProductDeleted:     "store/product/deleted",
	ScopeAppUninstalled:     "store/app/uninstalled",
}

var scopeValues = func() map[string]Scope {
	m := make(map[string]Scope, len(scopeNames))
	for k, v := range scopeNames {
		m[v] = k
	}
	return m
}()

// ParseScope maps a declared scope string to its enumerated value.
func ParseScope(s string) Scope {
	if scope, ok := scopeValues[s]; ok {
		return scope
	}
	return ScopeUnknown
}

func (s Scope) String() string {
	if name, ok := scopeNames[s]; ok {
		return name
	}
	return "unknown"
}

// RegisteredScopes lists every scope the app subscribes to at install time.
func RegisteredScopes() []string {
	return []string{
		"store/order/created",
		"store/order/updated",
		"store/order/statusUpdated",
		"store/product/created",
		"store/product/updated",
		"store/product/deleted",
		"store/app/uninstalled",
	}
}

// Envelope is the BigCommerce webhook delivery format.
type Envelope struct {
	Scope     string       `json:"scope"`
	StoreID   string       `json:"store_id,omitempty"`
	Data      EnvelopeData `json:"data"`
	Hash      string       `json:"hash,omitempty"`
	CreatedAt int64        `json:"created_at,omitempty"`
	Producer  string       `json:"producer,omitempty"`
}

// EnvelopeData carries the entity reference. Order status changes add the
// previous/new status ids; nothing else ships entity detail in the webhook.
type EnvelopeData struct {
	Type   string          `json:"type,omitempty"`
	ID     int64           `json:"id,omitempty"`
	Status *EnvelopeStatus `json:"status,omitempty"`
}

type EnvelopeStatus struct {
	PreviousStatusID int `json:"previous_status_id,omitempty"`
	NewStatusID      int `json:"new_status_id,omitempty"`
}

// StoreHash extracts the tenant hash from the producer field
// ("stores/{store_hash}").
func (e *Envelope) StoreHash() string {
	if e.Producer == "" {
		return ""
	}
	parts := strings.Split(e.Producer, "/")
	return parts[len(parts)-1]
}

// Result is the outcome a scope handler reports back to the router.
type Result map[string]interface{}

// Response is the acknowledgment returned to the webhook sender. Always
// delivered with HTTP 200 once past admission, so the platform does not
// retry on business failures.
type Response struct {
	Status string      `json:"status"`
	Result interface{} `json:"result,omitempty"`
	Reason string      `json:"reason,omitempty"`
	Error  string      `json:"error,omitempty"`
}
