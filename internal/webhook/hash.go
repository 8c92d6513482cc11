package webhook

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashLength is the stored prefix of the payload digest. 32 hex chars keep
// the dedup index compact while leaving collisions out of practical reach.
const hashLength = 32

// ContentHash computes the deduplication key for a webhook payload.
// encoding/json marshals map keys in sorted order, which gives a canonical
// serialization independent of delivery byte layout.
func ContentHash(payload map[string]interface{}) (string, error) {
	canonical, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:hashLength], nil
}
