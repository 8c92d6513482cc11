package bigcommerce

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidSignedPayload is returned when signed payload validation fails
	ErrInvalidSignedPayload = errors.New("invalid signed payload")
	// ErrExpiredSignedPayload is returned when the signed payload is expired
	ErrExpiredSignedPayload = errors.New("signed payload expired")
)

// SignedPayloadUser identifies the merchant user embedded in a signed payload.
type SignedPayloadUser struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Locale string `json:"locale,omitempty"`
}

// SignedPayloadClaims are the claims BigCommerce puts in the signed_payload_jwt
// sent on load, uninstall and remove-user callbacks. Subject carries
// "stores/{store_hash}".
type SignedPayloadClaims struct {
	User      SignedPayloadUser `json:"user"`
	Owner     SignedPayloadUser `json:"owner"`
	URL       string            `json:"url,omitempty"`
	ChannelID *int64            `json:"channel_id,omitempty"`
	jwt.RegisteredClaims
}

// StoreHash extracts the store hash from the subject claim.
func (c *SignedPayloadClaims) StoreHash() string {
	return strings.TrimPrefix(c.Subject, "stores/")
}

// SignedPayloadVerifier validates signed_payload_jwt values. Payloads are
// HS256-signed with the app's client secret and addressed to the client id.
type SignedPayloadVerifier struct {
	clientID  string
	secretKey []byte
}

func NewSignedPayloadVerifier(clientID, clientSecret string) *SignedPayloadVerifier {
	return &SignedPayloadVerifier{
		clientID:  clientID,
		secretKey: []byte(clientSecret),
	}
}

// Verify validates the token signature, expiry and audience and returns the
// parsed claims.
func (v *SignedPayloadVerifier) Verify(payload string) (*SignedPayloadClaims, error) {
	token, err := jwt.ParseWithClaims(payload, &SignedPayloadClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignedPayload
		}
		return v.secretKey, nil
	}, jwt.WithAudience(v.clientID))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredSignedPayload
		}
		return nil, ErrInvalidSignedPayload
	}

	claims, ok := token.Claims.(*SignedPayloadClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSignedPayload
	}
	if claims.StoreHash() == "" {
		return nil, ErrInvalidSignedPayload
	}

	return claims, nil
}
