// Package session mints and verifies the short-lived tokens handed out in
// exchange for a vendor credential. Verification is a pure function of the
// token and the signing secret; there is no server-side session store.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ===== CONSTANTS =====

// DefaultTTL is the fixed validity of a session token.
const DefaultTTL = 24 * time.Hour

// ExpiresIn renders ttl the way clients see it: whole hours as "24h",
// anything else in time.Duration notation.
func ExpiresIn(ttl time.Duration) string {
	if ttl > 0 && ttl%time.Hour == 0 {
		return fmt.Sprintf("%dh", ttl/time.Hour)
	}
	return ttl.String()
}

var (
	ErrMissingSecret = errors.New("session signing secret is empty")
	ErrTokenExpired  = errors.New("session token expired")
	ErrTokenInvalid  = errors.New("invalid session token")
)

// ===== CLAIMS =====

// Claims is the payload of a session token. The credential itself is never
// embedded, only its fingerprint.
type Claims struct {
	LocationID            string `json:"locationId"`
	CredentialFingerprint string `json:"apiKeyHash"`
	// Timestamp is the issuing instant in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
	jwt.RegisteredClaims
}

// IssuedAt returns the issuing instant with millisecond precision.
func (c *Claims) IssuedAt() time.Time {
	return time.UnixMilli(c.Timestamp)
}

// ===== ISSUER =====

// Issuer signs and verifies session tokens with HS256.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option customises an Issuer.
type Option func(*Issuer)

// WithTTL overrides the token validity.
func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) { i.ttl = ttl }
}

// WithClock injects the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer returns an Issuer keyed with secret.
func NewIssuer(secret string, opts ...Option) (*Issuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	i := &Issuer{secret: []byte(secret), ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// TTL returns the configured token validity.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Fingerprint returns the keyed digest of credential under this issuer's secret.
func (i *Issuer) Fingerprint(credential string) string {
	return Fingerprint(i.secret, credential)
}

// Issue mints a token for locationID bound to the fingerprint of credential.
func (i *Issuer) Issue(locationID, credential string) (string, *Claims, error) {
	return i.sign(locationID, i.Fingerprint(credential))
}

func (i *Issuer) sign(locationID, fingerprint string) (string, *Claims, error) {
	now := i.now()
	claims := &Claims{
		LocationID:            locationID,
		CredentialFingerprint: fingerprint,
		Timestamp:             now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks signature and expiry. An expired but otherwise well-formed
// token yields ErrTokenExpired; anything else that fails yields ErrTokenInvalid.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: token is empty", ErrTokenInvalid)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.LocationID == "" || claims.CredentialFingerprint == "" {
		return nil, fmt.Errorf("%w: missing session claims", ErrTokenInvalid)
	}
	return claims, nil
}

// Refresh verifies tokenString and mints a new token carrying the same
// location and fingerprint with a fresh issuing instant.
func (i *Issuer) Refresh(tokenString string) (string, *Claims, error) {
	claims, err := i.Verify(tokenString)
	if err != nil {
		return "", nil, err
	}
	return i.sign(claims.LocationID, claims.CredentialFingerprint)
}
