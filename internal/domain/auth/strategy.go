package auth

import (
	"net/http"
	"strings"

	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/session"
)

// Header names carrying credentials, in priority order.
const (
	HeaderSessionToken  = "X-Session-Token"
	HeaderAPIKey        = "X-Api-Key"
	HeaderAuthorization = "Authorization"
)

// Method names the mechanism that authenticated a request.
type Method string

const (
	MethodSessionToken Method = "session-token"
	MethodAPIKey       Method = "api-key"
	MethodBearer       Method = "bearer"
)

// Identity is the authenticated caller.
//
// Session identities carry the bound location and the credential fingerprint
// but never the credential. Raw-credential identities carry the credential and
// its fingerprint; their location is bound per request.
type Identity struct {
	Method                Method
	LocationID            string
	CredentialFingerprint string
	Credential            string
}

// HasCredential reports whether the identity can call the vendor directly.
func (id Identity) HasCredential() bool { return id.Credential != "" }

// OutcomeKind is the result class of a single strategy attempt.
type OutcomeKind int

const (
	// Inapplicable means the strategy found no usable material; try the next one.
	Inapplicable OutcomeKind = iota
	// Authenticated stops the chain with an identity.
	Authenticated
	// Reject stops the chain with Err.
	Reject
)

// Outcome is what a Strategy returns.
type Outcome struct {
	Kind     OutcomeKind
	Identity Identity
	Err      error
}

func inapplicable() Outcome { return Outcome{Kind: Inapplicable} }

func authenticated(id Identity) Outcome { return Outcome{Kind: Authenticated, Identity: id} }

func reject(err error) Outcome { return Outcome{Kind: Reject, Err: err} }

// Strategy tries to authenticate a request from one credential source.
type Strategy interface {
	Method() Method
	TryAuthenticate(r *http.Request) Outcome
}

// TokenVerifier is the part of session.Issuer strategies need.
type TokenVerifier interface {
	Verify(token string) (*session.Claims, error)
	Fingerprint(credential string) string
}

// SessionTokenStrategy accepts a signed session token in X-Session-Token.
// A token that fails verification is treated as absent so the raw credential
// strategies still get a chance.
type SessionTokenStrategy struct {
	Tokens TokenVerifier
}

func (s SessionTokenStrategy) Method() Method { return MethodSessionToken }

func (s SessionTokenStrategy) TryAuthenticate(r *http.Request) Outcome {
	token := strings.TrimSpace(r.Header.Get(HeaderSessionToken))
	if token == "" {
		return inapplicable()
	}
	claims, err := s.Tokens.Verify(token)
	if err != nil {
		return inapplicable()
	}
	return authenticated(Identity{
		Method:                MethodSessionToken,
		LocationID:            claims.LocationID,
		CredentialFingerprint: claims.CredentialFingerprint,
	})
}

// APIKeyHeaderStrategy accepts a raw credential in X-Api-Key.
type APIKeyHeaderStrategy struct {
	Tokens TokenVerifier
}

func (s APIKeyHeaderStrategy) Method() Method { return MethodAPIKey }

func (s APIKeyHeaderStrategy) TryAuthenticate(r *http.Request) Outcome {
	credential := r.Header.Get(HeaderAPIKey)
	if credential == "" {
		return inapplicable()
	}
	return credentialOutcome(MethodAPIKey, credential, s.Tokens)
}

// BearerStrategy accepts a raw credential as "Authorization: Bearer <token>".
type BearerStrategy struct {
	Tokens TokenVerifier
}

func (s BearerStrategy) Method() Method { return MethodBearer }

func (s BearerStrategy) TryAuthenticate(r *http.Request) Outcome {
	credential, ok := extractBearerToken(r)
	if !ok {
		return inapplicable()
	}
	return credentialOutcome(MethodBearer, credential, s.Tokens)
}

func credentialOutcome(m Method, credential string, tokens TokenVerifier) Outcome {
	if err := ValidateCredentialFormat(credential); err != nil {
		return reject(err)
	}
	return authenticated(Identity{
		Method:                m,
		CredentialFingerprint: tokens.Fingerprint(credential),
		Credential:            credential,
	})
}

// extractBearerToken returns the token of "Authorization: Bearer <token>".
// ok is false when the header is missing or uses another scheme.
func extractBearerToken(r *http.Request) (token string, ok bool) {
	header := r.Header.Get(HeaderAuthorization)
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix)), true
}
