package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrAuthenticationRequired is returned when no strategy found usable material.
	ErrAuthenticationRequired = errors.New("Authentication required") //nolint:staticcheck // surfaced verbatim to clients
	// ErrCredentialRequired is returned when a session-authenticated request
	// needs the vendor credential but did not carry it.
	ErrCredentialRequired = errors.New("vendor credential required")
	// ErrCredentialMismatch is returned when the supplied credential is not the
	// one the session was issued for.
	ErrCredentialMismatch = errors.New("credential does not match session")
)

// AcceptedMethods lists the credential transports, in priority order.
var AcceptedMethods = []string{
	"Session token in x-session-token header",
	"API key in x-api-key header",
	"API key in Authorization: Bearer header",
}

// Authenticator runs an ordered chain of strategies. The first Authenticated
// or Reject outcome ends the chain; Inapplicable moves on.
type Authenticator struct {
	tokens     TokenVerifier
	strategies []Strategy
}

// NewAuthenticator builds the default chain: session token, X-Api-Key, Bearer.
func NewAuthenticator(tokens TokenVerifier) *Authenticator {
	return &Authenticator{
		tokens: tokens,
		strategies: []Strategy{
			SessionTokenStrategy{Tokens: tokens},
			APIKeyHeaderStrategy{Tokens: tokens},
			BearerStrategy{Tokens: tokens},
		},
	}
}

// Methods returns the strategy methods in evaluation order.
func (a *Authenticator) Methods() []Method {
	out := make([]Method, 0, len(a.strategies))
	for _, s := range a.strategies {
		out = append(out, s.Method())
	}
	return out
}

// Authenticate resolves the caller identity. A malformed raw credential
// yields a *FormatError; no usable material yields ErrAuthenticationRequired.
func (a *Authenticator) Authenticate(r *http.Request) (Identity, error) {
	for _, s := range a.strategies {
		out := s.TryAuthenticate(r)
		switch out.Kind {
		case Authenticated:
			return out.Identity, nil
		case Reject:
			return Identity{}, out.Err
		}
	}
	return Identity{}, ErrAuthenticationRequired
}

// DownstreamCredential returns the vendor credential to use for id.
//
// Raw-credential identities already carry it. Session identities must
// present it alongside the token in X-Api-Key or Authorization: Bearer, and
// its fingerprint must equal the one bound into the session.
func (a *Authenticator) DownstreamCredential(r *http.Request, id Identity) (string, error) {
	if id.HasCredential() {
		return id.Credential, nil
	}

	credential := r.Header.Get(HeaderAPIKey)
	if credential == "" {
		if bearer, ok := extractBearerToken(r); ok {
			credential = bearer
		}
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", ErrCredentialRequired
	}
	if err := ValidateCredentialFormat(credential); err != nil {
		return "", err
	}

	got := a.tokens.Fingerprint(credential)
	if subtle.ConstantTimeCompare([]byte(got), []byte(id.CredentialFingerprint)) != 1 {
		return "", ErrCredentialMismatch
	}
	return credential, nil
}
