package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/session"
	"github.com/matiasleandrokruk/ghl-gateway/internal/infra/ghl"
)

var (
	// ErrLocationRequired is returned when issuance is attempted without a location.
	ErrLocationRequired = errors.New("Location ID is required") //nolint:staticcheck // surfaced verbatim to clients
	// ErrCredentialRejected means the vendor answered 401.
	ErrCredentialRejected = errors.New("Invalid API key or insufficient permissions") //nolint:staticcheck // surfaced verbatim to clients
	// ErrInsufficientScopes means the vendor answered 403.
	ErrInsufficientScopes = errors.New("API key does not have required scopes") //nolint:staticcheck // surfaced verbatim to clients
	// ErrCredentialCheckFailed covers every other failed live check.
	ErrCredentialCheckFailed = errors.New("Failed to validate API key") //nolint:staticcheck // surfaced verbatim to clients
)

// CheckFailedError carries the vendor body (or transport error text) of a
// failed live check. It matches ErrCredentialCheckFailed.
type CheckFailedError struct {
	Status  int
	Details string
}

func (e *CheckFailedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCredentialCheckFailed, e.Details)
}

func (e *CheckFailedError) Is(target error) bool { return target == ErrCredentialCheckFailed }

// LocationChecker performs the live credential check.
type LocationChecker interface {
	GetLocation(ctx context.Context, credential, locationID string) (*ghl.Response, error)
}

// TokenIssuer is the part of session.Issuer the service needs.
type TokenIssuer interface {
	Issue(locationID, credential string) (string, *session.Claims, error)
	Refresh(token string) (string, *session.Claims, error)
	TTL() time.Duration
}

// Grant is a freshly minted session.
type Grant struct {
	SessionToken string
	LocationID   string
	ExpiresIn    string
	Claims       *session.Claims
}

// SessionService issues and refreshes session tokens.
type SessionService struct {
	tokens  TokenIssuer
	checker LocationChecker
	logger  *zap.Logger
}

// NewSessionService wires the service. A nil logger discards output.
func NewSessionService(tokens TokenIssuer, checker LocationChecker, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{tokens: tokens, checker: checker, logger: logger}
}

// Validate checks credential format, proves the credential against the
// vendor for locationID and, only on success, mints a session token.
func (s *SessionService) Validate(ctx context.Context, credential, locationID string) (*Grant, error) {
	if err := ValidateCredentialFormat(credential); err != nil {
		return nil, err
	}
	if strings.TrimSpace(locationID) == "" {
		return nil, ErrLocationRequired
	}

	resp, err := s.checker.GetLocation(ctx, credential, locationID)
	if err != nil {
		s.logger.Warn("credential check transport failure",
			zap.String("location_id", locationID), zap.Error(err))
		return nil, &CheckFailedError{Details: err.Error()}
	}

	switch {
	case resp.Status == http.StatusUnauthorized:
		s.logger.Info("credential rejected by vendor", zap.String("location_id", locationID))
		return nil, ErrCredentialRejected
	case resp.Status == http.StatusForbidden:
		s.logger.Info("credential lacks scopes", zap.String("location_id", locationID))
		return nil, ErrInsufficientScopes
	case !resp.OK():
		s.logger.Warn("credential check failed",
			zap.String("location_id", locationID), zap.Int("status", resp.Status))
		return nil, &CheckFailedError{Status: resp.Status, Details: string(resp.Body)}
	}

	token, claims, err := s.tokens.Issue(locationID, credential)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session issued",
		zap.String("location_id", locationID),
		zap.String("credential_fingerprint", claims.CredentialFingerprint))
	return &Grant{SessionToken: token, LocationID: locationID, ExpiresIn: session.ExpiresIn(s.tokens.TTL()), Claims: claims}, nil
}

// Refresh exchanges a valid session token for a new one. Expired and invalid
// tokens surface as session.ErrTokenExpired and session.ErrTokenInvalid.
func (s *SessionService) Refresh(token string) (*Grant, error) {
	fresh, claims, err := s.tokens.Refresh(token)
	if err != nil {
		return nil, err
	}
	return &Grant{SessionToken: fresh, LocationID: claims.LocationID, ExpiresIn: session.ExpiresIn(s.tokens.TTL()), Claims: claims}, nil
}
