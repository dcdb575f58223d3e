package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/session"
)

const (
	testSecret     = "auth-test-secret"
	testCredential = "pit-1234567890abcdef"
)

func newTestIssuer(t *testing.T) *session.Issuer {
	t.Helper()
	i, err := session.NewIssuer(testSecret)
	require.NoError(t, err)
	return i
}
