// Package auth resolves caller identities from request credentials and
// exchanges vendor credentials for session tokens.
package auth

import (
	"errors"
	"strings"
)

const (
	// CredentialPrefix marks a Private Integration Token.
	CredentialPrefix = "pit-"
	// MinCredentialLength is the shortest credential accepted by the format check.
	MinCredentialLength = 10
)

// ErrMalformedCredential matches every *FormatError.
var ErrMalformedCredential = errors.New("malformed credential")

// FormatError reports why a raw credential failed the surface check.
// Passing the check says nothing about whether the vendor accepts it.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return e.Reason }

// Is lets errors.Is(err, ErrMalformedCredential) match.
func (e *FormatError) Is(target error) bool { return target == ErrMalformedCredential }

// ValidateCredentialFormat checks that credential is non-empty, carries the
// PIT prefix and is not obviously truncated.
func ValidateCredentialFormat(credential string) error {
	switch {
	case credential == "":
		return &FormatError{Reason: "API key is required"}
	case !strings.HasPrefix(credential, CredentialPrefix):
		return &FormatError{Reason: "Invalid API key format. Must be a Private Integration Token (PIT)"}
	case len(credential) < MinCredentialLength:
		return &FormatError{Reason: "API key appears to be too short"}
	}
	return nil
}
