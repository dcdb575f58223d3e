// Package audit records proxied tool invocations. The log is append-only:
// there are no updates or deletes.
package audit

import (
	"context"
	"time"
)

// Outcome classifies how a dispatch ended.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeDownstreamError Outcome = "downstream_error"
	OutcomeUnavailable     Outcome = "unavailable"
	OutcomeForbidden       Outcome = "forbidden"
)

// Invocation is one dispatched (or refused) tool call. Status is the
// downstream HTTP status, 0 when no response was received.
type Invocation struct {
	ID                    string        `json:"id"`
	Tool                  string        `json:"tool"`
	Category              string        `json:"category"`
	LocationID            string        `json:"locationId"`
	CredentialFingerprint string        `json:"credentialFingerprint,omitempty"`
	Status                int           `json:"status"`
	Outcome               Outcome       `json:"outcome"`
	Duration              time.Duration `json:"-"`
	DurationMs            int64         `json:"durationMs"`
	CreatedAt             time.Time     `json:"createdAt"`
}

// Recorder persists invocations. Implementations must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, inv Invocation) error
}

// Nop discards every invocation.
type Nop struct{}

func (Nop) Record(context.Context, Invocation) error { return nil }
