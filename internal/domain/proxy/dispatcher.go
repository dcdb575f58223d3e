// Package proxy turns a validated tool call into exactly one downstream
// request and maps the outcome onto the gateway's result contract.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"go.uber.org/zap"

	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/audit"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/tool"
	"github.com/matiasleandrokruk/ghl-gateway/internal/infra/ghl"
)

var (
	// ErrForbiddenCategory is returned for tools outside the supported
	// categories. No downstream call is made.
	ErrForbiddenCategory = errors.New("tool category is not enabled")
	// ErrDownstreamUnavailable is returned when no downstream response was
	// received (transport failure or timeout).
	ErrDownstreamUnavailable = errors.New("downstream unavailable")
)

// DownstreamError carries a non-2xx vendor response verbatim.
type DownstreamError struct {
	Status int
	Body   []byte
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("downstream returned status %d", e.Status)
}

// Details returns the vendor body as JSON when it is JSON, otherwise as text.
func (e *DownstreamError) Details() any {
	return decodeBody(e.Body)
}

// Downstream is the vendor surface the dispatcher uses.
type Downstream interface {
	CallTool(ctx context.Context, endpoint, credential, locationID string, params map[string]any) (*ghl.Response, error)
	Ping(ctx context.Context, credential, locationID string) (*ghl.Response, error)
}

// Call is a fully admitted tool invocation.
type Call struct {
	Tool                  tool.ToolDefinition
	LocationID            string
	Credential            string
	CredentialFingerprint string
	Params                map[string]any
}

// Result is the success envelope.
type Result struct {
	Success  bool   `json:"success"`
	Data     any    `json:"data"`
	Tool     string `json:"tool"`
	Category string `json:"category"`
}

// Dispatcher issues downstream tool calls. It performs no retries.
type Dispatcher struct {
	downstream Downstream
	recorder   audit.Recorder
	logger     *zap.Logger
	now        func() time.Time
}

// NewDispatcher wires a Dispatcher. A nil recorder discards the audit trail
// and a nil logger discards log output.
func NewDispatcher(downstream Downstream, recorder audit.Recorder, logger *zap.Logger) *Dispatcher {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{downstream: downstream, recorder: recorder, logger: logger, now: time.Now}
}

// Dispatch sends c to the tool's endpoint. The category gate runs before any
// network activity. locationId is sent as a header and stripped from the body.
func (d *Dispatcher) Dispatch(ctx context.Context, c Call) (*Result, error) {
	inv := audit.Invocation{
		Tool:                  c.Tool.Name,
		Category:              string(c.Tool.Category),
		LocationID:            c.LocationID,
		CredentialFingerprint: c.CredentialFingerprint,
	}

	if !c.Tool.Category.IsSupported() {
		inv.Outcome = audit.OutcomeForbidden
		d.record(ctx, inv)
		return nil, fmt.Errorf("%w: %s", ErrForbiddenCategory, c.Tool.Category)
	}

	body := maps.Clone(c.Params)
	if body == nil {
		body = map[string]any{}
	}
	delete(body, "locationId")

	start := d.now()
	resp, err := d.downstream.CallTool(ctx, c.Tool.Endpoint, c.Credential, c.LocationID, body)
	inv.Duration = d.now().Sub(start)

	if err != nil {
		inv.Outcome = audit.OutcomeUnavailable
		d.record(ctx, inv)
		d.logger.Warn("tool call failed without response",
			zap.String("tool", c.Tool.Name), zap.Duration("duration", inv.Duration), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrDownstreamUnavailable, err)
	}

	inv.Status = resp.Status
	if !resp.OK() {
		inv.Outcome = audit.OutcomeDownstreamError
		d.record(ctx, inv)
		d.logger.Info("tool call rejected downstream",
			zap.String("tool", c.Tool.Name), zap.Int("status", resp.Status))
		return nil, &DownstreamError{Status: resp.Status, Body: resp.Body}
	}

	inv.Outcome = audit.OutcomeSuccess
	d.record(ctx, inv)
	d.logger.Debug("tool call succeeded",
		zap.String("tool", c.Tool.Name), zap.Duration("duration", inv.Duration))

	return &Result{
		Success:  true,
		Data:     decodeBody(resp.Body),
		Tool:     c.Tool.Name,
		Category: string(c.Tool.Category),
	}, nil
}

// Probe checks connectivity to the MCP base with the caller's credential.
// Only a 2xx answer counts as connected.
func (d *Dispatcher) Probe(ctx context.Context, locationID, credential string) error {
	resp, err := d.downstream.Ping(ctx, credential, locationID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownstreamUnavailable, err)
	}
	if !resp.OK() {
		return &DownstreamError{Status: resp.Status, Body: resp.Body}
	}
	return nil
}

func (d *Dispatcher) record(ctx context.Context, inv audit.Invocation) {
	// The audit trail must not fail the caller's request.
	if err := d.recorder.Record(context.WithoutCancel(ctx), inv); err != nil {
		d.logger.Error("record tool invocation", zap.String("tool", inv.Tool), zap.Error(err))
	}
}

// decodeBody passes JSON through untouched and wraps anything else as a string.
func decodeBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(body)
}
