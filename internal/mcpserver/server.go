// Package mcpserver exposes the dispatchable tool catalog as an MCP server
// over streamable HTTP. Every tools/call goes through the same validation
// and dispatch path as the REST proxy.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/ghl-gateway/internal/api/apierror"
	"github.com/matiasleandrokruk/ghl-gateway/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/auth"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/proxy"
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/tool"
	"github.com/matiasleandrokruk/ghl-gateway/internal/version"
)

// ServerName is the implementation name announced during initialize.
const ServerName = "ghl-gateway"

const headerLocationID = "X-Location-Id"

// Dispatcher is the part of *proxy.Dispatcher the MCP tools need.
type Dispatcher interface {
	Dispatch(ctx context.Context, c proxy.Call) (*proxy.Result, error)
}

// CredentialResolver yields the vendor credential for an authenticated caller.
type CredentialResolver interface {
	DownstreamCredential(r *http.Request, id auth.Identity) (string, error)
}

// Gateway builds one MCP server per HTTP request, bound to the caller.
type Gateway struct {
	registry    *tool.Registry
	credentials CredentialResolver
	dispatcher  Dispatcher
	logger      *zap.Logger
}

// New creates a Gateway. A nil logger discards output.
func New(registry *tool.Registry, credentials CredentialResolver, dispatcher Dispatcher, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		registry:    registry,
		credentials: credentials,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// Handler returns the streamable HTTP endpoint. It must be mounted behind the
// authentication middleware so every request carries an identity.
func (g *Gateway) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(g.Server, &mcp.StreamableHTTPOptions{Stateless: true})
}

// caller is what a tool call knows about the HTTP request that carried it.
type caller struct {
	identity      auth.Identity
	location      string
	credential    string
	credentialErr error
}

// Server builds the MCP server for r. Only tools in supported categories are
// registered.
func (g *Gateway) Server(r *http.Request) *mcp.Server {
	id, _ := ctxkeys.IdentityFrom(r.Context())
	c := caller{identity: id, location: id.LocationID}
	if c.location == "" {
		c.location = strings.TrimSpace(r.Header.Get(headerLocationID))
	}
	c.credential, c.credentialErr = g.credentials.DownstreamCredential(r, id)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version.Version,
	}, nil)

	for _, def := range g.registry.Supported() {
		server.AddTool(&mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: inputSchema(def),
		}, g.callTool(def, c))
	}
	return server
}

func (g *Gateway) callTool(def tool.ToolDefinition, c caller) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := map[string]any{}
		if req.Params != nil && len(req.Params.Arguments) > 0 {
			dec := json.NewDecoder(bytes.NewReader(req.Params.Arguments))
			dec.UseNumber()
			if err := dec.Decode(&params); err != nil {
				return errorResult(apierror.BadRequest("arguments must be a JSON object")), nil
			}
		}
		// "arguments": null decodes to a nil map.
		if params == nil {
			params = map[string]any{}
		}

		locationID, isString := params["locationId"].(string)
		if _, present := params["locationId"]; present && !isString {
			return errorResult(apierror.BadRequest("locationId must be a string")), nil
		}
		if locationID == "" {
			locationID = c.location
		}
		if locationID == "" {
			return errorResult(apierror.BadRequest("locationId is required")), nil
		}
		if c.identity.LocationID != "" && c.identity.LocationID != locationID {
			return errorResult(apierror.LocationMismatch()), nil
		}
		params["locationId"] = locationID

		if verdict := tool.Validate(def, params); !verdict.Valid {
			return errorResult(apierror.Validation(def.Name, verdict.Errors)), nil
		}
		if c.credentialErr != nil {
			return errorResult(apierror.From(c.credentialErr)), nil
		}

		result, err := g.dispatcher.Dispatch(ctx, proxy.Call{
			Tool:                  def,
			LocationID:            locationID,
			Credential:            c.credential,
			CredentialFingerprint: c.identity.CredentialFingerprint,
			Params:                params,
		})
		if err != nil {
			if errors.Is(err, proxy.ErrForbiddenCategory) {
				return errorResult(apierror.ForbiddenCategory(def.Name)), nil
			}
			g.logger.Debug("mcp tool call failed", zap.String("tool", def.Name), zap.Error(err))
			return errorResult(apierror.From(err)), nil
		}

		text, err := json.Marshal(result.Data)
		if err != nil {
			return nil, err
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(text)}}}, nil
	}
}

// errorResult reports e inside the tool result so the model sees the same
// envelope a REST caller would.
func errorResult(e *apierror.Error) *mcp.CallToolResult {
	text, err := json.Marshal(e.Body())
	if err != nil {
		text = []byte(e.Message)
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(text)}},
	}
}
