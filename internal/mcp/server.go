// Package mcp exposes the loaded tool registry over the Model Context
// Protocol. Every registered tool becomes one MCP tool whose input schema
// is the derived parameter schema; calls are funneled through the same
// dispatch orchestrator as HTTP requests.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nlatta/caseforge/internal/api/ctxkeys"
	"github.com/nlatta/caseforge/internal/domain/dispatch"
	"github.com/nlatta/caseforge/internal/domain/policy"
	"github.com/nlatta/caseforge/internal/domain/schema"
	"github.com/nlatta/caseforge/internal/domain/tool"
	"github.com/nlatta/caseforge/internal/version"
	pkgauth "github.com/nlatta/caseforge/pkg/auth"
)

const serverName = "caseforge"

const serverInstructions = `caseforge exposes a casefile workspace as derived tools.
Call a tool with its declared parameters; composite tools run multiple
workspace operations and return a merged result. Authenticate with a
Bearer JWT from POST /auth/login on the HTTP API.`

// Handler builds the streamable HTTP handler serving the MCP endpoint.
// Requests authenticate with the same Bearer JWT as the REST API; the
// claims ride the request context into the tool handlers.
func Handler(tools *tool.Registry, orch *dispatch.Orchestrator) http.Handler {
	srv := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    serverName,
		Version: version.Version,
	}, &mcpsdk.ServerOptions{
		Instructions: serverInstructions,
	})

	for _, def := range tools.List() {
		registerTool(srv, orch, def)
	}
	registerDescribeTool(srv, tools)

	streamable := mcpsdk.NewStreamableHTTPHandler(func(_ *http.Request) *mcpsdk.Server {
		return srv
	}, nil)
	return withBearerClaims(streamable)
}

// registerTool binds one loaded definition. Handlers are registered with a
// raw schema because tool shapes are data, not Go types.
func registerTool(srv *mcpsdk.Server, orch *dispatch.Orchestrator, def *tool.Definition) {
	srv.AddTool(&mcpsdk.Tool{
		Name:        def.Name,
		Description: def.Description,
		InputSchema: schema.JSONSchema(def.Fields()),
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return handleCall(ctx, orch, def.Name, req)
	})
}

// registerDescribeTool adds the discovery tool: given a tool name, return
// its full definition so clients can inspect parameters, classification
// and policy without a round trip to the HTTP catalog.
func registerDescribeTool(srv *mcpsdk.Server, tools *tool.Registry) {
	srv.AddTool(&mcpsdk.Tool{
		Name:        "describe_tool",
		Description: "Return the full definition of a registered tool by name.",
		InputSchema: schema.JSONSchema([]schema.FieldDescriptor{{
			Name:     "name",
			Type:     schema.TypeDescriptor{Kind: schema.KindString},
			Required: true,
			Doc:      "Name of the tool to describe.",
		}}),
	}, func(_ context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return handleDescribe(tools, req)
	})
}

func handleDescribe(tools *tool.Registry, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var in struct {
		Name string `json:"name"`
	}
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
			return errorResult("invalid_input", fmt.Sprintf("decode arguments: %v", err)), nil
		}
	}
	def, err := tools.Lookup(in.Name)
	if err != nil {
		return errorResult("not_found", fmt.Sprintf("no tool named %q", in.Name)), nil
	}
	encoded, err := json.Marshal(def)
	if err != nil {
		return errorResult("internal", "encode definition"), nil
	}
	return &mcpsdk.CallToolResult{
		Content:           []mcpsdk.Content{&mcpsdk.TextContent{Text: string(encoded)}},
		StructuredContent: def,
	}, nil
}

func handleCall(ctx context.Context, orch *dispatch.Orchestrator, toolName string, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	input := map[string]any{}
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &input); err != nil {
			return errorResult("invalid_input", fmt.Sprintf("decode arguments: %v", err)), nil
		}
	}

	resp := orch.Dispatch(ctx, &dispatch.RequestEnvelope{
		Tool:      toolName,
		Input:     input,
		Principal: principalFrom(ctx),
	})
	if resp.Error != nil {
		return errorResult(resp.Error.Code, resp.Error.Message), nil
	}

	encoded, err := json.Marshal(resp.Result)
	if err != nil {
		return errorResult("internal", "encode result"), nil
	}
	return &mcpsdk.CallToolResult{
		Content:           []mcpsdk.Content{&mcpsdk.TextContent{Text: string(encoded)}},
		StructuredContent: resp.Result,
	}, nil
}

func errorResult(code, message string) *mcpsdk.CallToolResult {
	encoded, err := json.Marshal(map[string]string{"code": code, "message": message})
	if err != nil {
		encoded = []byte(`{"code":"internal"}`)
	}
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(encoded)}},
	}
}

// withBearerClaims parses an optional Bearer JWT and injects the claims
// into the request context. Absent or invalid tokens leave the request
// unauthenticated; per-tool policy decides whether that dispatches.
func withBearerClaims(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if len(header) > len(prefix) && header[:len(prefix)] == prefix {
			if claims, err := pkgauth.ParseJWT(header[len(prefix):]); err == nil {
				ctx := r.Context()
				ctx = ctxkeys.WithValue(ctx, ctxkeys.UserID, claims.UserID)
				ctx = ctxkeys.WithValue(ctx, ctxkeys.WorkspaceID, claims.WorkspaceID)
				ctx = ctxkeys.WithPermissions(ctx, claims.Permissions)
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func principalFrom(ctx context.Context) policy.Principal {
	return policy.Principal{
		UserID:      ctxkeys.StringValue(ctx, ctxkeys.UserID),
		WorkspaceID: ctxkeys.StringValue(ctx, ctxkeys.WorkspaceID),
		Permissions: ctxkeys.PermissionsValue(ctx),
	}
}
