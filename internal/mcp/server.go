/*
Package mcp exposes the decision pipeline as an MCP server.

The server speaks JSON-RPC over stdio and offers six tools:
  - router_decide: classify a request and return the routing decision
  - router_process: decide and carry out a request
  - router_execute: run one workspace tool with name correction
  - router_tools: list or search the tool catalog
  - router_budget: allocate the context window for a request
  - router_session: inspect or reset the working session
*/
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/khanglvm/tool-router/internal/budget"
	apperrors "github.com/khanglvm/tool-router/internal/errors"
	"github.com/khanglvm/tool-router/internal/pipeline"
	"github.com/khanglvm/tool-router/internal/version"
)

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeToolError      = -32000
)

// ProtocolVersion is the MCP revision the server implements.
const ProtocolVersion = "2024-11-05"

// maxLineSize bounds a single request line.
const maxLineSize = 4 * 1024 * 1024

// Server is the tool-router MCP server.
type Server struct {
	pipeline *pipeline.Pipeline
	logger   *zap.Logger

	// writeMu serializes responses on the shared writer.
	writeMu sync.Mutex
}

// NewServer creates a server driving p.
func NewServer(p *pipeline.Pipeline, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{pipeline: p, logger: logger}
}

// Run serves stdin and stdout until stdin is closed.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads one request per line from r and writes responses to w. It
// returns when r is exhausted or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		response, err := s.handleRequest(ctx, line)
		if err != nil {
			s.logger.Warn("Rejected request", zap.Error(err))
			s.send(w, &MCPResponse{JSONRPC: "2.0", Error: &MCPError{Code: codeParseError, Message: err.Error()}})
			continue
		}
		if response != nil {
			s.send(w, response)
		}
	}

	return scanner.Err()
}

// MCPRequest represents an incoming MCP JSON-RPC request.
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing MCP JSON-RPC response.
type MCPResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *MCPError `json:"error,omitempty"`
}

// MCPError represents an MCP error. Data carries the application error code.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// handleRequest processes an incoming MCP request. Notifications get no
// response.
func (s *Server) handleRequest(ctx context.Context, data []byte) (*MCPResponse, error) {
	var req MCPRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid JSON-RPC request: %w", err)
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(&req), nil
	case "ping":
		return &MCPResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{}}, nil
	case "tools/list":
		return s.handleToolsList(&req), nil
	case "tools/call":
		return s.handleToolsCall(ctx, &req), nil
	default:
		if strings.HasPrefix(req.Method, "notifications/") {
			return nil, nil
		}
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &MCPError{Code: codeMethodNotFound, Message: "Method not found"},
		}, nil
	}
}

func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    "tool-router",
				"version": version.Short(),
			},
		},
	}
}

func textProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// handleToolsList returns the router tools.
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	toolNames := strings.Join(s.pipeline.Registry().Names(), ", ")

	tools := []map[string]any{
		{
			"name": "router_decide",
			"description": `Classify a request and return the routing decision without running anything.

Returns intent, confidence tier, execution strategy, the planned tool calls and the token budget.`,
			"inputSchema": objectSchema(map[string]any{"text": textProp("The user's request")}, "text"),
		},
		{
			"name": "router_process",
			"description": `Decide and carry out a request. High-confidence plans run directly against the workspace; others are handed to the model.

Every processed request is recorded in the session.`,
			"inputSchema": objectSchema(map[string]any{"text": textProp("The user's request")}, "text"),
		},
		{
			"name": "router_execute",
			"description": fmt.Sprintf(`Run one workspace tool. Misspelled or aliased names are corrected.

AVAILABLE TOOLS: %s`, toolNames),
			"inputSchema": objectSchema(map[string]any{
				"tool":      textProp("Tool name"),
				"arguments": map[string]any{"type": "object", "description": "Tool arguments"},
			}, "tool"),
		},
		{
			"name":        "router_tools",
			"description": "List workspace tools with their schemas, or search them with a natural language query.",
			"inputSchema": objectSchema(map[string]any{
				"query": textProp("Optional search text"),
				"limit": map[string]any{"type": "integer", "description": "Maximum results", "default": 10},
			}),
		},
		{
			"name":        "router_budget",
			"description": "Allocate the model context window for a request and report utilization warnings.",
			"inputSchema": objectSchema(map[string]any{
				"text": textProp("The user's request"),
				"mode": map[string]any{"type": "string", "enum": []string{string(budget.ModeTools), string(budget.ModeChat)}, "default": string(budget.ModeTools)},
			}, "text"),
		},
		{
			"name":        "router_session",
			"description": "Show the working session: recent operations, tracked files and the active project. Set reset to start over.",
			"inputSchema": objectSchema(map[string]any{
				"reset": map[string]any{"type": "boolean", "description": "Archive the conversation and start a new session"},
			}),
		},
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  map[string]any{"tools": tools},
	}
}

// handleToolsCall dispatches a tools/call request.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &MCPResponse{JSONRPC: "2.0", ID: req.ID,
			Error: &MCPError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}}
	}

	var result any
	var err error

	switch params.Name {
	case "router_decide":
		result, err = s.execDecide(stringArg(params.Arguments, "text"))
	case "router_process":
		result, err = s.execProcess(ctx, stringArg(params.Arguments, "text"))
	case "router_execute":
		args, _ := params.Arguments["arguments"].(map[string]any)
		result, err = s.execExecute(ctx, stringArg(params.Arguments, "tool"), args)
	case "router_tools":
		result, err = s.execTools(stringArg(params.Arguments, "query"), intArg(params.Arguments, "limit", 10))
	case "router_budget":
		result, err = s.execBudget(stringArg(params.Arguments, "text"), budget.ParseMode(stringArg(params.Arguments, "mode")))
	case "router_session":
		reset, _ := params.Arguments["reset"].(bool)
		result, err = s.execSession(reset)
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &MCPError{Code: codeInvalidParams, Message: fmt.Sprintf("Unknown tool: %s", params.Name)},
		}
	}

	if err != nil {
		s.logger.Debug("Tool call failed", zap.String("tool", params.Name), zap.Error(err))
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   toMCPError(err),
		}
	}

	text, err := renderResult(result)
	if err != nil {
		return &MCPResponse{JSONRPC: "2.0", ID: req.ID, Error: &MCPError{Code: codeToolError, Message: err.Error()}}
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": text},
			},
		},
	}
}

func toMCPError(err error) *MCPError {
	e := &MCPError{Code: codeToolError, Message: err.Error()}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		data := map[string]any{"code": appErr.Code}
		if len(appErr.Alternatives) > 0 {
			data["alternatives"] = appErr.Alternatives
		}
		e.Data = data
	}
	return e
}

// renderResult passes strings through and encodes everything else as
// compact JSON.
func renderResult(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(data), nil
}

func (s *Server) send(w io.Writer, resp *MCPResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return def
}
