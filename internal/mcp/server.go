// ABOUTME: MCP-compatible HTTP server exposing Lawmatics tools, prompts, and resources.
// ABOUTME: Implements Streamable HTTP transport (spec 2025-11-25) with session management.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lexops/lawmatics-mcp/internal/auth"
	"github.com/lexops/lawmatics-mcp/internal/oauth"
	"github.com/lexops/lawmatics-mcp/internal/prompts"
	"github.com/lexops/lawmatics-mcp/internal/tools"
)

// Supported MCP protocol versions
var supportedProtocolVersions = map[string]bool{
	"2025-03-26": true,
	"2025-11-25": true,
}

// latestProtocolVersion is the version we advertise in initialize responses
const latestProtocolVersion = "2025-11-25"

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// JSON-RPC 2.0 types

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	JSONRPCParseError     = -32700
	JSONRPCInvalidRequest = -32600
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
	JSONRPCInternalError  = -32603
)

// MCP-specific types

// MCPToolInfo represents an MCP tool definition.
type MCPToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// MCPListToolsResult is the result for tools/list.
type MCPListToolsResult struct {
	Tools []MCPToolInfo `json:"tools"`
}

// MCPCallToolParams are the params for tools/call.
type MCPCallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// MCPCallToolResult is the result for tools/call.
type MCPCallToolResult struct {
	Content []MCPContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

// MCPContent represents content in a tool result.
type MCPContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// MCPPromptArgument describes one prompt argument for prompts/list.
type MCPPromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// MCPPromptInfo represents an MCP prompt definition.
type MCPPromptInfo struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Arguments   []MCPPromptArgument `json:"arguments,omitempty"`
}

// MCPListPromptsResult is the result for prompts/list.
type MCPListPromptsResult struct {
	Prompts []MCPPromptInfo `json:"prompts"`
}

// MCPGetPromptParams are the params for prompts/get.
type MCPGetPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// MCPPromptMessage is one message in a prompts/get result.
type MCPPromptMessage struct {
	Role    string     `json:"role"`
	Content MCPContent `json:"content"`
}

// MCPGetPromptResult is the result for prompts/get.
type MCPGetPromptResult struct {
	Description string             `json:"description,omitempty"`
	Messages    []MCPPromptMessage `json:"messages"`
}

// MCPResourceTemplate describes a parameterized resource.
type MCPResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// MCPListResourceTemplatesResult is the result for resources/templates/list.
type MCPListResourceTemplatesResult struct {
	ResourceTemplates []MCPResourceTemplate `json:"resourceTemplates"`
}

// MCPReadResourceParams are the params for resources/read.
type MCPReadResourceParams struct {
	URI string `json:"uri"`
}

// MCPResourceContents is one entry in a resources/read result.
type MCPResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

// MCPReadResourceResult is the result for resources/read.
type MCPReadResourceResult struct {
	Contents []MCPResourceContents `json:"contents"`
}

// mcpSession tracks an active MCP client session.
type mcpSession struct {
	id              string
	protocolVersion string
	subject         string
	ownerToken      string // auth token used to verify session ownership on DELETE
	createdAt       time.Time
}

// sessionStore manages active MCP sessions (in-memory).
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*mcpSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*mcpSession)}
}

func (s *sessionStore) create(protocolVersion, subject, ownerToken string) *mcpSession {
	sess := &mcpSession{
		id:              uuid.New().String(),
		protocolVersion: protocolVersion,
		subject:         subject,
		ownerToken:      ownerToken,
		createdAt:       time.Now(),
	}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess
}

func (s *sessionStore) get(id string) (*mcpSession, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	return sess, ok
}

func (s *sessionStore) delete(id string) bool {
	s.mu.Lock()
	_, existed := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	return existed
}

// Config holds configuration for the MCP server.
type Config struct {
	Registry      *tools.Registry
	Prompts       *prompts.Catalog
	Resources     ResourceReader
	Logger        *slog.Logger
	TokenVerifier auth.TokenVerifier // nil disables inbound auth
	ServerName    string
	ServerVersion string
}

// Server implements MCP-compatible HTTP endpoints for external clients.
// Conforms to MCP Streamable HTTP transport specification (2025-11-25).
type Server struct {
	registry      *tools.Registry
	prompts       *prompts.Catalog
	resources     ResourceReader
	logger        *slog.Logger
	verifier      auth.TokenVerifier
	serverName    string
	serverVersion string
	sessions      *sessionStore
}

// NewServer creates a new MCP server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Prompts == nil {
		return nil, errors.New("prompt catalog is required")
	}
	if cfg.Resources == nil {
		return nil, errors.New("resource reader is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	serverName := cfg.ServerName
	if serverName == "" {
		serverName = "lawmatics-mcp"
	}
	serverVersion := cfg.ServerVersion
	if serverVersion == "" {
		serverVersion = "0.0.0"
	}

	return &Server{
		registry:      cfg.Registry,
		prompts:       cfg.Prompts,
		resources:     cfg.Resources,
		logger:        logger,
		verifier:      cfg.TokenVerifier,
		serverName:    serverName,
		serverVersion: serverVersion,
		sessions:      newSessionStore(),
	}, nil
}

// RegisterRoutes registers the MCP endpoint on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/mcp", s.handleMCP)
}

// handleMCP is the single MCP endpoint supporting POST, GET, and DELETE per the
// Streamable HTTP transport spec (2025-11-25).
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodGet:
		// We don't support server-initiated SSE streams
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "POST, GET, DELETE")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// handleDelete terminates a session per the Streamable HTTP spec.
// Verifies the caller owns the session to prevent unauthorized termination.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		http.Error(w, "Bad Request: missing Mcp-Session-Id", http.StatusBadRequest)
		return
	}

	sess, ok := s.sessions.get(sessionID)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if sess.ownerToken != "" {
		if extractBearer(r) != sess.ownerToken {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	s.sessions.delete(sessionID)
	s.logger.Info("MCP session terminated", "session_id", sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// handlePost processes JSON-RPC messages sent via HTTP POST.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	// Per spec: server default assumption if the version header is missing
	// is 2025-03-26.
	sessionID := r.Header.Get("Mcp-Session-Id")
	protoVersion := r.Header.Get("Mcp-Protocol-Version")

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.sendJSONRPCError(w, nil, JSONRPCParseError, "failed to read request body", nil)
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.sendJSONRPCError(w, nil, JSONRPCInvalidRequest, "request body too large", nil)
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.sendJSONRPCError(w, nil, JSONRPCParseError, "invalid JSON", nil)
		return
	}

	if req.JSONRPC != "2.0" {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest, "invalid JSON-RPC version", nil)
		return
	}

	isInitialize := req.Method == "initialize"
	isNotification := len(req.ID) == 0 || string(req.ID) == "null"

	// Validate protocol version header (not required on initialize)
	if !isInitialize && protoVersion != "" {
		if !supportedProtocolVersions[protoVersion] {
			http.Error(w, "Bad Request: unsupported MCP-Protocol-Version", http.StatusBadRequest)
			return
		}
	}

	// Validate session on non-initialize requests
	if isInitialize {
		if s.verifier != nil {
			if _, err := s.authenticate(r); err != nil {
				s.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest, "authentication required", nil)
				return
			}
		}
	} else {
		if sessionID == "" {
			http.Error(w, "Bad Request: missing Mcp-Session-Id", http.StatusBadRequest)
			return
		}
		if _, ok := s.sessions.get(sessionID); !ok {
			// Session expired or invalid - client must re-initialize
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
	}

	s.logger.Debug("MCP request",
		"method", req.Method,
		"is_notification", isNotification,
		"session_id", sessionID,
	)

	// Handle notifications: accept and return HTTP 202 with no body
	if isNotification {
		if strings.HasPrefix(req.Method, "notifications/") {
			s.logger.Debug("accepted MCP notification", "method", req.Method)
		} else {
			s.logger.Warn("received notification for non-notification method", "method", req.Method)
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	switch req.Method {
	case "initialize":
		s.handleInitialize(w, r, req)
	case "tools/list":
		s.handleToolsList(w, req)
	case "tools/call":
		s.handleToolsCall(w, r, req)
	case "prompts/list":
		s.handlePromptsList(w, req)
	case "prompts/get":
		s.handlePromptsGet(w, req)
	case "resources/templates/list":
		s.handleResourceTemplatesList(w, req)
	case "resources/read":
		s.handleResourcesRead(w, r, req)
	default:
		s.sendJSONRPCError(w, req.ID, JSONRPCMethodNotFound, "method not found", nil)
	}
}

// authenticate verifies the request's bearer token against the configured
// verifier and returns the token subject.
func (s *Server) authenticate(r *http.Request) (string, error) {
	token := extractBearer(r)
	if token == "" {
		return "", errors.New("missing authorization")
	}
	return s.verifier.Verify(token)
}

// extractBearer returns the bearer token from the Authorization header, or "".
func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// handleInitialize handles the MCP initialize handshake and creates a session.
func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request, req JSONRPCRequest) {
	var subject string
	ownerToken := extractBearer(r)
	if s.verifier != nil {
		subject, _ = s.authenticate(r)
	}

	sess := s.sessions.create(latestProtocolVersion, subject, ownerToken)

	s.logger.Info("MCP session created",
		"session_id", sess.id,
		"protocol_version", sess.protocolVersion,
	)

	w.Header().Set("Mcp-Session-Id", sess.id)

	result := map[string]any{
		"protocolVersion": latestProtocolVersion,
		"capabilities": map[string]any{
			"tools":     map[string]any{},
			"prompts":   map[string]any{},
			"resources": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    s.serverName,
			"version": s.serverVersion,
		},
	}
	s.sendJSONRPCResult(w, req.ID, result)
}

// handleToolsList handles tools/list requests.
func (s *Server) handleToolsList(w http.ResponseWriter, req JSONRPCRequest) {
	defs := s.registry.List()

	result := MCPListToolsResult{
		Tools: make([]MCPToolInfo, len(defs)),
	}
	for i, def := range defs {
		result.Tools[i] = MCPToolInfo{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}
	}

	s.logger.Debug("tools/list", "count", len(defs))
	s.sendJSONRPCResult(w, req.ID, result)
}

// handleToolsCall handles tools/call requests.
func (s *Server) handleToolsCall(w http.ResponseWriter, r *http.Request, req JSONRPCRequest) {
	var params MCPCallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "invalid params", nil)
			return
		}
	}

	if params.Name == "" {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "tool name is required", nil)
		return
	}

	requestID := uuid.New().String()
	s.logger.Debug("tools/call",
		"tool_name", params.Name,
		"request_id", requestID,
	)

	output, err := s.registry.Call(r.Context(), params.Name, params.Arguments)
	if err != nil {
		s.handleToolError(w, req.ID, params.Name, requestID, err)
		return
	}

	result := MCPCallToolResult{
		Content: []MCPContent{{Type: "text", Text: string(output)}},
	}

	s.logger.Debug("tools/call complete",
		"tool_name", params.Name,
		"request_id", requestID,
	)
	s.sendJSONRPCResult(w, req.ID, result)
}

// handlePromptsList handles prompts/list requests.
func (s *Server) handlePromptsList(w http.ResponseWriter, req JSONRPCRequest) {
	list := s.prompts.List()

	result := MCPListPromptsResult{
		Prompts: make([]MCPPromptInfo, len(list)),
	}
	for i, p := range list {
		info := MCPPromptInfo{
			Name:        p.Name,
			Description: p.Description,
		}
		for _, a := range p.Arguments {
			info.Arguments = append(info.Arguments, MCPPromptArgument{
				Name:        a.Name,
				Description: a.Description,
				Required:    a.Required,
			})
		}
		result.Prompts[i] = info
	}

	s.logger.Debug("prompts/list", "count", len(list))
	s.sendJSONRPCResult(w, req.ID, result)
}

// handlePromptsGet handles prompts/get requests.
func (s *Server) handlePromptsGet(w http.ResponseWriter, req JSONRPCRequest) {
	var params MCPGetPromptParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "invalid params", nil)
			return
		}
	}
	if params.Name == "" {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "prompt name is required", nil)
		return
	}

	prompt, ok := s.prompts.Get(params.Name)
	if !ok {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "prompt not found", nil)
		return
	}

	text, err := s.prompts.Render(params.Name, params.Arguments)
	if err != nil {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, err.Error(), nil)
		return
	}

	result := MCPGetPromptResult{
		Description: prompt.Description,
		Messages: []MCPPromptMessage{
			{Role: "user", Content: MCPContent{Type: "text", Text: text}},
		},
	}
	s.sendJSONRPCResult(w, req.ID, result)
}

// handleResourceTemplatesList handles resources/templates/list requests.
func (s *Server) handleResourceTemplatesList(w http.ResponseWriter, req JSONRPCRequest) {
	result := MCPListResourceTemplatesResult{
		ResourceTemplates: s.resources.Templates(),
	}
	s.sendJSONRPCResult(w, req.ID, result)
}

// handleResourcesRead handles resources/read requests.
func (s *Server) handleResourcesRead(w http.ResponseWriter, r *http.Request, req JSONRPCRequest) {
	var params MCPReadResourceParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "invalid params", nil)
			return
		}
	}
	if params.URI == "" {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "resource uri is required", nil)
		return
	}

	contents, err := s.resources.Read(r.Context(), params.URI)
	if err != nil {
		if errors.Is(err, ErrUnknownResource) {
			s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, err.Error(), nil)
			return
		}
		s.logger.Warn("resource read failed", "uri", params.URI, "error", err)
		s.sendJSONRPCError(w, req.ID, JSONRPCInternalError, "resource read failed", nil)
		return
	}

	s.sendJSONRPCResult(w, req.ID, MCPReadResourceResult{Contents: contents})
}

// handleToolError handles errors from tool execution.
func (s *Server) handleToolError(w http.ResponseWriter, id json.RawMessage, toolName, requestID string, err error) {
	s.logger.Warn("tool execution failed",
		"tool_name", toolName,
		"request_id", requestID,
		"error", err,
	)

	if errors.Is(err, tools.ErrToolNotFound) {
		s.sendJSONRPCError(w, id, JSONRPCInvalidParams, "tool not found", nil)
		return
	}

	// Domain failures (bad arguments, API rejections, auth problems) are
	// reported in-band so the client model can react to them.
	message := err.Error()
	if code := oauth.CodeOf(err); code == oauth.ErrReauthorizationRequired {
		message = "Lawmatics authorization has lapsed; re-run the authorize flow"
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		s.sendJSONRPCError(w, id, JSONRPCInternalError, "tool execution timed out", nil)
		return
	case errors.Is(err, context.Canceled):
		s.sendJSONRPCError(w, id, JSONRPCInternalError, "request cancelled", nil)
		return
	}

	result := MCPCallToolResult{
		Content: []MCPContent{{Type: "text", Text: message}},
		IsError: true,
	}
	s.sendJSONRPCResult(w, id, result)
}

// sendJSONRPCResult sends a successful JSON-RPC response.
func (s *Server) sendJSONRPCResult(w http.ResponseWriter, id json.RawMessage, result any) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC response", "error", err)
	}
}

// sendJSONRPCError sends a JSON-RPC error response.
func (s *Server) sendJSONRPCError(w http.ResponseWriter, id json.RawMessage, code int, message string, data any) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC error response", "error", err)
	}
}
