// ABOUTME: Tool registry mapping MCP tool names to Lawmatics API handlers
// ABOUTME: Holds definitions with JSON schemas and dispatches tools/call requests

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/lexops/lawmatics-mcp/internal/lawmatics"
)

// ErrToolNotFound is returned by Call for unknown tool names.
var ErrToolNotFound = errors.New("tool not found")

// Definition describes a tool for tools/list.
type Definition struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Handler executes a tool call. Arguments arrive as the raw JSON object from
// the MCP request; the result is raw JSON passed back to the client.
type Handler func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Tool pairs a definition with its handler.
type Tool struct {
	Definition Definition
	Handler    Handler
}

// Config holds the settings for a Registry.
type Config struct {
	// Client is the Lawmatics API client. Required.
	Client *lawmatics.Client

	// Version is reported by the status tool.
	Version string

	// AuthState reports the current token lifecycle state for the status
	// tool. Optional.
	AuthState func() string

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Registry holds all registered tools.
type Registry struct {
	tools     map[string]*Tool
	version   string
	authState func() string
	startedAt time.Time
	logger    *slog.Logger
}

// NewRegistry creates a registry with every Lawmatics tool registered
// against the given API client.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Client == nil {
		return nil, errors.New("tools: client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		tools:     make(map[string]*Tool),
		version:   cfg.Version,
		authState: cfg.AuthState,
		startedAt: time.Now(),
		logger:    logger.With("component", "tools"),
	}

	r.registerSearchTools(cfg.Client)
	r.registerGetTools(cfg.Client)
	r.registerManageTools(cfg.Client)
	r.registerStatusTool(cfg.Client)

	return r, nil
}

// register adds a tool. Duplicate names are a programming error.
func (r *Registry) register(def Definition, handler Handler) {
	if _, exists := r.tools[def.Name]; exists {
		panic(fmt.Sprintf("tools: duplicate registration of %q", def.Name))
	}
	r.tools[def.Name] = &Tool{Definition: def, Handler: handler}
}

// List returns all tool definitions sorted by name.
func (r *Registry) List() []Definition {
	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Call dispatches a tool call by name.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	r.logger.Debug("executing tool", "tool", name)
	result, err := tool.Handler(ctx, args)
	if err != nil {
		r.logger.Warn("tool execution failed", "tool", name, "error", err)
		return nil, err
	}
	return result, nil
}

// clampLimit normalizes a result limit into [1, 100], defaulting to 20.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 20
	case limit > 100:
		return 100
	default:
		return limit
	}
}

// decodeArgs unmarshals tool arguments, treating empty input as an empty object.
func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
