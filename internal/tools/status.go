// ABOUTME: Status tool reporting server health, uptime, and auth state.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/lexops/lawmatics-mcp/internal/lawmatics"
)

func (r *Registry) registerStatusTool(client *lawmatics.Client) {
	r.register(Definition{
		Name: "status",
		Description: "Check the status of the Lawmatics MCP server. Returns server health, " +
			"uptime, system metrics, and the current authorization state.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		r.logger.Info("status check requested")

		uptime := time.Since(r.startedAt)
		hours := int(uptime.Hours())
		minutes := int(uptime.Minutes()) % 60
		seconds := int(uptime.Seconds()) % 60

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		authState := "unknown"
		if r.authState != nil {
			authState = r.authState()
		}

		result := map[string]any{
			"status":    "healthy",
			"service":   "Lawmatics MCP Server",
			"version":   r.version,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"environment": map[string]any{
				"runtime":    "native",
				"go_version": runtime.Version(),
			},
			"system": map[string]any{
				"process_uptime": fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
				"memory_mb":      float64(mem.Alloc) / 1024 / 1024,
				"goroutines":     runtime.NumGoroutine(),
			},
			"server": map[string]any{
				"tools_available": len(r.tools),
				"transport":       "streamable-http",
				"api_base":        client.BaseURL(),
				"auth_state":      authState,
			},
		}
		return json.Marshal(result)
	})
}
