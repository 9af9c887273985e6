// Package config handles configuration loading for lawmatics-mcp.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion. The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	oauth:
//	  client_secret: "${LAWMATICS_CLIENT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// The oauth.client_id, oauth.client_secret, and oauth.redirect_uri fields
// also fall back to LAWMATICS_CLIENT_ID, LAWMATICS_CLIENT_SECRET, and
// LAWMATICS_REDIRECT_URI when left unset in the file.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	oauth:
//	  expiry_skew: "30s"
//	  retry_backoff: "500ms"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # MCP endpoint
//
// Lawmatics API:
//
//	lawmatics:
//	  api_base_url: "https://api.lawmatics.com/v1/"
//	  request_timeout: "30s"
//
// OAuth client:
//
//	oauth:
//	  client_id: "${LAWMATICS_CLIENT_ID}"
//	  client_secret: "${LAWMATICS_CLIENT_SECRET}"
//	  redirect_uri: "http://localhost:8888/callback"
//	  scope: "read write"
//	  pkce: false
//	  refresh_retries: 2
//
// Database:
//
//	database:
//	  path: "data/lawmatics.db"
//
// Authentication (inbound MCP requests):
//
//	auth:
//	  jwt_secret: "${MCP_JWT_SECRET}"   # empty disables the check
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
// Load configuration from a path:
//
//	cfg, err := config.Load("/etc/lawmatics-mcp/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
