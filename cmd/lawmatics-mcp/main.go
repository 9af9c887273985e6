// ABOUTME: Entry point for the lawmatics-mcp server
// ABOUTME: Serves the MCP endpoint and manages the Lawmatics OAuth credential

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/lexops/lawmatics-mcp/internal/authflow"
	"github.com/lexops/lawmatics-mcp/internal/config"
	"github.com/lexops/lawmatics-mcp/internal/oauth"
	"github.com/lexops/lawmatics-mcp/internal/server"
	"github.com/lexops/lawmatics-mcp/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _                             _   _
| | __ ___      ___ __ ___   __ _| |_(_) ___ ___       _ __ ___   ___ _ __
| |/ _' \ \ /\ / / '_ ' _ \ / _' | __| |/ __/ __|_____| '_ ' _ \ / __| '_ \
| | (_| |\ V  V /| | | | | | (_| | |_| | (__\__ \_____| | | | | | (__| |_) |
|_|\__,_| \_/\_/ |_| |_| |_|\__,_|\__|_|\___|___/     |_| |_| |_|\___| .__/
                                                                     |_|
`

// getConfigPath returns the path to the config file.
// Priority: LAWMATICS_CONFIG env var > XDG_CONFIG_HOME/lawmatics/config.yaml > ~/.config/lawmatics/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("LAWMATICS_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "lawmatics", "config.yaml")
}

// getDataPath returns the path to the data directory.
// Priority: XDG_DATA_HOME/lawmatics > ~/.local/share/lawmatics
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "lawmatics")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: lawmatics-mcp <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve       Start the MCP server")
		fmt.Println("  init        Create a new config file interactively")
		fmt.Println("  authorize   Run the Lawmatics OAuth authorization flow")
		fmt.Println("  revoke      Discard the stored Lawmatics credential")
		fmt.Println("  health      Check server health")
		fmt.Println("  status      Show server readiness and auth state")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "authorize":
		err = runAuthorize(ctx)
	case "revoke":
		err = runRevoke(ctx)
	case "health":
		err = runHealth(ctx)
	case "status":
		err = runStatus(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)

	fmt.Println()

	logger.Info("starting lawmatics-mcp",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	srv, err := server.New(cfg, logger, version)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if srv.Manager().State() == oauth.StateUnauthenticated {
		yellow.Print("    ! ")
		fmt.Println("No Lawmatics credential stored. Run: lawmatics-mcp authorize")
		fmt.Println()
	}

	return srv.Run(ctx)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

// runAuthorize performs the interactive OAuth flow: opens the browser to the
// Lawmatics authorization page, captures the callback, and persists the
// issued token so serve can use it.
func runAuthorize(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer sqlStore.Close()

	manager, err := oauth.NewManager(oauth.Config{
		ClientID:       cfg.OAuth.ClientID,
		ClientSecret:   cfg.OAuth.ClientSecret,
		RedirectURI:    cfg.OAuth.RedirectURI,
		AuthorizeURL:   cfg.OAuth.AuthorizeURL,
		TokenURL:       cfg.OAuth.TokenURL,
		Scope:          cfg.OAuth.Scope,
		PKCE:           cfg.OAuth.PKCE,
		ExpirySkew:     cfg.OAuth.ExpirySkew,
		RefreshRetries: cfg.OAuth.RefreshRetries,
		RetryBackoff:   cfg.OAuth.RetryBackoff,
		Store:          sqlStore,
		Events:         sqlStore,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("creating token manager: %w", err)
	}

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	if manager.State() == oauth.StateAuthorized {
		cyan.Println("  An active credential already exists; re-authorizing replaces it.")
	}

	flow, err := authflow.New(authflow.Config{
		Manager:     manager,
		RedirectURI: cfg.OAuth.RedirectURI,
		OpenBrowser: openBrowser,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("preparing authorization flow: %w", err)
	}

	authURL, err := flow.Start()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("  Open this URL in your browser if it did not open automatically:")
	fmt.Println()
	cyan.Printf("    %s\n", authURL)
	fmt.Println()
	fmt.Println("  Waiting for the Lawmatics callback...")

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	token, err := flow.Wait(waitCtx)
	if err != nil {
		return err
	}

	fmt.Println()
	green.Println("  Authorization complete!")
	fmt.Printf("  Scope:   %s\n", token.Scope)
	fmt.Printf("  Expires: %s\n", token.ExpiresAt.Local().Format(time.RFC1123))
	fmt.Println()
	fmt.Println("  Start the server with: lawmatics-mcp serve")

	return nil
}

// runRevoke discards the stored credential. A new authorize flow is needed
// before the server can reach Lawmatics again.
func runRevoke(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer sqlStore.Close()

	manager, err := oauth.NewManager(oauth.Config{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RedirectURI:  cfg.OAuth.RedirectURI,
		Store:        sqlStore,
		Events:       sqlStore,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("creating token manager: %w", err)
	}

	if manager.State() == oauth.StateUnauthenticated {
		fmt.Println("No credential stored; nothing to revoke.")
		return nil
	}

	if err := manager.Revoke(ctx); err != nil {
		return err
	}

	color.New(color.FgGreen).Println("Credential revoked.")
	return nil
}

// openBrowser launches the platform browser for the given URL.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Make HTTP request to health endpoint with context
	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func runStatus(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Make HTTP request to readiness endpoint with context
	url := fmt.Sprintf("http://%s/health/ready", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}
	defer resp.Body.Close()

	// Read response body
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	fmt.Println(string(body))
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("lawmatics-mcp configuration setup")
	fmt.Println("=================================")
	fmt.Println()

	// Default paths
	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDbPath := filepath.Join(defaultDataPath, "lawmatics.db")

	// Output filename
	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	// Check if file exists
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// OAuth client credentials
	fmt.Println("\n--- Lawmatics OAuth Application ---")
	fmt.Println("Create one under Settings > Integrations > Custom Apps in Lawmatics.")
	clientID := prompt(reader, "Client ID", os.Getenv("LAWMATICS_CLIENT_ID"))
	clientSecret := prompt(reader, "Client secret", os.Getenv("LAWMATICS_CLIENT_SECRET"))
	redirectURI := prompt(reader, "Redirect URI", "http://localhost:8888/callback")
	pkceStr := prompt(reader, "Enable PKCE?", "no")
	pkce := strings.ToLower(pkceStr) == "yes" || strings.ToLower(pkceStr) == "y"

	// Server configuration
	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:8080")
	jwtStr := prompt(reader, "Require a bearer token on the MCP endpoint?", "no")
	protectEndpoint := strings.ToLower(jwtStr) == "yes" || strings.ToLower(jwtStr) == "y"

	var jwtSecret string
	if protectEndpoint {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return fmt.Errorf("generating JWT secret: %w", err)
		}
		jwtSecret = base64.StdEncoding.EncodeToString(secretBytes)
	}

	// Database
	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDbPath)

	// Logging
	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	// Generate config
	var cfg strings.Builder
	cfg.WriteString("# lawmatics-mcp configuration\n")
	cfg.WriteString("# Generated by lawmatics-mcp init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
	cfg.WriteString("\n")

	cfg.WriteString("oauth:\n")
	cfg.WriteString(fmt.Sprintf("  client_id: \"%s\"\n", clientID))
	cfg.WriteString(fmt.Sprintf("  client_secret: \"%s\"\n", clientSecret))
	cfg.WriteString(fmt.Sprintf("  redirect_uri: \"%s\"\n", redirectURI))
	cfg.WriteString(fmt.Sprintf("  pkce: %t\n", pkce))
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", dbPath))
	cfg.WriteString("\n")

	if jwtSecret != "" {
		cfg.WriteString("auth:\n")
		cfg.WriteString(fmt.Sprintf("  jwt_secret: \"%s\"\n", jwtSecret))
		cfg.WriteString("\n")
	}

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	// Ensure config directory exists
	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write config file
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	// Ensure data directory exists
	dataDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Println("\nNext steps:")
	fmt.Printf("  lawmatics-mcp authorize   # connect your Lawmatics account\n")
	fmt.Printf("  lawmatics-mcp serve       # start the MCP server\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
