package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAPIURL is used when no backend address is configured
const DefaultAPIURL = "http://localhost:8000/api"

// DefaultTimeout is the per-request timeout applied by the API client
const DefaultTimeout = 15 * time.Second

// DefaultListenAddr keeps the web shell on the loopback interface. The shell
// acts with the stored credentials, so exposing it is an explicit choice.
const DefaultListenAddr = "127.0.0.1:3000"

// Config holds all configuration for the storefront client
type Config struct {
	// Backend API Configuration
	API APIConfig

	// Durable token storage configuration
	TokenStore TokenStoreConfig

	// Web shell configuration
	Server ServerConfig

	// Logging Configuration
	Logging LoggingConfig
}

// APIConfig holds the REST backend configuration
type APIConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables client-side throttling
}

// TokenStoreConfig selects where bearer tokens are persisted
type TokenStoreConfig struct {
	Backend  string // keyring, file, sqlite
	FilePath string // used by the file backend, empty = ~/.config/storefront/tokens.yaml
	DBPath   string // used by the sqlite backend, default ~/.config/storefront/tokens.sqlite
}

// ServerConfig holds web shell configuration
type ServerConfig struct {
	ListenAddr  string
	CORSOrigins []string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// REACT_APP_API_URL is still honoured so existing deployment files keep working
	apiURL := os.Getenv("STOREFRONT_API_URL")
	if apiURL == "" {
		apiURL = os.Getenv("REACT_APP_API_URL")
	}

	timeout := DefaultTimeout
	if raw := os.Getenv("STOREFRONT_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid STOREFRONT_TIMEOUT %q: %w", raw, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("STOREFRONT_TIMEOUT must be positive, got %s", d)
		}
		timeout = d
	}

	var rps float64
	if raw := os.Getenv("STOREFRONT_RPS"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("invalid STOREFRONT_RPS %q", raw)
		}
		rps = v
	}

	backend := strings.ToLower(os.Getenv("STOREFRONT_TOKEN_STORE"))
	if backend == "" {
		backend = "keyring"
	}
	switch backend {
	case "keyring", "file", "sqlite":
	default:
		return nil, fmt.Errorf("unknown STOREFRONT_TOKEN_STORE %q (expected keyring, file or sqlite)", backend)
	}

	dbPath := os.Getenv("STOREFRONT_TOKEN_DB")
	if dbPath == "" {
		dir, err := DataDir()
		if err != nil && backend == "sqlite" {
			return nil, fmt.Errorf("no STOREFRONT_TOKEN_DB set and %w", err)
		}
		if err == nil {
			dbPath = filepath.Join(dir, "tokens.sqlite")
		}
	}

	listen := os.Getenv("STOREFRONT_LISTEN")
	if listen == "" {
		listen = DefaultListenAddr
	}

	// Logging configuration - defaults suitable for production
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}

	return &Config{
		API: APIConfig{
			BaseURL:           NormalizeBaseURL(apiURL),
			Timeout:           timeout,
			RequestsPerSecond: rps,
		},
		TokenStore: TokenStoreConfig{
			Backend:  backend,
			FilePath: os.Getenv("STOREFRONT_TOKEN_FILE"),
			DBPath:   dbPath,
		},
		Server: ServerConfig{
			ListenAddr:  listen,
			CORSOrigins: splitList(os.Getenv("STOREFRONT_CORS_ORIGINS")),
		},
		Logging: LoggingConfig{
			Level:  logLevel,
			Format: logFormat,
		},
	}, nil
}

// DataDir returns ~/.config/storefront, where local state is kept
func DataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "storefront"), nil
}

// NormalizeBaseURL strips trailing slashes and falls back to DefaultAPIURL
func NormalizeBaseURL(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return DefaultAPIURL
	}
	return trimmed
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
