// Package config provides application-wide configuration loaded from env vars.
// All fields have safe defaults so the binary runs locally without any env setup.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds runtime configuration for caseforge.
type Config struct {
	// Persistence
	DBPath string // CASEFORGE_DB — default: "caseforge.db"

	// HTTP transport
	HTTPHost string // CASEFORGE_HTTP_HOST — default: "0.0.0.0"
	HTTPPort int    // CASEFORGE_HTTP_PORT — default: 8080

	// MCP transport
	MCPEnabled bool   // CASEFORGE_MCP — default: true
	MCPPath    string // CASEFORGE_MCP_PATH — default: "/mcp"

	// Sessions
	SessionTTL time.Duration // CASEFORGE_SESSION_TTL — default: 30m

	// Generator / validator
	SpecDir     string // CASEFORGE_SPEC_DIR — default: "" (embedded specs)
	ArtifactDir string // CASEFORGE_ARTIFACT_DIR — default: "internal/domain/tool/gen"
}

const (
	envKeyDBPath      = "CASEFORGE_DB"
	envKeyHTTPHost    = "CASEFORGE_HTTP_HOST"
	envKeyHTTPPort    = "CASEFORGE_HTTP_PORT"
	envKeyMCPEnabled  = "CASEFORGE_MCP"
	envKeyMCPPath     = "CASEFORGE_MCP_PATH"
	envKeySessionTTL  = "CASEFORGE_SESSION_TTL"
	envKeySpecDir     = "CASEFORGE_SPEC_DIR"
	envKeyArtifactDir = "CASEFORGE_ARTIFACT_DIR"
)

// Load reads configuration from environment variables, applying defaults for missing values.
func Load() Config {
	return Config{
		DBPath:      envOr(envKeyDBPath, "caseforge.db"),
		HTTPHost:    envOr(envKeyHTTPHost, "0.0.0.0"),
		HTTPPort:    envIntOr(envKeyHTTPPort, 8080),
		MCPEnabled:  envBoolOr(envKeyMCPEnabled, true),
		MCPPath:     envOr(envKeyMCPPath, "/mcp"),
		SessionTTL:  envDurationOr(envKeySessionTTL, 30*time.Minute),
		SpecDir:     os.Getenv(envKeySpecDir),
		ArtifactDir: envOr(envKeyArtifactDir, "internal/domain/tool/gen"),
	}
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntOr parses key as an int, falling back on empty or invalid values.
func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// envBoolOr parses key as a bool ("true"/"false"/"1"/"0"), falling back on invalid values.
func envBoolOr(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// envDurationOr parses key as a time.Duration string (e.g. "30m"), falling back on invalid values.
func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
