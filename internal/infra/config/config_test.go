package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.DBPath != "caseforge.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "caseforge.db")
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if !cfg.MCPEnabled {
		t.Errorf("MCPEnabled = false, want true")
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want 30m", cfg.SessionTTL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CASEFORGE_DB", "/tmp/x.db")
	t.Setenv("CASEFORGE_HTTP_PORT", "9090")
	t.Setenv("CASEFORGE_MCP", "false")
	t.Setenv("CASEFORGE_SESSION_TTL", "5m")

	cfg := Load()

	if cfg.DBPath != "/tmp/x.db" {
		t.Errorf("DBPath = %q, want /tmp/x.db", cfg.DBPath)
	}
	if cfg.HTTPPort != 9090 {
		t.Errorf("HTTPPort = %d, want 9090", cfg.HTTPPort)
	}
	if cfg.MCPEnabled {
		t.Errorf("MCPEnabled = true, want false")
	}
	if cfg.SessionTTL != 5*time.Minute {
		t.Errorf("SessionTTL = %v, want 5m", cfg.SessionTTL)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("CASEFORGE_HTTP_PORT", "not-a-number")
	t.Setenv("CASEFORGE_MCP", "maybe")
	t.Setenv("CASEFORGE_SESSION_TTL", "soon")

	cfg := Load()

	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want default 8080", cfg.HTTPPort)
	}
	if !cfg.MCPEnabled {
		t.Errorf("MCPEnabled = false, want default true")
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want default 30m", cfg.SessionTTL)
	}
}
