// cliparse/cliparse_test.go
package cliparse

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DATABASE_URL", "DATABASE_TYPE", "ADMIN_KEY", "VOTER_SALT",
		"SITE_ORIGIN", "REDIS_URL", "TOMTOM_API_KEY", "ANALYTICS_TTL", "SEED", "CONFIG_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestParseFlags_EnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("DATABASE_TYPE", "postgres")
	t.Setenv("ADMIN_KEY", "test-admin")
	t.Setenv("VOTER_SALT", "test-salt")
	t.Setenv("ANALYTICS_TTL", "2m")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("expected postgres, got %s", cfg.DatabaseType)
	}
	if cfg.AnalyticsTTL != 2*time.Minute {
		t.Errorf("expected 2m ttl, got %s", cfg.AnalyticsTTL)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db", "-admin-key", "k1", "-voter-salt", "s1"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := ParseFlags([]string{"-d", "file:test.db", "-admin-key", "k1", "-voter-salt", "s1"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != DefaultPort {
		t.Errorf("expected default port, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("expected sqlite default, got %s", cfg.DatabaseType)
	}
	if cfg.SiteOrigin != DefaultSiteOrigin {
		t.Errorf("expected default origin, got %s", cfg.SiteOrigin)
	}
	if cfg.AnalyticsTTL != DefaultAnalyticsTTL {
		t.Errorf("expected default ttl, got %s", cfg.AnalyticsTTL)
	}
}

func TestParseFlags_MissingSecrets(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no database", []string{"-admin-key", "k", "-voter-salt", "s"}},
		{"no admin key", []string{"-d", "file:x.db", "-voter-salt", "s"}},
		{"no voter salt", []string{"-d", "file:x.db", "-admin-key", "k"}},
		{"bad database type", []string{"-d", "x", "-t", "mysql", "-admin-key", "k", "-voter-salt", "s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFlags(tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseFlags_ConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADMIN_KEY", "env-admin")

	path := filepath.Join(t.TempDir(), "livepolls.toml")
	content := `
port = 4000
database_url = "file:from-file.db"
admin_key = "file-admin"
voter_salt = "file-salt"
site_origin = "https://example.test"
analytics_ttl = "30s"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := ParseFlags([]string{"-c", path})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 4000 {
		t.Errorf("expected port from file, got %d", cfg.Port)
	}
	if cfg.AdminKey != "env-admin" {
		t.Errorf("env should override file, got %s", cfg.AdminKey)
	}
	if cfg.SiteOrigin != "https://example.test" {
		t.Errorf("expected origin from file, got %s", cfg.SiteOrigin)
	}
	if cfg.AnalyticsTTL != 30*time.Second {
		t.Errorf("expected 30s ttl, got %s", cfg.AnalyticsTTL)
	}
}

func TestLoadEnv_MissingFile(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("VOTER_SALT=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// t.Setenv above registered cleanup; unset so godotenv can populate it.
	os.Unsetenv("VOTER_SALT")

	if err := LoadEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("VOTER_SALT"); got != "from-dotenv" {
		t.Errorf("expected from-dotenv, got %q", got)
	}
}

func TestParseFlags_ReportsAllMissing(t *testing.T) {
	clearEnv(t)

	_, err := ParseFlags([]string{})
	if err == nil {
		t.Fatal("expected error")
	}

	var merr *multierror.Error
	if !errors.As(err, &merr) {
		t.Fatalf("expected *multierror.Error, got %T", err)
	}
	if len(merr.Errors) != 3 {
		t.Errorf("expected 3 problems (database, admin key, salt), got %d: %v", len(merr.Errors), err)
	}
	for _, want := range []string{"database URL", "ADMIN_KEY", "VOTER_SALT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}
