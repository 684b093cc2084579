package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
server:
  host: 0.0.0.0
  port: 8080
database:
  host: localhost
  user: foundation
  database: membership
jwt:
  secret: 0123456789abcdef0123456789abcdef
storage:
  export_dir: /tmp/exports
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "log", cfg.Email.Provider)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "http://0.0.0.0:8080", cfg.Storage.BaseURL)
	assert.Equal(t, cfg.Storage.BaseURL, cfg.Tracking.PublicBaseURL)
	assert.Equal(t, 8, cfg.Dispatch.Concurrency)
	assert.Equal(t, 60, cfg.Dispatch.OnboardingWindowMinute)
	assert.Equal(t, "0 * * * * *", cfg.Scheduler.DispatchDueCampaigns)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "postgres://foundation:@localhost:5432/membership?sslmode=disable", cfg.GetDatabaseConnectionString())
}

func TestParse_EnvOverride(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"short secret", strings.Replace(minimalYAML, "0123456789abcdef0123456789abcdef", "short", 1), "at least 32 characters"},
		{"smtp without host", minimalYAML + "email:\n  provider: smtp\n  from: a@b.org\n", "SMTP host is required"},
		{"sendgrid without key", minimalYAML + "email:\n  provider: sendgrid\n  from: a@b.org\n", "SendGrid API key"},
		{"unknown provider", minimalYAML + "email:\n  provider: pigeon\n", "unsupported email provider"},
		{"unknown storage", strings.Replace(minimalYAML, "storage:\n", "storage:\n  type: s3\n", 1), "unsupported storage type"},
		{"missing database", strings.Replace(minimalYAML, "  database: membership\n", "", 1), "database name is required"},
		{"unknown driver", strings.Replace(minimalYAML, "database:\n", "database:\n  driver: sqlite\n", 1), "unsupported database driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := Parse([]byte("server: [unclosed"))
	assert.Error(t, err)
}

func TestParse_MemoryDriver(t *testing.T) {
	doc := "server:\n  port: 8080\ndatabase:\n  driver: memory\njwt:\n  secret: 0123456789abcdef0123456789abcdef\nstorage:\n  export_dir: /tmp/exports\n"
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 0, cfg.Database.Port)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "membership", cfg.Database.Database)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGetSecurityLevel(t *testing.T) {
	assert.Equal(t, SecurityPublic, GetSecurityLevel("/t/o/abc"))
	assert.Equal(t, SecurityPublic, GetSecurityLevel("/exports/abc.csv"))
	assert.Equal(t, SecurityPublic, GetSecurityLevel("/healthz"))
	assert.Equal(t, SecurityMember, GetSecurityLevel("/api/v1/me/notifications"))
	assert.Equal(t, SecurityAdmin, GetSecurityLevel("/api/v1/campaigns"))
	assert.Equal(t, SecurityAdmin, GetSecurityLevel("/unknown"))
	assert.Equal(t, SecurityAdmin, GetSecurityLevel("/metrics"))
}
