package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps Load from picking up config files or variables of the host.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)
	for _, key := range []string{"PORT", "EMAIL_SENDER", "EMAIL_PASSWORD", "RAPPORT_PORT", "RAPPORT_EMAIL_SENDER", "RAPPORT_EMAIL_PASSWORD"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	return dir
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Listen)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "0.0.0.0:5000", cfg.Addr())
	assert.Equal(t, 60*time.Minute, cfg.SessionIdleTimeout)
	assert.Equal(t, "./data/reports.db", cfg.Database.Path)
	assert.Equal(t, "./static/uploads", cfg.Attachments.Dir)
	assert.Equal(t, int64(32<<20), cfg.Attachments.MaxUploadSize)
	assert.Equal(t, "smtp.gmail.com", cfg.Email.SMTPHost)
	assert.Equal(t, 465, cfg.Email.SMTPPort)
	assert.False(t, cfg.Email.Configured())
	assert.Equal(t, CacheTypeMemory, cfg.Cache.Type)
	assert.True(t, cfg.PDF.Compress)
	assert.InDelta(t, 100.0, cfg.PDF.ImageWidth, 0.001)
	assert.Equal(t, "0 3 * * *", cfg.Jobs.CacheClearSchedule)

	// a random session key is generated when none is configured
	assert.Len(t, cfg.SessionKey, 64)
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
listen: " 127.0.0.1 "
port: 8080
session_key: geheim
session_idle_timeout: 30m
database:
  path: /var/lib/rapport/reports.db
email:
  sender: vagt@example.com
  password: hemmelig
cache:
  type: " Redis "
  redis_url: redis://localhost:6379/0
pdf:
  compress: false
  image_width: 80
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, "geheim", cfg.SessionKey)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTimeout)
	assert.Equal(t, "/var/lib/rapport/reports.db", cfg.Database.Path)
	assert.True(t, cfg.Email.Configured())
	assert.Equal(t, CacheTypeRedis, cfg.Cache.Type)
	assert.False(t, cfg.PDF.Compress)
	assert.InDelta(t, 80.0, cfg.PDF.ImageWidth, 0.001)
	// untouched keys keep their defaults
	assert.Equal(t, "./static/uploads", cfg.Attachments.Dir)
}

func TestLoad_Environment(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "8081")
	t.Setenv("EMAIL_SENDER", "vagt@example.com")
	t.Setenv("EMAIL_PASSWORD", "hemmelig")
	t.Setenv("RAPPORT_DATABASE_PATH", "/tmp/reports.db")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, "vagt@example.com", cfg.Email.Sender)
	assert.True(t, cfg.Email.Configured())
	assert.Equal(t, "/tmp/reports.db", cfg.Database.Path)
}

func TestLoad_PrefixedEnvironmentWins(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "8081")
	t.Setenv("RAPPORT_PORT", "9000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:               5000,
			SessionIdleTimeout: time.Hour,
			Database:           &DatabaseConfig{Path: "reports.db"},
			Attachments:        &AttachmentsConfig{Dir: "uploads"},
			Email:              &EmailConfig{SMTPHost: "smtp.example.com"},
			Cache:              &CacheConfig{Type: CacheTypeMemory},
			PDF:                &PDFConfig{ImageWidth: 100},
			Jobs:               &JobsConfig{CacheClearSchedule: "0 3 * * *", AttachmentAuditSchedule: "0 4 * * 0"},
		}
	}

	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{name: "valid", modify: func(*Config) {}},
		{name: "port zero", modify: func(c *Config) { c.Port = 0 }, wantErr: true},
		{name: "port too large", modify: func(c *Config) { c.Port = 70000 }, wantErr: true},
		{name: "no idle timeout", modify: func(c *Config) { c.SessionIdleTimeout = 0 }, wantErr: true},
		{name: "no database path", modify: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "no attachment dir", modify: func(c *Config) { c.Attachments = nil }, wantErr: true},
		{name: "no smtp host", modify: func(c *Config) { c.Email.SMTPHost = "" }, wantErr: true},
		{name: "email section optional", modify: func(c *Config) { c.Email = nil }},
		{name: "redis without url", modify: func(c *Config) { c.Cache.Type = CacheTypeRedis }, wantErr: true},
		{name: "redis with url", modify: func(c *Config) {
			c.Cache.Type = CacheTypeRedis
			c.Cache.RedisURL = "redis://localhost:6379"
		}},
		{name: "unknown cache", modify: func(c *Config) { c.Cache.Type = "memcached" }, wantErr: true},
		{name: "negative image width", modify: func(c *Config) { c.PDF.ImageWidth = -1 }, wantErr: true},
		{name: "bad cron", modify: func(c *Config) { c.Jobs.AttachmentAuditSchedule = "@daily" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.modify(c)
			err := validateConfig(c)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.Error(t, validateConfig(nil))
}
