package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

type CacheType string

const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeRedis  CacheType = "redis"
)

// Config holds the configuration for the report server and its dependencies.
type Config struct {
	// Listen is the host the server binds to.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// Port is the port the server listens on. Also read from the PORT environment variable.
	Port int `yaml:"port" mapstructure:"port"`
	// SessionKey is the key used to sign session cookies.
	SessionKey string `yaml:"session_key" mapstructure:"session_key"`
	// SessionIdleTimeout is how long a session stays valid without a request.
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout" mapstructure:"session_idle_timeout"`
	// SecureCookies marks the session cookie as HTTPS only.
	SecureCookies bool `yaml:"secure_cookies" mapstructure:"secure_cookies"`
	// Database holds the database configuration.
	Database *DatabaseConfig `yaml:"database" mapstructure:"database"`
	// Attachments holds the configuration for stored entry photos.
	Attachments *AttachmentsConfig `yaml:"attachments" mapstructure:"attachments"`
	// Email holds the outbound mail relay configuration.
	Email *EmailConfig `yaml:"email" mapstructure:"email"`
	// Cache holds the configuration for the rendered document cache.
	Cache *CacheConfig `yaml:"cache" mapstructure:"cache"`
	// PDF holds the document layout options.
	PDF *PDFConfig `yaml:"pdf" mapstructure:"pdf"`
	// Jobs holds the schedules of the background jobs.
	Jobs *JobsConfig `yaml:"jobs" mapstructure:"jobs"`
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	// Path is the path to the SQLite database file.
	Path string `yaml:"path" mapstructure:"path"`
}

// AttachmentsConfig holds the configuration of the attachment directory.
type AttachmentsConfig struct {
	// Dir is the directory uploaded photos are written to. It is created on demand.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// MaxUploadSize is the maximum size of a multipart submission in bytes.
	MaxUploadSize int64 `yaml:"max_upload_size" mapstructure:"max_upload_size"`
}

// EmailConfig holds the configuration of the outbound mail relay.
type EmailConfig struct {
	// SMTPHost is the relay host.
	SMTPHost string `yaml:"smtp_host" mapstructure:"smtp_host"`
	// SMTPPort is the relay port (implicit TLS).
	SMTPPort int `yaml:"smtp_port" mapstructure:"smtp_port"`
	// Sender is the sender address and SMTP username. Also read from EMAIL_SENDER.
	Sender string `yaml:"sender" mapstructure:"sender"`
	// Password is the SMTP password. Also read from EMAIL_PASSWORD.
	Password string `yaml:"password" mapstructure:"password"`
	// FromName is the display name of the sender.
	FromName string `yaml:"from_name" mapstructure:"from_name"`
	// ConnectTimeout bounds the connection to the relay.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
	// SendTimeout bounds the transmission of a message.
	SendTimeout time.Duration `yaml:"send_timeout" mapstructure:"send_timeout"`
}

// Configured reports whether relay credentials are present.
func (c *EmailConfig) Configured() bool {
	return c != nil && c.Sender != "" && c.Password != ""
}

// CacheConfig holds the cache configuration.
type CacheConfig struct {
	// Type is the type of cache engine to use (e.g., "memory", "redis").
	Type CacheType `yaml:"type" mapstructure:"type"`
	// RedisURL is the URL for the Redis cache if using Redis.
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	// TTL is how long a rendered document is kept.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// PDFConfig holds the document layout options.
type PDFConfig struct {
	// Compress enables stream compression in generated documents.
	Compress bool `yaml:"compress" mapstructure:"compress"`
	// ImageWidth is the width in millimetres photos are scaled to.
	ImageWidth float64 `yaml:"image_width" mapstructure:"image_width"`
}

// JobsConfig holds cron schedules for the background jobs.
type JobsConfig struct {
	// CacheClearSchedule is the cron schedule for clearing the document cache.
	CacheClearSchedule string `yaml:"cache_clear_schedule" mapstructure:"cache_clear_schedule"`
	// AttachmentAuditSchedule is the cron schedule for the unreferenced attachment report.
	AttachmentAuditSchedule string `yaml:"attachment_audit_schedule" mapstructure:"attachment_audit_schedule"`
}

// Addr returns the address the HTTP server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Listen, strconv.Itoa(c.Port))
}

// Load reads the configuration from the specified path and returns a Config struct.
// If path is empty, it will use default search paths for config files.
// If no config file is found, defaults and environment variables are used.
func Load(path string) (*Config, error) {
	v := viper.New()

	// bind the env vars that don't follow the RAPPORT_ prefix
	bindLegacyEnv(v)

	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("RAPPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var configFileFound bool
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.rapport")
		v.AddConfigPath("/etc/rapport")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileFound = true
	}

	if configFileFound {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	sanitizeConfig(&c)

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	if c.SessionKey == "" {
		log.Warn("No session key configured, generating a random one. Sessions will not survive a restart.")
		c.SessionKey = randomKey()
	}

	return &c, nil
}

// setDefaults sets default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "0.0.0.0")
	v.SetDefault("port", 5000)
	v.SetDefault("session_key", "")
	v.SetDefault("session_idle_timeout", 60*time.Minute)
	v.SetDefault("secure_cookies", false)

	v.SetDefault("database.path", "./data/reports.db")

	v.SetDefault("attachments.dir", "./static/uploads")
	v.SetDefault("attachments.max_upload_size", 32<<20)

	v.SetDefault("email.smtp_host", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 465)
	v.SetDefault("email.sender", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from_name", "Bjærgningsrapport")
	v.SetDefault("email.connect_timeout", 10*time.Second)
	v.SetDefault("email.send_timeout", 30*time.Second)

	v.SetDefault("cache.type", CacheTypeMemory)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", time.Hour)

	v.SetDefault("pdf.compress", true)
	v.SetDefault("pdf.image_width", 100)

	v.SetDefault("jobs.cache_clear_schedule", "0 3 * * *")      // every night at 3
	v.SetDefault("jobs.attachment_audit_schedule", "0 4 * * 0") // sundays at 4
}

// bindLegacyEnv binds the environment variables the service has always been configured with.
// The prefixed variant is checked first.
func bindLegacyEnv(v *viper.Viper) {
	v.MustBindEnv("port", "RAPPORT_PORT", "PORT")
	v.MustBindEnv("email.sender", "RAPPORT_EMAIL_SENDER", "EMAIL_SENDER")
	v.MustBindEnv("email.password", "RAPPORT_EMAIL_PASSWORD", "EMAIL_PASSWORD")
}

func validateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("missing config")
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("session idle timeout must be positive")
	}

	if c.Database == nil || c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.Attachments == nil || c.Attachments.Dir == "" {
		return fmt.Errorf("attachment directory is required")
	}

	if c.Email != nil && c.Email.SMTPHost == "" {
		return fmt.Errorf("email smtp host is required")
	}

	if c.Cache != nil {
		switch c.Cache.Type {
		case CacheTypeMemory:
		case CacheTypeRedis:
			if c.Cache.RedisURL == "" {
				return fmt.Errorf("redis url is required when cache type is redis")
			}
		default:
			return fmt.Errorf("unknown cache type %q", c.Cache.Type)
		}
	}

	if c.PDF != nil && c.PDF.ImageWidth <= 0 {
		return fmt.Errorf("pdf image width must be positive")
	}

	if c.Jobs != nil {
		for name, schedule := range map[string]string{
			"cache_clear_schedule":      c.Jobs.CacheClearSchedule,
			"attachment_audit_schedule": c.Jobs.AttachmentAuditSchedule,
		} {
			// Basic validation for cron format (5 fields)
			if len(strings.Fields(schedule)) != 5 {
				return fmt.Errorf("jobs.%s must be a valid cron expression with 5 fields", name)
			}
		}
	}

	return nil
}

// sanitizeConfig sanitizes the configuration values.
func sanitizeConfig(c *Config) {
	if c == nil {
		return
	}

	c.Listen = strings.TrimSpace(c.Listen)
	c.SessionKey = strings.TrimSpace(c.SessionKey)

	if c.Email != nil {
		c.Email.SMTPHost = strings.TrimSpace(c.Email.SMTPHost)
		c.Email.Sender = strings.TrimSpace(c.Email.Sender)
	}

	if c.Cache != nil {
		c.Cache.Type = CacheType(strings.ToLower(strings.TrimSpace(string(c.Cache.Type))))
	}
}

func randomKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return hex.EncodeToString(b)
}
