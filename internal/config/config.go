// Package config loads the hangar configuration from file, environment and defaults.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides (HANGAR_SERVER_ADDR, ...).
const EnvPrefix = "HANGAR"

// Storage backends.
const (
	BackendFilesystem = "filesystem"
	BackendMemory     = "memory"
	BackendBolt       = "bolt"
	BackendSQLite     = "sqlite"
)

// Rate limiter backends.
const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	Uploads   UploadsConfig   `mapstructure:"uploads" yaml:"uploads"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	TrustedProxies    []string      `mapstructure:"trusted_proxies" yaml:"trusted_proxies"`
	AllowedNetworks   []string      `mapstructure:"allowed_networks" yaml:"allowed_networks"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	TLS               TLSConfig     `mapstructure:"tls" yaml:"tls"`
}

// TLSConfig enables HTTPS either from a certificate pair or through ACME.
type TLSConfig struct {
	CertFile         string   `mapstructure:"cert_file" yaml:"cert_file"`
	KeyFile          string   `mapstructure:"key_file" yaml:"key_file"`
	AutocertDomains  []string `mapstructure:"autocert_domains" yaml:"autocert_domains"`
	AutocertCacheDir string   `mapstructure:"autocert_cache_dir" yaml:"autocert_cache_dir"`
}

// Enabled reports whether the server should listen with TLS.
func (t TLSConfig) Enabled() bool {
	return (t.CertFile != "" && t.KeyFile != "") || len(t.AutocertDomains) > 0
}

type StorageConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

type AuthConfig struct {
	Enabled            bool         `mapstructure:"enabled" yaml:"enabled"`
	Realm              string       `mapstructure:"realm" yaml:"realm"`
	Users              []UserConfig `mapstructure:"users" yaml:"users"`
	TokenSecret        string       `mapstructure:"token_secret" yaml:"token_secret"`
	TokenIssuer        string       `mapstructure:"token_issuer" yaml:"token_issuer"`
	AnonymousPull      bool         `mapstructure:"anonymous_pull" yaml:"anonymous_pull"`
	PublicRepositories []string     `mapstructure:"public_repositories" yaml:"public_repositories"`
}

// UserConfig is a basic-auth account. PasswordHash is a bcrypt hash.
type UserConfig struct {
	Username     string `mapstructure:"username" yaml:"username"`
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash"`
}

type RateLimitConfig struct {
	Enabled       bool    `mapstructure:"enabled" yaml:"enabled"`
	Backend       string  `mapstructure:"backend" yaml:"backend"`
	GlobalRPS     float64 `mapstructure:"global_rps" yaml:"global_rps"`
	GlobalBurst   int     `mapstructure:"global_burst" yaml:"global_burst"`
	IPRPS         float64 `mapstructure:"ip_rps" yaml:"ip_rps"`
	IPBurst       int     `mapstructure:"ip_burst" yaml:"ip_burst"`
	RedisAddr     string  `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string  `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int     `mapstructure:"redis_db" yaml:"redis_db"`
}

type UploadsConfig struct {
	MaxAge          time.Duration `mapstructure:"max_age" yaml:"max_age"`
	PurgeInterval   time.Duration `mapstructure:"purge_interval" yaml:"purge_interval"`
	MaxManifestSize int64         `mapstructure:"max_manifest_size" yaml:"max_manifest_size"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("server.allowed_networks", []string{})
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.tls.autocert_cache_dir", filepath.Join(DefaultDataDir(), "autocert"))

	v.SetDefault("storage.backend", BackendFilesystem)
	v.SetDefault("storage.data_dir", DefaultDataDir())

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.realm", "hangar")
	v.SetDefault("auth.token_issuer", "hangar")
	v.SetDefault("auth.anonymous_pull", false)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", RateLimitMemory)
	v.SetDefault("rate_limit.global_rps", 500)
	v.SetDefault("rate_limit.global_burst", 1000)
	v.SetDefault("rate_limit.ip_rps", 50)
	v.SetDefault("rate_limit.ip_burst", 100)
	v.SetDefault("rate_limit.redis_addr", "localhost:6379")

	v.SetDefault("uploads.max_age", 24*time.Hour)
	v.SetDefault("uploads.purge_interval", time.Hour)
	v.SetDefault("uploads.max_manifest_size", 4<<20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("logging.compress", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// BindEnv makes every key overridable through HANGAR_<SECTION>_<KEY> variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes the configuration held by v, applying defaults, and validates it.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks option values that defaults cannot fix.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	for _, n := range append(slices.Clone(c.Server.TrustedProxies), c.Server.AllowedNetworks...) {
		if !validNetwork(n) {
			return fmt.Errorf("invalid IP address or CIDR range: %q", n)
		}
	}

	backends := []string{BackendFilesystem, BackendMemory, BackendBolt, BackendSQLite}
	if !slices.Contains(backends, c.Storage.Backend) {
		return fmt.Errorf("storage.backend must be one of: %s", strings.Join(backends, ", "))
	}
	if c.Storage.Backend != BackendMemory && c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required for the %s backend", c.Storage.Backend)
	}

	if c.Auth.Enabled {
		if len(c.Auth.Users) == 0 && c.Auth.TokenSecret == "" {
			return fmt.Errorf("auth enabled but neither users nor token_secret configured")
		}
		for i, u := range c.Auth.Users {
			if u.Username == "" || u.PasswordHash == "" {
				return fmt.Errorf("auth.users[%d]: username and password_hash are required", i)
			}
		}
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Backend != RateLimitMemory && c.RateLimit.Backend != RateLimitRedis {
			return fmt.Errorf("rate_limit.backend must be %q or %q", RateLimitMemory, RateLimitRedis)
		}
		if c.RateLimit.Backend == RateLimitRedis && c.RateLimit.RedisAddr == "" {
			return fmt.Errorf("rate_limit.redis_addr is required for the redis backend")
		}
	}

	if c.Uploads.MaxManifestSize <= 0 {
		return fmt.Errorf("uploads.max_manifest_size must be positive")
	}

	if c.Server.TLS.CertFile != "" && c.Server.TLS.KeyFile == "" ||
		c.Server.TLS.CertFile == "" && c.Server.TLS.KeyFile != "" {
		return fmt.Errorf("server.tls.cert_file and server.tls.key_file must be set together")
	}

	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil || c.Logging.Level == "" {
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be \"console\" or \"json\"")
	}

	return nil
}

func validNetwork(s string) bool {
	if _, _, err := net.ParseCIDR(s); err == nil {
		return true
	}
	return net.ParseIP(s) != nil
}

// DefaultDataDir returns a platform-appropriate default data directory.
func DefaultDataDir() string {
	if os.Getuid() != 0 {
		if homeDir, err := os.UserHomeDir(); err == nil {
			return filepath.Join(homeDir, ".local/share/hangar")
		}
	}
	return "./data"
}
