package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override secrets in the config file.
const (
	EnvClientID     = "LUMEN_CLIENT_ID"
	EnvClientSecret = "LUMEN_CLIENT_SECRET"
	EnvRedisURL     = "LUMEN_REDIS_URL"
	EnvLogLevel     = "LUMEN_LOG_LEVEL"
)

// Credential issuance strategies.
const (
	StrategyToken  = "token"
	StrategyScrape = "scrape"
	StrategyProxy  = "proxy"
)

// Credential store backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	API         APIConfig         `toml:"api"`
	Loader      LoaderConfig      `toml:"loader"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains the issuer settings and where the issued credential is cached.
type CredentialsConfig struct {
	SoundCloud SoundCloudConfig `toml:"soundcloud"`
	Store      StoreConfig      `toml:"store"`
}

// SoundCloudConfig selects and configures a credential issuance strategy.
type SoundCloudConfig struct {
	Strategy     string `toml:"strategy"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenURL     string `toml:"token_url"`
	HomeURL      string `toml:"home_url"`
	ProxyURL     string `toml:"proxy_url"`
	HeadersPath  string `toml:"headers_path"`
}

// StoreConfig describes the durable slot holding the cached credential.
type StoreConfig struct {
	Backend             string `toml:"backend"`
	Path                string `toml:"path"`
	Key                 string `toml:"key"`
	RedisURL            string `toml:"redis_url"`
	SafetyMarginSeconds int    `toml:"safety_margin_seconds"`
}

// APIConfig contains settings for requests against the media API.
type APIConfig struct {
	BaseURL           string  `toml:"base_url"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	HTTPCache         bool    `toml:"http_cache"`
	UserAgent         string  `toml:"user_agent"`
}

// LoaderConfig contains the batching parameters for gallery loads.
type LoaderConfig struct {
	ChunkSize int    `toml:"chunk_size"`
	PaceMS    int    `toml:"pace_ms"`
	Source    string `toml:"source"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// SafetyMargin is how long before expiry a cached credential stops being served.
func (s StoreConfig) SafetyMargin() time.Duration {
	return time.Duration(s.SafetyMarginSeconds) * time.Second
}

// Timeout is the per-request deadline applied by the fetcher.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Pace is the delay between consecutive batches.
func (l LoaderConfig) Pace() time.Duration {
	return time.Duration(l.PaceMS) * time.Millisecond
}

// Addr joins host and port for [http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads each dotenv file that exists into the process environment.
// Variables already set win over file values.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides secrets and the log level from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvClientID); v != "" {
		c.Credentials.SoundCloud.ClientID = v
	}
	if v := os.Getenv(EnvClientSecret); v != "" {
		c.Credentials.SoundCloud.ClientSecret = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Credentials.Store.RedisURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the fields the credential and loader pipeline depend on.
func (c *Config) Validate() error {
	switch c.Credentials.SoundCloud.Strategy {
	case StrategyToken:
		if c.Credentials.SoundCloud.ClientID == "" || c.Credentials.SoundCloud.ClientSecret == "" {
			return fmt.Errorf("%w: token strategy needs client_id and client_secret", ErrMissingCredentials)
		}
	case StrategyScrape, StrategyProxy:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, c.Credentials.SoundCloud.Strategy)
	}

	switch c.Credentials.Store.Backend {
	case BackendFile, BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.Credentials.Store.RedisURL == "" {
			return fmt.Errorf("%w: redis backend needs redis_url", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Credentials.Store.Backend)
	}

	if c.Loader.ChunkSize <= 0 {
		return fmt.Errorf("%w: loader.chunk_size must be positive", ErrInvalidConfig)
	}
	if c.Loader.PaceMS < 0 {
		return fmt.Errorf("%w: loader.pace_ms must not be negative", ErrInvalidConfig)
	}
	return nil
}
