package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config holds the aptsearch API configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Listings    ListingsConfig    `yaml:"listings"`
	Vision      VisionConfig      `yaml:"vision"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Preferences PreferencesConfig `yaml:"preferences"`
	Search      SearchConfig      `yaml:"search"`
	Auth        AuthConfig        `yaml:"auth"`
	Dev         DevConfig         `yaml:"dev"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig selects the listing store. Addrs also back the embedding cache.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // postgres, redis (default: postgres)
	DSN              string   `yaml:"dsn"`
	MaxOpenConns     int      `yaml:"max_open_conns"`
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// RedisAddrs returns the configured addresses, skipping entries left empty by env expansion.
func (d DatabaseConfig) RedisAddrs() []string {
	var out []string
	for _, a := range d.Addrs {
		if strings.TrimSpace(a) != "" {
			out = append(out, a)
		}
	}
	return out
}

// ListingsConfig holds the upstream listings API settings.
type ListingsConfig struct {
	BaseURL    string  `yaml:"base_url"`
	Host       string  `yaml:"host"`
	APIKey     string  `yaml:"api_key"`
	TimeoutSec int     `yaml:"timeout_sec"`
	MaxRetries int     `yaml:"max_retries"`
	RatePerSec float64 `yaml:"rate_per_sec"`
	Burst      int     `yaml:"burst"`
}

// VisionConfig holds image analysis settings.
type VisionConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"` // empty = Google default endpoint
	TimeoutSec  int    `yaml:"timeout_sec"`
	Concurrency int    `yaml:"concurrency"`
}

// EmbeddingConfig holds embedding provider and cache settings.
type EmbeddingConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSec  int    `yaml:"timeout_sec"`
	Concurrency int    `yaml:"concurrency"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"` // 0 = no expiry
}

// PreferencesConfig holds the chat model used to extract search preferences.
type PreferencesConfig struct {
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// SearchConfig holds search orchestration settings.
type SearchConfig struct {
	PageSize          int `yaml:"page_size"`
	EnrichConcurrency int `yaml:"enrich_concurrency"`
}

// DevConfig holds developer-only switches.
type DevConfig struct {
	AllowCacheClear bool `yaml:"allow_cache_clear"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// An optional .env file in the working directory is loaded first.
func Load(env string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return parse(data)
}

func parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Listings.BaseURL == "" {
		c.Listings.BaseURL = "https://streeteasy-api.p.rapidapi.com"
	}
	if c.Listings.Host == "" {
		c.Listings.Host = "streeteasy-api.p.rapidapi.com"
	}
	if c.Listings.TimeoutSec <= 0 {
		c.Listings.TimeoutSec = 15
	}
	if c.Listings.MaxRetries < 0 {
		c.Listings.MaxRetries = 0
	}
	if c.Listings.RatePerSec <= 0 {
		c.Listings.RatePerSec = 5
	}
	if c.Listings.Burst <= 0 {
		c.Listings.Burst = 5
	}
	if c.Vision.TimeoutSec <= 0 {
		c.Vision.TimeoutSec = 20
	}
	if c.Vision.Concurrency <= 0 {
		c.Vision.Concurrency = 4
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 15
	}
	if c.Embedding.Concurrency <= 0 {
		c.Embedding.Concurrency = 4
	}
	if c.Preferences.Model == "" {
		c.Preferences.Model = "gpt-4"
	}
	if c.Preferences.Temperature <= 0 {
		c.Preferences.Temperature = 0.1
	}
	if c.Preferences.TimeoutSec <= 0 {
		c.Preferences.TimeoutSec = 30
	}
	if c.Search.PageSize <= 0 {
		c.Search.PageSize = 15
	}
	if c.Search.EnrichConcurrency <= 0 {
		c.Search.EnrichConcurrency = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	case DriverRedis:
		if len(c.Database.RedisAddrs()) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q",
			DriverPostgres, DriverRedis, c.Database.Driver)
	}
	if c.Listings.APIKey == "" {
		return fmt.Errorf("listings.api_key is required")
	}
	if c.Vision.APIKey == "" {
		return fmt.Errorf("vision.api_key is required")
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required")
	}
	return nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
