package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the leadscout API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Provider   ProviderConfig   `yaml:"provider"`
	Search     SearchConfig     `yaml:"search"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Estimation EstimationConfig `yaml:"estimation"`
	Logging    LoggingConfig    `yaml:"logging"`
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

// DatabaseConfig holds progress/result store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ProviderConfig holds place-search provider settings.
type ProviderConfig struct {
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"api_key"`
	PageSize          int    `yaml:"page_size"`           // results per page (default 20)
	MaxPages          int    `yaml:"max_pages"`           // page ceiling per run (default 3)
	PageDelayMs       int    `yaml:"page_delay_ms"`       // pause before fetching a continuation page
	DetailDelayMs     int    `yaml:"detail_delay_ms"`     // pause between per-result detail fetches (0 = none)
	RequestTimeoutSec int    `yaml:"request_timeout_sec"` // per-request HTTP timeout
	Language          string `yaml:"language"`
	Region            string `yaml:"region"`
}

// SearchConfig holds run-level limits and retention.
type SearchConfig struct {
	DefaultMaxResults int `yaml:"default_max_results"` // applied when a request omits max_results
	MaxResults        int `yaml:"max_results"`         // hard cap per run
	RetentionHours    int `yaml:"retention_hours"`     // progress/result record TTL
}

// EnrichmentConfig holds website contact-scrape settings.
type EnrichmentConfig struct {
	Enabled    bool `yaml:"enabled"`
	TimeoutSec int  `yaml:"timeout_sec"`
}

// Band maps a review-count ceiling to an estimate band label.
type Band struct {
	MaxReviews int    `yaml:"max_reviews"` // inclusive upper bound; last entry may be 0 = unbounded
	Label      string `yaml:"label"`
}

// EstimationConfig holds review-count banding thresholds for
// employee and revenue estimates.
type EstimationConfig struct {
	EmployeeBands []Band `yaml:"employee_bands"`
	RevenueBands  []Band `yaml:"revenue_bands"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

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
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "memory"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Provider.PageSize <= 0 {
		c.Provider.PageSize = 20
	}
	if c.Provider.MaxPages <= 0 {
		c.Provider.MaxPages = 3
	}
	if c.Provider.PageDelayMs <= 0 {
		c.Provider.PageDelayMs = 2000
	}
	if c.Provider.RequestTimeoutSec <= 0 {
		c.Provider.RequestTimeoutSec = 10
	}
	if c.Provider.Language == "" {
		c.Provider.Language = "es"
	}
	if c.Provider.Region == "" {
		c.Provider.Region = "es"
	}
	if c.Search.DefaultMaxResults <= 0 {
		c.Search.DefaultMaxResults = 20
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 1000
	}
	if c.Search.RetentionHours <= 0 {
		c.Search.RetentionHours = 24
	}
	if c.Enrichment.TimeoutSec <= 0 {
		c.Enrichment.TimeoutSec = 8
	}
	if len(c.Estimation.EmployeeBands) == 0 {
		c.Estimation.EmployeeBands = []Band{
			{MaxReviews: 30, Label: "1-10"},
			{MaxReviews: 150, Label: "11-50"},
			{MaxReviews: 500, Label: "51-200"},
			{MaxReviews: 0, Label: "201-500"},
		}
	}
	if len(c.Estimation.RevenueBands) == 0 {
		c.Estimation.RevenueBands = []Band{
			{MaxReviews: 30, Label: "<1M"},
			{MaxReviews: 150, Label: "1M-10M"},
			{MaxReviews: 500, Label: "10M-50M"},
			{MaxReviews: 0, Label: ">50M"},
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "memory":
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"memory\", got %q", c.Database.Driver)
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if err := validateBands("estimation.employee_bands", c.Estimation.EmployeeBands); err != nil {
		return err
	}
	if err := validateBands("estimation.revenue_bands", c.Estimation.RevenueBands); err != nil {
		return err
	}
	return nil
}

// validateBands checks that thresholds are strictly ascending and only the
// last band may be unbounded (max_reviews = 0).
func validateBands(name string, bands []Band) error {
	prev := -1
	for i, b := range bands {
		if b.Label == "" {
			return fmt.Errorf("%s[%d].label is required", name, i)
		}
		if b.MaxReviews == 0 {
			if i != len(bands)-1 {
				return fmt.Errorf("%s[%d]: only the last band may be unbounded", name, i)
			}
			continue
		}
		if b.MaxReviews <= prev {
			return fmt.Errorf("%s[%d]: thresholds must be ascending", name, i)
		}
		prev = b.MaxReviews
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
