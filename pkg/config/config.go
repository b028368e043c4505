package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tgranger/pkg/logger"
	"tgranger/pkg/models"
)

// Config holds all configuration options for the scraping server
type Config struct {
	// HTTP / WebSocket server
	Server ServerConfig `yaml:"server" json:"server"`

	// Persistence
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Telegram API credentials
	Telegram TelegramConfig `yaml:"telegram" json:"telegram"`

	// Defaults applied to start commands that omit fields
	Scraping ScrapingConfig `yaml:"scraping" json:"scraping"`

	// Logging configuration
	Logging logger.Config `yaml:"logging" json:"logging"`
}

// ServerConfig holds the listen address and channel path
type ServerConfig struct {
	Addr   string `yaml:"addr" json:"addr"`
	WSPath string `yaml:"ws_path" json:"ws_path"`
}

// DatabaseConfig holds the sqlite database location
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path"`
}

// TelegramConfig holds Telegram API credentials. The simulated provider
// does not dial out, but the credentials are validated and carried so a
// real MTProto provider can be dropped in without config changes.
type TelegramConfig struct {
	APIID   string `yaml:"api_id" json:"api_id"`
	APIHash string `yaml:"api_hash" json:"api_hash"`
}

// ScrapingConfig holds the per-run defaults
type ScrapingConfig struct {
	Mode       models.ScrapeMode `yaml:"mode" json:"mode"`
	RateLimit  int               `yaml:"rate_limit" json:"rate_limit"`
	MaxMembers int               `yaml:"max_members" json:"max_members"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:   ":5000",
			WSPath: "/ws",
		},
		Database: DatabaseConfig{
			Path: "./tgranger.db",
		},
		Scraping: ScrapingConfig{
			Mode:       models.ModeStandard,
			RateLimit:  3,
			MaxMembers: 1000,
		},
		Logging: logger.Config{
			Level: "info",
		},
	}
}

// Load builds the configuration by layering: defaults, then the optional
// yaml file, then environment variables, then command-line flag overrides.
func Load(configFile string, flags map[string]interface{}) (*Config, error) {
	cfg := DefaultConfig()

	if configFile != "" {
		if err := cfg.loadFromFile(configFile); err != nil {
			return nil, err
		}
	}

	// .env is optional; real env vars still win below
	_ = godotenv.Load()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	cfg.applyFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads yaml configuration from the given path
func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if addr := os.Getenv("TGRANGER_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if dbPath := os.Getenv("TGRANGER_DB_PATH"); dbPath != "" {
		c.Database.Path = dbPath
	}
	if apiID := firstEnv("TELEGRAM_API_ID", "API_ID"); apiID != "" {
		c.Telegram.APIID = apiID
	}
	if apiHash := firstEnv("TELEGRAM_API_HASH", "API_HASH"); apiHash != "" {
		c.Telegram.APIHash = apiHash
	}
	if rate := os.Getenv("TGRANGER_RATE_LIMIT"); rate != "" {
		if val, err := strconv.Atoi(rate); err == nil && val > 0 {
			c.Scraping.RateLimit = val
		}
	}
	if max := os.Getenv("TGRANGER_MAX_MEMBERS"); max != "" {
		if val, err := strconv.Atoi(max); err == nil && val > 0 {
			c.Scraping.MaxMembers = val
		}
	}
	if level := os.Getenv("TGRANGER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if file := os.Getenv("TGRANGER_LOG_FILE"); file != "" {
		c.Logging.File = file
	}
	return nil
}

// applyFlags overrides configuration with command-line flag values
func (c *Config) applyFlags(flags map[string]interface{}) {
	for key, value := range flags {
		switch key {
		case "addr":
			if v, ok := value.(string); ok && v != "" {
				c.Server.Addr = v
			}
		case "db":
			if v, ok := value.(string); ok && v != "" {
				c.Database.Path = v
			}
		case "rate-limit":
			if v, ok := value.(int); ok && v > 0 {
				c.Scraping.RateLimit = v
			}
		case "max-members":
			if v, ok := value.(int); ok && v > 0 {
				c.Scraping.MaxMembers = v
			}
		case "log-level":
			if v, ok := value.(string); ok && v != "" {
				c.Logging.Level = v
			}
		}
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr must not be empty")
	}
	if !strings.HasPrefix(c.Server.WSPath, "/") {
		return fmt.Errorf("ws_path must start with /: %q", c.Server.WSPath)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if !c.Scraping.Mode.Valid() {
		return fmt.Errorf("unknown scraping mode: %q", c.Scraping.Mode)
	}
	if c.Scraping.RateLimit <= 0 {
		return fmt.Errorf("rate_limit must be positive, got %d", c.Scraping.RateLimit)
	}
	if c.Scraping.MaxMembers <= 0 {
		return fmt.Errorf("max_members must be positive, got %d", c.Scraping.MaxMembers)
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
