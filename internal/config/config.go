package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/hbimpianti/hbdesk/internal/domain"
)

// Config represents the application configuration
type Config struct {
	DBPath      string `yaml:"db_path"`
	BackupDir   string `yaml:"backup_dir"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	Output      string `yaml:"output"`
	VATRate     string `yaml:"vat_rate"`
	Orphans     string `yaml:"orphans"`
	DaemonAddr  string `yaml:"daemon_addr"`
	DaemonToken string `yaml:"daemon_token"`

	// WebhookURLs are notified after every committed import or repair.
	// {mode} and {uuid} are replaced in each URL.
	WebhookURLs []string `yaml:"webhook_urls"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/hbdesk/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:   "warn",
		LogFormat:  "console",
		Output:     "table",
		VATRate:    "22",
		Orphans:    "skip",
		DaemonAddr: "127.0.0.1:7421",
	}

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// YAML config is optional
	if err := loadYAMLConfig(cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if dbPath := getEnvOrFile("HBDESK_DB_PATH", "HBDESK_DB_PATH_FILE"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if backupDir := os.Getenv("HBDESK_BACKUP_DIR"); backupDir != "" {
		cfg.BackupDir = backupDir
	}
	if logLevel := os.Getenv("HBDESK_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat := os.Getenv("HBDESK_LOG_FORMAT"); logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if output := os.Getenv("HBDESK_OUTPUT"); output != "" {
		cfg.Output = output
	}
	if rate := os.Getenv("HBDESK_VAT_RATE"); rate != "" {
		cfg.VATRate = rate
	}
	if orphans := os.Getenv("HBDESK_ORPHANS"); orphans != "" {
		cfg.Orphans = orphans
	}
	if addr := os.Getenv("HBDESK_DAEMON_ADDR"); addr != "" {
		cfg.DaemonAddr = addr
	}
	if token := getEnvOrFile("HBDESK_DAEMON_TOKEN", "HBDESK_DAEMON_TOKEN_FILE"); token != "" {
		cfg.DaemonToken = token
	}
	if hooks := os.Getenv("HBDESK_WEBHOOK_URLS"); hooks != "" {
		cfg.WebhookURLs = strings.Split(hooks, ",")
	}

	if cfg.DBPath == "" {
		// Project-local database first, then the user-global one
		if _, err := os.Stat(".hbdesk/hbdesk.db"); err == nil {
			cfg.DBPath = ".hbdesk/hbdesk.db"
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			cfg.DBPath = filepath.Join(homeDir, ".local", "share", "hbdesk", "hbdesk.db")
		}
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = "."
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that have a fixed vocabulary.
func (c *Config) Validate() error {
	if _, err := c.VAT(); err != nil {
		return err
	}
	if err := domain.ValidateOrphanPolicy(c.Orphans); err != nil {
		return err
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be one of: console, json", c.LogFormat)
	}
	return nil
}

// VAT returns the configured default VAT rate as a percentage.
func (c *Config) VAT() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.VATRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid vat rate %q: %w", c.VATRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, fmt.Errorf("invalid vat rate %q: must be between 0 and 100", c.VATRate)
	}
	return rate, nil
}

// loadYAMLConfig loads configuration from ~/.config/hbdesk/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(homeDir, ".config", "hbdesk", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		if dir == homeDir {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}
