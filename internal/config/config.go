package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Providers holds third-party API credentials. Each is optional; a missing
// credential disables only the tools that need it.
type Providers struct {
	OpenWeatherMapKey string `yaml:"openweathermap_api_key"`
	ExchangeRateKey   string `yaml:"exchange_rate_api_key"`
	MailgunKey        string `yaml:"mailgun_api_key"`
	MailgunDomain     string `yaml:"mailgun_domain"`
}

// Config contains runtime configuration for toolbelt-mcp.
type Config struct {
	ServerName             string    `yaml:"server_name"`
	ListenAddr             string    `yaml:"listen_addr"`
	DBPath                 string    `yaml:"db_path"`
	TasksPath              string    `yaml:"tasks_path"`
	LogLevel               string    `yaml:"log_level"`
	SearchLimit            int       `yaml:"search_limit"`
	ContentMaxLength       int       `yaml:"content_max_length"`
	RetentionDays          int       `yaml:"retention_days"`
	RetentionCheckInterval int       `yaml:"retention_check_interval_seconds"`
	Providers              Providers `yaml:"providers"`
}

// Default returns a Config populated with safe defaults.
func Default() Config {
	return Config{
		ServerName:             "toolbelt",
		ListenAddr:             ":5734",
		DBPath:                 filepath.Join(userHomeDir(), ".toolbelt-mcp", "audit.db"),
		TasksPath:              filepath.Join(userHomeDir(), ".toolbelt-mcp", "tasks.json"),
		LogLevel:               "info",
		SearchLimit:            5,
		ContentMaxLength:       10000,
		RetentionDays:          30,
		RetentionCheckInterval: 3600,
	}
}

// Load loads config from disk; if path does not exist, default config is
// returned. Provider credentials found in the environment override the file
// so keys can stay out of checked-in configs.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env string
		dst *string
	}{
		{"OPENWEATHERMAP_API_KEY", &c.Providers.OpenWeatherMapKey},
		{"EXCHANGE_RATE_API_KEY", &c.Providers.ExchangeRateKey},
		{"MAILGUN_API_KEY", &c.Providers.MailgunKey},
		{"MAILGUN_DOMAIN", &c.Providers.MailgunDomain},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.dst = v
		}
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		c.ListenAddr = ":" + v
	}
}

// Validate checks configuration sanity.
func (c *Config) Validate() error {
	if c.ServerName == "" {
		return errors.New("server_name must not be empty")
	}
	if c.ListenAddr == "" {
		return errors.New("listen_addr must not be empty")
	}
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if c.TasksPath == "" {
		return errors.New("tasks_path must not be empty")
	}
	if c.SearchLimit <= 0 {
		return errors.New("search_limit must be > 0")
	}
	if c.ContentMaxLength <= 0 {
		return errors.New("content_max_length must be > 0")
	}
	if c.RetentionDays <= 0 {
		return errors.New("retention_days must be > 0")
	}
	if c.RetentionCheckInterval <= 0 {
		return errors.New("retention_check_interval_seconds must be > 0")
	}
	return nil
}

// EnsurePaths creates parent directories for config-managed paths.
func (c *Config) EnsurePaths() error {
	c.DBPath = ExpandPath(c.DBPath)
	c.TasksPath = ExpandPath(c.TasksPath)
	for _, p := range []string{c.DBPath, c.TasksPath} {
		parent := filepath.Dir(p)
		if parent == "." {
			continue
		}
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("create parent dir for %s: %w", p, err)
		}
	}
	return nil
}

// ExpandPath expands "~/" to the current user's home directory.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p == "~" {
		return userHomeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(userHomeDir(), p[2:])
	}
	return p
}

func userHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
