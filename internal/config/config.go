package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values.
const (
	DefaultAddr          = ":5001"
	DefaultBaseURL       = "http://localhost:5001"
	DefaultModel         = "gpt-4o-mini"
	DefaultGridRange     = "A1:Z1000"
	DefaultHeaderRange   = "A1:Z1"
	DefaultScheduleRange = "A1:Z100"
	DefaultMetricsAddr   = ":9090"
	DefaultOpenAITimeout = 60 * time.Second
	DefaultUpdateRate    = 10
	DefaultUpdateBurst   = 5
)

// Config is the complete bandavail configuration.
type Config struct {
	Google  GoogleConfig  `yaml:"google" toml:"google"`
	Sheets  SheetsConfig  `yaml:"sheets" toml:"sheets"`
	OpenAI  OpenAIConfig  `yaml:"openai" toml:"openai"`
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Log     LogConfig     `yaml:"log" toml:"log"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
}

// GoogleConfig holds the OAuth client configuration downloaded from the
// Google Cloud console, either inline or as a file path.
type GoogleConfig struct {
	ClientConfig     string `yaml:"client_config" toml:"client_config"`
	ClientConfigFile string `yaml:"client_config_file" toml:"client_config_file"`
	// TokenFile is where the CLI and MCP server keep their token. Empty
	// selects the user cache directory.
	TokenFile string `yaml:"token_file" toml:"token_file"`
}

// SheetsConfig identifies the schedule spreadsheet and the ranges read from
// its first sheet.
type SheetsConfig struct {
	SpreadsheetID string `yaml:"spreadsheet_id" toml:"spreadsheet_id"`
	GridRange     string `yaml:"grid_range" toml:"grid_range"`
	HeaderRange   string `yaml:"header_range" toml:"header_range"`
	ScheduleRange string `yaml:"schedule_range" toml:"schedule_range"`
}

// OpenAIConfig configures the availability parser.
type OpenAIConfig struct {
	APIKey  string        `yaml:"api_key" toml:"api_key"`
	Model   string        `yaml:"model" toml:"model"`
	BaseURL string        `yaml:"base_url" toml:"base_url"`
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

// ServerConfig configures the web application.
type ServerConfig struct {
	Addr          string   `yaml:"addr" toml:"addr"`
	BaseURL       string   `yaml:"base_url" toml:"base_url"`
	SessionSecret string   `yaml:"session_secret" toml:"session_secret"`
	Timezone      string   `yaml:"timezone" toml:"timezone"`
	CORSOrigins   []string `yaml:"cors_origins" toml:"cors_origins"`
	// UpdateRatePerMinute limits availability updates per client IP; 0 disables.
	UpdateRatePerMinute int  `yaml:"update_rate_per_minute" toml:"update_rate_per_minute"`
	UpdateBurst         int  `yaml:"update_burst" toml:"update_burst"`
	SecureCookies       bool `yaml:"secure_cookies" toml:"secure_cookies"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig configures the dedicated metrics server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Addr    string `yaml:"addr" toml:"addr"`
}

// Default returns a Config populated with defaults only.
func Default() *Config {
	return &Config{
		Sheets: SheetsConfig{
			GridRange:     DefaultGridRange,
			HeaderRange:   DefaultHeaderRange,
			ScheduleRange: DefaultScheduleRange,
		},
		OpenAI: OpenAIConfig{
			Model:   DefaultModel,
			Timeout: DefaultOpenAITimeout,
		},
		Server: ServerConfig{
			Addr:                DefaultAddr,
			BaseURL:             DefaultBaseURL,
			Timezone:            "Local",
			CORSOrigins:         []string{"*"},
			UpdateRatePerMinute: DefaultUpdateRate,
			UpdateBurst:         DefaultUpdateBurst,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Addr: DefaultMetricsAddr,
		},
	}
}

// Load builds the configuration from defaults, an optional config file and
// the environment, in increasing order of precedence. A .env file in the
// working directory is loaded into the environment first; variables already
// set are not overridden. When path is empty, BANDAVAIL_CONFIG is consulted.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("BANDAVAIL_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// loadFile merges a YAML or TOML file into cfg, chosen by extension.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("failed to parse TOML config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config file extension %q (use .yaml, .yml or .toml)", filepath.Ext(path))
	}
	return nil
}

// applyEnv overrides fields whose environment variables are set.
func (c *Config) applyEnv() {
	c.Google.ClientConfig = getEnvOrDefault("CLIENT_CONFIG", c.Google.ClientConfig)
	c.Google.ClientConfigFile = getEnvOrDefault("CLIENT_CONFIG_FILE", c.Google.ClientConfigFile)
	c.Google.TokenFile = getEnvOrDefault("GOOGLE_TOKEN_FILE", c.Google.TokenFile)

	c.Sheets.SpreadsheetID = getEnvOrDefault("SPREADSHEET_ID", c.Sheets.SpreadsheetID)
	c.Sheets.GridRange = getEnvOrDefault("SHEET_GRID_RANGE", c.Sheets.GridRange)
	c.Sheets.HeaderRange = getEnvOrDefault("SHEET_HEADER_RANGE", c.Sheets.HeaderRange)
	c.Sheets.ScheduleRange = getEnvOrDefault("SHEET_SCHEDULE_RANGE", c.Sheets.ScheduleRange)

	c.OpenAI.APIKey = getEnvOrDefault("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.Model = getEnvOrDefault("OPENAI_MODEL", c.OpenAI.Model)
	c.OpenAI.BaseURL = getEnvOrDefault("OPENAI_BASE_URL", c.OpenAI.BaseURL)
	c.OpenAI.Timeout = getEnvDurationOrDefault("OPENAI_TIMEOUT", c.OpenAI.Timeout)

	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	c.Server.Addr = getEnvOrDefault("BANDAVAIL_ADDR", c.Server.Addr)
	c.Server.BaseURL = getEnvOrDefault("BANDAVAIL_BASE_URL", c.Server.BaseURL)
	c.Server.SessionSecret = getEnvOrDefault("SECRET_KEY", c.Server.SessionSecret)
	c.Server.Timezone = getEnvOrDefault("BANDAVAIL_TIMEZONE", c.Server.Timezone)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = ParseList(origins)
	}
	c.Server.UpdateRatePerMinute = getEnvIntOrDefault("UPDATE_RATE_LIMIT", c.Server.UpdateRatePerMinute)
	c.Server.UpdateBurst = getEnvIntOrDefault("UPDATE_RATE_BURST", c.Server.UpdateBurst)
	// Hosted platforms terminate TLS in front of the app.
	if os.Getenv("RENDER") != "" || os.Getenv("HEROKU") != "" {
		c.Server.SecureCookies = true
	}
	c.Server.SecureCookies = getEnvBoolOrDefault("SECURE_COOKIES", c.Server.SecureCookies)

	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvOrDefault("LOG_FORMAT", c.Log.Format)

	c.Metrics.Enabled = getEnvBoolOrDefault("METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Addr = getEnvOrDefault("METRICS_ADDR", c.Metrics.Addr)
}

// OAuthClientJSON returns the OAuth client configuration document, preferring
// the inline value over the file.
func (c *Config) OAuthClientJSON() ([]byte, error) {
	if c.Google.ClientConfig != "" {
		return []byte(c.Google.ClientConfig), nil
	}
	if c.Google.ClientConfigFile != "" {
		data, err := os.ReadFile(c.Google.ClientConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read OAuth client config: %w", err)
		}
		return data, nil
	}
	return nil, errors.New("OAuth client config is not set (CLIENT_CONFIG or CLIENT_CONFIG_FILE)")
}

// Location returns the time zone used to compute "today" for the parser.
func (c *Config) Location() (*time.Location, error) {
	if c.Server.Timezone == "" || c.Server.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Server.Timezone, err)
	}
	return loc, nil
}

// UseSecureCookies reports whether session cookies must carry the Secure flag.
func (c *Config) UseSecureCookies() bool {
	if c.Server.SecureCookies {
		return true
	}
	u, err := url.Parse(c.Server.BaseURL)
	return err == nil && u.Scheme == "https"
}

// RedirectURL is the OAuth callback registered with Google.
func (c *Config) RedirectURL() string {
	return strings.TrimSuffix(c.Server.BaseURL, "/") + "/oauth2callback"
}

// Requirement names a group of settings a command needs.
type Requirement int

const (
	RequireGoogle Requirement = iota
	RequireOpenAI
	RequireServer
)

// Validate checks the settings the given requirements depend on.
func (c *Config) Validate(reqs ...Requirement) error {
	var errs []error
	for _, r := range reqs {
		switch r {
		case RequireGoogle:
			if c.Google.ClientConfig == "" && c.Google.ClientConfigFile == "" {
				errs = append(errs, errors.New("CLIENT_CONFIG or CLIENT_CONFIG_FILE is required"))
			}
			if c.Sheets.SpreadsheetID == "" {
				errs = append(errs, errors.New("SPREADSHEET_ID is required"))
			}
		case RequireOpenAI:
			if c.OpenAI.APIKey == "" {
				errs = append(errs, errors.New("OPENAI_API_KEY is required"))
			}
			if c.OpenAI.Model == "" {
				errs = append(errs, errors.New("OpenAI model must not be empty"))
			}
		case RequireServer:
			if c.Server.Addr == "" {
				errs = append(errs, errors.New("server address must not be empty"))
			}
			if _, err := url.ParseRequestURI(c.Server.BaseURL); err != nil {
				errs = append(errs, fmt.Errorf("invalid base URL %q: %w", c.Server.BaseURL, err))
			}
			if c.Server.UpdateRatePerMinute < 0 {
				errs = append(errs, errors.New("update rate limit must not be negative"))
			}
		}
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
