package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CLIENT_CONFIG", "CLIENT_CONFIG_FILE", "SPREADSHEET_ID",
		"SHEET_GRID_RANGE", "SHEET_HEADER_RANGE", "SHEET_SCHEDULE_RANGE",
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "OPENAI_TIMEOUT",
		"PORT", "BANDAVAIL_ADDR", "BANDAVAIL_BASE_URL", "SECRET_KEY", "BANDAVAIL_TIMEZONE",
		"CORS_ALLOWED_ORIGINS", "UPDATE_RATE_LIMIT", "UPDATE_RATE_BURST",
		"RENDER", "HEROKU", "SECURE_COOKIES",
		"LOG_LEVEL", "LOG_FORMAT", "METRICS_ENABLED", "METRICS_ADDR", "BANDAVAIL_CONFIG",
	} {
		t.Setenv(key, "")
	}
	// godotenv reads .env from the working directory.
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultBaseURL, cfg.Server.BaseURL)
	assert.Equal(t, DefaultModel, cfg.OpenAI.Model)
	assert.Equal(t, DefaultGridRange, cfg.Sheets.GridRange)
	assert.Equal(t, DefaultHeaderRange, cfg.Sheets.HeaderRange)
	assert.Equal(t, DefaultScheduleRange, cfg.Sheets.ScheduleRange)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, DefaultUpdateRate, cfg.Server.UpdateRatePerMinute)
	assert.False(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.UseSecureCookies())
	assert.Equal(t, "http://localhost:5001/oauth2callback", cfg.RedirectURL())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPREADSHEET_ID", "sheet-123")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_TIMEOUT", "5s")
	t.Setenv("PORT", "8080")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("UPDATE_RATE_LIMIT", "0")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("RENDER", "1")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sheet-123", cfg.Sheets.SpreadsheetID)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, 5*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 0, cfg.Server.UpdateRatePerMinute)
	assert.True(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.UseSecureCookies())
}

func TestLoadAddrBeatsPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("BANDAVAIL_ADDR", "127.0.0.1:9000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "bandavail.yaml",
			content: `
sheets:
  spreadsheet_id: from-file
openai:
  model: gpt-4o
  timeout: 10s
server:
  timezone: Europe/Berlin
  cors_origins: ["https://band.example"]
`,
		},
		{
			name: "toml",
			file: "bandavail.toml",
			content: `
[sheets]
spreadsheet_id = "from-file"

[openai]
model = "gpt-4o"
timeout = "10s"

[server]
timezone = "Europe/Berlin"
cors_origins = ["https://band.example"]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			cfg, err := Load(path)
			require.NoError(t, err)

			assert.Equal(t, "from-file", cfg.Sheets.SpreadsheetID)
			assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
			assert.Equal(t, 10*time.Second, cfg.OpenAI.Timeout)
			assert.Equal(t, []string{"https://band.example"}, cfg.Server.CORSOrigins)
			// Unset keys keep their defaults.
			assert.Equal(t, DefaultGridRange, cfg.Sheets.GridRange)

			loc, err := cfg.Location()
			require.NoError(t, err)
			assert.Equal(t, "Europe/Berlin", loc.String())
		})
	}
}

func TestLoadFileEnvPrecedence(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bandavail.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sheets:\n  spreadsheet_id: from-file\n"), 0o600))
	t.Setenv("BANDAVAIL_CONFIG", path)
	t.Setenv("SPREADSHEET_ID", "from-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Sheets.SpreadsheetID)
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	ini := filepath.Join(dir, "bandavail.ini")
	require.NoError(t, os.WriteFile(ini, []byte("x=1"), 0o600))
	_, err = Load(ini)
	assert.ErrorContains(t, err, "unsupported config file extension")
}

func TestOAuthClientJSON(t *testing.T) {
	cfg := Default()
	_, err := cfg.OAuthClientJSON()
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "client.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"web":{}}`), 0o600))
	cfg.Google.ClientConfigFile = path
	data, err := cfg.OAuthClientJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"web":{}}`, string(data))

	cfg.Google.ClientConfig = `{"installed":{}}`
	data, err = cfg.OAuthClientJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"installed":{}}`, string(data))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		reqs    []Requirement
		wantErr []string
	}{
		{
			name: "nothing required",
		},
		{
			name:    "google settings missing",
			reqs:    []Requirement{RequireGoogle},
			wantErr: []string{"CLIENT_CONFIG", "SPREADSHEET_ID"},
		},
		{
			name: "google settings present",
			mutate: func(c *Config) {
				c.Google.ClientConfig = "{}"
				c.Sheets.SpreadsheetID = "abc"
			},
			reqs: []Requirement{RequireGoogle},
		},
		{
			name:    "openai key missing",
			reqs:    []Requirement{RequireOpenAI},
			wantErr: []string{"OPENAI_API_KEY"},
		},
		{
			name:    "bad base url",
			mutate:  func(c *Config) { c.Server.BaseURL = "not a url" },
			reqs:    []Requirement{RequireServer},
			wantErr: []string{"invalid base URL"},
		},
		{
			name:    "negative rate",
			mutate:  func(c *Config) { c.Server.UpdateRatePerMinute = -1 },
			reqs:    []Requirement{RequireServer},
			wantErr: []string{"must not be negative"},
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Server.Timezone = "Mars/Olympus" },
			wantErr: []string{"invalid timezone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate(tt.reqs...)
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "single", input: "a", want: []string{"a"}},
		{name: "trimmed", input: " a , b ", want: []string{"a", "b"}},
		{name: "only commas", input: " , ,", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseList(tt.input))
		})
	}
}
