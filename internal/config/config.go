// Package config provides configuration types and defaults for barangay.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/zjrosen/barangay/internal/log"
)

// Draft backends.
const (
	DraftBackendSQLite = "sqlite"
	DraftBackendRedis  = "redis"
	DraftBackendMemory = "memory"
)

// Config holds all configuration options for barangay.
type Config struct {
	API          APIConfig          `mapstructure:"api"`
	Registration RegistrationConfig `mapstructure:"registration"`
	Draft        DraftConfig        `mapstructure:"draft"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
	UI           UIConfig           `mapstructure:"ui"`
	MockAPI      MockAPIConfig      `mapstructure:"mock_api"`
	Flags        map[string]bool    `mapstructure:"flags"`
	LogLevel     string             `mapstructure:"log_level"` // debug, info, warn, error
}

// APIConfig configures the barangay REST API client.
type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Token          string        `mapstructure:"token"` // sent as a bearer token when set
	Timeout        time.Duration `mapstructure:"timeout"`
	RetryCount     int           `mapstructure:"retry_count"`
	SearchCacheTTL time.Duration `mapstructure:"search_cache_ttl"` // 0 disables the search cache
}

// RegistrationConfig holds the timing and validation knobs of the registration form.
type RegistrationConfig struct {
	// SearchDebounce is the quiet period before a typed query is sent.
	SearchDebounce time.Duration `mapstructure:"search_debounce"`

	// CheckSettle is the quiet period after a selection before the
	// registration check runs.
	CheckSettle time.Duration `mapstructure:"check_settle"`

	// BlurGrace delays closing the results dropdown on blur.
	BlurGrace time.Duration `mapstructure:"blur_grace"`

	// ToastDuration is how long notifications stay on screen.
	ToastDuration time.Duration `mapstructure:"toast_duration"`

	// ValidateTermDates rejects submissions whose term start is after term end.
	ValidateTermDates bool `mapstructure:"validate_term_dates"`
}

// DraftConfig selects and configures the draft store.
type DraftConfig struct {
	Backend       string        `mapstructure:"backend"` // sqlite (default), redis, memory
	SQLitePath    string        `mapstructure:"sqlite_path"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"` // redis only, 0 keeps drafts forever
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/barangay/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate"`
}

// UIConfig holds user interface options.
type UIConfig struct {
	MarkdownStyle string `mapstructure:"markdown_style"` // "dark" (default) or "light"
}

// MockAPIConfig configures the bundled development API server.
type MockAPIConfig struct {
	Addr string `mapstructure:"addr"`
}

// DefaultTracesFilePath returns ~/.config/barangay/traces/traces.jsonl or
// an empty string if the home dir is unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "barangay", "traces", "traces.jsonl")
}

// DefaultDraftPath returns ~/.barangay/drafts.db, falling back to the
// working directory.
func DefaultDraftPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".barangay", "drafts.db")
	}
	return filepath.Join(home, ".barangay", "drafts.db")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8080",
			Timeout:        10 * time.Second,
			RetryCount:     3,
			SearchCacheTTL: 30 * time.Second,
		},
		Registration: RegistrationConfig{
			SearchDebounce:    500 * time.Millisecond,
			CheckSettle:       1000 * time.Millisecond,
			BlurGrace:         150 * time.Millisecond,
			ToastDuration:     3 * time.Second,
			ValidateTermDates: true,
		},
		Draft: DraftConfig{
			Backend:    DraftBackendSQLite,
			SQLitePath: DefaultDraftPath(),
			RedisAddr:  "localhost:6379",
		},
		Tracing: TracingConfig{
			Exporter:     "file",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		UI: UIConfig{
			MarkdownStyle: "dark",
		},
		MockAPI: MockAPIConfig{
			Addr: ":8080",
		},
		LogLevel: "debug",
	}
}

// SetDefaults registers every default on v so environment variables and
// partial config files fall back correctly.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.token", d.API.Token)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.retry_count", d.API.RetryCount)
	v.SetDefault("api.search_cache_ttl", d.API.SearchCacheTTL)
	v.SetDefault("registration.search_debounce", d.Registration.SearchDebounce)
	v.SetDefault("registration.check_settle", d.Registration.CheckSettle)
	v.SetDefault("registration.blur_grace", d.Registration.BlurGrace)
	v.SetDefault("registration.toast_duration", d.Registration.ToastDuration)
	v.SetDefault("registration.validate_term_dates", d.Registration.ValidateTermDates)
	v.SetDefault("draft.backend", d.Draft.Backend)
	v.SetDefault("draft.sqlite_path", d.Draft.SQLitePath)
	v.SetDefault("draft.redis_addr", d.Draft.RedisAddr)
	v.SetDefault("draft.redis_password", d.Draft.RedisPassword)
	v.SetDefault("draft.redis_db", d.Draft.RedisDB)
	v.SetDefault("draft.ttl", d.Draft.TTL)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("ui.markdown_style", d.UI.MarkdownStyle)
	v.SetDefault("mock_api.addr", d.MockAPI.Addr)
	v.SetDefault("log_level", d.LogLevel)
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the whole configuration.
func Validate(cfg Config) error {
	if err := ValidateAPI(cfg.API); err != nil {
		return err
	}
	if err := ValidateRegistration(cfg.Registration); err != nil {
		return err
	}
	if err := ValidateDraft(cfg.Draft); err != nil {
		return err
	}
	return ValidateTracing(cfg.Tracing)
}

// ValidateAPI checks API client configuration for errors.
func ValidateAPI(api APIConfig) error {
	if api.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	u, err := url.Parse(api.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", api.BaseURL)
	}
	if api.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative, got %v", api.Timeout)
	}
	if api.RetryCount < 0 {
		return fmt.Errorf("api.retry_count must not be negative, got %d", api.RetryCount)
	}
	return nil
}

// ValidateRegistration checks the form timings.
func ValidateRegistration(r RegistrationConfig) error {
	if r.SearchDebounce < 0 {
		return fmt.Errorf("registration.search_debounce must not be negative, got %v", r.SearchDebounce)
	}
	if r.CheckSettle < 0 {
		return fmt.Errorf("registration.check_settle must not be negative, got %v", r.CheckSettle)
	}
	if r.BlurGrace < 0 {
		return fmt.Errorf("registration.blur_grace must not be negative, got %v", r.BlurGrace)
	}
	return nil
}

// ValidateDraft checks draft store configuration for errors.
func ValidateDraft(d DraftConfig) error {
	switch d.Backend {
	case DraftBackendSQLite:
		if d.SQLitePath == "" {
			return fmt.Errorf("draft.sqlite_path is required when backend is %q", DraftBackendSQLite)
		}
	case DraftBackendRedis:
		if d.RedisAddr == "" {
			return fmt.Errorf("draft.redis_addr is required when backend is %q", DraftBackendRedis)
		}
	case DraftBackendMemory:
	default:
		return fmt.Errorf("draft.backend must be \"sqlite\", \"redis\", or \"memory\", got %q", d.Backend)
	}
	if d.TTL < 0 {
		return fmt.Errorf("draft.ttl must not be negative, got %v", d.TTL)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled && tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}

	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Barangay Configuration

# Barangay REST API
api:
  base_url: http://localhost:8080
  # token: ""              # Bearer token (or set BARANGAY_API_TOKEN)
  timeout: 10s
  retry_count: 3
  search_cache_ttl: 30s    # 0 disables caching of resident searches

# Official registration form
registration:
  search_debounce: 500ms   # Quiet period before a resident search is sent
  check_settle: 1s         # Quiet period after selecting a resident before the registration check
  blur_grace: 150ms        # Delay before the results dropdown closes on blur
  toast_duration: 3s
  validate_term_dates: true

# Draft persistence for the "new official" form
draft:
  backend: sqlite          # sqlite (default), redis, or memory
  # sqlite_path: ~/.barangay/drafts.db
  # redis_addr: localhost:6379
  # redis_password: ""
  # redis_db: 0
  # ttl: 0s                # Redis only; 0 keeps the draft until cleared

# UI settings
ui:
  markdown_style: dark     # Help rendering style: "dark" (default) or "light"

# Distributed tracing
# tracing:
#   enabled: false
#   exporter: file                 # none, file, stdout, otlp (default: file)
#   file_path: ~/.config/barangay/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0

# Minimum level written to .barangay/debug.log when --debug is set
log_level: debug

# Feature flags
# flags:
#   edit-drafts: true      # ctrl+d in edit mode saves to the edit-draft slot
#   draft-indicator: true  # officials list shows when a new-official draft is waiting
#   mouse: true            # click to pick search results and list rows

# Development API server (barangay mock-api)
mock_api:
  addr: ":8080"
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
