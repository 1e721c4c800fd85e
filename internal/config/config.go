package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alnah/go-rentnotice/internal/dateutil"
	"github.com/alnah/go-rentnotice/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits for operator-provided values.
const (
	MaxAddressLength  = 256
	MaxPathLength     = 4096
	MaxNameLength     = 100  // style, font family, model
	MaxURLLength      = 2048 // Browser limit
	MaxScheduleLength = 100
	MaxDSNLength      = 2048
)

// Config holds all configuration for the notice generator and its server.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Template    TemplateConfig    `yaml:"template"`
	Style       string            `yaml:"style"`     // style name, .css path or inline CSS
	AssetPath   string            `yaml:"assetPath"` // overrides built-in styles/ and templates/
	Fonts       FontConfig        `yaml:"fonts"`
	Fees        FeeConfig         `yaml:"fees"`
	Dates       DateConfig        `yaml:"dates"`
	Expiry      ExpiryConfig      `yaml:"expiry"`
	Purge       PurgeConfig       `yaml:"purge"`
	Renderer    RendererConfig    `yaml:"renderer"`
	Translation TranslationConfig `yaml:"translation"`
	Events      EventsConfig      `yaml:"events"`
	Log         LogConfig         `yaml:"log"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Address     string          `yaml:"address"`
	CORSOrigins []string        `yaml:"corsOrigins"` // empty = allow all
	RateLimit   RateLimitConfig `yaml:"rateLimit"`
	StaticDir   string          `yaml:"staticDir"`   // serves index.html when set
	MaxUploadMB int64           `yaml:"maxUploadMB"` // 0 = default
}

// RateLimitConfig bounds requests per client.
type RateLimitConfig struct {
	PerMinute int `yaml:"perMinute"` // 0 disables limiting
}

// StorageConfig defines the holding areas.
type StorageConfig struct {
	UploadDir string `yaml:"uploadDir"`
	OutputDir string `yaml:"outputDir"`
}

// TemplateConfig selects the notice template.
type TemplateConfig struct {
	Path string `yaml:"path"` // empty = embedded template
}

// FontConfig defines the normalized document typeface.
type FontConfig struct {
	Family string `yaml:"family"`
	Path   string `yaml:"path"` // font file embedded in the PDF; empty = local()
}

// FeeConfig defines the service fee.
type FeeConfig struct {
	Rate string `yaml:"rate"` // decimal string, e.g. "0.0495"
}

// DateConfig defines how dates are written into the notice.
type DateConfig struct {
	Format string `yaml:"format"` // dateutil tokens or preset name
}

// ExpiryConfig defines the artifact lifetime.
type ExpiryConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// PurgeConfig defines the daily bulk purge.
type PurgeConfig struct {
	Schedule string `yaml:"schedule"` // cron expression, empty disables
	Timezone string `yaml:"timezone"`
}

// RendererConfig defines the PDF renderer.
type RendererConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Workers int           `yaml:"workers"` // 0 = auto
}

// TranslationConfig defines the free-text translation client.
type TranslationConfig struct {
	Enabled     bool          `yaml:"enabled"`
	BaseURL     string        `yaml:"baseURL"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"apiKey"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int64         `yaml:"maxTokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// EventsConfig selects the event log store.
type EventsConfig struct {
	Driver string `yaml:"driver"` // "", "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`
}

// LogConfig defines logger output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Defaults.
const (
	DefaultAddress     = ":8000"
	DefaultUploadDir   = "uploaded_files"
	DefaultOutputDir   = "output"
	DefaultFontFamily  = "Times New Roman"
	DefaultFeeRate     = "0.0495"
	DefaultDateFormat  = dateutil.DefaultDateFormat
	DefaultTTL         = 5 * time.Minute
	DefaultSchedule    = "0 0 * * *"
	DefaultTimezone    = "Europe/Stockholm"
	DefaultTimeout     = 30 * time.Second
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 1000
	DefaultTransTO     = 20 * time.Second
	DefaultMaxUploadMB = 20
)

// DefaultConfig returns a configuration that runs without any file or network access
// beyond the local holding areas. Translation and event logging are disabled.
func DefaultConfig() *Config {
	return &Config{
		Server:   ServerConfig{Address: DefaultAddress, MaxUploadMB: DefaultMaxUploadMB},
		Storage:  StorageConfig{UploadDir: DefaultUploadDir, OutputDir: DefaultOutputDir},
		Fonts:    FontConfig{Family: DefaultFontFamily},
		Fees:     FeeConfig{Rate: DefaultFeeRate},
		Dates:    DateConfig{Format: DefaultDateFormat},
		Expiry:   ExpiryConfig{TTL: DefaultTTL},
		Purge:    PurgeConfig{Schedule: DefaultSchedule, Timezone: DefaultTimezone},
		Renderer: RendererConfig{Timeout: DefaultTimeout},
		Translation: TranslationConfig{
			Model:       DefaultModel,
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
			Timeout:     DefaultTransTO,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// FeeRate returns the parsed fee rate.
func (c *Config) FeeRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.Fees.Rate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: fees.rate %q: %v", ErrInvalidValue, c.Fees.Rate, err)
	}
	return rate, nil
}

// DateLayout returns the Go time layout for dates.format.
func (c *Config) DateLayout() (string, error) {
	layout, err := dateutil.Layout(c.Dates.Format)
	if err != nil {
		return "", fmt.Errorf("%w: dates.format: %v", ErrInvalidValue, err)
	}
	return layout, nil
}

// Location returns the purge timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Purge.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Purge.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: purge.timezone: %v", ErrInvalidValue, err)
	}
	return loc, nil
}

// Validate checks field lengths and value ranges.
// Called automatically by LoadConfig, but available for callers
// who construct Config manually.
func (c *Config) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"server.address", c.Server.Address, MaxAddressLength},
		{"server.staticDir", c.Server.StaticDir, MaxPathLength},
		{"storage.uploadDir", c.Storage.UploadDir, MaxPathLength},
		{"storage.outputDir", c.Storage.OutputDir, MaxPathLength},
		{"template.path", c.Template.Path, MaxPathLength},
		{"style", c.Style, MaxPathLength},
		{"assetPath", c.AssetPath, MaxPathLength},
		{"fonts.family", c.Fonts.Family, MaxNameLength},
		{"fonts.path", c.Fonts.Path, MaxPathLength},
		{"purge.schedule", c.Purge.Schedule, MaxScheduleLength},
		{"purge.timezone", c.Purge.Timezone, MaxNameLength},
		{"translation.baseURL", c.Translation.BaseURL, MaxURLLength},
		{"translation.model", c.Translation.Model, MaxNameLength},
		{"events.dsn", c.Events.DSN, MaxDSNLength},
	}
	for _, f := range fields {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}

	if c.Storage.UploadDir == "" || c.Storage.OutputDir == "" {
		return fmt.Errorf("%w: storage.uploadDir and storage.outputDir are required", ErrInvalidValue)
	}
	if c.Fonts.Family == "" {
		return fmt.Errorf("%w: fonts.family is required", ErrInvalidValue)
	}

	rate, err := c.FeeRate()
	if err != nil {
		return err
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: fees.rate must be in [0, 1), got %s", ErrInvalidValue, c.Fees.Rate)
	}
	if _, err := c.DateLayout(); err != nil {
		return err
	}
	if c.Expiry.TTL <= 0 {
		return fmt.Errorf("%w: expiry.ttl must be positive, got %s", ErrInvalidValue, c.Expiry.TTL)
	}
	if c.Renderer.Timeout < 0 {
		return fmt.Errorf("%w: renderer.timeout cannot be negative", ErrInvalidValue)
	}
	if c.Renderer.Workers < 0 {
		return fmt.Errorf("%w: renderer.workers cannot be negative", ErrInvalidValue)
	}
	if c.Server.RateLimit.PerMinute < 0 {
		return fmt.Errorf("%w: server.rateLimit.perMinute cannot be negative", ErrInvalidValue)
	}
	if c.Server.MaxUploadMB < 0 {
		return fmt.Errorf("%w: server.maxUploadMB cannot be negative", ErrInvalidValue)
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	if c.Translation.Enabled {
		if c.Translation.Temperature < 0 || c.Translation.Temperature > 2 {
			return fmt.Errorf("%w: translation.temperature must be between 0 and 2, got %.2f",
				ErrInvalidValue, c.Translation.Temperature)
		}
		if c.Translation.MaxTokens <= 0 {
			return fmt.Errorf("%w: translation.maxTokens must be positive", ErrInvalidValue)
		}
	}

	switch c.Events.Driver {
	case "":
	case "sqlite", "postgres":
		if c.Events.DSN == "" {
			return fmt.Errorf("%w: events.dsn is required for driver %q", ErrInvalidValue, c.Events.Driver)
		}
	default:
		return fmt.Errorf("%w: events.driver %q (must be sqlite or postgres)", ErrInvalidValue, c.Events.Driver)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalidValue, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q (must be text or json)", ErrInvalidValue, c.Log.Format)
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name.
// The file is decoded over DefaultConfig, so omitted fields keep their defaults.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is operator-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/rentnotice/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "rentnotice", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
