package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix is the prefix of every recognized environment variable.
const EnvPrefix = "RENTNOTICE_"

// knownEnvVars lists valid RENTNOTICE_* environment variables.
// Used to detect typos and warn operators about unknown variables.
var knownEnvVars = map[string]bool{
	"RENTNOTICE_CONFIG":        true,
	"RENTNOTICE_ADDRESS":       true,
	"RENTNOTICE_UPLOAD_DIR":    true,
	"RENTNOTICE_OUTPUT_DIR":    true,
	"RENTNOTICE_TEMPLATE":      true,
	"RENTNOTICE_STYLE":         true,
	"RENTNOTICE_ASSET_PATH":    true,
	"RENTNOTICE_FONT_PATH":     true,
	"RENTNOTICE_LOG_LEVEL":     true,
	"RENTNOTICE_LOG_FORMAT":    true,
	"RENTNOTICE_EVENTS_DRIVER": true,
	"RENTNOTICE_EVENTS_DSN":    true,
	"RENTNOTICE_WORKERS":       true,
	"RENTNOTICE_CONTAINER":     true,
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ConfigPathFromEnv returns RENTNOTICE_CONFIG.
func ConfigPathFromEnv() string {
	return os.Getenv("RENTNOTICE_CONFIG")
}

// ApplyEnv overrides cfg with values from the environment.
// Precedence: CLI flags > environment > config file > defaults
// (CLI flags are applied later by the caller).
func ApplyEnv(cfg *Config) {
	applyEnv(cfg, os.Getenv)
}

func applyEnv(cfg *Config, getenv func(string) string) {
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&cfg.Server.Address, "RENTNOTICE_ADDRESS")
	if port := getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			cfg.Server.Address = ":" + port
		}
	}
	setString(&cfg.Storage.UploadDir, "RENTNOTICE_UPLOAD_DIR")
	setString(&cfg.Storage.OutputDir, "RENTNOTICE_OUTPUT_DIR")
	setString(&cfg.Template.Path, "RENTNOTICE_TEMPLATE")
	setString(&cfg.Style, "RENTNOTICE_STYLE")
	setString(&cfg.AssetPath, "RENTNOTICE_ASSET_PATH")
	setString(&cfg.Fonts.Path, "RENTNOTICE_FONT_PATH")
	setString(&cfg.Log.Level, "RENTNOTICE_LOG_LEVEL")
	setString(&cfg.Log.Format, "RENTNOTICE_LOG_FORMAT")
	setString(&cfg.Events.Driver, "RENTNOTICE_EVENTS_DRIVER")
	setString(&cfg.Events.DSN, "RENTNOTICE_EVENTS_DSN")

	if workers := getenv("RENTNOTICE_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Renderer.Workers = w
		}
	}

	// A key turns translation on; the base URL and model only refine it.
	if key := getenv("OPENAI_API_KEY"); key != "" {
		cfg.Translation.APIKey = key
		cfg.Translation.Enabled = true
	}
	setString(&cfg.Translation.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.Translation.Model, "OPENAI_MODEL")
}

// WarnUnknownEnv writes a warning for each unrecognized RENTNOTICE_* variable.
// Helps catch typos like RENTNOTICE_OUTPUTDIR.
func WarnUnknownEnv(w io.Writer) {
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, EnvPrefix) {
			continue
		}
		name := strings.SplitN(env, "=", 2)[0]
		if !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}
