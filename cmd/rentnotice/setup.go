package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	rentnotice "github.com/alnah/go-rentnotice"
	"github.com/alnah/go-rentnotice/internal/config"
	"github.com/alnah/go-rentnotice/internal/ephemeral"
	"github.com/alnah/go-rentnotice/internal/events"
	"github.com/alnah/go-rentnotice/internal/hints"
	"github.com/alnah/go-rentnotice/internal/logging"
	"github.com/alnah/go-rentnotice/internal/placeholder"
	"github.com/alnah/go-rentnotice/internal/translate"
)

// loadConfig resolves the configuration.
// Precedence: CLI flags > environment > config file > defaults
// (CLI flags are applied by each command afterwards).
func loadConfig(f commonFlags, stderr io.Writer) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfigParse, err)
	}
	if !f.quiet {
		config.WarnUnknownEnv(stderr)
	}

	name := f.config
	if name == "" {
		name = config.ConfigPathFromEnv()
	}

	cfg := config.DefaultConfig()
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, fmt.Errorf("%w%s", err, hints.ForConfigNotFound(configCandidates(name)))
			}
			return nil, err
		}
		cfg = loaded
	}

	config.ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configCandidates lists where a config name is looked up.
func configCandidates(name string) []string {
	paths := []string{name + ".yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "rentnotice", name+".yaml"))
	}
	return paths
}

// newLogger builds the process logger. --quiet and --verbose override
// the configured level.
func newLogger(cfg *config.Config, f commonFlags, w io.Writer) *logrus.Logger {
	level := cfg.Log.Level
	switch {
	case f.verbose:
		level = "debug"
	case f.quiet:
		level = "error"
	}
	return logging.New(logging.Config{Level: level, Format: cfg.Log.Format, Output: w})
}

func newOutputs(cfg *config.Config, logger logrus.FieldLogger) (*ephemeral.Manager, error) {
	m, err := ephemeral.NewManager(cfg.Storage.UploadDir, cfg.Storage.OutputDir,
		ephemeral.WithTTL(cfg.Expiry.TTL),
		ephemeral.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("%w%s", err, hints.ForOutputDirectory())
	}
	return m, nil
}

// newTranslator returns nil when translation is off or cannot be set up.
// A broken translation setup never stops the process: free text then
// renders without its English version.
func newTranslator(cfg *config.Config, logger logrus.FieldLogger) placeholder.Translator {
	if !cfg.Translation.Enabled {
		return nil
	}
	t, err := translate.New(translate.Config{
		APIKey:      cfg.Translation.APIKey,
		BaseURL:     cfg.Translation.BaseURL,
		Model:       cfg.Translation.Model,
		Temperature: cfg.Translation.Temperature,
		MaxTokens:   cfg.Translation.MaxTokens,
		Timeout:     cfg.Translation.Timeout,
	})
	if err != nil {
		logger.WithError(err).Warn("translation disabled" + hints.ForTranslation())
		return nil
	}
	return t
}

// buildGenerator maps the configuration onto generator options.
func buildGenerator(cfg *config.Config, logger logrus.FieldLogger, outputs *ephemeral.Manager) (noticeGenerator, error) {
	rate, err := cfg.FeeRate()
	if err != nil {
		return nil, err
	}

	opts := []rentnotice.Option{
		rentnotice.WithTemplatePath(cfg.Template.Path),
		rentnotice.WithStyle(cfg.Style),
		rentnotice.WithAssetPath(cfg.AssetPath),
		rentnotice.WithFont(cfg.Fonts.Family, cfg.Fonts.Path),
		rentnotice.WithFeeRate(rate),
		rentnotice.WithDateFormat(cfg.Dates.Format),
		rentnotice.WithOutputManager(outputs),
		rentnotice.WithLogger(logger),
		rentnotice.WithTimeout(cfg.Renderer.Timeout),
		rentnotice.WithPoolSize(cfg.Renderer.Workers),
	}
	if t := newTranslator(cfg, logger); t != nil {
		opts = append(opts, rentnotice.WithTranslator(t))
	}

	g, err := rentnotice.NewGenerator(opts...)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// openEvents connects the event store. Writes run in the background so a
// slow store never delays a response.
func openEvents(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (events.Recorder, error) {
	if cfg.Events.Driver == "" {
		return events.Nop{}, nil
	}
	rec, err := events.Open(ctx, cfg.Events.Driver, cfg.Events.DSN)
	if err != nil {
		return nil, fmt.Errorf("events: %w%s", err, hints.ForEvents(cfg.Events.Driver))
	}
	logger.WithField("driver", cfg.Events.Driver).Info("event store connected")
	return events.NewNonBlocking(rec, logger), nil
}
