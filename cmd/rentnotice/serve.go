package main

import (
	"context"
	"fmt"

	"github.com/alnah/go-rentnotice/internal/config"
	"github.com/alnah/go-rentnotice/internal/ephemeral"
	"github.com/alnah/go-rentnotice/internal/server"
	"github.com/alnah/go-rentnotice/internal/signing"
)

// runServe runs the HTTP server and the purge scheduler until ctx ends.
func runServe(ctx context.Context, args []string, env *Environment) error {
	f, rest, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, rest[0])
	}

	cfg, err := loadConfig(f.common, env.Stderr)
	if err != nil {
		return err
	}
	if f.address != "" {
		cfg.Server.Address = f.address
	}
	if f.workers > 0 {
		cfg.Renderer.Workers = f.workers
	}

	logger := newLogger(cfg, f.common, env.Stderr)

	outputs, err := newOutputs(cfg, logger)
	if err != nil {
		return err
	}
	defer outputs.Close()

	gen, err := env.NewGenerator(cfg, logger, outputs)
	if err != nil {
		return err
	}
	defer func() {
		if err := gen.Close(); err != nil {
			logger.WithError(err).Warn("closing generator")
		}
	}()

	rec, err := openEvents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rec.Close(); err != nil {
			logger.WithError(err).Warn("closing event store")
		}
	}()

	if cfg.Purge.Schedule != "" {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		sched, err := ephemeral.NewPurgeScheduler(outputs, cfg.Purge.Schedule, loc, logger)
		if err != nil {
			return fmt.Errorf("%w: %v", config.ErrInvalidValue, err)
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				logger.WithError(err).Warn("purge still running at shutdown")
			}
		}()
	}

	srv, err := server.New(gen, outputs,
		server.WithEvents(rec),
		server.WithSigner(signing.NewLogSigner(logger)),
		server.WithLogger(logger),
		server.WithConfig(cfg.Server),
		server.WithClock(env.Now),
	)
	if err != nil {
		return err
	}

	logger.WithField("address", cfg.Server.Address).Info("rentnotice listening")
	return srv.Run(ctx)
}
