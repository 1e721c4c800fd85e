package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	rentnotice "github.com/alnah/go-rentnotice"
	"github.com/alnah/go-rentnotice/internal/config"
	"github.com/alnah/go-rentnotice/internal/ephemeral"
	"github.com/alnah/go-rentnotice/internal/extract"
	"github.com/alnah/go-rentnotice/internal/server"
)

// noticeGenerator is what the commands need from *rentnotice.Generator.
type noticeGenerator interface {
	server.Generator
	Extract(ctx context.Context, path string) (extract.Record, error)
	Close() error
}

var _ noticeGenerator = (*rentnotice.Generator)(nil)

// generatorFactory builds the generator for a loaded configuration.
type generatorFactory func(cfg *config.Config, logger logrus.FieldLogger, outputs *ephemeral.Manager) (noticeGenerator, error)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now          func() time.Time
	Stdout       io.Writer
	Stderr       io.Writer
	NewGenerator generatorFactory
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:          time.Now,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		NewGenerator: buildGenerator,
	}
}
