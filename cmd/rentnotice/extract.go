package main

import (
	"context"
	"fmt"

	"github.com/alnah/go-rentnotice/internal/yamlutil"
)

// runExtract prints the fields read from a contract as YAML.
func runExtract(ctx context.Context, args []string, env *Environment) error {
	f, rest, err := parseCommonOnly("extract", args, env.Stderr, printExtractUsage)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return fmt.Errorf("%w: pass a contract path", ErrNoInput)
	}
	if len(rest) > 1 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, rest[1])
	}

	cfg, err := loadConfig(*f, env.Stderr)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, *f, env.Stderr)
	outputs, err := newOutputs(cfg, logger)
	if err != nil {
		return err
	}
	defer outputs.Close()

	gen, err := env.NewGenerator(cfg, logger, outputs)
	if err != nil {
		return err
	}
	defer gen.Close()

	record, err := gen.Extract(ctx, rest[0])
	if err != nil {
		return err
	}
	return yamlutil.Encode(env.Stdout, record)
}
