package main

import "fmt"

// runPurge empties both holding areas once.
func runPurge(args []string, env *Environment) error {
	f, rest, err := parseCommonOnly("purge", args, env.Stderr, printPurgeUsage)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, rest[0])
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

	removed, err := outputs.PurgeAll()
	if !f.quiet {
		fmt.Fprintf(env.Stdout, "Removed %d files\n", removed)
	}
	return err
}
