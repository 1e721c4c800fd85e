package main

import (
	"context"
	"fmt"
	"time"

	rentnotice "github.com/alnah/go-rentnotice"
	"github.com/alnah/go-rentnotice/internal/pipeline"
)

// runGenerate runs the extraction pipeline on a local contract. Artifacts
// stay in the output directory: the process exits before their deletion
// timers fire.
func runGenerate(ctx context.Context, args []string, env *Environment) error {
	f, rest, err := parseGenerateFlags(args, env.Stderr)
	if err != nil {
		return err
	}

	pdf := f.pdf
	if pdf == "" && len(rest) > 0 {
		pdf, rest = rest[0], rest[1:]
	}
	if pdf == "" {
		return fmt.Errorf("%w: pass --pdf or a contract path", ErrNoInput)
	}
	if len(rest) > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, rest[0])
	}

	cfg, err := loadConfig(f.common, env.Stderr)
	if err != nil {
		return err
	}
	if f.output != "" {
		cfg.Storage.OutputDir = f.output
	}
	if f.style != "" {
		cfg.Style = f.style
	}
	if f.assetPath != "" {
		cfg.AssetPath = f.assetPath
	}
	if f.timeout != "" {
		d, err := time.ParseDuration(f.timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: invalid --timeout %q", ErrUsage, f.timeout)
		}
		cfg.Renderer.Timeout = d
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
	defer gen.Close()

	start := env.Now()
	res, err := gen.GenerateFromPDF(ctx, rentnotice.ExtractionRequest{
		Path:            pdf,
		NewRent:         rentnotice.Amount(f.newRent),
		PreviousRent:    rentnotice.Amount(f.previousRent),
		ApplicationDate: f.date,
		EndDate:         f.endDate,
		FreeText:        f.freeText,
	})
	if err != nil {
		return err
	}

	if f.common.quiet {
		return nil
	}
	for _, w := range res.WarningMessages() {
		fmt.Fprintf(env.Stderr, "warning: %s\n", w)
	}
	fmt.Fprintf(env.Stdout, "Created %s\n", res.DocxPath)
	fmt.Fprintf(env.Stdout, "Created %s\n", res.PDFPath)
	if f.common.verbose {
		fmt.Fprintf(env.Stdout, "Transaction %s, rent %s -> %s (%v)\n",
			res.TransactionID, res.CurrentRent, res.NewRent, env.Now().Sub(start).Round(time.Millisecond))
		if text, err := pipeline.PreviewText(res.HTMLPreview); err == nil && text != "" {
			fmt.Fprintln(env.Stdout, text)
		}
	}
	return nil
}
