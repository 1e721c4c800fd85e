package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// serveFlags holds flags for the serve command.
type serveFlags struct {
	common  commonFlags
	address string
	workers int
}

// generateFlags holds flags for the generate command.
type generateFlags struct {
	common       commonFlags
	pdf          string
	newRent      string
	previousRent string
	date         string
	endDate      string
	freeText     string
	output       string
	timeout      string
	style        string
	assetPath    string
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs")
}

func newFlagSet(name string, w io.Writer, usage func(io.Writer)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() { usage(w) }
	return fs
}

// parse runs fs over args. Parse failures wrap ErrUsage; a help request
// returns flag.ErrHelp unchanged.
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return fs.Args(), nil
}

// parseServeFlags parses serve command flags and returns positional args.
func parseServeFlags(args []string, w io.Writer) (*serveFlags, []string, error) {
	f := &serveFlags{}
	fs := newFlagSet("serve", w, printServeUsage)
	fs.StringVarP(&f.address, "address", "a", "", "listen address (e.g., :8000)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "concurrent PDF renderers (0 = auto)")
	addCommonFlags(fs, &f.common)

	rest, err := parse(fs, args)
	if err != nil {
		return nil, nil, err
	}
	if f.workers < 0 {
		return nil, nil, fmt.Errorf("%w: --workers must be >= 0, got %d", ErrUsage, f.workers)
	}
	return f, rest, nil
}

// parseGenerateFlags parses generate command flags and returns positional args.
func parseGenerateFlags(args []string, w io.Writer) (*generateFlags, []string, error) {
	f := &generateFlags{}
	fs := newFlagSet("generate", w, printGenerateUsage)
	fs.StringVar(&f.pdf, "pdf", "", "contract PDF to read")
	fs.StringVar(&f.newRent, "new-rent", "", "new monthly rent")
	fs.StringVar(&f.previousRent, "previous-rent", "", "override the rent read from the contract")
	fs.StringVar(&f.date, "date", "", "application date (YYYY-MM-DD)")
	fs.StringVar(&f.endDate, "end-date", "", "end date of a fixed term (YYYY-MM-DD)")
	fs.StringVar(&f.freeText, "free-text", "", "additional text written to the notice")
	fs.StringVarP(&f.output, "output", "o", "", "output directory")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "PDF generation timeout (e.g., 30s, 2m)")
	fs.StringVar(&f.style, "style", "", "CSS style name or file path")
	fs.StringVar(&f.assetPath, "asset-path", "", "custom asset directory")
	addCommonFlags(fs, &f.common)

	rest, err := parse(fs, args)
	if err != nil {
		return nil, nil, err
	}
	return f, rest, nil
}

// parseCommonOnly parses commands that take only common flags.
func parseCommonOnly(name string, args []string, w io.Writer, usage func(io.Writer)) (*commonFlags, []string, error) {
	f := &commonFlags{}
	fs := newFlagSet(name, w, usage)
	addCommonFlags(fs, f)

	rest, err := parse(fs, args)
	if err != nil {
		return nil, nil, err
	}
	return f, rest, nil
}
