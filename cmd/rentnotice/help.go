package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: rentnotice <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve      Run the HTTP server")
	fmt.Fprintln(w, "  generate   Generate a rent increase notice from a contract PDF")
	fmt.Fprintln(w, "  extract    Print the fields read from a contract PDF")
	fmt.Fprintln(w, "  purge      Empty the upload and output holding areas")
	fmt.Fprintln(w, "  doctor     Check system configuration")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'rentnotice help <command>' for details on a specific command.")
}

func printCommonFlags(w io.Writer) {
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs")
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: rentnotice serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run the HTTP server until interrupted.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "  -a, --address <addr>      Listen address (default from config, :8000)")
	fmt.Fprintln(w, "  -w, --workers <n>         Concurrent PDF renderers (0 = auto)")
	fmt.Fprintln(w)
	printCommonFlags(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  RENTNOTICE_ADDRESS, PORT, RENTNOTICE_UPLOAD_DIR, RENTNOTICE_OUTPUT_DIR,")
	fmt.Fprintln(w, "  RENTNOTICE_EVENTS_DRIVER, RENTNOTICE_EVENTS_DSN, OPENAI_API_KEY")
}

// printGenerateUsage prints usage for the generate command.
func printGenerateUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: rentnotice generate --pdf <contract.pdf> --new-rent <n> --date <YYYY-MM-DD> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate the DOCX and PDF notice for a contract. The contract is left in place.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notice:")
	fmt.Fprintln(w, "      --pdf <path>          Contract PDF (or pass it as the first argument)")
	fmt.Fprintln(w, "      --new-rent <n>        New monthly rent")
	fmt.Fprintln(w, "      --previous-rent <n>   Override the rent read from the contract")
	fmt.Fprintln(w, "      --date <date>         Application date")
	fmt.Fprintln(w, "      --end-date <date>     End date of a fixed term (default: until further notice)")
	fmt.Fprintln(w, "      --free-text <s>       Additional text, translated when translation is enabled")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <dir>        Output directory (default from config)")
	fmt.Fprintln(w, "  -t, --timeout <d>         PDF generation timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "      --style <s>           CSS style name or file path")
	fmt.Fprintln(w, "      --asset-path <dir>    Custom styles/ and templates/ directory")
	fmt.Fprintln(w)
	printCommonFlags(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  rentnotice generate --pdf contract.pdf --new-rent 12000 --date 2024-01-01")
	fmt.Fprintln(w, "  rentnotice generate contract.pdf --new-rent 12000 --date 2024-01-01 --end-date 2024-12-31 -o notices/")
}

// printExtractUsage prints usage for the extract command.
func printExtractUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: rentnotice extract <contract.pdf> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the parties, address, transaction id and current rent read")
	fmt.Fprintln(w, "from a contract as YAML. Fields not found are printed as N/A.")
	fmt.Fprintln(w)
	printCommonFlags(w)
}

// printPurgeUsage prints usage for the purge command.
func printPurgeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: rentnotice purge [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Remove every file in the upload and output holding areas once.")
	fmt.Fprintln(w, "The server runs the same purge on purge.schedule.")
	fmt.Fprintln(w)
	printCommonFlags(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: rentnotice doctor [--json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check Chrome, holding areas, fonts and translation settings.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --json                Machine-readable output")
}

// runHelp prints help for a topic and returns the exit code.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "serve":
		printServeUsage(env.Stdout)
	case "generate":
		printGenerateUsage(env.Stdout)
	case "extract":
		printExtractUsage(env.Stdout)
	case "purge":
		printPurgeUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: rentnotice version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		printUsage(env.Stdout)
	default:
		fmt.Fprintf(env.Stderr, "unknown help topic: %s\n\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
