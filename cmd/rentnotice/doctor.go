package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-rentnotice/internal/config"
)

// Doctor statuses, from best to worst.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

type doctorResult struct {
	Status      string          `json:"status"`
	Browser     browserInfo     `json:"chrome"`
	Env         envInfo         `json:"environment"`
	Storage     storageInfo     `json:"storage"`
	Translation translationInfo `json:"translation"`
	Warnings    []string        `json:"warnings,omitempty"`
	Errors      []string        `json:"errors,omitempty"`
}

type browserInfo struct {
	Path      string `json:"path,omitempty"`
	Version   string `json:"version,omitempty"`
	NoSandbox bool   `json:"no_sandbox"`
}

type envInfo struct {
	OS         string `json:"os"`
	Arch       string `json:"arch"`
	Container  string `json:"container,omitempty"` // detection signal, empty outside containers
	BrowserBin string `json:"rod_browser_bin,omitempty"`
}

type storageInfo struct {
	UploadDir      string `json:"upload_dir"`
	UploadWritable bool   `json:"upload_writable"`
	OutputDir      string `json:"output_dir"`
	OutputWritable bool   `json:"output_writable"`
	FontPath       string `json:"font_path,omitempty"`
	EventsDriver   string `json:"events_driver,omitempty"`
}

// translationInfo never carries the key itself.
type translationInfo struct {
	Enabled bool   `json:"enabled"`
	Model   string `json:"model,omitempty"`
	HasKey  bool   `json:"has_key"`
}

func (r *doctorResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *doctorResult) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// runDoctorCmd reports whether this host can serve notices.
// It exits 1 when a check failed and 2 on bad flags; warnings alone exit 0.
func runDoctorCmd(args []string, env *Environment) int {
	var (
		common commonFlags
		asJSON bool
	)
	fs := newFlagSet("doctor", env.Stderr, printDoctorUsage)
	fs.BoolVar(&asJSON, "json", false, "machine-readable output")
	addCommonFlags(fs, &common)
	if _, err := parse(fs, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return ExitUsage
	}

	// Config warnings belong in the report, not on stderr.
	common.quiet = true
	result := runDoctor(common, env)

	if asJSON {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == statusErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

func runDoctor(common commonFlags, env *Environment) *doctorResult {
	r := &doctorResult{
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			Container:  containerSignal(),
			BrowserBin: os.Getenv("ROD_BROWSER_BIN"),
		},
	}

	checkBrowser(r)

	cfg, err := loadConfig(common, env.Stderr)
	if err != nil {
		r.fail("config: %v", err)
	} else {
		checkStorage(r, cfg)
		checkTranslation(r, cfg)
	}

	switch {
	case len(r.Errors) > 0:
		r.Status = statusErrors
	case len(r.Warnings) > 0:
		r.Status = statusWarnings
	default:
		r.Status = statusReady
	}
	return r
}

// checkBrowser finds the Chrome binary go-rod will launch, the same way the
// renderer does, and asks it for its version.
func checkBrowser(r *doctorResult) {
	r.Browser.NoSandbox = os.Getenv("ROD_NO_SANDBOX") == "1"
	if r.Env.Container != "" && !r.Browser.NoSandbox {
		r.warn("running in a container (%s) with the Chrome sandbox on; set ROD_NO_SANDBOX=1", r.Env.Container)
	}

	bin := r.Env.BrowserBin
	if bin == "" {
		found, ok := launcher.LookPath()
		if !ok {
			r.fail("no Chrome/Chromium on PATH; install one or set ROD_BROWSER_BIN")
			return
		}
		bin = found
	}
	if _, err := os.Stat(bin); err != nil {
		r.fail("browser binary %s: %v", bin, err)
		return
	}
	r.Browser.Path = bin

	out, err := exec.Command(bin, "--version").Output() // #nosec G204 -- path from rod launcher or operator env
	if err != nil {
		r.warn("%s --version: %v", bin, err)
		return
	}
	r.Browser.Version = strings.TrimSpace(string(out))
}

// containerSignal names the first container marker found, or "".
func containerSignal() string {
	if os.Getenv("RENTNOTICE_CONTAINER") == "1" {
		return "RENTNOTICE_CONTAINER=1"
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "/.dockerenv"
	}
	if v := os.Getenv("container"); v != "" {
		return "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "kubernetes"
	}
	return ""
}

// checkStorage verifies the holding areas accept files and the font file
// is readable. Missing holding areas are fine: the server creates them.
func checkStorage(r *doctorResult, cfg *config.Config) {
	r.Storage = storageInfo{
		UploadDir:      cfg.Storage.UploadDir,
		UploadWritable: dirWritable(cfg.Storage.UploadDir),
		OutputDir:      cfg.Storage.OutputDir,
		OutputWritable: dirWritable(cfg.Storage.OutputDir),
		FontPath:       cfg.Fonts.Path,
		EventsDriver:   cfg.Events.Driver,
	}
	if !r.Storage.UploadWritable {
		r.fail("upload directory %s is not writable", cfg.Storage.UploadDir)
	}
	if !r.Storage.OutputWritable {
		r.fail("output directory %s is not writable", cfg.Storage.OutputDir)
	}
	if cfg.Fonts.Path != "" {
		if _, err := os.Stat(cfg.Fonts.Path); err != nil {
			r.fail("font file: %v", err)
		}
	}
}

// dirWritable reports whether a file can be created in dir, or in its nearest
// existing parent when dir does not exist yet.
func dirWritable(dir string) bool {
	for {
		if info, err := os.Stat(dir); err == nil {
			if !info.IsDir() {
				return false
			}
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}

	f, err := os.CreateTemp(dir, ".rentnotice-doctor-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}

func checkTranslation(r *doctorResult, cfg *config.Config) {
	r.Translation = translationInfo{
		Enabled: cfg.Translation.Enabled,
		Model:   cfg.Translation.Model,
		HasKey:  cfg.Translation.APIKey != "",
	}
	if r.Translation.Enabled && !r.Translation.HasKey {
		r.warn("translation enabled without an API key; set OPENAI_API_KEY")
	}
}

func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintf(w, "rentnotice doctor (%s/%s)\n", r.Env.OS, r.Env.Arch)

	section(w, "Chrome/Chromium")
	if r.Browser.Path == "" {
		printCheck(w, false, "not found")
	} else {
		printCheck(w, true, r.Browser.Path)
		if r.Browser.Version != "" {
			printCheck(w, true, r.Browser.Version)
		}
		printCheck(w, true, fmt.Sprintf("sandbox disabled: %t", r.Browser.NoSandbox))
	}
	if r.Env.Container != "" {
		printCheck(w, true, "container: "+r.Env.Container)
	}

	section(w, "Storage")
	printCheck(w, r.Storage.UploadWritable, "uploads: "+r.Storage.UploadDir)
	printCheck(w, r.Storage.OutputWritable, "outputs: "+r.Storage.OutputDir)
	if r.Storage.EventsDriver != "" {
		printCheck(w, true, "events: "+r.Storage.EventsDriver)
	}

	section(w, "Translation")
	switch {
	case !r.Translation.Enabled:
		printCheck(w, true, "Disabled")
	case r.Translation.HasKey:
		printCheck(w, true, "Enabled, model "+r.Translation.Model)
	default:
		fmt.Fprintln(w, "  [WARN] Enabled without API key")
	}

	if len(r.Warnings) > 0 {
		section(w, "Warnings")
		for _, msg := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", msg)
		}
	}
	if len(r.Errors) > 0 {
		section(w, "Errors")
		for _, msg := range r.Errors {
			printCheck(w, false, msg)
		}
	}

	fmt.Fprintf(w, "\nStatus: %s\n", r.Status)
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", title)
}

func printCheck(w io.Writer, ok bool, label string) {
	mark := "OK"
	if !ok {
		mark = "ERROR"
	}
	fmt.Fprintf(w, "  [%s] %s\n", mark, label)
}
