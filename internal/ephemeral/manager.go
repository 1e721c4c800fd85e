package ephemeral

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alnah/go-rentnotice/internal/fileutil"
	"github.com/alnah/go-rentnotice/internal/logging"
)

// DefaultTTL is the lifetime of a generated artifact.
const DefaultTTL = 5 * time.Minute

// Content types served for downloadable artifacts.
const (
	DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	PDFContentType  = "application/pdf"
)

// Sentinel errors.
var (
	ErrArtifactNotFound    = errors.New("artifact not found")
	ErrArtifactExpired     = errors.New("artifact has expired")
	ErrUnsupportedArtifact = errors.New("unsupported artifact type")
	ErrManagerClosed       = errors.New("output manager is closed")
)

var contentTypes = map[string]string{
	".docx": DocxContentType,
	".pdf":  PDFContentType,
}

// ContentType returns the MIME type for an artifact name.
func ContentType(name string) (string, error) {
	ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedArtifact, filepath.Ext(name))
	}
	return ct, nil
}

// Timer is the part of *time.Timer the manager needs.
type Timer interface {
	Stop() bool
}

// AfterFunc arms f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Artifact describes a registered output.
type Artifact struct {
	Name        string
	Path        string
	ContentType string
	ExpiresAt   time.Time
}

type entry struct {
	path      string
	expiresAt time.Time
	timer     Timer
}

// Manager arms per-artifact deletions and resolves downloads.
// Safe for concurrent use.
type Manager struct {
	uploadDir string
	outputDir string
	ttl       time.Duration
	now       func() time.Time
	afterFunc AfterFunc
	logger    logrus.FieldLogger

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL sets the artifact lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithAfterFunc replaces time.AfterFunc.
func WithAfterFunc(f AfterFunc) Option {
	return func(m *Manager) {
		if f != nil {
			m.afterFunc = f
		}
	}
}

// WithLogger sets the logger for deletion outcomes.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates both holding areas if needed and returns a Manager for them.
func NewManager(uploadDir, outputDir string, opts ...Option) (*Manager, error) {
	if uploadDir == "" || outputDir == "" {
		return nil, errors.New("upload and output directories are required")
	}
	for _, dir := range []string{uploadDir, outputDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating holding area %s: %w", dir, err)
		}
	}

	m := &Manager{
		uploadDir: uploadDir,
		outputDir: outputDir,
		ttl:       DefaultTTL,
		now:       time.Now,
		afterFunc: realAfterFunc,
		logger:    logging.Discard(),
		entries:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// UploadDir returns the upload holding area.
func (m *Manager) UploadDir() string { return m.uploadDir }

// OutputDir returns the output holding area.
func (m *Manager) OutputDir() string { return m.outputDir }

// TTL returns the artifact lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// OutputPath returns the path of name inside the output area.
func (m *Manager) OutputPath(name string) string {
	return filepath.Join(m.outputDir, name)
}

// UploadPath resolves a stored upload name. Names that are not plain base
// names are rejected so callers cannot reach outside the upload area.
func (m *Manager) UploadPath(name string) (string, error) {
	if !isBaseName(name) {
		return "", fmt.Errorf("%w: %q", ErrArtifactNotFound, name)
	}
	return filepath.Join(m.uploadDir, name), nil
}

// Arm registers each path and arms exactly one deletion for it, firing
// after the TTL. Re-arming a name replaces its previous timer.
// Returns the common expiry time.
func (m *Manager) Arm(paths ...string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return time.Time{}, ErrManagerClosed
	}

	expiresAt := m.now().Add(m.ttl)
	for _, path := range paths {
		name := filepath.Base(path)
		if old, ok := m.entries[name]; ok {
			old.timer.Stop()
		}
		e := &entry{path: path, expiresAt: expiresAt}
		e.timer = m.afterFunc(m.ttl, func() { m.expire(name, e) })
		m.entries[name] = e

		m.logger.WithFields(logrus.Fields{
			logging.FieldArtifact: name,
			"expires_at":          expiresAt.Format(time.RFC3339),
		}).Debug("deletion armed")
	}
	return expiresAt, nil
}

// expire is the timer callback: delete if present, log, never retry.
func (m *Manager) expire(name string, e *entry) {
	m.mu.Lock()
	cur, ok := m.entries[name]
	if ok && cur == e {
		delete(m.entries, name)
	}
	m.mu.Unlock()

	log := m.logger.WithField(logging.FieldArtifact, name)
	// A newer Arm owns the path; its own timer deletes it.
	if ok && cur != e {
		log.Debug("stale deletion skipped, artifact re-armed")
		return
	}

	removed, err := fileutil.RemoveIfExists(e.path)
	switch {
	case err != nil:
		log.WithError(err).Warn("artifact deletion failed")
	case removed:
		log.Info("artifact deleted")
	default:
		log.Debug("artifact already gone")
	}
}

// Lookup resolves a download by artifact name and opens it.
// The open handle keeps the content readable even if a deletion runs
// while the caller is still streaming it.
func (m *Manager) Lookup(name string) (*os.File, Artifact, error) {
	ct, err := ContentType(name)
	if err != nil {
		return nil, Artifact{}, err
	}
	if !isBaseName(name) {
		return nil, Artifact{}, fmt.Errorf("%w: %q", ErrArtifactNotFound, name)
	}

	path := m.OutputPath(name)
	now := m.now()

	m.mu.Lock()
	e, registered := m.entries[name]
	m.mu.Unlock()

	var expiresAt time.Time
	if registered {
		expiresAt = e.expiresAt
		path = e.path
	}

	f, err := os.Open(path) // #nosec G304 -- name is a validated base name
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Artifact{}, fmt.Errorf("%w: %q", ErrArtifactNotFound, name)
		}
		return nil, Artifact{}, fmt.Errorf("opening %s: %w", name, err)
	}

	if !registered {
		// Left over from an earlier process: age it from its modification time.
		info, statErr := f.Stat()
		if statErr != nil || !info.Mode().IsRegular() {
			_ = f.Close()
			return nil, Artifact{}, fmt.Errorf("%w: %q", ErrArtifactNotFound, name)
		}
		expiresAt = info.ModTime().Add(m.ttl)
	}

	if !now.Before(expiresAt) {
		_ = f.Close()
		return nil, Artifact{}, fmt.Errorf("%w: %q", ErrArtifactExpired, name)
	}

	return f, Artifact{Name: name, Path: path, ContentType: ct, ExpiresAt: expiresAt}, nil
}

// Pending returns the number of armed deletions.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// PurgeAll removes every regular file in both holding areas and clears
// the registry. Subdirectories are left alone. Returns the number of files
// removed; individual failures are logged, joined and returned, not retried.
func (m *Manager) PurgeAll() (int, error) {
	m.mu.Lock()
	for name, e := range m.entries {
		e.timer.Stop()
		delete(m.entries, name)
	}
	m.mu.Unlock()

	var (
		removed int
		errs    []error
	)
	for _, dir := range []string{m.uploadDir, m.outputDir} {
		items, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			errs = append(errs, fmt.Errorf("reading %s: %w", dir, err))
			continue
		}
		for _, item := range items {
			if !item.Type().IsRegular() {
				continue
			}
			path := filepath.Join(dir, item.Name())
			ok, err := fileutil.RemoveIfExists(path)
			if err != nil {
				m.logger.WithError(err).WithField(logging.FieldPath, path).Warn("purge deletion failed")
				errs = append(errs, err)
				continue
			}
			if ok {
				removed++
			}
		}
	}

	m.logger.WithField("removed", removed).Info("holding areas purged")
	return removed, errors.Join(errs...)
}

// Close stops every pending timer. Files stay where they are; the next
// purge removes them. Arm fails after Close.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		e.timer.Stop()
	}
	m.entries = make(map[string]*entry)
	m.closed = true
	return nil
}

func isBaseName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, "/\\\x00") && filepath.Base(name) == name
}
