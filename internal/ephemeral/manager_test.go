package ephemeral

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// fakeTimers records armed callbacks so tests fire them on demand.
type fakeTimers struct {
	mu     sync.Mutex
	armed  []*fakeTimer
	delays []time.Duration
}

type fakeTimer struct {
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (ft *fakeTimers) afterFunc(d time.Duration, f func()) Timer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{f: f}
	ft.armed = append(ft.armed, t)
	ft.delays = append(ft.delays, d)
	return t
}

// fireAll runs every timer that was not stopped.
func (ft *fakeTimers) fireAll() {
	ft.mu.Lock()
	timers := append([]*fakeTimer(nil), ft.armed...)
	ft.mu.Unlock()
	for _, t := range timers {
		if !t.stopped {
			t.f()
		}
	}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T) (*Manager, *fakeTimers, *clock) {
	t.Helper()
	ft := &fakeTimers{}
	clk := &clock{now: time.Now()}
	base := t.TempDir()
	m, err := NewManager(filepath.Join(base, "uploaded_files"), filepath.Join(base, "output"),
		WithAfterFunc(ft.afterFunc), WithClock(clk.Now))
	if err != nil {
		t.Fatalf("NewManager() unexpected error: %v", err)
	}
	return m, ft, clk
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("content"), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestNewManager_CreatesHoldingAreas(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestManager(t)
	for _, dir := range []string{m.UploadDir(), m.OutputDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("holding area %s not created: %v", dir, err)
		}
	}
	if m.TTL() != DefaultTTL {
		t.Errorf("TTL() = %s, want %s", m.TTL(), DefaultTTL)
	}

	if _, err := NewManager("", "out"); err == nil {
		t.Error("NewManager() should require both directories")
	}
}

func TestManager_ArmOneTimerPerArtifact(t *testing.T) {
	t.Parallel()

	m, ft, clk := newTestManager(t)
	docx := m.OutputPath("Rent_Increase_ABC123.docx")
	pdf := m.OutputPath("Rent_Increase_ABC123.pdf")
	writeFile(t, docx)
	writeFile(t, pdf)

	expiresAt, err := m.Arm(docx, pdf)
	if err != nil {
		t.Fatalf("Arm() unexpected error: %v", err)
	}
	if want := clk.Now().Add(DefaultTTL); !expiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", expiresAt, want)
	}
	if len(ft.armed) != 2 || m.Pending() != 2 {
		t.Fatalf("armed %d timers, pending %d, want 2 and 2", len(ft.armed), m.Pending())
	}
	for _, d := range ft.delays {
		if d != DefaultTTL {
			t.Errorf("delay = %s, want %s", d, DefaultTTL)
		}
	}

	ft.fireAll()
	if _, err := os.Stat(docx); !errors.Is(err, os.ErrNotExist) {
		t.Error("docx should be deleted when its timer fires")
	}
	if _, err := os.Stat(pdf); !errors.Is(err, os.ErrNotExist) {
		t.Error("pdf should be deleted when its timer fires")
	}
	if m.Pending() != 0 {
		t.Errorf("Pending() = %d after firing, want 0", m.Pending())
	}

	// Firing again on already-deleted files is a no-op.
	ft.fireAll()
}

func TestManager_RearmReplacesTimer(t *testing.T) {
	t.Parallel()

	m, ft, _ := newTestManager(t)
	path := m.OutputPath("Rent_Increase_X.pdf")
	writeFile(t, path)

	if _, err := m.Arm(path); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Arm(path); err != nil {
		t.Fatal(err)
	}
	if !ft.armed[0].stopped {
		t.Error("first timer should be stopped when the artifact is re-armed")
	}
	if m.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", m.Pending())
	}

	// A stale callback must not drop the newer registration nor its file.
	ft.armed[0].f()
	if m.Pending() != 1 {
		t.Errorf("stale timer removed the current entry")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("stale timer deleted the re-armed artifact: %v", err)
	}

	ft.armed[1].f()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("current timer should delete the artifact")
	}
}

func TestManager_Lookup(t *testing.T) {
	t.Parallel()

	m, _, clk := newTestManager(t)
	pdf := m.OutputPath("Rent_Increase_ABC.pdf")
	writeFile(t, pdf)
	if _, err := m.Arm(pdf); err != nil {
		t.Fatal(err)
	}

	f, art, err := m.Lookup("Rent_Increase_ABC.pdf")
	if err != nil {
		t.Fatalf("Lookup() unexpected error: %v", err)
	}
	data, _ := io.ReadAll(f)
	_ = f.Close()
	if string(data) != "content" || art.ContentType != PDFContentType {
		t.Errorf("Lookup() = %q, %+v", data, art)
	}

	tests := []struct {
		name    string
		lookup  string
		wantErr error
	}{
		{"unknown extension", "notes.txt", ErrUnsupportedArtifact},
		{"no extension", "Rent_Increase_ABC", ErrUnsupportedArtifact},
		{"never generated", "Rent_Increase_NOPE.pdf", ErrArtifactNotFound},
		{"traversal", "../output/Rent_Increase_ABC.pdf", ErrArtifactNotFound},
	}
	for _, tt := range tests {
		if _, _, err := m.Lookup(tt.lookup); !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: Lookup(%q) error = %v, want %v", tt.name, tt.lookup, err, tt.wantErr)
		}
	}

	// Six minutes later the file may still exist if the timer is late,
	// but the download must report expiry rather than serve it.
	clk.Advance(6 * time.Minute)
	if _, _, err := m.Lookup("Rent_Increase_ABC.pdf"); !errors.Is(err, ErrArtifactExpired) {
		t.Errorf("Lookup() after expiry error = %v, want ErrArtifactExpired", err)
	}
}

func TestManager_LookupUnregisteredUsesModTime(t *testing.T) {
	t.Parallel()

	m, _, clk := newTestManager(t)
	path := m.OutputPath("Rent_Increase_OLD.docx")
	writeFile(t, path)

	old := clk.Now().Add(-10 * time.Minute)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if _, _, err := m.Lookup("Rent_Increase_OLD.docx"); !errors.Is(err, ErrArtifactExpired) {
		t.Errorf("Lookup() of stale leftover error = %v, want ErrArtifactExpired", err)
	}

	fresh := clk.Now().Add(-time.Minute)
	if err := os.Chtimes(path, fresh, fresh); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	f, art, err := m.Lookup("Rent_Increase_OLD.docx")
	if err != nil {
		t.Fatalf("Lookup() of fresh leftover unexpected error: %v", err)
	}
	_ = f.Close()
	if art.ContentType != DocxContentType {
		t.Errorf("ContentType = %q, want docx", art.ContentType)
	}
}

func TestManager_DeletedAfterLookupStillReadable(t *testing.T) {
	t.Parallel()

	m, ft, _ := newTestManager(t)
	path := m.OutputPath("Rent_Increase_R.pdf")
	writeFile(t, path)
	if _, err := m.Arm(path); err != nil {
		t.Fatal(err)
	}

	f, _, err := m.Lookup("Rent_Increase_R.pdf")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	ft.fireAll()
	if _, _, err := m.Lookup("Rent_Increase_R.pdf"); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("Lookup() after deletion error = %v, want ErrArtifactNotFound", err)
	}
	if runtimeIsWindows() {
		return
	}
	data, err := io.ReadAll(f)
	if err != nil || string(data) != "content" {
		t.Errorf("open handle read = %q, %v", data, err)
	}
}

func TestManager_UploadPath(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestManager(t)
	got, err := m.UploadPath("contract.pdf")
	if err != nil || got != filepath.Join(m.UploadDir(), "contract.pdf") {
		t.Errorf("UploadPath() = %q, %v", got, err)
	}
	for _, bad := range []string{"", "..", "../secret.pdf", `a\b.pdf`} {
		if _, err := m.UploadPath(bad); !errors.Is(err, ErrArtifactNotFound) {
			t.Errorf("UploadPath(%q) error = %v, want ErrArtifactNotFound", bad, err)
		}
	}
}

func TestManager_PurgeAll(t *testing.T) {
	t.Parallel()

	m, ft, _ := newTestManager(t)
	writeFile(t, filepath.Join(m.UploadDir(), "contract.pdf"))
	writeFile(t, m.OutputPath("Rent_Increase_A.docx"))
	writeFile(t, m.OutputPath("Rent_Increase_A.pdf"))
	if err := os.Mkdir(filepath.Join(m.OutputDir(), "keep"), 0o750); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Arm(m.OutputPath("Rent_Increase_A.docx")); err != nil {
		t.Fatal(err)
	}

	removed, err := m.PurgeAll()
	if err != nil {
		t.Fatalf("PurgeAll() unexpected error: %v", err)
	}
	if removed != 3 {
		t.Errorf("PurgeAll() removed %d, want 3", removed)
	}
	if m.Pending() != 0 || !ft.armed[0].stopped {
		t.Error("PurgeAll() should stop and clear pending timers")
	}
	if _, err := os.Stat(filepath.Join(m.OutputDir(), "keep")); err != nil {
		t.Error("PurgeAll() should leave subdirectories")
	}

	// Purging empty areas is not an error.
	if removed, err := m.PurgeAll(); err != nil || removed != 0 {
		t.Errorf("second PurgeAll() = %d, %v", removed, err)
	}
}

func TestManager_Close(t *testing.T) {
	t.Parallel()

	m, ft, _ := newTestManager(t)
	path := m.OutputPath("Rent_Increase_C.pdf")
	writeFile(t, path)
	if _, err := m.Arm(path); err != nil {
		t.Fatal(err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}
	if !ft.armed[0].stopped {
		t.Error("Close() should stop pending timers")
	}
	if _, err := m.Arm(path); !errors.Is(err, ErrManagerClosed) {
		t.Errorf("Arm() after Close error = %v, want ErrManagerClosed", err)
	}
}

func TestContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"a.docx", DocxContentType, false},
		{"A.PDF", PDFContentType, false},
		{"a.doc", "", true},
		{"a", "", true},
	}
	for _, tt := range tests {
		got, err := ContentType(tt.name)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedArtifact) {
				t.Errorf("ContentType(%q) error = %v, want ErrUnsupportedArtifact", tt.name, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ContentType(%q) = %q, %v, want %q", tt.name, got, err, tt.want)
		}
	}
}

func TestManager_RealTimer(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	m, err := NewManager(filepath.Join(base, "in"), filepath.Join(base, "out"), WithTTL(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	path := m.OutputPath("Rent_Increase_T.pdf")
	writeFile(t, path)
	if _, err := m.Arm(path); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("artifact not deleted by the real timer")
}
