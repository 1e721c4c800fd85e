package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	rentnotice "github.com/alnah/go-rentnotice"
	"github.com/alnah/go-rentnotice/internal/ephemeral"
	"github.com/alnah/go-rentnotice/internal/events"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// clock is a settable time source.
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
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// idleTimer never fires; expiry is driven by the clock.
type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

// fakeGenerator returns canned results and keeps the last requests.
type fakeGenerator struct {
	mu         sync.Mutex
	result     *rentnotice.Result
	err        error
	direct     []rentnotice.Request
	extraction []rentnotice.ExtractionRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req rentnotice.Request) (*rentnotice.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.direct = append(f.direct, req)
	return f.result, f.err
}

func (f *fakeGenerator) GenerateFromPDF(_ context.Context, req rentnotice.ExtractionRequest) (*rentnotice.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extraction = append(f.extraction, req)
	return f.result, f.err
}

// fakeRecorder keeps every event.
type fakeRecorder struct {
	mu        sync.Mutex
	generates []events.GenerateEvent
	downloads []events.DownloadEvent
}

func (r *fakeRecorder) RecordGenerate(_ context.Context, e events.GenerateEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generates = append(r.generates, e)
	return nil
}

func (r *fakeRecorder) RecordDownload(_ context.Context, e events.DownloadEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloads = append(r.downloads, e)
	return nil
}

func (r *fakeRecorder) Close() error { return nil }

type testEnv struct {
	srv     *Server
	gen     *fakeGenerator
	rec     *fakeRecorder
	clock   *clock
	outputs *ephemeral.Manager
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	root := t.TempDir()
	clk := &clock{now: testNow}
	outputs, err := ephemeral.NewManager(
		filepath.Join(root, "uploaded_files"),
		filepath.Join(root, "output"),
		ephemeral.WithClock(clk.Now),
		ephemeral.WithAfterFunc(func(time.Duration, func()) ephemeral.Timer { return idleTimer{} }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = outputs.Close() })

	gen := &fakeGenerator{}
	rec := &fakeRecorder{}
	opts = append([]Option{WithEvents(rec), WithClock(clk.Now)}, opts...)
	srv, err := New(gen, outputs, opts...)
	require.NoError(t, err)

	return &testEnv{srv: srv, gen: gen, rec: rec, clock: clk, outputs: outputs}
}

// artifact writes name into the output area and arms its deletion.
func (e *testEnv) artifact(t *testing.T, name, content string) {
	t.Helper()
	path := e.outputs.OutputPath(name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	_, err := e.outputs.Arm(path)
	require.NoError(t, err)
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func sampleResult() *rentnotice.Result {
	return &rentnotice.Result{
		DocxName:      "Rent_Increase_ABC123.docx",
		PDFName:       "Rent_Increase_ABC123.pdf",
		HTMLPreview:   "<p>Hyran</p>",
		TransactionID: "ABC123",
		CurrentRent:   "10 000",
		NewRent:       "12 000",
		CreatedAt:     testNow,
		ExpiresAt:     testNow.Add(5 * time.Minute),
	}
}
