package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	rentnotice "github.com/alnah/go-rentnotice"
	"github.com/alnah/go-rentnotice/internal/config"
	"github.com/alnah/go-rentnotice/internal/ephemeral"
	"github.com/alnah/go-rentnotice/internal/extract"
)

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeGenerator records requests and returns canned results.
type fakeGenerator struct {
	mu       sync.Mutex
	result   *rentnotice.Result
	record   extract.Record
	err      error
	requests []rentnotice.ExtractionRequest
	extracts []string
	closed   bool
}

func (f *fakeGenerator) Generate(context.Context, rentnotice.Request) (*rentnotice.Result, error) {
	return f.result, f.err
}

func (f *fakeGenerator) GenerateFromPDF(_ context.Context, req rentnotice.ExtractionRequest) (*rentnotice.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeGenerator) Extract(_ context.Context, path string) (extract.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extracts = append(f.extracts, path)
	return f.record, f.err
}

func (f *fakeGenerator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// testEnv bundles an Environment with captured output and the config the
// generator factory received.
type testEnv struct {
	*Environment
	stdout bytes.Buffer
	stderr bytes.Buffer
	gen    *fakeGenerator
	cfg    *config.Config
	dir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	te := &testEnv{
		gen: &fakeGenerator{result: &rentnotice.Result{
			DocxPath:      "out/Rent_Increase_ABC123.docx",
			PDFPath:       "out/Rent_Increase_ABC123.pdf",
			HTMLPreview:   "<p><strong>(1) Hyresvärd / Landlord: Alice</strong></p>\n<p>Ny hyra 12000</p>",
			TransactionID: "ABC123",
			CurrentRent:   "10000",
			NewRent:       "12000",
		}},
		dir: t.TempDir(),
	}
	te.Environment = &Environment{
		Now:    func() time.Time { return testNow },
		Stdout: &te.stdout,
		Stderr: &te.stderr,
		NewGenerator: func(cfg *config.Config, _ logrus.FieldLogger, _ *ephemeral.Manager) (noticeGenerator, error) {
			te.cfg = cfg
			return te.gen, nil
		},
	}
	return te
}

// writeConfig writes a config with holding areas under the env directory
// and returns its path.
func (te *testEnv) writeConfig(t *testing.T, extra string) string {
	t.Helper()

	content := "storage:\n" +
		"  uploadDir: " + filepath.Join(te.dir, "uploads") + "\n" +
		"  outputDir: " + filepath.Join(te.dir, "output") + "\n" +
		"log:\n  level: error\n" + extra
	path := filepath.Join(te.dir, "rentnotice.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}
