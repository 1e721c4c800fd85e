package rentnotice

// Notes:
// - Generator tests run the real resolver, renderer and HTML pipeline with
//   the embedded template; only the browser, the PDF page check and the PDF
//   text reader are replaced
// - Deletion timers are captured, never fired by the clock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-rentnotice/internal/assets"
	"github.com/alnah/go-rentnotice/internal/docx"
	"github.com/alnah/go-rentnotice/internal/ephemeral"
	"github.com/alnah/go-rentnotice/internal/extract"
)

const fakePDF = "%PDF-1.7 fake"

const contractPage = `Hyresavtal
(1) Alice Landlord, 19700101-0000
(2) Bob Tenant, 19800101-0000
Lägenhet med adress Main St 1, 123 45 Stockholm
Transaktion ABC123
Hyran är 10000`

// fakeRenderer implements PDFRenderer and records the printed HTML.
type fakeRenderer struct {
	mu     sync.Mutex
	err    error
	html   []string
	closed bool
}

func (f *fakeRenderer) RenderFromFile(_ context.Context, filePath string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	f.html = append(f.html, string(data))
	return []byte(fakePDF), nil
}

func (f *fakeRenderer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeRenderer) lastHTML() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.html) == 0 {
		return ""
	}
	return f.html[len(f.html)-1]
}

// fakeTranslator implements placeholder.Translator.
type fakeTranslator struct {
	out string
	err error
}

func (f fakeTranslator) Translate(context.Context, string) (string, error) {
	return f.out, f.err
}

type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

// withPDFCheck replaces the page count check of written PDFs.
func withPDFCheck(check func(path string) error) Option {
	return func(c *generatorConfig) {
		c.checkPDF = check
	}
}

// withSourceOpener replaces the PDF text reader.
func withSourceOpener(open sourceOpener) Option {
	return func(c *generatorConfig) {
		c.openSource = open
	}
}

func textSource(pages ...string) sourceOpener {
	return func(string) (extract.PageSource, error) {
		return extract.TextPages(pages), nil
	}
}

var testNow = time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	gen      *Generator
	renderer *fakeRenderer
	outputs  *ephemeral.Manager
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	root := t.TempDir()
	outputs, err := ephemeral.NewManager(
		filepath.Join(root, "uploads"),
		filepath.Join(root, "output"),
		ephemeral.WithClock(func() time.Time { return testNow }),
		ephemeral.WithAfterFunc(func(time.Duration, func()) ephemeral.Timer { return idleTimer{} }),
	)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = outputs.Close() })

	renderer := &fakeRenderer{}
	base := []Option{
		WithOutputManager(outputs),
		WithRenderer(renderer),
		WithClock(func() time.Time { return testNow }),
		withPDFCheck(func(string) error { return nil }),
		withSourceOpener(textSource(contractPage)),
	}
	gen, err := NewGenerator(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	t.Cleanup(func() { _ = gen.Close() })

	return &testEnv{gen: gen, renderer: renderer, outputs: outputs}
}

func (e *testEnv) upload(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.outputs.UploadDir(), name)
	if err := os.WriteFile(path, []byte("%PDF contract"), 0o600); err != nil {
		t.Fatalf("writing upload: %v", err)
	}
	return path
}

func docxText(t *testing.T, path string) string {
	t.Helper()
	doc, err := docx.Open(path)
	if err != nil {
		t.Fatalf("docx.Open(%s): %v", path, err)
	}
	return doc.Text()
}

func directRequest() Request {
	return Request{
		Signees:         []string{"Alice Landlord", "Bob Tenant"},
		Address:         "Main St 1",
		TransactionID:   "ABC123",
		CurrentRent:     "10000",
		NewRent:         "12000",
		ApplicationDate: "2024-01-01",
		FeeRate:         "0.0495",
	}
}

func TestGenerateFromPDF_Scenario(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	upload := env.upload(t, "contract.pdf")

	res, err := env.gen.GenerateFromPDF(context.Background(), ExtractionRequest{
		Filename:        "contract.pdf",
		NewRent:         "12000",
		ApplicationDate: "2024-01-01",
	})
	if err != nil {
		t.Fatalf("GenerateFromPDF: %v", err)
	}

	if res.DocxName != "Rent_Increase_ABC123.docx" || res.PDFName != "Rent_Increase_ABC123.pdf" {
		t.Errorf("artifact names = %q, %q", res.DocxName, res.PDFName)
	}
	if !res.ExpiresAt.Equal(testNow.Add(ephemeral.DefaultTTL)) {
		t.Errorf("ExpiresAt = %v, want %v", res.ExpiresAt, testNow.Add(ephemeral.DefaultTTL))
	}
	if res.CurrentRent != "10000" || res.NewRent != "12000" {
		t.Errorf("rents = %q -> %q, want 10000 -> 12000", res.CurrentRent, res.NewRent)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}

	text := docxText(t, res.DocxPath)
	for _, want := range []string{"Main St 1", "ABC123", "10000", "12000", "594", "tillsvidare", "until further notice", "Alice Landlord", "Bob Tenant"} {
		if !strings.Contains(text, want) {
			t.Errorf("notice text missing %q", want)
		}
	}
	if strings.Contains(text, "[SIGNEE_") {
		t.Error("notice text still contains a party token")
	}

	pdf, err := os.ReadFile(res.PDFPath)
	if err != nil || string(pdf) != fakePDF {
		t.Errorf("PDF artifact = %q, %v", pdf, err)
	}
	if _, err := os.Stat(upload); !os.IsNotExist(err) {
		t.Errorf("uploaded contract still present: %v", err)
	}
	if env.outputs.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2 armed deletions", env.outputs.Pending())
	}
	if !strings.Contains(res.HTMLPreview, "Alice Landlord") || strings.Contains(res.HTMLPreview, "<style") {
		t.Errorf("HTMLPreview = %q", res.HTMLPreview)
	}
}

func TestGenerateFromPDF_PreviousRentOverride(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, withSourceOpener(textSource("(1) Alice, x\nadress Main St 1, y\nTransaktion T9")))
	env.upload(t, "c.pdf")

	res, err := env.gen.GenerateFromPDF(context.Background(), ExtractionRequest{
		Filename:        "c.pdf",
		NewRent:         "9000",
		PreviousRent:    "8500.9",
		ApplicationDate: "2024-01-01",
	})
	if err != nil {
		t.Fatalf("GenerateFromPDF: %v", err)
	}
	if res.CurrentRent != "8500" {
		t.Errorf("CurrentRent = %q, want truncated 8500", res.CurrentRent)
	}
	for _, w := range res.Warnings {
		if strings.Contains(w.Error(), extract.FieldCurrentRent) {
			t.Errorf("overridden rent still reported missing: %v", w)
		}
	}
}

func TestGenerateFromPDF_MissingFieldsDegrade(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, withSourceOpener(textSource("no markers on this page")))
	env.upload(t, "c.pdf")

	res, err := env.gen.GenerateFromPDF(context.Background(), ExtractionRequest{
		Filename:        "c.pdf",
		NewRent:         "12000",
		ApplicationDate: "2024-01-01",
	})
	if err != nil {
		t.Fatalf("GenerateFromPDF: %v", err)
	}

	if res.TransactionID != NotAvailable {
		t.Errorf("TransactionID = %q, want N/A", res.TransactionID)
	}
	if res.DocxName != "Rent_Increase_20240101093000.docx" {
		t.Errorf("DocxName = %q, want timestamp id", res.DocxName)
	}
	found := false
	for _, w := range res.Warnings {
		if errors.Is(w, ErrFieldNotFound) {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want ErrFieldNotFound entries", res.Warnings)
	}
	if strings.Contains(docxText(t, res.DocxPath), "[SIGNEE_") {
		t.Error("zero parties left a party token in the notice")
	}
}

func TestGenerateFromPDF_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unknown upload", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		_, err := env.gen.GenerateFromPDF(context.Background(), ExtractionRequest{
			Filename: "missing.pdf", NewRent: "1", ApplicationDate: "2024-01-01",
		})
		if !errors.Is(err, ErrSourceNotFound) {
			t.Errorf("error = %v, want ErrSourceNotFound", err)
		}
	})

	t.Run("path escape", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		_, err := env.gen.GenerateFromPDF(context.Background(), ExtractionRequest{
			Filename: "../output/x.pdf", NewRent: "1", ApplicationDate: "2024-01-01",
		})
		if !errors.Is(err, ErrSourceNotFound) {
			t.Errorf("error = %v, want ErrSourceNotFound", err)
		}
	})

	t.Run("empty document keeps upload", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, withSourceOpener(textSource()))
		upload := env.upload(t, "c.pdf")
		_, err := env.gen.GenerateFromPDF(context.Background(), ExtractionRequest{
			Filename: "c.pdf", NewRent: "1", ApplicationDate: "2024-01-01",
		})
		if !errors.Is(err, ErrEmptyDocument) {
			t.Errorf("error = %v, want ErrEmptyDocument", err)
		}
		if _, err := os.Stat(upload); err != nil {
			t.Errorf("upload removed after failure: %v", err)
		}
	})

	t.Run("unreadable PDF", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, withSourceOpener(func(string) (extract.PageSource, error) {
			return nil, extract.ErrUnreadablePDF
		}))
		env.upload(t, "c.pdf")
		_, err := env.gen.GenerateFromPDF(context.Background(), ExtractionRequest{
			Filename: "c.pdf", NewRent: "1", ApplicationDate: "2024-01-01",
		})
		if !errors.Is(err, ErrUnreadablePDF) {
			t.Errorf("error = %v, want ErrUnreadablePDF", err)
		}
	})

	t.Run("bad request fields", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.upload(t, "c.pdf")
		_, err := env.gen.GenerateFromPDF(context.Background(), ExtractionRequest{
			Filename: "c.pdf", NewRent: "lots", ApplicationDate: "01/01/2024",
		})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("error = %v, want ErrValidation", err)
		}
		for _, field := range []string{"new_rent", "application_date"} {
			if !strings.Contains(err.Error(), field) {
				t.Errorf("error %q does not name %s", err, field)
			}
		}
	})
}

func TestGenerate_Direct(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	req := directRequest()
	req.EndDate = "2024-06-30"

	res, err := env.gen.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	text := docxText(t, res.DocxPath)
	if !strings.Contains(text, "through 2024-06-30, after which the rent reverts to the previous amount") {
		t.Errorf("notice lacks the English end date clause:\n%s", text)
	}
	if !strings.Contains(env.renderer.lastHTML(), "@font-face") {
		t.Error("printed HTML lacks the font-face rule")
	}
	if !strings.Contains(env.renderer.lastHTML(), `"Times New Roman"`) {
		t.Error("printed HTML does not name the notice typeface")
	}
}

func TestGenerate_FeeRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rate Amount
		want string
	}{
		{"request rate", "0.0495", "594 kr"},
		{"zero rate waives the fee", "0", "0 kr"},
		{"no rate uses the generator rate", "", "594 kr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			req := directRequest()
			req.FeeRate = tt.rate

			res, err := env.gen.Generate(context.Background(), req)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			var found bool
			for _, line := range strings.Split(docxText(t, res.DocxPath), "\n") {
				found = found || strings.TrimSpace(line) == tt.want
			}
			if !found {
				t.Errorf("notice has no fee line %q", tt.want)
			}
		})
	}
}

func TestGenerate_TimestampIDWithoutTransaction(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	req := directRequest()
	req.TransactionID = ""

	res, err := env.gen.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.PDFName != "Rent_Increase_20240101093000.pdf" {
		t.Errorf("PDFName = %q", res.PDFName)
	}
	if res.TransactionID != NotAvailable {
		t.Errorf("TransactionID = %q, want N/A", res.TransactionID)
	}
}

func TestGenerate_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Request)
		field  string
	}{
		{"no signees", func(r *Request) { r.Signees = nil }, "signees"},
		{"blank signee", func(r *Request) { r.Signees = []string{"A", " "} }, "signees[1]"},
		{"no address", func(r *Request) { r.Address = "" }, "address"},
		{"missing new rent", func(r *Request) { r.NewRent = "" }, "new_rent"},
		{"zero new rent", func(r *Request) { r.NewRent = "0" }, "new_rent"},
		{"bad fee", func(r *Request) { r.FeeRate = "abc" }, "percentage_fee"},
		{"fee out of range", func(r *Request) { r.FeeRate = "4.95" }, "fee_rate"},
		{"missing date", func(r *Request) { r.ApplicationDate = "" }, "application_date"},
		{"end before start", func(r *Request) { r.EndDate = "2023-12-31" }, "end_date"},
		{"bad end date", func(r *Request) { r.EndDate = "soon" }, "end_date"},
	}

	env := newTestEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := directRequest()
			tt.modify(&req)
			_, err := env.gen.Generate(context.Background(), req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("error %v carries no *FieldError", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %s", err, tt.field)
			}
		})
	}
}

func TestGenerate_TranslationDegrades(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, WithTranslator(fakeTranslator{err: errors.New("timeout")}))
	req := directRequest()
	req.FreeText = "Hyran höjs på grund av renovering."

	res, err := env.gen.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Warnings) != 1 || !errors.Is(res.Warnings[0], ErrTranslationDegraded) {
		t.Errorf("Warnings = %v, want one ErrTranslationDegraded", res.Warnings)
	}
	if msgs := res.WarningMessages(); len(msgs) != 1 {
		t.Errorf("WarningMessages() = %v", msgs)
	}
	if !strings.Contains(docxText(t, res.DocxPath), req.FreeText) {
		t.Error("source free text missing from notice")
	}
}

func TestGenerate_ConversionFailureRemovesDocx(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.renderer.err = ErrPageLoad

	_, err := env.gen.Generate(context.Background(), directRequest())
	if !errors.Is(err, ErrConversion) {
		t.Fatalf("error = %v, want ErrConversion", err)
	}

	entries, err := os.ReadDir(env.outputs.OutputDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("output area holds %d files after failure, want 0", len(entries))
	}
	if env.outputs.Pending() != 0 {
		t.Errorf("Pending() = %d after failure, want 0", env.outputs.Pending())
	}
}

func TestGenerate_TimeoutHint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.renderer.err = context.DeadlineExceeded

	_, err := env.gen.Generate(context.Background(), directRequest())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want DeadlineExceeded", err)
	}
	if !strings.Contains(err.Error(), "renderer.timeout") {
		t.Errorf("error %q should carry the timeout hint", err)
	}
}

func TestGenerate_PDFCheckFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, withPDFCheck(func(string) error { return ErrPDFGeneration }))

	_, err := env.gen.Generate(context.Background(), directRequest())
	if !errors.Is(err, ErrConversion) {
		t.Fatalf("error = %v, want ErrConversion", err)
	}
	if _, err := os.Stat(filepath.Join(env.outputs.OutputDir(), "Rent_Increase_ABC123.pdf")); !os.IsNotExist(err) {
		t.Errorf("rejected PDF reachable by name: %v", err)
	}
}

func TestGenerate_Closed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	if err := env.gen.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := env.gen.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	if _, err := env.gen.Generate(context.Background(), directRequest()); !errors.Is(err, ErrGeneratorClosed) {
		t.Errorf("error = %v, want ErrGeneratorClosed", err)
	}
	if env.outputs.Pending() != 0 {
		t.Error("closed generator armed deletions")
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	for i := 0; i < 2; i++ {
		if _, err := env.gen.Generate(context.Background(), directRequest()); err != nil {
			t.Fatalf("Generate #%d: %v", i, err)
		}
	}

	env.renderer.mu.Lock()
	defer env.renderer.mu.Unlock()
	if len(env.renderer.html) != 2 || env.renderer.html[0] != env.renderer.html[1] {
		t.Error("same request printed different HTML")
	}
}

func TestNewGenerator_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
	}{
		{"broken template", []Option{WithTemplate([]byte("not a zip"))}},
		{"missing template file", []Option{WithTemplatePath("./missing.docx")}},
		{"unknown template name", []Option{WithTemplatePath("nope")}},
		{"unknown style", []Option{WithStyle("nope")}},
		{"bad date format", []Option{WithDateFormat("[YYYY")}},
		{"unsupported font file", []Option{WithFont("X", "./font.bmp")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := append([]Option{
				WithOutputManager(mustManager(t)),
				WithRenderer(&fakeRenderer{}),
			}, tt.opts...)
			if _, err := NewGenerator(opts...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func mustManager(t *testing.T) *ephemeral.Manager {
	t.Helper()
	root := t.TempDir()
	m, err := ephemeral.NewManager(filepath.Join(root, "in"), filepath.Join(root, "out"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestResolveStyle(t *testing.T) {
	t.Parallel()

	embedded := assets.NewEmbeddedLoader()
	css, err := resolveStyle("", embedded)
	if err != nil || css == "" {
		t.Errorf("resolveStyle(default) = %d bytes, %v", len(css), err)
	}

	inline := "body { color: black; }"
	if got, err := resolveStyle(inline, embedded); err != nil || got != inline {
		t.Errorf("resolveStyle(inline) = %q, %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "custom.css")
	if err := os.WriteFile(path, []byte("p { margin: 0 }"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got, err := resolveStyle(path, embedded); err != nil || got != "p { margin: 0 }" {
		t.Errorf("resolveStyle(path) = %q, %v", got, err)
	}

	_, err = resolveStyle("nope", embedded)
	if !errors.Is(err, assets.ErrStyleNotFound) {
		t.Fatalf("resolveStyle(nope) error = %v, want ErrStyleNotFound", err)
	}
	if !strings.Contains(err.Error(), "available: default, compact") {
		t.Errorf("error lacks style hint: %v", err)
	}
}

func TestNewGenerator_AssetPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "styles"), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "styles", "house.css"), []byte("h1 { color: navy; }"), 0o600); err != nil {
		t.Fatal(err)
	}

	gen, err := NewGenerator(
		WithAssetPath(dir),
		WithStyle("house"),
		WithRenderer(&fakeRenderer{}),
		WithOutputManager(mustManager(t)),
	)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	defer gen.Close()
	if !strings.Contains(gen.css, "color: navy") {
		t.Error("custom style not loaded from asset path")
	}

	if _, err := NewGenerator(WithAssetPath(filepath.Join(dir, "missing")), WithRenderer(&fakeRenderer{})); err == nil {
		t.Error("expected error for missing asset path")
	}
}
