package rentnotice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/alnah/go-rentnotice/internal/assets"
	"github.com/alnah/go-rentnotice/internal/dateutil"
	"github.com/alnah/go-rentnotice/internal/docx"
	"github.com/alnah/go-rentnotice/internal/ephemeral"
	"github.com/alnah/go-rentnotice/internal/extract"
	"github.com/alnah/go-rentnotice/internal/fileutil"
	"github.com/alnah/go-rentnotice/internal/hints"
	"github.com/alnah/go-rentnotice/internal/logging"
	"github.com/alnah/go-rentnotice/internal/pipeline"
	"github.com/alnah/go-rentnotice/internal/placeholder"
	"github.com/alnah/go-rentnotice/internal/render"
)

// Default holding areas used when no output manager is supplied.
const (
	DefaultUploadDir = "uploaded_files"
	DefaultOutputDir = "output"
)

// artifactPerm is the mode of written artifacts.
const artifactPerm = 0o640

// sourceOpener opens the page text of a contract PDF.
type sourceOpener func(path string) (extract.PageSource, error)

// Compile-time interface implementation checks.
var (
	_ pipeline.MarkdownConverter    = (*pipeline.DocxMarkdown)(nil)
	_ pipeline.MarkdownPreprocessor = (*pipeline.CommonMarkPreprocessor)(nil)
	_ pipeline.HTMLConverter        = (*pipeline.GoldmarkConverter)(nil)
	_ pipeline.CSSInjector          = (*pipeline.CSSInjection)(nil)
)

// Generator turns contract data into a rent increase notice: a DOCX built
// from the template and its PDF rendering, both deleted after the TTL.
// Create with NewGenerator, call Generate or GenerateFromPDF, and Close when done.
// A Generator is safe for concurrent use.
type Generator struct {
	cfg           generatorConfig
	resolver      *placeholder.Resolver
	renderer      *render.Renderer
	markdown      pipeline.MarkdownConverter
	preprocessor  pipeline.MarkdownPreprocessor
	htmlConverter pipeline.HTMLConverter
	cssInjector   pipeline.CSSInjector
	css           string
	pool          *RendererPool
	outputs       *ephemeral.Manager
	ownsOutputs   bool
	logger        logrus.FieldLogger

	mu     sync.RWMutex
	closed bool
}

// NewGenerator creates a Generator. Template, style and font problems are
// reported here rather than on the first request.
func NewGenerator(opts ...Option) (*Generator, error) {
	cfg := generatorConfig{
		fontFamily: DefaultFont,
		feeRate:    placeholder.DefaultFeeRate,
		timeout:    DefaultTimeout,
		now:        time.Now,
		logger:     logging.Discard(),
		checkPDF:   checkPageCount,
		openSource: extract.OpenPDF,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	loader, err := assets.NewAssetResolver(cfg.assetPath)
	if err != nil {
		return nil, fmt.Errorf("asset path %q: %w", cfg.assetPath, err)
	}
	if loader.HasCustomLoader() {
		cfg.logger.WithField(logging.FieldPath, cfg.assetPath).Debug("custom assets enabled")
	}

	template, err := loadTemplate(cfg, loader)
	if err != nil {
		return nil, err
	}
	renderer, err := render.New(template, cfg.fontFamily)
	if err != nil {
		return nil, err
	}

	layout, err := dateutil.Layout(cfg.dateFormat)
	if err != nil {
		return nil, fmt.Errorf("date format: %w", err)
	}

	style, err := resolveStyle(cfg.style, loader)
	if err != nil {
		return nil, err
	}
	fontCSS, err := buildFontFaceCSS(cfg.fontFamily, cfg.fontPath)
	if err != nil {
		return nil, fmt.Errorf("%w%s", err, hints.ForFontFile())
	}

	g := &Generator{
		cfg: cfg,
		resolver: placeholder.NewResolver(
			placeholder.WithTranslator(cfg.translator),
			placeholder.WithFeeRate(cfg.feeRate),
			placeholder.WithDateLayout(layout),
			placeholder.WithClock(cfg.now),
			placeholder.WithLogger(cfg.logger),
		),
		renderer:      renderer,
		markdown:      &pipeline.DocxMarkdown{},
		preprocessor:  &pipeline.CommonMarkPreprocessor{},
		htmlConverter: pipeline.NewGoldmarkConverter(),
		cssInjector:   &pipeline.CSSInjection{},
		// Style first, typeface last so the notice font always wins.
		css:     style + buildPageCSS() + fontCSS,
		outputs: cfg.outputs,
		logger:  cfg.logger,
	}

	if g.outputs == nil {
		g.outputs, err = ephemeral.NewManager(DefaultUploadDir, DefaultOutputDir,
			ephemeral.WithClock(cfg.now),
			ephemeral.WithLogger(cfg.logger),
		)
		if err != nil {
			return nil, err
		}
		g.ownsOutputs = true
	}

	if cfg.renderer != nil {
		g.pool = NewRendererPool(1, func() PDFRenderer { return cfg.renderer })
	} else {
		timeout := cfg.timeout
		g.pool = NewRendererPool(ResolvePoolSize(cfg.poolSize), func() PDFRenderer {
			return newRodRenderer(timeout)
		})
	}

	return g, nil
}

// Outputs returns the manager of the holding areas.
func (g *Generator) Outputs() *ephemeral.Manager {
	return g.outputs
}

// Close releases browsers and, when the generator created it, the output manager.
// Pending deletions of a caller-supplied manager keep running.
func (g *Generator) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	errs := []error{g.pool.Close()}
	if g.ownsOutputs {
		errs = append(errs, g.outputs.Close())
	}
	return errors.Join(errs...)
}

// Generate builds a notice from caller-supplied contract fields.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (g *Generator) Generate(ctx context.Context, req Request) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if err := g.checkOpen(); err != nil {
		return nil, err
	}

	terms, err := g.requestTerms(req)
	if err != nil {
		return nil, err
	}
	return g.generate(ctx, terms, nil)
}

// GenerateFromPDF extracts the contract fields from an uploaded PDF and
// builds the notice. Fields missing from the PDF degrade to "N/A" and are
// listed in Result.Warnings. The upload is removed once both artifacts exist.
func (g *Generator) GenerateFromPDF(ctx context.Context, req ExtractionRequest) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if err := g.checkOpen(); err != nil {
		return nil, err
	}

	sourcePath, fromUpload, err := g.sourcePath(req)
	if err != nil {
		return nil, err
	}

	// Validate the cheap fields before reading the PDF.
	terms, err := g.extractionTerms(req)
	if err != nil {
		return nil, err
	}

	record, err := g.Extract(ctx, sourcePath)
	if err != nil {
		return nil, err
	}

	terms.Signees = record.Signees
	terms.Address = record.Address
	terms.TransactionID = record.TransactionID
	if terms.CurrentRent == "" {
		terms.CurrentRent = record.CurrentRent
	}

	var warnings []error
	for _, field := range record.Missing {
		if field == extract.FieldCurrentRent && !req.PreviousRent.IsZero() {
			continue
		}
		warnings = append(warnings, extract.MissingError(field))
	}

	result, err = g.generate(ctx, terms, warnings)
	if err != nil {
		return nil, err
	}

	if fromUpload {
		if _, err := fileutil.RemoveIfExists(sourcePath); err != nil {
			g.logger.WithError(err).WithField(logging.FieldPath, sourcePath).Warn("removing uploaded contract failed")
		}
	}
	return result, nil
}

// Extract reads the contract fields of the PDF at path.
func (g *Generator) Extract(ctx context.Context, path string) (extract.Record, error) {
	src, err := g.cfg.openSource(path)
	if err != nil {
		return extract.Record{}, err
	}
	defer src.Close()

	record, err := extract.Extract(ctx, src)
	if err != nil {
		return extract.Record{}, err
	}
	if len(record.Missing) > 0 {
		g.logger.WithFields(logrus.Fields{
			logging.FieldPath: path,
			"missing":         strings.Join(record.Missing, ","),
		}).Warn("contract fields not found, using N/A")
	}
	return record, nil
}

func (g *Generator) checkOpen() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return ErrGeneratorClosed
	}
	return nil
}

// sourcePath resolves the contract of an extraction request.
// Reports whether it lives in the upload area.
func (g *Generator) sourcePath(req ExtractionRequest) (string, bool, error) {
	if req.Path != "" {
		if !fileutil.FileExists(req.Path) {
			return "", false, fmt.Errorf("%w: %s", ErrSourceNotFound, req.Path)
		}
		return req.Path, false, nil
	}

	if strings.TrimSpace(req.Filename) == "" {
		return "", false, &FieldError{Field: "filename", Reason: "is required"}
	}
	path, err := g.outputs.UploadPath(req.Filename)
	if err != nil || !fileutil.FileExists(path) {
		return "", false, fmt.Errorf("%w: %s", ErrSourceNotFound, req.Filename)
	}
	return path, true, nil
}

// generate runs resolution, rendering and conversion, then arms the
// deletion of both artifacts.
func (g *Generator) generate(ctx context.Context, terms placeholder.Terms, warnings []error) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.timeout)
	defer cancel()

	m, err := g.resolver.Resolve(ctx, terms)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, m.Warnings...)
	if len(m.Dropped) > 0 {
		warnings = append(warnings, fmt.Errorf("%d parties beyond the limit of %d left out", len(m.Dropped), placeholder.MaxSignees))
	}

	createdAt := g.cfg.now()
	id := ArtifactID(terms.TransactionID, createdAt)
	docxName, pdfName := ArtifactNames(id)
	docxPath := g.outputs.OutputPath(docxName)
	pdfPath := g.outputs.OutputPath(pdfName)

	log := g.logger.WithFields(logrus.Fields{
		logging.FieldTransactionID: terms.TransactionID,
		logging.FieldArtifact:      id,
	})

	if err := g.renderer.RenderFile(m, docxPath); err != nil {
		log.WithError(err).WithField(logging.FieldStage, "render").Error("rendering notice failed")
		return nil, err
	}

	// A client going away must not leave a DOCX without its PDF.
	convCtx, convCancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.timeout)
	defer convCancel()

	preview, err := g.convert(convCtx, docxPath, pdfPath)
	if err != nil {
		log.WithError(err).WithField(logging.FieldStage, "convert").Error("converting notice failed")
		g.discard(docxPath, pdfPath)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w%s", ErrConversion, err, hints.ForTimeout())
		}
		return nil, fmt.Errorf("%w: %w", ErrConversion, err)
	}

	expiresAt, err := g.outputs.Arm(docxPath, pdfPath)
	if err != nil {
		g.discard(docxPath, pdfPath)
		return nil, err
	}

	log.WithField("expires_at", expiresAt.Format(time.RFC3339)).Info("notice generated")

	return &Result{
		DocxPath:      docxPath,
		PDFPath:       pdfPath,
		DocxName:      docxName,
		PDFName:       pdfName,
		HTMLPreview:   preview,
		TransactionID: m.Get(placeholder.TokenTransactionID),
		CurrentRent:   m.Get(placeholder.TokenCurrentRent),
		NewRent:       m.Get(placeholder.TokenNewRent),
		CreatedAt:     createdAt,
		ExpiresAt:     expiresAt,
		Warnings:      warnings,
	}, nil
}

// convert renders the DOCX at docxPath to a PDF at pdfPath through Markdown
// and HTML. Returns the HTML body for previews.
func (g *Generator) convert(ctx context.Context, docxPath, pdfPath string) (string, error) {
	doc, err := docx.Open(docxPath)
	if err != nil {
		return "", err
	}

	md, err := g.markdown.ToMarkdown(ctx, doc)
	if err != nil {
		return "", err
	}
	md = g.preprocessor.PreprocessMarkdown(ctx, md)

	htmlContent, err := g.htmlConverter.ToHTML(ctx, md)
	if err != nil {
		return "", err
	}

	preview, err := pipeline.Preview(htmlContent)
	if err != nil {
		return "", err
	}

	htmlContent = g.cssInjector.InjectCSS(ctx, htmlContent, g.css)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	renderer, err := g.pool.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer g.pool.Release(renderer)

	pdf, err := htmlToPDF(ctx, renderer, htmlContent)
	if err != nil {
		return "", err
	}

	if err := fileutil.WriteFileAtomic(pdfPath, pdf, artifactPerm, g.cfg.checkPDF); err != nil {
		return "", err
	}
	return preview, nil
}

// discard removes the artifacts of a failed generation.
func (g *Generator) discard(paths ...string) {
	for _, p := range paths {
		if _, err := fileutil.RemoveIfExists(p); err != nil {
			g.logger.WithError(err).WithField(logging.FieldPath, p).Warn("removing partial artifact failed")
		}
	}
}

// requestTerms converts a direct-mode request. Every invalid field is reported.
func (g *Generator) requestTerms(req Request) (placeholder.Terms, error) {
	var errs []error
	now := g.cfg.now()

	if len(req.Signees) == 0 {
		errs = append(errs, &FieldError{Field: "signees", Reason: "at least one party is required"})
	}
	for i, s := range req.Signees {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, &FieldError{Field: fmt.Sprintf("signees[%d]", i), Reason: "is empty"})
		}
	}
	if strings.TrimSpace(req.Address) == "" {
		errs = append(errs, &FieldError{Field: "address", Reason: "is required"})
	}

	transactionID := strings.TrimSpace(req.TransactionID)
	if transactionID == "" {
		transactionID = NotAvailable
	}

	terms := placeholder.Terms{
		Signees:       trimAll(req.Signees),
		Address:       strings.TrimSpace(req.Address),
		TransactionID: transactionID,
		CurrentRent:   strings.TrimSpace(string(req.CurrentRent)),
		FreeText:      req.FreeText,
	}

	var err error
	if terms.NewRent, err = parseAmount("new_rent", req.NewRent); err != nil {
		errs = append(errs, err)
	}
	if !req.FeeRate.IsZero() {
		rate, err := parseAmount("percentage_fee", req.FeeRate)
		if err != nil {
			errs = append(errs, err)
		} else {
			terms.FeeRate = &rate
		}
	}
	if !req.ServiceFee.IsZero() {
		fee, err := parseAmount("service_fee", req.ServiceFee)
		if err != nil {
			errs = append(errs, err)
		} else {
			terms.ServiceFee = &fee
		}
	}
	errs = append(errs, parseDates(&terms, req.ApplicationDate, req.EndDate, now)...)

	if err := errors.Join(errs...); err != nil {
		return placeholder.Terms{}, err
	}
	return terms, nil
}

// extractionTerms converts the caller-supplied part of an extraction request.
func (g *Generator) extractionTerms(req ExtractionRequest) (placeholder.Terms, error) {
	var errs []error
	var terms placeholder.Terms
	terms.FreeText = req.FreeText

	var err error
	if terms.NewRent, err = parseAmount("new_rent", req.NewRent); err != nil {
		errs = append(errs, err)
	}
	if !req.PreviousRent.IsZero() {
		prev, err := parseAmount("previous_rent", req.PreviousRent)
		if err != nil {
			errs = append(errs, err)
		} else {
			// Whole amounts only; decimals are cut, not rounded.
			terms.CurrentRent = prev.Truncate(0).String()
		}
	}
	errs = append(errs, parseDates(&terms, req.ApplicationDate, req.EndDate, g.cfg.now())...)

	if err := errors.Join(errs...); err != nil {
		return placeholder.Terms{}, err
	}
	return terms, nil
}

func parseAmount(field string, a Amount) (decimal.Decimal, error) {
	if a.IsZero() {
		return decimal.Decimal{}, &FieldError{Field: field, Reason: "is required"}
	}
	d, err := a.Decimal()
	if err != nil {
		return decimal.Decimal{}, &FieldError{Field: field, Reason: fmt.Sprintf("%q is not a number", string(a))}
	}
	return d, nil
}

func parseDates(terms *placeholder.Terms, application, end string, now time.Time) []error {
	var errs []error
	if strings.TrimSpace(application) == "" {
		errs = append(errs, &FieldError{Field: "application_date", Reason: "is required"})
	} else if d, err := dateutil.ParseDate(application, now); err != nil {
		errs = append(errs, &FieldError{Field: "application_date", Reason: err.Error()})
	} else {
		terms.ApplicationDate = d
	}

	endDate, err := dateutil.ParseOptionalDate(end, now)
	if err != nil {
		errs = append(errs, &FieldError{Field: "end_date", Reason: err.Error()})
	}
	terms.EndDate = endDate
	return errs
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

// loadTemplate resolves the template bytes: explicit bytes, a file path,
// an asset name, or the embedded default.
func loadTemplate(cfg generatorConfig, loader assets.AssetLoader) ([]byte, error) {
	switch {
	case cfg.template != nil:
		return cfg.template, nil
	case cfg.templatePath == "":
		return loader.LoadTemplate(assets.DefaultTemplateName)
	case fileutil.IsFilePath(cfg.templatePath):
		data, err := os.ReadFile(cfg.templatePath) // #nosec G304 -- operator-provided path
		if err != nil {
			return nil, fmt.Errorf("%w: loading template %q: %v%s", ErrRender, cfg.templatePath, err, hints.ForTemplate())
		}
		return data, nil
	default:
		data, err := loader.LoadTemplate(cfg.templatePath)
		if err != nil {
			return nil, fmt.Errorf("loading template %q: %w%s", cfg.templatePath, err, hints.ForTemplate())
		}
		return data, nil
	}
}

// resolveStyle turns a style name, a .css path or CSS content into CSS.
func resolveStyle(input string, loader assets.AssetLoader) (string, error) {
	if input == "" {
		input = assets.DefaultStyleName
	}

	if fileutil.IsFilePath(input) {
		content, err := os.ReadFile(input) // #nosec G304 -- operator-provided path
		if err != nil {
			return "", fmt.Errorf("loading style file %q: %w", input, err)
		}
		return string(content), nil
	}

	if fileutil.IsCSS(input) {
		return input, nil
	}

	css, err := loader.LoadStyle(input)
	if err != nil {
		return "", fmt.Errorf("loading style %q: %w%s", input, err, hints.ForStyleNotFound(assets.BuiltinStyles))
	}
	return css, nil
}

// checkPageCount rejects a written PDF that pdfcpu cannot read or that has no pages.
func checkPageCount(path string) error {
	n, err := api.PageCountFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	if n < 1 {
		return fmt.Errorf("%w: document has no pages", ErrPDFGeneration)
	}
	return nil
}
