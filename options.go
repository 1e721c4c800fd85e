package rentnotice

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/alnah/go-rentnotice/internal/ephemeral"
	"github.com/alnah/go-rentnotice/internal/placeholder"
)

// DefaultTimeout bounds one generation, browser printing included.
const DefaultTimeout = 30 * time.Second

// DefaultFont is the typeface applied to every notice.
const DefaultFont = "Times New Roman"

// generatorConfig holds the settings gathered from options.
type generatorConfig struct {
	template     []byte
	templatePath string
	style        string
	assetPath    string
	fontFamily   string
	fontPath     string
	feeRate      decimal.Decimal
	dateFormat   string
	translator   placeholder.Translator
	outputs      *ephemeral.Manager
	logger       logrus.FieldLogger
	timeout      time.Duration
	now          func() time.Time
	renderer     PDFRenderer
	poolSize     int
	checkPDF     func(path string) error
	openSource   sourceOpener
}

// Option configures a Generator.
type Option func(*generatorConfig)

// WithTemplate sets the DOCX template bytes.
// Takes precedence over WithTemplatePath.
func WithTemplate(docx []byte) Option {
	return func(c *generatorConfig) {
		c.template = docx
	}
}

// WithTemplatePath reads the DOCX template from a file, or from a named
// template of the asset directory when the value is not a path.
func WithTemplatePath(path string) Option {
	return func(c *generatorConfig) {
		c.templatePath = path
	}
}

// WithStyle sets the stylesheet of the PDF rendering.
// Accepts a style name ("default", "compact"), a .css file path, or CSS content.
func WithStyle(style string) Option {
	return func(c *generatorConfig) {
		c.style = style
	}
}

// WithAssetPath adds a directory of custom templates/ and styles/ that take
// precedence over the embedded assets.
func WithAssetPath(path string) Option {
	return func(c *generatorConfig) {
		c.assetPath = path
	}
}

// WithFont sets the notice typeface and, optionally, the font file the PDF
// rendering embeds for it.
func WithFont(family, path string) Option {
	return func(c *generatorConfig) {
		if family != "" {
			c.fontFamily = family
		}
		c.fontPath = path
	}
}

// WithFeeRate sets the service fee rate used when a request has none.
func WithFeeRate(rate decimal.Decimal) Option {
	return func(c *generatorConfig) {
		c.feeRate = rate
	}
}

// WithDateFormat sets the format of dates written to notices.
// Accepts a preset ("iso", "long") or tokens ("DD/MM/YYYY").
func WithDateFormat(format string) Option {
	return func(c *generatorConfig) {
		c.dateFormat = format
	}
}

// WithTranslator enables the English rendering of free text.
func WithTranslator(t placeholder.Translator) Option {
	return func(c *generatorConfig) {
		c.translator = t
	}
}

// WithOutputManager sets the holding areas and deletion timers for artifacts.
// Without it the generator creates a manager over "uploaded_files" and "output".
func WithOutputManager(m *ephemeral.Manager) Option {
	return func(c *generatorConfig) {
		c.outputs = m
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *generatorConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTimeout sets the generation timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *generatorConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock sets the time source for artifact ids and dates.
func WithClock(now func() time.Time) Option {
	return func(c *generatorConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRenderer replaces the headless Chrome renderer. The pool then holds
// this single renderer.
func WithRenderer(r PDFRenderer) Option {
	return func(c *generatorConfig) {
		c.renderer = r
	}
}

// WithPoolSize sets how many browsers may print concurrently.
// Zero sizes the pool from GOMAXPROCS.
func WithPoolSize(n int) Option {
	return func(c *generatorConfig) {
		c.poolSize = n
	}
}
