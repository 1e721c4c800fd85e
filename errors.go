package rentnotice

import (
	"errors"

	"github.com/alnah/go-rentnotice/internal/ephemeral"
	"github.com/alnah/go-rentnotice/internal/extract"
	"github.com/alnah/go-rentnotice/internal/placeholder"
	"github.com/alnah/go-rentnotice/internal/render"
)

// Sentinel errors for generation. Match with errors.Is.
var (
	// Extraction stage. The source PDF is malformed.
	ErrUnreadablePDF = extract.ErrUnreadablePDF
	ErrEmptyDocument = extract.ErrEmptyDocument

	// ErrFieldNotFound is soft: the field degrades to "N/A" and is
	// reported in Result.Warnings.
	ErrFieldNotFound = extract.ErrFieldNotFound

	// ErrValidation wraps every malformed request field. The concrete
	// error is a *FieldError naming the field.
	ErrValidation = placeholder.ErrValidation

	// ErrSourceNotFound reports an extraction request whose upload is gone.
	ErrSourceNotFound = errors.New("uploaded file not found")

	ErrRender     = render.ErrRender
	ErrConversion = errors.New("document conversion failed")

	// Download stage.
	ErrArtifactExpired     = ephemeral.ErrArtifactExpired
	ErrArtifactNotFound    = ephemeral.ErrArtifactNotFound
	ErrUnsupportedArtifact = ephemeral.ErrUnsupportedArtifact

	// ErrTranslationDegraded never fails a request; it appears in Result.Warnings.
	ErrTranslationDegraded = placeholder.ErrTranslationDegraded

	// Browser errors, all wrapped by ErrConversion when returned from Generate.
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")

	ErrGeneratorClosed = errors.New("generator is closed")
)

// FieldError reports an invalid request field.
type FieldError = placeholder.FieldError
