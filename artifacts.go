package rentnotice

import (
	"regexp"
	"strings"
	"time"

	"github.com/alnah/go-rentnotice/internal/events"
)

// ArtifactPrefix starts the name of every generated artifact.
const ArtifactPrefix = events.ArtifactPrefix

// Artifact extensions.
const (
	DocxExt = ".docx"
	PDFExt  = ".pdf"
)

// artifactIDLayout names artifacts of notices without a transaction id.
const artifactIDLayout = "20060102150405"

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// ArtifactID returns the identifier shared by both artifacts of a notice:
// the transaction id reduced to letters, digits, "_" and "-", or the
// generation time when there is no usable transaction id.
func ArtifactID(transactionID string, now time.Time) string {
	id := strings.TrimSpace(transactionID)
	if id != "" && id != NotAvailable {
		id = strings.Trim(unsafeIDChars.ReplaceAllString(id, "_"), "_")
		if id != "" {
			return id
		}
	}
	return now.Format(artifactIDLayout)
}

// ArtifactNames returns the DOCX and PDF file names for id.
func ArtifactNames(id string) (docxName, pdfName string) {
	base := ArtifactPrefix + id
	return base + DocxExt, base + PDFExt
}
