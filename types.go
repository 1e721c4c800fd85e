package rentnotice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NotAvailable is the sentinel for fields that could not be extracted.
const NotAvailable = "N/A"

// Amount is a money value as sent by clients: a JSON number or a numeric string.
type Amount string

// UnmarshalJSON accepts 12000, 12000.5 and "12 000".
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a number or a numeric string: %w", err)
	}
	*a = Amount(n.String())
	return nil
}

// IsZero reports whether the amount was left out.
func (a Amount) IsZero() bool {
	return strings.TrimSpace(string(a)) == ""
}

// Decimal parses the amount. Spaces used as thousand separators are ignored.
func (a Amount) Decimal() (decimal.Decimal, error) {
	return decimal.NewFromString(strings.Join(strings.Fields(string(a)), ""))
}

// Request is a direct-mode generation request: the contract fields are
// supplied by the caller instead of being extracted from a PDF.
type Request struct {
	Signees         []string `json:"signees"`
	Address         string   `json:"address"`
	TransactionID   string   `json:"transaction_id,omitempty"`
	CurrentRent     Amount   `json:"current_rent"`
	NewRent         Amount   `json:"new_rent"`
	ApplicationDate string   `json:"application_date"`
	EndDate         string   `json:"end_date,omitempty"`
	FreeText        string   `json:"free_text,omitempty"`

	// FeeRate is a fraction, 0.0495 for 4.95%. Empty selects the generator's rate.
	FeeRate Amount `json:"percentage_fee,omitempty"`

	// ServiceFee overrides the computed fee.
	ServiceFee Amount `json:"service_fee,omitempty"`
}

// ExtractionRequest generates a notice from a previously uploaded contract.
type ExtractionRequest struct {
	// Filename is the stored upload name. The upload is removed after a
	// successful generation.
	Filename string `json:"filename"`

	// Path reads the contract from an arbitrary file instead of the upload
	// area. The file is left in place.
	Path string `json:"-"`

	NewRent         Amount `json:"new_rent"`
	PreviousRent    Amount `json:"previous_rent,omitempty"`
	ApplicationDate string `json:"application_date"`
	EndDate         string `json:"end_date,omitempty"`
	FreeText        string `json:"free_text,omitempty"`
}

// Result describes a generated artifact pair.
type Result struct {
	DocxPath string
	PDFPath  string
	DocxName string
	PDFName  string

	// HTMLPreview is the body of the intermediate HTML rendering.
	HTMLPreview string

	TransactionID string
	CurrentRent   string
	NewRent       string

	CreatedAt time.Time
	ExpiresAt time.Time

	// Warnings lists non-fatal degradations such as missing fields
	// (ErrFieldNotFound) and failed translations (ErrTranslationDegraded).
	Warnings []error
}

// WarningMessages returns Warnings as strings.
func (r *Result) WarningMessages() []string {
	if len(r.Warnings) == 0 {
		return nil
	}
	out := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		out[i] = w.Error()
	}
	return out
}
