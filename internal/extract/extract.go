package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// NotAvailable is the sentinel for fields missing from the source.
const NotAvailable = "N/A"

// Field names reported in Record.Missing.
const (
	FieldSignees       = "signees"
	FieldAddress       = "address"
	FieldTransactionID = "transaction_id"
	FieldCurrentRent   = "current_rent"
)

// ErrFieldNotFound marks a field that fell back to NotAvailable.
// It is reported through Record.Missing and MissingError, never returned by Extract.
var ErrFieldNotFound = errors.New("field not found")

var (
	partyPattern       = regexp.MustCompile(`\((\d+)\)\s*([^,(]+?)\s*[,(]`)
	addressPattern     = regexp.MustCompile(`(?i)adress\s+(.*?),`)
	transactionPattern = regexp.MustCompile(`Transaktion\s+(\S+)`)
	rentPattern        = regexp.MustCompile(`Hyran är\s+(\d[\d \t\x{00A0}]*)`)
	rentFallback       = regexp.MustCompile(`(?i)(?:månadshyra|hyra per månad|hyra)\s*:?\s*(\d[\d \t\x{00A0}]*?)\s*(?:kr|sek|:-)`)
	whitespace         = regexp.MustCompile(`\s+`)
)

// Record holds the fields extracted from a contract.
type Record struct {
	Signees       []string `yaml:"signees"`
	Address       string   `yaml:"address"`
	TransactionID string   `yaml:"transaction_id"`
	CurrentRent   string   `yaml:"current_rent"`
	Missing       []string `yaml:"missing,omitempty"`
}

// MissingError describes a field that fell back to the sentinel.
func MissingError(field string) error {
	return fmt.Errorf("%w: %s", ErrFieldNotFound, field)
}

// Extract reads the contract fields from src.
// Parties, address and transaction id come from the first page; the current
// rent comes from the first page, in order, on which a rent cue matches.
func Extract(ctx context.Context, src PageSource) (Record, error) {
	if src.NumPages() == 0 {
		return Record{}, ErrEmptyDocument
	}

	first, err := src.PageText(0)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Signees:       Signees(first),
		Address:       Address(first),
		TransactionID: TransactionID(first),
		CurrentRent:   NotAvailable,
	}

	for i := 0; i < src.NumPages(); i++ {
		if err := ctx.Err(); err != nil {
			return Record{}, err
		}
		text := first
		if i > 0 {
			if text, err = src.PageText(i); err != nil {
				return Record{}, err
			}
		}
		if rent, ok := CurrentRent(text); ok {
			rec.CurrentRent = rent
			break
		}
	}

	if len(rec.Signees) == 0 {
		rec.Missing = append(rec.Missing, FieldSignees)
	}
	if rec.Address == NotAvailable {
		rec.Missing = append(rec.Missing, FieldAddress)
	}
	if rec.TransactionID == NotAvailable {
		rec.Missing = append(rec.Missing, FieldTransactionID)
	}
	if rec.CurrentRent == NotAvailable {
		rec.Missing = append(rec.Missing, FieldCurrentRent)
	}
	return rec, nil
}

// Signees returns the party names of "(n) Name," markers in order of appearance.
func Signees(text string) []string {
	var out []string
	for _, m := range partyPattern.FindAllStringSubmatch(text, -1) {
		name := collapse(m[2])
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Address returns the text between the address cue and the next comma.
func Address(text string) string {
	m := addressPattern.FindStringSubmatch(text)
	if m == nil {
		return NotAvailable
	}
	if addr := collapse(m[1]); addr != "" {
		return addr
	}
	return NotAvailable
}

// TransactionID returns the token following the transaction cue.
func TransactionID(text string) string {
	m := transactionPattern.FindStringSubmatch(text)
	if m == nil {
		return NotAvailable
	}
	return m[1]
}

// CurrentRent returns the rent digits on a page with internal spaces removed.
// The primary cue is tried before the fallback cue.
func CurrentRent(text string) (string, bool) {
	for _, re := range []*regexp.Regexp{rentPattern, rentFallback} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if digits := strings.Join(strings.Fields(m[1]), ""); digits != "" {
			return digits, true
		}
	}
	return "", false
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
