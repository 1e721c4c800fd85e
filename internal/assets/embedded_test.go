package assets

import (
	"errors"
	"strings"
	"testing"

	"github.com/alnah/go-rentnotice/internal/docx"
	"github.com/alnah/go-rentnotice/internal/placeholder"
)

func TestEmbeddedLoader_LoadStyle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		style   string
		wantErr error
		want    string
	}{
		{name: "default style", style: DefaultStyleName, want: "size: A4"},
		{name: "compact style", style: "compact", want: "size: A4"},
		{name: "unknown style", style: "nonexistent", wantErr: ErrStyleNotFound},
		{name: "traversal rejected", style: "../secret", wantErr: ErrInvalidAssetName},
		{name: "extension rejected", style: "default.css", wantErr: ErrInvalidAssetName},
		{name: "empty rejected", style: "", wantErr: ErrInvalidAssetName},
	}

	loader := NewEmbeddedLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := loader.LoadStyle(tt.style)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("LoadStyle(%q) error = %v, want %v", tt.style, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadStyle(%q) unexpected error: %v", tt.style, err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("LoadStyle(%q) missing %q", tt.style, tt.want)
			}
		})
	}
}

func TestEmbeddedLoader_LoadTemplate(t *testing.T) {
	t.Parallel()

	loader := NewEmbeddedLoader()

	if _, err := loader.LoadTemplate("missing"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("LoadTemplate(missing) error = %v, want %v", err, ErrTemplateNotFound)
	}
	if _, err := loader.LoadTemplate("a/b"); !errors.Is(err, ErrInvalidAssetName) {
		t.Errorf("LoadTemplate(a/b) error = %v, want %v", err, ErrInvalidAssetName)
	}
}

func TestDefaultTemplate_CarriesEveryToken(t *testing.T) {
	t.Parallel()

	data, err := NewEmbeddedLoader().LoadTemplate(DefaultTemplateName)
	if err != nil {
		t.Fatalf("LoadTemplate(%q) unexpected error: %v", DefaultTemplateName, err)
	}
	doc, err := docx.Parse(data)
	if err != nil {
		t.Fatalf("embedded template does not parse: %v", err)
	}
	text := doc.Text()

	tokens := []string{
		placeholder.TokenAddress,
		placeholder.TokenTransactionID,
		placeholder.TokenCurrentRent,
		placeholder.TokenNewRent,
		placeholder.TokenServiceFee,
		placeholder.TokenApplicationDate,
		placeholder.TokenTodaysDate,
		placeholder.TokenFreeText,
		placeholder.TokenFreeTextEN,
		placeholder.TokenWhenSE,
		placeholder.TokenWhenEN,
	}
	for k := 1; k <= placeholder.MaxSignees; k++ {
		tokens = append(tokens, placeholder.SigneeToken(k))
	}
	for _, tok := range tokens {
		if !strings.Contains(text, tok) {
			t.Errorf("template is missing %s", tok)
		}
	}
	if len(doc.Tables()) == 0 {
		t.Error("template should carry the rent table")
	}
}

func TestBuiltinStyles(t *testing.T) {
	t.Parallel()

	loader := NewEmbeddedLoader()
	for _, name := range BuiltinStyles {
		if _, err := loader.LoadStyle(name); err != nil {
			t.Errorf("LoadStyle(%q) unexpected error: %v", name, err)
		}
	}
}
