package assets

import (
	"errors"
	"testing"
)

func TestNewAssetResolver(t *testing.T) {
	t.Parallel()

	r, err := NewAssetResolver("")
	if err != nil {
		t.Fatalf("NewAssetResolver(\"\") unexpected error: %v", err)
	}
	if r.HasCustomLoader() {
		t.Error("expected no custom loader for empty path")
	}

	r, err = NewAssetResolver(t.TempDir())
	if err != nil {
		t.Fatalf("NewAssetResolver() unexpected error: %v", err)
	}
	if !r.HasCustomLoader() {
		t.Error("expected custom loader for valid path")
	}

	if _, err := NewAssetResolver("/nonexistent/path/abc123xyz"); !errors.Is(err, ErrInvalidBasePath) {
		t.Errorf("NewAssetResolver() error = %v, want ErrInvalidBasePath", err)
	}
}

func TestAssetResolver_Fallback(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeAsset(t, base, "styles/default.css", "/* override */")

	r, err := NewAssetResolver(base)
	if err != nil {
		t.Fatalf("NewAssetResolver() unexpected error: %v", err)
	}

	css, err := r.LoadStyle(DefaultStyleName)
	if err != nil || css != "/* override */" {
		t.Errorf("LoadStyle(default) = %q, %v, want custom override", css, err)
	}

	// Not in the custom directory: falls back to the embedded asset.
	css, err = r.LoadStyle("compact")
	if err != nil || css == "" {
		t.Errorf("LoadStyle(compact) = %q, %v, want embedded", css, err)
	}
	tmpl, err := r.LoadTemplate(DefaultTemplateName)
	if err != nil || len(tmpl) == 0 {
		t.Errorf("LoadTemplate() = %d bytes, %v, want embedded", len(tmpl), err)
	}

	// Validation errors never fall back.
	if _, err := r.LoadStyle("../x"); !errors.Is(err, ErrInvalidAssetName) {
		t.Errorf("LoadStyle(../x) error = %v, want ErrInvalidAssetName", err)
	}
	if _, err := r.LoadTemplate("nope"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("LoadTemplate(nope) error = %v, want ErrTemplateNotFound", err)
	}
}
