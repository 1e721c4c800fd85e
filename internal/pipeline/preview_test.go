package pipeline

import (
	"context"
	"strings"
	"testing"
)

func TestPreview(t *testing.T) {
	t.Parallel()

	html := "<html><head><style>p{}</style></head><body>\n<style>b{}</style><p><strong>(1) Alice</strong></p>\n<p>Hyran</p>\n</body></html>"

	got, err := Preview(html)
	if err != nil {
		t.Fatalf("Preview() unexpected error: %v", err)
	}
	if strings.Contains(got, "<style>") || strings.Contains(got, "<body") {
		t.Errorf("Preview() leaked wrapper or style: %q", got)
	}
	if !strings.HasPrefix(got, "<p><strong>(1) Alice</strong></p>") {
		t.Errorf("Preview() = %q", got)
	}
}

func TestPreview_FromPipeline(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := parseDocx(t, `<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>(2) Hyresgäst / Tenant: Bob</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>Ny hyra: 12000 kr</w:t></w:r></w:p>`)

	md, err := (&DocxMarkdown{}).ToMarkdown(ctx, d)
	if err != nil {
		t.Fatalf("ToMarkdown() unexpected error: %v", err)
	}
	html, err := NewGoldmarkConverter().ToHTML(ctx, md)
	if err != nil {
		t.Fatalf("ToHTML() unexpected error: %v", err)
	}
	html = (&CSSInjection{}).InjectCSS(ctx, html, "body{font-family:serif}")

	got, err := PreviewText(html)
	if err != nil {
		t.Fatalf("PreviewText() unexpected error: %v", err)
	}
	want := "(2) Hyresgäst / Tenant: Bob\nNy hyra: 12000 kr"
	if got != want {
		t.Errorf("PreviewText() = %q, want %q", got, want)
	}
}
