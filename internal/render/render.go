// Package render fills a .docx template with resolved placeholder values.
package render

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/alnah/go-rentnotice/internal/docx"
	"github.com/alnah/go-rentnotice/internal/placeholder"
)

// ErrRender indicates the template could not be loaded, filled or saved.
var ErrRender = errors.New("template rendering failed")

// DefaultFont is the typeface forced on every rendered document.
const DefaultFont = "Times New Roman"

var (
	partyLine     = regexp.MustCompile(`^\s*\(\d+\)\s*\S`)
	signatureLine = regexp.MustCompile(`^\s*_____`)
)

// Emphasized reports whether a substituted line is rendered bold:
// party lines "(n) ...", signature lines starting with underscores, and
// standalone role captions.
func Emphasized(text string) bool {
	if partyLine.MatchString(text) || signatureLine.MatchString(text) {
		return true
	}
	switch strings.TrimSpace(text) {
	case "Landlord", "Tenant", "Hyresvärd", "Hyresgäst", "Hyresvärden", "Hyresgästen":
		return true
	}
	return false
}

// Renderer fills templates. It is safe for concurrent use;
// each call works on its own parsed copy of the template.
type Renderer struct {
	template []byte
	font     string
}

// New creates a Renderer for the given template package bytes.
// An empty font selects DefaultFont.
func New(template []byte, font string) (*Renderer, error) {
	if font == "" {
		font = DefaultFont
	}
	// Parse once up front so a broken template fails at startup.
	if _, err := docx.Parse(template); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return &Renderer{template: template, font: font}, nil
}

// Font returns the typeface applied to rendered documents.
func (r *Renderer) Font() string {
	return r.font
}

// Render returns a new document with every token substituted.
// Paragraphs in table cells are processed like body paragraphs.
func (r *Renderer) Render(m *placeholder.Map) (*docx.Document, error) {
	doc, err := docx.Parse(r.template)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	replacer := strings.NewReplacer(m.Pairs()...)
	for _, p := range doc.Paragraphs() {
		original := p.Text()
		text := Substitute(replacer, original)
		if text == original && p.HasGraphics() {
			continue
		}
		p.SetText(text, docx.RunProps{Bold: Emphasized(text), Font: r.font})
	}
	doc.SetFont(r.font)
	return doc, nil
}

// RenderFile renders m and saves the result at path.
func (r *Renderer) RenderFile(m *placeholder.Map, path string) error {
	doc, err := r.Render(m)
	if err != nil {
		return err
	}
	if err := doc.Save(path); err != nil {
		return fmt.Errorf("%w: %v", ErrRender, err)
	}
	return nil
}

// Substitute replaces every token occurrence in text in a single pass, then
// erases any party token still literal in the result, including one that
// arrived inside a value. Other token-like text in values is kept as is.
func Substitute(replacer *strings.Replacer, text string) string {
	if !strings.Contains(text, "[") {
		return text
	}
	return placeholder.SigneeTokenPattern.ReplaceAllString(replacer.Replace(text), "")
}
