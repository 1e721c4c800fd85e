package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alnah/go-rentnotice/internal/docx"
)

// ErrMarkdownConversion indicates DOCX to Markdown conversion failed.
var ErrMarkdownConversion = errors.New("markdown conversion failed")

// MarkdownConverter abstracts editable-document to Markdown conversion.
type MarkdownConverter interface {
	ToMarkdown(ctx context.Context, doc *docx.Document) (string, error)
}

// DocxMarkdown converts the structure of a .docx body to Markdown.
// Paragraphs become blocks, bold paragraphs become strong text, tables become
// pipe tables with the first row as header. Other styling is not carried over.
type DocxMarkdown struct{}

// Compile-time interface check.
var _ MarkdownConverter = (*DocxMarkdown)(nil)

// ToMarkdown converts doc to Markdown. Empty paragraphs are dropped.
func (c *DocxMarkdown) ToMarkdown(ctx context.Context, doc *docx.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if doc == nil {
		return "", fmt.Errorf("%w: nil document", ErrMarkdownConversion)
	}

	var blocks []string
	for _, b := range doc.Body() {
		var md string
		switch v := b.(type) {
		case *docx.Paragraph:
			md = paragraphMarkdown(v)
		case *docx.Table:
			md = tableMarkdown(v)
		}
		if md != "" {
			blocks = append(blocks, md)
		}
	}

	if len(blocks) == 0 {
		return "", nil
	}
	return strings.Join(blocks, "\n\n") + "\n", nil
}

// paragraphMarkdown renders one paragraph; line breaks stay newlines,
// which the HTML stage turns into hard breaks.
func paragraphMarkdown(p *docx.Paragraph) string {
	lines := textLines(p.Text())
	if len(lines) == 0 {
		return ""
	}
	bold := p.Bold()
	for i, line := range lines {
		lines[i] = inline(line, bold)
	}
	return strings.Join(lines, "\n")
}

func tableMarkdown(t *docx.Table) string {
	var rows [][]string
	width := 0
	for _, row := range t.Rows() {
		var cells []string
		for _, cell := range row.Cells() {
			cells = append(cells, cellMarkdown(cell))
		}
		if len(cells) > width {
			width = len(cells)
		}
		rows = append(rows, cells)
	}
	if width == 0 {
		return ""
	}

	var sb strings.Builder
	for i, cells := range rows {
		writeRow(&sb, cells, width)
		if i == 0 {
			sb.WriteByte('\n')
			writeRow(&sb, repeat("---", width), width)
		}
		if i < len(rows)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// cellMarkdown flattens a cell to a single line; pipe table cells cannot
// hold block content.
func cellMarkdown(c *docx.Cell) string {
	var parts []string
	for _, p := range c.Paragraphs() {
		lines := textLines(p.Text())
		if len(lines) == 0 {
			continue
		}
		parts = append(parts, inline(strings.Join(lines, " "), p.Bold()))
	}
	return strings.Join(parts, " ")
}

func writeRow(sb *strings.Builder, cells []string, width int) {
	sb.WriteByte('|')
	for i := 0; i < width; i++ {
		sb.WriteByte(' ')
		if i < len(cells) {
			sb.WriteString(cells[i])
		}
		sb.WriteString(" |")
	}
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

// textLines splits paragraph text into trimmed, non-empty lines.
// Tabs collapse to a space, as they would in HTML.
func textLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.ReplaceAll(line, "\t", " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func inline(text string, bold bool) string {
	text = EscapeMarkdown(text)
	if bold {
		return "**" + text + "**"
	}
	return text
}

// EscapeMarkdown backslash-escapes every ASCII punctuation character so
// document text is never read as Markdown syntax or raw HTML.
func EscapeMarkdown(text string) string {
	var sb strings.Builder
	sb.Grow(len(text) + len(text)/4)
	for _, r := range text {
		if r < 0x80 && isASCIIPunct(byte(r)) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isASCIIPunct(c byte) bool {
	return (c >= '!' && c <= '/') || (c >= ':' && c <= '@') ||
		(c >= '[' && c <= '`') || (c >= '{' && c <= '~')
}
