// Package docxtest builds minimal .docx packages for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"testing"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

// DefaultStyles declares a Normal paragraph style.
const DefaultStyles = `<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>`

// Part is an extra package part.
type Part struct {
	Name    string
	Content string
}

// Package returns a .docx holding body as the content of w:body.
// An empty styles omits word/styles.xml. Extra parts follow the document part.
func Package(t testing.TB, body, styles string, extra ...Part) []byte {
	t.Helper()

	parts := []Part{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`},
		{"word/document.xml", `<?xml version="1.0" encoding="UTF-8"?><w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`},
	}
	parts = append(parts, extra...)
	if styles != "" {
		parts = append(parts, Part{"word/styles.xml", `<?xml version="1.0" encoding="UTF-8"?><w:styles ` + wordNS + `>` + styles + `</w:styles>`})
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.Create(p.Name)
		if err != nil {
			t.Fatalf("create %s: %v", p.Name, err)
		}
		if _, err := w.Write([]byte(p.Content)); err != nil {
			t.Fatalf("write %s: %v", p.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// P returns a single-run paragraph holding text.
func P(text string) string {
	return `<w:p><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

// Bold returns a single bold-run paragraph holding text.
func Bold(text string) string {
	return `<w:p><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

// Table returns a table whose cells hold the given paragraphs XML.
func Table(rows ...[]string) string {
	var buf bytes.Buffer
	buf.WriteString("<w:tbl>")
	for _, row := range rows {
		buf.WriteString("<w:tr>")
		for _, cell := range row {
			buf.WriteString("<w:tc>" + cell + "</w:tc>")
		}
		buf.WriteString("</w:tr>")
	}
	buf.WriteString("</w:tbl>")
	return buf.String()
}
