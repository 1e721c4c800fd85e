package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/beevik/etree"
)

// Package part names.
const (
	documentPart = "word/document.xml"
	stylesPart   = "word/styles.xml"
)

// MaxPartSize bounds a single decompressed XML part (32MB).
var MaxPartSize int64 = 32 << 20

// Sentinel errors for document operations.
var (
	ErrNotDocx       = errors.New("not a docx package")
	ErrMissingBody   = errors.New("document has no body")
	ErrPartTooLarge  = errors.New("document part exceeds maximum size")
	ErrWriteDocument = errors.New("failed to write document")
)

// Document is an in-memory .docx package.
// Paragraph and table views returned by its methods edit the tree in place.
type Document struct {
	files  []*zip.File
	xml    *etree.Document
	body   *etree.Element
	styles *etree.Document
}

// Open reads and parses a .docx file.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- template path is operator-provided
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses a .docx package held in memory.
// The returned Document keeps a reference to data.
func Parse(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}

	d := &Document{files: zr.File}
	for _, f := range zr.File {
		switch f.Name {
		case documentPart:
			if d.xml, err = readXMLPart(f); err != nil {
				return nil, err
			}
		case stylesPart:
			if d.styles, err = readXMLPart(f); err != nil {
				return nil, err
			}
		}
	}

	if d.xml == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrNotDocx, documentPart)
	}
	root := d.xml.Root()
	if root == nil {
		return nil, ErrMissingBody
	}
	d.body = root.SelectElement("w:body")
	if d.body == nil {
		return nil, ErrMissingBody
	}
	return d, nil
}

func readXMLPart(f *zip.File) (*etree.Document, error) {
	if int64(f.UncompressedSize64) > MaxPartSize {
		return nil, fmt.Errorf("%w: %s", ErrPartTooLarge, f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(io.LimitReader(rc, MaxPartSize)); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.Name, err)
	}
	return doc, nil
}

// Body returns the top-level blocks of the document body in order.
// Section properties and other non-content elements are skipped.
func (d *Document) Body() []Block {
	return blocksOf(d.body)
}

// Paragraphs returns every paragraph of the document in reading order,
// including paragraphs nested in table cells.
func (d *Document) Paragraphs() []*Paragraph {
	var out []*Paragraph
	collectParagraphs(d.body, &out)
	return out
}

// Tables returns the top-level tables of the body.
func (d *Document) Tables() []*Table {
	var out []*Table
	for _, el := range d.body.SelectElements("w:tbl") {
		out = append(out, &Table{el: el})
	}
	return out
}

// Text returns the document text, one paragraph per line.
func (d *Document) Text() string {
	var buf bytes.Buffer
	for i, p := range d.Paragraphs() {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(p.Text())
	}
	return buf.String()
}

// Bytes serializes the document back into a .docx package.
// Parts are written in their original order; unchanged parts are copied raw.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes the package to w.
func (d *Document) Encode(w io.Writer) error {
	zw := zip.NewWriter(w)

	for _, f := range d.files {
		var tree *etree.Document
		switch f.Name {
		case documentPart:
			tree = d.xml
		case stylesPart:
			tree = d.styles
		}

		if tree == nil {
			if err := zw.Copy(f); err != nil {
				return fmt.Errorf("%w: copying %s: %v", ErrWriteDocument, f.Name, err)
			}
			continue
		}

		content, err := tree.WriteToBytes()
		if err != nil {
			return fmt.Errorf("%w: serializing %s: %v", ErrWriteDocument, f.Name, err)
		}
		hdr := &zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: f.Modified,
		}
		part, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrWriteDocument, f.Name, err)
		}
		if _, err := part.Write(content); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrWriteDocument, f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteDocument, err)
	}
	return nil
}

// Save writes the package to path with 0600 permissions.
func (d *Document) Save(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteDocument, err)
	}
	return nil
}
