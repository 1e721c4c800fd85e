package docx

import (
	"strings"

	"github.com/beevik/etree"
)

// Block is a top-level body element: *Paragraph or *Table.
type Block interface {
	block()
}

// Paragraph is a view over a w:p element.
type Paragraph struct {
	el *etree.Element
}

// Table is a view over a w:tbl element.
type Table struct {
	el *etree.Element
}

// Row is a view over a w:tr element.
type Row struct {
	el *etree.Element
}

// Cell is a view over a w:tc element.
type Cell struct {
	el *etree.Element
}

// Run is a view over a w:r element.
type Run struct {
	el *etree.Element
}

func (*Paragraph) block() {}
func (*Table) block()     {}

// RunProps describes the formatting applied to a rewritten run.
type RunProps struct {
	Bold bool
	Font string // empty leaves the font unset
}

func blocksOf(container *etree.Element) []Block {
	var out []Block
	for _, el := range container.ChildElements() {
		switch {
		case isW(el, "p"):
			out = append(out, &Paragraph{el: el})
		case isW(el, "tbl"):
			out = append(out, &Table{el: el})
		case isW(el, "sdt"):
			// Content controls wrap blocks in w:sdtContent.
			if content := el.SelectElement("w:sdtContent"); content != nil {
				out = append(out, blocksOf(content)...)
			}
		}
	}
	return out
}

func collectParagraphs(container *etree.Element, out *[]*Paragraph) {
	for _, b := range blocksOf(container) {
		switch v := b.(type) {
		case *Paragraph:
			*out = append(*out, v)
		case *Table:
			for _, row := range v.Rows() {
				for _, cell := range row.Cells() {
					collectParagraphs(cell.el, out)
				}
			}
		}
	}
}

func isW(el *etree.Element, tag string) bool {
	return el.Space == "w" && el.Tag == tag
}

// Text returns the visible text of the paragraph.
// Tabs become '\t' and line breaks become '\n'.
// Text inside embedded text boxes is not part of the paragraph.
func (p *Paragraph) Text() string {
	var sb strings.Builder
	appendText(&sb, p.el)
	return sb.String()
}

func appendText(sb *strings.Builder, el *etree.Element) {
	for _, child := range el.ChildElements() {
		if child.Space != "w" {
			continue
		}
		switch child.Tag {
		case "t":
			sb.WriteString(child.Text())
		case "tab", "ptab":
			sb.WriteByte('\t')
		case "br", "cr":
			sb.WriteByte('\n')
		case "noBreakHyphen":
			sb.WriteByte('-')
		case "pPr", "rPr", "txbxContent", "drawing", "pict", "delText", "instrText":
			// formatting or content not rendered inline
		default:
			appendText(sb, child)
		}
	}
}

// Runs returns the direct and wrapped (hyperlink, insertion) runs of the paragraph.
func (p *Paragraph) Runs() []*Run {
	var out []*Run
	collectRuns(p.el, &out)
	return out
}

func collectRuns(el *etree.Element, out *[]*Run) {
	for _, child := range el.ChildElements() {
		switch {
		case isW(child, "r"):
			*out = append(*out, &Run{el: child})
		case isW(child, "hyperlink"), isW(child, "ins"), isW(child, "smartTag"),
			isW(child, "fldSimple"), isW(child, "customXml"):
			collectRuns(child, out)
		}
	}
}

// SetText replaces every run of the paragraph with runs holding text.
// Paragraph properties (w:pPr) are kept. Newlines become w:br and tabs w:tab.
func (p *Paragraph) SetText(text string, props RunProps) {
	for _, child := range p.el.ChildElements() {
		if isW(child, "pPr") {
			continue
		}
		p.el.RemoveChild(child)
	}

	if text == "" {
		return
	}

	r := p.el.CreateElement("w:r")
	if props.Font != "" || props.Bold {
		rPr := r.CreateElement("w:rPr")
		if props.Font != "" {
			setFonts(rPr.CreateElement("w:rFonts"), props.Font)
		}
		if props.Bold {
			rPr.CreateElement("w:b")
			rPr.CreateElement("w:bCs")
		}
	}

	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			r.CreateElement("w:br")
		}
		for j, seg := range strings.Split(line, "\t") {
			if j > 0 {
				r.CreateElement("w:tab")
			}
			if seg == "" {
				continue
			}
			t := r.CreateElement("w:t")
			t.CreateAttr("xml:space", "preserve")
			t.SetText(seg)
		}
	}
}

// Bold reports whether every run carrying text is bold.
// A paragraph without text is not bold.
func (p *Paragraph) Bold() bool {
	seen := false
	for _, r := range p.Runs() {
		if r.Text() == "" {
			continue
		}
		seen = true
		if !r.Bold() {
			return false
		}
	}
	return seen
}

// HasGraphics reports whether the paragraph embeds drawings or objects,
// which SetText would discard.
func (p *Paragraph) HasGraphics() bool {
	for _, r := range p.Runs() {
		for _, child := range r.el.ChildElements() {
			if isW(child, "drawing") || isW(child, "pict") || isW(child, "object") {
				return true
			}
		}
	}
	return false
}

// Text returns the text of the run.
func (r *Run) Text() string {
	var sb strings.Builder
	appendText(&sb, r.el)
	return sb.String()
}

// Bold reports whether the run has direct bold formatting.
func (r *Run) Bold() bool {
	rPr := r.el.SelectElement("w:rPr")
	if rPr == nil {
		return false
	}
	b := rPr.SelectElement("w:b")
	if b == nil {
		return false
	}
	switch b.SelectAttrValue("w:val", "true") {
	case "0", "false", "off":
		return false
	}
	return true
}

// Font returns the ascii font of the run, or "" when inherited.
func (r *Run) Font() string {
	rPr := r.el.SelectElement("w:rPr")
	if rPr == nil {
		return ""
	}
	fonts := rPr.SelectElement("w:rFonts")
	if fonts == nil {
		return ""
	}
	return fonts.SelectAttrValue("w:ascii", "")
}

// SetFont forces every script slot of the run to font.
// Theme font references are removed so they cannot override it.
func (r *Run) SetFont(font string) {
	setFonts(ensureRFonts(ensureRPr(r.el)), font)
}

// Rows returns the table rows.
func (t *Table) Rows() []*Row {
	var out []*Row
	for _, el := range t.el.SelectElements("w:tr") {
		out = append(out, &Row{el: el})
	}
	return out
}

// Cells returns the row cells.
func (r *Row) Cells() []*Cell {
	var out []*Cell
	for _, el := range r.el.SelectElements("w:tc") {
		out = append(out, &Cell{el: el})
	}
	return out
}

// Paragraphs returns the cell paragraphs, including those of nested tables.
func (c *Cell) Paragraphs() []*Paragraph {
	var out []*Paragraph
	collectParagraphs(c.el, &out)
	return out
}

// Text returns the cell text, one paragraph per line.
func (c *Cell) Text() string {
	paras := c.Paragraphs()
	lines := make([]string, len(paras))
	for i, p := range paras {
		lines[i] = p.Text()
	}
	return strings.Join(lines, "\n")
}

// ensureRPr returns the w:rPr of a run, creating it as the first child.
func ensureRPr(run *etree.Element) *etree.Element {
	if rPr := run.SelectElement("w:rPr"); rPr != nil {
		return rPr
	}
	rPr := etree.NewElement("w:rPr")
	run.InsertChildAt(0, rPr)
	return rPr
}

// ensureRFonts returns the w:rFonts of a property block.
// The schema orders w:rStyle before w:rFonts, so a new element goes after it.
func ensureRFonts(rPr *etree.Element) *etree.Element {
	if fonts := rPr.SelectElement("w:rFonts"); fonts != nil {
		return fonts
	}
	fonts := etree.NewElement("w:rFonts")
	idx := 0
	if style := rPr.SelectElement("w:rStyle"); style != nil {
		idx = style.Index() + 1
	}
	rPr.InsertChildAt(idx, fonts)
	return fonts
}

var themeFontAttrs = []string{"w:asciiTheme", "w:hAnsiTheme", "w:eastAsiaTheme", "w:cstheme"}

func setFonts(fonts *etree.Element, font string) {
	for _, attr := range themeFontAttrs {
		fonts.RemoveAttr(attr)
	}
	for _, attr := range []string{"w:ascii", "w:hAnsi", "w:cs", "w:eastAsia"} {
		fonts.CreateAttr(attr, font)
	}
}
