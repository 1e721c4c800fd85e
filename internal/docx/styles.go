package docx

import "github.com/beevik/etree"

// SetFont makes font the effective font of the whole document:
// every run in the body, the Normal paragraph style and the
// document defaults. Templates without a styles part only get the run pass.
func (d *Document) SetFont(font string) {
	if font == "" {
		return
	}
	for _, p := range d.Paragraphs() {
		for _, r := range p.Runs() {
			r.SetFont(font)
		}
	}
	if d.styles == nil {
		return
	}
	root := d.styles.Root()
	if root == nil {
		return
	}
	setDocDefaultsFont(root, font)
	if normal := normalStyle(root); normal != nil {
		setFonts(ensureRFonts(ensureChild(normal, "w:rPr")), font)
	}
}

// DefaultFont returns the ascii font of the document defaults, or "".
func (d *Document) DefaultFont() string {
	if d.styles == nil || d.styles.Root() == nil {
		return ""
	}
	fonts := d.styles.Root().FindElement("w:docDefaults/w:rPrDefault/w:rPr/w:rFonts")
	if fonts == nil {
		return ""
	}
	return fonts.SelectAttrValue("w:ascii", "")
}

func setDocDefaultsFont(root *etree.Element, font string) {
	defaults := root.SelectElement("w:docDefaults")
	if defaults == nil {
		defaults = etree.NewElement("w:docDefaults")
		root.InsertChildAt(0, defaults)
	}
	rPr := ensureChild(ensureChild(defaults, "w:rPrDefault"), "w:rPr")
	setFonts(ensureRFonts(rPr), font)
}

func normalStyle(root *etree.Element) *etree.Element {
	for _, s := range root.SelectElements("w:style") {
		if s.SelectAttrValue("w:type", "") != "paragraph" {
			continue
		}
		if s.SelectAttrValue("w:styleId", "") == "Normal" || s.SelectAttrValue("w:default", "") == "1" {
			return s
		}
	}
	return nil
}

func ensureChild(parent *etree.Element, tag string) *etree.Element {
	if el := parent.SelectElement(tag); el != nil {
		return el
	}
	return parent.CreateElement(tag)
}
