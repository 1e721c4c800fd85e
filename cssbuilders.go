package rentnotice

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// fallbackFontFamily follows the notice typeface in every font stack.
const fallbackFontFamily = "serif"

// fontFormats maps font file extensions to CSS format() hints.
var fontFormats = map[string]string{
	".ttf":   "truetype",
	".otf":   "opentype",
	".woff":  "woff",
	".woff2": "woff2",
}

// fontMIMETypes maps font file extensions to data URI media types.
var fontMIMETypes = map[string]string{
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".woff":  "font/woff",
	".woff2": "font/woff2",
}

// buildFontFaceCSS maps family to the font file at path so the PDF uses the
// same typeface as the DOCX even when the browser lacks it.
// The file is embedded as a data URI; without a file the rule falls back to
// local(). An unreadable or unsupported file is an error.
func buildFontFaceCSS(family, path string) (string, error) {
	if family == "" {
		return "", nil
	}
	name := escapeCSSString(family)

	src := fmt.Sprintf(`local("%s")`, name)
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		format, ok := fontFormats[ext]
		if !ok {
			return "", fmt.Errorf("unsupported font file %q (want .ttf, .otf, .woff or .woff2)", filepath.Base(path))
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading font file: %w", err)
		}
		src = fmt.Sprintf(`url("data:%s;base64,%s") format("%s"), %s`,
			fontMIMETypes[ext], base64.StdEncoding.EncodeToString(data), format, src)
	}

	return fmt.Sprintf(`
/* Notice typeface */
@font-face {
  font-family: "%s";
  src: %s;
}
body, p, td, th {
  font-family: "%s", %s;
}
`, name, src, name, fallbackFontFamily), nil
}

// buildPageCSS sets the printed page box. Margins come from the browser's
// print options, so only the size is fixed here.
func buildPageCSS() string {
	return `
/* Page */
@page {
  size: A4;
}
p {
  orphans: 2;
  widows: 2;
}
table {
  break-inside: avoid;
  page-break-inside: avoid;
}
`
}

// escapeCSSString escapes a string for use inside a double-quoted CSS string.
// Prevents CSS injection by escaping backslashes, quotes and newlines.
func escapeCSSString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\A `)
	s = strings.ReplaceAll(s, "\r", "")
	return s
}
