package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrPreview indicates the HTML preview could not be extracted.
var ErrPreview = errors.New("HTML preview failed")

// Preview returns the inner HTML of the document body, without style blocks,
// for display next to the download links.
func Preview(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPreview, err)
	}

	body := doc.Find("body")
	body.Find("style, script").Remove()

	inner, err := body.Html()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPreview, err)
	}
	return strings.TrimSpace(inner), nil
}

// PreviewText returns the visible text of the body, one block per line.
func PreviewText(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPreview, err)
	}

	var lines []string
	doc.Find("body p, body th, body td").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			lines = append(lines, text)
		}
	})
	return strings.Join(lines, "\n"), nil
}
