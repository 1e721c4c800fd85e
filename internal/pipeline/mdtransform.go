package pipeline

import (
	"context"
	"regexp"
)

var (
	// Line ending normalization
	crlfOrCR = regexp.MustCompile(`\r\n?`)

	// Trailing blanks would become Markdown hard breaks
	trailingBlanks = regexp.MustCompile(`[ \t]+\n`)

	// Compress multiple blank lines to max 2
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)
)

// MarkdownPreprocessor defines the contract for markdown preprocessing.
type MarkdownPreprocessor interface {
	PreprocessMarkdown(ctx context.Context, content string) string
}

// CommonMarkPreprocessor normalizes Markdown before CommonMark conversion.
type CommonMarkPreprocessor struct{}

// Compile-time interface check.
var _ MarkdownPreprocessor = (*CommonMarkPreprocessor)(nil)

// PreprocessMarkdown applies all transformations to prepare Markdown for conversion.
func (p *CommonMarkPreprocessor) PreprocessMarkdown(ctx context.Context, content string) string {
	if ctx.Err() != nil {
		return content
	}

	content = normalizeLineEndings(content)
	content = trimTrailingBlanks(content)
	content = compressBlankLines(content)
	return content
}

// normalizeLineEndings converts \r\n and \r to \n.
func normalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}

func trimTrailingBlanks(content string) string {
	return trailingBlanks.ReplaceAllString(content, "\n")
}

// compressBlankLines limits consecutive blank lines to 1.
func compressBlankLines(content string) string {
	return multipleBlankLines.ReplaceAllString(content, "\n\n")
}
