// Package pipeline implements the editable-document to HTML conversion stages.
//
// This package handles:
//   - DOCX to Markdown conversion (the intermediate markup)
//   - Markdown preprocessing (line normalization, blank line compression)
//   - Markdown to HTML conversion via Goldmark
//   - CSS injection into HTML documents
//   - HTML preview extraction
//
// PDF generation is handled separately by the root rentnotice package using
// headless Chrome (go-rod). Every stage here is a pure transformation: the
// same input always yields the same output.
package pipeline
