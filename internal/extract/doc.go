// Package extract reads contract fields from the text of a signed rental
// contract PDF.
//
// Extraction is pattern based. Fields that cannot be located fall back to the
// sentinel "N/A" and are listed in Record.Missing; only an unreadable or empty
// document is an error.
package extract
