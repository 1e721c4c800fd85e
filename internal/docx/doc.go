// Package docx reads, edits and writes WordprocessingML (.docx) documents.
//
// Only the parts needed for template rendering are parsed into XML trees:
//   - word/document.xml (body paragraphs and tables)
//   - word/styles.xml (document defaults and the Normal style)
//
// Every other package part is carried through byte-for-byte, in its original
// order, so templates keep headers, footers, numbering and media intact.
package docx
