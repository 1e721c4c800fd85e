package extract

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// Sentinel errors for PDF access.
var (
	ErrUnreadablePDF = errors.New("unreadable PDF")
	ErrEmptyDocument = errors.New("document has no pages")
)

// PageSource yields the plain text of a document page by page.
type PageSource interface {
	NumPages() int
	PageText(i int) (string, error)
	Close() error
}

// fitzSource reads page text through MuPDF.
// MuPDF contexts are not safe for concurrent use, hence the mutex.
type fitzSource struct {
	mu  sync.Mutex
	doc *fitz.Document
}

// Compile-time interface check.
var _ PageSource = (*fitzSource)(nil)

// OpenPDF opens the PDF at path for text extraction.
func OpenPDF(path string) (PageSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadablePDF, path, err)
	}
	return &fitzSource{doc: doc}, nil
}

func (s *fitzSource) NumPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.NumPage()
}

func (s *fitzSource) PageText(i int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, err := s.doc.Text(i)
	if err != nil {
		return "", fmt.Errorf("%w: page %d: %v", ErrUnreadablePDF, i+1, err)
	}
	return text, nil
}

func (s *fitzSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Close()
}

// TextPages is an in-memory PageSource, one string per page.
type TextPages []string

// Compile-time interface check.
var _ PageSource = TextPages(nil)

func (p TextPages) NumPages() int { return len(p) }

func (p TextPages) PageText(i int) (string, error) {
	if i < 0 || i >= len(p) {
		return "", fmt.Errorf("%w: page %d out of range", ErrUnreadablePDF, i+1)
	}
	return p[i], nil
}

func (p TextPages) Close() error { return nil }
