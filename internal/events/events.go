// Package events records generate and download events.
//
// Recording is best effort: the HTTP layer wraps a store in NonBlocking so a
// slow or failing database never delays a response.
package events

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnknownDriver is returned by Open for unsupported drivers.
var ErrUnknownDriver = errors.New("unknown events driver")

// File types of download events.
const (
	FileTypeDocx = "docx"
	FileTypePDF  = "pdf"
)

// ArtifactPrefix starts every generated artifact name.
const ArtifactPrefix = "Rent_Increase_"

// GenerateEvent is written once per successful generation.
type GenerateEvent struct {
	At            time.Time
	TransactionID string
	OldRent       string
	NewRent       string
}

// DownloadEvent is written once per served artifact.
type DownloadEvent struct {
	At            time.Time
	FileType      string
	TransactionID string
}

// Recorder persists events.
type Recorder interface {
	RecordGenerate(ctx context.Context, e GenerateEvent) error
	RecordDownload(ctx context.Context, e DownloadEvent) error
	Close() error
}

// DownloadFor builds the download event for an artifact name.
func DownloadFor(name string, at time.Time) DownloadEvent {
	return DownloadEvent{
		At:            at,
		FileType:      strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."),
		TransactionID: TransactionIDFromArtifact(name),
	}
}

// TransactionIDFromArtifact recovers the identifier from
// "Rent_Increase_<id>.<ext>". Other names are returned without extension.
func TransactionIDFromArtifact(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.TrimPrefix(base, ArtifactPrefix)
}

// Nop discards every event.
type Nop struct{}

func (Nop) RecordGenerate(context.Context, GenerateEvent) error { return nil }
func (Nop) RecordDownload(context.Context, DownloadEvent) error { return nil }
func (Nop) Close() error { return nil }

var _ Recorder = Nop{}
