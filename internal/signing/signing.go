// Package signing hands a generated notice to an e-signature workflow.
// LogSigner only simulates the hand-off; it records what would be sent.
package signing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/alnah/go-rentnotice/internal/logging"
)

// Sentinel errors.
var (
	ErrDocumentNotFound = errors.New("document to sign not found")
	ErrInvalidSignee    = errors.New("invalid signee")
	ErrNoSignees        = errors.New("at least one signee is required")
)

// Signee is one party asked to sign.
type Signee struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone_number"`
	SwedishBankID bool   `json:"has_swedish_id"`
}

// Receipt is the signing service's answer.
type Receipt struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
}

// Signer starts a signing process for a document.
type Signer interface {
	StartSigning(ctx context.Context, path, title string, signees []Signee) (Receipt, error)
}

// LogSigner logs the request and returns a simulated receipt.
type LogSigner struct {
	logger logrus.FieldLogger
}

// NewLogSigner returns a LogSigner. A nil logger discards output.
func NewLogSigner(logger logrus.FieldLogger) *LogSigner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &LogSigner{logger: logger}
}

// StartSigning validates the request and logs every signee.
// The document id is derived from path and title, so repeating a request
// yields the same id.
func (s *LogSigner) StartSigning(ctx context.Context, path, title string, signees []Signee) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if err := Validate(signees); err != nil {
		return Receipt{}, err
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return Receipt{}, fmt.Errorf("%w: %s", ErrDocumentNotFound, path)
	}

	log := s.logger.WithFields(logrus.Fields{logging.FieldPath: path, "title": title})
	log.Info("signing requested")
	for i, sg := range signees {
		log.WithFields(logrus.Fields{
			"signee":         i + 1,
			"name":           sg.Name,
			"email":          sg.Email,
			"phone":          sg.Phone,
			"swedish_bankid": sg.SwedishBankID,
		}).Info("signee added")
	}

	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(path+"\x00"+title))
	return Receipt{
		Status:     "success",
		Message:    "Document sent for signing (simulation).",
		DocumentID: "sim-" + id.String(),
	}, nil
}

// Validate checks that every signee has a name and a plausible email.
func Validate(signees []Signee) error {
	if len(signees) == 0 {
		return ErrNoSignees
	}
	var errs []error
	for i, sg := range signees {
		if strings.TrimSpace(sg.Name) == "" {
			errs = append(errs, fmt.Errorf("%w: signee %d has no name", ErrInvalidSignee, i+1))
		}
		if at := strings.Index(sg.Email, "@"); at < 1 || at == len(sg.Email)-1 {
			errs = append(errs, fmt.Errorf("%w: signee %d email %q", ErrInvalidSignee, i+1, sg.Email))
		}
	}
	return errors.Join(errs...)
}

var _ Signer = (*LogSigner)(nil)
