package server

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	rentnotice "github.com/alnah/go-rentnotice"
	"github.com/alnah/go-rentnotice/internal/events"
	"github.com/alnah/go-rentnotice/internal/fileutil"
	"github.com/alnah/go-rentnotice/internal/logging"
	"github.com/alnah/go-rentnotice/internal/signing"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

const msgNotFound = "File not found or has expired"

var (
	errBodyTooLarge = errors.New("request body too large")
	errNoFile       = errors.New("no file provided")
	errNotPDF       = errors.New("only PDF files are allowed")
)

// generateResponse is the body of both generate endpoints.
type generateResponse struct {
	Status       string   `json:"status"`
	DocxPath     string   `json:"docx_path"`
	PDFPath      string   `json:"pdf_path"`
	HTMLPreview  string   `json:"html_preview"`
	ExpiryTime   string   `json:"expiry_time"`
	DocxFilename string   `json:"docx_filename"`
	PDFFilename  string   `json:"pdf_filename"`
	Warnings     []string `json:"warnings,omitempty"`
}

func newGenerateResponse(res *rentnotice.Result) generateResponse {
	return generateResponse{
		Status:       "success",
		DocxPath:     downloadPath(res.DocxName),
		PDFPath:      downloadPath(res.PDFName),
		HTMLPreview:  res.HTMLPreview,
		ExpiryTime:   res.ExpiresAt.Format(time.RFC3339),
		DocxFilename: res.DocxName,
		PDFFilename:  res.PDFName,
		Warnings:     res.WarningMessages(),
	}
}

func downloadPath(name string) string {
	return "/download/" + url.PathEscape(name)
}

// signRequest is the body of POST /sign.
type signRequest struct {
	Filename string           `json:"filename"`
	Title    string           `json:"title"`
	Signees  []signing.Signee `json:"signees"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
	})
}

// upload stores a contract PDF under a sanitized name. An existing upload
// with the same name is never overwritten.
func (s *Server) upload(c *gin.Context) {
	if c.Request.ContentLength > s.maxUploadBytes() {
		s.fail(c, errBodyTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes())

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, errBodyTooLarge)
			return
		}
		s.fail(c, errNoFile)
		return
	}

	name, err := fileutil.SanitizeFilename(header.Filename)
	if err != nil {
		s.fail(c, errNoFile)
		return
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		s.fail(c, errNotPDF)
		return
	}
	if err := sniffPDF(header); err != nil {
		s.fail(c, err)
		return
	}

	path, err := s.outputs.UploadPath(name)
	if err != nil {
		s.fail(c, errNoFile)
		return
	}
	if fileutil.FileExists(path) {
		ext := filepath.Ext(name)
		name = strings.TrimSuffix(name, ext) + "_" + uuid.New().String()[:8] + ext
		path = filepath.Join(s.outputs.UploadDir(), name)
	}

	if err := c.SaveUploadedFile(header, path); err != nil {
		s.fail(c, err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		logging.FieldRequestID: RequestID(c),
		logging.FieldPath:      path,
		"size":                 header.Size,
	}).Info("contract uploaded")
	c.JSON(http.StatusOK, gin.H{"filename": name})
}

// sniffPDF checks the content type of the first bytes.
func sniffPDF(header *multipart.FileHeader) error {
	f, err := header.Open()
	if err != nil {
		return errNoFile
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return errNotPDF
	}
	if http.DetectContentType(buf[:n]) != "application/pdf" {
		return errNotPDF
	}
	return nil
}

func (s *Server) generate(c *gin.Context) {
	var req rentnotice.ExtractionRequest
	if !s.bind(c, schemaGenerate, &req) {
		return
	}
	res, err := s.gen.GenerateFromPDF(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.recordGenerate(c, res)
	c.JSON(http.StatusOK, newGenerateResponse(res))
}

func (s *Server) generateDirect(c *gin.Context) {
	var req rentnotice.Request
	if !s.bind(c, schemaGenerateDirect, &req) {
		return
	}
	res, err := s.gen.Generate(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.recordGenerate(c, res)
	c.JSON(http.StatusOK, newGenerateResponse(res))
}

// download streams an artifact from an open handle, so a deletion firing
// mid-transfer cannot truncate it.
func (s *Server) download(c *gin.Context) {
	name := c.Param("filename")
	f, art, err := s.outputs.Lookup(name)
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Type", art.ContentType)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Name}))
	http.ServeContent(c.Writer, c.Request, art.Name, info.ModTime(), f)

	if err := s.events.RecordDownload(c.Request.Context(), events.DownloadFor(art.Name, s.now())); err != nil {
		s.logger.WithError(err).WithField(logging.FieldArtifact, art.Name).Warn("download event not recorded")
	}
}

func (s *Server) sign(c *gin.Context) {
	var req signRequest
	if !s.bind(c, schemaSign, &req) {
		return
	}

	f, art, err := s.outputs.Lookup(req.Filename)
	if err != nil {
		s.fail(c, err)
		return
	}
	_ = f.Close()

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = strings.TrimSuffix(art.Name, filepath.Ext(art.Name))
	}

	receipt, err := s.signer.StartSigning(c.Request.Context(), art.Path, title, req.Signees)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// bind reads a bounded JSON body and decodes it through the named schema.
// It writes the error response itself and reports whether to continue.
func (s *Server) bind(c *gin.Context, schema string, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, errBodyTooLarge)
			return false
		}
		s.fail(c, err)
		return false
	}
	if err := s.schemas.decode(schema, body, dst); err != nil {
		s.fail(c, err)
		return false
	}
	return true
}

func (s *Server) recordGenerate(c *gin.Context, res *rentnotice.Result) {
	e := events.GenerateEvent{
		At:            res.CreatedAt,
		TransactionID: res.TransactionID,
		OldRent:       res.CurrentRent,
		NewRent:       res.NewRent,
	}
	if err := s.events.RecordGenerate(c.Request.Context(), e); err != nil {
		s.logger.WithError(err).WithField(logging.FieldTransactionID, res.TransactionID).Warn("generate event not recorded")
	}
}

// fail writes the error response. Client errors carry their detail;
// server errors carry a generic message and the request id, the cause is
// only logged.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	status, msg := classify(err)
	if status < http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
		return
	}

	s.logger.WithError(err).WithFields(logrus.Fields{
		logging.FieldRequestID: RequestID(c),
		logging.FieldPath:      c.Request.URL.Path,
	}).Error("request failed")
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "request_id": RequestID(c)})
}

// classify maps an error to a status code and a client-facing message.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge, "Request body too large"
	case errors.Is(err, errNoFile):
		return http.StatusBadRequest, "No file provided"
	case errors.Is(err, errNotPDF):
		return http.StatusBadRequest, "Only PDF files are allowed"
	case errors.Is(err, ErrInvalidBody),
		errors.Is(err, rentnotice.ErrValidation),
		errors.Is(err, rentnotice.ErrUnreadablePDF),
		errors.Is(err, rentnotice.ErrEmptyDocument),
		errors.Is(err, signing.ErrNoSignees),
		errors.Is(err, signing.ErrInvalidSignee):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, rentnotice.ErrSourceNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, rentnotice.ErrArtifactExpired),
		errors.Is(err, rentnotice.ErrArtifactNotFound),
		errors.Is(err, signing.ErrDocumentNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, rentnotice.ErrUnsupportedArtifact):
		return http.StatusBadRequest, "Unsupported file type"
	case errors.Is(err, rentnotice.ErrGeneratorClosed):
		return http.StatusServiceUnavailable, "Service is shutting down"
	default:
		return http.StatusInternalServerError, "An internal error occurred"
	}
}
