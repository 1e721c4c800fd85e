// Package server exposes the notice generator over HTTP.
//
// Routes:
//
//	GET  /                       index.html from the static directory
//	GET  /healthz                liveness
//	POST /upload                 store a contract PDF in the upload area
//	POST /generate               notice from an uploaded contract
//	POST /generate_direct_pdf    notice from caller-supplied fields
//	GET  /download/:filename     serve an artifact until it expires
//	POST /sign                   hand an artifact to the signing workflow
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	rentnotice "github.com/alnah/go-rentnotice"
	"github.com/alnah/go-rentnotice/internal/config"
	"github.com/alnah/go-rentnotice/internal/ephemeral"
	"github.com/alnah/go-rentnotice/internal/events"
	"github.com/alnah/go-rentnotice/internal/fileutil"
	"github.com/alnah/go-rentnotice/internal/logging"
	"github.com/alnah/go-rentnotice/internal/signing"
)

// Listener timeouts. Writes cover a full generation.
const (
	ReadTimeout     = 30 * time.Second
	WriteTimeout    = 120 * time.Second
	IdleTimeout     = 120 * time.Second
	ShutdownTimeout = 10 * time.Second
)

// Generator produces notices. *rentnotice.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, req rentnotice.Request) (*rentnotice.Result, error)
	GenerateFromPDF(ctx context.Context, req rentnotice.ExtractionRequest) (*rentnotice.Result, error)
}

var _ Generator = (*rentnotice.Generator)(nil)

// Server routes HTTP requests to the generator and the holding areas.
type Server struct {
	gen     Generator
	outputs *ephemeral.Manager
	events  events.Recorder
	signer  signing.Signer
	logger  logrus.FieldLogger
	cfg     config.ServerConfig
	now     func() time.Time
	schemas schemas
	router  *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithEvents records generate and download events. Recording must not
// block; wrap slow stores in events.NonBlocking.
func WithEvents(r events.Recorder) Option {
	return func(s *Server) {
		if r != nil {
			s.events = r
		}
	}
}

// WithSigner sets the signing workflow behind POST /sign.
func WithSigner(signer signing.Signer) Option {
	return func(s *Server) {
		if signer != nil {
			s.signer = signer
		}
	}
}

// WithLogger sets the request and error logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConfig sets listener address, CORS, rate limit, static directory
// and upload size.
func WithConfig(cfg config.ServerConfig) Option {
	return func(s *Server) {
		s.cfg = cfg
	}
}

// WithClock overrides the time source for events and rate limiting.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a Server. gen and outputs are required.
func New(gen Generator, outputs *ephemeral.Manager, opts ...Option) (*Server, error) {
	if gen == nil || outputs == nil {
		return nil, errors.New("server: generator and output manager are required")
	}

	s := &Server{
		gen:     gen,
		outputs: outputs,
		events:  events.Nop{},
		logger:  logging.Discard(),
		cfg:     config.ServerConfig{Address: config.DefaultAddress, MaxUploadMB: config.DefaultMaxUploadMB},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.signer == nil {
		s.signer = signing.NewLogSigner(s.logger)
	}

	var err error
	if s.schemas, err = compileSchemas(); err != nil {
		return nil, err
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = s.maxUploadBytes()
	r.Use(requestID(), recovery(s.logger), requestLogger(s.logger), cors(s.cfg.CORSOrigins))
	if s.cfg.RateLimit.PerMinute > 0 {
		r.Use(rateLimit(s.cfg.RateLimit.PerMinute, s.now, s.logger))
	}

	if dir := s.cfg.StaticDir; dir != "" {
		index := filepath.Join(dir, "index.html")
		if fileutil.FileExists(index) {
			r.StaticFile("/", index)
		}
		r.Static("/static", dir)
	}

	r.GET("/healthz", s.health)
	r.POST("/upload", s.upload)
	r.POST("/generate", s.generate)
	r.POST("/generate_direct_pdf", s.generateDirect)
	r.GET("/download/:filename", s.download)
	r.POST("/sign", s.sign)
	return r
}

func (s *Server) maxUploadBytes() int64 {
	mb := s.cfg.MaxUploadMB
	if mb <= 0 {
		mb = config.DefaultMaxUploadMB
	}
	return mb << 20
}

// Run listens on the configured address until ctx is done, then shuts
// down gracefully, letting in-flight generations finish.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.router,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("address", s.cfg.Address).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.cfg.Address, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("server exited gracefully")
	return nil
}
