// Package rest serves the videofeed JSON API over HTTP.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/videofeed/internal/logging"
	"github.com/dmitrijs2005/videofeed/internal/server/metrics"
	"github.com/dmitrijs2005/videofeed/internal/server/models"
)

const shutdownTimeout = 5 * time.Second

type VideoService interface {
	List(ctx context.Context) ([]*models.Video, error)
	CreateUploadIntent(ctx context.Context, caption, fileExtension string) (*models.UploadIntent, error)
	Update(ctx context.Context, id int64, upd models.FieldUpdate) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	StartTranscode(ctx context.Context, id int64) (*models.Video, error)
}

type AuthService interface {
	Enabled() bool
	Login(ctx context.Context, password string) (string, error)
	Authenticate(token string) error
}

// Pinger reports database health; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Options struct {
	Address          string
	AllowedOrigin    string
	UploadRateLimit  float64
	UploadRateBurst  int
	TranscodeEnabled bool
}

type Server struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

func NewServer(opts Options, l logging.Logger, videos VideoService, auth AuthService, db Pinger, m *metrics.Metrics) *Server {
	logger := l.With("module", "http_server")
	return &Server{
		address: opts.Address,
		handler: newHandler(opts, logger, videos, auth, db, m),
		logger:  logger,
	}
}

// Handler returns the fully wrapped API handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-done
	return nil
}
