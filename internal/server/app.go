// Package server wires the videofeed API: database, migrations, blob store,
// optional transcoder and admin auth, and the HTTP server with graceful
// shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/videofeed/internal/logging"
	"github.com/dmitrijs2005/videofeed/internal/server/config"
	"github.com/dmitrijs2005/videofeed/internal/server/metrics"
	"github.com/dmitrijs2005/videofeed/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/videofeed/internal/server/rest"
	"github.com/dmitrijs2005/videofeed/internal/server/services"
	"github.com/dmitrijs2005/videofeed/internal/server/storage"
	"github.com/dmitrijs2005/videofeed/internal/server/transcode"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const transcoderTimeout = 15 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *rest.Server
}

// OpenDB opens the pgx-backed connection pool described by dsn.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// NewStore builds the S3 blob store described by cfg.
func NewStore(ctx context.Context, cfg *config.Config) (*storage.S3Store, error) {
	return storage.NewS3Store(ctx, storage.Options{
		Region:        cfg.S3Region,
		AccessKey:     cfg.S3RootUser,
		SecretKey:     cfg.S3RootPassword,
		Bucket:        cfg.S3Bucket,
		BaseEndpoint:  cfg.S3BaseEndpoint,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, c.LogLevel, os.Stdout)
	if err != nil {
		return nil, err
	}

	db, err := OpenDB(c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := NewStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	var tc transcode.Client
	if c.TranscoderEndpoint != "" {
		tc = transcode.NewHTTPClient(c.TranscoderEndpoint, c.TranscoderAPIKey, transcoderTimeout)
	}

	vs := services.NewVideoService(db, rm, store, tc, c, logger)
	as := services.NewAuthService(c)

	srv := rest.NewServer(rest.Options{
		Address:          c.EndpointAddrHTTP,
		AllowedOrigin:    c.AllowedOrigin,
		UploadRateLimit:  c.UploadRateLimit,
		UploadRateBurst:  c.UploadRateBurst,
		TranscodeEnabled: tc != nil,
	}, logger, vs, as, db, metrics.New())

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	defer func() {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close error", "error", err)
		}
	}()

	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server error", "error", err)
		return err
	}
	return nil
}
