// Package server initializes and runs the takeoff application server.
// It opens the database, runs migrations, wires the blob store and services,
// and starts the HTTP server with graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/voltio/takeoff-server/internal/logging"
	"github.com/voltio/takeoff-server/internal/server/blobstore"
	"github.com/voltio/takeoff-server/internal/server/config"
	"github.com/voltio/takeoff-server/internal/server/httpapi"
	"github.com/voltio/takeoff-server/internal/server/repositories/repomanager"
	"github.com/voltio/takeoff-server/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if cfg.SecretKey == "" {
		return nil, errors.New("secret key is not configured")
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	blobs, err := blobstore.NewS3Store(ctx, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Region, cfg.S3BaseEndpoint, cfg.S3Bucket)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	us := services.NewUserService(db, rm, cfg)
	ps := services.NewProjectService(db, rm, blobs, logger)

	srv := httpapi.NewServer(cfg, logger, us, ps)

	return &App{config: cfg, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}

	app.logger.Info(ctx, "App stopped")
}
