// Package server assembles the SIC backend from configuration and runs it
// until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/sic/internal/dbx"
	"github.com/dmitrijs2005/sic/internal/logging"
	"github.com/dmitrijs2005/sic/internal/server/audit"
	"github.com/dmitrijs2005/sic/internal/server/auth"
	"github.com/dmitrijs2005/sic/internal/server/config"
	"github.com/dmitrijs2005/sic/internal/server/passwords"
	"github.com/dmitrijs2005/sic/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sic/internal/server/services"
	"github.com/dmitrijs2005/sic/internal/server/sitestate"

	_ "github.com/jackc/pgx/v5/stdlib"

	gs "github.com/dmitrijs2005/sic/internal/server/grpc"
)

var (
	openDB         = sql.Open
	newRepoManager = repomanager.NewPostgresRepositoryManager
	newS3AuditSink = audit.NewS3Sink
	newRedisClient = sitestate.NewRedisClient
)

var logOutput io.Writer = os.Stdout

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	closers    []io.Closer
	accounts   *services.AccountService
	moderation *services.WatcherDog
}

// NewApp opens the database, applies migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(c)
	app := &App{config: c, logger: logger}

	db, err := openDB("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db)

	repos := newRepoManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	sink, err := app.auditSink(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	site, err := app.siteStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	runner := dbx.NewSQLRunner(db, nil)
	tokens := auth.NewTokenService(c.AccessTokenValidityDuration)
	authn := services.NewAuthenticator(c, tokens, runner, repos)
	hasher := passwords.NewHasher(c.BcryptCost)

	app.accounts = services.NewAccountService(runner, repos, authn, hasher, c.UserSecretLength, logger)
	app.moderation = services.NewWatcherDog(runner, repos, authn, site, sink, c.UserSecretLength, logger)

	return app, nil
}

func newLogger(c *config.Config) logging.Logger {
	if c.LogFormat == config.LogFormatConsole {
		return logging.NewConsoleLogger(logOutput, c.Environment)
	}
	return logging.NewJSONLogger(logOutput, c.Environment)
}

// auditSink fans out to the audit file and the S3 archive, whichever are
// configured.
func (app *App) auditSink(ctx context.Context) (audit.Sink, error) {
	var sinks audit.Multi

	if app.config.AuditLogPath != "" {
		fs, err := audit.NewFileSink(app.config.AuditLogPath)
		if err != nil {
			return nil, fmt.Errorf("audit file: %w", err)
		}
		sinks = append(sinks, fs)
	}

	if app.config.S3AuditBucket != "" {
		s3s, err := newS3AuditSink(ctx, audit.S3Options{
			Bucket:       app.config.S3AuditBucket,
			Region:       app.config.S3Region,
			BaseEndpoint: app.config.S3BaseEndpoint,
			AccessKey:    app.config.S3RootUser,
			SecretKey:    app.config.S3RootPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("audit s3: %w", err)
		}
		sinks = append(sinks, s3s)
	}

	switch len(sinks) {
	case 0:
		app.logger.Warn(ctx, "Audit trail disabled")
		return audit.Discard, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

func (app *App) siteStore(ctx context.Context) (sitestate.Store, error) {
	if app.config.RedisAddr == "" {
		return sitestate.NewMemoryStore(), nil
	}

	rdb, err := newRedisClient(ctx, app.config.RedisAddr, app.config.RedisPassword, app.config.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("site state: %w", err)
	}
	app.closers = append(app.closers, rdb)
	return sitestate.NewRedisStore(rdb, sitestate.DefaultKey), nil
}

// Close releases the database and Redis connections.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.accounts, app.moderation)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves gRPC until ctx is cancelled or the process receives
// SIGINT, SIGTERM or SIGQUIT, then closes the app.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "signing_mode", string(app.config.SigningMode))

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Warn(ctx, "close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
