// Package app initializes and runs the contact book service.
// It configures logging, storage, authentication, the login throttle and
// routing, and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/contactbook/internal/auth"
	"github.com/patric-chuzhbe/contactbook/internal/config"
	"github.com/patric-chuzhbe/contactbook/internal/db/memorystorage"
	"github.com/patric-chuzhbe/contactbook/internal/db/postgresdb"
	"github.com/patric-chuzhbe/contactbook/internal/db/sqlitedb"
	"github.com/patric-chuzhbe/contactbook/internal/db/storage"
	"github.com/patric-chuzhbe/contactbook/internal/ipchecker"
	"github.com/patric-chuzhbe/contactbook/internal/limiter"
	"github.com/patric-chuzhbe/contactbook/internal/logger"
	"github.com/patric-chuzhbe/contactbook/internal/models"
	"github.com/patric-chuzhbe/contactbook/internal/router"
	"github.com/patric-chuzhbe/contactbook/internal/service"
)

// App encapsulates the configuration, HTTP handler, storage backend and the
// optional Redis client needed to run the service.
type App struct {
	cfg         *config.Config
	db          storage.Storage
	redis       *redis.Client
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - connecting the login throttle when Redis is configured
// - setting up the router and middleware
func New(optionsProto ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(optionsProto...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	checker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}

	issuer := auth.NewIssuer([]byte(app.cfg.AccessTokenSecret), app.cfg.AccessTokenTTL)

	var userOptions []service.UserServiceOption
	if app.cfg.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: app.cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), app.cfg.DBConnectionTimeout)
		if err := app.redis.Ping(pingCtx).Err(); err != nil {
			logger.Log.Warnw("redis is unreachable, login throttle fails open until it recovers", "addr", app.cfg.RedisAddr, zap.Error(err))
		}
		cancel()

		userOptions = append(userOptions, service.WithLoginLimiter(limiter.NewLoginLimiter(
			app.redis,
			limiter.Config{
				MaxAttempts: app.cfg.LoginMaxAttempts,
				Cooldown:    app.cfg.LoginCooldown,
			},
		)))
	}

	app.httpHandler = router.New(
		service.NewUserService(app.db, issuer, userOptions...),
		service.NewContactService(app.db),
		auth.New(issuer, router.WriteError),
		checker,
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", a.cfg.RunAddr)
	if err != nil {
		return fmt.Errorf("in internal/app/app.go/Run(): error while `net.Listen()` calling: %w", err)
	}

	return a.serve(ctx, listener)
}

// serve blocks until ctx is done or the server fails. On shutdown it stops
// accepting, drains in-flight requests, then closes the storage.
func (a *App) serve(ctx context.Context, listener net.Listener) error {
	logger.Log.Infoln("server running", "RunAddr", listener.Addr().String())

	server := &http.Server{
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Draining requests and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.closeResources()

	case err := <-serverErrCh:
		closeErr := a.closeResources()
		if errors.Is(err, http.ErrServerClosed) {
			return closeErr
		}
		return errors.Join(fmt.Errorf("server error: %w", err), closeErr)
	}
}

func (a *App) closeResources() error {
	var errs []error
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage close error: %w", err))
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.SQLitePath != "" {
		return models.StorageTypeSQLite
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeSQLite:
		return sqlitedb.New(
			context.Background(),
			cfg.SQLitePath,
			cfg.DBConnectionTimeout,
		)
	}

	return memorystorage.New()
}
