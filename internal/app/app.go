// Package app wires configuration, logging, storage, sessions and routing
// together and runs the HTTP server until the process is asked to stop.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/4slk4/simple-note-taking/internal/auth"
	"github.com/4slk4/simple-note-taking/internal/config"
	"github.com/4slk4/simple-note-taking/internal/db/jsondb"
	"github.com/4slk4/simple-note-taking/internal/db/memorystorage"
	"github.com/4slk4/simple-note-taking/internal/db/postgresdb"
	"github.com/4slk4/simple-note-taking/internal/ipchecker"
	"github.com/4slk4/simple-note-taking/internal/logger"
	"github.com/4slk4/simple-note-taking/internal/models"
	"github.com/4slk4/simple-note-taking/internal/password"
	"github.com/4slk4/simple-note-taking/internal/render"
	"github.com/4slk4/simple-note-taking/internal/router"
	"github.com/4slk4/simple-note-taking/internal/service"
	"github.com/4slk4/simple-note-taking/internal/user"
)

type storage interface {
	CreateUser(ctx context.Context, usr *user.User) error
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
	GetUserByName(ctx context.Context, name string) (*user.User, error)
	AddNote(ctx context.Context, userID string, note user.Note) error
	DeleteNote(ctx context.Context, userID, noteID string) error
	GetNumberOfUsers(ctx context.Context) (int64, error)
	GetNumberOfNotes(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

type sessionStore interface {
	Save(ctx context.Context, response http.ResponseWriter, userID string) error
	UserID(ctx context.Context, request *http.Request) (string, error)
	Clear(ctx context.Context, response http.ResponseWriter, request *http.Request) error
}

const shutdownTimeout = 10 * time.Second

// App holds everything needed to serve the notes application.
type App struct {
	cfg         *config.Config
	db          storage
	rdb         *redis.Client
	httpHandler http.Handler
}

// New loads the configuration and builds the application from it.
func New() (*App, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}

	return NewWithConfig(cfg)
}

// NewWithConfig builds the application from an already loaded configuration.
func NewWithConfig(cfg *config.Config) (*App, error) {
	var err error
	app := &App{cfg: cfg}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	sessions, err := app.getSessionStore()
	if err != nil {
		return nil, errors.Join(err, app.db.Close())
	}

	pages, err := render.New()
	if err != nil {
		return nil, errors.Join(err, app.closeResources())
	}

	guard, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, errors.Join(err, app.closeResources())
	}

	app.httpHandler = router.New(
		service.New(app.db, password.NewHasher(app.cfg.BcryptCost)),
		auth.New(app.db, sessions),
		pages,
		guard,
	)

	return app, nil
}

// Handler exposes the routed HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.serve(ctx)
}

func (a *App) serve(ctx context.Context) error {
	logger.Log.Infow("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infow("Received shutdown signal. Closing storage and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Join(fmt.Errorf("server shutdown error: %w", err), a.closeResources())
		}

		return a.closeResources()

	case err := <-serverErrCh:
		return errors.Join(fmt.Errorf("server error: %w", err), a.closeResources())
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Fprintln(os.Stderr, "Logger sync error:", err)
	}
}

func (a *App) closeResources() error {
	var errs []error
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
	}
	errs = append(errs, a.db.Close())

	return errors.Join(errs...)
}

func (a *App) getSessionStore() (sessionStore, error) {
	if a.cfg.SessionRedisURL == "" {
		return auth.NewJWTSessions(a.cfg.SessionCookieName, []byte(a.cfg.SessionSecret), a.cfg.SessionTTL), nil
	}

	options, err := redis.ParseURL(a.cfg.SessionRedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse session redis url: %w", err)
	}
	a.rdb = redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(context.Background(), a.cfg.DBConnectionTimeout)
	defer cancel()
	if err := a.rdb.Ping(pingCtx).Err(); err != nil {
		logger.Log.Errorw("Error calling the `a.rdb.Ping()`", zap.Error(err))
		closeErr := a.rdb.Close()
		a.rdb = nil
		return nil, errors.Join(fmt.Errorf("redis ping: %w", err), closeErr)
	}

	return auth.NewRedisSessions(a.rdb, a.cfg.SessionCookieName, a.cfg.SessionTTL), nil
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
