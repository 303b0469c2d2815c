// Package server initializes and runs the gophtasks backend. It opens the
// database, applies migrations, wires services into the REST server and the
// cleanup scheduler, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophtasks/internal/logging"
	"github.com/dmitrijs2005/gophtasks/internal/server/cleanup"
	"github.com/dmitrijs2005/gophtasks/internal/server/config"
	"github.com/dmitrijs2005/gophtasks/internal/server/oauth"
	"github.com/dmitrijs2005/gophtasks/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophtasks/internal/server/rest"
	"github.com/dmitrijs2005/gophtasks/internal/server/services"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	rest      *rest.Server
	scheduler *cleanup.Scheduler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	base := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := repomanager.OpenDB(ctx, c.DSN(), repomanager.PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	logger := logging.NewPersistentLogger(base, rm.Logs(db), logging.ParseLevel(c.LogLevel))

	ss := services.NewSessionService(db, rm, c, logger)
	ts := services.NewTaskService(db, rm, logger)
	provider := oauth.NewGoogleProvider(c.GoogleClientID, c.GoogleClientSecret, c.GoogleCallbackURL)

	scheduler, err := cleanup.NewScheduler(c.CleanupSchedule, ss, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		rest:      rest.NewServer(c, logger, ss, ts, provider),
		scheduler: scheduler,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startRESTServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.rest.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a termination signal arrives or the HTTP server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startRESTServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.scheduler.Run(ctx)
	}()

	wg.Wait()

	app.logger.Info(context.WithoutCancel(ctx), "App stopped")

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.WithoutCancel(ctx), "error closing database", "error", err.Error())
	}
}
