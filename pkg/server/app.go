package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "VolPulse/internal/middleware"
	"VolPulse/internal/usecase"
	"VolPulse/pkg/config"
	xhttp "VolPulse/pkg/http"
	applogger "VolPulse/pkg/logger"
)

// Feed produces batches for the ingestor (finnhub aggregator or kafka consumer).
type Feed interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	feed       Feed
	dispatcher *mid.AlertDispatcher
	publisher  *usecase.SnapshotPublisher
	archiver   *mid.TransitionArchiver
	httpServer *xhttp.Server
	closers    []io.Closer
}

// New creates a new App instance. feed and archiver may be nil; closers
// are closed last, in order.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	feed Feed,
	dispatcher *mid.AlertDispatcher,
	publisher *usecase.SnapshotPublisher,
	archiver *mid.TransitionArchiver,
	httpServer *xhttp.Server,
	closers []io.Closer,
) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		log:        log.Component("app"),
		feed:       feed,
		dispatcher: dispatcher,
		publisher:  publisher,
		archiver:   archiver,
		httpServer: httpServer,
		closers:    closers,
	}
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Start launches background workers, the HTTP server and finally the feed.
func (a *App) Start(ctx context.Context) error {
	if a.archiver != nil {
		a.archiver.Start(ctx)
	}
	a.publisher.Start(ctx)
	a.dispatcher.Start(ctx)

	if err := a.httpServer.Start(); err != nil {
		return err
	}

	if a.feed != nil {
		if err := a.feed.Start(ctx); err != nil {
			a.log.Error("feed start error", applogger.Error(err))
			return err
		}
		a.log.Info("feed started", applogger.String("source", a.cfg.Feed.Source))
	}
	return nil
}

// Shutdown stops components in reverse start order.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down")

	if a.feed != nil {
		if err := a.feed.Shutdown(ctx); err != nil {
			a.log.Warn("feed stop error", applogger.Error(err))
		}
	}
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if err := a.dispatcher.Stop(ctx); err != nil {
		a.log.Warn("alert dispatcher stop error", applogger.Error(err))
	}
	a.publisher.Stop()
	if a.archiver != nil {
		a.archiver.Stop()
	}
	for _, c := range a.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg != nil && a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}
