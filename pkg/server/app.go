package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "PulseTrade/internal/domain/repository"
	"PulseTrade/internal/usecase"
	"PulseTrade/pkg/config"
	xhttp "PulseTrade/pkg/http"
	applogger "PulseTrade/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	collector  *usecase.FeedCollector
	evaluator  *usecase.Evaluator
	journal    drepo.Journal
	handler    xhttp.Handler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.FeedCollector,
	evaluator *usecase.Evaluator,
	journal drepo.Journal,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		collector: collector,
		evaluator: evaluator,
		journal:   journal,
		handler:   handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.log),
	)

	go func() {
		if err := a.collector.Start(ctx); err != nil {
			a.log.Error("collector error", applogger.Error(err))
		}
	}()
	a.log.Info("collector started", applogger.Strings("symbols", a.cfg.Deriv.Symbols))

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if err := a.collector.Shutdown(ctx); err != nil {
		a.log.Warn("collector stop error", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Warn("journal close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
