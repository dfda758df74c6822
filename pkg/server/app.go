package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "FxCast/pkg/http"
	pkgkafka "FxCast/pkg/kafka"
	applogger "FxCast/pkg/logger"
)

// Background is a component that runs beside the HTTP server, such as a job queue.
type Background interface {
	Start() error
	Stop(ctx context.Context) error
}

// App runs the HTTP server, the optional Kafka consumer and any background
// components until interrupted.
type App struct {
	log             *applogger.Logger
	httpServer      *xhttp.Server
	consumer        *pkgkafka.Consumer
	handlers        []pkgkafka.MessageHandler
	background      []Background
	shutdownTimeout time.Duration
}

// New creates an App. consumer may be nil; handlers are registered on it at Run.
func New(l *applogger.Logger, httpServer *xhttp.Server, consumer *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) *App {
	if l == nil {
		l = applogger.Nop()
	}
	timeout := 10 * time.Second
	if httpServer != nil {
		timeout = httpServer.ShutdownTimeout()
	}
	return &App{
		log:             l,
		httpServer:      httpServer,
		consumer:        consumer,
		handlers:        handlers,
		shutdownTimeout: timeout,
	}
}

// WithBackground adds components started before the HTTP server and stopped after it.
func (a *App) WithBackground(bg ...Background) *App {
	a.background = append(a.background, bg...)
	return a
}

// Run starts every component and blocks until SIGINT, SIGTERM or ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a.httpServer == nil {
		return errors.New("no http server configured")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.consumer != nil && len(a.handlers) > 0 {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
		}
		if err := a.consumer.Start(); err != nil {
			return err
		}
	}

	for i, bg := range a.background {
		if err := bg.Start(); err != nil {
			a.stopBackground(a.background[:i])
			return err
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops the HTTP server first so no new snapshot publishes events and no
// job is queued, then drains the background components and the consumer.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	for _, bg := range a.background {
		if err := bg.Stop(ctx); err != nil {
			a.log.Warn("background stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.consumer != nil && len(a.handlers) > 0 {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) stopBackground(started []Background) {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	for _, bg := range started {
		_ = bg.Stop(ctx)
	}
}
