package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"BitDCA/internal/usecase"
	"BitDCA/pkg/config"
	xhttp "BitDCA/pkg/http"
	pkgkafka "BitDCA/pkg/kafka"
	applogger "BitDCA/pkg/logger"
	"BitDCA/pkg/queue"
)

const sweepInterval = time.Minute

type closer struct {
	name string
	c    io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg      *config.Config
	l        *applogger.Logger
	http     *xhttp.Server
	sessions *usecase.SessionManager

	consumer *pkgkafka.Consumer
	handlers []pkgkafka.MessageHandler
	queue    *queue.RedisQueue
	jobs     []queue.Job
	closers  []closer

	cancel context.CancelFunc
}

// Option attaches optional background components.
type Option func(*App)

// WithConsumer runs c with the given handlers; a nil consumer is ignored.
func WithConsumer(c *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) Option {
	return func(a *App) {
		if c != nil {
			a.consumer = c
			a.handlers = append(a.handlers, handlers...)
		}
	}
}

// WithQueue runs q with the given jobs; a nil queue is ignored.
func WithQueue(q *queue.RedisQueue, jobs ...queue.Job) Option {
	return func(a *App) {
		if q != nil {
			a.queue = q
			a.jobs = append(a.jobs, jobs...)
		}
	}
}

// WithCloser registers a resource closed on shutdown, in reverse order.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, closer{name: name, c: c})
		}
	}
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server, sessions *usecase.SessionManager, opts ...Option) *App {
	if l == nil {
		l = applogger.Nop()
	}
	a := &App{cfg: cfg, l: l, http: srv, sessions: sessions}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.l.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Start launches the background workers and the HTTP listener.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	if a.sessions != nil {
		go a.sessions.RunSweeper(ctx, sweepInterval)
	}

	if a.queue != nil {
		for _, j := range a.jobs {
			a.queue.RegisterJob(j)
		}
		if err := a.queue.Start(); err != nil {
			return err
		}
		a.l.Info("job queue started", applogger.Int("jobs", len(a.jobs)))
	}

	if a.consumer != nil && len(a.handlers) > 0 {
		topics := make([]string, 0, len(a.handlers))
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			topics = append(topics, h.Topic())
		}
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.l.Info("kafka consumer started", applogger.Strings("topics", topics))
	}

	if err := a.http.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("strategy", a.cfg.Engine.DefaultStrategy),
	)
	return nil
}

// Shutdown stops the listener first, then the workers, then closes resources.
func (a *App) Shutdown(ctx context.Context) error {
	a.l.Info("shutting down...")
	var errs []error

	if err := a.http.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.l.Warn("job queue stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.c.Close(); err != nil {
			a.l.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}
