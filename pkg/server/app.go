package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	applogger "ProScalper/pkg/logger"
)

// Runner is a background loop that stops when its context is done.
type Runner interface {
	Run(ctx context.Context) error
}

// Service is started once and stopped with a deadline.
type Service interface {
	Start() error
	Stop(ctx context.Context) error
}

// Closer releases a resource on shutdown.
type Closer interface {
	Close() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	l               *applogger.Logger
	httpServer      Service
	consumer        Service
	runners         map[string]Runner
	closers         map[string]Closer
	shutdownTimeout time.Duration
	wg              sync.WaitGroup
}

// Option configures App.
type Option func(*App)

// WithConsumer attaches a Kafka consumer (or any Service) started after the runners.
func WithConsumer(s Service) Option {
	return func(a *App) {
		if s != nil {
			a.consumer = s
		}
	}
}

// WithRunner adds a named background loop.
func WithRunner(name string, r Runner) Option {
	return func(a *App) {
		if r != nil {
			a.runners[name] = r
		}
	}
}

// WithCloser adds a named resource closed last during shutdown.
func WithCloser(name string, c Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers[name] = c
		}
	}
}

// WithShutdownTimeout bounds the whole shutdown sequence.
func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.shutdownTimeout = d
		}
	}
}

// New creates a new App around an HTTP server.
func New(l *applogger.Logger, httpServer Service, opts ...Option) *App {
	if l == nil {
		l = applogger.Nop()
	}
	a := &App{
		l:               l,
		httpServer:      httpServer,
		runners:         make(map[string]Runner),
		closers:         make(map[string]Closer),
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx)
}

// Serve starts every component and blocks until ctx is done, then shuts down.
func (a *App) Serve(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for name, r := range a.runners {
		a.wg.Add(1)
		go func(name string, r Runner) {
			defer a.wg.Done()
			if err := r.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.l.Error("app.runner error", applogger.String("runner", name), applogger.Error(err))
			}
		}(name, r)
		a.l.Info("app.runner started", applogger.String("runner", name))
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.l.Error("app.consumer start error", applogger.Error(err))
			cancel()
			a.wg.Wait()
			a.closeAll()
			return err
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("app.http start error", applogger.Error(err))
		if a.consumer != nil {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
			if serr := a.consumer.Stop(stopCtx); serr != nil {
				a.l.Warn("app.consumer stop error", applogger.Error(serr))
			}
			stopCancel()
		}
		cancel()
		a.wg.Wait()
		a.closeAll()
		return err
	}

	<-ctx.Done()
	a.l.Info("app.shutdown signal received")
	return a.shutdown(cancel)
}

// shutdown stops intake first (HTTP, consumer), then the background loops,
// then closes the remaining resources.
func (a *App) shutdown(stopRunners context.CancelFunc) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("app.http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("app.consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	stopRunners()
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.l.Warn("app.runners did not stop in time")
		errs = append(errs, ctx.Err())
	}

	a.closeAll()
	a.l.Info("app.shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeAll() {
	for name, c := range a.closers {
		if err := c.Close(); err != nil {
			a.l.Warn("app.close error", applogger.String("resource", name), applogger.Error(err))
		}
	}
}
