package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mid "FinSignal/internal/middleware"
	"FinSignal/internal/scheduler"
	"FinSignal/internal/usecase"
	"FinSignal/pkg/config"
	xhttp "FinSignal/pkg/http"
	pkgkafka "FinSignal/pkg/kafka"
	applogger "FinSignal/pkg/logger"
)

// App encapsulates the service lifecycle: bar ingest, scheduled
// generation and the HTTP API. Infrastructure clients are closed by the
// cleanup function returned from DI, not by App.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	generator  *usecase.SignalGenerator
	backtests  *usecase.BacktestRunner
	scheduler  *scheduler.Scheduler
	pipeline   *mid.BarPipeline
	consumer   *pkgkafka.Consumer
	httpServer *xhttp.Server
}

type Option func(*App)

func WithScheduler(s *scheduler.Scheduler) Option {
	return func(a *App) { a.scheduler = s }
}

func WithBarPipeline(p *mid.BarPipeline) Option {
	return func(a *App) { a.pipeline = p }
}

// WithConsumer enables the Kafka bar consumer.
func WithConsumer(c *pkgkafka.Consumer) Option {
	return func(a *App) { a.consumer = c }
}

func WithHTTPServer(s *xhttp.Server) Option {
	return func(a *App) { a.httpServer = s }
}

func New(cfg *config.Config, logger *applogger.Logger, gen *usecase.SignalGenerator, backtests *usecase.BacktestRunner, opts ...Option) *App {
	if logger == nil {
		logger = applogger.Nop()
	}
	a := &App{cfg: cfg, logger: logger, generator: gen, backtests: backtests}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *App) Config() *config.Config              { return a.cfg }
func (a *App) Logger() *applogger.Logger           { return a.logger }
func (a *App) Generator() *usecase.SignalGenerator { return a.generator }
func (a *App) Backtests() *usecase.BacktestRunner  { return a.backtests }
func (a *App) HTTPServer() *xhttp.Server           { return a.httpServer }

// Run starts every configured component and blocks until SIGINT/SIGTERM,
// ctx cancellation or a fatal HTTP server error.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The pipeline outlives the signal context so bars still buffered
	// during shutdown are flushed until Stop.
	if a.pipeline != nil {
		a.pipeline.Start(context.WithoutCancel(ctx))
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.shutdown()
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.logger.Info("kafka consumer started", applogger.String("topic", a.cfg.Kafka.BarsTopic))
	}

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	var serverErr <-chan error
	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.shutdown()
			return fmt.Errorf("http server: %w", err)
		}
		serverErr = a.httpServer.Err()
		a.logger.Info("http server started", applogger.Int("port", a.cfg.Server.Port))
	}

	a.logger.Info("finsignal running", applogger.Strings("symbols", a.cfg.Symbols))

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-serverErr:
		a.logger.Error("http server failed", applogger.Error(err))
		runErr = err
	}

	a.shutdown()
	return runErr
}

// shutdown stops producers of work before their consumers: HTTP and the
// scheduler first, then the Kafka consumer, then the bar pipeline.
func (a *App) shutdown() {
	a.logger.Info("shutting down...")

	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Warn("http shutdown error", applogger.Error(err))
		}
		cancel()
	}

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	if a.consumer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
		cancel()
	}

	if a.pipeline != nil {
		a.pipeline.Stop()
	}

	a.logger.Info("shutdown complete")
}
