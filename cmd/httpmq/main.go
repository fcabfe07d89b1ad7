// Command httpmq runs the in-memory message queue server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"dev.httpmq.broker/internal/broker"
	"dev.httpmq.broker/internal/config"
	"dev.httpmq.broker/internal/middleware"
	"dev.httpmq.broker/internal/observability"
	"dev.httpmq.broker/internal/observability/metrics"
	"dev.httpmq.broker/internal/router"
	"dev.httpmq.broker/internal/version"
)

var (
	showVersion = flag.Bool("version", false, "Show version information")
	showHelp    = flag.Bool("help", false, "Show help message")
)

// AppConfig carries process-level knobs. Tests inject their own logger and
// shutdown signal.
type AppConfig struct {
	ShowVersion    bool
	ShowHelp       bool
	Logger         *logrus.Logger
	ShutdownSignal chan os.Signal
}

// DefaultAppConfig returns the default application configuration.
func DefaultAppConfig() *AppConfig {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &AppConfig{
		Logger:         logger,
		ShutdownSignal: nil,
	}
}

// configureLogger applies the configured level and format to the logger.
func configureLogger(logger *logrus.Logger, cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

// brokerLogger builds the structured logger the broker and sweeper write to.
func brokerLogger(cfg config.LoggingConfig) *zap.Logger {
	var zlog *zap.Logger
	var err error
	if cfg.Format == "json" {
		zlog, err = zap.NewProduction()
	} else {
		zlog, err = zap.NewDevelopment()
	}
	if err != nil {
		return zap.NewNop()
	}
	return zlog
}

// run executes the main application logic with the given configuration.
func run(appCfg *AppConfig) error {
	logger := appCfg.Logger
	if logger == nil {
		logger = logrus.New()
	}

	if appCfg.ShowVersion {
		fmt.Println(version.Get().String())
		return nil
	}
	if appCfg.ShowHelp {
		flag.Usage()
		return nil
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	configureLogger(logger, cfg.Logging)

	logger.WithFields(logrus.Fields{
		"version": version.Short(),
		"addr":    cfg.Server.Addr(),
	}).Info("Starting httpmq")

	if cfg.Admin.AuthKey == "" {
		logger.Warn("AUTH_KEY is not set, admin endpoints will reject every request")
	}

	// Tracing
	if err := observability.InitGlobalTracer(&observability.TracerConfig{
		ServiceName:      cfg.Tracing.ServiceName,
		ServiceVersion:   version.Version,
		ExporterType:     observability.ExporterType(cfg.Tracing.Exporter),
		ExporterEndpoint: cfg.Tracing.Endpoint,
	}); err != nil {
		logger.WithError(err).Warn("Failed to initialize tracer, continuing without tracing")
	}
	traceProvider, err := observability.SetupTraceExporter(context.Background(), &observability.ExporterConfig{
		Type:        observability.ExporterType(cfg.Tracing.Exporter),
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version.Version,
	})
	if err != nil {
		logger.WithError(err).Warn("Failed to set up trace exporter, continuing without export")
	}

	// Broker and sweeper
	zlog := brokerLogger(cfg.Logging)
	defer func() { _ = zlog.Sync() }()

	b := broker.New(&broker.Config{
		SessionTTL: cfg.Broker.SessionTTL,
		Logger:     zlog,
	})

	collector := metrics.NewCollector(func() (int, int, int) {
		stats := b.Stats()
		return stats.Sessions, stats.Topics, stats.Messages
	})

	sweeper := broker.NewSweeper(b, broker.SweeperConfig{
		Interval: cfg.Broker.SweepInterval,
		OnSweep: func(sessionsSwept, messagesSwept int) {
			collector.RecordSweep(sessionsSwept, messagesSwept)
			observability.GetTracer().RecordSweep(context.Background(), sessionsSwept, messagesSwept)
		},
	}, zlog)
	if err := sweeper.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}

	// Rate limiting
	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		})
		logger.WithFields(logrus.Fields{
			"requests_per_minute": cfg.RateLimit.RequestsPerMinute,
			"burst":               cfg.RateLimit.Burst,
		}).Info("Rate limiting enabled")
	}

	engine := router.SetupRouter(cfg, router.Dependencies{
		Broker:    b,
		Collector: collector,
		Limiter:   limiter,
		Logger:    logger,
	})
	srv := router.NewServer(cfg, engine, logger)

	// Channel for server errors
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Use provided shutdown signal or create one
	quit := appCfg.ShutdownSignal
	if quit == nil {
		quit = make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	}

	select {
	case err := <-serverErr:
		sweeper.Stop()
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
		// Continue to shutdown
	}

	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Server shutdown was not clean")
	}

	sweeper.Stop()
	if limiter != nil {
		limiter.Close()
	}
	if traceProvider != nil {
		if err := observability.ShutdownTraceExporter(shutdownCtx, traceProvider); err != nil {
			logger.WithError(err).Warn("Trace exporter shutdown was not clean")
		}
	}

	logger.Info("Server shutdown complete")
	return nil
}

func main() {
	// Load environment variables from a .env file when one is present.
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			logrus.WithError(err).Debug("Could not load .env file")
		}
	}

	flag.Parse()

	appCfg := DefaultAppConfig()
	appCfg.ShowVersion = *showVersion
	appCfg.ShowHelp = *showHelp

	if err := run(appCfg); err != nil {
		appCfg.Logger.WithError(err).Fatal("Application failed")
	}
}
