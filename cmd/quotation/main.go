package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/quotation/internal/quotation/cache"
	"github.com/gartstein/quotation/internal/quotation/config"
	"github.com/gartstein/quotation/internal/quotation/controller"
	gorm "github.com/gartstein/quotation/internal/quotation/db"
	"github.com/gartstein/quotation/internal/quotation/events"
	"github.com/gartstein/quotation/internal/quotation/handlers"
	"github.com/gartstein/quotation/internal/quotation/metrics"
	"github.com/gartstein/quotation/internal/quotation/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("failed to load config", zap.Error(err))
	}

	logger := initLogger(cfg)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	repo, err := connectDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	rates := initRateCache(cfg, logger)

	if cfg.SeedFile != "" {
		if err := seedDatabase(context.Background(), repo, rates, cfg.SeedFile, logger); err != nil {
			logger.Fatal("failed to seed database", zap.Error(err))
		}
		logger.Info("seed data applied", zap.String("file", cfg.SeedFile))
	}

	producer := initProducer(cfg, logger)
	defer producer.Close()

	store, err := render.NewFileStore(cfg.DocumentDir)
	if err != nil {
		logger.Fatal("failed to initialize document store", zap.Error(err))
	}
	format, err := render.ParseFormat(cfg.DocumentFormat)
	if err != nil {
		logger.Fatal("invalid document format", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, cfg.MetricsPrefix)

	opts := []controller.Option{
		controller.WithMetrics(m),
		controller.WithAssetsDir(cfg.AssetsDir),
		controller.WithDefaultFormat(format),
	}
	if rates != nil {
		opts = append(opts, controller.WithRateCache(rates))
	}
	quotationSvc := controller.NewQuotationService(repo, render.NewEngine(cfg.CurrencySymbol), store, producer, logger, opts...)

	handler := handlers.NewQuotationHandler(quotationSvc, m, logger)
	routes, err := handler.Routes()
	if err != nil {
		logger.Fatal("failed to register routes", zap.Error(err))
	}

	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger)
	server.RegisterHTTPHandler(handlers.WithMiddleware(routes, handlers.MiddlewareConfig{
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		Production:        cfg.IsProduction(),
		AllowedOrigins:    cfg.CORSAllowedOrigins,
	}, logger))

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// initLogger builds the root logger: JSON in production, console otherwise.
func initLogger(cfg *config.Config) *zap.Logger {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if level, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zcfg.Level = level
	}
	logger, err := zcfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("falling back to default logger", zap.Error(err))
	}
	return logger.With(zap.String("service", "quotation"))
}

// initDatabase maps the service configuration onto the repository's.
func initDatabase(cfg *config.Config) *gorm.Config {
	return &gorm.Config{
		Driver:   cfg.DBDriver,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		Path:     cfg.DBPath,
	}
}

// connectDatabase retries while the database is still coming up.
func connectDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.Repository, error) {
	var repo *gorm.Repository
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Minute

	err := backoff.RetryNotify(func() error {
		var err error
		repo, err = gorm.NewRepository(initDatabase(cfg))
		return err
	}, b, func(err error, next time.Duration) {
		logger.Warn("database not ready, retrying", zap.Error(err), zap.Duration("retry_in", next))
	})
	return repo, err
}

// seedDatabase upserts the seed file and drops cached rates it may have changed.
func seedDatabase(ctx context.Context, repo *gorm.Repository, rates *cache.GSTCache, path string, logger *zap.Logger) error {
	data, err := gorm.LoadSeedFile(path)
	if err != nil {
		return err
	}
	if err := repo.Seed(ctx, data); err != nil {
		return err
	}
	for _, h := range data.HSNRates {
		if err := rates.Invalidate(ctx, h.HSN); err != nil {
			logger.Warn("failed to invalidate cached rate", zap.String("hsn", h.HSN), zap.Error(err))
		}
	}
	return nil
}

// initProducer connects to Kafka when brokers are configured. Without them,
// or when the broker is unreachable, events are discarded.
func initProducer(cfg *config.Config, logger *zap.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("no Kafka brokers configured, events disabled")
		return events.Nop{}
	}
	producer, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
	if err != nil {
		logger.Warn("failed to initialize Kafka producer, events disabled", zap.Error(err))
		return events.Nop{}
	}
	return producer
}

// initRateCache returns nil when Redis is not configured or not reachable.
func initRateCache(cfg *config.Config, logger *zap.Logger) *cache.GSTCache {
	if cfg.RedisAddr == "" {
		return nil
	}
	client, err := cache.New(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("Redis unavailable, HSN rates will not be cached", zap.Error(err))
		return nil
	}
	return cache.NewGSTCache(client, cfg.RedisTTL, logger)
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Servers stopped properly")
}
