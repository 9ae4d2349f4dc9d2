package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"

	"github.com/mohamedelfert/bayut-dubizzle-xml/config"
	"github.com/mohamedelfert/bayut-dubizzle-xml/internal/repositories/property"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/crm"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/database"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/events"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/httpclient"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/importer"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/kafka"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/mapper"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/middleware"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/redis"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/routes/health"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/routes/imports"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/routes/properties"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/scheduler"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/startup"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/tracing"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/validation"
)

const version = "1.0.0"

func main() {
	root := &cobra.Command{
		Use:   "propertysync",
		Short: "CRM property import pipeline and portal feed service",
	}
	root.AddCommand(serveCommand(), importCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the wired service dependencies.
type app struct {
	cfg             *config.Config
	logger          ectologger.Logger
	db              database.DB
	redis           *redis.Client
	producer        *kafka.Producer
	repo            *property.Repository
	importer        *importer.Importer
	tracingShutdown func(context.Context) error
}

type dependency struct {
	name  string
	start func(ctx context.Context) error
	stop  func(ctx context.Context) error
}

func (d *dependency) GetName() string                 { return d.name }
func (d *dependency) Start(ctx context.Context) error { return d.start(ctx) }
func (d *dependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}

func newLogger(cfg *config.Config) (ectologger.Logger, error) {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), nil
}

// bootstrap loads config, starts infrastructure dependencies and wires the
// import pipeline.
func bootstrap(ctx context.Context) (*app, *startup.Startup, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tracingShutdown, err := tracing.Init(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	a := &app{
		cfg:             cfg,
		logger:          logger,
		tracingShutdown: tracingShutdown,
	}

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)

	boot.AddDependency(&dependency{
		name: "database",
		start: func(ctx context.Context) error {
			db, err := database.Connect(ctx, cfg, logger)
			if err != nil {
				return err
			}

			driver, err := postgres.WithInstance(db.Unwrap().DB, &postgres.Config{})
			if err != nil {
				db.Close()
				return err
			}

			migrations := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
			})
			if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
				db.Close()
				return err
			}

			a.db = db
			return nil
		},
		stop: func(ctx context.Context) error {
			if a.db == nil {
				return nil
			}
			return a.db.Close()
		},
	})

	if err := boot.Start(ctx); err != nil {
		return nil, nil, err
	}

	// Redis is a token cache; running without it just means every import
	// authenticates from scratch.
	var tokenCache *crm.TokenCache
	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, continuing without token cache")
	} else {
		a.redis = redisClient
		tokenCache = crm.NewTokenCache(redisClient, logger)
	}

	a.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      strings.Split(cfg.KafkaBrokers, ","),
		Topic:        cfg.KafkaImportTopic,
		BatchSize:    100,
		BatchTimeout: time.Second,
		RequiredAcks: 1,
	}, logger)

	httpClient := httpclient.NewClient(httpclient.DefaultConfig(), logger)
	source := crm.NewClient(httpClient, tokenCache, cfg, logger)
	emitter := events.NewEmitter(a.producer, logger)

	a.repo = property.NewRepository(a.db, logger)
	a.importer = importer.New(source, a.repo, mapper.New(logger), validation.New(), emitter, logger)

	return a, boot, nil
}

func (a *app) close(ctx context.Context) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close Kafka producer")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close Redis client")
		}
	}
	if a.tracingShutdown != nil {
		if err := a.tracingShutdown(ctx); err != nil {
			a.logger.WithError(err).Warn("Failed to shut down tracing")
		}
	}
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the import scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, boot, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.Background())
			defer boot.Stop(context.Background())

			e := echo.New()
			e.HideBanner = true
			e.HTTPErrorHandler = middleware.Error(a.logger)
			e.Use(middleware.Context())
			e.Use(middleware.Logger(a.logger))
			e.Use(otelecho.Middleware(a.cfg.AppName))

			e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

			var redisProbe health.Pinger
			if a.redis != nil {
				redisProbe = a.redis
			}
			checker := health.NewChecker(a.db, redisProbe, version)
			checker.RegisterRoutes(e)
			properties.NewHandler(a.repo, a.logger).RegisterRoutes(e)
			imports.NewHandler(a.importer, a.logger).RegisterRoutes(e)

			var sched *scheduler.Scheduler
			if a.cfg.SchedulerEnabled {
				sched = scheduler.New(func(ctx context.Context) error {
					_, err := a.importer.Run(ctx)
					return err
				}, a.cfg.SchedulerInterval, a.logger)
				sched.Start(ctx)
				defer sched.Stop()
			}

			go func() {
				addr := fmt.Sprintf(":%d", a.cfg.Port)
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					a.logger.WithError(err).Error("HTTP server stopped")
					stop()
				}
			}()
			checker.SetReady(true)

			<-ctx.Done()
			a.logger.Info("Shutting down")
			checker.SetReady(false)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}
}

func importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Run a single import and print the run report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, boot, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.Background())
			defer boot.Stop(context.Background())

			report, err := a.importer.Run(ctx)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
