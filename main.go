package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/IliaW/robots-gate/config"
	"github.com/IliaW/robots-gate/internal/aws_sqs"
	"github.com/IliaW/robots-gate/internal/broker"
	cacheClient "github.com/IliaW/robots-gate/internal/cache"
	"github.com/IliaW/robots-gate/internal/content"
	"github.com/IliaW/robots-gate/internal/fetcher"
	"github.com/IliaW/robots-gate/internal/persistence"
	"github.com/IliaW/robots-gate/internal/robots"
	"github.com/IliaW/robots-gate/internal/telemetry"
	"github.com/IliaW/robots-gate/internal/worker"
	_ "github.com/lib/pq"
	"github.com/lmittmann/tint"
)

type messageBroker interface {
	broker.Consumer
	broker.Router
	Close()
}

var (
	cfg        *config.Config
	db         *sql.DB
	cache      cacheClient.CachedClient
	statusRepo persistence.StatusStorage
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg = config.MustLoad()
	setupLogger()
	metrics := telemetry.SetupMetrics(context.Background(), cfg)
	defer metrics.Close()
	db = setupDatabase()
	defer closeDatabase()
	statusRepo = persistence.NewStatusRepository(db)
	cache = cacheClient.NewCachedClient(cfg.CacheSettings)
	defer cache.Close()
	httpFetcher := fetcher.NewHttpFetcher(setupHttpClient(), cfg.DaemonSettings,
		fetcher.NewRateLimiter(cfg.WorkerSettings))
	kafkaDLQ := broker.NewKafkaDLQ(cfg.ServiceName, cfg.KafkaSettings.DLQ, metrics.DLQMetrics)
	defer kafkaDLQ.Close()
	msgBroker := setupBroker(metrics.BrokerMetrics)
	defer msgBroker.Close()
	slog.Info("starting application on port "+cfg.Port, slog.String("env", cfg.Env),
		slog.String("queue", cfg.DaemonSettings.Queue), slog.String("exchange", cfg.DaemonSettings.Exchange))

	inputChan, err := msgBroker.Consume(ctx)
	if err != nil {
		slog.Error("failed to start consuming.", slog.String("err", err.Error()))
		os.Exit(1)
	}

	robotsGateWorker := &worker.RobotsGateWorker{
		InputChan: inputChan,
		Robots: robots.NewRobotsCache(cache, httpFetcher, cfg.DaemonSettings.CacheTtl(),
			metrics.RobotsMetrics),
		Content: content.NewGate(httpFetcher, cfg.DaemonSettings.MaxContentLength),
		Db:      statusRepo,
		Router:  msgBroker,
		DLQ:     kafkaDLQ,
		Cfg:     cfg.DaemonSettings,
		Metrics: metrics.AppMetrics,
	}

	go healthCheckHandler()

	// Graceful shutdown.
	// 1. Stop the consumer by system call. It closes inputChan.
	// 2. The worker finishes the message in progress and returns.
	// 3. Close broker, kafka, cache and database connections.
	// The worker context is not cancelled by the signal, so the message in progress is never cut off.
	if err = robotsGateWorker.Run(context.Background()); err != nil {
		slog.Error("worker stopped with error.", slog.String("err", err.Error()))
		exit(1)
	}
	if ctx.Err() == nil {
		slog.Error("message channel closed by the broker.")
		exit(1)
	}
	slog.Info("server stopped.")
}

// exit closes the connections that deferred calls would otherwise skip.
func exit(code int) {
	cache.Close()
	closeDatabase()
	os.Exit(code)
}

func setupBroker(metrics *telemetry.BrokerMetrics) messageBroker {
	switch strings.ToLower(cfg.BrokerSettings.Type) {
	case "sqs":
		return aws_sqs.NewSQSClient(cfg, metrics)
	case "amqp", "":
		return broker.NewAMQPClient(cfg, metrics)
	default:
		slog.Error("unknown broker type.", slog.String("type", cfg.BrokerSettings.Type))
		os.Exit(1)
	}
	return nil
}

func setupLogger() *slog.Logger {
	envLogLevel := strings.ToLower(cfg.LogLevel)
	var slogLevel slog.Level
	err := slogLevel.UnmarshalText([]byte(envLogLevel))
	if err != nil {
		log.Printf("encountenred log level: '%s'. The package does not support custom log levels", envLogLevel)
		slogLevel = slog.LevelDebug
	}
	log.Printf("slog level overwritten to '%v'", slogLevel)
	slog.SetLogLoggerLevel(slogLevel)

	replaceAttrs := func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.SourceKey {
			source := a.Value.Any().(*slog.Source)
			source.File = filepath.Base(source.File)
		}
		return a
	}

	var logger *slog.Logger
	if strings.ToLower(cfg.LogType) == "json" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			AddSource:   true,
			Level:       slogLevel,
			ReplaceAttr: replaceAttrs}))
	} else {
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			AddSource:   true,
			Level:       slogLevel,
			ReplaceAttr: replaceAttrs,
			NoColor: func() bool {
				if cfg.Env == "local" {
					return false
				}
				return true
			}()}))
	}

	slog.SetDefault(logger)
	logger.Debug("debug messages are enabled.")

	return logger
}

func setupDatabase() *sql.DB {
	slog.Info("connecting to the database...")
	connStr := fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
		cfg.DbSettings.User,
		cfg.DbSettings.Password,
		cfg.DbSettings.Host,
		cfg.DbSettings.Port,
		cfg.DbSettings.Name,
	)
	database, err := sql.Open("postgres", connStr)
	if err != nil {
		slog.Error("failed to establish database connection.", slog.String("err", err.Error()))
		os.Exit(1)
	}
	database.SetConnMaxLifetime(cfg.DbSettings.ConnMaxLifetime)
	database.SetMaxOpenConns(cfg.DbSettings.MaxOpenConns)
	database.SetMaxIdleConns(cfg.DbSettings.MaxIdleConns)

	maxRetry := 6
	for i := 1; i <= maxRetry; i++ {
		slog.Info("ping the database.", slog.String("attempt", fmt.Sprintf("%d/%d", i, maxRetry)))
		pingErr := database.Ping()
		if pingErr != nil {
			slog.Error("not responding.", slog.String("err", pingErr.Error()))
			if i == maxRetry {
				slog.Error("failed to establish database connection.")
				os.Exit(1)
			}
			slog.Info(fmt.Sprintf("wait %d seconds", 5*i))
			time.Sleep(time.Duration(5*i) * time.Second)
		} else {
			break
		}
	}
	slog.Info("connected to the database!")

	return database
}

func closeDatabase() {
	slog.Info("closing database connection.")
	err := db.Close()
	if err != nil {
		slog.Error("failed to close database connection.", slog.String("err", err.Error()))
	}
}

func setupHttpClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        cfg.HttpClientSettings.MaxIdleConnections,
		MaxIdleConnsPerHost: cfg.HttpClientSettings.MaxIdleConnectionsPerHost,
		MaxConnsPerHost:     cfg.HttpClientSettings.MaxConnectionsPerHost,
		IdleConnTimeout:     cfg.HttpClientSettings.IdleConnectionTimeout,
		TLSHandshakeTimeout: cfg.HttpClientSettings.TlsHandshakeTimeout,
		DialContext: (&net.Dialer{
			Timeout:   cfg.HttpClientSettings.DialTimeout,
			KeepAlive: cfg.HttpClientSettings.DialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.HttpClientSettings.TlsInsecureSkipVerify,
		},
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.HttpClientSettings.RequestTimeout,
	}
}

func healthCheckHandler() {
	http.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	if err := http.ListenAndServe(":"+cfg.Port, nil); err != nil {
		slog.Error("http server error", slog.String("err", err.Error()))
	}
}
