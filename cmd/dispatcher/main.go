// cmd/dispatcher/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mealbell/internal/common/alert"
	"mealbell/internal/common/audit"
	awsclients "mealbell/internal/common/aws"
	"mealbell/internal/common/config"
	"mealbell/internal/common/database"
	"mealbell/internal/common/errors"
	"mealbell/internal/common/feed"
	"mealbell/internal/common/logger"
	"mealbell/internal/common/observability"
	"mealbell/internal/models"
	nmc "mealbell/internal/workers/meals/notify-meal-created"
)

// retryWithBackoff attempts to execute a function with exponential backoff.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting meal dispatcher",
		zap.String("name", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	if cfg.Tracing.Enabled {
		tracing, err := observability.NewTracing(cfg.App.Name, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			zapLog.Fatal("tracing init failed", zap.Error(err))
		}
		defer tracing.Shutdown()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected")

	// --- Optional audit sink ---
	var auditSink *audit.Sink
	if cfg.Audit.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		auditSink = audit.NewSink(esClient, cfg.Audit.Index, log)
		zapLog.Info("Elasticsearch connected")
	}

	// --- Push transport ---
	snsClient, err := awsclients.NewSNSClient(ctx, cfg.Notifications.Push.AWSRegion)
	if err != nil {
		zapLog.Fatal("sns client init failed", zap.Error(err))
	}

	// --- Optional operator alerting ---
	var alerter errors.AlertSender
	if cfg.Alerts.Enabled {
		sesClient, err := awsclients.NewSESClient(ctx, cfg.Alerts.AWSRegion)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		alerter = alert.NewMailer(sesClient, cfg.Alerts.FromEmail, cfg.Alerts.ToEmail, log)
	}

	errHandler := errors.NewHandler(log, alerter)

	// --- Wire the meal worker ---
	workerCfg := nmc.LoadConfig()
	workerCfg.ReferenceLocation = models.NewCoordinate(
		cfg.Notifications.Geofence.ReferenceLat,
		cfg.Notifications.Geofence.ReferenceLng,
	)
	workerCfg.RadiusKm = cfg.Notifications.Geofence.RadiusKm
	workerCfg.DedupeEnabled = cfg.Notifications.Dedupe.Enabled
	workerCfg.DedupeTTL = time.Duration(cfg.Notifications.Dedupe.TTLHrs) * time.Hour
	if wc, ok := cfg.Workers[nmc.TaskType]; ok && wc.Timeout > 0 {
		workerCfg.Timeout = time.Duration(wc.Timeout) * time.Millisecond
	}

	handler := nmc.NewHandler(
		workerCfg,
		nmc.NewPostgresMembershipStore(pg.DB),
		nmc.NewSNSPushSender(snsClient),
		rdb.Client,
		auditSink,
		log,
	)

	consumer := feed.NewConsumer(rdb.Client, feed.ConsumerOptions{
		Stream:    cfg.Feed.Stream,
		Group:     cfg.Feed.Group,
		Consumer:  cfg.Feed.Consumer,
		BatchSize: cfg.Feed.BatchSize,
		Block:     time.Duration(cfg.Feed.BlockMs) * time.Millisecond,
		ClaimIdle: time.Duration(cfg.Feed.ClaimIdleMs) * time.Millisecond,
	}, errHandler, obs, log)

	if wc, ok := cfg.Workers[nmc.TaskType]; !ok || wc.Enabled {
		consumer.Register(handler)
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", nmc.TaskType))
	}

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		zapLog.Info("health/metrics server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			zapLog.Error("health/metrics server failed", zap.Error(err))
		}
	}()

	// --- Consume until shutdown ---
	if err := consumer.Run(ctx); err != nil {
		zapLog.Fatal("feed consumer failed", zap.Error(err))
	}

	zapLog.Info("shutdown signal received, dispatcher stopped")
}
