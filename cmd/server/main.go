package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restaurant-ledger/config"
	"restaurant-ledger/internal/api"
	"restaurant-ledger/internal/broker"
	"restaurant-ledger/internal/redisclient"
	"restaurant-ledger/internal/service"
	"restaurant-ledger/internal/store"
	"restaurant-ledger/internal/util"
	"restaurant-ledger/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting restaurant ledger", zap.String("env", cfg.Server.Env))

	if cfg.Observ.JaegerEndpoint != "" {
		tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Warn("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	checks := map[string]api.ReadyCheck{}

	var repo store.Repository
	switch cfg.Database.Driver {
	case config.DriverMemory:
		repo = store.NewMemoryStore()
		logger.Warn("Using in-memory store, data is lost on restart")
	case config.DriverPostgres:
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		if cfg.Database.AutoMigrate {
			migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			err := db.Migrate(migrateCtx)
			cancel()
			if err != nil {
				logger.Fatal("Failed to run migrations", zap.Error(err))
			}
			logger.Info("Database migrated")
		}
		repo = db
		logger.Info("Database connected")
	default:
		logger.Fatal("Unknown store driver", zap.String("driver", cfg.Database.Driver))
	}
	defer repo.Close()
	checks["database"] = repo.Ping

	deps := service.Deps{
		Store:          repo,
		StrictUnits:    cfg.Business.StrictUnitConversion,
		IdempotencyTTL: cfg.Business.IdempotencyTTL,
	}

	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.SnapshotTTL)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		deps.Cache = redisClient
		deps.Requests = redisClient
		checks["redis"] = redisClient.Ping
		logger.Info("Redis connected")
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var alertWorker *worker.StockAlertWorker
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicLedger)
		defer producer.Close()
		deps.Publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicLedger))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicLedger, cfg.Kafka.ConsumerGroup)
		alertWorker = worker.NewStockAlertWorker(consumer, cfg.Business.LowStockThreshold)
		go func() {
			if err := alertWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Stock alert worker error", zap.Error(err))
			}
		}()
	}

	stockService := service.NewStockService(deps)
	kitchenService := service.NewKitchenService(deps)
	orderService := service.NewOrderService(deps)

	warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := stockService.WarmCache(warmCtx); err != nil {
		logger.Warn("Failed to warm stock cache", zap.Error(err))
	}
	warmCancel()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(stockService, kitchenService, orderService, checks)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	var metricsSrv *http.Server
	if port := cfg.Observ.PrometheusPort; port != "" && port != cfg.Server.Port {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("Starting metrics server", zap.String("port", port))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server stopped", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	workerCancel()
	if alertWorker != nil {
		if err := alertWorker.Stop(); err != nil {
			logger.Warn("Error stopping stock alert worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
