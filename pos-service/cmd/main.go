package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fjod/go_pos/pkg/circuitbreaker"
	"github.com/fjod/go_pos/pkg/logger"
	"github.com/fjod/go_pos/pos-service/internal/catalog"
	"github.com/fjod/go_pos/pos-service/internal/config"
	"github.com/fjod/go_pos/pos-service/internal/dashboard"
	"github.com/fjod/go_pos/pos-service/internal/gateway"
	h "github.com/fjod/go_pos/pos-service/internal/http"
	"github.com/fjod/go_pos/pos-service/internal/ledger"
	"github.com/fjod/go_pos/pos-service/internal/sale"
	"github.com/fjod/go_pos/pos-service/internal/service"
	"github.com/fjod/go_pos/pos-service/internal/session"
	"github.com/fjod/go_pos/pos-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.LogLevel, "pos-service")
	slog.SetDefault(log)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx := context.Background()
	kv, err := openStorage(ctx, cfg)
	if err != nil {
		log.Error("failed to open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer kv.Close()
	log.Info("storage ready", "driver", cfg.StorageDriver)

	breakerSettings := circuitbreaker.DefaultSettings("backend")
	breakerSettings.Logger = log
	breaker := circuitbreaker.NewTransport(http.DefaultTransport, breakerSettings)
	backend := gateway.NewClient(cfg.BackendBaseURL, &http.Client{
		Transport: otelhttp.NewTransport(breaker),
		Timeout:   cfg.BackendTimeout,
	}, log)

	var publisher sale.Publisher = sale.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = sale.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)
		log.Info("publishing sales to kafka", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}
	defer publisher.Close()

	dashboardData, err := dashboard.Load(cfg.DashboardDataPath)
	if err != nil {
		log.Warn("dashboard data unavailable", "path", cfg.DashboardDataPath, "error", err)
	}

	ledgers := ledger.NewKVRepository(kv, log)
	finalizer := sale.NewFinalizer(ledgers,
		sale.WithRenderer(sale.PDFRenderer{}),
		sale.WithPublisher(publisher),
		sale.WithCurrency(cfg.Currency),
		sale.WithLogger(log),
	)
	terminal := service.NewTerminal(service.Deps{
		Session:     session.NewStore(kv, backend, log),
		Catalog:     catalog.New(backend, log),
		Ledgers:     ledgers,
		Finalizer:   finalizer,
		Backend:     backend,
		Recommender: dashboard.NewRecommender(backend, log),
		Dashboard:   dashboardData,
		Logger:      log,
	})

	router := h.NewRouter(terminal, h.RouterConfig{
		Timeout:      cfg.RequestTimeout,
		BackendState: breaker.State,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "pos-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("POS terminal starting", "port", cfg.HTTPPort, "backend", cfg.BackendBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	log.Info("server exited")
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.KV, error) {
	switch cfg.StorageDriver {
	case "memory":
		return storage.NewMemoryKV(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		return storage.NewRedisKV(client), nil
	case "mongo":
		db, err := storage.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		return storage.NewMongoKV(db), nil
	case "postgres":
		kv, err := storage.NewPostgresKV(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := kv.RunMigrations(filepath.Join(cfg.MigrationsPath, "postgres")); err != nil {
			kv.Close()
			return nil, err
		}
		return kv, nil
	default:
		kv, err := storage.NewSQLiteKV(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := kv.RunMigrations(filepath.Join(cfg.MigrationsPath, "sqlite")); err != nil {
			kv.Close()
			return nil, err
		}
		return kv, nil
	}
}
